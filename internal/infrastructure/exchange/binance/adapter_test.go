package binance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xfeed/internal/application/port"
)

var pairs = []string{"BTC/USDT", "ETH/USDT", "SOL/USDT", "XRP/USDT"}

func TestEndpointEncodesStreams(t *testing.T) {
	a := New(port.VenueSpec{Pairs: pairs})

	ep := a.Endpoint()
	assert.Equal(t, "stream.binance.com", ep.Host)
	assert.Equal(t, "9443", ep.Port)
	assert.Equal(t, "/stream?streams=btcusdt@bookTicker/ethusdt@bookTicker/solusdt@bookTicker/xrpusdt@bookTicker", ep.Path)
	assert.Nil(t, a.SubscriptionPayload())
}

func TestParseBookTicker(t *testing.T) {
	a := New(port.VenueSpec{Pairs: pairs})

	for _, msg := range []string{
		`{"stream":"btcusdt@bookTicker","data":{"u":400900217,"s":"BTCUSDT","b":"50000.12","B":"31.21","a":"50001.34","A":"40.66"}}`,
		`{"u":400900217,"s":"BTCUSDT","b":"50000.12","B":"31.21","a":"50001.34","A":"40.66"}`,
	} {
		u, ok := a.Parse([]byte(msg))
		require.True(t, ok, msg)
		assert.Equal(t, "Binance", u.Exchange)
		assert.Equal(t, "BTC/USDT", u.Pair)
		assert.Equal(t, "50000.12", u.Bid.String())
		assert.Equal(t, "50001.34", u.Ask.String())
		assert.Positive(t, u.Timestamp)
	}
}

func TestParseIgnoresOtherShapes(t *testing.T) {
	a := New(port.VenueSpec{Pairs: pairs})

	for _, msg := range []string{
		`{"result":null,"id":1}`,
		`{"u":1,"s":"DOGEUSDT","b":"0.1","B":"1","a":"0.2","A":"1"}`,
		`{"u":1,"s":"BTCUSDT","b":"oops","B":"1","a":"0.2","A":"1"}`,
		`not json at all`,
		``,
	} {
		_, ok := a.Parse([]byte(msg))
		assert.False(t, ok, msg)
	}
}

func TestLowercaseOverrideStillMatches(t *testing.T) {
	a := New(port.VenueSpec{Pairs: []string{"BTC/USDT"}, Symbols: map[string]string{"BTC/USDT": "btcusdt"}})
	assert.Equal(t, "/stream?streams=btcusdt@bookTicker", a.Endpoint().Path)

	u, ok := a.Parse([]byte(`{"stream":"btcusdt@bookTicker","data":{"u":1,"s":"BTCUSDT","b":"50000.12","B":"1","a":"50001.34","A":"1"}}`))
	require.True(t, ok)
	assert.Equal(t, "BTC/USDT", u.Pair)
	assert.Equal(t, "50000.12", u.Bid.String())
}
