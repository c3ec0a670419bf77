package bybit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xfeed/internal/application/port"
)

var pairs = []string{"BTC/USDT", "ETH/USDT"}

func TestSubscriptionPayload(t *testing.T) {
	a := New(port.VenueSpec{Pairs: pairs})
	assert.JSONEq(t, `{"op":"subscribe","args":["tickers.BTCUSDT","tickers.ETHUSDT"]}`, string(a.SubscriptionPayload()))
	assert.Equal(t, "/v5/public/spot", a.Endpoint().Path)
}

func TestParseTicker(t *testing.T) {
	a := New(port.VenueSpec{Pairs: pairs})

	msg := `{"topic":"tickers.BTCUSDT","type":"snapshot","ts":1704067200000,"cs":1,"data":{"symbol":"BTCUSDT","lastPrice":"50000.5","bid1Price":"50000.12","ask1Price":"50001.34"}}`
	u, ok := a.Parse([]byte(msg))
	require.True(t, ok)
	assert.Equal(t, "Bybit", u.Exchange)
	assert.Equal(t, "BTC/USDT", u.Pair)
	assert.Equal(t, "50000.12", u.Bid.String())
	assert.Equal(t, "50001.34", u.Ask.String())
}

func TestParseIgnoresOtherShapes(t *testing.T) {
	a := New(port.VenueSpec{Pairs: pairs})

	for _, msg := range []string{
		`{"success":true,"ret_msg":"subscribe","conn_id":"x","op":"subscribe"}`,
		`{"op":"pong","args":["1"]}`,
		`{"topic":"orderbook.1.BTCUSDT","data":{"s":"BTCUSDT"}}`,
		`{"topic":"tickers.BTCUSDT","type":"delta","data":{"symbol":"BTCUSDT","lastPrice":"1"}}`,
		`{"topic":"tickers.DOGEUSDT","data":{"symbol":"DOGEUSDT","bid1Price":"1","ask1Price":"2"}}`,
	} {
		_, ok := a.Parse([]byte(msg))
		assert.False(t, ok, msg)
	}
}
