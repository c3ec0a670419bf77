package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringField(t *testing.T) {
	msg := []byte(`{"stream":"btcusdt@bookTicker","data":{"u":1,"s":"BTCUSDT","b" : "50000.12","a":"50001.34"}}`)

	v, ok := StringField(msg, "s")
	require.True(t, ok)
	assert.Equal(t, "BTCUSDT", v)

	v, ok = StringField(msg, "b")
	require.True(t, ok)
	assert.Equal(t, "50000.12", v)

	_, ok = StringField(msg, "missing")
	assert.False(t, ok)

	// numeric values are not strings
	_, ok = StringField(msg, "u")
	assert.False(t, ok)
}

func TestStringFieldSkipsValueMatches(t *testing.T) {
	msg := []byte(`{"channel":"type","type":"ticker"}`)
	v, ok := StringField(msg, "type")
	require.True(t, ok)
	assert.Equal(t, "ticker", v)
}

func TestArrayStringField(t *testing.T) {
	msg := []byte(`[340,{"a":["50001.3",1,"1.0"],"b":[ "50000.1", 2, "2.0"]},"ticker","XBT/USDT"]`)

	v, ok := ArrayStringField(msg, "a", 0)
	require.True(t, ok)
	assert.Equal(t, "50001.3", v)

	v, ok = ArrayStringField(msg, "b", 2)
	require.True(t, ok)
	assert.Equal(t, "2.0", v)

	_, ok = ArrayStringField(msg, "b", 1) // number
	assert.False(t, ok)

	_, ok = ArrayStringField(msg, "b", 5)
	assert.False(t, ok)
}

func TestLastStringAndIsArray(t *testing.T) {
	msg := []byte(` [1,{},"ticker","ETH/USDT"]`)
	assert.True(t, IsArray(msg))

	v, ok := LastString(msg)
	require.True(t, ok)
	assert.Equal(t, "ETH/USDT", v)

	assert.False(t, IsArray([]byte(`{"event":"heartbeat"}`)))
	_, ok = LastString([]byte(`[1,2]`))
	assert.False(t, ok)
}

func TestParsePrice(t *testing.T) {
	v, err := ParsePrice(" 50000.12 ")
	require.NoError(t, err)
	assert.Equal(t, "50000.12", v.String())

	for _, bad := range []string{"", "abc", "0", "-1.5", "1.2.3"} {
		_, err := ParsePrice(bad)
		assert.Error(t, err, bad)
	}
}
