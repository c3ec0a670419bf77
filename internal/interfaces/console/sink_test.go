package console

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xfeed/internal/domain"
)

func TestSinkEchoesWireLine(t *testing.T) {
	var buf bytes.Buffer
	s := NewSink(&buf)

	u, err := domain.NewPriceUpdate("Coinbase", "BTC/USD", decimal.RequireFromString("64000.01"), decimal.RequireFromString("64000.02"), 11)
	require.NoError(t, err)
	require.NoError(t, s.Publish(context.Background(), u))

	assert.Equal(t, `{"exchange":"Coinbase","pair":"BTC/USD","bid":64000.01,"ask":64000.02,"timestamp":11}`+"\n", buf.String())
}

func TestSinkWritesSnapshot(t *testing.T) {
	var buf bytes.Buffer
	s := NewSink(&buf)

	ts := time.Date(2024, 1, 1, 12, 30, 0, 0, time.Local)
	require.NoError(t, s.WriteSnapshot(ts, "[XFEED] clients=2"))
	assert.Equal(t, "\n2024-01-01 12:30:00 [XFEED] clients=2\n\n", buf.String())
}
