package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xfeed/internal/domain"
)

// fakeWriter implements the same methods as *kafka.Writer
type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, m ...kafka.Message) error {
	f.msgs = append(f.msgs, m...)
	return f.err
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublishKeysByVenueAndPair(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w, topic: "xfeed.quotes"}

	u, err := domain.NewPriceUpdate("OKX", "BTC/USDT", decimal.RequireFromString("50000.12"), decimal.RequireFromString("50001.34"), 1704067200000)
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), u))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "OKX:BTC/USDT", string(w.msgs[0].Key))
	assert.Equal(t, `{"exchange":"OKX","pair":"BTC/USDT","bid":50000.12,"ask":50001.34,"timestamp":1704067200000}`, string(w.msgs[0].Value))
	assert.True(t, w.msgs[0].Time.Equal(time.UnixMilli(1704067200000)))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishReturnsWriterError(t *testing.T) {
	p := &Publisher{writer: &fakeWriter{err: errors.New("leader not available")}}
	u, err := domain.NewPriceUpdate("OKX", "BTC/USDT", decimal.NewFromInt(1), decimal.NewFromInt(2), 1)
	require.NoError(t, err)
	assert.EqualError(t, p.Publish(context.Background(), u), "leader not available")
}

func TestNewPublisher(t *testing.T) {
	p := NewPublisher([]string{"127.0.0.1:9092"}, "xfeed.quotes")
	assert.Equal(t, "xfeed.quotes", p.Topic())
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1:9092", w.Addr.String())
	require.NoError(t, p.Close())
}
