package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xfeed/internal/domain"
)

func newRepo(t *testing.T, ttl time.Duration) (*Repo, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, "test", ttl, ""), mr, rdb
}

func quote(t *testing.T, venue, bid, ask string, ts int64) domain.PriceUpdate {
	t.Helper()
	u, err := domain.NewPriceUpdate(venue, "BTC/USDT", decimal.RequireFromString(bid), decimal.RequireFromString(ask), ts)
	require.NoError(t, err)
	return u
}

func TestPublishKeepsLatestQuote(t *testing.T) {
	repo, mr, _ := newRepo(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, repo.Publish(ctx, quote(t, "Binance", "50000.12", "50001.34", 1)))
	require.NoError(t, repo.Publish(ctx, quote(t, "Binance", "50002", "50003", 2)))
	require.NoError(t, repo.Publish(ctx, quote(t, "OKX", "49999.5", "50000.5", 3)))

	assert.Equal(t,
		`{"exchange":"Binance","pair":"BTC/USDT","bid":50002,"ask":50003,"timestamp":2}`,
		mr.HGet("test:latest", "Binance:BTC/USDT"))
	assert.Equal(t, time.Minute, mr.TTL("test:latest"))

	u, ok, err := repo.Latest(ctx, "OKX", "BTC/USDT")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, u.Bid.Equal(decimal.RequireFromString("49999.5")))
	assert.Equal(t, int64(3), u.Timestamp)

	_, ok, err = repo.Latest(ctx, "Kraken", "BTC/USDT")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPublishFansOutOnChannel(t *testing.T) {
	repo, _, rdb := newRepo(t, 0)
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, repo.Channel())
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.Publish(ctx, quote(t, "Coinbase", "1.5", "1.6", 9)))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "test:quotes", msg.Channel)
		assert.JSONEq(t, `{"exchange":"Coinbase","pair":"BTC/USDT","bid":1.5,"ask":1.6,"timestamp":9}`, msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("no message on channel")
	}
}

func TestPublishSurfacesServerErrors(t *testing.T) {
	repo, mr, _ := newRepo(t, 0)
	mr.Close()
	assert.Error(t, repo.Publish(context.Background(), quote(t, "Bybit", "1", "2", 1)))
}
