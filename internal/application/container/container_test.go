package container

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xfeed/internal/domain"
	"xfeed/internal/infrastructure/config"
	infracontainer "xfeed/internal/infrastructure/container"
)

func TestContainerWithoutJournal(t *testing.T) {
	c := New(nil)
	assert.Nil(t, c.JournalService())
	assert.Empty(t, c.Mirrors())
}

func TestContainerJournalWorkflow(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.SQLite.Enabled = true
	cfg.Storage.SQLite.Path = filepath.Join(t.TempDir(), "workflow.db")

	infra, err := infracontainer.New(cfg)
	require.NoError(t, err)
	defer infra.Close()

	c := New(infra.Journal())
	js := c.JournalService()
	require.NotNil(t, js)
	assert.Same(t, js, c.JournalService())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- js.Run(ctx) }()

	js.OnSessionEvent(domain.SessionEvent{Venue: "Bybit", From: domain.StateIdle, To: domain.StateResolving, Timestamp: 1})
	js.OnSessionEvent(domain.SessionEvent{Venue: "Bybit", From: domain.StateSubscribing, To: domain.StateStreaming, Timestamp: 2})

	require.Eventually(t, func() bool {
		got, err := js.Recent(context.Background(), "Bybit", 10)
		return err == nil && len(got) == 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	got, err := js.Recent(context.Background(), "Bybit", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.StateStreaming, got[0].To)
}

func TestContainerMirrorWorkflow(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{}
	cfg.Storage.Redis.Enabled = true
	cfg.Storage.Redis.Addr = mr.Addr()
	cfg.Storage.Redis.Prefix = "wf"

	infra, err := infracontainer.New(cfg)
	require.NoError(t, err)
	defer infra.Close()

	c := New(nil)
	m := c.MirrorService("redis", infra.RedisRepo())
	require.Len(t, c.Mirrors(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	u, err := domain.NewPriceUpdate("OKX", "ETH/USDT", decimal.RequireFromString("3000.1"), decimal.RequireFromString("3000.2"), 5)
	require.NoError(t, err)
	require.NoError(t, m.Publish(ctx, u))

	require.Eventually(t, func() bool {
		return mr.HGet("wf:latest", "OKX:ETH/USDT") != ""
	}, 2*time.Second, 5*time.Millisecond)
}
