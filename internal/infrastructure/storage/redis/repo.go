package redis

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
)

// Repo mirrors the live stream into Redis: every line is published on a
// channel and the latest quote per venue and pair is kept in one hash.
type Repo struct {
	rdb       *redis.Client
	prefix    string
	ttl       time.Duration
	keyLatest string // prefix + ":latest"
	channel   string
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, channel string) *Repo {
	if strings.TrimSpace(prefix) == "" {
		prefix = "xfeed"
	}
	if strings.TrimSpace(channel) == "" {
		channel = prefix + ":quotes"
	}
	return &Repo{
		rdb:       rdb,
		prefix:    prefix,
		ttl:       ttl,
		keyLatest: prefix + ":latest",
		channel:   channel,
	}
}

// Channel is the pub/sub channel quotes are published on.
func (r *Repo) Channel() string { return r.channel }

// LatestKey is the hash holding the newest quote per "Exchange:Pair".
func (r *Repo) LatestKey() string { return r.keyLatest }

func (r *Repo) Publish(ctx context.Context, u domain.PriceUpdate) error {
	line, err := u.MarshalLine()
	if err != nil {
		return err
	}
	payload := string(bytes.TrimSuffix(line, []byte{'\n'}))

	// Hash: field = "Binance:BTC/USDT" -> json
	pipe := r.rdb.Pipeline()
	pipe.Publish(ctx, r.channel, payload)
	pipe.HSet(ctx, r.keyLatest, field(u.Exchange, u.Pair), payload)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyLatest, r.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Latest returns the mirrored quote, false when none is cached.
func (r *Repo) Latest(ctx context.Context, exchange, pair string) (domain.PriceUpdate, bool, error) {
	raw, err := r.rdb.HGet(ctx, r.keyLatest, field(exchange, pair)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.PriceUpdate{}, false, nil
	}
	if err != nil {
		return domain.PriceUpdate{}, false, err
	}
	var u domain.PriceUpdate
	if err := u.UnmarshalJSON(raw); err != nil {
		return domain.PriceUpdate{}, false, err
	}
	return u, true, nil
}

func field(exchange, pair string) string { return exchange + ":" + pair }

var _ port.QuoteSink = (*Repo)(nil)
