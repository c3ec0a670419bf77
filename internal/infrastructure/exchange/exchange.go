package exchange

import (
	"time"

	"github.com/rs/zerolog/log"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
	"xfeed/internal/infrastructure/metrics"
)

// Config keys of the supported venues.
const (
	ExchangeBinance  = "binance"
	ExchangeKraken   = "kraken"
	ExchangeCoinbase = "coinbase"
	ExchangeBybit    = "bybit"
	ExchangeOKX      = "okx"
	ExchangeBitget   = "bitget"

	// ExchangeSimulator is the offline random-walk feed.
	ExchangeSimulator = "simulator"
)

// Base carries what every adapter shares: display name, endpoint and the
// pair table. Venue packages embed it and add SubscriptionPayload and Parse.
type Base struct {
	name     string
	endpoint port.Endpoint
	table    *PairTable
	now      func() time.Time
}

func NewBase(name string, endpoint port.Endpoint, table *PairTable) Base {
	return Base{name: name, endpoint: endpoint, table: table, now: time.Now}
}

func (b *Base) Name() string { return b.name }
func (b *Base) Endpoint() port.Endpoint { return b.endpoint }
func (b *Base) Pairs() []string { return b.table.Pairs() }
func (b *Base) Table() *PairTable { return b.table }
func (b *Base) SetClock(f func() time.Time) { b.now = f }

// Quote builds an update from a native symbol and raw bid/ask text.
// Unmapped symbols return false silently; malformed numbers are counted.
func (b *Base) Quote(native, bid, ask string) (domain.PriceUpdate, bool) {
	pair, ok := b.table.Canonical(native)
	if !ok {
		return domain.PriceUpdate{}, false
	}
	bidN, err := ParsePrice(bid)
	if err != nil {
		b.malformed(native, "bid", bid, err)
		return domain.PriceUpdate{}, false
	}
	askN, err := ParsePrice(ask)
	if err != nil {
		b.malformed(native, "ask", ask, err)
		return domain.PriceUpdate{}, false
	}
	u, err := domain.NewPriceUpdate(b.name, pair, bidN, askN, b.now().UnixMilli())
	if err != nil {
		b.malformed(native, "quote", bid+"/"+ask, err)
		return domain.PriceUpdate{}, false
	}
	return u, true
}

func (b *Base) malformed(native, field, raw string, err error) {
	metrics.ParseErrorsTotal.WithLabelValues(b.name).Inc()
	log.Debug().
		Str("venue", b.name).
		Str("symbol", native).
		Str("field", field).
		Str("raw", raw).
		Err(err).
		Msg("malformed ticker field")
}

// SpecOr returns v when non-empty, otherwise def.
func SpecOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
