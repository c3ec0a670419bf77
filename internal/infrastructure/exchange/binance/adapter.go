package binance

import (
	"strings"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
	"xfeed/internal/infrastructure/exchange"
)

const (
	Name        = "Binance"
	defaultHost = "stream.binance.com"
	defaultPort = "9443"
)

// Adapter reads the combined bookTicker stream. Subscriptions are encoded in
// the stream path, so no payload is sent after the handshake.
type Adapter struct {
	exchange.Base
}

func New(spec port.VenueSpec) *Adapter {
	// symbols are matched upper case on the wire, lower case in the path
	overrides := make(map[string]string, len(spec.Symbols))
	for pair, native := range spec.Symbols {
		overrides[pair] = strings.ToUpper(native)
	}
	table := exchange.NewPairTable(spec.Pairs, exchange.NewCommonSymbolConverter("", nil), overrides)
	ep := port.Endpoint{
		Host: exchange.SpecOr(spec.Host, defaultHost),
		Port: exchange.SpecOr(spec.Port, defaultPort),
		Path: exchange.SpecOr(spec.Path, streamPath(table.NativeSymbols())),
	}
	return &Adapter{Base: exchange.NewBase(Name, ep, table)}
}

// streamPath e.g. /stream?streams=btcusdt@bookTicker/ethusdt@bookTicker
func streamPath(symbols []string) string {
	streams := make([]string, 0, len(symbols))
	for _, s := range symbols {
		streams = append(streams, strings.ToLower(s)+"@bookTicker")
	}
	return "/stream?streams=" + strings.Join(streams, "/")
}

func (a *Adapter) SubscriptionPayload() []byte { return nil }

// Parse handles {"stream":"btcusdt@bookTicker","data":{"u":1,"s":"BTCUSDT","b":"50000.12","B":"1.5","a":"50001.34","A":"2.0"}}
// and the raw single-stream form without the envelope.
func (a *Adapter) Parse(raw []byte) (domain.PriceUpdate, bool) {
	sym, ok := exchange.StringField(raw, "s")
	if !ok {
		return domain.PriceUpdate{}, false
	}
	bid, okB := exchange.StringField(raw, "b")
	ask, okA := exchange.StringField(raw, "a")
	if !okB || !okA {
		return domain.PriceUpdate{}, false
	}
	return a.Quote(strings.ToUpper(sym), bid, ask)
}

var _ port.Adapter = (*Adapter)(nil)
