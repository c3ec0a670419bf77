package bybit

import (
	"encoding/json"
	"strings"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
	"xfeed/internal/infrastructure/exchange"
)

const (
	Name        = "Bybit"
	defaultHost = "stream.bybit.com"
	defaultPort = "443"
	defaultPath = "/v5/public/spot"

	topicPrefix = "tickers."
)

type subReq struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

type Adapter struct {
	exchange.Base
	payload []byte
}

func New(spec port.VenueSpec) *Adapter {
	table := exchange.NewPairTable(spec.Pairs, exchange.NewCommonSymbolConverter("", nil), spec.Symbols)
	ep := port.Endpoint{
		Host: exchange.SpecOr(spec.Host, defaultHost),
		Port: exchange.SpecOr(spec.Port, defaultPort),
		Path: exchange.SpecOr(spec.Path, defaultPath),
	}
	topics := make([]string, 0, table.Len())
	for _, s := range table.NativeSymbols() {
		topics = append(topics, topicPrefix+s)
	}
	b, _ := json.Marshal(subReq{Op: "subscribe", Args: topics})
	return &Adapter{Base: exchange.NewBase(Name, ep, table), payload: b}
}

func (a *Adapter) SubscriptionPayload() []byte { return a.payload }

// Parse handles {"topic":"tickers.BTCUSDT","type":"snapshot","data":{"symbol":"BTCUSDT","bid1Price":"...","ask1Price":"...",...}}.
// Acks ({"success":true,"op":"subscribe"}) and deltas without both sides are ignored.
func (a *Adapter) Parse(raw []byte) (domain.PriceUpdate, bool) {
	topic, ok := exchange.StringField(raw, "topic")
	if !ok || !strings.HasPrefix(topic, topicPrefix) || !exchange.HasKey(raw, "data") {
		return domain.PriceUpdate{}, false
	}
	sym, ok := exchange.StringField(raw, "symbol")
	if !ok || sym == "" {
		return domain.PriceUpdate{}, false
	}
	bid, okB := exchange.StringField(raw, "bid1Price")
	ask, okA := exchange.StringField(raw, "ask1Price")
	if !okB || !okA || bid == "" || ask == "" {
		return domain.PriceUpdate{}, false
	}
	return a.Quote(sym, bid, ask)
}

var _ port.Adapter = (*Adapter)(nil)
