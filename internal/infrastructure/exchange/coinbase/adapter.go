package coinbase

import (
	"encoding/json"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
	"xfeed/internal/infrastructure/exchange"
)

const (
	Name        = "Coinbase"
	defaultHost = "ws-feed.exchange.coinbase.com"
	defaultPort = "443"
	defaultPath = "/"
)

type subReq struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
}

type Adapter struct {
	exchange.Base
	payload []byte
}

func New(spec port.VenueSpec) *Adapter {
	table := exchange.NewPairTable(spec.Pairs, exchange.NewCommonSymbolConverter("-", nil), spec.Symbols)
	ep := port.Endpoint{
		Host: exchange.SpecOr(spec.Host, defaultHost),
		Port: exchange.SpecOr(spec.Port, defaultPort),
		Path: exchange.SpecOr(spec.Path, defaultPath),
	}
	b, _ := json.Marshal(subReq{
		Type:       "subscribe",
		ProductIDs: table.NativeSymbols(),
		Channels:   []string{"ticker"},
	})
	return &Adapter{Base: exchange.NewBase(Name, ep, table), payload: b}
}

func (a *Adapter) SubscriptionPayload() []byte { return a.payload }

// Parse handles {"type":"ticker","product_id":"BTC-USDT","price":"...","best_bid":"...","best_ask":"...",...}.
func (a *Adapter) Parse(raw []byte) (domain.PriceUpdate, bool) {
	if typ, _ := exchange.StringField(raw, "type"); typ != "ticker" {
		return domain.PriceUpdate{}, false
	}
	product, ok := exchange.StringField(raw, "product_id")
	if !ok {
		return domain.PriceUpdate{}, false
	}
	bid, okB := exchange.StringField(raw, "best_bid")
	ask, okA := exchange.StringField(raw, "best_ask")
	if !okB || !okA {
		return domain.PriceUpdate{}, false
	}
	return a.Quote(product, bid, ask)
}

var _ port.Adapter = (*Adapter)(nil)
