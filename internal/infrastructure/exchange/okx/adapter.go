package okx

import (
	"encoding/json"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
	"xfeed/internal/infrastructure/exchange"
)

const (
	Name        = "OKX"
	defaultHost = "ws.okx.com"
	defaultPort = "8443"
	defaultPath = "/ws/v5/public"
)

type subReq struct {
	Op   string   `json:"op"`
	Args []subArg `json:"args"`
}

type subArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
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
	args := make([]subArg, 0, table.Len())
	for _, s := range table.NativeSymbols() {
		args = append(args, subArg{Channel: "tickers", InstID: s})
	}
	b, _ := json.Marshal(subReq{Op: "subscribe", Args: args})
	return &Adapter{Base: exchange.NewBase(Name, ep, table), payload: b}
}

func (a *Adapter) SubscriptionPayload() []byte { return a.payload }

// Parse handles {"arg":{"channel":"tickers","instId":"BTC-USDT"},"data":[{"instId":"BTC-USDT","bidPx":"...","askPx":"...",...}]}.
// Subscribe acks carry "event" and no "data".
func (a *Adapter) Parse(raw []byte) (domain.PriceUpdate, bool) {
	if !exchange.HasKey(raw, "data") {
		return domain.PriceUpdate{}, false
	}
	inst, ok := exchange.StringField(raw, "instId")
	if !ok || inst == "" {
		return domain.PriceUpdate{}, false
	}
	bid, okB := exchange.StringField(raw, "bidPx")
	ask, okA := exchange.StringField(raw, "askPx")
	if !okB || !okA || bid == "" || ask == "" {
		return domain.PriceUpdate{}, false
	}
	return a.Quote(inst, bid, ask)
}

var _ port.Adapter = (*Adapter)(nil)
