package kraken

import (
	"bytes"
	"encoding/json"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
	"xfeed/internal/infrastructure/exchange"
)

const (
	Name        = "Kraken"
	defaultHost = "ws.kraken.com"
	defaultPort = "443"
	defaultPath = "/"
)

// Kraken spells bitcoin XBT.
var aliases = map[string]string{"BTC": "XBT"}

var tickerMarker = []byte(`"ticker"`)

type subReq struct {
	Event        string       `json:"event"`
	Pair         []string     `json:"pair"`
	Subscription subscription `json:"subscription"`
}

type subscription struct {
	Name string `json:"name"`
}

type Adapter struct {
	exchange.Base
	payload []byte
}

func New(spec port.VenueSpec) *Adapter {
	table := exchange.NewPairTable(spec.Pairs, exchange.NewCommonSymbolConverter("/", aliases), spec.Symbols)
	ep := port.Endpoint{
		Host: exchange.SpecOr(spec.Host, defaultHost),
		Port: exchange.SpecOr(spec.Port, defaultPort),
		Path: exchange.SpecOr(spec.Path, defaultPath),
	}
	b, _ := json.Marshal(subReq{
		Event:        "subscribe",
		Pair:         table.NativeSymbols(),
		Subscription: subscription{Name: "ticker"},
	})
	return &Adapter{Base: exchange.NewBase(Name, ep, table), payload: b}
}

func (a *Adapter) SubscriptionPayload() []byte { return a.payload }

// Parse handles the v1 ticker array:
// [340,{"a":["50001.3",1,"1.0"],"b":["50000.1",2,"2.0"],...},"ticker","XBT/USDT"]
// Events and heartbeats are objects and are ignored.
func (a *Adapter) Parse(raw []byte) (domain.PriceUpdate, bool) {
	if !exchange.IsArray(raw) || !bytes.Contains(raw, tickerMarker) {
		return domain.PriceUpdate{}, false
	}
	pair, ok := exchange.LastString(raw)
	if !ok {
		return domain.PriceUpdate{}, false
	}
	if _, mapped := a.Table().Canonical(pair); !mapped {
		return domain.PriceUpdate{}, false
	}
	bid, _ := exchange.ArrayStringField(raw, "b", 0)
	ask, _ := exchange.ArrayStringField(raw, "a", 0)
	return a.Quote(pair, bid, ask)
}

var _ port.Adapter = (*Adapter)(nil)
