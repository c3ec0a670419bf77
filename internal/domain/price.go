package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNonPositivePrice is returned when a bid or ask is zero or negative.
var ErrNonPositivePrice = errors.New("price must be positive")

var hundred = decimal.NewFromInt(100)

// PriceUpdate is one best bid/ask snapshot for a canonical pair on one venue.
// Values are immutable once built; copy freely.
type PriceUpdate struct {
	Exchange  string          // display name, e.g. "Binance"
	Pair      string          // canonical "BASE/QUOTE"
	Bid       decimal.Decimal // best bid, > 0
	Ask       decimal.Decimal // best ask, > 0
	Timestamp int64           // capture time, unix ms
}

// NewPriceUpdate validates that both sides are strictly positive.
// Bid above ask is accepted as reported by the venue.
func NewPriceUpdate(exchange, pair string, bid, ask decimal.Decimal, ts int64) (PriceUpdate, error) {
	if !bid.IsPositive() || !ask.IsPositive() {
		return PriceUpdate{}, ErrNonPositivePrice
	}
	return PriceUpdate{
		Exchange:  exchange,
		Pair:      pair,
		Bid:       bid,
		Ask:       ask,
		Timestamp: ts,
	}, nil
}

// Mid returns (bid+ask)/2.
func (u PriceUpdate) Mid() decimal.Decimal {
	return u.Bid.Add(u.Ask).Div(decimal.NewFromInt(2))
}

// SpreadPercent returns (ask-bid)/mid*100. Negative when the book is crossed.
func (u PriceUpdate) SpreadPercent() decimal.Decimal {
	mid := u.Mid()
	if mid.IsZero() {
		return decimal.Zero
	}
	return u.Ask.Sub(u.Bid).Div(mid).Mul(hundred)
}

type wireUpdate struct {
	Exchange  string      `json:"exchange"`
	Pair      string      `json:"pair"`
	Bid       json.Number `json:"bid"`
	Ask       json.Number `json:"ask"`
	Timestamp int64       `json:"timestamp"`
}

// MarshalJSON renders bid and ask as bare JSON numbers.
func (u PriceUpdate) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireUpdate{
		Exchange:  u.Exchange,
		Pair:      u.Pair,
		Bid:       json.Number(u.Bid.String()),
		Ask:       json.Number(u.Ask.String()),
		Timestamp: u.Timestamp,
	})
}

// UnmarshalJSON accepts the wire form produced by MarshalJSON.
func (u *PriceUpdate) UnmarshalJSON(b []byte) error {
	var w wireUpdate
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	bid, err := decimal.NewFromString(w.Bid.String())
	if err != nil {
		return fmt.Errorf("bid: %w", err)
	}
	ask, err := decimal.NewFromString(w.Ask.String())
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}
	*u = PriceUpdate{Exchange: w.Exchange, Pair: w.Pair, Bid: bid, Ask: ask, Timestamp: w.Timestamp}
	return nil
}

// MarshalLine is the distribution wire form: one JSON object and a trailing newline.
func (u PriceUpdate) MarshalLine() ([]byte, error) {
	b, err := u.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
