package binance

import (
	"xfeed/internal/application/port"
	"xfeed/internal/infrastructure/exchange"
	"xfeed/internal/infrastructure/pricefeed"
)

// init() registers the Binance adapter factory so the wiring code needs no
// venue-specific switch.
func init() {
	pricefeed.Register(exchange.ExchangeBinance, func(spec port.VenueSpec) port.Adapter {
		return New(spec)
	})
}
