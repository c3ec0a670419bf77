package kraken

import (
	"xfeed/internal/application/port"
	"xfeed/internal/infrastructure/exchange"
	"xfeed/internal/infrastructure/pricefeed"
)

func init() {
	pricefeed.Register(exchange.ExchangeKraken, func(spec port.VenueSpec) port.Adapter {
		return New(spec)
	})
}
