package bybit

import (
	"xfeed/internal/application/port"
	"xfeed/internal/infrastructure/exchange"
	"xfeed/internal/infrastructure/pricefeed"
)

func init() {
	pricefeed.Register(exchange.ExchangeBybit, func(spec port.VenueSpec) port.Adapter {
		return New(spec)
	})
}
