package bitget

import (
	"xfeed/internal/application/port"
	"xfeed/internal/infrastructure/exchange"
	"xfeed/internal/infrastructure/pricefeed"
)

func init() {
	pricefeed.Register(exchange.ExchangeBitget, func(spec port.VenueSpec) port.Adapter {
		return New(spec)
	})
}
