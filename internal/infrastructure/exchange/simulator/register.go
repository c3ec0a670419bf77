package simulator

import (
	"xfeed/internal/application/port"
	"xfeed/internal/infrastructure/exchange"
	"xfeed/internal/infrastructure/pricefeed"
)

func init() {
	pricefeed.RegisterSource(exchange.ExchangeSimulator, func(spec port.SourceSpec, handler port.Handler, observers ...port.SessionObserver) port.QuoteSource {
		return New(spec, handler, observers...)
	})
}
