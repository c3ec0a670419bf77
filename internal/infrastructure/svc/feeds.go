package svc

// Venue packages register their adapter factories in init().
import (
	_ "xfeed/internal/infrastructure/exchange/binance"
	_ "xfeed/internal/infrastructure/exchange/bitget"
	_ "xfeed/internal/infrastructure/exchange/bybit"
	_ "xfeed/internal/infrastructure/exchange/coinbase"
	_ "xfeed/internal/infrastructure/exchange/kraken"
	_ "xfeed/internal/infrastructure/exchange/okx"
	_ "xfeed/internal/infrastructure/exchange/simulator"
)
