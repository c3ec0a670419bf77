package pricefeed

import (
	"sort"

	"github.com/rs/zerolog/log"

	"xfeed/internal/application/port"
)

// Factory builds an adapter from its configuration.
type Factory func(spec port.VenueSpec) port.Adapter

// SourceFactory builds a self-driven quote source delivering to handler.
type SourceFactory func(spec port.SourceSpec, handler port.Handler, observers ...port.SessionObserver) port.QuoteSource

// registry maps config keys ("binance", "okx", ...) to adapter factories.
var (
	registry = make(map[string]Factory)
	sources  = make(map[string]SourceFactory)
)

// Register is called from each venue package's init().
func Register(exchangeName string, factory Factory) {
	if factory == nil {
		log.Warn().Str("exchange", exchangeName).Msg("invalid adapter factory")
		return
	}
	if _, exists := registry[exchangeName]; exists {
		log.Warn().Str("exchange", exchangeName).Msg("adapter factory already registered, overwriting")
	}
	registry[exchangeName] = factory
}

// Get returns the factory registered for exchangeName.
func Get(exchangeName string) (Factory, bool) {
	factory, ok := registry[exchangeName]
	return factory, ok
}

// RegisterSource is the init() hook for feeds that do not dial a venue.
func RegisterSource(name string, factory SourceFactory) {
	if factory == nil {
		log.Warn().Str("exchange", name).Msg("invalid source factory")
		return
	}
	if _, exists := sources[name]; exists {
		log.Warn().Str("exchange", name).Msg("source factory already registered, overwriting")
	}
	sources[name] = factory
}

// GetSource returns the source factory registered for name.
func GetSource(name string) (SourceFactory, bool) {
	factory, ok := sources[name]
	return factory, ok
}

// Names lists registered venues and sources in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry)+len(sources))
	for name := range registry {
		out = append(out, name)
	}
	for name := range sources {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
