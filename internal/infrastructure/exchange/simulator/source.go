package simulator

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
	"xfeed/internal/infrastructure/exchange"
	"xfeed/internal/infrastructure/metrics"
	"xfeed/internal/infrastructure/session"
)

const Name = "Simulator"

// Starting mids per canonical pair. Pairs without one are not simulated.
var basePrices = map[string]float64{
	"BTC/USDT": 97500,
	"ETH/USDT": 3250,
	"SOL/USDT": 245,
	"XRP/USDT": 3.15,
	"BTC/USD":  97500,
	"ETH/USD":  3250,
	"SOL/USD":  245,
	"XRP/USD":  3.15,
	"ETH/BTC":  0.0333,
	"SOL/BTC":  0.00251,
	"XRP/BTC":  0.0000323,
}

// DefaultVenues spreads three simulated venues around the base price.
var DefaultVenues = map[string]float64{
	"Binance-SIM":  0,
	"Kraken-SIM":   0.02,
	"Coinbase-SIM": -0.03,
}

const (
	defaultMinTick = 100 * time.Millisecond
	defaultMaxTick = 500 * time.Millisecond

	maxStep      = 0.001  // per tick move of the mid, as a fraction
	minSpreadPct = 0.0001 // bid/ask spread bounds, as a fraction of the price
	maxSpreadPct = 0.0005
)

type venue struct {
	name   string
	offset float64 // fraction
	mids   map[string]float64
}

// Source is a random-walk quote generator for running without venue
// connectivity. Each simulated venue walks its own mid per pair and quotes
// it with a venue-specific offset and a random spread.
type Source struct {
	pairs     []string
	venues    []*venue
	handler   port.Handler
	observers []port.SessionObserver
	minTick   time.Duration
	maxTick   time.Duration
	rng       *rand.Rand // run goroutine only
	now       func() time.Time

	state atomic.Int32

	mu       sync.Mutex
	cancel   context.CancelFunc
	stopping bool

	done     chan struct{}
	doneOnce sync.Once
}

func New(spec port.SourceSpec, handler port.Handler, observers ...port.SessionObserver) *Source {
	s := &Source{
		handler:   handler,
		observers: observers,
		minTick:   spec.MinTick,
		maxTick:   spec.MaxTick,
		now:       time.Now,
		done:      make(chan struct{}),
	}
	if s.minTick <= 0 {
		s.minTick = defaultMinTick
	}
	if s.maxTick < s.minTick {
		s.maxTick = max(defaultMaxTick, s.minTick)
	}

	seed := uint64(spec.Seed)
	if seed == 0 {
		seed = rand.Uint64()
	}
	s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	for _, p := range spec.Pairs {
		base, quote, err := exchange.SplitPair(p)
		if err != nil {
			continue
		}
		pair := base + "/" + quote
		if _, ok := basePrices[pair]; !ok {
			log.Warn().Str("pair", pair).Msg("no base price, pair not simulated")
			continue
		}
		s.pairs = append(s.pairs, pair)
	}

	venues := spec.Venues
	if len(venues) == 0 {
		venues = DefaultVenues
	}
	names := make([]string, 0, len(venues))
	for n := range venues {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		v := &venue{name: n, offset: venues[n] / 100, mids: make(map[string]float64, len(s.pairs))}
		for _, p := range s.pairs {
			v.mids[p] = basePrices[p]
		}
		s.venues = append(s.venues, v)
	}
	return s
}

func (s *Source) Name() string { return Name }

func (s *Source) Pairs() []string { return append([]string(nil), s.pairs...) }

// Venues returns the simulated venue names in sorted order.
func (s *Source) Venues() []string {
	out := make([]string, 0, len(s.venues))
	for _, v := range s.venues {
		out = append(out, v.name)
	}
	return out
}

func (s *Source) State() domain.SessionState { return domain.SessionState(s.state.Load()) }

// Attempts is always 0: there is nothing to reconnect.
func (s *Source) Attempts() int { return 0 }

func (s *Source) Done() <-chan struct{} { return s.done }

func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return session.ErrStopped
	}
	if s.cancel != nil {
		return session.ErrAlreadyStarted
	}
	ctx, s.cancel = context.WithCancel(ctx)
	log.Info().
		Strs("venues", s.Venues()).
		Strs("pairs", s.pairs).
		Msg("simulation mode, generating mock prices")
	go s.run(ctx)
	return nil
}

func (s *Source) Stop() {
	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		return
	}
	s.finish()
}

func (s *Source) run(ctx context.Context) {
	defer s.finish()
	s.transition(domain.StateStreaming)

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.tick()
			timer.Reset(s.nextDelay())
		}
	}
}

func (s *Source) nextDelay() time.Duration {
	span := s.maxTick - s.minTick
	if span <= 0 {
		return s.minTick
	}
	return s.minTick + time.Duration(s.rng.Int64N(int64(span)+1))
}

// tick moves every mid once and emits one quote per venue and pair.
func (s *Source) tick() {
	ts := s.now().UnixMilli()
	for _, v := range s.venues {
		for _, p := range s.pairs {
			mid := v.mids[p] * (1 + s.uniform(-maxStep, maxStep))
			v.mids[p] = mid

			px := mid * (1 + v.offset)
			half := px * s.uniform(minSpreadPct, maxSpreadPct) / 2
			u, err := domain.NewPriceUpdate(v.name, p, toDecimal(px-half), toDecimal(px+half), ts)
			if err != nil {
				metrics.ParseErrorsTotal.WithLabelValues(v.name).Inc()
				continue
			}
			metrics.UpdatesTotal.WithLabelValues(v.name).Inc()
			if s.handler != nil {
				s.handler(u)
			}
		}
	}
}

func (s *Source) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

func (s *Source) finish() {
	s.doneOnce.Do(func() {
		s.transition(domain.StateStopped)
		log.Info().Msg("simulation stopped")
		close(s.done)
	})
}

func (s *Source) transition(to domain.SessionState) {
	from := domain.SessionState(s.state.Swap(int32(to)))
	ev := domain.SessionEvent{Venue: Name, From: from, To: to, Timestamp: s.now().UnixMilli()}
	for _, o := range s.observers {
		o.OnSessionEvent(ev)
	}
}

// toDecimal keeps about ten significant digits.
func toDecimal(f float64) decimal.Decimal {
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	places := 10 - int32(math.Floor(math.Log10(math.Abs(f))))
	places = min(max(places, 2), 14)
	return decimal.NewFromFloat(f).Round(places)
}

var _ port.QuoteSource = (*Source)(nil)
