package svc

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"xfeed/internal/application/container"
	"xfeed/internal/application/port"
	"xfeed/internal/application/usecase/feed"
	"xfeed/internal/application/usecase/monitor"
	"xfeed/internal/domain"
	"xfeed/internal/infrastructure/config"
	infracontainer "xfeed/internal/infrastructure/container"
	"xfeed/internal/infrastructure/metrics"
	"xfeed/internal/infrastructure/pricefeed"
	"xfeed/internal/infrastructure/session"
	"xfeed/internal/interfaces/console"
	"xfeed/internal/interfaces/tcpfeed"
)

// ServiceContext wires configuration, storage, venue sessions and the
// distribution server into one runnable engine.
type ServiceContext struct {
	Ctx    context.Context
	Config *config.Config

	infra *infracontainer.Container
	app   *container.Container

	Server      *tcpfeed.Server
	Relay       *feed.Relay
	Monitor     *monitor.Service
	Supervisors []*session.Supervisor
	Sources     []port.QuoteSource
	Engine      *feed.Engine

	transport session.Transport
}

// Options overrides the network transport and the console writer.
type Options struct {
	Transport session.Transport
	Console   *console.Sink
}

// New builds every component in dependency order. On failure, whatever
// was opened is closed again.
func New(ctx context.Context, cfg *config.Config, opts ...Options) (*ServiceContext, error) {
	var opt Options
	if len(opts) > 0 {
		opt = opts[0]
	}

	infra, err := infracontainer.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageInitFailed, err)
	}

	sc := &ServiceContext{
		Ctx:       ctx,
		Config:    cfg,
		infra:     infra,
		app:       container.New(infra.Journal()),
		transport: opt.Transport,
	}
	if sc.transport == nil {
		sc.transport = session.NewNetTransport(cfg.Session.UserAgent, cfg.ReadTimeout())
	}

	out := opt.Console
	if out == nil {
		out = console.NewSink(os.Stdout)
	}
	if err := sc.initializeComponents(out); err != nil {
		_ = sc.Close()
		return nil, err
	}
	return sc, nil
}

func (sc *ServiceContext) initializeComponents(out *console.Sink) error {
	sc.Server = tcpfeed.New(sc.Config.Server.Listen, sc.Config.WriteTimeout())

	observers := []session.Observer{metrics.SessionObserver{}}
	if js := sc.app.JournalService(); js != nil {
		observers = append(observers, js)
	}

	adapters := sc.buildAdapters()
	sc.Sources = sc.buildSources(observers)
	if len(adapters) == 0 && len(sc.Sources) == 0 {
		return ErrNoFeedsEnabled
	}

	sc.Monitor = monitor.NewService(monitor.ServiceDeps{
		Pairs:   boardPairs(adapters, sc.Sources),
		Clients: sc.Server,
		Every:   sc.Config.StatusEvery(),
		Sink:    out,
		Color:   sc.Config.App.Color,
	})

	sinks := []port.QuoteSink{sc.Monitor}
	if sc.Config.App.Echo {
		sinks = append(sinks, out)
	}
	if repo := sc.infra.RedisRepo(); repo != nil {
		sinks = append(sinks, sc.app.MirrorService("redis", repo))
	}
	if pub := sc.infra.KafkaPublisher(); pub != nil {
		sinks = append(sinks, sc.app.MirrorService("kafka", pub))
	}
	sc.Relay = feed.NewRelay(sc.Server, sinks...)

	policy := sc.policy()
	sessions := make([]feed.Session, 0, len(adapters)+len(sc.Sources))
	board := make([]monitor.SessionSource, 0, len(adapters)+len(sc.Sources))
	for _, a := range adapters {
		s := session.NewSupervisor(a, sc.Relay.Handle, sc.transport, policy, observers...)
		sc.Supervisors = append(sc.Supervisors, s)
		sessions = append(sessions, s)
		board = append(board, s)
	}
	for _, src := range sc.Sources {
		sessions = append(sessions, src)
		board = append(board, src)
	}
	sc.Monitor.SetSessions(board)

	background := []feed.Runner{sc.Monitor}
	for _, m := range sc.app.Mirrors() {
		background = append(background, m)
	}
	if js := sc.app.JournalService(); js != nil {
		background = append(background, js)
	}

	sc.Engine = feed.NewEngine(feed.EngineDeps{
		Server:     sc.Server,
		Sessions:   sessions,
		Background: background,
	})

	log.Info().
		Int("feeds", len(adapters)).
		Int("sources", len(sc.Sources)).
		Int("sinks", len(sinks)).
		Str("listen", sc.Config.Server.Listen).
		Msg("all components initialized")
	return nil
}

// buildAdapters asks the registry for every enabled exchange in config
// order; unknown names are skipped with a warning.
func (sc *ServiceContext) buildAdapters() []port.Adapter {
	var out []port.Adapter
	for _, name := range sc.Config.GetEnabledExchanges() {
		factory, ok := pricefeed.Get(name)
		if !ok {
			if _, isSource := pricefeed.GetSource(name); isSource {
				continue
			}
			log.Warn().Str("exchange", name).Strs("known", pricefeed.Names()).Msg("no adapter registered, skipping")
			continue
		}
		a := factory(sc.Config.VenueSpec(name))
		if len(a.Pairs()) == 0 {
			log.Warn().Str("exchange", name).Msg("no pairs configured, skipping")
			continue
		}
		log.Info().
			Str("exchange", a.Name()).
			Str("url", a.Endpoint().URL()).
			Strs("pairs", a.Pairs()).
			Msg("feed enabled")
		out = append(out, a)
	}
	return out
}

// buildSources starts nothing: it builds the enabled self-driven feeds,
// delivering to the relay once the engine runs.
func (sc *ServiceContext) buildSources(observers []session.Observer) []port.QuoteSource {
	var out []port.QuoteSource
	for _, name := range sc.Config.GetEnabledExchanges() {
		factory, ok := pricefeed.GetSource(name)
		if !ok {
			continue
		}
		src := factory(sc.Config.SourceSpec(name), sc.handle, observers...)
		if len(src.Pairs()) == 0 {
			log.Warn().Str("exchange", name).Msg("no pairs to simulate, skipping")
			continue
		}
		log.Info().Str("exchange", src.Name()).Strs("pairs", src.Pairs()).Msg("feed enabled")
		out = append(out, src)
	}
	return out
}

func (sc *ServiceContext) handle(u domain.PriceUpdate) {
	sc.Relay.Handle(u)
}

// boardPairs is the union of every feed's pairs in first-seen order.
func boardPairs(adapters []port.Adapter, sources []port.QuoteSource) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(pairs []string) {
		for _, p := range pairs {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	for _, a := range adapters {
		add(a.Pairs())
	}
	for _, s := range sources {
		add(s.Pairs())
	}
	return out
}

func (sc *ServiceContext) policy() session.Policy {
	s := sc.Config.Session
	p := session.Policy{
		MaxAttempts:      s.MaxAttempts,
		ReconnectDelay:   time.Duration(s.ReconnectDelaySec) * time.Second,
		HandshakeTimeout: time.Duration(s.HandshakeTimeoutSec) * time.Second,
	}
	if s.PingIntervalSec > 0 {
		p.PingInterval = time.Duration(s.PingIntervalSec) * time.Second
	}
	return p
}

// Journal is nil unless sqlite or postgres is enabled.
func (sc *ServiceContext) Journal() port.SessionJournal {
	return sc.infra.Journal()
}

// Run blocks until ctx is cancelled and everything has shut down.
func (sc *ServiceContext) Run(ctx context.Context) error {
	return sc.Engine.Run(ctx)
}

// Close releases storage. Call after Run returns.
func (sc *ServiceContext) Close() error {
	if sc.infra == nil {
		return nil
	}
	return sc.infra.Close()
}
