package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"xfeed/internal/application/port"
)

type Config struct {
	App struct {
		LogLevel       string `toml:"log_level"`
		Echo           bool   `toml:"echo"`
		StatusEverySec int    `toml:"status_every_sec"`
		Color          bool   `toml:"color"`
	} `toml:"app"`

	Server struct {
		Listen         string `toml:"listen"`
		WriteTimeoutMs int    `toml:"write_timeout_ms"`
	} `toml:"server"`

	Metrics struct {
		Enabled bool   `toml:"enabled"`
		Listen  string `toml:"listen"`
	} `toml:"metrics"`

	Session struct {
		MaxAttempts         int    `toml:"max_attempts"`
		ReconnectDelaySec   int    `toml:"reconnect_delay_sec"`
		HandshakeTimeoutSec int    `toml:"handshake_timeout_sec"`
		PingIntervalSec     int    `toml:"ping_interval_sec"`
		ReadTimeoutSec      int    `toml:"read_timeout_sec"`
		UserAgent           string `toml:"user_agent"`
	} `toml:"session"`

	Symbols struct {
		List []string `toml:"list"`
	} `toml:"symbols"`

	Exchanges map[string]ExchangeConfig `toml:"exchanges"`

	Storage struct {
		Redis    RedisConfig    `toml:"redis"`
		SQLite   SQLiteConfig   `toml:"sqlite"`
		Postgres PostgresConfig `toml:"postgres"`
		Kafka    KafkaConfig    `toml:"kafka"`
	} `toml:"storage"`
}

type ExchangeConfig struct {
	Enabled bool              `toml:"enabled"`
	Host    string            `toml:"host"`
	Port    string            `toml:"port"`
	Path    string            `toml:"path"`
	Pairs   []string          `toml:"pairs"`   // overrides symbols.list
	Symbols map[string]string `toml:"symbols"` // canonical -> native

	// simulator only
	Venues    map[string]float64 `toml:"venues"` // display name -> offset percent
	TickMinMs int                `toml:"tick_min_ms"`
	TickMaxMs int                `toml:"tick_max_ms"`
	Seed      int64              `toml:"seed"`
}

type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	Prefix     string `toml:"prefix"`
	Channel    string `toml:"channel"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

type SQLiteConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type PostgresConfig struct {
	Enabled bool   `toml:"enabled"`
	DSN     string `toml:"dsn"`
}

type KafkaConfig struct {
	Enabled bool     `toml:"enabled"`
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

// Load reads the TOML file, then lets XFEED_* environment variables (and a
// ./.env file, when present) override secrets and addresses.
func Load(path string) (*Config, error) {
	// a missing .env is normal
	_ = godotenv.Load()

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse decodes a config held in memory.
func Parse(data string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	set := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set("XFEED_LOG_LEVEL", &cfg.App.LogLevel)
	set("XFEED_SERVER_LISTEN", &cfg.Server.Listen)
	set("XFEED_REDIS_ADDR", &cfg.Storage.Redis.Addr)
	set("XFEED_REDIS_PASSWORD", &cfg.Storage.Redis.Password)
	set("XFEED_POSTGRES_DSN", &cfg.Storage.Postgres.DSN)

	var brokers string
	set("XFEED_KAFKA_BROKERS", &brokers)
	if brokers != "" {
		cfg.Storage.Kafka.Brokers = strings.Split(brokers, ",")
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.App.StatusEverySec <= 0 {
		cfg.App.StatusEverySec = 60
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":5555"
	}
	// zero means unset; negative timeouts and pings stay disabled
	if cfg.Server.WriteTimeoutMs == 0 {
		cfg.Server.WriteTimeoutMs = 2000
	}
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = ":9100"
	}
	if cfg.Session.MaxAttempts <= 0 {
		cfg.Session.MaxAttempts = 10
	}
	if cfg.Session.ReconnectDelaySec <= 0 {
		cfg.Session.ReconnectDelaySec = 5
	}
	if cfg.Session.HandshakeTimeoutSec <= 0 {
		cfg.Session.HandshakeTimeoutSec = 10
	}
	if cfg.Session.PingIntervalSec == 0 {
		cfg.Session.PingIntervalSec = 25
	}
	if cfg.Session.ReadTimeoutSec == 0 {
		cfg.Session.ReadTimeoutSec = 60
	}
	if cfg.Session.UserAgent == "" {
		cfg.Session.UserAgent = "xfeed/1.0"
	}
	if cfg.Storage.Redis.Addr == "" {
		cfg.Storage.Redis.Addr = "127.0.0.1:6379"
	}
	if cfg.Storage.Redis.Prefix == "" {
		cfg.Storage.Redis.Prefix = "xfeed"
	}
	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = "data/xfeed.db"
	}
	if cfg.Storage.Kafka.Topic == "" {
		cfg.Storage.Kafka.Topic = "xfeed.quotes"
	}
}

func validate(cfg *Config) error {
	cfg.Symbols.List = normalizeSymbols(cfg.Symbols.List)
	if len(cfg.Symbols.List) == 0 {
		return errors.New("symbols.list is empty")
	}
	for _, p := range cfg.Symbols.List {
		if !validPair(p) {
			return fmt.Errorf("symbols.list: %q is not BASE/QUOTE", p)
		}
	}

	if _, _, err := net.SplitHostPort(cfg.Server.Listen); err != nil {
		return fmt.Errorf("server.listen: %w", err)
	}

	normalized := make(map[string]ExchangeConfig, len(cfg.Exchanges))
	for name, ex := range cfg.Exchanges {
		key := strings.ToLower(strings.TrimSpace(name))
		ex.Pairs = normalizeSymbols(ex.Pairs)
		for _, p := range ex.Pairs {
			if !validPair(p) {
				return fmt.Errorf("exchanges.%s.pairs: %q is not BASE/QUOTE", key, p)
			}
		}
		if len(ex.Symbols) > 0 {
			syms := make(map[string]string, len(ex.Symbols))
			for canon, native := range ex.Symbols {
				syms[strings.ToUpper(strings.TrimSpace(canon))] = strings.TrimSpace(native)
			}
			ex.Symbols = syms
		}
		normalized[key] = ex
	}
	cfg.Exchanges = normalized
	if len(cfg.GetEnabledExchanges()) == 0 {
		return errors.New("no exchange enabled")
	}

	if cfg.Storage.Postgres.Enabled && strings.TrimSpace(cfg.Storage.Postgres.DSN) == "" {
		return errors.New("storage.postgres.dsn empty but enabled")
	}
	if cfg.Storage.SQLite.Enabled && strings.TrimSpace(cfg.Storage.SQLite.Path) == "" {
		return errors.New("storage.sqlite.path empty but enabled")
	}
	cfg.Storage.Kafka.Brokers = trimAll(cfg.Storage.Kafka.Brokers)
	if cfg.Storage.Kafka.Enabled && len(cfg.Storage.Kafka.Brokers) == 0 {
		return errors.New("storage.kafka.brokers empty but enabled")
	}
	return nil
}

func validPair(p string) bool {
	base, quote, ok := strings.Cut(p, "/")
	return ok && base != "" && quote != "" && !strings.Contains(quote, "/")
}

func trimAll(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func normalizeSymbols(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		u := strings.ToUpper(strings.TrimSpace(s))
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// GetEnabledExchanges returns the enabled exchange keys in sorted order.
func (c *Config) GetEnabledExchanges() []string {
	var out []string
	for name, ex := range c.Exchanges {
		if ex.Enabled {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// VenueSpec builds the adapter input for one exchange key.
func (c *Config) VenueSpec(name string) port.VenueSpec {
	ex := c.Exchanges[name]
	pairs := ex.Pairs
	if len(pairs) == 0 {
		pairs = c.Symbols.List
	}
	return port.VenueSpec{
		Host:    strings.TrimSpace(ex.Host),
		Port:    strings.TrimSpace(ex.Port),
		Path:    strings.TrimSpace(ex.Path),
		Pairs:   pairs,
		Symbols: ex.Symbols,
	}
}

// SourceSpec builds the input of a self-driven feed such as the simulator.
func (c *Config) SourceSpec(name string) port.SourceSpec {
	ex := c.Exchanges[name]
	pairs := ex.Pairs
	if len(pairs) == 0 {
		pairs = c.Symbols.List
	}
	return port.SourceSpec{
		Pairs:   pairs,
		Venues:  ex.Venues,
		MinTick: time.Duration(ex.TickMinMs) * time.Millisecond,
		MaxTick: time.Duration(ex.TickMaxMs) * time.Millisecond,
		Seed:    ex.Seed,
	}
}

func (c *Config) WriteTimeout() time.Duration {
	if c.Server.WriteTimeoutMs < 0 {
		return 0
	}
	return time.Duration(c.Server.WriteTimeoutMs) * time.Millisecond
}

func (c *Config) StatusEvery() time.Duration {
	return time.Duration(c.App.StatusEverySec) * time.Second
}

func (c *Config) ReadTimeout() time.Duration {
	if c.Session.ReadTimeoutSec < 0 {
		return 0
	}
	return time.Duration(c.Session.ReadTimeoutSec) * time.Second
}

func (c *Config) RedisTTL() time.Duration {
	return time.Duration(c.Storage.Redis.TTLSeconds) * time.Second
}
