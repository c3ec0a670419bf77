package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"xfeed/internal/application/port"
	"xfeed/internal/infrastructure/config"
	"xfeed/internal/infrastructure/storage/composite"
	kafkapub "xfeed/internal/infrastructure/storage/kafka"
	pgrepo "xfeed/internal/infrastructure/storage/postgres"
	redisrepo "xfeed/internal/infrastructure/storage/redis"
	sqliterepo "xfeed/internal/infrastructure/storage/sqlite"
)

// Container owns the optional storage backends and closes them in reverse
// order of creation.
type Container struct {
	cfg          *config.Config
	redisRepo    *redisrepo.Repo
	sqliteRepo   *sqliterepo.Repo
	postgresRepo *pgrepo.Repo
	kafkaPub     *kafkapub.Publisher
	journal      *composite.Repo
	closeOnce    sync.Once
	closerChain  []func() error
}

func New(cfg *config.Config) (*Container, error) {
	c := &Container{
		cfg:         cfg,
		closerChain: make([]func() error, 0),
	}
	if err := c.initStorage(); err != nil {
		// release whatever was opened before the failure
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) initStorage() error {
	if c.cfg.Storage.Redis.Enabled {
		if err := c.initRedis(); err != nil {
			return fmt.Errorf("redis init failed: %w", err)
		}
	}
	if c.cfg.Storage.SQLite.Enabled {
		if err := c.initSQLite(); err != nil {
			return fmt.Errorf("sqlite init failed: %w", err)
		}
	}
	if c.cfg.Storage.Postgres.Enabled {
		if err := c.initPostgres(); err != nil {
			return fmt.Errorf("postgres init failed: %w", err)
		}
	}
	if c.cfg.Storage.Kafka.Enabled {
		c.initKafka()
	}

	var journals []port.SessionJournal
	if c.sqliteRepo != nil {
		journals = append(journals, c.sqliteRepo)
	}
	if c.postgresRepo != nil {
		journals = append(journals, c.postgresRepo)
	}
	if len(journals) > 0 {
		c.journal = composite.New(journals...)
	}
	return nil
}

func (c *Container) initRedis() error {
	rc := c.cfg.Storage.Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	c.redisRepo = redisrepo.New(rdb, rc.Prefix, c.cfg.RedisTTL(), rc.Channel)
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().
		Str("addr", rc.Addr).
		Int("db", rc.DB).
		Str("channel", c.redisRepo.Channel()).
		Msg("redis initialized")
	return nil
}

func (c *Container) initSQLite() error {
	repo, err := sqliterepo.New(c.cfg.Storage.SQLite.Path)
	if err != nil {
		return err
	}
	c.sqliteRepo = repo
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing sqlite connection")
		return repo.Close()
	})

	log.Info().Str("path", c.cfg.Storage.SQLite.Path).Msg("sqlite initialized")
	return nil
}

func (c *Container) initPostgres() error {
	repo, err := pgrepo.New(c.cfg.Storage.Postgres.DSN)
	if err != nil {
		return err
	}
	c.postgresRepo = repo
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing postgres connection")
		return repo.Close()
	})

	log.Info().Msg("postgres initialized")
	return nil
}

// initKafka cannot fail: the writer connects lazily on first publish.
func (c *Container) initKafka() {
	kc := c.cfg.Storage.Kafka
	pub := kafkapub.NewPublisher(kc.Brokers, kc.Topic)
	c.kafkaPub = pub
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing kafka writer")
		return pub.Close()
	})

	log.Info().Strs("brokers", kc.Brokers).Str("topic", kc.Topic).Msg("kafka initialized")
}

// RedisRepo is nil unless storage.redis is enabled.
func (c *Container) RedisRepo() *redisrepo.Repo {
	return c.redisRepo
}

// KafkaPublisher is nil unless storage.kafka is enabled.
func (c *Container) KafkaPublisher() *kafkapub.Publisher {
	return c.kafkaPub
}

// Journal combines every enabled session journal; nil when none is.
func (c *Container) Journal() port.SessionJournal {
	if c.journal == nil {
		return nil
	}
	return c.journal
}

// Close releases all resources, last opened first.
func (c *Container) Close() error {
	var err error
	c.closeOnce.Do(func() {
		for i := len(c.closerChain) - 1; i >= 0; i-- {
			if e := c.closerChain[i](); e != nil {
				log.Error().Err(e).Msg("error closing resource")
				if err == nil {
					err = e
				}
			}
		}
		log.Info().Msg("container closed")
	})
	return err
}
