package container

import (
	"time"

	"xfeed/internal/application/port"
	"xfeed/internal/application/service"
)

// Container hands out the application services built on top of the
// storage ports. Services are created on first use.
type Container struct {
	journal port.SessionJournal

	journalService *service.JournalService
	mirrors        []*service.MirrorService
}

func New(journal port.SessionJournal) *Container {
	return &Container{
		journal: journal,
	}
}

func (c *Container) Journal() port.SessionJournal {
	return c.journal
}

// JournalService is nil when no journal is configured.
func (c *Container) JournalService() *service.JournalService {
	if c.journal == nil {
		return nil
	}
	if c.journalService == nil {
		c.journalService = service.NewJournalService(c.journal, 1024, 5*time.Second)
	}
	return c.journalService
}

// MirrorService wraps sink in an async queue and remembers it so Mirrors
// can hand every one to the engine.
func (c *Container) MirrorService(name string, sink port.QuoteSink) *service.MirrorService {
	m := service.NewMirrorService(name, sink, 4096, 2*time.Second)
	c.mirrors = append(c.mirrors, m)
	return m
}

func (c *Container) Mirrors() []*service.MirrorService {
	return c.mirrors
}
