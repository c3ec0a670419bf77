package composite

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xfeed/internal/domain"
)

type memJournal struct {
	events []domain.SessionEvent
	err    error
	closed bool
}

func (m *memJournal) RecordSessionEvent(_ context.Context, ev domain.SessionEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *memJournal) ListSessionEvents(_ context.Context, venue string, limit int) ([]domain.SessionEvent, error) {
	var out []domain.SessionEvent
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		if venue == "" || m.events[i].Venue == venue {
			out = append(out, m.events[i])
		}
	}
	return out, nil
}

func (m *memJournal) Close() error {
	m.closed = true
	return m.err
}

func TestRecordReachesEveryJournal(t *testing.T) {
	broken := &memJournal{err: errors.New("disk full")}
	a, b := &memJournal{}, &memJournal{}
	repo := New(a, nil, broken, b)
	assert.Equal(t, 3, repo.Len())

	ev := domain.SessionEvent{Venue: "Bybit", From: domain.StateIdle, To: domain.StateResolving, Timestamp: 1}
	err := repo.RecordSessionEvent(context.Background(), ev)
	require.EqualError(t, err, "disk full")
	assert.Equal(t, []domain.SessionEvent{ev}, a.events)
	assert.Equal(t, []domain.SessionEvent{ev}, b.events, "a failing journal does not starve the rest")

	got, err := repo.ListSessionEvents(context.Background(), "Bybit", 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	assert.Error(t, repo.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestEmptyComposite(t *testing.T) {
	repo := New()
	require.NoError(t, repo.RecordSessionEvent(context.Background(), domain.SessionEvent{}))
	got, err := repo.ListSessionEvents(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, repo.Close())
}
