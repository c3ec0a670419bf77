package monitor

import (
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"xfeed/internal/domain"
)

type Dir int

const (
	DirSame Dir = 0
	DirUp   Dir = +1
	DirDown Dir = -1
)

type quoteState struct {
	mid    decimal.Decimal
	spread decimal.Decimal
	dir    Dir
	count  int64
}

type pairState struct {
	venues map[string]*quoteState // venue display name -> latest quote
}

// State is the latest mid per pair and venue, plus the direction of the
// last move.
type State struct {
	mu sync.Mutex

	order []string
	pairs map[string]*pairState
}

func NewState(pairs []string) *State {
	order := make([]string, 0, len(pairs))
	m := make(map[string]*pairState, len(pairs))
	for _, p := range pairs {
		u := strings.ToUpper(strings.TrimSpace(p))
		if u == "" {
			continue
		}
		if _, dup := m[u]; dup {
			continue
		}
		order = append(order, u)
		m[u] = &pairState{venues: make(map[string]*quoteState)}
	}
	return &State{order: order, pairs: m}
}

func (s *State) Pairs() []string {
	return s.order
}

// Apply records an update and reports whether the mid moved.
func (s *State) Apply(u domain.PriceUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps := s.pairs[u.Pair]
	if ps == nil {
		return false
	}
	qs := ps.venues[u.Exchange]
	if qs == nil {
		qs = &quoteState{}
		ps.venues[u.Exchange] = qs
	}

	mid := u.Mid()
	qs.count++
	qs.spread = u.SpreadPercent()
	if qs.count == 1 {
		qs.mid = mid
		qs.dir = DirSame
		return true
	}

	switch mid.Cmp(qs.mid) {
	case 1:
		qs.dir = DirUp
	case -1:
		qs.dir = DirDown
	default:
		qs.dir = DirSame
		return false
	}
	qs.mid = mid
	return true
}

// Quote is one venue's row in a snapshot.
type Quote struct {
	Venue  string
	Mid    decimal.Decimal
	Spread decimal.Decimal
	Dir    Dir
	Count  int64
}

// Snapshot returns, per pair, the quotes of every venue seen so far in
// venue name order.
func (s *State) Snapshot() map[string][]Quote {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]Quote, len(s.pairs))
	for pair, ps := range s.pairs {
		rows := make([]Quote, 0, len(ps.venues))
		for venue, qs := range ps.venues {
			rows = append(rows, Quote{Venue: venue, Mid: qs.mid, Spread: qs.spread, Dir: qs.dir, Count: qs.count})
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].Venue < rows[j].Venue })
		out[pair] = rows
	}
	return out
}
