package game

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/burzacoroyale/backend/internal/metrics"
	"github.com/burzacoroyale/backend/internal/models"
	"github.com/burzacoroyale/backend/internal/players"
)

var errStoreDown = errors.New("store unavailable")

// memStore is an in-memory PlayerStore.
type memStore struct {
	mu         sync.Mutex
	players    map[string]*models.Player
	failing    map[string]bool
	increments map[string]int
}

func newMemStore(ids ...string) *memStore {
	s := &memStore{
		players:    make(map[string]*models.Player),
		failing:    make(map[string]bool),
		increments: make(map[string]int),
	}
	for _, id := range ids {
		s.players[id] = &models.Player{PlayerID: id, Name: "name-" + id}
	}
	return s
}

func (s *memStore) fail(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[id] = true
}

func (s *memStore) get(id string) models.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.players[id]
}

func (s *memStore) incrementsOf(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.increments[id]
}

func (s *memStore) FindByIdentity(_ context.Context, id string) (*models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return nil, players.ErrPlayerNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) IncrementCounters(_ context.Context, id string, d players.Delta) (*models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing[id] {
		return nil, errStoreDown
	}
	p, ok := s.players[id]
	if !ok {
		return nil, players.ErrPlayerNotFound
	}
	p.Respect += d.Respect
	p.GamesPlayed += d.GamesPlayed
	s.increments[id]++
	cp := *p
	return &cp, nil
}

func (s *memStore) RankOf(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok || p.Respect <= 0 {
		return 0, nil
	}
	var ranked []*models.Player
	for _, other := range s.players {
		if other.Respect > 0 {
			ranked = append(ranked, other)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Respect != ranked[j].Respect {
			return ranked[i].Respect > ranked[j].Respect
		}
		return ranked[i].PlayerID < ranked[j].PlayerID
	})
	for i, other := range ranked {
		if other.PlayerID == id {
			return i + 1, nil
		}
	}
	return 0, nil
}

// recorder is a Notifier that keeps every delivered event.
type recorder struct {
	mu     sync.Mutex
	events map[ConnID][]Event
	gone   map[ConnID]bool
}

func newRecorder() *recorder {
	return &recorder{events: make(map[ConnID][]Event), gone: make(map[ConnID]bool)}
}

func (r *recorder) Notify(conn ConnID, ev Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gone[conn] {
		return false
	}
	r.events[conn] = append(r.events[conn], ev)
	return true
}

func (r *recorder) drop(conn ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gone[conn] = true
}

func (r *recorder) types(conn ConnID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events[conn] {
		out = append(out, ev.Type)
	}
	return out
}

func (r *recorder) last(conn ConnID, eventType string) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	evs := r.events[conn]
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Type == eventType {
			return evs[i], true
		}
	}
	return Event{}, false
}

// memArchive records archived results.
type memArchive struct {
	mu      sync.Mutex
	results []*Result
}

func (a *memArchive) Save(_ context.Context, res *Result) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = append(a.results, res)
	return nil
}

func (a *memArchive) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.results)
}

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	mm      *MatchManager
	store   *memStore
	notes   *recorder
	archive *memArchive
	metrics *metrics.Mock
	clock   *clock
}

func newHarness(ids ...string) *harness {
	h := &harness{
		store:   newMemStore(ids...),
		notes:   newRecorder(),
		archive: &memArchive{},
		metrics: metrics.NewMock(),
		clock:   newClock(),
	}
	h.mm = NewMatchManager(Deps{
		Store:    h.store,
		Notifier: h.notes,
		Archive:  h.archive,
		Metrics:  h.metrics,
	}, Options{
		RoundDuration:  5 * time.Second,
		ResultDeadline: 15 * time.Second,
		SettledGrace:   30 * time.Second,
		Now:            h.clock.Now,
	})
	return h
}
