package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/freeeve/elemental-conquest/api/internal/model"
	"github.com/freeeve/elemental-conquest/api/internal/repository"
)

type mockGameRepo struct {
	mu       sync.Mutex
	games    map[string]*model.Game
	states   map[string]json.RawMessage
	failSave bool
}

func newMockGameRepo() *mockGameRepo {
	return &mockGameRepo{
		games:  make(map[string]*model.Game),
		states: make(map[string]json.RawMessage),
	}
}

func copyGame(g *model.Game) *model.Game {
	cp := *g
	cp.Seats = append([]model.Seat(nil), g.Seats...)
	return &cp
}

func (m *mockGameRepo) Create(_ context.Context, g *model.Game) (*model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := copyGame(g)
	cp.CreatedAt = time.Now()
	for i := range cp.Seats {
		cp.Seats[i].GameID = cp.ID
		cp.Seats[i].JoinedAt = cp.CreatedAt
	}
	m.games[cp.ID] = cp
	return copyGame(cp), nil
}

func (m *mockGameRepo) FindByID(_ context.Context, id string) (*model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return nil, nil
	}
	return copyGame(g), nil
}

func (m *mockGameRepo) FindByRoomCode(_ context.Context, code string) (*model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.games {
		if g.RoomCode != "" && g.RoomCode == code {
			return copyGame(g), nil
		}
	}
	return nil, nil
}

func (m *mockGameRepo) filter(keep func(g *model.Game) bool) []model.Game {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Game
	for _, g := range m.games {
		if keep(g) {
			result = append(result, *copyGame(g))
		}
	}
	return result
}

func (m *mockGameRepo) ListOpen(_ context.Context) ([]model.Game, error) {
	return m.filter(func(g *model.Game) bool { return g.Status == "waiting" && g.Mode == model.ModeOnline }), nil
}

func (m *mockGameRepo) ListActive(_ context.Context) ([]model.Game, error) {
	return m.filter(func(g *model.Game) bool { return g.Status == "active" }), nil
}

func (m *mockGameRepo) ListFinished(_ context.Context) ([]model.Game, error) {
	return m.filter(func(g *model.Game) bool { return g.Status == "finished" }), nil
}

func (m *mockGameRepo) ListExpired(_ context.Context) ([]model.Game, error) {
	now := time.Now()
	return m.filter(func(g *model.Game) bool {
		return g.Status == "active" && g.TurnDeadline != nil && g.TurnDeadline.Before(now)
	}), nil
}

func (m *mockGameRepo) AddSeat(_ context.Context, seat model.Seat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[seat.GameID]
	if !ok {
		return fmt.Errorf("game %s not found", seat.GameID)
	}
	for _, s := range g.Seats {
		if s.Seat == seat.Seat || s.Element == seat.Element {
			return errors.New("duplicate seat")
		}
	}
	seat.JoinedAt = time.Now()
	g.Seats = append(g.Seats, seat)
	return nil
}

func (m *mockGameRepo) Activate(_ context.Context, gameID string, state json.RawMessage, version uint64, deadline *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[gameID]
	if !ok || g.Status != "waiting" {
		return repository.ErrVersionConflict
	}
	now := time.Now()
	g.Status = "active"
	g.Version = version
	g.TurnDeadline = deadline
	g.StartedAt = &now
	m.states[gameID] = state
	return nil
}

func (m *mockGameRepo) SaveState(_ context.Context, gameID string, state json.RawMessage, prevVersion, version uint64, deadline *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("postgres unavailable")
	}
	g, ok := m.games[gameID]
	if !ok || g.Status != "active" || g.Version != prevVersion {
		return fmt.Errorf("save %s: %w", gameID, repository.ErrVersionConflict)
	}
	g.Version = version
	g.TurnDeadline = deadline
	m.states[gameID] = state
	return nil
}

func (m *mockGameRepo) LoadState(_ context.Context, gameID string) (json.RawMessage, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[gameID]
	if !ok {
		return nil, 0, nil
	}
	return m.states[gameID], g.Version, nil
}

func (m *mockGameRepo) SetFinished(_ context.Context, gameID string, winner *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[gameID]
	if !ok {
		return fmt.Errorf("game %s not found", gameID)
	}
	now := time.Now()
	g.Status = "finished"
	g.Winner = winner
	g.TurnDeadline = nil
	g.FinishedAt = &now
	return nil
}

func (m *mockGameRepo) game(id string) *model.Game {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyGame(m.games[id])
}

func (m *mockGameRepo) setDeadline(id string, d time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[id].TurnDeadline = &d
}

type mockMoveRepo struct {
	mu    sync.Mutex
	moves map[string][]model.MoveRecord
}

func newMockMoveRepo() *mockMoveRepo {
	return &mockMoveRepo{moves: make(map[string][]model.MoveRecord)}
}

func (m *mockMoveRepo) Append(_ context.Context, rec model.MoveRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.CreatedAt = time.Now()
	m.moves[rec.GameID] = append(m.moves[rec.GameID], rec)
	return nil
}

func (m *mockMoveRepo) ListByGame(_ context.Context, gameID string) ([]model.MoveRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.MoveRecord(nil), m.moves[gameID]...), nil
}

type cachedState struct {
	data    json.RawMessage
	version uint64
}

type mockCache struct {
	mu     sync.Mutex
	states map[string]cachedState
	timers map[string]time.Time
	getErr error
}

func newMockCache() *mockCache {
	return &mockCache{
		states: make(map[string]cachedState),
		timers: make(map[string]time.Time),
	}
}

func (c *mockCache) SetGameState(_ context.Context, gameID string, state json.RawMessage, version uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[gameID] = cachedState{data: state, version: version}
	return nil
}

func (c *mockCache) GetGameState(_ context.Context, gameID string) (json.RawMessage, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, 0, c.getErr
	}
	s, ok := c.states[gameID]
	if !ok {
		return nil, 0, nil
	}
	return s.data, s.version, nil
}

func (c *mockCache) CompareAndSwapState(_ context.Context, gameID string, expected uint64, state json.RawMessage, version uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.states[gameID].version != expected {
		return fmt.Errorf("cas %s: %w", gameID, repository.ErrVersionConflict)
	}
	c.states[gameID] = cachedState{data: state, version: version}
	return nil
}

func (c *mockCache) SetTimer(_ context.Context, gameID string, deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timers[gameID] = deadline
	return nil
}

func (c *mockCache) ClearTimer(_ context.Context, gameID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.timers, gameID)
	return nil
}

func (c *mockCache) DeleteGameData(_ context.Context, gameID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, gameID)
	delete(c.timers, gameID)
	return nil
}

func (c *mockCache) cached(gameID string) (cachedState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.states[gameID]
	return s, ok
}

func (c *mockCache) timer(gameID string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.timers[gameID]
	return t, ok
}

type event struct {
	gameID string
	kind   string
	data   any
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []event
}

func (b *recordingBroadcaster) BroadcastGameEvent(gameID, eventType string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event{gameID: gameID, kind: eventType, data: data})
}

func (b *recordingBroadcaster) count(kind string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.kind == kind {
			n++
		}
	}
	return n
}
