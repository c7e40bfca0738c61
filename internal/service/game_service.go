package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/elemental-conquest/api/internal/model"
	"github.com/freeeve/elemental-conquest/api/internal/repository"
	"github.com/freeeve/elemental-conquest/api/pkg/conquest"
)

var (
	ErrGameNotFound    = errors.New("game not found")
	ErrGameNotWaiting  = errors.New("game is not in waiting status")
	ErrGameFull        = errors.New("game is full")
	ErrGameNotActive   = errors.New("game is not active")
	ErrElementTaken    = errors.New("element already taken")
	ErrNotInGame       = errors.New("seat is not in this game")
	ErrNotHost         = errors.New("only the host can do that")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrInvalidMove     = errors.New("invalid move")
	ErrVersionConflict = repository.ErrVersionConflict
)

const (
	roomCodeLength  = 6
	roomCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roomCodeTries   = 5
)

// Options carries the game settings that come from configuration.
type Options struct {
	Rules         conquest.Rules
	TurnTimeout   time.Duration
	BotDifficulty string
}

// CreateGameRequest describes a new game. Zero values take defaults: local
// mode, fire, medium map, two players.
type CreateGameRequest struct {
	Element       string `json:"element"`
	Mode          string `json:"mode"`
	MapSize       string `json:"map_size"`
	PlayerCount   int    `json:"player_count"`
	BotDifficulty string `json:"bot_difficulty"`
}

// GameService handles game lifecycle operations: creating games, filling
// online rooms and starting the engine once every seat is taken.
type GameService struct {
	gameRepo    repository.GameRepository
	cache       repository.GameCache
	broadcaster Broadcaster
	opts        Options
	store       *stateStore
	locks       *gameLocks
}

// NewGameService creates a GameService.
func NewGameService(gameRepo repository.GameRepository, cache repository.GameCache, broadcaster Broadcaster, opts Options) *GameService {
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	if opts.BotDifficulty == "" {
		opts.BotDifficulty = "medium"
	}
	return &GameService{
		gameRepo:    gameRepo,
		cache:       cache,
		broadcaster: broadcaster,
		opts:        opts,
		store:       &stateStore{gameRepo: gameRepo, cache: cache},
		locks:       &gameLocks{},
	}
}

// CreateGame creates a game and returns it with the host's seat number.
// Local games get AI opponents and start immediately; online games wait in
// a room for other players to join by code.
func (s *GameService) CreateGame(ctx context.Context, req CreateGameRequest) (*model.Game, int, error) {
	if req.Mode == "" {
		req.Mode = model.ModeLocal
	}
	if req.Mode != model.ModeLocal && req.Mode != model.ModeOnline {
		return nil, 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, req.Mode)
	}
	if req.PlayerCount == 0 {
		req.PlayerCount = conquest.MinPlayers
	}
	if req.PlayerCount < conquest.MinPlayers || req.PlayerCount > conquest.MaxPlayers {
		return nil, 0, fmt.Errorf("%w: player count must be %d-%d", ErrInvalidRequest, conquest.MinPlayers, conquest.MaxPlayers)
	}
	element := conquest.Element(strings.ToLower(req.Element))
	if element == "" {
		element = conquest.Fire
	}
	if !element.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown element %q", ErrInvalidRequest, req.Element)
	}
	size, err := conquest.ParseGridSize(strings.ToLower(req.MapSize))
	if err != nil {
		log.Debug().Str("mapSize", req.MapSize).Msg("Unknown map size, using medium")
		size = conquest.Medium
	}
	difficulty := req.BotDifficulty
	if difficulty == "" {
		difficulty = s.opts.BotDifficulty
	}

	g := &model.Game{
		ID:          uuid.NewString(),
		Mode:        req.Mode,
		MapSize:     size.String(),
		PlayerCount: req.PlayerCount,
		HostSeat:    0,
		Status:      string(conquest.StatusWaiting),
		Seats:       []model.Seat{newSeat(0, element, false, "")},
	}

	if req.Mode == model.ModeLocal {
		next := 1
		for _, e := range conquest.AllElements() {
			if next == req.PlayerCount {
				break
			}
			if e == element {
				continue
			}
			g.Seats = append(g.Seats, newSeat(next, e, true, difficulty))
			next++
		}
	} else {
		code, err := s.uniqueRoomCode(ctx)
		if err != nil {
			return nil, 0, err
		}
		g.RoomCode = code
	}

	created, err := s.gameRepo.Create(ctx, g)
	if err != nil {
		return nil, 0, err
	}

	log.Info().Str("gameId", created.ID).Str("mode", created.Mode).Str("roomCode", created.RoomCode).
		Str("mapSize", created.MapSize).Int("players", created.PlayerCount).Msg("Game created")

	if created.Full() {
		if err := s.start(ctx, created); err != nil {
			return nil, 0, err
		}
	}
	return created, 0, nil
}

func newSeat(seat int, e conquest.Element, ai bool, difficulty string) model.Seat {
	return model.Seat{
		Seat:          seat,
		Element:       string(e),
		Color:         conquest.SeatColors[seat],
		IsAI:          ai,
		BotDifficulty: difficulty,
	}
}

func (s *GameService) uniqueRoomCode(ctx context.Context) (string, error) {
	for i := 0; i < roomCodeTries; i++ {
		code := newRoomCode()
		existing, err := s.gameRepo.FindByRoomCode(ctx, code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free room code after %d tries", roomCodeTries)
}

func newRoomCode() string {
	b := make([]byte, roomCodeLength)
	for i := range b {
		b[i] = roomCodeCharset[rand.Intn(len(roomCodeCharset))]
	}
	return string(b)
}

// JoinRoom takes the next seat in an online room. An empty element picks the
// first free one. The game starts when the last seat is filled.
func (s *GameService) JoinRoom(ctx context.Context, roomCode, element string) (*model.Game, int, error) {
	g, err := s.GetGameByRoom(ctx, roomCode)
	if err != nil {
		return nil, 0, err
	}

	mu := s.locks.lock(g.ID)
	mu.Lock()
	defer mu.Unlock()

	g, err = s.GetGame(ctx, g.ID)
	if err != nil {
		return nil, 0, err
	}
	if g.Status != string(conquest.StatusWaiting) {
		return nil, 0, ErrGameNotWaiting
	}
	if g.Full() {
		return nil, 0, ErrGameFull
	}

	taken := make(map[conquest.Element]bool, len(g.Seats))
	for _, seat := range g.Seats {
		taken[conquest.Element(seat.Element)] = true
	}
	e := conquest.Element(strings.ToLower(element))
	if e == "" {
		for _, candidate := range conquest.AllElements() {
			if !taken[candidate] {
				e = candidate
				break
			}
		}
	}
	if !e.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown element %q", ErrInvalidRequest, element)
	}
	if taken[e] {
		return nil, 0, ErrElementTaken
	}

	seat := newSeat(len(g.Seats), e, false, "")
	seat.GameID = g.ID
	if err := s.gameRepo.AddSeat(ctx, seat); err != nil {
		return nil, 0, err
	}
	g.Seats = append(g.Seats, seat)

	log.Info().Str("gameId", g.ID).Int("seat", seat.Seat).Str("element", seat.Element).Msg("Player joined room")
	s.broadcaster.BroadcastGameEvent(g.ID, EventPlayerJoined, map[string]any{
		"seat":    seat.Seat,
		"element": seat.Element,
		"color":   seat.Color,
	})

	if g.Full() {
		if err := s.start(ctx, g); err != nil {
			return nil, 0, err
		}
	}
	return g, seat.Seat, nil
}

// start creates the engine state for a full game and makes it active.
func (s *GameService) start(ctx context.Context, g *model.Game) error {
	size, err := conquest.ParseGridSize(g.MapSize)
	if err != nil {
		return err
	}
	seats := make([]conquest.Seat, len(g.Seats))
	for _, seat := range g.Seats {
		seats[seat.Seat] = conquest.Seat{Element: conquest.Element(seat.Element), IsAI: seat.IsAI}
	}
	gs, err := conquest.NewGame(size, seats, s.opts.Rules)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	gs.Status = conquest.StatusActive

	data, err := json.Marshal(gs)
	if err != nil {
		return fmt.Errorf("marshal initial state: %w", err)
	}
	deadline := turnDeadline(s.opts.TurnTimeout, gs)
	if err := s.gameRepo.Activate(ctx, g.ID, data, gs.Version, deadline); err != nil {
		return err
	}
	if err := s.cache.SetGameState(ctx, g.ID, data, gs.Version); err != nil {
		log.Warn().Err(err).Str("gameId", g.ID).Msg("Failed to cache initial state")
	}
	if deadline != nil {
		if err := s.cache.SetTimer(ctx, g.ID, *deadline); err != nil {
			log.Warn().Err(err).Str("gameId", g.ID).Msg("Failed to set turn timer")
		}
	}
	g.Status = string(conquest.StatusActive)
	g.TurnDeadline = deadline

	log.Info().Str("gameId", g.ID).Int("players", len(gs.Players)).Str("mapSize", g.MapSize).Msg("Game started")
	s.broadcaster.BroadcastGameEvent(g.ID, EventGameStarted, map[string]any{
		"status": conquest.CurrentStatus(gs),
	})
	return nil
}

// GetGame returns a game with its seats.
func (s *GameService) GetGame(ctx context.Context, gameID string) (*model.Game, error) {
	g, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGameNotFound
	}
	return g, nil
}

// GetGameByRoom looks up an online game by its room code (case-insensitive).
func (s *GameService) GetGameByRoom(ctx context.Context, roomCode string) (*model.Game, error) {
	g, err := s.gameRepo.FindByRoomCode(ctx, strings.ToUpper(strings.TrimSpace(roomCode)))
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGameNotFound
	}
	return g, nil
}

// GetState returns the current engine snapshot.
func (s *GameService) GetState(ctx context.Context, gameID string) (*conquest.GameState, error) {
	return s.store.load(ctx, gameID)
}

// Status returns the public projection of the current state.
func (s *GameService) Status(ctx context.Context, gameID string) (conquest.StatusView, error) {
	gs, err := s.store.load(ctx, gameID)
	if err != nil {
		return conquest.StatusView{}, err
	}
	return conquest.CurrentStatus(gs), nil
}

// ListOpen returns online rooms that still have free seats.
func (s *GameService) ListOpen(ctx context.Context) ([]model.Game, error) {
	return s.gameRepo.ListOpen(ctx)
}

// StopGame ends a game early without a winner. Only the host may stop it.
func (s *GameService) StopGame(ctx context.Context, gameID string, seat int) error {
	mu := s.locks.lock(gameID)
	mu.Lock()
	defer mu.Unlock()

	g, err := s.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if seat != g.HostSeat {
		return ErrNotHost
	}
	if g.Status == string(conquest.StatusFinished) {
		return ErrGameNotActive
	}
	if g.Status == string(conquest.StatusActive) {
		gs, err := s.store.load(ctx, gameID)
		if err != nil {
			return err
		}
		if stopped, err := conquest.Stop(gs); err == nil {
			if err := s.store.commit(ctx, gameID, gs, stopped, nil); err != nil {
				return fmt.Errorf("save stopped state: %w", err)
			}
		}
	}
	if err := s.gameRepo.SetFinished(ctx, gameID, nil); err != nil {
		return err
	}
	if err := s.cache.DeleteGameData(ctx, gameID); err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("Failed to clear cached game data")
	}

	log.Info().Str("gameId", gameID).Msg("Game stopped by host")
	s.broadcaster.BroadcastGameEvent(gameID, EventGameEnded, map[string]any{
		"reason":  "stopped",
		"outcome": conquest.OutcomeNone,
		"winner":  conquest.NoPlayer,
	})
	return nil
}

// finish records a game the engine has just finished.
func (s *GameService) finish(ctx context.Context, gameID string, gs *conquest.GameState) error {
	var winner *int
	if gs.Outcome == conquest.OutcomeWin {
		w := gs.Winner
		winner = &w
	}
	if err := s.gameRepo.SetFinished(ctx, gameID, winner); err != nil {
		return err
	}
	if err := s.cache.DeleteGameData(ctx, gameID); err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("Failed to clear cached game data")
	}

	log.Info().Str("gameId", gameID).Str("outcome", string(gs.Outcome)).Int("winner", gs.Winner).
		Uint64("version", gs.Version).Msg("Game finished")
	s.broadcaster.BroadcastGameEvent(gameID, EventGameEnded, map[string]any{
		"reason":  "finished",
		"outcome": gs.Outcome,
		"winner":  gs.Winner,
		"status":  conquest.CurrentStatus(gs),
	})
	return nil
}
