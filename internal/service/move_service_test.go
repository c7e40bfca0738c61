package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/freeeve/elemental-conquest/api/internal/bot"
	"github.com/freeeve/elemental-conquest/api/internal/model"
	"github.com/freeeve/elemental-conquest/api/pkg/conquest"
)

func lineMove(o conquest.Orientation, x, y int) conquest.WireMove {
	return conquest.WireMove{Kind: conquest.KindLine, Orientation: o, X: x, Y: y}
}

func TestSubmitMoveBotReplies(t *testing.T) {
	bot.SeedBotRng(7)
	defer bot.ResetBotRng()

	env := newTestEnv(t, Options{})
	ctx := context.Background()
	g, seat, _ := env.games.CreateGame(ctx, CreateGameRequest{})

	res, err := env.moves.SubmitMove(ctx, g.ID, seat, lineMove(conquest.Horizontal, 0, 0))
	if err != nil {
		t.Fatalf("SubmitMove: %v", err)
	}
	if res.AutoMoves != 1 {
		t.Errorf("expected the bot to answer with one move, got %d", res.AutoMoves)
	}
	if res.State.CurrentPlayer != 0 || res.State.Version != 2 {
		t.Errorf("expected seat 0 to move at version 2, got seat %d version %d", res.State.CurrentPlayer, res.State.Version)
	}
	if len(res.Deltas) != 0 {
		t.Errorf("first line cannot claim, got %d deltas", len(res.Deltas))
	}

	history, err := env.moves.History(ctx, g.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history records, got %d", len(history))
	}
	if history[0].Seat != 0 || history[0].Auto || history[0].Kind != string(conquest.KindLine) || history[0].Version != 1 {
		t.Errorf("unexpected human record %+v", history[0])
	}
	if history[1].Seat != 1 || !history[1].Auto || history[1].Version != 2 {
		t.Errorf("unexpected bot record %+v", history[1])
	}

	cached, _ := env.cache.cached(g.ID)
	if cached.version != 2 || env.repo.game(g.ID).Version != 2 {
		t.Errorf("cache and Postgres should both be at version 2, got %d and %d", cached.version, env.repo.game(g.ID).Version)
	}
	if env.events.count(EventMoveApplied) != 2 {
		t.Errorf("expected 2 move_applied events, got %d", env.events.count(EventMoveApplied))
	}
}

func TestSubmitMoveRejections(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	g := env.startOnline(t, "small")

	tests := []struct {
		name   string
		seat   int
		move   conquest.WireMove
		target error
	}{
		{"not your turn", 1, lineMove(conquest.Horizontal, 0, 0), conquest.ErrNotYourTurn},
		{"out of bounds", 0, lineMove(conquest.Horizontal, 8, 0), conquest.ErrOutOfBounds},
		{"wrong phase", 0, conquest.WireMove{Kind: conquest.KindPass}, conquest.ErrWrongPhase},
		{"malformed", 0, conquest.WireMove{Kind: "teleport"}, conquest.ErrBadMove},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.moves.SubmitMove(ctx, g.ID, tt.seat, tt.move)
			if !errors.Is(err, ErrInvalidMove) {
				t.Fatalf("expected ErrInvalidMove, got %v", err)
			}
			if !errors.Is(err, tt.target) {
				t.Errorf("expected %v in chain, got %v", tt.target, err)
			}
		})
	}

	if _, err := env.moves.SubmitMove(ctx, g.ID, 3, lineMove(conquest.Horizontal, 0, 0)); !errors.Is(err, ErrNotInGame) {
		t.Errorf("expected ErrNotInGame, got %v", err)
	}
	if _, err := env.moves.SubmitMove(ctx, "missing", 0, lineMove(conquest.Horizontal, 0, 0)); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("expected ErrGameNotFound, got %v", err)
	}
	if len(env.moveRepo.moves[g.ID]) != 0 {
		t.Error("rejected moves must not be recorded")
	}
	if _, err := env.moves.SubmitMove(ctx, g.ID, 0, lineMove(conquest.Horizontal, 0, 0)); err != nil {
		t.Fatalf("valid move after rejections: %v", err)
	}
	if _, err := env.moves.SubmitMove(ctx, g.ID, 1, lineMove(conquest.Horizontal, 0, 0)); !errors.Is(err, conquest.ErrAlreadyOccupied) {
		t.Errorf("expected ErrAlreadyOccupied, got %v", err)
	}
}

func TestSubmitMoveWaitingGame(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	g, _, _ := env.games.CreateGame(ctx, CreateGameRequest{Mode: model.ModeOnline})

	_, err := env.moves.SubmitMove(ctx, g.ID, 0, lineMove(conquest.Horizontal, 0, 0))
	if !errors.Is(err, ErrGameNotActive) {
		t.Errorf("expected ErrGameNotActive, got %v", err)
	}
}

func TestSubmitMoveVersionConflict(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	g := env.startOnline(t, "small")

	cached, _ := env.cache.cached(g.ID)
	env.cache.SetGameState(ctx, g.ID, cached.data, 5)

	_, err := env.moves.SubmitMove(ctx, g.ID, 0, lineMove(conquest.Horizontal, 0, 0))
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
	if env.repo.game(g.ID).Version != 0 {
		t.Error("Postgres must not be written after a lost race")
	}
}

func TestSubmitMoveRollsBackCacheOnSaveFailure(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	g := env.startOnline(t, "small")
	env.repo.failSave = true

	if _, err := env.moves.SubmitMove(ctx, g.ID, 0, lineMove(conquest.Vertical, 0, 0)); err == nil {
		t.Fatal("expected an error when Postgres refuses the write")
	}
	cached, ok := env.cache.cached(g.ID)
	if !ok || cached.version != 0 {
		t.Errorf("expected cache rolled back to version 0, got %+v", cached)
	}

	env.repo.failSave = false
	res, err := env.moves.SubmitMove(ctx, g.ID, 0, lineMove(conquest.Vertical, 0, 0))
	if err != nil {
		t.Fatalf("retry after recovery: %v", err)
	}
	if res.State.Version != 1 {
		t.Errorf("expected version 1, got %d", res.State.Version)
	}
}

func TestOnlineGamePlaysToCompletion(t *testing.T) {
	bot.SeedBotRng(11)
	defer bot.ResetBotRng()

	rules := conquest.DefaultRules()
	rules.MaxArmyRounds = 3
	env := newTestEnv(t, Options{Rules: rules})
	ctx := context.Background()
	g := env.startOnline(t, "small")
	players := [2]bot.Strategy{bot.GreedyStrategy{}, bot.GreedyStrategy{Cautious: true}}

	var gs *conquest.GameState
	for i := 0; i < 1000; i++ {
		var err error
		gs, err = env.games.GetState(ctx, g.ID)
		if err != nil {
			t.Fatalf("GetState at step %d: %v", i, err)
		}
		if gs.Status == conquest.StatusFinished {
			break
		}
		seat := gs.CurrentPlayer
		m, ok := players[seat].ChooseMove(gs, seat)
		if !ok {
			t.Fatalf("no move for seat %d at version %d", seat, gs.Version)
		}
		if _, err := env.moves.SubmitMove(ctx, g.ID, seat, conquest.EncodeMove(m)); err != nil {
			t.Fatalf("SubmitMove %s at version %d: %v", m.Describe(), gs.Version, err)
		}
	}

	if gs.Status != conquest.StatusFinished {
		t.Fatalf("game did not finish, phase %s version %d", gs.Phase, gs.Version)
	}
	if gs.Board.DrawnEdgeCount() != gs.Board.EdgeCount() {
		t.Error("a finished game must have every edge drawn")
	}

	stored := env.repo.game(g.ID)
	if stored.Status != "finished" || stored.FinishedAt == nil {
		t.Errorf("expected finished record, got %+v", stored)
	}
	switch gs.Outcome {
	case conquest.OutcomeWin:
		if stored.Winner == nil || *stored.Winner != gs.Winner {
			t.Errorf("stored winner %v does not match %d", stored.Winner, gs.Winner)
		}
	case conquest.OutcomeDraw:
		if stored.Winner != nil {
			t.Errorf("draw should store no winner, got %d", *stored.Winner)
		}
	default:
		t.Errorf("unexpected outcome %s", gs.Outcome)
	}

	history, _ := env.moves.History(ctx, g.ID)
	if uint64(len(history)) != gs.Version {
		t.Errorf("expected one record per version, got %d records at version %d", len(history), gs.Version)
	}
	for i, rec := range history {
		if rec.Version != uint64(i+1) {
			t.Fatalf("record %d has version %d", i, rec.Version)
		}
	}
	if env.events.count(EventPhaseChanged) != 1 || env.events.count(EventGameEnded) != 1 {
		t.Errorf("expected one phase change and one end event, got %d and %d",
			env.events.count(EventPhaseChanged), env.events.count(EventGameEnded))
	}
	if _, ok := env.cache.cached(g.ID); ok {
		t.Error("finished game state should be evicted from the cache")
	}
	if _, err := env.moves.SubmitMove(ctx, g.ID, gs.CurrentPlayer, conquest.WireMove{Kind: conquest.KindPass}); !errors.Is(err, conquest.ErrGameNotActive) {
		t.Errorf("expected ErrGameNotActive after the end, got %v", err)
	}
}

// armyPhaseState builds a small three-seat game already in the army phase in
// which seat 1 holds no territory.
func armyPhaseState(t *testing.T) *conquest.GameState {
	t.Helper()
	seats := []conquest.Seat{{Element: conquest.Fire}, {Element: conquest.Water}, {Element: conquest.Earth}}
	gs, err := conquest.NewGame(conquest.Small, seats, conquest.DefaultRules())
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	b := gs.Board
	for i := range b.Horizontal {
		b.Horizontal[i].State, b.Horizontal[i].Owner = conquest.EdgeDrawn, 0
	}
	for i := range b.Vertical {
		b.Vertical[i].State, b.Vertical[i].Owner = conquest.EdgeDrawn, 0
	}
	for i := range b.Cells {
		owner := 0
		if b.Cells[i].X >= 4 {
			owner = 2
		}
		b.Cells[i].State = conquest.CellClaimed
		b.Cells[i].Owner = owner
		b.Cells[i].Armies = 1
		b.Cells[i].Element = gs.Players[owner].Element
		gs.Players[owner].Territories++
	}
	gs.Phase = conquest.PhaseArmy
	gs.Status = conquest.StatusActive
	return gs
}

func TestEliminatedPlayerAutoPasses(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	gs := armyPhaseState(t)
	g := &model.Game{ID: "army-game", Mode: model.ModeOnline, MapSize: "small", PlayerCount: 3, Status: "active"}
	for i, p := range gs.Players {
		g.Seats = append(g.Seats, model.Seat{GameID: g.ID, Seat: i, Element: string(p.Element), Color: p.Color})
	}
	env.seedGame(t, g, gs)

	res, err := env.moves.SubmitMove(ctx, g.ID, 0, conquest.WireMove{Kind: conquest.KindPass})
	if err != nil {
		t.Fatalf("SubmitMove: %v", err)
	}
	if res.AutoMoves != 1 || res.State.CurrentPlayer != 2 || res.State.Version != 2 {
		t.Errorf("expected seat 1 to be passed automatically, got auto=%d seat=%d version=%d",
			res.AutoMoves, res.State.CurrentPlayer, res.State.Version)
	}
	history, _ := env.moves.History(ctx, g.ID)
	if len(history) != 2 || history[1].Seat != 1 || history[1].Kind != string(conquest.KindPass) || !history[1].Auto {
		t.Errorf("unexpected history %+v", history)
	}
}

func TestPlayTimedOutTurn(t *testing.T) {
	env := newTestEnv(t, Options{TurnTimeout: time.Minute})
	ctx := context.Background()
	g := env.startOnline(t, "small")

	if _, ok := env.cache.timer(g.ID); !ok {
		t.Fatal("expected a turn timer when the game starts")
	}
	if err := env.moves.PlayTimedOutTurn(ctx, g.ID); err != nil {
		t.Fatalf("PlayTimedOutTurn: %v", err)
	}
	if gs, _ := env.games.GetState(ctx, g.ID); gs.Version != 0 {
		t.Fatalf("turn before its deadline must not be played, version %d", gs.Version)
	}

	env.repo.setDeadline(g.ID, time.Now().Add(-time.Second))
	if err := env.moves.PlayTimedOutTurn(ctx, g.ID); err != nil {
		t.Fatalf("PlayTimedOutTurn: %v", err)
	}
	gs, _ := env.games.GetState(ctx, g.ID)
	if gs.Version != 1 || gs.CurrentPlayer != 1 {
		t.Errorf("expected one move for seat 0, got version %d current %d", gs.Version, gs.CurrentPlayer)
	}
	history, _ := env.moves.History(ctx, g.ID)
	if len(history) != 1 || !history[0].Auto || history[0].Seat != 0 {
		t.Errorf("unexpected history %+v", history)
	}
	deadline, ok := env.cache.timer(g.ID)
	if !ok || !deadline.After(time.Now()) {
		t.Errorf("expected a fresh timer for seat 1, got %v %v", deadline, ok)
	}
	if d := env.repo.game(g.ID).TurnDeadline; d == nil || !d.After(time.Now()) {
		t.Errorf("expected stored deadline in the future, got %v", d)
	}
}

func TestPlayTimedOutTurnIgnoresFinishedGames(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	g, _, _ := env.games.CreateGame(ctx, CreateGameRequest{})
	env.games.StopGame(ctx, g.ID, 0)

	if err := env.moves.PlayTimedOutTurn(ctx, g.ID); err != nil {
		t.Errorf("expected finished game to be ignored, got %v", err)
	}
	if err := env.moves.PlayTimedOutTurn(ctx, "missing"); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("expected ErrGameNotFound, got %v", err)
	}
}

func TestLegalMoves(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	g := env.startOnline(t, "small")

	moves, err := env.moves.LegalMoves(ctx, g.ID, 0)
	if err != nil {
		t.Fatalf("LegalMoves: %v", err)
	}
	if len(moves) != 144 {
		t.Errorf("expected 144 open lines on a small board, got %d", len(moves))
	}
	for _, m := range moves {
		if m.Kind != conquest.KindLine {
			t.Fatalf("unexpected kind %s in drawing phase", m.Kind)
		}
	}
	if moves, _ := env.moves.LegalMoves(ctx, g.ID, 1); len(moves) != 0 {
		t.Errorf("waiting seat should have no legal moves, got %d", len(moves))
	}
	if _, err := env.moves.LegalMoves(ctx, g.ID, 2); !errors.Is(err, ErrNotInGame) {
		t.Errorf("expected ErrNotInGame, got %v", err)
	}
}

func TestRecoverActiveGames(t *testing.T) {
	env := newTestEnv(t, Options{TurnTimeout: time.Minute})
	ctx := context.Background()
	g, _, _ := env.games.CreateGame(ctx, CreateGameRequest{})

	// Leave the game on the bot's turn with Redis wiped, as after a crash.
	gs, _ := env.games.GetState(ctx, g.ID)
	gs.CurrentPlayer = 1
	g.Status = "active"
	env.seedGame(t, g, gs)
	env.cache.DeleteGameData(ctx, g.ID)
	deadline := time.Now().Add(time.Minute)
	env.repo.setDeadline(g.ID, deadline)

	if err := env.moves.RecoverActiveGames(ctx); err != nil {
		t.Fatalf("RecoverActiveGames: %v", err)
	}
	cached, ok := env.cache.cached(g.ID)
	if !ok || cached.version != 1 {
		t.Fatalf("expected restored state advanced by the bot to version 1, got %+v %v", cached, ok)
	}
	if _, ok := env.cache.timer(g.ID); !ok {
		t.Error("expected turn timer restored")
	}
	history, _ := env.moves.History(ctx, g.ID)
	if len(history) != 1 || history[0].Seat != 1 || !history[0].Auto {
		t.Errorf("unexpected history %+v", history)
	}
}

func TestHistoryUnknownGame(t *testing.T) {
	env := newTestEnv(t, Options{})
	if _, err := env.moves.History(context.Background(), "missing"); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("expected ErrGameNotFound, got %v", err)
	}
}

func TestSubmitMoveAfterStop(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	g, _, err := env.games.CreateGame(ctx, CreateGameRequest{MapSize: "small"})
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if err := env.games.StopGame(ctx, g.ID, 0); err != nil {
		t.Fatalf("StopGame: %v", err)
	}

	gs, err := env.games.GetState(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if gs.Status != conquest.StatusFinished || gs.Version != 1 {
		t.Errorf("expected stored snapshot finished at version 1, got %s at %d", gs.Status, gs.Version)
	}

	_, err = env.moves.SubmitMove(ctx, g.ID, 0, lineMove(conquest.Horizontal, 0, 0))
	if !errors.Is(err, ErrGameNotActive) || !errors.Is(err, conquest.ErrGameNotActive) {
		t.Fatalf("expected ErrGameNotActive after stop, got %v", err)
	}
	if history, _ := env.moves.History(ctx, g.ID); len(history) != 0 {
		t.Errorf("expected no moves recorded after stop, got %d", len(history))
	}
	if cached, ok := env.cache.cached(g.ID); ok && cached.version != 1 {
		t.Errorf("cache advanced past the stop, version %d", cached.version)
	}
}

func TestAllBotArmyPhaseConcludes(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	gs := armyPhaseState(t)
	gs.Players[0].IsAI = true
	gs.Players[2].IsAI = true
	g := &model.Game{ID: "bot-stalemate", Mode: model.ModeLocal, MapSize: "small", PlayerCount: 3, Status: "active"}
	for i, p := range gs.Players {
		g.Seats = append(g.Seats, model.Seat{
			GameID: g.ID, Seat: i, Element: string(p.Element), Color: p.Color,
			IsAI: p.IsAI, BotDifficulty: "easy",
		})
	}
	env.seedGame(t, g, gs)

	if err := env.moves.RecoverActiveGames(ctx); err != nil {
		t.Fatalf("RecoverActiveGames: %v", err)
	}

	stored := env.repo.game(g.ID)
	if stored.Status != "finished" || stored.Winner != nil {
		t.Fatalf("expected a drawn finish, got %s winner %v", stored.Status, stored.Winner)
	}
	final, err := env.games.GetState(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if final.Status != conquest.StatusFinished || final.Outcome != conquest.OutcomeDraw {
		t.Errorf("expected draw, got %s/%s", final.Status, final.Outcome)
	}
	history, _ := env.moves.History(ctx, g.ID)
	if len(history) != 3 {
		t.Errorf("expected one pass per seat before concluding, got %d moves", len(history))
	}
	if env.events.count(EventGameEnded) != 1 {
		t.Errorf("expected one game_ended event, got %d", env.events.count(EventGameEnded))
	}
}
