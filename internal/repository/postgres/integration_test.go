//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/freeeve/elemental-conquest/api/internal/model"
	"github.com/freeeve/elemental-conquest/api/internal/repository"
	"github.com/freeeve/elemental-conquest/api/internal/testutil"
)

var testDB *sql.DB

func setup(t *testing.T) {
	t.Helper()
	if testDB == nil {
		testDB = testutil.SetupDB(t)
	}
	testutil.CleanupDB(t, testDB)
}

func createOnlineGame(t *testing.T, repo *GameRepo, code string) *model.Game {
	t.Helper()
	g, err := repo.Create(context.Background(), &model.Game{
		ID:          uuid.NewString(),
		RoomCode:    code,
		Mode:        model.ModeOnline,
		MapSize:     "small",
		PlayerCount: 2,
		Status:      "waiting",
		Seats:       []model.Seat{{Seat: 0, Element: "fire", Color: "#ff5722"}},
	})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	return g
}

func TestGameCreateAndFind(t *testing.T) {
	setup(t)
	repo := NewGameRepo(testDB)
	ctx := context.Background()

	g := createOnlineGame(t, repo, "ABC123")
	if len(g.Seats) != 1 || g.Seats[0].GameID != g.ID {
		t.Fatalf("expected host seat, got %+v", g.Seats)
	}

	byID, err := repo.FindByID(ctx, g.ID)
	if err != nil || byID == nil {
		t.Fatalf("find by id: %v %v", byID, err)
	}
	if byID.RoomCode != "ABC123" || byID.Status != "waiting" || byID.Winner != nil {
		t.Fatalf("unexpected game %+v", byID)
	}

	byCode, err := repo.FindByRoomCode(ctx, "ABC123")
	if err != nil || byCode == nil || byCode.ID != g.ID {
		t.Fatalf("find by code: %v %v", byCode, err)
	}

	missing, err := repo.FindByID(ctx, uuid.NewString())
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing game, got %v %v", missing, err)
	}
}

func TestAddSeatRejectsDuplicateElement(t *testing.T) {
	setup(t)
	repo := NewGameRepo(testDB)
	ctx := context.Background()
	g := createOnlineGame(t, repo, "DUP001")

	err := repo.AddSeat(ctx, model.Seat{GameID: g.ID, Seat: 1, Element: "fire", Color: "#2196f3"})
	if err == nil {
		t.Fatal("expected duplicate element to fail")
	}
	if err := repo.AddSeat(ctx, model.Seat{GameID: g.ID, Seat: 1, Element: "water", Color: "#2196f3"}); err != nil {
		t.Fatalf("add seat: %v", err)
	}

	open, err := repo.ListOpen(ctx)
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(open) != 1 || len(open[0].Seats) != 2 {
		t.Fatalf("expected one open game with 2 seats, got %+v", open)
	}
}

func TestStateLifecycle(t *testing.T) {
	setup(t)
	repo := NewGameRepo(testDB)
	ctx := context.Background()
	g := createOnlineGame(t, repo, "STATE1")

	deadline := time.Now().Add(-time.Second)
	if err := repo.Activate(ctx, g.ID, json.RawMessage(`{"version":0}`), 0, &deadline); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := repo.Activate(ctx, g.ID, json.RawMessage(`{}`), 0, nil); !errors.Is(err, repository.ErrVersionConflict) {
		t.Fatalf("expected second activate to conflict, got %v", err)
	}

	expired, err := repo.ListExpired(ctx)
	if err != nil || len(expired) != 1 {
		t.Fatalf("expected 1 expired game, got %d (%v)", len(expired), err)
	}

	if err := repo.SaveState(ctx, g.ID, json.RawMessage(`{"version":1}`), 0, 1, nil); err != nil {
		t.Fatalf("save state: %v", err)
	}
	if err := repo.SaveState(ctx, g.ID, json.RawMessage(`{"version":1}`), 0, 1, nil); !errors.Is(err, repository.ErrVersionConflict) {
		t.Fatalf("expected stale save to conflict, got %v", err)
	}

	state, version, err := repo.LoadState(ctx, g.ID)
	if err != nil || version != 1 {
		t.Fatalf("load state: v%d %v", version, err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(state, &decoded); err != nil || decoded["version"].(float64) != 1 {
		t.Fatalf("unexpected state %s", state)
	}

	winner := 1
	if err := repo.SetFinished(ctx, g.ID, &winner); err != nil {
		t.Fatalf("set finished: %v", err)
	}
	finished, _ := repo.ListFinished(ctx)
	if len(finished) != 1 || finished[0].Winner == nil || *finished[0].Winner != 1 {
		t.Fatalf("unexpected finished list %+v", finished)
	}

	if err := repo.SaveState(ctx, g.ID, json.RawMessage(`{"version":2}`), 1, 2, nil); !errors.Is(err, repository.ErrVersionConflict) {
		t.Fatalf("expected save on a finished game to be refused, got %v", err)
	}
}

func TestMoveLog(t *testing.T) {
	setup(t)
	games := NewGameRepo(testDB)
	moves := NewMoveRepo(testDB)
	ctx := context.Background()
	g := createOnlineGame(t, games, "MOVES1")

	recs := []model.MoveRecord{
		{GameID: g.ID, Version: 2, Seat: 1, Kind: "line", Orientation: "vertical", X: 1, Y: 0},
		{GameID: g.ID, Version: 1, Seat: 0, Kind: "line", Orientation: "horizontal", X: 0, Y: 0},
	}
	for _, rec := range recs {
		if err := moves.Append(ctx, rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := moves.Append(ctx, recs[0]); err == nil {
		t.Fatal("expected duplicate version to fail")
	}

	got, err := moves.ListByGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].Version != 1 || got[1].Orientation != "vertical" {
		t.Fatalf("unexpected history %+v", got)
	}
}

func TestMigrateIsRepeatable(t *testing.T) {
	setup(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		n, err := Migrate(ctx, testDB, testutil.MigrationsDir())
		if err != nil {
			t.Fatalf("migrate pass %d: %v", i+1, err)
		}
		if n == 0 {
			t.Fatal("expected at least one migration")
		}
	}

	if _, err := Migrate(ctx, testDB, t.TempDir()); err != nil {
		t.Errorf("empty dir should be a no-op, got %v", err)
	}
}
