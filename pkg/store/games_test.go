package store

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/wcfdehao/gomoku/pkg/errors"
)

func TestCreateGame(t *testing.T) {
	games := NewGames(NewMemoryKV())
	ctx := context.Background()

	game, err := games.Create(ctx, "alice", 4, 3, "white")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if game.ID != 1 {
		t.Errorf("First game should get id 1, got %d", game.ID)
	}
	if game.Title != "alice (4x4, 3 in row) [white]" {
		t.Errorf("Unexpected title: %q", game.Title)
	}

	second, err := games.Create(ctx, "bob", 9, 5, "black")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if second.ID != 2 {
		t.Errorf("Second game should get id 2, got %d", second.ID)
	}
}

func TestGetGame(t *testing.T) {
	games := NewGames(NewMemoryKV())
	ctx := context.Background()

	created, err := games.Create(ctx, "alice", 4, 3, "white")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	loaded, err := games.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loaded.Creator != "alice" || loaded.Dimensions != 4 || loaded.Lineup != 3 || loaded.Color != "white" {
		t.Errorf("Loaded record does not match: %+v", loaded)
	}
	if loaded.Title != created.Title {
		t.Errorf("Expected title %q, got %q", created.Title, loaded.Title)
	}
}

func TestGetGameMissing(t *testing.T) {
	games := NewGames(NewMemoryKV())

	if _, err := games.Get(context.Background(), 42); !errors.Is(err, apperrors.ErrKeyNotFound) {
		t.Errorf("Expected key not found error, got %v", err)
	}
}

func TestListGames(t *testing.T) {
	games := NewGames(NewMemoryKV())
	ctx := context.Background()

	list, err := games.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("Expected empty list, got %d games", len(list))
	}

	for _, creator := range []string{"alice", "bob", "carol"} {
		if _, err := games.Create(ctx, creator, 4, 3, "white"); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	list, err = games.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("Expected 3 games, got %d", len(list))
	}
	for i, want := range []string{"alice", "bob", "carol"} {
		if list[i].Creator != want {
			t.Errorf("Game %d: expected creator %s, got %s", i, want, list[i].Creator)
		}
		if list[i].ID != int64(i+1) {
			t.Errorf("Games should be ordered by id, got %d at index %d", list[i].ID, i)
		}
	}
}
