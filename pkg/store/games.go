package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	apperrors "github.com/wcfdehao/gomoku/pkg/errors"
)

// Key layout for game records
const (
	gameCounterKey = "game:counter"
	gameKeyPrefix  = "game:id:"
	gameIndexKey   = "game:all"
)

// Game is a stored game record
type Game struct {
	ID         int64  `json:"id"`
	Creator    string `json:"creator"`
	Title      string `json:"title"`
	Dimensions int    `json:"dimensions"`
	Lineup     int    `json:"lineup"`
	Color      string `json:"color"`
}

// Games manages game records: ids from an atomic counter, one hash per
// game, and an index set for listings.
type Games struct {
	kv KV
}

// NewGames creates a Games layer over the given store
func NewGames(kv KV) *Games {
	return &Games{kv: kv}
}

// Create allocates the next game id and stores the record. Parameter
// validation is the caller's responsibility; Create must not be reached
// with inconsistent values, since the counter increment is not undone.
func (g *Games) Create(ctx context.Context, creator string, dimensions, lineup int, color string) (*Game, error) {
	id, err := g.kv.Incr(ctx, gameCounterKey)
	if err != nil {
		return nil, fmt.Errorf("allocate game id: %w", err)
	}

	game := &Game{
		ID:         id,
		Creator:    creator,
		Title:      fmt.Sprintf("%s (%dx%d, %d in row) [%s]", creator, dimensions, dimensions, lineup, color),
		Dimensions: dimensions,
		Lineup:     lineup,
		Color:      color,
	}

	fields := map[string]string{
		"creator":    game.Creator,
		"title":      game.Title,
		"dimensions": strconv.Itoa(game.Dimensions),
		"lineup":     strconv.Itoa(game.Lineup),
		"color":      game.Color,
	}
	key := gameKeyPrefix + strconv.FormatInt(id, 10)
	if err := g.kv.HSet(ctx, key, fields); err != nil {
		return nil, fmt.Errorf("store game %d: %w", id, err)
	}
	if _, err := g.kv.SAdd(ctx, gameIndexKey, strconv.FormatInt(id, 10)); err != nil {
		return nil, fmt.Errorf("index game %d: %w", id, err)
	}

	return game, nil
}

// Get loads one game record by id
func (g *Games) Get(ctx context.Context, id int64) (*Game, error) {
	fields, err := g.kv.HGetAll(ctx, gameKeyPrefix+strconv.FormatInt(id, 10))
	if err != nil {
		return nil, fmt.Errorf("load game %d: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("game %d: %w", id, apperrors.ErrKeyNotFound)
	}
	return gameFromFields(id, fields), nil
}

// List returns all stored games ordered by id
func (g *Games) List(ctx context.Context) ([]*Game, error) {
	ids, err := g.kv.SMembers(ctx, gameIndexKey)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}

	games := make([]*Game, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		fields, err := g.kv.HGetAll(ctx, gameKeyPrefix+raw)
		if err != nil {
			return nil, fmt.Errorf("list games: %w", err)
		}
		if len(fields) == 0 {
			continue
		}
		games = append(games, gameFromFields(id, fields))
	}

	sort.Slice(games, func(i, j int) bool { return games[i].ID < games[j].ID })
	return games, nil
}

func gameFromFields(id int64, fields map[string]string) *Game {
	dimensions, _ := strconv.Atoi(fields["dimensions"])
	lineup, _ := strconv.Atoi(fields["lineup"])
	return &Game{
		ID:         id,
		Creator:    fields["creator"],
		Title:      fields["title"],
		Dimensions: dimensions,
		Lineup:     lineup,
		Color:      fields["color"],
	}
}
