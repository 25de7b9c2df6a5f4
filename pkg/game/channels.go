package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/wcfdehao/gomoku/pkg/errors"
	"github.com/wcfdehao/gomoku/pkg/hub"
	"github.com/wcfdehao/gomoku/pkg/logger"
	"github.com/wcfdehao/gomoku/pkg/store"
)

// Channel names of the fixed set
const (
	ChannelUsernameChoice = "username_choice"
	ChannelGamesList      = "games_list"
	ChannelGamesJoin      = "games_join"
	ChannelGameCreate     = "game_create"
	ChannelStats          = "stats"
	ChannelNote           = "note"
	ChannelGameAction     = "game_action"
	ChannelGameFinish     = "game_finish"
)

// Deps are the external collaborators the channel callbacks use
type Deps struct {
	Accounts *store.Accounts
	Games    *store.Games
	HTTP     *http.Client
	StatsURL string
}

// Channels builds the channel table served over the socket endpoint
func Channels(deps Deps) (*hub.ChannelSet, error) {
	return hub.NewChannelSet(
		hub.ChannelSpec{
			Name: ChannelUsernameChoice,
			New:  func() hub.Callback { return &usernameChoice{deps: deps} },
		},
		hub.ChannelSpec{
			Name:      ChannelGamesList,
			Protected: true,
			New:       func() hub.Callback { return &gamesList{deps: deps} },
		},
		hub.ChannelSpec{
			Name:      ChannelGamesJoin,
			Protected: true,
			New:       func() hub.Callback { return &gamesJoin{deps: deps} },
		},
		hub.ChannelSpec{
			Name:      ChannelGameCreate,
			Protected: true,
			New:       func() hub.Callback { return &gameCreate{deps: deps} },
		},
		hub.ChannelSpec{
			Name: ChannelStats,
			New:  func() hub.Callback { return &stats{deps: deps} },
		},
		hub.ChannelSpec{
			Name:     ChannelNote,
			AutoOpen: true,
			New:      func() hub.Callback { return passive{} },
		},
		hub.ChannelSpec{
			Name:      ChannelGameAction,
			Protected: true,
			New:       func() hub.Callback { return &gameAction{} },
		},
		hub.ChannelSpec{
			Name:     ChannelGameFinish,
			AutoOpen: true,
			New:      func() hub.Callback { return passive{} },
		},
	)
}

// usernameChoice runs the identity claim protocol. The store's atomic
// add-if-absent is the single claim step, so concurrent claims for the
// same name cannot both win.
type usernameChoice struct {
	deps Deps
}

func (c *usernameChoice) OnMessage(ctx context.Context, h *hub.Handler, payload json.RawMessage) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(payload, &req); err != nil || req.Name == "" {
		return apperrors.ErrBadPayload
	}

	secret, err := c.deps.Accounts.Claim(ctx, req.Name)
	if err != nil {
		return err
	}

	h.SetIdentity(req.Name, secret)
	return h.Reply(map[string]any{
		"status": "ok",
		"name":   req.Name,
		"secret": secret,
	})
}

func (c *usernameChoice) OnClose(ctx context.Context, h *hub.Handler) {
	if !h.Authenticated() {
		return
	}
	// The release must survive server-shutdown cancellation, or the
	// name stays claimed forever.
	ctx = context.WithoutCancel(ctx)
	if err := c.deps.Accounts.Release(ctx, h.Identity(), h.Secret()); err != nil {
		logger.Get().ErrorWithErr("Failed to release identity", err,
			"identity", h.Identity())
	}
}

// gamesList replies the current game listing
type gamesList struct {
	deps Deps
}

func (c *gamesList) OnMessage(ctx context.Context, h *hub.Handler, payload json.RawMessage) error {
	listing, err := gamesPayload(ctx, c.deps.Games)
	if err != nil {
		return err
	}
	return h.Reply(listing)
}

// gamesJoin connects a player to an existing game and notifies its
// creator.
type gamesJoin struct {
	deps Deps
}

func (c *gamesJoin) OnMessage(ctx context.Context, h *hub.Handler, payload json.RawMessage) error {
	var req struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return apperrors.ErrBadPayload
	}
	id, err := req.ID.Int64()
	if err != nil {
		return apperrors.ErrBadPayload
	}

	record, err := c.deps.Games.Get(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrKeyNotFound) {
			return apperrors.ErrGameUnavailable
		}
		return err
	}

	if err := h.Reply(map[string]any{
		"status": "ok",
		"model":  placeholderModel(record.Dimensions),
	}); err != nil {
		return err
	}

	if err := h.SendOnChannel(ctx, ChannelNote, map[string]any{
		"msg": fmt.Sprintf("Welcome to the game #%d", id),
	}); err != nil {
		return err
	}

	// Notify the creator point-to-point. An absent creator is not an
	// error for the joiner.
	err = h.SendToIdentity(ChannelNote, record.Creator, map[string]any{
		"msg": fmt.Sprintf("%s joined your game", h.Identity()),
	})
	if errors.Is(err, apperrors.ErrIdentityNotConnected) {
		logger.Get().DebugWith("Game creator not connected",
			"game", id, "creator", record.Creator)
		return h.SendOnChannel(ctx, ChannelNote, map[string]any{
			"msg": "The game creator is offline",
		})
	}
	return err
}

// gameCreate validates parameters, stores a new game record and pushes
// the updated listing to everyone on games_list. Validation happens
// before the id counter is touched, so rejected requests never burn an
// id.
type gameCreate struct {
	deps Deps
}

func (c *gameCreate) OnMessage(ctx context.Context, h *hub.Handler, payload json.RawMessage) error {
	var req struct {
		Dimensions json.Number `json:"dimensions"`
		Lineup     json.Number `json:"lineup"`
		Color      string      `json:"color"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return apperrors.ErrBadPayload
	}

	dimensions, err := req.Dimensions.Int64()
	if err != nil || dimensions <= 0 {
		return apperrors.ErrBadGameConfig
	}
	lineup, lineupErr := req.Lineup.Int64()
	if lineupErr != nil || lineup <= 0 {
		return apperrors.ErrBadGameConfig
	}
	if lineup > dimensions {
		return apperrors.ErrBadLineup
	}

	record, err := c.deps.Games.Create(ctx, h.Identity(), int(dimensions), int(lineup), req.Color)
	if err != nil {
		return err
	}

	if err := h.Reply(map[string]any{
		"status": "ok",
		"model":  placeholderModel(record.Dimensions),
	}); err != nil {
		return err
	}

	listing, err := gamesPayload(ctx, c.deps.Games)
	if err != nil {
		return err
	}
	if _, err := h.BroadcastChannel(ChannelGamesList, listing, false); err != nil {
		return err
	}

	return h.SendOnChannel(ctx, ChannelNote, map[string]any{
		"msg": "Waiting for the opponent...",
	})
}

// stats fetches the ancillary top-player listing on open and forwards
// the response body verbatim.
type stats struct {
	deps Deps
}

func (c *stats) OnOpen(ctx context.Context, h *hub.Handler) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.deps.StatsURL, nil)
	if err != nil {
		return fmt.Errorf("stats request: %w", err)
	}
	resp, err := c.deps.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("stats fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("stats read: %w", err)
	}
	return h.ReplyRaw(string(body))
}

func (c *stats) OnMessage(ctx context.Context, h *hub.Handler, payload json.RawMessage) error {
	// Stats is one-way; inbound messages are ignored.
	return nil
}

// gameAction resolves a move and forwards the outcome on game_finish
type gameAction struct{}

func (c *gameAction) OnMessage(ctx context.Context, h *hub.Handler, payload json.RawMessage) error {
	return h.SendOnChannel(ctx, ChannelGameFinish, map[string]any{
		"winner": true,
	})
}

// passive channels only receive notifications pushed by other handlers
type passive struct{}

func (passive) OnMessage(ctx context.Context, h *hub.Handler, payload json.RawMessage) error {
	return nil
}

// gamesPayload builds the listing reply shared by games_list replies
// and game_create broadcasts.
func gamesPayload(ctx context.Context, games *store.Games) (map[string]any, error) {
	list, err := games.List(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status": "ok",
		"games":  list,
	}, nil
}
