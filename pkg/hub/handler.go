package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	apperrors "github.com/wcfdehao/gomoku/pkg/errors"
	"github.com/wcfdehao/gomoku/pkg/protocol"
)

type handlerState int

const (
	stateCreated handlerState = iota
	stateOpen
	stateClosed
)

// Handler is the per (connection, channel) object holding one
// sub-protocol's session state. Exactly one instance exists per pair
// for the connection's lifetime. Identity state lives on the owning
// session: once a connection completes the claim protocol, every
// handler it owns is authenticated.
type Handler struct {
	session  *Session
	spec     ChannelSpec
	callback Callback

	mu    sync.Mutex
	state handlerState
}

func newHandler(s *Session, spec ChannelSpec) *Handler {
	return &Handler{
		session:  s,
		spec:     spec,
		callback: spec.New(),
	}
}

// Channel returns the handler's channel name
func (h *Handler) Channel() string {
	return h.spec.Name
}

// ConnectionID returns the owning connection's id
func (h *Handler) ConnectionID() string {
	return h.session.ID()
}

// Identity returns the connection's claimed name, empty until
// authenticated.
func (h *Handler) Identity() string {
	return h.session.Identity()
}

// Secret returns the connection's credential token, empty until
// authenticated.
func (h *Handler) Secret() string {
	return h.session.Secret()
}

// Authenticated reports whether the owning connection completed the
// claim protocol.
func (h *Handler) Authenticated() bool {
	return h.session.Authenticated()
}

// SetIdentity marks the owning connection authenticated and registers
// all of its handlers in the identity index. The flag flips once and
// never reverts except via connection close.
func (h *Handler) SetIdentity(identity, secret string) {
	h.session.SetIdentity(identity, secret)
}

// open runs the open hook and moves the handler to its open state.
// On hook failure the handler stays created and the error is reported
// to the client.
func (h *Handler) open(ctx context.Context) error {
	if hook, ok := h.callback.(OpenHook); ok {
		if err := hook.OnOpen(ctx, h); err != nil {
			h.replyError(err)
			return err
		}
	}
	h.mu.Lock()
	h.state = stateOpen
	h.mu.Unlock()
	return nil
}

// handleMessage runs the dispatch pipeline: JSON guard, auth guard,
// application callback. Guard rejections become error replies; only a
// message on a closed handler is returned to the session as an error.
func (h *Handler) handleMessage(ctx context.Context, payload string) error {
	h.mu.Lock()
	closed := h.state == stateClosed
	h.mu.Unlock()
	if closed {
		return fmt.Errorf("%s/%s: %w", h.ConnectionID(), h.Channel(), apperrors.ErrHandlerClosed)
	}

	if !json.Valid([]byte(payload)) {
		h.replyError(apperrors.ErrBadPayload)
		return nil
	}

	if h.spec.Protected && !h.Authenticated() {
		h.replyError(apperrors.ErrAuthRequired)
		return nil
	}

	if err := h.callback.OnMessage(ctx, h, json.RawMessage(payload)); err != nil {
		h.session.log.WarnWith("Channel callback failed",
			"channel", h.Channel(), "error", err)
		h.replyError(err)
	}
	return nil
}

// close runs the close hook once and removes the handler from the
// registry. Authenticated handlers release their identity record inside
// the hook before the registry entry disappears.
func (h *Handler) close(ctx context.Context) {
	h.mu.Lock()
	if h.state == stateClosed {
		h.mu.Unlock()
		return
	}
	h.state = stateClosed
	h.mu.Unlock()

	if hook, ok := h.callback.(CloseHook); ok {
		hook.OnClose(ctx, h)
	}
	h.session.registry.Unregister(h)
}

// Reply sends a payload on this handler's own channel to its own
// connection only.
func (h *Handler) Reply(payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("reply on %s: %w", h.Channel(), err)
	}
	return h.ReplyRaw(string(raw))
}

// ReplyRaw sends an already-encoded payload verbatim on this handler's
// channel.
func (h *Handler) ReplyRaw(payload string) error {
	data, err := protocol.Encode(protocol.Frame{
		Channel: h.Channel(),
		Kind:    protocol.KindMessage,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("reply on %s: %w", h.Channel(), err)
	}
	return h.session.enqueue(data)
}

// SendOnChannel sends a payload on a different channel of the same
// connection, creating that channel's handler if it does not exist yet.
func (h *Handler) SendOnChannel(ctx context.Context, channel string, payload any) error {
	sibling, err := h.session.openChannel(ctx, channel)
	if err != nil {
		return err
	}
	return sibling.Reply(payload)
}

// BroadcastChannel fans a payload out to every open handler of a
// channel, optionally skipping this handler's own connection.
func (h *Handler) BroadcastChannel(channel string, payload any, excludeSelf bool) (int, error) {
	var exclude *Handler
	if excludeSelf {
		if own, ok := h.session.registry.LookupByConnection(h.ConnectionID(), channel); ok {
			exclude = own
		}
	}
	return h.session.registry.Broadcast(channel, payload, exclude)
}

// SendToIdentity delivers a payload to the one handler a named identity
// holds on a channel. Fails with an addressing error when no live
// handler matches; nothing is delivered in that case.
func (h *Handler) SendToIdentity(channel, identity string, payload any) error {
	target, ok := h.session.registry.LookupByIdentity(channel, identity)
	if !ok {
		return fmt.Errorf("%s on %s: %w", identity, channel, apperrors.ErrIdentityNotConnected)
	}
	return target.Reply(payload)
}

// replyError reports a failure to the client as an error reply on this
// handler's own channel.
func (h *Handler) replyError(err error) {
	reply := map[string]any{
		"status":  "error",
		"message": userMessage(err),
	}
	if sendErr := h.Reply(reply); sendErr != nil {
		h.session.log.DebugWith("Dropping error reply",
			"channel", h.Channel(), "error", sendErr)
	}
}

// userFacing are the failures whose sentinel text is shown to clients
var userFacing = []error{
	apperrors.ErrBadPayload,
	apperrors.ErrBadGameConfig,
	apperrors.ErrBadLineup,
	apperrors.ErrGameUnavailable,
	apperrors.ErrAuthRequired,
	apperrors.ErrNameTaken,
	apperrors.ErrIdentityNotConnected,
}

// userMessage maps an error to the message sent to the client. Unknown
// failures, store errors included, are not leaked.
func userMessage(err error) string {
	for _, sentinel := range userFacing {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal error"
}
