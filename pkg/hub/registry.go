package hub

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/wcfdehao/gomoku/pkg/protocol"
)

// Registry indexes live handler instances per channel, by connection id
// and by authenticated identity. Handlers are owned by their sessions;
// the registry holds non-owning references removed on close.
type Registry struct {
	mu         sync.RWMutex
	byConn     map[string]map[string]*Handler
	byIdentity map[string]map[string]*Handler
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byConn:     make(map[string]map[string]*Handler),
		byIdentity: make(map[string]map[string]*Handler),
	}
}

// Register inserts a handler into the connection index, and into the
// identity index when it is already authenticated.
func (r *Registry) Register(h *Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	channel := h.Channel()
	if r.byConn[channel] == nil {
		r.byConn[channel] = make(map[string]*Handler)
	}
	r.byConn[channel][h.ConnectionID()] = h

	if identity := h.Identity(); h.Authenticated() && identity != "" {
		r.registerIdentityLocked(channel, identity, h)
	}
}

// RegisterIdentity adds an authenticated handler to the identity index.
// Called when a handler's connection completes the claim protocol.
func (r *Registry) RegisterIdentity(h *Handler) {
	identity := h.Identity()
	if identity == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registerIdentityLocked(h.Channel(), identity, h)
}

func (r *Registry) registerIdentityLocked(channel, identity string, h *Handler) {
	if r.byIdentity[channel] == nil {
		r.byIdentity[channel] = make(map[string]*Handler)
	}
	r.byIdentity[channel][identity] = h
}

// Unregister removes a handler from both indexes. Idempotent; entries
// held by a different handler instance are left alone.
func (r *Registry) Unregister(h *Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	channel := h.Channel()
	if conns := r.byConn[channel]; conns != nil {
		if conns[h.ConnectionID()] == h {
			delete(conns, h.ConnectionID())
		}
		if len(conns) == 0 {
			delete(r.byConn, channel)
		}
	}
	if identity := h.Identity(); identity != "" {
		if idents := r.byIdentity[channel]; idents != nil {
			if idents[identity] == h {
				delete(idents, identity)
			}
			if len(idents) == 0 {
				delete(r.byIdentity, channel)
			}
		}
	}
}

// LookupByConnection returns the handler a connection holds on a channel
func (r *Registry) LookupByConnection(connID, channel string) (*Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byConn[channel][connID]
	return h, ok
}

// LookupByIdentity returns the one handler an identity holds on a
// channel. Each identity authenticates at most once per channel since
// it has a single active connection.
func (r *Registry) LookupByIdentity(channel, identity string) (*Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byIdentity[channel][identity]
	return h, ok
}

// Count returns the number of registered handlers on a channel
func (r *Registry) Count(channel string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn[channel])
}

// Broadcast delivers payload to every handler currently registered on
// channel, optionally skipping exclude. The handler set is snapshotted
// at call time; handlers registered afterwards do not receive this
// broadcast. Returns the number of connections the frame was queued to.
func (r *Registry) Broadcast(channel string, payload any, exclude *Handler) (int, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("broadcast on %s: %w", channel, err)
	}
	data, err := protocol.Encode(protocol.Frame{
		Channel: channel,
		Kind:    protocol.KindMessage,
		Payload: string(raw),
	})
	if err != nil {
		return 0, fmt.Errorf("broadcast on %s: %w", channel, err)
	}

	r.mu.RLock()
	targets := make([]*Handler, 0, len(r.byConn[channel]))
	for _, h := range r.byConn[channel] {
		if h != exclude {
			targets = append(targets, h)
		}
	}
	r.mu.RUnlock()

	delivered := 0
	for _, h := range targets {
		if err := h.session.enqueue(data); err == nil {
			delivered++
		}
	}
	return delivered, nil
}
