package hub

import (
	"context"
	"encoding/json"
	"fmt"
)

// Callback is the per-channel application logic plugged into a Handler.
// OnMessage receives the payload after the JSON and auth guards passed;
// a returned error is reported to the client as an error reply and the
// handler stays open.
type Callback interface {
	OnMessage(ctx context.Context, h *Handler, payload json.RawMessage) error
}

// OpenHook is implemented by callbacks that act when their handler opens
type OpenHook interface {
	OnOpen(ctx context.Context, h *Handler) error
}

// CloseHook is implemented by callbacks that act when their handler
// closes, typically to release store state tied to the connection.
type CloseHook interface {
	OnClose(ctx context.Context, h *Handler)
}

// ChannelSpec configures one named channel of the fixed set
type ChannelSpec struct {
	Name      string
	Protected bool
	AutoOpen  bool
	New       func() Callback
}

// ChannelSet is the fixed table of channels known at startup
type ChannelSet struct {
	specs    map[string]ChannelSpec
	autoOpen []string
}

// NewChannelSet builds the channel table, rejecting duplicate names
func NewChannelSet(specs ...ChannelSpec) (*ChannelSet, error) {
	set := &ChannelSet{
		specs: make(map[string]ChannelSpec, len(specs)),
	}
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("channel with empty name")
		}
		if spec.New == nil {
			return nil, fmt.Errorf("channel %s has no callback factory", spec.Name)
		}
		if _, exists := set.specs[spec.Name]; exists {
			return nil, fmt.Errorf("duplicate channel %s", spec.Name)
		}
		set.specs[spec.Name] = spec
		if spec.AutoOpen {
			set.autoOpen = append(set.autoOpen, spec.Name)
		}
	}
	return set, nil
}

// Lookup resolves a channel name to its spec
func (s *ChannelSet) Lookup(name string) (ChannelSpec, bool) {
	spec, ok := s.specs[name]
	return spec, ok
}

// AutoOpen returns the names of channels opened at connection accept
func (s *ChannelSet) AutoOpen() []string {
	return s.autoOpen
}

// Len returns the number of configured channels
func (s *ChannelSet) Len() int {
	return len(s.specs)
}
