package hub

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wcfdehao/gomoku/pkg/config"
	"github.com/wcfdehao/gomoku/pkg/protocol"
)

var testLimits = config.LimitsConfig{
	FramesPerSecond: 1000,
	FrameBurst:      1000,
	SendBuffer:      64,
}

// fakeConn is an in-memory Conn fed by pushed frames
type fakeConn struct {
	inbound chan []byte

	mu     sync.Mutex
	writes [][]byte
	closed bool

	shutdownOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 16)}
}

func (c *fakeConn) push(data []byte) {
	c.inbound <- data
}

// shutdown ends the read side, as a transport close would
func (c *fakeConn) shutdown() {
	c.shutdownOnce.Do(func() { close(c.inbound) })
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	data, ok := <-c.inbound
	if !ok {
		return 0, nil, io.EOF
	}
	return websocket.TextMessage, data, nil
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, data)
	return nil
}

func (c *fakeConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(t time.Time) error { return nil }
func (c *fakeConn) SetPongHandler(h func(string) error) {}

func (c *fakeConn) Close() error {
	c.shutdown()
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// recordingCallback records hook and message invocations
type recordingCallback struct {
	mu       sync.Mutex
	opened   int
	closed   int
	messages []string
	fail     error
}

func (r *recordingCallback) OnOpen(ctx context.Context, h *Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened++
	return nil
}

func (r *recordingCallback) OnMessage(ctx context.Context, h *Handler, payload json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.messages = append(r.messages, string(payload))
	return nil
}

func (r *recordingCallback) OnClose(ctx context.Context, h *Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
}

func (r *recordingCallback) messageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func (r *recordingCallback) closeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *recordingCallback) openCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opened
}

// newTestSession wires a session without running its pumps. The context
// is set so dispatch can be driven directly from the test.
func newTestSession(t *testing.T, id string, registry *Registry, channels *ChannelSet) *Session {
	t.Helper()
	s := NewSession(id, newFakeConn(), registry, channels, testLimits)
	s.ctx = context.Background()
	return s
}

// takeFrame pops and decodes the next queued outbound frame
func takeFrame(t *testing.T, s *Session) protocol.Frame {
	t.Helper()
	select {
	case data := <-s.send:
		frame, err := protocol.Decode(data)
		if err != nil {
			t.Fatalf("Queued frame does not decode: %v", err)
		}
		return frame
	default:
		t.Fatal("No frame queued")
		return protocol.Frame{}
	}
}

// noFrame asserts the session has nothing queued
func noFrame(t *testing.T, s *Session) {
	t.Helper()
	select {
	case data := <-s.send:
		t.Fatalf("Unexpected queued frame: %s", data)
	default:
	}
}

// statusOf parses the status/message fields of a reply payload
func statusOf(t *testing.T, frame protocol.Frame) (string, string) {
	t.Helper()
	var reply struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(frame.Payload), &reply); err != nil {
		t.Fatalf("Reply payload does not parse: %v", err)
	}
	return reply.Status, reply.Message
}

func messageFrame(t *testing.T, channel, payload string) []byte {
	t.Helper()
	data, err := protocol.Encode(protocol.Frame{
		Channel: channel,
		Kind:    protocol.KindMessage,
		Payload: payload,
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return data
}
