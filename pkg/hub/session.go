package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/wcfdehao/gomoku/pkg/config"
	apperrors "github.com/wcfdehao/gomoku/pkg/errors"
	"github.com/wcfdehao/gomoku/pkg/logger"
	"github.com/wcfdehao/gomoku/pkg/protocol"
)

const (
	// Time allowed to write a frame to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer
	pongWait = 90 * time.Second

	// Ping period, must be less than pongWait
	pingPeriod = 30 * time.Second
)

// Conn is the subset of the websocket connection the session uses.
// *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Session owns one physical connection and the handler instances it
// created. Frames of one connection are read and dispatched serially,
// so callbacks on the same handler never run concurrently; sessions of
// different connections run independently.
type Session struct {
	id       string
	conn     Conn
	registry *Registry
	channels *ChannelSet
	limiter  *rate.Limiter
	log      *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	handlers      map[string]*Handler
	closed        bool
	authenticated bool
	identity      string
	secret        string

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewSession creates a session for an accepted connection
func NewSession(id string, conn Conn, registry *Registry, channels *ChannelSet, limits config.LimitsConfig) *Session {
	return &Session{
		id:       id,
		conn:     conn,
		registry: registry,
		channels: channels,
		limiter:  rate.NewLimiter(rate.Limit(limits.FramesPerSecond), limits.FrameBurst),
		log:      logger.Get().With("conn", id),
		handlers: make(map[string]*Handler),
		send:     make(chan []byte, limits.SendBuffer),
		done:     make(chan struct{}),
	}
}

// ID returns the opaque connection id
func (s *Session) ID() string {
	return s.id
}

// Identity returns the claimed name, empty until authenticated
func (s *Session) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Secret returns the credential token, empty until authenticated
func (s *Session) Secret() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.secret
}

// Authenticated reports whether this connection completed the claim
// protocol.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// SetIdentity records a completed identity claim and registers every
// handler this connection already owns in the identity index. Handlers
// created afterwards register as authenticated directly.
func (s *Session) SetIdentity(identity, secret string) {
	s.mu.Lock()
	s.identity = identity
	s.secret = secret
	s.authenticated = true
	handlers := make([]*Handler, 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()

	for _, h := range handlers {
		s.registry.RegisterIdentity(h)
	}
}

// Run serves the connection until the transport closes: it starts the
// write pump, opens the auto-open channels, then reads frames. On
// return every owned handler has been closed.
func (s *Session) Run(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	defer s.Close()

	go s.writePump()

	for _, name := range s.channels.AutoOpen() {
		if _, err := s.openChannel(s.ctx, name); err != nil {
			s.log.WarnWith("Auto-open failed", "channel", name, "error", err)
		}
	}

	s.readLoop()
}

// Close tears the session down: cascades close to every owned handler,
// then closes the transport. Safe to call more than once and from any
// goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		handlers := make([]*Handler, 0, len(s.handlers))
		for _, h := range s.handlers {
			handlers = append(handlers, h)
		}
		s.mu.Unlock()

		ctx := s.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		for _, h := range handlers {
			h.close(ctx)
		}

		if s.cancel != nil {
			s.cancel()
		}
		close(s.done)
		s.conn.Close()
		s.log.DebugWith("Session closed", "handlers", len(handlers))
	})
}

func (s *Session) readLoop() {
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.DebugWith("Read failed", "error", err)
			}
			return
		}

		if !s.limiter.Allow() {
			s.log.WarnWith("Frame rate limit exceeded, dropping frame")
			continue
		}

		s.dispatch(data)
	}
}

// dispatch decodes one inbound frame and routes it to the handler for
// its channel. Protocol failures are logged and dropped; they never
// terminate the connection.
func (s *Session) dispatch(data []byte) {
	frame, err := protocol.Decode(data)
	if err != nil {
		s.log.WarnWith("Dropping malformed frame", "error", err)
		return
	}

	if _, ok := s.channels.Lookup(frame.Channel); !ok {
		s.log.WarnWith("Dropping frame for unknown channel", "channel", frame.Channel)
		return
	}

	h, err := s.openChannel(s.ctx, frame.Channel)
	if err != nil {
		s.log.WarnWith("Cannot open channel", "channel", frame.Channel, "error", err)
		return
	}

	switch frame.Kind {
	case protocol.KindOpen:
		// Opening is implicit in handler creation.
	case protocol.KindMessage:
		if err := h.handleMessage(s.ctx, frame.Payload); err != nil {
			s.log.WarnWith("Dropping message", "channel", frame.Channel, "error", err)
		}
	case protocol.KindClose:
		h.close(s.ctx)
	}
}

// openChannel returns the handler for a channel, creating, opening and
// registering it on first use. At most one handler ever exists per
// channel for this session.
func (s *Session) openChannel(ctx context.Context, name string) (*Handler, error) {
	spec, ok := s.channels.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, apperrors.ErrUnknownChannel)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("open %s: %w", name, apperrors.ErrConnectionClosed)
	}
	if h, exists := s.handlers[name]; exists {
		s.mu.Unlock()
		return h, nil
	}
	h := newHandler(s, spec)
	s.handlers[name] = h
	s.mu.Unlock()

	if err := h.open(ctx); err != nil {
		s.log.WarnWith("Open hook failed", "channel", name, "error", err)
	}
	s.registry.Register(h)
	return h, nil
}

// Handler returns this session's handler for a channel, if created
func (s *Session) Handler(name string) (*Handler, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handlers[name]
	return h, ok
}

// enqueue queues an encoded frame for the write pump without blocking
func (s *Session) enqueue(data []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("send to %s: %w", s.id, apperrors.ErrConnectionClosed)
	}
	s.mu.Unlock()

	select {
	case s.send <- data:
		return nil
	default:
		return fmt.Errorf("send to %s: %w", s.id, apperrors.ErrSendBufferFull)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.log.DebugWith("Write failed", "error", err)
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			// Flush whatever is still queued before the transport goes away.
			for {
				select {
				case data := <-s.send:
					s.conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}
