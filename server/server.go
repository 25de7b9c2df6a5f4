package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wcfdehao/gomoku/pkg/config"
	"github.com/wcfdehao/gomoku/pkg/game"
	"github.com/wcfdehao/gomoku/pkg/hub"
	"github.com/wcfdehao/gomoku/pkg/logger"
	"github.com/wcfdehao/gomoku/pkg/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // In production, implement proper origin checking
	},
}

// Server wires the HTTP surface, the socket endpoint and the channel
// hub together.
type Server struct {
	cfg      *config.ServerConfig
	kv       store.KV
	registry *hub.Registry
	channels *hub.ChannelSet
	log      *logger.Logger

	sessionsMu sync.Mutex
	sessions   map[string]*hub.Session

	serverMu   sync.Mutex
	httpServer *http.Server

	startedMu sync.Mutex
	started   bool
}

// NewServer builds a server from configuration: opens the shared store
// and assembles the fixed channel set.
func NewServer(cfg *config.ServerConfig) (*Server, error) {
	kv, err := store.NewKV(cfg.Store)
	if err != nil {
		return nil, err
	}

	channels, err := game.Channels(game.Deps{
		Accounts: store.NewAccounts(kv),
		Games:    store.NewGames(kv),
		HTTP:     &http.Client{Timeout: 10 * time.Second},
		StatsURL: cfg.Stats.URL,
	})
	if err != nil {
		kv.Close()
		return nil, err
	}

	return &Server{
		cfg:      cfg,
		kv:       kv,
		registry: hub.NewRegistry(),
		channels: channels,
		log:      logger.Get(),
		sessions: make(map[string]*hub.Session),
	}, nil
}

// Start runs the HTTP server until Shutdown or a listen error
func (s *Server) Start() error {
	s.startedMu.Lock()
	if s.started {
		s.startedMu.Unlock()
		return nil
	}
	s.started = true
	s.startedMu.Unlock()

	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})
	router.Use(corsMiddleware())

	router.GET("/", s.handleIndex)
	router.Static("/static", s.cfg.Web.StaticDir)
	router.GET("/socket", s.handleSocket)
	router.GET("/healthz", s.handleHealth)

	server := &http.Server{
		Addr:    s.cfg.Address,
		Handler: router,
	}

	s.serverMu.Lock()
	s.httpServer = server
	s.serverMu.Unlock()

	if s.cfg.TLS.Enabled {
		s.log.InfoWith("Serving with TLS", "address", s.cfg.Address)
		return server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
	}
	s.log.InfoWith("Serving HTTP", "address", s.cfg.Address)
	return server.ListenAndServe()
}

// Shutdown stops the HTTP server and closes every live connection
func (s *Server) Shutdown(ctx context.Context) error {
	s.startedMu.Lock()
	s.started = false
	s.startedMu.Unlock()

	s.serverMu.Lock()
	httpServer := s.httpServer
	s.serverMu.Unlock()

	if httpServer != nil {
		if err := httpServer.Shutdown(ctx); err != nil {
			s.log.ErrorWithErr("HTTP shutdown failed, forcing close", err)
			httpServer.Close()
		}
	}

	s.sessionsMu.Lock()
	sessions := make([]*hub.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.sessionsMu.Unlock()

	for _, session := range sessions {
		session.Close()
	}

	if err := s.kv.Close(); err != nil {
		s.log.ErrorWithErr("Store close failed", err)
	}
	return nil
}

// ConnectionCount returns the number of live socket connections
func (s *Server) ConnectionCount() int {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	return len(s.sessions)
}

// handleSocket upgrades the request and serves the multiplexed channel
// protocol until the peer disconnects.
func (s *Server) handleSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WarnWith("WebSocket upgrade failed", "error", err, "remote", c.ClientIP())
		return
	}

	id := uuid.NewString()
	session := hub.NewSession(id, conn, s.registry, s.channels, s.cfg.Limits)

	s.sessionsMu.Lock()
	s.sessions[id] = session
	s.sessionsMu.Unlock()

	s.log.InfoWith("Connection accepted", "conn", id, "remote", c.ClientIP())

	session.Run(c.Request.Context())

	s.sessionsMu.Lock()
	delete(s.sessions, id)
	s.sessionsMu.Unlock()

	s.log.InfoWith("Connection closed", "conn", id)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": s.ConnectionCount(),
	})
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
