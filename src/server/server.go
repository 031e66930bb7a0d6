package server

import (
	"fmt"
	"net/http"
	"time"

	"candle-relay/src/candle"
	"candle-relay/src/logger"
	"candle-relay/src/models"
	"candle-relay/src/stream"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

type Server struct {
	Config *models.MConfig
	Logger *logger.Logger
	engine *gin.Engine
	stream *stream.Service

	pool     *Pool
	registry *Registry

	heartbeat  time.Duration
	sendBuffer int
}

// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewServer(cfg *models.MConfig, log *logger.Logger, svc *stream.Service) *Server {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		Config:     cfg,
		Logger:     log,
		engine:     gin.Default(),
		stream:     svc,
		pool:       NewPool(cfg.Stream.MaxConnections),
		registry:   NewRegistry(),
		heartbeat:  time.Duration(cfg.Stream.HeartbeatSeconds) * time.Second,
		sendBuffer: cfg.Stream.SendBuffer,
	}

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/stats", s.getStats)
	s.engine.GET("/api/config", s.getConfig)
	s.engine.GET("/api/health", s.getHealth)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)
	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

// Handler exposes the HTTP handler for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// WebSocket Admission
// -----------------------------------------------------------------------------

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		id:     uuid.NewString(),
		server: s,
		conn:   conn,
		// Buffered channel so the fan-out never blocks on one client
		send: make(chan []byte, s.sendBuffer),
	}
	client.setState(StateConnecting)

	if err := s.pool.Admit(client); err != nil {
		// Hard cap, not a queue: refuse with a policy close frame.
		s.Logger.Warning("Refusing connection: %v", err)
		deadline := time.Now().Add(writeWait)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "capacity exceeded"),
			deadline)
		conn.Close()
		return
	}

	client.setState(StateOpen)
	s.Logger.Debug("Client %s connected", client.id)

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *Server) getStats(c *gin.Context) {
	total, bySymbol := s.registry.Counts()
	activeBars, cachedBars := s.stream.Stats()

	c.JSON(200, models.MStreamStats{
		ActiveSubscriptions:   total,
		ActiveBars:            activeBars,
		CachedBars:            cachedBars,
		Connections:           s.pool.Count(),
		SubscriptionsBySymbol: bySymbol,
	})
}

// -----------------------------------------------------------------------------

func (s *Server) getConfig(c *gin.Context) {
	c.JSON(200, gin.H{
		"resolutions": candle.AllResolutions,
	})
}

// -----------------------------------------------------------------------------

func (s *Server) getHealth(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":      "ok",
		"connections": s.pool.Count(),
	})
}
