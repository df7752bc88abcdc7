package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"alpha-radar/src/interfaces"
	"alpha-radar/src/logger"
	"alpha-radar/src/metrics"
	"alpha-radar/src/models"

	"github.com/gin-gonic/gin"
)

// ScanController is the part of the orchestrator the API drives.
type ScanController interface {
	Start(ctx context.Context, universeTag string) error
	Stop()
	Status() models.MScanStatus
}

// HistoryProvider serves one symbol's bars and event timeline.
type HistoryProvider interface {
	History(ctx context.Context, symbol string) ([]models.MBar, []models.MPatternEvent, error)
}

// SignalReader is an optional fast path in front of the signal store.
type SignalReader interface {
	Latest(ctx context.Context) ([]models.MSignal, error)
}

// -----------------------------------------------------------------------------
// APIServer
// -----------------------------------------------------------------------------

type APIServer struct {
	Config  *models.MConfig
	Logger  *logger.Logger
	Scans   ScanController
	Signals interfaces.ISignalStore
	History HistoryProvider
	Cache   SignalReader
	Metrics *metrics.Recorder

	engine     *gin.Engine
	httpServer *http.Server
	limiters   *IPLimiters

	// WebSocket clients, owned by the hub goroutine
	clients     map[*Client]struct{}
	connections atomic.Int32
	broadcast   chan models.MScanEvent
	register    chan *Client
	unregister  chan *Client
	replies     chan *Client
	done        chan struct{}
	hubOnce     sync.Once
	stopOnce    sync.Once

	// Last status pushed, replayed to new clients
	lastStatus *models.MScanStatus
	stateMutex sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAPIServer(cfg *models.MConfig, log *logger.Logger, scans ScanController, signals interfaces.ISignalStore, history HistoryProvider, rec *metrics.Recorder) *APIServer {
	// Set Gin mode
	if !strings.EqualFold(cfg.LogLevel, "DEBUG") {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &APIServer{
		Config:   cfg,
		Logger:   log,
		Scans:    scans,
		Signals:  signals,
		History:  history,
		Metrics:  rec,
		engine:   gin.New(),
		limiters: NewIPLimiters(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),
		clients:  make(map[*Client]struct{}),
		// Buffered so a scan never waits on slow websocket clients
		broadcast:  make(chan models.MScanEvent, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		replies:    make(chan *Client),
		done:       make(chan struct{}),
	}

	s.engine.Use(gin.Recovery(), corsMiddleware())
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	// Read-only endpoints
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/scan/status", s.getScanStatus)
	s.engine.GET("/api/signals", s.getSignals)
	s.engine.GET("/api/history/:symbol", s.getHistory)
	s.engine.GET("/api/risk/size", s.getRiskSize)
	s.engine.GET("/metrics", gin.WrapH(s.Metrics.Handler()))

	// Scan control
	control := s.engine.Group("/api/scan", RateLimitMiddleware(s.limiters))
	if secret := s.Config.Server.JWTSecret; secret != "" {
		control.Use(AuthMiddleware(secret))
	} else {
		s.Logger.Warning("server.jwt_secret is empty: scan control routes are unauthenticated")
	}
	control.POST("/start", s.startScan)
	control.POST("/stop", s.stopScan)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router, mainly for tests.
func (s *APIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *APIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	s.startHub()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *APIServer) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.done)

		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err = s.httpServer.Shutdown(ctx)
		}
	})
	return err
}

func (s *APIServer) startHub() {
	s.hubOnce.Do(func() {
		go s.handleWebsockets()
	})
}
