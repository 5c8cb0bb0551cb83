package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/RexQian/wcf-gateway/internal/attachment"
	"github.com/RexQian/wcf-gateway/internal/infrastructure/config"
	"github.com/RexQian/wcf-gateway/internal/infrastructure/logging"
	"github.com/RexQian/wcf-gateway/internal/media"
	"github.com/RexQian/wcf-gateway/internal/wcf"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// ConnectionChecker reports whether a collaborator is connected.
// *mqtt.Client satisfies it.
type ConnectionChecker interface {
	IsConnected() bool
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Logger    *logging.Logger
	Guard     *wcf.Guard
	Retriever *attachment.Retriever // defaults to attachment.New(Guard)
	Stager    *media.Stager         // required for base64/URL images

	// Messages, if set, is relayed to WebSocket clients.
	Messages wcf.MessageSource

	// Backend names the backend mode for /health.
	Backend string

	// BackendOnline, if set, reports backend reachability for /health.
	BackendOnline func() bool

	// MQTT, if set, is reported in /metrics.
	MQTT ConnectionChecker

	Version string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg           config.APIConfig
	wsCfg         config.WebSocketConfig
	logger        *logging.Logger
	guard         *wcf.Guard
	retriever     *attachment.Retriever
	stager        *media.Stager
	messages      wcf.MessageSource
	backend       string
	backendOnline func() bool
	mqtt          ConnectionChecker
	version       string
	startTime     time.Time
	server        *http.Server
	hub           *Hub
	cancel        context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Logger, Guard and Stager are required
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Guard == nil {
		return nil, fmt.Errorf("backend guard is required")
	}
	if deps.Stager == nil {
		return nil, fmt.Errorf("media stager is required")
	}

	logger := deps.Logger.With("component", "api")
	retriever := deps.Retriever
	if retriever == nil {
		retriever = attachment.New(deps.Guard, attachment.WithLogger(deps.Logger))
	}

	return &Server{
		cfg:           deps.Config,
		wsCfg:         deps.WS,
		logger:        logger,
		guard:         deps.Guard,
		retriever:     retriever,
		stager:        deps.Stager,
		messages:      deps.Messages,
		backend:       deps.Backend,
		backendOnline: deps.BackendOnline,
		mqtt:          deps.MQTT,
		version:       deps.Version,
		startTime:     time.Now(),
		hub:           NewHub(deps.WS, logger),
	}, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, hooks the message relay and launches the
// HTTP listener in a background goroutine. The server can be stopped with
// Close().
//
// Parameters:
//   - ctx: Parent context for the hub; not used for listener lifetime
//
// Returns:
//   - error: Currently always nil; listener errors are logged
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.relayMessages()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// relayMessages forwards captured messages to WebSocket subscribers.
func (s *Server) relayMessages() {
	if s.messages == nil {
		return
	}
	s.messages.OnMessage(func(msg wcf.Message) {
		s.hub.Broadcast(EventMessageReceived, msg)
	})
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
