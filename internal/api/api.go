// Package api provides the HTTP REST API server.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	coreactions "github.com/good-yellow-bee/alertops/internal/actions"
	"github.com/good-yellow-bee/alertops/internal/api/health"
	"github.com/good-yellow-bee/alertops/internal/models"
	"github.com/good-yellow-bee/alertops/internal/storage"
)

// Config contains HTTP API server configuration.
type Config struct {
	Address          string
	JWTSecret        []byte
	TokenTTL         time.Duration
	RateLimitPerUser int
	RetentionDays    int // history horizon for rendered windows
	CommentlessCap   int // comment-less history entries per window
	SearchLimit      int // max rows per history search
	Verbose          bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = 15 * time.Minute
	}
	if c.RateLimitPerUser == 0 {
		c.RateLimitPerUser = 100 // requests per minute
	}
	if c.RetentionDays == 0 {
		c.RetentionDays = 120
	}
	if c.CommentlessCap == 0 {
		c.CommentlessCap = 15
	}
	if c.SearchLimit == 0 {
		c.SearchLimit = 100
	}
}

// Orchestrator applies validated batch actions.
type Orchestrator interface {
	Apply(ctx context.Context, req coreactions.Request) (*coreactions.BatchResult, error)
}

// ActorResolver resolves acting users against the users service.
type ActorResolver interface {
	Lookup(ctx context.Context, username string) (models.Actor, error)
}

// ProcedureResolver resolves remediation procedure descriptors.
type ProcedureResolver interface {
	Resolve(ctx context.Context, procedureID int64) (*models.Procedure, error)
}

// StudioDirectory names studio environments without blocking.
type StudioDirectory interface {
	Name(id int64) string
}

// Server is the HTTP API server.
type Server struct {
	config        *Config
	storage       storage.Storage
	orch          Orchestrator
	actors        ActorResolver
	procedures    ProcedureResolver
	studios       StudioDirectory
	server        *http.Server
	healthHandler *health.Handler
}

// New creates a new API server.
func New(cfg *Config, store storage.Storage, orch Orchestrator,
	actors ActorResolver, procedures ProcedureResolver, studios StudioDirectory) (*Server, error) {

	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if orch == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if len(cfg.JWTSecret) == 0 {
		return nil, fmt.Errorf("JWT secret is required")
	}

	cfg.SetDefaults()

	s := &Server{
		config:        cfg,
		storage:       store,
		orch:          orch,
		actors:        actors,
		procedures:    procedures,
		studios:       studios,
		healthHandler: health.NewHandler(),
	}

	router := s.setupRouter()

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Run starts the HTTP server and blocks until context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		log.Printf("HTTP API listening on %s", s.config.Address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Printf("shutting down HTTP API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Address
}

// RegisterHealthChecker adds a health checker to the server.
func (s *Server) RegisterHealthChecker(c health.Checker) {
	if s.healthHandler != nil {
		s.healthHandler.RegisterChecker(c)
	}
}
