package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/alertops/internal/actions"
	"github.com/good-yellow-bee/alertops/internal/actorinfo"
	"github.com/good-yellow-bee/alertops/internal/api"
	"github.com/good-yellow-bee/alertops/internal/api/health"
	"github.com/good-yellow-bee/alertops/internal/bridge"
	"github.com/good-yellow-bee/alertops/internal/directory"
	"github.com/good-yellow-bee/alertops/internal/metrics"
	"github.com/good-yellow-bee/alertops/internal/procedure"
	"github.com/good-yellow-bee/alertops/internal/storage"
	"github.com/good-yellow-bee/alertops/internal/ticketing"
	"github.com/good-yellow-bee/alertops/pkg/config"
)

var (
	configFile  string
	httpAddr    string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "alertops-server",
	Short: "AlertOps Server - Alert lifecycle action service",
	Long: `AlertOps Server tracks monitoring alerts and lets operators act on
them: resolve, snooze, acknowledge, assign and handle, with a full
history trail and downstream cache invalidation.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("alertops-server %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	var cfg *Config

	// Load configuration from file if provided
	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("validate config: %w", err)
		}
	}

	// Override with CLI flags
	if httpAddr != "" {
		cfg.Server.Address = httpAddr
	}
	cfg.Verbose = verboseFlag

	// Get JWT secret from environment
	jwtSecret := os.Getenv("ALERTOPS_JWT_SECRET")
	if jwtSecret == "" {
		return fmt.Errorf("ALERTOPS_JWT_SECRET environment variable is required")
	}

	// Auto-create data directory
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// Initialize storage
	store := storage.NewSQLiteStorage(cfg.Database.Path)
	if err := store.Open(); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	log.Printf("database initialized at %s", cfg.Database.Path)

	// Outbound collaborators
	notifier := bridge.NewClient(cfg.Bridge.Host, cfg.Bridge.RefreshTimeout,
		cfg.Bridge.ForceTimeout, log.Default())
	actors := actorinfo.NewClient(cfg.Users.Host, cfg.Users.Timeout)
	procedures := procedure.NewResolver(cfg.Scenarios.Host, cfg.Scenarios.Timeout,
		cfg.Scenarios.CacheTTL)
	studios := directory.NewHolder(cfg.Directory.Host, cfg.Directory.Timeout, log.Default())

	// Action pipeline
	orch := actions.NewOrchestrator(store, notifier, metrics.ActionSink{}, log.Default())
	if cfg.Tracker.Host != "" {
		orch.WithTicketing(ticketing.NewClient(cfg.Tracker.Host, cfg.Tracker.ProjectID,
			cfg.Tracker.Timeout))
		log.Printf("ticketing enabled for project %s", cfg.Tracker.ProjectID)
	}

	// HTTP API
	apiServer, err := api.New(&api.Config{
		Address:          cfg.Server.Address,
		JWTSecret:        []byte(jwtSecret),
		RateLimitPerUser: cfg.Server.RateLimitPerUser,
		RetentionDays:    cfg.History.RetentionDays,
		CommentlessCap:   cfg.History.CommentlessCap,
		SearchLimit:      cfg.History.SearchLimit,
		Verbose:          cfg.Verbose,
	}, store, orch, actors, procedures, studios)
	if err != nil {
		return fmt.Errorf("create API server: %w", err)
	}
	apiServer.RegisterHealthChecker(health.NewSQLiteChecker(store.DB()))
	apiServer.RegisterHealthChecker(health.NewDirectoryChecker(studios.IDs))

	metricsServer := metrics.NewServer(cfg.Metrics.Address)

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	log.Printf("starting alertops-server %s", config.Version)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return apiServer.Run(gctx)
	})
	g.Go(func() error {
		studios.Run(gctx, cfg.Directory.RefreshInterval)
		return nil
	})
	g.Go(func() error {
		return metricsServer.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		return metricsServer.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run server: %w", err)
	}

	log.Printf("server stopped")
	return nil
}
