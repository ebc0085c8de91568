// @title           Annotation Study Registration API
// @version         1.0.0
// @description     Registration wizard for the annotation study: demographics, instructions and comprehension check, account provisioning on the annotation platform.
// @contact.name    Study administrator
// @license.name    Apache-2.0
// @basePath        /
// @schemes         http https
//
// @tag.name         System
// @tag.description  Health, readiness, and version endpoints.
//
// @tag.name         Wizard
// @tag.description  The registration wizard. Each step returns a signed step token that unlocks the next one.
//
// @tag.name         Observability
// @tag.description  Prometheus metrics and profiling are served on a dedicated side-channel port (default: 9090) that is separate from the main API server. Configure the port with REG_TELEMETRY_METRICS_PROMETHEUS_PORT. The endpoint path is always GET /metrics. pprof (if enabled via REG_TELEMETRY_PROFILING_ENABLED=true) is served on REG_TELEMETRY_PROFILING_PORT (default: 6060) at the standard /debug/pprof/ paths.

// Package main is the entry point for the registration server binary.
// It dispatches its subcommands (serve, migrate, pending, export and version)
// via a simple switch on os.Args so the binary's full CLI surface is readable
// in one place. The database is only touched when the postgres sink is enabled
// or an admin command needs it.
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108 -- served only on the dedicated profiling port, never on the Gin listener
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annotation-study/registration/internal/api"
	"github.com/annotation-study/registration/internal/config"
	"github.com/annotation-study/registration/internal/content"
	"github.com/annotation-study/registration/internal/crypto"
	"github.com/annotation-study/registration/internal/db"
	"github.com/annotation-study/registration/internal/db/repositories"
	"github.com/annotation-study/registration/internal/languages"
	"github.com/annotation-study/registration/internal/notify"
	"github.com/annotation-study/registration/internal/platform"
	"github.com/annotation-study/registration/internal/provisioning"
	"github.com/annotation-study/registration/internal/recorder"
	"github.com/annotation-study/registration/internal/registration"
	"github.com/annotation-study/registration/internal/safego"
	"github.com/annotation-study/registration/internal/storage"
	"github.com/annotation-study/registration/internal/telemetry"
	"github.com/annotation-study/registration/internal/wizard"

	// Import storage backends to register them
	_ "github.com/annotation-study/registration/internal/storage/azure"
	_ "github.com/annotation-study/registration/internal/storage/gcs"
	_ "github.com/annotation-study/registration/internal/storage/local"
	_ "github.com/annotation-study/registration/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	// Parse command from args
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	if command == "version" {
		fmt.Printf("Annotation Registration v%s\n", api.Version)
		return nil
	}

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Execute command
	switch command {
	case "serve":
		return serve(cfg)
	case "migrate":
		if len(os.Args) < 3 {
			return fmt.Errorf("usage: %s migrate <up|down>", os.Args[0])
		}
		return runMigrations(cfg, os.Args[2])
	case "pending":
		return listPending(cfg, os.Stdout)
	case "export":
		var since time.Time
		if len(os.Args) > 2 {
			since, err = time.Parse("2006-01-02", os.Args[2])
			if err != nil {
				return fmt.Errorf("usage: %s export [since YYYY-MM-DD]: %w", os.Args[0], err)
			}
		}
		return exportRegistrations(cfg, since, os.Stdout)
	default:
		return fmt.Errorf("unknown command: %s\nAvailable commands: serve, migrate, pending, export, version", command)
	}
}

func serve(cfg *config.Config) error {
	// Initialise structured logger as early as possible so all subsequent log output
	// uses the configured format (json / text) and level.
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level, cfg.Telemetry.ServiceName)

	// Set Gin mode
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	table, err := languages.New(cfg.Languages)
	if err != nil {
		return fmt.Errorf("invalid language table: %w", err)
	}

	// Shared resources for the recorder sinks
	deps := recorder.Dependencies{}
	if cfg.Recorder.HasSink("postgres") {
		database, err := connectDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		// Begin exporting DB pool statistics to Prometheus.
		telemetry.StartDBStatsCollector(database.DB)

		// Run migrations automatically on startup
		slog.Info("running database migrations")
		if err := db.RunMigrations(database.DB, "up"); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		if version, dirty, err := db.GetMigrationVersion(database.DB); err != nil {
			slog.Warn("failed to get migration version", "error", err)
		} else {
			slog.Info("database schema ready", "version", version, "dirty", dirty)
		}
		deps.Registrations = repositories.NewRegistrationRepository(database)
	}
	if cfg.Recorder.HasSink("objectstore") {
		store, err := storage.NewStorage(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize storage backend: %w", err)
		}
		slog.Info("initialized storage backend", "backend", cfg.Storage.DefaultBackend)
		deps.Storage = store
	}

	rec, err := recorder.FromConfig(ctx, &cfg.Recorder, deps)
	if err != nil {
		return fmt.Errorf("failed to configure recorder: %w", err)
	}
	slog.Info("registration recorder ready", "sinks", rec.Sinks())

	// Instruction content, reloaded on change
	loader := content.NewLoader(cfg.Content.Dir, cfg.Content.CacheTTL, cfg.Content.SkipSections)
	if cfg.Content.Watch {
		safego.Go("content-watcher", func() {
			if err := loader.Watch(ctx); err != nil {
				slog.Error("content watcher stopped", "dir", cfg.Content.Dir, "error", err)
			}
		})
	}

	tokens, err := newStepTokens(cfg)
	if err != nil {
		return err
	}

	// Provisioning workflow: a fresh platform client per run
	platformOpts := platform.Options{
		BaseURL:        cfg.Platform.URL,
		Username:       cfg.Platform.AdminUser,
		Password:       cfg.Platform.AdminPassword,
		PingTimeout:    cfg.Platform.PingTimeout,
		RequestTimeout: cfg.Platform.RequestTimeout,
	}
	newClient := func() provisioning.PlatformClient { return platform.NewClient(platformOpts) }

	workflowOpts := []provisioning.Option{
		provisioning.WithUsernamePrefix(cfg.Platform.UsernamePrefix),
		provisioning.WithRole(cfg.Platform.MemberRole),
	}
	if key := os.Getenv("ENCRYPTION_KEY"); key != "" {
		sealer, err := crypto.FromKeyMaterial(key)
		if err != nil {
			return fmt.Errorf("invalid ENCRYPTION_KEY: %w", err)
		}
		workflowOpts = append(workflowOpts, provisioning.WithSealer(sealer))
	} else {
		slog.Warn("ENCRYPTION_KEY not set, generated passwords are not kept in registration records")
	}
	workflow := provisioning.NewWorkflow(newClient, table, rec, workflowOpts...)

	notifier := notify.NewAdminNotifier(&cfg.Notifications, cfg.Study.AdminEmail, cfg.Platform.URL, cfg.Study.Title)
	if !notifier.Enabled() {
		slog.Info("admin notifications disabled")
	}

	// Start Prometheus metrics endpoint on a dedicated port so it is not reachable
	// through the public API ingress path.
	if cfg.Telemetry.Metrics.Enabled {
		metricsAddr := fmt.Sprintf(":%d", cfg.Telemetry.Metrics.PrometheusPort)
		safego.Go("metrics-server", func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			slog.Info("starting Prometheus metrics server", "addr", metricsAddr)
			srv := &http.Server{
				Addr:         metricsAddr,
				Handler:      mux,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server error", "error", err)
			}
		})
	}

	// Start pprof endpoint on its own port (disabled by default).
	if cfg.Telemetry.Profiling.Enabled {
		pprofAddr := fmt.Sprintf(":%d", cfg.Telemetry.Profiling.Port)
		safego.Go("pprof-server", func() {
			slog.Info("starting pprof server", "addr", pprofAddr)
			srv := &http.Server{ // #nosec G112 -- internal-only pprof port
				Addr:         pprofAddr,
				Handler:      http.DefaultServeMux,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 30 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("pprof server error", "error", err)
			}
		})
	}

	// Create router
	router, bgServices := api.NewRouter(cfg, api.Dependencies{
		Languages:   table,
		Content:     loader,
		Tokens:      tokens,
		Provisioner: workflow,
		Notifier:    notifier,
		Platform:    platform.NewClient(platformOpts),
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.GetAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("starting server",
			"addr", cfg.Server.GetAddress(),
			"base_url", cfg.Server.BaseURL,
			"platform_url", cfg.Platform.URL,
			"languages", table.Names())

		var err error
		if cfg.Security.TLS.Enabled {
			slog.Info("TLS enabled", "cert", cfg.Security.TLS.CertFile, "key", cfg.Security.TLS.KeyFile)
			err = server.ListenAndServeTLS(cfg.Security.TLS.CertFile, cfg.Security.TLS.KeyFile)
		} else {
			err = server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// Stop the content watcher and rate limiter
	cancel()
	bgServices.Shutdown()

	slog.Info("server stopped gracefully")
	return nil
}

// newStepTokens builds the step token service. Debug mode falls back to a
// random secret so a local instance starts without configuration.
func newStepTokens(cfg *config.Config) (*wizard.Tokens, error) {
	secret := cfg.Wizard.TokenSecret
	if secret == "" {
		if gin.Mode() != gin.DebugMode {
			return nil, fmt.Errorf("wizard.token_secret is required (set REG_WIZARD_TOKEN_SECRET)")
		}
		generated, err := wizard.GenerateSecret()
		if err != nil {
			return nil, fmt.Errorf("failed to generate wizard token secret: %w", err)
		}
		slog.Warn("wizard.token_secret not set, using a random secret; step tokens will not survive a restart")
		secret = generated
	}
	tokens, err := wizard.NewTokens(secret, cfg.Wizard.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid wizard configuration: %w", err)
	}
	return tokens, nil
}

func connectDatabase(cfg *config.Config) (*sqlx.DB, error) {
	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("connected to database", "host", cfg.Database.Host, "name", cfg.Database.Name)
	return sqlx.NewDb(database, "postgres"), nil
}

func runMigrations(cfg *config.Config, direction string) error {
	database, err := connectDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	log.Printf("Running migrations: %s", direction)

	if err := db.RunMigrations(database.DB, direction); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := db.GetMigrationVersion(database.DB)
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	log.Printf("Migration completed successfully. Current version: %d (dirty: %v)", version, dirty)
	return nil
}

// listPending prints the registrations that still need manual setup
func listPending(cfg *config.Config, w io.Writer) error {
	database, err := connectDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	regs, err := repositories.NewRegistrationRepository(database).ListPending(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list pending registrations: %w", err)
	}
	for _, r := range regs {
		rec, err := r.Record()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s  %s  %-14s  %s\n",
			rec.RegisteredAt.Format(time.RFC3339), rec.ID, rec.Username, pendingReason(rec))
	}
	fmt.Fprintf(w, "%d registration(s) pending\n", len(regs))
	return nil
}

func pendingReason(rec *registration.Record) string {
	switch {
	case !rec.Reachable:
		return "platform unreachable, account not created"
	case !rec.AccountCreated:
		return "account not created"
	}
	var missing []string
	for _, a := range rec.Assignments {
		if !a.Assigned {
			missing = append(missing, a.Project)
		}
	}
	return fmt.Sprintf("projects pending: %v", missing)
}

// exportRegistrations writes every stored registration as CSV in the same
// column layout as the csv sink
func exportRegistrations(cfg *config.Config, since time.Time, w io.Writer) error {
	database, err := connectDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	regs, err := repositories.NewRegistrationRepository(database).List(context.Background(), since, 0, 0)
	if err != nil {
		return fmt.Errorf("failed to list registrations: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(registration.Header); err != nil {
		return err
	}
	for _, r := range regs {
		rec, err := r.Record()
		if err != nil {
			return err
		}
		if err := cw.Write(rec.Fields()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
