package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mediagate/internal/downloader"
	"mediagate/internal/server"
	"mediagate/pkg/apikey"
	"mediagate/pkg/config"
	"mediagate/pkg/credentials"
	"mediagate/pkg/extractor"
	"mediagate/pkg/logger"
	"mediagate/pkg/progress"
	"mediagate/pkg/ratelimit"
	"mediagate/pkg/storage"
	"mediagate/pkg/ui"
	"mediagate/pkg/youtube"
)

var (
	servePort      int
	serveHost      string
	serveBackend   string
	serveStateFile string
	serveOutput    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server.

The YouTube API key is read from API_KEY (also from a .env file), the config
file, or the credential store ('mediagate credentials set'). The server
refuses to start without one, and also when the rate limit state file exists
but cannot be parsed.`,
	Example: `  # Listen on the default port 10000
  API_KEY=... mediagate serve

  # Keep limiter state in memory only
  mediagate serve --backend memory --port 8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default $PORT or 10000)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen address")
	serveCmd.Flags().StringVar(&serveBackend, "backend", "", "rate limit backend: file, memory or redis")
	serveCmd.Flags().StringVar(&serveStateFile, "state-file", "", "rate limit state file for the file backend")
	serveCmd.Flags().StringVarP(&serveOutput, "output", "o", "", "directory for downloaded media")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(map[string]interface{}{
		"port":       servePort,
		"host":       serveHost,
		"backend":    serveBackend,
		"state-file": serveStateFile,
		"output":     serveOutput,
	})
	if err != nil {
		return err
	}

	if cfg.YouTube.APIKey == "" {
		cfg.YouTube.APIKey = storedAPIKey()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetLogger(log)

	if term.IsTerminal(int(os.Stdout.Fd())) {
		ui.PrintLogo(cmd.OutOrStdout(), version)
		printStartupNotes(cmd.OutOrStdout(), cfg)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg.RateLimit)
	if err != nil {
		return fmt.Errorf("failed to open rate limit state: %w", err)
	}
	defer closeStore()

	limiter := ratelimit.New(store,
		ratelimit.WithMaxAttempts(cfg.RateLimit.MaxAttempts),
		ratelimit.WithWindow(cfg.RateLimit.Window),
	)

	library, err := storage.NewManager(cfg.Media.OutputDir)
	if err != nil {
		return err
	}

	cfg.Media.OutputDir = library.OutputDir()

	metrics := server.NewMetrics()
	hub := progress.NewHub(progress.DefaultInterval)
	pool := downloader.NewWorkerPool(
		cfg.Media.Workers,
		extractor.New(cfg.Media, log),
		hub,
		library,
		log,
		downloader.WithObserver(metrics.ObserveDownload),
	)
	pool.Start()
	defer pool.Stop()

	srv := server.New(cfg.Server, server.Deps{
		Limiter:  limiter,
		Channels: youtube.NewClient(cfg.YouTube, log),
		Pool:     pool,
		Hub:      hub,
		Library:  library,
		Keys:     apikey.NewMemoryIssuer(),
		Metrics:  metrics,
	}, log)

	go server.NewSweeper(library, hub, cfg.Media.Retention, log).Run(ctx)

	log.InfoWithFields("mediagate starting", map[string]interface{}{
		"addr":          cfg.Server.Addr(),
		"api_key":       cfg.MaskedAPIKey(),
		"backend":       cfg.RateLimit.Backend,
		"max_attempts":  cfg.RateLimit.MaxAttempts,
		"window":        cfg.RateLimit.Window.String(),
		"media_dir":     library.OutputDir(),
		"media_workers": cfg.Media.Workers,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Graceful shutdown did not complete")
	}
	log.Info("mediagate stopped")
	return nil
}

// printStartupNotes tells an operator at a terminal where the server
// listens and which settings lose state or open the service up
func printStartupNotes(w io.Writer, cfg *config.Config) {
	ui.PrintHighlight(w, fmt.Sprintf("Listening on http://%s (downloads at /instagram)", cfg.Server.Addr()))
	if cfg.RateLimit.Backend == config.BackendMemory {
		ui.PrintWarning(w, "Rate limit state is kept in memory and resets on restart")
	}
	if cfg.Media.Retention == 0 {
		ui.PrintWarning(w, "Media retention is disabled; downloads are never removed")
	}
	if !cfg.Server.RequireAPIKey {
		ui.PrintWarning(w, "API keys are not required; anyone can reach the rate-limited endpoints")
	}
}

// storedAPIKey falls back to the credential store when no key was
// configured
func storedAPIKey() string {
	manager, err := credentials.NewManager("")
	if err != nil {
		return ""
	}
	return manager.Secret(credentials.YouTubeAPIKey)
}
