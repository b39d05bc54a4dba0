package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"quizrank-service/internal/app"
	"quizrank-service/internal/config"
	"quizrank-service/internal/domain"
	"quizrank-service/internal/infra/memory"
	transport "quizrank-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func loadConfig(path string) (config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.Load(path)
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	log := config.NewLogger(cfg)

	if cfg.Store.Driver == config.DriverPostgres {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	if cfg.Store.Driver == config.DriverMemory {
		if _, err := b.writer.SaveQuestions(ctx, sampleQuestions()); err != nil {
			return err
		}
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	catalog := app.NewCatalogService(memory.NewCatalogCache(b.loader, catalogTTL))
	handler := transport.NewHandler(
		app.NewTracker(b.store, app.SystemClock),
		app.NewLeaderboardService(b.store, app.SystemClock),
		catalog,
		cfg.Leaderboard.DefaultLimit,
	)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Infof("starting quizrank on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestions seeds the in-memory store so a fresh server is usable; use
// the seed command to load a real question bank.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:      "q1",
			Subject: "math",
			Title:   "What is 2 + 2?",
			Options: []domain.Option{
				{ID: "o1", Text: "3"},
				{ID: "o2", Text: "4", Correct: true},
				{ID: "o3", Text: "5"},
			},
			Difficulty: 1,
		},
		{
			ID:      "q2",
			Subject: "math",
			Title:   "What is 3 * 3?",
			Options: []domain.Option{
				{ID: "o4", Text: "6"},
				{ID: "o5", Text: "9", Correct: true},
				{ID: "o6", Text: "12"},
			},
			Difficulty: 1,
		},
	}
}
