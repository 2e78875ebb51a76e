package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chapter-quiz-service/internal/app"
	"chapter-quiz-service/internal/config"
	"chapter-quiz-service/internal/infra/memory"
	redisinfra "chapter-quiz-service/internal/infra/redis"
	"chapter-quiz-service/internal/logger"
	transport "chapter-quiz-service/internal/transport/http"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string, envPort string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
	cmd.Flags().StringVar(port, "port", envPort, "port to listen on (overrides config)")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

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

	handler := transport.NewHandler(buildServices(cfg, b, log), transport.CookieConfig{
		Name:   cfg.Session.Cookie,
		Secure: cfg.Session.Secure,
		MaxAge: config.TTLDuration(cfg.Session.TTL, 24*time.Hour),
	}, log)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	go func() {
		log.Info("starting quiz service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.TTLDuration(cfg.Server.ShutdownTimeout, 5*time.Second))
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildServices(cfg config.Config, b *backend, log *logger.Logger) transport.Services {
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	sessionTTL := config.TTLDuration(cfg.Session.TTL, 24*time.Hour)

	var answers app.AnswerKeyRepository
	var sessions app.SessionRepository
	if b.redis != nil {
		answers = redisinfra.NewAnswerKeyRepository(b.redis, b.store, quizTTL, log)
		sessions = redisinfra.NewSessionStore(b.redis, sessionTTL)
	} else {
		answers = memory.NewAnswerKeyRepository(b.store, quizTTL)
		sessions = memory.NewSessionStore(sessionTTL)
	}

	ranking := app.NewRankingService(b.store, b.store, log)
	return transport.Services{
		Auth:      app.NewAuthService(b.store, sessions, cfg.Auth.BcryptCost, log),
		Authoring: app.NewAuthoringService(b.store, log),
		Delivery:  app.NewDeliveryService(b.store, log),
		Scoring:   app.NewScoringService(answers, b.store, ranking, log),
		Ranking:   ranking,
	}
}
