package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"quizmaster-service/internal/app"
	"quizmaster-service/internal/auth"
	"quizmaster-service/internal/config"
	"quizmaster-service/internal/infra/memory"
	"quizmaster-service/internal/infra/openai"
	"quizmaster-service/internal/infra/opentdb"
	pgstore "quizmaster-service/internal/infra/postgres"
	rediscache "quizmaster-service/internal/infra/redis"
	"quizmaster-service/internal/logging"
	"quizmaster-service/internal/sharecode"
	transport "quizmaster-service/internal/transport/http"
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

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		quizzes app.QuizStore
		ledger  app.RankingLedger
	)
	if cfg.Postgres.URL != "" {
		if err := RunMigrations(ctx, cfg.Postgres.URL, logger); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		quizzes = pgstore.NewQuizStore(pool)
		ledger = pgstore.NewLedger(pool)
		logger.Info("using postgres storage")
	} else {
		store := memory.NewStore()
		quizzes, ledger = store, store
		logger.Warn("postgres not configured, quizzes are kept in memory")
	}

	var notifier app.RankingNotifier = memory.NewNotifier()
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis ping failed, continuing", "addr", cfg.Redis.Addr, "error", err)
		}
		cacheTTL := config.Duration(cfg.Redis.TTL, 10*time.Minute)
		quizzes = rediscache.NewCachedQuizStore(quizzes, redisClient, cacheTTL, logger)
		notifier = rediscache.NewNotifier(redisClient)
		logger.Info("using redis cache and ranking notifier", "addr", cfg.Redis.Addr, "ttl", cacheTTL)
	}

	opts := []app.Option{
		app.WithCodeGenerator(sharecode.New(sharecode.WithMaxAttempts(cfg.Quiz.CodeAttempts))),
		app.WithNotifier(notifier),
		app.WithLogger(logger),
	}
	aiTimeout := config.Duration(cfg.AI.Timeout, 30*time.Second)
	if drafts := newDraftGenerator(cfg, aiTimeout); drafts != nil {
		opts = append(opts, app.WithDraftGenerator(drafts, aiTimeout))
		logger.Info("draft generation enabled", "provider", cfg.AI.Provider)
	}
	service := app.NewQuizService(quizzes, ledger, opts...)

	authn := auth.New(cfg.Auth.Secret)
	if !authn.Enabled() {
		logger.Warn("auth.secret is empty, author endpoints are unauthenticated")
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	router := transport.NewRouter(service, authn, transport.RouterConfig{
		CORSOrigins:    cfg.Server.CORSOrigins,
		RequestTimeout: config.Duration(cfg.Server.RequestTimeout, 10*time.Second),
	}, logger)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting quiz service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newDraftGenerator(cfg config.Config, timeout time.Duration) app.DraftGenerator {
	httpClient := &http.Client{Timeout: timeout}
	switch cfg.AI.Provider {
	case "openai":
		return openai.NewClient(httpClient, cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model)
	case "opentdb":
		return opentdb.NewClient(httpClient, cfg.AI.BaseURL)
	default:
		return nil
	}
}
