package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"knowledge-race/internal/app"
	"knowledge-race/internal/config"
	"knowledge-race/internal/infra/gemini"
	"knowledge-race/internal/infra/memory"
	natsbus "knowledge-race/internal/infra/nats"
	"knowledge-race/internal/infra/postgres"
	redisstore "knowledge-race/internal/infra/redis"
	transport "knowledge-race/internal/transport/http"
)

func newStartCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the race server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), opts)
		},
	}
}

func runServer(ctx context.Context, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	port := cfg.Server.Port
	if port == "" {
		port = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	provider, err := questionSource(ctx, cfg, pool)
	if err != nil {
		return err
	}
	// A zero TTL only de-duplicates concurrent starts; every start draws a fresh set.
	cacheTTL := config.TTLDuration(cfg.Questions.CacheTTL, 0)
	if redisClient != nil {
		provider = redisstore.NewQuestionRepository(redisClient, provider, cacheTTL)
	} else {
		provider = memory.NewQuestionRepository(provider, cacheTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisstore.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 2*time.Hour))
	} else {
		store = memory.NewSessionStore()
	}

	var sink app.EventSink
	if cfg.NATS.URL != "" {
		nc, err := natsbus.Connect(cfg.NATS.URL)
		if err != nil {
			return err
		}
		defer func() {
			if err := nc.Drain(); err != nil {
				log.Warn().Err(err).Msg("NATS drain failed")
			}
		}()
		sink = natsbus.NewEventPublisher(nc, cfg.NATS.SubjectPrefix)
		log.Info().Str("url", cfg.NATS.URL).Msg("publishing round events to NATS")
	}

	service := app.NewGameService(store, provider, app.ServiceOptions{
		Match: app.MatchOptions{
			TimeLimit:     cfg.Game.TimeLimit,
			TickThreshold: tickThreshold(cfg),
			Award:         cfg.Game.Award,
		},
		QuestionCount:   cfg.Game.QuestionsPerMatch,
		AdvanceDelay:    advanceDelay(cfg),
		ProviderTimeout: config.TTLDuration(cfg.Generator.Timeout, app.DefaultProviderTimeout),
		Sink:            sink,
	})

	server := &http.Server{
		Addr: net.JoinHostPort(cfg.Server.Bind, port),
		Handler: transport.NewRouter(service, transport.RouterOptions{
			PublicURL:      cfg.Server.PublicURL,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		}),
		ReadHeaderTimeout: 15 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting knowledge race server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server...")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server...")
	case err := <-errs:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// questionSource picks the uncached provider: the generator when it has a key,
// otherwise the question bank, otherwise the generator anyway so a missing key
// surfaces as the offline set with a warning.
func questionSource(ctx context.Context, cfg config.Config, pool *pgxpool.Pool) (app.QuestionProvider, error) {
	generator, err := gemini.NewClient(ctx, gemini.Options{
		BaseURL: cfg.Generator.BaseURL,
		APIKey:  cfg.Generator.APIKey,
		Model:   cfg.Generator.Model,
		Topic:   cfg.Generator.Topic,
		Timeout: config.TTLDuration(cfg.Generator.Timeout, 30*time.Second),
	})
	if err != nil {
		return nil, err
	}
	switch {
	case cfg.Generator.APIKey != "":
		log.Info().Str("model", cfg.Generator.Model).Msg("questions from generator")
		return generator, nil
	case pool != nil:
		log.Info().Msg("questions from postgres bank")
		return postgres.NewQuestionBank(pool), nil
	default:
		log.Warn().Msg("no generator api key or question bank configured; matches will use the offline set")
		return generator, nil
	}
}

// advanceDelay maps game.advanceDelay: unset keeps the default, an explicit
// zero or "off" disables the automatic advance.
func advanceDelay(cfg config.Config) time.Duration {
	raw := strings.TrimSpace(cfg.Game.AdvanceDelay)
	switch raw {
	case "":
		return 0
	case "off":
		return app.NoAutoAdvance
	}
	d := config.TTLDuration(raw, app.DefaultAdvanceDelay)
	if d <= 0 {
		return app.NoAutoAdvance
	}
	return d
}

// tickThreshold maps game.tickThreshold: unset keeps the default, an explicit
// zero turns tick signals off.
func tickThreshold(cfg config.Config) int {
	switch {
	case cfg.Game.TickThreshold == nil:
		return 0
	case *cfg.Game.TickThreshold <= 0:
		return app.NoTickSignals
	default:
		return *cfg.Game.TickThreshold
	}
}
