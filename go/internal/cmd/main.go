package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hectoclash/server/go/internal/auth"
	"github.com/hectoclash/server/go/internal/challenge"
	"github.com/hectoclash/server/go/internal/gateway"
	"github.com/hectoclash/server/go/internal/models"
	"github.com/hectoclash/server/go/internal/presence"
	"github.com/hectoclash/server/go/internal/profile"
	"github.com/hectoclash/server/go/internal/puzzle"
	"github.com/hectoclash/server/go/internal/results"
	"github.com/hectoclash/server/go/internal/session"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}

	cfg, err := loadConfigFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewRealClock()

	// Profile store: postgres when configured, otherwise bare-ID fallback
	var profiles profile.Store
	var pgStore *profile.PGStore
	if cfg.Postgres.Enabled {
		pgStore, err = profile.NewPGStore(ctx, cfg.Postgres.DSN())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		defer pgStore.Close()
		profiles = pgStore
	} else {
		log.Info().Msg("postgres disabled, using static profile store")
		profiles = profile.NewStaticStore()
	}

	generator := puzzle.NewGenerator(time.Now().UnixNano(), cfg.Game.Target, cfg.Game.DigitCount, cfg.Game.GeneratorMaxAttempts)

	recorder, cleanup := buildRecorder(ctx, cfg)
	defer cleanup()

	coordinator := session.NewCoordinator(generator, recorder, clock, cfg.Game.TimeLimit)
	registry := presence.NewRegistry(profiles, clock, cfg.Game.HeartbeatInterval, coordinator.HandleDisconnect)
	negotiator := challenge.NewNegotiator(registry, coordinator, clock, cfg.Game.ChallengeTimeout)

	dispatcher := gateway.NewDispatcher(registry, negotiator, coordinator)
	manager := gateway.NewConnectionManager(gateway.DefaultConnectionConfig(), dispatcher.Dispatch, dispatcher.HandleClose)

	var verifier *auth.Verifier
	if cfg.Auth.Enabled {
		if cfg.Auth.JWTSecret == "" {
			log.Fatal().Msg("auth enabled but no jwt_secret configured")
		}
		verifier = auth.NewVerifier(cfg.Auth.JWTSecret)
	} else {
		log.Warn().Msg("auth disabled, connections identify via user-online only")
	}
	gw := gateway.NewHandler(manager, verifier)

	go registry.RunSweeper(ctx)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      newRouter(gw, manager, registry, negotiator, coordinator, recorder.leaderboard),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("duel server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	cancel()

	log.Info().Msg("duel server shutdown complete")
}

// loadConfigFromEnv loads the YAML config named by CONFIG_PATH, falling back
// to built-in defaults when unset.
func loadConfigFromEnv() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		log.Info().Msg("CONFIG_PATH unset, using default configuration")
		return DefaultConfig(), nil
	}
	log.Info().Str("path", path).Msg("loading configuration")
	return LoadConfig(path)
}

// recorderSink adapts the best-effort results backends to the session
// coordinator's fire-and-forget contract and keeps the leaderboard handle
// around for the HTTP endpoint.
type recorderSink struct {
	inner       results.Recorder
	leaderboard *results.Leaderboard
}

func (r recorderSink) Record(ctx context.Context, rec models.GameRecord) {
	if err := r.inner.Record(ctx, rec); err != nil {
		log.Error().Err(err).Str("session_id", rec.SessionID).Msg("failed to record game result")
	}
}

// buildRecorder assembles the configured result backends. Disabled backends
// leave a no-op in place so the server runs standalone.
func buildRecorder(ctx context.Context, cfg *Config) (recorderSink, func()) {
	var backends results.MultiRecorder
	var closers []func()

	if cfg.NATS.Enabled {
		jsCfg := results.DefaultJetStreamConfig()
		jsCfg.URL = cfg.NATS.URL
		jsCfg.StreamName = cfg.NATS.Stream
		jsCfg.SubjectPrefix = cfg.NATS.SubjectPrefix
		publisher, err := results.NewJetStreamPublisher(jsCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		backends = append(backends, publisher)
		closers = append(closers, func() { publisher.Close() })
	}

	var leaderboard *results.Leaderboard
	if cfg.Redis.Enabled {
		lb, err := results.NewLeaderboardFromAddr(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		leaderboard = lb
		backends = append(backends, lb)
		closers = append(closers, func() { lb.Close() })
	}

	var inner results.Recorder = results.NopRecorder{}
	if len(backends) > 0 {
		inner = backends
	}

	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}
	return recorderSink{inner: inner, leaderboard: leaderboard}, cleanup
}
