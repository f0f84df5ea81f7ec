package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/pgxstore"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/liondandelion/opengost/internal/config"
	mdb "github.com/liondandelion/opengost/internal/db"
	mhttp "github.com/liondandelion/opengost/internal/http"
	"github.com/liondandelion/opengost/internal/registry"
	"github.com/liondandelion/opengost/internal/utils"
)

func main() {
	configPath := pflag.String("config", "", "config file (yaml, toml or json)")
	envPath := pflag.String("env", ".env", "dotenv file, ignored when missing")
	pflag.Parse()

	log := utils.Logger()
	if err := config.LoadDotEnv(*envPath); err != nil {
		log.Fatal().Err(err).Msg("Main: unable to load .env")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Main: unable to load config")
	}
	if err := utils.SetLogLevel(cfg.LogLevel); err != nil {
		log.Fatal().Err(err).Msg("Main: bad log level")
	}
	if err := utils.SetLogFormat(cfg.LogFormat); err != nil {
		log.Fatal().Err(err).Msg("Main: bad log format")
	}
	log = utils.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := registry.Default()

	engine, err := loadSignKey(cfg.SignKeyPath, cfg.Curve)
	if err != nil {
		log.Fatal().Err(err).Msg("Main: unable to load sign key")
	}
	defer engine.Close()
	key, err := mhttp.NewServiceKey(reg, engine)
	if err != nil {
		log.Fatal().Err(err).Msg("Main: unable to bind sign key")
	}

	sealKey, err := loadSealKey(cfg.SealKeyPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Main: unable to load seal key")
	}
	sealer, err := mhttp.NewSealer(sealKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Main: unable to create sealer")
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.SessionLifetime
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.SameSite = http.SameSiteStrictMode

	var store mdb.Store
	if cfg.PostgresURL == mdb.MemoryURL {
		log.Warn().Msg("Main: using the in-memory store, nothing will be persisted")
		store = mdb.NewMemory()
		sessionManager.Store = memstore.New()
	} else {
		dbPool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Main: unable to create connection pool")
		}
		defer dbPool.Close()

		db := mdb.Create(dbPool)
		if err := db.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("Main: unable to migrate")
		}
		store = db
		sessionManager.Store = pgxstore.New(dbPool)
	}

	deps := mhttp.Deps{
		Store:    store,
		Sessions: mdb.NewSessions(sessionManager),
		Sealer:   sealer,
		Registry: reg,
		Key:      key,
		Config:   cfg,
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Main: shutdown")
		}
	}()

	log.Info().
		Str("addr", cfg.ListenAddr).
		Str("algorithm", key.Algorithm()).
		Str("curve", key.Curve()).
		Msg("Main: listening")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Main: server failed")
	}
}
