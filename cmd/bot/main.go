package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"hotel_finder/internal/adapters/hotels"
	server "hotel_finder/internal/adapters/http_server"
	"hotel_finder/internal/adapters/memory"
	"hotel_finder/internal/adapters/observability"
	redisad "hotel_finder/internal/adapters/redis"
	"hotel_finder/internal/app"
	"hotel_finder/internal/domain"
	"hotel_finder/internal/shared"
	mysqlrepo "hotel_finder/internal/storage/mysql"
)

type history interface {
	domain.HistoryRepository
	domain.UserRepository
}

func main() {
	cfg, err := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// storage
	var repo history
	switch cfg.StorageBackend {
	case "memory":
		repo = memory.NewHistoryStore()
		log.Warn().Msg("history kept in memory; it is lost on restart")
	default:
		db, err := mysqlrepo.Open(cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("mysql connect failed")
		}
		defer db.Close()
		if err := mysqlrepo.Migrate(db); err != nil {
			log.Fatal().Err(err).Msg("migrations failed")
		}
		log.Info().Msg("database connection ok")
		repo = mysqlrepo.New(db)
	}

	var (
		states domain.StateStore
		cache  domain.Cache
	)
	switch cfg.StateBackend {
	case "memory":
		states = memory.NewStateStore()
		cache = memory.NewCache(cfg.CacheTTL)
	default:
		rc := redisad.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		states = redisad.NewStateStore(rc, cfg.StateTTL)
		cache = redisad.NewCache(rc)
	}

	// provider
	client, err := hotels.New(hotels.Options{
		Base:     cfg.HotelsBase,
		Host:     cfg.HotelsHost,
		Key:      cfg.HotelsKey,
		Locale:   cfg.Locale,
		Timeout:  cfg.ProviderTimeout,
		RPS:      cfg.ProviderRPS,
		PageSize: cfg.PageSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize hotels client")
	}

	// core
	search := app.NewSearchService(client, cache, cfg.CacheTTL, nil, cfg.DetailWorkers)
	hist := app.NewHistoryService(repo, cfg.HistoryLimit)
	machine := app.NewMachine(search, hist, app.MachineConfig{
		MaxResults: cfg.MaxResults,
		MaxImages:  cfg.MaxImages,
		Commands:   cfg.Commands,
	})
	// list + detail round trips, sequential in the worst case
	transition := 3 * cfg.ProviderTimeout
	dispatcher := app.NewDispatcher(machine, states, repo, transition)

	// http
	srv := server.New(transition + 5*time.Second)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Events: dispatcher, History: hist}, cfg.BotToken)

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Str("storage", cfg.StorageBackend).Str("state", cfg.StateBackend).Msg("bot listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("bot stopped")
}
