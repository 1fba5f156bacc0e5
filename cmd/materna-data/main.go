package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"materna-data/internal/alert"
	"materna-data/internal/config"
	httpapi "materna-data/internal/http"
	"materna-data/internal/logger"
	"materna-data/internal/repository"
	"materna-data/internal/service"
	"materna-data/internal/tabular"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "materna-data")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	schemas := []tabular.Schema{repository.AlertsSchema(), repository.CasesSchema()}

	var db *sql.DB
	var backend tabular.Table
	switch cfg.Store.Backend {
	case config.StoreSheets:
		backend = tabular.NewSheetsTable(tabular.SheetsConfig{
			BaseURL:       cfg.Sheets.BaseURL,
			SpreadsheetID: cfg.Sheets.SpreadsheetID,
			Token:         cfg.Sheets.Token,
			Timeout:       cfg.Sheets.Timeout,
		}, log, schemas...)
	case config.StoreWorkbook:
		backend = tabular.NewWorkbookTable(cfg.Workbook.Path, log, schemas...)
	case config.StorePostgres:
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User,
			cfg.Database.Password, cfg.Database.Database, cfg.Database.SSLMode)
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			log.Fatal("postgres open failed", zap.Error(err))
		}
		pg := tabular.NewPostgresTable(db, log, schemas...)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			log.Fatal("postgres schema bootstrap failed", zap.Error(err))
		}
		backend = pg
	case config.StoreMemory:
		log.Warn("using in-memory store; data is lost on restart")
		backend = tabular.NewMemoryTable(schemas...)
	default:
		log.Fatal("unknown store backend", zap.String("backend", cfg.Store.Backend))
	}

	var redisClient *redis.Client
	var cache tabular.RowCache
	switch cfg.Cache.Backend {
	case config.CacheRedis:
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cache = tabular.NewRedisRowCache(redisClient, "materna:", cfg.Store.CacheTTL, log)
	default:
		cache = tabular.NewMemoryRowCache(cfg.Store.CacheTTL, nil)
	}
	store := tabular.NewCachedTable(backend, cache, log)

	casesRepo := repository.NewCasesRepository(store, log)
	alertsRepo := repository.NewAlertsRepository(store, log)
	reconciler := alert.NewReconciler(alertsRepo, log, nil)
	query := alert.NewQuery(alertsRepo)
	caseSvc := service.NewCaseService(casesRepo, reconciler, query, log, nil)

	var verifier httpapi.TokenVerifier
	if cfg.Auth.Mode == config.AuthRemote {
		verifier = httpapi.NewRemoteVerifier(cfg.Auth.IntrospectURL, cfg.Auth.IntrospectToken, cfg.Auth.Timeout, log)
	} else {
		log.Warn("static auth mode enabled; do not expose this instance publicly")
		verifier = httpapi.NewStaticVerifier(cfg.Auth.StaticToken)
	}

	router := httpapi.NewRouter(log)
	router.RegisterHealthRoute()
	router.RegisterCatalogRoutes(httpapi.NewCatalogHandler(), verifier)
	router.RegisterCaseRoutes(httpapi.NewCaseHandler(caseSvc, log), verifier)
	router.RegisterAlertRoutes(httpapi.NewAlertHandler(query, log), verifier)

	srv := service.NewServer(cfg.HTTP.Addr, httpapi.WithRequestLogging(log, router), log)

	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case err := <-errCh:
		log.Error("HTTP server stopped", zap.Error(err))
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}
}
