package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"knowledgebase/internal/app"
	"knowledgebase/internal/assets"
	"knowledgebase/internal/authpw"
	"knowledgebase/internal/config"
	"knowledgebase/internal/gitrepo"
	"knowledgebase/internal/logging"
	"knowledgebase/internal/search"
	"knowledgebase/internal/session"
	"knowledgebase/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults to $KB_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()

	db, err := store.Open(ctx, cfg.Database.URL, store.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Fatal("database connection failed", "error", err)
	}
	defer db.Close()

	if _, err := store.ApplyMigrations(ctx, db, cfg.Database.MigrationsDir, logger.With("component", "migrate")); err != nil {
		logger.Fatal("migrations failed", "error", err)
	}

	if err := os.MkdirAll(cfg.Repos.Dir, 0o755); err != nil {
		logger.Fatal("failed to create repos dir", "dir", cfg.Repos.Dir, "error", err)
	}

	dataStore := store.NewPostgresStore(db)
	gitService := gitrepo.New(cfg.Repos.Dir)

	pgfts := search.NewPgFTS(db)
	var searchService *search.Service
	if strings.TrimSpace(cfg.Meili.URL) != "" {
		meiliClient := search.NewMeili(cfg.Meili.URL, cfg.Meili.MasterKey, cfg.Meili.Index, logger)
		defer meiliClient.Close()
		searchService = search.NewService(meiliClient, pgfts, pgfts, logger)
	} else {
		logger.Info("meilisearch not configured, using postgres full-text search")
		searchService = search.NewService(nil, pgfts, pgfts, logger)
	}

	var editorStore session.Store
	if strings.TrimSpace(cfg.Redis.URL) != "" {
		redisStore, err := session.NewRedisStore(cfg.Redis.URL, cfg.Redis.EditorStateTTL)
		if err != nil {
			logger.Fatal("redis connection failed", "error", err)
		}
		defer redisStore.Close()
		editorStore = redisStore
	} else {
		logger.Info("redis not configured, keeping editor state in memory")
		editorStore = session.NewMemoryStore(cfg.Redis.EditorStateTTL)
	}

	var objects assets.ObjectStore
	if strings.TrimSpace(cfg.Minio.Endpoint) != "" {
		minioStore, err := assets.NewMinioStore(ctx, cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.Bucket, cfg.Minio.UseSSL)
		if err != nil {
			logger.Fatal("object storage unavailable", "endpoint", cfg.Minio.Endpoint, "error", err)
		}
		objects = minioStore
	} else {
		logger.Info("minio not configured, image uploads disabled")
	}

	service := app.New(cfg, app.Dependencies{
		Store:     dataStore,
		Git:       gitService,
		Search:    searchService,
		Editor:    editorStore,
		Assets:    assets.NewService(objects, dataStore),
		Passwords: authpw.NewService(dataStore),
		Log:       logger,
	})
	if err := service.Bootstrap(ctx, authpw.SignUpRequest{
		Email:       cfg.Seed.AdminEmail,
		Password:    cfg.Seed.AdminPassword,
		DisplayName: cfg.Seed.AdminName,
		Role:        "admin",
	}); err != nil {
		logger.Warn("bootstrap error (will retry on next restart)", "error", err)
	}
	go searchService.ReindexAll(ctx)

	httpServer := app.NewHTTPServer(service, cfg.Server.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("knowledge base API listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	searchService.Wait()
}
