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

	"bookrec/internal/auth"
	"bookrec/internal/book"
	"bookrec/internal/config"
	"bookrec/internal/httpx"
	"bookrec/internal/metadata"
	"bookrec/internal/platform/googlebooks"
	"bookrec/internal/platform/logger"
	"bookrec/internal/platform/openlibrary"
	"bookrec/internal/rating"
	"bookrec/internal/recommend"
	"bookrec/internal/session"
	"bookrec/internal/user"
	"bookrec/internal/wishlist"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const sessionCleanupInterval = 10 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "bookrec: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := openDB(ctx, cfg.DSN, log)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	bookRepository := book.NewPostgresRepo(dbPool, cfg.DBTimeout)
	catalog, err := loadCatalog(ctx, bookRepository, cfg.CatalogCSV, log)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	fetcher := newFetcher(cfg, registry, log)

	userService := user.NewService(user.NewPostgresRepo(dbPool, cfg.DBTimeout))
	sessionService := session.NewService(session.NewPostgresRepo(dbPool, cfg.DBTimeout), cfg.SessionTTL)
	authService := auth.NewService(cfg.JWTSecret, userService, sessionService)
	bookService := book.NewService(catalog, fetcher)
	ratingService := rating.NewService(rating.NewPostgresRepo(dbPool, cfg.DBTimeout), catalog)
	wishlistService := wishlist.NewService(wishlist.NewPostgresRepo(dbPool, cfg.DBTimeout), catalog)
	scorer := recommend.NewScorer(ratingService, wishlistService, catalog, fetcher, cfg.RecommendConcurrency)

	router := newRouter(routerDeps{
		handlers: handlers{
			books:     book.NewHTTPHandler(bookService),
			users:     user.NewHTTPHandler(userService),
			auth:      auth.NewHTTPHandler(authService),
			ratings:   rating.NewHTTPHandler(ratingService),
			wishlist:  wishlist.NewHTTPHandler(wishlistService),
			recommend: recommend.NewHTTPHandler(scorer, cfg.RecommendLimit),
		},
		db:          dbPool,
		jwtSecret:   cfg.JWTSecret,
		sessions:    sessionService,
		gatherer:    registry,
		httpMetrics: httpx.NewHTTPMetrics(registry),
		rateLimiter: httpx.NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst),
		corsOrigins: cfg.CORSOrigins,
		logger:      log,
	})

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Int("books", catalog.Len()).Msg("starting server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		sessionService.RunCleanup(gctx, sessionCleanupInterval, log)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openDB(ctx context.Context, dsn string, log zerolog.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create db pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database (%s): %w", config.RedactDSN(dsn), err)
	}
	log.Info().Str("dsn", config.RedactDSN(dsn)).Msg("database connection OK")
	return pool, nil
}

// loadCatalog reads the catalog from Postgres. An empty catalog is seeded
// from csvPath first when one is configured.
func loadCatalog(ctx context.Context, repo *book.PostgresRepo, csvPath string, log zerolog.Logger) (*book.Catalog, error) {
	catalog, err := book.LoadCatalog(ctx, repo)
	if err != nil {
		return nil, err
	}
	if catalog.Len() > 0 || csvPath == "" {
		return catalog, nil
	}

	n, err := importCSV(ctx, repo, csvPath)
	if err != nil {
		return nil, err
	}
	log.Info().Int("books", n).Str("path", csvPath).Msg("catalog seeded from csv")
	if err := catalog.Reload(ctx); err != nil {
		return nil, err
	}
	return catalog, nil
}

func importCSV(ctx context.Context, repo book.Repository, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open catalog csv: %w", err)
	}
	defer f.Close()

	books, err := book.ParseCSV(f)
	if err != nil {
		return 0, fmt.Errorf("parse catalog csv: %w", err)
	}
	return repo.Import(ctx, books)
}

func newFetcher(cfg config.Config, reg prometheus.Registerer, log zerolog.Logger) *metadata.Fetcher {
	metaCfg := metadata.DefaultConfig()
	metaCfg.MaxAttempts = cfg.MetadataMaxAttempts
	metaCfg.BaseDelay = cfg.MetadataBackoffBase
	metaCfg.CacheSize = cfg.MetadataCacheSize
	metaCfg.CacheTTL = cfg.MetadataCacheTTL

	openLibrary := openlibrary.NewClient(cfg.UserAgent, cfg.MetadataRPS, cfg.MetadataTimeout)
	googleBooks := googlebooks.NewClient(cfg.GoogleBooksAPIKey, cfg.UserAgent, cfg.MetadataRPS, cfg.MetadataTimeout)

	return metadata.NewFetcher(
		openLibrary,
		[]metadata.Source{googleBooks, openLibrary},
		metaCfg,
		metadata.WithLogger(log.With().Str("component", "metadata").Logger()),
		metadata.WithMetrics(metadata.NewMetrics(reg)),
	)
}
