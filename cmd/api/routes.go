package main

import (
	"context"
	"net/http"
	"time"

	"bookrec/internal/auth"
	"bookrec/internal/book"
	"bookrec/internal/httpx"
	"bookrec/internal/rating"
	"bookrec/internal/recommend"
	"bookrec/internal/user"
	"bookrec/internal/wishlist"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const maxRequestBytes = 1 << 20

type pinger interface {
	Ping(ctx context.Context) error
}

type handlers struct {
	books     *book.HTTPHandler
	users     *user.HTTPHandler
	auth      *auth.HTTPHandler
	ratings   *rating.HTTPHandler
	wishlist  *wishlist.HTTPHandler
	recommend *recommend.HTTPHandler
}

type routerDeps struct {
	handlers
	db          pinger
	jwtSecret   string
	sessions    httpx.SessionResolver
	gatherer    prometheus.Gatherer
	httpMetrics *httpx.HTTPMetrics
	rateLimiter *httpx.RateLimiter
	corsOrigins []string
	logger      zerolog.Logger
}

func newRouter(d routerDeps) http.Handler {
	mux := http.NewServeMux()
	protect := httpx.AuthMiddleware(d.jwtSecret, d.sessions)
	authed := func(h http.HandlerFunc) http.Handler { return protect(h) }

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := d.db.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(d.gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /users/register", d.users.Register)
	mux.HandleFunc("POST /users/login", d.auth.Login)
	mux.Handle("POST /users/logout", authed(d.auth.Logout))
	mux.Handle("GET /me", authed(d.users.Me))

	mux.HandleFunc("GET /books", d.books.List)
	mux.HandleFunc("GET /books/{id}", d.books.Get)
	mux.HandleFunc("GET /books/{id}/metadata", d.books.Metadata)
	mux.Handle("POST /books/{id}/rating", authed(d.ratings.Rate))
	mux.Handle("GET /books/{id}/rating", authed(d.ratings.Get))

	mux.Handle("GET /me/ratings", authed(d.ratings.ListMine))
	mux.Handle("POST /me/wishlist/{id}", authed(d.wishlist.Toggle))
	mux.Handle("GET /me/wishlist", authed(d.wishlist.List))
	mux.Handle("GET /me/recommendations", authed(d.recommend.Recommend))

	mws := []httpx.Middleware{
		httpx.RequestIDMiddleware,
		httpx.RecoveryMiddleware(d.logger),
		httpx.AccessLogMiddleware(d.logger),
		httpx.SecurityHeadersMiddleware(false),
		httpx.CORSMiddleware(d.corsOrigins),
	}
	if d.rateLimiter != nil {
		mws = append(mws, d.rateLimiter.Middleware)
	}
	mws = append(mws, httpx.RequestSizeLimitMiddleware(maxRequestBytes))
	if d.httpMetrics != nil {
		// Innermost, so r.Pattern is set by the mux before it is read.
		mws = append(mws, d.httpMetrics.Middleware)
	}
	return httpx.Chain(mux, mws...)
}
