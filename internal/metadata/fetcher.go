package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// Config controls the retry, circuit breaker and cache behavior of a Fetcher.
type Config struct {
	MaxAttempts int
	// BaseDelay is the wait before the second attempt; it doubles for each later one.
	BaseDelay time.Duration

	BreakerFailures uint32
	BreakerTimeout  time.Duration

	// CacheSize of zero disables caching.
	CacheSize int
	CacheTTL  time.Duration
}

// DefaultConfig returns the retry contract used by the service.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     3,
		BaseDelay:       500 * time.Millisecond,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
		CacheTTL:        time.Hour,
	}
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the logger used for retry and failure diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(f *Fetcher) { f.log = l }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(f *Fetcher) { f.metrics = m }
}

// Fetcher resolves genres and descriptions for books from unreliable upstream
// services. It never returns an error: every failure path yields a sentinel.
type Fetcher struct {
	genres       Source
	descriptions []Source
	cfg          Config
	log          zerolog.Logger
	metrics      *Metrics
	breakers     map[string]*gobreaker.CircuitBreaker[*Record]
	cache        *expirable.LRU[string, *Record]
}

// NewFetcher builds a Fetcher. descriptions is the fallback chain, primary first.
func NewFetcher(genres Source, descriptions []Source, cfg Config, opts ...Option) *Fetcher {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = DefaultConfig().BreakerFailures
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = DefaultConfig().BreakerTimeout
	}

	f := &Fetcher{
		genres:       genres,
		descriptions: descriptions,
		cfg:          cfg,
		log:          zerolog.Nop(),
		breakers:     make(map[string]*gobreaker.CircuitBreaker[*Record]),
	}
	for _, opt := range opts {
		opt(f)
	}

	sources := append([]Source{genres}, descriptions...)
	for _, src := range sources {
		if src == nil {
			continue
		}
		if _, ok := f.breakers[src.Name()]; ok {
			continue
		}
		f.breakers[src.Name()] = f.newBreaker(src.Name())
	}

	if cfg.CacheSize > 0 {
		f.cache = expirable.NewLRU[string, *Record](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return f
}

func (f *Fetcher) newBreaker(name string) *gobreaker.CircuitBreaker[*Record] {
	threshold := f.cfg.BreakerFailures
	return gobreaker.NewCircuitBreaker[*Record](gobreaker.Settings{
		Name:    name,
		Timeout: f.cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Only upstream outages count against the breaker; a 404 or a bad
		// payload says nothing about availability.
		IsSuccessful: func(err error) bool {
			return err == nil || !isUnavailable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			f.log.Warn().Str("source", name).Str("from", from.String()).Str("to", to.String()).
				Msg("metadata circuit breaker state change")
		},
	})
}

func isUnavailable(err error) bool {
	if isRetryable(err) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return false
	}
	return !errors.Is(err, ErrMalformedResponse)
}

// FetchGenres returns up to five genre tags joined by ", ", or NotAvailable.
func (f *Fetcher) FetchGenres(ctx context.Context, identifier string) string {
	if f.genres == nil || strings.TrimSpace(identifier) == "" {
		return NotAvailable
	}

	rec, err := f.lookup(ctx, f.genres, identifier)
	if err != nil || rec == nil {
		return NotAvailable
	}

	names := make([]string, 0, maxGenres)
	for _, g := range rec.Genres {
		if g = strings.TrimSpace(g); g == "" {
			continue
		}
		names = append(names, g)
		if len(names) == maxGenres {
			break
		}
	}
	if len(names) == 0 {
		return NotAvailable
	}
	return strings.Join(names, ", ")
}

// FetchDescription walks the description sources in order and returns the
// first non-empty description. When none is found it returns
// DescriptionMissing if some source had a record without a description, and
// DescriptionNotFound otherwise.
func (f *Fetcher) FetchDescription(ctx context.Context, identifier string) string {
	if strings.TrimSpace(identifier) == "" {
		return DescriptionNotFound
	}

	placeholder := DescriptionNotFound
	for _, src := range f.descriptions {
		rec, err := f.lookup(ctx, src, identifier)
		if err != nil || rec == nil {
			continue
		}
		if desc := strings.TrimSpace(rec.Description); desc != "" {
			return desc
		}
		placeholder = DescriptionMissing
	}
	return placeholder
}

// Fetch resolves both the description and the genres of a book.
func (f *Fetcher) Fetch(ctx context.Context, identifier string) Result {
	res := Result{
		Identifier:  identifier,
		Description: f.FetchDescription(ctx, identifier),
		Genres:      SplitGenres(f.FetchGenres(ctx, identifier)),
		FetchedAt:   time.Now().UTC(),
	}
	if res.Genres == nil {
		res.Genres = []string{}
	}
	return res
}

// SplitGenres tokenizes a comma-separated genre string, dropping empty and
// NotAvailable tokens.
func SplitGenres(s string) []string {
	var out []string
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" || tok == NotAvailable {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func (f *Fetcher) lookup(ctx context.Context, src Source, identifier string) (*Record, error) {
	key := src.Name() + ":" + identifier
	if f.cache != nil {
		if rec, ok := f.cache.Get(key); ok {
			return rec, nil
		}
	}

	start := time.Now()
	breaker := f.breakers[src.Name()]
	rec, err := breaker.Execute(func() (*Record, error) {
		return f.retry(ctx, src, identifier)
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "circuit_open"
		}
		f.metrics.observe(src.Name(), outcome, time.Since(start))
		f.log.Error().Err(err).Str("source", src.Name()).Str("identifier", identifier).
			Msg("metadata lookup failed")
		return nil, err
	}

	if rec == nil {
		f.metrics.observe(src.Name(), "not_found", time.Since(start))
		return nil, nil
	}
	f.metrics.observe(src.Name(), "ok", time.Since(start))
	if f.cache != nil {
		f.cache.Add(key, rec)
	}
	return rec, nil
}

func (f *Fetcher) retry(ctx context.Context, src Source, identifier string) (*Record, error) {
	var lastErr error
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := f.cfg.BaseDelay << (attempt - 2)
			f.metrics.incRetry(src.Name())
			f.log.Warn().Err(lastErr).Str("source", src.Name()).Str("identifier", identifier).
				Int("attempt", attempt).Dur("delay", delay).Msg("retrying metadata lookup")

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			}
		}

		f.metrics.incAttempt(src.Name())
		rec, err := src.Lookup(ctx, identifier)
		if err == nil {
			return rec, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", f.cfg.MaxAttempts, lastErr)
}
