// Package app wires all Taratil subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP until the context is cancelled, and Shutdown
// tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithVerseStore, WithAudio, etc.). When an option is not provided, New
// creates real implementations from the config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/sherbini/taratil/internal/attempts"
	"github.com/sherbini/taratil/internal/compare"
	"github.com/sherbini/taratil/internal/config"
	"github.com/sherbini/taratil/internal/health"
	"github.com/sherbini/taratil/internal/httpapi"
	"github.com/sherbini/taratil/internal/observe"
	"github.com/sherbini/taratil/internal/session"
	"github.com/sherbini/taratil/internal/verse"
	"github.com/sherbini/taratil/pkg/provider/tts"
)

// App owns all subsystem lifetimes and serves the practice API.
type App struct {
	cfg *config.Config

	// Subsystems — initialised in New, torn down in Shutdown.
	verses  verse.Store
	audio   tts.Provider
	scorer  *compare.Scorer
	metrics *observe.Metrics
	server  *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithVerseStore injects a verse store instead of creating one from config.
func WithVerseStore(s verse.Store) Option {
	return func(a *App) { a.verses = s }
}

// WithAudio injects a reference-audio provider. main.go uses this to hand
// over the synthesis fallback chain; tests use it to inject mocks. Nil
// leaves the audio endpoints disabled.
func WithAudio(p tts.Provider) Option {
	return func(a *App) { a.audio = p }
}

// WithMetrics injects a metrics set instead of the package-level default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. Use Option functions
// to inject test doubles for any subsystem.
//
// New performs all initialisation synchronously: verse catalogue loading (or
// Postgres connection + migration), scorer construction, and HTTP server
// assembly. The returned App is ready for Run.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}

	// ── 1. Verse store ───────────────────────────────────────────────────
	if err := a.initVerses(ctx); err != nil {
		return nil, fmt.Errorf("app: init verses: %w", err)
	}

	// ── 2. Scorer ────────────────────────────────────────────────────────
	a.initScorer()

	// ── 3. Metrics ───────────────────────────────────────────────────────
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// ── 4. HTTP server ───────────────────────────────────────────────────
	a.initServer()

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initVerses sets up the verse catalogue from config, unless one was
// injected.
func (a *App) initVerses(ctx context.Context) error {
	if a.verses != nil {
		return nil
	}

	switch a.cfg.Verses.Source {
	case config.SourceYAML, "":
		store := verse.NewMemStore()
		pack, err := verse.LoadPackFile(a.cfg.Verses.Path)
		if err != nil {
			return fmt.Errorf("load verse pack %q: %w", a.cfg.Verses.Path, err)
		}
		n, err := verse.ImportPack(ctx, store, pack)
		if err != nil {
			return fmt.Errorf("import verse pack %q: %w", a.cfg.Verses.Path, err)
		}
		slog.Info("imported verse pack", "path", a.cfg.Verses.Path, "pack", pack.Pack.Name, "count", n)
		a.verses = store

	case config.SourcePostgres:
		pool, err := pgxpool.New(ctx, a.cfg.Verses.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return fmt.Errorf("ping postgres: %w", err)
		}
		store := verse.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return fmt.Errorf("migrate verse schema: %w", err)
		}
		a.closers = append(a.closers, func() error {
			pool.Close()
			return nil
		})
		a.verses = store

	default:
		return fmt.Errorf("unknown verse source %q", a.cfg.Verses.Source)
	}

	return nil
}

// initScorer builds the comparison scorer from the scoring config.
func (a *App) initScorer() {
	var opts []compare.Option
	if a.cfg.Scoring.PassThreshold > 0 {
		opts = append(opts, compare.WithPassThreshold(a.cfg.Scoring.PassThreshold))
	}
	opts = append(opts, compare.WithHints(a.cfg.Scoring.Hints))
	a.scorer = compare.NewScorer(opts...)
}

// initServer assembles the HTTP API handler and the http.Server around it.
func (a *App) initServer() {
	checkers := []health.Checker{health.VerseStore(a.verses)}
	if a.audio != nil {
		audio := a.audio
		checkers = append(checkers, health.Checker{
			Name: "audio",
			Check: func(ctx context.Context) error {
				_, err := audio.ListVoices(ctx)
				return err
			},
		})
	}

	var attemptLog httpapi.AttemptLog
	if a.cfg.Scoring.AttemptsLog != "" {
		attemptLog = attempts.NewFileLog(a.cfg.Scoring.AttemptsLog)
	}

	api := httpapi.New(httpapi.Options{
		Verses: a.verses,
		Audio:  a.audio,
		Scorer: a.scorer,
		Session: session.Config{
			Languages:      a.cfg.Session.Languages,
			SilenceTimeout: a.cfg.Session.SilenceTimeout,
			MaxDuration:    a.cfg.Session.MaxDuration,
			AutoStop:       a.cfg.Session.AutoStop,
			InterimResults: a.cfg.Session.InterimResults,
		},
		Metrics:  a.metrics,
		Health:   health.New(checkers...),
		Attempts: attemptLog,
	})

	a.server = &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves the HTTP API and blocks until ctx is cancelled or the listener
// fails. On cancellation the listener is closed gracefully; Run then returns
// context.Canceled (or the underlying cause).
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("listening", "addr", a.server.Addr, "tls", a.cfg.Server.TLS != nil)
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.server.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.server.ListenAndServe()
		}
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.server.Shutdown(closeCtx); err != nil {
			slog.Warn("http server shutdown error", "err", err)
		}
		return ctx.Err()
	})

	return g.Wait()
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
