// Package snapshot gathers the collaborator state a planning call consumes:
// configuration, completion history, rate-limit records, and the solver
// registry. Fetches run concurrently; the result is an immutable bundle
// ready to hand to planner.New.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/planwork/internal/datasource"
	"github.com/vanderheijden86/planwork/pkg/config"
	"github.com/vanderheijden86/planwork/pkg/dispatch"
	"github.com/vanderheijden86/planwork/pkg/history"
	"github.com/vanderheijden86/planwork/pkg/ratelimit"
)

// Bundle is one consistent snapshot of the planner's collaborators.
type Bundle struct {
	History  history.Snapshot
	Limits   ratelimit.View
	Registry *dispatch.Registry
	Cfg      *config.Config
}

// Loader fetches a Bundle from configured store locations.
type Loader struct {
	configPath string
	dataDir    string
	limitsPath string
	logger     *log.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithConfigPath points the loader at a planner config file. Missing files
// fall back to defaults, matching config.Load.
func WithConfigPath(path string) Option {
	return func(l *Loader) { l.configPath = path }
}

// WithDataDir points the loader at the directory holding the completion
// stores. When set, source discovery picks the freshest store; otherwise the
// config's history log path is read directly.
func WithDataDir(dir string) Option {
	return func(l *Loader) { l.dataDir = dir }
}

// WithLimitsPath points the loader at the rate-limit SQLite store. Without
// one, the bundle carries no view and solvers are assumed available.
func WithLimitsPath(path string) Option {
	return func(l *Loader) { l.limitsPath = path }
}

// WithLogger sets a logger for non-fatal fetch warnings.
func WithLogger(logger *log.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader builds a Loader. Warnings are discarded unless WithLogger is
// given.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{logger: log.New(io.Discard, "", 0)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches the bundle. Config loads first since the other fetches take
// paths from it; history, rate limits, and the registry then load
// concurrently, and the first hard error cancels the rest. Missing stores
// are not errors: they yield an empty history and a nil limits view.
func (l *Loader) Load(ctx context.Context) (*Bundle, error) {
	cfg, err := config.Load(l.configPath)
	if err != nil {
		return nil, fmt.Errorf("snapshot: config: %w", err)
	}
	bundle := &Bundle{Cfg: cfg}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		snap, err := l.loadHistory(cfg)
		if err != nil {
			return fmt.Errorf("snapshot: history: %w", err)
		}
		bundle.History = snap
		return nil
	})

	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		view, err := l.loadLimits()
		if err != nil {
			return fmt.Errorf("snapshot: rate limits: %w", err)
		}
		bundle.Limits = view
		return nil
	})

	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		registry, err := cfg.Registry()
		if err != nil {
			return fmt.Errorf("snapshot: registry: %w", err)
		}
		bundle.Registry = registry
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bundle, nil
}

func (l *Loader) loadHistory(cfg *config.Config) (history.Snapshot, error) {
	if l.dataDir != "" {
		snap, err := datasource.LoadCompletions(l.dataDir)
		if errors.Is(err, datasource.ErrSourceMissing) {
			l.logger.Printf("no completion store under %s, starting with empty history", l.dataDir)
			return nil, nil
		}
		return snap, err
	}

	path := cfg.History.LogPath
	if !filepath.IsAbs(path) && l.configPath != "" {
		path = filepath.Join(filepath.Dir(l.configPath), path)
	}
	warn := func(line int, err error) {
		l.logger.Printf("completion log %s line %d: %v", path, line, err)
	}
	return history.LoadFile(path, warn)
}

func (l *Loader) loadLimits() (ratelimit.View, error) {
	if l.limitsPath == "" {
		return nil, nil
	}
	records, warns, err := datasource.RateLimits(l.limitsPath)
	if errors.Is(err, datasource.ErrSourceMissing) {
		l.logger.Printf("no rate-limit store at %s, assuming solvers available", l.limitsPath)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for _, warn := range warns {
		l.logger.Printf("%v", warn)
	}
	return ratelimit.NewStaticView(records...), nil
}
