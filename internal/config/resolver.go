package config

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// LoadFunc loads configuration from a path.
type LoadFunc func(path string) (Properties, error)

// Resolver lazily loads configuration on first use and caches it until it is
// replaced. It is safe for concurrent use: concurrent first calls to Get load
// the file at most once and all observe the same instance.
type Resolver struct {
	mu      sync.Mutex
	path    string
	load    LoadFunc
	logger  *slog.Logger
	current atomic.Pointer[Properties]
	lastErr atomic.Pointer[error]
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLoader replaces the file loader, mainly for tests.
func WithLoader(fn LoadFunc) ResolverOption {
	return func(r *Resolver) { r.load = fn }
}

// WithLogger sets the logger used to report load failures. Without it the
// process default logger at the time of the load is used.
func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a Resolver reading from path, or DefaultPath when empty.
func NewResolver(path string, opts ...ResolverOption) *Resolver {
	if path == "" {
		path = DefaultPath
	}
	r := &Resolver{
		path: path,
		load: LoadFile,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the cached configuration, loading it on first call.
// A failed load is logged and yields an empty configuration.
func (r *Resolver) Get() Properties {
	if p := r.current.Load(); p != nil {
		return *p
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p := r.current.Load(); p != nil {
		return *p
	}
	return r.reloadLocked()
}

// SetPath changes the configuration path and reloads immediately.
func (r *Resolver) SetPath(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.path = path
	r.reloadLocked()
}

// Set replaces the configuration without touching the file system.
func (r *Resolver) Set(p Properties) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current.Store(&p)
	r.lastErr.Store(nil)
}

// Path returns the configured file path.
func (r *Resolver) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// Err returns the error from the most recent load, if it failed.
func (r *Resolver) Err() error {
	if e := r.lastErr.Load(); e != nil {
		return *e
	}
	return nil
}

// reloadLocked loads from r.path and stores the result. The caller must hold r.mu.
func (r *Resolver) reloadLocked() Properties {
	p, err := r.load(r.path)
	if err != nil {
		r.log().Error("failed to load mail configuration",
			"path", r.path,
			"error", err,
		)
		p = Properties{}
		r.lastErr.Store(&err)
	} else {
		r.log().Debug("loaded mail configuration",
			"path", r.path,
			"keys", p.Len(),
		)
		r.lastErr.Store(nil)
	}
	r.current.Store(&p)
	return p
}

func (r *Resolver) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}
