package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultMaxAttempts is the number of admitted requests per window
	DefaultMaxAttempts = 5

	// DefaultWindow is the length of a fixed window
	DefaultWindow = 24 * time.Hour
)

// Store persists limiter entries keyed by client identifier
type Store interface {
	// Get returns the entry for clientID and whether it exists
	Get(ctx context.Context, clientID string) (Entry, bool, error)
	// Put stages an entry
	Put(ctx context.Context, clientID string, entry Entry) error
	// Flush makes staged entries durable
	Flush(ctx context.Context) error
	// Entries returns a snapshot of every stored entry
	Entries(ctx context.Context) (map[string]Entry, error)
	// Delete removes an entry and makes the removal durable
	Delete(ctx context.Context, clientID string) error
}

// Clock returns the current time
type Clock func() time.Time

// Decision is the outcome of an admission check
type Decision struct {
	Allowed  bool
	Attempts int
	// ResetAt is when the current window expires
	ResetAt time.Time
}

// RetryAfter returns how long a rejected client should wait, rounded up to
// whole seconds
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed {
		return 0
	}
	wait := d.ResetAt.Sub(now)
	if wait <= 0 {
		return time.Second
	}
	return wait.Truncate(time.Second) + time.Second
}

// Limiter admits at most maxAttempts requests per client per fixed window.
// A window opens on the first request and is replaced wholesale once it is
// older than the window length; it does not slide.
type Limiter struct {
	mu          sync.Mutex
	store       Store
	maxAttempts int
	window      time.Duration
	now         Clock
}

// Option configures a Limiter
type Option func(*Limiter)

// WithClock overrides the time source
func WithClock(clock Clock) Option {
	return func(l *Limiter) { l.now = clock }
}

// WithMaxAttempts overrides the per-window quota
func WithMaxAttempts(n int) Option {
	return func(l *Limiter) { l.maxAttempts = n }
}

// WithWindow overrides the window length
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) { l.window = d }
}

// New creates a limiter over store
func New(store Store, opts ...Option) *Limiter {
	l := &Limiter{
		store:       store,
		maxAttempts: DefaultMaxAttempts,
		window:      DefaultWindow,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Admit reports whether the request from clientID is admitted.
// A non-nil error means the new state could not be persisted.
func (l *Limiter) Admit(ctx context.Context, clientID string) (bool, error) {
	d, err := l.Decide(ctx, clientID)
	return d.Allowed, err
}

// Decide is Admit with the details needed for Retry-After headers
func (l *Limiter) Decide(ctx context.Context, clientID string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	entry, ok, err := l.store.Get(ctx, clientID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to read rate limit entry: %w", err)
	}

	switch {
	case !ok, now.Sub(entry.WindowStart) > l.window:
		entry = Entry{Attempts: 1, WindowStart: now}
	case entry.Attempts >= l.maxAttempts:
		return Decision{
			Allowed:  false,
			Attempts: entry.Attempts,
			ResetAt:  entry.WindowStart.Add(l.window),
		}, nil
	default:
		entry.Attempts++
	}

	if err := l.persist(ctx, clientID, entry); err != nil {
		return Decision{}, err
	}

	return Decision{
		Allowed:  true,
		Attempts: entry.Attempts,
		ResetAt:  entry.WindowStart.Add(l.window),
	}, nil
}

func (l *Limiter) persist(ctx context.Context, clientID string, entry Entry) error {
	if err := l.store.Put(ctx, clientID, entry); err != nil {
		return fmt.Errorf("failed to store rate limit entry: %w", err)
	}
	if err := l.store.Flush(ctx); err != nil {
		return fmt.Errorf("failed to persist rate limit state: %w", err)
	}
	return nil
}

// Reset removes clientID's entry so its next request opens a new window
func (l *Limiter) Reset(ctx context.Context, clientID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Delete(ctx, clientID)
}

// Snapshot returns all entries in the store
func (l *Limiter) Snapshot(ctx context.Context) (map[string]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Entries(ctx)
}

// Window returns the configured window length
func (l *Limiter) Window() time.Duration {
	return l.window
}

// MaxAttempts returns the configured per-window quota
func (l *Limiter) MaxAttempts() int {
	return l.maxAttempts
}
