package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/models"
)

const defaultTimeout = 10 * time.Second

// Adapter routes CRUD calls to the remote backend when it is configured and
// to the local backend otherwise. It holds no records; the only state it
// keeps is the last issued timestamp so that stamps strictly increase.
type Adapter struct {
	remote    Backend
	local     Backend
	useRemote func() bool
	timeout   time.Duration
	logger    *slog.Logger
	clock     func() time.Time
	newID     func() string

	warnOnce sync.Once
	mu       sync.Mutex
	last     time.Time
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithTimeout bounds every backend call.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// WithClock replaces time.Now as the source of record timestamps.
func WithClock(clock func() time.Time) Option {
	return func(a *Adapter) { a.clock = clock }
}

// WithIDGenerator replaces the uuid generator used for new records.
func WithIDGenerator(newID func() string) Option {
	return func(a *Adapter) { a.newID = newID }
}

// NewAdapter creates an adapter. useRemote is evaluated on every call; remote
// may be nil when the remote service is never configured.
func NewAdapter(remote, local Backend, useRemote func() bool, opts ...Option) *Adapter {
	a := &Adapter{
		remote:    remote,
		local:     local,
		useRemote: useRemote,
		timeout:   defaultTimeout,
		clock:     time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.useRemote == nil {
		a.useRemote = func() bool { return false }
	}
	return a
}

// Active returns the backend that would serve a call made now.
func (a *Adapter) Active() Backend {
	if a.remote != nil && a.useRemote() {
		return a.remote
	}
	a.warnOnce.Do(func() {
		a.logger.Warn("remote data service not configured, using local storage fallback")
	})
	return a.local
}

// List returns the records of a collection. A missing or empty collection
// yields an empty slice.
func List[T any](ctx context.Context, a *Adapter, collection string, opts ListOptions) ([]T, error) {
	b := a.Active()
	ctx, cancel := a.bound(ctx)
	defer cancel()

	docs, err := b.List(ctx, collection, opts)
	if err != nil {
		return nil, a.fail(b, "list", collection, err)
	}

	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		item, err := models.Decode[T](doc)
		if err != nil {
			return nil, a.fail(b, "list", collection, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// GetByID returns one record or an error matching ErrNotFound.
func GetByID[T any](ctx context.Context, a *Adapter, collection, id string) (T, error) {
	var zero T
	b := a.Active()
	ctx, cancel := a.bound(ctx)
	defer cancel()

	doc, err := b.Get(ctx, collection, id)
	if err != nil {
		return zero, a.fail(b, "get", collection, err)
	}
	return decodeOne[T](a, b, "get", collection, doc)
}

// Insert stores a new record. An id is generated unless the patch supplies
// one; created_at and updated_at are stamped with the current time.
func Insert[T any](ctx context.Context, a *Adapter, collection string, p models.Patch) (T, error) {
	var zero T
	b := a.Active()
	ctx, cancel := a.bound(ctx)
	defer cancel()

	doc := models.StampCreate(p.Fields(), a.newID(), a.now())
	stored, err := b.Insert(ctx, collection, doc)
	if err != nil {
		return zero, a.fail(b, "insert", collection, err)
	}
	return decodeOne[T](a, b, "insert", collection, stored)
}

// Update merges the patch's fields over the stored record and rewrites
// updated_at. id and created_at are never changed.
func Update[T any](ctx context.Context, a *Adapter, collection, id string, p models.Patch) (T, error) {
	var zero T
	b := a.Active()
	ctx, cancel := a.bound(ctx)
	defer cancel()

	patch := models.StampUpdate(p.Fields(), a.now())
	stored, err := b.Update(ctx, collection, id, patch)
	if err != nil {
		return zero, a.fail(b, "update", collection, err)
	}
	return decodeOne[T](a, b, "update", collection, stored)
}

// Remove deletes a record. Removing an absent id fails with ErrNotFound.
func Remove(ctx context.Context, a *Adapter, collection, id string) error {
	b := a.Active()
	ctx, cancel := a.bound(ctx)
	defer cancel()

	if err := b.Remove(ctx, collection, id); err != nil {
		return a.fail(b, "remove", collection, err)
	}
	return nil
}

func decodeOne[T any](a *Adapter, b Backend, op, collection string, doc models.Document) (T, error) {
	item, err := models.Decode[T](doc)
	if err != nil {
		return item, a.fail(b, op, collection, err)
	}
	return item, nil
}

func (a *Adapter) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

// now returns a timestamp truncated to microseconds and strictly after the
// previous one this adapter issued.
func (a *Adapter) now() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()

	t := a.clock().UTC().Truncate(time.Microsecond)
	if !t.After(a.last) {
		t = a.last.Add(time.Microsecond)
	}
	a.last = t
	return t
}

// fail logs the failure and returns the normalized error. NotFound and
// EnvironmentUnavailable pass through; everything else becomes a
// BackendError.
func (a *Adapter) fail(b Backend, op, collection string, err error) error {
	a.logger.Error("persistence call failed",
		"collection", collection,
		"op", op,
		"backend", b.Kind(),
		"err", err,
	)

	var backendErr *BackendError
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrEnvironmentUnavailable):
		return err
	case errors.As(err, &backendErr):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return &BackendError{Collection: collection, Op: op, Err: fmt.Errorf("timed out after %s", a.timeout)}
	default:
		return &BackendError{Collection: collection, Op: op, Err: err}
	}
}
