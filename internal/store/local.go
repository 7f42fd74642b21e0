package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"taskboard/internal/models"
)

// KV is a persistent key/value store addressed by collection name. Each
// value is a whole serialized collection.
type KV interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// LocalBackend keeps each collection as one JSON array under its name in a
// KV. Every mutation reads the whole collection, changes it in memory and
// writes it back. Within one process mutations are serialized; separate
// processes sharing the same KV race with last-write-wins.
type LocalBackend struct {
	kv KV
	mu sync.Mutex
}

// NewLocalBackend creates a local backend. A nil kv models an execution
// context without persistent storage: every call fails with
// ErrEnvironmentUnavailable.
func NewLocalBackend(kv KV) *LocalBackend {
	return &LocalBackend{kv: kv}
}

func (l *LocalBackend) Kind() Kind {
	return KindLocal
}

func (l *LocalBackend) List(ctx context.Context, collection string, opts ListOptions) ([]models.Document, error) {
	docs, err := l.load(ctx, collection)
	if err != nil {
		return nil, err
	}
	return applyOptions(docs, opts)
}

func (l *LocalBackend) Get(ctx context.Context, collection, id string) (models.Document, error) {
	docs, err := l.load(ctx, collection)
	if err != nil {
		return nil, err
	}
	i := indexOf(docs, id)
	if i < 0 {
		return nil, &NotFoundError{Collection: collection, ID: id}
	}
	return docs[i], nil
}

func (l *LocalBackend) Insert(ctx context.Context, collection string, doc models.Document) (models.Document, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	docs, err := l.load(ctx, collection)
	if err != nil {
		return nil, err
	}
	if indexOf(docs, doc.ID()) >= 0 {
		return nil, &BackendError{Collection: collection, Op: "insert", Err: fmt.Errorf("duplicate id %s", doc.ID())}
	}

	docs = append(docs, doc)
	if err := l.save(ctx, collection, docs); err != nil {
		return nil, err
	}
	return doc, nil
}

func (l *LocalBackend) Update(ctx context.Context, collection, id string, patch models.Document) (models.Document, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	docs, err := l.load(ctx, collection)
	if err != nil {
		return nil, err
	}
	i := indexOf(docs, id)
	if i < 0 {
		return nil, &NotFoundError{Collection: collection, ID: id}
	}

	docs[i] = models.Merge(docs[i], patch)
	if err := l.save(ctx, collection, docs); err != nil {
		return nil, err
	}
	return docs[i], nil
}

func (l *LocalBackend) Remove(ctx context.Context, collection, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	docs, err := l.load(ctx, collection)
	if err != nil {
		return err
	}
	i := indexOf(docs, id)
	if i < 0 {
		return &NotFoundError{Collection: collection, ID: id}
	}

	docs = append(docs[:i], docs[i+1:]...)
	return l.save(ctx, collection, docs)
}

func (l *LocalBackend) load(ctx context.Context, collection string) ([]models.Document, error) {
	if l.kv == nil {
		return nil, ErrEnvironmentUnavailable
	}

	raw, ok, err := l.kv.Get(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection: %w", err)
	}
	if !ok || len(raw) == 0 {
		return []models.Document{}, nil
	}

	var docs []models.Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode collection: %w", err)
	}
	if docs == nil {
		docs = []models.Document{}
	}
	return docs, nil
}

func (l *LocalBackend) save(ctx context.Context, collection string, docs []models.Document) error {
	raw, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("failed to encode collection: %w", err)
	}
	if err := l.kv.Set(ctx, collection, raw); err != nil {
		return fmt.Errorf("failed to write collection: %w", err)
	}
	return nil
}

func indexOf(docs []models.Document, id string) int {
	for i, doc := range docs {
		if doc.ID() == id {
			return i
		}
	}
	return -1
}
