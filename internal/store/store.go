package store

import (
	"context"

	"taskboard/internal/models"
)

// Kind names a backend variant.
type Kind string

const (
	KindRemote Kind = "remote"
	KindLocal  Kind = "local"
)

// Backend is the capability both storage variants provide. Documents passed
// to Insert are fully stamped; patches passed to Update already carry the
// new updated_at.
type Backend interface {
	Kind() Kind
	List(ctx context.Context, collection string, opts ListOptions) ([]models.Document, error)
	Get(ctx context.Context, collection, id string) (models.Document, error)
	Insert(ctx context.Context, collection string, doc models.Document) (models.Document, error)
	Update(ctx context.Context, collection, id string, patch models.Document) (models.Document, error)
	Remove(ctx context.Context, collection, id string) error
}

// Order sorts a listing by one field.
type Order struct {
	Field      string
	Descending bool
}

// ListOptions narrows a listing. Filters are equality matches that must all
// hold. A Limit of 0 means no limit.
type ListOptions struct {
	OrderBy *Order
	Filters map[string]any
	Limit   int
}
