package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Field names shared by every persisted record.
const (
	FieldID        = "id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// Record is the base shape of every persisted entity.
type Record struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntityID returns the record identifier.
func (r Record) EntityID() string {
	return r.ID
}

// Document is the serialized form of a record: one JSON value per field.
// Both storage backends exchange records as documents.
type Document map[string]json.RawMessage

// Patch is implemented by anything that can describe a set of fields to
// write. Only the fields a patch returns are touched by an update.
type Patch interface {
	Fields() Document
}

// Fields lets a raw document be used directly as a patch.
func (d Document) Fields() Document {
	return d
}

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// ID returns the document's id field, or "" when absent or not a string.
func (d Document) ID() string {
	var id string
	if raw, ok := d[FieldID]; ok {
		_ = json.Unmarshal(raw, &id)
	}
	return id
}

// Time decodes a timestamp field. The zero time is returned when the field
// is missing or malformed.
func (d Document) Time(field string) time.Time {
	var t time.Time
	if raw, ok := d[field]; ok {
		_ = json.Unmarshal(raw, &t)
	}
	return t
}

// Set encodes v and stores it under field.
func (d Document) Set(field string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode field %s: %w", field, err)
	}
	d[field] = raw
	return nil
}

// StampCreate returns the document to insert: supplied fields merged over
// the defaults. The id is kept when the caller supplied one; both
// timestamps are always set to now.
func StampCreate(fields Document, newID string, now time.Time) Document {
	doc := make(Document, len(fields)+3)
	for k, v := range fields {
		doc[k] = v
	}
	if doc.ID() == "" {
		doc[FieldID] = encode(newID)
	}
	doc[FieldCreatedAt] = encode(now)
	doc[FieldUpdatedAt] = encode(now)
	return doc
}

// StampUpdate strips the immutable fields from a patch and sets updated_at.
func StampUpdate(fields Document, now time.Time) Document {
	patch := make(Document, len(fields)+1)
	for k, v := range fields {
		if k == FieldID || k == FieldCreatedAt {
			continue
		}
		patch[k] = v
	}
	patch[FieldUpdatedAt] = encode(now)
	return patch
}

// Merge applies patch over existing at field level. Fields missing from the
// patch are preserved; id and created_at are never overwritten. If the
// patched updated_at does not move past the stored one it is advanced by a
// microsecond so that updated_at strictly increases.
func Merge(existing, patch Document) Document {
	out := existing.Clone()
	for k, v := range patch {
		if k == FieldID || k == FieldCreatedAt {
			continue
		}
		out[k] = v
	}

	prev := existing.Time(FieldUpdatedAt)
	next := out.Time(FieldUpdatedAt)
	if !prev.IsZero() && !next.After(prev) {
		out[FieldUpdatedAt] = encode(prev.Add(time.Microsecond))
	}
	return out
}

// Encode converts a typed value to a document.
func Encode(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("record is not an object: %w", err)
	}
	return doc, nil
}

// Decode converts a document to a typed record.
func Decode[T any](doc Document) (T, error) {
	var out T
	raw, err := json.Marshal(doc)
	if err != nil {
		return out, fmt.Errorf("failed to encode document: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to decode document: %w", err)
	}
	return out, nil
}

// encode marshals values that cannot fail to encode (strings, times).
func encode(v any) json.RawMessage {
	raw, _ := json.Marshal(v)
	return raw
}

// put stores *v under key when v is set.
func put[V any](d Document, key string, v *V) {
	if v != nil {
		d[key] = encode(*v)
	}
}
