package store

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"taskboard/internal/models"
)

// applyOptions evaluates list options in memory the way the remote service
// does: equality filters, then a single-field sort with nulls last for
// ascending and first for descending, then the limit.
func applyOptions(docs []models.Document, opts ListOptions) ([]models.Document, error) {
	if opts.Limit < 0 {
		return nil, fmt.Errorf("limit must not be negative")
	}

	out := docs
	if len(opts.Filters) > 0 {
		want := make(map[string]any, len(opts.Filters))
		for field, v := range opts.Filters {
			norm, err := normalize(v)
			if err != nil {
				return nil, fmt.Errorf("invalid filter on %s: %w", field, err)
			}
			want[field] = norm
		}

		out = make([]models.Document, 0, len(docs))
		for _, doc := range docs {
			if matches(doc, want) {
				out = append(out, doc)
			}
		}
	}

	if opts.OrderBy != nil && opts.OrderBy.Field != "" {
		field, desc := opts.OrderBy.Field, opts.OrderBy.Descending
		sort.SliceStable(out, func(i, j int) bool {
			c := compareField(out[i][field], out[j][field])
			if desc {
				return c > 0
			}
			return c < 0
		})
	}

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// normalize round-trips v through JSON so it compares equal to decoded
// document values.
func normalize(v any) (any, error) {
	if t, ok := v.(time.Time); ok {
		v = t.UTC()
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func matches(doc models.Document, want map[string]any) bool {
	for field, w := range want {
		raw, ok := doc[field]
		if !ok {
			return false
		}
		var got any
		if err := json.Unmarshal(raw, &got); err != nil {
			return false
		}
		if !reflect.DeepEqual(got, w) {
			return false
		}
	}
	return true
}

// compareField orders two raw values. Missing and null values sort after
// everything else.
func compareField(a, b json.RawMessage) int {
	av, aok := decodeValue(a)
	bv, bok := decodeValue(b)
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return 1
	case !bok:
		return -1
	}

	switch x := av.(type) {
	case float64:
		if y, ok := bv.(float64); ok {
			return cmpOrdered(x, y)
		}
	case bool:
		if y, ok := bv.(bool); ok {
			return cmpOrdered(boolRank(x), boolRank(y))
		}
	case string:
		if y, ok := bv.(string); ok {
			tx, errx := time.Parse(time.RFC3339Nano, x)
			ty, erry := time.Parse(time.RFC3339Nano, y)
			if errx == nil && erry == nil {
				return tx.Compare(ty)
			}
			return strings.Compare(x, y)
		}
	}
	return strings.Compare(string(a), string(b))
}

func decodeValue(raw json.RawMessage) (any, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return nil, false
	}
	return v, true
}

func cmpOrdered[T int | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
