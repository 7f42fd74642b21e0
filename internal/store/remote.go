package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"taskboard/internal/config"
	"taskboard/internal/models"
)

// Error codes the remote service reports for a missing table.
const (
	codeUndefinedTable = "42P01"
	codeTableNotCached = "PGRST205"
)

// RemoteBackend talks to a PostgREST-compatible data service, the REST
// surface Supabase exposes under /rest/v1.
type RemoteBackend struct {
	baseURL       string
	key           string
	autoProvision bool
	client        *http.Client
}

// NewRemoteBackend creates a remote backend. A nil client gets a default
// with a 30s timeout; per-call deadlines come from the context.
func NewRemoteBackend(cfg config.Remote, client *http.Client) *RemoteBackend {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RemoteBackend{
		baseURL:       cfg.URL,
		key:           cfg.Key,
		autoProvision: cfg.AutoProvision,
		client:        client,
	}
}

// remoteFault is the error body the service returns on failure.
type remoteFault struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (f *remoteFault) Error() string {
	msg := f.Message
	if msg == "" {
		msg = http.StatusText(f.Status)
	}
	if f.Code != "" {
		return fmt.Sprintf("%s (code %s)", msg, f.Code)
	}
	return msg
}

func (f *remoteFault) missingTable() bool {
	return f.Code == codeUndefinedTable || f.Code == codeTableNotCached
}

func isMissingTable(err error) bool {
	var fault *remoteFault
	return errors.As(err, &fault) && fault.missingTable()
}

func (r *RemoteBackend) Kind() Kind {
	return KindRemote
}

func (r *RemoteBackend) List(ctx context.Context, collection string, opts ListOptions) ([]models.Document, error) {
	if opts.Limit < 0 {
		return nil, fmt.Errorf("limit must not be negative")
	}

	q := url.Values{}
	q.Set("select", "*")
	for field, v := range opts.Filters {
		q.Set(field, "eq."+filterValue(v))
	}
	if opts.OrderBy != nil && opts.OrderBy.Field != "" {
		dir := "asc"
		if opts.OrderBy.Descending {
			dir = "desc"
		}
		q.Set("order", opts.OrderBy.Field+"."+dir)
	}
	if opts.Limit > 0 {
		q.Set("limit", fmt.Sprint(opts.Limit))
	}

	var docs []models.Document
	err := r.provisioned(ctx, collection, func() error {
		docs = nil
		return r.do(ctx, http.MethodGet, collection, q, nil, &docs)
	})
	if isMissingTable(err) {
		return []models.Document{}, nil
	}
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []models.Document{}
	}
	return docs, nil
}

func (r *RemoteBackend) Get(ctx context.Context, collection, id string) (models.Document, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set(models.FieldID, "eq."+id)

	var docs []models.Document
	err := r.do(ctx, http.MethodGet, collection, q, nil, &docs)
	if isMissingTable(err) || (err == nil && len(docs) == 0) {
		return nil, &NotFoundError{Collection: collection, ID: id}
	}
	if err != nil {
		return nil, err
	}
	return docs[0], nil
}

func (r *RemoteBackend) Insert(ctx context.Context, collection string, doc models.Document) (models.Document, error) {
	var docs []models.Document
	err := r.provisioned(ctx, collection, func() error {
		docs = nil
		return r.do(ctx, http.MethodPost, collection, nil, doc, &docs)
	})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("insert returned no representation")
	}
	return docs[0], nil
}

// Update issues one conditional PATCH; the service merges the fields
// atomically and returns the updated row, or nothing when the id is absent.
func (r *RemoteBackend) Update(ctx context.Context, collection, id string, patch models.Document) (models.Document, error) {
	q := url.Values{}
	q.Set(models.FieldID, "eq."+id)

	var docs []models.Document
	err := r.do(ctx, http.MethodPatch, collection, q, patch, &docs)
	if isMissingTable(err) || (err == nil && len(docs) == 0) {
		return nil, &NotFoundError{Collection: collection, ID: id}
	}
	if err != nil {
		return nil, err
	}
	return docs[0], nil
}

func (r *RemoteBackend) Remove(ctx context.Context, collection, id string) error {
	q := url.Values{}
	q.Set(models.FieldID, "eq."+id)

	var docs []models.Document
	err := r.do(ctx, http.MethodDelete, collection, q, nil, &docs)
	if isMissingTable(err) || (err == nil && len(docs) == 0) {
		return &NotFoundError{Collection: collection, ID: id}
	}
	return err
}

// provisioned runs fn and, when auto-provisioning is enabled and the table
// is missing, asks the service to create it and runs fn once more.
func (r *RemoteBackend) provisioned(ctx context.Context, collection string, fn func() error) error {
	err := fn()
	if !r.autoProvision || !isMissingTable(err) {
		return err
	}

	if perr := r.do(ctx, http.MethodPost, "rpc/create_"+collection+"_table", nil, struct{}{}, nil); perr != nil {
		return fmt.Errorf("failed to provision %s: %w", collection, perr)
	}
	return fn()
}

func (r *RemoteBackend) do(ctx context.Context, method, path string, q url.Values, body any, out any) error {
	endpoint := r.baseURL + "/rest/v1/" + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("apikey", r.key)
	req.Header.Set("Authorization", "Bearer "+r.key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		fault := &remoteFault{Status: resp.StatusCode}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, fault)
		}
		return fault
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func filterValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}
