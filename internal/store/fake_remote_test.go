package store

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"taskboard/internal/models"
)

// fakeRemote is a minimal in-memory PostgREST server.
type fakeRemote struct {
	t      *testing.T
	key    string
	mu     sync.Mutex
	tables map[string][]models.Document
	calls  []string
	fault  *remoteFault
}

func newFakeRemote(t *testing.T, tables ...string) (*fakeRemote, *httptest.Server) {
	t.Helper()
	f := &fakeRemote{t: t, key: "test-key", tables: map[string][]models.Document{}}
	for _, name := range tables {
		f.tables[name] = []models.Document{}
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeRemote) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, r.Method+" "+r.URL.Path)

	if r.Header.Get("apikey") != f.key || r.Header.Get("Authorization") != "Bearer "+f.key {
		f.writeFault(w, http.StatusUnauthorized, "PGRST301", "invalid api key")
		return
	}
	if f.fault != nil {
		f.writeFault(w, f.fault.Status, f.fault.Code, f.fault.Message)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	if strings.HasPrefix(path, "rpc/create_") {
		name := strings.TrimSuffix(strings.TrimPrefix(path, "rpc/create_"), "_table")
		f.tables[name] = []models.Document{}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	rows, ok := f.tables[path]
	if !ok {
		f.writeFault(w, http.StatusNotFound, codeUndefinedTable, `relation "public.`+path+`" does not exist`)
		return
	}

	q := r.URL.Query()
	switch r.Method {
	case http.MethodGet:
		out := f.filter(rows, q)
		if order := q.Get("order"); order != "" {
			field, dir, _ := strings.Cut(order, ".")
			sort.SliceStable(out, func(i, j int) bool {
				c := compareField(out[i][field], out[j][field])
				if dir == "desc" {
					return c > 0
				}
				return c < 0
			})
		}
		if limit := q.Get("limit"); limit != "" {
			n, _ := strconv.Atoi(limit)
			if n < len(out) {
				out = out[:n]
			}
		}
		f.writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var doc models.Document
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			f.writeFault(w, http.StatusBadRequest, "PGRST102", "invalid body")
			return
		}
		if indexOf(rows, doc.ID()) >= 0 {
			f.writeFault(w, http.StatusConflict, "23505", "duplicate key value violates unique constraint")
			return
		}
		f.tables[path] = append(rows, doc)
		f.writeJSON(w, http.StatusCreated, []models.Document{doc})

	case http.MethodPatch:
		var patch models.Document
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			f.writeFault(w, http.StatusBadRequest, "PGRST102", "invalid body")
			return
		}
		out := []models.Document{}
		for i, row := range rows {
			if !f.match(row, q) {
				continue
			}
			for k, v := range patch {
				row[k] = v
			}
			rows[i] = row
			out = append(out, row)
		}
		f.writeJSON(w, http.StatusOK, out)

	case http.MethodDelete:
		kept := []models.Document{}
		out := []models.Document{}
		for _, row := range rows {
			if f.match(row, q) {
				out = append(out, row)
				continue
			}
			kept = append(kept, row)
		}
		f.tables[path] = kept
		f.writeJSON(w, http.StatusOK, out)
	}
}

func (f *fakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) filter(rows []models.Document, q map[string][]string) []models.Document {
	out := []models.Document{}
	for _, row := range rows {
		if f.match(row, q) {
			out = append(out, row)
		}
	}
	return out
}

func (f *fakeRemote) match(row models.Document, q map[string][]string) bool {
	for field, values := range q {
		if field == "select" || field == "order" || field == "limit" {
			continue
		}
		want := strings.TrimPrefix(values[0], "eq.")
		v, ok := decodeValue(row[field])
		if !ok {
			return false
		}
		var got string
		switch x := v.(type) {
		case string:
			got = x
		case float64:
			got = strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			got = strconv.FormatBool(x)
		}
		if got != want {
			return false
		}
	}
	return true
}

func (f *fakeRemote) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		f.t.Errorf("failed to encode response: %v", err)
	}
}

func (f *fakeRemote) writeFault(w http.ResponseWriter, status int, code, message string) {
	f.writeJSON(w, status, map[string]string{"code": code, "message": message})
}
