package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kuzminvik/ragbench/internal/compare"
	"github.com/kuzminvik/ragbench/internal/reranker"
)

// fakeComparer returns a canned record or error and remembers the last
// query and mode it saw.
type fakeComparer struct {
	rec      *compare.Record
	err      error
	lastMode reranker.Mode
}

func (f *fakeComparer) Compare(ctx context.Context, query string, mode reranker.Mode) (*compare.Record, error) {
	f.lastMode = mode
	if f.err != nil {
		return nil, f.err
	}
	return f.rec, nil
}

// fakeHistory returns a canned record list.
type fakeHistory struct {
	records   []compare.Record
	lastLimit int
}

func (f *fakeHistory) List(ctx context.Context, limit int) ([]compare.Record, error) {
	f.lastLimit = limit
	if limit > 0 && len(f.records) > limit {
		return f.records[len(f.records)-limit:], nil
	}
	return f.records, nil
}

func newTestServer(cfg HTTPServerConfig) *httptest.Server {
	if cfg.Comparer == nil {
		cfg.Comparer = &fakeComparer{rec: &compare.Record{ID: "rec-1"}}
	}
	s := NewHTTPServer(cfg)
	return httptest.NewServer(s.GetRouter())
}

func postCompare(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/v1/compare", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestHandleCompare_OK(t *testing.T) {
	comparer := &fakeComparer{rec: &compare.Record{ID: "rec-1", Query: "premium plan"}}
	ts := newTestServer(HTTPServerConfig{Comparer: comparer, DefaultMode: reranker.ModeLight})
	defer ts.Close()

	resp := postCompare(t, ts.URL, `{"query": "premium plan"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var rec compare.Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatal(err)
	}
	if rec.ID != "rec-1" {
		t.Errorf("expected record rec-1, got %s", rec.ID)
	}
	if comparer.lastMode != reranker.ModeLight {
		t.Errorf("expected default mode light, got %s", comparer.lastMode)
	}
}

func TestHandleCompare_ModeOverride(t *testing.T) {
	comparer := &fakeComparer{rec: &compare.Record{ID: "rec-1"}}
	ts := newTestServer(HTTPServerConfig{Comparer: comparer, DefaultMode: reranker.ModeLight})
	defer ts.Close()

	resp := postCompare(t, ts.URL, `{"query": "premium plan", "mode": "strict"}`)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if comparer.lastMode != reranker.ModeStrict {
		t.Errorf("expected strict mode, got %s", comparer.lastMode)
	}
}

func TestHandleCompare_BadRequests(t *testing.T) {
	ts := newTestServer(HTTPServerConfig{})
	defer ts.Close()

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"query": `},
		{"unknown mode", `{"query": "x", "mode": "turbo"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postCompare(t, ts.URL, tt.body)
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestHandleCompare_BodyTooLarge(t *testing.T) {
	ts := newTestServer(HTTPServerConfig{})
	defer ts.Close()

	body := `{"query": "` + strings.Repeat("x", maxCompareBodyBytes+1) + `"}`
	resp := postCompare(t, ts.URL, body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for oversized body, got %d", resp.StatusCode)
	}
}

func TestHandleCompare_EmptyQuery(t *testing.T) {
	ts := newTestServer(HTTPServerConfig{Comparer: &fakeComparer{err: compare.ErrEmptyQuery}})
	defer ts.Close()

	resp := postCompare(t, ts.URL, `{"query": "   "}`)
	resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestHandleCompare_BothPathsFailed(t *testing.T) {
	ts := newTestServer(HTTPServerConfig{Comparer: &fakeComparer{err: compare.ErrBothPathsFailed}})
	defer ts.Close()

	resp := postCompare(t, ts.URL, `{"query": "premium plan"}`)
	resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", resp.StatusCode)
	}
}

func TestHandleListComparisons(t *testing.T) {
	history := &fakeHistory{records: []compare.Record{{ID: "rec-1"}, {ID: "rec-2"}}}
	ts := newTestServer(HTTPServerConfig{History: history})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/comparisons")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if history.lastLimit != defaultHistoryLimit {
		t.Errorf("expected default limit %d, got %d", defaultHistoryLimit, history.lastLimit)
	}

	var body struct {
		Comparisons []compare.Record `json:"comparisons"`
		Count       int              `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 2 || len(body.Comparisons) != 2 {
		t.Errorf("expected 2 comparisons, got count=%d len=%d", body.Count, len(body.Comparisons))
	}
}

func TestHandleListComparisons_Limit(t *testing.T) {
	history := &fakeHistory{records: []compare.Record{{ID: "rec-1"}, {ID: "rec-2"}, {ID: "rec-3"}}}
	ts := newTestServer(HTTPServerConfig{History: history})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/comparisons?limit=1")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if history.lastLimit != 1 {
		t.Errorf("expected limit 1, got %d", history.lastLimit)
	}
}

func TestHandleListComparisons_InvalidLimit(t *testing.T) {
	ts := newTestServer(HTTPServerConfig{History: &fakeHistory{}})
	defer ts.Close()

	for _, limit := range []string{"abc", "0", "-5"} {
		resp, err := http.Get(ts.URL + "/v1/comparisons?limit=" + limit)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("limit %q: expected 400, got %d", limit, resp.StatusCode)
		}
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	ts := newTestServer(HTTPServerConfig{APIKey: "secret"})
	defer ts.Close()

	// Missing key
	resp := postCompare(t, ts.URL, `{"query": "x"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", resp.StatusCode)
	}

	// Wrong key
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/v1/compare", strings.NewReader(`{"query": "x"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "wrong")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong key, got %d", resp.StatusCode)
	}

	// Correct key
	req, _ = http.NewRequest(http.MethodPost, ts.URL+"/v1/compare", strings.NewReader(`{"query": "x"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 with correct key, got %d", resp.StatusCode)
	}

	// Health endpoints stay open
	resp, err = http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected open /healthz, got %d", resp.StatusCode)
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(HTTPServerConfig{})
	defer ts.Close()

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, resp.StatusCode)
		}
		var body map[string]string
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Errorf("%s: invalid JSON body: %v", path, err)
		}
	}
}
