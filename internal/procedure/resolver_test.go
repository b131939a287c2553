package procedure

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestResolve(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/42" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"title":"restart exporter","steps":["a","b"]}`))
	}))
	defer server.Close()

	r := NewResolver(server.URL, time.Second, time.Minute)

	p, err := r.Resolve(context.Background(), 42)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p == nil || p.ProcedureID != 42 {
		t.Fatalf("procedure = %+v", p)
	}
	if p.Details["title"] != "restart exporter" {
		t.Errorf("details = %+v", p.Details)
	}

	// Second lookup is served from cache
	if _, err := r.Resolve(context.Background(), 42); err != nil {
		t.Fatalf("cached resolve: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("upstream hits = %d, want 1", hits.Load())
	}
}

func TestResolve_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	r := NewResolver(server.URL, time.Second, time.Minute)
	p, err := r.Resolve(context.Background(), 7)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p != nil {
		t.Errorf("procedure = %+v, want nil", p)
	}
}

func TestResolve_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	r := NewResolver(server.URL, time.Second, time.Minute)
	if _, err := r.Resolve(context.Background(), 7); err == nil {
		t.Fatal("expected error on upstream failure")
	}
}
