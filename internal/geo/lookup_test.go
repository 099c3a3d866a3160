package geo

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"gatehouse/internal/cache"
)

func newTestResolver(endpoint string) *Resolver {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	r := NewResolver(cache.NewMemoryCache(), time.Hour, logger)
	r.endpoint = endpoint
	return r
}

func TestLookup_Success(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"status":"success","city":"Berlin","regionName":"Berlin","country":"Germany"}`))
	}))
	defer server.Close()

	r := newTestResolver(server.URL)

	location := r.Lookup(context.Background(), "203.0.113.7")
	if location != "Berlin, Germany" {
		t.Errorf("location: got %q, want %q", location, "Berlin, Germany")
	}

	// Second lookup is served from cache
	_ = r.Lookup(context.Background(), "203.0.113.7")
	if calls != 1 {
		t.Errorf("upstream calls: got %d, want 1", calls)
	}
}

func TestLookup_DistinctCityAndRegion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","city":"Portland","regionName":"Oregon","country":"United States"}`))
	}))
	defer server.Close()

	r := newTestResolver(server.URL)

	location := r.Lookup(context.Background(), "203.0.113.7")
	if location != "Portland, Oregon, United States" {
		t.Errorf("location: got %q", location)
	}
}

func TestLookup_UpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	r := newTestResolver(server.URL)

	if location := r.Lookup(context.Background(), "203.0.113.7"); location != UnknownLocation {
		t.Errorf("location on failure: got %q, want %q", location, UnknownLocation)
	}
}

func TestLookup_UpstreamStatusFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"fail"}`))
	}))
	defer server.Close()

	r := newTestResolver(server.URL)

	if location := r.Lookup(context.Background(), "203.0.113.7"); location != UnknownLocation {
		t.Errorf("location on fail status: got %q, want %q", location, UnknownLocation)
	}
}

func TestLookup_EmptyAddress(t *testing.T) {
	r := newTestResolver("http://127.0.0.1:1")

	if location := r.Lookup(context.Background(), ""); location != UnknownLocation {
		t.Errorf("location for empty address: got %q, want %q", location, UnknownLocation)
	}
}

func TestLookup_UnreachableUpstream(t *testing.T) {
	r := newTestResolver("http://127.0.0.1:1")

	if location := r.Lookup(context.Background(), "203.0.113.7"); location != UnknownLocation {
		t.Errorf("location when unreachable: got %q, want %q", location, UnknownLocation)
	}
}
