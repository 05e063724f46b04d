package dataset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func newCSVServer(t *testing.T, body string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestFetcherFetch(t *testing.T) {
	body := "a,b\n1,2\n"
	srv, hits := newCSVServer(t, body)

	fetcher := NewFetcher(t.TempDir())
	ctx := context.Background()

	path, err := fetcher.Fetch(ctx, srv.URL+"/pml-training.csv")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if filepath.Base(path) != "pml-training.csv" {
		t.Errorf("cache file name = %s, want pml-training.csv", filepath.Base(path))
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading fetched file: %v", err)
	}
	if string(got) != body {
		t.Errorf("fetched content = %q, want %q", got, body)
	}

	// A second fetch hits the cache, not the server
	if _, err := fetcher.Fetch(ctx, srv.URL+"/pml-training.csv"); err != nil {
		t.Fatalf("second Fetch failed: %v", err)
	}
	if n := atomic.LoadInt32(hits); n != 1 {
		t.Errorf("server hit %d times, want 1 (cache expected)", n)
	}

	// Force bypasses the cache
	fetcher.Force = true
	if _, err := fetcher.Fetch(ctx, srv.URL+"/pml-training.csv"); err != nil {
		t.Fatalf("forced Fetch failed: %v", err)
	}
	if n := atomic.LoadInt32(hits); n != 2 {
		t.Errorf("server hit %d times after force, want 2", n)
	}
}

func TestFetcherFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	fetcher := NewFetcher(t.TempDir())
	if _, err := fetcher.Fetch(context.Background(), srv.URL+"/missing.csv"); err == nil {
		t.Error("Fetch should fail on a 404 response")
	}
}

func TestFetcherLoad(t *testing.T) {
	body := "roll_belt,classe\n1.5,A\n2.5,B\n"
	srv, _ := newCSVServer(t, body)

	fetcher := NewFetcher(t.TempDir())
	table, err := fetcher.Load(context.Background(), srv.URL+"/pml-testing.csv", "testing")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if table.Name() != "testing" {
		t.Errorf("table name = %s, want testing", table.Name())
	}
	if table.NRows() != 2 || table.NCols() != 2 {
		t.Errorf("shape = (%d, %d), want (2, 2)", table.NRows(), table.NCols())
	}
}

func TestFileNameFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://d396qusza40orc.cloudfront.net/predmachlearn/pml-training.csv", "pml-training.csv"},
		{"https://example.com/data.csv?token=abc", "data.csv"},
		{"https://example.com/", "download.csv"},
		{"", "download.csv"},
	}

	for _, tt := range tests {
		if got := fileNameFromURL(tt.url); got != tt.want {
			t.Errorf("fileNameFromURL(%q) = %s, want %s", tt.url, got, tt.want)
		}
	}
}
