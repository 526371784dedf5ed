package integration

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mescon/Dupearr/internal/domain"
)

func TestFetchSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/series" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "sonarr-key" {
			t.Errorf("missing API key header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id": 1, "title": "The Show", "path": "/tv/The Show", "monitored": true, "tvdbId": 12345, "year": 2020, "statistics": {"sizeOnDisk": 5000}},
			{"id": 2, "title": "", "path": "/tv/Broken"},
			{"id": 3, "title": "No Path", "path": ""}
		]`))
	}))
	defer srv.Close()

	c := NewCatalogClient(srv.URL, "sonarr-key", "http://localhost:7878", "", 10*time.Second)
	entries, err := c.FetchSeries(context.Background())
	if err != nil {
		t.Fatalf("FetchSeries: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1 (incomplete entries dropped)", len(entries))
	}
	e := entries[0]
	if e.Kind != domain.KindSeries || e.Title != "The Show" || e.CatalogPath != "/tv/The Show" {
		t.Errorf("entry = %+v", e)
	}
	if e.TVDBID != 12345 || e.SizeOnDisk != 5000 || !e.Monitored {
		t.Errorf("entry details = %+v", e)
	}
}

func TestFetchMovies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/movie" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id": 7, "title": "The Movie", "path": "/movies/The Movie (2020)", "monitored": false, "tmdbId": 99, "year": 2020, "sizeOnDisk": 123}]`))
	}))
	defer srv.Close()

	c := NewCatalogClient("http://localhost:8989", "", srv.URL, "radarr-key", 10*time.Second)
	entries, err := c.FetchMovies(context.Background())
	if err != nil {
		t.Fatalf("FetchMovies: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Kind != domain.KindMovie || e.TMDBID != 99 || e.Year != 2020 {
		t.Errorf("entry = %+v", e)
	}
}

func TestFetchSeriesMissingKey(t *testing.T) {
	c := NewCatalogClient("http://localhost:8989", "", "http://localhost:7878", "", 10*time.Second)
	_, err := c.FetchSeries(context.Background())
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestFetchSeriesServerError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewCatalogClient(srv.URL, "key", "http://localhost:7878", "", 10*time.Second)
	if _, err := c.FetchSeries(context.Background()); err == nil {
		t.Error("expected error for 500 response")
	}
	// One request per catalog per run, no retries.
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestFetchSeriesUnreachable(t *testing.T) {
	c := NewCatalogClient("http://127.0.0.1:1", "key", "http://localhost:7878", "", time.Second)
	if _, err := c.FetchSeries(context.Background()); err == nil {
		t.Error("expected error for unreachable catalog")
	}
}
