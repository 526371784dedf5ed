package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mescon/Dupearr/internal/domain"
	"github.com/mescon/Dupearr/internal/logger"
)

// ErrMissingAPIKey is returned when a catalog has no API key configured.
// Callers treat it as a degraded catalog, not a fatal error.
var ErrMissingAPIKey = errors.New("catalog API key not configured")

// CatalogClient fetches the full media inventory from the Sonarr and Radarr
// v3 APIs. Each catalog costs exactly one request per run; failures are
// reported to the caller so the run can degrade to an empty catalog rather
// than retry.
type CatalogClient struct {
	httpClient *http.Client

	sonarrURL string
	sonarrKey string
	radarrURL string
	radarrKey string
}

func NewCatalogClient(sonarrURL, sonarrKey, radarrURL, radarrKey string, timeout time.Duration) *CatalogClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CatalogClient{
		httpClient: &http.Client{Timeout: timeout},
		sonarrURL:  strings.TrimRight(sonarrURL, "/"),
		sonarrKey:  sonarrKey,
		radarrURL:  strings.TrimRight(radarrURL, "/"),
		radarrKey:  radarrKey,
	}
}

type seriesResource struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Path       string `json:"path"`
	Monitored  bool   `json:"monitored"`
	TVDBID     int64  `json:"tvdbId"`
	Year       int    `json:"year"`
	Statistics struct {
		SizeOnDisk int64 `json:"sizeOnDisk"`
	} `json:"statistics"`
}

type movieResource struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Path       string `json:"path"`
	Monitored  bool   `json:"monitored"`
	TMDBID     int64  `json:"tmdbId"`
	Year       int    `json:"year"`
	SizeOnDisk int64  `json:"sizeOnDisk"`
}

// FetchSeries returns all series known to Sonarr. Entries without a title or
// path are dropped.
func (c *CatalogClient) FetchSeries(ctx context.Context) ([]domain.CatalogEntry, error) {
	if c.sonarrKey == "" {
		return nil, fmt.Errorf("sonarr: %w", ErrMissingAPIKey)
	}

	var resources []seriesResource
	if err := c.getJSON(ctx, c.sonarrURL+"/api/v3/series", c.sonarrKey, &resources); err != nil {
		return nil, fmt.Errorf("sonarr: %w", err)
	}

	entries := make([]domain.CatalogEntry, 0, len(resources))
	for _, s := range resources {
		if s.Title == "" || s.Path == "" {
			continue
		}
		entries = append(entries, domain.CatalogEntry{
			Kind:        domain.KindSeries,
			Title:       s.Title,
			CatalogPath: s.Path,
			ID:          s.ID,
			Monitored:   s.Monitored,
			TVDBID:      s.TVDBID,
			Year:        s.Year,
			SizeOnDisk:  s.Statistics.SizeOnDisk,
		})
	}
	logger.Infof("Catalog: fetched %d series from Sonarr", len(entries))
	return entries, nil
}

// FetchMovies returns all movies known to Radarr. Entries without a title or
// path are dropped.
func (c *CatalogClient) FetchMovies(ctx context.Context) ([]domain.CatalogEntry, error) {
	if c.radarrKey == "" {
		return nil, fmt.Errorf("radarr: %w", ErrMissingAPIKey)
	}

	var resources []movieResource
	if err := c.getJSON(ctx, c.radarrURL+"/api/v3/movie", c.radarrKey, &resources); err != nil {
		return nil, fmt.Errorf("radarr: %w", err)
	}

	entries := make([]domain.CatalogEntry, 0, len(resources))
	for _, m := range resources {
		if m.Title == "" || m.Path == "" {
			continue
		}
		entries = append(entries, domain.CatalogEntry{
			Kind:        domain.KindMovie,
			Title:       m.Title,
			CatalogPath: m.Path,
			ID:          m.ID,
			Monitored:   m.Monitored,
			TMDBID:      m.TMDBID,
			Year:        m.Year,
			SizeOnDisk:  m.SizeOnDisk,
		})
	}
	logger.Infof("Catalog: fetched %d movies from Radarr", len(entries))
	return entries, nil
}

func (c *CatalogClient) getJSON(ctx context.Context, url, apiKey string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Api-Key", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s from %s", resp.Status, url)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}
	return nil
}
