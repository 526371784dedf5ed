package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3" // Register CGo SQLite driver for database/sql
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mescon/Dupearr/internal/config"
	"github.com/mescon/Dupearr/internal/db"
	"github.com/mescon/Dupearr/internal/domain"
	"github.com/mescon/Dupearr/internal/eventbus"
	"github.com/mescon/Dupearr/internal/metrics"
	"github.com/mescon/Dupearr/internal/services"
)

func newTestServer(t *testing.T) (*RESTServer, *db.Repository) {
	t.Helper()

	tmp := t.TempDir()
	cfg := config.NewTestConfig()
	cfg.ReportPath = filepath.Join(tmp, "duplicate_report.txt")
	cfg.ResolvedReportPath = filepath.Join(tmp, "updated_duplicate_report.txt")
	cfg.ScriptPath = filepath.Join(tmp, "cleanup_script.sh")
	config.SetForTesting(cfg)

	repo, err := db.NewRepository(filepath.Join(tmp, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	bus := eventbus.NewEventBus()
	t.Cleanup(bus.Shutdown)

	runner := services.NewRunner(cfg, repo, bus)
	srv := NewRESTServer(ServerDeps{
		Repo:      repo,
		EventBus:  bus,
		Runner:    runner,
		Scheduler: services.NewSchedulerService(runner),
		Metrics:   metrics.NewMetricsService(),
	})
	return srv, repo
}

func doRequest(srv *RESTServer, method, path, apiKey string, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if apiKey != "" {
		r.Header.Set("X-API-Key", apiKey)
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(srv, http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestAuthOpenWithoutStoredKey(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(srv, http.MethodGet, "/api/runs", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthEnforcedAfterKeySetup(t *testing.T) {
	srv, repo := newTestServer(t)

	key, err := EnsureAPIKey(repo)
	require.NoError(t, err)
	require.NotEmpty(t, key)

	// Second call is a no-op
	again, err := EnsureAPIKey(repo)
	require.NoError(t, err)
	assert.Empty(t, again)

	w := doRequest(srv, http.MethodGet, "/api/runs", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(srv, http.MethodGet, "/api/runs", "wrong-key", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(srv, http.MethodGet, "/api/runs", key, "")
	assert.Equal(t, http.StatusOK, w.Code)

	// Health stays public
	w = doRequest(srv, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListRunsAndGetRun(t *testing.T) {
	srv, repo := newTestServer(t)

	require.NoError(t, repo.RecordRunStart("run-1", "scan", []string{"/mnt/media"}))
	require.NoError(t, repo.CompleteRun("run-1", db.StatusCompleted, "", 10, 40, 2))

	w := doRequest(srv, http.MethodGet, "/api/runs", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var listResp struct {
		Runs  []db.Run `json:"runs"`
		Count int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResp))
	require.Equal(t, 1, listResp.Count)
	assert.Equal(t, "run-1", listResp.Runs[0].ID)

	w = doRequest(srv, http.MethodGet, "/api/runs/run-1", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var run db.Run
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Equal(t, 2, run.GroupsFound)

	w = doRequest(srv, http.MethodGet, "/api/runs/missing", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRunGroups(t *testing.T) {
	srv, repo := newTestServer(t)

	require.NoError(t, repo.RecordRunStart("run-1", "scan", nil))
	require.NoError(t, repo.InsertGroups("run-1", []domain.DuplicateGroup{
		{BaseFolder: "The Movie (2020)"},
	}))

	w := doRequest(srv, http.MethodGet, "/api/runs/run-1/groups", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Groups []domain.DuplicateGroup `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Groups, 1)
	assert.Equal(t, "The Movie (2020)", resp.Groups[0].BaseFolder)

	w = doRequest(srv, http.MethodGet, "/api/runs/missing/groups", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTriggerRunValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(srv, http.MethodPost, "/api/scans", "", `{"kind":"bogus"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(srv, http.MethodGet, "/api/reports/duplicates", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	content := "=== Potential Duplicate Media Report ===\n\nNo potential duplicates found.\n"
	require.NoError(t, os.WriteFile(config.Get().ReportPath, []byte(content), 0644))

	w = doRequest(srv, http.MethodGet, "/api/reports/duplicates", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No potential duplicates found.")
}

func TestRegenerateAPIKey(t *testing.T) {
	srv, repo := newTestServer(t)

	w := doRequest(srv, http.MethodPost, "/api/auth/regenerate", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	newKey := resp["api_key"]
	require.NotEmpty(t, newKey)

	// Stored hash must verify the returned key
	_, err := repo.GetSetting(SettingAPIKeyHash)
	require.NoError(t, err)

	w = doRequest(srv, http.MethodGet, "/api/runs", newKey, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(srv, http.MethodGet, "/api/runs", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(srv, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSystemInfo(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(srv, http.MethodGet, "/api/system/info", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var info SystemInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.NotEmpty(t, info.GoVersion)
	assert.Equal(t, config.Version, info.Version)
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(srv, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Not found")
}

func TestGetRunActions(t *testing.T) {
	srv, repo := newTestServer(t)

	require.NoError(t, repo.RecordRunStart("run-1", "full", nil))
	require.NoError(t, repo.InsertActions("run-1", []domain.CleanupAction{
		{Kind: domain.ActionRemove, Path: "/mnt/downloads/The.Movie.2020/movie.mkv", Size: 2000},
	}))

	w := doRequest(srv, http.MethodGet, "/api/runs/run-1/actions", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Actions []domain.CleanupAction `json:"actions"`
		Count   int                    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, domain.ActionRemove, resp.Actions[0].Kind)
	assert.Equal(t, "/mnt/downloads/The.Movie.2020/movie.mkv", resp.Actions[0].Path)

	w = doRequest(srv, http.MethodGet, "/api/runs/missing/actions", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetSchedule(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(srv, http.MethodPost, "/api/schedule", "", `{"cron":"0 3 * * *"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(srv, http.MethodGet, "/api/schedule", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Cron string `json:"cron"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "0 3 * * *", resp.Cron)

	// Removing the schedule with an empty expression succeeds.
	w = doRequest(srv, http.MethodPost, "/api/schedule", "", `{"cron":""}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetScheduleInvalidCron(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(srv, http.MethodPost, "/api/schedule", "", `{"cron":"not a cron"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
