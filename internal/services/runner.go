package services

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/mescon/Dupearr/internal/config"
	"github.com/mescon/Dupearr/internal/db"
	"github.com/mescon/Dupearr/internal/domain"
	"github.com/mescon/Dupearr/internal/eventbus"
	"github.com/mescon/Dupearr/internal/grouper"
	"github.com/mescon/Dupearr/internal/integration"
	"github.com/mescon/Dupearr/internal/logger"
	"github.com/mescon/Dupearr/internal/planner"
	"github.com/mescon/Dupearr/internal/report"
	"github.com/mescon/Dupearr/internal/resolver"
	"github.com/mescon/Dupearr/internal/scanner"
)

// Run kinds recorded in history.
const (
	RunKindScan = "scan"
	RunKindFull = "full"
)

// Runner drives the scan, resolve and plan stages. Repository and event bus
// are optional: one-shot CLI invocations run without history or subscribers.
type Runner struct {
	cfg  *config.Config
	repo *db.Repository
	bus  eventbus.Publisher
}

func NewRunner(cfg *config.Config, repo *db.Repository, bus eventbus.Publisher) *Runner {
	return &Runner{cfg: cfg, repo: repo, bus: bus}
}

// ScanResult is the outcome of one scan stage.
type ScanResult struct {
	RunID      string
	Groups     []domain.DuplicateGroup
	Stats      scanner.Stats
	ReportPath string
}

// ScanOptions controls one scan invocation.
type ScanOptions struct {
	Roots      []string
	Quick      bool
	ReportPath string
}

func (r *Runner) publish(e domain.Event) {
	if r.bus != nil {
		r.bus.Publish(e)
	}
}

// Scan walks the roots, groups similar folder names and writes the duplicate
// report. The run is recorded in history when a repository is attached.
func (r *Runner) Scan(ctx context.Context, opts ScanOptions) (*ScanResult, error) {
	return r.scanAs(ctx, RunKindScan, opts)
}

func (r *Runner) scanAs(ctx context.Context, kind string, opts ScanOptions) (*ScanResult, error) {
	roots := opts.Roots
	if len(roots) == 0 {
		roots = r.detectRoots()
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("no scan roots configured or detected")
	}

	reportPath := opts.ReportPath
	if reportPath == "" {
		reportPath = r.cfg.ReportPath
	}

	runID := uuid.New().String()
	logger.Infof("Run %s: scanning %d root(s)", runID, len(roots))

	if r.repo != nil {
		if err := r.repo.RecordRunStart(runID, kind, roots); err != nil {
			logger.Errorf("Failed to record run start: %v", err)
		}
	}
	r.publish(domain.Event{
		RunID:     runID,
		EventType: domain.RunStarted,
		EventData: map[string]interface{}{"kind": kind, "roots": len(roots)},
	})

	index, stats, err := scanner.Scan(ctx, roots, scanner.Options{
		Workers: r.cfg.Workers,
		Quick:   opts.Quick,
	})
	if err != nil {
		r.failRun(runID, kind, err)
		return nil, err
	}
	for i := 0; i < stats.RootsSkipped; i++ {
		r.publish(domain.Event{
			RunID:     runID,
			EventType: domain.ScanRootSkipped,
			EventData: map[string]interface{}{"kind": kind},
		})
	}

	groups := grouper.Group(index)
	r.publish(domain.Event{
		RunID:     runID,
		EventType: domain.GroupsFound,
		EventData: map[string]interface{}{"kind": kind, "groups_found": len(groups)},
	})

	if err := report.SaveScanReport(reportPath, groups); err != nil {
		r.failRun(runID, kind, err)
		return nil, err
	}
	logger.Infof("Run %s: %d potential duplicate group(s), report written to %s",
		runID, len(groups), reportPath)

	if r.repo != nil {
		if err := r.repo.InsertGroups(runID, groups); err != nil {
			logger.Errorf("Failed to record duplicate groups: %v", err)
		}
		if err := r.repo.CompleteRun(runID, db.StatusCompleted, "",
			stats.FoldersIndexed, stats.FilesIndexed, len(groups)); err != nil {
			logger.Errorf("Failed to complete run: %v", err)
		}
	}
	r.publish(domain.Event{
		RunID:     runID,
		EventType: domain.RunCompleted,
		EventData: map[string]interface{}{
			"kind":             kind,
			"groups_found":     len(groups),
			"folders_indexed":  stats.FoldersIndexed,
			"files_indexed":    stats.FilesIndexed,
			"duration_seconds": stats.Duration.Seconds(),
		},
	})

	return &ScanResult{
		RunID:      runID,
		Groups:     groups,
		Stats:      stats,
		ReportPath: reportPath,
	}, nil
}

func (r *Runner) failRun(runID, kind string, cause error) {
	logger.Errorf("Run %s failed: %v", runID, cause)
	if r.repo != nil {
		if err := r.repo.CompleteRun(runID, db.StatusFailed, cause.Error(), 0, 0, 0); err != nil {
			logger.Errorf("Failed to record run failure: %v", err)
		}
	}
	r.publish(domain.Event{
		RunID:     runID,
		EventType: domain.RunFailed,
		EventData: map[string]interface{}{"kind": kind, "error": cause.Error()},
	})
}

// detectRoots falls back to media roots discovered from the compose manifest
// when no roots are configured.
func (r *Runner) detectRoots() []string {
	if len(r.cfg.ScanRoots) > 0 {
		return r.cfg.ScanRoots
	}
	composePath := r.cfg.ComposePath
	if composePath == "" {
		composePath = integration.FindComposeFile()
	}
	if composePath == "" {
		return nil
	}
	roots, err := integration.DetectMediaRoots(composePath, r.cfg.ComposeEnvPath)
	if err != nil {
		logger.Warnf("Media root detection failed: %v", err)
		return nil
	}
	return roots
}

// Snapshot fetches both catalogs and builds the resolver snapshot. Catalog
// failures degrade to an empty result for that service so the remaining
// catalog still resolves.
func (r *Runner) Snapshot(ctx context.Context) (*resolver.Snapshot, error) {
	mapper := r.loadMapper()

	client := integration.NewCatalogClient(
		r.cfg.Sonarr.URL, r.cfg.Sonarr.APIKey,
		r.cfg.Radarr.URL, r.cfg.Radarr.APIKey,
		r.cfg.CatalogTimeout)

	var entries []domain.CatalogEntry

	series, err := client.FetchSeries(ctx)
	if err != nil {
		logger.Warnf("Sonarr catalog unavailable, continuing without it: %v", err)
		r.publish(domain.Event{EventType: domain.CatalogDegraded,
			EventData: map[string]interface{}{"service": "sonarr", "error": err.Error()}})
	} else {
		r.publish(domain.Event{EventType: domain.CatalogFetched,
			EventData: map[string]interface{}{"service": "sonarr", "entries": len(series)}})
		entries = append(entries, series...)
	}

	movies, err := client.FetchMovies(ctx)
	if err != nil {
		logger.Warnf("Radarr catalog unavailable, continuing without it: %v", err)
		r.publish(domain.Event{EventType: domain.CatalogDegraded,
			EventData: map[string]interface{}{"service": "radarr", "error": err.Error()}})
	} else {
		r.publish(domain.Event{EventType: domain.CatalogFetched,
			EventData: map[string]interface{}{"service": "radarr", "entries": len(movies)}})
		entries = append(entries, movies...)
	}

	snap := resolver.NewSnapshot(entries, mapper, r.cfg.ProtectedDirs)

	if r.cfg.MappingsPath != "" {
		if err := snap.ApplyCustomMappings(r.cfg.MappingsPath); err != nil {
			logger.Warnf("Custom mappings not applied: %v", err)
		}
	}

	logger.Infof("Catalog snapshot: %d entries", snap.Len())
	return snap, nil
}

func (r *Runner) loadMapper() *integration.PathMapper {
	composePath := r.cfg.ComposePath
	if composePath == "" {
		composePath = integration.FindComposeFile()
	}
	if composePath == "" {
		logger.Debugf("No compose manifest found, catalog paths used as-is")
		return integration.NewPathMapper(nil)
	}

	mappings, err := integration.LoadMappings(composePath, r.cfg.ComposeEnvPath)
	if err != nil {
		logger.Warnf("Volume mappings unavailable, catalog paths used as-is: %v", err)
		return integration.NewPathMapper(nil)
	}
	logger.Debugf("Loaded %d volume mapping(s) from %s", len(mappings), composePath)
	return integration.NewPathMapper(mappings)
}

// Resolve reads a duplicate report, matches each group against the catalogs
// and writes the resolved report.
func (r *Runner) Resolve(ctx context.Context, reportPath, resolvedPath string) ([]report.ResolvedFolder, error) {
	if reportPath == "" {
		reportPath = r.cfg.ReportPath
	}
	if resolvedPath == "" {
		resolvedPath = r.cfg.ResolvedReportPath
	}

	groups, err := report.LoadScanReport(reportPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read duplicate report: %w", err)
	}

	snap, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	results := resolveGroups(groups, snap)

	if err := report.SaveResolvedReport(resolvedPath, results); err != nil {
		return nil, fmt.Errorf("failed to write resolved report: %w", err)
	}
	logger.Infof("Resolved report written to %s", resolvedPath)
	return results, nil
}

func resolveGroups(groups []domain.ReportGroup, snap *resolver.Snapshot) []report.ResolvedFolder {
	results := make([]report.ResolvedFolder, 0, len(groups))
	for _, g := range groups {
		paths := duplicateDirs(g)
		paths = snap.FilterProtected(paths)
		results = append(results, report.ResolvedFolder{
			Folder:         g.BaseFolder,
			DuplicatePaths: paths,
			Match:          snap.Match(g.BaseFolder, paths),
		})
	}
	return results
}

// duplicateDirs returns the distinct parent directories of every file in the
// group, base side first.
func duplicateDirs(g domain.ReportGroup) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, f := range append(append([]domain.MediaFile{}, g.BaseFiles...), g.SimilarFiles...) {
		dir := filepath.ToSlash(filepath.Dir(f.Path))
		if dir == "." || seen[dir] {
			continue
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}
	return dirs
}

// Plan reads a duplicate report, decides per group what is safe to remove and
// writes the advisory cleanup script. Nothing is ever deleted here.
func (r *Runner) Plan(ctx context.Context, reportPath, scriptPath string) ([]planner.GroupPlan, error) {
	if reportPath == "" {
		reportPath = r.cfg.ReportPath
	}
	if scriptPath == "" {
		scriptPath = r.cfg.ScriptPath
	}

	groups, err := report.LoadScanReport(reportPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read duplicate report: %w", err)
	}

	snap, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	plans := planner.BuildPlan(groups, snap)

	if err := report.SaveCleanupScript(scriptPath, plans); err != nil {
		return nil, fmt.Errorf("failed to write cleanup script: %w", err)
	}

	removals := 0
	for i := range plans {
		removals += len(plans[i].Removals())
	}
	r.publish(domain.Event{
		EventType: domain.PlanWritten,
		EventData: map[string]interface{}{
			"script_path":   scriptPath,
			"removal_count": removals,
		},
	})
	logger.Infof("Cleanup script written to %s (%d suggested removal(s), review before running)",
		scriptPath, removals)
	return plans, nil
}

// FullRun chains scan, resolve and plan into one run.
func (r *Runner) FullRun(ctx context.Context, opts ScanOptions) (*ScanResult, error) {
	start := time.Now()

	result, err := r.scanAs(ctx, RunKindFull, opts)
	if err != nil {
		return nil, err
	}

	if _, err := r.Resolve(ctx, result.ReportPath, r.cfg.ResolvedReportPath); err != nil {
		return result, err
	}
	plans, err := r.Plan(ctx, result.ReportPath, r.cfg.ScriptPath)
	if err != nil {
		return result, err
	}

	if r.repo != nil {
		var actions []domain.CleanupAction
		for i := range plans {
			actions = append(actions, plans[i].Actions()...)
		}
		if err := r.repo.InsertActions(result.RunID, actions); err != nil {
			logger.Errorf("Failed to record cleanup actions: %v", err)
		}
	}

	logger.Infof("Full run %s finished in %s", result.RunID, time.Since(start).Round(time.Millisecond))
	return result, nil
}
