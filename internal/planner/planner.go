// Package planner decides, per duplicate group, which side is safe to remove
// based on catalog management status. The plan is advisory: it is rendered to
// a reviewable script and never executed here.
package planner

import (
	"github.com/mescon/Dupearr/internal/domain"
	"github.com/mescon/Dupearr/internal/logger"
)

// sizeAdvantageFactor is how much larger one side's biggest file must be
// before the plan suggests keeping that side in a manual review case.
const sizeAdvantageFactor = 1.5

// Manager reports which catalog entry, if any, owns a path.
type Manager interface {
	ManagedBy(path string) *domain.CatalogEntry
}

// Decision is the action chosen for one duplicate group.
type Decision string

const (
	DecisionRemoveSimilar Decision = "remove_similar"
	DecisionRemoveBase    Decision = "remove_base"
	DecisionManualReview  Decision = "manual_review"
)

// FileStatus is one file with its management status resolved.
type FileStatus struct {
	File      domain.MediaFile
	Managed   bool
	ManagedBy string
}

// GroupPlan is the decision for a single duplicate group.
type GroupPlan struct {
	Index      int
	BaseFolder string

	BaseFiles    []FileStatus
	SimilarFiles []FileStatus

	Decision Decision

	// Rationale explains the decision in one line for the script comments.
	Rationale string

	// Suggestion is set only for manual review when one side's largest file
	// is decisively bigger.
	Suggestion string
}

// Removals returns the files the plan proposes removing. Empty for manual
// review groups.
func (p *GroupPlan) Removals() []domain.MediaFile {
	var side []FileStatus
	switch p.Decision {
	case DecisionRemoveSimilar:
		side = p.SimilarFiles
	case DecisionRemoveBase:
		side = p.BaseFiles
	default:
		return nil
	}
	files := make([]domain.MediaFile, 0, len(side))
	for _, fs := range side {
		files = append(files, fs.File)
	}
	return files
}

// Actions flattens the plan into per-file advisory actions: files on the
// removed side become remove actions, files on the kept side keep actions,
// and manual review groups mark every file for review.
func (p *GroupPlan) Actions() []domain.CleanupAction {
	baseKind, similarKind := domain.ActionManualReview, domain.ActionManualReview
	switch p.Decision {
	case DecisionRemoveSimilar:
		baseKind, similarKind = domain.ActionKeep, domain.ActionRemove
	case DecisionRemoveBase:
		baseKind, similarKind = domain.ActionRemove, domain.ActionKeep
	}

	actions := make([]domain.CleanupAction, 0, len(p.BaseFiles)+len(p.SimilarFiles))
	for _, fs := range p.BaseFiles {
		actions = append(actions, actionFor(fs, baseKind, p.Rationale))
	}
	for _, fs := range p.SimilarFiles {
		actions = append(actions, actionFor(fs, similarKind, p.Rationale))
	}
	return actions
}

func actionFor(fs FileStatus, kind domain.ActionKind, rationale string) domain.CleanupAction {
	return domain.CleanupAction{
		Kind:      kind,
		Path:      fs.File.Path,
		Size:      fs.File.Size,
		Managed:   fs.Managed,
		ManagedBy: fs.ManagedBy,
		Rationale: rationale,
	}
}

// BuildPlan resolves management status for every file and applies the
// decision rules: when exactly one side has a managed file, the other side is
// proposed for removal; otherwise the group is flagged for manual review,
// with a size-based suggestion if one side is clearly larger.
func BuildPlan(groups []domain.ReportGroup, mgr Manager) []GroupPlan {
	plans := make([]GroupPlan, 0, len(groups))

	for i, g := range groups {
		plan := GroupPlan{
			Index:        i + 1,
			BaseFolder:   g.BaseFolder,
			BaseFiles:    resolveStatuses(g.BaseFiles, mgr),
			SimilarFiles: resolveStatuses(g.SimilarFiles, mgr),
		}

		baseManaged := anyManaged(plan.BaseFiles)
		similarManaged := anyManaged(plan.SimilarFiles)

		switch {
		case baseManaged && !similarManaged:
			plan.Decision = DecisionRemoveSimilar
			plan.Rationale = "Keeping base files (managed by Sonarr/Radarr) and removing duplicates"
		case similarManaged && !baseManaged:
			plan.Decision = DecisionRemoveBase
			plan.Rationale = "Keeping similar files (managed by Sonarr/Radarr) and removing duplicates"
		case baseManaged && similarManaged:
			plan.Decision = DecisionManualReview
			plan.Rationale = "Both versions are managed by Sonarr/Radarr"
			plan.Suggestion = sizeSuggestion(plan.BaseFiles, plan.SimilarFiles)
		default:
			plan.Decision = DecisionManualReview
			plan.Rationale = "No versions are managed by Sonarr/Radarr"
			plan.Suggestion = sizeSuggestion(plan.BaseFiles, plan.SimilarFiles)
		}

		plans = append(plans, plan)
	}

	logger.Infof("Planner: %d groups planned, %d need manual review", len(plans), countManual(plans))
	return plans
}

func resolveStatuses(files []domain.MediaFile, mgr Manager) []FileStatus {
	statuses := make([]FileStatus, 0, len(files))
	for _, f := range files {
		fs := FileStatus{File: f}
		if e := mgr.ManagedBy(f.Path); e != nil {
			fs.Managed = true
			fs.ManagedBy = e.Kind.Service()
		}
		statuses = append(statuses, fs)
	}
	return statuses
}

func anyManaged(files []FileStatus) bool {
	for _, f := range files {
		if f.Managed {
			return true
		}
	}
	return false
}

func maxSize(files []FileStatus) int64 {
	var max int64
	for _, f := range files {
		if f.File.Size > max {
			max = f.File.Size
		}
	}
	return max
}

func sizeSuggestion(base, similar []FileStatus) string {
	if len(base) == 0 || len(similar) == 0 {
		return ""
	}
	maxBase := float64(maxSize(base))
	maxSimilar := float64(maxSize(similar))
	switch {
	case maxBase > maxSimilar*sizeAdvantageFactor:
		return "Suggestion: Keep base files (larger size)"
	case maxSimilar > maxBase*sizeAdvantageFactor:
		return "Suggestion: Keep similar files (larger size)"
	}
	return ""
}

func countManual(plans []GroupPlan) int {
	n := 0
	for _, p := range plans {
		if p.Decision == DecisionManualReview {
			n++
		}
	}
	return n
}
