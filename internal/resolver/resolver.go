// Package resolver matches duplicate folders against the catalog services'
// official library paths.
package resolver

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/mescon/Dupearr/internal/domain"
	"github.com/mescon/Dupearr/internal/integration"
	"github.com/mescon/Dupearr/internal/logger"
	"github.com/mescon/Dupearr/internal/media"
)

// Basenames that identify top-level library directories. A protected path
// check only fires when the final path element is one of these.
var libraryBasenames = map[string]bool{
	"films":      true,
	"movies":     true,
	"television": true,
	"tv":         true,
	"videos":     true,
}

// Parent directory names that identify media library layouts for the related
// path heuristic.
var mediaParentDirs = map[string]bool{
	"movies":     true,
	"television": true,
	"tv":         true,
	"series":     true,
	"films":      true,
	"shows":      true,
}

// Snapshot is an immutable view of both catalogs with host paths applied,
// indexed for folder lookup.
type Snapshot struct {
	entries  []domain.CatalogEntry
	byFolder map[string]int

	protected []string
}

// NewSnapshot builds a snapshot from catalog entries, converting each
// catalog path to a host path through the mapper. Later entries win folder
// name collisions, matching a movie shadowing a series of the same name.
func NewSnapshot(entries []domain.CatalogEntry, mapper *integration.PathMapper, protectedDirs []string) *Snapshot {
	s := &Snapshot{
		byFolder:  make(map[string]int, len(entries)),
		protected: normalizeProtected(protectedDirs),
	}
	for _, e := range entries {
		e.HostPath = mapper.ToHostPath(e.CatalogPath)
		s.entries = append(s.entries, e)
	}
	for i := range s.entries {
		s.byFolder[path.Base(s.entries[i].HostPath)] = i
	}
	return s
}

func normalizeProtected(dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if d = strings.TrimRight(d, "/"); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of catalog entries in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// customMapping mirrors the custom mappings JSON file: folder name to a
// catalog entry override.
type customMapping struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	HostPath string `json:"host_path"`
}

// ApplyCustomMappings merges folder overrides from a JSON file over the
// snapshot's folder index. A missing file is ignored.
func (s *Snapshot) ApplyCustomMappings(mappingsPath string) error {
	if mappingsPath == "" {
		return nil
	}
	data, err := os.ReadFile(mappingsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read custom mappings %s: %w", mappingsPath, err)
	}

	var custom map[string]customMapping
	if err := json.Unmarshal(data, &custom); err != nil {
		return fmt.Errorf("failed to parse custom mappings %s: %w", mappingsPath, err)
	}

	for folder, m := range custom {
		kind := domain.KindMovie
		if m.Type == "series" {
			kind = domain.KindSeries
		}
		entry := domain.CatalogEntry{
			Kind:     kind,
			Title:    m.Title,
			HostPath: m.HostPath,
		}
		s.entries = append(s.entries, entry)
		s.byFolder[folder] = len(s.entries) - 1
		logger.Debugf("Resolver: custom mapping for %s -> %s", folder, m.HostPath)
	}
	logger.Infof("Resolver: applied %d custom mappings from %s", len(custom), mappingsPath)
	return nil
}

// IsProtected reports whether a path must never be treated as a removable
// duplicate: it sits at or under a protected root and its basename names a
// top-level library directory.
func (s *Snapshot) IsProtected(p string) bool {
	for _, root := range s.protected {
		if p == root || strings.HasPrefix(p, root+"/") {
			if libraryBasenames[strings.ToLower(path.Base(p))] {
				logger.Warnf("Resolver: protected library directory: %s", p)
				return true
			}
		}
	}
	return false
}

// FilterProtected returns the paths that are safe to consider, dropping
// protected ones.
func (s *Snapshot) FilterProtected(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if s.IsProtected(p) {
			logger.Warnf("Resolver: skipping protected path: %s", p)
			continue
		}
		out = append(out, p)
	}
	return out
}

// ManagedBy returns the catalog entry whose official host path covers the
// given path, or nil. A path is covered when it equals the official path or
// lies underneath it.
func (s *Snapshot) ManagedBy(p string) *domain.CatalogEntry {
	for i := range s.entries {
		e := &s.entries[i]
		if p == e.HostPath || strings.HasPrefix(p, e.HostPath+"/") {
			return e
		}
	}
	return nil
}

// Match resolves a duplicate folder to its official catalog entry using three
// tiers in order: exact folder name lookup, path comparison against the
// folder's duplicate paths, and fuzzy name containment. Returns a match with
// TierNone when nothing applies.
func (s *Snapshot) Match(folderName string, duplicatePaths []string) domain.OfficialMatch {
	if i, ok := s.byFolder[folderName]; ok {
		logger.Debugf("Resolver: direct folder name match for %s", folderName)
		return matchFrom(&s.entries[i], domain.TierDirectName)
	}

	for i := range s.entries {
		e := &s.entries[i]
		if s.pathsRelated(e, folderName, duplicatePaths) {
			logger.Debugf("Resolver: path comparison match for %s with %s", folderName, e.Title)
			return matchFrom(e, domain.TierPathComparison)
		}
	}

	if folderName != "" {
		folderLower := strings.ToLower(folderName)
		for i := range s.entries {
			e := &s.entries[i]
			dbFolder := strings.ToLower(path.Base(e.HostPath))
			if folderLower == dbFolder || strings.Contains(dbFolder, folderLower) || strings.Contains(folderLower, dbFolder) {
				logger.Debugf("Resolver: fuzzy name match for %s with %s", folderName, e.Title)
				return matchFrom(e, domain.TierFuzzyName)
			}
		}
	}

	return domain.OfficialMatch{Tier: domain.TierNone}
}

func matchFrom(e *domain.CatalogEntry, tier domain.MatchTier) domain.OfficialMatch {
	return domain.OfficialMatch{
		Kind:     e.Kind,
		Title:    e.Title,
		HostPath: e.HostPath,
		Tier:     tier,
	}
}

// pathsRelated implements the path comparison tier: the official path and a
// duplicate path must share a basename relationship and either coincide,
// share a parent, nest, or look like related media paths.
func (s *Snapshot) pathsRelated(e *domain.CatalogEntry, folderName string, duplicatePaths []string) bool {
	hostPath := e.HostPath
	hostBase := strings.ToLower(path.Base(hostPath))

	for _, dup := range duplicatePaths {
		dupBase := strings.ToLower(path.Base(dup))

		if hostBase != dupBase && !strings.Contains(dupBase, hostBase) && !strings.Contains(hostBase, dupBase) {
			continue
		}

		if hostPath == dup ||
			path.Dir(hostPath) == path.Dir(dup) ||
			strings.HasPrefix(hostPath, dup+"/") ||
			strings.HasPrefix(dup, hostPath+"/") ||
			relatedMediaPaths(hostPath, dup, folderName) {
			return true
		}
	}
	return false
}

// relatedMediaPaths reports whether two paths plausibly refer to the same
// content despite naming differences.
func relatedMediaPaths(path1, path2, folderName string) bool {
	base1 := strings.ToLower(path.Base(path1))
	base2 := strings.ToLower(path.Base(path2))

	if base1 == base2 {
		return true
	}
	if folderName != "" {
		folderLower := strings.ToLower(folderName)
		if base1 == folderLower || base2 == folderLower {
			return true
		}
	}

	// Compare titles with any "(year)" suffix removed, tolerating edition
	// suffixes like "Extended" on one side.
	name1 := strings.ToLower(media.StripYearSuffix(path.Base(path1)))
	name2 := strings.ToLower(media.StripYearSuffix(path.Base(path2)))
	if name1 != "" && name2 != "" {
		if name1 == name2 || strings.Contains(name1, name2) || strings.Contains(name2, name1) {
			return true
		}
	}

	parent1 := strings.ToLower(path.Base(path.Dir(path1)))
	parent2 := strings.ToLower(path.Base(path.Dir(path2)))
	return mediaParentDirs[parent1] && mediaParentDirs[parent2] && base1 == base2
}
