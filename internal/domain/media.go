// Package domain holds the core data model shared by the scanner, grouper,
// resolver and planner. Values here are plain data; all behavior that mutates
// state lives in the packages that produce them.
package domain

// MediaFile is a single video file observed during a scan. Size is best-effort:
// zero means unknown (stat failed or the file came from a parsed report that
// carried no size).
type MediaFile struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// FolderIndex maps a folder name (not a path) to the media files recorded
// under it. One file is recorded under both its parent and grandparent folder
// names, so the same path may legitimately appear in two buckets - or twice in
// one bucket when those names coincide. Key order is discovery order.
type FolderIndex struct {
	names   []string
	buckets map[string][]MediaFile
}

// NewFolderIndex returns an empty index.
func NewFolderIndex() *FolderIndex {
	return &FolderIndex{buckets: make(map[string][]MediaFile)}
}

// Add appends a file to the named bucket, creating the bucket on first use.
// Entries are never deduplicated by path.
func (idx *FolderIndex) Add(name string, f MediaFile) {
	if name == "" {
		return
	}
	if _, ok := idx.buckets[name]; !ok {
		idx.names = append(idx.names, name)
	}
	idx.buckets[name] = append(idx.buckets[name], f)
}

// Names returns the distinct folder names in the order they were first seen.
func (idx *FolderIndex) Names() []string {
	return idx.names
}

// Files returns the bucket for name in insertion order.
func (idx *FolderIndex) Files(name string) []MediaFile {
	return idx.buckets[name]
}

// Merge appends every bucket of other onto idx, preserving other's per-bucket
// order. Order of names across merges follows merge order.
func (idx *FolderIndex) Merge(other *FolderIndex) {
	if other == nil {
		return
	}
	for _, name := range other.names {
		for _, f := range other.buckets[name] {
			idx.Add(name, f)
		}
	}
}

// Len returns the number of distinct folder names.
func (idx *FolderIndex) Len() int {
	return len(idx.names)
}

// SimilarFolder is one member of a duplicate group, with the similarity score
// that admitted it and the files recorded under it.
type SimilarFolder struct {
	Name  string      `json:"name"`
	Score float64     `json:"score"`
	Files []MediaFile `json:"files"`
}

// DuplicateGroup is a base folder plus the folders judged name-similar to it.
// A folder name belongs to at most one group across a whole run.
type DuplicateGroup struct {
	BaseFolder string          `json:"base_folder"`
	BaseFiles  []MediaFile     `json:"base_files"`
	Similar    []SimilarFolder `json:"similar"`
}

// AllPaths returns every file path in the group, base side first.
func (g *DuplicateGroup) AllPaths() []string {
	paths := make([]string, 0, len(g.BaseFiles))
	for _, f := range g.BaseFiles {
		paths = append(paths, f.Path)
	}
	for _, s := range g.Similar {
		for _, f := range s.Files {
			paths = append(paths, f.Path)
		}
	}
	return paths
}

// ReportGroup is a duplicate group as read back from a written report: the
// base side files and the combined files of all similar folders. File sizes
// parsed from the report may be zero when the report recorded them as
// unknown.
type ReportGroup struct {
	BaseFolder   string
	BaseFiles    []MediaFile
	SimilarFiles []MediaFile
}

// CatalogKind identifies which catalog service reported an entry.
type CatalogKind string

const (
	KindSeries CatalogKind = "series"
	KindMovie  CatalogKind = "movie"
)

// Service returns the catalog service responsible for entries of this kind.
func (k CatalogKind) Service() string {
	if k == KindSeries {
		return "sonarr"
	}
	return "radarr"
}

// CatalogEntry is one title known to Sonarr or Radarr. CatalogPath is the path
// as the service reported it (possibly container-internal); HostPath is the
// same path after volume-mapping translation.
type CatalogEntry struct {
	Kind        CatalogKind `json:"kind"`
	Title       string      `json:"title"`
	CatalogPath string      `json:"catalog_path"`
	HostPath    string      `json:"host_path"`
	ID          int64       `json:"id,omitempty"`
	Monitored   bool        `json:"monitored,omitempty"`
	TVDBID      int64       `json:"tvdb_id,omitempty"`
	TMDBID      int64       `json:"tmdb_id,omitempty"`
	Year        int         `json:"year,omitempty"`
	SizeOnDisk  int64       `json:"size_on_disk,omitempty"`
}

// PathMapping translates one container path prefix to a host path prefix for
// a given service. The mapping with the longest matching container prefix
// wins.
type PathMapping struct {
	Service       string `json:"service"`
	HostPath      string `json:"host_path"`
	ContainerPath string `json:"container_path"`
}

// MatchTier records which strategy resolved a duplicate group to a catalog
// entry, in descending order of confidence.
type MatchTier string

const (
	TierDirectName     MatchTier = "direct_name"
	TierPathComparison MatchTier = "path_comparison"
	TierFuzzyName      MatchTier = "fuzzy_name"
	TierNone           MatchTier = "none"
)

// OfficialMatch is the outcome of resolving a duplicate group against the
// catalogs. At most one per group.
type OfficialMatch struct {
	Kind     CatalogKind `json:"kind"`
	Title    string      `json:"title"`
	HostPath string      `json:"host_path"`
	Tier     MatchTier   `json:"tier"`
}

// ActionKind classifies a cleanup decision for one file.
type ActionKind string

const (
	ActionKeep         ActionKind = "keep"
	ActionRemove       ActionKind = "remove"
	ActionManualReview ActionKind = "manual_review"
)

// CleanupAction is one advisory decision. The engine never executes removals;
// actions are rendered into a script a human reviews and runs externally.
type CleanupAction struct {
	Kind      ActionKind `json:"kind"`
	Path      string     `json:"path"`
	Size      int64      `json:"size"`
	Managed   bool       `json:"managed"`
	ManagedBy string     `json:"managed_by,omitempty"`
	Rationale string     `json:"rationale"`
}
