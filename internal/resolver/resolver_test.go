package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mescon/Dupearr/internal/domain"
	"github.com/mescon/Dupearr/internal/integration"
)

func testSnapshot(entries []domain.CatalogEntry, mappings []domain.PathMapping, protected []string) *Snapshot {
	return NewSnapshot(entries, integration.NewPathMapper(mappings), protected)
}

func TestSnapshotAppliesPathMapping(t *testing.T) {
	s := testSnapshot(
		[]domain.CatalogEntry{
			{Kind: domain.KindSeries, Title: "The Show", CatalogPath: "/tv/The Show"},
		},
		[]domain.PathMapping{
			{Service: "sonarr", HostPath: "/mnt/media/tv", ContainerPath: "/tv"},
		},
		nil,
	)

	m := s.Match("The Show", nil)
	if m.Tier != domain.TierDirectName {
		t.Fatalf("Tier = %v, want direct name", m.Tier)
	}
	if m.HostPath != "/mnt/media/tv/The Show" {
		t.Errorf("HostPath = %q, want container path converted", m.HostPath)
	}
}

func TestMatchTierPrecedence(t *testing.T) {
	s := testSnapshot(
		[]domain.CatalogEntry{
			{Kind: domain.KindMovie, Title: "The Movie", CatalogPath: "/mnt/media/movies/The Movie (2020)"},
		},
		nil, nil,
	)

	// Exact folder name wins.
	m := s.Match("The Movie (2020)", nil)
	if m.Tier != domain.TierDirectName {
		t.Errorf("Tier = %v, want direct name", m.Tier)
	}

	// Unknown folder name, but a duplicate path whose basename matches the
	// official folder hits path comparison.
	m = s.Match("The Movie (2020) Copy", []string{"/mnt/storage/The Movie (2020)"})
	if m.Tier != domain.TierPathComparison {
		t.Errorf("Tier = %v, want path comparison", m.Tier)
	}

	// No usable paths, but folder name contained in the official basename
	// falls back to fuzzy name.
	m = s.Match("The Movie", nil)
	if m.Tier != domain.TierFuzzyName {
		t.Errorf("Tier = %v, want fuzzy name", m.Tier)
	}

	// Nothing relates at all.
	m = s.Match("Unrelated Thing", []string{"/elsewhere/Unrelated Thing"})
	if m.Tier != domain.TierNone {
		t.Errorf("Tier = %v, want none", m.Tier)
	}
}

func TestMatchPathComparisonRequiresBasenameRelation(t *testing.T) {
	s := testSnapshot(
		[]domain.CatalogEntry{
			{Kind: domain.KindMovie, Title: "The Movie", CatalogPath: "/mnt/media/movies/The Movie (2020)"},
		},
		nil, nil,
	)

	// Shares the parent directory but the basenames are unrelated, so the
	// path tier must not fire; fuzzy must not either.
	m := s.Match("Something Else", []string{"/mnt/media/movies/Something Else"})
	if m.Tier != domain.TierNone {
		t.Errorf("Tier = %v, want none", m.Tier)
	}
}

func TestMatchNestedPaths(t *testing.T) {
	s := testSnapshot(
		[]domain.CatalogEntry{
			{Kind: domain.KindSeries, Title: "The Show", CatalogPath: "/mnt/media/tv/The Show"},
		},
		nil, nil,
	)

	m := s.Match("Season 1", []string{"/mnt/media/tv/The Show/The Show"})
	if m.Tier != domain.TierPathComparison {
		t.Errorf("Tier = %v, want path comparison for nested duplicate", m.Tier)
	}
}

func TestIsProtected(t *testing.T) {
	s := testSnapshot(nil, nil, []string{"/mnt/media"})

	cases := map[string]bool{
		"/mnt/media/Movies":           true,
		"/mnt/media":                  false, // basename "media" is not a library name
		"/mnt/media/tv":               true,
		"/mnt/media/Movies/The Movie": false, // basename is a title, not a library dir
		"/elsewhere/Movies":           false, // not under a protected root
	}
	for p, want := range cases {
		if got := s.IsProtected(p); got != want {
			t.Errorf("IsProtected(%q) = %v, want %v", p, got, want)
		}
	}
}

func TestFilterProtected(t *testing.T) {
	s := testSnapshot(nil, nil, []string{"/mnt/media"})

	got := s.FilterProtected([]string{
		"/mnt/media/Movies",
		"/mnt/media/Movies/The Movie (2020)",
	})
	if len(got) != 1 || got[0] != "/mnt/media/Movies/The Movie (2020)" {
		t.Errorf("FilterProtected = %v", got)
	}
}

func TestManagedBy(t *testing.T) {
	s := testSnapshot(
		[]domain.CatalogEntry{
			{Kind: domain.KindMovie, Title: "The Movie", CatalogPath: "/mnt/media/movies/The Movie (2020)"},
		},
		nil, nil,
	)

	if e := s.ManagedBy("/mnt/media/movies/The Movie (2020)/file.mkv"); e == nil || e.Title != "The Movie" {
		t.Errorf("ManagedBy = %v, want The Movie", e)
	}
	if e := s.ManagedBy("/mnt/media/movies/The Movie (2020) Copy/file.mkv"); e != nil {
		t.Errorf("ManagedBy = %v, want nil for sibling folder", e)
	}
}

func TestApplyCustomMappings(t *testing.T) {
	s := testSnapshot(nil, nil, nil)

	path := filepath.Join(t.TempDir(), "mappings.json")
	content := `{"Weird Folder": {"type": "series", "title": "The Show", "host_path": "/mnt/media/tv/The Show"}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := s.ApplyCustomMappings(path); err != nil {
		t.Fatalf("ApplyCustomMappings: %v", err)
	}

	m := s.Match("Weird Folder", nil)
	if m.Tier != domain.TierDirectName || m.Title != "The Show" || m.Kind != domain.KindSeries {
		t.Errorf("match = %+v", m)
	}
}

func TestApplyCustomMappingsMissingFile(t *testing.T) {
	s := testSnapshot(nil, nil, nil)
	if err := s.ApplyCustomMappings(filepath.Join(t.TempDir(), "none.json")); err != nil {
		t.Errorf("missing file should not error: %v", err)
	}
}
