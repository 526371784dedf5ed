package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mescon/Dupearr/internal/domain"
)

func sampleGroups() []domain.DuplicateGroup {
	return []domain.DuplicateGroup{
		{
			BaseFolder: "The Movie (2020)",
			BaseFiles: []domain.MediaFile{
				{Path: "/mnt/media/movies/The Movie (2020)/movie.mkv", Size: 4 << 30},
			},
			Similar: []domain.SimilarFolder{
				{
					Name:  "The.Movie.2020.1080p",
					Score: 0.95,
					Files: []domain.MediaFile{
						{Path: "/mnt/downloads/The.Movie.2020.1080p/movie.mkv", Size: 2 << 30},
					},
				},
			},
		},
	}
}

func TestWriteScanReportFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteScanReport(&buf, sampleGroups()); err != nil {
		t.Fatalf("WriteScanReport: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"=== Potential Duplicate Media Report ===",
		"Base Folder: The Movie (2020)",
		"Files:",
		"  /mnt/media/movies/The Movie (2020)/movie.mkv (4.00 GB)",
		"Similar Folder (similarity: 0.95): The.Movie.2020.1080p",
		"  /mnt/downloads/The.Movie.2020.1080p/movie.mkv (2.00 GB)",
		strings.Repeat("=", 50),
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
}

func TestWriteScanReportEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteScanReport(&buf, nil); err != nil {
		t.Fatalf("WriteScanReport: %v", err)
	}
	if !strings.Contains(buf.String(), "No potential duplicates found.") {
		t.Errorf("empty report = %q", buf.String())
	}
}

func TestParseScanReportRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteScanReport(&buf, sampleGroups()); err != nil {
		t.Fatal(err)
	}

	groups, err := ParseScanReport(&buf)
	if err != nil {
		t.Fatalf("ParseScanReport: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}

	g := groups[0]
	if g.BaseFolder != "The Movie (2020)" {
		t.Errorf("BaseFolder = %q", g.BaseFolder)
	}
	if len(g.BaseFiles) != 1 || g.BaseFiles[0].Path != "/mnt/media/movies/The Movie (2020)/movie.mkv" {
		t.Errorf("BaseFiles = %v", g.BaseFiles)
	}
	if g.BaseFiles[0].Size != 4<<30 {
		t.Errorf("base size = %d", g.BaseFiles[0].Size)
	}
	if len(g.SimilarFiles) != 1 || g.SimilarFiles[0].Size != 2<<30 {
		t.Errorf("SimilarFiles = %v", g.SimilarFiles)
	}
}

func TestParseScanReportSkipsMalformedRecords(t *testing.T) {
	input := strings.Join([]string{
		"=== Potential Duplicate Media Report ===",
		"",
		strings.Repeat("=", 50),
		"Files:",
		"  /orphan/file.mkv (1.00 GB)",
		strings.Repeat("=", 50),
		"Base Folder: Valid Group",
		"Files:",
		"  /mnt/a/file.mkv (1.00 GB)",
		"Similar Folder (similarity: 0.92): Other",
		"  /mnt/b/file.mkv",
	}, "\n")

	groups, err := ParseScanReport(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseScanReport: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1 (record without base folder skipped)", len(groups))
	}
	g := groups[0]
	if g.BaseFolder != "Valid Group" {
		t.Errorf("BaseFolder = %q", g.BaseFolder)
	}
	if len(g.SimilarFiles) != 1 || g.SimilarFiles[0].Size != 0 {
		t.Errorf("SimilarFiles = %v, want sizeless file parsed with size 0", g.SimilarFiles)
	}
}

func TestHumanSize(t *testing.T) {
	cases := map[int64]string{
		512:               "512.00 B",
		1 << 10:           "1.00 KB",
		(3 << 20) / 2:     "1.50 MB",
		4 << 30:           "4.00 GB",
		(3 << 40):         "3.00 TB",
		int64(2560) << 30: "2.50 TB",
	}
	for size, want := range cases {
		if got := HumanSize(size); got != want {
			t.Errorf("HumanSize(%d) = %q, want %q", size, got, want)
		}
	}
}

func TestParseSize(t *testing.T) {
	cases := map[string]int64{
		"4.00 GB":  4 << 30,
		"1.50 MB":  (3 << 20) / 2,
		"512.00 B": 512,
		"Unknown":  0,
		"12 XB":    0,
		"abc GB":   0,
	}
	for in, want := range cases {
		if got := ParseSize(in); got != want {
			t.Errorf("ParseSize(%q) = %d, want %d", in, got, want)
		}
	}
}
