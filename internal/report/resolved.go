package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mescon/Dupearr/internal/domain"
	"github.com/mescon/Dupearr/internal/logger"
)

const resolvedHeader = "=== Updated Media Duplicates Report ==="

// ResolvedFolder is one duplicate folder with its catalog resolution.
type ResolvedFolder struct {
	Folder         string
	DuplicatePaths []string
	Match          domain.OfficialMatch
}

// Found reports whether the folder resolved to a catalog entry.
func (r *ResolvedFolder) Found() bool {
	return r.Match.Tier != domain.TierNone
}

// WriteResolvedReport writes the resolved report: each folder with its
// official path, title and match tier, duplicate paths annotated with an
// (OFFICIAL) marker, and a closing summary.
func WriteResolvedReport(w io.Writer, results []ResolvedFolder) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%s\n\n", resolvedHeader)

	for _, r := range results {
		fmt.Fprintf(bw, "Folder: %s\n", r.Folder)

		if r.Found() {
			fmt.Fprintf(bw, "Official Path (%s): %s\n", r.Match.Kind, r.Match.HostPath)
			fmt.Fprintf(bw, "Title: %s\n", r.Match.Title)
			fmt.Fprintf(bw, "Match Type: %s\n", r.Match.Tier)
		} else {
			fmt.Fprintf(bw, "Official Path: Unknown (not found in Sonarr or Radarr)\n")
		}

		fmt.Fprintf(bw, "\nDuplicate Paths:\n")
		for _, p := range r.DuplicatePaths {
			if r.Found() && isOfficialPath(p, r.Match.HostPath) {
				fmt.Fprintf(bw, "  %s (OFFICIAL)\n", p)
			} else {
				fmt.Fprintf(bw, "  %s\n", p)
			}
		}

		fmt.Fprintf(bw, "\n%s\n\n", delimiter)
	}

	found := 0
	for _, r := range results {
		if r.Found() {
			found++
		}
	}
	fmt.Fprintf(bw, "\nSummary:\n")
	fmt.Fprintf(bw, "Total duplicate folders: %d\n", len(results))
	fmt.Fprintf(bw, "Found in Sonarr/Radarr: %d\n", found)
	fmt.Fprintf(bw, "Not found in Sonarr/Radarr: %d\n", len(results)-found)

	return bw.Flush()
}

func isOfficialPath(p, officialPath string) bool {
	return p == officialPath || strings.Contains(p, officialPath)
}

// SaveResolvedReport writes the resolved report to a file.
func SaveResolvedReport(path string, results []ResolvedFolder) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create resolved report %s: %w", path, err)
	}
	defer f.Close()
	if err := WriteResolvedReport(f, results); err != nil {
		return err
	}
	logger.Infof("Report: wrote resolved report for %d folders to %s", len(results), path)
	return nil
}
