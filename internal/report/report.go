// Package report reads and writes the duplicate report, the resolved report,
// and the cleanup script. The text formats are stable: reports written by one
// run are parsed back by later stages.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mescon/Dupearr/internal/domain"
	"github.com/mescon/Dupearr/internal/logger"
)

const (
	reportHeader = "=== Potential Duplicate Media Report ==="
	delimiter    = "=================================================="
)

// WriteScanReport writes the duplicate groups in the report text format:
// each group is introduced by a delimiter line, lists the base folder's
// files, then each similar folder with its similarity score and files.
func WriteScanReport(w io.Writer, groups []domain.DuplicateGroup) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%s\n\n", reportHeader)

	if len(groups) == 0 {
		fmt.Fprintf(bw, "No potential duplicates found.\n")
		return bw.Flush()
	}

	for _, g := range groups {
		fmt.Fprintf(bw, "\n%s\n", delimiter)
		fmt.Fprintf(bw, "Base Folder: %s\n", g.BaseFolder)
		fmt.Fprintf(bw, "Files:\n")
		for _, f := range g.BaseFiles {
			writeFileLine(bw, f)
		}
		for _, s := range g.Similar {
			fmt.Fprintf(bw, "\nSimilar Folder (similarity: %.2f): %s\n", s.Score, s.Name)
			for _, f := range s.Files {
				writeFileLine(bw, f)
			}
		}
	}

	return bw.Flush()
}

func writeFileLine(w io.Writer, f domain.MediaFile) {
	if f.Size > 0 {
		fmt.Fprintf(w, "  %s (%s)\n", f.Path, HumanSize(f.Size))
	} else {
		fmt.Fprintf(w, "  %s\n", f.Path)
	}
}

// SaveScanReport writes the report to a file.
func SaveScanReport(path string, groups []domain.DuplicateGroup) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report %s: %w", path, err)
	}
	defer f.Close()
	if err := WriteScanReport(f, groups); err != nil {
		return err
	}
	logger.Infof("Report: wrote %d duplicate groups to %s", len(groups), path)
	return nil
}

// ParseScanReport reads a report back into groups. File lines before the
// first "Similar Folder" line of a record belong to the base side; everything
// after belongs to the similar side. Records without a base folder are
// skipped.
func ParseScanReport(r io.Reader) ([]domain.ReportGroup, error) {
	var groups []domain.ReportGroup
	var current *domain.ReportGroup
	inSimilar := false

	flush := func() {
		if current != nil && current.BaseFolder != "" {
			groups = append(groups, *current)
		}
		current = nil
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		raw := sc.Text()
		line := strings.TrimSpace(raw)

		switch {
		case strings.HasPrefix(line, "===") && len(line) > 10:
			flush()
			current = &domain.ReportGroup{}
			inSimilar = false
		case strings.HasPrefix(line, "Base Folder:"):
			if current != nil {
				current.BaseFolder = strings.TrimSpace(strings.TrimPrefix(line, "Base Folder:"))
			}
		case strings.HasPrefix(line, "Similar Folder"):
			inSimilar = true
		case strings.HasPrefix(raw, "  /"):
			if current == nil {
				continue
			}
			file := parseFileLine(line)
			if inSimilar {
				current.SimilarFiles = append(current.SimilarFiles, file)
			} else {
				current.BaseFiles = append(current.BaseFiles, file)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	flush()

	return groups, nil
}

// LoadScanReport parses a report file.
func LoadScanReport(path string) ([]domain.ReportGroup, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report %s: %w", path, err)
	}
	defer f.Close()
	return ParseScanReport(f)
}

// parseFileLine splits "/path/file.mkv (4.27 GB)" into path and size. A
// missing or unparseable size yields zero.
func parseFileLine(line string) domain.MediaFile {
	idx := strings.LastIndex(line, " (")
	if idx == -1 || !strings.HasSuffix(line, ")") {
		return domain.MediaFile{Path: line}
	}
	path := strings.TrimSpace(line[:idx])
	sizeStr := strings.TrimSuffix(line[idx+2:], ")")
	return domain.MediaFile{Path: path, Size: ParseSize(sizeStr)}
}

var sizeUnits = map[string]int64{
	"B":  1,
	"KB": 1 << 10,
	"MB": 1 << 20,
	"GB": 1 << 30,
	"TB": 1 << 40,
}

// HumanSize formats a byte count with two decimals and the largest unit that
// keeps the value under 1024.
func HumanSize(size int64) string {
	value := float64(size)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if value < 1024 {
			return fmt.Sprintf("%.2f %s", value, unit)
		}
		value /= 1024
	}
	return fmt.Sprintf("%.2f TB", value)
}

// ParseSize converts a size string like "4.27 GB" back to bytes. Unknown or
// malformed sizes parse to 0.
func ParseSize(s string) int64 {
	number, unit, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok {
		return 0
	}
	factor, ok := sizeUnits[unit]
	if !ok {
		return 0
	}
	v, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0
	}
	return int64(v * float64(factor))
}
