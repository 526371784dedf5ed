// Package scanner walks media library roots and builds an index of folder
// names to the media files they contain.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/mescon/Dupearr/internal/domain"
	"github.com/mescon/Dupearr/internal/logger"
)

// Media file extensions eligible for indexing
var mediaExtensions = map[string]bool{
	".mkv": true,
	".mp4": true,
	".avi": true,
	".mov": true,
	".wmv": true,
	".m4v": true,
}

// isMediaFile checks if a file has a supported media extension
func isMediaFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return mediaExtensions[ext]
}

// isHiddenOrTempFile checks if a file should be skipped (hidden, temp, partial downloads)
func isHiddenOrTempFile(path string) bool {
	name := filepath.Base(path)
	nameLower := strings.ToLower(name)

	if strings.HasPrefix(name, ".") {
		return true
	}
	if strings.HasSuffix(nameLower, ".tmp") || strings.HasSuffix(nameLower, ".temp") {
		return true
	}
	if strings.HasSuffix(nameLower, ".part") || strings.HasSuffix(nameLower, ".partial") {
		return true
	}
	if strings.HasSuffix(nameLower, ".!qb") {
		return true
	}
	return false
}

// quickScanDepth limits how many directory levels below each root a quick
// scan descends. Two levels cover title folders and their season/disc
// subfolders in the common library layouts.
const quickScanDepth = 2

// Options controls a scan.
type Options struct {
	// Workers bounds concurrent root walks. 0 means one worker per CPU.
	Workers int

	// Quick limits each walk to quickScanDepth directory levels below the
	// root. Deep extras folders are skipped, trading completeness for speed.
	Quick bool
}

// Stats summarizes a completed scan.
type Stats struct {
	RootsScanned   int
	RootsSkipped   int
	FilesIndexed   int
	FoldersIndexed int
	Duration       time.Duration
}

// Scan walks the given roots concurrently and returns a folder index. Every
// media file is indexed under its immediate parent folder name and, when a
// named grandparent exists, under the grandparent folder name as well, so
// both "Title/file.mkv" and "Title/Season 1/file.mkv" layouts surface the
// title folder. Files sitting directly in a root index under the root's own
// basename; the protected-path filter screens those out at resolve time.
// Roots that do not exist or are not directories are skipped with a warning
// rather than failing the scan.
func Scan(ctx context.Context, roots []string, opts Options) (*domain.FolderIndex, Stats, error) {
	start := time.Now()
	stats := Stats{}
	index := domain.NewFolderIndex()

	var valid []string
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			logger.Warnf("Scanner: skipping root %s: not an accessible directory", root)
			stats.RootsSkipped++
			continue
		}
		valid = append(valid, filepath.Clean(root))
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(valid) {
		workers = len(valid)
	}

	rootCh := make(chan string)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for root := range rootCh {
				partial, files := walkRoot(ctx, root, opts.Quick)
				mu.Lock()
				index.Merge(partial)
				stats.FilesIndexed += files
				stats.RootsScanned++
				mu.Unlock()
			}
		}()
	}

	for _, root := range valid {
		select {
		case rootCh <- root:
		case <-ctx.Done():
		}
	}
	close(rootCh)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return index, stats, err
	}

	stats.FoldersIndexed = index.Len()
	stats.Duration = time.Since(start)
	logger.Infof("Scanner: indexed %d files across %d folders in %v",
		stats.FilesIndexed, stats.FoldersIndexed, stats.Duration)
	return index, stats, nil
}

// walkRoot builds a partial index for a single root. Walk errors on
// individual entries are logged and skipped so one unreadable directory
// does not abort the whole root.
func walkRoot(ctx context.Context, root string, quick bool) (*domain.FolderIndex, int) {
	partial := domain.NewFolderIndex()
	files := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return filepath.SkipAll
		}
		if err != nil {
			logger.Warnf("Scanner: skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && strings.HasPrefix(filepath.Base(path), ".") {
				return filepath.SkipDir
			}
			if quick && depthBelow(root, path) > quickScanDepth {
				return filepath.SkipDir
			}
			return nil
		}

		if !isMediaFile(path) || isHiddenOrTempFile(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			logger.Warnf("Scanner: cannot stat %s: %v", path, err)
			return nil
		}

		file := domain.MediaFile{Path: path, Size: info.Size()}
		parent := filepath.Dir(path)
		partial.Add(filepath.Base(parent), file)
		files++
		if grandparent := filepath.Dir(parent); grandparent != parent {
			if name := filepath.Base(grandparent); name != "/" && name != "." {
				partial.Add(name, file)
			}
		}
		return nil
	})
	if err != nil {
		logger.Errorf("Scanner: walk of %s aborted: %v", root, err)
	}

	return partial, files
}

func depthBelow(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
