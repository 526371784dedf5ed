package integration

import (
	"strings"
	"sync"

	"github.com/mescon/Dupearr/internal/domain"
)

// PathMapper translates container paths reported by the catalog services into
// host paths comparable with scanned folders.
type PathMapper struct {
	mappings []domain.PathMapping
	mu       sync.RWMutex
}

func NewPathMapper(mappings []domain.PathMapping) *PathMapper {
	pm := &PathMapper{}
	pm.Replace(mappings)
	return pm
}

// Replace swaps the mapping set. Trailing slashes are stripped for consistent
// prefix matching.
func (pm *PathMapper) Replace(mappings []domain.PathMapping) {
	normalized := make([]domain.PathMapping, 0, len(mappings))
	for _, m := range mappings {
		m.HostPath = strings.TrimRight(m.HostPath, "/")
		m.ContainerPath = strings.TrimRight(m.ContainerPath, "/")
		if m.ContainerPath == "" {
			continue
		}
		normalized = append(normalized, m)
	}

	pm.mu.Lock()
	pm.mappings = normalized
	pm.mu.Unlock()
}

// ToHostPath converts a container path to a host path using the most specific
// mapping. Paths with no matching mapping are returned unchanged, since the
// catalog may already report host paths.
func (pm *PathMapper) ToHostPath(containerPath string) string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	var bestMatch *domain.PathMapping
	var longestPrefixLen int

	for i := range pm.mappings {
		m := &pm.mappings[i]
		// Check if containerPath starts with m.ContainerPath AND is followed
		// by / or end of string. This prevents /tv from matching /tv-archive.
		if strings.HasPrefix(containerPath, m.ContainerPath) {
			remainder := containerPath[len(m.ContainerPath):]
			if remainder == "" || strings.HasPrefix(remainder, "/") {
				if len(m.ContainerPath) > longestPrefixLen {
					longestPrefixLen = len(m.ContainerPath)
					bestMatch = m
				}
			}
		}
	}

	if bestMatch == nil {
		return containerPath
	}

	relPath := strings.TrimPrefix(containerPath, bestMatch.ContainerPath)
	return bestMatch.HostPath + relPath
}

// Len returns the number of active mappings.
func (pm *PathMapper) Len() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.mappings)
}
