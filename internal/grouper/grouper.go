// Package grouper clusters indexed folders whose normalized names are near
// matches, producing candidate duplicate groups.
package grouper

import (
	"github.com/mescon/Dupearr/internal/domain"
	"github.com/mescon/Dupearr/internal/logger"
	"github.com/mescon/Dupearr/internal/media"
)

// Threshold is the similarity score a pair of normalized folder names must
// exceed (strictly) to be grouped. A score of exactly Threshold does not
// group.
const Threshold = 0.9

// Group clusters the index greedily: folders are visited in discovery order,
// each unclaimed folder seeds a group, and every later unclaimed folder whose
// normalized name scores above Threshold against the seed joins it. A folder
// joins at most one group; chains are not followed, so membership is decided
// against the seed alone. Folders whose names normalize to the empty string
// are skipped. Groups with no similar folders are not reported.
func Group(index *domain.FolderIndex) []domain.DuplicateGroup {
	names := index.Names()

	normalized := make(map[string]string, len(names))
	for _, name := range names {
		normalized[name] = media.Normalize(name)
	}

	claimed := make(map[string]bool, len(names))
	var groups []domain.DuplicateGroup

	for i, base := range names {
		if claimed[base] {
			continue
		}
		baseKey := normalized[base]
		if baseKey == "" {
			continue
		}

		var similar []domain.SimilarFolder
		for _, other := range names[i+1:] {
			if claimed[other] {
				continue
			}
			otherKey := normalized[other]
			if otherKey == "" {
				continue
			}
			score := media.Ratio(baseKey, otherKey)
			if score > Threshold {
				similar = append(similar, domain.SimilarFolder{
					Name:  other,
					Score: score,
					Files: index.Files(other),
				})
				claimed[other] = true
			}
		}

		if len(similar) == 0 {
			continue
		}
		claimed[base] = true
		groups = append(groups, domain.DuplicateGroup{
			BaseFolder: base,
			BaseFiles:  index.Files(base),
			Similar:    similar,
		})
	}

	logger.Infof("Grouper: found %d duplicate groups among %d folders", len(groups), len(names))
	return groups
}
