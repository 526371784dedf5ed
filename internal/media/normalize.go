// Package media provides the pure text heuristics the duplicate engine is
// built on: release-name normalization and fuzzy string similarity.
package media

import (
	"regexp"
	"strings"
)

// Pre-compiled patterns. Order matters: the year is stripped first so that
// release tokens adjacent to it still match, and the trailing release-group
// pattern runs before separators are collapsed away.
var (
	// Year in parenthetical, bracketed, or dot-delimited form: (2020), [2020], .2020.
	yearPattern = regexp.MustCompile(`[\(\[.](?:19|20)\d{2}[\)\].]?`)

	// Quality, source, codec, audio, edition and release tokens, stripped
	// case-insensitively wherever they appear.
	releasePatterns = compilePatterns([]string{
		`2160p`, `1080p`, `720p`, `480p`,
		`bluray`, `web-?dl`, `webrip`, `hdtv`, `dvdrip`,
		`x264`, `x265`, `hevc`, `xvid`, `divx`,
		`aac\d?`, `ac3`, `dts`, `hdma`,
		`repack`, `proper`, `extended`,
		`hdr\d*`, `dv`, `dolby`, `atmos`,
		`-[a-zA-Z0-9]+$`, // trailing release group
		`\bdc\b`,         // director's cut
		`remux`,
		`dubbed`,
		`\bws\b`, // widescreen
		`retail`,
		`cd[0-9]`,
		`disc[0-9]`,
		`complete`,
	})

	separatorPattern = regexp.MustCompile(`[._-]`)
	spacesPattern    = regexp.MustCompile(`\s+`)
)

func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+p))
	}
	return compiled
}

// Normalize canonicalizes a raw folder name into a comparable key:
// "The.Movie.2160p.HDR.BluRay.x265-GROUP" becomes "the movie".
//
// The result may be empty when the name consisted entirely of release
// metadata; callers must treat an empty key as non-comparable and never group
// on it. Normalize is deterministic and idempotent.
func Normalize(name string) string {
	// Stripping one token can expose another (a removed codec joining two
	// halves of an audio tag), so the strip phase runs to a fixpoint.
	for {
		stripped := yearPattern.ReplaceAllString(name, "")
		for _, p := range releasePatterns {
			stripped = p.ReplaceAllString(stripped, "")
		}
		if stripped == name {
			break
		}
		name = stripped
	}
	name = separatorPattern.ReplaceAllString(name, " ")
	name = spacesPattern.ReplaceAllString(name, " ")
	return strings.ToLower(strings.TrimSpace(name))
}

// StripYearSuffix removes an optional trailing "(YYYY)" from a title, used by
// the related-media-paths heuristic to compare editions of the same film.
var trailingYearPattern = regexp.MustCompile(`^(.+?)(?:\s+\(\d{4}\))?$`)

func StripYearSuffix(title string) string {
	m := trailingYearPattern.FindStringSubmatch(title)
	if m == nil {
		return strings.TrimSpace(title)
	}
	return strings.TrimSpace(m[1])
}
