package media

import (
	"math"
	"testing"
)

func TestRatioIdenticalStrings(t *testing.T) {
	if got := Ratio("the movie", "the movie"); got != 1.0 {
		t.Errorf("Ratio of identical strings = %v, want 1.0", got)
	}
}

func TestRatioBothEmpty(t *testing.T) {
	if got := Ratio("", ""); got != 1.0 {
		t.Errorf("Ratio(\"\", \"\") = %v, want 1.0", got)
	}
}

func TestRatioOneEmpty(t *testing.T) {
	if got := Ratio("abc", ""); got != 0.0 {
		t.Errorf("Ratio(\"abc\", \"\") = %v, want 0.0", got)
	}
}

func TestRatioNoCommonCharacters(t *testing.T) {
	if got := Ratio("abc", "xyz"); got != 0.0 {
		t.Errorf("Ratio(\"abc\", \"xyz\") = %v, want 0.0", got)
	}
}

func TestRatioKnownValue(t *testing.T) {
	// "abcd" vs "bcde": longest block "bcd" (3), 2*3/8 = 0.75.
	if got := Ratio("abcd", "bcde"); math.Abs(got-0.75) > 1e-9 {
		t.Errorf("Ratio(\"abcd\", \"bcde\") = %v, want 0.75", got)
	}
}

func TestRatioRecursesAroundLongestBlock(t *testing.T) {
	// "ab xcd" vs "ab ycd": block "ab " (3) plus block "cd" (2) = 5 matched,
	// 2*5/12.
	want := 2.0 * 5.0 / 12.0
	if got := Ratio("ab xcd", "ab ycd"); math.Abs(got-want) > 1e-9 {
		t.Errorf("Ratio = %v, want %v", got, want)
	}
}

func TestRatioSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"the movie", "the movies"},
		{"breaking bad", "braking bad"},
		{"abcd", "bcde"},
	}
	for _, p := range pairs {
		ab, ba := Ratio(p[0], p[1]), Ratio(p[1], p[0])
		if math.Abs(ab-ba) > 1e-9 {
			t.Errorf("Ratio(%q, %q)=%v but reversed=%v", p[0], p[1], ab, ba)
		}
	}
}

func TestRatioNearDuplicateFolderNames(t *testing.T) {
	// One-character difference on a realistic title stays above the grouping
	// threshold; an unrelated title stays well below it.
	if got := Ratio("the grand adventure", "the grand adventures"); got <= 0.9 {
		t.Errorf("near-duplicate ratio = %v, want > 0.9", got)
	}
	if got := Ratio("the grand adventure", "a completely different show"); got >= 0.9 {
		t.Errorf("unrelated ratio = %v, want < 0.9", got)
	}
}

func TestRatioUnicode(t *testing.T) {
	// Rune-based comparison: multi-byte characters count once.
	if got := Ratio("amélie", "amélie"); got != 1.0 {
		t.Errorf("Ratio of identical unicode strings = %v, want 1.0", got)
	}
	// "amélie" vs "amelie": common blocks "am" and "lie" = 5, 2*5/12.
	want := 2.0 * 5.0 / 12.0
	if got := Ratio("amélie", "amelie"); math.Abs(got-want) > 1e-9 {
		t.Errorf("Ratio(\"amélie\", \"amelie\") = %v, want %v", got, want)
	}
}
