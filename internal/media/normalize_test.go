package media

import "testing"

func TestNormalizeStripsReleaseMetadata(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"dotted with year and group", "The.Movie.2020.2160p.HDR.BluRay.x265-GROUP", "the movie"},
		{"parenthetical year", "The Movie (2020)", "the movie"},
		{"bracketed year", "The Movie [2020]", "the movie"},
		{"web-dl variants", "Show.Name.S01.WEB-DL.1080p", "show name s01"},
		{"webdl without dash", "Show.Name.S01.WEBDL.1080p", "show name s01"},
		{"audio and codec tokens", "Film.Title.DTS.AC3.x264-RLS", "film title"},
		{"underscores as separators", "Some_Show_1080p", "some show"},
		{"plain name untouched", "A Quiet Film", "a quiet film"},
		{"case folded", "THE MOVIE", "the movie"},
		{"repack and proper", "Title.2019.REPACK.PROPER.720p", "title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeEquivalentReleasesShareKey(t *testing.T) {
	a := Normalize("The.Movie.2020.1080p.BluRay.x264-GRP")
	b := Normalize("the movie (2020)")
	if a == "" || a != b {
		t.Errorf("expected equal non-empty keys, got %q and %q", a, b)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"The.Movie.2020.2160p.HDR.BluRay.x265-GROUP",
		"Show Name S01 Complete 720p",
		"plain title",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizeAllMetadataYieldsEmptyKey(t *testing.T) {
	if got := Normalize("1080p.BluRay.x264"); got != "" {
		t.Errorf("expected empty key, got %q", got)
	}
}

func TestStripYearSuffix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"The Movie (2020)", "The Movie"},
		{"The Movie", "The Movie"},
		{"Blade Runner 2049 (2017)", "Blade Runner 2049"},
		{"  padded  (1999)", "padded"},
	}
	for _, tt := range tests {
		if got := StripYearSuffix(tt.in); got != tt.want {
			t.Errorf("StripYearSuffix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
