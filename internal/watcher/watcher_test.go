package watcher

import (
	"testing"
	"time"
)

func TestParseFilename(t *testing.T) {
	cases := []struct {
		in       string
		wantType string
		wantDate time.Time
		wantName string
	}{
		{
			"general__2024-03-04__weekly-sync.txt",
			"general",
			time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC),
			"weekly sync",
		},
		{
			"exec__2024-01-15.txt",
			"exec",
			time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
			"",
		},
		{
			"Subcommittee__2024-06-30__budget_review.txt",
			"subcommittee",
			time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC),
			"budget review",
		},
	}

	for _, tc := range cases {
		meta, err := ParseFilename(tc.in)
		if err != nil {
			t.Fatalf("ParseFilename(%q): %v", tc.in, err)
		}
		if meta.Type != tc.wantType {
			t.Fatalf("%q type = %q, want %q", tc.in, meta.Type, tc.wantType)
		}
		if !meta.Date.Equal(tc.wantDate) {
			t.Fatalf("%q date = %s, want %s", tc.in, meta.Date, tc.wantDate)
		}
		if meta.Name != tc.wantName {
			t.Fatalf("%q name = %q, want %q", tc.in, meta.Name, tc.wantName)
		}
	}
}

func TestParseFilenameRejectsBadNames(t *testing.T) {
	for _, in := range []string{
		"notes.txt",
		"general__notadate__x.txt",
		"general.txt",
	} {
		if _, err := ParseFilename(in); err == nil {
			t.Fatalf("ParseFilename(%q) should fail", in)
		}
	}
}
