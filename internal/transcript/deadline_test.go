package transcript

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDeadline(t *testing.T) {
	// Monday.
	asOf := date(2024, time.March, 4)

	cases := []struct {
		phrase string
		want   time.Time
	}{
		{"today", date(2024, time.March, 4)},
		{"tomorrow", date(2024, time.March, 5)},
		{"by tomorrow", date(2024, time.March, 5)},
		{"next friday", date(2024, time.March, 8)},
		{"Next Friday", date(2024, time.March, 8)},
		{"by next Friday.", date(2024, time.March, 8)},
		{"friday", date(2024, time.March, 8)},
		{"this friday", date(2024, time.March, 8)},
		{"next monday", date(2024, time.March, 11)},
		{"end of the week", date(2024, time.March, 8)},
		{"end of month", date(2024, time.March, 31)},
		{"next week", date(2024, time.March, 11)},
		{"in 3 days", date(2024, time.March, 7)},
		{"in 2 weeks", date(2024, time.March, 18)},
		{"in a week", date(2024, time.March, 11)},
		{"2024-03-08", date(2024, time.March, 8)},
		{"march 8", date(2024, time.March, 8)},
		{"March 8th", date(2024, time.March, 8)},
		{"8th of March", date(2024, time.March, 8)},
		{"mar 8 2024", date(2024, time.March, 8)},
		// A bare month-day already past rolls to next year.
		{"january 2", date(2025, time.January, 2)},
	}

	for _, tc := range cases {
		got, ok := ParseDeadline(tc.phrase, asOf)
		if !ok {
			t.Fatalf("ParseDeadline(%q) not parsed", tc.phrase)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("ParseDeadline(%q) = %s, want %s", tc.phrase, got.Format("2006-01-02"), tc.want.Format("2006-01-02"))
		}
	}
}

func TestParseDeadlineStrictlyAfter(t *testing.T) {
	// "next friday" said on a Friday means a week out, not today.
	friday := date(2024, time.March, 8)
	got, ok := ParseDeadline("next friday", friday)
	if !ok {
		t.Fatal("not parsed")
	}
	if want := date(2024, time.March, 15); !got.Equal(want) {
		t.Fatalf("got %s, want %s", got.Format("2006-01-02"), want.Format("2006-01-02"))
	}

	// "this friday" said on a Friday is today.
	got, ok = ParseDeadline("this friday", friday)
	if !ok {
		t.Fatal("not parsed")
	}
	if !got.Equal(friday) {
		t.Fatalf("got %s, want %s", got.Format("2006-01-02"), friday.Format("2006-01-02"))
	}
}

func TestParseDeadlineUnparseable(t *testing.T) {
	asOf := date(2024, time.March, 4)
	for _, phrase := range []string{"", "whenever", "soon", "asap maybe", "32 of march"} {
		if _, ok := ParseDeadline(phrase, asOf); ok {
			t.Fatalf("ParseDeadline(%q) unexpectedly parsed", phrase)
		}
	}
}
