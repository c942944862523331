package transcript

import (
	"testing"

	"github.com/google/uuid"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Sam Choong", "sam choong"},
		{"  Sam   Choong  ", "sam choong"},
		{"Dr. Sam Choong", "sam choong"},
		{"Sam Choong (treasurer)", "sam choong"},
		{"Sam Choong,", "sam choong"},
		{"Mr Sam Choong [via phone]", "sam choong"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolveExactAndAlias(t *testing.T) {
	r := NewResolver()
	sam := Record{ID: uuid.New(), Name: "Sam Choong"}
	kat := Record{ID: uuid.New(), Name: "Katherine Lim", Aliases: []string{"Kat"}}
	roster := []Record{sam, kat}

	out := r.Resolve("Sam Choong", KindMember, roster)
	if out.Class != OutcomeMatched || out.ID != sam.ID {
		t.Fatalf("exact name: got %+v", out)
	}

	out = r.Resolve("Kat", KindMember, roster)
	if out.Class != OutcomeMatched || out.ID != kat.ID {
		t.Fatalf("alias: got %+v", out)
	}

	out = r.Resolve("Dr. Sam Choong (treasurer)", KindMember, roster)
	if out.Class != OutcomeMatched || out.ID != sam.ID {
		t.Fatalf("normalized: got %+v", out)
	}
}

func TestResolveCutoffBoundaryInclusive(t *testing.T) {
	r := NewResolver()
	rec := Record{ID: uuid.New(), Name: "abcdefghij"}
	roster := []Record{rec}

	// Three edits over ten runes: similarity exactly 0.70.
	out := r.Resolve("abcdefgxyz", KindMember, roster)
	if out.Class != OutcomeMatched || out.ID != rec.ID {
		t.Fatalf("at cutoff should match: got %+v", out)
	}

	// Four edits: 0.60, below the member cutoff.
	out = r.Resolve("abcdefwxyz", KindMember, roster)
	if out.Class != OutcomeUnresolved || out.Reason != ReasonNoMatch {
		t.Fatalf("below cutoff should be unresolved: got %+v", out)
	}
}

func TestResolveAmbiguousTie(t *testing.T) {
	r := NewResolver()
	roster := []Record{
		{ID: uuid.New(), Name: "John"},
		{ID: uuid.New(), Name: "Joan"},
	}

	// "jon" is one edit from both, no exact match to break the tie.
	out := r.Resolve("Jon", KindMember, roster)
	if out.Class != OutcomeUnresolved || out.Reason != ReasonAmbiguous {
		t.Fatalf("tie should be ambiguous: got %+v", out)
	}
}

func TestResolveExactNameBeatsAlias(t *testing.T) {
	r := NewResolver()
	sam := Record{ID: uuid.New(), Name: "Sam Choong"}
	samuel := Record{ID: uuid.New(), Name: "Samuel Choong", Aliases: []string{"Sam Choong"}}
	roster := []Record{samuel, sam}

	out := r.Resolve("Sam Choong", KindMember, roster)
	if out.Class != OutcomeMatched || out.ID != sam.ID {
		t.Fatalf("exact full-name should beat alias: got %+v", out)
	}
}

func TestResolveMemberNeverAutoCreates(t *testing.T) {
	r := NewResolver()
	out := r.Resolve("Completely Unknown", KindMember, []Record{{ID: uuid.New(), Name: "Sam Choong"}})
	if out.Class != OutcomeUnresolved || out.Reason != ReasonNoMatch {
		t.Fatalf("unknown member should be unresolved: got %+v", out)
	}
}

func TestResolveProjectCreatesBelowCutoff(t *testing.T) {
	r := NewResolver()
	existing := Record{ID: uuid.New(), Name: "Spring Concert"}

	out := r.Resolve("Website Redesign", KindProject, []Record{existing})
	if out.Class != OutcomeCreate {
		t.Fatalf("new project should be created: got %+v", out)
	}
	if out.Name != "website redesign" {
		t.Fatalf("create should carry the normalized name, got %q", out.Name)
	}

	out = r.Resolve("Spring Concrt", KindProject, []Record{existing})
	if out.Class != OutcomeMatched || out.ID != existing.ID {
		t.Fatalf("near miss should match existing project: got %+v", out)
	}
}

func TestResolveDeterministic(t *testing.T) {
	r := NewResolver()
	roster := []Record{
		{ID: uuid.New(), Name: "Sam Choong"},
		{ID: uuid.New(), Name: "Samir Chowdhury"},
	}
	first := r.Resolve("Sam Chong", KindMember, roster)
	for i := 0; i < 10; i++ {
		again := r.Resolve("Sam Chong", KindMember, roster)
		if again.Class != first.Class || again.ID != first.ID || again.Reason != first.Reason {
			t.Fatalf("resolution not deterministic: %+v vs %+v", first, again)
		}
	}
}
