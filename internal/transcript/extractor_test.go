package transcript

import (
	"context"
	"errors"
	"testing"

	"github.com/bass-society/secretary-backend/internal/clients/openai"
	"github.com/bass-society/secretary-backend/internal/data/repos/testutil"
)

type fakeAI struct {
	obj map[string]any
	err error
}

func (f *fakeAI) GenerateJSON(_ context.Context, _ string, _ string, _ string, _ map[string]any) (map[string]any, error) {
	return f.obj, f.err
}

func (f *fakeAI) ChatWithTools(_ context.Context, _ string, _ []openai.ChatMessage, _ []openai.ToolDef) (openai.ChatCompletion, error) {
	return openai.ChatCompletion{}, errors.New("not implemented")
}

func TestExtractDecodesCandidates(t *testing.T) {
	ai := &fakeAI{obj: map[string]any{
		"members":  []any{"Sam Choong", "  Katherine Lim "},
		"projects": []any{"Spring Concert"},
		"topics":   []any{},
		"tasks": []any{
			map[string]any{
				"description":     "Finalize the budget",
				"deadline_phrase": "next Friday",
				"assignees":       []any{"Sam Choong"},
			},
		},
		"summary": "Budget discussion.",
	}}

	e := NewExtractor(ai, testutil.Logger(t))
	set, err := e.Extract(context.Background(), "transcript text", DomainContext{RosterSize: 2})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if len(set.Members) != 2 || set.Members[1] != "Katherine Lim" {
		t.Fatalf("members = %+v", set.Members)
	}
	if len(set.Tasks) != 1 {
		t.Fatalf("tasks = %+v", set.Tasks)
	}
	task := set.Tasks[0]
	if task.DeadlinePhrase != "next Friday" || len(task.Assignees) != 1 {
		t.Fatalf("task = %+v", task)
	}
	if set.Summary != "Budget discussion." {
		t.Fatalf("summary = %q", set.Summary)
	}
}

func TestExtractMalformedOutputIsExtractionError(t *testing.T) {
	cases := []map[string]any{
		{"members": "not a list", "projects": []any{}, "topics": []any{}, "tasks": []any{}, "summary": ""},
		{"members": []any{}, "projects": []any{}, "topics": []any{}, "tasks": []any{map[string]any{"deadline_phrase": "x", "assignees": []any{}}}, "summary": ""},
		{"members": []any{}, "projects": []any{}, "topics": []any{}, "tasks": "none", "summary": ""},
	}

	for i, obj := range cases {
		e := NewExtractor(&fakeAI{obj: obj}, testutil.Logger(t))
		_, err := e.Extract(context.Background(), "text", DomainContext{})
		var exErr *ExtractionError
		if !errors.As(err, &exErr) {
			t.Fatalf("case %d: want ExtractionError, got %v", i, err)
		}
	}
}

func TestExtractModelFailureIsExtractionError(t *testing.T) {
	e := NewExtractor(&fakeAI{err: errors.New("timeout")}, testutil.Logger(t))
	_, err := e.Extract(context.Background(), "text", DomainContext{})
	var exErr *ExtractionError
	if !errors.As(err, &exErr) {
		t.Fatalf("want ExtractionError, got %v", err)
	}
	if exErr.Stage != "model" {
		t.Fatalf("stage = %q", exErr.Stage)
	}
}

func TestExtractEmptyTranscriptFails(t *testing.T) {
	e := NewExtractor(&fakeAI{}, testutil.Logger(t))
	if _, err := e.Extract(context.Background(), "   ", DomainContext{}); err == nil {
		t.Fatal("empty transcript should fail")
	}
}
