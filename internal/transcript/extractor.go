package transcript

import (
	"context"
	"fmt"
	"strings"

	"github.com/bass-society/secretary-backend/internal/clients/openai"
	"github.com/bass-society/secretary-backend/internal/pkg/logger"
)

// CandidateTask is one action item as it appears in the transcript.
// Assignees and the deadline phrase are surface strings, not references.
type CandidateTask struct {
	Description    string
	DeadlinePhrase string
	Assignees      []string
}

// CandidateSet is the extractor's output: every name is a raw mention
// awaiting resolution.
type CandidateSet struct {
	Members  []string
	Projects []string
	Topics   []string
	Tasks    []CandidateTask
	Summary  string
}

// DomainContext grounds the extraction prompt without leaking any
// canonical record into the model's output.
type DomainContext struct {
	MeetingTypes []string
	RosterSize   int
}

// ExtractionError marks a model failure (malformed output, refusal,
// transport error). Callers retry once, then give up.
type ExtractionError struct {
	Stage string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed (%s): %v", e.Stage, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

type Extractor interface {
	Extract(ctx context.Context, transcriptText string, domain DomainContext) (CandidateSet, error)
}

type openaiExtractor struct {
	ai  openai.Client
	log *logger.Logger
}

func NewExtractor(ai openai.Client, baseLog *logger.Logger) Extractor {
	return &openaiExtractor{ai: ai, log: baseLog.With("service", "Extractor")}
}

const extractorSystemPrompt = `You extract structured facts from meeting transcripts for a student society.

Rules:
- Only report people, projects, topics and tasks that are actually mentioned in the transcript. Never invent entities.
- Report every name exactly as it appears in the text. Do not resolve, merge or correct names.
- Report task deadlines as the raw phrase from the transcript (for example "next Friday"). Do not compute dates.
- A task's assignees are the people the transcript says are responsible for it.
- The summary is two to four sentences covering decisions and action items.`

func candidateSchema() map[string]any {
	stringList := func(desc string) map[string]any {
		return map[string]any{
			"type":        "array",
			"description": desc,
			"items":       map[string]any{"type": "string"},
		}
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"members", "projects", "topics", "tasks", "summary"},
		"properties": map[string]any{
			"members":  stringList("Names of people mentioned as attending or acting."),
			"projects": stringList("Project names discussed."),
			"topics":   stringList("Discussion topics raised."),
			"tasks": map[string]any{
				"type":        "array",
				"description": "Action items agreed in the meeting.",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"description", "deadline_phrase", "assignees"},
					"properties": map[string]any{
						"description":     map[string]any{"type": "string"},
						"deadline_phrase": map[string]any{"type": "string", "description": "Raw deadline wording from the transcript, empty if none."},
						"assignees":       stringList("Names of the people responsible."),
					},
				},
			},
			"summary": map[string]any{"type": "string"},
		},
	}
}

func (e *openaiExtractor) Extract(ctx context.Context, transcriptText string, domain DomainContext) (CandidateSet, error) {
	var out CandidateSet
	if strings.TrimSpace(transcriptText) == "" {
		return out, &ExtractionError{Stage: "input", Err: fmt.Errorf("empty transcript")}
	}

	user := fmt.Sprintf(
		"Meeting types in use: %s. Roster size: %d members.\n\nTranscript:\n%s",
		strings.Join(domain.MeetingTypes, ", "), domain.RosterSize, transcriptText,
	)

	obj, err := e.ai.GenerateJSON(ctx, extractorSystemPrompt, user, "transcript_candidates", candidateSchema())
	if err != nil {
		return out, &ExtractionError{Stage: "model", Err: err}
	}

	out, err = decodeCandidateSet(obj)
	if err != nil {
		return out, &ExtractionError{Stage: "decode", Err: err}
	}

	e.log.Debug("Extracted candidates",
		"members", len(out.Members),
		"projects", len(out.Projects),
		"topics", len(out.Topics),
		"tasks", len(out.Tasks),
	)
	return out, nil
}

func decodeCandidateSet(obj map[string]any) (CandidateSet, error) {
	var out CandidateSet

	var err error
	if out.Members, err = stringSlice(obj["members"]); err != nil {
		return out, fmt.Errorf("members: %w", err)
	}
	if out.Projects, err = stringSlice(obj["projects"]); err != nil {
		return out, fmt.Errorf("projects: %w", err)
	}
	if out.Topics, err = stringSlice(obj["topics"]); err != nil {
		return out, fmt.Errorf("topics: %w", err)
	}

	summary, ok := obj["summary"].(string)
	if !ok {
		return out, fmt.Errorf("summary: expected string, got %T", obj["summary"])
	}
	out.Summary = strings.TrimSpace(summary)

	rawTasks, ok := obj["tasks"].([]any)
	if !ok {
		return out, fmt.Errorf("tasks: expected array, got %T", obj["tasks"])
	}
	for i, rt := range rawTasks {
		tm, ok := rt.(map[string]any)
		if !ok {
			return out, fmt.Errorf("tasks[%d]: expected object, got %T", i, rt)
		}
		desc, ok := tm["description"].(string)
		if !ok || strings.TrimSpace(desc) == "" {
			return out, fmt.Errorf("tasks[%d]: missing description", i)
		}
		phrase, _ := tm["deadline_phrase"].(string)
		assignees, err := stringSlice(tm["assignees"])
		if err != nil {
			return out, fmt.Errorf("tasks[%d].assignees: %w", i, err)
		}
		out.Tasks = append(out.Tasks, CandidateTask{
			Description:    strings.TrimSpace(desc),
			DeadlinePhrase: strings.TrimSpace(phrase),
			Assignees:      assignees,
		})
	}

	return out, nil
}

func stringSlice(v any) ([]string, error) {
	raw, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected array, got %T", v)
	}
	out := make([]string, 0, len(raw))
	for i, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("item %d: expected string, got %T", i, item)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}
