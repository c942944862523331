package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bass-society/secretary-backend/internal/clients/openai"
	"github.com/bass-society/secretary-backend/internal/data/repos"
	"github.com/bass-society/secretary-backend/internal/data/repos/testutil"
	types "github.com/bass-society/secretary-backend/internal/domain"
	"github.com/bass-society/secretary-backend/internal/pkg/logger"
	"github.com/bass-society/secretary-backend/internal/transcript"
	"gorm.io/gorm"
)

func newTestToolset(t *testing.T, gdb *gorm.DB, logg *logger.Logger) *Toolset {
	t.Helper()
	return NewToolset(ToolsetDeps{
		DB:       gdb,
		Members:  repos.NewMemberRepo(gdb, logg),
		Projects: repos.NewProjectRepo(gdb, logg),
		Topics:   repos.NewTopicRepo(gdb, logg),
		Meetings: repos.NewMeetingRepo(gdb, logg),
		Tasks:    repos.NewTaskRepo(gdb, logg),
		Resolver: transcript.NewResolver(),
	}, logg)
}

// scriptedCompleter plays back a fixed sequence of model replies. When
// the script runs out it repeats the last step, which lets budget tests
// model a looping planner.
type scriptedCompleter struct {
	steps []openai.ChatCompletion
	calls int
	seen  [][]openai.ChatMessage
}

func (s *scriptedCompleter) ChatWithTools(_ context.Context, _ string, msgs []openai.ChatMessage, _ []openai.ToolDef) (openai.ChatCompletion, error) {
	s.seen = append(s.seen, msgs)
	idx := s.calls
	if idx >= len(s.steps) {
		idx = len(s.steps) - 1
	}
	s.calls++
	return s.steps[idx], nil
}

func toolCall(id, name, args string) openai.ToolCall {
	return openai.ToolCall{ID: id, Name: name, Arguments: json.RawMessage(args)}
}

type dispatcherFixture struct {
	db       *gorm.DB
	members  repos.MemberRepo
	tasks    repos.TaskRepo
	registry *Registry
}

func newDispatcherFixture(t *testing.T) *dispatcherFixture {
	t.Helper()
	gdb := testutil.MemDB(t)
	logg := testutil.Logger(t)

	registry := NewRegistry(logg)
	if err := newTestToolset(t, gdb, logg).RegisterAll(registry); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	return &dispatcherFixture{
		db:       gdb,
		members:  repos.NewMemberRepo(gdb, logg),
		tasks:    repos.NewTaskRepo(gdb, logg),
		registry: registry,
	}
}

func (f *dispatcherFixture) dispatcher(t *testing.T, llm ChatCompleter, budget int) *Dispatcher {
	t.Helper()
	return NewDispatcher(f.registry, llm, f.members, budget, testutil.Logger(t))
}

func TestHandleTurnGroundedRead(t *testing.T) {
	ctx := context.Background()
	f := newDispatcherFixture(t)

	sam := testutil.SeedMember(t, ctx, f.db, "Sam Choong")
	sam.ChatID = "chat-sam"
	if err := f.db.Save(sam).Error; err != nil {
		t.Fatalf("set chat id: %v", err)
	}
	task := testutil.SeedTask(t, ctx, f.db, "Finalize the budget", nil)
	if err := f.tasks.Assign(ctx, nil, task.ID, sam.ID); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	llm := &scriptedCompleter{steps: []openai.ChatCompletion{
		{ToolCalls: []openai.ToolCall{toolCall("c1", "get_my_tasks", `{}`)}},
		{Text: "You have one open task: Finalize the budget."},
	}}

	result, err := f.dispatcher(t, llm, 0).HandleTurn(ctx, "chat-sam", nil, "what are my tasks?")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if result.Answer == "" {
		t.Fatal("no answer")
	}

	if len(result.Trace) != 1 || result.Trace[0].Name != "get_my_tasks" {
		t.Fatalf("trace = %+v", result.Trace)
	}
	if result.Trace[0].Error != "" {
		t.Fatalf("tool errored: %s", result.Trace[0].Error)
	}
	// Every claim in the answer is traceable to the tool result.
	if !strings.Contains(string(result.Trace[0].Result), "Finalize the budget") {
		t.Fatalf("tool result does not back the answer: %s", result.Trace[0].Result)
	}

	// The model saw the tool result before answering.
	lastMsgs := llm.seen[len(llm.seen)-1]
	final := lastMsgs[len(lastMsgs)-1]
	if final.Role != "tool" || !strings.Contains(final.Content, "Finalize the budget") {
		t.Fatalf("model did not receive the tool result: %+v", final)
	}
}

func TestHandleTurnBudgetExceeded(t *testing.T) {
	ctx := context.Background()
	f := newDispatcherFixture(t)

	// The scripted planner never stops calling tools.
	llm := &scriptedCompleter{steps: []openai.ChatCompletion{
		{ToolCalls: []openai.ToolCall{toolCall("c1", "get_all_projects", `{}`)}},
	}}

	d := f.dispatcher(t, llm, 3)
	_, err := d.HandleTurn(ctx, "", nil, "keep looking")
	if !errors.Is(err, ErrToolBudgetExceeded) {
		t.Fatalf("want ErrToolBudgetExceeded, got %v", err)
	}
	// Planning calls: one per executed tool call, none after the cap.
	if llm.calls != 4 {
		t.Fatalf("planner calls = %d, want 4", llm.calls)
	}
}

func TestHandleTurnAmbiguousWriteAsksForClarification(t *testing.T) {
	ctx := context.Background()
	f := newDispatcherFixture(t)

	testutil.SeedMember(t, ctx, f.db, "John")
	testutil.SeedMember(t, ctx, f.db, "Joan")

	llm := &scriptedCompleter{steps: []openai.ChatCompletion{
		{ToolCalls: []openai.ToolCall{toolCall("c1", "create_task", `{"name":"Order stands","assignee_names":["Jon"]}`)}},
		{Text: "There are two members that could be \"Jon\": John and Joan. Who did you mean?"},
	}}

	result, err := f.dispatcher(t, llm, 0).HandleTurn(ctx, "", nil, "create a task for Jon to order stands")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if len(result.Trace) != 1 || result.Trace[0].Error == "" {
		t.Fatalf("expected a tool error in the trace: %+v", result.Trace)
	}
	if !strings.Contains(result.Trace[0].Error, "more than one") {
		t.Fatalf("error does not flag ambiguity: %s", result.Trace[0].Error)
	}
	if !strings.Contains(result.Answer, "Who did you mean") {
		t.Fatalf("answer is not a clarification: %q", result.Answer)
	}

	// The guessed write never happened.
	var count int64
	if err := f.db.Model(&types.Task{}).Count(&count).Error; err != nil {
		t.Fatalf("count tasks: %v", err)
	}
	if count != 0 {
		t.Fatalf("tasks created = %d, want 0", count)
	}
}

func TestHandleTurnInvalidToolInputFedBack(t *testing.T) {
	ctx := context.Background()
	f := newDispatcherFixture(t)

	llm := &scriptedCompleter{steps: []openai.ChatCompletion{
		{ToolCalls: []openai.ToolCall{toolCall("c1", "get_member_info", `{}`)}},
		{Text: "I need a member name to look that up."},
	}}

	result, err := f.dispatcher(t, llm, 0).HandleTurn(ctx, "", nil, "look up the member")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if len(result.Trace) != 1 || !strings.Contains(result.Trace[0].Error, "missing required argument") {
		t.Fatalf("trace = %+v", result.Trace)
	}

	// The model received the validation error as a tool payload.
	lastMsgs := llm.seen[len(llm.seen)-1]
	final := lastMsgs[len(lastMsgs)-1]
	if final.Role != "tool" || !strings.Contains(final.Content, "missing required argument") {
		t.Fatalf("validation error not fed back: %+v", final)
	}
}

func TestHandleTurnUnknownCallerStillAnswers(t *testing.T) {
	ctx := context.Background()
	f := newDispatcherFixture(t)

	llm := &scriptedCompleter{steps: []openai.ChatCompletion{
		{ToolCalls: []openai.ToolCall{toolCall("c1", "get_my_identity", `{}`)}},
		{Text: "Your chat account is not linked to any member."},
	}}

	result, err := f.dispatcher(t, llm, 0).HandleTurn(ctx, "chat-unknown", nil, "who am I?")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if !strings.Contains(string(result.Trace[0].Result), `"known":false`) {
		t.Fatalf("identity result = %s", result.Trace[0].Result)
	}
}

func TestHandleTurnDuplicateAssignmentFedBack(t *testing.T) {
	ctx := context.Background()
	f := newDispatcherFixture(t)

	sam := testutil.SeedMember(t, ctx, f.db, "Sam Choong")
	task := testutil.SeedTask(t, ctx, f.db, "Finalize the budget", nil)
	if err := f.tasks.Assign(ctx, nil, task.ID, sam.ID); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	llm := &scriptedCompleter{steps: []openai.ChatCompletion{
		{ToolCalls: []openai.ToolCall{toolCall("c1", "assign_member_to_task", `{"task_name":"Finalize the budget","member_name":"Sam Choong"}`)}},
		{Text: "Sam Choong is already assigned to that task."},
	}}

	result, err := f.dispatcher(t, llm, 0).HandleTurn(ctx, "", nil, "assign Sam to the budget task")
	if err != nil {
		t.Fatalf("duplicate assignment aborted the turn: %v", err)
	}
	if len(result.Trace) != 1 || result.Trace[0].Error == "" {
		t.Fatalf("expected a tool error in the trace: %+v", result.Trace)
	}
	if !strings.Contains(result.Trace[0].Error, "already assigned") {
		t.Fatalf("error does not flag the duplicate: %s", result.Trace[0].Error)
	}
	if !strings.Contains(result.Answer, "already assigned") {
		t.Fatalf("answer does not surface the duplicate: %q", result.Answer)
	}

	// The assignment is still there exactly once.
	var count int64
	if err := f.db.Model(&types.TaskAssignment{}).Where("task_id = ?", task.ID).Count(&count).Error; err != nil {
		t.Fatalf("count assignments: %v", err)
	}
	if count != 1 {
		t.Fatalf("assignments = %d, want 1", count)
	}
}

func TestHandleTurnMeetingsByTypeAndRange(t *testing.T) {
	ctx := context.Background()
	f := newDispatcherFixture(t)

	testutil.SeedMeeting(t, ctx, f.db, types.MeetingTypeGeneral, time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC))
	testutil.SeedMeeting(t, ctx, f.db, types.MeetingTypeGeneral, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC))
	testutil.SeedMeeting(t, ctx, f.db, types.MeetingTypeExec, time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC))

	llm := &scriptedCompleter{steps: []openai.ChatCompletion{
		{ToolCalls: []openai.ToolCall{toolCall("c1", "get_meetings_by_type_and_range", `{"type":"general","from":"2024-03-01","to":"2024-03-31"}`)}},
		{Text: "One general meeting in March: 2024-03-04."},
	}}

	result, err := f.dispatcher(t, llm, 0).HandleTurn(ctx, "", nil, "which general meetings happened in March?")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if len(result.Trace) != 1 || result.Trace[0].Error != "" {
		t.Fatalf("trace = %+v", result.Trace)
	}
	got := string(result.Trace[0].Result)
	if !strings.Contains(got, "2024-03-04") {
		t.Fatalf("in-range general meeting missing: %s", got)
	}
	if strings.Contains(got, "2024-04-01") || strings.Contains(got, "2024-03-11") {
		t.Fatalf("out-of-range or wrong-type meeting included: %s", got)
	}
}
