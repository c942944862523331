package transcript

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bass-society/secretary-backend/internal/data/repos"
	"github.com/bass-society/secretary-backend/internal/data/repos/testutil"
	types "github.com/bass-society/secretary-backend/internal/domain"
	pkgerrors "github.com/bass-society/secretary-backend/internal/pkg/errors"
	"gorm.io/gorm"
)

type fakeExtractor struct {
	set      CandidateSet
	failures int
	calls    int
}

func (f *fakeExtractor) Extract(_ context.Context, _ string, _ DomainContext) (CandidateSet, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return CandidateSet{}, &ExtractionError{Stage: "model", Err: errors.New("scripted failure")}
	}
	return f.set, nil
}

type integratorFixture struct {
	db         *gorm.DB
	integrator *Integrator
	members    repos.MemberRepo
	meetings   repos.MeetingRepo
	tasks      repos.TaskRepo
	projects   repos.ProjectRepo
}

func newIntegratorFixture(t *testing.T, extractor Extractor) *integratorFixture {
	t.Helper()
	gdb := testutil.MemDB(t)
	logg := testutil.Logger(t)

	f := &integratorFixture{
		db:       gdb,
		members:  repos.NewMemberRepo(gdb, logg),
		meetings: repos.NewMeetingRepo(gdb, logg),
		tasks:    repos.NewTaskRepo(gdb, logg),
		projects: repos.NewProjectRepo(gdb, logg),
	}
	f.integrator = NewIntegrator(IntegratorDeps{
		DB:        gdb,
		Members:   f.members,
		Projects:  f.projects,
		Topics:    repos.NewTopicRepo(gdb, logg),
		Meetings:  f.meetings,
		Tasks:     f.tasks,
		Extractor: extractor,
		Resolver:  NewResolver(),
	}, nil, logg)
	return f
}

func TestProcessEndToEnd(t *testing.T) {
	ctx := context.Background()
	extractor := &fakeExtractor{set: CandidateSet{
		Members: []string{"Sam Choong", "Katherine Lim"},
		Topics:  []string{"Budget"},
		Tasks: []CandidateTask{{
			Description:    "Finalize the budget",
			DeadlinePhrase: "next Friday",
			Assignees:      []string{"Sam Choong"},
		}},
		Summary: "Budget discussion.",
	}}
	f := newIntegratorFixture(t, extractor)

	sam := testutil.SeedMember(t, ctx, f.db, "Sam Choong")
	testutil.SeedMember(t, ctx, f.db, "Katherine Lim")

	report, err := f.integrator.Process(ctx, Request{
		Text: "Sam Choong will finalize the budget by next Friday.",
		Meeting: MeetingMeta{
			Type: types.MeetingTypeGeneral,
			Date: time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC),
		},
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if report.AlreadyProcessed {
		t.Fatal("first run marked already processed")
	}
	if report.TaskCount != 1 {
		t.Fatalf("task count = %d, want 1", report.TaskCount)
	}
	if len(report.Members) != 2 {
		t.Fatalf("resolved members = %d, want 2", len(report.Members))
	}
	if len(report.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", report.Diagnostics)
	}

	tasks, err := f.tasks.ListByMember(ctx, nil, sam.ID)
	if err != nil {
		t.Fatalf("ListByMember: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("tasks for Sam = %d, want 1", len(tasks))
	}
	task := tasks[0]
	if task.Deadline == nil {
		t.Fatal("task has no deadline")
	}
	if want := time.Date(2024, time.March, 8, 0, 0, 0, 0, time.UTC); !task.Deadline.Equal(want) {
		t.Fatalf("deadline = %s, want %s", task.Deadline.Format("2006-01-02"), want.Format("2006-01-02"))
	}
	if task.MeetingID == nil || *task.MeetingID != report.MeetingID {
		t.Fatal("task not linked to the meeting")
	}

	attendees, err := f.meetings.GetAttendees(ctx, nil, report.MeetingID)
	if err != nil {
		t.Fatalf("GetAttendees: %v", err)
	}
	if len(attendees) != 2 {
		t.Fatalf("attendees = %d, want 2", len(attendees))
	}
}

func TestProcessIdempotent(t *testing.T) {
	ctx := context.Background()
	extractor := &fakeExtractor{set: CandidateSet{Summary: "Short meeting."}}
	f := newIntegratorFixture(t, extractor)

	req := Request{
		Text: "Nothing much happened.",
		Meeting: MeetingMeta{
			Type: types.MeetingTypeGeneral,
			Date: time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC),
		},
	}

	first, err := f.integrator.Process(ctx, req)
	if err != nil {
		t.Fatalf("first Process: %v", err)
	}
	second, err := f.integrator.Process(ctx, req)
	if err != nil {
		t.Fatalf("second Process: %v", err)
	}
	if !second.AlreadyProcessed {
		t.Fatal("second run not marked already processed")
	}
	if second.MeetingID != first.MeetingID {
		t.Fatalf("meeting ids differ: %s vs %s", first.MeetingID, second.MeetingID)
	}

	var count int64
	if err := f.db.Model(&types.Meeting{}).Count(&count).Error; err != nil {
		t.Fatalf("count meetings: %v", err)
	}
	if count != 1 {
		t.Fatalf("meetings = %d, want 1", count)
	}
}

func TestProcessTwoAssigneesOneTask(t *testing.T) {
	ctx := context.Background()
	extractor := &fakeExtractor{set: CandidateSet{
		Members: []string{"Sam Choong", "Katherine Lim"},
		Tasks: []CandidateTask{{
			Description: "Book the rehearsal room",
			Assignees:   []string{"Sam Choong", "Katherine Lim"},
		}},
	}}
	f := newIntegratorFixture(t, extractor)

	testutil.SeedMember(t, ctx, f.db, "Sam Choong")
	testutil.SeedMember(t, ctx, f.db, "Katherine Lim")

	report, err := f.integrator.Process(ctx, Request{
		Text:    "Sam and Katherine will book the rehearsal room.",
		Meeting: MeetingMeta{Type: types.MeetingTypeGeneral, Date: time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)},
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	meetingTasks, err := f.meetings.GetTasks(ctx, nil, report.MeetingID)
	if err != nil {
		t.Fatalf("GetTasks: %v", err)
	}
	if len(meetingTasks) != 1 {
		t.Fatalf("tasks = %d, want 1", len(meetingTasks))
	}

	assignments, err := f.tasks.GetAssignments(ctx, nil, meetingTasks[0].ID)
	if err != nil {
		t.Fatalf("GetAssignments: %v", err)
	}
	if len(assignments) != 2 {
		t.Fatalf("assignment rows = %d, want 2", len(assignments))
	}
	for _, a := range assignments {
		if a.TaskID != meetingTasks[0].ID {
			t.Fatal("assignment references a different task")
		}
	}
}

func TestProcessReportsUnresolved(t *testing.T) {
	ctx := context.Background()
	extractor := &fakeExtractor{set: CandidateSet{
		Members: []string{"Sam Choong", "Nobody Known"},
		Tasks: []CandidateTask{{
			Description:    "Chase the invoice",
			DeadlinePhrase: "whenever possible",
			Assignees:      []string{"Nobody Known"},
		}},
	}}
	f := newIntegratorFixture(t, extractor)
	testutil.SeedMember(t, ctx, f.db, "Sam Choong")

	report, err := f.integrator.Process(ctx, Request{
		Text:    "Somebody should chase the invoice.",
		Meeting: MeetingMeta{Type: types.MeetingTypeGeneral, Date: time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)},
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	var memberDiag, assigneeDiag, deadlineDiag bool
	for _, d := range report.Diagnostics {
		switch d.Kind {
		case "member":
			memberDiag = true
		case "assignee":
			assigneeDiag = true
		case "deadline":
			deadlineDiag = true
		}
	}
	if !memberDiag || !assigneeDiag || !deadlineDiag {
		t.Fatalf("missing diagnostics: %+v", report.Diagnostics)
	}

	// The task survives without assignees or deadline.
	if report.TaskCount != 1 {
		t.Fatalf("task count = %d, want 1", report.TaskCount)
	}
}

func TestProcessCreatesProjectsLazily(t *testing.T) {
	ctx := context.Background()
	extractor := &fakeExtractor{set: CandidateSet{
		Projects: []string{"Website Redesign", "website redesign"},
	}}
	f := newIntegratorFixture(t, extractor)

	report, err := f.integrator.Process(ctx, Request{
		Text:    "We kicked off the website redesign.",
		Meeting: MeetingMeta{Type: types.MeetingTypeProject, Date: time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)},
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(report.Projects) != 1 {
		t.Fatalf("projects = %d, want 1 (same name twice must not duplicate)", len(report.Projects))
	}
	if report.Projects[0].Class != OutcomeCreate {
		t.Fatalf("project class = %s, want %s", report.Projects[0].Class, OutcomeCreate)
	}

	projects, err := f.projects.GetAll(ctx, nil)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(projects) != 1 {
		t.Fatalf("stored projects = %d, want 1", len(projects))
	}
}

func TestProcessRetriesExtractionOnce(t *testing.T) {
	ctx := context.Background()
	extractor := &fakeExtractor{failures: 1, set: CandidateSet{Summary: "Recovered."}}
	f := newIntegratorFixture(t, extractor)

	if _, err := f.integrator.Process(ctx, Request{
		Text:    "Flaky model run.",
		Meeting: MeetingMeta{Type: types.MeetingTypeGeneral, Date: time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)},
	}); err != nil {
		t.Fatalf("Process should recover after one retry: %v", err)
	}
	if extractor.calls != 2 {
		t.Fatalf("extractor calls = %d, want 2", extractor.calls)
	}
}

func TestProcessFailsAfterSecondExtractionError(t *testing.T) {
	ctx := context.Background()
	extractor := &fakeExtractor{failures: 2}
	f := newIntegratorFixture(t, extractor)

	_, err := f.integrator.Process(ctx, Request{
		Text:    "Broken model run.",
		Meeting: MeetingMeta{Type: types.MeetingTypeGeneral, Date: time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)},
	})
	if err == nil {
		t.Fatal("expected failure after two extraction errors")
	}
	var exErr *ExtractionError
	if !errors.As(err, &exErr) {
		t.Fatalf("error should wrap ExtractionError, got %v", err)
	}
	if extractor.calls != 2 {
		t.Fatalf("extractor calls = %d, want 2", extractor.calls)
	}
}

func TestProcessRejectsInvalidRequests(t *testing.T) {
	ctx := context.Background()
	extractor := &fakeExtractor{}
	f := newIntegratorFixture(t, extractor)

	date := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		req  Request
	}{
		{"empty text", Request{Text: "   ", Meeting: MeetingMeta{Type: types.MeetingTypeGeneral, Date: date}}},
		{"zero date", Request{Text: "Some transcript.", Meeting: MeetingMeta{Type: types.MeetingTypeGeneral}}},
	}
	for _, tc := range cases {
		_, err := f.integrator.Process(ctx, tc.req)
		if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
			t.Fatalf("%s: err = %v, want ErrInvalidArgument", tc.name, err)
		}
	}
	if extractor.calls != 0 {
		t.Fatalf("extractor calls = %d, want 0", extractor.calls)
	}
}
