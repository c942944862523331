package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bass-society/secretary-backend/internal/data/repos"
	types "github.com/bass-society/secretary-backend/internal/domain"
	pkgerrors "github.com/bass-society/secretary-backend/internal/pkg/errors"
	"github.com/bass-society/secretary-backend/internal/pkg/logger"
	"github.com/bass-society/secretary-backend/internal/transcript"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Toolset owns the tool implementations and their shared access to the
// store. Read tools query directly; every write tool runs inside its
// own transaction.
type Toolset struct {
	db       *gorm.DB
	members  repos.MemberRepo
	projects repos.ProjectRepo
	topics   repos.TopicRepo
	meetings repos.MeetingRepo
	tasks    repos.TaskRepo
	resolver *transcript.Resolver
	log      *logger.Logger
}

type ToolsetDeps struct {
	DB       *gorm.DB
	Members  repos.MemberRepo
	Projects repos.ProjectRepo
	Topics   repos.TopicRepo
	Meetings repos.MeetingRepo
	Tasks    repos.TaskRepo
	Resolver *transcript.Resolver
}

func NewToolset(deps ToolsetDeps, baseLog *logger.Logger) *Toolset {
	return &Toolset{
		db:       deps.DB,
		members:  deps.Members,
		projects: deps.Projects,
		topics:   deps.Topics,
		meetings: deps.Meetings,
		tasks:    deps.Tasks,
		resolver: deps.Resolver,
		log:      baseLog.With("service", "Toolset"),
	}
}

func objectSchema(required []string, props map[string]any) map[string]any {
	if props == nil {
		props = map[string]any{}
	}
	schema := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

// RegisterAll installs the full tool catalog on the registry.
func (ts *Toolset) RegisterAll(r *Registry) error {
	tools := []*Tool{
		// ------------------------------ reads ------------------------------
		{
			Name:        "get_my_identity",
			Description: "Who the current chat user is in the member roster.",
			SideEffect:  SideEffectReadOnly,
			Parameters:  objectSchema(nil, nil),
			Run:         ts.getMyIdentity,
		},
		{
			Name:        "get_current_datetime",
			Description: "The current date and time. Use it for any relative date reasoning.",
			SideEffect:  SideEffectReadOnly,
			Parameters:  objectSchema(nil, nil),
			Run:         ts.getCurrentDatetime,
		},
		{
			Name:        "get_my_tasks",
			Description: "Tasks assigned to the current chat user, soonest deadline first.",
			SideEffect:  SideEffectReadOnly,
			Parameters:  objectSchema(nil, nil),
			Run:         ts.getMyTasks,
		},
		{
			Name:        "get_all_tasks",
			Description: "All tasks, optionally filtered by status.",
			SideEffect:  SideEffectReadOnly,
			Parameters: objectSchema(nil, map[string]any{
				"status": map[string]any{
					"type":        "string",
					"description": "Filter by task status.",
					"enum":        []string{"incomplete", "complete", "all"},
				},
			}),
			Run: ts.getAllTasks,
		},
		{
			Name:        "get_member_info",
			Description: "Profile, projects and tasks for one member, found by name.",
			SideEffect:  SideEffectReadOnly,
			Parameters:  objectSchema([]string{"name"}, map[string]any{"name": stringProp("The member's name.")}),
			Run:         ts.getMemberInfo,
		},
		{
			Name:        "get_all_members",
			Description: "The full member roster.",
			SideEffect:  SideEffectReadOnly,
			Parameters:  objectSchema(nil, nil),
			Run:         ts.getAllMembers,
		},
		{
			Name:        "get_meeting_info",
			Description: "Summary, attendees, projects, topics and tasks for one meeting, found by name.",
			SideEffect:  SideEffectReadOnly,
			Parameters:  objectSchema([]string{"name"}, map[string]any{"name": stringProp("The meeting's name.")}),
			Run:         ts.getMeetingInfo,
		},
		{
			Name:        "get_meetings_for_member",
			Description: "Meetings a member attended, newest first.",
			SideEffect:  SideEffectReadOnly,
			Parameters:  objectSchema([]string{"member_name"}, map[string]any{"member_name": stringProp("The member's name.")}),
			Run:         ts.getMeetingsForMember,
		},
		{
			Name:        "get_missed_meetings",
			Description: "Meetings a member did not attend, newest first. Defaults to the current chat user.",
			SideEffect:  SideEffectReadOnly,
			Parameters:  objectSchema(nil, map[string]any{"member_name": stringProp("The member's name. Omit for the current user.")}),
			Run:         ts.getMissedMeetings,
		},
		{
			Name:        "get_meetings_by_type_and_range",
			Description: "Meetings of one type within a date range, with their summaries.",
			SideEffect:  SideEffectReadOnly,
			Parameters: objectSchema([]string{"type", "from", "to"}, map[string]any{
				"type": stringProp("Meeting type, e.g. general or subcommittee."),
				"from": stringProp("Start date, inclusive (2024-03-01)."),
				"to":   stringProp("End date, inclusive (2024-03-31)."),
			}),
			Run: ts.getMeetingsByTypeAndRange,
		},
		{
			Name:        "get_project_info",
			Description: "Description, members and tasks for one project, found by name.",
			SideEffect:  SideEffectReadOnly,
			Parameters:  objectSchema([]string{"name"}, map[string]any{"name": stringProp("The project's name.")}),
			Run:         ts.getProjectInfo,
		},
		{
			Name:        "get_all_projects",
			Description: "All projects.",
			SideEffect:  SideEffectReadOnly,
			Parameters:  objectSchema(nil, nil),
			Run:         ts.getAllProjects,
		},
		{
			Name:        "get_topic_info",
			Description: "A topic and the meetings where it was discussed.",
			SideEffect:  SideEffectReadOnly,
			Parameters:  objectSchema([]string{"name"}, map[string]any{"name": stringProp("The topic's name.")}),
			Run:         ts.getTopicInfo,
		},
		{
			Name:        "search_records",
			Description: "Free-text search across members, projects, meetings and tasks.",
			SideEffect:  SideEffectReadOnly,
			Parameters:  objectSchema([]string{"query"}, map[string]any{"query": stringProp("Search text.")}),
			Run:         ts.searchRecords,
		},
		// ------------------------------ writes -----------------------------
		{
			Name:        "update_task_status",
			Description: "Mark a task complete or incomplete. Only on the user's explicit request.",
			SideEffect:  SideEffectWrite,
			Parameters: objectSchema([]string{"task_name", "status"}, map[string]any{
				"task_name": stringProp("The task's name."),
				"status": map[string]any{
					"type":        "string",
					"description": "New status.",
					"enum":        []string{"incomplete", "complete"},
				},
			}),
			Run: ts.updateTaskStatus,
		},
		{
			Name:        "assign_member_to_task",
			Description: "Assign a member to an existing task. Only on the user's explicit request.",
			SideEffect:  SideEffectWrite,
			Parameters: objectSchema([]string{"task_name", "member_name"}, map[string]any{
				"task_name":   stringProp("The task's name."),
				"member_name": stringProp("The member to assign."),
			}),
			Run: ts.assignMemberToTask,
		},
		{
			Name:        "remove_member_from_task",
			Description: "Remove a member's assignment from a task. Only on the user's explicit request.",
			SideEffect:  SideEffectWrite,
			Parameters: objectSchema([]string{"task_name", "member_name"}, map[string]any{
				"task_name":   stringProp("The task's name."),
				"member_name": stringProp("The member to remove."),
			}),
			Run: ts.removeMemberFromTask,
		},
		{
			Name:        "create_task",
			Description: "Create a task, optionally with a deadline and assignees. Only on the user's explicit request.",
			SideEffect:  SideEffectWrite,
			Parameters: objectSchema([]string{"name"}, map[string]any{
				"name":         stringProp("Short task name."),
				"description":  stringProp("Longer description."),
				"deadline":     stringProp("Deadline as a date (2024-03-08) or phrase (next Friday)."),
				"project_name": stringProp("Project to file the task under."),
				"assignee_names": map[string]any{
					"type":        "array",
					"description": "Members to assign.",
					"items":       map[string]any{"type": "string"},
				},
			}),
			Run: ts.createTask,
		},
		{
			Name:        "create_project",
			Description: "Create a project. Only on the user's explicit request.",
			SideEffect:  SideEffectWrite,
			Parameters: objectSchema([]string{"name"}, map[string]any{
				"name":        stringProp("Project name."),
				"description": stringProp("Project description."),
			}),
			Run: ts.createProject,
		},
		{
			Name:        "add_member_to_project",
			Description: "Add a member to a project. Only on the user's explicit request.",
			SideEffect:  SideEffectWrite,
			Parameters: objectSchema([]string{"project_name", "member_name"}, map[string]any{
				"project_name": stringProp("The project's name."),
				"member_name":  stringProp("The member to add."),
			}),
			Run: ts.addMemberToProject,
		},
		{
			Name:        "create_topic",
			Description: "Create a discussion topic. Only on the user's explicit request.",
			SideEffect:  SideEffectWrite,
			Parameters: objectSchema([]string{"name"}, map[string]any{
				"name":        stringProp("Topic name."),
				"description": stringProp("Topic description."),
			}),
			Run: ts.createTopic,
		},
		{
			Name:        "add_topic_to_meeting",
			Description: "Link a topic to a meeting. Only on the user's explicit request.",
			SideEffect:  SideEffectWrite,
			Parameters: objectSchema([]string{"topic_name", "meeting_name"}, map[string]any{
				"topic_name":   stringProp("The topic's name."),
				"meeting_name": stringProp("The meeting's name."),
			}),
			Run: ts.addTopicToMeeting,
		},
	}

	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// ----------------------------- reference resolution -----------------------------

func (ts *Toolset) resolveMemberRef(ctx context.Context, name string) (*types.Member, error) {
	roster, err := ts.members.GetAll(ctx, nil)
	if err != nil {
		return nil, err
	}
	records := make([]transcript.Record, 0, len(roster))
	byID := make(map[uuid.UUID]*types.Member, len(roster))
	for _, m := range roster {
		records = append(records, transcript.Record{ID: m.ID, Name: m.Name, Aliases: m.AliasList()})
		byID[m.ID] = m
	}

	out := ts.resolver.Resolve(name, transcript.KindMember, records)
	switch out.Class {
	case transcript.OutcomeMatched:
		return byID[out.ID], nil
	case transcript.OutcomeUnresolved:
		if out.Reason == transcript.ReasonAmbiguous {
			return nil, fmt.Errorf("member %q matches more than one person: %w", name, ErrAmbiguousReference)
		}
	}
	return nil, fmt.Errorf("no member found matching %q: %w", name, pkgerrors.ErrNotFound)
}

func (ts *Toolset) resolveTaskRef(ctx context.Context, name string) (*types.Task, error) {
	found, err := ts.tasks.FindByNamePattern(ctx, nil, name, 5)
	if err != nil {
		return nil, err
	}
	return pickOne(found, name, "task", func(t *types.Task) string { return t.Name })
}

func (ts *Toolset) resolveProjectRef(ctx context.Context, name string) (*types.Project, error) {
	found, err := ts.projects.FindByNamePattern(ctx, nil, name, 5)
	if err != nil {
		return nil, err
	}
	return pickOne(found, name, "project", func(p *types.Project) string { return p.Name })
}

func (ts *Toolset) resolveTopicRef(ctx context.Context, name string) (*types.Topic, error) {
	found, err := ts.topics.FindByNamePattern(ctx, nil, name, 5)
	if err != nil {
		return nil, err
	}
	return pickOne(found, name, "topic", func(t *types.Topic) string { return t.Name })
}

func (ts *Toolset) resolveMeetingRef(ctx context.Context, name string) (*types.Meeting, error) {
	found, err := ts.meetings.FindByNamePattern(ctx, nil, name, 5)
	if err != nil {
		return nil, err
	}
	return pickOne(found, name, "meeting", func(m *types.Meeting) string { return m.Name })
}

// pickOne reduces a name-pattern result set to exactly one record: an
// exact normalized-name match wins, otherwise more than one hit is an
// ambiguous reference.
func pickOne[T any](found []*T, name, kind string, nameOf func(*T) string) (*T, error) {
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("no %s found matching %q: %w", kind, name, pkgerrors.ErrNotFound)
	case 1:
		return found[0], nil
	}
	normalized := transcript.Normalize(name)
	var exact *T
	for _, item := range found {
		if transcript.Normalize(nameOf(item)) == normalized {
			if exact != nil {
				exact = nil
				break
			}
			exact = item
		}
	}
	if exact != nil {
		return exact, nil
	}
	names := make([]string, 0, len(found))
	for _, item := range found {
		names = append(names, nameOf(item))
	}
	return nil, fmt.Errorf("%s %q matches several records (%s): %w", kind, name, strings.Join(names, "; "), ErrAmbiguousReference)
}

// ----------------------------- views -----------------------------

func memberView(m *types.Member) map[string]any {
	return map[string]any{
		"id":           m.ID,
		"name":         m.Name,
		"aliases":      m.AliasList(),
		"role":         m.Role,
		"subcommittee": m.Subcommittee,
		"email":        m.Email,
	}
}

func (ts *Toolset) taskView(ctx context.Context, t *types.Task) (map[string]any, error) {
	assignees, err := ts.tasks.GetAssignees(ctx, nil, t.ID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(assignees))
	for _, m := range assignees {
		names = append(names, m.Name)
	}
	view := map[string]any{
		"id":          t.ID,
		"name":        t.Name,
		"description": t.Description,
		"status":      t.Status,
		"assignees":   names,
	}
	if t.Deadline != nil {
		view["deadline"] = t.Deadline.Format("2006-01-02")
	}
	if t.MeetingID != nil {
		meetings, err := ts.meetings.GetByIDs(ctx, nil, []uuid.UUID{*t.MeetingID})
		if err != nil {
			return nil, err
		}
		if len(meetings) == 1 {
			view["meeting"] = meetings[0].Name
		}
	}
	return view, nil
}

func (ts *Toolset) taskViews(ctx context.Context, tasks []*types.Task) ([]map[string]any, error) {
	views := make([]map[string]any, 0, len(tasks))
	for _, t := range tasks {
		v, err := ts.taskView(ctx, t)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func meetingView(m *types.Meeting) map[string]any {
	return map[string]any{
		"id":      m.ID,
		"name":    m.Name,
		"type":    m.Type,
		"date":    m.Date.Format("2006-01-02"),
		"summary": m.Summary,
	}
}

// ----------------------------- read tools -----------------------------

func (ts *Toolset) getMyIdentity(ctx context.Context, caller Caller, _ map[string]any) (any, error) {
	if caller.Member == nil {
		return map[string]any{"known": false, "chat_id": caller.ChatID}, nil
	}
	view := memberView(caller.Member)
	view["known"] = true
	return view, nil
}

func (ts *Toolset) getCurrentDatetime(_ context.Context, caller Caller, _ map[string]any) (any, error) {
	now := caller.Now
	if now.IsZero() {
		now = time.Now()
	}
	return map[string]any{
		"datetime": now.Format(time.RFC3339),
		"date":     now.Format("2006-01-02"),
		"weekday":  now.Weekday().String(),
	}, nil
}

func (ts *Toolset) getMyTasks(ctx context.Context, caller Caller, _ map[string]any) (any, error) {
	if caller.Member == nil {
		return nil, fmt.Errorf("your chat account is not linked to a member: %w", pkgerrors.ErrNotFound)
	}
	tasks, err := ts.tasks.ListByMember(ctx, nil, caller.Member.ID)
	if err != nil {
		return nil, err
	}
	return ts.taskViews(ctx, tasks)
}

func (ts *Toolset) getAllTasks(ctx context.Context, _ Caller, args map[string]any) (any, error) {
	status, _ := args["status"].(string)
	if status == "" {
		status = "all"
	}
	tasks, err := ts.tasks.ListByStatus(ctx, nil, status)
	if err != nil {
		return nil, err
	}
	return ts.taskViews(ctx, tasks)
}

func (ts *Toolset) getMemberInfo(ctx context.Context, _ Caller, args map[string]any) (any, error) {
	member, err := ts.resolveMemberRef(ctx, args["name"].(string))
	if err != nil {
		return nil, err
	}
	tasks, err := ts.tasks.ListByMember(ctx, nil, member.ID)
	if err != nil {
		return nil, err
	}
	taskViews, err := ts.taskViews(ctx, tasks)
	if err != nil {
		return nil, err
	}
	view := memberView(member)
	view["tasks"] = taskViews
	return view, nil
}

func (ts *Toolset) getAllMembers(ctx context.Context, _ Caller, _ map[string]any) (any, error) {
	members, err := ts.members.GetAll(ctx, nil)
	if err != nil {
		return nil, err
	}
	views := make([]map[string]any, 0, len(members))
	for _, m := range members {
		views = append(views, memberView(m))
	}
	return views, nil
}

func (ts *Toolset) getMeetingInfo(ctx context.Context, _ Caller, args map[string]any) (any, error) {
	meeting, err := ts.resolveMeetingRef(ctx, args["name"].(string))
	if err != nil {
		return nil, err
	}
	view := meetingView(meeting)

	attendees, err := ts.meetings.GetAttendees(ctx, nil, meeting.ID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(attendees))
	for _, m := range attendees {
		names = append(names, m.Name)
	}
	view["attendees"] = names

	projects, err := ts.meetings.GetProjects(ctx, nil, meeting.ID)
	if err != nil {
		return nil, err
	}
	projectNames := make([]string, 0, len(projects))
	for _, p := range projects {
		projectNames = append(projectNames, p.Name)
	}
	view["projects"] = projectNames

	topics, err := ts.meetings.GetTopics(ctx, nil, meeting.ID)
	if err != nil {
		return nil, err
	}
	topicNames := make([]string, 0, len(topics))
	for _, t := range topics {
		topicNames = append(topicNames, t.Name)
	}
	view["topics"] = topicNames

	tasks, err := ts.meetings.GetTasks(ctx, nil, meeting.ID)
	if err != nil {
		return nil, err
	}
	taskViews, err := ts.taskViews(ctx, tasks)
	if err != nil {
		return nil, err
	}
	view["tasks"] = taskViews
	return view, nil
}

func (ts *Toolset) getMeetingsForMember(ctx context.Context, _ Caller, args map[string]any) (any, error) {
	member, err := ts.resolveMemberRef(ctx, args["member_name"].(string))
	if err != nil {
		return nil, err
	}
	meetings, err := ts.meetings.ListByMember(ctx, nil, member.ID)
	if err != nil {
		return nil, err
	}
	views := make([]map[string]any, 0, len(meetings))
	for _, m := range meetings {
		views = append(views, meetingView(m))
	}
	return views, nil
}

func (ts *Toolset) getMeetingsByTypeAndRange(ctx context.Context, _ Caller, args map[string]any) (any, error) {
	meetingType := strings.ToLower(strings.TrimSpace(args["type"].(string)))
	from, err := time.Parse("2006-01-02", args["from"].(string))
	if err != nil {
		return nil, &ToolInputError{Tool: "get_meetings_by_type_and_range", Reason: fmt.Sprintf("from must be a date like 2024-03-01, got %q", args["from"])}
	}
	to, err := time.Parse("2006-01-02", args["to"].(string))
	if err != nil {
		return nil, &ToolInputError{Tool: "get_meetings_by_type_and_range", Reason: fmt.Sprintf("to must be a date like 2024-03-31, got %q", args["to"])}
	}
	if to.Before(from) {
		return nil, &ToolInputError{Tool: "get_meetings_by_type_and_range", Reason: "to is before from"}
	}

	meetings, err := ts.meetings.ListByTypeAndRange(ctx, nil, meetingType, from, to)
	if err != nil {
		return nil, err
	}
	views := make([]map[string]any, 0, len(meetings))
	for _, m := range meetings {
		views = append(views, meetingView(m))
	}
	return views, nil
}

func (ts *Toolset) getMissedMeetings(ctx context.Context, caller Caller, args map[string]any) (any, error) {
	var member *types.Member
	if name, ok := args["member_name"].(string); ok && name != "" {
		var err error
		member, err = ts.resolveMemberRef(ctx, name)
		if err != nil {
			return nil, err
		}
	} else {
		if caller.Member == nil {
			return nil, fmt.Errorf("your chat account is not linked to a member: %w", pkgerrors.ErrNotFound)
		}
		member = caller.Member
	}
	meetings, err := ts.meetings.ListMissedByMember(ctx, nil, member.ID)
	if err != nil {
		return nil, err
	}
	views := make([]map[string]any, 0, len(meetings))
	for _, m := range meetings {
		views = append(views, meetingView(m))
	}
	return map[string]any{"member": member.Name, "missed": views}, nil
}

func (ts *Toolset) getProjectInfo(ctx context.Context, _ Caller, args map[string]any) (any, error) {
	project, err := ts.resolveProjectRef(ctx, args["name"].(string))
	if err != nil {
		return nil, err
	}
	members, err := ts.projects.GetMembers(ctx, nil, project.ID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Name)
	}
	tasks, err := ts.projects.GetTasks(ctx, nil, project.ID)
	if err != nil {
		return nil, err
	}
	taskViews, err := ts.taskViews(ctx, tasks)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":          project.ID,
		"name":        project.Name,
		"description": project.Description,
		"members":     names,
		"tasks":       taskViews,
	}, nil
}

func (ts *Toolset) getAllProjects(ctx context.Context, _ Caller, _ map[string]any) (any, error) {
	projects, err := ts.projects.GetAll(ctx, nil)
	if err != nil {
		return nil, err
	}
	views := make([]map[string]any, 0, len(projects))
	for _, p := range projects {
		count, err := ts.projects.CountMembers(ctx, nil, p.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, map[string]any{
			"id":           p.ID,
			"name":         p.Name,
			"description":  p.Description,
			"member_count": count,
		})
	}
	return views, nil
}

func (ts *Toolset) getTopicInfo(ctx context.Context, _ Caller, args map[string]any) (any, error) {
	topic, err := ts.resolveTopicRef(ctx, args["name"].(string))
	if err != nil {
		return nil, err
	}
	meetings, err := ts.topics.GetMeetings(ctx, nil, topic.ID)
	if err != nil {
		return nil, err
	}
	views := make([]map[string]any, 0, len(meetings))
	for _, m := range meetings {
		views = append(views, meetingView(m))
	}
	return map[string]any{
		"id":          topic.ID,
		"name":        topic.Name,
		"description": topic.Description,
		"meetings":    views,
	}, nil
}

func (ts *Toolset) searchRecords(ctx context.Context, _ Caller, args map[string]any) (any, error) {
	query := args["query"].(string)
	const limit = 10

	out := map[string]any{}

	members, err := ts.members.Search(ctx, nil, query, limit)
	if err != nil {
		return nil, err
	}
	memberNames := make([]string, 0, len(members))
	for _, m := range members {
		memberNames = append(memberNames, m.Name)
	}
	out["members"] = memberNames

	projects, err := ts.projects.FindByNamePattern(ctx, nil, query, limit)
	if err != nil {
		return nil, err
	}
	projectNames := make([]string, 0, len(projects))
	for _, p := range projects {
		projectNames = append(projectNames, p.Name)
	}
	out["projects"] = projectNames

	meetings, err := ts.meetings.Search(ctx, nil, query, limit)
	if err != nil {
		return nil, err
	}
	meetingViews := make([]map[string]any, 0, len(meetings))
	for _, m := range meetings {
		meetingViews = append(meetingViews, meetingView(m))
	}
	out["meetings"] = meetingViews

	tasks, err := ts.tasks.FindByNamePattern(ctx, nil, query, limit)
	if err != nil {
		return nil, err
	}
	taskNames := make([]string, 0, len(tasks))
	for _, t := range tasks {
		taskNames = append(taskNames, t.Name)
	}
	out["tasks"] = taskNames

	return out, nil
}

// ----------------------------- write tools -----------------------------

func (ts *Toolset) updateTaskStatus(ctx context.Context, _ Caller, args map[string]any) (any, error) {
	task, err := ts.resolveTaskRef(ctx, args["task_name"].(string))
	if err != nil {
		return nil, err
	}
	status := args["status"].(string)

	err = ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return ts.tasks.UpdateStatus(ctx, tx, task.ID, status)
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"task": task.Name, "status": status}, nil
}

func (ts *Toolset) assignMemberToTask(ctx context.Context, _ Caller, args map[string]any) (any, error) {
	task, err := ts.resolveTaskRef(ctx, args["task_name"].(string))
	if err != nil {
		return nil, err
	}
	member, err := ts.resolveMemberRef(ctx, args["member_name"].(string))
	if err != nil {
		return nil, err
	}

	err = ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return ts.tasks.Assign(ctx, tx, task.ID, member.ID)
	})
	if errors.Is(err, pkgerrors.ErrConflict) {
		return nil, fmt.Errorf("%s is already assigned to %q: %w", member.Name, task.Name, pkgerrors.ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{"task": task.Name, "assigned": member.Name}, nil
}

func (ts *Toolset) removeMemberFromTask(ctx context.Context, _ Caller, args map[string]any) (any, error) {
	task, err := ts.resolveTaskRef(ctx, args["task_name"].(string))
	if err != nil {
		return nil, err
	}
	member, err := ts.resolveMemberRef(ctx, args["member_name"].(string))
	if err != nil {
		return nil, err
	}

	var removed bool
	err = ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		removed, err = ts.tasks.Unassign(ctx, tx, task.ID, member.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, fmt.Errorf("%s is not assigned to %q: %w", member.Name, task.Name, pkgerrors.ErrNotFound)
	}
	return map[string]any{"task": task.Name, "removed": member.Name}, nil
}

func (ts *Toolset) createTask(ctx context.Context, caller Caller, args map[string]any) (any, error) {
	name := strings.TrimSpace(args["name"].(string))
	if name == "" {
		return nil, &ToolInputError{Tool: "create_task", Reason: "name must not be empty"}
	}
	description, _ := args["description"].(string)

	task := &types.Task{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		Status:      types.TaskStatusIncomplete,
	}

	if phrase, ok := args["deadline"].(string); ok && strings.TrimSpace(phrase) != "" {
		now := caller.Now
		if now.IsZero() {
			now = time.Now()
		}
		deadline, parsed := transcript.ParseDeadline(phrase, now)
		if !parsed {
			return nil, &ToolInputError{Tool: "create_task", Reason: fmt.Sprintf("could not understand deadline %q", phrase)}
		}
		task.Deadline = &deadline
	}

	var project *types.Project
	if pn, ok := args["project_name"].(string); ok && strings.TrimSpace(pn) != "" {
		var err error
		project, err = ts.resolveProjectRef(ctx, pn)
		if err != nil {
			return nil, err
		}
	}

	// Resolve every assignee before writing anything: an ambiguous or
	// unknown name aborts the whole create.
	var assignees []*types.Member
	if raw, ok := args["assignee_names"].([]any); ok {
		seen := map[uuid.UUID]bool{}
		for _, item := range raw {
			member, err := ts.resolveMemberRef(ctx, item.(string))
			if err != nil {
				return nil, err
			}
			if !seen[member.ID] {
				seen[member.ID] = true
				assignees = append(assignees, member)
			}
		}
	}

	err := ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ts.tasks.Create(ctx, tx, []*types.Task{task}); err != nil {
			return err
		}
		for _, member := range assignees {
			if err := ts.tasks.Assign(ctx, tx, task.ID, member.ID); err != nil {
				return err
			}
		}
		if project != nil {
			if err := ts.projects.LinkTask(ctx, tx, project.ID, task.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(assignees))
	for _, m := range assignees {
		names = append(names, m.Name)
	}
	result := map[string]any{"id": task.ID, "name": task.Name, "assignees": names}
	if task.Deadline != nil {
		result["deadline"] = task.Deadline.Format("2006-01-02")
	}
	if project != nil {
		result["project"] = project.Name
	}
	return result, nil
}

func (ts *Toolset) createProject(ctx context.Context, _ Caller, args map[string]any) (any, error) {
	name := strings.TrimSpace(args["name"].(string))
	if name == "" {
		return nil, &ToolInputError{Tool: "create_project", Reason: "name must not be empty"}
	}
	description, _ := args["description"].(string)

	project := &types.Project{ID: uuid.New(), Name: name, Description: description}
	err := ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := ts.projects.Create(ctx, tx, []*types.Project{project})
		return err
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": project.ID, "name": project.Name}, nil
}

func (ts *Toolset) addMemberToProject(ctx context.Context, _ Caller, args map[string]any) (any, error) {
	project, err := ts.resolveProjectRef(ctx, args["project_name"].(string))
	if err != nil {
		return nil, err
	}
	member, err := ts.resolveMemberRef(ctx, args["member_name"].(string))
	if err != nil {
		return nil, err
	}

	err = ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return ts.projects.AddMember(ctx, tx, project.ID, member.ID)
	})
	if errors.Is(err, pkgerrors.ErrConflict) {
		return nil, fmt.Errorf("%s is already a member of %q: %w", member.Name, project.Name, pkgerrors.ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{"project": project.Name, "added": member.Name}, nil
}

func (ts *Toolset) createTopic(ctx context.Context, _ Caller, args map[string]any) (any, error) {
	name := strings.TrimSpace(args["name"].(string))
	if name == "" {
		return nil, &ToolInputError{Tool: "create_topic", Reason: "name must not be empty"}
	}
	description, _ := args["description"].(string)

	topic := &types.Topic{ID: uuid.New(), Name: name, Description: description}
	err := ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := ts.topics.Create(ctx, tx, []*types.Topic{topic})
		return err
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": topic.ID, "name": topic.Name}, nil
}

func (ts *Toolset) addTopicToMeeting(ctx context.Context, _ Caller, args map[string]any) (any, error) {
	topic, err := ts.resolveTopicRef(ctx, args["topic_name"].(string))
	if err != nil {
		return nil, err
	}
	meeting, err := ts.resolveMeetingRef(ctx, args["meeting_name"].(string))
	if err != nil {
		return nil, err
	}

	err = ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return ts.meetings.AddTopic(ctx, tx, meeting.ID, topic.ID)
	})
	if errors.Is(err, pkgerrors.ErrConflict) {
		return nil, fmt.Errorf("topic %q is already on %q: %w", topic.Name, meeting.Name, pkgerrors.ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{"meeting": meeting.Name, "topic": topic.Name}, nil
}
