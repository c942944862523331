package transcript

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bass-society/secretary-backend/internal/data/repos"
	types "github.com/bass-society/secretary-backend/internal/domain"
	pkgerrors "github.com/bass-society/secretary-backend/internal/pkg/errors"
	"github.com/bass-society/secretary-backend/internal/pkg/logger"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MeetingMeta is the caller-supplied metadata for one transcript,
// typically parsed from a filename or request body.
type MeetingMeta struct {
	Type string
	Date time.Time
	Name string
}

// Request is one unit of transcript processing.
type Request struct {
	Text    string
	Meeting MeetingMeta
	// AsOf anchors relative deadline phrases. Zero means the meeting
	// date.
	AsOf time.Time
}

// Diagnostic is one non-fatal finding from a processing pass. Nothing
// the extractor produced is ever silently dropped: every candidate that
// fails to resolve lands here.
type Diagnostic struct {
	Kind      string `json:"kind"`
	Candidate string `json:"candidate"`
	Detail    string `json:"detail,omitempty"`
}

// ResolvedEntity records where one candidate ended up.
type ResolvedEntity struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Class string    `json:"class"`
}

// Report is the result of processing one transcript.
type Report struct {
	MeetingID        uuid.UUID        `json:"meeting_id"`
	AlreadyProcessed bool             `json:"already_processed"`
	Summary          string           `json:"summary,omitempty"`
	Members          []ResolvedEntity `json:"members,omitempty"`
	Projects         []ResolvedEntity `json:"projects,omitempty"`
	Topics           []ResolvedEntity `json:"topics,omitempty"`
	TaskCount        int              `json:"task_count"`
	Diagnostics      []Diagnostic     `json:"diagnostics,omitempty"`
}

// Integrator runs the full pipeline for one transcript: extract,
// resolve against a snapshot, then commit the meeting and all of its
// links in a single transaction.
type Integrator struct {
	db        *gorm.DB
	members   repos.MemberRepo
	projects  repos.ProjectRepo
	topics    repos.TopicRepo
	meetings  repos.MeetingRepo
	tasks     repos.TaskRepo
	extractor Extractor
	resolver  *Resolver
	log       *logger.Logger

	meetingTypes []string

	// Serializes project/topic creation per normalized name so two
	// concurrent transcripts cannot coin duplicate records.
	createGroup singleflight.Group
}

type IntegratorDeps struct {
	DB        *gorm.DB
	Members   repos.MemberRepo
	Projects  repos.ProjectRepo
	Topics    repos.TopicRepo
	Meetings  repos.MeetingRepo
	Tasks     repos.TaskRepo
	Extractor Extractor
	Resolver  *Resolver
}

func NewIntegrator(deps IntegratorDeps, meetingTypes []string, baseLog *logger.Logger) *Integrator {
	if len(meetingTypes) == 0 {
		meetingTypes = types.DefaultMeetingTypes()
	}
	return &Integrator{
		db:           deps.DB,
		members:      deps.Members,
		projects:     deps.Projects,
		topics:       deps.Topics,
		meetings:     deps.Meetings,
		tasks:        deps.Tasks,
		extractor:    deps.Extractor,
		resolver:     deps.Resolver,
		log:          baseLog.With("service", "Integrator"),
		meetingTypes: meetingTypes,
	}
}

// Fingerprint is the idempotency key for a transcript: re-processing
// identical text short-circuits to the existing meeting.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (in *Integrator) Process(ctx context.Context, req Request) (Report, error) {
	var report Report

	if strings.TrimSpace(req.Text) == "" {
		return report, fmt.Errorf("empty transcript: %w", pkgerrors.ErrInvalidArgument)
	}
	if req.Meeting.Date.IsZero() {
		return report, fmt.Errorf("meeting date is required: %w", pkgerrors.ErrInvalidArgument)
	}

	fp := Fingerprint(req.Text)

	existing, err := in.meetings.GetByFingerprint(ctx, nil, fp)
	if err != nil {
		return report, fmt.Errorf("fingerprint lookup: %w", err)
	}
	if existing != nil {
		in.log.Info("Transcript already processed", "meeting_id", existing.ID)
		report.MeetingID = existing.ID
		report.AlreadyProcessed = true
		return report, nil
	}

	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = req.Meeting.Date
	}

	candidates, err := in.extract(ctx, req.Text)
	if err != nil {
		return report, err
	}
	report.Summary = candidates.Summary

	snapshot, err := in.loadSnapshot(ctx)
	if err != nil {
		return report, fmt.Errorf("load snapshot: %w", err)
	}

	meetingType := req.Meeting.Type
	if !in.validMeetingType(meetingType) {
		report.Diagnostics = append(report.Diagnostics, Diagnostic{
			Kind:      "meeting_type",
			Candidate: meetingType,
			Detail:    "not in the configured meeting types, stored as other",
		})
		meetingType = types.MeetingTypeOther
	}

	memberIDs := map[uuid.UUID]bool{}
	memberByCandidate := map[string]Outcome{}

	resolveMember := func(candidate string) Outcome {
		key := Normalize(candidate)
		if out, ok := memberByCandidate[key]; ok {
			return out
		}
		out := in.resolver.Resolve(candidate, KindMember, snapshot.members)
		memberByCandidate[key] = out
		return out
	}

	for _, candidate := range candidates.Members {
		out := resolveMember(candidate)
		switch out.Class {
		case OutcomeMatched:
			if !memberIDs[out.ID] {
				memberIDs[out.ID] = true
				report.Members = append(report.Members, ResolvedEntity{ID: out.ID, Name: out.Name, Class: OutcomeMatched})
			}
		default:
			report.Diagnostics = append(report.Diagnostics, Diagnostic{Kind: "member", Candidate: candidate, Detail: out.Reason})
		}
	}

	projectEntities, projectDiags, err := in.resolveOpenEnded(ctx, KindProject, candidates.Projects, snapshot.projects)
	if err != nil {
		return report, err
	}
	report.Projects = projectEntities
	report.Diagnostics = append(report.Diagnostics, projectDiags...)

	topicEntities, topicDiags, err := in.resolveOpenEnded(ctx, KindTopic, candidates.Topics, snapshot.topics)
	if err != nil {
		return report, err
	}
	report.Topics = topicEntities
	report.Diagnostics = append(report.Diagnostics, topicDiags...)

	type stagedTask struct {
		task      *types.Task
		assignees []uuid.UUID
	}
	var staged []stagedTask

	for _, candidate := range candidates.Tasks {
		task := &types.Task{
			ID:     uuid.New(),
			Name:   candidate.Description,
			Status: types.TaskStatusIncomplete,
		}
		if candidate.DeadlinePhrase != "" {
			if deadline, ok := ParseDeadline(candidate.DeadlinePhrase, asOf); ok {
				task.Deadline = &deadline
			} else {
				report.Diagnostics = append(report.Diagnostics, Diagnostic{
					Kind:      "deadline",
					Candidate: candidate.DeadlinePhrase,
					Detail:    "unparseable phrase, task stored without deadline",
				})
			}
		}

		seen := map[uuid.UUID]bool{}
		var assignees []uuid.UUID
		for _, name := range candidate.Assignees {
			out := resolveMember(name)
			if out.Class != OutcomeMatched {
				report.Diagnostics = append(report.Diagnostics, Diagnostic{Kind: "assignee", Candidate: name, Detail: out.Reason})
				continue
			}
			if !seen[out.ID] {
				seen[out.ID] = true
				assignees = append(assignees, out.ID)
			}
		}
		staged = append(staged, stagedTask{task: task, assignees: assignees})
	}
	report.TaskCount = len(staged)

	diagJSON, err := json.Marshal(report.Diagnostics)
	if err != nil {
		return report, fmt.Errorf("encode diagnostics: %w", err)
	}

	meetingName := req.Meeting.Name
	if meetingName == "" {
		meetingName = fmt.Sprintf("%s meeting %s", meetingType, req.Meeting.Date.Format("2006-01-02"))
	}

	meeting := &types.Meeting{
		ID:          uuid.New(),
		Type:        meetingType,
		Date:        req.Meeting.Date,
		Name:        meetingName,
		Summary:     candidates.Summary,
		Fingerprint: fp,
		Diagnostics: datatypes.JSON(diagJSON),
	}

	err = in.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Re-check under the transaction: another worker may have
		// landed the same transcript since the first lookup.
		prior, err := in.meetings.GetByFingerprint(ctx, tx, fp)
		if err != nil {
			return err
		}
		if prior != nil {
			meeting = prior
			report.AlreadyProcessed = true
			return nil
		}

		if _, err := in.meetings.Create(ctx, tx, []*types.Meeting{meeting}); err != nil {
			return err
		}
		for id := range memberIDs {
			if err := in.meetings.AddAttendee(ctx, tx, meeting.ID, id); err != nil {
				return err
			}
		}
		for _, p := range report.Projects {
			if err := in.meetings.AddProject(ctx, tx, meeting.ID, p.ID); err != nil {
				return err
			}
		}
		for _, t := range report.Topics {
			if err := in.meetings.AddTopic(ctx, tx, meeting.ID, t.ID); err != nil {
				return err
			}
		}
		for _, st := range staged {
			st.task.MeetingID = &meeting.ID
			if _, err := in.tasks.Create(ctx, tx, []*types.Task{st.task}); err != nil {
				return err
			}
			for _, memberID := range st.assignees {
				if err := in.tasks.Assign(ctx, tx, st.task.ID, memberID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("commit transcript: %w", err)
	}

	report.MeetingID = meeting.ID
	in.log.Info("Transcript processed",
		"meeting_id", meeting.ID,
		"already_processed", report.AlreadyProcessed,
		"members", len(report.Members),
		"projects", len(report.Projects),
		"topics", len(report.Topics),
		"tasks", report.TaskCount,
		"diagnostics", len(report.Diagnostics),
	)
	return report, nil
}

// extract runs the extractor with a single bounded retry on model
// failure.
func (in *Integrator) extract(ctx context.Context, text string) (CandidateSet, error) {
	domain := DomainContext{MeetingTypes: in.meetingTypes}
	if members, err := in.members.GetAll(ctx, nil); err == nil {
		domain.RosterSize = len(members)
	}

	candidates, err := in.extractor.Extract(ctx, text, domain)
	if err == nil {
		return candidates, nil
	}
	var exErr *ExtractionError
	if !errors.As(err, &exErr) {
		return CandidateSet{}, err
	}
	in.log.Warn("Extraction failed, retrying once", "stage", exErr.Stage, "error", exErr.Err)

	candidates, err = in.extractor.Extract(ctx, text, domain)
	if err != nil {
		return CandidateSet{}, fmt.Errorf("extraction failed after retry: %w", err)
	}
	return candidates, nil
}

type snapshot struct {
	members  []Record
	projects []Record
	topics   []Record
}

// loadSnapshot reads all canonical records once per pass so the whole
// resolution sees one consistent roster.
func (in *Integrator) loadSnapshot(ctx context.Context) (snapshot, error) {
	var snap snapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		members, err := in.members.GetAll(gctx, nil)
		if err != nil {
			return err
		}
		snap.members = make([]Record, 0, len(members))
		for _, m := range members {
			snap.members = append(snap.members, Record{ID: m.ID, Name: m.Name, Aliases: m.AliasList()})
		}
		return nil
	})
	g.Go(func() error {
		projects, err := in.projects.GetAll(gctx, nil)
		if err != nil {
			return err
		}
		snap.projects = make([]Record, 0, len(projects))
		for _, p := range projects {
			snap.projects = append(snap.projects, Record{ID: p.ID, Name: p.Name})
		}
		return nil
	})
	g.Go(func() error {
		topics, err := in.topics.GetAll(gctx, nil)
		if err != nil {
			return err
		}
		snap.topics = make([]Record, 0, len(topics))
		for _, t := range topics {
			snap.topics = append(snap.topics, Record{ID: t.ID, Name: t.Name})
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

// resolveOpenEnded handles the kinds that may be lazily created.
// Creation happens before the meeting transaction, serialized per
// normalized name, so concurrent transcripts converge on one record.
func (in *Integrator) resolveOpenEnded(ctx context.Context, kind Kind, candidates []string, records []Record) ([]ResolvedEntity, []Diagnostic, error) {
	var (
		entities []ResolvedEntity
		diags    []Diagnostic
	)
	seen := map[uuid.UUID]bool{}

	for _, candidate := range candidates {
		out := in.resolver.Resolve(candidate, kind, records)
		switch out.Class {
		case OutcomeMatched:
			if !seen[out.ID] {
				seen[out.ID] = true
				entities = append(entities, ResolvedEntity{ID: out.ID, Name: out.Name, Class: OutcomeMatched})
			}
		case OutcomeCreate:
			if out.Nearest != "" && out.BestScore >= in.resolver.Cutoff(kind)-0.1 {
				diags = append(diags, Diagnostic{
					Kind:      "near_duplicate",
					Candidate: out.Name,
					Detail:    fmt.Sprintf("close to existing %s %q (similarity %.2f)", kind, out.Nearest, out.BestScore),
				})
			}
			id, err := in.ensureRecord(ctx, kind, out.Name)
			if err != nil {
				return nil, nil, err
			}
			if !seen[id] {
				seen[id] = true
				entities = append(entities, ResolvedEntity{ID: id, Name: out.Name, Class: OutcomeCreate})
			}
			// Later candidates in this pass resolve against the new
			// record too.
			records = append(records, Record{ID: id, Name: out.Name})
		default:
			diags = append(diags, Diagnostic{Kind: string(kind), Candidate: candidate, Detail: out.Reason})
		}
	}
	return entities, diags, nil
}

func (in *Integrator) ensureRecord(ctx context.Context, kind Kind, name string) (uuid.UUID, error) {
	key := string(kind) + ":" + name
	v, err, _ := in.createGroup.Do(key, func() (any, error) {
		switch kind {
		case KindProject:
			existing, err := in.projects.FindByNamePattern(ctx, nil, name, 1)
			if err != nil {
				return uuid.Nil, err
			}
			if len(existing) > 0 && Normalize(existing[0].Name) == name {
				return existing[0].ID, nil
			}
			created, err := in.projects.Create(ctx, nil, []*types.Project{{ID: uuid.New(), Name: name}})
			if err != nil {
				return uuid.Nil, err
			}
			return created[0].ID, nil
		case KindTopic:
			existing, err := in.topics.FindByNamePattern(ctx, nil, name, 1)
			if err != nil {
				return uuid.Nil, err
			}
			if len(existing) > 0 && Normalize(existing[0].Name) == name {
				return existing[0].ID, nil
			}
			created, err := in.topics.Create(ctx, nil, []*types.Topic{{ID: uuid.New(), Name: name}})
			if err != nil {
				return uuid.Nil, err
			}
			return created[0].ID, nil
		}
		return uuid.Nil, fmt.Errorf("kind %q cannot be created", kind)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return v.(uuid.UUID), nil
}

func (in *Integrator) validMeetingType(t string) bool {
	for _, mt := range in.meetingTypes {
		if mt == t {
			return true
		}
	}
	return false
}
