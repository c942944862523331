package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/bass-society/secretary-backend/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func SeedMember(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Member {
	tb.Helper()
	m := &types.Member{
		ID:      uuid.New(),
		Name:    name,
		Aliases: datatypes.JSON([]byte("[]")),
		Role:    "member",
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed member: %v", err)
	}
	return m
}

func SeedProject(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Project {
	tb.Helper()
	p := &types.Project{
		ID:   uuid.New(),
		Name: name,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed project: %v", err)
	}
	return p
}

func SeedTopic(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Topic {
	tb.Helper()
	t := &types.Topic{
		ID:   uuid.New(),
		Name: name,
	}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed topic: %v", err)
	}
	return t
}

func SeedMeeting(tb testing.TB, ctx context.Context, tx *gorm.DB, meetingType string, date time.Time) *types.Meeting {
	tb.Helper()
	m := &types.Meeting{
		ID:          uuid.New(),
		Type:        meetingType,
		Date:        date,
		Name:        meetingType + " meeting",
		Summary:     "summary",
		Fingerprint: uuid.NewString(),
		Diagnostics: datatypes.JSON([]byte("[]")),
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed meeting: %v", err)
	}
	return m
}

func SeedTask(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, meetingID *uuid.UUID) *types.Task {
	tb.Helper()
	t := &types.Task{
		ID:        uuid.New(),
		Name:      name,
		Status:    types.TaskStatusIncomplete,
		MeetingID: meetingID,
	}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed task: %v", err)
	}
	return t
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
