package repos_test

import (
	"context"
	"testing"

	"github.com/bass-society/secretary-backend/internal/data/repos"
	"github.com/bass-society/secretary-backend/internal/data/repos/testutil"
)

func TestMemberRepoPostgres(t *testing.T) {
	db := testutil.DB(t)
	logg := testutil.Logger(t)
	ctx := context.Background()
	tx := testutil.Tx(t, db)

	repo := repos.NewMemberRepo(db, logg)

	sam := testutil.SeedMember(t, ctx, tx, "Sam Choong")
	kat := testutil.SeedMember(t, ctx, tx, "Katherine Lim")
	kat.ChatID = "chat-kat"
	if err := tx.Save(kat).Error; err != nil {
		t.Fatalf("set chat id: %v", err)
	}

	all, err := repo.GetAll(ctx, tx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("members = %d, want 2", len(all))
	}
	// Ordered by name.
	if all[0].Name != "Katherine Lim" || all[1].Name != "Sam Choong" {
		t.Fatalf("order: %s, %s", all[0].Name, all[1].Name)
	}

	byChat, err := repo.GetByChatID(ctx, tx, "chat-kat")
	if err != nil {
		t.Fatalf("GetByChatID: %v", err)
	}
	if byChat == nil || byChat.ID != kat.ID {
		t.Fatalf("GetByChatID = %+v", byChat)
	}

	missing, err := repo.GetByChatID(ctx, tx, "chat-none")
	if err != nil {
		t.Fatalf("GetByChatID missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown chat id, got %+v", missing)
	}

	found, err := repo.Search(ctx, tx, "sam", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) != 1 || found[0].ID != sam.ID {
		t.Fatalf("Search = %+v", found)
	}
}
