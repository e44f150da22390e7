package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/chatwarden/pkg/domain/interfaces"
	"github.com/secmon-lab/chatwarden/pkg/domain/model"
	"github.com/secmon-lab/chatwarden/pkg/domain/types"
	"github.com/secmon-lab/chatwarden/pkg/repository/firestore"
	"github.com/secmon-lab/chatwarden/pkg/repository/memory"
)

func runMemoryEntryRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Append assigns ID and CreatedAt", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		chatID := newTestChatID()

		created, err := repo.Memory().Append(ctx, model.ChatMemoryOwner(chatID), &model.MemoryEntry{
			Text:            "Bob is allergic to peanuts",
			SourceMessageID: "m1",
			ChatID:          chatID,
		})
		gt.NoError(t, err).Required()

		gt.String(t, created.ID.String()).NotEqual("")
		gt.Bool(t, created.CreatedAt.IsZero()).False()
		gt.Value(t, created.Text).Equal("Bob is allergic to peanuts")
	})

	t.Run("ListRecent orders newest first and honors limit", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		chatID := newTestChatID()
		owner := model.ChatMemoryOwner(chatID)

		base := time.Now().UTC().Truncate(time.Second)
		for i := 0; i < 4; i++ {
			_, err := repo.Memory().Append(ctx, owner, &model.MemoryEntry{
				Text:      fmt.Sprintf("fact %d", i),
				ChatID:    chatID,
				CreatedAt: base.Add(time.Duration(i) * time.Second),
			})
			gt.NoError(t, err).Required()
		}

		entries, err := repo.Memory().ListRecent(ctx, owner, 3)
		gt.NoError(t, err).Required()

		gt.Array(t, entries).Length(3)
		gt.Value(t, entries[0].Text).Equal("fact 3")
		gt.Value(t, entries[1].Text).Equal("fact 2")
		gt.Value(t, entries[2].Text).Equal("fact 1")
	})

	t.Run("ListRecent on empty owner returns empty slice", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		entries, err := repo.Memory().ListRecent(ctx, model.ChatMemoryOwner(newTestChatID()), 10)
		gt.NoError(t, err).Required()
		gt.Array(t, entries).Length(0)
	})

	t.Run("chat and user scopes are isolated", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		chatID := newTestChatID()
		userID := types.UserID(fmt.Sprintf("test-user-%d", time.Now().UnixNano()))

		_, err := repo.Memory().Append(ctx, model.ChatMemoryOwner(chatID), &model.MemoryEntry{
			Text:   "chat-scoped fact",
			ChatID: chatID,
		})
		gt.NoError(t, err).Required()

		_, err = repo.Memory().Append(ctx, model.UserMemoryOwner(userID), &model.MemoryEntry{
			Text:   "user-scoped fact",
			ChatID: chatID,
		})
		gt.NoError(t, err).Required()

		chatEntries, err := repo.Memory().ListRecent(ctx, model.ChatMemoryOwner(chatID), 10)
		gt.NoError(t, err).Required()
		gt.Array(t, chatEntries).Length(1)
		gt.Value(t, chatEntries[0].Text).Equal("chat-scoped fact")

		userEntries, err := repo.Memory().ListRecent(ctx, model.UserMemoryOwner(userID), 10)
		gt.NoError(t, err).Required()
		gt.Array(t, userEntries).Length(1)
		gt.Value(t, userEntries[0].Text).Equal("user-scoped fact")
	})

	t.Run("Append rejects invalid owner", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Memory().Append(ctx, model.ChatMemoryOwner(""), &model.MemoryEntry{Text: "orphan"})
		gt.Value(t, err).NotNil()
	})
}

func newFirestoreMemoryEntryRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
	}

	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")
	if databaseID == "" {
		t.Skip("TEST_FIRESTORE_DATABASE_ID not set")
	}

	ctx := context.Background()
	repo, err := firestore.New(ctx, projectID, databaseID)
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})
	return repo
}

func TestMemoryMemoryEntryRepository(t *testing.T) {
	runMemoryEntryRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		return memory.New()
	})
}

func TestFirestoreMemoryEntryRepository(t *testing.T) {
	runMemoryEntryRepositoryTest(t, newFirestoreMemoryEntryRepository)
}
