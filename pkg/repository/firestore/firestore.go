package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/chatwarden/pkg/domain/interfaces"
)

// Firestore is the production Repository backed by Cloud Firestore.
type Firestore struct {
	client      *firestore.Client
	message     *messageRepository
	memoryEntry *memoryEntryRepository
	groupMemory *groupMemoryRepository
	chat        *chatRepository
	user        *userRepository
}

var _ interfaces.Repository = &Firestore{}

// New creates a Firestore repository. An empty databaseID selects the
// default database.
func New(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	var client *firestore.Client
	var err error
	if databaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID),
		)
	}

	return &Firestore{
		client:      client,
		message:     newMessageRepository(client),
		memoryEntry: newMemoryEntryRepository(client),
		groupMemory: newGroupMemoryRepository(client),
		chat:        newChatRepository(client),
		user:        newUserRepository(client),
	}, nil
}

func (f *Firestore) Message() interfaces.MessageRepository {
	return f.message
}

func (f *Firestore) Memory() interfaces.MemoryRepository {
	return f.memoryEntry
}

func (f *Firestore) GroupMemory() interfaces.GroupMemoryRepository {
	return f.groupMemory
}

func (f *Firestore) Chat() interfaces.ChatRepository {
	return f.chat
}

func (f *Firestore) User() interfaces.UserRepository {
	return f.user
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
