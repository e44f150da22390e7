package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/chatwarden/pkg/domain/model"
	"github.com/secmon-lab/chatwarden/pkg/domain/types"
)

type userRepository struct {
	mu    sync.RWMutex
	users map[types.UserID]*model.User
}

func newUserRepository() *userRepository {
	return &userRepository{
		users: make(map[types.UserID]*model.User),
	}
}

func (r *userRepository) Get(ctx context.Context, userID types.UserID) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, exists := r.users[userID]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "user not found", goerr.V("userID", userID))
	}

	copied := *u
	return &copied, nil
}

func (r *userRepository) Upsert(ctx context.Context, user *model.User) error {
	if err := user.ID.Validate(); err != nil {
		return goerr.Wrap(err, "failed to upsert user")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	stored, exists := r.users[user.ID]
	if !exists {
		created := *user
		created.CreatedAt = now
		created.UpdatedAt = now
		r.users[user.ID] = &created
		return nil
	}

	stored.Email = user.Email
	stored.DisplayName = user.DisplayName
	stored.PhotoURL = user.PhotoURL
	stored.UpdatedAt = now
	return nil
}
