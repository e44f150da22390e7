package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/chatwarden/pkg/domain/model"
	"github.com/secmon-lab/chatwarden/pkg/domain/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type userDoc struct {
	Email       string    `firestore:"email,omitempty"`
	DisplayName string    `firestore:"displayName,omitempty"`
	PhotoURL    string    `firestore:"photoURL,omitempty"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

type userRepository struct {
	client *firestore.Client
}

func newUserRepository(client *firestore.Client) *userRepository {
	return &userRepository{client: client}
}

func (r *userRepository) userDoc(userID types.UserID) *firestore.DocumentRef {
	return r.client.Collection("users").Doc(userID.String())
}

func (r *userRepository) Get(ctx context.Context, userID types.UserID) (*model.User, error) {
	doc, err := r.userDoc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "user not found", goerr.V("userID", userID))
		}
		return nil, goerr.Wrap(err, "failed to get user", goerr.V("userID", userID))
	}

	var d userDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal user", goerr.V("userID", userID))
	}

	return &model.User{
		ID:          userID,
		Email:       d.Email,
		DisplayName: d.DisplayName,
		PhotoURL:    d.PhotoURL,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

func (r *userRepository) Upsert(ctx context.Context, user *model.User) error {
	if err := user.ID.Validate(); err != nil {
		return goerr.Wrap(err, "failed to upsert user")
	}

	now := time.Now().UTC()
	data := map[string]any{
		"email":       user.Email,
		"displayName": user.DisplayName,
		"photoURL":    user.PhotoURL,
		"updatedAt":   now,
	}

	if _, err := r.userDoc(user.ID).Get(ctx); err != nil {
		if status.Code(err) != codes.NotFound {
			return goerr.Wrap(err, "failed to get user", goerr.V("userID", user.ID))
		}
		data["createdAt"] = now
	}

	if _, err := r.userDoc(user.ID).Set(ctx, data, firestore.MergeAll); err != nil {
		return goerr.Wrap(err, "failed to upsert user", goerr.V("userID", user.ID))
	}

	return nil
}
