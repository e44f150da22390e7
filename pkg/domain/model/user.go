package model

import (
	"time"

	"github.com/secmon-lab/chatwarden/pkg/domain/types"
)

// User is the profile record mirroring identity-provider fields.
type User struct {
	ID          types.UserID
	Email       string
	DisplayName string
	PhotoURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
