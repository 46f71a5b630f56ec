package repository

import (
	"context"

	"github.com/sakif/challenge-hub/internal/model"
)

// UserRepository is the storage contract for user documents.
//
// Lookup methods return apperror.ErrNotFound (wrapped) when no row matches.
// Create and Update return apperror.ErrConflict when the email uniqueness
// constraint is violated — the store owns that invariant, not the service.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByGithubUsername(ctx context.Context, username string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id string) error
}
