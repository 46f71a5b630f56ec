// Package service contains the business logic layer of the application.
//
// The layering follows the usual three-tier split:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → enforces rules, orchestrates store + GitHub
//	Repository (data layer)  → reads/writes the database
//
// The service depends on the repository and provisioner INTERFACES, not on
// sqlite or the GitHub client — tests inject in-memory fakes, and the HTTP
// layer never touches either collaborator directly.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/challenge-hub/internal/apperror"
	"github.com/sakif/challenge-hub/internal/model"
	"github.com/sakif/challenge-hub/internal/provision"
	"github.com/sakif/challenge-hub/internal/repository"
)

// UserService handles business logic for user accounts.
type UserService struct {
	repo        repository.UserRepository
	provisioner provision.Provisioner
	logger      *slog.Logger
}

// NewUserService creates a UserService. The caller decides which repository
// and provisioner implementations to use (sqlite + GitHub in production,
// fakes in tests).
func NewUserService(repo repository.UserRepository, provisioner provision.Provisioner, logger *slog.Logger) *UserService {
	return &UserService{
		repo:        repo,
		provisioner: provisioner,
		logger:      logger,
	}
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list users", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if the user doesn't exist.
func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByGithubUsername retrieves a user by their GitHub login.
// Returns apperror.ErrNotFound if the user doesn't exist.
func (s *UserService) GetByGithubUsername(ctx context.Context, username string) (*model.User, error) {
	return s.repo.GetByGithubUsername(ctx, username)
}

// Create registers a new user.
//
// ORDER OF OPERATIONS:
//  1. Reject duplicate emails up front — a cheap store lookup, and it gives
//     the caller the contract "User already exists" answer without touching
//     GitHub at all.
//  2. Provision the user's challenge repository from the template. If this
//     fails the user is NOT persisted — there is no half-registered state
//     with a dangling repo field.
//  3. Persist with githubRepo rewritten to the provisioned repo's URL.
//
// The email-uniqueness check races against concurrent creates, but the
// store's UNIQUE constraint is the real guard — a lost race surfaces as the
// same ErrConflict from step 3.
func (s *UserService) Create(ctx context.Context, user *model.User) (*model.User, error) {
	_, err := s.repo.GetByEmail(ctx, user.Email)
	if err == nil {
		return nil, apperror.Conflict("User")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		s.logger.Error("failed to check email uniqueness",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("checking email: %w", err)
	}

	repoURL, err := s.provisioner.Fork(ctx, user.GithubToken, user.GithubUsername)
	if err != nil {
		s.logger.Error("failed to provision challenge repo",
			slog.String("githubUsername", user.GithubUsername),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("provisioning challenge repo: %w", err)
	}
	user.GithubRepo = repoURL

	if err := s.repo.Create(ctx, user); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			s.logger.Error("failed to create user",
				slog.String("email", user.Email),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	s.logger.Info("user created",
		slog.String("id", user.ID),
		slog.String("githubUsername", user.GithubUsername),
		slog.String("githubRepo", user.GithubRepo),
	)

	return user, nil
}

// UpdateInput carries the optional fields of an update request.
// nil means "don't change" — unknown fields in the request body were
// already dropped by the JSON decoder.
type UpdateInput struct {
	Email          *string
	GithubToken    *string
	GithubUsername *string
	GithubRepo     *string
}

// Update applies partial field changes to an existing user.
// Returns apperror.ErrNotFound if the user doesn't exist and
// apperror.ErrConflict if the new email is already taken.
func (s *UserService) Update(ctx context.Context, id string, in UpdateInput) (*model.User, error) {
	// Fetch-then-update: confirms existence first, and the caller gets the
	// full document back rather than just an acknowledgement.
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		user.Email = *in.Email
	}
	if in.GithubToken != nil {
		user.GithubToken = *in.GithubToken
	}
	if in.GithubUsername != nil {
		user.GithubUsername = *in.GithubUsername
	}
	if in.GithubRepo != nil {
		user.GithubRepo = *in.GithubRepo
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			s.logger.Error("failed to update user",
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	s.logger.Info("user updated", slog.String("id", user.ID))

	return user, nil
}

// UpdateScore records a score for a challenge.
//
// Merge semantics: if the user already has an entry for this challenge it
// is overwritten in place (list order preserved); otherwise a new entry is
// appended. Returns the updated user document.
func (s *UserService) UpdateScore(ctx context.Context, id, challenge string, points int) (*model.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	merged := false
	for i := range user.Scores {
		if user.Scores[i].Challenge == challenge {
			user.Scores[i].Points = points
			user.Scores[i].RecordedAt = now
			merged = true
			break
		}
	}
	if !merged {
		user.Scores = append(user.Scores, model.Score{
			ID:         xid.New().String(),
			Challenge:  challenge,
			Points:     points,
			RecordedAt: now,
		})
	}

	if err := s.repo.Update(ctx, user); err != nil {
		s.logger.Error("failed to update score",
			slog.String("id", id),
			slog.String("challenge", challenge),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("score recorded",
		slog.String("id", user.ID),
		slog.String("challenge", challenge),
		slog.Int("points", points),
		slog.Bool("merged", merged),
	)

	return user, nil
}

// Delete removes a user by their ID.
// Returns apperror.ErrNotFound if the user doesn't exist.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("user deleted", slog.String("id", id))
	return nil
}
