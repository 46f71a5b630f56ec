package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/challenge-hub/internal/apperror"
	"github.com/sakif/challenge-hub/internal/model"
	"github.com/sakif/challenge-hub/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// newID returns a 24-character lowercase hex identifier.
//
// The public API validates path ids with an ObjectID-shaped rule (24 hex
// chars), so generated ids must round-trip through that check. 12 random
// bytes hex-encoded gives exactly that shape.
func newID() string {
	b := make([]byte, 12)
	rand.Read(b) // crypto/rand.Read never returns an error on supported platforms
	return hex.EncodeToString(b)
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// modernc.org/sqlite exposes constraint errors only through the message text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Create inserts a new user. The ID and timestamps are generated here; the
// caller's struct is updated in place so it reflects the stored row.
// Returns apperror.ErrConflict if the email is already taken.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = newID()
	user.CreatedAt = now
	user.UpdatedAt = now

	scores, err := marshalScores(user.Scores)
	if err != nil {
		return fmt.Errorf("sqlite: encoding scores: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, github_token, github_username, github_repo, scores, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.GithubToken,
		user.GithubUsername,
		user.GithubRepo,
		scores,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("User")
		}
		return fmt.Errorf("sqlite: inserting user (email=%s): %w", user.Email, err)
	}

	return nil
}

const userColumns = `id, email, github_token, github_username, github_repo, scores, created_at, updated_at`

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetByEmail retrieves a user by email.
// Returns apperror.ErrNotFound if no user exists with that email.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// GetByGithubUsername retrieves a user by their GitHub login.
// Returns apperror.ErrNotFound if no user exists with that username.
func (db *DB) GetByGithubUsername(ctx context.Context, username string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_username = ?`, username)
	return scanUser(row)
}

// List returns all users ordered by creation time.
func (db *DB) List(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}

	return users, nil
}

// Update writes all mutable fields of an existing user.
// Returns apperror.ErrNotFound if the row doesn't exist and
// apperror.ErrConflict if the new email collides with another user's.
func (db *DB) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()

	scores, err := marshalScores(user.Scores)
	if err != nil {
		return fmt.Errorf("sqlite: encoding scores: %w", err)
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET email = ?, github_token = ?, github_username = ?, github_repo = ?, scores = ?, updated_at = ?
		 WHERE id = ?`,
		user.Email,
		user.GithubToken,
		user.GithubUsername,
		user.GithubRepo,
		scores,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("User")
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking update of user %s: %w", user.ID, err)
	}
	if affected == 0 {
		return apperror.NotFound("User")
	}

	return nil
}

// Delete removes a user by ID.
// Returns apperror.ErrNotFound if no row was deleted.
func (db *DB) Delete(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking delete of user %s: %w", id, err)
	}
	if affected == 0 {
		return apperror.NotFound("User")
	}

	return nil
}

// scanner covers both *sql.Row and *sql.Rows so scanUser works for single
// and multi-row queries.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*model.User, error) {
	var u model.User
	var scores string

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.GithubToken,
		&u.GithubUsername,
		&u.GithubRepo,
		&scores,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("User")
		}
		return nil, fmt.Errorf("sqlite: scanning user: %w", err)
	}

	if err := json.Unmarshal([]byte(scores), &u.Scores); err != nil {
		return nil, fmt.Errorf("sqlite: decoding scores for user %s: %w", u.ID, err)
	}

	return &u, nil
}

// marshalScores encodes the scores list, normalising nil to an empty JSON
// array so the column default and the API response stay consistent.
func marshalScores(scores []model.Score) (string, error) {
	if scores == nil {
		return "[]", nil
	}
	b, err := json.Marshal(scores)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
