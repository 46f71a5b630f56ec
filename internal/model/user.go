// Package model defines the data structures used throughout the application.
package model

import "time"

// Score is a single score entry on a user's record.
//
// Scores are merged by challenge name: submitting a score for a challenge
// the user already has an entry for overwrites that entry in place, keeping
// its position in the list. New challenges are appended at the end.
type Score struct {
	ID         string    `json:"id"`         // internal entry ID (xid)
	Challenge  string    `json:"challenge"`  // challenge name, e.g. "two-sum"
	Points     int       `json:"points"`     // points awarded for this challenge
	RecordedAt time.Time `json:"recordedAt"` // when this entry was last written
}

// User represents a registered account on the challenge platform.
//
// Each user is linked to a GitHub account: we keep their access token so the
// platform can act on their behalf (provisioning their challenge repository),
// and their GitHub username for lookups and repo naming.
//
// WHY IS GithubRepo A PLAIN STRING?
// On create the caller sends the shared template repo URL, but what we store
// is the URL of the user's own copy — the service rewrites the field after
// provisioning succeeds. Keeping it a string URL (not owner/name parts) means
// the API echoes back exactly what GitHub reports as the repo's html_url.
//
// Invariant: Email is unique across all users. The store enforces this with
// a UNIQUE constraint — never with application-level locking.
type User struct {
	ID             string    `json:"id"             db:"id"`
	Email          string    `json:"email"          db:"email"`
	GithubToken    string    `json:"githubToken"    db:"github_token"`
	GithubUsername string    `json:"githubUsername" db:"github_username"`
	GithubRepo     string    `json:"githubRepo"     db:"github_repo"`
	Scores         []Score   `json:"scores"         db:"scores"`
	CreatedAt      time.Time `json:"createdAt"      db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt"      db:"updated_at"`
}
