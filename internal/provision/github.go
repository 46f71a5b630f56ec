// Package provision creates per-user challenge repositories on GitHub.
//
// On registration every user gets their own copy of the shared
// challenge-template repository, named after their GitHub username. The
// copy is created with GitHub's "generate from template" endpoint:
//
//	POST /repos/{templateOwner}/{templateRepo}/generate
//
// authenticated with the USER'S OWN access token, so the new repository
// lands in the user's account, not the platform's.
package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Provisioner creates a challenge repository for a user and returns the
// new repository's URL. Implementations are expected to be stateless.
type Provisioner interface {
	Fork(ctx context.Context, token, username string) (string, error)
}

// GitHub implements Provisioner against the GitHub REST API.
type GitHub struct {
	apiBase       string // e.g. "https://api.github.com" (tests point this at httptest)
	templateOwner string
	templateRepo  string
}

// DefaultAPIBase is the public GitHub REST endpoint.
const DefaultAPIBase = "https://api.github.com"

// NewGitHub creates a GitHub provisioner for the given template repository
// URL, e.g. "https://github.com/acme/challenge-template".
func NewGitHub(apiBase, templateRepoURL string) (*GitHub, error) {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}

	owner, repo, err := splitRepoURL(templateRepoURL)
	if err != nil {
		return nil, err
	}

	return &GitHub{
		apiBase:       strings.TrimRight(apiBase, "/"),
		templateOwner: owner,
		templateRepo:  repo,
	}, nil
}

// RepoName returns the name of the repository provisioned for a username.
func RepoName(username string) string {
	return "challenge-" + username
}

// generateRequest is the payload for the template-generate endpoint.
// "owner" is the account the new repository is created under.
type generateRequest struct {
	Owner       string `json:"owner"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
}

// generateResponse is the portion of GitHub's repository object we care
// about. GitHub returns a much larger object — we only unmarshal html_url.
type generateResponse struct {
	HTMLURL string `json:"html_url"`
}

// Fork creates the user's challenge repository from the template and
// returns its URL.
//
// oauth2.NewClient with a StaticTokenSource gives us an *http.Client that
// adds "Authorization: Bearer <token>" to every request — the same client
// pattern used for any other authenticated GitHub API call.
func (g *GitHub) Fork(ctx context.Context, token, username string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Owner:       username,
		Name:        RepoName(username),
		Description: "Challenge repository for " + username,
		Private:     true,
	})
	if err != nil {
		return "", fmt.Errorf("provision: encoding generate request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/repos/%s/%s/generate", g.apiBase, g.templateOwner, g.templateRepo)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("provision: building generate request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	client.Timeout = 15 * time.Second

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("provision: calling GitHub generate API: %w", err)
	}
	defer resp.Body.Close()

	// GitHub answers 201 Created with the new repository object
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("provision: GitHub generate API returned status %d", resp.StatusCode)
	}

	var repo generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&repo); err != nil {
		return "", fmt.Errorf("provision: decoding GitHub response: %w", err)
	}

	if repo.HTMLURL == "" {
		return "", fmt.Errorf("provision: GitHub returned a repository without html_url")
	}

	return repo.HTMLURL, nil
}

// splitRepoURL extracts owner and repository name from a GitHub repo URL.
func splitRepoURL(repoURL string) (owner, repo string, err error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", "", fmt.Errorf("provision: parsing template repo URL %q: %w", repoURL, err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("provision: template repo URL %q must look like https://github.com/<owner>/<repo>", repoURL)
	}

	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}
