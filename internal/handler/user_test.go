package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/challenge-hub/internal/handler"
	"github.com/sakif/challenge-hub/internal/model"
	"github.com/sakif/challenge-hub/internal/repository/sqlite"
	"github.com/sakif/challenge-hub/internal/service"
)

// stubProvisioner stands in for the GitHub client. It hands back a
// deterministic repo URL so tests can assert the rewrite without a network.
type stubProvisioner struct {
	err error
}

func (s *stubProvisioner) Fork(_ context.Context, _, username string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "https://github.com/" + username + "/challenge-" + username, nil
}

// newTestRouter wires the handler over a real service and an in-memory
// sqlite store. Validation and auth middleware are exercised in their own
// packages — these tests target handler behaviour only.
func newTestRouter(t *testing.T) chi.Router {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := service.NewUserService(db, &stubProvisioner{}, logger)
	h := handler.NewUserHandler(users, logger)

	r := chi.NewRouter()
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/username/{username}", h.HandleGetByUsername)
		r.Get("/{userId}", h.HandleGet)
		r.Put("/{userId}", h.HandleUpdate)
		r.Post("/{userId}/updateScore", h.HandleUpdateScore)
		r.Delete("/{userId}", h.HandleDelete)
	})
	return r
}

func do(t *testing.T, router chi.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func createUser(t *testing.T, router chi.Router, email, username string) model.User {
	t.Helper()
	rr := do(t, router, http.MethodPost, "/users",
		`{"email":"`+email+`","githubToken":"gho_`+username+`","githubUsername":"`+username+`","githubRepo":"https://github.com/acme/challenge-template"}`)
	require.Equal(t, http.StatusOK, rr.Code, "create failed: %s", rr.Body.String())

	var user model.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &user))
	return user
}

func TestHandleCreate(t *testing.T) {
	router := newTestRouter(t)

	user := createUser(t, router, "octo@example.com", "octocat")

	assert.Regexp(t, "^[0-9a-f]{24}$", user.ID)
	assert.Equal(t, "octo@example.com", user.Email)
	// The stored repo must be the provisioned copy, not the template
	assert.Equal(t, "https://github.com/octocat/challenge-octocat", user.GithubRepo)
	assert.NotNil(t, user.Scores)
}

func TestHandleCreate_DuplicateEmail(t *testing.T) {
	router := newTestRouter(t)
	createUser(t, router, "octo@example.com", "octocat")

	rr := do(t, router, http.MethodPost, "/users",
		`{"email":"octo@example.com","githubToken":"gho_x","githubUsername":"other","githubRepo":"https://github.com/acme/challenge-template"}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"status":400,"message":"User already exists"}`, rr.Body.String())
}

func TestHandleCreate_MalformedJSON(t *testing.T) {
	router := newTestRouter(t)

	rr := do(t, router, http.MethodPost, "/users", `{"email": "broken"`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"status":400,"message":"Invalid JSON body"}`, rr.Body.String())
}

func TestHandleList(t *testing.T) {
	router := newTestRouter(t)

	// Empty store serves an empty JSON array, not null
	rr := do(t, router, http.MethodGet, "/users", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	createUser(t, router, "a@example.com", "alice")
	createUser(t, router, "b@example.com", "bob")

	rr = do(t, router, http.MethodGet, "/users", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var users []model.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &users))
	assert.Len(t, users, 2)
}

func TestHandleGet(t *testing.T) {
	router := newTestRouter(t)
	created := createUser(t, router, "octo@example.com", "octocat")

	rr := do(t, router, http.MethodGet, "/users/"+created.ID, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var user model.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &user))
	assert.Equal(t, created.ID, user.ID)
}

func TestHandleGet_NotFound(t *testing.T) {
	router := newTestRouter(t)

	rr := do(t, router, http.MethodGet, "/users/507f1f77bcf86cd799439011", "")

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"status":404,"message":"User not found"}`, rr.Body.String())
}

func TestHandleGetByUsername(t *testing.T) {
	router := newTestRouter(t)
	created := createUser(t, router, "octo@example.com", "octocat")

	rr := do(t, router, http.MethodGet, "/users/username/octocat", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var user model.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &user))
	assert.Equal(t, created.ID, user.ID)

	rr = do(t, router, http.MethodGet, "/users/username/nobody", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleUpdate(t *testing.T) {
	router := newTestRouter(t)
	created := createUser(t, router, "octo@example.com", "octocat")

	rr := do(t, router, http.MethodPut, "/users/"+created.ID, `{"email":"new@example.com"}`)
	assert.Equal(t, http.StatusOK, rr.Code)

	var user model.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &user))
	assert.Equal(t, "new@example.com", user.Email)
	// Fields not present in the payload stay as they were
	assert.Equal(t, "octocat", user.GithubUsername)
}

func TestHandleUpdate_NotFound(t *testing.T) {
	router := newTestRouter(t)

	rr := do(t, router, http.MethodPut, "/users/507f1f77bcf86cd799439011", `{"email":"new@example.com"}`)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"status":404,"message":"User not found"}`, rr.Body.String())
}

func TestHandleUpdateScore(t *testing.T) {
	router := newTestRouter(t)
	created := createUser(t, router, "octo@example.com", "octocat")

	rr := do(t, router, http.MethodPost, "/users/"+created.ID+"/updateScore", `{"challenge":"two-sum","points":10}`)
	assert.Equal(t, http.StatusOK, rr.Code)

	var user model.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &user))
	require.Len(t, user.Scores, 1)
	assert.Equal(t, "two-sum", user.Scores[0].Challenge)
	assert.Equal(t, 10, user.Scores[0].Points)

	// Same challenge again overwrites rather than appending
	rr = do(t, router, http.MethodPost, "/users/"+created.ID+"/updateScore", `{"challenge":"two-sum","points":42}`)
	assert.Equal(t, http.StatusOK, rr.Code)

	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &user))
	require.Len(t, user.Scores, 1)
	assert.Equal(t, 42, user.Scores[0].Points)
}

func TestHandleDelete(t *testing.T) {
	router := newTestRouter(t)
	created := createUser(t, router, "octo@example.com", "octocat")

	rr := do(t, router, http.MethodDelete, "/users/"+created.ID, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":200,"message":"User deleted"}`, rr.Body.String())

	rr = do(t, router, http.MethodGet, "/users/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleDelete_NotFound(t *testing.T) {
	router := newTestRouter(t)

	rr := do(t, router, http.MethodDelete, "/users/507f1f77bcf86cd799439011", "")

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"status":404,"message":"User not found"}`, rr.Body.String())
}
