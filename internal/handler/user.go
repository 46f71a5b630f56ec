// Package handler contains the HTTP layer: request parsing, response
// writing, and nothing else. Business rules live in the service layer.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/challenge-hub/internal/model"
	"github.com/sakif/challenge-hub/internal/service"
)

// UserHandler exposes the user account endpoints.
//
// By the time a request reaches these methods the validation middleware
// has already checked URL parameters and required body fields, so the
// handlers can decode without re-validating — a decode failure here means
// a client bypassed the middleware contract and gets a 400.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// HandleList returns all registered users.
//
// HTTP: GET /users (requires authentication)
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleGet returns a single user by ID.
//
// HTTP: GET /users/{userId}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userId")

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleGetByUsername returns a single user by their GitHub login.
//
// HTTP: GET /users/username/{username}
func (h *UserHandler) HandleGetByUsername(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	user, err := h.users.GetByGithubUsername(r.Context(), username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// createRequest is the POST /users payload. The validation middleware has
// already guaranteed the required fields are present and well-formed.
type createRequest struct {
	Email          string        `json:"email"`
	GithubToken    string        `json:"githubToken"`
	GithubUsername string        `json:"githubUsername"`
	GithubRepo     string        `json:"githubRepo"`
	Scores         []model.Score `json:"scores"`
}

// HandleCreate registers a new user and provisions their challenge
// repository. The githubRepo the caller sends is the TEMPLATE they want to
// start from; the stored document points at their own provisioned copy.
//
// HTTP: POST /users
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid create user JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Status:  http.StatusBadRequest,
			Message: "Invalid JSON body",
		})
		return
	}

	user := &model.User{
		Email:          req.Email,
		GithubToken:    req.GithubToken,
		GithubUsername: req.GithubUsername,
		GithubRepo:     req.GithubRepo,
		Scores:         req.Scores,
	}

	created, err := h.users.Create(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

// updateRequest is the PUT /users/{userId} payload. Pointer fields
// distinguish "absent" from "set to empty" — absent fields are left
// unchanged, and unknown fields are ignored by the decoder.
type updateRequest struct {
	Email          *string `json:"email"`
	GithubToken    *string `json:"githubToken"`
	GithubUsername *string `json:"githubUsername"`
	GithubRepo     *string `json:"githubRepo"`
}

// HandleUpdate applies partial changes to an existing user.
//
// HTTP: PUT /users/{userId}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userId")

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid update user JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Status:  http.StatusBadRequest,
			Message: "Invalid JSON body",
		})
		return
	}

	updated, err := h.users.Update(r.Context(), id, service.UpdateInput{
		Email:          req.Email,
		GithubToken:    req.GithubToken,
		GithubUsername: req.GithubUsername,
		GithubRepo:     req.GithubRepo,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// updateScoreRequest is the POST /users/{userId}/updateScore payload.
// Points is a float64 because that's what JSON numbers decode to; the
// validation middleware guarantees it is a whole number, so the int
// conversion below is lossless.
type updateScoreRequest struct {
	Challenge string  `json:"challenge"`
	Points    float64 `json:"points"`
}

// HandleUpdateScore records (or overwrites) a user's score for a challenge
// and returns the updated user document.
//
// HTTP: POST /users/{userId}/updateScore
func (h *UserHandler) HandleUpdateScore(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userId")

	var req updateScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid update score JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Status:  http.StatusBadRequest,
			Message: "Invalid JSON body",
		})
		return
	}

	updated, err := h.users.UpdateScore(r.Context(), id, req.Challenge, int(req.Points))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// HandleDelete removes a user.
//
// HTTP: DELETE /users/{userId}
//
// On success the body is a confirmation message in the same shape as an
// error response, with a 200 status.
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userId")

	if err := h.users.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ErrorResponse{
		Status:  http.StatusOK,
		Message: "User deleted",
	})
}
