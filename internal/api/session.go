package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/erazemk/inventar/internal/auth"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// SessionHandler starts and ends sessions.
type SessionHandler struct {
	DB            *sql.DB
	SessionSecret string
	Now           func() time.Time
}

type startSessionRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string             `json:"token,omitempty"`
	ExpiresAt time.Time          `json:"expiresAt"`
	User      model.UserSnapshot `json:"user"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// Start handles POST /api/session. Users without a password sign in with
// their email alone.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if !bindJSON(w, r, &req) {
		return
	}

	user, err := store.GetUserByEmail(r.Context(), h.DB, strings.TrimSpace(req.Email))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil {
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if user.HasPassword() {
		if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
			zerolog.Ctx(r.Context()).Warn().Str("email", req.Email).Str("remote", r.RemoteAddr).Msg("sign in failed")
			jsonError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
	}

	token, claims, err := auth.GenerateToken(h.SessionSecret, user.Snapshot(), h.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().Str("user", user.ID).Str("role", string(user.Role)).Msg("session started")
	jsonResponse(w, http.StatusOK, sessionResponse{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user.Snapshot()})
}

// Get handles GET /api/session.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	jsonResponse(w, http.StatusOK, sessionResponse{ExpiresAt: claims.ExpiresAt.Time, User: claims.Session().User})
}

// Revoke handles DELETE /api/session. The token stays rejected until it
// would have expired anyway.
func (h *SessionHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if err := store.RevokeToken(r.Context(), h.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
		writeError(w, r, err)
		return
	}
	zerolog.Ctx(r.Context()).Info().Msg("session ended")
	w.WriteHeader(http.StatusNoContent)
}

// ChangePassword handles PUT /api/session/password. Users that have no
// password yet may set one without the current password.
func (h *SessionHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req changePasswordRequest
	if !bindJSON(w, r, &req) {
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}
	if user.HasPassword() {
		if err := auth.CheckPassword(user.PasswordHash, req.CurrentPassword); err != nil {
			if errors.Is(err, auth.ErrBadCredentials) {
				jsonError(w, http.StatusUnauthorized, "current password is incorrect")
				return
			}
			writeError(w, r, err)
			return
		}
	}

	if err := model.ValidatePassword(req.NewPassword); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := store.UpdateUserPassword(r.Context(), h.DB, user.ID, hash); err != nil {
		writeError(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().Msg("user changed own password")
	w.WriteHeader(http.StatusNoContent)
}
