package api

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/erazemk/inventar/internal/auth"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// UsersHandler handles user management endpoints (admin only).
type UsersHandler struct {
	DB *sql.DB
}

type createUserRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"omitempty,oneof=admin member"`
	Password string `json:"password"`
}

type updateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin member"`
	Password *string `json:"password"`
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, users)
}

// Create handles POST /api/users. The password is optional.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !bindJSON(w, r, &req) {
		return
	}

	u := model.User{Name: strings.TrimSpace(req.Name), Email: req.Email, Role: model.Role(req.Role)}
	if req.Password != "" {
		if err := model.ValidatePassword(req.Password); err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			writeError(w, r, err)
			return
		}
		u.PasswordHash = hash
	}

	if h.emailTaken(w, r, u.Email, "") {
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, u)
	if err != nil {
		writeError(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().Str("created", user.ID).Str("role", string(user.Role)).Msg("user created")
	jsonResponse(w, http.StatusCreated, user)
}

// Get handles GET /api/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := store.GetUser(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// Update handles PATCH /api/users/{id}. An empty password clears it.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateUserRequest
	if !bindJSON(w, r, &req) {
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	name, email, role := user.Name, user.Email, user.Role
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		email = *req.Email
		if h.emailTaken(w, r, email, id) {
			return
		}
	}
	if req.Role != nil {
		role = model.Role(*req.Role)
	}
	hash := ""
	if req.Password != nil && *req.Password != "" {
		if err := model.ValidatePassword(*req.Password); err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		if hash, err = auth.HashPassword(*req.Password); err != nil {
			writeError(w, r, err)
			return
		}
	}

	if err := store.UpdateUser(r.Context(), h.DB, id, name, email, role); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Password != nil {
		if err := store.UpdateUserPassword(r.Context(), h.DB, id, hash); err != nil {
			writeError(w, r, err)
			return
		}
	}

	updated, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	zerolog.Ctx(r.Context()).Info().Str("updated", id).Msg("user updated")
	jsonResponse(w, http.StatusOK, updated)
}

// emailTaken writes a conflict response when another user already has the
// email.
func (h *UsersHandler) emailTaken(w http.ResponseWriter, r *http.Request, email, selfID string) bool {
	existing, err := store.GetUserByEmail(r.Context(), h.DB, email)
	if err != nil {
		writeError(w, r, err)
		return true
	}
	if existing != nil && existing.ID != selfID {
		jsonError(w, http.StatusConflict, "email already in use")
		return true
	}
	return false
}
