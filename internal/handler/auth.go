package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/trailpaw-ai/companion-platform/internal/errs"
	"github.com/trailpaw-ai/companion-platform/internal/events"
	"github.com/trailpaw-ai/companion-platform/internal/middleware"
	"github.com/trailpaw-ai/companion-platform/internal/model"
	"github.com/trailpaw-ai/companion-platform/internal/session"
	"github.com/trailpaw-ai/companion-platform/pkg/logger"
)

// UserStore is the account storage slice the auth handler needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)
}

// AuthHandler handles registration, login, and logout.
type AuthHandler struct {
	users     UserStore
	sessions  *session.Store
	publisher *events.Publisher
	logger    *logger.Logger
}

// NewAuthHandler creates a new auth handler. publisher may be nil.
func NewAuthHandler(users UserStore, sessions *session.Store, publisher *events.Publisher, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		users:     users,
		sessions:  sessions,
		publisher: publisher,
		logger:    log,
	}
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateEmail(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateNickname(req.Nickname); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: string(hash),
		Nickname:     req.Nickname,
	}

	if err := h.users.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, errs.ErrConflict) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		h.logger.Error("failed to create user", zap.Error(err))
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user.Snapshot())
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.UserByEmail(r.Context(), req.Email)
	if err != nil {
		// The same answer for an unknown email and a wrong password.
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	evicting := h.sessions.HasSession(r.Context(), user.ID)

	token, err := h.sessions.Create(r.Context(), user.Snapshot())
	if err != nil {
		h.logger.Error("failed to create session", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "failed to create session")
		return
	}

	if evicting {
		h.publisher.Publish(r.Context(), &model.AuditEvent{
			Type:      model.AuditSessionEvicted,
			UserID:    user.ID,
			CreatedAt: time.Now(),
		})
	}
	h.publisher.Publish(r.Context(), &model.AuditEvent{
		Type:      model.AuditSessionCreated,
		UserID:    user.ID,
		CreatedAt: time.Now(),
	})

	writeJSON(w, http.StatusOK, &model.LoginResponse{
		Token: token,
		User:  user.Snapshot(),
	})
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.GetSessionToken(r.Context())
	if err := h.sessions.Remove(r.Context(), token); err != nil {
		h.logger.Warn("failed to remove session", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Me handles GET /api/v1/auth/me
//
// This is the explicit getSession path: the lookup renews the session to
// the full base timeout.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	token := middleware.GetSessionToken(r.Context())
	snap, err := h.sessions.Get(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
