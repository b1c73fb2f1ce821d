package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/nova-ai/chatboat/internal/auth"
	"github.com/nova-ai/chatboat/internal/user"
)

// UserStore is the account persistence surface the auth handlers need.
type UserStore interface {
	Create(ctx context.Context, u *user.User) error
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// AuthHandler serves signup, login and logout.
type AuthHandler struct {
	users    UserStore
	tokens   *auth.TokenManager
	validate *validator.Validate
	logger   *slog.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(users UserStore, tokens *auth.TokenManager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:    users,
		tokens:   tokens,
		validate: validator.New(),
		logger:   logger,
	}
}

// RegisterRoutes registers auth routes on the given mux.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/signup", h.signup)
	mux.HandleFunc("POST /api/auth/login", h.login)
	mux.HandleFunc("POST /api/auth/logout", h.requireAuth(h.logout))
}

// authMessage is the wire shape for auth failures and acknowledgments.
type authMessage struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// tokenResponse is returned on successful signup and login.
type tokenResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Token   string     `json:"token"`
	User    publicUser `json:"user"`
}

// publicUser is the account view exposed by the API; it never carries the
// password hash.
type publicUser struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	UseCase    string    `json:"useCase"`
	Experience string    `json:"experience"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toPublicUser(u *user.User) publicUser {
	return publicUser{
		ID:         u.ID.String(),
		Username:   u.Username,
		Email:      u.Email,
		UseCase:    u.UseCase,
		Experience: u.Experience,
		CreatedAt:  u.CreatedAt,
	}
}

type signupRequest struct {
	Username   string `json:"username" validate:"required,min=3,max=30"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	UseCase    string `json:"useCase" validate:"required"`
	Experience string `json:"experience" validate:"required"`
}

func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxMessageBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeFailure(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := h.validate.Struct(req); err != nil {
		h.writeFailure(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if !slices.Contains(user.UseCases, req.UseCase) ||
		!slices.Contains(user.Experiences, req.Experience) {
		h.writeFailure(w, http.StatusBadRequest, "Invalid use case or experience")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("password hashing failed", "error", err)
		h.writeFailure(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	u := &user.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		UseCase:      req.UseCase,
		Experience:   req.Experience,
	}
	if err := h.users.Create(r.Context(), u); err != nil {
		if errors.Is(err, user.ErrDuplicate) {
			h.writeFailure(w, http.StatusBadRequest, "User already exists")
			return
		}
		h.logger.Error("user creation failed", "error", err)
		h.writeFailure(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.sendTokenResponse(w, http.StatusCreated, "Account created successfully", u)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxMessageBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeFailure(w, http.StatusBadRequest, "Please provide email and password")
		return
	}
	if req.Email == "" || req.Password == "" {
		h.writeFailure(w, http.StatusBadRequest, "Please provide email and password")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	u, err := h.users.GetByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			h.writeFailure(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.logger.Error("user lookup failed", "error", err)
		h.writeFailure(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if !auth.CheckPassword(u.PasswordHash, strings.TrimSpace(req.Password)) {
		h.writeFailure(w, http.StatusUnauthorized, "Invalid password")
		return
	}

	h.sendTokenResponse(w, http.StatusOK, "Login successful", u)
}

// logout is a stateless acknowledgment: the client discards its token.
func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	if u, ok := userFromContext(r.Context()); ok {
		h.logger.Debug("user logged out", "user_id", u.ID)
	}
	h.writeAck(w, http.StatusOK, "Logged out successfully")
}

// userCtxKey carries the authenticated user through the request context.
type userCtxKey struct{}

// userFromContext retrieves the authenticated user, if any.
func userFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(userCtxKey{}).(*user.User)
	return u, ok
}

// requireAuth guards a handler with bearer token authentication. The token
// must verify and its user must still exist.
func (h *AuthHandler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			h.writeFailure(w, http.StatusUnauthorized, "Access denied. No token provided.")
			return
		}

		userID, err := h.tokens.Verify(token)
		if err != nil {
			h.writeFailure(w, http.StatusUnauthorized, "Authentication failed.")
			return
		}

		id, err := uuid.Parse(userID)
		if err != nil {
			h.writeFailure(w, http.StatusUnauthorized, "Authentication failed.")
			return
		}

		u, err := h.users.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				h.writeFailure(w, http.StatusUnauthorized, "The user belonging to this token no longer exists.")
				return
			}
			h.logger.Error("user lookup failed", "error", err)
			h.writeFailure(w, http.StatusUnauthorized, "Authentication failed.")
			return
		}

		ctx := context.WithValue(r.Context(), userCtxKey{}, u)
		next(w, r.WithContext(ctx))
	}
}

func (h *AuthHandler) sendTokenResponse(w http.ResponseWriter, status int, message string, u *user.User) {
	token, err := h.tokens.Issue(u.ID.String())
	if err != nil {
		h.logger.Error("token issuing failed", "error", err)
		h.writeFailure(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, status, tokenResponse{
		Success: true,
		Message: message,
		Token:   token,
		User:    toPublicUser(u),
	}, h.logger)
}

func (h *AuthHandler) writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, authMessage{Success: false, Message: message}, h.logger)
}

func (h *AuthHandler) writeAck(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, authMessage{Success: true, Message: message}, h.logger)
}
