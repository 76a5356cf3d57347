package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stallpass/api/internal/auth"
	"github.com/stallpass/api/internal/database"
	"github.com/stallpass/api/internal/enum"
	"golang.org/x/crypto/bcrypt"
)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	GetUserByEmail(ctx context.Context, email string) (database.User, error)
	GetUserByPhone(ctx context.Context, phone string) (database.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
}

// AuthHandler handles registration, login and the caller's profile.
type AuthHandler struct {
	store     AuthStore
	jwtSecret string
	tokenTTL  time.Duration
}

func NewAuthHandler(store AuthStore, jwtSecret string, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{store: store, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

// RegisterRoutes registers the public auth endpoints.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
}

// RegisterProtectedRoutes registers auth endpoints that need a principal.
func (h *AuthHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/auth/profile", h.Profile)
}

// --- Request / Response types ---

type userRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Branch   string `json:"branch"`
	College  string `json:"college"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Email     *string    `json:"email"`
	Phone     string     `json:"phone"`
	Role      string     `json:"role"`
	Branch    *string    `json:"branch"`
	College   *string    `json:"college"`
	StallID   *uuid.UUID `json:"stallId"`
	CreatedAt time.Time  `json:"createdAt"`
}

type authResponse struct {
	userResponse
	Token string `json:"token"`
}

func toUserResponse(u database.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     textPtr(u.Email),
		Phone:     u.Phone,
		Role:      u.Role,
		Branch:    textPtr(u.Branch),
		College:   textPtr(u.College),
		StallID:   uuidPtr(u.StallID),
		CreatedAt: u.CreatedAt.Time,
	}
}

// --- Helpers ---

func isValidRole(role string) bool {
	switch role {
	case enum.UserRoleCustomer, enum.UserRoleStallOwner, enum.UserRoleAdmin:
		return true
	}
	return false
}

// buildUserParams validates a user request and hashes its password.
// The returned message is empty when the request is valid.
func buildUserParams(req userRequest) (database.CreateUserParams, string, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Role == "" {
		req.Role = enum.UserRoleCustomer
	}

	switch {
	case req.Name == "":
		return database.CreateUserParams{}, "Name is required", nil
	case !isValidRole(req.Role):
		return database.CreateUserParams{}, "Invalid role", nil
	case req.Role != enum.UserRoleCustomer && req.Email == "":
		return database.CreateUserParams{}, "Email is required for this role", nil
	case req.Phone == "":
		return database.CreateUserParams{}, "Phone is required", nil
	case len(req.Password) < 6:
		return database.CreateUserParams{}, "Password must be at least 6 characters", nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return database.CreateUserParams{}, "", err
	}

	return database.CreateUserParams{
		Name:           req.Name,
		Email:          toText(req.Email),
		Phone:          req.Phone,
		HashedPassword: string(hash),
		Role:           req.Role,
		Branch:         toText(strings.TrimSpace(req.Branch)),
		College:        toText(strings.TrimSpace(req.College)),
	}, "", nil
}

// duplicateUserMessage names the unique field a failed insert collided with.
func duplicateUserMessage(err error) (string, bool) {
	switch {
	case isUniqueViolation(err, "users_email_key"):
		return "User with this email already exists", true
	case isUniqueViolation(err, "users_phone_key"):
		return "User with this phone already exists", true
	case isUniqueViolation(err, ""):
		return "User already exists", true
	}
	return "", false
}

// --- Handlers ---

// Register creates a customer or stall owner account and logs it in.
// Admin accounts are only created by other admins.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeBody(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Role == enum.UserRoleAdmin {
		writeError(w, http.StatusForbidden, "Admin accounts cannot be self-registered")
		return
	}

	params, msg, err := buildUserParams(req)
	if err != nil {
		writeInternal(w, "hash password", err)
		return
	}
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	user, err := h.store.CreateUser(r.Context(), params)
	if err != nil {
		if msg, ok := duplicateUserMessage(err); ok {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		writeInternal(w, "create user", err)
		return
	}

	h.respondWithToken(w, http.StatusCreated, user)
}

// Login accepts either email or phone with a password.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	phone := strings.TrimSpace(req.Phone)
	if email == "" && phone == "" {
		writeError(w, http.StatusBadRequest, "Email or phone is required")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "Password required")
		return
	}

	var (
		user database.User
		err  error
	)
	if email != "" {
		user, err = h.store.GetUserByEmail(r.Context(), email)
	} else {
		user, err = h.store.GetUserByPhone(r.Context(), phone)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		writeInternal(w, "get user for login", err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	h.respondWithToken(w, http.StatusOK, user)
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	user, err := h.store.GetUserByID(r.Context(), p.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeInternal(w, "get profile", err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, status int, user database.User) {
	token, err := auth.GenerateToken(h.jwtSecret, user.ID, h.tokenTTL)
	if err != nil {
		writeInternal(w, "generate token", err)
		return
	}
	writeJSON(w, status, authResponse{userResponse: toUserResponse(user), Token: token})
}
