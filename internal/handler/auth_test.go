package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stallpass/api/internal/auth"
	"github.com/stallpass/api/internal/database"
	"github.com/stallpass/api/internal/enum"
	"github.com/stallpass/api/internal/handler"
	"github.com/stallpass/api/internal/middleware"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock store ---

type mockAuthStore struct {
	userByEmail map[string]database.User
	userByPhone map[string]database.User
	userByID    map[uuid.UUID]database.User
	createErr   error
	created     []database.CreateUserParams
}

func newMockAuthStore() *mockAuthStore {
	return &mockAuthStore{
		userByEmail: make(map[string]database.User),
		userByPhone: make(map[string]database.User),
		userByID:    make(map[uuid.UUID]database.User),
	}
}

func (m *mockAuthStore) addUser(u database.User) {
	if u.Email.Valid {
		m.userByEmail[u.Email.String] = u
	}
	m.userByPhone[u.Phone] = u
	m.userByID[u.ID] = u
}

func (m *mockAuthStore) CreateUser(_ context.Context, arg database.CreateUserParams) (database.User, error) {
	if m.createErr != nil {
		return database.User{}, m.createErr
	}
	m.created = append(m.created, arg)
	u := database.User{
		ID:             uuid.New(),
		Name:           arg.Name,
		Email:          arg.Email,
		Phone:          arg.Phone,
		HashedPassword: arg.HashedPassword,
		Role:           arg.Role,
		Branch:         arg.Branch,
		College:        arg.College,
		CreatedAt:      pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
	m.addUser(u)
	return u, nil
}

func (m *mockAuthStore) GetUserByEmail(_ context.Context, email string) (database.User, error) {
	u, ok := m.userByEmail[email]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockAuthStore) GetUserByPhone(_ context.Context, phone string) (database.User, error) {
	u, ok := m.userByPhone[phone]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockAuthStore) GetUserByID(_ context.Context, id uuid.UUID) (database.User, error) {
	u, ok := m.userByID[id]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

// GetUserPrincipal lets the same mock back middleware.Authenticate.
func (m *mockAuthStore) GetUserPrincipal(_ context.Context, id uuid.UUID) (database.GetUserPrincipalRow, error) {
	u, ok := m.userByID[id]
	if !ok {
		return database.GetUserPrincipalRow{}, pgx.ErrNoRows
	}
	return database.GetUserPrincipalRow{ID: u.ID, Role: u.Role, StallID: u.StallID}, nil
}

// --- Helpers ---

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(h)
}

func seedUser(t *testing.T, store *mockAuthStore, role string) database.User {
	t.Helper()
	u := database.User{
		ID:             uuid.New(),
		Name:           "Asha",
		Email:          text("asha@example.com"),
		Phone:          "9876543210",
		HashedPassword: hashPassword(t, "secret123"),
		Role:           role,
		CreatedAt:      pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
	store.addUser(u)
	return u
}

func setupAuthRouter(store *mockAuthStore) *chi.Mux {
	h := handler.NewAuthHandler(store, testJWTSecret, time.Hour)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret, store))
		h.RegisterProtectedRoutes(r)
	})
	return r
}

// --- Register ---

func TestRegister_CustomerGetsToken(t *testing.T) {
	store := newMockAuthStore()
	router := setupAuthRouter(store)

	rr := doRequest(t, router, "POST", "/auth/register", map[string]string{
		"name":     "Ravi",
		"phone":    "9000000001",
		"password": "secret123",
		"branch":   "CSE",
	})
	assertStatus(t, rr, http.StatusCreated)

	body := decodeMap(t, rr)
	if body["role"] != enum.UserRoleCustomer {
		t.Errorf("role: got %v, want customer default", body["role"])
	}
	if body["branch"] != "CSE" {
		t.Errorf("branch: got %v, want CSE", body["branch"])
	}
	token, _ := body["token"].(string)
	claims, err := auth.ValidateToken(testJWTSecret, token)
	if err != nil {
		t.Fatalf("token does not validate: %v", err)
	}
	if claims.UserID.String() != body["id"] {
		t.Errorf("token user: got %s, want %v", claims.UserID, body["id"])
	}
	if _, ok := body["hashedPassword"]; ok {
		t.Error("response leaks password hash")
	}
}

func TestRegister_LowercasesEmail(t *testing.T) {
	store := newMockAuthStore()
	router := setupAuthRouter(store)

	rr := doRequest(t, router, "POST", "/auth/register", map[string]string{
		"name":     "Meera",
		"email":    "  Meera@Example.COM ",
		"phone":    "9000000002",
		"password": "secret123",
		"role":     enum.UserRoleStallOwner,
	})
	assertStatus(t, rr, http.StatusCreated)
	if got := store.created[0].Email.String; got != "meera@example.com" {
		t.Errorf("stored email: got %q", got)
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]string
		want string
	}{
		{"missing name", map[string]string{"phone": "1", "password": "secret123"}, "Name is required"},
		{"unknown role", map[string]string{"name": "A", "phone": "1", "password": "secret123", "role": "chef"}, "Invalid role"},
		{"owner without email", map[string]string{"name": "A", "phone": "1", "password": "secret123", "role": enum.UserRoleStallOwner}, "Email is required for this role"},
		{"missing phone", map[string]string{"name": "A", "password": "secret123"}, "Phone is required"},
		{"short password", map[string]string{"name": "A", "phone": "1", "password": "abc"}, "Password must be at least 6 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupAuthRouter(newMockAuthStore())
			rr := doRequest(t, router, "POST", "/auth/register", tt.body)
			assertStatus(t, rr, http.StatusBadRequest)
			assertMessage(t, rr, tt.want)
		})
	}
}

func TestRegister_AdminRejected(t *testing.T) {
	router := setupAuthRouter(newMockAuthStore())
	rr := doRequest(t, router, "POST", "/auth/register", map[string]string{
		"name": "Root", "email": "root@example.com", "phone": "1", "password": "secret123", "role": enum.UserRoleAdmin,
	})
	assertStatus(t, rr, http.StatusForbidden)
}

func TestRegister_Duplicate(t *testing.T) {
	store := newMockAuthStore()
	store.createErr = uniqueViolation("users_phone_key")
	router := setupAuthRouter(store)

	rr := doRequest(t, router, "POST", "/auth/register", map[string]string{
		"name": "Ravi", "phone": "9000000001", "password": "secret123",
	})
	assertStatus(t, rr, http.StatusBadRequest)
	assertMessage(t, rr, "User with this phone already exists")
}

// --- Login ---

func TestLogin_ByEmailAndPhone(t *testing.T) {
	store := newMockAuthStore()
	u := seedUser(t, store, enum.UserRoleCustomer)
	router := setupAuthRouter(store)

	for _, body := range []map[string]string{
		{"email": "ASHA@example.com", "password": "secret123"},
		{"phone": u.Phone, "password": "secret123"},
	} {
		rr := doRequest(t, router, "POST", "/auth/login", body)
		assertStatus(t, rr, http.StatusOK)
		resp := decodeMap(t, rr)
		if resp["id"] != u.ID.String() {
			t.Errorf("id: got %v, want %s", resp["id"], u.ID)
		}
		if resp["token"] == "" || resp["token"] == nil {
			t.Error("expected token")
		}
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	store := newMockAuthStore()
	seedUser(t, store, enum.UserRoleCustomer)
	router := setupAuthRouter(store)

	for _, body := range []map[string]string{
		{"email": "asha@example.com", "password": "wrongpass"},
		{"email": "nobody@example.com", "password": "secret123"},
	} {
		rr := doRequest(t, router, "POST", "/auth/login", body)
		assertStatus(t, rr, http.StatusUnauthorized)
		assertMessage(t, rr, "Invalid credentials")
	}
}

func TestLogin_MissingFields(t *testing.T) {
	router := setupAuthRouter(newMockAuthStore())

	rr := doRequest(t, router, "POST", "/auth/login", map[string]string{"password": "secret123"})
	assertStatus(t, rr, http.StatusBadRequest)
	assertMessage(t, rr, "Email or phone is required")

	rr = doRequest(t, router, "POST", "/auth/login", map[string]string{"phone": "1"})
	assertStatus(t, rr, http.StatusBadRequest)
	assertMessage(t, rr, "Password required")
}

// --- Profile ---

func TestProfile_WithBearerToken(t *testing.T) {
	store := newMockAuthStore()
	u := seedUser(t, store, enum.UserRoleCustomer)
	router := setupAuthRouter(store)

	token, err := auth.GenerateToken(testJWTSecret, u.ID, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	req := httptest.NewRequest("GET", "/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assertStatus(t, rr, http.StatusOK)
	body := decodeMap(t, rr)
	if body["email"] != "asha@example.com" {
		t.Errorf("email: got %v", body["email"])
	}
}

func TestProfile_NoToken(t *testing.T) {
	router := setupAuthRouter(newMockAuthStore())
	rr := doRequest(t, router, "GET", "/auth/profile", nil)
	assertStatus(t, rr, http.StatusUnauthorized)
}
