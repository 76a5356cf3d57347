package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stallpass/api/internal/auth"
	"github.com/stallpass/api/internal/database"
	"github.com/stallpass/api/internal/middleware"
)

const testSecret = "test-secret"

type mockPrincipalStore struct {
	users map[uuid.UUID]database.GetUserPrincipalRow
	err   error
}

func (m *mockPrincipalStore) GetUserPrincipal(ctx context.Context, id uuid.UUID) (database.GetUserPrincipalRow, error) {
	if m.err != nil {
		return database.GetUserPrincipalRow{}, m.err
	}
	row, ok := m.users[id]
	if !ok {
		return database.GetUserPrincipalRow{}, pgx.ErrNoRows
	}
	return row, nil
}

func storeWith(id uuid.UUID, role string, stallID *uuid.UUID) *mockPrincipalStore {
	row := database.GetUserPrincipalRow{ID: id, Role: role}
	if stallID != nil {
		row.StallID = pgtype.UUID{Bytes: *stallID, Valid: true}
	}
	return &mockPrincipalStore{users: map[uuid.UUID]database.GetUserPrincipalRow{id: row}}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	userID := uuid.New()
	stallID := uuid.New()
	token, _ := auth.GenerateToken(testSecret, userID, time.Hour)
	store := storeWith(userID, "stall_owner", &stallID)

	handler := middleware.Authenticate(testSecret, store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := middleware.PrincipalFromContext(r.Context())
		if p == nil {
			t.Fatal("expected principal in context")
		}
		if p.UserID != userID {
			t.Errorf("user ID: got %v, want %v", p.UserID, userID)
		}
		if p.Role != "stall_owner" {
			t.Errorf("role: got %v, want stall_owner", p.Role)
		}
		if !p.StallID.Valid || p.StallID.UUID != stallID {
			t.Errorf("stall ID: got %v, want %v", p.StallID, stallID)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	handler := middleware.Authenticate(testSecret, &mockPrincipalStore{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	handler := middleware.Authenticate(testSecret, &mockPrincipalStore{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_DeletedUser(t *testing.T) {
	token, _ := auth.GenerateToken(testSecret, uuid.New(), time.Hour)
	handler := middleware.Authenticate(testSecret, &mockPrincipalStore{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_StoreError(t *testing.T) {
	token, _ := auth.GenerateToken(testSecret, uuid.New(), time.Hour)
	store := &mockPrincipalStore{err: errors.New("connection refused")}
	handler := middleware.Authenticate(testSecret, store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}

func TestRequireRole_Allowed(t *testing.T) {
	userID := uuid.New()
	token, _ := auth.GenerateToken(testSecret, userID, time.Hour)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := middleware.Authenticate(testSecret, storeWith(userID, "admin", nil))(
		middleware.RequireRole("stall_owner", "admin")(inner),
	)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestRequireRole_Forbidden(t *testing.T) {
	userID := uuid.New()
	token, _ := auth.GenerateToken(testSecret, userID, time.Hour)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})
	handler := middleware.Authenticate(testSecret, storeWith(userID, "customer", nil))(
		middleware.RequireRole("admin")(inner),
	)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestRequireRole_NoPrincipal(t *testing.T) {
	handler := middleware.RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}
