package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stallpass/api/internal/auth"
	"github.com/stallpass/api/internal/enum"
	"github.com/stallpass/api/internal/middleware"
)

const testJWTSecret = "test-secret"

// asPrincipal stands in for Authenticate so handlers see a fixed caller.
func asPrincipal(p *auth.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p != nil {
				r = r.WithContext(middleware.WithPrincipal(r.Context(), p))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newRouter(p *auth.Principal, register func(chi.Router)) *chi.Mux {
	r := chi.NewRouter()
	r.Use(asPrincipal(p))
	register(r)
	return r
}

func customerPrincipal() *auth.Principal {
	return &auth.Principal{UserID: uuid.New(), Role: enum.UserRoleCustomer}
}

func ownerPrincipal(stallID uuid.UUID) *auth.Principal {
	return &auth.Principal{
		UserID:  uuid.New(),
		Role:    enum.UserRoleStallOwner,
		StallID: uuid.NullUUID{UUID: stallID, Valid: true},
	}
}

func adminPrincipal() *auth.Principal {
	return &auth.Principal{UserID: uuid.New(), Role: enum.UserRoleAdmin}
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v; body: %s", err, rr.Body.String())
	}
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	decodeJSON(t, rr, &m)
	return m
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, want, rr.Body.String())
	}
}

func assertMessage(t *testing.T, rr *httptest.ResponseRecorder, want string) {
	t.Helper()
	m := decodeMap(t, rr)
	if m["message"] != want {
		t.Errorf("message: got %v, want %q", m["message"], want)
	}
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

func numeric(t *testing.T, s string) pgtype.Numeric {
	t.Helper()
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		t.Fatalf("scan numeric %q: %v", s, err)
	}
	return n
}

func text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: true}
}
