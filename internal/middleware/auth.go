package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stallpass/api/internal/auth"
	"github.com/stallpass/api/internal/database"
)

type contextKey string

const principalKey contextKey = "principal"

// PrincipalStore resolves the caller's current role and stall.
// Satisfied by *database.Queries.
type PrincipalStore interface {
	GetUserPrincipal(ctx context.Context, id uuid.UUID) (database.GetUserPrincipalRow, error)
}

func Authenticate(jwtSecret string, store PrincipalStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeMessage(w, http.StatusUnauthorized, "Not authorized, no token")
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeMessage(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			claims, err := auth.ValidateToken(jwtSecret, parts[1])
			if err != nil {
				writeMessage(w, http.StatusUnauthorized, "Not authorized, token failed")
				return
			}

			row, err := store.GetUserPrincipal(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					writeMessage(w, http.StatusUnauthorized, "user no longer exists")
					return
				}
				log.Printf("ERROR: resolve principal %s: %v", claims.UserID, err)
				writeMessage(w, http.StatusInternalServerError, "internal server error")
				return
			}

			p := &auth.Principal{UserID: row.ID, Role: row.Role}
			if row.StallID.Valid {
				p.StallID = uuid.NullUUID{UUID: row.StallID.Bytes, Valid: true}
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if p == nil {
				writeMessage(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeMessage(w, http.StatusForbidden, "insufficient permissions")
		})
	}
}

// WithPrincipal is used by Authenticate and by tests that bypass it.
func WithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) *auth.Principal {
	p, _ := ctx.Value(principalKey).(*auth.Principal)
	return p
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
