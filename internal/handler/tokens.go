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
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stallpass/api/internal/database"
	"github.com/stallpass/api/internal/enum"
	"github.com/stallpass/api/internal/middleware"
)

// TokenStore defines the database methods needed by pickup-token handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type TokenStore interface {
	GetStall(ctx context.Context, id uuid.UUID) (database.Stall, error)
	ListTokensByUser(ctx context.Context, userID uuid.UUID) ([]database.Order, error)
	ListActiveTokensByStall(ctx context.Context, stallID uuid.UUID) ([]database.Order, error)
	ListTokensAdmin(ctx context.Context, arg database.ListTokensAdminParams) ([]database.Order, error)
}

// TokenHandler serves pickup-token views of orders.
type TokenHandler struct {
	store TokenStore
	loc   *time.Location
}

func NewTokenHandler(store TokenStore, loc *time.Location) *TokenHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &TokenHandler{store: store, loc: loc}
}

// RegisterRoutes registers token endpoints. Requires Authenticate.
func (h *TokenHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders/tokens/my", h.ListMine)
	r.With(middleware.RequireRole(enum.UserRoleStallOwner, enum.UserRoleAdmin)).
		Get("/orders/tokens/stall/{stallId}", h.ListActiveByStall)
	r.With(middleware.RequireRole(enum.UserRoleAdmin)).
		Get("/orders/tokens/admin", h.ListAdmin)
}

type tokenResponse struct {
	OrderID       uuid.UUID  `json:"orderId"`
	StallID       uuid.UUID  `json:"stallId"`
	TokenNumber   int32      `json:"tokenNumber"`
	TokenStatus   string     `json:"tokenStatus"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"paymentStatus"`
	PaymentMethod string     `json:"paymentMethod"`
	OrderType     string     `json:"orderType"`
	PickupTime    *time.Time `json:"pickupTime"`
	TotalAmount   string     `json:"totalAmount"`
	StallName     *string    `json:"stallName"`
	EventName     *string    `json:"eventName"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func toTokenResponses(orders []database.Order) []tokenResponse {
	resp := make([]tokenResponse, 0, len(orders))
	for _, o := range orders {
		if !o.TokenNumber.Valid {
			continue
		}
		resp = append(resp, tokenResponse{
			OrderID:       o.ID,
			StallID:       o.StallID,
			TokenNumber:   o.TokenNumber.Int32,
			TokenStatus:   o.TokenStatus.String,
			Status:        o.Status,
			PaymentStatus: o.PaymentStatus,
			PaymentMethod: o.PaymentMethod,
			OrderType:     o.OrderType,
			PickupTime:    timePtr(o.PickupTime),
			TotalAmount:   formatMoney(o.TotalAmount),
			StallName:     textPtr(o.StallName),
			EventName:     textPtr(o.EventName),
			CreatedAt:     o.CreatedAt.Time,
		})
	}
	return resp
}

// parseDay reads YYYY-MM-DD as midnight in loc. endOfDay moves it to the last
// instant of that day.
func parseDay(s string, loc *time.Location, endOfDay bool) (pgtype.Timestamptz, error) {
	d, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return pgtype.Timestamptz{}, err
	}
	if endOfDay {
		d = d.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return pgtype.Timestamptz{Time: d, Valid: true}, nil
}

func (h *TokenHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	orders, err := h.store.ListTokensByUser(r.Context(), p.UserID)
	if err != nil {
		writeInternal(w, "list my tokens", err)
		return
	}
	writeJSON(w, http.StatusOK, toTokenResponses(orders))
}

// ListActiveByStall is the stall's pickup board: ACTIVE tokens in token order.
func (h *TokenHandler) ListActiveByStall(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	stallID, ok := urlUUID(w, r, "stallId", "stall")
	if !ok {
		return
	}

	stall, err := h.store.GetStall(r.Context(), stallID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Stall not found")
			return
		}
		writeInternal(w, "get stall", err)
		return
	}
	if !p.CanManage(stall.OwnerID) {
		writeError(w, http.StatusForbidden, "Not authorized to view this stall's tokens")
		return
	}

	orders, err := h.store.ListActiveTokensByStall(r.Context(), stallID)
	if err != nil {
		writeInternal(w, "list stall tokens", err)
		return
	}
	writeJSON(w, http.StatusOK, toTokenResponses(orders))
}

// ListAdmin filters all tokens by stallId, status, orderType, paymentMethod
// and a from/to date range.
func (h *TokenHandler) ListAdmin(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var params database.ListTokensAdminParams

	if s := q.Get("stallId"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid stallId")
			return
		}
		params.StallID = pgtype.UUID{Bytes: id, Valid: true}
	}
	if s := strings.ToUpper(q.Get("status")); s != "" {
		params.TokenStatus = pgtype.Text{String: s, Valid: true}
	}
	if s := q.Get("orderType"); s != "" {
		params.OrderType = pgtype.Text{String: s, Valid: true}
	}
	if s := q.Get("paymentMethod"); s != "" {
		params.PaymentMethod = pgtype.Text{String: s, Valid: true}
	}
	if s := q.Get("from"); s != "" {
		from, err := parseDay(s, h.loc, false)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date, use YYYY-MM-DD")
			return
		}
		params.From = from
	}
	if s := q.Get("to"); s != "" {
		to, err := parseDay(s, h.loc, true)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date, use YYYY-MM-DD")
			return
		}
		params.To = to
	}

	orders, err := h.store.ListTokensAdmin(r.Context(), params)
	if err != nil {
		writeInternal(w, "list admin tokens", err)
		return
	}
	writeJSON(w, http.StatusOK, toTokenResponses(orders))
}
