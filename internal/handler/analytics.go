package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stallpass/api/internal/database"
	"github.com/stallpass/api/internal/enum"
	"github.com/stallpass/api/internal/middleware"
	"golang.org/x/sync/errgroup"
)

// AnalyticsStore defines the database methods needed by admin reports.
// Satisfied by *database.Queries; narrow interface for testability.
type AnalyticsStore interface {
	GetOrderTotals(ctx context.Context) (database.GetOrderTotalsRow, error)
	CountOrdersByStatus(ctx context.Context) ([]database.CountOrdersByStatusRow, error)
	RevenueByStall(ctx context.Context) ([]database.RevenueByStallRow, error)
	ListDrawParticipants(ctx context.Context, arg database.ListDrawParticipantsParams) ([]database.ListDrawParticipantsRow, error)
}

// AnalyticsHandler serves admin order reports.
type AnalyticsHandler struct {
	store AnalyticsStore
}

func NewAnalyticsHandler(store AnalyticsStore) *AnalyticsHandler {
	return &AnalyticsHandler{store: store}
}

// RegisterRoutes registers admin report endpoints. Requires Authenticate.
func (h *AnalyticsHandler) RegisterRoutes(r chi.Router) {
	r = r.With(middleware.RequireRole(enum.UserRoleAdmin))
	r.Get("/orders/admin/analytics", h.Summary)
	r.Get("/orders/admin/luckydraw", h.Participants)
}

// --- Response types ---

type statusCountResponse struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type stallRevenueResponse struct {
	StallID   uuid.UUID `json:"stallId"`
	StallName string    `json:"stallName"`
	Total     string    `json:"total"`
}

type analyticsResponse struct {
	TotalOrders    int64                  `json:"totalOrders"`
	TotalRevenue   string                 `json:"totalRevenue"`
	OrdersByStatus []statusCountResponse  `json:"ordersByStatus"`
	RevenueByStall []stallRevenueResponse `json:"revenueByStall"`
}

type participantResponse struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Email  *string   `json:"email"`
	Phone  string    `json:"phone"`
	Branch *string   `json:"branch"`
}

// --- Handlers ---

// Summary runs the three report queries concurrently.
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	var (
		totals   database.GetOrderTotalsRow
		byStatus []database.CountOrdersByStatusRow
		byStall  []database.RevenueByStallRow
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		totals, err = h.store.GetOrderTotals(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		byStatus, err = h.store.CountOrdersByStatus(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		byStall, err = h.store.RevenueByStall(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		writeInternal(w, "order analytics", err)
		return
	}

	resp := analyticsResponse{
		TotalOrders:    totals.TotalOrders,
		TotalRevenue:   formatMoney(totals.TotalRevenue),
		OrdersByStatus: make([]statusCountResponse, len(byStatus)),
		RevenueByStall: make([]stallRevenueResponse, len(byStall)),
	}
	for i, row := range byStatus {
		resp.OrdersByStatus[i] = statusCountResponse{Status: row.Status, Count: row.Count}
	}
	for i, row := range byStall {
		resp.RevenueByStall[i] = stallRevenueResponse{
			StallID:   row.StallID,
			StallName: row.StallName,
			Total:     formatMoney(row.Total),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Participants lists distinct customers who ordered, optionally narrowed to a
// stall and/or a food item.
func (h *AnalyticsHandler) Participants(w http.ResponseWriter, r *http.Request) {
	var params database.ListDrawParticipantsParams
	q := r.URL.Query()

	if s := q.Get("stallId"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid stallId")
			return
		}
		params.StallID = pgtype.UUID{Bytes: id, Valid: true}
	}
	if s := q.Get("foodItemId"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid foodItemId")
			return
		}
		params.FoodItemID = pgtype.UUID{Bytes: id, Valid: true}
	}

	rows, err := h.store.ListDrawParticipants(r.Context(), params)
	if err != nil {
		writeInternal(w, "list draw participants", err)
		return
	}

	resp := make([]participantResponse, len(rows))
	for i, row := range rows {
		resp[i] = participantResponse{
			ID:     row.ID,
			Name:   row.Name,
			Email:  textPtr(row.Email),
			Phone:  row.Phone,
			Branch: textPtr(row.Branch),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
