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
	"github.com/stallpass/api/internal/database"
	"github.com/stallpass/api/internal/enum"
	"github.com/stallpass/api/internal/middleware"
)

// FeedbackStore defines the database methods needed by feedback handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type FeedbackStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetStall(ctx context.Context, id uuid.UUID) (database.Stall, error)
	CreateFeedback(ctx context.Context, arg database.CreateFeedbackParams) (database.Feedback, error)
	GetFeedback(ctx context.Context, id uuid.UUID) (database.Feedback, error)
	GetFeedbackByOrder(ctx context.Context, orderID uuid.UUID) (database.Feedback, error)
	RespondFeedback(ctx context.Context, arg database.RespondFeedbackParams) (database.Feedback, error)
	ListFeedbackByStall(ctx context.Context, stallID uuid.UUID) ([]database.ListFeedbackRow, error)
	ListFeedback(ctx context.Context) ([]database.ListFeedbackRow, error)
}

// FeedbackHandler handles order ratings and stall replies.
type FeedbackHandler struct {
	store FeedbackStore
}

func NewFeedbackHandler(store FeedbackStore) *FeedbackHandler {
	return &FeedbackHandler{store: store}
}

func (h *FeedbackHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/feedback/stall/{stallId}", h.ListByStall)
}

// RegisterRoutes registers feedback endpoints. Requires Authenticate.
func (h *FeedbackHandler) RegisterRoutes(r chi.Router) {
	r.Post("/feedback", h.Create)
	r.Get("/feedback/order/{orderId}", h.GetByOrder)
	r.With(middleware.RequireRole(enum.UserRoleStallOwner, enum.UserRoleAdmin)).
		Put("/feedback/{id}/respond", h.Respond)
	r.With(middleware.RequireRole(enum.UserRoleAdmin)).Get("/feedback", h.ListAll)
}

// --- Request / Response types ---

type createFeedbackRequest struct {
	OrderID string `json:"orderId"`
	Rating  int32  `json:"rating"`
	Comment string `json:"comment"`
}

type respondFeedbackRequest struct {
	Response string `json:"response"`
}

type feedbackResponse struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	OrderID   uuid.UUID `json:"orderId"`
	StallID   uuid.UUID `json:"stallId"`
	Rating    int32     `json:"rating"`
	Comment   *string   `json:"comment"`
	Response  *string   `json:"response"`
	UserName  string    `json:"userName,omitempty"`
	StallName string    `json:"stallName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toFeedbackResponse(f database.Feedback) feedbackResponse {
	return feedbackResponse{
		ID:        f.ID,
		UserID:    f.UserID,
		OrderID:   f.OrderID,
		StallID:   f.StallID,
		Rating:    f.Rating,
		Comment:   textPtr(f.Comment),
		Response:  textPtr(f.Response),
		CreatedAt: f.CreatedAt.Time,
		UpdatedAt: f.UpdatedAt.Time,
	}
}

func toFeedbackList(rows []database.ListFeedbackRow) []feedbackResponse {
	resp := make([]feedbackResponse, len(rows))
	for i, row := range rows {
		resp[i] = toFeedbackResponse(row.Feedback)
		resp[i].UserName = row.UserName
		resp[i].StallName = row.StallName
	}
	return resp
}

// feedbackAllowed reports whether the order has been handed over.
func feedbackAllowed(o database.Order) bool {
	if o.Status == enum.OrderStatusCompleted {
		return true
	}
	return o.TokenStatus.Valid && o.TokenStatus.String == enum.TokenStatusDelivered
}

// --- Handlers ---

func (h *FeedbackHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req createFeedbackRequest
	if !decodeBody(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "Rating must be between 1 and 5")
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Order not found")
			return
		}
		writeInternal(w, "get order", err)
		return
	}
	if order.UserID != p.UserID {
		writeError(w, http.StatusForbidden, "Not authorized")
		return
	}
	if !feedbackAllowed(order) {
		writeError(w, http.StatusBadRequest, "Feedback can only be given for delivered orders")
		return
	}

	fb, err := h.store.CreateFeedback(r.Context(), database.CreateFeedbackParams{
		UserID:  p.UserID,
		OrderID: order.ID,
		StallID: order.StallID,
		Rating:  req.Rating,
		Comment: toText(strings.TrimSpace(req.Comment)),
	})
	if err != nil {
		if isUniqueViolation(err, "feedback_order_id_key") {
			writeError(w, http.StatusBadRequest, "Feedback already submitted for this order")
			return
		}
		writeInternal(w, "create feedback", err)
		return
	}
	writeJSON(w, http.StatusCreated, toFeedbackResponse(fb))
}

func (h *FeedbackHandler) ListByStall(w http.ResponseWriter, r *http.Request) {
	stallID, ok := urlUUID(w, r, "stallId", "stall")
	if !ok {
		return
	}
	rows, err := h.store.ListFeedbackByStall(r.Context(), stallID)
	if err != nil {
		writeInternal(w, "list stall feedback", err)
		return
	}
	writeJSON(w, http.StatusOK, toFeedbackList(rows))
}

func (h *FeedbackHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListFeedback(r.Context())
	if err != nil {
		writeInternal(w, "list feedback", err)
		return
	}
	writeJSON(w, http.StatusOK, toFeedbackList(rows))
}

// GetByOrder returns the order's feedback or a null body when there is none.
func (h *FeedbackHandler) GetByOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	orderID, ok := urlUUID(w, r, "orderId", "order")
	if !ok {
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Order not found")
			return
		}
		writeInternal(w, "get order", err)
		return
	}
	if order.UserID != p.UserID {
		writeError(w, http.StatusForbidden, "Not authorized")
		return
	}

	fb, err := h.store.GetFeedbackByOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusOK, nil)
			return
		}
		writeInternal(w, "get order feedback", err)
		return
	}
	writeJSON(w, http.StatusOK, toFeedbackResponse(fb))
}

func (h *FeedbackHandler) Respond(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "feedback")
	if !ok {
		return
	}

	var req respondFeedbackRequest
	if !decodeBody(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Response = strings.TrimSpace(req.Response)
	if req.Response == "" {
		writeError(w, http.StatusBadRequest, "Response is required")
		return
	}

	fb, err := h.store.GetFeedback(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Feedback not found")
			return
		}
		writeInternal(w, "get feedback", err)
		return
	}
	if !p.IsAdmin() {
		stall, err := h.store.GetStall(r.Context(), fb.StallID)
		if err != nil {
			writeInternal(w, "get stall", err)
			return
		}
		if !p.CanManage(stall.OwnerID) {
			writeError(w, http.StatusForbidden, "Not authorized")
			return
		}
	}

	updated, err := h.store.RespondFeedback(r.Context(), database.RespondFeedbackParams{
		ID:       id,
		Response: toText(req.Response),
	})
	if err != nil {
		writeInternal(w, "respond feedback", err)
		return
	}
	writeJSON(w, http.StatusOK, toFeedbackResponse(updated))
}
