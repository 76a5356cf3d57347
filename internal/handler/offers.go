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
	"github.com/shopspring/decimal"
	"github.com/stallpass/api/internal/auth"
	"github.com/stallpass/api/internal/database"
	"github.com/stallpass/api/internal/enum"
	"github.com/stallpass/api/internal/middleware"
)

// OfferStore defines the database methods needed by offer handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OfferStore interface {
	ListActiveOffers(ctx context.Context, now time.Time) ([]database.ListActiveOffersRow, error)
	GetOffer(ctx context.Context, id uuid.UUID) (database.Offer, error)
	CreateOffer(ctx context.Context, arg database.CreateOfferParams) (database.Offer, error)
	DeleteOffer(ctx context.Context, id uuid.UUID) error
	GetStall(ctx context.Context, id uuid.UUID) (database.Stall, error)
}

// OfferHandler handles coupon offers, global or scoped to one stall.
type OfferHandler struct {
	store OfferStore
	loc   *time.Location
	now   func() time.Time
}

// NewOfferHandler creates an OfferHandler. Date-only expiries are read as
// the end of that day in loc.
func NewOfferHandler(store OfferStore, loc *time.Location) *OfferHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &OfferHandler{store: store, loc: loc, now: time.Now}
}

func (h *OfferHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/offers", h.List)
}

// RegisterRoutes registers offer writes. Requires Authenticate.
func (h *OfferHandler) RegisterRoutes(r chi.Router) {
	r = r.With(middleware.RequireRole(enum.UserRoleStallOwner, enum.UserRoleAdmin))
	r.Post("/offers", h.Create)
	r.Delete("/offers/{id}", h.Delete)
}

// --- Request / Response types ---

type createOfferRequest struct {
	Title              string `json:"title"`
	Description        string `json:"description"`
	DiscountPercentage string `json:"discountPercentage"`
	CouponCode         string `json:"couponCode"`
	StallID            string `json:"stallId"`
	ValidUntil         string `json:"validUntil"`
	IsActive           *bool  `json:"isActive"`
}

type offerResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Title              string     `json:"title"`
	Description        *string    `json:"description"`
	DiscountPercentage string     `json:"discountPercentage"`
	CouponCode         *string    `json:"couponCode"`
	StallID            *uuid.UUID `json:"stallId"`
	StallName          *string    `json:"stallName,omitempty"`
	ValidUntil         *time.Time `json:"validUntil"`
	IsActive           bool       `json:"isActive"`
	CreatedAt          time.Time  `json:"createdAt"`
}

type offerListResponse struct {
	GlobalOffers []offerResponse `json:"globalOffers"`
	StallOffers  []offerResponse `json:"stallOffers"`
}

func toOfferResponse(o database.Offer) offerResponse {
	return offerResponse{
		ID:                 o.ID,
		Title:              o.Title,
		Description:        textPtr(o.Description),
		DiscountPercentage: formatMoney(o.DiscountPercentage),
		CouponCode:         textPtr(o.CouponCode),
		StallID:            uuidPtr(o.StallID),
		ValidUntil:         timePtr(o.ValidUntil),
		IsActive:           o.IsActive,
		CreatedAt:          o.CreatedAt.Time,
	}
}

var (
	errInvalidValidUntil = errors.New("invalid validUntil")
	hundred              = decimal.NewFromInt(100)
)

// parseValidUntil accepts YYYY-MM-DD, meaning the end of that day, or an
// RFC 3339 timestamp.
func parseValidUntil(s string, loc *time.Location) (pgtype.Timestamptz, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Timestamptz{}, nil
	}
	if end, err := parseDay(s, loc, true); err == nil {
		return end, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return pgtype.Timestamptz{}, errInvalidValidUntil
	}
	return pgtype.Timestamptz{Time: t, Valid: true}, nil
}

// offerScope resolves which stall an offer will belong to and checks the
// caller may create offers there. uuid.Nil means a global offer.
func (h *OfferHandler) offerScope(ctx context.Context, p *auth.Principal, raw string) (uuid.UUID, error) {
	if raw == "" {
		if p.IsAdmin() {
			return uuid.Nil, nil
		}
		if !p.StallID.Valid {
			return uuid.Nil, statusError{http.StatusForbidden, "Only admin can create global offers"}
		}
		return p.StallID.UUID, nil
	}

	stallID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, statusError{http.StatusBadRequest, "invalid stallId"}
	}
	if !p.IsAdmin() && (!p.StallID.Valid || p.StallID.UUID != stallID) {
		return uuid.Nil, statusError{http.StatusForbidden, "Not authorized for this stall"}
	}
	if _, err := h.store.GetStall(ctx, stallID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, statusError{http.StatusNotFound, "Stall not found"}
		}
		return uuid.Nil, err
	}
	return stallID, nil
}

// --- Handlers ---

// List returns active, unexpired offers split by scope.
func (h *OfferHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListActiveOffers(r.Context(), h.now())
	if err != nil {
		writeInternal(w, "list offers", err)
		return
	}

	resp := offerListResponse{GlobalOffers: []offerResponse{}, StallOffers: []offerResponse{}}
	for _, row := range rows {
		o := toOfferResponse(row.Offer)
		if o.StallID == nil {
			resp.GlobalOffers = append(resp.GlobalOffers, o)
			continue
		}
		o.StallName = textPtr(row.StallName)
		resp.StallOffers = append(resp.StallOffers, o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds an offer. Admins may target any stall or none; stall owners
// only their own stall.
func (h *OfferHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req createOfferRequest
	if !decodeBody(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}
	pct, err := decimal.NewFromString(strings.TrimSpace(req.DiscountPercentage))
	if err != nil || pct.IsNegative() || pct.GreaterThan(hundred) {
		writeError(w, http.StatusBadRequest, "discountPercentage must be between 0 and 100")
		return
	}
	validUntil, err := parseValidUntil(req.ValidUntil, h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stallID, err := h.offerScope(r.Context(), p, strings.TrimSpace(req.StallID))
	if err != nil {
		var se statusError
		if errors.As(err, &se) {
			writeError(w, se.status, se.msg)
			return
		}
		writeInternal(w, "resolve offer stall", err)
		return
	}

	params := database.CreateOfferParams{
		Title:       req.Title,
		Description: toText(req.Description),
		CouponCode:  toText(strings.ToUpper(strings.TrimSpace(req.CouponCode))),
		ValidUntil:  validUntil,
		IsActive:    boolOr(req.IsActive, true),
	}
	if err := params.DiscountPercentage.Scan(pct.String()); err != nil {
		writeInternal(w, "convert discount percentage", err)
		return
	}
	if stallID != uuid.Nil {
		params.StallID = pgtype.UUID{Bytes: stallID, Valid: true}
	}

	offer, err := h.store.CreateOffer(r.Context(), params)
	if err != nil {
		if isUniqueViolation(err, "offers_coupon_scope_key") {
			writeError(w, http.StatusConflict, "Coupon code already exists for this scope")
			return
		}
		writeInternal(w, "create offer", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOfferResponse(offer))
}

// Delete removes an offer. Global offers are admin-only.
func (h *OfferHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	offerID, ok := urlUUID(w, r, "id", "offer")
	if !ok {
		return
	}

	offer, err := h.store.GetOffer(r.Context(), offerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Offer not found")
			return
		}
		writeInternal(w, "get offer", err)
		return
	}

	if !p.IsAdmin() {
		owns := offer.StallID.Valid && p.StallID.Valid && uuid.UUID(offer.StallID.Bytes) == p.StallID.UUID
		if !owns {
			writeError(w, http.StatusForbidden, "Not authorized")
			return
		}
	}

	if err := h.store.DeleteOffer(r.Context(), offer.ID); err != nil {
		writeInternal(w, "delete offer", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Offer removed"})
}
