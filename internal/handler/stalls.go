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

// StallStore defines the database methods needed by stall handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type StallStore interface {
	GetStall(ctx context.Context, id uuid.UUID) (database.Stall, error)
	GetStallByOwner(ctx context.Context, ownerID uuid.UUID) (database.Stall, error)
	ListPublicStalls(ctx context.Context) ([]database.Stall, error)
	ListStalls(ctx context.Context) ([]database.Stall, error)
	CreateStall(ctx context.Context, arg database.CreateStallParams) (database.Stall, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	ListFoodItemsByStall(ctx context.Context, stallID uuid.UUID) ([]database.FoodItem, error)
	SetStallApproved(ctx context.Context, arg database.SetStallFlagParams) (database.Stall, error)
	SetStallOpen(ctx context.Context, arg database.SetStallFlagParams) (database.Stall, error)
	SetStallPreBooking(ctx context.Context, arg database.SetStallFlagParams) (database.Stall, error)
	UpdateStallName(ctx context.Context, arg database.UpdateStallNameParams) (database.Stall, error)
}

// StallHandler handles stall catalog endpoints.
type StallHandler struct {
	store StallStore
}

func NewStallHandler(store StallStore) *StallHandler {
	return &StallHandler{store: store}
}

// RegisterPublicRoutes registers the unauthenticated catalog reads.
func (h *StallHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/stalls", h.ListPublic)
	r.Get("/stalls/{id}", h.GetPublic)
}

// RegisterRoutes registers stall management endpoints. Requires Authenticate.
func (h *StallHandler) RegisterRoutes(r chi.Router) {
	admin := r.With(middleware.RequireRole(enum.UserRoleAdmin))
	managers := r.With(middleware.RequireRole(enum.UserRoleStallOwner, enum.UserRoleAdmin))

	admin.Post("/stalls", h.Create)
	admin.Get("/stalls/admin", h.ListAll)
	admin.Put("/stalls/{id}/approve", h.SetApproved)

	managers.Get("/stalls/owner/me", h.GetMine)
	managers.Get("/stalls/{id}/owner", h.GetForOwner)
	managers.Put("/stalls/{id}/open", h.SetOpen)
	managers.Put("/stalls/{id}/prebooking", h.SetPreBooking)
	managers.Put("/stalls/{id}/name", h.UpdateName)
}

// --- Request / Response types ---

type createStallRequest struct {
	OwnerID           string `json:"ownerId"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	Image             string `json:"image"`
	Phone             string `json:"phone"`
	Location          string `json:"location"`
	IsApproved        bool   `json:"isApproved"`
	PreBookingEnabled bool   `json:"preBookingEnabled"`
}

type stallResponse struct {
	ID                uuid.UUID `json:"id"`
	OwnerID           uuid.UUID `json:"ownerId"`
	Name              string    `json:"name"`
	Description       *string   `json:"description"`
	Image             *string   `json:"image"`
	Phone             *string   `json:"phone"`
	Location          *string   `json:"location"`
	IsApproved        bool      `json:"isApproved"`
	IsOpen            bool      `json:"isOpen"`
	PreBookingEnabled bool      `json:"preBookingEnabled"`
	CreatedAt         time.Time `json:"createdAt"`
}

type stallDetailResponse struct {
	stallResponse
	Items []foodItemResponse `json:"items"`
}

func toStallResponse(s database.Stall) stallResponse {
	return stallResponse{
		ID:                s.ID,
		OwnerID:           s.OwnerID,
		Name:              s.Name,
		Description:       textPtr(s.Description),
		Image:             textPtr(s.ImageUrl),
		Phone:             textPtr(s.Phone),
		Location:          textPtr(s.Location),
		IsApproved:        s.IsApproved,
		IsOpen:            s.IsOpen,
		PreBookingEnabled: s.PreBookingEnabled,
		CreatedAt:         s.CreatedAt.Time,
	}
}

func toStallResponses(stalls []database.Stall) []stallResponse {
	resp := make([]stallResponse, len(stalls))
	for i, s := range stalls {
		resp[i] = toStallResponse(s)
	}
	return resp
}

// --- Helpers ---

// loadManagedStall fetches a stall by URL id and checks the caller may manage it.
// It writes the error response itself and returns ok=false on failure.
func (h *StallHandler) loadManagedStall(w http.ResponseWriter, r *http.Request) (database.Stall, bool) {
	p, ok := principal(w, r)
	if !ok {
		return database.Stall{}, false
	}
	stallID, ok := urlUUID(w, r, "id", "stall")
	if !ok {
		return database.Stall{}, false
	}

	stall, err := h.store.GetStall(r.Context(), stallID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Stall not found")
			return database.Stall{}, false
		}
		writeInternal(w, "get stall", err)
		return database.Stall{}, false
	}
	if !p.CanManage(stall.OwnerID) {
		writeError(w, http.StatusForbidden, "Not authorized to manage this stall")
		return database.Stall{}, false
	}
	return stall, true
}

func (h *StallHandler) writeStallDetail(w http.ResponseWriter, r *http.Request, stall database.Stall) {
	items, err := h.store.ListFoodItemsByStall(r.Context(), stall.ID)
	if err != nil {
		writeInternal(w, "list food items", err)
		return
	}
	resp := stallDetailResponse{stallResponse: toStallResponse(stall), Items: make([]foodItemResponse, len(items))}
	for i, item := range items {
		resp.Items[i] = toFoodItemResponse(item)
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Handlers ---

// ListPublic returns approved, open stalls.
func (h *StallHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	stalls, err := h.store.ListPublicStalls(r.Context())
	if err != nil {
		writeInternal(w, "list public stalls", err)
		return
	}
	writeJSON(w, http.StatusOK, toStallResponses(stalls))
}

// GetPublic returns a stall with its menu, hiding unapproved or closed stalls.
func (h *StallHandler) GetPublic(w http.ResponseWriter, r *http.Request) {
	stallID, ok := urlUUID(w, r, "id", "stall")
	if !ok {
		return
	}

	stall, err := h.store.GetStall(r.Context(), stallID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		writeInternal(w, "get stall", err)
		return
	}
	if err != nil || !stall.IsApproved || !stall.IsOpen {
		writeError(w, http.StatusNotFound, "Stall not found")
		return
	}

	h.writeStallDetail(w, r, stall)
}

func (h *StallHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	stalls, err := h.store.ListStalls(r.Context())
	if err != nil {
		writeInternal(w, "list stalls", err)
		return
	}
	writeJSON(w, http.StatusOK, toStallResponses(stalls))
}

// Create adds a stall for an existing stall-owner user and links the user to it.
func (h *StallHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createStallRequest
	if !decodeBody(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ownerId")
		return
	}

	owner, err := h.store.GetUserByID(r.Context(), ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Owner not found")
			return
		}
		writeInternal(w, "get stall owner", err)
		return
	}
	if owner.Role != enum.UserRoleStallOwner {
		writeError(w, http.StatusBadRequest, "Owner must have the stall_owner role")
		return
	}

	stall, err := h.store.CreateStall(r.Context(), database.CreateStallParams{
		OwnerID:           ownerID,
		Name:              req.Name,
		Description:       toText(req.Description),
		ImageUrl:          toText(req.Image),
		Phone:             toText(req.Phone),
		Location:          toText(req.Location),
		IsApproved:        req.IsApproved,
		PreBookingEnabled: req.PreBookingEnabled,
	})
	if err != nil {
		if isUniqueViolation(err, "stalls_owner_id_key") {
			writeError(w, http.StatusConflict, "Owner already has a stall")
			return
		}
		writeInternal(w, "create stall", err)
		return
	}

	writeJSON(w, http.StatusCreated, toStallResponse(stall))
}

// GetMine returns the caller's own stall with its full menu.
func (h *StallHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	stall, err := h.store.GetStallByOwner(r.Context(), p.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Stall not found")
			return
		}
		writeInternal(w, "get own stall", err)
		return
	}

	h.writeStallDetail(w, r, stall)
}

// GetForOwner returns a stall with its menu regardless of approval or open state.
func (h *StallHandler) GetForOwner(w http.ResponseWriter, r *http.Request) {
	stall, ok := h.loadManagedStall(w, r)
	if !ok {
		return
	}
	h.writeStallDetail(w, r, stall)
}

type stallFlagRequest struct {
	IsApproved        *bool `json:"isApproved"`
	IsOpen            *bool `json:"isOpen"`
	PreBookingEnabled *bool `json:"preBookingEnabled"`
}

// setFlag decodes the body, picks one boolean out of it and applies update.
func (h *StallHandler) setFlag(
	w http.ResponseWriter, r *http.Request, stall database.Stall,
	field string, pick func(stallFlagRequest) *bool,
	update func(context.Context, database.SetStallFlagParams) (database.Stall, error),
) {
	var req stallFlagRequest
	if !decodeBody(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	value := pick(req)
	if value == nil {
		writeError(w, http.StatusBadRequest, field+" is required")
		return
	}

	updated, err := update(r.Context(), database.SetStallFlagParams{ID: stall.ID, Value: *value})
	if err != nil {
		writeInternal(w, "set stall "+field, err)
		return
	}
	writeJSON(w, http.StatusOK, toStallResponse(updated))
}

func (h *StallHandler) SetApproved(w http.ResponseWriter, r *http.Request) {
	stall, ok := h.loadManagedStall(w, r)
	if !ok {
		return
	}
	h.setFlag(w, r, stall, "isApproved", func(req stallFlagRequest) *bool { return req.IsApproved }, h.store.SetStallApproved)
}

func (h *StallHandler) SetOpen(w http.ResponseWriter, r *http.Request) {
	stall, ok := h.loadManagedStall(w, r)
	if !ok {
		return
	}
	h.setFlag(w, r, stall, "isOpen", func(req stallFlagRequest) *bool { return req.IsOpen }, h.store.SetStallOpen)
}

func (h *StallHandler) SetPreBooking(w http.ResponseWriter, r *http.Request) {
	stall, ok := h.loadManagedStall(w, r)
	if !ok {
		return
	}
	h.setFlag(w, r, stall, "preBookingEnabled", func(req stallFlagRequest) *bool { return req.PreBookingEnabled }, h.store.SetStallPreBooking)
}

func (h *StallHandler) UpdateName(w http.ResponseWriter, r *http.Request) {
	stall, ok := h.loadManagedStall(w, r)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	updated, err := h.store.UpdateStallName(r.Context(), database.UpdateStallNameParams{ID: stall.ID, Name: name})
	if err != nil {
		writeInternal(w, "update stall name", err)
		return
	}
	writeJSON(w, http.StatusOK, toStallResponse(updated))
}
