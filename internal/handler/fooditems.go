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

// FoodItemStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type FoodItemStore interface {
	GetStall(ctx context.Context, id uuid.UUID) (database.Stall, error)
	GetFoodItem(ctx context.Context, id uuid.UUID) (database.FoodItem, error)
	CreateFoodItem(ctx context.Context, arg database.CreateFoodItemParams) (database.FoodItem, error)
	UpdateFoodItem(ctx context.Context, arg database.UpdateFoodItemParams) (database.FoodItem, error)
	DeleteFoodItem(ctx context.Context, id uuid.UUID) error
}

// FoodItemHandler handles menu item CRUD for a stall.
type FoodItemHandler struct {
	store FoodItemStore
}

func NewFoodItemHandler(store FoodItemStore) *FoodItemHandler {
	return &FoodItemHandler{store: store}
}

// RegisterRoutes registers menu endpoints. Requires Authenticate.
func (h *FoodItemHandler) RegisterRoutes(r chi.Router) {
	r = r.With(middleware.RequireRole(enum.UserRoleStallOwner, enum.UserRoleAdmin))
	r.Post("/stalls/{id}/items", h.Create)
	r.Put("/stalls/items/{itemId}", h.Update)
	r.Delete("/stalls/items/{itemId}", h.Delete)
}

// --- Request / Response types ---

type createFoodItemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Image       string `json:"image"`
	Category    string `json:"category"`
	IsVeg       *bool  `json:"isVeg"`
	IsAvailable *bool  `json:"isAvailable"`
}

// updateFoodItemRequest only changes the fields that are present.
type updateFoodItemRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       *string `json:"price"`
	Image       *string `json:"image"`
	Category    *string `json:"category"`
	IsVeg       *bool   `json:"isVeg"`
	IsAvailable *bool   `json:"isAvailable"`
}

type foodItemResponse struct {
	ID          uuid.UUID `json:"id"`
	StallID     uuid.UUID `json:"stallId"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Price       string    `json:"price"`
	Image       *string   `json:"image"`
	Category    *string   `json:"category"`
	IsAvailable bool      `json:"isAvailable"`
	IsVeg       bool      `json:"isVeg"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toFoodItemResponse(f database.FoodItem) foodItemResponse {
	return foodItemResponse{
		ID:          f.ID,
		StallID:     f.StallID,
		Name:        f.Name,
		Description: textPtr(f.Description),
		Price:       formatMoney(f.Price),
		Image:       textPtr(f.ImageUrl),
		Category:    textPtr(f.Category),
		IsAvailable: f.IsAvailable,
		IsVeg:       f.IsVeg,
		CreatedAt:   f.CreatedAt.Time,
		UpdatedAt:   f.UpdatedAt.Time,
	}
}

func boolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}

// authorizeStall writes 404/403 itself and reports whether the caller manages stallID.
func (h *FoodItemHandler) authorizeStall(w http.ResponseWriter, r *http.Request, stallID uuid.UUID) bool {
	p, ok := principal(w, r)
	if !ok {
		return false
	}
	stall, err := h.store.GetStall(r.Context(), stallID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Stall not found")
			return false
		}
		writeInternal(w, "get stall", err)
		return false
	}
	if !p.CanManage(stall.OwnerID) {
		writeError(w, http.StatusForbidden, "Not authorized to manage this stall's menu")
		return false
	}
	return true
}

func (h *FoodItemHandler) loadItem(w http.ResponseWriter, r *http.Request) (database.FoodItem, bool) {
	itemID, ok := urlUUID(w, r, "itemId", "item")
	if !ok {
		return database.FoodItem{}, false
	}
	item, err := h.store.GetFoodItem(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Item not found")
			return database.FoodItem{}, false
		}
		writeInternal(w, "get food item", err)
		return database.FoodItem{}, false
	}
	if !h.authorizeStall(w, r, item.StallID) {
		return database.FoodItem{}, false
	}
	return item, true
}

// --- Handlers ---

func (h *FoodItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	stallID, ok := urlUUID(w, r, "id", "stall")
	if !ok {
		return
	}

	var req createFoodItemRequest
	if !decodeBody(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if req.Price == "" {
		writeError(w, http.StatusBadRequest, "Price is required")
		return
	}
	price, err := parseMoney(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price")
		return
	}

	if !h.authorizeStall(w, r, stallID) {
		return
	}

	item, err := h.store.CreateFoodItem(r.Context(), database.CreateFoodItemParams{
		StallID:     stallID,
		Name:        req.Name,
		Description: toText(req.Description),
		Price:       price,
		ImageUrl:    toText(req.Image),
		Category:    toText(req.Category),
		IsAvailable: boolOr(req.IsAvailable, true),
		IsVeg:       boolOr(req.IsVeg, true),
	})
	if err != nil {
		writeInternal(w, "create food item", err)
		return
	}

	writeJSON(w, http.StatusCreated, toFoodItemResponse(item))
}

func (h *FoodItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}

	var req updateFoodItemRequest
	if !decodeBody(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	params := database.UpdateFoodItemParams{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Price:       item.Price,
		ImageUrl:    item.ImageUrl,
		Category:    item.Category,
		IsAvailable: boolOr(req.IsAvailable, item.IsAvailable),
		IsVeg:       boolOr(req.IsVeg, item.IsVeg),
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "Name cannot be empty")
			return
		}
		params.Name = name
	}
	if req.Price != nil {
		price, err := parseMoney(*req.Price)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid price")
			return
		}
		params.Price = price
	}
	if req.Description != nil {
		params.Description = toText(*req.Description)
	}
	if req.Image != nil {
		params.ImageUrl = toText(*req.Image)
	}
	if req.Category != nil {
		params.Category = toText(*req.Category)
	}

	updated, err := h.store.UpdateFoodItem(r.Context(), params)
	if err != nil {
		writeInternal(w, "update food item", err)
		return
	}
	writeJSON(w, http.StatusOK, toFoodItemResponse(updated))
}

// Delete removes a menu item. Items already on an order must be marked
// unavailable instead since order lines reference them.
func (h *FoodItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteFoodItem(r.Context(), item.ID); err != nil {
		if isForeignKeyViolation(err) {
			writeError(w, http.StatusConflict, "Item has been ordered; mark it unavailable instead")
			return
		}
		writeInternal(w, "delete food item", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Item removed"})
}
