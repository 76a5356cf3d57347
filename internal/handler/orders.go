package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stallpass/api/internal/auth"
	"github.com/stallpass/api/internal/database"
	"github.com/stallpass/api/internal/enum"
	"github.com/stallpass/api/internal/middleware"
	"github.com/stallpass/api/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderResult, error)
	UpdateStatus(ctx context.Context, req service.UpdateStatusRequest) (*service.UpdateStatusResult, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetStall(ctx context.Context, id uuid.UUID) (database.Stall, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListOrderItemsByOrders(ctx context.Context, orderIds []uuid.UUID) ([]database.OrderItem, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]database.Order, error)
	ListOrdersByStall(ctx context.Context, arg database.ListOrdersByStallParams) ([]database.Order, error)
	ListOrdersAdmin(ctx context.Context, arg database.ListOrdersAdminParams) ([]database.ListOrdersAdminRow, error)
}

// OrderHandler handles checkout, order reads and the status endpoint.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
}

func NewOrderHandler(svc OrderServicer, store OrderStore) *OrderHandler {
	return &OrderHandler{svc: svc, store: store}
}

// RegisterRoutes registers order endpoints. Requires Authenticate.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/orders", h.Create)
	r.Get("/orders/myorders", h.ListMine)
	r.Get("/orders/{id}", h.Get)

	managers := r.With(middleware.RequireRole(enum.UserRoleStallOwner, enum.UserRoleAdmin))
	managers.Get("/orders/stall/{stallId}", h.ListByStall)
	managers.Put("/orders/{id}/status", h.UpdateStatus)

	r.With(middleware.RequireRole(enum.UserRoleAdmin)).Get("/orders/admin/all", h.ListAdmin)
}

// --- Request / Response types ---

type createOrderRequest struct {
	StallID       string                   `json:"stallId"`
	Items         []createOrderItemRequest `json:"items"`
	PaymentMethod string                   `json:"paymentMethod"`
	OrderType     string                   `json:"orderType"`
	TransactionID string                   `json:"transactionId"`
	PickupTime    *time.Time               `json:"pickupTime"`
	CouponCode    string                   `json:"couponCode"`
}

type createOrderItemRequest struct {
	FoodItem string `json:"foodItem"`
	Quantity int32  `json:"quantity"`
}

type updateStatusRequest struct {
	Status        *string `json:"status"`
	PaymentStatus *string `json:"paymentStatus"`
	TokenStatus   *string `json:"tokenStatus"`
}

type orderResponse struct {
	ID             uuid.UUID           `json:"id"`
	UserID         uuid.UUID           `json:"userId"`
	StallID        uuid.UUID           `json:"stallId"`
	Items          []orderItemResponse `json:"items"`
	Subtotal       string              `json:"subtotal"`
	DiscountAmount string              `json:"discountAmount"`
	TotalAmount    string              `json:"totalAmount"`
	CouponCode     *string             `json:"couponCode"`
	Status         string              `json:"status"`
	PaymentStatus  string              `json:"paymentStatus"`
	PaymentMethod  string              `json:"paymentMethod"`
	TransactionID  *string             `json:"transactionId"`
	OrderType      string              `json:"orderType"`
	PickupTime     *time.Time          `json:"pickupTime"`
	TokenNumber    *int32              `json:"tokenNumber"`
	TokenStatus    *string             `json:"tokenStatus"`
	StallName      *string             `json:"stallName"`
	EventName      *string             `json:"eventName"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

type orderItemResponse struct {
	FoodItemID uuid.UUID `json:"foodItem"`
	Name       string    `json:"name"`
	Price      string    `json:"price"`
	Quantity   int32     `json:"quantity"`
}

type adminOrderResponse struct {
	orderResponse
	CustomerName  string `json:"customerName"`
	CustomerPhone string `json:"customerPhone"`
}

type statusUpdateResponse struct {
	orderResponse
	LuckyDraw *luckyDrawResponse `json:"luckyDraw,omitempty"`
}

func toOrderResponse(o database.Order, items []database.OrderItem) orderResponse {
	resp := orderResponse{
		ID:             o.ID,
		UserID:         o.UserID,
		StallID:        o.StallID,
		Items:          make([]orderItemResponse, len(items)),
		Subtotal:       formatMoney(o.Subtotal),
		DiscountAmount: formatMoney(o.DiscountAmount),
		TotalAmount:    formatMoney(o.TotalAmount),
		CouponCode:     textPtr(o.CouponCode),
		Status:         o.Status,
		PaymentStatus:  o.PaymentStatus,
		PaymentMethod:  o.PaymentMethod,
		TransactionID:  textPtr(o.TransactionID),
		OrderType:      o.OrderType,
		PickupTime:     timePtr(o.PickupTime),
		TokenNumber:    int4Ptr(o.TokenNumber),
		TokenStatus:    textPtr(o.TokenStatus),
		StallName:      textPtr(o.StallName),
		EventName:      textPtr(o.EventName),
		CreatedAt:      o.CreatedAt.Time,
		UpdatedAt:      o.UpdatedAt.Time,
	}
	for i, item := range items {
		resp.Items[i] = orderItemResponse{
			FoodItemID: item.FoodItemID,
			Name:       item.Name,
			Price:      formatMoney(item.Price),
			Quantity:   item.Quantity,
		}
	}
	return resp
}

// --- Error mapping ---

func orderErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrStallNotFound),
		errors.Is(err, service.ErrFoodItemNotFound),
		errors.Is(err, service.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, service.ErrIllegalTransition):
		return http.StatusConflict
	case isOrderValidationError(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func isOrderValidationError(err error) bool {
	for _, target := range []error{
		service.ErrEmptyItems,
		service.ErrInvalidPaymentMethod,
		service.ErrInvalidOrderType,
		service.ErrStallNotApproved,
		service.ErrStallClosed,
		service.ErrPreBookingDisabled,
		service.ErrPickupTimeRequired,
		service.ErrTransactionIDRequired,
		service.ErrInvalidQuantity,
		service.ErrFoodItemUnavailable,
		service.ErrFoodItemWrongStall,
		service.ErrInvalidStatus,
		service.ErrInvalidPaymentStatus,
		service.ErrInvalidTokenStatus,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func writeOrderError(w http.ResponseWriter, op string, err error) {
	status := orderErrorStatus(err)
	if status == http.StatusInternalServerError {
		writeInternal(w, op, err)
		return
	}
	writeError(w, status, err.Error())
}

// --- Helpers ---

// withItems loads line items for many orders in one query.
func (h *OrderHandler) withItems(ctx context.Context, orders []database.Order) ([]orderResponse, error) {
	resp := make([]orderResponse, len(orders))
	if len(orders) == 0 {
		return resp, nil
	}

	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	items, err := h.store.ListOrderItemsByOrders(ctx, ids)
	if err != nil {
		return nil, err
	}
	byOrder := make(map[uuid.UUID][]database.OrderItem, len(orders))
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}

	for i, o := range orders {
		resp[i] = toOrderResponse(o, byOrder[o.ID])
	}
	return resp, nil
}

// canViewOrder allows the customer who placed it, the stall's owner and admins.
func (h *OrderHandler) canViewOrder(ctx context.Context, p *auth.Principal, o database.Order) (bool, error) {
	if p.IsAdmin() || p.UserID == o.UserID {
		return true, nil
	}
	if p.Role != enum.UserRoleStallOwner {
		return false, nil
	}
	stall, err := h.store.GetStall(ctx, o.StallID)
	if err != nil {
		return false, err
	}
	return p.CanManage(stall.OwnerID), nil
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if !decodeBody(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	stallID, err := uuid.Parse(req.StallID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid stallId")
		return
	}

	items := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		foodID, err := uuid.Parse(item.FoodItem)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid foodItem ID: "+item.FoodItem)
			return
		}
		items[i] = service.CreateOrderItemRequest{FoodItemID: foodID, Quantity: item.Quantity}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		UserID:        p.UserID,
		StallID:       stallID,
		PaymentMethod: req.PaymentMethod,
		OrderType:     req.OrderType,
		TransactionID: req.TransactionID,
		PickupTime:    req.PickupTime,
		CouponCode:    req.CouponCode,
		Items:         items,
	})
	if err != nil {
		writeOrderError(w, "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(result.Order, result.Items))
}

// ListMine returns the caller's orders, newest first.
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	orders, err := h.store.ListOrdersByUser(r.Context(), p.UserID)
	if err != nil {
		writeInternal(w, "list my orders", err)
		return
	}
	resp, err := h.withItems(r.Context(), orders)
	if err != nil {
		writeInternal(w, "list order items", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListByStall returns a page of a stall's orders for its owner or an admin.
func (h *OrderHandler) ListByStall(w http.ResponseWriter, r *http.Request) {
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
		writeError(w, http.StatusForbidden, "Not authorized to view this stall's orders")
		return
	}

	limit, offset := pagination(r)
	orders, err := h.store.ListOrdersByStall(r.Context(), database.ListOrdersByStallParams{
		StallID: stallID,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		writeInternal(w, "list stall orders", err)
		return
	}
	resp, err := h.withItems(r.Context(), orders)
	if err != nil {
		writeInternal(w, "list order items", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns one order to its customer, its stall's owner or an admin.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	orderID, ok := urlUUID(w, r, "id", "order")
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

	allowed, err := h.canViewOrder(r.Context(), p, order)
	if err != nil {
		writeInternal(w, "check order access", err)
		return
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "Not authorized to view this order")
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), order.ID)
	if err != nil {
		writeInternal(w, "list order items", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order, items))
}

// UpdateStatus handles PUT /orders/{id}/status with any subset of
// status, paymentStatus and tokenStatus.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	orderID, ok := urlUUID(w, r, "id", "order")
	if !ok {
		return
	}

	var req updateStatusRequest
	if !decodeBody(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status == nil && req.PaymentStatus == nil && req.TokenStatus == nil {
		writeError(w, http.StatusBadRequest, "status, paymentStatus or tokenStatus is required")
		return
	}

	result, err := h.svc.UpdateStatus(r.Context(), service.UpdateStatusRequest{
		OrderID:       orderID,
		Actor:         p,
		Status:        req.Status,
		PaymentStatus: req.PaymentStatus,
		TokenStatus:   req.TokenStatus,
	})
	if err != nil {
		writeOrderError(w, "update order status", err)
		return
	}

	resp := statusUpdateResponse{orderResponse: toOrderResponse(result.Order, result.Items)}
	if result.Draw != nil {
		d := toLuckyDrawResponse(*result.Draw)
		resp.LuckyDraw = &d
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListAdmin returns all orders with customer details. Filters:
// customerName (substring, case-insensitive) and tokenId (exact token).
func (h *OrderHandler) ListAdmin(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	params := database.ListOrdersAdminParams{Limit: limit, Offset: offset}

	q := r.URL.Query()
	if s := strings.TrimSpace(q.Get("customerName")); s != "" {
		params.CustomerName = pgtype.Text{String: s, Valid: true}
	}
	if s := strings.TrimSpace(q.Get("tokenId")); s != "" {
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, "tokenId must be numeric")
			return
		}
		params.TokenNumber = pgtype.Int4{Int32: int32(n), Valid: true}
	}

	rows, err := h.store.ListOrdersAdmin(r.Context(), params)
	if err != nil {
		writeInternal(w, "list admin orders", err)
		return
	}

	orders := make([]database.Order, len(rows))
	for i, row := range rows {
		orders[i] = row.Order
	}
	withItems, err := h.withItems(r.Context(), orders)
	if err != nil {
		writeInternal(w, "list order items", err)
		return
	}

	resp := make([]adminOrderResponse, len(rows))
	for i, row := range rows {
		resp[i] = adminOrderResponse{
			orderResponse: withItems[i],
			CustomerName:  row.CustomerName,
			CustomerPhone: row.CustomerPhone,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
