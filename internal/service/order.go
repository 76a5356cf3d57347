package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stallpass/api/internal/database"
	"github.com/stallpass/api/internal/enum"
	"github.com/stallpass/api/internal/notify"
)

// Errors returned by the order service. The text is shown to customers.
var (
	ErrEmptyItems            = errors.New("No items in order")
	ErrInvalidPaymentMethod  = errors.New("Invalid payment method")
	ErrInvalidOrderType      = errors.New("Invalid order type")
	ErrStallNotFound         = errors.New("Stall not found")
	ErrStallNotApproved      = errors.New("Stall is not approved")
	ErrStallClosed           = errors.New("Stall is currently closed")
	ErrPreBookingDisabled    = errors.New("Pre-booking is not enabled for this stall")
	ErrPickupTimeRequired    = errors.New("Pickup time is required for pre-booking")
	ErrTransactionIDRequired = errors.New("Transaction ID required for UPI payment")
	ErrInvalidQuantity       = errors.New("Quantity must be at least 1")
	ErrFoodItemNotFound      = errors.New("Food item not found")
	ErrFoodItemUnavailable   = errors.New("is currently unavailable")
	ErrFoodItemWrongStall    = errors.New("does not belong to this stall")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods the order engine needs.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetStall(ctx context.Context, id uuid.UUID) (database.Stall, error)
	GetFoodItem(ctx context.Context, id uuid.UUID) (database.FoodItem, error)
	FindOfferForCoupon(ctx context.Context, arg database.FindOfferForCouponParams) (database.Offer, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderState(ctx context.Context, arg database.UpdateOrderStateParams) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// DrawTrigger runs the automatic lucky draw for a freshly completed order.
type DrawTrigger interface {
	OnOrderCompleted(ctx context.Context, order database.Order) (*database.LuckyDraw, error)
}

// CreateOrderRequest is the checkout input.
type CreateOrderRequest struct {
	UserID        uuid.UUID
	StallID       uuid.UUID
	PaymentMethod string
	OrderType     string
	TransactionID string
	PickupTime    *time.Time
	CouponCode    string
	Items         []CreateOrderItemRequest
}

type CreateOrderItemRequest struct {
	FoodItemID uuid.UUID
	Quantity   int32
}

// OrderResult is an order with its line items.
type OrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderOptions tunes the engine. Zero values fall back to defaults.
type OrderOptions struct {
	EventName         string
	StrictTransitions bool
	Draws             DrawTrigger
	Events            notify.Publisher
	Now               func() time.Time
	NextToken         func() int32
}

// OrderService handles checkout and the order state machine.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	opts     OrderOptions
}

func NewOrderService(pool TxBeginner, newStore NewOrderStore, opts OrderOptions) *OrderService {
	if opts.Events == nil {
		opts.Events = notify.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NextToken == nil {
		opts.NextToken = randomToken
	}
	return &OrderService{pool: pool, newStore: newStore, opts: opts}
}

// CreateOrder validates the cart, prices it from current menu prices,
// applies an optional coupon and stores the order atomically.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	// --- Validate items non-empty ---
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	paymentMethod, err := normalizePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	orderType, err := normalizeOrderType(req.OrderType)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Validate stall ---
	stall, err := store.GetStall(ctx, req.StallID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStallNotFound
		}
		return nil, fmt.Errorf("get stall: %w", err)
	}
	if !stall.IsApproved {
		return nil, ErrStallNotApproved
	}
	if !stall.IsOpen {
		return nil, ErrStallClosed
	}

	// --- Validate pre-booking ---
	pickupTime := pgtype.Timestamptz{}
	if orderType == enum.OrderTypePreBooking {
		if !stall.PreBookingEnabled {
			return nil, ErrPreBookingDisabled
		}
		if req.PickupTime == nil {
			return nil, ErrPickupTimeRequired
		}
		pickupTime = pgtype.Timestamptz{Time: *req.PickupTime, Valid: true}
	}

	// --- Validate payment ---
	transactionID := strings.TrimSpace(req.TransactionID)
	if paymentMethod == enum.PaymentMethodUPI && transactionID == "" {
		return nil, ErrTransactionIDRequired
	}

	// --- Process items: validate + snapshot prices ---
	subtotal := decimal.Zero
	lines := make([]database.CreateOrderItemParams, 0, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		food, err := store.GetFoodItem(ctx, item.FoodItemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%w: %s", ErrFoodItemNotFound, item.FoodItemID)
			}
			return nil, fmt.Errorf("item[%d]: get food item: %w", i, err)
		}
		if food.StallID != stall.ID {
			return nil, fmt.Errorf("%s %w", food.Name, ErrFoodItemWrongStall)
		}
		if !food.IsAvailable {
			return nil, fmt.Errorf("%s %w", food.Name, ErrFoodItemUnavailable)
		}

		price := numericToDecimal(food.Price)
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt32(item.Quantity)))
		lines = append(lines, database.CreateOrderItemParams{
			FoodItemID: food.ID,
			Name:       food.Name,
			Price:      food.Price,
			Quantity:   item.Quantity,
		})
	}

	// --- Coupon ---
	couponCode := strings.ToUpper(strings.TrimSpace(req.CouponCode))
	discount := decimal.Zero
	if couponCode != "" {
		offer, err := store.FindOfferForCoupon(ctx, database.FindOfferForCouponParams{
			CouponCode: couponCode,
			StallID:    stall.ID,
			Now:        s.opts.Now(),
		})
		switch {
		case err == nil:
			discount = couponDiscount(subtotal, numericToDecimal(offer.DiscountPercentage))
		case errors.Is(err, pgx.ErrNoRows):
			// unknown or expired codes never block checkout
		default:
			return nil, fmt.Errorf("find offer: %w", err)
		}
	}

	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		UserID:         req.UserID,
		StallID:        stall.ID,
		Subtotal:       decimalToNumeric(subtotal),
		DiscountAmount: decimalToNumeric(discount),
		TotalAmount:    decimalToNumeric(total),
		CouponCode:     optionalText(couponCode),
		PaymentMethod:  paymentMethod,
		TransactionID:  optionalText(transactionID),
		OrderType:      orderType,
		PickupTime:     pickupTime,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]database.OrderItem, 0, len(lines))
	for i, line := range lines {
		line.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, line)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: create order item: %w", i, err)
		}
		items = append(items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.opts.Events.Publish(ctx, notify.OrderEvent(notify.OrderCreated, order))
	return &OrderResult{Order: order, Items: items}, nil
}

// couponDiscount is pct% of subtotal rounded to whole currency units,
// never more than the subtotal.
func couponDiscount(subtotal, pct decimal.Decimal) decimal.Decimal {
	d := subtotal.Mul(pct).Div(decimal.NewFromInt(100)).Round(0)
	if d.GreaterThan(subtotal) {
		return subtotal
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func normalizePaymentMethod(v string) (string, error) {
	switch v {
	case "":
		return enum.PaymentMethodCash, nil
	case enum.PaymentMethodCash, enum.PaymentMethodUPI:
		return v, nil
	}
	return "", ErrInvalidPaymentMethod
}

func normalizeOrderType(v string) (string, error) {
	switch v {
	case "":
		return enum.OrderTypeLive, nil
	case enum.OrderTypeLive, enum.OrderTypePreBooking:
		return v, nil
	}
	return "", ErrInvalidOrderType
}
