package database

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID             uuid.UUID          `json:"id"`
	Name           string             `json:"name"`
	Email          pgtype.Text        `json:"email"`
	Phone          string             `json:"phone"`
	HashedPassword string             `json:"hashed_password"`
	Role           string             `json:"role"`
	Branch         pgtype.Text        `json:"branch"`
	College        pgtype.Text        `json:"college"`
	StallID        pgtype.UUID        `json:"stall_id"`
	CreatedAt      pgtype.Timestamptz `json:"created_at"`
	UpdatedAt      pgtype.Timestamptz `json:"updated_at"`
}

type Stall struct {
	ID                uuid.UUID          `json:"id"`
	OwnerID           uuid.UUID          `json:"owner_id"`
	Name              string             `json:"name"`
	Description       pgtype.Text        `json:"description"`
	ImageUrl          pgtype.Text        `json:"image_url"`
	Phone             pgtype.Text        `json:"phone"`
	Location          pgtype.Text        `json:"location"`
	IsApproved        bool               `json:"is_approved"`
	IsOpen            bool               `json:"is_open"`
	PreBookingEnabled bool               `json:"pre_booking_enabled"`
	CreatedAt         pgtype.Timestamptz `json:"created_at"`
	UpdatedAt         pgtype.Timestamptz `json:"updated_at"`
}

type FoodItem struct {
	ID          uuid.UUID          `json:"id"`
	StallID     uuid.UUID          `json:"stall_id"`
	Name        string             `json:"name"`
	Description pgtype.Text        `json:"description"`
	Price       pgtype.Numeric     `json:"price"`
	ImageUrl    pgtype.Text        `json:"image_url"`
	Category    pgtype.Text        `json:"category"`
	IsAvailable bool               `json:"is_available"`
	IsVeg       bool               `json:"is_veg"`
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
	UpdatedAt   pgtype.Timestamptz `json:"updated_at"`
}

type Offer struct {
	ID                 uuid.UUID          `json:"id"`
	Title              string             `json:"title"`
	Description        pgtype.Text        `json:"description"`
	DiscountPercentage pgtype.Numeric     `json:"discount_percentage"`
	CouponCode         pgtype.Text        `json:"coupon_code"`
	StallID            pgtype.UUID        `json:"stall_id"`
	ValidUntil         pgtype.Timestamptz `json:"valid_until"`
	IsActive           bool               `json:"is_active"`
	CreatedAt          pgtype.Timestamptz `json:"created_at"`
	UpdatedAt          pgtype.Timestamptz `json:"updated_at"`
}

type Order struct {
	ID             uuid.UUID          `json:"id"`
	UserID         uuid.UUID          `json:"user_id"`
	StallID        uuid.UUID          `json:"stall_id"`
	Subtotal       pgtype.Numeric     `json:"subtotal"`
	DiscountAmount pgtype.Numeric     `json:"discount_amount"`
	TotalAmount    pgtype.Numeric     `json:"total_amount"`
	CouponCode     pgtype.Text        `json:"coupon_code"`
	Status         string             `json:"status"`
	PaymentStatus  string             `json:"payment_status"`
	PaymentMethod  string             `json:"payment_method"`
	TransactionID  pgtype.Text        `json:"transaction_id"`
	OrderType      string             `json:"order_type"`
	PickupTime     pgtype.Timestamptz `json:"pickup_time"`
	TokenNumber    pgtype.Int4        `json:"token_number"`
	TokenStatus    pgtype.Text        `json:"token_status"`
	StallName      pgtype.Text        `json:"stall_name"`
	EventName      pgtype.Text        `json:"event_name"`
	CreatedAt      pgtype.Timestamptz `json:"created_at"`
	UpdatedAt      pgtype.Timestamptz `json:"updated_at"`
}

type OrderItem struct {
	ID         uuid.UUID      `json:"id"`
	OrderID    uuid.UUID      `json:"order_id"`
	FoodItemID uuid.UUID      `json:"food_item_id"`
	Name       string         `json:"name"`
	Price      pgtype.Numeric `json:"price"`
	Quantity   int32          `json:"quantity"`
}

type Feedback struct {
	ID        uuid.UUID          `json:"id"`
	UserID    uuid.UUID          `json:"user_id"`
	OrderID   uuid.UUID          `json:"order_id"`
	StallID   uuid.UUID          `json:"stall_id"`
	Rating    int32              `json:"rating"`
	Comment   pgtype.Text        `json:"comment"`
	Response  pgtype.Text        `json:"response"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

type LuckyDraw struct {
	ID           uuid.UUID          `json:"id"`
	DrawNumber   int32              `json:"draw_number"`
	WinnerName   string             `json:"winner_name"`
	WinnerPhone  string             `json:"winner_phone"`
	WinnerEmail  pgtype.Text        `json:"winner_email"`
	WinnerBranch pgtype.Text        `json:"winner_branch"`
	OrderID      uuid.UUID          `json:"order_id"`
	StallID      uuid.UUID          `json:"stall_id"`
	StallName    string             `json:"stall_name"`
	DrawnAt      pgtype.Timestamptz `json:"drawn_at"`
}

type SystemSetting struct {
	ID                 int16              `json:"id"`
	UpiID              string             `json:"upi_id"`
	UpiQrImage         string             `json:"upi_qr_image"`
	LuckyDrawEnabled   bool               `json:"lucky_draw_enabled"`
	LuckyDrawStallID   pgtype.UUID        `json:"lucky_draw_stall_id"`
	LuckyDrawThreshold int32              `json:"lucky_draw_threshold"`
	Version            int32              `json:"version"`
	UpdatedAt          pgtype.Timestamptz `json:"updated_at"`
}
