package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "Pending"
	OrderStatusConfirmed = "Confirmed"
	OrderStatusPreparing = "Preparing"
	OrderStatusReady     = "Ready"
	OrderStatusCompleted = "Completed"
	OrderStatusCancelled = "Cancelled"
)

const (
	PaymentStatusPending = "Pending"
	PaymentStatusPaid    = "Paid"
	PaymentStatusFailed  = "Failed"
)

// Token status is NULL until a token is assigned.
const (
	TokenStatusActive    = "ACTIVE"
	TokenStatusDelivered = "DELIVERED"
	TokenStatusCancelled = "CANCELLED"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleCustomer   = "customer"
	UserRoleStallOwner = "stall_owner"
	UserRoleAdmin      = "admin"
)

const (
	OrderTypeLive       = "Live"
	OrderTypePreBooking = "Pre-booking"
)

const (
	PaymentMethodCash = "Cash"
	PaymentMethodUPI  = "UPI"
)

// ── Token range ──

const (
	TokenMin = 100000
	TokenMax = 999999
)
