package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stallpass/api/internal/auth"
	"github.com/stallpass/api/internal/database"
	"github.com/stallpass/api/internal/enum"
	"github.com/stallpass/api/internal/notify"
)

const maxTokenRetries = 5

var (
	ErrOrderNotFound        = errors.New("Order not found")
	ErrNotAuthorized        = errors.New("Not authorized to update this order")
	ErrInvalidStatus        = errors.New("Invalid order status")
	ErrInvalidPaymentStatus = errors.New("Invalid payment status")
	ErrInvalidTokenStatus   = errors.New("Invalid token status")
	ErrIllegalTransition    = errors.New("Illegal order status transition")
	ErrTokenSpaceExhausted  = errors.New("could not allocate a unique token number")
)

// UpdateStatusRequest carries any subset of the three status fields.
// Nil fields are left unchanged.
type UpdateStatusRequest struct {
	OrderID       uuid.UUID
	Actor         *auth.Principal
	Status        *string
	PaymentStatus *string
	TokenStatus   *string
}

type UpdateStatusResult struct {
	OrderResult
	TokenAssigned bool
	// Draw is set when this update completed the order that tipped a lucky draw.
	Draw *database.LuckyDraw
}

// forwardTransitions is only enforced when StrictTransitions is on.
// Terminal states have no entry.
var forwardTransitions = map[string][]string{
	enum.OrderStatusPending:   {enum.OrderStatusConfirmed, enum.OrderStatusPreparing, enum.OrderStatusReady, enum.OrderStatusCompleted, enum.OrderStatusCancelled},
	enum.OrderStatusConfirmed: {enum.OrderStatusPreparing, enum.OrderStatusReady, enum.OrderStatusCompleted, enum.OrderStatusCancelled},
	enum.OrderStatusPreparing: {enum.OrderStatusReady, enum.OrderStatusCompleted, enum.OrderStatusCancelled},
	enum.OrderStatusReady:     {enum.OrderStatusCompleted, enum.OrderStatusCancelled},
}

// UpdateStatus applies status, then payment status, then token status to an
// order under a row lock. Marking a payment Paid may assign a pickup token;
// completing an order may trigger the lucky draw after commit.
func (s *OrderService) UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*UpdateStatusResult, error) {
	if req.Status != nil && !isOrderStatus(*req.Status) {
		return nil, ErrInvalidStatus
	}
	if req.PaymentStatus != nil && !isPaymentStatus(*req.PaymentStatus) {
		return nil, ErrInvalidPaymentStatus
	}
	if req.TokenStatus != nil && !isTokenStatus(*req.TokenStatus) {
		return nil, ErrInvalidTokenStatus
	}

	// Retry loop: a freshly drawn token can collide with one already issued.
	var lastErr error
	for attempt := 0; attempt < maxTokenRetries; attempt++ {
		result, err := s.updateStatusTx(ctx, req)
		if err == nil {
			s.afterStatusCommit(ctx, result)
			return result, nil
		}
		if isTokenConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("%w: %v", ErrTokenSpaceExhausted, lastErr)
}

func (s *OrderService) updateStatusTx(ctx context.Context, req UpdateStatusRequest) (*UpdateStatusResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	stall, err := store.GetStall(ctx, order.StallID)
	if err != nil {
		return nil, fmt.Errorf("get stall: %w", err)
	}
	if !req.Actor.CanManage(stall.OwnerID) {
		return nil, ErrNotAuthorized
	}

	next := nextOrderState(order, req, s.opts.Now())
	if s.opts.StrictTransitions {
		if next, err = strictState(order, next); err != nil {
			return nil, err
		}
	}

	params := database.UpdateOrderStateParams{
		ID:            order.ID,
		Status:        next.status,
		PaymentStatus: next.paymentStatus,
		TokenNumber:   order.TokenNumber,
		TokenStatus:   next.tokenStatus,
		StallName:     order.StallName,
		EventName:     order.EventName,
	}
	if next.needsToken {
		params.TokenNumber = pgtype.Int4{Int32: s.opts.NextToken(), Valid: true}
		params.StallName = pgtype.Text{String: stall.Name, Valid: true}
		params.EventName = optionalText(s.opts.EventName)
	}

	updated, err := store.UpdateOrderState(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	items, err := store.ListOrderItemsByOrder(ctx, updated.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &UpdateStatusResult{
		OrderResult:   OrderResult{Order: updated, Items: items},
		TokenAssigned: next.needsToken,
	}, nil
}

// afterStatusCommit publishes events and runs the lucky draw. Nothing here
// can fail the update that already committed.
func (s *OrderService) afterStatusCommit(ctx context.Context, result *UpdateStatusResult) {
	order := result.Order
	s.opts.Events.Publish(ctx, notify.OrderEvent(notify.OrderUpdated, order))
	if result.TokenAssigned {
		s.opts.Events.Publish(ctx, notify.OrderEvent(notify.TokenAssigned, order))
	}

	if order.Status != enum.OrderStatusCompleted || s.opts.Draws == nil {
		return
	}
	draw, err := s.opts.Draws.OnOrderCompleted(ctx, order)
	if err != nil {
		log.Printf("ERROR: lucky draw check after order %s: %v", order.ID, err)
		return
	}
	if draw != nil {
		result.Draw = draw
		s.opts.Events.Publish(ctx, notify.DrawEvent(*draw))
	}
}

type orderState struct {
	status        string
	paymentStatus string
	tokenStatus   pgtype.Text
	needsToken    bool
}

// nextOrderState is the pure state machine: status, then payment (with
// token assignment), then token status.
func nextOrderState(o database.Order, req UpdateStatusRequest, now time.Time) orderState {
	st := orderState{
		status:        o.Status,
		paymentStatus: o.PaymentStatus,
		tokenStatus:   o.TokenStatus,
	}

	if req.Status != nil {
		st.status = *req.Status
	}

	if req.PaymentStatus != nil {
		st.paymentStatus = *req.PaymentStatus
		if st.paymentStatus == enum.PaymentStatusPaid && !o.TokenNumber.Valid && pickupDue(o, now) {
			st.needsToken = true
			st.tokenStatus = pgtype.Text{String: enum.TokenStatusActive, Valid: true}
			if st.status == enum.OrderStatusPending {
				st.status = enum.OrderStatusConfirmed
			}
		}
	}

	if req.TokenStatus != nil {
		st.tokenStatus = pgtype.Text{String: *req.TokenStatus, Valid: true}
		switch *req.TokenStatus {
		case enum.TokenStatusDelivered:
			st.status = enum.OrderStatusCompleted
		case enum.TokenStatusCancelled:
			st.status = enum.OrderStatusCancelled
		}
	}

	return st
}

// pickupDue reports whether a paid order may receive its token now.
// Pre-bookings wait until their pickup time.
func pickupDue(o database.Order, now time.Time) bool {
	if o.OrderType != enum.OrderTypePreBooking || !o.PickupTime.Valid {
		return true
	}
	return !now.Before(o.PickupTime.Time)
}

// strictState applies the strict transition table to a computed state.
// Terminal order and token states never move, and a terminal order is
// never issued a token.
func strictState(o database.Order, next orderState) (orderState, error) {
	if !canTransition(o.Status, next.status) {
		return next, fmt.Errorf("%w: %s to %s", ErrIllegalTransition, o.Status, next.status)
	}
	if isTerminalToken(o.TokenStatus) && next.tokenStatus != o.TokenStatus {
		return next, fmt.Errorf("%w: token %s to %s", ErrIllegalTransition, o.TokenStatus.String, next.tokenStatus.String)
	}
	if next.needsToken && isTerminalStatus(o.Status) {
		next.needsToken = false
		next.tokenStatus = o.TokenStatus
	}
	return next, nil
}

func isTerminalStatus(s string) bool {
	return s == enum.OrderStatusCompleted || s == enum.OrderStatusCancelled
}

func isTerminalToken(t pgtype.Text) bool {
	return t.Valid && (t.String == enum.TokenStatusDelivered || t.String == enum.TokenStatusCancelled)
}

func canTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, allowed := range forwardTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func isTokenConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_token_number_key"
	}
	return false
}

func randomToken() int32 {
	return enum.TokenMin + rand.Int32N(enum.TokenMax-enum.TokenMin+1)
}

func isOrderStatus(s string) bool {
	switch s {
	case enum.OrderStatusPending, enum.OrderStatusConfirmed, enum.OrderStatusPreparing,
		enum.OrderStatusReady, enum.OrderStatusCompleted, enum.OrderStatusCancelled:
		return true
	}
	return false
}

func isPaymentStatus(s string) bool {
	switch s {
	case enum.PaymentStatusPending, enum.PaymentStatusPaid, enum.PaymentStatusFailed:
		return true
	}
	return false
}

func isTokenStatus(s string) bool {
	switch s {
	case enum.TokenStatusActive, enum.TokenStatusDelivered, enum.TokenStatusCancelled:
		return true
	}
	return false
}
