package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stallpass/api/internal/database"
)

var (
	ErrDrawDisabled    = errors.New("Lucky draw is not enabled")
	ErrNoDrawStall     = errors.New("No stall selected for lucky draw")
	ErrNotEnoughOrders = errors.New("Not enough completed orders")
)

// LuckyDrawStore defines the DB methods used to run a draw.
// Satisfied by *database.Queries.
type LuckyDrawStore interface {
	GetSettingsForUpdate(ctx context.Context) (database.SystemSetting, error)
	GetLatestLuckyDraw(ctx context.Context) (database.LuckyDraw, error)
	CountDrawEligibleOrders(ctx context.Context, arg database.DrawEligibilityParams) (int64, error)
	ListDrawEligibleOrders(ctx context.Context, arg database.ListDrawEligibleOrdersParams) ([]database.ListDrawEligibleOrdersRow, error)
	CreateLuckyDraw(ctx context.Context, arg database.CreateLuckyDrawParams) (database.LuckyDraw, error)
}

type NewLuckyDrawStore func(db database.DBTX) LuckyDrawStore

// LuckyDrawService picks a winner once the target stall has accumulated
// threshold completed, paid orders since the previous draw.
type LuckyDrawService struct {
	pool     TxBeginner
	newStore NewLuckyDrawStore
	pick     func(n int) int
}

func NewLuckyDrawService(pool TxBeginner, newStore NewLuckyDrawStore) *LuckyDrawService {
	return &LuckyDrawService{pool: pool, newStore: newStore, pick: rand.IntN}
}

// OnOrderCompleted is the automatic trigger. Every precondition that fails
// is a silent no-op and returns (nil, nil).
func (s *LuckyDrawService) OnOrderCompleted(ctx context.Context, order database.Order) (*database.LuckyDraw, error) {
	return s.draw(ctx, &order.StallID)
}

// Trigger is the admin's manual draw. Unmet preconditions are errors.
func (s *LuckyDrawService) Trigger(ctx context.Context) (*database.LuckyDraw, error) {
	return s.draw(ctx, nil)
}

// draw runs under the settings row lock so concurrent triggers serialize.
// completedStall is nil for a manual trigger.
func (s *LuckyDrawService) draw(ctx context.Context, completedStall *uuid.UUID) (*database.LuckyDraw, error) {
	manual := completedStall == nil

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	settings, err := store.GetSettingsForUpdate(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	// --- Preconditions ---
	if !settings.LuckyDrawEnabled {
		if manual {
			return nil, ErrDrawDisabled
		}
		return nil, nil
	}
	if !settings.LuckyDrawStallID.Valid {
		if manual {
			return nil, ErrNoDrawStall
		}
		return nil, nil
	}
	target := uuid.UUID(settings.LuckyDrawStallID.Bytes)
	if !manual && *completedStall != target {
		return nil, nil
	}

	// --- Window since the previous draw ---
	after := pgtype.Timestamptz{}
	nextNumber := int32(1)
	last, err := store.GetLatestLuckyDraw(ctx)
	switch {
	case err == nil:
		after = last.DrawnAt
		nextNumber = last.DrawNumber + 1
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return nil, fmt.Errorf("get latest draw: %w", err)
	}

	threshold := settings.LuckyDrawThreshold
	count, err := store.CountDrawEligibleOrders(ctx, database.DrawEligibilityParams{
		StallID: target,
		After:   after,
	})
	if err != nil {
		return nil, fmt.Errorf("count eligible orders: %w", err)
	}
	if count < int64(threshold) {
		if manual {
			return nil, fmt.Errorf("%w. Need %d, found %d", ErrNotEnoughOrders, threshold, count)
		}
		return nil, nil
	}

	candidates, err := store.ListDrawEligibleOrders(ctx, database.ListDrawEligibleOrdersParams{
		StallID: target,
		After:   after,
		Limit:   threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("list eligible orders: %w", err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("eligible orders vanished between count and list")
	}

	// --- Pick and record winner ---
	winner := candidates[s.pick(len(candidates))]
	draw, err := store.CreateLuckyDraw(ctx, database.CreateLuckyDrawParams{
		DrawNumber:   nextNumber,
		WinnerName:   winner.Name,
		WinnerPhone:  winner.Phone,
		WinnerEmail:  winner.Email,
		WinnerBranch: winner.Branch,
		OrderID:      winner.OrderID,
		StallID:      target,
		StallName:    winner.StallName,
	})
	if err != nil {
		return nil, fmt.Errorf("create draw: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &draw, nil
}
