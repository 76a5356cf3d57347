package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/stallpass/api/internal/database"
	"github.com/stallpass/api/internal/notify"
)

// BoardSnapshot is the first frame a new subscriber receives.
const BoardSnapshot = "board.snapshot"

// BoardSource lists the tokens currently shown on a stall's board.
// Satisfied by *database.Queries.
type BoardSource interface {
	ListActiveTokensByStall(ctx context.Context, stallID uuid.UUID) ([]database.Order, error)
}

// snapshotFrame encodes the ACTIVE tokens of a stall as one frame. Each
// entry has the same shape as a live order event payload.
func snapshotFrame(ctx context.Context, src BoardSource, stallID uuid.UUID) ([]byte, error) {
	orders, err := src.ListActiveTokensByStall(ctx, stallID)
	if err != nil {
		return nil, fmt.Errorf("list active tokens: %w", err)
	}

	tokens := make([]json.RawMessage, 0, len(orders))
	for _, o := range orders {
		tokens = append(tokens, notify.OrderEvent(BoardSnapshot, o).Payload)
	}
	payload, err := json.Marshal(struct {
		StallID uuid.UUID         `json:"stallId"`
		Tokens  []json.RawMessage `json:"tokens"`
	}{stallID, tokens})
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Type: BoardSnapshot, Payload: payload})
}
