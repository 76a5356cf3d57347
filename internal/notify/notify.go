// Package notify fans order lifecycle events out to live subscribers
// (the stall token board) and, optionally, a message broker.
package notify

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/stallpass/api/internal/database"
)

const (
	OrderCreated  = "order.created"
	OrderUpdated  = "order.updated"
	TokenAssigned = "token.assigned"
	DrawCompleted = "luckydraw.drawn"
)

type Event struct {
	Type    string
	StallID uuid.UUID
	Payload json.RawMessage
}

type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Fanout publishes each event to every publisher in order.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e Event) {
	for _, p := range f {
		p.Publish(ctx, e)
	}
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// orderPayload carries no customer data; token boards are visible to any
// signed-in user.
type orderPayload struct {
	OrderID       uuid.UUID `json:"orderId"`
	StallID       uuid.UUID `json:"stallId"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"paymentStatus"`
	OrderType     string    `json:"orderType"`
	TokenNumber   *int32    `json:"tokenNumber"`
	TokenStatus   *string   `json:"tokenStatus"`
}

// OrderEvent builds an event of the given type from an order row.
func OrderEvent(typ string, o database.Order) Event {
	p := orderPayload{
		OrderID:       o.ID,
		StallID:       o.StallID,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		OrderType:     o.OrderType,
	}
	if o.TokenNumber.Valid {
		n := o.TokenNumber.Int32
		p.TokenNumber = &n
	}
	if o.TokenStatus.Valid {
		s := o.TokenStatus.String
		p.TokenStatus = &s
	}
	data, err := json.Marshal(p)
	if err != nil {
		log.Printf("ERROR: marshal order event: %v", err)
	}
	return Event{Type: typ, StallID: o.StallID, Payload: data}
}

type drawPayload struct {
	DrawNumber int32     `json:"drawNumber"`
	StallID    uuid.UUID `json:"stallId"`
	StallName  string    `json:"stallName"`
	WinnerName string    `json:"winnerName"`
}

// DrawEvent announces a lucky-draw winner by name only.
func DrawEvent(d database.LuckyDraw) Event {
	data, err := json.Marshal(drawPayload{
		DrawNumber: d.DrawNumber,
		StallID:    d.StallID,
		StallName:  d.StallName,
		WinnerName: d.WinnerName,
	})
	if err != nil {
		log.Printf("ERROR: marshal draw event: %v", err)
	}
	return Event{Type: DrawCompleted, StallID: d.StallID, Payload: data}
}
