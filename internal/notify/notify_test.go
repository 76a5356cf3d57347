package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stallpass/api/internal/database"
)

type recorder struct {
	events []Event
}

func (r *recorder) Publish(_ context.Context, e Event) {
	r.events = append(r.events, e)
}

func TestFanoutPublishesToAll(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	f := Fanout{a, Nop{}, b}

	f.Publish(context.Background(), Event{Type: OrderCreated})

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("expected one event each, got %d and %d", len(a.events), len(b.events))
	}
}

func TestOrderEventPayload(t *testing.T) {
	order := database.Order{
		ID:            uuid.New(),
		StallID:       uuid.New(),
		Status:        "Confirmed",
		PaymentStatus: "Paid",
		OrderType:     "Live",
		TokenNumber:   pgtype.Int4{Int32: 123456, Valid: true},
		TokenStatus:   pgtype.Text{String: "ACTIVE", Valid: true},
	}

	e := OrderEvent(TokenAssigned, order)
	if e.Type != TokenAssigned {
		t.Errorf("type: got %q", e.Type)
	}
	if e.StallID != order.StallID {
		t.Errorf("stall: got %v, want %v", e.StallID, order.StallID)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(e.Payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["tokenNumber"] != float64(123456) {
		t.Errorf("tokenNumber: got %v", got["tokenNumber"])
	}
	if got["tokenStatus"] != "ACTIVE" {
		t.Errorf("tokenStatus: got %v", got["tokenStatus"])
	}
	if _, ok := got["userId"]; ok {
		t.Error("payload must not carry the customer id")
	}
}

func TestOrderEventWithoutToken(t *testing.T) {
	e := OrderEvent(OrderCreated, database.Order{ID: uuid.New(), Status: "Pending"})

	var got map[string]interface{}
	if err := json.Unmarshal(e.Payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["tokenNumber"] != nil {
		t.Errorf("tokenNumber: got %v, want null", got["tokenNumber"])
	}
}
