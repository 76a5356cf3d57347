package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stallpass/api/internal/auth"
	"github.com/stallpass/api/internal/database"
	"github.com/stallpass/api/internal/handler"
	"github.com/stallpass/api/internal/service"
)

type mockDrawTriggerer struct {
	draw *database.LuckyDraw
	err  error
}

func (m *mockDrawTriggerer) Trigger(context.Context) (*database.LuckyDraw, error) {
	return m.draw, m.err
}

type mockDrawHistory struct {
	draws []database.LuckyDraw
}

func (m *mockDrawHistory) ListLuckyDraws(context.Context) ([]database.LuckyDraw, error) {
	return m.draws, nil
}

func setupDrawRouter(draws *mockDrawTriggerer, settings *mockSettingsService, p *auth.Principal) *chi.Mux {
	if settings == nil {
		settings = &mockSettingsService{}
	}
	history := &mockDrawHistory{draws: []database.LuckyDraw{
		{ID: uuid.New(), DrawNumber: 2, WinnerName: "Ravi"},
		{ID: uuid.New(), DrawNumber: 1, WinnerName: "Asha"},
	}}
	h := handler.NewLuckyDrawHandler(draws, settings, history)
	return newRouter(p, h.RegisterRoutes)
}

func TestLuckyDrawTrigger_Success(t *testing.T) {
	draw := &database.LuckyDraw{
		ID:          uuid.New(),
		DrawNumber:  1,
		WinnerName:  "Asha",
		WinnerPhone: "9876543210",
		WinnerEmail: text("asha@example.com"),
		StallName:   "Chaat Corner",
		DrawnAt:     pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
	rr := doRequest(t, setupDrawRouter(&mockDrawTriggerer{draw: draw}, nil, adminPrincipal()), "POST", "/luckydraw/trigger", nil)
	assertStatus(t, rr, http.StatusOK)

	body := decodeMap(t, rr)
	if body["message"] != "Lucky draw triggered successfully" {
		t.Errorf("message: got %v", body["message"])
	}
	got, _ := body["draw"].(map[string]interface{})
	if got["winnerName"] != "Asha" || got["winnerEmail"] != "asha@example.com" || got["drawNumber"] != float64(1) {
		t.Errorf("draw: got %v", got)
	}
}

func TestLuckyDrawTrigger_Preconditions(t *testing.T) {
	tests := []struct {
		err error
		msg string
	}{
		{service.ErrDrawDisabled, "Lucky draw is not enabled"},
		{service.ErrNoDrawStall, "No stall selected for lucky draw"},
		{fmt.Errorf("%w. Need %d, found %d", service.ErrNotEnoughOrders, 50, 10), "Not enough completed orders. Need 50, found 10"},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			rr := doRequest(t, setupDrawRouter(&mockDrawTriggerer{err: tt.err}, nil, adminPrincipal()), "POST", "/luckydraw/trigger", nil)
			assertStatus(t, rr, http.StatusBadRequest)
			assertMessage(t, rr, tt.msg)
		})
	}
}

func TestLuckyDrawHistory(t *testing.T) {
	rr := doRequest(t, setupDrawRouter(&mockDrawTriggerer{}, nil, adminPrincipal()), "GET", "/luckydraw/history", nil)
	assertStatus(t, rr, http.StatusOK)
	var draws []map[string]interface{}
	decodeJSON(t, rr, &draws)
	if len(draws) != 2 || draws[0]["drawNumber"] != float64(2) {
		t.Errorf("draws: got %v", draws)
	}
}

func TestLuckyDrawSettings_Update(t *testing.T) {
	stallID := uuid.New()
	settings := &mockSettingsService{current: database.SystemSetting{LuckyDrawThreshold: 50}}
	router := setupDrawRouter(&mockDrawTriggerer{}, settings, adminPrincipal())

	rr := doRequest(t, router, "PUT", "/luckydraw/settings", map[string]interface{}{
		"enabled":   true,
		"stallId":   stallID.String(),
		"threshold": 25,
	})
	assertStatus(t, rr, http.StatusOK)
	body := decodeMap(t, rr)
	if body["enabled"] != true || body["stallId"] != stallID.String() || body["threshold"] != float64(25) {
		t.Errorf("body: got %v", body)
	}

	rr = doRequest(t, router, "PUT", "/luckydraw/settings", map[string]interface{}{"stallId": ""})
	assertStatus(t, rr, http.StatusOK)
	if body := decodeMap(t, rr); body["stallId"] != nil {
		t.Errorf("stallId: got %v, want cleared", body["stallId"])
	}
	if p := settings.patches[1]; p.LuckyDrawStallID == nil || p.LuckyDrawStallID.Valid || p.LuckyDrawEnabled != nil {
		t.Errorf("clear patch: got %+v", p)
	}

	rr = doRequest(t, router, "PUT", "/luckydraw/settings", map[string]interface{}{"stallId": "nope"})
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestLuckyDrawSettings_Get(t *testing.T) {
	settings := &mockSettingsService{current: database.SystemSetting{LuckyDrawEnabled: true, LuckyDrawThreshold: 50, Version: 7}}
	rr := doRequest(t, setupDrawRouter(&mockDrawTriggerer{}, settings, adminPrincipal()), "GET", "/luckydraw/settings", nil)
	assertStatus(t, rr, http.StatusOK)
	body := decodeMap(t, rr)
	if body["enabled"] != true || body["threshold"] != float64(50) || body["stallId"] != nil || body["version"] != float64(7) {
		t.Errorf("body: got %v", body)
	}
}

func TestLuckyDrawReset_IsNoop(t *testing.T) {
	rr := doRequest(t, setupDrawRouter(&mockDrawTriggerer{err: service.ErrDrawDisabled}, nil, adminPrincipal()), "POST", "/luckydraw/reset", nil)
	assertStatus(t, rr, http.StatusOK)
}

func TestLuckyDraw_AdminOnly(t *testing.T) {
	router := setupDrawRouter(&mockDrawTriggerer{}, nil, ownerPrincipal(uuid.New()))
	for _, path := range []string{"/luckydraw/history", "/luckydraw/settings"} {
		rr := doRequest(t, router, "GET", path, nil)
		assertStatus(t, rr, http.StatusForbidden)
	}
}
