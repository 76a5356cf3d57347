package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stallpass/api/internal/database"
	"github.com/stallpass/api/internal/enum"
	"github.com/stallpass/api/internal/middleware"
	"github.com/stallpass/api/internal/service"
)

// DrawTriggerer is satisfied by *service.LuckyDrawService.
type DrawTriggerer interface {
	Trigger(ctx context.Context) (*database.LuckyDraw, error)
}

// LuckyDrawStore defines the database methods needed by draw history reads.
type LuckyDrawStore interface {
	ListLuckyDraws(ctx context.Context) ([]database.LuckyDraw, error)
}

// LuckyDrawHandler serves the admin lucky draw endpoints.
type LuckyDrawHandler struct {
	draws    DrawTriggerer
	settings SettingsServicer
	store    LuckyDrawStore
}

func NewLuckyDrawHandler(draws DrawTriggerer, settings SettingsServicer, store LuckyDrawStore) *LuckyDrawHandler {
	return &LuckyDrawHandler{draws: draws, settings: settings, store: store}
}

// RegisterRoutes registers admin draw endpoints. Requires Authenticate.
func (h *LuckyDrawHandler) RegisterRoutes(r chi.Router) {
	r.Route("/luckydraw", func(r chi.Router) {
		r.Use(middleware.RequireRole(enum.UserRoleAdmin))
		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.UpdateSettings)
		r.Get("/history", h.History)
		r.Post("/trigger", h.Trigger)
		r.Post("/reset", h.Reset)
	})
}

// --- Request / Response types ---

type drawSettingsRequest struct {
	Enabled   *bool   `json:"enabled"`
	StallID   *string `json:"stallId"`
	Threshold *int32  `json:"threshold"`
	Version   *int32  `json:"version"`
}

type drawSettingsResponse struct {
	Enabled   bool       `json:"enabled"`
	StallID   *uuid.UUID `json:"stallId"`
	Threshold int32      `json:"threshold"`
	Version   int32      `json:"version"`
}

type luckyDrawResponse struct {
	ID           uuid.UUID `json:"id"`
	DrawNumber   int32     `json:"drawNumber"`
	WinnerName   string    `json:"winnerName"`
	WinnerPhone  string    `json:"winnerPhone"`
	WinnerEmail  *string   `json:"winnerEmail"`
	WinnerBranch *string   `json:"winnerBranch"`
	OrderID      uuid.UUID `json:"orderId"`
	StallID      uuid.UUID `json:"stallId"`
	StallName    string    `json:"stallName"`
	DrawnAt      time.Time `json:"drawnAt"`
}

type triggerResponse struct {
	Message string            `json:"message"`
	Draw    luckyDrawResponse `json:"draw"`
}

func toDrawSettingsResponse(s database.SystemSetting) drawSettingsResponse {
	return drawSettingsResponse{
		Enabled:   s.LuckyDrawEnabled,
		StallID:   uuidPtr(s.LuckyDrawStallID),
		Threshold: s.LuckyDrawThreshold,
		Version:   s.Version,
	}
}

func toLuckyDrawResponse(d database.LuckyDraw) luckyDrawResponse {
	return luckyDrawResponse{
		ID:           d.ID,
		DrawNumber:   d.DrawNumber,
		WinnerName:   d.WinnerName,
		WinnerPhone:  d.WinnerPhone,
		WinnerEmail:  textPtr(d.WinnerEmail),
		WinnerBranch: textPtr(d.WinnerBranch),
		OrderID:      d.OrderID,
		StallID:      d.StallID,
		StallName:    d.StallName,
		DrawnAt:      d.DrawnAt.Time,
	}
}

// --- Handlers ---

func (h *LuckyDrawHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Get(r.Context())
	if err != nil {
		writeInternal(w, "get draw settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toDrawSettingsResponse(s))
}

func (h *LuckyDrawHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req drawSettingsRequest
	if !decodeBody(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	stall, err := parseStallRef(req.StallID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid stall ID")
		return
	}

	s, err := h.settings.Update(r.Context(), service.SettingsPatch{
		LuckyDrawEnabled:   req.Enabled,
		LuckyDrawStallID:   stall,
		LuckyDrawThreshold: req.Threshold,
		Version:            req.Version,
	})
	if err != nil {
		writeSettingsError(w, "update draw settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toDrawSettingsResponse(s))
}

func (h *LuckyDrawHandler) History(w http.ResponseWriter, r *http.Request) {
	draws, err := h.store.ListLuckyDraws(r.Context())
	if err != nil {
		writeInternal(w, "list lucky draws", err)
		return
	}
	resp := make([]luckyDrawResponse, len(draws))
	for i, d := range draws {
		resp[i] = toLuckyDrawResponse(d)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *LuckyDrawHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	draw, err := h.draws.Trigger(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDrawDisabled),
			errors.Is(err, service.ErrNoDrawStall),
			errors.Is(err, service.ErrNotEnoughOrders):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeInternal(w, "trigger lucky draw", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, triggerResponse{
		Message: "Lucky draw triggered successfully",
		Draw:    toLuckyDrawResponse(*draw),
	})
}

// Reset is accepted but leaves draw history and counters untouched.
func (h *LuckyDrawHandler) Reset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Lucky draw reset successfully"})
}
