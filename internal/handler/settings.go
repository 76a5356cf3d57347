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

// SettingsServicer is satisfied by *service.SettingsService.
type SettingsServicer interface {
	Get(ctx context.Context) (database.SystemSetting, error)
	Update(ctx context.Context, patch service.SettingsPatch) (database.SystemSetting, error)
}

// SettingsHandler serves the payment display settings.
type SettingsHandler struct {
	svc SettingsServicer
}

func NewSettingsHandler(svc SettingsServicer) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

func (h *SettingsHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/settings", h.Get)
}

// RegisterRoutes registers the admin update. Requires Authenticate.
func (h *SettingsHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireRole(enum.UserRoleAdmin)).Put("/settings", h.Update)
}

type paymentSettingsRequest struct {
	UpiID      *string `json:"upiId"`
	UpiQrImage *string `json:"upiQrImage"`
	Version    *int32  `json:"version"`
}

type paymentSettingsResponse struct {
	UpiID      string    `json:"upiId"`
	UpiQrImage string    `json:"upiQrImage"`
	Version    int32     `json:"version"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toPaymentSettingsResponse(s database.SystemSetting) paymentSettingsResponse {
	return paymentSettingsResponse{
		UpiID:      s.UpiID,
		UpiQrImage: s.UpiQrImage,
		Version:    s.Version,
		UpdatedAt:  s.UpdatedAt.Time,
	}
}

// settingsErrorStatus maps settings service errors to HTTP status codes.
func settingsErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrSettingsConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidThreshold):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrStallNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeSettingsError(w http.ResponseWriter, op string, err error) {
	status := settingsErrorStatus(err)
	if status == http.StatusInternalServerError {
		writeInternal(w, op, err)
		return
	}
	writeError(w, status, err.Error())
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Get(r.Context())
	if err != nil {
		writeInternal(w, "get settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentSettingsResponse(s))
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req paymentSettingsRequest
	if !decodeBody(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s, err := h.svc.Update(r.Context(), service.SettingsPatch{
		UpiID:      req.UpiID,
		UpiQrImage: req.UpiQrImage,
		Version:    req.Version,
	})
	if err != nil {
		writeSettingsError(w, "update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentSettingsResponse(s))
}

// parseStallRef turns an optional stall id into a patch value.
// An empty string clears the stall.
func parseStallRef(raw *string) (*uuid.NullUUID, error) {
	if raw == nil {
		return nil, nil
	}
	if *raw == "" {
		return &uuid.NullUUID{}, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, err
	}
	return &uuid.NullUUID{UUID: id, Valid: true}, nil
}
