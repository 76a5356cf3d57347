package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stallpass/api/internal/database"
)

const maxSettingsRetries = 3

var (
	ErrSettingsConflict = errors.New("Settings were changed by someone else, reload and retry")
	ErrInvalidThreshold = errors.New("Lucky draw threshold must be at least 1")
)

// SettingsStore is satisfied by *database.Queries.
type SettingsStore interface {
	GetSettings(ctx context.Context) (database.SystemSetting, error)
	UpdateSettings(ctx context.Context, arg database.UpdateSettingsParams) (database.SystemSetting, error)
	GetStall(ctx context.Context, id uuid.UUID) (database.Stall, error)
}

// SettingsPatch holds the fields to change; nil means keep.
// A non-nil LuckyDrawStallID with Valid=false clears the target stall.
// Version, when set, must match the stored version or the update fails.
type SettingsPatch struct {
	UpiID              *string
	UpiQrImage         *string
	LuckyDrawEnabled   *bool
	LuckyDrawStallID   *uuid.NullUUID
	LuckyDrawThreshold *int32
	Version            *int32
}

type SettingsService struct {
	store SettingsStore
}

func NewSettingsService(store SettingsStore) *SettingsService {
	return &SettingsService{store: store}
}

func (s *SettingsService) Get(ctx context.Context) (database.SystemSetting, error) {
	return s.store.GetSettings(ctx)
}

// Update applies patch with compare-and-swap on the version column. Without
// an explicit Version the read-modify-write is retried on a lost race.
func (s *SettingsService) Update(ctx context.Context, patch SettingsPatch) (database.SystemSetting, error) {
	if patch.LuckyDrawThreshold != nil && *patch.LuckyDrawThreshold < 1 {
		return database.SystemSetting{}, ErrInvalidThreshold
	}
	if patch.LuckyDrawStallID != nil && patch.LuckyDrawStallID.Valid {
		if _, err := s.store.GetStall(ctx, patch.LuckyDrawStallID.UUID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return database.SystemSetting{}, ErrStallNotFound
			}
			return database.SystemSetting{}, fmt.Errorf("get stall: %w", err)
		}
	}

	for attempt := 0; attempt < maxSettingsRetries; attempt++ {
		cur, err := s.store.GetSettings(ctx)
		if err != nil {
			return database.SystemSetting{}, fmt.Errorf("get settings: %w", err)
		}
		if patch.Version != nil && *patch.Version != cur.Version {
			return database.SystemSetting{}, ErrSettingsConflict
		}

		updated, err := s.store.UpdateSettings(ctx, applySettingsPatch(cur, patch))
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return database.SystemSetting{}, fmt.Errorf("update settings: %w", err)
		}
		if patch.Version != nil {
			return database.SystemSetting{}, ErrSettingsConflict
		}
	}
	return database.SystemSetting{}, ErrSettingsConflict
}

func applySettingsPatch(cur database.SystemSetting, p SettingsPatch) database.UpdateSettingsParams {
	params := database.UpdateSettingsParams{
		UpiID:              cur.UpiID,
		UpiQrImage:         cur.UpiQrImage,
		LuckyDrawEnabled:   cur.LuckyDrawEnabled,
		LuckyDrawStallID:   cur.LuckyDrawStallID,
		LuckyDrawThreshold: cur.LuckyDrawThreshold,
		Version:            cur.Version,
	}
	if p.UpiID != nil {
		params.UpiID = *p.UpiID
	}
	if p.UpiQrImage != nil {
		params.UpiQrImage = *p.UpiQrImage
	}
	if p.LuckyDrawEnabled != nil {
		params.LuckyDrawEnabled = *p.LuckyDrawEnabled
	}
	if p.LuckyDrawStallID != nil {
		params.LuckyDrawStallID = pgtype.UUID{Bytes: p.LuckyDrawStallID.UUID, Valid: p.LuckyDrawStallID.Valid}
	}
	if p.LuckyDrawThreshold != nil {
		params.LuckyDrawThreshold = *p.LuckyDrawThreshold
	}
	return params
}
