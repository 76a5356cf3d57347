package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const settingsColumns = `id, upi_id, upi_qr_image, lucky_draw_enabled, lucky_draw_stall_id, lucky_draw_threshold, version, updated_at`

func settingsScanTargets(i *SystemSetting) []any {
	return []any{
		&i.ID,
		&i.UpiID,
		&i.UpiQrImage,
		&i.LuckyDrawEnabled,
		&i.LuckyDrawStallID,
		&i.LuckyDrawThreshold,
		&i.Version,
		&i.UpdatedAt,
	}
}

const getSettings = `-- name: GetSettings :one
SELECT ` + settingsColumns + ` FROM system_settings WHERE id = 1`

func (q *Queries) GetSettings(ctx context.Context) (SystemSetting, error) {
	var i SystemSetting
	err := q.db.QueryRow(ctx, getSettings).Scan(settingsScanTargets(&i)...)
	return i, err
}

const getSettingsForUpdate = `-- name: GetSettingsForUpdate :one
SELECT ` + settingsColumns + ` FROM system_settings WHERE id = 1 FOR UPDATE`

func (q *Queries) GetSettingsForUpdate(ctx context.Context) (SystemSetting, error) {
	var i SystemSetting
	err := q.db.QueryRow(ctx, getSettingsForUpdate).Scan(settingsScanTargets(&i)...)
	return i, err
}

// Returns pgx.ErrNoRows when Version no longer matches the stored row.
const updateSettings = `-- name: UpdateSettings :one
UPDATE system_settings
SET upi_id = $1, upi_qr_image = $2, lucky_draw_enabled = $3, lucky_draw_stall_id = $4,
    lucky_draw_threshold = $5, version = version + 1, updated_at = now()
WHERE id = 1 AND version = $6
RETURNING ` + settingsColumns

type UpdateSettingsParams struct {
	UpiID              string      `json:"upi_id"`
	UpiQrImage         string      `json:"upi_qr_image"`
	LuckyDrawEnabled   bool        `json:"lucky_draw_enabled"`
	LuckyDrawStallID   pgtype.UUID `json:"lucky_draw_stall_id"`
	LuckyDrawThreshold int32       `json:"lucky_draw_threshold"`
	Version            int32       `json:"version"`
}

func (q *Queries) UpdateSettings(ctx context.Context, arg UpdateSettingsParams) (SystemSetting, error) {
	row := q.db.QueryRow(ctx, updateSettings,
		arg.UpiID,
		arg.UpiQrImage,
		arg.LuckyDrawEnabled,
		arg.LuckyDrawStallID,
		arg.LuckyDrawThreshold,
		arg.Version,
	)
	var i SystemSetting
	err := row.Scan(settingsScanTargets(&i)...)
	return i, err
}
