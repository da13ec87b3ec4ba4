package models

import "time"

// Alert levels.
const (
	AlertInfo    = "info"
	AlertWarning = "warning"
	AlertError   = "error"
)

// Alert kinds. Notification toggles in Settings are keyed by these.
const (
	AlertBackupCreated   = "backup_created"
	AlertBackupFailed    = "backup_failed"
	AlertDeviceRecovered = "device_recovered"
	AlertManualBackup    = "manual_backup"
	AlertRestore         = "restore"
)

// Alert is an operator-facing notification row.
type Alert struct {
	ID           int64      `json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	DeviceID     *int64     `json:"device_id"`
	Level        string     `json:"level"`
	Kind         string     `json:"kind"`
	Title        string     `json:"title"`
	Message      string     `json:"message"`
	SentTelegram bool       `json:"sent_telegram"`
	ViewedAt     *time.Time `json:"viewed_at"`
}
