package models

import "time"

// Backup trigger values.
const (
	TriggerAuto   = "auto"
	TriggerManual = "manual"
)

// BackupRecord is an immutable record of one produced backup. Only the
// Important flag may change after creation; it protects the record's
// artifact files from retention deletion.
type BackupRecord struct {
	ID            string    `json:"id"`
	DeviceID      int64     `json:"device_id"`
	CreatedAt     time.Time `json:"created_at"`
	ConfigHash    string    `json:"config_hash"`
	BackupFile    string    `json:"backup_file"`
	ExportFile    string    `json:"export_file"`
	BackupLink    string    `json:"backup_link"`
	ExportLink    string    `json:"export_link"`
	ChangeSummary string    `json:"change_summary"`
	Trigger       string    `json:"trigger"`
	WasForced     bool      `json:"was_forced"`
	WasChanged    bool      `json:"was_changed"`
	Important     bool      `json:"important"`
}

// DeviceLog is an append-only audit-log entry captured from a device.
type DeviceLog struct {
	ID        int64     `json:"id"`
	DeviceID  int64     `json:"device_id"`
	LoggedAt  string    `json:"logged_at"`
	Topics    string    `json:"topics"`
	Message   string    `json:"message"`
	BackupID  *string   `json:"backup_id"`
	CreatedAt time.Time `json:"created_at"`
}
