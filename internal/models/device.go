// Package models defines the persisted record types.
package models

import "time"

// Device is a managed network endpoint subject to periodic backup.
//
// The "last*" state fields are owned by the backup executor and the
// scheduler; nothing else writes them.
type Device struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Address           string `json:"address"`
	APIPort           int    `json:"api_port"`
	APITimeoutSeconds int    `json:"api_timeout_seconds"`
	FTPPort           int    `json:"ftp_port"`
	Username          string `json:"username"`
	EncryptedPassword string `json:"-"`
	Enabled           bool   `json:"enabled"`

	CheckIntervalHours int    `json:"check_interval_hours"`
	DailyBaselineTime  string `json:"daily_baseline_time"`
	ForceEveryDays     int    `json:"force_every_days"`
	RetentionDays      int    `json:"retention_days"`

	// Opaque log-stream watermarks. LastLogCheckCursor bounds the change
	// detection window, LastBackupLogCursor the audit-trail window.
	LastLogCheckCursor  string `json:"last_log_check_cursor"`
	LastBackupLogCursor string `json:"last_backup_log_cursor"`

	LastConfigHash     string     `json:"last_config_hash"`
	LastCheckAt        *time.Time `json:"last_check_at"`
	LastBaselineAt     *time.Time `json:"last_baseline_at"`
	LastBackupAt       *time.Time `json:"last_backup_at"`
	LastSuccessAt      *time.Time `json:"last_success_at"`
	LastConfigChangeAt *time.Time `json:"last_config_change_at"`
	LastError          *string    `json:"last_error"`
	LastBackupLinks    string     `json:"last_backup_links"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateDeviceRequest is the payload for registering a device.
type CreateDeviceRequest struct {
	Name               string `json:"name" binding:"required"`
	Address            string `json:"address" binding:"required"`
	APIPort            int    `json:"api_port"`
	APITimeoutSeconds  int    `json:"api_timeout_seconds"`
	FTPPort            int    `json:"ftp_port"`
	Username           string `json:"username" binding:"required"`
	Password           string `json:"password" binding:"required"`
	Enabled            *bool  `json:"enabled"`
	CheckIntervalHours int    `json:"check_interval_hours"`
	DailyBaselineTime  string `json:"daily_baseline_time"`
	ForceEveryDays     int    `json:"force_every_days"`
	RetentionDays      int    `json:"retention_days"`
}

// UpdateDeviceRequest is the payload for editing a device. Nil fields are
// left unchanged; an empty Password keeps the stored credential.
type UpdateDeviceRequest struct {
	Name               *string `json:"name"`
	Address            *string `json:"address"`
	APIPort            *int    `json:"api_port"`
	APITimeoutSeconds  *int    `json:"api_timeout_seconds"`
	FTPPort            *int    `json:"ftp_port"`
	Username           *string `json:"username"`
	Password           *string `json:"password"`
	Enabled            *bool   `json:"enabled"`
	CheckIntervalHours *int    `json:"check_interval_hours"`
	DailyBaselineTime  *string `json:"daily_baseline_time"`
	ForceEveryDays     *int    `json:"force_every_days"`
	RetentionDays      *int    `json:"retention_days"`
}
