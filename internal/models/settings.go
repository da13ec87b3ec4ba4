package models

import "time"

// Settings is the single global settings row. The scheduler updates
// LastSchedulerRun once per tick; everything else is operator-edited.
type Settings struct {
	DefaultForceDays      int        `json:"default_force_days"`
	AlertsRetentionDays   int        `json:"alerts_retention_days"`
	LastSchedulerRun      *time.Time `json:"last_scheduler_run"`
	TelegramRecipients    string     `json:"telegram_recipients"`
	NotifyBackupCreated   bool       `json:"notify_backup_created"`
	NotifyBackupFailed    bool       `json:"notify_backup_failed"`
	NotifyDeviceRecovered bool       `json:"notify_device_recovered"`
	NotifyManualBackup    bool       `json:"notify_manual_backup"`
	NotifyRestore         bool       `json:"notify_restore"`
}

// UpdateSettingsRequest is the payload for editing global settings.
type UpdateSettingsRequest struct {
	DefaultForceDays      *int    `json:"default_force_days"`
	AlertsRetentionDays   *int    `json:"alerts_retention_days"`
	TelegramRecipients    *string `json:"telegram_recipients"`
	NotifyBackupCreated   *bool   `json:"notify_backup_created"`
	NotifyBackupFailed    *bool   `json:"notify_backup_failed"`
	NotifyDeviceRecovered *bool   `json:"notify_device_recovered"`
	NotifyManualBackup    *bool   `json:"notify_manual_backup"`
	NotifyRestore         *bool   `json:"notify_restore"`
}
