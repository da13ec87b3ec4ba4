package services

import (
	"time"

	"github.com/routervault/routervault/internal/database"
	"github.com/routervault/routervault/internal/models"
)

// SettingsService reads and updates the single global settings row.
type SettingsService struct {
	db *database.DB
}

func NewSettingsService(db *database.DB) *SettingsService {
	return &SettingsService{db: db}
}

// Get returns the global settings.
func (s *SettingsService) Get() (*models.Settings, error) {
	var st models.Settings
	var recipients *string
	err := s.db.QueryRow(`
		SELECT default_force_days, alerts_retention_days, last_scheduler_run,
			telegram_recipients,
			notify_backup_created, notify_backup_failed, notify_device_recovered,
			notify_manual_backup, notify_restore
		FROM settings WHERE id = 1
	`).Scan(&st.DefaultForceDays, &st.AlertsRetentionDays, &st.LastSchedulerRun,
		&recipients,
		&st.NotifyBackupCreated, &st.NotifyBackupFailed, &st.NotifyDeviceRecovered,
		&st.NotifyManualBackup, &st.NotifyRestore)
	if err != nil {
		return nil, err
	}
	if recipients != nil {
		st.TelegramRecipients = *recipients
	}
	if st.DefaultForceDays < 1 {
		st.DefaultForceDays = 1
	}
	if st.AlertsRetentionDays < 1 {
		st.AlertsRetentionDays = 30
	}
	return &st, nil
}

// Update edits global settings. Nil request fields keep current values.
func (s *SettingsService) Update(req *models.UpdateSettingsRequest) (*models.Settings, error) {
	st, err := s.Get()
	if err != nil {
		return nil, err
	}

	if req.DefaultForceDays != nil {
		st.DefaultForceDays = *req.DefaultForceDays
	}
	if req.AlertsRetentionDays != nil {
		st.AlertsRetentionDays = *req.AlertsRetentionDays
	}
	if req.TelegramRecipients != nil {
		st.TelegramRecipients = *req.TelegramRecipients
	}
	if req.NotifyBackupCreated != nil {
		st.NotifyBackupCreated = *req.NotifyBackupCreated
	}
	if req.NotifyBackupFailed != nil {
		st.NotifyBackupFailed = *req.NotifyBackupFailed
	}
	if req.NotifyDeviceRecovered != nil {
		st.NotifyDeviceRecovered = *req.NotifyDeviceRecovered
	}
	if req.NotifyRestore != nil {
		st.NotifyRestore = *req.NotifyRestore
	}
	if req.NotifyManualBackup != nil {
		st.NotifyManualBackup = *req.NotifyManualBackup
	}

	_, err = s.db.Exec(`
		UPDATE settings SET default_force_days = ?, alerts_retention_days = ?,
			telegram_recipients = ?,
			notify_backup_created = ?, notify_backup_failed = ?,
			notify_device_recovered = ?, notify_manual_backup = ?, notify_restore = ?
		WHERE id = 1
	`, st.DefaultForceDays, st.AlertsRetentionDays,
		st.TelegramRecipients,
		st.NotifyBackupCreated, st.NotifyBackupFailed,
		st.NotifyDeviceRecovered, st.NotifyManualBackup, st.NotifyRestore)
	if err != nil {
		return nil, err
	}
	return s.Get()
}

// Heartbeat stamps the scheduler's last run time.
func (s *SettingsService) Heartbeat(at time.Time) error {
	_, err := s.db.Exec(`UPDATE settings SET last_scheduler_run = ? WHERE id = 1`, at)
	return err
}
