package services

import (
	"context"
	"time"

	"github.com/routervault/routervault/internal/database"
	"github.com/routervault/routervault/internal/logs"
	"github.com/routervault/routervault/internal/models"
	"github.com/routervault/routervault/internal/notify"
)

// AlertService creates deduplicated alerts, forwards them to the notifier
// when the matching settings toggle is on, and prunes old rows. Notifier
// failures are logged and swallowed; they never abort a backup cycle.
type AlertService struct {
	db           *database.DB
	settings     *SettingsService
	notifier     notify.Notifier
	clock        Clock
	dedupeWindow time.Duration
}

func NewAlertService(db *database.DB, settings *SettingsService, notifier notify.Notifier, clock Clock, dedupeWindow time.Duration) *AlertService {
	return &AlertService{
		db:           db,
		settings:     settings,
		notifier:     notifier,
		clock:        clock,
		dedupeWindow: dedupeWindow,
	}
}

// Create inserts an alert unless an alert with the same (device, kind,
// message) key exists inside the dedupe window; in that case the earlier
// alert's id is returned and nothing is sent.
func (s *AlertService) Create(deviceID *int64, level, kind, title, message string) (int64, error) {
	now := s.clock.Now()

	if s.dedupeWindow > 0 {
		cutoff := now.Add(-s.dedupeWindow)
		var existing int64
		err := s.db.QueryRow(`
			SELECT id FROM alerts
			WHERE device_id IS ? AND kind = ? AND message = ? AND created_at >= ?
			ORDER BY id DESC LIMIT 1
		`, deviceID, kind, message, cutoff).Scan(&existing)
		if err == nil {
			return existing, nil
		}
	}

	res, err := s.db.Exec(`
		INSERT INTO alerts (created_at, device_id, level, kind, title, message)
		VALUES (?, ?, ?, ?, ?, ?)
	`, now, deviceID, level, kind, title, message)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	s.deliver(id, kind, title, message)
	return id, nil
}

func (s *AlertService) deliver(alertID int64, kind, title, message string) {
	st, err := s.settings.Get()
	if err != nil {
		logs.Logger.Warnf("[Alerts] settings read failed: %v", err)
		return
	}
	if !notifyEnabled(st, kind) {
		return
	}
	recipients := notify.SplitRecipients(st.TelegramRecipients)
	if len(recipients) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.notifier.Send(ctx, recipients, title+"\n"+message); err != nil {
		logs.Logger.Warnf("[Alerts] notification delivery failed: %v", err)
		return
	}
	if _, err := s.db.Exec(`UPDATE alerts SET sent_telegram = TRUE WHERE id = ?`, alertID); err != nil {
		logs.Logger.Warnf("[Alerts] mark sent failed: %v", err)
	}
}

func notifyEnabled(st *models.Settings, kind string) bool {
	switch kind {
	case models.AlertBackupCreated:
		return st.NotifyBackupCreated
	case models.AlertBackupFailed:
		return st.NotifyBackupFailed
	case models.AlertDeviceRecovered:
		return st.NotifyDeviceRecovered
	case models.AlertManualBackup:
		return st.NotifyManualBackup
	case models.AlertRestore:
		return st.NotifyRestore
	default:
		return false
	}
}

// Cleanup deletes alerts older than the configured retention window.
func (s *AlertService) Cleanup() error {
	st, err := s.settings.Get()
	if err != nil {
		return err
	}
	cutoff := s.clock.Now().Add(-time.Duration(st.AlertsRetentionDays) * 24 * time.Hour)
	_, err = s.db.Exec(`DELETE FROM alerts WHERE created_at < ?`, cutoff)
	return err
}

// List returns recent alerts, newest first.
func (s *AlertService) List(limit int) ([]*models.Alert, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT id, created_at, device_id, level, kind, title, message, sent_telegram, viewed_at
		FROM alerts ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := make([]*models.Alert, 0)
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.ID, &a.CreatedAt, &a.DeviceID, &a.Level, &a.Kind,
			&a.Title, &a.Message, &a.SentTelegram, &a.ViewedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, &a)
	}
	return alerts, rows.Err()
}

// MarkAllViewed stamps every unviewed alert and returns how many changed.
func (s *AlertService) MarkAllViewed() (int64, error) {
	res, err := s.db.Exec(`UPDATE alerts SET viewed_at = ? WHERE viewed_at IS NULL`, s.clock.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
