package services

import (
	"database/sql"
	"errors"

	"github.com/routervault/routervault/internal/database"
	"github.com/routervault/routervault/internal/models"
)

// ErrBackupNotFound indicates the requested backup record was not found.
var ErrBackupNotFound = errors.New("backup not found")

const backupColumns = `id, device_id, created_at, COALESCE(config_hash, ''),
	COALESCE(backup_file, ''), COALESCE(export_file, ''),
	COALESCE(backup_link, ''), COALESCE(export_link, ''),
	COALESCE(change_summary, ''), "trigger", was_forced, was_changed, important`

// BackupService reads and manages backup records. Creation happens inside
// the executor's cycle transaction, not here.
type BackupService struct {
	db    *database.DB
	store *ArtifactStore
}

func NewBackupService(db *database.DB, store *ArtifactStore) *BackupService {
	return &BackupService{db: db, store: store}
}

func scanBackup(row interface{ Scan(...any) error }) (*models.BackupRecord, error) {
	var b models.BackupRecord
	err := row.Scan(
		&b.ID, &b.DeviceID, &b.CreatedAt, &b.ConfigHash,
		&b.BackupFile, &b.ExportFile,
		&b.BackupLink, &b.ExportLink,
		&b.ChangeSummary, &b.Trigger, &b.WasForced, &b.WasChanged, &b.Important,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Get retrieves a backup record by ID.
func (s *BackupService) Get(id string) (*models.BackupRecord, error) {
	b, err := scanBackup(s.db.QueryRow(
		`SELECT `+backupColumns+` FROM backups WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrBackupNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListByDevice returns a device's backup records, newest first.
func (s *BackupService) ListByDevice(deviceID int64) ([]*models.BackupRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+backupColumns+` FROM backups WHERE device_id = ? ORDER BY created_at DESC`,
		deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	backups := make([]*models.BackupRecord, 0)
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, err
		}
		backups = append(backups, b)
	}
	return backups, rows.Err()
}

// SetImportant flips the retention protection flag on a record.
func (s *BackupService) SetImportant(id string, important bool) error {
	res, err := s.db.Exec(`UPDATE backups SET important = ? WHERE id = ?`, important, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBackupNotFound
	}
	return nil
}

// Delete removes a backup record and its artifact files. This is the only
// deletion path for records; the retention sweep touches files only.
func (s *BackupService) Delete(id string, deviceName string) error {
	b, err := s.Get(id)
	if err != nil {
		return err
	}

	if err := s.store.Remove(deviceName, "backups", b.BackupFile); err != nil {
		return err
	}
	if err := s.store.Remove(deviceName, "rsc", b.ExportFile); err != nil {
		return err
	}

	_, err = s.db.Exec(`DELETE FROM backups WHERE id = ?`, id)
	return err
}

// ImportantFiles returns the artifact filenames of a device's important
// records, for exclusion from the retention sweep.
func (s *BackupService) ImportantFiles(deviceID int64) (map[string]struct{}, error) {
	rows, err := s.db.Query(`
		SELECT COALESCE(backup_file, ''), COALESCE(export_file, '')
		FROM backups WHERE device_id = ? AND important
	`, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keep := make(map[string]struct{})
	for rows.Next() {
		var backupFile, exportFile string
		if err := rows.Scan(&backupFile, &exportFile); err != nil {
			return nil, err
		}
		if backupFile != "" {
			keep[backupFile] = struct{}{}
		}
		if exportFile != "" {
			keep[exportFile] = struct{}{}
		}
	}
	return keep, rows.Err()
}

// ListLogs returns a device's stored audit-log entries, newest first.
func (s *BackupService) ListLogs(deviceID int64, limit int) ([]*models.DeviceLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT id, device_id, logged_at, COALESCE(topics, ''), message, backup_id, created_at
		FROM device_logs WHERE device_id = ?
		ORDER BY id DESC LIMIT ?
	`, deviceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]*models.DeviceLog, 0)
	for rows.Next() {
		var l models.DeviceLog
		if err := rows.Scan(&l.ID, &l.DeviceID, &l.LoggedAt, &l.Topics,
			&l.Message, &l.BackupID, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

// ListLogsByBackup returns the audit-log slice captured under one backup.
func (s *BackupService) ListLogsByBackup(backupID string) ([]*models.DeviceLog, error) {
	rows, err := s.db.Query(`
		SELECT id, device_id, logged_at, COALESCE(topics, ''), message, backup_id, created_at
		FROM device_logs WHERE backup_id = ?
		ORDER BY id
	`, backupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]*models.DeviceLog, 0)
	for rows.Next() {
		var l models.DeviceLog
		if err := rows.Scan(&l.ID, &l.DeviceID, &l.LoggedAt, &l.Topics,
			&l.Message, &l.BackupID, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
