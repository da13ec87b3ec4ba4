package services

import (
	"database/sql"
	"errors"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/routervault/routervault/internal/database"
	"github.com/routervault/routervault/internal/mikrotik"
	"github.com/routervault/routervault/internal/models"
)

var (
	// ErrDeviceNotFound indicates the requested device was not found.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrDeviceExists indicates a device with the same name already exists.
	ErrDeviceExists = errors.New("device already exists")
)

const deviceColumns = `id, name, address, api_port, api_timeout_seconds, ftp_port,
	username, encrypted_password, enabled,
	check_interval_hours, daily_baseline_time, force_every_days, retention_days,
	COALESCE(last_log_check_cursor, ''), COALESCE(last_backup_log_cursor, ''),
	COALESCE(last_config_hash, ''),
	last_check_at, last_baseline_at, last_backup_at, last_success_at,
	last_config_change_at, last_error, COALESCE(last_backup_links, ''),
	created_at, updated_at`

// DeviceService manages device rows and their encrypted credentials.
type DeviceService struct {
	db     *database.DB
	crypto *CryptoService
}

func NewDeviceService(db *database.DB, crypto *CryptoService) *DeviceService {
	return &DeviceService{db: db, crypto: crypto}
}

func scanDevice(row interface{ Scan(...any) error }) (*models.Device, error) {
	var d models.Device
	err := row.Scan(
		&d.ID, &d.Name, &d.Address, &d.APIPort, &d.APITimeoutSeconds, &d.FTPPort,
		&d.Username, &d.EncryptedPassword, &d.Enabled,
		&d.CheckIntervalHours, &d.DailyBaselineTime, &d.ForceEveryDays, &d.RetentionDays,
		&d.LastLogCheckCursor, &d.LastBackupLogCursor,
		&d.LastConfigHash,
		&d.LastCheckAt, &d.LastBaselineAt, &d.LastBackupAt, &d.LastSuccessAt,
		&d.LastConfigChangeAt, &d.LastError, &d.LastBackupLinks,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Create registers a device, encrypting its password at rest.
func (s *DeviceService) Create(req *models.CreateDeviceRequest) (*models.Device, error) {
	encrypted, err := s.crypto.Encrypt(req.Password)
	if err != nil {
		return nil, err
	}

	apiPort := req.APIPort
	if apiPort == 0 {
		apiPort = 8728
	}
	timeout := req.APITimeoutSeconds
	if timeout == 0 {
		timeout = 5
	}
	ftpPort := req.FTPPort
	if ftpPort == 0 {
		ftpPort = 21
	}
	interval := req.CheckIntervalHours
	if interval == 0 {
		interval = 6
	}
	forceDays := req.ForceEveryDays
	if forceDays == 0 {
		forceDays = 7
	}
	retention := req.RetentionDays
	if retention == 0 {
		retention = 30
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	res, err := s.db.Exec(`
		INSERT INTO devices (name, address, api_port, api_timeout_seconds, ftp_port,
			username, encrypted_password, enabled,
			check_interval_hours, daily_baseline_time, force_every_days, retention_days)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, req.Name, req.Address, apiPort, timeout, ftpPort,
		req.Username, encrypted, enabled,
		interval, req.DailyBaselineTime, forceDays, retention)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, ErrDeviceExists
		}
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// GetByID retrieves a device by its ID.
func (s *DeviceService) GetByID(id int64) (*models.Device, error) {
	d, err := scanDevice(s.db.QueryRow(
		`SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// List returns all devices ordered by name.
func (s *DeviceService) List() ([]*models.Device, error) {
	rows, err := s.db.Query(`SELECT ` + deviceColumns + ` FROM devices ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	devices := make([]*models.Device, 0)
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// ListEnabled returns the devices the scheduler should examine.
func (s *DeviceService) ListEnabled() ([]*models.Device, error) {
	rows, err := s.db.Query(
		`SELECT ` + deviceColumns + ` FROM devices WHERE enabled ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	devices := make([]*models.Device, 0)
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// Update edits device settings. Nil request fields keep current values.
func (s *DeviceService) Update(id int64, req *models.UpdateDeviceRequest) (*models.Device, error) {
	d, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		d.Name = *req.Name
	}
	if req.Address != nil {
		d.Address = *req.Address
	}
	if req.APIPort != nil {
		d.APIPort = *req.APIPort
	}
	if req.APITimeoutSeconds != nil {
		d.APITimeoutSeconds = *req.APITimeoutSeconds
	}
	if req.FTPPort != nil {
		d.FTPPort = *req.FTPPort
	}
	if req.Username != nil {
		d.Username = *req.Username
	}
	if req.Password != nil && *req.Password != "" {
		encrypted, err := s.crypto.Encrypt(*req.Password)
		if err != nil {
			return nil, err
		}
		d.EncryptedPassword = encrypted
	}
	if req.Enabled != nil {
		d.Enabled = *req.Enabled
	}
	if req.CheckIntervalHours != nil {
		d.CheckIntervalHours = *req.CheckIntervalHours
	}
	if req.DailyBaselineTime != nil {
		d.DailyBaselineTime = *req.DailyBaselineTime
	}
	if req.ForceEveryDays != nil {
		d.ForceEveryDays = *req.ForceEveryDays
	}
	if req.RetentionDays != nil {
		d.RetentionDays = *req.RetentionDays
	}

	_, err = s.db.Exec(`
		UPDATE devices SET name = ?, address = ?, api_port = ?, api_timeout_seconds = ?,
			ftp_port = ?, username = ?, encrypted_password = ?, enabled = ?,
			check_interval_hours = ?, daily_baseline_time = ?, force_every_days = ?,
			retention_days = ?, updated_at = ?
		WHERE id = ?
	`, d.Name, d.Address, d.APIPort, d.APITimeoutSeconds,
		d.FTPPort, d.Username, d.EncryptedPassword, d.Enabled,
		d.CheckIntervalHours, d.DailyBaselineTime, d.ForceEveryDays,
		d.RetentionDays, time.Now().UTC(), id)
	if err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// Delete removes a device and, via foreign keys, its backups and logs.
func (s *DeviceService) Delete(id int64) error {
	res, err := s.db.Exec(`DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// RecordFailure stores a cycle failure. Only last_error and last_check_at
// move; the device's last successful state stays untouched and the device
// remains eligible for the next tick.
func (s *DeviceService) RecordFailure(id int64, message string, at time.Time) error {
	_, err := s.db.Exec(`
		UPDATE devices SET last_error = ?, last_check_at = ?, updated_at = ?
		WHERE id = ?
	`, message, at, at, id)
	return err
}

// Credentials builds adapter credentials for a device, decrypting its
// password.
func (s *DeviceService) Credentials(d *models.Device) (mikrotik.Credentials, error) {
	password, err := s.crypto.Decrypt(d.EncryptedPassword)
	if err != nil {
		return mikrotik.Credentials{}, err
	}
	timeout := d.APITimeoutSeconds
	if timeout <= 0 {
		timeout = 5
	}
	return mikrotik.Credentials{
		Address:  d.Address,
		APIPort:  d.APIPort,
		FTPPort:  d.FTPPort,
		Username: d.Username,
		Password: password,
		Timeout:  time.Duration(timeout) * time.Second,
	}, nil
}
