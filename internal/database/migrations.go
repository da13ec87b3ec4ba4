package database

import (
	"database/sql"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS devices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL,
		address TEXT NOT NULL,
		api_port INTEGER DEFAULT 8728,
		api_timeout_seconds INTEGER DEFAULT 5,
		ftp_port INTEGER DEFAULT 21,
		username TEXT NOT NULL,
		encrypted_password TEXT NOT NULL,
		enabled BOOLEAN DEFAULT TRUE,
		check_interval_hours INTEGER DEFAULT 6,
		daily_baseline_time TEXT DEFAULT '02:00',
		force_every_days INTEGER DEFAULT 7,
		retention_days INTEGER DEFAULT 30,
		last_log_check_cursor TEXT,
		last_backup_log_cursor TEXT,
		last_config_hash TEXT,
		last_check_at DATETIME,
		last_baseline_at DATETIME,
		last_backup_at DATETIME,
		last_success_at DATETIME,
		last_config_change_at DATETIME,
		last_error TEXT,
		last_backup_links TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS backups (
		id TEXT PRIMARY KEY,
		device_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		config_hash TEXT,
		backup_file TEXT,
		export_file TEXT,
		backup_link TEXT,
		export_link TEXT,
		change_summary TEXT,
		"trigger" TEXT DEFAULT 'auto',
		was_forced BOOLEAN DEFAULT FALSE,
		was_changed BOOLEAN DEFAULT FALSE,
		important BOOLEAN DEFAULT FALSE,
		FOREIGN KEY (device_id) REFERENCES devices(id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS device_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device_id INTEGER NOT NULL,
		logged_at TEXT NOT NULL,
		topics TEXT,
		message TEXT NOT NULL,
		backup_id TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (device_id) REFERENCES devices(id) ON DELETE CASCADE,
		FOREIGN KEY (backup_id) REFERENCES backups(id) ON DELETE SET NULL
	)`,

	`CREATE TABLE IF NOT EXISTS alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at DATETIME NOT NULL,
		device_id INTEGER,
		level TEXT DEFAULT 'info',
		kind TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		sent_telegram BOOLEAN DEFAULT FALSE,
		viewed_at DATETIME,
		FOREIGN KEY (device_id) REFERENCES devices(id) ON DELETE SET NULL
	)`,

	`CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		default_force_days INTEGER DEFAULT 3,
		alerts_retention_days INTEGER DEFAULT 30,
		last_scheduler_run DATETIME,
		telegram_recipients TEXT,
		notify_backup_created BOOLEAN DEFAULT FALSE,
		notify_backup_failed BOOLEAN DEFAULT TRUE,
		notify_device_recovered BOOLEAN DEFAULT TRUE,
		notify_manual_backup BOOLEAN DEFAULT FALSE,
		notify_restore BOOLEAN DEFAULT TRUE
	)`,

	`INSERT OR IGNORE INTO settings (id) VALUES (1)`,

	`CREATE INDEX IF NOT EXISTS idx_backups_device_id ON backups(device_id)`,
	`CREATE INDEX IF NOT EXISTS idx_backups_created_at ON backups(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_device_logs_device_id ON device_logs(device_id)`,
	`CREATE INDEX IF NOT EXISTS idx_device_logs_backup_id ON device_logs(backup_id)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_device_kind ON alerts(device_id, kind)`,
}

func runMigrations(db *sql.DB) error {
	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}
