package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/routervault/routervault/internal/database"
	"github.com/routervault/routervault/internal/logs"
	"github.com/routervault/routervault/internal/mikrotik"
	"github.com/routervault/routervault/internal/models"
)

const (
	// noisyLogThreshold: if the backup-anchored log window exceeds this,
	// it is discarded in favor of the smaller detection window.
	noisyLogThreshold = 400
	// maxStoredLogs caps the audit-log slice attached to a backup.
	maxStoredLogs = 200
)

// CheckResult is the typed outcome of one device check-and-backup cycle.
type CheckResult struct {
	Changed     bool   `json:"changed"`
	Forced      bool   `json:"forced"`
	NeedsBackup bool   `json:"needs_backup"`
	Summary     string `json:"summary"`
	BackupID    string `json:"backup_id,omitempty"`
}

// BackupExecutor runs one device's check-and-backup cycle: fetch logs,
// read the clock, export and hash the configuration, decide whether a
// backup is needed, persist artifacts and records, sweep retention, and
// emit alerts. Errors propagate to the caller, which owns the failure
// bookkeeping (last_error / last_check_at).
type BackupExecutor struct {
	db         *database.DB
	devices    *DeviceService
	backups    *BackupService
	settings   *SettingsService
	alerts     *AlertService
	store      *ArtifactStore
	classifier LogClassifier
	clients    mikrotik.Factory
	clock      Clock
}

func NewBackupExecutor(
	db *database.DB,
	devices *DeviceService,
	backups *BackupService,
	settings *SettingsService,
	alerts *AlertService,
	store *ArtifactStore,
	classifier LogClassifier,
	clients mikrotik.Factory,
	clock Clock,
) *BackupExecutor {
	return &BackupExecutor{
		db:         db,
		devices:    devices,
		backups:    backups,
		settings:   settings,
		alerts:     alerts,
		store:      store,
		classifier: classifier,
		clients:    clients,
		clock:      clock,
	}
}

// Run executes one cycle for the device. baselineDue is computed by the
// caller from the same tick clock; force bypasses change detection.
func (e *BackupExecutor) Run(ctx context.Context, device *models.Device, baselineDue, force bool, trigger string) (*CheckResult, error) {
	creds, err := e.devices.Credentials(device)
	if err != nil {
		return nil, err
	}
	client := e.clients(creds)
	now := e.clock.Now()

	detectionLogs, err := client.FetchLogs(ctx, device.LastLogCheckCursor)
	if err != nil {
		return nil, fmt.Errorf("fetch logs: %w", err)
	}
	detectionLogs = FilterLogs(e.classifier, detectionLogs)

	// The new detection cursor comes from the device clock, backdated one
	// second to tolerate clock skew and same-second log ordering. A device
	// clock reset (RouterOS boots in the past without a clock battery) must
	// not drag the cursor backwards, so it is floored at the previous value.
	clockTime, err := client.Clock(ctx)
	if err != nil {
		clockTime = now
	}
	cursor := clockTime.Add(-time.Second).Format(mikrotik.CursorLayout)
	if cursor < device.LastLogCheckCursor {
		cursor = device.LastLogCheckCursor
	}

	exportText, err := client.ExportConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("export config: %w", err)
	}
	normalized := Normalize(exportText)
	if normalized == "" {
		// Some devices return an empty export over the API; hash the
		// textual export artifact instead of a degenerate empty string.
		data, err := client.CreateExport(ctx, BaseName(device.Name, now)+"_fallback")
		if err != nil {
			return nil, fmt.Errorf("export fallback: %w", err)
		}
		normalized = Normalize(string(data))
	}
	newHash := HashText(normalized)

	changed, summary := Decide(newHash, device.LastConfigHash)

	st, err := e.settings.Get()
	if err != nil {
		return nil, err
	}
	forced := force || (baselineDue && ForceDue(device, now, st.DefaultForceDays))
	needsBackup := changed || forced

	result := &CheckResult{
		Changed:     changed,
		Forced:      forced,
		NeedsBackup: needsBackup,
		Summary:     summary,
	}

	var (
		backupCursor = device.LastBackupLogCursor
		storedLogs   = detectionLogs
		record       *models.BackupRecord
	)
	if needsBackup {
		// The audit-trail window is anchored at the last *backup* cursor,
		// which may span several no-backup cycles.
		backupLogs, err := client.FetchLogs(ctx, device.LastBackupLogCursor)
		if err != nil {
			return nil, fmt.Errorf("fetch backup logs: %w", err)
		}
		backupLogs = FilterLogs(e.classifier, backupLogs)
		if len(backupLogs) > noisyLogThreshold {
			backupLogs = detectionLogs
		}
		if len(backupLogs) > maxStoredLogs {
			backupLogs = backupLogs[len(backupLogs)-maxStoredLogs:]
		}
		storedLogs = backupLogs
		backupCursor = nextBackupCursor(backupLogs, cursor, now)
		if backupCursor < device.LastBackupLogCursor {
			backupCursor = device.LastBackupLogCursor
		}

		record, err = e.createArtifacts(ctx, client, device, now, newHash, summary, trigger, forced, changed)
		if err != nil {
			return nil, err
		}
		result.BackupID = record.ID
	}

	if err := e.persistCycle(device, now, persistState{
		logCheckCursor:  cursor,
		backupLogCursor: backupCursor,
		configHash:      newHash,
		changed:         changed,
		baselineDue:     baselineDue,
		record:          record,
		storedLogs:      storedLogs,
	}); err != nil {
		return nil, err
	}

	e.emitAlerts(device, record, trigger)
	return result, nil
}

// nextBackupCursor advances to one second past the newest timestamp in the
// kept slice, or to the detection cursor when the slice is empty or
// unparsable. Cursors never move backwards.
func nextBackupCursor(kept []mikrotik.LogEntry, detectionCursor string, now time.Time) string {
	var latest time.Time
	for _, entry := range kept {
		t, ok := mikrotik.ParseDeviceTime(entry.Time, now)
		if ok && t.After(latest) {
			latest = t
		}
	}
	if latest.IsZero() {
		return detectionCursor
	}
	return latest.Add(time.Second).Format(mikrotik.CursorLayout)
}

func (e *BackupExecutor) createArtifacts(
	ctx context.Context,
	client mikrotik.Client,
	device *models.Device,
	now time.Time,
	hash, summary, trigger string,
	forced, changed bool,
) (*models.BackupRecord, error) {
	base := BaseName(device.Name, now)
	backupName := base + ".backup"
	exportName := base + ".rsc"

	backupBytes, err := client.CreateBackup(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("create backup artifact: %w", err)
	}
	exportBytes, err := client.CreateExport(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("create export artifact: %w", err)
	}

	backupsDir, rscDir, err := e.store.DeviceDirs(device.Name)
	if err != nil {
		return nil, err
	}
	if _, err := e.store.Write(backupsDir, backupName, backupBytes); err != nil {
		return nil, fmt.Errorf("write backup artifact: %w", err)
	}
	if _, err := e.store.Write(rscDir, exportName, exportBytes); err != nil {
		return nil, fmt.Errorf("write export artifact: %w", err)
	}

	keep, err := e.backups.ImportantFiles(device.ID)
	if err != nil {
		return nil, err
	}
	if err := e.store.Sweep(backupsDir, device.RetentionDays, keep, now); err != nil {
		logs.Logger.Warnf("[Executor] retention sweep %s: %v", backupsDir, err)
	}
	if err := e.store.Sweep(rscDir, device.RetentionDays, keep, now); err != nil {
		logs.Logger.Warnf("[Executor] retention sweep %s: %v", rscDir, err)
	}

	slug := SafeName(device.Name)
	return &models.BackupRecord{
		ID:            uuid.New().String(),
		DeviceID:      device.ID,
		CreatedAt:     now,
		ConfigHash:    hash,
		BackupFile:    backupName,
		ExportFile:    exportName,
		BackupLink:    "/download/" + slug + "/backups/" + backupName,
		ExportLink:    "/download/" + slug + "/rsc/" + exportName,
		ChangeSummary: summary,
		Trigger:       trigger,
		WasForced:     forced,
		WasChanged:    changed,
	}, nil
}

type persistState struct {
	logCheckCursor  string
	backupLogCursor string
	configHash      string
	changed         bool
	baselineDue     bool
	record          *models.BackupRecord
	storedLogs      []mikrotik.LogEntry
}

// persistCycle commits the device-state update, the backup record, and the
// captured log rows as one transaction. Artifact files were written before
// this commit; a crash in between leaves an orphaned, prefix-tagged file
// that the retention sweep eventually ages out.
func (e *BackupExecutor) persistCycle(device *models.Device, now time.Time, ps persistState) error {
	tx, err := e.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Copy-with-changes from the loaded row: untouched fields keep their
	// previous values explicitly.
	lastBackupAt := device.LastBackupAt
	lastSuccessAt := device.LastSuccessAt
	lastBackupLinks := device.LastBackupLinks
	if ps.record != nil {
		lastBackupAt = &now
		lastSuccessAt = &now
		links, err := json.Marshal(map[string]string{
			"backup": ps.record.BackupLink,
			"rsc":    ps.record.ExportLink,
		})
		if err != nil {
			return err
		}
		lastBackupLinks = string(links)
	}
	lastConfigChangeAt := device.LastConfigChangeAt
	if ps.changed {
		lastConfigChangeAt = &now
	}
	lastBaselineAt := device.LastBaselineAt
	if ps.baselineDue {
		lastBaselineAt = &now
	}

	_, err = tx.Exec(`
		UPDATE devices
		SET last_log_check_cursor = ?, last_backup_log_cursor = ?, last_config_hash = ?,
			last_backup_at = ?, last_success_at = ?, last_error = NULL,
			last_config_change_at = ?, last_backup_links = ?,
			last_check_at = ?, last_baseline_at = ?, updated_at = ?
		WHERE id = ?
	`, ps.logCheckCursor, ps.backupLogCursor, ps.configHash,
		lastBackupAt, lastSuccessAt,
		lastConfigChangeAt, lastBackupLinks,
		now, lastBaselineAt, now,
		device.ID)
	if err != nil {
		return err
	}

	var backupID *string
	if ps.record != nil {
		r := ps.record
		_, err = tx.Exec(`
			INSERT INTO backups (id, device_id, created_at, config_hash,
				backup_file, export_file, backup_link, export_link,
				change_summary, "trigger", was_forced, was_changed, important)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, FALSE)
		`, r.ID, r.DeviceID, r.CreatedAt, r.ConfigHash,
			r.BackupFile, r.ExportFile, r.BackupLink, r.ExportLink,
			r.ChangeSummary, r.Trigger, r.WasForced, r.WasChanged)
		if err != nil {
			return err
		}
		backupID = &r.ID
	}

	for _, entry := range ps.storedLogs {
		_, err = tx.Exec(`
			INSERT INTO device_logs (device_id, logged_at, topics, message, backup_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, device.ID, entry.Time, entry.Topics, entry.Message, backupID, now)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// emitAlerts raises the recovery and backup-created alerts for a
// successful cycle. Alert failures are logged, never propagated.
func (e *BackupExecutor) emitAlerts(device *models.Device, record *models.BackupRecord, trigger string) {
	if device.LastError != nil && *device.LastError != "" {
		_, err := e.alerts.Create(&device.ID, models.AlertInfo, models.AlertDeviceRecovered,
			"Device recovered",
			fmt.Sprintf("%s: check succeeded after previous failure", device.Name))
		if err != nil {
			logs.Logger.Warnf("[Executor] recovery alert for %s: %v", device.Name, err)
		}
	}

	if record == nil {
		return
	}
	kind := models.AlertBackupCreated
	title := "Backup created"
	if trigger == models.TriggerManual {
		kind = models.AlertManualBackup
		title = "Manual backup created"
	}
	message := fmt.Sprintf("%s: %s (forced: %t, changed: %t)",
		device.Name, record.ChangeSummary, record.WasForced, record.WasChanged)
	if _, err := e.alerts.Create(&device.ID, models.AlertInfo, kind, title, message); err != nil {
		logs.Logger.Warnf("[Executor] backup alert for %s: %v", device.Name, err)
	}
}

// Restore uploads a stored backup artifact back to its device and asks the
// device to load it. The device reboots as part of the load.
func (e *BackupExecutor) Restore(ctx context.Context, device *models.Device, record *models.BackupRecord) error {
	creds, err := e.devices.Credentials(device)
	if err != nil {
		return err
	}
	client := e.clients(creds)

	path := e.store.ArtifactPath(device.Name, "backups", record.BackupFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}
	if err := client.RestoreBackup(ctx, record.BackupFile, data); err != nil {
		return err
	}

	_, err = e.alerts.Create(&device.ID, models.AlertWarning, models.AlertRestore,
		"Backup restored",
		fmt.Sprintf("%s: restored %s", device.Name, record.BackupFile))
	if err != nil {
		logs.Logger.Warnf("[Executor] restore alert for %s: %v", device.Name, err)
	}
	return nil
}
