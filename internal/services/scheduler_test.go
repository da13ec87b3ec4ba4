package services_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/routervault/routervault/internal/mikrotik"
	"github.com/routervault/routervault/internal/models"
	"github.com/routervault/routervault/internal/services"
)

func TestSchedulerTickProcessesFleet(t *testing.T) {
	e := newTestEngine(t)
	d1 := e.addDevice(t, "router-1", "10.0.0.1")
	d2 := e.addDevice(t, "router-2", "10.0.0.2")
	d3 := e.addDevice(t, "router-3", "10.0.0.3")
	e.addFake("10.0.0.1")
	e.addFake("10.0.0.2")
	e.addFake("10.0.0.3")

	e.scheduler.Tick(context.Background())

	for _, d := range []*models.Device{d1, d2, d3} {
		got := e.reload(t, d.ID)
		if got.LastSuccessAt == nil {
			t.Errorf("device %s was not processed", d.Name)
		}
		records, err := e.backups.ListByDevice(d.ID)
		if err != nil {
			t.Fatalf("failed to list backups for %s: %v", d.Name, err)
		}
		if len(records) != 1 {
			t.Errorf("device %s: expected one initial backup, got %d", d.Name, len(records))
		}
	}

	st, err := e.settings.Get()
	if err != nil {
		t.Fatalf("failed to read settings: %v", err)
	}
	if st.LastSchedulerRun == nil {
		t.Error("tick should stamp the scheduler heartbeat")
	}
}

func TestSchedulerIsolatesFailingDevice(t *testing.T) {
	e := newTestEngine(t)
	d1 := e.addDevice(t, "router-1", "10.0.0.1")
	d2 := e.addDevice(t, "router-2", "10.0.0.2")
	d3 := e.addDevice(t, "router-3", "10.0.0.3")
	e.addFake("10.0.0.1")
	broken := e.addFake("10.0.0.2")
	broken.Err = errors.New("connection refused")
	e.addFake("10.0.0.3")

	e.scheduler.Tick(context.Background())

	for _, d := range []*models.Device{d1, d3} {
		got := e.reload(t, d.ID)
		if got.LastSuccessAt == nil || got.LastError != nil {
			t.Errorf("healthy device %s should have succeeded", d.Name)
		}
	}

	failed := e.reload(t, d2.ID)
	if failed.LastError == nil || !strings.Contains(*failed.LastError, "connection refused") {
		t.Error("failing device should carry the cycle error")
	}
	if failed.LastCheckAt == nil {
		t.Error("failure must still stamp the check time")
	}
	if failed.LastSuccessAt != nil || failed.LastConfigHash != "" {
		t.Error("failure must not touch the device's success state")
	}

	alerts, err := e.alerts.List(50)
	if err != nil {
		t.Fatalf("failed to list alerts: %v", err)
	}
	found := false
	for _, a := range alerts {
		if a.Kind == models.AlertBackupFailed && a.DeviceID != nil && *a.DeviceID == d2.ID {
			found = true
		}
	}
	if !found {
		t.Error("expected a backup-failed alert for the broken device")
	}
}

func TestSchedulerSkipsDevicesNotDue(t *testing.T) {
	e := newTestEngine(t)
	device := e.addDevice(t, "router-1", "10.0.0.1")
	fake := e.addFake("10.0.0.1")

	e.scheduler.Tick(context.Background())

	// Half an hour later nothing is due; a config change on the device must
	// go unnoticed until the interval elapses.
	e.clock.Advance(30 * time.Minute)
	fake.ClockTime = e.clock.Now()
	fake.Export += "/ip route\nadd dst-address=0.0.0.0/0\n"
	e.scheduler.Tick(context.Background())

	records, err := e.backups.ListByDevice(device.ID)
	if err != nil {
		t.Fatalf("failed to list backups: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected only the initial backup, got %d", len(records))
	}

	e.clock.Advance(6 * time.Hour)
	fake.ClockTime = e.clock.Now()
	e.scheduler.Tick(context.Background())

	records, err = e.backups.ListByDevice(device.ID)
	if err != nil {
		t.Fatalf("failed to list backups: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected the change backup after the interval, got %d records", len(records))
	}
}

func TestSchedulerSkipsDisabledDevices(t *testing.T) {
	e := newTestEngine(t)
	device := e.addDevice(t, "router-1", "10.0.0.1")
	e.addFake("10.0.0.1")

	disabled := false
	if _, err := e.devices.Update(device.ID, &models.UpdateDeviceRequest{Enabled: &disabled}); err != nil {
		t.Fatalf("failed to disable device: %v", err)
	}

	e.scheduler.Tick(context.Background())

	got := e.reload(t, device.ID)
	if got.LastCheckAt != nil {
		t.Error("disabled device must never be examined")
	}
}

func TestSchedulerRunDevice(t *testing.T) {
	e := newTestEngine(t)
	device := e.addDevice(t, "router-1", "10.0.0.1")
	e.addFake("10.0.0.1")

	result, err := e.scheduler.RunDevice(context.Background(), device.ID, true)
	if err != nil {
		t.Fatalf("RunDevice() error: %v", err)
	}
	if !result.NeedsBackup || result.BackupID == "" {
		t.Errorf("manual run should produce a backup: %+v", result)
	}

	record, err := e.backups.Get(result.BackupID)
	if err != nil {
		t.Fatalf("failed to load backup record: %v", err)
	}
	if record.Trigger != models.TriggerManual {
		t.Errorf("trigger = %q, want %q", record.Trigger, models.TriggerManual)
	}

	if _, err := e.scheduler.RunDevice(context.Background(), 9999, true); !errors.Is(err, services.ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound for an unknown device, got %v", err)
	}
}

func TestSchedulerRunDeviceFailure(t *testing.T) {
	e := newTestEngine(t)
	device := e.addDevice(t, "router-1", "10.0.0.1")
	broken := e.addFake("10.0.0.1")
	broken.Err = errors.New("timeout")

	if _, err := e.scheduler.RunDevice(context.Background(), device.ID, true); err == nil {
		t.Fatal("expected the device error to propagate to the manual caller")
	}

	got := e.reload(t, device.ID)
	if got.LastError == nil {
		t.Error("manual failure should still be recorded on the device")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	e := newTestEngine(t)

	e.scheduler.Start()
	e.scheduler.Stop()

	done := make(chan struct{})
	go func() {
		e.scheduler.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second Stop() should return immediately")
	}
}

func TestSchedulerSerializesConcurrentRuns(t *testing.T) {
	e := newTestEngine(t)
	device := e.addDevice(t, "core-router", "10.0.0.1")
	fake := e.addFake("10.0.0.1")
	fake.Logs = []mikrotik.LogEntry{
		{Time: "2025-03-10 11:59:00", Topics: "system,info", Message: "dhcp server changed by admin"},
	}

	// A scheduler tick and a manual run race for the same device. The
	// loser must pick up the winner's cursors, not replay its log window.
	ctx := context.Background()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		e.scheduler.Tick(ctx)
	}()
	go func() {
		defer wg.Done()
		if _, err := e.scheduler.RunDevice(ctx, device.ID, false); err != nil {
			t.Errorf("RunDevice() error: %v", err)
		}
	}()
	wg.Wait()

	var count int
	err := e.db.QueryRow(
		"SELECT COUNT(*) FROM device_logs WHERE device_id = ? AND message = ?",
		device.ID, "dhcp server changed by admin",
	).Scan(&count)
	if err != nil {
		t.Fatalf("failed to count stored logs: %v", err)
	}
	if count != 1 {
		t.Errorf("log entry stored %d times, want exactly once", count)
	}

	records, err := e.backups.ListByDevice(device.ID)
	if err != nil {
		t.Fatalf("failed to list backups: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected one backup from the racing pair, got %d", len(records))
	}
}
