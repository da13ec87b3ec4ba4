package services_test

import (
	"testing"
	"time"

	"github.com/routervault/routervault/internal/models"
)

func TestSettingsDefaults(t *testing.T) {
	e := newTestEngine(t)

	st, err := e.settings.Get()
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	if st.DefaultForceDays != 3 {
		t.Errorf("default force days = %d, want 3", st.DefaultForceDays)
	}
	if st.AlertsRetentionDays != 30 {
		t.Errorf("alerts retention = %d, want 30", st.AlertsRetentionDays)
	}
	if st.LastSchedulerRun != nil {
		t.Error("fresh install should have no scheduler heartbeat")
	}
	if st.TelegramRecipients != "" {
		t.Errorf("recipients = %q, want empty", st.TelegramRecipients)
	}

	// Failure-ish events notify out of the box, routine ones stay quiet.
	if st.NotifyBackupCreated || st.NotifyManualBackup {
		t.Error("routine notifications should default off")
	}
	if !st.NotifyBackupFailed || !st.NotifyDeviceRecovered || !st.NotifyRestore {
		t.Error("failure and restore notifications should default on")
	}
}

func TestSettingsUpdatePartial(t *testing.T) {
	e := newTestEngine(t)

	days := 5
	recipients := "1001,1002"
	st, err := e.settings.Update(&models.UpdateSettingsRequest{
		DefaultForceDays:   &days,
		TelegramRecipients: &recipients,
	})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	if st.DefaultForceDays != 5 {
		t.Errorf("force days = %d, want 5", st.DefaultForceDays)
	}
	if st.TelegramRecipients != "1001,1002" {
		t.Errorf("recipients = %q", st.TelegramRecipients)
	}
	if st.AlertsRetentionDays != 30 {
		t.Error("untouched fields must keep their values")
	}

	on := true
	st, err = e.settings.Update(&models.UpdateSettingsRequest{NotifyBackupCreated: &on})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if !st.NotifyBackupCreated {
		t.Error("toggle update did not apply")
	}
	if st.DefaultForceDays != 5 {
		t.Error("earlier update must survive")
	}
}

func TestSettingsHeartbeat(t *testing.T) {
	e := newTestEngine(t)

	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	if err := e.settings.Heartbeat(at); err != nil {
		t.Fatalf("Heartbeat() error: %v", err)
	}

	st, err := e.settings.Get()
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if st.LastSchedulerRun == nil || !st.LastSchedulerRun.Equal(at) {
		t.Error("heartbeat not stored")
	}
}
