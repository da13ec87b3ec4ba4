package services_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/routervault/routervault/internal/services"
)

func TestSafeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"core-router", "core-router"},
		{"Office Router #2", "Office_Router__2"},
		{"..//etc/passwd", "etc_passwd"},
		{"___trimmed___", "trimmed"},
	}
	for _, tt := range tests {
		if got := services.SafeName(tt.in); got != tt.want {
			t.Errorf("SafeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBaseName(t *testing.T) {
	at := time.Date(2025, 3, 10, 14, 30, 5, 0, time.UTC)
	got := services.BaseName("core router", at)
	want := "rv_core_router_20250310T143005Z"
	if got != want {
		t.Errorf("BaseName() = %q, want %q", got, want)
	}
}

func TestDeviceDirs(t *testing.T) {
	store := services.NewArtifactStore(t.TempDir())

	backupsDir, rscDir, err := store.DeviceDirs("core-router")
	if err != nil {
		t.Fatalf("DeviceDirs() error: %v", err)
	}
	for _, dir := range []string{backupsDir, rscDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}
}

func writeAged(t *testing.T, dir, name string, age time.Duration) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("data"), 0640); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("failed to age %s: %v", name, err)
	}
}

func TestSweep(t *testing.T) {
	dir := t.TempDir()
	store := services.NewArtifactStore(dir)

	writeAged(t, dir, "rv_dev_expired.backup", 40*24*time.Hour)
	writeAged(t, dir, "rv_dev_protected.backup", 40*24*time.Hour)
	writeAged(t, dir, "rv_dev_recent.backup", time.Hour)
	writeAged(t, dir, "manual-copy.backup", 40*24*time.Hour)

	keep := map[string]struct{}{"rv_dev_protected.backup": {}}
	if err := store.Sweep(dir, 30, keep, time.Now()); err != nil {
		t.Fatalf("Sweep() error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "rv_dev_expired.backup")); !os.IsNotExist(err) {
		t.Error("expired file should have been removed")
	}
	for _, name := range []string{"rv_dev_protected.backup", "rv_dev_recent.backup", "manual-copy.backup"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s should have survived the sweep: %v", name, err)
		}
	}
}

func TestSweepProtectsKeptFilesUnderTightRetention(t *testing.T) {
	dir := t.TempDir()
	store := services.NewArtifactStore(dir)

	writeAged(t, dir, "rv_dev_important.backup", 365*24*time.Hour)

	keep := map[string]struct{}{"rv_dev_important.backup": {}}
	if err := store.Sweep(dir, 1, keep, time.Now()); err != nil {
		t.Fatalf("Sweep() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "rv_dev_important.backup")); err != nil {
		t.Errorf("kept file must survive any retention setting: %v", err)
	}
}

func TestSweepUsesProvidedTime(t *testing.T) {
	dir := t.TempDir()
	store := services.NewArtifactStore(dir)

	// The file is brand new on disk; only the caller-supplied reference
	// time decides whether it has aged out.
	writeAged(t, dir, "rv_dev_fresh.backup", 0)

	if err := store.Sweep(dir, 30, nil, time.Now().Add(40*24*time.Hour)); err != nil {
		t.Fatalf("Sweep() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "rv_dev_fresh.backup")); !os.IsNotExist(err) {
		t.Error("file should age out relative to the provided time")
	}

	writeAged(t, dir, "rv_dev_old.backup", 40*24*time.Hour)
	if err := store.Sweep(dir, 30, nil, time.Now().Add(-20*24*time.Hour)); err != nil {
		t.Fatalf("Sweep() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "rv_dev_old.backup")); err != nil {
		t.Error("file should survive relative to an earlier reference time")
	}
}

func TestSweepMissingDir(t *testing.T) {
	store := services.NewArtifactStore(t.TempDir())
	if err := store.Sweep(filepath.Join(t.TempDir(), "absent"), 30, nil, time.Now()); err != nil {
		t.Errorf("sweeping a missing directory should be a no-op, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	base := t.TempDir()
	store := services.NewArtifactStore(base)

	backupsDir, _, err := store.DeviceDirs("dev")
	if err != nil {
		t.Fatalf("DeviceDirs() error: %v", err)
	}
	if _, err := store.Write(backupsDir, "rv_dev_x.backup", []byte("data")); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	if err := store.Remove("dev", "backups", "rv_dev_x.backup"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if err := store.Remove("dev", "backups", "rv_dev_x.backup"); err != nil {
		t.Errorf("removing an already-gone file should succeed, got %v", err)
	}
	if err := store.Remove("dev", "backups", ""); err != nil {
		t.Errorf("removing an empty name should be a no-op, got %v", err)
	}
}
