// Package testutil provides deterministic test doubles for the backup
// engine: a stub clock, a scripted device client, and a throwaway database.
package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/routervault/routervault/internal/database"
	"github.com/routervault/routervault/internal/mikrotik"
)

// OpenTestDB creates a migrated sqlite database in a temp directory.
func OpenTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

// StubClock returns a settable time. Safe for concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewStubClock creates a StubClock set to the given time.
func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *StubClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// FakeDevice is a scripted mikrotik.Client. A non-nil Err fails every
// I/O call, simulating an unreachable device.
type FakeDevice struct {
	mu sync.Mutex

	Export     string // returned by ExportConfig
	FileExport string // returned by CreateExport; defaults to Export
	Logs       []mikrotik.LogEntry
	ClockTime  time.Time
	Err        error

	BackupCalls  int
	ExportCalls  int
	RestoredName string
	RestoredData []byte
}

func (f *FakeDevice) TestConnection(ctx context.Context) (bool, string) {
	if f.Err != nil {
		return false, f.Err.Error()
	}
	return true, "Connected"
}

func (f *FakeDevice) Clock(ctx context.Context) (time.Time, error) {
	if f.Err != nil {
		return time.Time{}, f.Err
	}
	return f.ClockTime, nil
}

func (f *FakeDevice) FetchLogs(ctx context.Context, since string) ([]mikrotik.LogEntry, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return mikrotik.FilterSince(f.Logs, since, f.ClockTime), nil
}

func (f *FakeDevice) ExportConfig(ctx context.Context) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	return f.Export, nil
}

func (f *FakeDevice) CreateBackup(ctx context.Context, name string) ([]byte, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.mu.Lock()
	f.BackupCalls++
	f.mu.Unlock()
	return []byte("backup::" + name), nil
}

func (f *FakeDevice) CreateExport(ctx context.Context, name string) ([]byte, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.mu.Lock()
	f.ExportCalls++
	f.mu.Unlock()
	if f.FileExport != "" {
		return []byte(f.FileExport), nil
	}
	return []byte(f.Export), nil
}

func (f *FakeDevice) RestoreBackup(ctx context.Context, name string, data []byte) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	f.RestoredName = name
	f.RestoredData = data
	f.mu.Unlock()
	return nil
}

// FakeFleet routes factory calls to per-address fake devices.
type FakeFleet struct {
	mu      sync.Mutex
	Devices map[string]*FakeDevice
}

func NewFakeFleet() *FakeFleet {
	return &FakeFleet{Devices: make(map[string]*FakeDevice)}
}

// Add registers a fake device under an address and returns it.
func (f *FakeFleet) Add(address string, device *FakeDevice) *FakeDevice {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Devices[address] = device
	return device
}

// Factory is a mikrotik.Factory serving the registered fakes.
func (f *FakeFleet) Factory(creds mikrotik.Credentials) mikrotik.Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.Devices[creds.Address]; ok {
		return d
	}
	return &FakeDevice{}
}
