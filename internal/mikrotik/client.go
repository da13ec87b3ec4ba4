// Package mikrotik talks to RouterOS devices over the management API and
// retrieves artifact files over FTP.
package mikrotik

import (
	"context"
	"strings"
	"time"
)

// CursorLayout is the canonical timestamp format used for log cursors and
// device-reported log times.
const CursorLayout = "2006-01-02 15:04:05"

// LogEntry is a single device log line.
type LogEntry struct {
	Time    string `json:"time"`
	Topics  string `json:"topics"`
	Message string `json:"message"`
}

// Client is the device capability boundary consumed by the backup engine.
// Implementations must bound every call by the credential timeout; a
// transport failure is fatal for the caller's current cycle.
type Client interface {
	// TestConnection reports reachability and a human-readable detail.
	TestConnection(ctx context.Context) (bool, string)
	// Clock reads the device's current wall-clock time.
	Clock(ctx context.Context) (time.Time, error)
	// FetchLogs returns log entries strictly newer than the since cursor.
	// An empty cursor returns the device's full log buffer.
	FetchLogs(ctx context.Context, since string) ([]LogEntry, error)
	// ExportConfig returns the running configuration as text.
	ExportConfig(ctx context.Context) (string, error)
	// CreateBackup produces a full binary backup named name and returns it.
	CreateBackup(ctx context.Context, name string) ([]byte, error)
	// CreateExport produces a textual export artifact named name.
	CreateExport(ctx context.Context, name string) ([]byte, error)
	// RestoreBackup uploads a binary backup and asks the device to load it.
	RestoreBackup(ctx context.Context, name string, data []byte) error
}

// Credentials identifies and authenticates one device connection.
type Credentials struct {
	Address  string
	APIPort  int
	FTPPort  int
	Username string
	Password string
	Timeout  time.Duration
}

// Factory builds a Client for the given credentials. The scheduler and the
// manual backup path construct one client per cycle.
type Factory func(Credentials) Client

// deviceTimeLayouts covers the timestamp shapes RouterOS emits in log
// entries, oldest firmware first.
var deviceTimeLayouts = []string{
	CursorLayout,
	"Jan/02/2006 15:04:05",
	"Jan/02 15:04:05",
	"15:04:05",
}

// ParseDeviceTime parses a device-reported timestamp, borrowing missing
// date parts from now. Returns false if no known layout matches.
func ParseDeviceTime(raw string, now time.Time) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range deviceTimeLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		switch layout {
		case "15:04:05":
			t = time.Date(now.Year(), now.Month(), now.Day(),
				t.Hour(), t.Minute(), t.Second(), 0, now.Location())
		case "Jan/02 15:04:05":
			t = time.Date(now.Year(), t.Month(), t.Day(),
				t.Hour(), t.Minute(), t.Second(), 0, now.Location())
		default:
			t = time.Date(t.Year(), t.Month(), t.Day(),
				t.Hour(), t.Minute(), t.Second(), 0, now.Location())
		}
		return t, true
	}
	return time.Time{}, false
}

// FilterSince drops entries at or before the since cursor. Entries whose
// timestamp cannot be parsed are kept; losing them would hide real events.
func FilterSince(entries []LogEntry, since string, now time.Time) []LogEntry {
	if since == "" {
		return entries
	}
	cursor, ok := ParseDeviceTime(since, now)
	if !ok {
		return entries
	}
	kept := make([]LogEntry, 0, len(entries))
	for _, e := range entries {
		t, ok := ParseDeviceTime(e.Time, now)
		if ok && !t.After(cursor) {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}
