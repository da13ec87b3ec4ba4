package mikrotik

import (
	"context"
	"time"
)

// MockClient short-circuits all device I/O. Used when the deployment runs
// in mock mode and by tests that need a scripted device.
type MockClient struct {
	ExportText string
	Logs       []LogEntry
	ClockTime  time.Time
}

// NewMockClient returns a Factory producing mock clients with a fixed,
// stable export so repeated checks hash identically.
func NewMockClient(creds Credentials) Client {
	return &MockClient{
		ExportText: "# mock export\n/interface print\n",
	}
}

func (m *MockClient) TestConnection(ctx context.Context) (bool, string) {
	return true, "Mocked connection"
}

func (m *MockClient) Clock(ctx context.Context) (time.Time, error) {
	if m.ClockTime.IsZero() {
		return time.Now().UTC(), nil
	}
	return m.ClockTime, nil
}

func (m *MockClient) FetchLogs(ctx context.Context, since string) ([]LogEntry, error) {
	return FilterSince(m.Logs, since, time.Now().UTC()), nil
}

func (m *MockClient) ExportConfig(ctx context.Context) (string, error) {
	return m.ExportText, nil
}

func (m *MockClient) CreateBackup(ctx context.Context, name string) ([]byte, error) {
	return []byte("backup::" + name), nil
}

func (m *MockClient) CreateExport(ctx context.Context, name string) ([]byte, error) {
	return []byte(m.ExportText), nil
}

func (m *MockClient) RestoreBackup(ctx context.Context, name string, data []byte) error {
	return nil
}
