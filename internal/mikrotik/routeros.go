package mikrotik

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-routeros/routeros/v3"
	"github.com/jlaffaye/ftp"
)

// RouterOSClient implements Client against a real RouterOS device. API
// commands go over the management protocol; artifact files are fetched and
// uploaded over FTP because the API cannot carry file contents.
type RouterOSClient struct {
	creds Credentials
}

// NewClient returns a Factory producing RouterOS clients.
func NewClient(creds Credentials) Client {
	return &RouterOSClient{creds: creds}
}

func (c *RouterOSClient) dial() (*routeros.Client, error) {
	addr := net.JoinHostPort(c.creds.Address, strconv.Itoa(c.creds.APIPort))
	client, err := routeros.DialTimeout(addr, c.creds.Username, c.creds.Password, c.timeout())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return client, nil
}

func (c *RouterOSClient) timeout() time.Duration {
	if c.creds.Timeout <= 0 {
		return 5 * time.Second
	}
	return c.creds.Timeout
}

// run executes one API sentence bounded by the credential timeout. A
// device that accepts the connection and then goes silent must not stall
// the caller's cycle.
func (c *RouterOSClient) run(ctx context.Context, client *routeros.Client, sentence ...string) (*routeros.Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()
	return client.RunContext(ctx, sentence...)
}

// TestConnection checks API reachability by listing system resources.
func (c *RouterOSClient) TestConnection(ctx context.Context) (bool, string) {
	client, err := c.dial()
	if err != nil {
		return false, err.Error()
	}
	defer client.Close()

	if _, err := c.run(ctx, client, "/system/resource/print"); err != nil {
		return false, err.Error()
	}
	return true, "Connected"
}

// Clock reads /system/clock and combines the date and time fields.
func (c *RouterOSClient) Clock(ctx context.Context) (time.Time, error) {
	client, err := c.dial()
	if err != nil {
		return time.Time{}, err
	}
	defer client.Close()

	reply, err := c.run(ctx, client, "/system/clock/print")
	if err != nil {
		return time.Time{}, err
	}
	if len(reply.Re) == 0 {
		return time.Time{}, fmt.Errorf("empty clock reply from %s", c.creds.Address)
	}
	m := reply.Re[0].Map
	return parseClock(m["date"], m["time"])
}

// clockDateLayouts: RouterOS 7.10 switched to ISO dates.
var clockDateLayouts = []string{"Jan/02/2006", "2006-01-02"}

func parseClock(date, clock string) (time.Time, error) {
	for _, layout := range clockDateLayouts {
		d, err := time.Parse(layout, date)
		if err != nil {
			continue
		}
		t, err := time.Parse("15:04:05", clock)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse clock time %q: %w", clock, err)
		}
		return time.Date(d.Year(), d.Month(), d.Day(),
			t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("parse clock date %q", date)
}

// FetchLogs reads the device log buffer and keeps entries newer than since.
func (c *RouterOSClient) FetchLogs(ctx context.Context, since string) ([]LogEntry, error) {
	client, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	reply, err := c.run(ctx, client, "/log/print")
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entries := make([]LogEntry, 0, len(reply.Re))
	for _, re := range reply.Re {
		raw := re.Map["time"]
		e := LogEntry{
			Time:    raw,
			Topics:  re.Map["topics"],
			Message: re.Map["message"],
		}
		if t, ok := ParseDeviceTime(raw, now); ok {
			e.Time = t.Format(CursorLayout)
		}
		entries = append(entries, e)
	}
	return FilterSince(entries, since, now), nil
}

// ExportConfig runs /export and concatenates the returned text lines.
func (c *RouterOSClient) ExportConfig(ctx context.Context) (string, error) {
	client, err := c.dial()
	if err != nil {
		return "", err
	}
	defer client.Close()

	reply, err := c.run(ctx, client, "/export")
	if err != nil {
		return "", fmt.Errorf("export config: %w", err)
	}

	var b strings.Builder
	for _, re := range reply.Re {
		b.WriteString(re.Map["text"])
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// CreateBackup saves a binary backup on the device and downloads it.
func (c *RouterOSClient) CreateBackup(ctx context.Context, name string) ([]byte, error) {
	client, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if _, err := c.run(ctx, client, "/system/backup/save", "=name="+name); err != nil {
		return nil, fmt.Errorf("backup save: %w", err)
	}
	return c.downloadFile(name + ".backup")
}

// CreateExport writes a textual export file on the device and downloads it.
func (c *RouterOSClient) CreateExport(ctx context.Context, name string) ([]byte, error) {
	client, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if _, err := c.run(ctx, client, "/export", "=file="+name); err != nil {
		return nil, fmt.Errorf("export file: %w", err)
	}
	return c.downloadFile(name + ".rsc")
}

// RestoreBackup uploads a binary backup over FTP and loads it via the API.
// Loading reboots the device.
func (c *RouterOSClient) RestoreBackup(ctx context.Context, name string, data []byte) error {
	if err := c.uploadFile(name, data); err != nil {
		return err
	}

	client, err := c.dial()
	if err != nil {
		return err
	}
	defer client.Close()

	base := strings.TrimSuffix(name, ".backup")
	if _, err := c.run(ctx, client, "/system/backup/load", "=name="+base); err != nil {
		return fmt.Errorf("backup load: %w", err)
	}
	return nil
}

// deadlineConn arms an idle deadline before every read and write, so FTP
// transfers stay bounded after the dial succeeds.
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(p)
}

func (c *deadlineConn) Write(p []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(p)
}

func (c *RouterOSClient) dialFTP() (*ftp.ServerConn, error) {
	addr := net.JoinHostPort(c.creds.Address, strconv.Itoa(c.creds.FTPPort))
	// The dial func also serves data connections, so the deadline wrapper
	// covers the control channel and the transfers alike.
	conn, err := ftp.Dial(addr, ftp.DialWithDialFunc(func(network, address string) (net.Conn, error) {
		raw, err := net.DialTimeout(network, address, c.timeout())
		if err != nil {
			return nil, err
		}
		return &deadlineConn{Conn: raw, timeout: c.timeout()}, nil
	}))
	if err != nil {
		return nil, fmt.Errorf("ftp dial %s: %w", addr, err)
	}
	if err := conn.Login(c.creds.Username, c.creds.Password); err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("ftp login: %w", err)
	}
	return conn, nil
}

func (c *RouterOSClient) downloadFile(filename string) ([]byte, error) {
	conn, err := c.dialFTP()
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Quit() }()

	resp, err := conn.Retr(filename)
	if err != nil {
		return nil, fmt.Errorf("ftp retr %s: %w", filename, err)
	}
	data, err := io.ReadAll(resp)
	_ = resp.Close()
	if err != nil {
		return nil, err
	}
	// The artifact now lives in local storage; flash on the device is small.
	_ = conn.Delete(filename)
	return data, nil
}

func (c *RouterOSClient) uploadFile(filename string, data []byte) error {
	conn, err := c.dialFTP()
	if err != nil {
		return err
	}
	defer func() { _ = conn.Quit() }()

	if err := conn.Stor(filename, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("ftp stor %s: %w", filename, err)
	}
	return nil
}
