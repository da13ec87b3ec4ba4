package services

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FilePrefix marks files owned by the retention sweep. Foreign files in a
// device folder are never touched.
const FilePrefix = "rv_"

// ArtifactStore manages the per-device artifact folders on local disk:
// <base>/<device>/backups for binary backups, <base>/<device>/rsc for
// textual exports.
type ArtifactStore struct {
	base string
}

func NewArtifactStore(base string) *ArtifactStore {
	return &ArtifactStore{base: base}
}

// SafeName reduces a device name to a filesystem- and URL-safe slug.
func SafeName(value string) string {
	out := make([]rune, 0, len(value))
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	s := string(out)
	for len(s) > 0 && s[0] == '_' {
		s = s[1:]
	}
	for len(s) > 0 && s[len(s)-1] == '_' {
		s = s[:len(s)-1]
	}
	return s
}

// BaseName builds the artifact base name for one backup: the fixed prefix,
// the device slug, and a UTC stamp. Lexicographic order equals creation
// order.
func BaseName(deviceName string, t time.Time) string {
	return fmt.Sprintf("%s%s_%s", FilePrefix, SafeName(deviceName), t.UTC().Format("20060102T150405Z"))
}

// DeviceDirs creates (if needed) and returns the backups and rsc folders
// for a device.
func (s *ArtifactStore) DeviceDirs(deviceName string) (backupsDir, rscDir string, err error) {
	deviceDir := filepath.Join(s.base, SafeName(deviceName))
	backupsDir = filepath.Join(deviceDir, "backups")
	rscDir = filepath.Join(deviceDir, "rsc")
	if err = os.MkdirAll(backupsDir, 0750); err != nil {
		return "", "", err
	}
	if err = os.MkdirAll(rscDir, 0750); err != nil {
		return "", "", err
	}
	return backupsDir, rscDir, nil
}

// Write persists one artifact file and returns its full path.
func (s *ArtifactStore) Write(dir, name string, data []byte) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0640); err != nil {
		return "", err
	}
	return path, nil
}

// ArtifactPath resolves an artifact file inside a device folder. The name
// is reduced to its base so a crafted value cannot escape the folder.
func (s *ArtifactStore) ArtifactPath(deviceName, subdir, name string) string {
	return filepath.Join(s.base, SafeName(deviceName), subdir, filepath.Base(name))
}

// Sweep deletes prefix-owned files in dir older than retentionDays as of
// now, except filenames present in keep. Important backup records
// contribute their artifact filenames to keep and are therefore never
// swept.
func (s *ArtifactStore) Sweep(dir string, retentionDays int, keep map[string]struct{}, now time.Time) error {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	cutoff := now.Add(-time.Duration(retentionDays) * 24 * time.Hour)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if len(name) < len(FilePrefix) || name[:len(FilePrefix)] != FilePrefix {
			continue
		}
		if _, protected := keep[name]; protected {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Remove deletes a single artifact file, ignoring files already gone.
func (s *ArtifactStore) Remove(deviceName, subdir, name string) error {
	if name == "" {
		return nil
	}
	err := os.Remove(s.ArtifactPath(deviceName, subdir, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
