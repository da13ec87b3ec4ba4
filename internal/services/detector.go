package services

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/routervault/routervault/internal/mikrotik"
)

// Change summaries attached to backup records.
const (
	SummaryInitial   = "Initial snapshot"
	SummaryChanged   = "Hash changed"
	SummaryUnchanged = "No changes detected"
)

// Normalize strips blank and comment-only lines and trims the rest, so the
// hash is insensitive to whitespace and comment churn (exports embed
// timestamps in header comments).
func Normalize(raw string) string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		lines = append(lines, trimmed)
	}
	return strings.Join(lines, "\n")
}

// HashText returns the hex SHA-256 digest of text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Decide compares the new config hash against the stored one. An absent
// stored hash means this is the device's first-ever check, which always
// produces a baseline backup.
func Decide(newHash, oldHash string) (bool, string) {
	if oldHash == "" {
		return true, SummaryInitial
	}
	if newHash != oldHash {
		return true, SummaryChanged
	}
	return false, SummaryUnchanged
}

// LogClassifier decides which fetched log entries are worth storing in the
// audit trail. It has no influence on the changed/unchanged decision.
type LogClassifier interface {
	Keep(entry mikrotik.LogEntry) bool
}

// FilterLogs applies a classifier to a fetched log slice.
func FilterLogs(c LogClassifier, entries []mikrotik.LogEntry) []mikrotik.LogEntry {
	kept := make([]mikrotik.LogEntry, 0, len(entries))
	for _, e := range entries {
		if c.Keep(e) {
			kept = append(kept, e)
		}
	}
	return kept
}

// noisePhrases marks session and link lifecycle chatter.
var noisePhrases = []string{
	"logged in",
	"logged out",
	"link up",
	"link down",
	"connected",
	"disconnected",
	"initialized",
	"terminating",
	"terminated",
}

// changePattern matches an attributed configuration action: an action verb
// followed later in the line by "by" (e.g. "dhcp server changed by admin").
var changePattern = regexp.MustCompile(
	`(changed|added|removed|created|deleted|modified|set|enabled|disabled|imported|exported)\b.*\bby\b`)

// DefaultClassifier drops session/link noise and keeps entries from the
// scripting/scheduler subsystems or with change-indicating messages.
type DefaultClassifier struct{}

func NewDefaultClassifier() DefaultClassifier { return DefaultClassifier{} }

func (DefaultClassifier) Keep(entry mikrotik.LogEntry) bool {
	message := strings.ToLower(entry.Message)
	for _, phrase := range noisePhrases {
		if strings.Contains(message, phrase) {
			return false
		}
	}

	topics := strings.ToLower(entry.Topics)
	if strings.Contains(topics, "script") || strings.Contains(topics, "scheduler") {
		return true
	}
	return changePattern.MatchString(message)
}
