package id

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	remoteLocalIDPattern = regexp.MustCompile(`^srv-(\d+)$`)
	uuidPattern          = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

// shortLen is the display width of an abbreviated id
const shortLen = 8

// NewLocalID returns a fresh id for a record created on this client
func NewLocalID() string {
	return uuid.NewString()
}

// NewConflictID returns a fresh identity for a queued conflict
func NewConflictID() string {
	return uuid.NewString()
}

// FormatRemoteLocalID formats the local id given to records first seen in a
// remote snapshot
func FormatRemoteLocalID(remoteID int64) string {
	return fmt.Sprintf("srv-%d", remoteID)
}

// ParseRemoteLocalID extracts the remote id from a srv-<n> local id
func ParseRemoteLocalID(s string) (int64, bool) {
	m := remoteLocalIDPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsUUID checks if a string is a valid UUID
func IsUUID(s string) bool {
	return uuidPattern.MatchString(strings.ToLower(s))
}

// Short abbreviates an id for table output
func Short(s string) string {
	if len(s) <= shortLen {
		return s
	}
	return s[:shortLen]
}
