package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// UUIDv4Regex validates lowercase UUIDv4 format
var UUIDv4Regex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// ValidateUUID validates a UUID v4 format (lowercase with hyphens)
func ValidateUUID(uuid string) error {
	if !UUIDv4Regex.MatchString(uuid) {
		return fmt.Errorf("invalid UUID: must be lowercase UUIDv4 format (e.g., 550e8400-e29b-41d4-a716-446655440000)")
	}
	return nil
}

// ValidateText validates quote text after trimming
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return &ValidationError{Field: "text", Message: "must not be empty"}
	}
	return nil
}

// ValidateCategory validates a quote category after trimming
func ValidateCategory(category string) error {
	if strings.TrimSpace(category) == "" {
		return &ValidationError{Field: "category", Message: "must not be empty"}
	}
	return nil
}

// ValidateOrigin validates a record origin
func ValidateOrigin(origin string) error {
	switch Origin(origin) {
	case OriginLocal, OriginRemote:
		return nil
	default:
		return &ValidationError{Field: "origin", Message: "must be one of: local, server"}
	}
}

// ParseChoice accepts the spellings used by the CLI and the daemon API.
func ParseChoice(s string) (Choice, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "local", "keep-local", "keep_local":
		return ChoiceKeepLocal, nil
	case "server", "remote", "keep-server", "keep_server":
		return ChoiceKeepServer, nil
	default:
		return "", &ValidationError{Field: "choice", Message: "must be one of: local, server"}
	}
}

// ValidateTimestamp validates and parses an ISO8601 timestamp
func ValidateTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp format: expected ISO8601/RFC3339")
	}
	return t, nil
}
