// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

var ErrInvalidIdentity = errors.New("invalid identity")

// SystemSender is the reserved identity used for server-generated
// join/leave chat announcements.
const SystemSender = "System"

// CleanDisplayName trims the raw name presented at join time.
// An empty result is a rejected identity, never a participant.
func CleanDisplayName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", ErrInvalidIdentity
	}
	return name, nil
}
