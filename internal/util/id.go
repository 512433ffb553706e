package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random identifier, optionally namespaced as prefix_<hex>.
func NewID(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

// IsUUID reports whether value parses as a UUID. Row ids are uuids.
func IsUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}
