// Package validation sanitizes identifiers that cross the command-registry
// boundary before they reach memstore lookups. It has no dependencies on
// other internal packages to avoid import cycles.
package validation

import (
	"errors"
	"strings"
)

// ErrInvalidMemoryRecordID indicates a /memory edit|delete id argument is
// empty or shaped like a path rather than a memstore record id.
var ErrInvalidMemoryRecordID = errors.New("invalid memory record id")

// MemoryRecordID checks that id is safe to hand to memstore.Store.Update/
// Delete. Memory records are addressed by uuid.NewString() values held in
// an in-memory slice, never by filesystem path, but a value containing a
// path separator or a "." segment is never something a user meant to type
// as a record id and is rejected before the store does a linear scan for
// it, rather than returned as a confusing "record not found".
func MemoryRecordID(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", ErrInvalidMemoryRecordID
	}
	if trimmed == "." || trimmed == ".." {
		return "", ErrInvalidMemoryRecordID
	}
	if strings.ContainsAny(trimmed, `/\`) {
		return "", ErrInvalidMemoryRecordID
	}
	return trimmed, nil
}
