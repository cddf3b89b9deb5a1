package database

import (
	"fmt"
	"strings"

	"gasdb/gderrors"
)

const disallowedNameChars = `/\:*?"<>|`

var reservedNames = map[string]bool{
	"index":  true,
	"master": true,
	"system": true,
	"admin":  true,
}

// sanitiseName strips disallowed characters from name.
func sanitiseName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(disallowedNameChars, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// validateName enforces the collection name grammar: non-empty, forbidding
// `/ \ : * ? " < > |` unless stripping is enabled, and rejecting reserved
// names (case-insensitive) after any stripping.
func validateName(name string, strip bool) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: collection name must not be empty", gderrors.ErrInvalidArgument)
	}

	candidate := name
	if strip {
		candidate = sanitiseName(name)
		if candidate == "" {
			return "", fmt.Errorf("%w: collection name %q is empty after sanitisation", gderrors.ErrInvalidArgument, name)
		}
	} else if strings.ContainsAny(name, disallowedNameChars) {
		return "", fmt.Errorf("%w: collection name %q contains disallowed characters", gderrors.ErrInvalidArgument, name)
	}

	if reservedNames[strings.ToLower(candidate)] {
		return "", fmt.Errorf("%w: collection name %q is reserved", gderrors.ErrInvalidArgument, candidate)
	}

	return candidate, nil
}
