package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateKey validates a storage key or id for safety. Keys end up in file
// paths, Redis keys and SQL parameters, so anything that could traverse a
// directory or smuggle control characters is rejected.
//
// The validation rules are intentionally conservative:
//   - No empty keys
//   - No control characters
//   - No path traversal sequences (.., //, etc.)
//   - No null bytes
//   - Maximum length of 256 characters
func ValidateKey(key string) error {
	if key == "" {
		return New(ErrCodeInvalidKey, "key cannot be empty")
	}

	if len(key) > 256 {
		return New(ErrCodeInvalidKey, "key too long (max 256 characters)")
	}

	for _, r := range key {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidKey, "key contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(key, pattern) {
			return New(ErrCodeInvalidKey, "key contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// projectIDRegex matches project ids: letters, digits, dash, underscore, dot.
var projectIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateProjectID validates a project id as used in URLs and storage keys.
func ValidateProjectID(id string) error {
	if err := ValidateKey(id); err != nil {
		return New(ErrCodeInvalidInput, "invalid project id: %s", UserMessage(err))
	}
	if !projectIDRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid project id: %q", id)
	}
	return nil
}

// ValidateGraphName validates a user-supplied graph name.
func ValidateGraphName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return New(ErrCodeInvalidInput, "graph name cannot be empty")
	}
	if len(name) > 120 {
		return New(ErrCodeInvalidInput, "graph name too long (max 120 characters)")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "graph name contains invalid control characters")
		}
	}
	return nil
}
