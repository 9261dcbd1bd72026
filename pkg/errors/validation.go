package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// aliasRegex matches flow aliases: they become bundle file names and URL
// query values, so only a conservative character set is allowed.
var aliasRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateAlias validates a flow alias for safety and correctness.
//
// Validation rules:
//   - No empty aliases
//   - Maximum length of 128 characters
//   - Letters, digits, '.', '_' and '-' only, starting with a letter or digit
//   - No ".." sequences
func ValidateAlias(alias string) error {
	if alias == "" {
		return New(ErrCodeInvalidAlias, "flow alias cannot be empty")
	}
	if len(alias) > 128 {
		return New(ErrCodeInvalidAlias, "flow alias too long (max 128 characters)")
	}
	if strings.Contains(alias, "..") {
		return New(ErrCodeInvalidAlias, "flow alias cannot contain '..': %q", alias)
	}
	if !aliasRegex.MatchString(alias) {
		return New(ErrCodeInvalidAlias, "invalid flow alias: %q", alias)
	}
	return nil
}

// ValidatePath validates a source path taken from configuration.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No backslashes (paths are always '/'-separated in config files)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}
