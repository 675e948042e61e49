package errors

import (
	"slices"
	"strings"
	"unicode"
)

// ValidateID validates a node or connection identity read from a patch file.
//
// The validation rules are intentionally conservative:
//   - No empty IDs
//   - No whitespace or control characters
//   - Maximum length of 128 characters
func ValidateID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidID, "id cannot be empty")
	}

	if len(id) > 128 {
		return New(ErrCodeInvalidID, "id too long (max 128 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidID, "id contains whitespace or control characters: %q", id)
		}
	}

	return nil
}

// ValidateFormats checks that every requested output format is one of
// allowed. Formats are compared case-insensitively after trimming.
func ValidateFormats(formats, allowed []string) error {
	if len(formats) == 0 {
		return New(ErrCodeInvalidFormat, "no output format given")
	}
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if !slices.Contains(allowed, f) {
			return New(ErrCodeInvalidFormat, "unsupported format %q (valid: %s)", f, strings.Join(allowed, ", "))
		}
	}
	return nil
}
