package errors

import (
	"regexp"
)

// languageCodeRe matches the language tags the localization bundle can serve:
// a two or three letter primary subtag with an optional region ("en", "de-AT").
var languageCodeRe = regexp.MustCompile(`^[a-z]{2,3}(-[A-Za-z]{2})?$`)

// maxDimension bounds surface measurements. Larger values indicate a
// measurement bug upstream rather than a real drawing surface.
const maxDimension = 32768

// ValidateLanguage validates a language code before it is handed to the
// localization bundle. Unknown-but-well-formed codes are accepted; the bundle
// falls back to its default language for them.
func ValidateLanguage(code string) error {
	if code == "" {
		return New(ErrCodeInvalidLanguage, "language code cannot be empty")
	}
	if !languageCodeRe.MatchString(code) {
		return New(ErrCodeInvalidLanguage, "malformed language code: %q", code)
	}
	return nil
}

// ValidateDimensions validates a drawing surface size. The chart engine
// cannot be created against a zero or negative area.
func ValidateDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return New(ErrCodeInvalidDimensions, "surface not measurable: %dx%d", width, height)
	}
	if width > maxDimension || height > maxDimension {
		return New(ErrCodeInvalidDimensions, "surface too large: %dx%d (max %d)", width, height, maxDimension)
	}
	return nil
}
