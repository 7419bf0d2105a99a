package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// layerNameRegex matches layer names as they appear in process kits (e.g. "Metal1", "TopMetal2").
var layerNameRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ValidateLayerName validates a layer name passed on the command line or in a
// configuration override.
//
// The rules are intentionally conservative:
//   - No empty names
//   - Maximum length of 64 characters
//   - Letters, digits and underscores, starting with a letter
func ValidateLayerName(name string) error {
	if name == "" {
		return New(ErrCodeUnknownLayer, "layer name cannot be empty")
	}
	if len(name) > 64 {
		return New(ErrCodeUnknownLayer, "layer name too long (max 64 characters)")
	}
	if !layerNameRegex.MatchString(name) {
		return New(ErrCodeUnknownLayer, "invalid layer name: %q", name)
	}
	return nil
}

// ValidateProcessName validates a process kit name such as "ihp-sg13g2".
// Process names are used as lookup keys into embedded files, so path components
// are rejected.
func ValidateProcessName(name string) error {
	if name == "" {
		return New(ErrCodeUnknownProcess, "process name cannot be empty")
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return New(ErrCodeUnknownProcess, "process name cannot contain path components: %q", name)
	}
	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeUnknownProcess, "process name contains invalid characters")
		}
	}
	return nil
}

// ValidatePath validates a file path given to the CLI.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateCoreSize checks a core-area override given as lower-left and
// upper-right corners in microns.
func ValidateCoreSize(llx, lly, urx, ury float64) error {
	if urx <= llx || ury <= lly {
		return New(ErrCodeInvalidInput, "core size must have upper right (%g, %g) above lower left (%g, %g)", urx, ury, llx, lly)
	}
	if llx < 0 || lly < 0 {
		return New(ErrCodeInvalidInput, "core size cannot have negative coordinates")
	}
	return nil
}
