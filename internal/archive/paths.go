package archive

import (
	"fmt"
	"path"
	"strings"
)

// UnsafePathError reports a file path that cannot be stored or used as an
// archive entry name, for example one escaping the project root.
type UnsafePathError struct {
	Path   string
	Reason string
}

func (e *UnsafePathError) Error() string {
	return fmt.Sprintf("unsafe path %q: %s", e.Path, e.Reason)
}

// NormalizePath turns a client supplied file path into the canonical relative
// form used for storage and archive entry names. Backslashes become slashes,
// "." segments are removed and the result must stay inside the project root.
func NormalizePath(p string) (string, error) {
	raw := p
	if strings.TrimSpace(p) == "" {
		return "", &UnsafePathError{Path: raw, Reason: "path is empty"}
	}
	if strings.ContainsRune(p, 0) {
		return "", &UnsafePathError{Path: raw, Reason: "path contains a NUL byte"}
	}

	p = strings.ReplaceAll(p, "\\", "/")
	if strings.HasPrefix(p, "/") || hasDriveLetter(p) {
		return "", &UnsafePathError{Path: raw, Reason: "path must be relative"}
	}

	cleaned := path.Clean(p)
	if cleaned == "." {
		return "", &UnsafePathError{Path: raw, Reason: "path does not name a file"}
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", &UnsafePathError{Path: raw, Reason: "path escapes the project root"}
	}
	return cleaned, nil
}

func hasDriveLetter(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}
	c := p[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
