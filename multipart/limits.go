package multipart

import "strings"

// Limits bounds the resources a single multipart parse may consume
// (spec §4.4). A zero value means "unbounded" for MaxFileSize, MaxFiles
// and MaxBodySize; MaxFieldSize, MaxFields and MaxHeaderBytes instead
// fall back to their documented defaults (1 MiB, 1000, 8 KiB) when left
// zero, applied by newConfig. A nil AllowedMIMETypes means "all types
// allowed".
type Limits struct {
	MaxFileSize    uint64
	MaxFieldSize   uint64
	MaxFiles       int
	MaxFields      int
	MaxBodySize    uint64
	MaxHeaderBytes int

	// AllowedMIMETypes is the global allowlist, checked against every
	// file part's Content-Type unless a Field declares its own.
	// Entries may use a "type/*" wildcard. nil/empty means unrestricted.
	AllowedMIMETypes []string
}

// isMIMEAllowed reports whether contentType matches one of patterns, or
// true if patterns is empty (spec §4.4: "no global or per-field
// allowlist ⇒ unrestricted").
func isMIMEAllowed(contentType string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		if mimeMatches(contentType, pattern) {
			return true
		}
	}
	return false
}

func mimeMatches(contentType, pattern string) bool {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	pattern = strings.ToLower(strings.TrimSpace(pattern))

	if pattern == "*/*" {
		return true
	}

	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "*")
		return strings.HasPrefix(contentType, prefix)
	}

	return contentType == pattern
}
