package backend

import (
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var windowsReservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// sanitizeFilename strips directory components, control characters,
// and path traversal segments from a caller-supplied filename, falling
// back to a random name if nothing usable remains (spec §4.8).
func sanitizeFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return randomFilename()
	}

	var b strings.Builder
	b.Grow(len(base))
	for _, r := range base {
		switch {
		case r < 0x20 || r == 0x7f:
			continue
		case r == '/' || r == '\\' || r == 0:
			continue
		default:
			b.WriteRune(r)
		}
	}

	cleaned := strings.Trim(b.String(), " .")
	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return randomFilename()
	}

	stem := cleaned
	if idx := strings.IndexByte(cleaned, '.'); idx > 0 {
		stem = cleaned[:idx]
	}
	if windowsReservedNames[strings.ToUpper(stem)] {
		cleaned = "_" + cleaned
	}

	return cleaned
}

func randomFilename() string {
	return "file-" + uuid.NewString()
}

// withCollisionSuffix appends a monotonic "(2)", "(3)", ... suffix
// before the file extension until exists reports the candidate path is
// free (spec §4.8).
func withCollisionSuffix(name string, exists func(candidate string) bool) string {
	if !exists(name) {
		return name
	}
	for n := 2; ; n++ {
		candidate := suffixedName(name, n)
		if !exists(candidate) {
			return candidate
		}
	}
}

// suffixedName inserts a "(n)" collision suffix before name's extension.
// n == 1 returns name unchanged.
func suffixedName(name string, n int) string {
	if n <= 1 {
		return name
	}
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return stem + "(" + strconv.Itoa(n) + ")" + ext
}
