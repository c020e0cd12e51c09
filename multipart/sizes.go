package multipart

import "github.com/dustin/go-humanize"

// ParseSize parses a human-readable size string such as "10MB" or
// "512KiB" into a byte count, for callers building Limits from
// configuration files or flags rather than literal byte counts.
func ParseSize(s string) (uint64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, NewConfigError("invalid size value " + s + ": " + err.Error())
	}
	return n, nil
}
