package multipart

import (
	"mime"
	"strings"
)

const maxBoundaryLen = 70

// ExtractBoundary parses a Content-Type header value, validates that it
// names a multipart media type, and returns the decoded boundary bytes
// (spec §4.1). The boundary parameter's outer token/quoted-string form
// is handled by the standard library's RFC 2045/2231 parameter parser
// (mime.ParseMediaType) since that is a narrowly-scoped, canonical piece
// of plumbing this package has no reason to reimplement; boundary
// percent-decoding and character-set validation belong to the engine and
// are performed here.
func ExtractBoundary(contentType string) ([]byte, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, NewInvalidBoundaryError("invalid Content-Type header: " + err.Error())
	}

	if !strings.HasPrefix(mediaType, "multipart/") {
		return nil, NewInvalidBoundaryError("Content-Type must be multipart/*, got " + mediaType)
	}

	raw, ok := params["boundary"]
	if !ok || raw == "" {
		return nil, NewInvalidBoundaryError("missing multipart boundary parameter")
	}

	decoded, err := decodeBoundaryPercentEncoding(raw)
	if err != nil {
		return nil, err
	}

	if err := validateBoundary(decoded); err != nil {
		return nil, err
	}

	return []byte(decoded), nil
}

func decodeBoundaryPercentEncoding(boundary string) (string, error) {
	if !strings.ContainsRune(boundary, '%') {
		return boundary, nil
	}

	raw := []byte(boundary)
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); {
		if raw[i] == '%' {
			if i+2 >= len(raw) {
				return "", NewInvalidBoundaryError("invalid percent-encoding in multipart boundary")
			}
			hi, ok1 := hexNibble(raw[i+1])
			lo, ok2 := hexNibble(raw[i+2])
			if !ok1 || !ok2 {
				return "", NewInvalidBoundaryError("invalid percent-encoding in multipart boundary")
			}
			out = append(out, (hi<<4)|lo)
			i += 3
			continue
		}
		out = append(out, raw[i])
		i++
	}
	return string(out), nil
}

func hexNibble(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	default:
		return 0, false
	}
}

// validateBoundary enforces the RFC 2046 bchars character set and the
// 1-70 character length bound from spec §3/§4.1.
func validateBoundary(boundary string) error {
	if len(boundary) == 0 {
		return NewInvalidBoundaryError("multipart boundary cannot be empty")
	}
	if len(boundary) > maxBoundaryLen {
		return NewInvalidBoundaryError("multipart boundary cannot exceed 70 characters")
	}
	if strings.HasSuffix(boundary, " ") {
		return NewInvalidBoundaryError("multipart boundary cannot end with whitespace")
	}
	for i := 0; i < len(boundary); i++ {
		if !isBoundaryChar(boundary[i]) {
			return NewInvalidBoundaryError("multipart boundary contains invalid characters")
		}
	}
	return nil
}

func isBoundaryChar(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	}
	switch c {
	case '\'', '(', ')', '+', '_', ',', '-', '.', '/', ':', '=', '?', ' ':
		return true
	}
	return false
}
