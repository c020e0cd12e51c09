package multipart

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// ErrorCode classifies a *Error by the taxonomy in the package design
// notes: configuration, structural parse, policy, size-limit, content,
// and I/O failures.
type ErrorCode int

const (
	ErrCodeUnknown ErrorCode = iota

	// Configuration
	ErrCodeConfig

	// Structural parse failures
	ErrCodeInvalidBoundary
	ErrCodeInvalidHeader
	ErrCodeIncompleteMultipart
	ErrCodeHeaderTooLarge

	// Policy violations
	ErrCodeUnexpectedField
	ErrCodeUnexpectedFile
	ErrCodeTooManyFiles
	ErrCodeTooManyFields
	ErrCodeUnsupportedMediaType

	// Size limits
	ErrCodeFileTooLarge
	ErrCodeFieldTooLarge
	ErrCodeBodyTooLarge

	// Content
	ErrCodeDecodeError
	ErrCodePartAlreadyConsumed

	// I/O
	ErrCodeUpstreamError
	ErrCodeStorageError
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeConfig:
		return "ConfigError"
	case ErrCodeInvalidBoundary:
		return "InvalidBoundary"
	case ErrCodeInvalidHeader:
		return "InvalidHeader"
	case ErrCodeIncompleteMultipart:
		return "IncompleteMultipart"
	case ErrCodeHeaderTooLarge:
		return "HeaderTooLarge"
	case ErrCodeUnexpectedField:
		return "UnexpectedField"
	case ErrCodeUnexpectedFile:
		return "UnexpectedFile"
	case ErrCodeTooManyFiles:
		return "TooManyFiles"
	case ErrCodeTooManyFields:
		return "TooManyFields"
	case ErrCodeUnsupportedMediaType:
		return "UnsupportedMediaType"
	case ErrCodeFileTooLarge:
		return "FileTooLarge"
	case ErrCodeFieldTooLarge:
		return "FieldTooLarge"
	case ErrCodeBodyTooLarge:
		return "BodyTooLarge"
	case ErrCodeDecodeError:
		return "DecodeError"
	case ErrCodePartAlreadyConsumed:
		return "PartAlreadyConsumed"
	case ErrCodeUpstreamError:
		return "UpstreamError"
	case ErrCodeStorageError:
		return "StorageError"
	default:
		return "Unknown"
	}
}

// Error is the error type returned by every operation in this package.
// It carries a machine-checkable ErrorCode alongside a human message and
// an optional wrapped cause.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("multipart: %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("multipart: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *Error with the same code, so callers
// can write errors.Is(err, &Error{Code: ErrCodeFileTooLarge}).
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Code == e.Code
}

func newErr(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func newErrf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func wrapErr(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

// NewConfigError reports a builder/config validation failure.
func NewConfigError(reason string) *Error {
	return newErr(ErrCodeConfig, reason)
}

// NewInvalidBoundaryError reports a malformed or missing multipart
// boundary, per the Boundary & Header Parser component.
func NewInvalidBoundaryError(reason string) *Error {
	return newErr(ErrCodeInvalidBoundary, reason)
}

// NewInvalidHeaderError reports a malformed part header block.
func NewInvalidHeaderError(reason string) *Error {
	return newErr(ErrCodeInvalidHeader, reason)
}

// NewIncompleteMultipartError reports that the upstream chunk source
// ended before a terminating boundary was observed.
func NewIncompleteMultipartError() *Error {
	return newErr(ErrCodeIncompleteMultipart, "multipart stream ended before a terminating boundary")
}

// NewHeaderTooLargeError reports a part header block exceeding the
// configured max_header_bytes.
func NewHeaderTooLargeError(limit int) *Error {
	return newErrf(ErrCodeHeaderTooLarge, "part header block exceeded %s limit", humanize.IBytes(uint64(limit)))
}

// NewUnexpectedFieldError reports a part whose field name the active
// selector does not recognize.
func NewUnexpectedFieldError(field string) *Error {
	return newErrf(ErrCodeUnexpectedField, "unexpected field %q", field)
}

// NewUnexpectedFileError reports a file part rejected by a selector
// that does not accept files (SelectorNone()).
func NewUnexpectedFileError(field string) *Error {
	return newErrf(ErrCodeUnexpectedFile, "unexpected file on field %q", field)
}

// NewTooManyFilesError reports a file-count limit violation. field is
// empty for the global max_files limit, non-empty for a per-field cap.
func NewTooManyFilesError(field string, limit int) *Error {
	if field == "" {
		return newErrf(ErrCodeTooManyFiles, "file count exceeded global limit of %d", limit)
	}
	return newErrf(ErrCodeTooManyFiles, "field %q exceeded max file count of %d", field, limit)
}

// NewTooManyFieldsError reports a text-field-count limit violation.
// field is empty for the global max_fields limit, non-empty for a
// per-field cap.
func NewTooManyFieldsError(field string, limit int) *Error {
	if field == "" {
		return newErrf(ErrCodeTooManyFields, "field count exceeded global limit of %d", limit)
	}
	return newErrf(ErrCodeTooManyFields, "field %q exceeded max count of %d", field, limit)
}

// NewUnsupportedMediaTypeError reports a MIME type rejected by an
// allowlist (global or per-field).
func NewUnsupportedMediaTypeError(field, mime string) *Error {
	return newErrf(ErrCodeUnsupportedMediaType, "field %q has disallowed content type %q", field, mime)
}

// NewFileTooLargeError reports a file part exceeding its applicable
// size limit.
func NewFileTooLargeError(field string, limit uint64) *Error {
	return newErrf(ErrCodeFileTooLarge, "field %q exceeded max file size of %s", field, humanize.IBytes(limit))
}

// NewFieldTooLargeError reports a text field exceeding its applicable
// size limit.
func NewFieldTooLargeError(field string, limit uint64) *Error {
	return newErrf(ErrCodeFieldTooLarge, "field %q exceeded max field size of %s", field, humanize.IBytes(limit))
}

// NewBodyTooLargeError reports the overall request exceeding
// max_body_size.
func NewBodyTooLargeError(limit uint64) *Error {
	return newErrf(ErrCodeBodyTooLarge, "request exceeded max body size of %s", humanize.IBytes(limit))
}

// NewDecodeError reports a Part.Text UTF-8 decode failure.
func NewDecodeError(cause error) *Error {
	return wrapErr(ErrCodeDecodeError, "part body is not valid UTF-8", cause)
}

// NewPartAlreadyConsumedError reports a second attempt to consume a
// Part's body (via Bytes, Text, or Stream).
func NewPartAlreadyConsumedError() *Error {
	return newErr(ErrCodePartAlreadyConsumed, "part body was already consumed")
}

// NewUpstreamError wraps a failure returned by the caller-supplied
// ChunkSource.
func NewUpstreamError(cause error) *Error {
	return wrapErr(ErrCodeUpstreamError, "upstream chunk source failed", cause)
}

// NewStorageError wraps a failure returned by a storage.Engine method,
// identifying which backend produced it.
func NewStorageError(backend string, cause error) *Error {
	return wrapErr(ErrCodeStorageError, fmt.Sprintf("storage backend %q failed", backend), cause)
}

func isCode(err error, code ErrorCode) bool {
	me, ok := err.(*Error)
	return ok && me.Code == code
}

// IsInvalidBoundary reports whether err is an InvalidBoundary error.
func IsInvalidBoundary(err error) bool { return isCode(err, ErrCodeInvalidBoundary) }

// IsInvalidHeader reports whether err is an InvalidHeader error.
func IsInvalidHeader(err error) bool { return isCode(err, ErrCodeInvalidHeader) }

// IsIncompleteMultipart reports whether err is an IncompleteMultipart error.
func IsIncompleteMultipart(err error) bool { return isCode(err, ErrCodeIncompleteMultipart) }

// IsHeaderTooLarge reports whether err is a HeaderTooLarge error.
func IsHeaderTooLarge(err error) bool { return isCode(err, ErrCodeHeaderTooLarge) }

// IsUnexpectedField reports whether err is an UnexpectedField error.
func IsUnexpectedField(err error) bool { return isCode(err, ErrCodeUnexpectedField) }

// IsUnexpectedFile reports whether err is an UnexpectedFile error.
func IsUnexpectedFile(err error) bool { return isCode(err, ErrCodeUnexpectedFile) }

// IsTooManyFiles reports whether err is a TooManyFiles error.
func IsTooManyFiles(err error) bool { return isCode(err, ErrCodeTooManyFiles) }

// IsTooManyFields reports whether err is a TooManyFields error.
func IsTooManyFields(err error) bool { return isCode(err, ErrCodeTooManyFields) }

// IsUnsupportedMediaType reports whether err is an UnsupportedMediaType error.
func IsUnsupportedMediaType(err error) bool { return isCode(err, ErrCodeUnsupportedMediaType) }

// IsFileTooLarge reports whether err is a FileTooLarge error.
func IsFileTooLarge(err error) bool { return isCode(err, ErrCodeFileTooLarge) }

// IsFieldTooLarge reports whether err is a FieldTooLarge error.
func IsFieldTooLarge(err error) bool { return isCode(err, ErrCodeFieldTooLarge) }

// IsBodyTooLarge reports whether err is a BodyTooLarge error.
func IsBodyTooLarge(err error) bool { return isCode(err, ErrCodeBodyTooLarge) }

// IsPartAlreadyConsumed reports whether err is a PartAlreadyConsumed error.
func IsPartAlreadyConsumed(err error) bool { return isCode(err, ErrCodePartAlreadyConsumed) }

// IsStorageError reports whether err is a StorageError.
func IsStorageError(err error) bool { return isCode(err, ErrCodeStorageError) }
