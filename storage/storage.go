// Package storage defines the sink abstraction a multipart session
// writes accepted file parts to, and the shared metadata types its
// backends produce (spec §4.6).
package storage

import "fmt"

// Handle identifies one in-flight part's storage session between Begin
// and Finish/Abort. Its concrete value is backend-defined; callers
// outside a backend implementation should treat it as opaque.
type Handle any

// PartMeta is the information available about a part at the moment
// storage begins, before any body bytes have arrived.
type PartMeta struct {
	FieldName        string
	OriginalFileName *string
	ContentType      string
	SizeHint         *uint64
}

// StoredFile is the metadata every backend returns for a finished
// part. Backends that need to surface additional, backend-specific
// fields embed this struct in a richer type and return that as their
// Engine's T.
type StoredFile struct {
	FieldName        string
	OriginalFileName *string
	ContentType      string
	Size             uint64
	StorageKey       string
}

// Engine is the storage sink contract a multipart session drives one
// part at a time. T is the backend-specific stored-file payload
// returned by Finish; parameterizing over it lets each backend expose
// extra fields (a disk path, a skip marker) without the core package
// boxing every result behind an interface (spec §4.6, §9 design note
// on avoiding existential boxing).
type Engine[T any] interface {
	// Begin is called once a part has been accepted, before its first
	// body chunk arrives.
	Begin(meta PartMeta) (Handle, error)

	// Write is called once per body chunk, strictly in order. Backends
	// must not reorder or coalesce chunks across parts.
	Write(handle Handle, chunk []byte) error

	// Finish is called after the part's last chunk and returns the
	// backend's final metadata for it.
	Finish(handle Handle) (T, error)

	// Abort releases any partial state associated with handle (temp
	// files, buffers). It must be safe to call more than once for the
	// same handle.
	Abort(handle Handle, cause error) error
}

// Error wraps a failure raised by a specific backend, so callers can
// tell which storage implementation produced it without that backend
// needing its own exported error type.
type Error struct {
	Backend string
	Cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage backend %q: %v", e.Backend, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }
