package multipart

import (
	"context"
	"io"
	"strconv"

	"github.com/sargsarmen/multer/internal/obslog"
	"github.com/sargsarmen/multer/storage"
)

// ProcessedMultipart is the aggregated result of driving a Session to
// completion: every accepted file part's stored metadata, plus every
// accepted text field's values keyed by field name (spec §4.6).
type ProcessedMultipart[T any] struct {
	StoredFiles []T
	TextFields  map[string][]string
}

// Session drives a Multipart iterator and a storage.Engine together:
// each accepted file part is opened, streamed, and finished against
// the backend; each accepted text part is buffered and collected
// directly. Any failure aborts the in-flight part's storage session
// before propagating (spec §4.6, §5 ordering guarantees).
type Session[T any] struct {
	mp     *Multipart
	engine storage.Engine[T]
}

// NewSession builds a Session over source, framed by boundary, driving
// engine for every accepted file part.
func NewSession[T any](boundary []byte, source ChunkSource, engine storage.Engine[T], opts ...Option) (*Session[T], error) {
	mp, err := NewMultipart(boundary, source, opts...)
	if err != nil {
		return nil, err
	}
	return &Session[T]{mp: mp, engine: engine}, nil
}

// Process consumes every part of the multipart body, storing file
// parts via the configured storage.Engine and collecting text parts in
// memory, and returns the aggregated result.
func (s *Session[T]) Process(ctx context.Context) (*ProcessedMultipart[T], error) {
	result := &ProcessedMultipart[T]{TextFields: make(map[string][]string)}

	for {
		part, err := s.mp.NextPart(ctx)
		if err != nil {
			if err == io.EOF {
				return result, nil
			}
			return nil, err
		}

		if part.IsFile() {
			stored, err := s.processFile(ctx, part)
			if err != nil {
				return nil, err
			}
			result.StoredFiles = append(result.StoredFiles, stored)
			continue
		}

		text, err := part.Text(ctx)
		if err != nil {
			return nil, err
		}
		result.TextFields[part.FieldName()] = append(result.TextFields[part.FieldName()], text)
	}
}

func (s *Session[T]) processFile(ctx context.Context, part *Part) (T, error) {
	var zero T

	var sizeHint *uint64
	if raw := part.Headers().Get(contentLengthHeader); raw != "" {
		if n, ok := parseContentLength(raw); ok {
			sizeHint = &n
		}
	}

	meta := storage.PartMeta{
		FieldName:        part.FieldName(),
		OriginalFileName: part.FileName(),
		ContentType:      part.ContentType(),
		SizeHint:         sizeHint,
	}

	handle, err := s.engine.Begin(meta)
	if err != nil {
		return zero, NewStorageError("engine", err)
	}

	reader, err := part.Stream()
	if err != nil {
		_ = s.engine.Abort(handle, err)
		return zero, err
	}

	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			s.abort(ctx, handle, err)
			return zero, err
		}
		n, readErr := reader.Read(buf)
		if n > 0 {
			if writeErr := s.engine.Write(handle, buf[:n]); writeErr != nil {
				wrapped := NewStorageError("engine", writeErr)
				s.abort(ctx, handle, wrapped)
				return zero, wrapped
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			s.abort(ctx, handle, readErr)
			return zero, readErr
		}
	}

	stored, err := s.engine.Finish(handle)
	if err != nil {
		wrapped := NewStorageError("engine", err)
		s.abort(ctx, handle, wrapped)
		return zero, wrapped
	}
	return stored, nil
}

func (s *Session[T]) abort(ctx context.Context, handle storage.Handle, cause error) {
	if err := s.engine.Abort(handle, cause); err != nil {
		obslog.Ctx(ctx).Warn().Err(err).Msg("storage engine abort failed after part processing error")
	}
}

func parseContentLength(raw string) (uint64, bool) {
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
