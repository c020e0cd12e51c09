package multipart

import (
	"context"
	"io"
)

// Multipart drives a streamParser and a selectorEngine together,
// producing only the Parts the active Selector accepts and silently
// draining everything else (spec §4.5, mirroring the outer Multipart
// wrapper around MultipartStream in the design this package traces
// back to).
type Multipart struct {
	parser   *streamParser
	selector *selectorEngine
	cfg      *Config

	current *Part
	done    bool
}

// NewMultipart builds a Multipart over source, whose bytes are framed
// by boundary (as returned by ExtractBoundary). opts configure the
// active Selector, UnknownFieldPolicy, and Limits.
func NewMultipart(boundary []byte, source ChunkSource, opts ...Option) (*Multipart, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	if len(boundary) == 0 {
		return nil, NewInvalidBoundaryError("boundary cannot be empty")
	}

	parser := newStreamParser(boundary, source, cfg.Limits.MaxBodySize, cfg.Limits.MaxHeaderBytes)
	return &Multipart{
		parser:   parser,
		selector: newSelectorEngine(cfg),
		cfg:      cfg,
	}, nil
}

// NextPart advances to the next accepted part, draining and discarding
// any parts the selector ignored along the way. It returns io.EOF once
// the terminating boundary has been consumed.
func (m *Multipart) NextPart(ctx context.Context) (*Part, error) {
	if m.done {
		return nil, io.EOF
	}

	if m.current != nil {
		if err := m.current.drain(ctx); err != nil {
			m.done = true
			return nil, err
		}
		m.current = nil
	}

	for {
		raw, err := m.parser.nextHeaderBlock(ctx)
		if err != nil {
			if err == io.EOF {
				m.done = true
				return nil, io.EOF
			}
			m.done = true
			return nil, err
		}

		headers, err := parseHeaderBlock(raw)
		if err != nil {
			m.done = true
			return nil, err
		}

		decision, err := m.selector.evaluate(headers)
		if err != nil {
			m.done = true
			return nil, err
		}

		limit, errCtor := m.partLimit(headers, decision.field)
		part := newPart(headers, m.parser, limit, errCtor)

		if !decision.accept {
			if err := part.drain(ctx); err != nil {
				m.done = true
				return nil, err
			}
			continue
		}

		m.current = part
		return part, nil
	}
}

func (m *Multipart) partLimit(headers *PartHeaders, field *Field) (uint64, func(uint64) *Error) {
	name := headers.FieldName
	if headers.isFile() {
		limit := m.cfg.Limits.MaxFileSize
		if field != nil && field.MaxSize > 0 {
			limit = field.MaxSize
		}
		return limit, func(l uint64) *Error { return NewFileTooLargeError(name, l) }
	}
	limit := m.cfg.Limits.MaxFieldSize
	if field != nil && field.MaxSize > 0 {
		limit = field.MaxSize
	}
	return limit, func(l uint64) *Error { return NewFieldTooLargeError(name, l) }
}
