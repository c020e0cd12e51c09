package multipart

import (
	"context"
	"io"
)

// Part is one field of a multipart body: its headers plus a single-use
// handle on its body bytes (spec §4.5). A Part must be consumed — via
// Bytes, Text, or Stream — or explicitly drained before advancing to
// the next part; Multipart.NextPart does the draining automatically
// when the caller does not consume a part itself.
type Part struct {
	headers  *PartHeaders
	parser   *streamParser
	limit    uint64 // 0 means unbounded
	errCtor  func(limit uint64) *Error
	consumed bool // Stream/Bytes/Text already handed out
	bodyDone bool // the terminating delimiter for this part has been reached
}

func newPart(headers *PartHeaders, parser *streamParser, limit uint64, errCtor func(limit uint64) *Error) *Part {
	return &Part{headers: headers, parser: parser, limit: limit, errCtor: errCtor}
}

// FieldName returns the name= parameter from the part's
// Content-Disposition header.
func (p *Part) FieldName() string { return p.headers.FieldName }

// FileName returns the filename presented for a file part, or nil for
// a text part.
func (p *Part) FileName() *string { return p.headers.FileName }

// ContentType returns the part's resolved Content-Type, defaulted per
// spec §4.1 when the part omitted the header.
func (p *Part) ContentType() string { return p.headers.ContentType }

// Headers returns this part's raw header map: each lowercased header
// name with its unparsed values.
func (p *Part) Headers() RawHeaders { return p.headers.Raw }

// IsFile reports whether this part carries a filename parameter.
func (p *Part) IsFile() bool { return p.headers.isFile() }

func (p *Part) checkLimit(added uint64) error {
	if p.limit == 0 {
		return nil
	}
	if p.parser.bodyBytesRead+added > p.limit {
		return p.errCtor(p.limit)
	}
	return nil
}

// Stream returns an io.Reader over the part's body. It may be called
// at most once per Part; a second call returns PartAlreadyConsumed.
func (p *Part) Stream() (io.Reader, error) {
	if p.consumed {
		return nil, NewPartAlreadyConsumedError()
	}
	p.consumed = true
	return &partReader{part: p}, nil
}

// Bytes reads the entire part body into memory. It may be called at
// most once per Part.
func (p *Part) Bytes(ctx context.Context) ([]byte, error) {
	r, err := p.Stream()
	if err != nil {
		return nil, err
	}
	return readAllCtx(ctx, r)
}

// Text reads the entire part body and decodes it as UTF-8. It may be
// called at most once per Part.
func (p *Part) Text(ctx context.Context) (string, error) {
	b, err := p.Bytes(ctx)
	if err != nil {
		return "", err
	}
	if !isValidUTF8(b) {
		return "", NewDecodeError(nil)
	}
	return string(b), nil
}

// drain discards whatever remains of the part's body, regardless of
// whether the caller already started consuming it, so Multipart can
// always advance the parser cleanly to the next part. It is a no-op
// once the terminating delimiter has already been reached, whether
// that happened via a prior drain or via the caller reading to EOF
// through Stream/Bytes/Text.
func (p *Part) drain(ctx context.Context) error {
	p.consumed = true
	if p.bodyDone {
		return nil
	}
	for {
		chunk, err := p.parser.nextBodyChunk(ctx, p.checkLimit)
		if err != nil {
			if err == io.EOF {
				p.bodyDone = true
				return nil
			}
			return err
		}
		if chunk.final {
			p.bodyDone = true
			return nil
		}
	}
}

type partReader struct {
	part    *Part
	pending []byte
	done    bool
}

func (r *partReader) Read(p []byte) (int, error) {
	for len(r.pending) == 0 && !r.done {
		chunk, err := r.part.parser.nextBodyChunk(context.Background(), r.part.checkLimit)
		if err != nil {
			if err == io.EOF {
				r.done = true
				r.part.bodyDone = true
				break
			}
			return 0, err
		}
		r.pending = chunk.data
		if chunk.final {
			r.done = true
			r.part.bodyDone = true
		}
	}
	if len(r.pending) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

func readAllCtx(ctx context.Context, r io.Reader) ([]byte, error) {
	if cr, ok := r.(*partReader); ok {
		out := make([]byte, 0, 4096)
		buf := make([]byte, 32*1024)
		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			n, err := cr.Read(buf)
			if n > 0 {
				out = append(out, buf[:n]...)
			}
			if err != nil {
				if err == io.EOF {
					return out, nil
				}
				return nil, err
			}
		}
	}
	return io.ReadAll(r)
}
