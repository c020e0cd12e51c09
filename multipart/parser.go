package multipart

import (
	"context"
	"io"
)

type parseState int

const (
	stateBoundary parseState = iota
	statePartHeaders
	statePartBody
	stateEpilogue
	stateDone
	stateFailed
)

// bodyChunk is one slice of a part's body, copied out of the parser's
// buffer (not a view into it), with a flag marking
// whether it is the final chunk for the current part (the delimiter
// that follows it has already been consumed from the buffer).
type bodyChunk struct {
	data  []byte
	final bool
}

// streamParser is the low-level multipart state machine (spec §4.3): it
// turns raw chunks from a ChunkSource into a sequence of header blocks
// and body chunks, with no knowledge of field selection, storage, or
// logging. It mirrors the split in the Rust original between the raw
// MultipartStream state machine and the higher-level Multipart
// orchestrator that drives field selection on top of it.
type streamParser struct {
	source ChunkSource
	buf    chunkBuffer

	delimiter    []byte // "\r\n--" + boundary
	firstBoundary []byte // "--" + boundary (no leading CRLF, only valid at offset 0)

	state      parseState
	bodyBytesRead  uint64
	totalBytesRead uint64

	maxBodySize    uint64
	maxHeaderBytes int

	eof bool
}

func newStreamParser(boundary []byte, source ChunkSource, maxBodySize uint64, maxHeaderBytes int) *streamParser {
	delimiter := append([]byte("\r\n--"), boundary...)
	first := append([]byte("--"), boundary...)
	return &streamParser{
		source:         source,
		delimiter:      delimiter,
		firstBoundary:  first,
		state:          stateBoundary,
		maxBodySize:    maxBodySize,
		maxHeaderBytes: maxHeaderBytes,
	}
}

// fill reads one more chunk from the source into the buffer, enforcing
// max_body_size against every raw byte at ingestion time regardless of
// parser state, matching poll_fill_buffer in the Rust original.
func (p *streamParser) fill(ctx context.Context) error {
	if p.eof {
		return io.EOF
	}
	chunk, err := p.source.Next(ctx)
	if err != nil {
		if err == io.EOF {
			p.eof = true
			return io.EOF
		}
		return NewUpstreamError(err)
	}
	p.totalBytesRead += uint64(len(chunk))
	if p.maxBodySize > 0 && p.totalBytesRead > p.maxBodySize {
		return NewBodyTooLargeError(p.maxBodySize)
	}
	p.buf.append(chunk)
	return nil
}

// tailSafety is the number of trailing bytes that might be an
// incomplete prefix of the delimiter and so must not be emitted yet.
func (p *streamParser) tailSafety() int {
	return len(p.delimiter) + 4
}

// nextHeaderBlock advances past the opening boundary line (consuming it
// only once, on the first call) and returns the raw bytes of the next
// part's header block, or io.EOF at the epilogue/end of stream.
func (p *streamParser) nextHeaderBlock(ctx context.Context) ([]byte, error) {
	if p.state == stateFailed {
		return nil, NewIncompleteMultipartError()
	}

	if p.state == stateBoundary {
		if err := p.consumeOpeningBoundary(ctx); err != nil {
			p.state = stateFailed
			return nil, err
		}
		p.state = statePartHeaders
	}

	if p.state != statePartHeaders {
		return nil, io.EOF
	}

	for {
		if idx := p.buf.find([]byte("\r\n\r\n"), 0); idx >= 0 {
			if p.maxHeaderBytes > 0 && idx > p.maxHeaderBytes {
				p.state = stateFailed
				return nil, NewHeaderTooLargeError(p.maxHeaderBytes)
			}
			block := make([]byte, idx)
			copy(block, p.buf.bytes()[:idx])
			p.buf.consume(idx + 4)
			p.state = statePartBody
			p.bodyBytesRead = 0
			return block, nil
		}

		if p.maxHeaderBytes > 0 && p.buf.len() > p.maxHeaderBytes {
			p.state = stateFailed
			return nil, NewHeaderTooLargeError(p.maxHeaderBytes)
		}

		if err := p.fill(ctx); err != nil {
			if err == io.EOF {
				p.state = stateFailed
				return nil, NewIncompleteMultipartError()
			}
			p.state = stateFailed
			return nil, err
		}
	}
}

// consumeOpeningBoundary reads and discards bytes up to and including
// the first boundary line's trailing CRLF (or "--" for an immediately
// empty multipart body).
func (p *streamParser) consumeOpeningBoundary(ctx context.Context) error {
	for {
		if p.buf.len() >= len(p.firstBoundary) {
			if !hasPrefix(p.buf.bytes(), p.firstBoundary) {
				return NewInvalidBoundaryError("multipart body does not begin with the expected boundary")
			}
			rest := p.buf.bytes()[len(p.firstBoundary):]
			if hasPrefix(rest, []byte("--")) {
				p.state = stateEpilogue
				p.buf.consume(len(p.firstBoundary) + 2)
				return nil
			}
			if idx := indexOf(rest, []byte("\r\n")); idx >= 0 {
				p.buf.consume(len(p.firstBoundary) + idx + 2)
				return nil
			}
		}
		if err := p.fill(ctx); err != nil {
			if err == io.EOF {
				return NewIncompleteMultipartError()
			}
			return err
		}
	}
}

// nextBodyChunk returns the next available slice of the current part's
// body. The returned chunk's data is a copy of the buffered bytes, so it
// stays valid after later calls into the parser. It enforces limit via the caller-supplied check function
// before the chunk is handed back, matching ensure_part_limit running
// ahead of emission in the Rust original.
func (p *streamParser) nextBodyChunk(ctx context.Context, checkLimit func(addedBytes uint64) error) (bodyChunk, error) {
	if p.state != statePartBody {
		return bodyChunk{}, io.EOF
	}

	for {
		if idx := indexOf(p.buf.bytes(), p.delimiter); idx >= 0 {
			return p.emitFinalChunk(ctx, idx, checkLimit)
		}

		safe := p.buf.safeView(p.tailSafety())
		if len(safe) > 0 {
			if err := checkLimit(uint64(len(safe))); err != nil {
				p.state = stateFailed
				return bodyChunk{}, err
			}
			p.bodyBytesRead += uint64(len(safe))
			data := make([]byte, len(safe))
			copy(data, safe)
			p.buf.consume(len(safe))
			return bodyChunk{data: data}, nil
		}

		if err := p.fill(ctx); err != nil {
			if err == io.EOF {
				p.state = stateFailed
				return bodyChunk{}, NewIncompleteMultipartError()
			}
			p.state = stateFailed
			return bodyChunk{}, err
		}
	}
}

func (p *streamParser) emitFinalChunk(ctx context.Context, delimiterOffset int, checkLimit func(addedBytes uint64) error) (bodyChunk, error) {
	if delimiterOffset > 0 {
		if err := checkLimit(uint64(delimiterOffset)); err != nil {
			p.state = stateFailed
			return bodyChunk{}, err
		}
	}

	data := make([]byte, delimiterOffset)
	copy(data, p.buf.bytes()[:delimiterOffset])
	p.bodyBytesRead += uint64(delimiterOffset)
	p.buf.consume(delimiterOffset)

	if err := p.consumeDelimiterSuffix(ctx); err != nil {
		p.state = stateFailed
		return bodyChunk{}, err
	}

	return bodyChunk{data: data, final: true}, nil
}

// consumeDelimiterSuffix consumes the delimiter itself plus whatever
// follows it: "--" for the terminal boundary (-> epilogue) or CRLF for
// a continuing boundary (-> next part headers). It fills the buffer as
// needed to see past the delimiter.
func (p *streamParser) consumeDelimiterSuffix(ctx context.Context) error {
	for {
		if p.buf.len() >= len(p.delimiter)+2 {
			rest := p.buf.bytes()[len(p.delimiter):]
			if hasPrefix(rest, []byte("--")) {
				p.buf.consume(len(p.delimiter) + 2)
				p.state = stateEpilogue
				return nil
			}
			if hasPrefix(rest, []byte("\r\n")) {
				p.buf.consume(len(p.delimiter) + 2)
				p.state = statePartHeaders
				return nil
			}
			return NewInvalidBoundaryError("malformed boundary line after delimiter")
		}
		if err := p.fill(ctx); err != nil {
			if err == io.EOF {
				return NewIncompleteMultipartError()
			}
			return err
		}
	}
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}

func indexOf(haystack, needle []byte) int {
	if len(needle) == 0 || len(haystack) < len(needle) {
		return -1
	}
	for i := 0; i <= len(haystack)-len(needle); i++ {
		if hasPrefix(haystack[i:], needle) {
			return i
		}
	}
	return -1
}
