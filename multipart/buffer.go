package multipart

import "bytes"

// chunkBuffer is the Chunk Buffer component (spec §4.2): a growable byte
// accumulator spanning chunk boundaries, supporting delimiter search with
// a safety tail so a boundary occurrence split across chunk arrivals is
// still found once the straddling bytes arrive.
type chunkBuffer struct {
	buf []byte
}

// append grows the buffer by chunk's bytes. Amortized O(1) via Go's
// slice append, the same complexity the Rust original gets from
// Vec::extend_from_slice.
func (b *chunkBuffer) append(chunk []byte) {
	b.buf = append(b.buf, chunk...)
}

func (b *chunkBuffer) len() int {
	return len(b.buf)
}

// bytes returns the full unconsumed buffer contents. The caller must not
// retain the slice past the next append/consume call.
func (b *chunkBuffer) bytes() []byte {
	return b.buf
}

// safeView returns every buffered byte except the trailing tail bytes,
// which might be an incomplete prefix of an incoming boundary.
func (b *chunkBuffer) safeView(tail int) []byte {
	if tail < 0 {
		tail = 0
	}
	if len(b.buf) <= tail {
		return nil
	}
	return b.buf[:len(b.buf)-tail]
}

// consume discards the first n bytes. It is the only mutation that
// advances the buffer, so a dropped/cancelled read never leaves a
// partial write pending (spec §5).
func (b *chunkBuffer) consume(n int) {
	if n <= 0 {
		return
	}
	if n >= len(b.buf) {
		b.buf = b.buf[:0]
		return
	}
	remaining := copy(b.buf, b.buf[n:])
	b.buf = b.buf[:remaining]
}

// find returns the offset of pattern's first occurrence at or after
// from, or -1 if absent.
func (b *chunkBuffer) find(pattern []byte, from int) int {
	if from < 0 {
		from = 0
	}
	if from > len(b.buf) {
		return -1
	}
	idx := bytes.Index(b.buf[from:], pattern)
	if idx < 0 {
		return -1
	}
	return from + idx
}
