// Package lineproto implements the fixed-capacity inbound line buffer
// described in spec §3 ("in_buffer") and §4.1 ("Line buffer and read
// path"). It has no knowledge of sockets or commands; it only turns raw
// bytes into complete, newline-terminated lines.
package lineproto

import (
	"bytes"
	"errors"
)

// Capacity is the fixed inbound buffer size (spec §3, §4.6).
const Capacity = 4096

// ErrLineTooLong is returned when Capacity bytes accumulate with no
// newline anywhere in them — the "line-too-long overflow" of spec §4.1,
// which the caller must treat as a reason to close the client.
var ErrLineTooLong = errors.New("lineproto: line exceeds buffer capacity")

// LineBuffer is a fixed 4096-byte inbound buffer with a valid-length
// counter and a consumed-up-to cursor, matching spec §3's invariant
// pos <= length <= capacity.
type LineBuffer struct {
	buf    [Capacity]byte
	length int
	pos    int
}

// Room reports how many more bytes can be appended before the buffer
// is full. The caller (the manager's read path) must never read more
// than this many bytes in one pass.
func (b *LineBuffer) Room() int { return Capacity - b.length }

// Append copies chunk into the unused tail of the buffer. The caller
// must guarantee len(chunk) <= Room(); Append truncates silently rather
// than panicking if that invariant is violated, since the only caller
// is the manager's own read loop sizing its read by Room().
func (b *LineBuffer) Append(chunk []byte) {
	n := copy(b.buf[b.length:], chunk)
	b.length += n
}

// Lines scans the unconsumed region for complete lines, invoking fn
// once per line with any trailing '\r' stripped and the terminating
// '\n' excluded (spec §4.1). The slice passed to fn aliases the
// buffer's backing array and is only valid until Lines returns or fn is
// called again — callers that need to retain it must copy.
//
// After the scan, Lines compacts any unconsumed tail back to offset 0.
// It returns ErrLineTooLong if the buffer filled completely without a
// single newline appearing in it.
func (b *LineBuffer) Lines(fn func(line []byte)) error {
	for {
		idx := bytes.IndexByte(b.buf[b.pos:b.length], '\n')
		if idx < 0 {
			break
		}
		lineEnd := b.pos + idx
		line := b.buf[b.pos:lineEnd]
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		fn(line)
		b.pos = lineEnd + 1
	}

	if b.length == Capacity && b.pos == 0 {
		return ErrLineTooLong
	}

	if b.pos > 0 {
		b.length = copy(b.buf[:], b.buf[b.pos:b.length])
		b.pos = 0
	}
	return nil
}
