package client

// sendBufferCapacity is the coalescing buffer size from spec §3
// ("send_buffer: fixed 4096-byte outbound coalescing buffer").
const sendBufferCapacity = 4096

// sendBuffer batches small writes from a single command before they are
// flushed to the socket or deferred queue (spec §4.3, §9 "Coalescing
// send buffer").
type sendBuffer struct {
	buf  [sendBufferCapacity]byte
	used int
}

func (b *sendBuffer) room() int { return sendBufferCapacity - b.used }

func (b *sendBuffer) append(p []byte) int {
	n := copy(b.buf[b.used:], p)
	b.used += n
	return n
}

func (b *sendBuffer) bytes() []byte { return b.buf[:b.used] }

func (b *sendBuffer) clear() { b.used = 0 }
