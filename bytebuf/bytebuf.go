// Package bytebuf provides the contiguous-storage byte buffer consumed by
// the HTTP parser and connection handler, grounded on the original's
// byte_buffer.hpp.
package bytebuf

// Buffer is a growable, contiguous byte store. The zero value is ready to
// use.
type Buffer struct {
	data []byte
}

// Append copies p onto the end of the buffer's storage.
func (b *Buffer) Append(p []byte) {
	b.data = append(b.data, p...)
}

// Bytes returns a slice view over the buffer's current contents. The
// slice is invalidated by the next Append or Reset.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len returns the number of bytes currently stored.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Reset discards all stored bytes but keeps the underlying array.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
}

// Discard drops the first n bytes, shifting the remainder to the front.
// Used after a parser consumes a framed message from the front of the
// buffer.
func (b *Buffer) Discard(n int) {
	if n <= 0 {
		return
	}
	if n >= len(b.data) {
		b.data = b.data[:0]
		return
	}
	copy(b.data, b.data[n:])
	b.data = b.data[:len(b.data)-n]
}

// Grow ensures the buffer has room for at least n more bytes without
// reallocating, used before a Read into the buffer's spare capacity.
func (b *Buffer) Grow(n int) {
	if cap(b.data)-len(b.data) >= n {
		return
	}
	grown := make([]byte, len(b.data), len(b.data)+n)
	copy(grown, b.data)
	b.data = grown
}

// Spare returns the unused capacity past Len, for callers that want to
// Read directly into the buffer and then extend Len themselves via
// Extend.
func (b *Buffer) Spare() []byte {
	return b.data[len(b.data):cap(b.data)]
}

// Extend grows Len by n after the caller has written n bytes into Spare.
func (b *Buffer) Extend(n int) {
	b.data = b.data[:len(b.data)+n]
}
