// Package bitio adapts a byte-oriented buffered input into a
// least-significant-bit-first bit stream, the way RFC 1951 requires bits to
// be drawn from the underlying byte stream.
package bitio

import (
	"bufio"
	"errors"
	"io"

	"github.com/inflatehq/gzinflate/capnslog"
)

var plog = capnslog.NewPackageLogger("github.com/inflatehq/gzinflate", "bitio")

// ErrUnexpectedEOF is returned when the underlying reader is exhausted
// before the requested number of bits could be assembled.
var ErrUnexpectedEOF = errors.New("bitio: unexpected EOF")

// Sequence is a BitSequence: up to 16 unread bits plus their length. Bits
// above Len are always zero.
type Sequence struct {
	Bits uint16
	Len  uint8
}

// Concat returns a.concat(b) = (a << b.Len) | b: the receiver's bits are
// shifted above b's, which occupy the low positions. The combined length
// must not exceed 16.
func (a Sequence) Concat(b Sequence) Sequence {
	return Sequence{
		Bits: (a.Bits << b.Len) | b.Bits,
		Len:  a.Len + b.Len,
	}
}

// Reader wraps an io.Reader and delivers bits LSB-first, at most 16 per
// call. It keeps at most one unread byte's worth of residual bits plus the
// overflow from the previous 16-bit fetch, so the residual never exceeds 15
// bits between calls.
type Reader struct {
	r        io.ByteReader
	residual Sequence
}

// NewReader returns a Reader reading from r. If r is not already an
// io.ByteReader it is wrapped in a bufio.Reader.
func NewReader(r io.Reader) *Reader {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Reader{r: br}
}

// ReadBits returns the next k bits (1 <= k <= 16) as a Sequence of length k.
//
// The fetch loop accumulates into a uint32, not a Sequence: two fetched
// bytes plus a non-empty entering residual can carry up to 23 live bits
// mid-computation, which does not fit a uint16 (Sequence.Concat's "combined
// length <= 16" contract would be violated). Keeping the wide accumulator
// local avoids ever constructing an over-long Sequence.
func (r *Reader) ReadBits(k uint) (Sequence, error) {
	if k < 1 || k > 16 {
		panic("bitio: ReadBits called with k outside [1,16]")
	}
	acc := uint32(r.residual.Bits)
	accLen := uint(r.residual.Len)
	for accLen < k {
		b, err := r.r.ReadByte()
		if err != nil {
			return Sequence{}, ErrUnexpectedEOF
		}
		acc |= uint32(b) << accLen
		accLen += 8
	}
	mask := uint32(1)<<k - 1
	out := Sequence{Bits: uint16(acc & mask), Len: uint8(k)}
	r.residual = Sequence{Bits: uint16(acc >> k), Len: uint8(accLen - k)}
	return out, nil
}

// ReadBit reads a single bit and reports whether it is set.
func (r *Reader) ReadBit() (bool, error) {
	s, err := r.ReadBits(1)
	if err != nil {
		return false, err
	}
	return s.Bits != 0, nil
}

// ByteAlign discards up to 7 residual bits and returns the underlying
// io.ByteReader for byte-aligned reads (stored blocks, gzip trailers).
// It panics if more than 7 bits of residual remain, which would indicate a
// caller bug rather than malformed input.
func (r *Reader) ByteAlign() io.ByteReader {
	if r.residual.Len >= 8 {
		panic("bitio: ByteAlign called with a full residual byte pending")
	}
	plog.Tracef("byte-align: discarding %d residual bits", r.residual.Len)
	r.residual = Sequence{}
	return r.r
}
