package gzip

import (
	"bufio"
	"errors"
	"io"

	"github.com/inflatehq/gzinflate/bitio"
	"github.com/inflatehq/gzinflate/capnslog"
	"github.com/inflatehq/gzinflate/deflate"
	"github.com/inflatehq/gzinflate/trackingio"
)

var plog = capnslog.NewPackageLogger("github.com/inflatehq/gzinflate", "gzip")

// ErrCrcMismatch is returned when the member trailer's CRC-32 does not
// match the CRC-32 of the bytes actually decompressed.
var ErrCrcMismatch = errors.New("gzip: crc32 mismatch")

// ErrLengthMismatch is returned when the member trailer's ISIZE does not
// match the low 32 bits of the number of bytes decompressed.
var ErrLengthMismatch = errors.New("gzip: isize mismatch")

// Header exposes the subset of the member header callers typically want
// without requiring them to reach into the package-private parse state.
type Header struct {
	Name    string
	Comment string
	MTime   uint32
}

// Reader decodes gzip members one at a time from the underlying byte
// stream: each DecodeMember call reads a header, DEFLATE payload, and
// trailer, verifying the trailer against the bytes written to out. Each call
// leaves the underlying reader positioned at the first byte past the member,
// so a driver can detect and decode subsequent concatenated members.
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps r for member-at-a-time decoding. r need not itself be
// buffered; NewReader wraps it in a bufio.Reader sized to amortize the
// per-byte ReadByte calls bitio.Reader performs.
func NewReader(r io.Reader) *Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return &Reader{br: br}
	}
	return &Reader{br: bufio.NewReader(r)}
}

// Next reports whether the input has any bytes left, without consuming
// them. It does not validate that those bytes actually begin a member --
// trailing data that is not a valid header surfaces as ErrBadMagic from the
// next DecodeMember call, not as a quiet stop here.
func (gr *Reader) Next() bool {
	b, err := gr.br.Peek(1)
	return err == nil && len(b) == 1
}

// DecodeMember decodes one member, writing its decompressed bytes to out,
// and returns the parsed header fields. It validates both FHCRC (if
// present) and the trailing CRC-32/ISIZE.
func (gr *Reader) DecodeMember(out io.Writer) (Header, error) {
	h, err := readHeader(gr.br)
	if err != nil {
		return Header{}, err
	}
	plog.Tracef("member header name=%q flags=%#x", h.Name, h.Flags)

	tw := trackingio.NewWriter(out)
	dr := deflate.NewReader(bitio.NewReader(gr.br), tw)
	if err := dr.Decompress(); err != nil {
		return Header{}, err
	}

	crc, _ := tw.Finish()
	size := uint32(tw.ByteCount())

	tr, err := readTrailer(gr.br)
	if err != nil {
		return Header{}, err
	}
	if tr.CRC32 != crc {
		return Header{}, ErrCrcMismatch
	}
	if tr.ISIZE != size {
		return Header{}, ErrLengthMismatch
	}

	return Header{Name: h.Name, Comment: h.Comment, MTime: h.MTime}, nil
}
