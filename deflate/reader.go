// Package deflate implements RFC 1951 DEFLATE decompression: a block state
// machine that alternates between bit-aligned compressed blocks (fixed or
// dynamic Huffman codes) and byte-aligned stored blocks, feeding a
// trackingio.Writer.
package deflate

import (
	"errors"

	"github.com/inflatehq/gzinflate/bitio"
	"github.com/inflatehq/gzinflate/capnslog"
	"github.com/inflatehq/gzinflate/huffman"
	"github.com/inflatehq/gzinflate/trackingio"
)

var plog = capnslog.NewPackageLogger("github.com/inflatehq/gzinflate", "deflate")

var (
	// ErrBadBlockType is returned for the reserved BTYPE value 0b11.
	ErrBadBlockType = errors.New("deflate: reserved block type 3")
	// ErrBadStoredHeader is returned when a stored block's NLEN does not
	// complement its LEN.
	ErrBadStoredHeader = errors.New("deflate: stored block NLEN does not complement LEN")
)

// codeLengthOrder is the permutation in which the 19 code-length alphabet
// lengths are transmitted for dynamic blocks (RFC 1951 §3.2.7).
var codeLengthOrder = [19]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

// Reader drives a single member's sequence of DEFLATE blocks.
type Reader struct {
	br *bitio.Reader
	w  *trackingio.Writer
}

// NewReader returns a Reader that reads compressed blocks from br and
// writes decompressed bytes to w.
func NewReader(br *bitio.Reader, w *trackingio.Writer) *Reader {
	return &Reader{br: br, w: w}
}

// Decompress runs every block of the member to completion.
func (r *Reader) Decompress() error {
	for {
		final, err := r.br.ReadBit()
		if err != nil {
			return err
		}
		btype, err := r.br.ReadBits(2)
		if err != nil {
			return err
		}
		plog.Tracef("block final=%v type=%d", final, btype.Bits)
		switch btype.Bits {
		case 0:
			if err := r.storedBlock(); err != nil {
				return err
			}
		case 1:
			if err := r.fixedBlock(); err != nil {
				return err
			}
		case 2:
			if err := r.dynamicBlock(); err != nil {
				return err
			}
		default:
			return ErrBadBlockType
		}
		if final {
			return nil
		}
	}
}

// storedBlock copies LEN raw bytes through to the writer.
func (r *Reader) storedBlock() error {
	byteR := r.br.ByteAlign()
	var lenBuf [4]byte
	for i := range lenBuf {
		b, err := byteR.ReadByte()
		if err != nil {
			return bitio.ErrUnexpectedEOF
		}
		lenBuf[i] = b
	}
	length := uint16(lenBuf[0]) | uint16(lenBuf[1])<<8
	nlength := uint16(lenBuf[2]) | uint16(lenBuf[3])<<8
	if nlength != ^length {
		return ErrBadStoredHeader
	}
	plog.Tracef("stored block length=%d", length)
	buf := make([]byte, length)
	for i := 0; i < int(length); i++ {
		b, err := byteR.ReadByte()
		if err != nil {
			return bitio.ErrUnexpectedEOF
		}
		buf[i] = b
	}
	_, err := r.w.Write(buf)
	return err
}

func (r *Reader) fixedBlock() error {
	litlen, err := huffman.New(huffman.FixedLitLenLengths())
	if err != nil {
		return err
	}
	dist, err := huffman.New(huffman.FixedDistanceLengths())
	if err != nil {
		return err
	}
	return r.symbolLoop(litlen, dist)
}

func (r *Reader) dynamicBlock() error {
	litlen, dist, err := r.readDynamicTrees()
	if err != nil {
		return err
	}
	return r.symbolLoop(litlen, dist)
}

func (r *Reader) readDynamicTrees() (litlen, dist *huffman.Coding, err error) {
	hlitSeq, err := r.br.ReadBits(5)
	if err != nil {
		return nil, nil, err
	}
	hdistSeq, err := r.br.ReadBits(5)
	if err != nil {
		return nil, nil, err
	}
	hclenSeq, err := r.br.ReadBits(4)
	if err != nil {
		return nil, nil, err
	}
	hlit := int(hlitSeq.Bits) + 257
	hdist := int(hdistSeq.Bits) + 1
	hclen := int(hclenSeq.Bits) + 4
	plog.Tracef("dynamic block hlit=%d hdist=%d hclen=%d", hlit, hdist, hclen)

	var codeLens [19]int
	for i := 0; i < hclen; i++ {
		l, err := r.br.ReadBits(3)
		if err != nil {
			return nil, nil, err
		}
		codeLens[codeLengthOrder[i]] = int(l.Bits)
	}
	clCoding, err := huffman.New(codeLens[:])
	if err != nil {
		return nil, nil, err
	}

	want := hlit + hdist
	lengths := make([]int, 0, want)
	var prev int
	havePrev := false
	for len(lengths) < want {
		sym, err := clCoding.ReadSymbol(r.br)
		if err != nil {
			return nil, nil, err
		}
		tok, err := huffman.DecodeTreeCode(sym)
		if err != nil {
			return nil, nil, err
		}
		switch tok.Kind {
		case huffman.TreeLength:
			lengths = append(lengths, tok.Length)
			prev, havePrev = tok.Length, true
		case huffman.TreeCopyPrev:
			if !havePrev {
				return nil, nil, huffman.ErrBadTree
			}
			extra, err := r.br.ReadBits(tok.ExtraBits)
			if err != nil {
				return nil, nil, err
			}
			rep := tok.Base + int(extra.Bits)
			if len(lengths)+rep > want {
				return nil, nil, huffman.ErrBadTree
			}
			for i := 0; i < rep; i++ {
				lengths = append(lengths, prev)
			}
		case huffman.TreeRepeatZero:
			extra, err := r.br.ReadBits(tok.ExtraBits)
			if err != nil {
				return nil, nil, err
			}
			rep := tok.Base + int(extra.Bits)
			if len(lengths)+rep > want {
				return nil, nil, huffman.ErrBadTree
			}
			for i := 0; i < rep; i++ {
				lengths = append(lengths, 0)
			}
			prev, havePrev = 0, true
		}
	}
	if len(lengths) != want {
		return nil, nil, huffman.ErrBadTree
	}

	litlen, err = huffman.New(lengths[:hlit])
	if err != nil {
		return nil, nil, err
	}
	dist, err = huffman.New(lengths[hlit:])
	if err != nil {
		return nil, nil, err
	}
	return litlen, dist, nil
}

// symbolLoop runs the literal/length/distance decode loop until EndOfBlock.
func (r *Reader) symbolLoop(litlen, dist *huffman.Coding) error {
	for {
		sym, err := litlen.ReadSymbol(r.br)
		if err != nil {
			return err
		}
		tok, err := huffman.DecodeLitLen(sym)
		if err != nil {
			return err
		}
		switch tok.Kind {
		case huffman.Literal:
			if _, err := r.w.Write([]byte{tok.Literal}); err != nil {
				return err
			}
		case huffman.EndOfBlock:
			return nil
		case huffman.LengthMatch:
			length := tok.Base
			if tok.ExtraBits > 0 {
				extra, err := r.br.ReadBits(tok.ExtraBits)
				if err != nil {
					return err
				}
				length += int(extra.Bits)
			}
			dsym, err := dist.ReadSymbol(r.br)
			if err != nil {
				return err
			}
			dtok, err := huffman.DecodeDistance(dsym)
			if err != nil {
				return err
			}
			distance := dtok.Base
			if dtok.ExtraBits > 0 {
				extra, err := r.br.ReadBits(dtok.ExtraBits)
				if err != nil {
					return err
				}
				distance += int(extra.Bits)
			}
			if err := r.w.WritePrevious(distance, length); err != nil {
				return err
			}
		}
	}
}
