// Package huffman builds and decodes canonical Huffman codes as specified by
// RFC 1951 §3.2.2, and maps the resulting symbol indices into the three
// DEFLATE token alphabets (literal/length, distance, code-length).
package huffman

import (
	"errors"

	"github.com/inflatehq/gzinflate/bitio"
)

// ErrBadTree is returned when a set of code lengths is over-subscribed, or
// otherwise cannot be assigned a valid canonical code.
var ErrBadTree = errors.New("huffman: invalid code lengths")

// ErrBadCode is returned when no symbol's code word matches the bit stream
// within 16 bits.
var ErrBadCode = errors.New("huffman: no matching code within 16 bits")

const maxCodeLen = 15

// key packs a code word and its length into a single map key.
type key struct {
	bits uint16
	len  uint8
}

// Coding is a canonical Huffman decoder: a dictionary from (code word,
// length) to symbol index.
type Coding struct {
	table map[key]int
}

// New builds a Coding from a vector of code lengths, one entry per symbol,
// each in [0,15]. A length of 0 means the symbol is unused.
func New(lengths []int) (*Coding, error) {
	var blCount [maxCodeLen + 1]int
	for _, l := range lengths {
		if l < 0 || l > maxCodeLen {
			return nil, ErrBadTree
		}
		if l > 0 {
			blCount[l]++
		}
	}

	var nextCode [maxCodeLen + 1]int
	code := 0
	for bits := 1; bits <= maxCodeLen; bits++ {
		code = (code + blCount[bits-1]) << 1
		nextCode[bits] = code
		if nextCode[bits] > 1<<uint(bits) {
			return nil, ErrBadTree
		}
	}

	table := make(map[key]int, len(lengths))
	for sym, l := range lengths {
		if l == 0 {
			continue
		}
		c := nextCode[l]
		nextCode[l]++
		if c >= 1<<uint(l) {
			return nil, ErrBadTree
		}
		table[key{bits: uint16(c), len: uint8(l)}] = sym
	}
	return &Coding{table: table}, nil
}

// ReadSymbol decodes one symbol from br. Bits are accumulated MSB-first into
// the candidate code word (canonical Huffman codes are read and compared in
// the order RFC 1951 assigns them, high bit first), one bit at a time, until
// a match is found or 16 bits have been read without one.
func (c *Coding) ReadSymbol(br *bitio.Reader) (int, error) {
	var code uint16
	for l := uint8(1); l <= 16; l++ {
		bit, err := br.ReadBit()
		if err != nil {
			return 0, err
		}
		code <<= 1
		if bit {
			code |= 1
		}
		if sym, ok := c.table[key{bits: code, len: l}]; ok {
			return sym, nil
		}
	}
	return 0, ErrBadCode
}
