package huffman

import (
	"bytes"
	"errors"
	"testing"

	"github.com/inflatehq/gzinflate/bitio"
)

func TestNewRejectsOverSubscribed(t *testing.T) {
	// Three symbols claiming the only two length-1 code words.
	if _, err := New([]int{1, 1, 1}); !errors.Is(err, ErrBadTree) {
		t.Fatalf("err = %v, want ErrBadTree", err)
	}
}

func TestSingleSymbolTree(t *testing.T) {
	c, err := New([]int{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	br := bitio.NewReader(bytes.NewReader([]byte{0x00}))
	sym, err := c.ReadSymbol(br)
	if err != nil {
		t.Fatal(err)
	}
	if sym != 1 {
		t.Fatalf("sym = %d, want 1", sym)
	}
}

func TestFixedLiteralLengthRoundTrip(t *testing.T) {
	c, err := New(FixedLitLenLengths())
	if err != nil {
		t.Fatal(err)
	}
	// symbol 0 has code length 8; canonical assignment gives it 0b00110000.
	// Code words are packed high bit first into the LSB-first stream, so the
	// byte on the wire is that code bit-reversed.
	br := bitio.NewReader(bytes.NewReader([]byte{0b00001100}))
	sym, err := c.ReadSymbol(br)
	if err != nil {
		t.Fatal(err)
	}
	if sym != 0 {
		t.Fatalf("sym = %d, want 0", sym)
	}
}

func TestReadSymbolEmptyStream(t *testing.T) {
	c, err := New([]int{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	br := bitio.NewReader(bytes.NewReader(nil))
	if _, err := c.ReadSymbol(br); err == nil {
		t.Fatal("expected an error decoding from an empty stream")
	}
}

func TestDecodeLitLenRejectsReserved(t *testing.T) {
	for _, sym := range []int{286, 287, -1, 1000} {
		if _, err := DecodeLitLen(sym); !errors.Is(err, ErrBadTree) {
			t.Fatalf("DecodeLitLen(%d) err = %v, want ErrBadTree", sym, err)
		}
	}
}

func TestDecodeLitLenLengthRanges(t *testing.T) {
	cases := []struct {
		sym       int
		wantBase  int
		wantExtra uint
	}{
		{257, 3, 0},
		{264, 10, 0},
		{265, 11, 1},
		{268, 17, 1},
		{284, 227, 5},
		{285, 258, 0},
	}
	for _, c := range cases {
		tok, err := DecodeLitLen(c.sym)
		if err != nil {
			t.Fatalf("DecodeLitLen(%d): %v", c.sym, err)
		}
		if tok.Kind != LengthMatch || tok.Base != c.wantBase || tok.ExtraBits != c.wantExtra {
			t.Fatalf("DecodeLitLen(%d) = %+v, want base=%d extra=%d", c.sym, tok, c.wantBase, c.wantExtra)
		}
	}
}

func TestDecodeDistanceRanges(t *testing.T) {
	cases := []struct {
		sym       int
		wantBase  int
		wantExtra uint
	}{
		{0, 1, 0},
		{3, 4, 0},
		{4, 5, 1},
		{29, 24577, 13},
	}
	for _, c := range cases {
		tok, err := DecodeDistance(c.sym)
		if err != nil {
			t.Fatalf("DecodeDistance(%d): %v", c.sym, err)
		}
		if tok.Base != c.wantBase || tok.ExtraBits != c.wantExtra {
			t.Fatalf("DecodeDistance(%d) = %+v, want base=%d extra=%d", c.sym, tok, c.wantBase, c.wantExtra)
		}
	}
}

func TestDecodeTreeCode(t *testing.T) {
	tok, err := DecodeTreeCode(18)
	if err != nil {
		t.Fatal(err)
	}
	if tok.Kind != TreeRepeatZero || tok.Base != 11 || tok.ExtraBits != 7 {
		t.Fatalf("DecodeTreeCode(18) = %+v", tok)
	}
}
