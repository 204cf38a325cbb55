package driver

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/inflatehq/gzinflate/gzip"
)

func mustDecode(t *testing.T, b64 string) []byte {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return raw
}

func TestDecompressTwoMembers(t *testing.T) {
	raw := mustDecode(t, "H4sIAAAAAAAA/0vLzwcAIWVzjAMAAAAfiwgAAAAAAAD/S0osAgCqjP92AwAAAA==")
	var out bytes.Buffer
	if err := Decompress(bytes.NewReader(raw), &out); err != nil {
		t.Fatal(err)
	}
	if out.String() != "foobar" {
		t.Fatalf("out = %q, want %q", out.String(), "foobar")
	}
}

func TestDecompressEmptyInput(t *testing.T) {
	var out bytes.Buffer
	if err := Decompress(bytes.NewReader(nil), &out); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Fatalf("out = %q, want empty", out.String())
	}
}

func TestDecompressStopsAtFirstError(t *testing.T) {
	raw := mustDecode(t, "H4sIAAAAAAAA/8tIzcnJBwCHphA2BQAAAA==") // corrupted trailer
	var out bytes.Buffer
	err := Decompress(bytes.NewReader(raw), &out)
	if !errors.Is(err, gzip.ErrCrcMismatch) {
		t.Fatalf("err = %v, want ErrCrcMismatch", err)
	}
	if out.String() != "hello" {
		t.Fatalf("out = %q, want partial output %q", out.String(), "hello")
	}
}

func TestDecompressTrailingGarbage(t *testing.T) {
	raw := mustDecode(t, "H4sIAAAAAAAA/8tIzcnJBwCGphA2BQAAAA==")
	raw = append(raw, 0x1f, 0x00, 0x00) // starts like gzip magic but isn't
	var out bytes.Buffer
	err := Decompress(bytes.NewReader(raw), &out)
	if !errors.Is(err, gzip.ErrBadMagic) {
		t.Fatalf("err = %v, want ErrBadMagic", err)
	}
	if out.String() != "hello" {
		t.Fatalf("out = %q, want partial output %q", out.String(), "hello")
	}
}

// TestDecompressTrailingGarbageNotMagicByte covers garbage that does not
// even start with 0x1f: Next must still report a member is present (the
// stream is non-empty) and let readHeader raise ErrBadMagic, rather than
// quietly reporting end-of-stream the way peeking for the magic byte itself
// used to.
func TestDecompressTrailingGarbageNotMagicByte(t *testing.T) {
	raw := mustDecode(t, "H4sIAAAAAAAA/8tIzcnJBwCGphA2BQAAAA==")
	raw = append(raw, 0x42, 0x00, 0x00) // does not start with the gzip magic byte
	var out bytes.Buffer
	err := Decompress(bytes.NewReader(raw), &out)
	if !errors.Is(err, gzip.ErrBadMagic) {
		t.Fatalf("err = %v, want ErrBadMagic", err)
	}
	if out.String() != "hello" {
		t.Fatalf("out = %q, want partial output %q", out.String(), "hello")
	}
}
