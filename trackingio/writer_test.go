package trackingio

import (
	"bytes"
	"errors"
	"hash/crc32"
	"testing"
)

func TestWriteTracksCrcAndByteCount(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if w.ByteCount() != 5 {
		t.Fatalf("ByteCount = %d, want 5", w.ByteCount())
	}
	crc, inner := w.Finish()
	if crc != crc32.ChecksumIEEE([]byte("hello")) {
		t.Fatalf("crc = %#x, want %#x", crc, crc32.ChecksumIEEE([]byte("hello")))
	}
	if inner != &buf {
		t.Fatal("Finish did not return the inner writer")
	}
}

func TestWritePreviousNonOverlapping(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Write([]byte("abcdef"))
	// dist=6 >= length=3: copy "abc" from 6 bytes back.
	if err := w.WritePrevious(6, 3); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "abcdefabc" {
		t.Fatalf("buf = %q, want %q", buf.String(), "abcdefabc")
	}
}

func TestWritePreviousSelfOverlapping(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Write([]byte("a"))
	// dist=1 < length=4: run-length expand "a" to "aaaaa".
	if err := w.WritePrevious(1, 4); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "aaaaa" {
		t.Fatalf("buf = %q, want %q", buf.String(), "aaaaa")
	}
}

func TestWritePreviousPartialOverlap(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Write([]byte("xyAB"))
	// dist=2, length=5: tail is "AB", self-overlap must extend "ABABA".
	if err := w.WritePrevious(2, 5); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "xyABABABA" {
		t.Fatalf("buf = %q, want %q", buf.String(), "xyABABABA")
	}
}

func TestWritePreviousBadDistance(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Write([]byte("ab"))
	if err := w.WritePrevious(3, 1); !errors.Is(err, ErrBadBackReference) {
		t.Fatalf("err = %v, want ErrBadBackReference", err)
	}
}

func TestHistoryBoundedAt32KiB(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	big := bytes.Repeat([]byte{'z'}, windowSize+100)
	if _, err := w.Write(big); err != nil {
		t.Fatal(err)
	}
	if len(w.history) != windowSize {
		t.Fatalf("len(history) = %d, want %d", len(w.history), windowSize)
	}
}
