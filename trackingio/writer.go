// Package trackingio implements a buffered output sink that retains the
// last 32 KiB of emitted bytes for DEFLATE back-references, while tracking
// a running CRC-32 and byte count.
package trackingio

import (
	"errors"
	"hash"
	"hash/crc32"
	"io"

	"github.com/inflatehq/gzinflate/capnslog"
)

var plog = capnslog.NewPackageLogger("github.com/inflatehq/gzinflate", "trackingio")

// ErrBadBackReference is returned when a back-reference distance exceeds
// the bytes written so far.
var ErrBadBackReference = errors.New("trackingio: back-reference distance exceeds history")

// windowSize is the maximum DEFLATE sliding window: 32 KiB.
const windowSize = 32768

// Writer wraps an io.Writer, retaining up to 32 KiB of recently written
// bytes so that WritePrevious can replay back-references, while
// maintaining a CRC-32 (ISO-HDLC) digest and a cumulative byte count.
type Writer struct {
	inner     io.Writer
	history   []byte
	digest    hash.Hash32
	byteCount int64
}

// NewWriter returns a Writer that forwards bytes to inner.
func NewWriter(inner io.Writer) *Writer {
	return &Writer{
		inner:  inner,
		digest: crc32.NewIEEE(),
	}
}

// Write implements io.Writer, updating the CRC, history window and byte
// counter to reflect exactly what the inner writer accepted.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.inner.Write(p)
	if n > 0 {
		w.digest.Write(p[:n])
		w.byteCount += int64(n)
		w.appendHistory(p[:n])
	}
	return n, err
}

func (w *Writer) appendHistory(p []byte) {
	w.history = append(w.history, p...)
	if len(w.history) > windowSize {
		w.history = w.history[len(w.history)-windowSize:]
	}
}

// WritePrevious reproduces a DEFLATE back-reference: length bytes copied
// from dist bytes before the current tail of the output. dist must be in
// [1, len(history)]. When dist < length the copy self-overlaps (as with
// run-length encoding) and must read from the bytes it is itself emitting,
// not from a frozen snapshot of history.
func (w *Writer) WritePrevious(dist, length int) error {
	if dist < 1 || dist > len(w.history) {
		return ErrBadBackReference
	}
	run := make([]byte, 0, length)
	start := len(w.history) - dist
	if dist >= length {
		run = append(run, w.history[start:start+length]...)
	} else {
		run = append(run, w.history[start:]...)
		for len(run) < length {
			remaining := length - len(run)
			if remaining > dist {
				remaining = dist
			}
			run = append(run, run[:remaining]...)
		}
	}
	plog.Tracef("write-previous dist=%d length=%d", dist, length)
	_, err := w.Write(run)
	return err
}

// Flush flushes the inner writer if it supports flushing.
func (w *Writer) Flush() error {
	if f, ok := w.inner.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// ByteCount returns the number of bytes accepted so far.
func (w *Writer) ByteCount() int64 {
	return w.byteCount
}

// Finish returns the final CRC-32 and the inner writer, for the caller
// (gzip.Reader) to validate against the member trailer.
func (w *Writer) Finish() (uint32, io.Writer) {
	return w.digest.Sum32(), w.inner
}
