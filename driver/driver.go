// Package driver runs the thin outer loop of the decompressor: peek the
// input for another gzip member, decode it, and repeat until the stream
// drains at a member boundary.
package driver

import (
	"io"

	"github.com/inflatehq/gzinflate/capnslog"
	"github.com/inflatehq/gzinflate/gzip"
)

var plog = capnslog.NewPackageLogger("github.com/inflatehq/gzinflate", "driver")

// Decompress reads zero or more concatenated gzip members from r, writing
// their decompressed payloads in order to w. Trailing garbage that is
// neither empty nor a valid member header surfaces as gzip.ErrBadMagic
// from the member decode that encounters it.
func Decompress(r io.Reader, w io.Writer) error {
	gr := gzip.NewReader(r)
	members := 0
	for gr.Next() {
		h, err := gr.DecodeMember(w)
		if err != nil {
			return err
		}
		members++
		plog.Tracef("member %d decoded name=%q", members, h.Name)
	}
	if members == 0 {
		plog.Tracef("empty input stream, nothing to decompress")
	}
	return nil
}
