package tagfile

import (
	"bytes"

	"github.com/samber/oops"

	"github.com/g5becks/luatags/internal/atomicfile"
)

// WriteFile encodes entries and replaces path atomically.
func WriteFile(path string, entries []Entry, opts Options) error {
	var buf bytes.Buffer
	if err := Encode(&buf, entries, opts); err != nil {
		return err
	}

	if err := atomicfile.Write(path, buf.Bytes()); err != nil {
		return oops.
			Code("TAGFILE_WRITE").
			With("path", path).
			Wrapf(err, "writing tag file")
	}

	return nil
}
