package blockgz

import (
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// NewReaderAt returns a reader decompressing everything from the block that
// starts at bitOffset to the end of the stream.
func NewReaderAt(r io.ReadSeeker, bitOffset int64) (*gzip.Reader, error) {
	if bitOffset%8 != 0 {
		return nil, errors.Errorf("block offset %d is not byte aligned", bitOffset)
	}
	if _, err := r.Seek(bitOffset/8, io.SeekStart); err != nil {
		return nil, errors.Wrapf(err, "seeking to block at bit %d", bitOffset)
	}
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrapf(err, "opening block at bit %d", bitOffset)
	}
	zr.Multistream(true)
	return zr, nil
}
