package resources

import (
	"io"
	str "strings"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/pkg/errors"
)

// Codec is the general purpose compressor dictionary files are wrapped in.
type Codec int

const (
	NoCodec Codec = iota
	Gzip
	Zstd
)

// ParseCodec maps "none", "gzip" and "zstd" to a Codec.
func ParseCodec(s string) (Codec, error) {
	switch str.ToLower(s) {
	case "", "none":
		return NoCodec, nil
	case "gzip", "gz":
		return Gzip, nil
	case "zstd", "zst":
		return Zstd, nil
	}
	return NoCodec, errors.Errorf("unknown codec %q", s)
}

// Extension is appended to dictionary file names.
func (c Codec) Extension() string {
	switch c {
	case Gzip:
		return ".gz"
	case Zstd:
		return ".zst"
	}
	return ""
}

func (c Codec) String() string {
	switch c {
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	}
	return "none"
}

// NewWriter wraps w in the codec's compressor. Closing the returned writer
// does not close w.
func (c Codec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	switch c {
	case Gzip:
		return pgzip.NewWriterLevel(w, pgzip.DefaultCompression)
	case Zstd:
		return zstd.NewWriter(w)
	}
	return nopWriteCloser{w}, nil
}

// NewReader wraps r in the codec's decompressor.
func (c Codec) NewReader(r io.Reader) (io.ReadCloser, error) {
	switch c {
	case Gzip:
		return pgzip.NewReader(r)
	case Zstd:
		d, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	}
	return io.NopCloser(r), nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
