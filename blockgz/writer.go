// Package blockgz writes a gzip stream made of independently decompressible
// members, one per block, and reports where each block starts.
//
// A reader can start decompressing at any block start and read on to the end
// of the stream, and the whole file is still a valid multi-member gzip file.
package blockgz

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// DefaultBlockSize mirrors the smallest bzip2 block size.
const DefaultBlockSize = 100 * 1024

// Listener is told about block starts and the end of the stream. Offsets are
// in bits from the start of the compressed stream.
type Listener interface {
	BlockStart(bitOffset int64)
	Finish(totalBits int64)
}

// Writer buffers uncompressed bytes and emits them as one gzip member per
// block. Blocks are only cut on Flush, so a caller that flushes at record
// boundaries gets blocks that start on record boundaries.
type Writer struct {
	out       io.Writer
	gz        *gzip.Writer
	buf       bytes.Buffer
	blockSize int
	listener  Listener
	written   int64
	closed    bool
}

// NewWriter returns a Writer on w. The first block start, at offset 0, is
// reported before NewWriter returns.
func NewWriter(w io.Writer, blockSize, level int, l Listener) (*Writer, error) {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	gz, err := gzip.NewWriterLevel(io.Discard, level)
	if err != nil {
		return nil, errors.Wrap(err, "creating gzip block writer")
	}
	bw := &Writer{
		out:       w,
		gz:        gz,
		blockSize: blockSize,
		listener:  l,
	}
	bw.buf.Grow(blockSize)
	if l != nil {
		l.BlockStart(0)
	}
	return bw, nil
}

// Write buffers p into the current block.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errors.New("blockgz: write after close")
	}
	return w.buf.Write(p)
}

// Flush ends the current block if it has reached the block size and reports
// the start of the next one. Smaller blocks keep accumulating.
func (w *Writer) Flush() error {
	if w.closed {
		return errors.New("blockgz: flush after close")
	}
	if w.buf.Len() < w.blockSize {
		return nil
	}
	if err := w.emit(); err != nil {
		return err
	}
	if w.listener != nil {
		w.listener.BlockStart(w.written * 8)
	}
	return nil
}

// Close emits any buffered bytes as a final block and reports the total
// length of the stream. It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	if w.buf.Len() > 0 {
		if err := w.emit(); err != nil {
			return err
		}
	}
	w.closed = true
	if w.listener != nil {
		w.listener.Finish(w.written * 8)
	}
	return nil
}

// BytesWritten is the compressed size so far.
func (w *Writer) BytesWritten() int64 {
	return w.written
}

func (w *Writer) emit() error {
	cw := &countingWriter{w: w.out}
	w.gz.Reset(cw)
	if _, err := w.gz.Write(w.buf.Bytes()); err != nil {
		return errors.Wrap(err, "compressing block")
	}
	if err := w.gz.Close(); err != nil {
		return errors.Wrap(err, "closing block")
	}
	w.written += cw.n
	w.buf.Reset()
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
