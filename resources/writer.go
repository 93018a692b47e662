package resources

import (
	"bufio"
	"bytes"
	"io"
	"path/filepath"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/rdfio/rdfprep/blockgz"
	"github.com/rdfio/rdfprep/blockoffsets"
	"github.com/rdfio/rdfprep/bysubject"
	"github.com/rdfio/rdfprep/internal/logs"
)

var (
	// ErrOutputExists is returned when the output directory is already there,
	// which means an earlier attempt left partial output behind.
	ErrOutputExists = errors.New("output directory already exists")
	// ErrInvalidValue is returned for values that are neither an OutputCount
	// nor a *bysubject.Record.
	ErrInvalidValue = errors.New("don't know how to write value")
	// ErrDocumentOrder is returned when document ids do not strictly increase.
	ErrDocumentOrder = errors.New("document ids must strictly increase")
	// ErrClosed is returned for writes after Close.
	ErrClosed = errors.New("resource record writer is closed")
)

// Options configure a ResourceRecordWriter.
type Options struct {
	// Codec wraps the dictionary files.
	Codec Codec
	// BlockSize is the uncompressed size at which the by-subject store cuts
	// a compression block.
	BlockSize int
	// Level is the gzip level of the by-subject store.
	Level int
}

// DefaultOptions writes plain dictionaries and a by-subject store with
// 100KB blocks.
func DefaultOptions() Options {
	return Options{
		Codec:     NoCodec,
		BlockSize: blockgz.DefaultBlockSize,
		Level:     gzip.DefaultCompression,
	}
}

type dictionarySink struct {
	file afero.File
	comp io.Closer
	w    *bufio.Writer
}

func (s *dictionarySink) close() error {
	var result *multierror.Error
	if err := s.w.Flush(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := s.comp.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := s.file.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// ResourceRecordWriter writes resource keys to per-role dictionary files and
// subject records to a block compressed by-subject store, building the block
// offsets index of the store as it goes. It is meant to be owned by a single
// goroutine and writes into a directory nobody else touches.
type ResourceRecordWriter struct {
	dir         string
	sinks       [numOutputs]*dictionarySink
	storeFile   afero.File
	store       *blockgz.Writer
	bySubject   *bufio.Writer
	offsetsFile afero.File
	offsets     *blockoffsets.Builder
	result      *blockoffsets.BlockOffsets

	firstRecord bool
	lastDocID   int64
	allCount    int64
	docCount    int64
	closed      bool
}

// NewResourceRecordWriter creates dir and every output file in it. It fails
// with ErrOutputExists if dir already exists, whatever it contains.
func NewResourceRecordWriter(fs afero.Fs, dir string, opts Options) (*ResourceRecordWriter, error) {
	exists, err := afero.Exists(fs, dir)
	if err != nil {
		return nil, errors.Wrapf(err, "checking output directory %s", dir)
	}
	if exists {
		return nil, errors.Wrap(ErrOutputExists, dir)
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating output directory %s", dir)
	}

	w := &ResourceRecordWriter{
		dir:         dir,
		offsets:     blockoffsets.NewBuilder(),
		firstRecord: true,
	}
	for _, o := range Outputs {
		sink, err := newDictionarySink(fs, filepath.Join(dir, o.FileName()+opts.Codec.Extension()), opts.Codec)
		if err != nil {
			w.abort()
			return nil, err
		}
		w.sinks[o] = sink
	}

	if w.storeFile, err = fs.Create(filepath.Join(dir, bysubject.StoreFileName)); err != nil {
		w.abort()
		return nil, errors.Wrap(err, "creating by-subject store")
	}
	if w.offsetsFile, err = fs.Create(filepath.Join(dir, bysubject.OffsetsFileName)); err != nil {
		w.abort()
		return nil, errors.Wrap(err, "creating block offsets file")
	}
	if w.store, err = blockgz.NewWriter(w.storeFile, opts.BlockSize, opts.Level, w.offsets); err != nil {
		w.abort()
		return nil, err
	}
	w.bySubject = bufio.NewWriter(w.store)
	return w, nil
}

func newDictionarySink(fs afero.Fs, path string, codec Codec) (*dictionarySink, error) {
	fh, err := fs.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s", path)
	}
	comp, err := codec.NewWriter(fh)
	if err != nil {
		fh.Close()
		return nil, errors.Wrapf(err, "creating %s compressor for %s", codec, path)
	}
	return &dictionarySink{file: fh, comp: comp, w: bufio.NewWriter(comp)}, nil
}

// abort releases file handles after a failed construction.
func (w *ResourceRecordWriter) abort() {
	for _, s := range w.sinks {
		if s != nil {
			s.file.Close()
		}
	}
	if w.storeFile != nil {
		w.storeFile.Close()
	}
	if w.offsetsFile != nil {
		w.offsetsFile.Close()
	}
}

// Write routes value for key. An OutputCount appends key to the dictionary of
// its Output; a *bysubject.Record is appended to the subjects dictionary and
// to the by-subject store.
func (w *ResourceRecordWriter) Write(key string, value interface{}) error {
	if w.closed {
		return ErrClosed
	}
	switch v := value.(type) {
	case OutputCount:
		return w.writeCount(key, v)
	case *OutputCount:
		return w.writeCount(key, *v)
	case *bysubject.Record:
		return w.writeRecord(v)
	default:
		return errors.Wrapf(ErrInvalidValue, "a %T for key %q", value, key)
	}
}

func (w *ResourceRecordWriter) writeCount(key string, c OutputCount) error {
	if !c.Output.valid() {
		return errors.Wrapf(ErrInvalidValue, "unknown output %d for key %q", int(c.Output), key)
	}
	sink := w.sinks[c.Output].w
	if c.Output.IncludeCounts() {
		sink.WriteString(strconv.Itoa(c.Count))
		sink.WriteByte('\t')
	}
	sink.WriteString(key)
	if err := sink.WriteByte('\n'); err != nil {
		return errors.Wrapf(err, "writing %s", c.Output.FileName())
	}
	if c.Output == All {
		w.allCount++
	}
	return nil
}

func (w *ResourceRecordWriter) writeRecord(rec *bysubject.Record) error {
	if !w.firstRecord && rec.ID <= w.lastDocID {
		return errors.Wrapf(ErrDocumentOrder, "document %d after %d", rec.ID, w.lastDocID)
	}

	subjects := w.sinks[Subject].w
	subjects.WriteString(rec.Subject)
	if err := subjects.WriteByte('\n'); err != nil {
		return errors.Wrap(err, "writing subjects")
	}

	if w.offsets.Pending() {
		if err := w.offsets.RecordDocument(rec.ID); err != nil {
			return err
		}
	}

	if w.firstRecord {
		w.firstRecord = false
	} else if err := w.bySubject.WriteByte(bysubject.RecordDelimiter); err != nil {
		return errors.Wrap(err, "writing by-subject store")
	}
	if _, err := rec.WriteTo(w.bySubject); err != nil {
		return errors.Wrapf(err, "writing record %d", rec.ID)
	}
	// Push the record through so blocks are cut as they fill.
	if err := w.bySubject.Flush(); err != nil {
		return errors.Wrap(err, "flushing by-subject store")
	}
	if err := w.store.Flush(); err != nil {
		return errors.Wrap(err, "flushing by-subject blocks")
	}
	w.lastDocID = rec.ID
	w.docCount++
	return nil
}

// Close flushes and closes every output, then builds and saves the block
// offsets index. The writer cannot be used afterwards.
func (w *ResourceRecordWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var result *multierror.Error
	for _, o := range Outputs {
		if err := w.sinks[o].close(); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "closing %s", o.FileName()))
		}
	}

	if err := w.bySubject.WriteByte(bysubject.RecordDelimiter); err != nil {
		result = multierror.Append(result, err)
	}
	if err := w.bySubject.Flush(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := w.store.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := w.storeFile.Close(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "closing by-subject store"))
	}
	if result.ErrorOrNil() != nil {
		w.offsetsFile.Close()
		return result.ErrorOrNil()
	}

	offsets, err := w.offsets.Build(w.docCount, w.allCount)
	if err != nil {
		w.offsetsFile.Close()
		return err
	}
	w.result = offsets

	var summary bytes.Buffer
	offsets.Print(&summary)
	logs.Infof("Closed %s:\n%s", w.dir, summary.String())

	if err := offsets.Save(w.offsetsFile); err != nil {
		result = multierror.Append(result, err)
	}
	if err := w.offsetsFile.Close(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "closing block offsets"))
	}
	return result.ErrorOrNil()
}

// Offsets returns the index built by Close, or nil before Close.
func (w *ResourceRecordWriter) Offsets() *blockoffsets.BlockOffsets {
	return w.result
}

// DocCount is the number of subject records written so far.
func (w *ResourceRecordWriter) DocCount() int64 {
	return w.docCount
}

// AllCount is the number of keys written to the all dictionary so far.
func (w *ResourceRecordWriter) AllCount() int64 {
	return w.allCount
}
