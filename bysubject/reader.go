package bysubject

import (
	"bufio"
	"io"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/rdfio/rdfprep/blockgz"
	"github.com/rdfio/rdfprep/blockoffsets"
)

// File names of the by-subject store inside an output directory.
const (
	StoreFileName   = "bySubject.gz"
	OffsetsFileName = "bySubject.blockOffsets"
)

// ErrNotFound is returned by Get when the store holds no record with the
// requested id.
var ErrNotFound = errors.New("by-subject record not found")

// Reader gives random access to the records of a by-subject store through its
// block offsets index.
type Reader struct {
	store   afero.File
	offsets *blockoffsets.BlockOffsets
}

// OpenReader opens the store and index in dir.
func OpenReader(fs afero.Fs, dir string) (*Reader, error) {
	fh, err := fs.Open(filepath.Join(dir, OffsetsFileName))
	if err != nil {
		return nil, errors.Wrap(err, "opening block offsets")
	}
	offsets, err := blockoffsets.Load(fh)
	fh.Close()
	if err != nil {
		return nil, err
	}
	store, err := fs.Open(filepath.Join(dir, StoreFileName))
	if err != nil {
		return nil, errors.Wrap(err, "opening by-subject store")
	}
	return &Reader{store: store, offsets: offsets}, nil
}

// Offsets returns the index the reader uses.
func (r *Reader) Offsets() *blockoffsets.BlockOffsets {
	return r.offsets
}

// Get returns the record of document docID. It decompresses from the nearest
// block start at or before the document and scans forward.
func (r *Reader) Get(docID int64) (*Record, error) {
	b, err := r.offsets.Locate(docID)
	if err != nil {
		return nil, errors.Wrap(ErrNotFound, err.Error())
	}
	var found *Record
	err = r.scanFrom(b.BitOffset, func(rec *Record) (bool, error) {
		if rec.ID < docID {
			return true, nil
		}
		if rec.ID == docID {
			found = rec
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, errors.Wrapf(ErrNotFound, "document %d", docID)
	}
	return found, nil
}

// Scan calls fn for every record in document order until fn returns false.
func (r *Reader) Scan(fn func(*Record) bool) error {
	return r.scanFrom(0, func(rec *Record) (bool, error) {
		return fn(rec), nil
	})
}

func (r *Reader) scanFrom(bitOffset int64, fn func(*Record) (bool, error)) error {
	if r.offsets.TotalBits == 0 {
		return nil
	}
	zr, err := blockgz.NewReaderAt(r.store, bitOffset)
	if err != nil {
		return err
	}
	defer zr.Close()

	br := bufio.NewReader(zr)
	for {
		line, err := br.ReadString(RecordDelimiter)
		if len(line) > 0 && line[len(line)-1] == RecordDelimiter {
			line = line[:len(line)-1]
		}
		if line != "" {
			rec, perr := ParseRecord(line)
			if perr != nil {
				return perr
			}
			more, ferr := fn(rec)
			if ferr != nil || !more {
				return ferr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "reading by-subject store")
		}
	}
}

// Close closes the store file.
func (r *Reader) Close() error {
	return r.store.Close()
}
