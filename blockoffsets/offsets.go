package blockoffsets

import (
	"fmt"
	"io"
	"sort"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrNoDocument is returned by Locate for ids outside [0, DocCount).
var ErrNoDocument = errors.New("document id out of range")

// Boundary ties the start of a compression block to the first document that
// starts inside it.
type Boundary struct {
	_msgpack struct{} `msgpack:",as_array"`

	BitOffset  int64
	FirstDocID int64
}

// BlockOffsets is the sparse index over a block compressed by-subject store.
// It is immutable once built.
type BlockOffsets struct {
	_msgpack struct{} `msgpack:",as_array"`

	DocCount   int64
	AllCount   int64
	TotalBits  int64
	Boundaries []Boundary
}

// Validate checks that boundaries are strictly increasing in both fields and
// lie inside the stream.
func (o *BlockOffsets) Validate() error {
	for i, b := range o.Boundaries {
		if b.BitOffset < 0 || b.BitOffset > o.TotalBits {
			return errors.Wrapf(ErrOrder, "boundary %d at bit %d outside stream of %d bits", i, b.BitOffset, o.TotalBits)
		}
		if i == 0 {
			continue
		}
		prev := o.Boundaries[i-1]
		if b.BitOffset <= prev.BitOffset || b.FirstDocID <= prev.FirstDocID {
			return errors.Wrapf(ErrOrder, "boundary %d (%d, %d) not after (%d, %d)",
				i, b.BitOffset, b.FirstDocID, prev.BitOffset, prev.FirstDocID)
		}
	}
	return nil
}

// Locate returns the boundary a reader should start decompressing from to
// find docID: the last one whose first document is not after docID. Reading
// starts from the stream origin when no such boundary exists.
func (o *BlockOffsets) Locate(docID int64) (Boundary, error) {
	if docID < 0 || docID >= o.DocCount {
		return Boundary{}, errors.Wrapf(ErrNoDocument, "document %d of %d", docID, o.DocCount)
	}
	i := sort.Search(len(o.Boundaries), func(i int) bool {
		return o.Boundaries[i].FirstDocID > docID
	})
	if i == 0 {
		return Boundary{}, nil
	}
	return o.Boundaries[i-1], nil
}

// Save writes the index as a msgpack array of
// [DocCount, AllCount, TotalBits, [[BitOffset, FirstDocID], ...]].
func (o *BlockOffsets) Save(w io.Writer) error {
	return errors.Wrap(msgpack.NewEncoder(w).Encode(o), "saving block offsets")
}

// Load reads an index written by Save.
func Load(r io.Reader) (*BlockOffsets, error) {
	o := &BlockOffsets{}
	if err := msgpack.NewDecoder(r).Decode(o); err != nil {
		return nil, errors.Wrap(err, "loading block offsets")
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// Print writes a short human readable summary.
func (o *BlockOffsets) Print(w io.Writer) {
	fmt.Fprintf(w, "Documents: %d\n", o.DocCount)
	fmt.Fprintf(w, "Resources: %d\n", o.AllCount)
	fmt.Fprintf(w, "Compressed bits: %d\n", o.TotalBits)
	fmt.Fprintf(w, "Block boundaries: %d\n", len(o.Boundaries))
	if n := len(o.Boundaries); n > 0 {
		fmt.Fprintf(w, "Last block starts at bit %d with document %d\n", o.Boundaries[n-1].BitOffset, o.Boundaries[n-1].FirstDocID)
	}
}
