package blockoffsets

import (
	"github.com/pkg/errors"
)

// ErrOrder is returned when boundaries or document ids would not be strictly
// increasing.
var ErrOrder = errors.New("block offsets out of order")

// Builder collects block boundaries while a store is written. The compressor
// reports block starts through BlockStart; the store writer reports the id of
// each document it is about to write through RecordDocument. A block start is
// held as pending until the next document arrives, which becomes the first
// document of that block.
type Builder struct {
	boundaries []Boundary
	pending    int64
	hasPending bool
	lastDocID  int64
	hasDoc     bool
	totalBits  int64
	finished   bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// BlockStart marks the start of a new compression block at bitOffset. A
// pending block that never got a document is replaced, since no document
// starts inside it.
func (b *Builder) BlockStart(bitOffset int64) {
	b.pending = bitOffset
	b.hasPending = true
}

// Pending reports whether a block start is waiting for its first document.
func (b *Builder) Pending() bool {
	return b.hasPending
}

// RecordDocument attributes the pending block start, if any, to docID.
func (b *Builder) RecordDocument(docID int64) error {
	if b.hasDoc && docID <= b.lastDocID {
		return errors.Wrapf(ErrOrder, "document %d after %d", docID, b.lastDocID)
	}
	b.lastDocID = docID
	b.hasDoc = true
	if !b.hasPending {
		return nil
	}
	if n := len(b.boundaries); n > 0 && b.pending <= b.boundaries[n-1].BitOffset {
		return errors.Wrapf(ErrOrder, "block at bit %d after block at bit %d", b.pending, b.boundaries[n-1].BitOffset)
	}
	b.boundaries = append(b.boundaries, Boundary{BitOffset: b.pending, FirstDocID: docID})
	b.hasPending = false
	return nil
}

// Finish records the total length of the compressed stream. Any block start
// still pending is dropped.
func (b *Builder) Finish(totalBits int64) {
	b.totalBits = totalBits
	b.hasPending = false
	b.finished = true
}

// Build freezes the collected boundaries into a BlockOffsets.
func (b *Builder) Build(docCount, allCount int64) (*BlockOffsets, error) {
	if !b.finished {
		return nil, errors.New("block offsets builder not finished")
	}
	boundaries := make([]Boundary, len(b.boundaries))
	copy(boundaries, b.boundaries)
	o := &BlockOffsets{
		DocCount:   docCount,
		AllCount:   allCount,
		TotalBits:  b.totalBits,
		Boundaries: boundaries,
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}
