package shuffle

import (
	"encoding/binary"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

const (
	keyPrefix    = 'k'
	keySeparator = 0x00
	// keyOverhead is the prefix, separator and sequence number around an
	// emission key.
	keyOverhead = 1 + 1 + 8

	// badger refuses longer keys, and in-memory stores refuse values above
	// their value threshold of 1MB.
	maxStoreKey   = 65000
	maxStoreValue = 1 << 20

	// MaxKeyLength is the longest emission key a Sorter accepts.
	MaxKeyLength = maxStoreKey - keyOverhead
	// MaxRelationLength is the longest relation a Sorter accepts.
	MaxRelationLength = maxStoreValue - 1
)

// ErrOversize is returned by Add for keys or relations over the limits.
var ErrOversize = errors.New("emission too large for the shuffle store")

// Group is everything emitted for one key.
type Group struct {
	Key        string
	Predicates int
	Objects    int
	Contexts   int
	Relations  []string
}

// Sorter spills emissions into a badger store, whose keys are kept sorted, and
// replays them grouped by key. Store keys are a fixed prefix byte, the
// emission key, a zero byte and a sequence number, so repeated emissions for
// a key are all kept and come back in arrival order.
type Sorter struct {
	db  *badger.DB
	wb  *badger.WriteBatch
	seq uint64
}

// NewSorter opens a sorter spilling to dir, or holding everything in memory
// when dir is empty.
func NewSorter(dir string) (*Sorter, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "opening shuffle store")
	}
	return &Sorter{db: db, wb: db.NewWriteBatch()}, nil
}

// Add stores one emission.
func (s *Sorter) Add(e Emission) error {
	if e.Key == "" {
		return errors.New("empty shuffle key")
	}
	if len(e.Key) > MaxKeyLength {
		return errors.Wrapf(ErrOversize, "key of %d bytes", len(e.Key))
	}
	if len(e.Relation) > MaxRelationLength {
		return errors.Wrapf(ErrOversize, "relation of %d bytes", len(e.Relation))
	}
	key := make([]byte, 0, len(e.Key)+keyOverhead)
	key = append(key, keyPrefix)
	key = append(key, e.Key...)
	key = append(key, keySeparator)
	key = binary.BigEndian.AppendUint64(key, s.seq)
	s.seq++

	val := make([]byte, 0, len(e.Relation)+1)
	val = append(val, byte(e.Kind))
	val = append(val, e.Relation...)
	return errors.Wrap(s.wb.Set(key, val), "adding to shuffle store")
}

// Len is the number of emissions added.
func (s *Sorter) Len() uint64 {
	return s.seq
}

// Groups calls fn for every key in ascending byte order. No more emissions may
// be added once Groups has been called.
func (s *Sorter) Groups(fn func(*Group) error) error {
	if s.wb != nil {
		if err := s.wb.Flush(); err != nil {
			return errors.Wrap(err, "flushing shuffle store")
		}
		s.wb = nil
	}

	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		var g *Group
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			raw := item.Key()
			sep := len(raw) - 9
			if sep < 2 || raw[0] != keyPrefix || raw[sep] != keySeparator {
				return errors.Errorf("malformed shuffle key %q", raw)
			}
			key := raw[1:sep]
			if g == nil || g.Key != string(key) {
				if g != nil {
					if err := fn(g); err != nil {
						return err
					}
				}
				g = &Group{Key: string(key)}
			}
			err := item.Value(func(val []byte) error {
				if len(val) == 0 {
					return errors.Errorf("empty shuffle value for %q", key)
				}
				switch Kind(val[0]) {
				case KindPredicate:
					g.Predicates++
				case KindObject:
					g.Objects++
				case KindContext:
					g.Contexts++
				case KindRelation:
					g.Relations = append(g.Relations, string(val[1:]))
				default:
					return errors.Errorf("unknown shuffle kind %q for %q", val[0], key)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		if g != nil {
			return fn(g)
		}
		return nil
	})
}

// Close releases the store.
func (s *Sorter) Close() error {
	if s.wb != nil {
		s.wb.Cancel()
		s.wb = nil
	}
	return s.db.Close()
}
