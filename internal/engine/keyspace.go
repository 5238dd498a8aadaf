package engine

import (
	"bytes"

	"github.com/google/btree"
)

// record is one versioned key stored in the keyspace tree. version bumps on
// every successful commit that writes the key; a record with deleted set is
// a tombstone so Scan can skip it without resurrecting an earlier version.
type record struct {
	key     []byte
	version uint64
	value   []byte
	deleted bool
}

// Less implements btree.Item. Keys order purely lexicographically: the
// tree is the source of truth for iteration order, unlike a scheme that
// encodes a successor bound into the key bytes themselves.
func (r *record) Less(than btree.Item) bool {
	return bytes.Compare(r.key, than.(*record).key) < 0
}

const btreeDegree = 32

func newKeyspace() *btree.BTree {
	return btree.New(btreeDegree)
}

// succKey returns the lexicographically smallest byte string strictly
// greater than every string sharing prefix as a prefix, i.e. the exclusive
// upper bound for "every key starting with prefix". It is nil (meaning
// "no upper bound", scan to the end of the keyspace) if prefix is all 0xFF
// bytes or empty.
//
// This replaces the 0xFF-sentinel-appended scan bound: "prefix + 0xFF" is
// not actually an upper bound for the prefix, because keys such as
// "prefix + 0xFF" itself or "prefix + 0xFF + 0x00" start with prefix but
// are not below that sentinel, so they would be wrongly dropped.
// Incrementing the last non-0xFF byte and truncating there gives the true
// successor.
func succKey(prefix []byte) []byte {
	succ := make([]byte, len(prefix))
	copy(succ, prefix)
	for i := len(succ) - 1; i >= 0; i-- {
		if succ[i] != 0xFF {
			succ[i]++
			return succ[:i+1]
		}
	}
	return nil
}
