package btree

import (
	"github.com/ryogrid/SamehadaDB/storage/page"
	"github.com/ryogrid/SamehadaDB/types"
)

// RangeIterator walks a B+ tree's leaf chain from a starting key onward,
// stopping once keys exceed end (end == nil means scan to the last leaf).
// It implements storage/index.IndexRangeScanIterator.
type RangeIterator struct {
	tree    *BPlusTree
	end     *types.Value
	leaf    *LeafPage
	slot    int
	done    bool
}

// NewRangeIterator builds an iterator over [start, end]. start == nil
// begins at the tree's leftmost leaf; end == nil scans to the tree's end.
func (t *BPlusTree) NewRangeIterator(start, end *types.Value) *RangeIterator {
	t.mu.RLock()
	defer t.mu.RUnlock()

	it := &RangeIterator{tree: t, end: end}
	if t.IsEmpty() {
		it.done = true
		return it
	}
	if start == nil {
		it.leaf = t.leftmostLeaf()
		it.slot = 0
	} else {
		it.leaf = t.findLeaf(*start)
		it.slot = it.leaf.KeyIndex(*start, t.keyType)
	}
	it.advancePastEmptyLeaves()
	return it
}

func (it *RangeIterator) advancePastEmptyLeaves() {
	for !it.done && it.slot >= it.leaf.Size() {
		next := it.leaf.NextPageID()
		it.tree.bpm.UnpinPage(it.leaf.PageID(), false)
		if next == types.InvalidPageID {
			it.done = true
			return
		}
		it.leaf = AsLeafPage(it.tree.bpm.FetchPage(next))
		it.slot = 0
	}
}

// Next returns the current (key, rid) and advances, matching the teacher's
// scan-then-advance iterator shape: the first call yields the first entry.
func (it *RangeIterator) Next() (bool, error, *types.Value, *page.RID) {
	it.tree.mu.RLock()
	defer it.tree.mu.RUnlock()

	if it.done {
		return false, nil, nil, nil
	}

	key := it.leaf.KeyAt(it.slot, it.tree.keyType)
	if it.end != nil && key.CompareGreaterThan(*it.end) {
		it.tree.bpm.UnpinPage(it.leaf.PageID(), false)
		it.done = true
		return false, nil, nil, nil
	}
	rid := it.leaf.RIDAt(it.slot)

	it.slot++
	it.advancePastEmptyLeaves()

	return true, nil, &key, &rid
}
