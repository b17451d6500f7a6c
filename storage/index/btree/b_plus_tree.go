package btree

import (
	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/ryogrid/SamehadaDB/storage/buffer"
	"github.com/ryogrid/SamehadaDB/storage/page"
	"github.com/ryogrid/SamehadaDB/types"
)

// BPlusTree is a disk-backed B+ tree over a single fixed-size key column.
// Structural changes (split, merge, redistribute) are serialized behind a
// single tree-wide latch rather than the fine-grained crab-latching a
// production engine would use; correct under concurrent load, just not
// maximally parallel.
type BPlusTree struct {
	mu deadlock.RWMutex

	name            string
	bpm             *buffer.BufferPoolManager
	keyType         types.TypeID
	rootPageID      types.PageID
	leafMaxSize     int
	internalMaxSize int
}

func NewBPlusTree(name string, bpm *buffer.BufferPoolManager, keyType types.TypeID, leafMaxSize, internalMaxSize int) *BPlusTree {
	return &BPlusTree{
		name:            name,
		bpm:             bpm,
		keyType:         keyType,
		rootPageID:      types.InvalidPageID,
		leafMaxSize:     leafMaxSize,
		internalMaxSize: internalMaxSize,
	}
}

func (t *BPlusTree) IsEmpty() bool { return t.rootPageID == types.InvalidPageID }

func (t *BPlusTree) GetRootPageID() types.PageID { return t.rootPageID }

// SetRootPageID lets the catalog restore a previously persisted tree by
// root page id instead of starting empty.
func (t *BPlusTree) SetRootPageID(id types.PageID) { t.rootPageID = id }

// findLeaf descends from the root to the leaf that should contain key,
// pinning every page it fetches and unpinning every page but the last.
func (t *BPlusTree) findLeaf(key types.Value) *LeafPage {
	pg := t.bpm.FetchPage(t.rootPageID)
	for {
		h := header{pg}
		if h.IsLeaf() {
			return AsLeafPage(pg)
		}
		ip := AsInternalPage(pg)
		childID := ip.Lookup(key, t.keyType)
		child := t.bpm.FetchPage(childID)
		t.bpm.UnpinPage(pg.ID(), false)
		pg = child
	}
}

// leftmostLeaf returns the tree's first leaf, for a full-scan iterator.
func (t *BPlusTree) leftmostLeaf() *LeafPage {
	pg := t.bpm.FetchPage(t.rootPageID)
	for {
		h := header{pg}
		if h.IsLeaf() {
			return AsLeafPage(pg)
		}
		ip := AsInternalPage(pg)
		childID := ip.ValueAt(0)
		child := t.bpm.FetchPage(childID)
		t.bpm.UnpinPage(pg.ID(), false)
		pg = child
	}
}

// GetValue returns the RID stored for key, if present.
func (t *BPlusTree) GetValue(key types.Value) (page.RID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.IsEmpty() {
		return page.RID{}, false
	}
	leaf := t.findLeaf(key)
	rid, ok := leaf.Lookup(key, t.keyType)
	t.bpm.UnpinPage(leaf.PageID(), false)
	return rid, ok
}

// Insert adds (key, rid) to the tree. Returns false without modifying the
// tree if key is already present (keys are unique; callers wanting
// duplicate keys must fold uniqueness into the key, e.g. key+RID).
func (t *BPlusTree) Insert(key types.Value, rid page.RID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.IsEmpty() {
		t.startNewTree(key, rid)
		return true
	}

	leaf := t.findLeaf(key)
	if _, exists := leaf.Lookup(key, t.keyType); exists {
		t.bpm.UnpinPage(leaf.PageID(), false)
		return false
	}
	leaf.Insert(key, rid, t.keyType)
	if leaf.Size() > t.leafMaxSize {
		t.splitLeaf(leaf)
	} else {
		t.bpm.UnpinPage(leaf.PageID(), true)
	}
	return true
}

func (t *BPlusTree) startNewTree(key types.Value, rid page.RID) {
	pg := t.bpm.NewPage()
	leaf := InitLeafPage(pg, pg.ID(), types.InvalidPageID, t.leafMaxSize)
	leaf.Insert(key, rid, t.keyType)
	t.rootPageID = pg.ID()
	t.bpm.UnpinPage(pg.ID(), true)
}

// splitLeaf moves the upper half of an overflowing leaf into a new right
// sibling and pushes the sibling's first key up into the parent.
func (t *BPlusTree) splitLeaf(leaf *LeafPage) {
	newPg := t.bpm.NewPage()
	sibling := InitLeafPage(newPg, newPg.ID(), leaf.ParentPageID(), t.leafMaxSize)
	leaf.MoveHalfTo(sibling, t.keyType)

	middleKey := sibling.KeyAt(0, t.keyType)
	t.insertIntoParent(leaf.PageID(), middleKey, sibling.PageID(), leaf.ParentPageID())

	t.bpm.UnpinPage(leaf.PageID(), true)
	t.bpm.UnpinPage(sibling.PageID(), true)
}

// insertIntoParent inserts (middleKey, rightID) into leftID's parent,
// creating a new root if leftID had none, splitting the parent in turn if
// it overflows.
func (t *BPlusTree) insertIntoParent(leftID types.PageID, middleKey types.Value, rightID types.PageID, parentID types.PageID) {
	if parentID == types.InvalidPageID {
		pg := t.bpm.NewPage()
		root := InitInternalPage(pg, pg.ID(), types.InvalidPageID, t.internalMaxSize)
		root.PopulateNewRoot(leftID, middleKey, rightID)
		t.rootPageID = pg.ID()

		t.updateParentPointer(leftID, pg.ID())
		t.updateParentPointer(rightID, pg.ID())
		t.bpm.UnpinPage(pg.ID(), true)
		return
	}

	parentPg := t.bpm.FetchPage(parentID)
	parent := AsInternalPage(parentPg)
	parent.InsertNodeAfter(leftID, middleKey, rightID, t.keyType)
	t.updateParentPointer(rightID, parentID)

	if parent.Size() > t.internalMaxSize {
		t.splitInternal(parent)
	} else {
		t.bpm.UnpinPage(parentID, true)
	}
}

func (t *BPlusTree) splitInternal(node *InternalPage) {
	newPg := t.bpm.NewPage()
	sibling := InitInternalPage(newPg, newPg.ID(), node.ParentPageID(), t.internalMaxSize)
	node.MoveHalfTo(sibling, t.keyType)

	middleKey := sibling.KeyAt(0, t.keyType)
	for i := 0; i < sibling.Size(); i++ {
		t.updateParentPointer(sibling.ValueAt(i), sibling.PageID())
	}

	t.insertIntoParent(node.PageID(), middleKey, sibling.PageID(), node.ParentPageID())

	t.bpm.UnpinPage(node.PageID(), true)
	t.bpm.UnpinPage(sibling.PageID(), true)
}

func (t *BPlusTree) updateParentPointer(childID types.PageID, parentID types.PageID) {
	childPg := t.bpm.FetchPage(childID)
	header{childPg}.SetParentPageID(parentID)
	t.bpm.UnpinPage(childID, true)
}

// Delete removes key from the tree if present, rebalancing (redistribute
// or merge) any node that drops below its minimum occupancy.
func (t *BPlusTree) Delete(key types.Value) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.IsEmpty() {
		return
	}
	leaf := t.findLeaf(key)
	before := leaf.Size()
	leaf.Delete(key, t.keyType)
	if leaf.Size() == before {
		t.bpm.UnpinPage(leaf.PageID(), false)
		return
	}
	t.handleUnderflow(header{leaf.pg}, leaf, nil)
}

// handleUnderflow rebalances a node (leaf xor internal, whichever is
// non-nil) that may have dropped below MinSize after a delete.
func (t *BPlusTree) handleUnderflow(h header, leaf *LeafPage, internal *InternalPage) {
	if h.PageID() == t.rootPageID {
		t.adjustRoot(h, internal)
		return
	}
	if h.Size() >= h.MinSize() {
		t.bpm.UnpinPage(h.PageID(), true)
		return
	}

	parentPg := t.bpm.FetchPage(h.ParentPageID())
	parent := AsInternalPage(parentPg)
	idx := parent.ValueIndex(h.PageID())

	var siblingIdx int
	var isPrev bool
	if idx == 0 {
		siblingIdx, isPrev = 1, false
	} else {
		siblingIdx, isPrev = idx-1, true
	}
	siblingPg := t.bpm.FetchPage(parent.ValueAt(siblingIdx))

	if leaf != nil {
		sibling := AsLeafPage(siblingPg)
		if sibling.Size()+leaf.Size() <= t.leafMaxSize {
			t.coalesceLeaf(leaf, sibling, parent, idx, isPrev)
		} else {
			t.redistributeLeaf(leaf, sibling, parent, idx, isPrev)
			t.bpm.UnpinPage(parent.PageID(), true)
		}
	} else {
		sibling := AsInternalPage(siblingPg)
		if sibling.Size()+internal.Size() <= t.internalMaxSize {
			t.coalesceInternal(internal, sibling, parent, idx, isPrev)
		} else {
			t.redistributeInternal(internal, sibling, parent, idx, isPrev)
			t.bpm.UnpinPage(parent.PageID(), true)
		}
	}
}

func (t *BPlusTree) redistributeLeaf(node, sibling *LeafPage, parent *InternalPage, idx int, siblingIsPrev bool) {
	if siblingIsPrev {
		key := sibling.KeyAt(sibling.Size()-1, t.keyType)
		rid := sibling.RIDAt(sibling.Size() - 1)
		sibling.Delete(key, t.keyType)
		node.Insert(key, rid, t.keyType)
		parent.setKeyAt(idx, node.KeyAt(0, t.keyType))
	} else {
		key := sibling.KeyAt(0, t.keyType)
		rid := sibling.RIDAt(0)
		sibling.Delete(key, t.keyType)
		node.Insert(key, rid, t.keyType)
		parent.setKeyAt(idx+1, sibling.KeyAt(0, t.keyType))
	}
	t.bpm.UnpinPage(node.PageID(), true)
	t.bpm.UnpinPage(sibling.PageID(), true)
}

func (t *BPlusTree) coalesceLeaf(node, sibling *LeafPage, parent *InternalPage, idx int, siblingIsPrev bool) {
	var left, right *LeafPage
	var removeIdx int
	if siblingIsPrev {
		left, right, removeIdx = sibling, node, idx
	} else {
		left, right, removeIdx = node, sibling, idx+1
	}
	right.MoveAllTo(left, t.keyType)
	parent.Remove(removeIdx, t.keyType)

	t.bpm.UnpinPage(left.PageID(), true)
	t.bpm.UnpinPage(right.PageID(), false)
	t.bpm.DeletePage(right.PageID())

	t.handleUnderflow(header{parent.pg}, nil, parent)
}

func (t *BPlusTree) redistributeInternal(node, sibling *InternalPage, parent *InternalPage, idx int, siblingIsPrev bool) {
	if siblingIsPrev {
		middleKey := parent.KeyAt(idx, t.keyType)
		newSeparator := sibling.KeyAt(sibling.Size()-1, t.keyType)
		sibling.MoveLastToFrontOf(node, middleKey, t.keyType)
		t.updateParentPointer(node.ValueAt(0), node.PageID())
		parent.setKeyAt(idx, newSeparator)
	} else {
		middleKey := parent.KeyAt(idx+1, t.keyType)
		sibling.MoveFirstToEndOf(node, middleKey, t.keyType)
		t.updateParentPointer(node.ValueAt(node.Size()-1), node.PageID())
		if sibling.Size() > 0 {
			parent.setKeyAt(idx+1, sibling.KeyAt(0, t.keyType))
		}
	}
	t.bpm.UnpinPage(node.PageID(), true)
	t.bpm.UnpinPage(sibling.PageID(), true)
}

func (t *BPlusTree) coalesceInternal(node, sibling *InternalPage, parent *InternalPage, idx int, siblingIsPrev bool) {
	var left, right *InternalPage
	var removeIdx int
	if siblingIsPrev {
		left, right, removeIdx = sibling, node, idx
	} else {
		left, right, removeIdx = node, sibling, idx+1
	}
	middleKey := parent.KeyAt(removeIdx, t.keyType)
	for i := 0; i < right.Size(); i++ {
		t.updateParentPointer(right.ValueAt(i), left.PageID())
	}
	right.MoveAllTo(left, middleKey, t.keyType)
	parent.Remove(removeIdx, t.keyType)

	t.bpm.UnpinPage(left.PageID(), true)
	t.bpm.UnpinPage(right.PageID(), false)
	t.bpm.DeletePage(right.PageID())

	t.handleUnderflow(header{parent.pg}, nil, parent)
}

// adjustRoot handles the two cases where the root itself underflows: an
// empty internal root promotes its only child to root; an empty leaf
// root (the whole tree deleted) resets the tree to empty.
func (t *BPlusTree) adjustRoot(h header, internal *InternalPage) {
	if internal != nil {
		if internal.Size() == 1 {
			newRootID := internal.RemoveAndReturnOnlyChild()
			t.rootPageID = newRootID
			t.updateParentPointer(newRootID, types.InvalidPageID)
			t.bpm.UnpinPage(h.PageID(), true)
			t.bpm.DeletePage(h.PageID())
			return
		}
		t.bpm.UnpinPage(h.PageID(), true)
		return
	}
	if h.Size() == 0 {
		t.rootPageID = types.InvalidPageID
		t.bpm.UnpinPage(h.PageID(), true)
		t.bpm.DeletePage(h.PageID())
		return
	}
	t.bpm.UnpinPage(h.PageID(), true)
}
