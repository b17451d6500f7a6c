package btree

import (
	"github.com/ryogrid/SamehadaDB/storage/page"
	"github.com/ryogrid/SamehadaDB/types"
)

// leafSlotSize is a key slot plus its serialized RID.
const leafSlotSize = keySlotSize + 8

// LeafPage stores (key, RID) pairs in sorted key order plus a pointer to
// the next leaf, forming the singly linked (forward-only) bottom level of the tree.
type LeafPage struct {
	header
}

func AsLeafPage(pg *page.Page) *LeafPage { return &LeafPage{header{pg}} }

func InitLeafPage(pg *page.Page, pageID, parentID types.PageID, maxSize int) *LeafPage {
	lp := AsLeafPage(pg)
	lp.setPageType(LeafPageType)
	lp.SetSize(0)
	lp.SetMaxSize(maxSize)
	lp.SetPageID(pageID)
	lp.SetParentPageID(parentID)
	lp.SetNextPageID(types.InvalidPageID)
	return lp
}

func (lp *LeafPage) NextPageID() types.PageID {
	return types.PageID(getInt32(lp.bytes()[offNextLeafID:]))
}
func (lp *LeafPage) SetNextPageID(id types.PageID) {
	putInt32(lp.bytes()[offNextLeafID:], int32(id))
}

func (lp *LeafPage) slotOffset(i int) int { return headerSize + 4 + i*leafSlotSize }

func (lp *LeafPage) KeyAt(i int, keyType types.TypeID) types.Value {
	off := lp.slotOffset(i)
	return decodeKey(lp.bytes()[off:off+keySlotSize], keyType)
}

func (lp *LeafPage) RIDAt(i int) page.RID {
	off := lp.slotOffset(i) + keySlotSize
	return page.NewRIDFromBytes(lp.bytes()[off : off+8])
}

func (lp *LeafPage) setAt(i int, key types.Value, rid page.RID) {
	off := lp.slotOffset(i)
	encodeKey(lp.bytes()[off:off+keySlotSize], key)
	copy(lp.bytes()[off+keySlotSize:off+leafSlotSize], rid.Serialize())
}

// KeyIndex returns the index of the first entry whose key is >= key
// (lower bound), via linear scan; leaf pages are small (bounded by
// MaxSize) so this stays cheap without a binary-search helper.
func (lp *LeafPage) KeyIndex(key types.Value, keyType types.TypeID) int {
	n := lp.Size()
	for i := 0; i < n; i++ {
		if !lp.KeyAt(i, keyType).CompareLessThan(key) {
			return i
		}
	}
	return n
}

// Insert inserts (key, rid) keeping entries sorted; returns the new size.
func (lp *LeafPage) Insert(key types.Value, rid page.RID, keyType types.TypeID) int {
	idx := lp.KeyIndex(key, keyType)
	n := lp.Size()
	for i := n; i > idx; i-- {
		k := lp.KeyAt(i-1, keyType)
		r := lp.RIDAt(i - 1)
		lp.setAt(i, k, r)
	}
	lp.setAt(idx, key, rid)
	lp.SetSize(n + 1)
	return n + 1
}

// Lookup returns the RID for key, if present.
func (lp *LeafPage) Lookup(key types.Value, keyType types.TypeID) (page.RID, bool) {
	idx := lp.KeyIndex(key, keyType)
	if idx < lp.Size() && lp.KeyAt(idx, keyType).CompareEquals(key) {
		return lp.RIDAt(idx), true
	}
	return page.RID{}, false
}

// Delete removes key if present, returning the new size.
func (lp *LeafPage) Delete(key types.Value, keyType types.TypeID) int {
	idx := lp.KeyIndex(key, keyType)
	n := lp.Size()
	if idx >= n || !lp.KeyAt(idx, keyType).CompareEquals(key) {
		return n
	}
	for i := idx; i < n-1; i++ {
		lp.setAt(i, lp.KeyAt(i+1, keyType), lp.RIDAt(i+1))
	}
	lp.SetSize(n - 1)
	return n - 1
}

// MoveHalfTo splits the upper half of lp's entries into recipient,
// called on the freshly-created right-hand sibling during a split.
func (lp *LeafPage) MoveHalfTo(recipient *LeafPage, keyType types.TypeID) {
	n := lp.Size()
	mid := n / 2
	for i := mid; i < n; i++ {
		recipient.setAt(i-mid, lp.KeyAt(i, keyType), lp.RIDAt(i))
	}
	recipient.SetSize(n - mid)
	lp.SetSize(mid)
	recipient.SetNextPageID(lp.NextPageID())
	lp.SetNextPageID(recipient.PageID())
}

// MoveAllTo appends every entry of lp onto recipient, used when merging a
// leaf into its left sibling.
func (lp *LeafPage) MoveAllTo(recipient *LeafPage, keyType types.TypeID) {
	base := recipient.Size()
	n := lp.Size()
	for i := 0; i < n; i++ {
		recipient.setAt(base+i, lp.KeyAt(i, keyType), lp.RIDAt(i))
	}
	recipient.SetSize(base + n)
	recipient.SetNextPageID(lp.NextPageID())
	lp.SetSize(0)
}
