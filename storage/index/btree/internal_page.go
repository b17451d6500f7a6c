package btree

import (
	"github.com/ryogrid/SamehadaDB/storage/page"
	"github.com/ryogrid/SamehadaDB/types"
)

const internalSlotSize = keySlotSize + 4

// InternalPage stores n keys and n+1 child page ids: array[0]'s key is
// never read (child 0 covers everything less than array[1]'s key).
type InternalPage struct {
	header
}

func AsInternalPage(pg *page.Page) *InternalPage { return &InternalPage{header{pg}} }

func InitInternalPage(pg *page.Page, pageID, parentID types.PageID, maxSize int) *InternalPage {
	ip := AsInternalPage(pg)
	ip.setPageType(InternalPageType)
	ip.SetSize(0)
	ip.SetMaxSize(maxSize)
	ip.SetPageID(pageID)
	ip.SetParentPageID(parentID)
	return ip
}

func (ip *InternalPage) slotOffset(i int) int { return headerSize + i*internalSlotSize }

func (ip *InternalPage) KeyAt(i int, keyType types.TypeID) types.Value {
	off := ip.slotOffset(i)
	return decodeKey(ip.bytes()[off:off+keySlotSize], keyType)
}

func (ip *InternalPage) setKeyAt(i int, key types.Value) {
	off := ip.slotOffset(i)
	encodeKey(ip.bytes()[off:off+keySlotSize], key)
}

func (ip *InternalPage) ValueAt(i int) types.PageID {
	off := ip.slotOffset(i) + keySlotSize
	return types.PageID(getInt32(ip.bytes()[off : off+4]))
}

func (ip *InternalPage) setValueAt(i int, v types.PageID) {
	off := ip.slotOffset(i) + keySlotSize
	putInt32(ip.bytes()[off:off+4], int32(v))
}

func (ip *InternalPage) setAt(i int, key types.Value, v types.PageID) {
	ip.setKeyAt(i, key)
	ip.setValueAt(i, v)
}

func (ip *InternalPage) ValueIndex(v types.PageID) int {
	for i := 0; i < ip.Size(); i++ {
		if ip.ValueAt(i) == v {
			return i
		}
	}
	return -1
}

// Lookup returns the child page id to descend into for key: the last
// entry whose key is <= key, or child 0 if key is smaller than every key.
func (ip *InternalPage) Lookup(key types.Value, keyType types.TypeID) types.PageID {
	n := ip.Size()
	childIdx := 0
	for i := 1; i < n; i++ {
		if ip.KeyAt(i, keyType).CompareLessThanOrEqual(key) {
			childIdx = i
		} else {
			break
		}
	}
	return ip.ValueAt(childIdx)
}

// PopulateNewRoot sets up a brand new root with exactly one key and two
// children, used right after the original root splits.
func (ip *InternalPage) PopulateNewRoot(oldValue types.PageID, newKey types.Value, newValue types.PageID) {
	ip.setValueAt(0, oldValue)
	ip.setAt(1, newKey, newValue)
	ip.SetSize(2)
}

// InsertNodeAfter inserts (newKey, newValue) immediately after the entry
// pointing at oldValue, returning the new size.
func (ip *InternalPage) InsertNodeAfter(oldValue types.PageID, newKey types.Value, newValue types.PageID, keyType types.TypeID) int {
	idx := ip.ValueIndex(oldValue) + 1
	n := ip.Size()
	for i := n; i > idx; i-- {
		ip.setAt(i, ip.KeyAt(i-1, keyType), ip.ValueAt(i-1))
	}
	ip.setAt(idx, newKey, newValue)
	ip.SetSize(n + 1)
	return n + 1
}

// Remove drops the entry at index i.
func (ip *InternalPage) Remove(i int, keyType types.TypeID) {
	n := ip.Size()
	for j := i; j < n-1; j++ {
		ip.setAt(j, ip.KeyAt(j+1, keyType), ip.ValueAt(j+1))
	}
	ip.SetSize(n - 1)
}

// RemoveAndReturnOnlyChild empties a root that has been reduced to a
// single child, returning that child so the caller can promote it.
func (ip *InternalPage) RemoveAndReturnOnlyChild() types.PageID {
	child := ip.ValueAt(0)
	ip.SetSize(0)
	return child
}

// MoveHalfTo splits the upper half of ip's entries into recipient.
func (ip *InternalPage) MoveHalfTo(recipient *InternalPage, keyType types.TypeID) {
	n := ip.Size()
	mid := n / 2
	for i := mid; i < n; i++ {
		recipient.setAt(i-mid, ip.KeyAt(i, keyType), ip.ValueAt(i))
	}
	recipient.SetSize(n - mid)
	ip.SetSize(mid)
}

// MoveAllTo appends every entry of ip onto recipient with middleKey
// filling in recipient's first (previously unused) key slot, used when
// merging ip into its left sibling during a coalesce.
func (ip *InternalPage) MoveAllTo(recipient *InternalPage, middleKey types.Value, keyType types.TypeID) {
	base := recipient.Size()
	recipient.setKeyAt(base, middleKey)
	recipient.setValueAt(base, ip.ValueAt(0))
	n := ip.Size()
	for i := 1; i < n; i++ {
		recipient.setAt(base+i, ip.KeyAt(i, keyType), ip.ValueAt(i))
	}
	recipient.SetSize(base + n)
	ip.SetSize(0)
}

// MoveFirstToEndOf borrows ip's first entry onto the end of recipient,
// filling recipient's new slot's key with middleKey (the parent's
// separator, since ip's own first key is unused).
func (ip *InternalPage) MoveFirstToEndOf(recipient *InternalPage, middleKey types.Value, keyType types.TypeID) {
	recipient.setAt(recipient.Size(), middleKey, ip.ValueAt(0))
	recipient.SetSize(recipient.Size() + 1)
	ip.Remove(0, keyType)
}

// MoveLastToFrontOf borrows ip's last entry onto the front of recipient.
func (ip *InternalPage) MoveLastToFrontOf(recipient *InternalPage, middleKey types.Value, keyType types.TypeID) {
	n := ip.Size()
	lastValue := ip.ValueAt(n - 1)
	for i := recipient.Size(); i > 0; i-- {
		recipient.setAt(i, recipient.KeyAt(i-1, keyType), recipient.ValueAt(i-1))
	}
	recipient.setAt(0, middleKey, lastValue)
	recipient.SetSize(recipient.Size() + 1)
	ip.SetSize(n - 1)
}
