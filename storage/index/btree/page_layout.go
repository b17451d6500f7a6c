// Package btree implements a disk-backed B+ tree keyed on a single
// fixed-size types.Value column, storing page.RID as its leaf payload.
package btree

import (
	"github.com/ryogrid/SamehadaDB/storage/page"
	"github.com/ryogrid/SamehadaDB/types"
)

// IndexPageType distinguishes a B+ tree page's role.
type IndexPageType int32

const (
	InvalidIndexPage IndexPageType = iota
	LeafPageType
	InternalPageType
)

// Shared header, 20 bytes: page type | size | max size | parent page id |
// page id. Leaf pages append a 4-byte next-leaf pointer after this.
const headerSize = 20

const (
	offPageType   = 0
	offSize       = 4
	offMaxSize    = 8
	offParentID   = 12
	offPageID     = 16
	offNextLeafID = headerSize
)

// keySlotSize is the fixed on-page byte width of a serialized key: one
// is-null byte plus 8 payload bytes, enough for any fixed-length scalar
// (Integer, Float, Boolean). Varchar keys are not supported.
const keySlotSize = 9

func putInt32(dst []byte, v int32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}

func getInt32(src []byte) int32 {
	return int32(src[0]) | int32(src[1])<<8 | int32(src[2])<<16 | int32(src[3])<<24
}

// encodeKey serializes v into a fixed keySlotSize-byte slot, left-aligned
// and zero-padded.
func encodeKey(dst []byte, v types.Value) {
	raw := v.Serialize()
	copy(dst, raw)
	for i := len(raw); i < keySlotSize; i++ {
		dst[i] = 0
	}
}

func decodeKey(src []byte, keyType types.TypeID) types.Value {
	return *types.NewValueFromBytes(src[:keySlotSize], keyType)
}

// header is the common accessor set embedded by both leaf and internal
// pages; both wrap a *page.Page and interpret its raw bytes.
type header struct {
	pg *page.Page
}

func (h header) bytes() []byte { return h.pg.Data()[:] }

func (h header) PageType() IndexPageType { return IndexPageType(getInt32(h.bytes()[offPageType:])) }
func (h header) setPageType(t IndexPageType) {
	putInt32(h.bytes()[offPageType:], int32(t))
}

func (h header) Size() int { return int(getInt32(h.bytes()[offSize:])) }
func (h header) SetSize(n int) {
	putInt32(h.bytes()[offSize:], int32(n))
}
func (h header) IncreaseSize(delta int) { h.SetSize(h.Size() + delta) }

func (h header) MaxSize() int { return int(getInt32(h.bytes()[offMaxSize:])) }
func (h header) SetMaxSize(n int) {
	putInt32(h.bytes()[offMaxSize:], int32(n))
}
func (h header) MinSize() int { return (h.MaxSize() + 1) / 2 }

func (h header) ParentPageID() types.PageID { return types.PageID(getInt32(h.bytes()[offParentID:])) }
func (h header) SetParentPageID(id types.PageID) {
	putInt32(h.bytes()[offParentID:], int32(id))
}

func (h header) PageID() types.PageID { return types.PageID(getInt32(h.bytes()[offPageID:])) }
func (h header) SetPageID(id types.PageID) {
	putInt32(h.bytes()[offPageID:], int32(id))
}

func (h header) IsLeaf() bool { return h.PageType() == LeafPageType }
