package page

import "github.com/ryogrid/SamehadaDB/types"

// RID is the record identifier for the given page identifier and slot number
type RID struct {
	pageId  types.PageID
	slotNum uint32
}

func NewRID(pageId types.PageID, slot uint32) *RID {
	return &RID{pageId, slot}
}

// Set sets the record identifier
func (r *RID) Set(pageId types.PageID, slot uint32) {
	r.pageId = pageId
	r.slotNum = slot
}

// GetPageId gets the page id
func (r *RID) GetPageId() types.PageID {
	return r.pageId
}

// GetSlotNum gets the slot number
func (r *RID) GetSlotNum() uint32 {
	return r.slotNum
}

func (r RID) Equals(other RID) bool {
	return r.pageId == other.pageId && r.slotNum == other.slotNum
}

// Serialize writes the RID in the 8-byte wire format used by log records:
// int32 page_id | int32 slot.
func (r RID) Serialize() []byte {
	buf := make([]byte, 8)
	putInt32(buf[0:4], int32(r.pageId))
	putInt32(buf[4:8], int32(r.slotNum))
	return buf
}

func NewRIDFromBytes(data []byte) RID {
	return RID{
		pageId:  types.PageID(getInt32(data[0:4])),
		slotNum: uint32(getInt32(data[4:8])),
	}
}

func putInt32(dst []byte, v int32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}

func getInt32(src []byte) int32 {
	return int32(src[0]) | int32(src[1])<<8 | int32(src[2])<<16 | int32(src[3])<<24
}
