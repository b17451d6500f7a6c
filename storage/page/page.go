package page

import (
	"github.com/ryogrid/SamehadaDB/common"
	"github.com/ryogrid/SamehadaDB/types"
)

// PageID is kept as an alias of types.PageID so callers can use either
// import path for the same identifier.
type PageID = types.PageID

const PageSize = 4096

// Page is a frame's in-memory view of one fixed-size disk page: the raw
// bytes plus the bookkeeping the buffer pool needs (id, pin count, dirty
// bit) and the LSN recovery needs to decide whether a log record has
// already been applied to this page's on-disk image.
type Page struct {
	id       PageID
	pinCount int
	isDirty  bool
	lsn      types.LSN
	data     *[PageSize]byte
	rwlatch  common.ReaderWriterLatch
}

// WLatch acquires the page's content latch for exclusive access. Distinct
// from the buffer pool's pin/unpin bookkeeping: a pin keeps a page
// resident in memory, a latch protects concurrent readers/writers of its
// bytes once fetched.
func (p *Page) WLatch() {
	p.rwlatch.WLock()
}

func (p *Page) WUnlatch() {
	p.rwlatch.WUnlock()
}

// RLatch acquires the page's content latch for shared access.
func (p *Page) RLatch() {
	p.rwlatch.RLock()
}

func (p *Page) RUnlatch() {
	p.rwlatch.RUnlock()
}

// IncPinCount increments pin count
func (p *Page) IncPinCount() {
	p.pinCount++
}

// DecPinCount decrements pin count
func (p *Page) DecPinCount() {
	if p.pinCount > 0 {
		p.pinCount--
	}
}

// PinCount returns the pin count
func (p *Page) PinCount() int {
	return p.pinCount
}

// ID returns the page id
func (p *Page) ID() PageID {
	return p.id
}

func (p *Page) SetID(id PageID) {
	p.id = id
}

func (p *Page) Data() *[PageSize]byte {
	return p.data
}

func (p *Page) SetIsDirty(isDirty bool) {
	p.isDirty = isDirty
}

func (p *Page) IsDirty() bool {
	return p.isDirty
}

// LSN returns the log-sequence number last stamped into this page.
func (p *Page) LSN() types.LSN {
	return p.lsn
}

func (p *Page) SetLSN(lsn types.LSN) {
	p.lsn = lsn
}

// Copy writes data into the page's byte array starting at offset.
func (p *Page) Copy(offset uint32, data []byte) {
	copy(p.data[offset:], data)
}

// ResetMemory zeroes the page contents in place, keeping the same backing
// array (so existing pointers to Data() observe the reset).
func (p *Page) ResetMemory() {
	for i := range p.data {
		p.data[i] = 0
	}
}

func New(id PageID, pinCount int, isDirty bool, data *[PageSize]byte) *Page {
	return &Page{id: id, pinCount: pinCount, isDirty: isDirty, data: data, rwlatch: common.NewRWLatch()}
}

func NewEmpty(id PageID) *Page {
	return &Page{id: id, pinCount: 1, isDirty: false, data: &[PageSize]byte{}, rwlatch: common.NewRWLatch()}
}
