// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package buffer

import (
	stderrors "errors"

	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/ryogrid/SamehadaDB/common"
	"github.com/ryogrid/SamehadaDB/recovery"
	"github.com/ryogrid/SamehadaDB/storage/disk"
	"github.com/ryogrid/SamehadaDB/storage/page"
	"github.com/ryogrid/SamehadaDB/types"
)

// BufferPoolManager is a fixed-capacity cache of fixed-size pages with
// pinning and dirty tracking. It enforces the write-ahead-log invariant: a
// dirty page never leaves the pool (via eviction or an explicit flush)
// before every log record describing it is durable.
type BufferPoolManager struct {
	mu deadlock.Mutex

	diskManager disk.DiskManager
	logManager  *recovery.LogManager

	pages     []*page.Page
	replacer  *LRUReplacer
	freeList  []FrameID
	pageTable map[types.PageID]FrameID

	// deallocatedPageIds holds page ids freed by DeletePage, available for
	// reuse by a later NewPage instead of growing the data file forever.
	deallocatedPageIds []types.PageID
}

// NewBufferPoolManager returns an empty buffer pool manager backed by
// diskManager, enforcing the WAL invariant through logManager. logManager
// may be nil for callers that do not need durability (e.g. some tests).
func NewBufferPoolManager(poolSize uint32, diskManager disk.DiskManager, logManager *recovery.LogManager) *BufferPoolManager {
	freeList := make([]FrameID, poolSize)
	pages := make([]*page.Page, poolSize)
	for i := uint32(0); i < poolSize; i++ {
		freeList[i] = FrameID(i)
	}

	return &BufferPoolManager{
		diskManager: diskManager,
		logManager:  logManager,
		pages:       pages,
		replacer:    NewLRUReplacer(poolSize),
		freeList:    freeList,
		pageTable:   make(map[types.PageID]FrameID),
	}
}

// forceFlushUpTo enforces the WAL invariant before a dirty page's bytes hit
// disk: every log record up to the page's stamped LSN must be durable
// first.
func (b *BufferPoolManager) forceFlushUpTo(lsn types.LSN) {
	if b.logManager != nil && lsn != types.InvalidLSN {
		b.logManager.Flush(lsn)
	}
}

func (b *BufferPoolManager) writeBackLocked(pg *page.Page) {
	if !pg.IsDirty() {
		return
	}
	b.forceFlushUpTo(pg.LSN())
	data := pg.Data()
	b.diskManager.WritePage(pg.ID(), data[:])
	pg.SetIsDirty(false)
}

// FetchPage returns the frame holding pageID, pinning it. It reads through
// to disk on a miss, evicting a victim (free list first, then the
// replacer) if the pool is full. Returns nil when the disk read fails or when every frame is
// pinned.
func (b *BufferPoolManager) FetchPage(pageID types.PageID) *page.Page {
	b.mu.Lock()
	defer b.mu.Unlock()

	if frameID, ok := b.pageTable[pageID]; ok {
		pg := b.pages[frameID]
		pg.IncPinCount()
		b.replacer.Pin(frameID)
		return pg
	}

	frameID, ok := b.getFrameIDLocked()
	if !ok {
		return nil
	}

	data := make([]byte, common.PageSize)
	if err := b.diskManager.ReadPage(pageID, data); err != nil {
		b.freeList = append(b.freeList, frameID)
		return nil
	}
	var pageData [common.PageSize]byte
	copy(pageData[:], data)

	pg := page.New(pageID, 1, false, &pageData)
	b.pageTable[pageID] = frameID
	b.pages[frameID] = pg
	return pg
}

// NewPage allocates a fresh page id, pins its frame and returns it zeroed.
func (b *BufferPoolManager) NewPage() *page.Page {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameID, ok := b.getFrameIDLocked()
	if !ok {
		return nil
	}

	var pageID types.PageID
	if n := len(b.deallocatedPageIds); n > 0 {
		pageID, b.deallocatedPageIds = b.deallocatedPageIds[n-1], b.deallocatedPageIds[:n-1]
	} else {
		pageID = b.diskManager.AllocatePage()
	}

	pg := page.NewEmpty(pageID)
	b.pageTable[pageID] = frameID
	b.pages[frameID] = pg
	return pg
}

// NewPageAt pins pageID's frame and returns it zeroed, without allocating a
// fresh id from the disk manager. Used by recovery redo, where a NEWPAGE log
// record already fixes the id the crashed transaction was given; recreating
// the page under a newly allocated id would desynchronize it from every
// later record that addresses the page by that original id. Returns the
// already-resident page pinned again if pageID is already in the pool.
func (b *BufferPoolManager) NewPageAt(pageID types.PageID) *page.Page {
	b.mu.Lock()
	defer b.mu.Unlock()

	if frameID, ok := b.pageTable[pageID]; ok {
		pg := b.pages[frameID]
		pg.IncPinCount()
		b.replacer.Pin(frameID)
		return pg
	}

	frameID, ok := b.getFrameIDLocked()
	if !ok {
		return nil
	}

	pg := page.NewEmpty(pageID)
	b.pageTable[pageID] = frameID
	b.pages[frameID] = pg
	return pg
}

// getFrameIDLocked returns a frame to reuse: the free list first, then a
// victim from the replacer, writing back its contents if dirty (honoring
// the WAL invariant) and removing its page-table entry.
func (b *BufferPoolManager) getFrameIDLocked() (FrameID, bool) {
	if n := len(b.freeList); n > 0 {
		frameID := b.freeList[0]
		b.freeList = b.freeList[1:]
		return frameID, true
	}

	frameID, ok := b.replacer.Victim()
	if !ok {
		return 0, false
	}
	if currentPage := b.pages[frameID]; currentPage != nil {
		b.writeBackLocked(currentPage)
		delete(b.pageTable, currentPage.ID())
	}
	return frameID, true
}

// UnpinPage decrements the pin count of a resident page and, if it drops
// to zero, offers the frame to the replacer.
func (b *BufferPoolManager) UnpinPage(pageID types.PageID, isDirty bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameID, ok := b.pageTable[pageID]
	if !ok {
		return stderrors.New("could not find page")
	}
	pg := b.pages[frameID]
	if pg.PinCount() <= 0 {
		return stderrors.New("pin count already zero")
	}

	pg.DecPinCount()
	if isDirty {
		pg.SetIsDirty(true)
	}
	if pg.PinCount() == 0 {
		b.replacer.Unpin(frameID)
	}
	return nil
}

// FlushPage writes the resident page's data to disk regardless of pin
// count. Idempotent, and a no-op for InvalidPageID.
func (b *BufferPoolManager) FlushPage(pageID types.PageID) bool {
	if pageID == types.InvalidPageID {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	frameID, ok := b.pageTable[pageID]
	if !ok {
		return false
	}
	pg := b.pages[frameID]
	b.forceFlushUpTo(pg.LSN())
	data := pg.Data()
	b.diskManager.WritePage(pageID, data[:])
	pg.SetIsDirty(false)
	return true
}

// FlushAllPages flushes every resident page.
func (b *BufferPoolManager) FlushAllPages() {
	b.mu.Lock()
	pageIDs := make([]types.PageID, 0, len(b.pageTable))
	for pageID := range b.pageTable {
		pageIDs = append(pageIDs, pageID)
	}
	b.mu.Unlock()

	for _, pageID := range pageIDs {
		b.FlushPage(pageID)
	}
}

// DeletePage deallocates pageID on disk (its id becomes reusable) and
// returns its frame to the free list, if resident and unpinned. Fails
// without deallocating if the page is currently pinned.
func (b *BufferPoolManager) DeletePage(pageID types.PageID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameID, ok := b.pageTable[pageID]
	if !ok {
		b.diskManager.DeallocatePage(pageID)
		b.deallocatedPageIds = append(b.deallocatedPageIds, pageID)
		return nil
	}

	pg := b.pages[frameID]
	if pg.PinCount() > 0 {
		return stderrors.New("pin count greater than 0")
	}

	delete(b.pageTable, pageID)
	b.replacer.Pin(frameID)
	b.pages[frameID] = nil
	b.diskManager.DeallocatePage(pageID)
	b.deallocatedPageIds = append(b.deallocatedPageIds, pageID)
	b.freeList = append(b.freeList, frameID)
	return nil
}
