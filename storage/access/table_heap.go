// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package access

import (
	"github.com/ryogrid/SamehadaDB/common"
	"github.com/ryogrid/SamehadaDB/recovery"
	"github.com/ryogrid/SamehadaDB/storage/buffer"
	"github.com/ryogrid/SamehadaDB/storage/page"
	"github.com/ryogrid/SamehadaDB/storage/table/schema"
	"github.com/ryogrid/SamehadaDB/storage/tuple"
	"github.com/ryogrid/SamehadaDB/types"
)

// TableHeap is a physical table on disk: a singly-linked chain of
// TablePages starting at firstPageId, each pointing at the next.
type TableHeap struct {
	bpm         *buffer.BufferPoolManager
	firstPageId types.PageID
	log_manager *recovery.LogManager
	lock_manager *LockManager
}

// NewTableHeap allocates and initializes the first page of a new table.
func NewTableHeap(bpm *buffer.BufferPoolManager, logManager *recovery.LogManager, lockManager *LockManager, txn *Transaction) *TableHeap {
	p := bpm.NewPage()

	firstPage := CastPageAsTablePage(p)
	firstPage.WLatch()
	firstPage.Init(p.ID(), types.InvalidPageID, logManager, lockManager, txn)
	firstPage.WUnlatch()
	// Flushed immediately so recovery's redo pass has a durable page to
	// fetch even if the buffer pool never evicts it before a crash.
	bpm.FlushPage(p.ID())
	bpm.UnpinPage(p.ID(), true)
	return &TableHeap{bpm, p.ID(), logManager, lockManager}
}

// InitTableHeap wraps an already-existing on-disk table (its first page id
// read back from the catalog) without creating anything.
func InitTableHeap(bpm *buffer.BufferPoolManager, pageId types.PageID, logManager *recovery.LogManager, lockManager *LockManager) *TableHeap {
	return &TableHeap{bpm, pageId, logManager, lockManager}
}

func (t *TableHeap) GetFirstPageId() types.PageID {
	return t.firstPageId
}

// InsertTuple walks the page chain from the first page looking for room;
// if every page is full it appends a new page and inserts there. The
// index entry, if any, is the caller's responsibility.
func (t *TableHeap) InsertTuple(tuple_ *tuple.Tuple, txn *Transaction, oid uint32) (rid *page.RID, err error) {
	if common.EnableDebug {
		common.ShPrintf(common.RDB_OP_FUNC_CALL, "TableHeap::InsertTuple called. txn.txn_id:%v tuple_:%v\n", txn.txn_id, *tuple_)
	}
	currentPage := CastPageAsTablePage(t.bpm.FetchPage(t.firstPageId))

	// INVARIANT: when this loop exits normally, currentPage's buffer-pool
	// pin is still held but its latch has already been released.
	for {
		currentPage.WLatch()
		rid, err = currentPage.InsertTuple(tuple_, t.log_manager, t.lock_manager, txn)
		if err == nil || err == ErrEmptyTuple {
			currentPage.WUnlatch()
			break
		}
		if rid == nil && err != nil && err != ErrEmptyTuple && err != ErrNotEnoughSpace {
			currentPage.WUnlatch()
			return nil, err
		}

		nextPageId := currentPage.GetNextPageId()
		if nextPageId.IsValid() {
			t.bpm.UnpinPage(currentPage.GetTablePageId(), false)
			currentPage.WUnlatch()
			currentPage = CastPageAsTablePage(t.bpm.FetchPage(nextPageId))
		} else {
			p := t.bpm.NewPage()
			currentPage.SetNextPageId(p.ID())
			currentPage.WUnlatch()
			newPage := CastPageAsTablePage(p)
			currentPage.RLatch()
			newPage.Init(p.ID(), currentPage.GetTablePageId(), t.log_manager, t.lock_manager, txn)
			t.bpm.FlushPage(newPage.ID())
			t.bpm.UnpinPage(currentPage.GetTablePageId(), true)
			currentPage.RUnlatch()
			currentPage = newPage
		}
	}

	t.bpm.UnpinPage(currentPage.GetTablePageId(), true)
	txn.AddIntoWriteSet(NewWriteRecord(*rid, INSERT, new(tuple.Tuple), t, oid))
	return rid, nil
}

// UpdateTuple replaces the tuple at rid. If the update no longer fits in
// its current page (updateColIdxs/tableSchema nil means whole-row replace;
// otherwise only the named columns change), the old value is deleted and
// the merged tuple is reinserted elsewhere, and the returned RID reflects
// its new location.
func (t *TableHeap) UpdateTuple(tuple_ *tuple.Tuple, updateColIdxs []int, tableSchema *schema.Schema, oid uint32, rid page.RID, txn *Transaction) (bool, *page.RID) {
	if common.EnableDebug {
		common.ShPrintf(common.RDB_OP_FUNC_CALL, "TableHeap::UpdateTuple called. txn.txn_id:%v update_col_idxs:%v rid:%v\n", txn.txn_id, updateColIdxs, rid)
	}
	pg := CastPageAsTablePage(t.bpm.FetchPage(rid.GetPageId()))
	if pg == nil {
		txn.SetState(ABORTED)
		return false, nil
	}
	oldTuple := new(tuple.Tuple)
	oldTuple.SetRID(new(page.RID))

	pg.WLatch()
	isUpdated, err, needFollowTuple := pg.UpdateTuple(tuple_, updateColIdxs, tableSchema, oldTuple, &rid, txn, t.lock_manager, t.log_manager)
	pg.WUnlatch()
	t.bpm.UnpinPage(pg.GetTablePageId(), isUpdated)

	var newRID *page.RID
	if !isUpdated && err == ErrNotEnoughSpace {
		if !t.MarkDelete(&rid, oid, txn) {
			common.ShPrintf(common.RDB_OP_FUNC_CALL, "TableHeap::UpdateTuple: MarkDelete of the outgrown tuple failed, rid:%v\n", rid)
			txn.SetState(ABORTED)
			return false, nil
		}

		var insertErr error
		newRID, insertErr = t.InsertTuple(needFollowTuple, txn, oid)
		if insertErr != nil {
			common.ShPrintf(common.RDB_OP_FUNC_CALL, "TableHeap::UpdateTuple: reinsert of the outgrown tuple failed, rid:%v err:%v\n", rid, insertErr)
			txn.SetState(ABORTED)
			return false, nil
		}
		isUpdated = true
	}

	if isUpdated && txn.GetState() != ABORTED {
		txn.AddIntoWriteSet(NewWriteRecord(rid, UPDATE, oldTuple, t, oid))
	}
	return isUpdated, newRID
}

func (t *TableHeap) MarkDelete(rid *page.RID, oid uint32, txn *Transaction) bool {
	if common.EnableDebug {
		common.ShPrintf(common.RDB_OP_FUNC_CALL, "TableHeap::MarkDelete called. txn.txn_id:%v rid:%v\n", txn.txn_id, *rid)
	}
	pg := CastPageAsTablePage(t.bpm.FetchPage(rid.GetPageId()))
	if pg == nil {
		txn.SetState(ABORTED)
		return false
	}
	pg.WLatch()
	isMarked := pg.MarkDelete(rid, txn, t.lock_manager, t.log_manager)
	pg.WUnlatch()
	t.bpm.UnpinPage(pg.GetTablePageId(), true)
	if isMarked {
		txn.AddIntoWriteSet(NewWriteRecord(*rid, DELETE, new(tuple.Tuple), t, oid))
	}
	return isMarked
}

func (t *TableHeap) ApplyDelete(rid *page.RID, txn *Transaction) {
	if common.EnableDebug {
		common.ShPrintf(common.RDB_OP_FUNC_CALL, "TableHeap::ApplyDelete called. txn.txn_id:%v rid:%v\n", txn.txn_id, *rid)
	}
	pg := CastPageAsTablePage(t.bpm.FetchPage(rid.GetPageId()))
	common.SH_Assert(pg != nil, "Couldn't find a page containing that RID.")
	pg.WLatch()
	pg.ApplyDelete(rid, txn, t.log_manager)
	pg.WUnlatch()
	t.bpm.UnpinPage(pg.GetTablePageId(), true)
}

func (t *TableHeap) RollbackDelete(rid *page.RID, txn *Transaction) {
	if common.EnableDebug {
		common.ShPrintf(common.RDB_OP_FUNC_CALL, "TableHeap::RollbackDelete called. txn.txn_id:%v rid:%v\n", txn.txn_id, *rid)
	}
	pg := CastPageAsTablePage(t.bpm.FetchPage(rid.GetPageId()))
	common.SH_Assert(pg != nil, "Couldn't find a page containing that RID.")
	pg.WLatch()
	pg.RollbackDelete(rid, txn, t.log_manager)
	pg.WUnlatch()
	t.bpm.UnpinPage(pg.GetTablePageId(), true)
}

// GetTuple reads a tuple from the table, taking a shared lock first if the
// caller doesn't already hold one.
func (t *TableHeap) GetTuple(rid *page.RID, txn *Transaction) *tuple.Tuple {
	if common.EnableDebug {
		common.ShPrintf(common.RDB_OP_FUNC_CALL, "TableHeap::GetTuple called. txn.txn_id:%v rid:%v\n", txn.txn_id, *rid)
	}
	if !txn.IsSharedLocked(rid) && !txn.IsExclusiveLocked(rid) && !t.lock_manager.LockShared(txn, rid) {
		txn.SetState(ABORTED)
		return nil
	}
	pg := CastPageAsTablePage(t.bpm.FetchPage(rid.GetPageId()))
	defer t.bpm.UnpinPage(pg.ID(), false)
	pg.RLatch()
	ret := pg.GetTuple(rid, t.log_manager, t.lock_manager, txn)
	pg.RUnlatch()
	return ret
}

// GetFirstTuple returns the table's first live tuple, walking forward
// through empty pages until one holds a non-deleted slot.
func (t *TableHeap) GetFirstTuple(txn *Transaction) *tuple.Tuple {
	var rid *page.RID
	pageId := t.firstPageId
	for pageId.IsValid() {
		pg := CastPageAsTablePage(t.bpm.FetchPage(pageId))
		pg.RLatch()
		rid = pg.GetTupleFirstRID()
		t.bpm.UnpinPage(pageId, false)
		if rid != nil {
			pg.RUnlatch()
			break
		}
		pageId = pg.GetNextPageId()
		pg.RUnlatch()
	}
	if rid == nil {
		return nil
	}
	return t.GetTuple(rid, txn)
}

// Iterator returns a forward iterator over every live tuple in the table.
func (t *TableHeap) Iterator(txn *Transaction) *TableHeapIterator {
	if common.EnableDebug {
		common.ShPrintf(common.RDB_OP_FUNC_CALL, "TableHeap::Iterator called. txn.txn_id:%v\n", txn.txn_id)
	}
	return NewTableHeapIterator(t, t.lock_manager, txn)
}

func (t *TableHeap) GetBufferPoolManager() *buffer.BufferPoolManager {
	return t.bpm
}
