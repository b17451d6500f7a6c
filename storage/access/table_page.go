// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package access

import (
	"unsafe"

	"github.com/ryogrid/SamehadaDB/storage/table/schema"

	"github.com/ryogrid/SamehadaDB/common"
	"github.com/ryogrid/SamehadaDB/errors"
	"github.com/ryogrid/SamehadaDB/recovery"
	"github.com/ryogrid/SamehadaDB/storage/page"
	"github.com/ryogrid/SamehadaDB/storage/tuple"
	"github.com/ryogrid/SamehadaDB/types"
)

const deleteMask = uint32(1 << ((8 * 4) - 1))

const sizeTablePageHeader = uint32(24)
const sizeTuple = uint32(8)
const offSetPrevPageId = uint32(8)
const offSetNextPageId = uint32(12)
const offsetFreeSpace = uint32(16)
const offSetTupleCount = uint32(20)
const offsetTupleOffset = uint32(24)
const offsetTupleSize = uint32(28)

const ErrEmptyTuple = errors.Error("tuple cannot be empty")
const ErrNotEnoughSpace = errors.Error("there is not enough space")
const ErrNoFreeSlot = errors.Error("could not find a free slot")

// TablePage is a slotted page: a fixed header, a tuple-slot directory that
// grows downward from the header, and tuple bytes packed upward from the
// end of the page toward the free-space pointer.
//
//	---------------------------------------------------------
//	| HEADER | ... FREE SPACE ... | ... INSERTED TUPLES ... |
//	---------------------------------------------------------
//	                              ^
//	                              free space pointer
//	Header format (size in bytes):
//	----------------------------------------------------------------------------
//	| PageId (4)| LSN (4)| PrevPageId (4)| NextPageId (4)| FreeSpacePointer(4) |
//	----------------------------------------------------------------------------
//	----------------------------------------------------------------
//	| TupleCount (4) | Tuple_1 offset (4) | Tuple_1 size (4) | ... |
//	----------------------------------------------------------------
type TablePage struct {
	page.Page
}

// CastPageAsTablePage reinterprets a raw buffer-pool page as a TablePage.
func CastPageAsTablePage(pg *page.Page) *TablePage {
	if pg == nil {
		return nil
	}
	return (*TablePage)(unsafe.Pointer(pg))
}

// InsertTuple appends tuple into the first free slot (reusing a deleted
// slot's index when one exists), taking an exclusive lock on the new RID
// and appending an INSERT log record when logging is enabled.
func (tp *TablePage) InsertTuple(t *tuple.Tuple, logManager *recovery.LogManager, lockManager *LockManager, txn *Transaction) (*page.RID, error) {
	if common.EnableDebug {
		common.ShPrintf(common.RDB_OP_FUNC_CALL, "TablePage::InsertTuple called. txn.txn_id:%v tuple:%v\n", txn.txn_id, *t)
	}
	if t.Size() == 0 {
		return nil, ErrEmptyTuple
	}

	if tp.getFreeSpaceRemaining() < t.Size()+sizeTuple {
		return nil, ErrNotEnoughSpace
	}

	var slot uint32
	for slot = uint32(0); slot < tp.GetTupleCount(); slot++ {
		if tp.GetTupleSize(slot) == 0 {
			break
		}
	}

	if tp.GetTupleCount() == slot && t.Size()+sizeTuple > tp.getFreeSpaceRemaining() {
		return nil, ErrNoFreeSlot
	}

	rid := &page.RID{}
	rid.Set(tp.GetTablePageId(), slot)

	if logManager.IsEnabledLogging() {
		if !lockManager.LockExclusive(txn, rid) {
			txn.SetState(ABORTED)
			return nil, errors.Error("could not acquire an exclusive lock on the new tuple")
		}
	}

	t.SetRID(rid)

	tp.SetFreeSpacePointer(tp.GetFreeSpacePointer() - t.Size())
	tp.setTuple(slot, t)

	if slot == tp.GetTupleCount() {
		tp.SetTupleCount(tp.GetTupleCount() + 1)
	}

	if logManager.IsEnabledLogging() {
		logRecord := recovery.NewLogRecordInsertDelete(txn.GetTransactionId(), txn.GetPrevLSN(), recovery.INSERT, *rid, t)
		lsn := logManager.AppendLogRecord(logRecord)
		tp.Page.SetLSN(lsn)
		txn.SetPrevLSN(lsn)
	}
	return rid, nil
}

// UpdateTuple replaces the tuple at rid with newTuple. If updateColIdxs and
// tableSchema are both nil the whole tuple is replaced; otherwise only the
// named columns change and the rest are carried over from the tuple stored
// at rid, which is copied into oldTuple. newTuple must still be laid out
// with the full table schema (columns not being updated may hold any value).
// Returns a non-nil follow-up tuple and ErrNotEnoughSpace when the update no
// longer fits in place, leaving the caller to delete-and-reinsert it
// elsewhere.
func (tp *TablePage) UpdateTuple(newTuple *tuple.Tuple, updateColIdxs []int, tableSchema *schema.Schema, oldTuple *tuple.Tuple, rid *page.RID, txn *Transaction,
	lockManager *LockManager, logManager *recovery.LogManager) (bool, error, *tuple.Tuple) {
	if common.EnableDebug {
		common.ShPrintf(common.RDB_OP_FUNC_CALL, "TablePage::UpdateTuple called. txn.txn_id:%v new_tuple:%v update_col_idxs:%v rid:%v\n", txn.txn_id, *newTuple, updateColIdxs, *rid)
	}
	common.SH_Assert(newTuple.Size() > 0, "Cannot have empty tuples.")

	slotNum := rid.GetSlotNum()
	if slotNum >= tp.GetTupleCount() {
		if logManager.IsEnabledLogging() {
			txn.SetState(ABORTED)
		}
		return false, nil, nil
	}
	tupleSize := tp.GetTupleSize(slotNum)
	if IsDeleted(tupleSize) {
		if logManager.IsEnabledLogging() {
			txn.SetState(ABORTED)
		}
		return false, nil, nil
	}

	// Copy out the old value for the log record and for column carry-over.
	tupleOffset := tp.GetTupleOffsetAtSlot(slotNum)
	oldTuple.SetSize(tupleSize)
	oldTupleData := make([]byte, oldTuple.Size())
	copy(oldTupleData, tp.Data()[tupleOffset:tupleOffset+oldTuple.Size()])
	oldTuple.SetData(oldTupleData)
	oldTuple.SetRID(rid)

	var updateTuple *tuple.Tuple
	if updateColIdxs == nil || tableSchema == nil {
		updateTuple = newTuple
	} else {
		updateValues := make([]types.Value, 0, len(tableSchema.GetColumns()))
		matchedCnt := 0
		for idx := range tableSchema.GetColumns() {
			if matchedCnt < len(updateColIdxs) && idx == updateColIdxs[matchedCnt] {
				updateValues = append(updateValues, newTuple.GetValue(tableSchema, uint32(idx)))
				matchedCnt++
			} else {
				updateValues = append(updateValues, oldTuple.GetValue(tableSchema, uint32(idx)))
			}
		}
		updateTuple = tuple.NewTupleFromSchema(updateValues, tableSchema)
	}

	if tp.getFreeSpaceRemaining()+tupleSize < updateTuple.Size() {
		return false, ErrNotEnoughSpace, updateTuple
	}

	if logManager.IsEnabledLogging() {
		if txn.IsSharedLocked(rid) {
			if !lockManager.LockUpgrade(txn, rid) {
				txn.SetState(ABORTED)
				return false, nil, nil
			}
		} else if !txn.IsExclusiveLocked(rid) && !lockManager.LockExclusive(txn, rid) {
			txn.SetState(ABORTED)
			return false, nil, nil
		}
		logRecord := recovery.NewLogRecordUpdate(txn.GetTransactionId(), txn.GetPrevLSN(), recovery.UPDATE, *rid, *oldTuple, *updateTuple)
		lsn := logManager.AppendLogRecord(logRecord)
		tp.SetLSN(lsn)
		txn.SetPrevLSN(lsn)
	}

	freeSpacePointer := tp.GetFreeSpacePointer()
	common.SH_Assert(tupleOffset >= freeSpacePointer, "Offset should appear after current free space position.")

	copy(tp.Data()[freeSpacePointer+tupleSize-updateTuple.Size():], tp.Data()[freeSpacePointer:tupleOffset])
	tp.SetFreeSpacePointer(freeSpacePointer + tupleSize - updateTuple.Size())
	copy(tp.Data()[tupleOffset+tupleSize-updateTuple.Size():], updateTuple.Data()[:updateTuple.Size()])
	tp.SetTupleSize(slotNum, updateTuple.Size())

	tupleCnt := int(tp.GetTupleCount())
	for ii := 0; ii < tupleCnt; ii++ {
		tupleOffsetI := tp.GetTupleOffsetAtSlot(uint32(ii))
		if tp.GetTupleSize(uint32(ii)) > 0 && tupleOffsetI < tupleOffset+tupleSize {
			tp.SetTupleOffsetAtSlot(uint32(ii), tupleOffsetI+tupleSize-updateTuple.Size())
		}
	}
	return true, nil, nil
}

// MarkDelete flags the tuple at rid as deleted without reclaiming its
// slot/space; ApplyDelete (on commit) or RollbackDelete (on abort) finish
// the operation.
func (tp *TablePage) MarkDelete(rid *page.RID, txn *Transaction, lockManager *LockManager, logManager *recovery.LogManager) bool {
	if common.EnableDebug {
		common.ShPrintf(common.RDB_OP_FUNC_CALL, "TablePage::MarkDelete called. txn.txn_id:%v rid:%v\n", txn.txn_id, *rid)
	}
	slotNum := rid.GetSlotNum()
	if slotNum >= tp.GetTupleCount() {
		if logManager.IsEnabledLogging() {
			txn.SetState(ABORTED)
		}
		return false
	}

	tupleSize := tp.GetTupleSize(slotNum)
	if IsDeleted(tupleSize) {
		if logManager.IsEnabledLogging() {
			txn.SetState(ABORTED)
		}
		return false
	}

	if logManager.IsEnabledLogging() {
		if txn.IsSharedLocked(rid) {
			if !lockManager.LockUpgrade(txn, rid) {
				txn.SetState(ABORTED)
				return false
			}
		} else if !txn.IsExclusiveLocked(rid) && !lockManager.LockExclusive(txn, rid) {
			txn.SetState(ABORTED)
			return false
		}
		dummyTuple := new(tuple.Tuple)
		logRecord := recovery.NewLogRecordInsertDelete(txn.GetTransactionId(), txn.GetPrevLSN(), recovery.MARKDELETE, *rid, dummyTuple)
		lsn := logManager.AppendLogRecord(logRecord)
		tp.SetLSN(lsn)
		txn.SetPrevLSN(lsn)
	}

	if tupleSize > 0 {
		tp.SetTupleSize(slotNum, SetDeletedFlag(tupleSize))
	}
	return true
}

// ApplyDelete commits a MarkDelete (or reverts an INSERT during undo),
// compacting the slot's tuple bytes out of the page and shifting every
// tuple offset that pointed after it.
func (tp *TablePage) ApplyDelete(rid *page.RID, txn *Transaction, logManager *recovery.LogManager) {
	if common.EnableDebug {
		common.ShPrintf(common.RDB_OP_FUNC_CALL, "TablePage::ApplyDelete called. txn.txn_id:%v rid:%v\n", txn.txn_id, *rid)
	}
	slotNum := rid.GetSlotNum()
	common.SH_Assert(slotNum < tp.GetTupleCount(), "Cannot have more slots than tuples.")

	tupleOffset := tp.GetTupleOffsetAtSlot(slotNum)
	tupleSize := tp.GetTupleSize(slotNum)
	if IsDeleted(tupleSize) {
		tupleSize = UnsetDeletedFlag(tupleSize)
	}

	// Copy out the deleted tuple's bytes for the log record's undo payload.
	deleteTuple := new(tuple.Tuple)
	deleteTuple.SetSize(tupleSize)
	deleteTuple.SetData(make([]byte, deleteTuple.Size()))
	copy(deleteTuple.Data(), tp.Data()[tupleOffset:tupleOffset+deleteTuple.Size()])
	deleteTuple.SetRID(rid)

	if logManager.IsEnabledLogging() {
		common.SH_Assert(txn.IsExclusiveLocked(rid), "We must own the exclusive lock!")
		logRecord := recovery.NewLogRecordInsertDelete(txn.GetTransactionId(), txn.GetPrevLSN(), recovery.APPLYDELETE, *rid, deleteTuple)
		lsn := logManager.AppendLogRecord(logRecord)
		tp.SetLSN(lsn)
		txn.SetPrevLSN(lsn)
	}

	freeSpacePointer := tp.GetFreeSpacePointer()
	common.SH_Assert(tupleOffset >= freeSpacePointer, "Free space appears before tuples.")

	copy(tp.Data()[freeSpacePointer+tupleSize:], tp.Data()[freeSpacePointer:tupleOffset])
	tp.SetFreeSpacePointer(freeSpacePointer + tupleSize)
	tp.SetTupleSize(slotNum, 0)
	tp.SetTupleOffsetAtSlot(slotNum, 0)

	tupleCount := int(tp.GetTupleCount())
	for ii := 0; ii < tupleCount; ii++ {
		tupleOffsetII := tp.GetTupleOffsetAtSlot(uint32(ii))
		if tp.GetTupleSize(uint32(ii)) != 0 && tupleOffsetII < tupleOffset {
			tp.SetTupleOffsetAtSlot(uint32(ii), tupleOffsetII+tupleSize)
		}
	}
}

// RollbackDelete undoes a MarkDelete: clears the deleted flag so the slot
// is visible again.
func (tp *TablePage) RollbackDelete(rid *page.RID, txn *Transaction, logManager *recovery.LogManager) {
	if common.EnableDebug {
		common.ShPrintf(common.RDB_OP_FUNC_CALL, "TablePage::RollbackDelete called. txn.txn_id:%v rid:%v\n", txn.txn_id, *rid)
	}
	if logManager.IsEnabledLogging() {
		common.SH_Assert(txn.IsExclusiveLocked(rid), "We must own an exclusive lock on the RID.")
		dummyTuple := new(tuple.Tuple)
		logRecord := recovery.NewLogRecordInsertDelete(txn.GetTransactionId(), txn.GetPrevLSN(), recovery.ROLLBACKDELETE, *rid, dummyTuple)
		lsn := logManager.AppendLogRecord(logRecord)
		tp.SetLSN(lsn)
		txn.SetPrevLSN(lsn)
	}

	slotNum := rid.GetSlotNum()
	common.SH_Assert(slotNum < tp.GetTupleCount(), "We can't have more slots than tuples.")
	tupleSize := tp.GetTupleSize(slotNum)

	if IsDeleted(tupleSize) {
		tp.SetTupleSize(slotNum, UnsetDeletedFlag(tupleSize))
	}
}

// Init resets the page header for reuse as a fresh table page, appending a
// NEWPAGE log record first so redo can recreate this exact header layout.
func (tp *TablePage) Init(pageId types.PageID, prevPageId types.PageID, logManager *recovery.LogManager, lockManager *LockManager, txn *Transaction) {
	if logManager.IsEnabledLogging() {
		logRecord := recovery.NewLogRecordNewPage(txn.GetTransactionId(), txn.GetPrevLSN(), recovery.NEWPAGE, prevPageId)
		logRecord.Page_id = pageId
		lsn := logManager.AppendLogRecord(logRecord)
		tp.Page.SetLSN(lsn)
		txn.SetPrevLSN(lsn)
	}
	tp.SetPageId(pageId)
	tp.SetPrevPageId(prevPageId)
	tp.SetNextPageId(types.InvalidPageID)
	tp.SetTupleCount(0)
	tp.SetFreeSpacePointer(common.PageSize)
}

func (tp *TablePage) SetPageId(pageId types.PageID) {
	tp.Copy(0, pageId.Serialize())
}

func (tp *TablePage) SetPrevPageId(pageId types.PageID) {
	tp.Copy(offSetPrevPageId, pageId.Serialize())
}

func (tp *TablePage) SetNextPageId(pageId types.PageID) {
	tp.Copy(offSetNextPageId, pageId.Serialize())
}

func (tp *TablePage) SetFreeSpacePointer(freeSpacePointer uint32) {
	tp.Copy(offsetFreeSpace, types.UInt32(freeSpacePointer).Serialize())
}

func (tp *TablePage) SetTupleCount(tupleCount uint32) {
	tp.Copy(offSetTupleCount, types.UInt32(tupleCount).Serialize())
}

func (tp *TablePage) setTuple(slot uint32, t *tuple.Tuple) {
	fsp := tp.GetFreeSpacePointer()
	tp.Copy(fsp, t.Data())
	tp.Copy(offsetTupleOffset+sizeTuple*slot, types.UInt32(fsp).Serialize())
	tp.Copy(offsetTupleSize+sizeTuple*slot, types.UInt32(t.Size()).Serialize())
}

func (tp *TablePage) GetTablePageId() types.PageID {
	return types.NewPageIDFromBytes(tp.Data()[:])
}

func (tp *TablePage) GetNextPageId() types.PageID {
	return types.NewPageIDFromBytes(tp.Data()[offSetNextPageId:])
}

func (tp *TablePage) GetTupleCount() uint32 {
	return uint32(types.NewUInt32FromBytes(tp.Data()[offSetTupleCount:]))
}

func (tp *TablePage) GetTupleOffsetAtSlot(slotNum uint32) uint32 {
	return uint32(types.NewUInt32FromBytes(tp.Data()[offsetTupleOffset+sizeTuple*slotNum:]))
}

func (tp *TablePage) SetTupleOffsetAtSlot(slotNum uint32, offset uint32) {
	copy(tp.Data()[offsetTupleOffset+sizeTuple*slotNum:], types.UInt32(offset).Serialize())
}

func (tp *TablePage) GetTupleSize(slotNum uint32) uint32 {
	return uint32(types.NewUInt32FromBytes(tp.Data()[offsetTupleSize+sizeTuple*slotNum:]))
}

func (tp *TablePage) SetTupleSize(slotNum uint32, size uint32) {
	copy(tp.Data()[offsetTupleSize+sizeTuple*slotNum:], types.UInt32(size).Serialize())
}

func (tp *TablePage) getFreeSpaceRemaining() uint32 {
	return tp.GetFreeSpacePointer() - sizeTablePageHeader - sizeTuple*tp.GetTupleCount()
}

func (tp *TablePage) GetFreeSpacePointer() uint32 {
	return uint32(types.NewUInt32FromBytes(tp.Data()[offsetFreeSpace:]))
}

// GetTuple reads the tuple at rid. When logging is enabled it first takes
// a shared lock if the caller doesn't already hold a shared or exclusive one.
func (tp *TablePage) GetTuple(rid *page.RID, logManager *recovery.LogManager, lockManager *LockManager, txn *Transaction) *tuple.Tuple {
	if rid.GetSlotNum() >= tp.GetTupleCount() {
		if logManager.IsEnabledLogging() {
			txn.SetState(ABORTED)
		}
		return nil
	}

	slot := rid.GetSlotNum()
	tupleOffset := tp.GetTupleOffsetAtSlot(slot)
	tupleSize := tp.GetTupleSize(slot)

	if IsDeleted(tupleSize) {
		if logManager.IsEnabledLogging() {
			txn.SetState(ABORTED)
		}
		return nil
	}

	if logManager.IsEnabledLogging() {
		if !txn.IsSharedLocked(rid) && !txn.IsExclusiveLocked(rid) && !lockManager.LockShared(txn, rid) {
			txn.SetState(ABORTED)
			return nil
		}
	}

	tupleData := make([]byte, tupleSize)
	copy(tupleData, tp.Data()[tupleOffset:])

	return tuple.NewTuple(rid, tupleSize, tupleData)
}

// GetTupleFirstRID returns the RID of the first non-deleted tuple on the
// page, or nil if it holds none.
func (tp *TablePage) GetTupleFirstRID() *page.RID {
	firstRID := &page.RID{}
	tupleCount := tp.GetTupleCount()
	for ii := uint32(0); ii < tupleCount; ii++ {
		if !IsDeleted(tp.GetTupleSize(ii)) {
			firstRID.Set(tp.GetTablePageId(), ii)
			return firstRID
		}
	}
	return nil
}

// GetNextTupleRID returns the RID of the next non-deleted tuple after
// curRID. isNextPage indicates curRID belongs to a different page (the
// scan just crossed a page boundary), so this page's whole slot directory
// is scanned from slot 0 instead of curRID.GetSlotNum()+1.
func (tp *TablePage) GetNextTupleRID(curRID *page.RID, isNextPage bool) *page.RID {
	nextRID := &page.RID{}
	tupleCount := tp.GetTupleCount()
	var initVal uint32 = 0
	if !isNextPage {
		initVal = curRID.GetSlotNum() + 1
	}
	for ii := initVal; ii < tupleCount; ii++ {
		if !IsDeleted(tp.GetTupleSize(ii)) {
			nextRID.Set(tp.GetTablePageId(), ii)
			return nextRID
		}
	}
	return nil
}

func IsDeleted(tupleSize uint32) bool {
	return tupleSize&deleteMask == deleteMask || tupleSize == 0
}

func SetDeletedFlag(tupleSize uint32) uint32 {
	return tupleSize | deleteMask
}

func UnsetDeletedFlag(tupleSize uint32) uint32 {
	return tupleSize &^ deleteMask
}
