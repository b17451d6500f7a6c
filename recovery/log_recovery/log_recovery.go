package log_recovery

import (
	"github.com/ryogrid/SamehadaDB/storage/page"

	"github.com/ryogrid/SamehadaDB/common"
	"github.com/ryogrid/SamehadaDB/recovery"
	"github.com/ryogrid/SamehadaDB/storage/access"
	"github.com/ryogrid/SamehadaDB/storage/buffer"
	"github.com/ryogrid/SamehadaDB/storage/disk"
	"github.com/ryogrid/SamehadaDB/types"
)

// LogRecovery replays the write-ahead log against the buffer pool: a redo
// pass reapplies every logged operation whose page is stale, then an undo
// pass rolls back whatever transaction never reached a COMMIT record.
type LogRecovery struct {
	disk_manager        disk.DiskManager
	buffer_pool_manager *buffer.BufferPoolManager
	log_manager         *recovery.LogManager

	// active_txn tracks, for each transaction seen so far, the LSN of its
	// most recent log record. A transaction still present here once the
	// whole log has been scanned never committed and must be undone.
	active_txn map[types.TxnID]types.LSN
	// lsn_mapping locates, for undo, the file offset a given LSN's record
	// starts at.
	lsn_mapping map[types.LSN]int64

	log_buffer []byte
}

func NewLogRecovery(disk_manager disk.DiskManager, buffer_pool_manager *buffer.BufferPoolManager, log_manager *recovery.LogManager) *LogRecovery {
	return &LogRecovery{
		disk_manager:        disk_manager,
		buffer_pool_manager: buffer_pool_manager,
		log_manager:         log_manager,
		active_txn:          make(map[types.TxnID]types.LSN),
		lsn_mapping:         make(map[types.LSN]int64),
		log_buffer:          make([]byte, common.LogBufferSize),
	}
}

// Redo scans the log from the beginning, reapplying every record whose
// target page's LSN is older than the record's LSN, and rebuilds
// active_txn/lsn_mapping for the subsequent Undo pass. Returns the largest
// LSN seen and whether any redo actually occurred.
func (lr *LogRecovery) Redo(txn *access.Transaction) (types.LSN, bool) {
	greatestLSN := types.InvalidLSN
	isRedoOccurred := false

	var fileOffset int64 = 0
	for lr.disk_manager.ReadLog(lr.log_buffer, int32(fileOffset)) {
		var bufferOffset uint32 = 0
		for {
			record, ok := recovery.DeserializeLogRecord(lr.log_buffer[bufferOffset:])
			if !ok {
				break
			}

			if record.GetLSN() > greatestLSN {
				greatestLSN = record.GetLSN()
			}
			lr.active_txn[record.GetTxnId()] = record.GetLSN()
			lr.lsn_mapping[record.GetLSN()] = fileOffset + int64(bufferOffset)

			switch record.GetLogRecordType() {
			case recovery.INSERT:
				rid := record.GetInsertRID()
				page_ := access.CastPageAsTablePage(lr.buffer_pool_manager.FetchPage(rid.GetPageId()))
				if page_.LSN() < record.GetLSN() {
					insertedTuple := record.GetInsertedTuple()
					insertedTuple.SetRID(&rid)
					page_.InsertTuple(&insertedTuple, lr.log_manager, nil, txn)
					page_.SetLSN(record.GetLSN())
					isRedoOccurred = true
				}
				lr.buffer_pool_manager.UnpinPage(rid.GetPageId(), true)
			case recovery.APPLYDELETE:
				rid := record.GetDeleteRID()
				page_ := access.CastPageAsTablePage(lr.buffer_pool_manager.FetchPage(rid.GetPageId()))
				if page_.LSN() < record.GetLSN() {
					page_.ApplyDelete(&rid, txn, lr.log_manager)
					page_.SetLSN(record.GetLSN())
					isRedoOccurred = true
				}
				lr.buffer_pool_manager.UnpinPage(rid.GetPageId(), true)
			case recovery.MARKDELETE:
				rid := record.GetDeleteRID()
				page_ := access.CastPageAsTablePage(lr.buffer_pool_manager.FetchPage(rid.GetPageId()))
				if page_.LSN() < record.GetLSN() {
					page_.MarkDelete(&rid, txn, nil, lr.log_manager)
					page_.SetLSN(record.GetLSN())
					isRedoOccurred = true
				}
				lr.buffer_pool_manager.UnpinPage(rid.GetPageId(), true)
			case recovery.ROLLBACKDELETE:
				rid := record.GetDeleteRID()
				page_ := access.CastPageAsTablePage(lr.buffer_pool_manager.FetchPage(rid.GetPageId()))
				if page_.LSN() < record.GetLSN() {
					page_.RollbackDelete(&rid, txn, lr.log_manager)
					page_.SetLSN(record.GetLSN())
					isRedoOccurred = true
				}
				lr.buffer_pool_manager.UnpinPage(rid.GetPageId(), true)
			case recovery.UPDATE:
				rid := record.Update_rid
				page_ := access.CastPageAsTablePage(lr.buffer_pool_manager.FetchPage(rid.GetPageId()))
				if page_.LSN() < record.GetLSN() {
					// UpdateTuple overwrites its old_tuple argument, but the
					// record is re-read from disk in Undo so that is fine.
					page_.UpdateTuple(&record.New_tuple, nil, nil, &record.Old_tuple, &rid, txn, nil, lr.log_manager)
					page_.SetLSN(record.GetLSN())
					isRedoOccurred = true
				}
				lr.buffer_pool_manager.UnpinPage(rid.GetPageId(), true)
			case recovery.BEGIN:
				lr.active_txn[record.GetTxnId()] = record.GetLSN()
			case recovery.COMMIT, recovery.ABORT:
				delete(lr.active_txn, record.GetTxnId())
			case recovery.NEWPAGE:
				newPage := access.CastPageAsTablePage(lr.buffer_pool_manager.NewPageAt(record.Page_id))
				newPage.Init(newPage.ID(), record.Prev_page_id, lr.log_manager, nil, txn)
				lr.buffer_pool_manager.UnpinPage(newPage.ID(), true)
			}

			bufferOffset += record.GetSize()
		}
		fileOffset += int64(bufferOffset)
	}
	return greatestLSN, isRedoOccurred
}

// Undo walks every transaction still open after Redo backwards through its
// prev-lsn chain, reversing each operation. Returns whether anything was
// undone.
func (lr *LogRecovery) Undo(txn *access.Transaction) bool {
	isUndoOccurred := false

	// A tuple moved by UPDATE (page ran out of space, tuple relocated) gets
	// a new RID; later records in the same chain that reference the
	// original RID must be redirected to the new one.
	ridConv := make(map[page.RID]page.RID)
	convRID := func(rid page.RID) page.RID {
		if conv, ok := ridConv[rid]; ok {
			return conv
		}
		return rid
	}

	for _, startLSN := range lr.active_txn {
		lsn := startLSN
		for lsn != types.InvalidLSN {
			offset, ok := lr.lsn_mapping[lsn]
			if !ok {
				break
			}
			lr.disk_manager.ReadLog(lr.log_buffer, int32(offset))
			record, ok := recovery.DeserializeLogRecord(lr.log_buffer)
			if !ok {
				break
			}

			switch record.GetLogRecordType() {
			case recovery.INSERT:
				rid := convRID(record.GetInsertRID())
				page_ := access.CastPageAsTablePage(lr.buffer_pool_manager.FetchPage(rid.GetPageId()))
				page_.ApplyDelete(&rid, txn, lr.log_manager)
				lr.buffer_pool_manager.UnpinPage(rid.GetPageId(), true)
				isUndoOccurred = true
			case recovery.APPLYDELETE:
				rid := convRID(record.GetDeleteRID())
				page_ := access.CastPageAsTablePage(lr.buffer_pool_manager.FetchPage(rid.GetPageId()))
				deletedTuple := record.GetDeletedTuple()
				deletedTuple.SetRID(&rid)
				page_.InsertTuple(&deletedTuple, lr.log_manager, nil, txn)
				lr.buffer_pool_manager.UnpinPage(rid.GetPageId(), true)
				isUndoOccurred = true
			case recovery.MARKDELETE:
				rid := convRID(record.GetDeleteRID())
				page_ := access.CastPageAsTablePage(lr.buffer_pool_manager.FetchPage(rid.GetPageId()))
				page_.RollbackDelete(&rid, txn, lr.log_manager)
				lr.buffer_pool_manager.UnpinPage(rid.GetPageId(), true)
				isUndoOccurred = true
			case recovery.ROLLBACKDELETE:
				rid := convRID(record.GetDeleteRID())
				page_ := access.CastPageAsTablePage(lr.buffer_pool_manager.FetchPage(rid.GetPageId()))
				page_.MarkDelete(&rid, txn, nil, lr.log_manager)
				lr.buffer_pool_manager.UnpinPage(rid.GetPageId(), true)
				isUndoOccurred = true
			case recovery.UPDATE:
				orgRID := convRID(record.Update_rid)
				page_ := access.CastPageAsTablePage(lr.buffer_pool_manager.FetchPage(orgRID.GetPageId()))
				isUpdated, err, followTuple := page_.UpdateTuple(&record.Old_tuple, nil, nil, &record.New_tuple, &orgRID, txn, nil, lr.log_manager)

				if !isUpdated && err == access.ErrNotEnoughSpace {
					// The updated tuple no longer fits: delete the current
					// value here and reinsert it wherever there's room.
					page_.ApplyDelete(&orgRID, txn, lr.log_manager)

					var newRID *page.RID
					var insertErr error
					for {
						newRID, insertErr = page_.InsertTuple(followTuple, lr.log_manager, nil, txn)
						if insertErr == nil || insertErr == access.ErrEmptyTuple {
							break
						}

						nextPageID := page_.GetNextPageId()
						if nextPageID.IsValid() {
							nextPage := access.CastPageAsTablePage(lr.buffer_pool_manager.FetchPage(nextPageID))
							lr.buffer_pool_manager.UnpinPage(page_.ID(), true)
							page_ = nextPage
						} else {
							newPage := access.CastPageAsTablePage(lr.buffer_pool_manager.NewPage())
							currentPageID := page_.ID()
							page_.SetNextPageId(newPage.ID())
							newPage.Init(newPage.ID(), currentPageID, lr.log_manager, nil, txn)
							lr.buffer_pool_manager.UnpinPage(page_.ID(), true)
							page_ = newPage
						}
					}

					if newRID != nil {
						ridConv[orgRID] = *newRID
					}
				}
				lr.buffer_pool_manager.UnpinPage(page_.ID(), true)
				isUndoOccurred = true
			}

			lsn = record.GetPrevLSN()
		}
	}
	return isUndoOccurred
}
