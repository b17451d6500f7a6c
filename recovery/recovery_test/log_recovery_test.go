package log_recovery_test

import (
	"os"
	"testing"

	"github.com/ryogrid/SamehadaDB/recovery"
	"github.com/ryogrid/SamehadaDB/recovery/log_recovery"
	"github.com/ryogrid/SamehadaDB/storage/access"
	"github.com/ryogrid/SamehadaDB/storage/buffer"
	"github.com/ryogrid/SamehadaDB/storage/disk"
	"github.com/ryogrid/SamehadaDB/storage/table/column"
	"github.com/ryogrid/SamehadaDB/storage/table/schema"
	"github.com/ryogrid/SamehadaDB/storage/tuple"
	"github.com/ryogrid/SamehadaDB/test_util"
	testingpkg "github.com/ryogrid/SamehadaDB/testing/testing_util"
	"github.com/ryogrid/SamehadaDB/types"
)

// TestCrashRestartRedoUndo drives the exact scenario recovery is built
// for: one committed insert and one insert whose transaction never
// commits. After Redo+Undo, only the committed row survives and no
// transaction remains active.
func TestCrashRestartRedoUndo(t *testing.T) {
	dbFile := t.Name() + ".db"
	logFile := dbFile + ".log"
	os.Remove(dbFile)
	os.Remove(logFile)
	defer os.Remove(dbFile)
	defer os.Remove(logFile)

	colA := column.NewColumn("a", types.Integer, false)
	colB := column.NewColumn("b", types.Varchar, false)
	schema_ := schema.NewSchema([]*column.Column{colA, colB})

	instance := test_util.NewSamehadaInstance(dbFile, 32)
	setupTxn := instance.GetTransactionManager().Begin(nil, access.REPEATABLE_READ)
	tableHeap := access.NewTableHeap(instance.GetBufferPoolManager(), instance.GetLogManager(), instance.GetLockManager(), setupTxn)
	firstPageID := tableHeap.GetFirstPageId()
	instance.GetTransactionManager().Commit(setupTxn)

	txn1 := instance.GetTransactionManager().Begin(nil, access.REPEATABLE_READ)
	committedTuple := tuple.NewTupleFromSchema([]types.Value{types.NewInteger(1), types.NewVarchar("a")}, schema_)
	committedRID, err := tableHeap.InsertTuple(committedTuple, txn1, 0)
	testingpkg.Ok(t, err)
	instance.GetTransactionManager().Commit(txn1)

	txn2 := instance.GetTransactionManager().Begin(nil, access.REPEATABLE_READ)
	loserTuple := tuple.NewTupleFromSchema([]types.Value{types.NewInteger(2), types.NewVarchar("b")}, schema_)
	loserRID, err := tableHeap.InsertTuple(loserTuple, txn2, 0)
	testingpkg.Ok(t, err)
	// crash before txn2 commits: flush the WAL so both inserts are
	// durable there, but never write the dirty table page back, so the
	// data file on disk still shows the table as empty.
	instance.GetLogManager().StopFlushThread()
	instance.GetDiskManager().ShutDown()

	// Restart with logging left off, matching how recovery must run:
	// table page operations replayed by Redo/Undo must not themselves
	// take locks or append new log records.
	diskManager := disk.NewDiskManagerImpl(dbFile)
	defer diskManager.ShutDown()
	logManager := recovery.NewLogManager(diskManager)
	bpm := buffer.NewBufferPoolManager(32, diskManager, logManager)
	lockManager := access.NewLockManager()

	recoveryTxn := access.NewTransaction(0, access.REPEATABLE_READ)
	lr := log_recovery.NewLogRecovery(diskManager, bpm, logManager)
	_, redoOccurred := lr.Redo(recoveryTxn)
	testingpkg.Equals(t, true, redoOccurred)
	undoOccurred := lr.Undo(recoveryTxn)
	testingpkg.Equals(t, true, undoOccurred)

	reloadedHeap := access.InitTableHeap(bpm, firstPageID, logManager, lockManager)
	survivor := reloadedHeap.GetTuple(committedRID, recoveryTxn)
	testingpkg.Equals(t, true, survivor != nil)
	testingpkg.Equals(t, int32(1), survivor.GetValue(schema_, 0).ToInteger())

	lost := reloadedHeap.GetTuple(loserRID, recoveryTxn)
	testingpkg.Equals(t, true, lost == nil)
}
