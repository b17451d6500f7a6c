package access

import (
	"testing"

	"github.com/ryogrid/SamehadaDB/recovery"
	"github.com/ryogrid/SamehadaDB/storage/buffer"
	"github.com/ryogrid/SamehadaDB/storage/disk"
	"github.com/ryogrid/SamehadaDB/storage/page"
	"github.com/ryogrid/SamehadaDB/storage/table/column"
	"github.com/ryogrid/SamehadaDB/storage/table/schema"
	"github.com/ryogrid/SamehadaDB/storage/tuple"
	testingpkg "github.com/ryogrid/SamehadaDB/testing/testing_util"
	"github.com/ryogrid/SamehadaDB/types"
)

func TestTableHeap(t *testing.T) {
	dm := disk.NewDiskManagerTest()
	defer dm.ShutDown()
	log_manager := recovery.NewLogManager(dm)
	bpm := buffer.NewBufferPoolManager(10, dm, log_manager)
	lock_manager := NewLockManager()
	txn_mgr := NewTransactionManager(lock_manager, log_manager)
	txn := txn_mgr.Begin(nil, REPEATABLE_READ)

	th := NewTableHeap(bpm, log_manager, lock_manager, txn)

	// this schema creates a tuple of size 10 bytes (two Integer columns of
	// a 1-byte null flag plus 4 bytes each); with an 8-byte slot entry per
	// tuple it means that a page can only contain 226 tuples of this schema
	columnA := column.NewColumn("a", types.Integer, false)
	columnB := column.NewColumn("b", types.Integer, false)
	tableSchema := schema.NewSchema([]*column.Column{columnA, columnB})

	// inserting 1000 tuples means at least 4 pages
	for i := 0; i < 1000; i++ {
		row := make([]types.Value, 0)
		row = append(row, types.NewInteger(int32(i*2)))
		row = append(row, types.NewInteger(int32((i+1)*2)))

		tup := tuple.NewTupleFromSchema(row, tableSchema)
		_, err := th.InsertTuple(tup, txn, 0)
		testingpkg.Ok(t, err)
	}

	bpm.FlushAllPages()

	firstTuple := th.GetFirstTuple(txn)
	testingpkg.Equals(t, int32(0), firstTuple.GetValue(tableSchema, 0).ToInteger())
	testingpkg.Equals(t, int32(2), firstTuple.GetValue(tableSchema, 1).ToInteger())

	for i := 0; i < 1000; i++ {
		rid := page.NewRID(types.PageID(i/226), uint32(i%226))
		tup := th.GetTuple(rid, txn)
		testingpkg.Equals(t, int32(i*2), tup.GetValue(tableSchema, 0).ToInteger())
		testingpkg.Equals(t, int32((i+1)*2), tup.GetValue(tableSchema, 1).ToInteger())
	}

	it := th.Iterator(txn)
	i := int32(0)
	for tup := it.Current(); !it.End(); tup = it.Next() {
		testingpkg.Equals(t, i*2, tup.GetValue(tableSchema, 0).ToInteger())
		testingpkg.Equals(t, (i+1)*2, tup.GetValue(tableSchema, 1).ToInteger())
		i++
	}

	txn_mgr.Commit(txn)
}
