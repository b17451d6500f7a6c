package catalog_test

import (
	"os"
	"testing"

	"github.com/ryogrid/SamehadaDB/catalog"
	"github.com/ryogrid/SamehadaDB/storage/access"
	"github.com/ryogrid/SamehadaDB/storage/table/column"
	"github.com/ryogrid/SamehadaDB/storage/table/schema"
	testingpkg "github.com/ryogrid/SamehadaDB/testing/testing_util"
	"github.com/ryogrid/SamehadaDB/test_util"
	"github.com/ryogrid/SamehadaDB/types"
)

// TestTableCatalogReload checks that a table's schema, including which
// columns carry an index, survives a shutdown and a fresh GetCatalog scan
// of the on-disk table/columns catalog pages.
func TestTableCatalogReload(t *testing.T) {
	dbFile := t.Name() + ".db"
	os.Remove(dbFile)
	defer os.Remove(dbFile)

	instance := test_util.NewSamehadaInstance(dbFile, 32)
	txn := instance.GetTransactionManager().Begin(nil, access.REPEATABLE_READ)
	catalog_ := catalog.BootstrapCatalog(instance.GetBufferPoolManager(), instance.GetLogManager(), instance.GetLockManager(), txn)

	columnA := column.NewColumn("a", types.Integer, false)
	columnB := column.NewColumn("b", types.Integer, true)
	schema_ := schema.NewSchema([]*column.Column{columnA, columnB})
	catalog_.CreateTable("test_1", schema_, txn)

	instance.GetBufferPoolManager().FlushAllPages()
	instance.GetTransactionManager().Commit(txn)
	instance.Shutdown()

	instance2 := test_util.NewSamehadaInstance(dbFile, 32)
	txn2 := instance2.GetTransactionManager().Begin(nil, access.REPEATABLE_READ)
	reloaded := catalog.GetCatalog(instance2.GetBufferPoolManager(), instance2.GetLogManager(), instance2.GetLockManager(), txn2)

	reloadedCol := reloaded.GetTableByOID(1).Schema().GetColumn(1)
	testingpkg.Equals(t, "b", reloadedCol.GetColumnName())
	testingpkg.Equals(t, true, reloadedCol.HasIndex())
	instance2.Shutdown()
}
