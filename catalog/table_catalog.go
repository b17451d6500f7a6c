// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package catalog

import (
	"github.com/ryogrid/SamehadaDB/recovery"
	"github.com/ryogrid/SamehadaDB/storage/access"
	"github.com/ryogrid/SamehadaDB/storage/buffer"
	"github.com/ryogrid/SamehadaDB/storage/index"
	"github.com/ryogrid/SamehadaDB/storage/table/column"
	"github.com/ryogrid/SamehadaDB/storage/table/schema"
	"github.com/ryogrid/SamehadaDB/storage/tuple"
	"github.com/ryogrid/SamehadaDB/types"
)

// TableCatalogPageId indicates the page where the table catalog can be found
// The first page is reserved for the table catalog
const TableCatalogPageId = 0

// ColumnsCatalogPageId indicates the page where the columns catalog can be found
// The second page is reserved for the columns catalog
const ColumnsCatalogPageId = 1

const ColumnsCatalogOID = 0

// TableCatalogOID tags writes into the table catalog's own heap (as
// opposed to any user table), for the transaction write-set bookkeeping
// TableHeap.InsertTuple requires.
const TableCatalogOID = ^uint32(0)

// Catalog is the in-memory view of the table and columns catalogs, which are
// stored in their own table heaps and read back by GetCatalog.
// It handles table creation and table lookup
type Catalog struct {
	bpm           *buffer.BufferPoolManager
	tableIds      map[uint32]*TableMetadata
	tableNames    map[string]*TableMetadata
	nextTableId   uint32
	tableHeap     *access.TableHeap
	Log_manager   *recovery.LogManager
	Lock_manager  *access.LockManager
	rootPageCache *rootPageCache
}

// BootstrapCatalog bootstrap the systems' catalogs on the first database initialization
func BootstrapCatalog(bpm *buffer.BufferPoolManager, log_manager *recovery.LogManager, lock_manager *access.LockManager, txn *access.Transaction) *Catalog {
	tableCatalogHeap := access.NewTableHeap(bpm, log_manager, lock_manager, txn)
	tableCatalog := &Catalog{bpm, make(map[uint32]*TableMetadata), make(map[string]*TableMetadata), 0, tableCatalogHeap, log_manager, lock_manager, newRootPageCache()}
	tableCatalog.CreateTable("columns_catalog", ColumnsCatalogSchema(), txn)
	return tableCatalog
}

// GetCatalog get all information about tables and columns from disk and put it on memory
func GetCatalog(bpm *buffer.BufferPoolManager, log_manager *recovery.LogManager, lock_manager *access.LockManager, txn *access.Transaction) *Catalog {
	tableCatalogHeapIt := access.InitTableHeap(bpm, TableCatalogPageId, log_manager, lock_manager).Iterator(txn)

	tableIds := make(map[uint32]*TableMetadata)
	tableNames := make(map[string]*TableMetadata)
	rpCache := newRootPageCache()

	for tuple := tableCatalogHeapIt.Current(); !tableCatalogHeapIt.End(); tuple = tableCatalogHeapIt.Next() {
		oid := tuple.GetValue(TableCatalogSchema(), TableCatalogSchema().GetColIndex("oid")).ToInteger()
		name := tuple.GetValue(TableCatalogSchema(), TableCatalogSchema().GetColIndex("name")).ToVarchar()
		firstPage := tuple.GetValue(TableCatalogSchema(), TableCatalogSchema().GetColIndex("first_page")).ToInteger()

		columns := []*column.Column{}
		columnsCatalogHeapIt := access.InitTableHeap(bpm, ColumnsCatalogPageId, log_manager, lock_manager).Iterator(txn)
		for tuple := columnsCatalogHeapIt.Current(); !columnsCatalogHeapIt.End(); tuple = columnsCatalogHeapIt.Next() {
			tableOid := tuple.GetValue(ColumnsCatalogSchema(), ColumnsCatalogSchema().GetColIndex("table_oid")).ToInteger()
			if tableOid != oid {
				continue
			}
			columnType := tuple.GetValue(ColumnsCatalogSchema(), ColumnsCatalogSchema().GetColIndex("type")).ToInteger()
			columnName := tuple.GetValue(ColumnsCatalogSchema(), ColumnsCatalogSchema().GetColIndex("name")).ToVarchar()
			hasIndex := tuple.GetValue(ColumnsCatalogSchema(), ColumnsCatalogSchema().GetColIndex("has_index")).ToInteger()
			indexRootPageID := tuple.GetValue(ColumnsCatalogSchema(), ColumnsCatalogSchema().GetColIndex("index_root_page_id")).ToInteger()

			col := column.NewColumn(columnName, types.TypeID(columnType), hasIndex != 0)
			col.SetIndexRootPageID(types.PageID(indexRootPageID))
			columns = append(columns, col)

			if hasIndex != 0 {
				rpCache.put(rootPageCacheKey{tableOid: uint32(oid), column: columnName}, types.PageID(indexRootPageID))
			}
		}

		tableSchema := schema.NewSchema(columns)
		tableHeap := access.InitTableHeap(bpm, types.PageID(firstPage), log_manager, lock_manager)
		tableMetadata := NewTableMetadata(tableSchema, name, tableHeap, uint32(oid), log_manager)

		tableIds[uint32(oid)] = tableMetadata
		tableNames[name] = tableMetadata
	}

	return &Catalog{bpm, tableIds, tableNames, 1, access.InitTableHeap(bpm, 0, log_manager, lock_manager), log_manager, lock_manager, rpCache}

}

func (c *Catalog) GetTableByName(table string) *TableMetadata {
	if table, ok := c.tableNames[table]; ok {
		return table
	}
	return nil
}

func (c *Catalog) GetTableByOID(oid uint32) *TableMetadata {
	if table, ok := c.tableIds[oid]; ok {
		return table
	}
	return nil
}

// CreateTable creates a new table and return its metadata
func (c *Catalog) CreateTable(name string, schema *schema.Schema, txn *access.Transaction) *TableMetadata {
	oid := c.nextTableId
	c.nextTableId++

	tableHeap := access.NewTableHeap(c.bpm, c.Log_manager, c.Lock_manager, txn)
	tableMetadata := NewTableMetadata(schema, name, tableHeap, oid, c.Log_manager)

	c.tableIds[oid] = tableMetadata
	c.tableNames[name] = tableMetadata
	// TODO: (SDB) this InsertTable call is needed?
	c.InsertTable(tableMetadata, txn)

	return tableMetadata
}

func (c *Catalog) InsertTable(tableMetadata *TableMetadata, txn *access.Transaction) {
	row := make([]types.Value, 0)

	row = append(row, types.NewInteger(int32(tableMetadata.oid)))
	row = append(row, types.NewVarchar(tableMetadata.name))
	row = append(row, types.NewInteger(int32(tableMetadata.table.GetFirstPageId())))
	first_tuple := tuple.NewTupleFromSchema(row, TableCatalogSchema())

	c.tableHeap.InsertTuple(first_tuple, txn, TableCatalogOID)
	for _, column := range tableMetadata.schema.GetColumns() {
		row := make([]types.Value, 0)
		row = append(row, types.NewInteger(int32(tableMetadata.oid)))
		row = append(row, types.NewInteger(int32(column.GetType())))
		row = append(row, types.NewVarchar(column.GetColumnName()))
		row = append(row, types.NewInteger(int32(column.FixedLength())))
		row = append(row, types.NewInteger(int32(column.VariableLength())))
		row = append(row, types.NewInteger(int32(column.GetOffset())))
		hasIndex := int32(0)
		if column.HasIndex() {
			hasIndex = 1
		}
		row = append(row, types.NewInteger(hasIndex))
		row = append(row, types.NewInteger(int32(column.GetIndexRootPageID())))
		new_tuple := tuple.NewTupleFromSchema(row, ColumnsCatalogSchema())

		c.tableIds[ColumnsCatalogOID].Table().InsertTuple(new_tuple, txn, ColumnsCatalogOID)

		if column.HasIndex() {
			key := rootPageCacheKey{tableOid: tableMetadata.oid, column: column.GetColumnName()}
			c.rootPageCache.put(key, column.GetIndexRootPageID())
		}
	}
}

// GetIndexRootPageId returns the root page id of the B+ tree index built
// over table oid's named column, consulting the probe cache before falling
// back to a walk over the table's in-memory schema columns.
func (c *Catalog) GetIndexRootPageId(oid uint32, columnName string) (types.PageID, bool) {
	key := rootPageCacheKey{tableOid: oid, column: columnName}
	if rootPage, ok := c.rootPageCache.get(key); ok {
		return rootPage, true
	}

	table := c.GetTableByOID(oid)
	if table == nil {
		return types.InvalidPageID, false
	}
	for _, col := range table.Schema().GetColumns() {
		if col.GetColumnName() != columnName || !col.HasIndex() {
			continue
		}
		rootPage := col.GetIndexRootPageID()
		c.rootPageCache.put(key, rootPage)
		return rootPage, true
	}
	return types.InvalidPageID, false
}

// GetRollbackNeededIndexes returns the indexes attached to table oid,
// caching the lookup in indexMap so a multi-row rollback pass doesn't
// re-walk the catalog for every write record on the same table.
func (c *Catalog) GetRollbackNeededIndexes(indexMap map[uint32][]index.Index, oid uint32) []index.Index {
	if indexes, found := indexMap[oid]; found {
		return indexes
	}
	indexes := c.GetTableByOID(oid).Indexes()
	indexMap[oid] = indexes
	return indexes
}
