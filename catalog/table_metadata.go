package catalog

import (
	"github.com/ryogrid/SamehadaDB/recovery"
	"github.com/ryogrid/SamehadaDB/storage/access"
	"github.com/ryogrid/SamehadaDB/storage/index"
	"github.com/ryogrid/SamehadaDB/storage/table/schema"
	"github.com/ryogrid/SamehadaDB/types"
)

// TableMetadata ties a table's schema and heap to the B+ tree indexes
// built over its columns.
type TableMetadata struct {
	schema *schema.Schema
	name   string
	table  *access.TableHeap
	oid    uint32
	// indexes has one slot per column; a column with no index has a nil
	// entry at its position.
	indexes []index.Index
}

// NewTableMetadata builds indexes for every column that has HasIndex set,
// resuming from a persisted root page when the column already has one.
func NewTableMetadata(schema_ *schema.Schema, name string, table *access.TableHeap, oid uint32, log_manager *recovery.LogManager) *TableMetadata {
	indexes := make([]index.Index, 0, len(schema_.GetColumns()))
	for colIdx, col := range schema_.GetColumns() {
		if !col.HasIndex() {
			indexes = append(indexes, nil)
			continue
		}

		im := index.NewIndexMetadata(col.GetColumnName()+"_index", name, schema_, []uint32{uint32(colIdx)})
		var idx *index.BPlusTreeIndex
		if col.GetIndexRootPageID() != types.InvalidPageID {
			idx = index.NewBPlusTreeIndexFromRoot(im, table.GetBufferPoolManager(), uint32(colIdx), log_manager, col.GetIndexRootPageID())
		} else {
			idx = index.NewBPlusTreeIndex(im, table.GetBufferPoolManager(), uint32(colIdx), log_manager)
		}
		col.SetIndexRootPageID(idx.GetRootPageID())
		indexes = append(indexes, idx)
	}

	return &TableMetadata{schema_, name, table, oid, indexes}
}

func (t *TableMetadata) Schema() *schema.Schema { return t.schema }
func (t *TableMetadata) OID() uint32            { return t.oid }
func (t *TableMetadata) Table() *access.TableHeap { return t.table }

// GetIndex returns the index attached to column colIndex, or nil if that
// column has none.
func (t *TableMetadata) GetIndex(colIndex int) index.Index {
	return t.indexes[colIndex]
}

func (t *TableMetadata) GetColumnNum() uint32 { return t.schema.GetColumnCount() }

// Indexes returns every column's index slot; length equals column count,
// with nils at columns that have no index.
func (t *TableMetadata) Indexes() []index.Index { return t.indexes }

func (t *TableMetadata) GetTableName() *string { return &t.name }
