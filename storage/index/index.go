package index

import (
	"github.com/ryogrid/SamehadaDB/storage/page"
	"github.com/ryogrid/SamehadaDB/storage/table/schema"
	"github.com/ryogrid/SamehadaDB/storage/tuple"
)

// IndexMetadata holds the mapping between an index's key schema and the
// full tuple schema of the table it indexes, since the index itself only
// ever sees key-sized tuples built by tuple.GenTupleForIndexSearch.
type IndexMetadata struct {
	name        string
	tableName   string
	tupleSchema *schema.Schema
	keyAttrs    []uint32
	keySchema   *schema.Schema
}

func NewIndexMetadata(indexName string, tableName string, tupleSchema *schema.Schema, keyAttrs []uint32) *IndexMetadata {
	return &IndexMetadata{
		name:        indexName,
		tableName:   tableName,
		tupleSchema: tupleSchema,
		keyAttrs:    keyAttrs,
		keySchema:   schema.CopySchema(tupleSchema, keyAttrs),
	}
}

func (im *IndexMetadata) GetName() *string               { return &im.name }
func (im *IndexMetadata) GetTableName() *string           { return &im.tableName }
func (im *IndexMetadata) GetTupleSchema() *schema.Schema  { return im.tupleSchema }
func (im *IndexMetadata) GetKeySchema() *schema.Schema    { return im.keySchema }
func (im *IndexMetadata) GetIndexColumnCount() uint32     { return uint32(len(im.keyAttrs)) }
func (im *IndexMetadata) GetKeyAttrs() []uint32           { return im.keyAttrs }

// Index abstracts over the underlying tree so the catalog and executors
// never see storage/index/btree types directly. txn is accepted as
// interface{} rather than *access.Transaction to avoid a storage/access
// <-> storage/index import cycle (access already depends on this package
// for rollback bookkeeping); implementations that need it type-assert.
type Index interface {
	GetMetadata() *IndexMetadata
	GetIndexColumnCount() uint32
	GetName() *string
	GetTupleSchema() *schema.Schema
	GetKeyAttrs() []uint32

	InsertEntry(key *tuple.Tuple, rid page.RID, txn interface{})
	DeleteEntry(key *tuple.Tuple, rid page.RID, txn interface{})
	UpdateEntry(oldKey *tuple.Tuple, oldRID page.RID, newKey *tuple.Tuple, newRID page.RID, txn interface{})
	ScanKey(key *tuple.Tuple, txn interface{}) []page.RID

	// GetRangeScanIterator scans [startKey, endKey]; either bound is a
	// dummy tuple built by tuple.GenTupleForIndexSearch, and nil means
	// open-ended on that side.
	GetRangeScanIterator(startKey *tuple.Tuple, endKey *tuple.Tuple, txn interface{}) IndexRangeScanIterator
}
