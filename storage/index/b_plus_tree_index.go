package index

import (
	"sync"

	"github.com/ryogrid/SamehadaDB/recovery"
	"github.com/ryogrid/SamehadaDB/storage/buffer"
	"github.com/ryogrid/SamehadaDB/storage/index/btree"
	"github.com/ryogrid/SamehadaDB/storage/page"
	"github.com/ryogrid/SamehadaDB/storage/table/schema"
	"github.com/ryogrid/SamehadaDB/storage/tuple"
	"github.com/ryogrid/SamehadaDB/types"

	"github.com/ryogrid/SamehadaDB/common"
)

// BPlusTreeIndex adapts the disk-backed btree package to the Index
// interface, keyed on a single fixed-size column. UpdateEntry takes the
// write lock so concurrent scans never see a half-applied swap.
type BPlusTreeIndex struct {
	tree        *btree.BPlusTree
	metadata    *IndexMetadata
	colIdx      uint32
	log_manager *recovery.LogManager
	updateMtx   sync.RWMutex
}

func NewBPlusTreeIndex(metadata *IndexMetadata, bpm *buffer.BufferPoolManager, colIdx uint32, log_manager *recovery.LogManager) *BPlusTreeIndex {
	keyType := metadata.GetTupleSchema().GetColumn(colIdx).GetType()
	tree := btree.NewBPlusTree(*metadata.GetName(), bpm, keyType, common.BTreeLeafMaxSize, common.BTreeInternalMaxSize)
	return &BPlusTreeIndex{
		tree:        tree,
		metadata:    metadata,
		colIdx:      colIdx,
		log_manager: log_manager,
	}
}

// NewBPlusTreeIndexFromRoot rebuilds a BPlusTreeIndex handle over a tree
// that was already built on disk, for catalog bootstrap.
func NewBPlusTreeIndexFromRoot(metadata *IndexMetadata, bpm *buffer.BufferPoolManager, colIdx uint32, log_manager *recovery.LogManager, rootPageID types.PageID) *BPlusTreeIndex {
	idx := NewBPlusTreeIndex(metadata, bpm, colIdx, log_manager)
	idx.tree.SetRootPageID(rootPageID)
	return idx
}

func (bti *BPlusTreeIndex) GetRootPageID() types.PageID { return bti.tree.GetRootPageID() }

func (bti *BPlusTreeIndex) insertEntryInner(key *tuple.Tuple, rid page.RID, isNoLock bool) {
	keyVal := key.GetValue(bti.metadata.GetTupleSchema(), bti.colIdx)
	if !isNoLock {
		bti.updateMtx.Lock()
		defer bti.updateMtx.Unlock()
	}
	bti.tree.Insert(keyVal, rid)
}

func (bti *BPlusTreeIndex) InsertEntry(key *tuple.Tuple, rid page.RID, txn interface{}) {
	bti.insertEntryInner(key, rid, false)
}

func (bti *BPlusTreeIndex) deleteEntryInner(key *tuple.Tuple, isNoLock bool) {
	keyVal := key.GetValue(bti.metadata.GetTupleSchema(), bti.colIdx)
	if !isNoLock {
		bti.updateMtx.Lock()
		defer bti.updateMtx.Unlock()
	}
	bti.tree.Delete(keyVal)
}

func (bti *BPlusTreeIndex) DeleteEntry(key *tuple.Tuple, rid page.RID, txn interface{}) {
	bti.deleteEntryInner(key, false)
}

func (bti *BPlusTreeIndex) UpdateEntry(oldKey *tuple.Tuple, oldRID page.RID, newKey *tuple.Tuple, newRID page.RID, txn interface{}) {
	bti.updateMtx.Lock()
	defer bti.updateMtx.Unlock()
	bti.deleteEntryInner(oldKey, true)
	bti.insertEntryInner(newKey, newRID, true)
}

func (bti *BPlusTreeIndex) ScanKey(key *tuple.Tuple, txn interface{}) []page.RID {
	keyVal := key.GetValue(bti.metadata.GetTupleSchema(), bti.colIdx)

	bti.updateMtx.RLock()
	defer bti.updateMtx.RUnlock()

	ret := make([]page.RID, 0, 1)
	if rid, ok := bti.tree.GetValue(keyVal); ok {
		ret = append(ret, rid)
	}
	return ret
}

// GetRangeScanIterator scans [startKey, endKey]; a nil bound leaves that
// side of the range open.
func (bti *BPlusTreeIndex) GetRangeScanIterator(startKey *tuple.Tuple, endKey *tuple.Tuple, txn interface{}) IndexRangeScanIterator {
	tupleSchema_ := bti.metadata.GetTupleSchema()

	var startVal *types.Value
	if startKey != nil {
		v := startKey.GetValue(tupleSchema_, bti.colIdx)
		startVal = &v
	}
	var endVal *types.Value
	if endKey != nil {
		v := endKey.GetValue(tupleSchema_, bti.colIdx)
		endVal = &v
	}

	bti.updateMtx.RLock()
	defer bti.updateMtx.RUnlock()
	return bti.tree.NewRangeIterator(startVal, endVal)
}

func (bti *BPlusTreeIndex) GetMetadata() *IndexMetadata      { return bti.metadata }
func (bti *BPlusTreeIndex) GetIndexColumnCount() uint32      { return bti.metadata.GetIndexColumnCount() }
func (bti *BPlusTreeIndex) GetName() *string                 { return bti.metadata.GetName() }
func (bti *BPlusTreeIndex) GetTupleSchema() *schema.Schema   { return bti.metadata.GetTupleSchema() }
func (bti *BPlusTreeIndex) GetKeyAttrs() []uint32            { return bti.metadata.GetKeyAttrs() }
