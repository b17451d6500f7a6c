// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package access

import (
	"github.com/ryogrid/SamehadaDB/storage/tuple"
)

// TableHeapIterator walks every live tuple of a TableHeap in physical
// storage order (page chain order, then slot order within a page).
type TableHeapIterator struct {
	tableHeap    *TableHeap
	tuple        *tuple.Tuple
	lock_manager *LockManager
	txn          *Transaction
}

// NewTableHeapIterator builds an iterator already positioned at
// tableHeap's first live tuple.
func NewTableHeapIterator(tableHeap *TableHeap, lockManager *LockManager, txn *Transaction) *TableHeapIterator {
	return &TableHeapIterator{tableHeap, tableHeap.GetFirstTuple(txn), lockManager, txn}
}

func (it *TableHeapIterator) Current() *tuple.Tuple {
	return it.tuple
}

func (it *TableHeapIterator) End() bool {
	return it.Current() == nil
}

// Next advances to the next live tuple, which may be on the current page
// or require walking forward across the page chain, and returns it (nil
// once the chain is exhausted).
func (it *TableHeapIterator) Next() *tuple.Tuple {
	bpm := it.tableHeap.bpm
	currentPage := CastPageAsTablePage(bpm.FetchPage(it.Current().GetRID().GetPageId()))
	currentPage.RLatch()

	nextTupleRID := currentPage.GetNextTupleRID(it.Current().GetRID(), false)
	if nextTupleRID == nil {
		// INVARIANT: currentPage stays RLatched across each hop of this loop.
		for currentPage.GetNextPageId().IsValid() {
			nextPage := CastPageAsTablePage(bpm.FetchPage(currentPage.GetNextPageId()))
			bpm.UnpinPage(currentPage.ID(), false)
			nextPage.RLatch()
			currentPage.RUnlatch()
			currentPage = nextPage
			nextTupleRID = currentPage.GetNextTupleRID(it.Current().GetRID(), true)

			if nextTupleRID != nil {
				break
			}
		}
	}

	if nextTupleRID != nil && nextTupleRID.GetPageId().IsValid() {
		it.tuple = currentPage.GetTuple(nextTupleRID, it.tableHeap.log_manager, it.lock_manager, it.txn)
	} else {
		it.tuple = nil
	}

	bpm.UnpinPage(currentPage.ID(), false)
	currentPage.RUnlatch()
	return it.tuple
}
