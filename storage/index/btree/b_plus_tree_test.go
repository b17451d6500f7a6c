package btree

import (
	"testing"

	"github.com/ryogrid/SamehadaDB/recovery"
	"github.com/ryogrid/SamehadaDB/storage/buffer"
	"github.com/ryogrid/SamehadaDB/storage/disk"
	"github.com/ryogrid/SamehadaDB/storage/page"
	testingpkg "github.com/ryogrid/SamehadaDB/testing/testing_util"
	"github.com/ryogrid/SamehadaDB/types"
)

func newTestTree(t *testing.T, leafMax, internalMax int) (*BPlusTree, *buffer.BufferPoolManager) {
	dm := disk.NewDiskManagerTest()
	t.Cleanup(func() { dm.ShutDown() })
	logManager := recovery.NewLogManager(dm)
	bpm := buffer.NewBufferPoolManager(64, dm, logManager)
	return NewBPlusTree("test_index", bpm, types.Integer, leafMax, internalMax), bpm
}

// TestBPlusTreeInsertAndLookup drives enough inserts through small leaf and
// internal max sizes to force several splits, then checks every key is
// still reachable by point lookup.
func TestBPlusTreeInsertAndLookup(t *testing.T) {
	tree, _ := newTestTree(t, 4, 4)

	const n = 200
	for i := 0; i < n; i++ {
		key := types.NewInteger(int32(i))
		ok := tree.Insert(key, *page.NewRID(types.PageID(i), uint32(i)))
		testingpkg.Equals(t, true, ok)
	}

	for i := 0; i < n; i++ {
		key := types.NewInteger(int32(i))
		rid, found := tree.GetValue(key)
		testingpkg.Equals(t, true, found)
		testingpkg.Equals(t, *page.NewRID(types.PageID(i), uint32(i)), rid)
	}
}

// TestBPlusTreeInsertDuplicateRejected checks the tree's unique-key
// contract: inserting an existing key is a no-op that reports failure.
func TestBPlusTreeInsertDuplicateRejected(t *testing.T) {
	tree, _ := newTestTree(t, 4, 4)

	key := types.NewInteger(7)
	testingpkg.Equals(t, true, tree.Insert(key, *page.NewRID(1, 1)))
	testingpkg.Equals(t, false, tree.Insert(key, *page.NewRID(2, 2)))

	rid, found := tree.GetValue(key)
	testingpkg.Equals(t, true, found)
	testingpkg.Equals(t, *page.NewRID(1, 1), rid)
}

// TestBPlusTreeDeleteRebalances inserts enough keys to build a multi-level
// tree, deletes most of them back out through redistribute and coalesce
// paths, and checks the survivors are still findable while deleted keys
// are gone.
func TestBPlusTreeDeleteRebalances(t *testing.T) {
	tree, _ := newTestTree(t, 4, 4)

	const n = 100
	for i := 0; i < n; i++ {
		tree.Insert(types.NewInteger(int32(i)), *page.NewRID(types.PageID(i), uint32(i)))
	}

	for i := 0; i < n; i++ {
		if i%2 == 0 {
			tree.Delete(types.NewInteger(int32(i)))
		}
	}

	for i := 0; i < n; i++ {
		_, found := tree.GetValue(types.NewInteger(int32(i)))
		testingpkg.Equals(t, i%2 != 0, found)
	}
}

// TestBPlusTreeDeleteToEmpty drains every key back out and checks the tree
// reports empty again, matching adjustRoot's leaf-root-drained-to-zero
// case.
func TestBPlusTreeDeleteToEmpty(t *testing.T) {
	tree, _ := newTestTree(t, 4, 4)

	const n = 50
	for i := 0; i < n; i++ {
		tree.Insert(types.NewInteger(int32(i)), *page.NewRID(types.PageID(i), uint32(i)))
	}
	for i := 0; i < n; i++ {
		tree.Delete(types.NewInteger(int32(i)))
	}

	testingpkg.Equals(t, true, tree.IsEmpty())
}

// TestBPlusTreeIteratorScansInOrder checks the leftmost-leaf iterator
// visits every key in ascending order after several splits.
func TestBPlusTreeIteratorScansInOrder(t *testing.T) {
	tree, _ := newTestTree(t, 4, 4)

	const n = 60
	for i := n - 1; i >= 0; i-- {
		tree.Insert(types.NewInteger(int32(i)), *page.NewRID(types.PageID(i), uint32(i)))
	}

	it := tree.NewRangeIterator(nil, nil)
	count := 0
	prev := int32(-1)
	for {
		ok, err, key, _ := it.Next()
		testingpkg.Ok(t, err)
		if !ok {
			break
		}
		v := key.ToInteger()
		if v <= prev {
			t.Fatalf("iterator not in ascending order: prev=%d cur=%d", prev, v)
		}
		prev = v
		count++
	}
	testingpkg.Equals(t, n, count)
}
