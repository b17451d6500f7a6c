package buffer

import (
	"testing"

	"github.com/ryogrid/SamehadaDB/storage/disk"
	testingpkg "github.com/ryogrid/SamehadaDB/testing/testing_util"
	"github.com/ryogrid/SamehadaDB/types"
)

func TestPinNeverEvicted(t *testing.T) {
	dm := disk.NewDiskManagerTest()
	defer dm.ShutDown()
	bpm := NewBufferPoolManager(4, dm, nil)

	// Scenario: fill the pool with 4 pinned pages.
	for i := 0; i < 4; i++ {
		p := bpm.NewPage()
		testingpkg.Equals(t, types.PageID(i), p.ID())
	}

	// Scenario: the pool is full, a 5th page fails.
	if bpm.NewPage() != nil {
		t.Fatalf("expected NewPage to fail when every frame is pinned")
	}

	// Scenario: unpinning one page makes room for exactly one more.
	testingpkg.Ok(t, bpm.UnpinPage(types.PageID(0), false))
	p := bpm.NewPage()
	if p == nil {
		t.Fatalf("expected NewPage to succeed after unpinning a page")
	}
	testingpkg.Equals(t, types.PageID(4), p.ID())
}

func TestDirtyWriteback(t *testing.T) {
	dm := disk.NewDiskManagerTest()
	defer dm.ShutDown()
	bpm := NewBufferPoolManager(4, dm, nil)

	page1 := bpm.NewPage()
	copy(page1.Data()[:], []byte("hello"))
	testingpkg.Ok(t, bpm.UnpinPage(page1.ID(), true))

	// Scenario: exhaust the pool with distinct fetches so page1 gets evicted.
	for i := 0; i < 4; i++ {
		p := bpm.NewPage()
		testingpkg.Ok(t, bpm.UnpinPage(p.ID(), false))
	}

	// Scenario: fetching page1 again should show the durable write.
	page1 = bpm.FetchPage(page1.ID())
	if page1 == nil {
		t.Fatalf("expected to refetch page1 from disk")
	}
	testingpkg.Equals(t, "hello", string(page1.Data()[:5]))
}

func TestDeletePageFailsWhilePinned(t *testing.T) {
	dm := disk.NewDiskManagerTest()
	defer dm.ShutDown()
	bpm := NewBufferPoolManager(4, dm, nil)

	p := bpm.NewPage()
	if err := bpm.DeletePage(p.ID()); err == nil {
		t.Fatalf("expected DeletePage to fail on a pinned page")
	}
	testingpkg.Ok(t, bpm.UnpinPage(p.ID(), false))
	testingpkg.Ok(t, bpm.DeletePage(p.ID()))
}
