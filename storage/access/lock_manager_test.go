package access

import (
	"testing"
	"time"

	"github.com/ryogrid/SamehadaDB/storage/page"
	testingpkg "github.com/ryogrid/SamehadaDB/testing/testing_util"
)

// TestLockUpgradeConflictAborts checks that a second transaction trying to
// upgrade the same rid while another upgrade is already in flight is
// aborted immediately rather than queued.
func TestLockUpgradeConflictAborts(t *testing.T) {
	lm := NewLockManager()
	rid := page.NewRID(0, 0)

	// txnC's earlier grant is what keeps txnA's upgrade genuinely queued
	// (an upgrade at the front of the queue with nothing granted ahead of
	// it would be granted immediately).
	txnC := NewTransaction(1, REPEATABLE_READ)
	txnA := NewTransaction(2, REPEATABLE_READ)
	txnB := NewTransaction(3, REPEATABLE_READ)

	testingpkg.Equals(t, true, lm.LockShared(txnC, rid))
	testingpkg.Equals(t, true, lm.LockShared(txnA, rid))
	testingpkg.Equals(t, true, lm.LockShared(txnB, rid))

	upgraded := make(chan bool, 1)
	go func() {
		upgraded <- lm.LockUpgrade(txnA, rid)
	}()

	// give txnA's upgrade a chance to mark the queue as upgrading before
	// txnB tries to upgrade too.
	time.Sleep(20 * time.Millisecond)

	testingpkg.Equals(t, false, lm.LockUpgrade(txnB, rid))
	testingpkg.Equals(t, ABORTED, txnB.GetState())

	lm.Unlock(txnC, []page.RID{*rid})
	testingpkg.Equals(t, true, <-upgraded)
}

// TestDeadlockDetectionAbortsVictim builds a two-transaction wait cycle
// (A holds X on rid1 and waits on rid2; B holds X on rid2 and waits on
// rid1) and checks the background detector aborts exactly one of them,
// letting the other proceed.
func TestDeadlockDetectionAbortsVictim(t *testing.T) {
	lm := NewLockManager()
	lm.RunCycleDetection()
	defer lm.StopCycleDetection()

	rid1 := page.NewRID(0, 0)
	rid2 := page.NewRID(0, 1)

	txnA := NewTransaction(10, REPEATABLE_READ)
	txnB := NewTransaction(11, REPEATABLE_READ)

	testingpkg.Equals(t, true, lm.LockExclusive(txnA, rid1))
	testingpkg.Equals(t, true, lm.LockExclusive(txnB, rid2))

	resultA := make(chan bool, 1)
	resultB := make(chan bool, 1)
	go func() { resultA <- lm.LockExclusive(txnA, rid2) }()
	go func() { resultB <- lm.LockExclusive(txnB, rid1) }()

	select {
	case ok := <-resultA:
		// txnA was the victim: it still holds its original grant on rid1
		// (it never got rid2), which is exactly what txnB is blocked on.
		testingpkg.Equals(t, false, ok)
		testingpkg.Equals(t, ABORTED, txnA.GetState())
		lm.Unlock(txnA, []page.RID{*rid1})
		testingpkg.Equals(t, true, <-resultB)
	case ok := <-resultB:
		// txnB was the victim: release its original grant on rid2, which
		// txnA is blocked on.
		testingpkg.Equals(t, false, ok)
		testingpkg.Equals(t, ABORTED, txnB.GetState())
		lm.Unlock(txnB, []page.RID{*rid2})
		testingpkg.Equals(t, true, <-resultA)
	case <-time.After(5 * time.Second):
		t.Fatal("deadlock detector never aborted a victim")
	}
}

// TestSharedLockRejectedUnderReadUncommitted checks the isolation-level
// rule that read uncommitted transactions never take shared locks.
func TestSharedLockRejectedUnderReadUncommitted(t *testing.T) {
	lm := NewLockManager()
	rid := page.NewRID(0, 0)
	txn := NewTransaction(1, READ_UNCOMMITTED)

	testingpkg.Equals(t, false, lm.LockShared(txn, rid))
	testingpkg.Equals(t, ABORTED, txn.GetState())
}

// TestGetEdgeListReflectsWaitForGraph checks the white-box wait-for graph
// accessor reports exactly one edge once one transaction is blocked behind
// another's exclusive lock.
func TestGetEdgeListReflectsWaitForGraph(t *testing.T) {
	lm := NewLockManager()
	rid := page.NewRID(0, 0)

	txnA := NewTransaction(1, REPEATABLE_READ)
	txnB := NewTransaction(2, REPEATABLE_READ)

	testingpkg.Equals(t, true, lm.LockExclusive(txnA, rid))
	testingpkg.Equals(t, 0, len(lm.GetEdgeList()))

	blocked := make(chan bool, 1)
	go func() { blocked <- lm.LockExclusive(txnB, rid) }()
	time.Sleep(20 * time.Millisecond)

	testingpkg.Equals(t, 1, len(lm.GetEdgeList()))

	lm.Unlock(txnA, []page.RID{*rid})
	testingpkg.Equals(t, true, <-blocked)
}
