package access

import (
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	stack "github.com/golang-collections/collections/stack"
	pair "github.com/notEpsilon/go-pair"
	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/ryogrid/SamehadaDB/common"
	"github.com/ryogrid/SamehadaDB/errors"
	"github.com/ryogrid/SamehadaDB/storage/page"
	"github.com/ryogrid/SamehadaDB/types"
)

// LockOnShrinking is returned when a transaction in the SHRINKING phase
// tries to acquire a new lock under REPEATABLE_READ.
const LockOnShrinking = errors.Error("lock manager: transaction is in the shrinking phase")

// UpgradeConflict names the abort reason when two transactions race to
// upgrade the same RID from shared to exclusive. LockUpgrade does not
// return it: the loser is set to ABORTED and LockUpgrade returns false.
const UpgradeConflict = errors.Error("lock manager: another transaction is already upgrading this rid")

// SharedOnReadUncommitted is returned when a READ_UNCOMMITTED transaction
// asks for a shared lock, which it never needs since it doesn't hold
// shared locks across its own reads.
const SharedOnReadUncommitted = errors.Error("lock manager: read-uncommitted transactions may not take shared locks")

// Deadlock names the abort reason of a transaction chosen as a
// cycle-breaking victim. The Lock* methods do not return it; they report
// a victim (or an already-ABORTED caller) only as a false return.
const Deadlock = errors.Error("lock manager: aborted to break a deadlock cycle")

// LockMode is the mode a LockRequest asks for or holds.
type LockMode int32

const (
	SHARED LockMode = iota
	EXCLUSIVE
)

// LockRequest is one entry in a RID's FIFO wait queue.
type LockRequest struct {
	txnID   types.TxnID
	mode    LockMode
	granted bool
}

// LockRequestQueue is the per-RID wait queue. cond wakes waiters whenever
// the queue's granted set changes (a grant, an upgrade, or a release).
type LockRequestQueue struct {
	requests  []*LockRequest
	upgrading bool
	cond      *sync.Cond
}

func newLockRequestQueue(mu sync.Locker) *LockRequestQueue {
	return &LockRequestQueue{cond: sync.NewCond(mu)}
}

// LockManager implements record-level two-phase locking: under
// REPEATABLE_READ, the first Unlock moves a GROWING transaction to
// SHRINKING, after which it may acquire no new lock. It enforces isolation-level-specific acquisition rules and runs a
// background wait-for-graph cycle detector to break deadlocks.
type LockManager struct {
	mu deadlock.Mutex

	lockTable map[page.RID]*LockRequestQueue

	// victims records transactions the background detector has already
	// chosen to abort. It is a field, not process-global state, since two
	// independently constructed LockManagers (e.g. across sequential test
	// DB instances) each pair with a TransactionManager whose txn ids
	// restart at 0, so the same small id can legitimately belong to
	// unrelated transactions in different instances.
	victims *victimSet

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewLockManager() *LockManager {
	return &LockManager{
		lockTable: make(map[page.RID]*LockRequestQueue),
		victims:   &victimSet{},
	}
}

// RunCycleDetection starts the background deadlock detector. It rebuilds
// the wait-for graph from the lock table every common.CycleDetectionInterval
// and aborts the youngest transaction in any cycle it finds, repeating
// until the graph built from the current lock table is acyclic.
func (lm *LockManager) RunCycleDetection() {
	lm.mu.Lock()
	if lm.stopCh != nil {
		lm.mu.Unlock()
		return
	}
	lm.stopCh = make(chan struct{})
	lm.doneCh = make(chan struct{})
	stopCh, doneCh := lm.stopCh, lm.doneCh
	lm.mu.Unlock()

	go func() {
		defer close(doneCh)
		ticker := time.NewTicker(common.CycleDetectionInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				lm.runDetectionPass()
			}
		}
	}()
}

func (lm *LockManager) StopCycleDetection() {
	lm.mu.Lock()
	if lm.stopCh == nil {
		lm.mu.Unlock()
		return
	}
	stopCh, doneCh := lm.stopCh, lm.doneCh
	lm.stopCh = nil
	lm.mu.Unlock()
	close(stopCh)
	<-doneCh
}

// runDetectionPass rebuilds the wait-for graph and aborts the youngest
// transaction of every cycle it finds, repeating until acyclic.
func (lm *LockManager) runDetectionPass() {
	for {
		lm.mu.Lock()
		graph := lm.buildWaitForGraphLocked()
		victim, found := findCycleVictim(graph)
		if !found {
			lm.mu.Unlock()
			return
		}
		queues := lm.abortedByDetector(victim)
		lm.mu.Unlock()

		common.Log().Infow("deadlock detected, aborting transaction", "txn_id", victim)
		for _, q := range queues {
			q.cond.Broadcast()
		}
	}
}

// abortedByDetector drops every pending request from victim across the
// lock table and returns the queues that changed, so the caller can wake
// any goroutine waiting behind it. Caller holds lm.mu.
func (lm *LockManager) abortedByDetector(victim types.TxnID) []*LockRequestQueue {
	lm.victims.Add(victim)
	touched := make([]*LockRequestQueue, 0)
	for _, queue := range lm.lockTable {
		kept := queue.requests[:0]
		changed := false
		for _, r := range queue.requests {
			if r.txnID == victim && !r.granted {
				changed = true
				continue
			}
			kept = append(kept, r)
		}
		queue.requests = kept
		if changed {
			touched = append(touched, queue)
		}
	}
	return touched
}

// buildWaitForGraphLocked returns, for each blocked transaction, the set
// of transactions ahead of it in some queue that it must wait on. Caller
// must hold lm.mu.
func (lm *LockManager) buildWaitForGraphLocked() map[types.TxnID]mapset.Set[types.TxnID] {
	graph := make(map[types.TxnID]mapset.Set[types.TxnID])
	for _, queue := range lm.lockTable {
		for i, req := range queue.requests {
			if req.granted {
				continue
			}
			for j := 0; j < i; j++ {
				holder := queue.requests[j]
				if holder.mode == SHARED && req.mode == SHARED {
					continue
				}
				if _, ok := graph[req.txnID]; !ok {
					graph[req.txnID] = mapset.NewThreadUnsafeSet[types.TxnID]()
				}
				graph[req.txnID].Add(holder.txnID)
			}
		}
	}
	return graph
}

// findCycleVictim runs DFS from every node in ascending txn-id order,
// picking neighbors in ascending order too, and returns the youngest
// (highest) txn id on the first cycle found.
func findCycleVictim(graph map[types.TxnID]mapset.Set[types.TxnID]) (types.TxnID, bool) {
	nodes := make([]types.TxnID, 0, len(graph))
	for n := range graph {
		nodes = append(nodes, n)
	}
	sortTxnIDs(nodes)

	visited := mapset.NewThreadUnsafeSet[types.TxnID]()
	onStack := mapset.NewThreadUnsafeSet[types.TxnID]()

	// pathStack mirrors the DFS recursion path so that, once a back edge
	// to start closes a cycle, the youngest (highest) txn id on that cycle
	// (the path from start down to the current node) can be picked as the
	// victim.
	pathStack := stack.New()
	pathStackYoungest := func(start types.TxnID) types.TxnID {
		var popped []types.TxnID
		youngest := start
		for pathStack.Len() > 0 {
			v := pathStack.Pop().(types.TxnID)
			popped = append(popped, v)
			if v > youngest {
				youngest = v
			}
			if v == start {
				break
			}
		}
		for i := len(popped) - 1; i >= 0; i-- {
			pathStack.Push(popped[i])
		}
		return youngest
	}

	var dfs func(n types.TxnID) (types.TxnID, bool)
	dfs = func(n types.TxnID) (types.TxnID, bool) {
		visited.Add(n)
		onStack.Add(n)
		pathStack.Push(n)

		neighbors := make([]types.TxnID, 0)
		if set, ok := graph[n]; ok {
			for v := range set.Iter() {
				neighbors = append(neighbors, v)
			}
		}
		sortTxnIDs(neighbors)

		for _, nb := range neighbors {
			if onStack.Contains(nb) {
				youngest := pathStackYoungest(nb)
				if nb > youngest {
					youngest = nb
				}
				return youngest, true
			}
			if !visited.Contains(nb) {
				if v, ok := dfs(nb); ok {
					return v, true
				}
			}
		}

		onStack.Remove(n)
		pathStack.Pop()
		return 0, false
	}

	for _, n := range nodes {
		if !visited.Contains(n) {
			if v, ok := dfs(n); ok {
				return v, true
			}
		}
	}
	return 0, false
}

func sortTxnIDs(ids []types.TxnID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

// GetEdgeList returns every waits-for edge currently derivable from the
// lock table, for tests that assert on deadlock detector wiring.
func (lm *LockManager) GetEdgeList() []pair.Pair[types.TxnID, types.TxnID] {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	graph := lm.buildWaitForGraphLocked()
	edges := make([]pair.Pair[types.TxnID, types.TxnID], 0)
	froms := make([]types.TxnID, 0, len(graph))
	for from := range graph {
		froms = append(froms, from)
	}
	sortTxnIDs(froms)
	for _, from := range froms {
		tos := make([]types.TxnID, 0, graph[from].Cardinality())
		for to := range graph[from].Iter() {
			tos = append(tos, to)
		}
		sortTxnIDs(tos)
		for _, to := range tos {
			edges = append(edges, *pair.New(from, to))
		}
	}
	return edges
}

// victimSet records transactions the background detector has already
// aborted, so a request that was mid-wait when it happened can tell the
// difference between "granted" and "aborted" once it wakes up.
type victimSet struct {
	mu deadlock.Mutex
	m  map[types.TxnID]bool
}

func (v *victimSet) Add(id types.TxnID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.m == nil {
		v.m = make(map[types.TxnID]bool)
	}
	v.m[id] = true
}

func (v *victimSet) Has(id types.TxnID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.m[id]
}

// enforceAcquireRules applies the isolation-level state machine shared by
// LockShared and LockExclusive. Returns a non-nil error if the request
// must be rejected outright, without ever touching the lock table.
func enforceAcquireRules(txn *Transaction, mode LockMode) error {
	if txn.GetState() == ABORTED {
		return Deadlock
	}
	if mode == SHARED && txn.GetIsolationLevel() == READ_UNCOMMITTED {
		return SharedOnReadUncommitted
	}
	if txn.GetState() == SHRINKING {
		if txn.GetIsolationLevel() == REPEATABLE_READ {
			return LockOnShrinking
		}
		if mode == EXCLUSIVE {
			return LockOnShrinking
		}
	}
	return nil
}

func (lm *LockManager) queueFor(rid page.RID) *LockRequestQueue {
	q, ok := lm.lockTable[rid]
	if !ok {
		q = newLockRequestQueue(&lm.mu)
		lm.lockTable[rid] = q
	}
	return q
}

// canGrantLocked reports whether req, at its current position in q, can be
// granted: every earlier request must already be granted and compatible.
func canGrantLocked(q *LockRequestQueue, req *LockRequest) bool {
	for _, other := range q.requests {
		if other == req {
			return true
		}
		if !other.granted {
			return false
		}
		if other.mode == EXCLUSIVE || req.mode == EXCLUSIVE {
			return false
		}
	}
	return true
}

// LockShared acquires rid in shared mode, blocking the calling goroutine
// until granted, aborted (deadlock victim) or rejected by isolation rules.
func (lm *LockManager) LockShared(txn *Transaction, rid *page.RID) bool {
	if txn.IsSharedLocked(rid) || txn.IsExclusiveLocked(rid) {
		return true
	}
	if err := enforceAcquireRules(txn, SHARED); err != nil {
		txn.SetState(ABORTED)
		return false
	}

	lm.mu.Lock()
	q := lm.queueFor(*rid)
	req := &LockRequest{txnID: txn.GetTransactionId(), mode: SHARED}
	q.requests = append(q.requests, req)

	for {
		if lm.victims.Has(txn.GetTransactionId()) {
			lm.removeRequestLocked(q, req)
			lm.mu.Unlock()
			txn.SetState(ABORTED)
			return false
		}
		if canGrantLocked(q, req) {
			req.granted = true
			break
		}
		q.cond.Wait()
	}
	lm.mu.Unlock()

	slocks := append(txn.GetSharedLockSet(), *rid)
	txn.SetSharedLockSet(slocks)
	return true
}

// LockExclusive acquires rid in exclusive mode; semantics mirror LockShared.
func (lm *LockManager) LockExclusive(txn *Transaction, rid *page.RID) bool {
	if txn.IsExclusiveLocked(rid) {
		return true
	}
	if err := enforceAcquireRules(txn, EXCLUSIVE); err != nil {
		txn.SetState(ABORTED)
		return false
	}

	lm.mu.Lock()
	q := lm.queueFor(*rid)
	req := &LockRequest{txnID: txn.GetTransactionId(), mode: EXCLUSIVE}
	q.requests = append(q.requests, req)

	for {
		if lm.victims.Has(txn.GetTransactionId()) {
			lm.removeRequestLocked(q, req)
			lm.mu.Unlock()
			txn.SetState(ABORTED)
			return false
		}
		if canGrantLocked(q, req) {
			req.granted = true
			break
		}
		q.cond.Wait()
	}
	lm.mu.Unlock()

	elocks := append(txn.GetExclusiveLockSet(), *rid)
	txn.SetExclusiveLockSet(elocks)
	return true
}

// LockUpgrade upgrades an already shared-held rid to exclusive. Only one
// transaction may be upgrading a given rid at a time; a second upgrader
// is set to ABORTED immediately and gets false rather than being queued.
func (lm *LockManager) LockUpgrade(txn *Transaction, rid *page.RID) bool {
	if !txn.IsSharedLocked(rid) {
		panic("LockUpgrade: RID is not locked in shared mode")
	}
	if txn.GetState() == SHRINKING && txn.GetIsolationLevel() == REPEATABLE_READ {
		txn.SetState(ABORTED)
		return false
	}

	lm.mu.Lock()
	q := lm.queueFor(*rid)
	if q.upgrading {
		lm.mu.Unlock()
		txn.SetState(ABORTED)
		return false
	}
	q.upgrading = true

	var self *LockRequest
	for _, r := range q.requests {
		if r.txnID == txn.GetTransactionId() {
			self = r
			break
		}
	}
	self.mode = EXCLUSIVE
	self.granted = false

	for {
		if lm.victims.Has(txn.GetTransactionId()) {
			lm.removeRequestLocked(q, self)
			q.upgrading = false
			lm.mu.Unlock()
			txn.SetState(ABORTED)
			return false
		}
		if canGrantLocked(q, self) {
			self.granted = true
			q.upgrading = false
			break
		}
		q.cond.Wait()
	}
	lm.mu.Unlock()

	slocks := removeRID(txn.GetSharedLockSet(), *rid)
	txn.SetSharedLockSet(slocks)
	elocks := append(txn.GetExclusiveLockSet(), *rid)
	txn.SetExclusiveLockSet(elocks)
	return true
}

func removeRID(list []page.RID, rid page.RID) []page.RID {
	for i, r := range list {
		if r == rid {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// removeRequestLocked drops req from q's queue. Caller holds lm.mu.
func (lm *LockManager) removeRequestLocked(q *LockRequestQueue, req *LockRequest) {
	for i, r := range q.requests {
		if r == req {
			q.requests = append(q.requests[:i], q.requests[i+1:]...)
			break
		}
	}
}

// Unlock releases every rid in rid_list held by txn. If txn is still
// GROWING under REPEATABLE_READ, releasing a lock moves it to SHRINKING
// per two-phase locking.
func (lm *LockManager) Unlock(txn *Transaction, rid_list []page.RID) bool {
	lm.mu.Lock()
	for _, rid := range rid_list {
		q, ok := lm.lockTable[rid]
		if !ok {
			continue
		}
		for i, r := range q.requests {
			if r.txnID == txn.GetTransactionId() && r.granted {
				q.requests = append(q.requests[:i], q.requests[i+1:]...)
				break
			}
		}
		q.cond.Broadcast()
	}
	lm.mu.Unlock()

	if txn.GetIsolationLevel() == REPEATABLE_READ && txn.GetState() == GROWING {
		txn.SetState(SHRINKING)
	}
	return true
}
