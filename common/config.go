// this code is from https://github.com/pzhzqt/goostub
// there is license and copyright notice in licenses/goostub dir

package common

import (
	"time"
)

// CycleDetectionInterval is how often the lock manager's background
// detector rebuilds the wait-for graph and looks for a cycle.
var CycleDetectionInterval time.Duration = 50 * time.Millisecond
var EnableLogging bool = false

// LogTimeout is how long the log manager's flush thread waits between
// timer-driven flushes when no buffer swap or force-flush has woken it.
var LogTimeout time.Duration = 1 * time.Second
var EnableDebug bool = false

const (
	// invalid page id
	InvalidPageID = -1
	// invalid transaction id
	InvalidTxnID = -1
	// invalid log sequence number
	InvalidLSN = -1
	// the header page id
	HeaderPageID = 0
	// size of a data page in byte
	PageSize = 4096
	// number of frames in the buffer pool
	BufferPoolSize = 64
	// size of buffer pool
	LogBufferPoolSize = 32
	// size of a log buffer in byte
	LogBufferSize = ((LogBufferPoolSize + 1) * PageSize)
	// size of extendible hash bucket
	BucketSize = 50
	// probability used for determin node level on SkipList
	SkipListProb = 0.25

	// maximum number of (key, value) entries a B+ tree leaf page holds
	// before it must split.
	BTreeLeafMaxSize = 254
	// maximum number of (key, child page id) entries a B+ tree internal
	// page holds before it must split. Index 0's key is a sentinel.
	BTreeInternalMaxSize = 254
)

//type FrameID int32 // frame id type
//type PageID int32       // page id type
type TxnID int32 // transaction id type
//type LSN int32          // log sequence number
type SlotOffset uintptr // slot offset type
//type OID uint16
