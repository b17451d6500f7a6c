package recovery

import (
	"sync"
	"time"

	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/ryogrid/SamehadaDB/common"
	"github.com/ryogrid/SamehadaDB/storage/disk"
	"github.com/ryogrid/SamehadaDB/types"
)

// LogManager owns the double-buffered group-commit log: appenders write
// into log_buffer under a latch; a background thread (or a forced caller)
// swaps log_buffer with flush_buffer and writes the flushed buffer to disk
// sequentially.
type LogManager struct {
	mu   deadlock.Mutex
	cond *sync.Cond

	offset         uint32
	log_buffer_lsn types.LSN
	next_lsn       types.LSN
	persistent_lsn types.LSN
	log_buffer     []byte
	flush_buffer   []byte

	disk_manager disk.DiskManager

	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewLogManager(diskManager disk.DiskManager) *LogManager {
	lm := &LogManager{
		next_lsn:       0,
		persistent_lsn: types.InvalidLSN,
		disk_manager:   diskManager,
		log_buffer:     make([]byte, common.LogBufferSize),
		flush_buffer:   make([]byte, common.LogBufferSize),
	}
	lm.cond = sync.NewCond(&lm.mu)
	return lm
}

func (lm *LogManager) GetNextLSN() types.LSN       { return lm.next_lsn }
func (lm *LogManager) GetPersistentLSN() types.LSN { return lm.persistent_lsn }

// IsEnabledLogging reports whether the background flush thread is running.
// Callers on the hot write path (Begin/Commit/Abort) skip WAL writes
// entirely when it is not, letting tests run without a disk-backed log.
func (lm *LogManager) IsEnabledLogging() bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.running
}

// RunFlushThread starts the background timer-driven flush goroutine and
// enables logging. Must be called after the log manager's dependencies
// (the disk manager) are constructed.
func (lm *LogManager) RunFlushThread() {
	lm.mu.Lock()
	if lm.running {
		lm.mu.Unlock()
		return
	}
	lm.running = true
	lm.stopCh = make(chan struct{})
	lm.doneCh = make(chan struct{})
	lm.mu.Unlock()

	common.EnableLogging = true

	go func() {
		defer close(lm.doneCh)
		ticker := time.NewTicker(common.LogTimeout)
		defer ticker.Stop()
		for {
			select {
			case <-lm.stopCh:
				lm.mu.Lock()
				lm.flushLocked()
				lm.mu.Unlock()
				return
			case <-ticker.C:
				lm.mu.Lock()
				lm.flushLocked()
				lm.mu.Unlock()
			}
		}
	}()
}

// StopFlushThread stops and joins the background flush goroutine, flushing
// whatever remains buffered first.
func (lm *LogManager) StopFlushThread() {
	lm.mu.Lock()
	if !lm.running {
		lm.mu.Unlock()
		return
	}
	lm.running = false
	stopCh, doneCh := lm.stopCh, lm.doneCh
	lm.mu.Unlock()

	common.EnableLogging = false
	close(stopCh)
	<-doneCh
}

// flushLocked swaps log_buffer/flush_buffer and writes flush_buffer to
// disk, iff anything is buffered. Caller must hold lm.mu.
func (lm *LogManager) flushLocked() {
	if lm.offset == 0 {
		return
	}
	lsn := lm.log_buffer_lsn
	offset := lm.offset
	lm.offset = 0
	lm.log_buffer, lm.flush_buffer = lm.flush_buffer, lm.log_buffer

	toWrite := lm.flush_buffer[:offset]
	lm.disk_manager.WriteLog(toWrite)

	lm.persistent_lsn = lsn
	lm.cond.Broadcast()
}

// Flush writes the buffered log to disk until every record up to upToLSN
// is durable; it does nothing once the persistent LSN has already reached
// upToLSN or when nothing is buffered. Callers that need a
// specific LSN durable (the buffer pool, about to evict a page stamped
// with upToLSN) must have already appended every record up to and
// including upToLSN before calling this.
func (lm *LogManager) Flush(upToLSN types.LSN) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	for lm.persistent_lsn < upToLSN && lm.offset > 0 {
		lm.flushLocked()
	}
}

// AppendLogRecord serializes record into the log buffer, assigning it the
// next LSN, and returns that LSN. If the record does not fit, the current
// buffer is flushed first.
func (lm *LogManager) AppendLogRecord(record *LogRecord) types.LSN {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if common.LogBufferSize-int(lm.offset) < int(record.Size) {
		lm.flushLocked()
	}

	record.Lsn = lm.next_lsn
	lm.next_lsn++
	lm.log_buffer_lsn = record.Lsn

	copy(lm.log_buffer[lm.offset:], record.GetLogHeaderData())
	pos := lm.offset + HEADER_SIZE

	switch record.Log_record_type {
	case INSERT:
		copy(lm.log_buffer[pos:], record.Insert_rid.Serialize())
		record.Insert_tuple.SerializeTo(lm.log_buffer[pos+8:])
	case MARKDELETE, APPLYDELETE, ROLLBACKDELETE:
		copy(lm.log_buffer[pos:], record.Delete_rid.Serialize())
		record.Delete_tuple.SerializeTo(lm.log_buffer[pos+8:])
	case UPDATE:
		copy(lm.log_buffer[pos:], record.Update_rid.Serialize())
		record.Old_tuple.SerializeTo(lm.log_buffer[pos+8:])
		record.New_tuple.SerializeTo(lm.log_buffer[pos+8+bodySize(record.Old_tuple):])
	case NEWPAGE:
		putUint32(lm.log_buffer[pos:], uint32(record.Prev_page_id))
		putUint32(lm.log_buffer[pos+4:], uint32(record.Page_id))
	case BEGIN, COMMIT, ABORT:
		// header only
	}

	lm.offset += record.Size
	return record.Lsn
}

func putUint32(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}
