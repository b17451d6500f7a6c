package disk

import (
	"github.com/ryogrid/SamehadaDB/types"
)

// DiskManager is responsible for interacting with disk: reading and writing
// fixed-size data pages, allocating fresh page ids, and appending to the
// write-ahead log file.
type DiskManager interface {
	ReadPage(types.PageID, []byte) error
	WritePage(types.PageID, []byte) error
	AllocatePage() types.PageID
	DeallocatePage(types.PageID)
	GetNumWrites() uint64
	ShutDown()
	Size() int64

	// WriteLog appends one flushed log block, sequentially, to the log file.
	WriteLog(logData []byte) error
	// ReadLog reads len(logData) bytes starting at offset into logData,
	// zero-filling any trailing bytes past EOF. Returns false at EOF.
	ReadLog(logData []byte, offset int32) bool
	GetLogFileSize() int64
}
