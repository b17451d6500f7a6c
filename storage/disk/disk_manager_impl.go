// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package disk

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/ryogrid/SamehadaDB/common"
	"github.com/ryogrid/SamehadaDB/types"
)

// randomAccessFile is the surface both *os.File and the in-memory test
// double need to support; every disk access in this package goes through
// ReadAt/WriteAt so callers never race each other over a shared seek
// position.
type randomAccessFile interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
}

// DiskManagerImpl is the disk implementation of DiskManager
type DiskManagerImpl struct {
	mu           sync.Mutex
	db           randomAccessFile
	fileName     string
	logFile      randomAccessFile
	fileName_log string
	nextPageID   types.PageID
	numWrites    uint64
	size         int64
	logSize      int64
	numFlushes   uint64
}

// NewDiskManagerImpl returns a DiskManager instance backed by real files.
func NewDiskManagerImpl(dbFilename string) DiskManager {
	file, err := os.OpenFile(dbFilename, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		log.Fatalln("can't open db file")
		return nil
	}

	logfname := dbFilename + ".log"
	if idx := strings.LastIndex(dbFilename, "."); idx >= 0 {
		logfname = dbFilename[:idx] + ".log"
	}
	logFile, err := os.OpenFile(logfname, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		log.Fatalln("can't open log file")
		return nil
	}

	fileInfo, err := file.Stat()
	if err != nil {
		log.Fatalln("file info error")
		return nil
	}
	logInfo, err := logFile.Stat()
	if err != nil {
		log.Fatalln("file info error (log file)")
		return nil
	}

	return newDiskManagerImpl(file, dbFilename, logFile, logfname, fileInfo.Size(), logInfo.Size())
}

func newDiskManagerImpl(db randomAccessFile, dbFilename string, logFile randomAccessFile, logfname string, dbSize, logSize int64) *DiskManagerImpl {
	nPages := dbSize / common.PageSize
	nextPageID := types.PageID(0)
	if nPages > 0 {
		nextPageID = types.PageID(int32(nPages))
	}
	return &DiskManagerImpl{
		db:           db,
		fileName:     dbFilename,
		logFile:      logFile,
		fileName_log: logfname,
		nextPageID:   nextPageID,
		size:         dbSize,
		logSize:      logSize,
	}
}

// ShutDown closes the database and log files
func (d *DiskManagerImpl) ShutDown() {
	d.db.Close()
	d.logFile.Close()
}

// WritePage writes a page to the database file
func (d *DiskManagerImpl) WritePage(pageId types.PageID, pageData []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	offset := int64(pageId) * common.PageSize
	bytesWritten, err := d.db.WriteAt(pageData, offset)
	if err != nil {
		return err
	}
	if bytesWritten != common.PageSize {
		return fmt.Errorf("bytes written not equals page size")
	}
	if offset+int64(bytesWritten) > d.size {
		d.size = offset + int64(bytesWritten)
	}
	d.numWrites++
	return nil
}

// ReadPage reads a page from the database file
func (d *DiskManagerImpl) ReadPage(pageID types.PageID, pageData []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	offset := int64(pageID) * common.PageSize
	if offset >= d.size {
		return fmt.Errorf("I/O error past end of file")
	}

	bytesRead, err := d.db.ReadAt(pageData, offset)
	if err != nil && err != io.EOF {
		return fmt.Errorf("I/O error while reading: %w", err)
	}
	if bytesRead < common.PageSize {
		for i := bytesRead; i < common.PageSize; i++ {
			pageData[i] = 0
		}
	}
	return nil
}

// AllocatePage allocates a new page id. It keeps a simple increasing
// counter; freed page ids are not reused here (only via the buffer pool's
// deallocated-page free list, see storage/buffer).
func (d *DiskManagerImpl) AllocatePage() types.PageID {
	d.mu.Lock()
	defer d.mu.Unlock()
	ret := d.nextPageID
	d.nextPageID++
	return ret
}

// DeallocatePage is a no-op: this design never reclaims file space, only
// page ids (through the buffer pool's free list).
func (d *DiskManagerImpl) DeallocatePage(pageID types.PageID) {}

func (d *DiskManagerImpl) GetNumWrites() uint64 {
	return d.numWrites
}

func (d *DiskManagerImpl) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.size
}

// RemoveDBFile removes the backing db file. Call only after ShutDown.
func (d *DiskManagerImpl) RemoveDBFile() {
	os.Remove(d.fileName)
}

// RemoveLogFile removes the backing log file. Call only after ShutDown.
func (d *DiskManagerImpl) RemoveLogFile() {
	os.Remove(d.fileName_log)
}

// WriteLog appends one flushed log block to the log file, sequentially.
func (d *DiskManagerImpl) WriteLog(logData []byte) error {
	if len(logData) == 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	offset := d.logSize
	n, err := d.logFile.WriteAt(logData, offset)
	if err != nil {
		return fmt.Errorf("I/O error while writing log: %w", err)
	}
	d.logSize += int64(n)
	d.numFlushes++
	return nil
}

// ReadLog reads len(logData) bytes starting at offset, zero-filling any
// trailing bytes past end-of-file. Returns false once offset is at or past
// the end of the log file.
func (d *DiskManagerImpl) ReadLog(logData []byte, offset int32) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if int64(offset) >= d.logSize {
		return false
	}

	readBytes, err := d.logFile.ReadAt(logData, int64(offset))
	if err != nil && err != io.EOF {
		return false
	}
	if readBytes < len(logData) {
		for i := readBytes; i < len(logData); i++ {
			logData[i] = 0
		}
	}
	return true
}

func (d *DiskManagerImpl) GetLogFileSize() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.logSize
}
