package disk

import (
	"github.com/dsnet/golib/memfile"
)

// DiskManagerTest is an in-memory DiskManager for unit tests: no temp
// files, no real I/O, just two memfile-backed byte buffers standing in for
// the data file and the log file.
type DiskManagerTest struct {
	*DiskManagerImpl
}

// closableMemFile adapts *memfile.File to randomAccessFile: memfile.File
// has no Close method since it never holds an OS resource.
type closableMemFile struct {
	*memfile.File
}

func (closableMemFile) Close() error { return nil }

// NewDiskManagerTest returns a DiskManager instance for testing purposes.
func NewDiskManagerTest() DiskManager {
	db := closableMemFile{memfile.New(nil)}
	logFile := closableMemFile{memfile.New(nil)}
	impl := newDiskManagerImpl(db, "memfile-db", logFile, "memfile-log", 0, 0)
	return &DiskManagerTest{impl}
}

// ShutDown for the in-memory test double just closes the memfiles; there is
// no on-disk path to remove.
func (d *DiskManagerTest) ShutDown() {
	d.DiskManagerImpl.ShutDown()
}
