package test_util

import (
	"github.com/ryogrid/SamehadaDB/recovery"
	"github.com/ryogrid/SamehadaDB/storage/access"
	"github.com/ryogrid/SamehadaDB/storage/buffer"
	"github.com/ryogrid/SamehadaDB/storage/disk"
)

// SamehadaInstance wires together the pieces a catalog or executor test
// needs to stand up: a real (file-backed) disk manager, log manager,
// buffer pool, lock manager, and transaction manager.
type SamehadaInstance struct {
	disk_manager        disk.DiskManager
	log_manager         *recovery.LogManager
	bpm                 *buffer.BufferPoolManager
	lock_manager        *access.LockManager
	transaction_manager *access.TransactionManager
}

func NewSamehadaInstance(dbFilename string, poolSize uint32) *SamehadaInstance {
	disk_manager := disk.NewDiskManagerImpl(dbFilename)
	log_manager := recovery.NewLogManager(disk_manager)
	log_manager.RunFlushThread()
	bpm := buffer.NewBufferPoolManager(poolSize, disk_manager, log_manager)
	lock_manager := access.NewLockManager()
	lock_manager.RunCycleDetection()
	transaction_manager := access.NewTransactionManager(lock_manager, log_manager)
	return &SamehadaInstance{disk_manager, log_manager, bpm, lock_manager, transaction_manager}
}

func (si *SamehadaInstance) GetDiskManager() disk.DiskManager { return si.disk_manager }

func (si *SamehadaInstance) GetLogManager() *recovery.LogManager { return si.log_manager }

func (si *SamehadaInstance) GetBufferPoolManager() *buffer.BufferPoolManager { return si.bpm }

func (si *SamehadaInstance) GetLockManager() *access.LockManager { return si.lock_manager }

func (si *SamehadaInstance) GetTransactionManager() *access.TransactionManager {
	return si.transaction_manager
}

// Shutdown stops the background flush and deadlock-detection threads and
// closes the underlying database file.
func (si *SamehadaInstance) Shutdown() {
	si.log_manager.StopFlushThread()
	si.lock_manager.StopCycleDetection()
	si.disk_manager.ShutDown()
}
