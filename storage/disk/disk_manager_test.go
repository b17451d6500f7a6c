package disk

import (
	"testing"

	"github.com/ryogrid/SamehadaDB/common"
	testingpkg "github.com/ryogrid/SamehadaDB/testing/testing_util"
)

func TestReadWritePage(t *testing.T) {
	dm := NewDiskManagerTest()
	defer dm.ShutDown()

	data := make([]byte, common.PageSize)
	buffer := make([]byte, common.PageSize)

	copy(data, "A test string.")

	dm.ReadPage(0, buffer) // tolerate empty read
	dm.WritePage(0, data)
	dm.ReadPage(0, buffer)
	testingpkg.Equals(t, data, buffer)

	memset(buffer)
	copy(data, "Another test string.")

	dm.WritePage(5, data)
	dm.ReadPage(5, buffer)
	testingpkg.Equals(t, data, buffer)
}

func memset(buffer []byte) {
	for i := range buffer {
		buffer[i] = 0
	}
}
