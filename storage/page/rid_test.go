package page

import (
	"testing"

	testingpkg "github.com/ryogrid/SamehadaDB/testing/testing_util"
	"github.com/ryogrid/SamehadaDB/types"
)

func TestRID(t *testing.T) {
	rid := RID{}
	rid.Set(types.PageID(0), uint32(0))
	testingpkg.Equals(t, types.PageID(0), rid.GetPageId())
	testingpkg.Equals(t, uint32(0), rid.GetSlotNum())
}

func TestRIDSerializeRoundTrip(t *testing.T) {
	rid := NewRID(types.PageID(7), uint32(3))
	decoded := NewRIDFromBytes(rid.Serialize())
	testingpkg.Equals(t, true, rid.Equals(decoded))
}
