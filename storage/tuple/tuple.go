// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package tuple

import (
	"bytes"
	"encoding/binary"
	"github.com/ryogrid/SamehadaDB/storage/page"
	"github.com/ryogrid/SamehadaDB/storage/table/schema"
	"github.com/ryogrid/SamehadaDB/types"
)

// TupleSizeOffsetInLogrecord is how many bytes SerializeTo/DeserializeFrom
// reserve up front for the tuple's size field.
var TupleSizeOffsetInLogrecord = 4

// Tuple is a row's on-disk byte layout: fixed-length columns store their
// value inline at their schema offset, variable-length columns store a
// 4-byte offset into the tail of the tuple where the payload actually
// lives.
//
//	---------------------------------------------------------------------
//	| FIXED-SIZE or VARIED-SIZED OFFSET | PAYLOAD OF VARIED-SIZED FIELD |
//	---------------------------------------------------------------------
type Tuple struct {
	rid  *page.RID
	size uint32
	data []byte
}

func NewTuple(rid *page.RID, size uint32, data []byte) *Tuple {
	return &Tuple{rid, size, data}
}

// NewTupleFromSchema creates a new tuple based on input value
func NewTupleFromSchema(values []types.Value, schema_ *schema.Schema) *Tuple {
	// calculate tuple size considering varchar columns
	tupleSize := schema_.Length()
	for _, colIndex := range schema_.GetUnlinedColumns() {
		tupleSize += values[colIndex].Size()
	}
	tuple_ := &Tuple{}
	tuple_.size = tupleSize

	// allocate memory
	tuple_.data = make([]byte, tupleSize)

	// serialize each attribute base on the input value
	tupleEndOffset := schema_.Length()
	for i := uint32(0); i < schema_.GetColumnCount(); i++ {
		if schema_.GetColumn(i).IsInlined() {
			tuple_.Copy((*(schema_.GetColumn(i))).GetOffset(), values[i].Serialize())
		} else {
			tuple_.Copy((*(schema_.GetColumn(i))).GetOffset(), types.UInt32(tupleEndOffset).Serialize())
			tuple_.Copy(tupleEndOffset, values[i].Serialize())
			tupleEndOffset += values[i].Size()
		}
	}
	return tuple_
}

// generate tuple obj for index search
// generated tuple filled only specifed column only due to use methods
// defined on Index interface
func GenTupleForIndexSearch(schema_ *schema.Schema, colIndex uint32, keyVal *types.Value) *Tuple {
	if keyVal == nil {
		return nil
	}
	colmuns := schema_.GetColumns()
	values := make([]types.Value, 0)
	for idx, columnObj := range colmuns {
		switch columnObj.GetType() {
		case types.Integer:
			if idx == int(colIndex) {
				values = append(values, *keyVal)
			} else {
				values = append(values, types.NewInteger(0))
			}
		case types.Float:
			if idx == int(colIndex) {
				values = append(values, *keyVal)
			} else {
				values = append(values, types.NewFloat(0.0))
			}
		case types.Varchar:
			if idx == int(colIndex) {
				values = append(values, *keyVal)
			} else {
				values = append(values, types.NewVarchar(""))
			}
		}
	}
	return NewTupleFromSchema(values, schema_)
}

func (t *Tuple) GetValue(schema *schema.Schema, colIndex uint32) types.Value {
	column := *(schema.GetColumn(colIndex))
	offset := column.GetOffset()
	if !column.IsInlined() {
		offset = uint32(types.NewUInt32FromBytes(t.data[offset : offset+column.FixedLength()]))
	}

	value := types.NewValueFromBytes(t.data[offset:], column.GetType())
	if value == nil {
		panic(value)
	}
	return *value
}

func (t *Tuple) GetValueInBytes(schema *schema.Schema, colIndex uint32) []byte {
	column := *(schema.GetColumn(colIndex))
	offset := column.GetOffset()
	if !column.IsInlined() {
		offset = uint32(types.NewUInt32FromBytes(t.data[offset : offset+column.FixedLength()]))
	}

	switch column.GetType() {
	case types.Integer:
		buf := bytes.NewBuffer(t.data[offset:])
		isNull := new(bool)
		binary.Read(buf, binary.LittleEndian, isNull)
		v := new(int32)
		binary.Read(buf, binary.LittleEndian, v)
		retBuf := new(bytes.Buffer)
		binary.Write(retBuf, binary.LittleEndian, *isNull)
		binary.Write(retBuf, binary.LittleEndian, *v)
		return retBuf.Bytes()
	case types.Float:
		buf := bytes.NewBuffer(t.data[offset:])
		isNull := new(bool)
		binary.Read(buf, binary.LittleEndian, isNull)
		v := new(float32)
		binary.Read(buf, binary.LittleEndian, v)
		retBuf := new(bytes.Buffer)
		binary.Write(retBuf, binary.LittleEndian, *isNull)
		binary.Write(retBuf, binary.LittleEndian, *v)
		return retBuf.Bytes()
	case types.Boolean:
		buf := bytes.NewBuffer(t.data[offset:])
		isNull := new(bool)
		binary.Read(buf, binary.LittleEndian, isNull)
		v := new(bool)
		binary.Read(buf, binary.LittleEndian, v)
		retBuf := new(bytes.Buffer)
		binary.Write(retBuf, binary.LittleEndian, *isNull)
		binary.Write(retBuf, binary.LittleEndian, *v)
		return retBuf.Bytes()
	case types.Varchar:
		buf := bytes.NewBuffer(t.data[offset:])
		isNull := new(bool)
		binary.Read(buf, binary.LittleEndian, isNull)
		length := new(int16)
		binary.Read(buf, binary.LittleEndian, length)
		retBuf := new(bytes.Buffer)
		binary.Write(retBuf, binary.LittleEndian, *isNull)
		binary.Write(retBuf, binary.LittleEndian, *length)
		retArr := make([]byte, 0)
		retArr = append(retArr, retBuf.Bytes()...)
		retArr = append(retArr, t.data[offset+(1+2):offset+(uint32(*length)+(1+2))]...)
		return retArr
	default:
		panic("illegal type column found in schema")
	}
}

func (t *Tuple) Size() uint32 {
	return t.size
}

func (t *Tuple) SetSize(size uint32) {
	t.size = size
}

func (t *Tuple) Data() []byte {
	return t.data
}

func (t *Tuple) SetData(data []byte) {
	t.data = data
}

func (t *Tuple) GetRID() *page.RID {
	return t.rid
}

func (t *Tuple) SetRID(rid *page.RID) {
	t.rid = rid
}

func (t *Tuple) Copy(offset uint32, data []byte) {
	copy(t.data[offset:], data)
}

// SerializeTo writes this tuple's size (4 bytes, little-endian) followed
// by its data into storage, the layout a log record's INSERT/APPLYDELETE
// body embeds a tuple in.
func (t *Tuple) SerializeTo(storage []byte) {
	binary.LittleEndian.PutUint32(storage, t.size)
	copy(storage[TupleSizeOffsetInLogrecord:TupleSizeOffsetInLogrecord+int(t.size)], t.data)
}

// DeserializeFrom reads back a tuple SerializeTo wrote.
func (t *Tuple) DeserializeFrom(storage []byte) {
	t.size = binary.LittleEndian.Uint32(storage)
	t.data = make([]byte, t.size)
	copy(t.data, storage[TupleSizeOffsetInLogrecord:TupleSizeOffsetInLogrecord+int(t.size)])
}

// GetDeepCopy returns a copy of t with its own backing array and RID, so
// mutating the copy (or the original getting reused for a different tuple)
// can't be observed through the other.
func (t *Tuple) GetDeepCopy() *Tuple {
	ret := new(Tuple)
	ret.data = make([]byte, t.size)
	copy(ret.data, t.data)
	ret.SetSize(t.size)
	copiedRID := new(page.RID)
	copiedRID.Set(t.rid.GetPageId(), t.rid.GetSlotNum())
	ret.rid = copiedRID
	return ret
}
