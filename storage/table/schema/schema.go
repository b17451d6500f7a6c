// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package schema

import (
	"math"

	"github.com/ryogrid/SamehadaDB/storage/table/column"
)

// Schema is the fixed-length layout of one tuple: which columns it has, in
// what order, and at what byte offset each inlined column's value (or, for
// an uninlined column, its offset-into-the-tuple-tail pointer) sits.
type Schema struct {
	length           uint32
	columns          []*column.Column
	tupleIsInlined   bool
	uninlinedColumns []uint32
}

// NewSchema lays out columns back to back, assigning each an offset as a
// side effect, and returns the resulting Schema.
func NewSchema(columns []*column.Column) *Schema {
	s := &Schema{}
	s.tupleIsInlined = true

	var currentOffset uint32
	for i := uint32(0); i < uint32(len(columns)); i++ {
		col := columns[i]

		if !col.IsInlined() {
			s.tupleIsInlined = false
			s.uninlinedColumns = append(s.uninlinedColumns, i)
		}

		col.SetOffset(currentOffset)
		currentOffset += col.FixedLength()

		s.columns = append(s.columns, col)
	}
	s.length = currentOffset
	return s
}

func (s *Schema) GetColumn(colIndex uint32) *column.Column {
	return s.columns[colIndex]
}

func (s *Schema) GetUnlinedColumns() []uint32 {
	return s.uninlinedColumns
}

func (s *Schema) GetColumnCount() uint32 {
	return uint32(len(s.columns))
}

func (s *Schema) Length() uint32 {
	return s.length
}

func (s *Schema) GetColIndex(columnName string) uint32 {
	for i := uint32(0); i < s.GetColumnCount(); i++ {
		if s.columns[i].GetColumnName() == columnName {
			return i
		}
	}

	return math.MaxUint32
}

func (s *Schema) GetColumns() []*column.Column {
	return s.columns
}

func (s *Schema) IsHaveColumn(columnName *string) bool {
	for _, col := range s.columns {
		if col.GetColumnName() == *columnName {
			return true
		}
	}
	return false
}

// CopySchema builds a new schema containing only from's columns named by
// attrs (in that order), with offsets recomputed for the narrower layout —
// used to derive an index's key schema from its table's tuple schema.
// Columns are copied by value first so recomputing offsets never mutates
// from's own columns.
func CopySchema(from *Schema, attrs []uint32) *Schema {
	cols := make([]*column.Column, len(attrs))
	for i, attrIdx := range attrs {
		colCopy := *from.columns[attrIdx]
		cols[i] = &colCopy
	}
	return NewSchema(cols)
}
