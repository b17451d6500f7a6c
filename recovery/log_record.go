package recovery

import (
	"encoding/binary"

	"github.com/ryogrid/SamehadaDB/storage/page"
	"github.com/ryogrid/SamehadaDB/storage/tuple"
	"github.com/ryogrid/SamehadaDB/types"
)

// LogRecordType is the kind discriminator in a log record's common header.
type LogRecordType int32

const (
	INVALID LogRecordType = iota
	INSERT
	MARKDELETE
	APPLYDELETE
	ROLLBACKDELETE
	UPDATE
	NEWPAGE
	BEGIN
	COMMIT
	ABORT
)

// HEADER_SIZE is the size in bytes of the common log record header:
// int32 size | int32 lsn | int32 txn_id | int32 prev_lsn | int32 kind.
const HEADER_SIZE uint32 = 20

// LogRecord is a variable-length WAL record. Only the fields relevant to
// Log_record_type are meaningful; the others are zero values.
type LogRecord struct {
	Size            uint32
	Lsn             types.LSN
	Txn_id          types.TxnID
	Prev_lsn        types.LSN
	Log_record_type LogRecordType

	// INSERT
	Insert_rid   page.RID
	Insert_tuple tuple.Tuple

	// MARKDELETE / APPLYDELETE / ROLLBACKDELETE
	Delete_rid   page.RID
	Delete_tuple tuple.Tuple

	// UPDATE
	Update_rid page.RID
	Old_tuple  tuple.Tuple
	New_tuple  tuple.Tuple

	// NEWPAGE
	Prev_page_id types.PageID
	Page_id      types.PageID
}

func bodySize(t tuple.Tuple) uint32 {
	return uint32(tuple.TupleSizeOffsetInLogrecord) + t.Size()
}

// NewLogRecordTxn builds a BEGIN, COMMIT or ABORT record (header only).
func NewLogRecordTxn(txnID types.TxnID, prevLSN types.LSN, kind LogRecordType) *LogRecord {
	return &LogRecord{Size: HEADER_SIZE, Txn_id: txnID, Prev_lsn: prevLSN, Log_record_type: kind}
}

// NewLogRecordInsertDelete builds an INSERT, MARKDELETE, APPLYDELETE or
// ROLLBACKDELETE record.
func NewLogRecordInsertDelete(txnID types.TxnID, prevLSN types.LSN, kind LogRecordType, rid page.RID, t *tuple.Tuple) *LogRecord {
	size := HEADER_SIZE + 8 + bodySize(*t)
	rec := &LogRecord{Size: size, Txn_id: txnID, Prev_lsn: prevLSN, Log_record_type: kind}
	switch kind {
	case INSERT:
		rec.Insert_rid = rid
		rec.Insert_tuple = *t
	default:
		rec.Delete_rid = rid
		rec.Delete_tuple = *t
	}
	return rec
}

// NewLogRecordUpdate builds an UPDATE record.
func NewLogRecordUpdate(txnID types.TxnID, prevLSN types.LSN, kind LogRecordType, rid page.RID, oldTuple, newTuple tuple.Tuple) *LogRecord {
	size := HEADER_SIZE + 8 + bodySize(oldTuple) + bodySize(newTuple)
	return &LogRecord{
		Size: size, Txn_id: txnID, Prev_lsn: prevLSN, Log_record_type: kind,
		Update_rid: rid, Old_tuple: oldTuple, New_tuple: newTuple,
	}
}

// NewLogRecordNewPage builds a NEW_PAGE record carrying the predecessor
// page id; the caller (TablePage.Init) sets Page_id to the page being
// initialized before appending the record.
func NewLogRecordNewPage(txnID types.TxnID, prevLSN types.LSN, kind LogRecordType, prevPageID types.PageID) *LogRecord {
	return &LogRecord{
		Size: HEADER_SIZE + 8, Txn_id: txnID, Prev_lsn: prevLSN, Log_record_type: kind,
		Prev_page_id: prevPageID,
	}
}

func (r *LogRecord) GetSize() uint32                    { return r.Size }
func (r *LogRecord) GetLSN() types.LSN                  { return r.Lsn }
func (r *LogRecord) GetTxnId() types.TxnID              { return r.Txn_id }
func (r *LogRecord) GetPrevLSN() types.LSN              { return r.Prev_lsn }
func (r *LogRecord) GetLogRecordType() LogRecordType    { return r.Log_record_type }
func (r *LogRecord) GetInsertRID() page.RID             { return r.Insert_rid }
func (r *LogRecord) GetInsertedTuple() tuple.Tuple      { return r.Insert_tuple }
func (r *LogRecord) GetDeleteRID() page.RID             { return r.Delete_rid }
func (r *LogRecord) GetDeletedTuple() tuple.Tuple       { return r.Delete_tuple }

// GetLogHeaderData serializes the 20-byte common header:
// int32 size | int32 lsn | int32 txn_id | int32 prev_lsn | int32 kind.
func (r *LogRecord) GetLogHeaderData() []byte {
	buf := make([]byte, HEADER_SIZE)
	binary.LittleEndian.PutUint32(buf[0:4], r.Size)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(r.Lsn))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(r.Txn_id))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(r.Prev_lsn))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(r.Log_record_type))
	return buf
}

// DeserializeLogRecord parses one record starting at data[0]. Returns false
// if the header's size field is zero, which marks end-of-data within a
// block per the on-disk format.
func DeserializeLogRecord(data []byte) (*LogRecord, bool) {
	if uint32(len(data)) < HEADER_SIZE {
		return nil, false
	}
	size := binary.LittleEndian.Uint32(data[0:4])
	if size == 0 {
		return nil, false
	}
	rec := &LogRecord{
		Size:            size,
		Lsn:             types.LSN(binary.LittleEndian.Uint32(data[4:8])),
		Txn_id:          types.TxnID(binary.LittleEndian.Uint32(data[8:12])),
		Prev_lsn:        types.LSN(binary.LittleEndian.Uint32(data[12:16])),
		Log_record_type: LogRecordType(binary.LittleEndian.Uint32(data[16:20])),
	}
	body := data[HEADER_SIZE:]
	switch rec.Log_record_type {
	case INSERT:
		rec.Insert_rid = page.NewRIDFromBytes(body[0:8])
		rec.Insert_tuple.DeserializeFrom(body[8:])
	case MARKDELETE, APPLYDELETE, ROLLBACKDELETE:
		rec.Delete_rid = page.NewRIDFromBytes(body[0:8])
		rec.Delete_tuple.DeserializeFrom(body[8:])
	case UPDATE:
		rec.Update_rid = page.NewRIDFromBytes(body[0:8])
		rec.Old_tuple.DeserializeFrom(body[8:])
		rec.New_tuple.DeserializeFrom(body[8+bodySize(rec.Old_tuple):])
	case NEWPAGE:
		rec.Prev_page_id = types.PageID(binary.LittleEndian.Uint32(body[0:4]))
		rec.Page_id = types.PageID(binary.LittleEndian.Uint32(body[4:8]))
	case BEGIN, COMMIT, ABORT:
		// header only
	}
	return rec, true
}
