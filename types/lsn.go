package types

// LSN is a monotonically increasing log-sequence number stamped into log
// records and into the pages they describe.
type LSN int32

// InvalidLSN marks a page that has never been touched by a logged write,
// or a transaction with no prior log record.
const InvalidLSN = LSN(-1)

// InvalidTxnID marks the absence of a transaction.
const InvalidTxnID = TxnID(-1)
