package common

import (
	"fmt"

	"go.uber.org/zap"
)

type LogLevel int32

const (
	DEBUG_INFO_DETAIL LogLevel = 1
	DEBUG_INFO                 = 2
	RDB_OP_FUNC_CALL           = 4
	DEBUGGING                  = 8
	INFO                       = 16
	WARN                       = 32
	ERROR                      = 64
	FATAL                      = 128
)

// LogLevelSetting is a bitmask: ShPrintf only prints when the caller's
// level has a bit set here. Defaults to the operationally interesting
// levels; tests and callers can widen it for fine-grained tracing.
var LogLevelSetting LogLevel = INFO | WARN | ERROR | FATAL

// ShPrintf is the fine-grained, bit-masked tracing call used for
// high-volume diagnostic output (per-call traces of table page and table
// heap mutations and of transaction aborts).
func ShPrintf(logLevel LogLevel, fmtStl string, a ...interface{}) {
	if logLevel&LogLevelSetting > 0 {
		fmt.Printf(fmtStl, a...)
	}
}

var sugar *zap.SugaredLogger

func init() {
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	sugar = logger.Sugar()
}

// Log is the structured, leveled logging call for operationally
// significant events (its one caller is the deadlock detector, when it
// chooses a victim) that an operator would want in a log
// aggregator rather than mixed into ShPrintf's fine-grained trace output.
func Log() *zap.SugaredLogger { return sugar }
