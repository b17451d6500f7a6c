package common

import (
	"runtime"
	"sync"

	"github.com/devlights/gomy/output"
)

func SH_Assert(condition bool, msg string) {
	if !condition {
		DumpGoroutineStacks()
		panic(msg)
	}
}

// DumpGoroutineStacks writes every goroutine's stack trace to stdout, for
// diagnosing a failed assertion before it unwinds the process.
func DumpGoroutineStacks() {
	buf := make([]byte, 1024)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			buf = buf[:n]
			break
		}
		buf = make([]byte, 2*len(buf))
	}
	output.Stdoutl("=== goroutine stacks ===", string(buf))
}

type SH_Mutex struct {
	mutex    *sync.Mutex
	isLocked bool
}

func NewSH_Mutex() *SH_Mutex {
	return &SH_Mutex{new(sync.Mutex), false}
}
func (m *SH_Mutex) Lock() {
	SH_Assert(!m.isLocked, "Mutex is already locked")
	m.mutex.Lock()
	m.isLocked = true
}

func (m *SH_Mutex) Unlock() {
	SH_Assert(m.isLocked, "Mutex is not locked")
	m.mutex.Unlock()
	m.isLocked = false
}
