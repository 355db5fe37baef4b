package loadgen

import (
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v4/process"
)

// MemorySnapshot is the client's memory footprint at one instant.
type MemorySnapshot struct {
	HeapAlloc uint64 // live Go heap bytes
	RSS       uint64 // resident set size of the process, 0 if unavailable
}

// MemorySampler reads the current process memory.
type MemorySampler struct {
	proc *process.Process
}

// NewMemorySampler attaches to the current process. If the OS process table
// cannot be read, RSS is reported as 0 and only the Go heap is sampled.
func NewMemorySampler() (*MemorySampler, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return &MemorySampler{}, fmt.Errorf("attach to process: %w", err)
	}
	return &MemorySampler{proc: p}, nil
}

func (s *MemorySampler) Sample() (MemorySnapshot, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	snap := MemorySnapshot{HeapAlloc: ms.HeapAlloc}
	if s == nil || s.proc == nil {
		return snap, nil
	}
	info, err := s.proc.MemoryInfo()
	if err != nil {
		return snap, fmt.Errorf("read process memory: %w", err)
	}
	snap.RSS = info.RSS
	return snap, nil
}

// delta returns after-before as a signed byte count.
func delta(before, after uint64) int64 {
	return int64(after) - int64(before)
}
