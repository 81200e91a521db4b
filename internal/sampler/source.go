package sampler

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v4/process"
)

// RuntimeSource reads metrics for the current process: tracked allocation
// via the runtime allocator, CPU/RSS via the OS. Used when the profiled
// program runs in-process (an instrumented host embedding a session).
type RuntimeSource struct {
	proc *process.Process
	peak uint64
}

// NewRuntimeSource creates a source for the current process. The OS-level
// process handle is best-effort: when it cannot be obtained, process
// readings are simply absent.
func NewRuntimeSource() *RuntimeSource {
	s := &RuntimeSource{}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		s.proc = p
	}
	return s
}

// TrackedMemory reads live heap bytes from the runtime allocator and keeps
// a running peak, mirroring an allocation-tracking facility.
func (s *RuntimeSource) TrackedMemory() (uint64, uint64, bool) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	if m.HeapAlloc > s.peak {
		s.peak = m.HeapAlloc
	}
	return m.HeapAlloc, s.peak, true
}

// Process reads CPU utilization and RSS/VMS for the current process.
func (s *RuntimeSource) Process() (ProcessStats, bool) {
	return readProcess(s.proc)
}

// GC reads cumulative collection counts from the runtime. The Go collector
// is not generational, so per-generation counters are absent.
func (s *RuntimeSource) GC() (GCStats, bool) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return GCStats{Collections: uint64(m.NumGC)}, true
}

// ProcessSource reads metrics for an external process by PID, used when
// the CLI launches the target as a subprocess. No allocation-tracking
// facility is reachable from outside the process, so tracked memory is
// absent and the run degrades gracefully.
type ProcessSource struct {
	proc *process.Process
}

// NewProcessSource creates a source observing the given PID.
func NewProcessSource(pid int32) *ProcessSource {
	s := &ProcessSource{}
	if p, err := process.NewProcess(pid); err == nil {
		s.proc = p
	}
	return s
}

// TrackedMemory is unavailable for external processes.
func (s *ProcessSource) TrackedMemory() (uint64, uint64, bool) {
	return 0, 0, false
}

// Process reads CPU utilization and RSS/VMS for the observed process.
func (s *ProcessSource) Process() (ProcessStats, bool) {
	return readProcess(s.proc)
}

// GC counters are unavailable for external processes.
func (s *ProcessSource) GC() (GCStats, bool) {
	return GCStats{}, false
}

// readProcess collects whichever process readings succeed. Individual
// failures leave the corresponding field nil; the reading as a whole is
// absent only when nothing could be read.
func readProcess(p *process.Process) (ProcessStats, bool) {
	if p == nil {
		return ProcessStats{}, false
	}
	var st ProcessStats
	if pct, err := p.Percent(0); err == nil {
		st.CPUPercent = &pct
	}
	if mi, err := p.MemoryInfo(); err == nil {
		rss, vms := mi.RSS, mi.VMS
		st.RSS = &rss
		st.VMS = &vms
	}
	if st.CPUPercent == nil && st.RSS == nil {
		return ProcessStats{}, false
	}
	return st, true
}
