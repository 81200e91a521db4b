// Package report assembles aggregated call statistics, resource time
// series and run metadata into one immutable report value, and writes it
// out. Field names and nesting are a stable contract: external renderers
// are keyed on this shape. Time fields are seconds as floating point,
// memory fields are bytes.
package report

// Report is the final profiling result, produced exactly once per run.
type Report struct {
	Meta          Meta           `json:"meta"`
	Nodes         []Node         `json:"nodes"`
	Edges         []Edge         `json:"edges"`
	MemorySamples []MemorySample `json:"memory_samples"`
	CPUSamples    []CPUSample    `json:"cpu_samples,omitempty"`
	GCSamples     []GCSample     `json:"gc_samples,omitempty"`
	PeakRSS       *uint64        `json:"peak_rss"`
	Summary       Summary        `json:"summary"`
}

// Meta carries run metadata captured at the run boundaries.
type Meta struct {
	RunID       string      `json:"run_id"`
	Command     []string    `json:"command"`
	WallTime    float64     `json:"wall_time_s"`
	CPUTime     float64     `json:"cpu_time_s"`
	ExitCode    int         `json:"exit_code"`
	Timestamp   float64     `json:"timestamp"`
	Environment Environment `json:"environment"`
}

// Environment is a static, best-effort description of the machine and
// runtime the run executed on.
type Environment struct {
	Cores       int    `json:"cores"`
	TotalMemory uint64 `json:"total_memory"`
	Runtime     string `json:"runtime"`
}

// Node is one function's aggregated statistics.
type Node struct {
	ID            string  `json:"id"`
	TotalTime     float64 `json:"total_time"`
	CallCount     uint64  `json:"call_count"`
	ChildrenTime  float64 `json:"children_time"`
	ExclusiveTime float64 `json:"exclusive_time"`
	MinTime       float64 `json:"min_time"`
	MaxTime       float64 `json:"max_time"`
}

// Edge is one caller->callee pair's aggregated statistics.
type Edge struct {
	Caller    string  `json:"caller"`
	Callee    string  `json:"callee"`
	CallCount uint64  `json:"call_count"`
	TotalTime float64 `json:"total_time"`
}

// MemorySample is one tracked-allocation snapshot on the sampling
// timeline. The t field is seconds since sampling start.
type MemorySample struct {
	T       float64 `json:"t"`
	Current uint64  `json:"current"`
	Peak    uint64  `json:"peak"`
}

// CPUSample is one process-level snapshot. Optional fields are omitted
// when the platform facility was unavailable.
type CPUSample struct {
	T       float64  `json:"t"`
	Percent *float64 `json:"percent,omitempty"`
	RSS     *uint64  `json:"rss,omitempty"`
	VMS     *uint64  `json:"vms,omitempty"`
}

// GCSample is one collector-counter snapshot.
type GCSample struct {
	T           float64  `json:"t"`
	Collections uint64   `json:"collections"`
	Generations []uint64 `json:"generations,omitempty"`
}

// Summary holds derived headline figures. Identity fields are empty when
// the run recorded no subject calls.
type Summary struct {
	FunctionCount    int    `json:"function_count"`
	TotalCalls       uint64 `json:"total_calls"`
	MostCalled       string `json:"most_called,omitempty"`
	HottestTotal     string `json:"hottest_total,omitempty"`
	HottestExclusive string `json:"hottest_exclusive,omitempty"`
	PeakMemory       uint64 `json:"peak_memory"`
	GCCollections    uint64 `json:"gc_collections"`
}
