// Package aggregate accumulates per-function statistics and the
// caller->callee call graph from completed calls.
package aggregate

import (
	"sort"
	"sync"
	"time"

	"github.com/Evan-Pochtar/ExetrixAnalysis/internal/trace"
)

// NodeStats holds cumulative statistics for one function identity.
type NodeStats struct {
	Calls    uint64
	Total    time.Duration
	Children time.Duration
	Min      time.Duration
	Max      time.Duration
}

// Exclusive returns time attributed to the function's own execution,
// excluding callees. Clamped at zero: clock skew or instrumentation
// overhead can push children past total, and a negative exclusive time
// must never be reported.
func (s NodeStats) Exclusive() time.Duration {
	if s.Children > s.Total {
		return 0
	}
	return s.Total - s.Children
}

// EdgeKey identifies one caller->callee pair. The caller is the nearest
// subject-code ancestor on the stack at return time, not necessarily the
// immediate parent frame.
type EdgeKey struct {
	Caller trace.FunctionIdentity
	Callee trace.FunctionIdentity
}

// EdgeStats holds cumulative statistics for one call-graph edge.
type EdgeStats struct {
	Calls uint64
	Total time.Duration
}

// Node pairs a function identity with its final statistics.
type Node struct {
	Function trace.FunctionIdentity
	Stats    NodeStats
}

// Edge pairs an edge key with its final statistics.
type Edge struct {
	Key   EdgeKey
	Stats EdgeStats
}

// Aggregator is the shared mutable store of node and edge statistics. One
// coarse lock guards both maps; each critical section is O(1), so event
// delivery from concurrent threads only contends briefly. Accumulation is
// commutative, which makes the final tables independent of cross-thread
// event interleaving.
type Aggregator struct {
	mu    sync.Mutex
	nodes map[trace.FunctionIdentity]*NodeStats
	edges map[EdgeKey]*EdgeStats
}

// New creates an empty aggregator.
func New() *Aggregator {
	return &Aggregator{
		nodes: make(map[trace.FunctionIdentity]*NodeStats),
		edges: make(map[EdgeKey]*EdgeStats),
	}
}

// RecordCompletedCall folds one completed subject call into the tables.
// When parent is non-nil the duration is also attributed to the parent's
// children time and to the (parent, id) edge. Recursive calls need no
// special casing: each completed invocation is recorded independently, and
// a self-recursive function's children time absorbs the nested durations.
func (a *Aggregator) RecordCompletedCall(id trace.FunctionIdentity, duration time.Duration, parent *trace.FunctionIdentity) {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := a.node(id)
	st.Calls++
	st.Total += duration
	if st.Calls == 1 || duration < st.Min {
		st.Min = duration
	}
	if duration > st.Max {
		st.Max = duration
	}

	if parent == nil {
		return
	}
	pst := a.node(*parent)
	pst.Children += duration

	key := EdgeKey{Caller: *parent, Callee: id}
	est, ok := a.edges[key]
	if !ok {
		est = &EdgeStats{}
		a.edges[key] = est
	}
	est.Calls++
	est.Total += duration
}

// node returns the stats entry for id, creating it lazily. Caller must
// hold the lock.
func (a *Aggregator) node(id trace.FunctionIdentity) *NodeStats {
	st, ok := a.nodes[id]
	if !ok {
		st = &NodeStats{}
		a.nodes[id] = st
	}
	return st
}

// Drain snapshots the final node and edge tables, sorted by total time
// descending with identity order as a deterministic tie-break. It does not
// mutate the aggregator and may be called repeatedly.
func (a *Aggregator) Drain() ([]Node, []Edge) {
	a.mu.Lock()
	defer a.mu.Unlock()

	nodes := make([]Node, 0, len(a.nodes))
	for id, st := range a.nodes {
		nodes = append(nodes, Node{Function: id, Stats: *st})
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Stats.Total != nodes[j].Stats.Total {
			return nodes[i].Stats.Total > nodes[j].Stats.Total
		}
		return nodes[i].Function.String() < nodes[j].Function.String()
	})

	edges := make([]Edge, 0, len(a.edges))
	for key, st := range a.edges {
		edges = append(edges, Edge{Key: key, Stats: *st})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Stats.Total != edges[j].Stats.Total {
			return edges[i].Stats.Total > edges[j].Stats.Total
		}
		ki := edges[i].Key.Caller.String() + "->" + edges[i].Key.Callee.String()
		kj := edges[j].Key.Caller.String() + "->" + edges[j].Key.Callee.String()
		return ki < kj
	})

	return nodes, edges
}
