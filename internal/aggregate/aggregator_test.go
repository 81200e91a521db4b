package aggregate

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Evan-Pochtar/ExetrixAnalysis/internal/trace"
)

func fid(name string) trace.FunctionIdentity {
	return trace.FunctionIdentity{Scope: "app", Name: name, File: "/srv/app/main.py"}
}

func TestRecordCompletedCallRoot(t *testing.T) {
	a := New()
	f := fid("f")

	a.RecordCompletedCall(f, 10*time.Millisecond, nil)
	a.RecordCompletedCall(f, 4*time.Millisecond, nil)

	nodes, edges := a.Drain()
	require.Len(t, nodes, 1)
	assert.Empty(t, edges)

	st := nodes[0].Stats
	assert.Equal(t, uint64(2), st.Calls)
	assert.Equal(t, 14*time.Millisecond, st.Total)
	assert.Equal(t, 4*time.Millisecond, st.Min)
	assert.Equal(t, 10*time.Millisecond, st.Max)
	assert.Equal(t, time.Duration(0), st.Children)
	assert.Equal(t, 14*time.Millisecond, st.Exclusive())
}

func TestRecordCompletedCallEdge(t *testing.T) {
	a := New()
	f, g := fid("f"), fid("g")

	// g completes under f, then f completes at the root.
	a.RecordCompletedCall(g, 5*time.Millisecond, &f)
	a.RecordCompletedCall(f, 10*time.Millisecond, nil)

	nodes, edges := a.Drain()
	require.Len(t, nodes, 2)
	require.Len(t, edges, 1)

	// Sorted by total descending: f first.
	assert.Equal(t, f, nodes[0].Function)
	assert.Equal(t, 10*time.Millisecond, nodes[0].Stats.Total)
	assert.Equal(t, 5*time.Millisecond, nodes[0].Stats.Children)
	assert.Equal(t, 5*time.Millisecond, nodes[0].Stats.Exclusive())

	assert.Equal(t, g, nodes[1].Function)
	assert.Equal(t, 5*time.Millisecond, nodes[1].Stats.Total)
	assert.Equal(t, 5*time.Millisecond, nodes[1].Stats.Exclusive())

	e := edges[0]
	assert.Equal(t, EdgeKey{Caller: f, Callee: g}, e.Key)
	assert.Equal(t, uint64(1), e.Stats.Calls)
	assert.Equal(t, 5*time.Millisecond, e.Stats.Total)
}

func TestRecordCompletedCallRecursion(t *testing.T) {
	a := New()
	f := fid("f")

	// f recursing three deep: the inner invocations complete first, each
	// attributed to f itself.
	a.RecordCompletedCall(f, 2*time.Millisecond, &f)
	a.RecordCompletedCall(f, 5*time.Millisecond, &f)
	a.RecordCompletedCall(f, 9*time.Millisecond, nil)

	nodes, edges := a.Drain()
	require.Len(t, nodes, 1)
	require.Len(t, edges, 1)

	st := nodes[0].Stats
	// call_count is the number of completed invocations, not the depth.
	assert.Equal(t, uint64(3), st.Calls)
	assert.Equal(t, 16*time.Millisecond, st.Total)
	assert.Equal(t, 7*time.Millisecond, st.Children)
	assert.Equal(t, 9*time.Millisecond, st.Exclusive())

	assert.Equal(t, EdgeKey{Caller: f, Callee: f}, edges[0].Key)
	assert.Equal(t, uint64(2), edges[0].Stats.Calls)
}

func TestExclusiveNeverNegative(t *testing.T) {
	a := New()
	f, g := fid("f"), fid("g")

	// Attribute more child time to f than f itself accumulates, as clock
	// skew or instrumentation overhead can.
	a.RecordCompletedCall(g, 8*time.Millisecond, &f)
	a.RecordCompletedCall(f, 5*time.Millisecond, nil)

	nodes, _ := a.Drain()
	for _, n := range nodes {
		assert.GreaterOrEqual(t, n.Stats.Exclusive(), time.Duration(0))
	}
}

func TestDrainSortAndTieBreak(t *testing.T) {
	a := New()

	// Equal totals: order must fall back to identity order.
	a.RecordCompletedCall(fid("zeta"), 5*time.Millisecond, nil)
	a.RecordCompletedCall(fid("alpha"), 5*time.Millisecond, nil)
	a.RecordCompletedCall(fid("hot"), 50*time.Millisecond, nil)

	nodes, _ := a.Drain()
	require.Len(t, nodes, 3)
	assert.Equal(t, "hot", nodes[0].Function.Name)
	assert.Equal(t, "alpha", nodes[1].Function.Name)
	assert.Equal(t, "zeta", nodes[2].Function.Name)
}

func TestDrainDoesNotMutate(t *testing.T) {
	a := New()
	a.RecordCompletedCall(fid("f"), time.Millisecond, nil)

	first, _ := a.Drain()
	second, _ := a.Drain()
	assert.Equal(t, first, second)

	// Recording after a drain still works; drain is a snapshot.
	a.RecordCompletedCall(fid("f"), time.Millisecond, nil)
	third, _ := a.Drain()
	assert.Equal(t, uint64(2), third[0].Stats.Calls)
}

func TestConcurrentDeliveryOrderIndependent(t *testing.T) {
	// The same multiset of calls delivered under different interleavings
	// must produce identical final tables.
	type call struct {
		id     trace.FunctionIdentity
		dur    time.Duration
		parent *trace.FunctionIdentity
	}

	f, g, h := fid("f"), fid("g"), fid("h")
	var calls []call
	for i := 1; i <= 50; i++ {
		d := time.Duration(i) * time.Millisecond
		calls = append(calls,
			call{id: g, dur: d, parent: &f},
			call{id: h, dur: d / 2, parent: &f},
			call{id: f, dur: 2 * d, parent: nil},
		)
	}

	run := func(seed int64) ([]Node, []Edge) {
		a := New()
		shuffled := append([]call(nil), calls...)
		rand.New(rand.NewSource(seed)).Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		const workers = 4
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := w; i < len(shuffled); i += workers {
					c := shuffled[i]
					a.RecordCompletedCall(c.id, c.dur, c.parent)
				}
			}(w)
		}
		wg.Wait()
		return a.Drain()
	}

	baseNodes, baseEdges := run(1)
	for seed := int64(2); seed <= 5; seed++ {
		nodes, edges := run(seed)
		assert.Equal(t, baseNodes, nodes, "seed %d", seed)
		assert.Equal(t, baseEdges, edges, "seed %d", seed)
	}
}
