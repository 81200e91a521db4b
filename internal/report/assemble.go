package report

import (
	"github.com/Evan-Pochtar/ExetrixAnalysis/internal/aggregate"
	"github.com/Evan-Pochtar/ExetrixAnalysis/internal/sampler"
)

// Assemble joins drained aggregator output, sampler series and run
// metadata into one report. It is a pure read-and-combine step: callers
// must guarantee the event stream is closed and the sampler joined before
// invoking it, and it mutates none of its inputs.
func Assemble(
	meta Meta,
	nodes []aggregate.Node,
	edges []aggregate.Edge,
	memory []sampler.MemorySample,
	procSamples []sampler.ProcessSample,
	gcSamples []sampler.GCSample,
	peakRSS *uint64,
) *Report {
	r := &Report{
		Meta:          meta,
		Nodes:         make([]Node, 0, len(nodes)),
		Edges:         make([]Edge, 0, len(edges)),
		MemorySamples: make([]MemorySample, 0, len(memory)),
		PeakRSS:       peakRSS,
	}

	for _, n := range nodes {
		r.Nodes = append(r.Nodes, Node{
			ID:            n.Function.String(),
			TotalTime:     n.Stats.Total.Seconds(),
			CallCount:     n.Stats.Calls,
			ChildrenTime:  n.Stats.Children.Seconds(),
			ExclusiveTime: n.Stats.Exclusive().Seconds(),
			MinTime:       n.Stats.Min.Seconds(),
			MaxTime:       n.Stats.Max.Seconds(),
		})
	}
	for _, e := range edges {
		r.Edges = append(r.Edges, Edge{
			Caller:    e.Key.Caller.String(),
			Callee:    e.Key.Callee.String(),
			CallCount: e.Stats.Calls,
			TotalTime: e.Stats.Total.Seconds(),
		})
	}

	for _, s := range memory {
		r.MemorySamples = append(r.MemorySamples, MemorySample{
			T:       s.Elapsed.Seconds(),
			Current: s.Current,
			Peak:    s.Peak,
		})
	}
	for _, s := range procSamples {
		r.CPUSamples = append(r.CPUSamples, CPUSample{
			T:       s.Elapsed.Seconds(),
			Percent: s.CPUPercent,
			RSS:     s.RSS,
			VMS:     s.VMS,
		})
	}
	for _, s := range gcSamples {
		r.GCSamples = append(r.GCSamples, GCSample{
			T:           s.Elapsed.Seconds(),
			Collections: s.Collections,
			Generations: s.Generations,
		})
	}

	r.Summary = summarize(nodes, memory, gcSamples)
	return r
}

// summarize reduces the final tables into headline figures. An empty node
// list yields zeroed counts and absent identity fields rather than an
// error.
func summarize(nodes []aggregate.Node, memory []sampler.MemorySample, gcSamples []sampler.GCSample) Summary {
	var s Summary
	s.FunctionCount = len(nodes)

	var mostCalled, hottestExclusive *aggregate.Node
	for i := range nodes {
		n := &nodes[i]
		s.TotalCalls += n.Stats.Calls
		if mostCalled == nil || n.Stats.Calls > mostCalled.Stats.Calls {
			mostCalled = n
		}
		if hottestExclusive == nil || n.Stats.Exclusive() > hottestExclusive.Stats.Exclusive() {
			hottestExclusive = n
		}
	}
	if mostCalled != nil {
		s.MostCalled = mostCalled.Function.String()
	}
	if hottestExclusive != nil {
		s.HottestExclusive = hottestExclusive.Function.String()
	}
	// Nodes arrive sorted by total time descending.
	if len(nodes) > 0 {
		s.HottestTotal = nodes[0].Function.String()
	}

	for _, m := range memory {
		if m.Peak > s.PeakMemory {
			s.PeakMemory = m.Peak
		}
	}
	// Collection counts are cumulative; the last sample is the total.
	if len(gcSamples) > 0 {
		s.GCCollections = gcSamples[len(gcSamples)-1].Collections
	}
	return s
}
