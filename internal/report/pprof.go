package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/pprof/profile"

	"github.com/Evan-Pochtar/ExetrixAnalysis/internal/aggregate"
	"github.com/Evan-Pochtar/ExetrixAnalysis/internal/safe"
	"github.com/Evan-Pochtar/ExetrixAnalysis/internal/trace"
)

// PprofFileName is the pprof artifact written next to the JSON report.
const PprofFileName = "profile.pb.gz"

// BuildProfile converts drained statistics into a pprof profile with
// call-count and time sample values. Each function contributes a
// single-frame sample weighted by its exclusive time, and each
// caller->callee edge a two-frame sample weighted by the edge's call
// count and cumulative time.
func BuildProfile(nodes []aggregate.Node, edges []aggregate.Edge, start time.Time, wall time.Duration) *profile.Profile {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "calls", Unit: "count"},
			{Type: "time", Unit: "nanoseconds"},
		},
		PeriodType:    &profile.ValueType{Type: "wall", Unit: "nanoseconds"},
		TimeNanos:     start.UnixNano(),
		DurationNanos: wall.Nanoseconds(),
	}

	// Edges can name a caller that never completed within the run, so
	// locations are created on demand rather than from nodes alone.
	locs := make(map[string]*profile.Location)
	locate := func(fi trace.FunctionIdentity) *profile.Location {
		if loc, ok := locs[fi.String()]; ok {
			return loc
		}
		id := uint64(len(locs) + 1) //nolint:gosec // Small positive count.
		fn := &profile.Function{
			ID:       id,
			Name:     fi.Scope + "." + fi.Name,
			Filename: fi.File,
		}
		loc := &profile.Location{
			ID:   id,
			Line: []profile.Line{{Function: fn}},
		}
		p.Function = append(p.Function, fn)
		p.Location = append(p.Location, loc)
		locs[fi.String()] = loc
		return loc
	}

	for _, n := range nodes {
		calls, _ := safe.Uint64ToInt64(n.Stats.Calls)
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{locate(n.Function)},
			Value: []int64{
				calls,
				n.Stats.Exclusive().Nanoseconds(),
			},
		})
	}
	for _, e := range edges {
		calls, _ := safe.Uint64ToInt64(e.Stats.Calls)
		// Leaf first: the callee sits atop its caller.
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{locate(e.Key.Callee), locate(e.Key.Caller)},
			Value: []int64{
				calls,
				e.Stats.Total.Nanoseconds(),
			},
		})
	}

	return p
}

// WritePprof writes the gzip-compressed profile into dir.
func WritePprof(p *profile.Profile, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	path := filepath.Join(dir, PprofFileName)
	f, err := os.Create(path) //nolint:gosec // Path is operator-chosen report output.
	if err != nil {
		return "", fmt.Errorf("create pprof file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	// profile.Write emits gzip-compressed protobuf already.
	if err := p.Write(f); err != nil {
		return "", fmt.Errorf("write pprof profile: %w", err)
	}
	return path, nil
}
