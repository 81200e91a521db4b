package run

import (
	"time"

	"github.com/google/uuid"

	"github.com/Evan-Pochtar/ExetrixAnalysis/internal/aggregate"
	"github.com/Evan-Pochtar/ExetrixAnalysis/internal/report"
	"github.com/Evan-Pochtar/ExetrixAnalysis/internal/runner"
	"github.com/Evan-Pochtar/ExetrixAnalysis/internal/sampler"
)

// sampleSet carries the resource series captured during a run.
type sampleSet struct {
	memory  []sampler.MemorySample
	process []sampler.ProcessSample
	gc      []sampler.GCSample
}

// drainSampler reads the sampler's series after a clean join. A sampler
// that timed out on Stop may still be appending, so its series are
// dropped rather than read.
func drainSampler(smp *sampler.Sampler, stopErr error) sampleSet {
	if stopErr != nil {
		return sampleSet{}
	}
	return sampleSet{
		memory:  smp.MemorySamples(),
		process: smp.ProcessSamples(),
		gc:      smp.GCSamples(),
	}
}

// writeReport drains the run's collected state and writes the report
// artifacts, returning their paths. The sample series are passed by value
// so that a sampler that failed to join can be reported without touching
// its buffers.
func writeReport(dir string, agg *aggregate.Aggregator, samples sampleSet, res runner.Result, opts options) ([]string, error) {
	nodes, edges := agg.Drain()
	env := runner.DescribeEnvironment()

	meta := report.Meta{
		RunID:     uuid.NewString(),
		Command:   res.Command,
		WallTime:  res.Wall.Seconds(),
		CPUTime:   res.CPU.Seconds(),
		ExitCode:  res.ExitCode,
		Timestamp: float64(res.Start.UnixNano()) / float64(time.Second),
		Environment: report.Environment{
			Cores:       env.Cores,
			TotalMemory: env.TotalMemory,
			Runtime:     env.Runtime,
		},
	}

	rep := report.Assemble(
		meta,
		nodes, edges,
		samples.memory, samples.process, samples.gc,
		runner.PeakChildRSS(),
	)

	jsonPath, err := report.WriteJSON(rep, dir)
	if err != nil {
		return nil, err
	}
	paths := []string{jsonPath}

	if !opts.noPprof {
		prof := report.BuildProfile(nodes, edges, res.Start, res.Wall)
		pprofPath, err := report.WritePprof(prof, dir)
		if err != nil {
			return nil, err
		}
		paths = append(paths, pprofPath)
	}
	return paths, nil
}
