// Package scheduler runs build jobs on a bounded worker pool
package scheduler

import (
	"context"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/assetforge/assetforge/pkg/atlas"
	"github.com/assetforge/assetforge/pkg/cache"
	"github.com/assetforge/assetforge/pkg/logger"
	"github.com/assetforge/assetforge/pkg/processors"
	"github.com/assetforge/assetforge/pkg/types"
	"github.com/assetforge/assetforge/pkg/utils"
)

// Options tunes one Submit call.
type Options struct {
	// Workers caps the pool size; zero means runtime.NumCPU().
	Workers int
	// Force rebuilds every job regardless of cache state.
	Force bool
	// DryRun reports what would happen without reading, processing, or
	// writing any asset.
	DryRun bool
}

// BuildReport aggregates the results of one Submit call.
type BuildReport struct {
	Results    []types.JobResult
	TotalInput int64
	TotalOut   int64
	Duration   time.Duration
}

// Failed returns the results of jobs that ended in failure.
func (r *BuildReport) Failed() []types.JobResult {
	var failed []types.JobResult
	for _, res := range r.Results {
		if res.Status == types.JobStatusFailed {
			failed = append(failed, res)
		}
	}
	return failed
}

// Counts tallies results by status.
func (r *BuildReport) Counts() (built, cached, failed, wouldBuild int) {
	for _, res := range r.Results {
		switch res.Status {
		case types.JobStatusBuilt:
			built++
		case types.JobStatusCached:
			cached++
		case types.JobStatusFailed:
			failed++
		case types.JobStatusWouldBuild:
			wouldBuild++
		}
	}
	return
}

// Scheduler dispatches independent build jobs to a worker pool. A failed
// job is recorded in the report and never stops sibling jobs; only
// context cancellation halts dispatch.
type Scheduler struct {
	cache    *cache.Store
	registry *processors.Registry
	atlas    *atlas.Builder
	logger   logger.Logger
}

// New creates a scheduler over the given cache, processor registry, and
// atlas builder.
func New(store *cache.Store, registry *processors.Registry, atlasBuilder *atlas.Builder, log logger.Logger) *Scheduler {
	return &Scheduler{
		cache:    store,
		registry: registry,
		atlas:    atlasBuilder,
		logger:   log,
	}
}

// Submit runs all jobs and returns the aggregated report. Job order in
// the report follows completion order; results for the same input set
// are otherwise independent of scheduling.
func (s *Scheduler) Submit(ctx context.Context, jobs []types.BuildJob, opts Options) *BuildReport {
	start := time.Now()
	report := &BuildReport{}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	group, ctx := NewSafeGroup(ctx, s.logger)
	group.SetLimit(workers)

	var mu sync.Mutex
	record := func(res types.JobResult) {
		mu.Lock()
		report.Results = append(report.Results, res)
		report.TotalInput += res.InputSize
		report.TotalOut += res.OutputSize
		mu.Unlock()
	}

	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		job := job
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			record(s.runJob(ctx, job, opts))
			return nil
		})
	}

	if err := group.Wait(); err != nil && ctx.Err() == nil {
		s.logger.Error("Worker pool aborted", logger.WithField("error", err))
	}

	report.Duration = time.Since(start)
	return report
}

// runJob executes one job end to end. All failure modes are folded into
// the returned result; nothing escapes to the pool.
func (s *Scheduler) runJob(ctx context.Context, job types.BuildJob, opts Options) types.JobResult {
	start := time.Now()
	res := types.JobResult{
		JobID:      uuid.New().String(),
		SourcePath: job.Asset.Path,
		OutputPath: job.OutputPath,
		InputSize:  job.Asset.Size,
	}

	key := cache.Key(job.Asset.ContentHash, job.Pipeline.Signature(), job.OutputPath)

	if !opts.Force {
		if entry, ok := s.cache.Lookup(key); ok {
			res.Status = types.JobStatusCached
			res.Duration = time.Since(start)
			if info, err := os.Stat(entry.OutputPath); err == nil {
				res.OutputSize = info.Size()
			}
			s.logger.WithAsset(job.Asset.Path).Debug("Cache hit",
				logger.WithField("key", key[:12]))
			return res
		}
	}

	if opts.DryRun {
		res.Status = types.JobStatusWouldBuild
		res.Duration = time.Since(start)
		return res
	}

	outputSize, err := s.build(ctx, job)
	res.Duration = time.Since(start)
	if err != nil {
		res.Status = types.JobStatusFailed
		res.Err = err
		s.logger.WithAsset(job.Asset.Path).Error("Build failed",
			logger.WithField("error", err))
		return res
	}

	res.Status = types.JobStatusBuilt
	res.OutputSize = outputSize

	outputHash, hashErr := utils.HashFile(job.OutputPath)
	if hashErr != nil {
		s.logger.WithAsset(job.Asset.Path).Warn("Output hash failed, skipping cache commit",
			logger.WithField("error", hashErr))
		return res
	}
	s.cache.Commit(cache.NewEntry(key, job.OutputPath, outputHash, job.Asset.Path))

	s.logger.WithAsset(job.Asset.Path).Success("Built",
		logger.WithField("output", job.OutputPath),
		logger.WithField("duration", res.Duration.Round(time.Millisecond)))
	return res
}

// build produces the job's output file and returns its size.
func (s *Scheduler) build(ctx context.Context, job types.BuildJob) (int64, error) {
	if job.IsAtlas() {
		return s.buildAtlas(job)
	}

	input, err := os.ReadFile(job.Asset.Path)
	if err != nil {
		return 0, err
	}

	proc := s.registry.For(job.Pipeline.Kind)
	output := input
	if proc != nil {
		output, err = proc.Process(ctx, input, job.Pipeline)
		if err != nil {
			return 0, &types.ProcessorError{Path: job.Asset.Path, Err: err}
		}
	}

	if err := utils.WriteFileAtomic(job.OutputPath, output); err != nil {
		return 0, err
	}
	return int64(len(output)), nil
}

// buildAtlas loads the group's member sprites and writes the packed page
// plus its metadata sidecar.
func (s *Scheduler) buildAtlas(job types.BuildJob) (int64, error) {
	sprites := make([]atlas.Sprite, 0, len(job.Members))
	for _, member := range job.Members {
		sprite, err := atlas.LoadSprite(member.Path, job.Pipeline.TrimSprite)
		if err != nil {
			return 0, err
		}
		sprites = append(sprites, sprite)
	}
	atlas.SortSprites(sprites)

	result, err := s.atlas.Build(sprites, job.OutputPath)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(result.ImagePath)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
