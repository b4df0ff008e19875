// Package engine orchestrates scanning, planning, and building asset trees
package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/assetforge/assetforge/pkg/atlas"
	"github.com/assetforge/assetforge/pkg/cache"
	"github.com/assetforge/assetforge/pkg/logger"
	"github.com/assetforge/assetforge/pkg/notifier"
	"github.com/assetforge/assetforge/pkg/processors"
	"github.com/assetforge/assetforge/pkg/rules"
	"github.com/assetforge/assetforge/pkg/scheduler"
	"github.com/assetforge/assetforge/pkg/types"
	"github.com/assetforge/assetforge/pkg/utils"
	"github.com/assetforge/assetforge/pkg/watcher"
)

// Options tunes one build run.
type Options struct {
	Workers  int
	Force    bool
	DryRun   bool
	Debounce time.Duration
	Notify   bool

	// Kinds restricts the run to the listed asset kinds; empty means all.
	Kinds []types.AssetKind
	// AtlasOnly restricts the run to atlas aggregate jobs.
	AtlasOnly bool

	AtlasConfig atlas.Config
}

// Forge wires the rule engine, cache, scheduler, and watcher into the
// end-to-end build flow.
type Forge struct {
	sourceDir string
	outputDir string
	rules     *rules.Engine
	cache     *cache.Store
	sched     *scheduler.Scheduler
	logger    logger.Logger
	opts      Options
}

// New builds a Forge for a project config rooted at baseDir. presetName
// selects the platform preset; an unknown name is a ConfigError.
func New(cfg *types.Config, baseDir, presetName string, opts Options, log logger.Logger) (*Forge, error) {
	ruleEngine, err := rules.NewEngine(cfg, presetName)
	if err != nil {
		return nil, err
	}

	cacheDir := cfg.Cache.Directory
	if cacheDir == "" {
		cacheDir = ".asset-forge-cache"
	}
	if !filepath.IsAbs(cacheDir) {
		cacheDir = filepath.Join(baseDir, cacheDir)
	}

	store := cache.NewStore(cacheDir, cfg.Cache.Enabled, log)
	if err := store.Load(); err != nil {
		return nil, err
	}

	atlasCfg := opts.AtlasConfig
	if atlasCfg.MaxWidth <= 0 || atlasCfg.MaxHeight <= 0 {
		atlasCfg = atlas.DefaultConfig()
	}

	sched := scheduler.New(store, processors.NewRegistry(), atlas.NewBuilder(atlasCfg), log)

	sourceDir := cfg.Project.Source
	if !filepath.IsAbs(sourceDir) {
		sourceDir = filepath.Join(baseDir, sourceDir)
	}
	outputDir := cfg.Project.Output
	if !filepath.IsAbs(outputDir) {
		outputDir = filepath.Join(baseDir, outputDir)
	}

	return &Forge{
		sourceDir: sourceDir,
		outputDir: outputDir,
		rules:     ruleEngine,
		cache:     store,
		sched:     sched,
		logger:    log,
		opts:      opts,
	}, nil
}

// Cache exposes the store for the info and clean commands.
func (f *Forge) Cache() *cache.Store { return f.cache }

// SourceDir returns the resolved source root.
func (f *Forge) SourceDir() string { return f.sourceDir }

// OutputDir returns the resolved output root.
func (f *Forge) OutputDir() string { return f.outputDir }

// Scan walks the source tree and snapshots every recognized asset.
// Excluded directories and unknown file types are skipped.
func (f *Forge) Scan() ([]types.AssetRecord, error) {
	var records []types.AssetRecord

	err := filepath.WalkDir(f.sourceDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != f.sourceDir && isExcludedDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if types.KindForPath(path) == types.AssetKindUnknown {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		hash, err := utils.HashFile(path)
		if err != nil {
			return err
		}

		records = append(records, types.AssetRecord{
			Path:        path,
			ContentHash: hash,
			Size:        info.Size(),
			MTime:       info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })
	return records, nil
}

// Plan resolves pipelines for the scanned assets and produces the job
// set: one job per standalone asset, one aggregate job per atlas group.
func (f *Forge) Plan(records []types.AssetRecord) []types.BuildJob {
	var jobs []types.BuildJob
	groups := make(map[string]*atlasGroup)
	var groupOrder []string

	for _, record := range records {
		rel, err := filepath.Rel(f.sourceDir, record.Path)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)

		pipeline := f.rules.Resolve(rel)
		if pipeline.IsNoop() {
			continue
		}
		if !f.kindSelected(pipeline.Kind) {
			continue
		}

		if pipeline.Atlas && pipeline.AtlasGroup != "" {
			group, ok := groups[pipeline.AtlasGroup]
			if !ok {
				group = &atlasGroup{pipeline: pipeline}
				groups[pipeline.AtlasGroup] = group
				groupOrder = append(groupOrder, pipeline.AtlasGroup)
			} else if pipeline.Signature() != group.pipeline.Signature() {
				// The whole group builds with the first member's
				// pipeline; per-sprite settings cannot apply inside
				// one page.
				f.logger.Warn("Atlas member overridden by a later rule; the group pipeline wins",
					logger.WithField("group", pipeline.AtlasGroup),
					logger.WithField("path", record.Path))
			}
			group.members = append(group.members, record)
			continue
		}

		if f.opts.AtlasOnly {
			continue
		}

		jobs = append(jobs, types.BuildJob{
			Asset:      record,
			Pipeline:   pipeline,
			OutputPath: filepath.Join(f.outputDir, filepath.FromSlash(pipeline.OutputPathFor(rel))),
		})
	}

	for _, name := range groupOrder {
		group := groups[name]
		jobs = append(jobs, f.atlasJob(name, group))
	}

	return jobs
}

// Build runs the full scan-plan-submit-flush cycle once.
func (f *Forge) Build(ctx context.Context) (*scheduler.BuildReport, error) {
	records, err := f.Scan()
	if err != nil {
		return nil, err
	}

	jobs := f.Plan(records)
	f.logger.Info("Build planned",
		logger.WithField("assets", len(records)),
		logger.WithField("jobs", len(jobs)))

	report := f.sched.Submit(ctx, jobs, scheduler.Options{
		Workers: f.opts.Workers,
		Force:   f.opts.Force,
		DryRun:  f.opts.DryRun,
	})

	if !f.opts.DryRun {
		if err := f.cache.Flush(); err != nil {
			f.logger.Warn("Cache flush failed", logger.WithField("error", err))
		}
	}

	return report, nil
}

// Watch runs an initial build and then rebuilds on debounced change
// batches until the context is cancelled. Job failures are reported and
// watching continues.
func (f *Forge) Watch(ctx context.Context) error {
	if _, err := f.Build(ctx); err != nil {
		return err
	}

	svc, err := watcher.New(f.sourceDir, f.opts.Debounce, f.logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	notify := notifier.New(notifier.Config{Enabled: f.opts.Notify, Sound: f.opts.Notify}, f.logger)

	err = svc.Run(ctx, func(ctx context.Context, changes []watcher.Change) {
		f.rebuild(ctx, changes, notify)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// rebuild handles one debounced change batch: invalidates deleted
// sources and rebuilds the affected jobs, including any atlas group a
// changed sprite belongs to.
func (f *Forge) rebuild(ctx context.Context, changes []watcher.Change, notify *notifier.BuildNotifier) {
	changed := make(map[string]bool, len(changes))
	for _, change := range changes {
		if change.Deleted {
			removed := f.cache.Invalidate(change.Path)
			f.logger.Info("Source deleted",
				logger.WithField("path", change.Path),
				logger.WithField("invalidated", removed))
			continue
		}
		changed[change.Path] = true
	}

	records, err := f.Scan()
	if err != nil {
		f.logger.Error("Rescan failed", logger.WithField("error", err))
		return
	}

	var jobs []types.BuildJob
	for _, job := range f.Plan(records) {
		if jobAffected(job, changed) {
			jobs = append(jobs, job)
		}
	}
	if len(jobs) == 0 {
		if err := f.cache.Flush(); err != nil {
			f.logger.Warn("Cache flush failed", logger.WithField("error", err))
		}
		return
	}

	report := f.sched.Submit(ctx, jobs, scheduler.Options{
		Workers: f.opts.Workers,
	})
	if err := f.cache.Flush(); err != nil {
		f.logger.Warn("Cache flush failed", logger.WithField("error", err))
	}

	built, cached, failed, _ := report.Counts()
	if failed > 0 {
		f.logger.Warn("Rebuild finished with failures",
			logger.WithField("failed", failed),
			logger.WithField("built", built))
		notify.NotifyBuildFailure(failed)
		return
	}
	f.logger.Success("Rebuild finished",
		logger.WithField("built", built),
		logger.WithField("cached", cached),
		logger.WithField("duration", report.Duration.Round(time.Millisecond)))
	notify.NotifyBuildSuccess(built, report.Duration)
}

// jobAffected reports whether a job's source set intersects the changed
// paths. Atlas jobs are conservatively rebuilt when any member changed.
func jobAffected(job types.BuildJob, changed map[string]bool) bool {
	if changed[job.Asset.Path] {
		return true
	}
	for _, member := range job.Members {
		if changed[member.Path] {
			return true
		}
	}
	return false
}

type atlasGroup struct {
	pipeline types.Pipeline
	members  []types.AssetRecord
}

// atlasJob builds the aggregate job for one group. The group's content
// hash covers every member, so any member change misses the cache.
func (f *Forge) atlasJob(name string, group *atlasGroup) types.BuildJob {
	sort.Slice(group.members, func(i, j int) bool {
		return group.members[i].Path < group.members[j].Path
	})

	var combined strings.Builder
	var totalSize int64
	var latest time.Time
	for _, member := range group.members {
		combined.WriteString(member.Path)
		combined.WriteByte(':')
		combined.WriteString(member.ContentHash)
		combined.WriteByte('\n')
		totalSize += member.Size
		if member.MTime.After(latest) {
			latest = member.MTime
		}
	}

	pageName := sanitizeGroupName(name)
	return types.BuildJob{
		Asset: types.AssetRecord{
			Path:        "atlas:" + name,
			ContentHash: utils.HashBytes([]byte(combined.String())),
			Size:        totalSize,
			MTime:       latest,
		},
		Pipeline:   group.pipeline,
		OutputPath: filepath.Join(f.outputDir, "atlases", pageName+".png"),
		AtlasGroup: name,
		Members:    group.members,
	}
}

var groupNameSanitizer = regexp.MustCompile(`[^a-z0-9]+`)

// sanitizeGroupName turns a rule pattern into a filesystem-safe page name.
func sanitizeGroupName(name string) string {
	clean := groupNameSanitizer.ReplaceAllString(strings.ToLower(name), "-")
	clean = strings.Trim(clean, "-")
	if clean == "" {
		return "atlas"
	}
	return clean
}

func (f *Forge) kindSelected(kind types.AssetKind) bool {
	if len(f.opts.Kinds) == 0 {
		return true
	}
	for _, k := range f.opts.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func isExcludedDir(name string) bool {
	for _, exc := range utils.DefaultExclusions() {
		if name == exc {
			return true
		}
	}
	return false
}
