package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/assetforge/assetforge/internal/engine"
	"github.com/assetforge/assetforge/pkg/atlas"
	"github.com/assetforge/assetforge/pkg/cache"
	"github.com/assetforge/assetforge/pkg/config"
	"github.com/assetforge/assetforge/pkg/processors"
	"github.com/assetforge/assetforge/pkg/rules"
	"github.com/assetforge/assetforge/pkg/scheduler"
	"github.com/assetforge/assetforge/pkg/types"
	"github.com/assetforge/assetforge/pkg/utils"
)

// newInitCmd writes the default configuration file.
func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default asset-forge.toml in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.FileName
			if utils.FileExists(path) && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.DefaultTOML()), 0644); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Wrote %s", path))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}

// newBuildCmd runs the full incremental build.
func newBuildCmd() *cobra.Command {
	var (
		output string
		preset string
		force  bool
		jobs   int
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "build [source]",
		Short: "Build all assets under the source directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) > 0 {
				input = args[0]
			}

			forge, err := makeForge(input, output, preset, engine.Options{
				Workers: jobs,
				Force:   force,
				DryRun:  dryRun,
			})
			if err != nil {
				return err
			}

			report, err := forge.Build(cmd.Context())
			if err != nil {
				return err
			}
			return printReport(report, dryRun)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (overrides config)")
	cmd.Flags().StringVarP(&preset, "preset", "p", "", "Platform preset (mobile, desktop, web)")
	cmd.Flags().BoolVar(&force, "force", false, "Rebuild everything, ignoring the cache")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Worker pool size (default: number of CPUs)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be built without building")
	return cmd
}

// newOptimizeCmd processes a single asset with flag-driven settings.
func newOptimizeCmd() *cobra.Command {
	var (
		output  string
		format  string
		quality int
		maxSize int
		mipmap  bool
	)

	cmd := &cobra.Command{
		Use:   "optimize <asset>",
		Short: "Optimize a single asset file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return processSingle(cmd.Context(), args[0], output, singleOverrides{
				format:  format,
				quality: quality,
				maxSize: maxSize,
				mipmap:  mipmap,
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format (png, jpg, webp, ogg, wav, glb)")
	cmd.Flags().IntVarP(&quality, "quality", "q", 0, "Encoding quality")
	cmd.Flags().IntVar(&maxSize, "max-size", 0, "Maximum texture dimension")
	cmd.Flags().BoolVar(&mipmap, "mipmap", false, "Generate mipmaps")
	return cmd
}

// newAtlasCmd packs a directory of sprites into one atlas page.
func newAtlasCmd() *cobra.Command {
	var (
		output    string
		jsonPath  string
		maxWidth  int
		maxHeight int
		padding   int
		trim      bool
	)

	cmd := &cobra.Command{
		Use:   "atlas <sprite-dir>",
		Short: "Pack a directory of sprites into a texture atlas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if !utils.DirectoryExists(dir) {
				return fmt.Errorf("sprite directory not found: %s", dir)
			}

			var sprites []atlas.Sprite
			err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
				if err != nil || d.IsDir() {
					return err
				}
				if types.KindForPath(path) != types.AssetKindImage {
					return nil
				}
				sprite, err := atlas.LoadSprite(path, trim)
				if err != nil {
					return err
				}
				sprites = append(sprites, sprite)
				return nil
			})
			if err != nil {
				return err
			}
			if len(sprites) == 0 {
				return fmt.Errorf("no images found under %s", dir)
			}
			atlas.SortSprites(sprites)

			builder := atlas.NewBuilder(atlas.Config{
				MaxWidth:  maxWidth,
				MaxHeight: maxHeight,
				Padding:   padding,
			})
			result, err := builder.Build(sprites, output)
			if err != nil {
				return err
			}

			if jsonPath != "" && jsonPath != result.MetadataPath {
				if err := os.Rename(result.MetadataPath, jsonPath); err != nil {
					return err
				}
				result.MetadataPath = jsonPath
			}

			printSuccess(fmt.Sprintf("Packed %d sprites into %s (%dx%d), metadata %s",
				len(sprites), result.ImagePath, result.Page.Width, result.Page.Height, result.MetadataPath))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "atlas.png", "Atlas image path")
	cmd.Flags().StringVar(&jsonPath, "json", "", "Metadata path (default: next to the image)")
	cmd.Flags().IntVar(&maxWidth, "max-width", 2048, "Maximum page width")
	cmd.Flags().IntVar(&maxHeight, "max-height", 2048, "Maximum page height")
	cmd.Flags().IntVar(&padding, "padding", 2, "Padding between sprites in pixels")
	cmd.Flags().BoolVar(&trim, "trim", false, "Trim sprites to their opaque bounding box")
	return cmd
}

// newModelCmd processes a single 3D model.
func newModelCmd() *cobra.Command {
	var (
		output   string
		lod      bool
		lodCount int
		lodRatio float64
		compress bool
		info     bool
	)

	cmd := &cobra.Command{
		Use:   "model <asset>",
		Short: "Optimize a 3D model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if info {
				return printAssetInfo(args[0])
			}

			pipeline := types.Pipeline{Kind: types.AssetKindModel, OutputFormat: "glb"}
			if compress {
				pipeline.Steps = append(pipeline.Steps, types.Transform{
					Kind:           types.TransformBufferCompress,
					BufferCompress: &types.BufferCompressParams{},
				})
			}
			if lod {
				pipeline.Steps = append(pipeline.Steps, types.Transform{
					Kind:     types.TransformSimplify,
					Simplify: &types.SimplifyParams{LODCount: lodCount, LODRatio: lodRatio},
				})
			}
			pipeline.Steps = append(pipeline.Steps, types.Transform{
				Kind:   types.TransformEncode,
				Encode: &types.EncodeParams{Format: "glb"},
			})

			return runSingle(cmd.Context(), args[0], output, pipeline)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	cmd.Flags().BoolVar(&lod, "lod", false, "Generate LOD chain")
	cmd.Flags().IntVar(&lodCount, "lod-count", 3, "Number of LOD levels")
	cmd.Flags().Float64Var(&lodRatio, "lod-ratio", 0.5, "Triangle ratio between LOD levels")
	cmd.Flags().BoolVar(&compress, "compress", false, "Compress vertex and index buffers")
	cmd.Flags().BoolVar(&info, "info", false, "Print asset info instead of processing")
	return cmd
}

// newAudioCmd processes a single audio file.
func newAudioCmd() *cobra.Command {
	var (
		output     string
		format     string
		quality    int
		sampleRate int
		normalize  bool
		info       bool
	)

	cmd := &cobra.Command{
		Use:   "audio <asset>",
		Short: "Optimize an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if info {
				return printAssetInfo(args[0])
			}

			pipeline := types.Pipeline{Kind: types.AssetKindAudio, OutputFormat: format}
			if normalize {
				pipeline.Steps = append(pipeline.Steps, types.Transform{
					Kind:      types.TransformNormalize,
					Normalize: &types.NormalizeParams{TargetPeak: 1.0},
				})
			}
			if sampleRate > 0 {
				pipeline.Steps = append(pipeline.Steps, types.Transform{
					Kind:     types.TransformResample,
					Resample: &types.ResampleParams{SampleRate: sampleRate},
				})
			}
			pipeline.Steps = append(pipeline.Steps, types.Transform{
				Kind:   types.TransformEncode,
				Encode: &types.EncodeParams{Format: format, Quality: quality},
			})

			return runSingle(cmd.Context(), args[0], output, pipeline)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	cmd.Flags().StringVarP(&format, "format", "f", "ogg", "Output format (ogg, wav)")
	cmd.Flags().IntVarP(&quality, "quality", "q", 5, "Encoding quality (0-10)")
	cmd.Flags().IntVar(&sampleRate, "sample-rate", 0, "Target sample rate in Hz")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "Normalize to peak amplitude")
	cmd.Flags().BoolVar(&info, "info", false, "Print asset info instead of processing")
	return cmd
}

// newInfoCmd prints what the pipeline would do with one asset.
func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <asset>",
		Short: "Show asset kind, size, content hash, and resolved pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printAssetInfo(args[0])
		},
	}
}

// newCleanCmd purges the build cache.
func newCleanCmd() *cobra.Command {
	var (
		cacheDir string
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Purge the build cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProjectConfig(".")
			if err != nil {
				return err
			}

			dir := cacheDir
			if dir == "" {
				dir = cfg.Cache.Directory
			}
			if dir == "" {
				dir = ".asset-forge-cache"
			}

			store := cache.NewStore(dir, true, newLogger())
			if err := store.Purge(); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Purged cache at %s", dir))

			if all && cfg.Project.Output != "" {
				if err := os.RemoveAll(cfg.Project.Output); err != nil {
					return err
				}
				printSuccess(fmt.Sprintf("Removed output directory %s", cfg.Project.Output))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Cache directory (default: from config)")
	cmd.Flags().BoolVar(&all, "all", false, "Also remove the output directory")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("⚒ Asset Forge v%s\n", version)
		},
	}
}

// Helpers shared by the commands.

// makeForge loads the project config, applies CLI overrides, and
// constructs the engine.
func makeForge(source, output, preset string, opts engine.Options) (*engine.Forge, error) {
	cfg, err := loadProjectConfig(".")
	if err != nil {
		return nil, err
	}
	if source != "" {
		cfg.Project.Source = source
	}
	if output != "" {
		cfg.Project.Output = output
	}
	if err := config.NewManager().Validate(cfg); err != nil {
		return nil, err
	}
	return engine.New(cfg, ".", preset, opts, newLogger())
}

// printReport summarizes a build and returns an error when any job failed
// so the process exits nonzero.
func printReport(report *scheduler.BuildReport, dryRun bool) error {
	built, cached, failed, wouldBuild := report.Counts()

	if dryRun {
		printInfo(fmt.Sprintf("Dry run: %d would build, %d cached", wouldBuild, cached))
		return nil
	}

	saved := report.TotalInput - report.TotalOut
	printInfo(fmt.Sprintf("%d built, %d cached, %d failed in %s (%s in, %s out)",
		built, cached, failed,
		report.Duration.Round(time.Millisecond),
		utils.FormatBytes(report.TotalInput),
		utils.FormatBytes(report.TotalOut)))
	if saved > 0 && built > 0 {
		printInfo(fmt.Sprintf("Saved %s", utils.FormatBytes(saved)))
	}

	if failed > 0 {
		for _, res := range report.Failed() {
			printError(fmt.Sprintf("%s: %v", res.SourcePath, res.Err))
		}
		return fmt.Errorf("%d job(s) failed", failed)
	}
	printSuccess("Build complete")
	return nil
}

type singleOverrides struct {
	format  string
	quality int
	maxSize int
	mipmap  bool
}

// processSingle runs one asset through a pipeline assembled from CLI
// flags, bypassing rules and cache.
func processSingle(ctx context.Context, input, output string, ov singleOverrides) error {
	kind := types.KindForPath(input)
	if kind == types.AssetKindUnknown {
		return fmt.Errorf("unrecognized asset type: %s", input)
	}

	pipeline := types.Pipeline{Kind: kind, OutputFormat: ov.format}
	switch kind {
	case types.AssetKindImage:
		if ov.maxSize > 0 {
			pipeline.Steps = append(pipeline.Steps, types.Transform{
				Kind:   types.TransformResize,
				Resize: &types.ResizeParams{MaxSize: ov.maxSize},
			})
		}
		if ov.mipmap {
			pipeline.Steps = append(pipeline.Steps, types.Transform{
				Kind:        types.TransformGenerateMip,
				GenerateMip: &types.GenerateMipParams{},
			})
		}
		format := ov.format
		if format == "" {
			format = "png"
		}
		quality := ov.quality
		if quality <= 0 {
			quality = 80
		}
		pipeline.Steps = append(pipeline.Steps, types.Transform{
			Kind:   types.TransformEncode,
			Encode: &types.EncodeParams{Format: format, Quality: quality},
		})
		pipeline.OutputFormat = format
	case types.AssetKindAudio:
		format := ov.format
		if format == "" {
			format = "ogg"
		}
		pipeline.Steps = append(pipeline.Steps, types.Transform{
			Kind:   types.TransformEncode,
			Encode: &types.EncodeParams{Format: format, Quality: ov.quality},
		})
		pipeline.OutputFormat = format
	case types.AssetKindModel:
		pipeline.Steps = append(pipeline.Steps, types.Transform{
			Kind:   types.TransformEncode,
			Encode: &types.EncodeParams{Format: "glb"},
		})
		pipeline.OutputFormat = "glb"
	}

	return runSingle(ctx, input, output, pipeline)
}

// runSingle processes one file through the registry and writes the result.
func runSingle(ctx context.Context, input, output string, pipeline types.Pipeline) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	proc := processors.NewRegistry().For(pipeline.Kind)
	result := data
	if proc != nil {
		result, err = proc.Process(ctx, data, pipeline)
		if err != nil {
			return err
		}
	}

	if output == "" {
		output = pipeline.OutputPathFor(input)
		if output == input {
			ext := filepath.Ext(input)
			output = strings.TrimSuffix(input, ext) + ".out" + ext
		}
	}
	if err := utils.WriteFileAtomic(output, result); err != nil {
		return err
	}

	printSuccess(fmt.Sprintf("%s -> %s (%s -> %s)",
		input, output,
		utils.FormatBytes(int64(len(data))),
		utils.FormatBytes(int64(len(result)))))
	return nil
}

// printAssetInfo resolves the pipeline for one asset against the project
// config and prints the plan.
func printAssetInfo(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	hash, err := utils.HashFile(path)
	if err != nil {
		return err
	}

	kind := types.KindForPath(path)
	printInfo(fmt.Sprintf("Path:   %s", path))
	printInfo(fmt.Sprintf("Kind:   %s", kind.Description()))
	printInfo(fmt.Sprintf("Size:   %s", utils.FormatBytes(info.Size())))
	printInfo(fmt.Sprintf("SHA256: %s", hash))

	baseDir := filepath.Dir(path)
	cfg, err := loadProjectConfig(baseDir)
	if err != nil {
		return err
	}
	ruleEngine, err := rules.NewEngine(cfg, "")
	if err != nil {
		return err
	}

	// Rules match source-relative paths, so resolve the asset against
	// the configured source root rather than its bare file name.
	sourceDir := cfg.Project.Source
	if !filepath.IsAbs(sourceDir) {
		sourceDir = filepath.Join(configDir(baseDir), sourceDir)
	}
	rel := relToSource(sourceDir, path)

	pipeline := ruleEngine.Resolve(rel)
	if pipeline.IsNoop() {
		printWarning("No pipeline applies; the asset would pass through unchanged")
		return nil
	}
	for i, step := range pipeline.Steps {
		printInfo(fmt.Sprintf("Step %d: %s", i+1, step.Kind))
	}
	if pipeline.OutputFormat != "" {
		printInfo(fmt.Sprintf("Output: %s", pipeline.OutputPathFor(rel)))
	}
	if pipeline.Atlas {
		printInfo(fmt.Sprintf("Atlas:  group %q", pipeline.AtlasGroup))
	}
	return nil
}

// configDir returns the directory relative config paths resolve
// against: the effective config file's directory, or baseDir when the
// defaults are in effect.
func configDir(baseDir string) string {
	if cfgFile != "" {
		return filepath.Dir(cfgFile)
	}
	if found, err := config.NewManager().Find(baseDir); err == nil && found != "" {
		return filepath.Dir(found)
	}
	return baseDir
}

// relToSource rewrites path relative to the source root so
// directory-scoped rule patterns can match it. Paths outside the
// source tree fall back to the bare file name.
func relToSource(sourceDir, path string) string {
	srcAbs, err := filepath.Abs(sourceDir)
	if err != nil {
		return filepath.Base(path)
	}
	pathAbs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Base(path)
	}
	rel, err := filepath.Rel(srcAbs, pathAbs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}
