package cli

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/assetforge/assetforge/internal/engine"
)

// newWatchCmd runs an initial build and then rebuilds on file changes.
func newWatchCmd() *cobra.Command {
	var (
		output     string
		preset     string
		jobs       int
		debounceMS int
		notify     bool
	)

	cmd := &cobra.Command{
		Use:   "watch [source]",
		Short: "Watch the source directory and rebuild changed assets",
		Long: `Runs a full build, then watches the source tree. Rapid change bursts
are coalesced: the rebuild starts once no event has arrived for the
debounce window. Failed jobs are reported and watching continues.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) > 0 {
				input = args[0]
			}

			forge, err := makeForge(input, output, preset, engine.Options{
				Workers:  jobs,
				Debounce: time.Duration(debounceMS) * time.Millisecond,
				Notify:   notify,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			printInfo("Watching for changes, Ctrl-C to stop")
			return forge.Watch(ctx)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (overrides config)")
	cmd.Flags().StringVarP(&preset, "preset", "p", "", "Platform preset (mobile, desktop, web)")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Worker pool size (default: number of CPUs)")
	cmd.Flags().IntVar(&debounceMS, "debounce", 300, "Debounce window in milliseconds")
	cmd.Flags().BoolVar(&notify, "notify", false, "Send desktop notifications for rebuild results")
	return cmd
}
