// Package notifier surfaces build outcomes as desktop notifications
package notifier

import (
	"fmt"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/assetforge/assetforge/pkg/logger"
)

// BuildNotifier sends desktop notifications for watch-mode builds.
type BuildNotifier struct {
	enabled bool
	sound   bool
	logger  logger.Logger
}

// Config represents notification configuration
type Config struct {
	Enabled bool
	Sound   bool
}

// New creates a new build notifier
func New(config Config, log logger.Logger) *BuildNotifier {
	return &BuildNotifier{
		enabled: config.Enabled,
		sound:   config.Sound,
		logger:  log,
	}
}

// NotifyBuildSuccess notifies that an incremental build finished clean.
func (n *BuildNotifier) NotifyBuildSuccess(built int, duration time.Duration) {
	if !n.enabled {
		return
	}

	title := "⚒ Assets Built"
	message := fmt.Sprintf("%d asset(s) rebuilt in %s", built, formatDuration(duration))

	n.send(title, message, false)
}

// NotifyBuildFailure notifies that one or more jobs failed.
func (n *BuildNotifier) NotifyBuildFailure(failed int) {
	if !n.enabled {
		return
	}

	title := "❌ Asset Build Failed"
	message := fmt.Sprintf("%d job(s) failed, see log for details", failed)

	n.send(title, message, true)
}

func (n *BuildNotifier) send(title, message string, withSound bool) {
	if err := beeep.Notify(title, message, ""); err != nil {
		n.logger.Debug("Failed to send notification", logger.WithField("error", err))
	}

	if withSound && n.sound {
		if err := beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration); err != nil {
			n.logger.Debug("Failed to play sound", logger.WithField("error", err))
		}
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
