package cli

import (
	"context"
	"fmt"
	"time"

	"sjsage522/pagescope/internal/session"
	"sjsage522/pagescope/services/worker"

	"github.com/spf13/cobra"
)

func newWatchCmd(root *rootOptions) *cobra.Command {
	var (
		interval time.Duration
		once     bool
		publish  bool
	)
	cmd := &cobra.Command{
		Use:   "watch <url-or-file>...",
		Short: "Re-analyze sources periodically and publish the reports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("interval must be positive, got %s", interval)
			}
			a, err := bootstrap(cmd, root, publish)
			if err != nil {
				return err
			}
			defer a.Close()

			if cmd.Flags().Changed("interval") {
				a.cfg.WatchInterval = interval
			}

			sess, err := a.newSession()
			if err != nil {
				return err
			}
			return session.Run(cmd.Context(), sess, func(ctx context.Context, s *session.Session) error {
				w := worker.NewWorker(ctx, s, args, a.deps.Publisher, a.log, a.cfg.WatchInterval)
				if !once {
					return w.Start()
				}
				failed := w.RunOnce()
				for source, err := range failed {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", source, err)
				}
				if len(failed) > 0 {
					return fmt.Errorf("%d of %d sources failed", len(failed), len(args))
				}
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 60*time.Second, "Time between passes")
	cmd.Flags().BoolVar(&once, "once", false, "Run a single pass and exit")
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish reports to the Redis stream")

	return cmd
}
