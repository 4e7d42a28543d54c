package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/mcdev12/pomosync/internal/session"
	"github.com/mcdev12/pomosync/internal/tui"
)

var localTimer timerFlags

var localCmd = &cobra.Command{
	Use:   "local",
	Short: "Run a private timer without hosting a session",
	Long: `Run the full pomodoro timer in this terminal only. Nothing listens on
the network; the timer lives and dies with this process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := localTimer.settings(cmd)
		if err != nil {
			return err
		}
		if err := configureLogOutput(true); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sess := session.NewOffline(settings, clockwork.NewRealClock())
		go sess.Run(ctx)
		go watchDurations(ctx, cfgSource, sess.Submit)

		return tui.Run(sess, "offline")
	},
}

func init() {
	rootCmd.AddCommand(localCmd)
	localTimer.register(localCmd)
}
