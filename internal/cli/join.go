package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcdev12/pomosync/internal/transport"
	"github.com/mcdev12/pomosync/internal/tui"
)

var joinName string

var joinCmd = &cobra.Command{
	Use:   "join ADDR",
	Short: "Join a session hosted elsewhere",
	Long: `Connect to a running session, for example:

  pomosync join 192.168.1.40:7319 --name ada`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := args[0]
		if err := configureLogOutput(true); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		remote, err := transport.Dial(dialCtx, addr, joinName)
		if err != nil {
			return fmt.Errorf("failed to join %s: %w", addr, err)
		}
		defer remote.Close()
		go func() {
			<-ctx.Done()
			remote.Close()
		}()

		if err := tui.Run(remote, "joined "+addr); err != nil {
			return err
		}
		if err := remote.Err(); err != nil {
			if errors.Is(err, transport.ErrSessionEnded) {
				fmt.Println("session ended by host")
				return nil
			}
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(joinCmd)
	joinCmd.Flags().StringVar(&joinName, "name", "", "display name in the roster (default guest-XXXXXXXX)")
}
