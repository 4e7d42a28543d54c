// Package cli wires up the pomosync commands: a private offline timer,
// a host serving a shared session, and a client joining one.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mcdev12/pomosync/internal/config"
	"github.com/mcdev12/pomosync/internal/timer"
)

var (
	cfgPath  string
	logLevel string
	logFile  string

	// cfg and cfgSource are resolved once in PersistentPreRunE and read
	// by every subcommand.
	cfg       config.Config
	cfgSource string
)

var rootCmd = &cobra.Command{
	Use:   "pomosync",
	Short: "A shared pomodoro timer for pairs and small teams",
	Long: `pomosync keeps one pomodoro clock in sync for everyone in a session.
Host a session for your team, join someone else's, or run a private
timer offline. The host owns the clock; every keypress anywhere in the
session lands on the same timer.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err == nil {
			log.Debug().Msg("loaded .env file")
		}

		cfgSource = cfgPath
		if cfgSource == "" {
			cfgSource = config.DefaultPath()
		}
		var err error
		cfg, err = config.Load(cfgSource)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		if logFile != "" {
			cfg.Log.File = logFile
		}

		level, err := zerolog.ParseLevel(strings.ToLower(cfg.Log.Level))
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
		}
		zerolog.SetGlobalLevel(level)
		return nil
	},
}

// Execute runs the root command. Cobra prints the error; we only set
// the exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default is "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "append logs to this file instead of stderr")
}

// configureLogOutput points zerolog at the right sink. Interactive
// commands own the terminal, so unless a log file is set their logs are
// dropped rather than smeared across the alt screen.
func configureLogOutput(interactive bool) error {
	switch {
	case cfg.Log.File != "":
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		log.Logger = zerolog.New(f).With().Timestamp().Logger()
	case interactive:
		log.Logger = zerolog.New(io.Discard)
	default:
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return nil
}

// timerFlags are the phase length overrides shared by local and host.
// Empty or zero values fall through to the config file.
type timerFlags struct {
	work      string
	short     string
	long      string
	cycle     int
	autoStart bool
}

func (f *timerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.work, "work", "", `work phase length ("25" or "25:00")`)
	cmd.Flags().StringVar(&f.short, "short", "", "short break length")
	cmd.Flags().StringVar(&f.long, "long", "", "long break length")
	cmd.Flags().IntVar(&f.cycle, "cycle", 0, "work phases per long break")
	cmd.Flags().BoolVar(&f.autoStart, "auto-start", false, "start each next phase without waiting")
}

// settings folds the flag overrides over the loaded config and parses
// the result.
func (f *timerFlags) settings(cmd *cobra.Command) (timer.Settings, error) {
	c := cfg
	if f.work != "" {
		c.Timer.Work = f.work
	}
	if f.short != "" {
		c.Timer.ShortBreak = f.short
	}
	if f.long != "" {
		c.Timer.LongBreak = f.long
	}
	if f.cycle != 0 {
		c.Timer.CycleLength = f.cycle
	}
	if cmd.Flags().Changed("auto-start") {
		c.Timer.AutoStart = f.autoStart
	}
	return c.TimerSettings()
}

// watchDurations reloads the config file whenever it changes on disk and
// pushes the new phase lengths into the running session. Invalid edits
// are logged and skipped; nothing else about the session is touched.
func watchDurations(ctx context.Context, path string, submit func(timer.Action) error) {
	updates, err := config.Watch(ctx, path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("config watching disabled")
		return
	}
	for update := range updates {
		settings, err := update.TimerSettings()
		if err != nil {
			log.Warn().Err(err).Msg("ignoring config change with invalid timer settings")
			continue
		}
		action := timer.Action{
			Kind: timer.ActionSetDurations,
			Durations: &timer.DurationSet{
				Work:       settings.Work,
				ShortBreak: settings.ShortBreak,
				LongBreak:  settings.LongBreak,
			},
		}
		if err := submit(action); err != nil {
			return
		}
	}
}
