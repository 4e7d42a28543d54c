package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mcdev12/pomosync/internal/config"
	"github.com/mcdev12/pomosync/internal/effectbus"
	"github.com/mcdev12/pomosync/internal/gateway"
	"github.com/mcdev12/pomosync/internal/session"
	"github.com/mcdev12/pomosync/internal/transport"
	"github.com/mcdev12/pomosync/internal/tui"
)

var (
	hostTimer    timerFlags
	hostListen   string
	hostMax      int
	hostGateway  string
	hostName     string
	hostHeadless bool
)

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Host a shared session others can join",
	Long: `Start a session server and share its address. Everyone who joins sees
the same clock, and any participant can start, pause, or skip it.

With --gateway, browser clients can join over WebSocket on a second
port. With --headless the host serves the session without taking a
seat in it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := hostTimer.settings(cmd)
		if err != nil {
			return err
		}
		if err := configureLogOutput(!hostHeadless); err != nil {
			return err
		}

		listen := hostListen
		if listen == "" {
			listen = cfg.Host.Listen
		}
		maxParticipants := hostMax
		if maxParticipants == 0 {
			maxParticipants = cfg.Host.MaxParticipants
		}
		gatewayAddr := hostGateway
		if gatewayAddr == "" {
			gatewayAddr = cfg.Gateway.Listen
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		hubCfg := session.DefaultConfig()
		hubCfg.MaxParticipants = maxParticipants
		hub := session.NewHub(settings, hubCfg, clockwork.NewRealClock())
		go hub.Run(ctx)

		lis, err := net.Listen("tcp", listen)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", listen, err)
		}
		srv := transport.NewServer(hub, transport.DefaultConfig())
		go func() {
			if err := srv.Serve(ctx, lis); err != nil {
				log.Error().Err(err).Msg("session server stopped")
				stop()
			}
		}()
		log.Info().
			Str("addr", lis.Addr().String()).
			Int("max_participants", maxParticipants).
			Msg("hosting session")

		if gatewayAddr != "" {
			serveGateway(ctx, hub, gatewayAddr)
		}

		if cfg.NATS.URL != "" {
			pub, err := connectEffectBus()
			if err != nil {
				return err
			}
			defer pub.Close()
			tap, err := hub.Tap(64)
			if err != nil {
				return err
			}
			go pub.Run(ctx, tap)
		}

		go watchDurations(ctx, cfgSource, hub.SubmitLocal)

		if hostHeadless {
			<-ctx.Done()
			return nil
		}

		handle, err := hub.Connect(hostName)
		if err != nil {
			return err
		}
		defer handle.Close()
		return tui.Run(handle, "hosting on "+listen)
	},
}

func init() {
	rootCmd.AddCommand(hostCmd)
	hostTimer.register(hostCmd)
	hostCmd.Flags().StringVar(&hostListen, "listen", "", "session server address (default "+config.DefaultListenAddr+")")
	hostCmd.Flags().IntVar(&hostMax, "max-participants", 0, "maximum roster size")
	hostCmd.Flags().StringVar(&hostGateway, "gateway", "", "serve a WebSocket gateway on this address")
	hostCmd.Flags().StringVar(&hostName, "name", "host", "display name in the roster")
	hostCmd.Flags().BoolVar(&hostHeadless, "headless", false, "serve the session without a terminal UI")
}

func serveGateway(ctx context.Context, hub *session.Hub, addr string) {
	gw := gateway.New(hub, gateway.DefaultConnectionConfig())
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      gw.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", addr).Msg("websocket gateway listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("gateway stopped")
		}
	}()
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutCtx); err != nil {
			log.Warn().Err(err).Msg("gateway shutdown")
		}
	}()
}

func connectEffectBus() (*effectbus.Publisher, error) {
	busCfg := effectbus.DefaultConfig()
	busCfg.URL = cfg.NATS.URL
	if cfg.NATS.SubjectPrefix != "" {
		busCfg.SubjectPrefix = cfg.NATS.SubjectPrefix
	}
	pub, err := effectbus.NewPublisher(busCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", busCfg.URL, err)
	}
	return pub, nil
}
