// Package serve runs the HTTP API together with the optional metrics
// endpoint and MQTT ingest.
package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	gommonlog "github.com/labstack/gommon/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	api "github.com/tphakala/helmetwatch/internal/api/v2"
	"github.com/tphakala/helmetwatch/internal/buildinfo"
	"github.com/tphakala/helmetwatch/internal/conf"
	"github.com/tphakala/helmetwatch/internal/coordinator"
	"github.com/tphakala/helmetwatch/internal/datastore"
	"github.com/tphakala/helmetwatch/internal/logger"
	"github.com/tphakala/helmetwatch/internal/monitor"
	"github.com/tphakala/helmetwatch/internal/mqtt"
	"github.com/tphakala/helmetwatch/internal/observability"
	"github.com/tphakala/helmetwatch/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

// Command creates the serve command.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  "Serve the /api/v2 REST API. Prometheus metrics and MQTT pipeline ingest start when enabled in the config.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(ctx, settings, build)
		},
	}

	cmd.Flags().StringVar(&settings.WebServer.Listen, "listen", viper.GetString("webserver.listen"), "Listen address of the HTTP API")
	cmd.Flags().BoolVar(&settings.Telemetry.Enabled, "telemetry", viper.GetBool("telemetry.enabled"), "Enable Prometheus telemetry endpoint")
	cmd.Flags().BoolVar(&settings.MQTT.Enabled, "mqtt", viper.GetBool("mqtt.enabled"), "Enable MQTT pipeline ingest")

	if err := bindFlags(cmd); err != nil {
		fmt.Fprintf(os.Stderr, "error binding flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// bindFlags maps the serve flags onto their config keys
func bindFlags(cmd *cobra.Command) error {
	for key, flag := range map[string]string{
		"webserver.listen":  "listen",
		"telemetry.enabled": "telemetry",
		"mqtt.enabled":      "mqtt",
	} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}
	return nil
}

// Run wires every component and blocks until ctx is canceled or a server fails.
func Run(ctx context.Context, settings *conf.Settings, build *buildinfo.Context) error {
	log := logger.Global().Module("main")
	log.Info("starting helmetwatch", logger.String("version", build.GetVersion()))

	if err := telemetry.InitSentry(settings, build.GetVersion()); err != nil {
		log.Warn("error reporting disabled", logger.Error(err))
	}
	defer telemetry.Flush()

	db, err := datastore.Open(settings, logger.Global())
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close database", logger.Error(err))
		}
	}()

	m, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	host := monitor.NewSystemMonitor(&settings.Health)

	core := coordinator.New(datastore.Repositories(db),
		coordinator.WithMetrics(m.Coordinator),
		coordinator.WithHealthProbe(host))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(gommonlog.OFF)

	if _, err := api.New(e, core, settings,
		api.WithMetrics(m.HTTP),
		api.WithDatabase(db),
		api.WithHostMonitor(host),
	); err != nil {
		return fmt.Errorf("failed to initialize API: %w", err)
	}

	var endpoint *observability.Endpoint
	if settings.Telemetry.Enabled {
		if endpoint, err = observability.NewEndpoint(settings, m, logger.Global()); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP API listening", logger.String("address", settings.WebServer.Listen))
		if err := e.Start(settings.WebServer.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP API server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down HTTP API")
		return e.Shutdown(shutdownCtx)
	})

	if endpoint != nil {
		g.Go(func() error {
			return endpoint.Run(gctx)
		})
	}

	if settings.MQTT.Enabled {
		handler := mqtt.NewHandler(core, m.MQTT, nil)
		subscriber := mqtt.NewSubscriber(mqtt.ConfigFromSettings(&settings.MQTT), handler, m.MQTT, nil)
		g.Go(func() error {
			// ingest is optional; the API keeps serving without it
			if err := subscriber.Run(gctx); err != nil {
				log.Error("MQTT ingest stopped", logger.Error(err))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("helmetwatch stopped")
	return nil
}
