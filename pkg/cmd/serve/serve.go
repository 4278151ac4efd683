// Package serve implements the serve command: run the pipeline in the
// background and expose progress and artifacts over HTTP.
package serve

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/f1replay/replay-service-go/log"
	"github.com/f1replay/replay-service-go/pkg/config"
	"github.com/f1replay/replay-service-go/pkg/encoding"
	"github.com/f1replay/replay-service-go/pkg/processing"
	"github.com/f1replay/replay-service-go/pkg/service"
	"github.com/f1replay/replay-service-go/pkg/source"
	"github.com/f1replay/replay-service-go/pkg/source/cache"
	"github.com/f1replay/replay-service-go/pkg/source/openf1"
)

func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "starts the replay API server",
		Long: `Starts the HTTP server and loads the configured session in the
background. /api/status reports progress until the artifacts are ready.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return startServer(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&config.ServerAddr,
		"server-addr",
		"a",
		"localhost:5000",
		"HTTP server listen address")
	cmd.Flags().StringVar(&config.StaticDir,
		"static-dir",
		"",
		"directory with the frontend bundle to serve at /")
	return cmd
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

func setupLogger() *log.Logger {
	opts := []log.Option{log.WithCaller(true), log.AddCallerSkip(1)}
	if config.LogFilter != "" {
		opts = append(opts, log.WithFilters(config.LogFilter))
	}
	switch config.LogFormat {
	case "json":
		return log.New(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel),
			opts...)
	default:
		return log.DevLogger(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.DebugLevel),
			opts...)
	}
}

// newSource builds the upstream client from the resolved configuration,
// wrapping it with the local response cache when one is configured. The
// returned closer is nil when no cache is in play.
func newSource() (source.Source, func() error, error) {
	opts := []openf1.Option{
		openf1.WithBaseURL(config.APIBaseURL),
		openf1.WithRequestRate(config.RequestRate),
	}
	var closer func() error
	if config.CacheFile != "" {
		store, err := cache.Open(config.CacheFile)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, openf1.WithHTTPClient(&http.Client{
			Timeout:   60 * time.Second,
			Transport: store.Transport(nil),
		}))
		closer = store.Close
	}
	client := openf1.NewClient(config.Year, config.GrandPrix, config.Session, opts...)
	return client, closer, nil
}

func startServer(ctx context.Context) error {
	logger := setupLogger()
	log.ResetDefault(logger)

	log.Debug("config",
		log.Int("year", config.Year),
		log.String("grandPrix", config.GrandPrix),
		log.String("session", config.Session),
		log.String("apiUrl", config.APIBaseURL),
		log.String("cache", config.CacheFile),
	)

	src, closeCache, err := newSource()
	if err != nil {
		return err
	}
	if closeCache != nil {
		defer func() {
			if cerr := closeCache(); cerr != nil {
				log.Warn("closing cache", log.ErrorField(cerr))
			}
		}()
	}

	tracker := service.NewStateTracker()
	defer tracker.Close()

	pipelineCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go runPipeline(pipelineCtx, src, tracker)

	srv := service.NewServer(
		service.WithAddr(config.ServerAddr),
		service.WithStaticDir(config.StaticDir),
		service.WithStateTracker(tracker),
		service.WithServerLogger(logger),
	)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case v := <-sigChan:
		log.Debug("got signal", log.Any("signal", v))
	case err := <-serverErr:
		if err != nil {
			log.Error("server could not be started", log.ErrorField(err))
			return err
		}
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown incomplete", log.ErrorField(err))
	}
	log.Info("server terminated")
	return nil
}

func runPipeline(ctx context.Context, src source.Source, tracker *service.StateTracker) {
	proc := processing.NewProcessor(
		processing.WithSource(src),
		processing.WithSampleStep(config.SampleStep),
		processing.WithProgressFunc(func(percent int, message string) {
			tracker.SetProgress(percent, message)
		}),
	)
	data, positions, err := proc.Process(ctx)
	if err != nil {
		log.Error("pipeline failed", log.ErrorField(err))
		tracker.SetError(err)
		return
	}
	dataJSON, err := encoding.Marshal(data)
	if err != nil {
		tracker.SetError(err)
		return
	}
	positionsJSON, err := encoding.Marshal(positions)
	if err != nil {
		tracker.SetError(err)
		return
	}
	tracker.SetReady(dataJSON, positionsJSON)
	log.Info("session loaded",
		log.Int("dataBytes", len(dataJSON)),
		log.Int("positionBytes", len(positionsJSON)))
}
