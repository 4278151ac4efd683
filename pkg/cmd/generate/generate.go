// Package generate implements the generate command: run the pipeline once
// and write the artifacts to disk for static hosting.
package generate

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/f1replay/replay-service-go/log"
	"github.com/f1replay/replay-service-go/pkg/config"
	"github.com/f1replay/replay-service-go/pkg/encoding"
	"github.com/f1replay/replay-service-go/pkg/processing"
	"github.com/f1replay/replay-service-go/pkg/source"
	"github.com/f1replay/replay-service-go/pkg/source/cache"
	"github.com/f1replay/replay-service-go/pkg/source/openf1"
)

func NewGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "writes the replay artifacts to disk",
		Long: `Runs the derivation pipeline for the configured session and writes
data.json and positions.json into the output directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return generate(cmd)
		},
	}
	cmd.Flags().StringVarP(&config.OutputDir,
		"output-dir",
		"o",
		"dist",
		"directory the artifacts are written to")
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

func generate(cmd *cobra.Command) error {
	log.ResetDefault(setupLogger())

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

	proc := processing.NewProcessor(
		processing.WithSource(src),
		processing.WithSampleStep(config.SampleStep),
		processing.WithProgressFunc(func(percent int, message string) {
			log.Info("progress", log.Int("percent", percent), log.String("stage", message))
		}),
	)
	data, positions, err := proc.Process(cmd.Context())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := writeArtifact(filepath.Join(config.OutputDir, "data.json"), data); err != nil {
		return err
	}
	return writeArtifact(filepath.Join(config.OutputDir, "positions.json"), positions)
}

func writeArtifact(path string, v any) error {
	payload, err := encoding.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	log.Info("artifact written", log.String("path", path), log.Int("bytes", len(payload)))
	return nil
}
