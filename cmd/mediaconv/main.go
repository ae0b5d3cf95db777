package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/therealutkarshpriyadarshi/mediaconv/internal/config"
	"github.com/therealutkarshpriyadarshi/mediaconv/internal/logging"
	"github.com/therealutkarshpriyadarshi/mediaconv/internal/metrics"
	"github.com/therealutkarshpriyadarshi/mediaconv/internal/tracing"
	"github.com/therealutkarshpriyadarshi/mediaconv/internal/transcoder"
	"github.com/therealutkarshpriyadarshi/mediaconv/internal/wav"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mediaconv",
	Short: "Convert recorded submissions to WAV and MP4",
	Long: `mediaconv converts audio and video data URLs captured in the browser
into 16-bit PCM WAV and MP4 files, and bundles the recordings of an event
into a single zip archive.`,
	SilenceUsage: true,
}

// app wires the converters and ambient services shared by every command
type app struct {
	cfg        *config.Config
	logger     *logging.Logger
	encoder    *wav.Encoder
	engine     *transcoder.FFmpegEngine
	transcoder *transcoder.Transcoder

	tracer  io.Closer
	metrics *metrics.Server
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	tracer, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.JaegerEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	engine := transcoder.NewFFmpegEngine(cfg.Transcoder.FFmpegPath, cfg.Transcoder.TempDir)
	a := &app{
		cfg:     cfg,
		logger:  logger,
		encoder: wav.NewEncoder(wav.NewFFmpegDecoder(cfg.Transcoder.FFmpegPath, cfg.Transcoder.FFprobePath)),
		engine:  engine,
		transcoder: transcoder.NewTranscoder(transcoder.NewEngineHandle(engine), transcoder.TranscodeOptions{
			VideoCodec: cfg.Transcoder.VideoCodec,
			AudioCodec: cfg.Transcoder.AudioCodec,
			Preset:     cfg.Transcoder.Preset,
		}),
		tracer: tracer,
	}

	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewServer(cfg.Metrics.Port)
		go func() {
			if err := a.metrics.Start(); err != nil {
				log.Error().Err(err).Msg("Metrics server stopped")
			}
		}()
	}

	return a, nil
}

func (a *app) Close() {
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metrics.Shutdown(ctx); err != nil {
			a.logger.ErrorWithErr("Failed to shut down metrics server", err)
		}
	}
	if err := a.engine.Close(); err != nil {
		a.logger.ErrorWithErr("Failed to remove engine scratch directory", err)
	}
	if err := a.tracer.Close(); err != nil {
		a.logger.ErrorWithErr("Failed to flush tracer", err)
	}
}

// withApp builds the app for a command and releases it afterwards
func withApp(run func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return run(ctx, a, cmd, args)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "Path to a YAML config file")

	exportCmd.Flags().String("event", "", "Event slug to export")
	exportCmd.Flags().String("from-json", "", "Read submissions from a JSON file")
	exportCmd.Flags().Bool("from-db", false, "Read submissions from the database")
	exportCmd.Flags().String("out", "", "Archive path (default <event>_submissions.zip)")
	exportCmd.Flags().Bool("upload", false, "Upload the archive to object storage")
	exportCmd.Flags().Bool("cache", false, "Cache conversion results in Redis")
	exportCmd.MarkFlagRequired("event")
	exportCmd.MarkFlagsMutuallyExclusive("from-json", "from-db")
	exportCmd.MarkFlagsOneRequired("from-json", "from-db")

	normalizeCmd.Flags().String("event", "", "Event slug to normalize (database only)")
	normalizeCmd.Flags().String("from-json", "", "Rewrite submissions stored in a JSON file")
	normalizeCmd.Flags().Bool("from-db", false, "Rewrite submissions stored in the database")
	normalizeCmd.Flags().String("out", "", "Output path for --from-json (default: overwrite input)")
	normalizeCmd.MarkFlagsMutuallyExclusive("from-json", "from-db")
	normalizeCmd.MarkFlagsOneRequired("from-json", "from-db")

	rootCmd.AddCommand(wavCmd, mp4Cmd, exportCmd, normalizeCmd, migrateCmd, importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
