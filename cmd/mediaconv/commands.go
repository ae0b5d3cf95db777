package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/therealutkarshpriyadarshi/mediaconv/internal/cache"
	"github.com/therealutkarshpriyadarshi/mediaconv/internal/database"
	"github.com/therealutkarshpriyadarshi/mediaconv/internal/export"
	"github.com/therealutkarshpriyadarshi/mediaconv/internal/intake"
	"github.com/therealutkarshpriyadarshi/mediaconv/internal/storage"
	"github.com/therealutkarshpriyadarshi/mediaconv/pkg/models"
)

var wavCmd = &cobra.Command{
	Use:   "wav <input> <output.wav>",
	Short: "Convert recorded audio to 16-bit PCM WAV",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		src, err := readInput(args[0])
		if err != nil {
			return err
		}

		start := time.Now()
		buf, err := a.encoder.Convert(ctx, src)
		a.logger.LogConversion(models.ExportKindAudio, len(src), bufSize(buf), time.Since(start), err)
		if err != nil {
			return err
		}
		return writeOutput(args[1], buf.Data)
	}),
}

var mp4Cmd = &cobra.Command{
	Use:   "mp4 <input> <output.mp4>",
	Short: "Convert recorded video to MP4",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		src, err := readInput(args[0])
		if err != nil {
			return err
		}

		start := time.Now()
		buf, err := a.transcoder.ToMP4(ctx, src)
		a.logger.LogConversion(models.ExportKindVideo, len(src), bufSize(buf), time.Since(start), err)
		if err != nil {
			return err
		}
		return writeOutput(args[1], buf.Data)
	}),
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Bundle the recordings of an event into a zip archive",
	Args:  cobra.NoArgs,
	RunE:  withApp(runExport),
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Rewrite stored submission videos as MP4",
	Args:  cobra.NoArgs,
	RunE:  withApp(runNormalize),
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database tables",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		db, err := openDB(ctx, a)
		if err != nil {
			return err
		}
		db.Close()
		a.logger.Info("Database is up to date")
		return nil
	}),
}

var importCmd = &cobra.Command{
	Use:   "import <submissions.json>",
	Short: "Load submissions from a JSON file into the database",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runImport),
}

// openDB connects to the configured database and brings its schema up to date
func openDB(ctx context.Context, a *app) (*database.DB, error) {
	start := time.Now()
	db, err := database.New(ctx, a.cfg.Database)
	a.logger.LogDatabaseOperation("connect", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	err = db.Migrate(ctx)
	a.logger.LogDatabaseOperation("migrate", time.Since(start), err)
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func runImport(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	subs, err := export.NewJSONFileSource(args[0]).ListSubmissions(ctx, "")
	if err != nil {
		return err
	}

	db, err := openDB(ctx, a)
	if err != nil {
		return err
	}
	defer db.Close()

	start := time.Now()
	created, skipped, err := database.NewRepository(db).ImportSubmissions(ctx, subs)
	a.logger.LogDatabaseOperation("import_submissions", time.Since(start), err)
	if err != nil {
		return err
	}
	a.logger.Infof("Imported %d submissions, %d already present", created, skipped)
	return nil
}

func runExport(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	slug, _ := cmd.Flags().GetString("event")
	jsonPath, _ := cmd.Flags().GetString("from-json")
	fromDB, _ := cmd.Flags().GetBool("from-db")
	outPath, _ := cmd.Flags().GetString("out")
	upload, _ := cmd.Flags().GetBool("upload")
	useCache, _ := cmd.Flags().GetBool("cache")

	if outPath == "" {
		outPath = export.ArchiveName(slug)
	}
	logger := a.logger.WithEventSlug(slug)

	var (
		source export.SubmissionSource
		repo   *database.Repository
	)
	if fromDB {
		db, err := openDB(ctx, a)
		if err != nil {
			return err
		}
		defer db.Close()
		repo = database.NewRepository(db)
		source = export.NewDBSource(repo)
	} else {
		source = export.NewJSONFileSource(jsonPath)
	}

	exporter := export.NewExporter(a.encoder, a.transcoder, logger)

	var rc *cache.Cache
	if useCache || a.cfg.Export.EnableCache {
		c, err := cache.NewCache(a.cfg.Redis.Host, a.cfg.Redis.Port, a.cfg.Redis.Password, a.cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer c.Close()
		rc = c

		lock := "export:" + slug
		acquired, err := rc.AcquireLock(ctx, lock, time.Hour)
		if err != nil {
			return fmt.Errorf("failed to acquire export lock: %w", err)
		}
		if !acquired {
			return fmt.Errorf("an export of %s is already running", slug)
		}
		defer rc.ReleaseLock(context.WithoutCancel(ctx), lock)

		exporter.WithCache(rc, a.cfg.Export.CacheTTL)
	}

	subs, err := source.ListSubmissions(ctx, slug)
	if err != nil {
		return err
	}

	file, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	report, err := exporter.Export(ctx, slug, subs, file)
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close archive: %w", closeErr)
	}
	if err != nil {
		os.Remove(outPath)
		return err
	}

	if rc != nil {
		if err := rc.SetReport(ctx, report, a.cfg.Export.CacheTTL); err != nil {
			logger.WithError(err).Warn("Failed to cache export report")
		}
		if n, err := rc.IncrementStat(ctx, "exports"); err != nil {
			logger.WithError(err).Warn("Failed to count export")
		} else {
			logger.WithField("exports_total", n).Info("Export recorded")
		}
	}
	if repo != nil {
		start := time.Now()
		err := repo.SaveExportReport(ctx, report)
		a.logger.LogDatabaseOperation("save_export_report", time.Since(start), err)
		if err != nil {
			logger.WithError(err).Warn("Failed to record export report")
		}
	}

	if upload {
		if err := uploadArchive(ctx, a, outPath); err != nil {
			return err
		}
	}

	return printJSON(cmd, report)
}

func uploadArchive(ctx context.Context, a *app, path string) error {
	store, err := storage.New(ctx, a.cfg.Storage)
	if err != nil {
		return err
	}

	start := time.Now()
	key, err := store.UploadFile(ctx, path)
	info, _ := os.Stat(path)
	var size int64
	if info != nil {
		size = info.Size()
	}
	a.logger.LogStorageOperation("upload", store.Bucket(), key, size, time.Since(start), err)
	if err != nil {
		return err
	}

	url, err := store.GetURL(ctx, key, 24*time.Hour)
	if err != nil {
		return err
	}
	a.logger.WithField("url", url).Info("Archive uploaded")
	return nil
}

func runNormalize(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	slug, _ := cmd.Flags().GetString("event")
	jsonPath, _ := cmd.Flags().GetString("from-json")
	fromDB, _ := cmd.Flags().GetBool("from-db")
	outPath, _ := cmd.Flags().GetString("out")

	normalizer, err := intake.NewNormalizer(a.transcoder, a.cfg.Intake.VideoFailurePolicy, a.logger)
	if err != nil {
		return err
	}

	if fromDB {
		if slug == "" {
			return fmt.Errorf("--event is required with --from-db")
		}
		db, err := openDB(ctx, a)
		if err != nil {
			return err
		}
		defer db.Close()
		repo := database.NewRepository(db)

		subs, err := repo.ListSubmissionsByEvent(ctx, slug)
		if err != nil {
			return err
		}
		updated := 0
		for _, sub := range subs {
			out, changed, err := normalizer.Normalize(ctx, sub)
			if err != nil {
				return err
			}
			if !changed {
				continue
			}
			if err := repo.UpdateSubmissionVideo(ctx, out.ID, *out.VideoDataURL); err != nil {
				return err
			}
			updated++
		}
		a.logger.WithEventSlug(slug).Infof("Normalized %d of %d submissions", updated, len(subs))
		return nil
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("failed to read submissions file: %w", err)
	}
	var subs []*models.Submission
	if err := json.Unmarshal(data, &subs); err != nil {
		return fmt.Errorf("failed to parse submissions file: %w", err)
	}

	updated := 0
	for i, sub := range subs {
		if sub == nil || (slug != "" && sub.EventSlug != "" && sub.EventSlug != slug) {
			continue
		}
		out, changed, err := normalizer.Normalize(ctx, sub)
		if err != nil {
			return err
		}
		if changed {
			subs[i] = out
			updated++
		}
	}

	if outPath == "" {
		outPath = jsonPath
	}
	encoded, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode submissions: %w", err)
	}
	if err := writeOutput(outPath, encoded); err != nil {
		return err
	}
	a.logger.Infof("Normalized %d of %d submissions", updated, len(subs))
	return nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func bufSize(buf *models.MediaBuffer) int {
	if buf == nil {
		return 0
	}
	return buf.Size()
}
