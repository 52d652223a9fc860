// tally-snapshot emits a daily usage snapshot to the logs. It runs the same
// aggregation engine as the API server on a cron schedule, so dashboards that
// scrape logs get a consistent record even when nobody queries the API.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/tally/pkg/config"
	"github.com/platinummonkey/tally/pkg/directory"
	"github.com/platinummonkey/tally/pkg/observability"
	"github.com/platinummonkey/tally/pkg/scan"
	"github.com/platinummonkey/tally/pkg/sources"
	"github.com/platinummonkey/tally/pkg/usage"
)

var (
	schedule     = flag.String("schedule", "5 0 * * *", "Cron schedule for the daily snapshot (default: 00:05 UTC)")
	topN         = flag.Int("top", 10, "Number of top users to include in the snapshot")
	runOnce      = flag.Bool("run-once", false, "Run one snapshot and exit (for testing or backfilling)")
	snapshotDate = flag.String("date", "", "Date to snapshot (YYYY-MM-DD). If empty, snapshots yesterday. Only used with --run-once")
)

func main() {
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	ctx := context.Background()
	engineLogger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	svc, err := buildService(ctx, cfg, engineLogger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build usage service")
	}

	// Run once mode (for testing or backfilling)
	if *runOnce {
		date := time.Now().UTC().AddDate(0, 0, -1)
		if *snapshotDate != "" {
			date, err = time.Parse("2006-01-02", *snapshotDate)
			if err != nil {
				logger.WithError(err).Fatal("Invalid date format")
			}
		}

		if err := runSnapshot(ctx, svc, logger, date, *topN); err != nil {
			logger.WithError(err).Fatal("Snapshot failed")
		}
		return
	}

	// Scheduled mode
	c := cron.New()

	_, err = c.AddFunc(*schedule, func() {
		// A panicking snapshot must not take the scheduler down with it.
		defer observability.RecoverPanic(engineLogger, "daily snapshot")

		yesterday := time.Now().UTC().AddDate(0, 0, -1)
		if err := runSnapshot(context.Background(), svc, logger, yesterday, *topN); err != nil {
			logger.WithError(err).Error("Daily snapshot failed")
		}
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to schedule daily snapshot")
	}

	c.Start()
	logger.WithField("schedule", *schedule).Info("Tally snapshot job started")

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down gracefully...")

	stopCtx := c.Stop()
	<-stopCtx.Done()

	logger.Info("Snapshot job stopped")
}

// buildService wires the aggregation engine the same way the API server does,
// minus the HTTP surface.
func buildService(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*usage.Service, error) {
	descs := sources.Builtin()
	if cfg.Sources.CatalogPath != "" {
		loaded, err := sources.LoadCatalog(cfg.Sources.CatalogPath)
		if err != nil {
			return nil, err
		}
		descs = loaded
	}
	registry, err := sources.NewRegistry(descs)
	if err != nil {
		return nil, err
	}

	scanner, err := scan.NewDynamoDBScanner(ctx, cfg.Scan)
	if err != nil {
		return nil, err
	}

	cognito, err := directory.NewCognitoDirectory(ctx, cfg.Directory)
	if err != nil {
		return nil, err
	}
	// One snapshot touches each owner once; a small LRU still deduplicates
	// lookups across the overview and top-user sections.
	dir := directory.NewCachedDirectory(cognito, cfg.Cache.Size, cfg.Cache.TTL)

	return usage.NewService(usage.ServiceConfig{
		Registry:      registry,
		Scanner:       scanner,
		Directory:     dir,
		Logger:        logger,
		ScanWorkers:   cfg.Workers.Scan,
		LookupWorkers: cfg.Workers.Lookup,
	}), nil
}

// runSnapshot computes one day's totals and top users and logs them as a
// structured record.
func runSnapshot(ctx context.Context, svc *usage.Service, logger *logrus.Logger, date time.Time, topN int) error {
	day := date.Format("2006-01-02")

	tf, err := usage.Range(day, day)
	if err != nil {
		return err
	}

	overview, err := svc.Overview(ctx, usage.AllSources(), tf)
	if err != nil {
		return err
	}

	failed := 0
	for _, status := range overview.Sources {
		if status.Failed {
			failed++
			logger.WithFields(logrus.Fields{
				"source":   status.SourceID,
				"location": status.Location,
				"error":    status.Error,
			}).Warn("Source scan failed during snapshot")
		}
	}

	logger.WithFields(logrus.Fields{
		"date":           day,
		"tokens_in":      overview.Totals.TokensIn,
		"tokens_out":     overview.Totals.TokensOut,
		"tokens_total":   overview.Totals.TokensTotal,
		"messages":       overview.Totals.MessageCount,
		"records":        overview.Totals.RecordCount,
		"active_owners":  overview.Totals.DistinctOwners,
		"failed_sources": failed,
	}).Info("Daily usage snapshot")

	top, err := svc.TopOwners(ctx, usage.AllSources(), tf, usage.MeasureTokens, topN)
	if err != nil {
		return err
	}
	for rank, owner := range top.Owners {
		logger.WithFields(logrus.Fields{
			"date":   day,
			"rank":   rank + 1,
			"email":  owner.Email,
			"tokens": owner.Value,
		}).Info("Top user")
	}

	return nil
}
