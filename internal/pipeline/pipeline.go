// Package pipeline runs one edmap invocation end to end: freshness gate,
// conditional index build, station join, artifact write, reporting. The
// phases are strictly sequential; the join never sees a store the build has
// not fully committed.
package pipeline

import (
	"context"
	"time"

	"github.com/JYF/edmap/internal/config"
	"github.com/JYF/edmap/internal/index"
	"github.com/JYF/edmap/internal/influx"
	"github.com/JYF/edmap/internal/join"
	"github.com/JYF/edmap/internal/model"
	"github.com/JYF/edmap/internal/output"
	"github.com/JYF/edmap/internal/report"
	"github.com/JYF/edmap/internal/stations"
	"github.com/JYF/edmap/internal/systems"

	"github.com/rs/zerolog"
)

// Run executes the pipeline against the current configuration. Only
// fatal I/O conditions return an error; parse skips, lookup misses and
// unknown station types are absorbed into the summary.
func Run(ctx context.Context, logger zerolog.Logger) (model.Summary, error) {
	var sum model.Summary

	store, err := index.Open(config.IndexConfig(), logger)
	if err != nil {
		return sum, err
	}
	defer func() { _ = store.Close() }()

	systemsFile := config.GetString("systemsFile")
	stale, info, err := store.NeedsRebuild(systemsFile)
	if err != nil {
		return sum, err
	}

	if config.GetBool("rebuild") && !stale {
		logger.Info().Msg("Rebuild forced")
		stale = true
	}

	if stale {
		reader := systems.NewReader(systemsFile, logger)
		res, err := store.Build(reader, info, func() index.Diagnostics {
			stats := reader.Stats()
			return index.Diagnostics{Skipped: stats.Skipped, SkippedLines: stats.SkippedSample}
		})
		if err != nil {
			return sum, err
		}
		sum.Rebuilt = true
		sum.Systems = res.Systems
		sum.Skipped = reader.Stats().Skipped
		sum.BuildDuration = res.Duration
	} else if meta, ok, err := store.Meta(); err != nil {
		logger.Warn().Err(err).Msg("Failed to read index build metadata")
	} else if ok {
		sum.Systems = meta.Systems
	}

	engine, err := join.New(store, logger)
	if err != nil {
		return sum, err
	}

	joinStart := time.Now()
	res, err := engine.Run(stations.NewReader(config.GetString("stationsFile")))
	if err != nil {
		return sum, err
	}
	sum.Total = res.Total
	sum.Matched = res.Matched
	sum.Unmatched = int64(len(res.Unmatched))
	sum.JoinDuration = time.Since(joinStart)

	outputFile := config.GetString("outputFile")
	if err := output.WriteFile(outputFile, res.Markers, config.GetBool("output.compress")); err != nil {
		return sum, err
	}
	logger.Info().Str("path", outputFile).Int("markers", len(res.Markers)).Msg("Wrote marker document")

	report.New(logger, config.GetInt("report.unmatchedLimit")).Summarize(sum, res.Unmatched)

	publishMetrics(ctx, logger, sum)

	return sum, nil
}

// publishMetrics ships the run summary to InfluxDB when enabled. Metrics are
// best-effort; a failed publish never fails the run.
func publishMetrics(ctx context.Context, logger zerolog.Logger, sum model.Summary) {
	if !config.GetBool("influx.enabled") {
		return
	}

	m := influx.NewManager(logger, config.GetString("influx.backupPath"))
	defer func() { _ = m.Close() }()

	if err := m.Connect(ctx); err != nil {
		logger.Warn().Err(err).Msg("Skipping run metrics")
		return
	}
	if err := m.WriteSummary(ctx, sum); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish run metrics")
	}
}
