// Package reconcile drives a complete matching run: import, match, persist,
// validate and export.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/prometheus/client_golang/prometheus"
	"stopmatcher.onebusaway.org/internal/app"
	"stopmatcher.onebusaway.org/internal/export"
	"stopmatcher.onebusaway.org/internal/importer"
	"stopmatcher.onebusaway.org/internal/logging"
	"stopmatcher.onebusaway.org/internal/matching"
	"stopmatcher.onebusaway.org/internal/validation"
	"stopmatcher.onebusaway.org/stopdb"
)

// ErrNoFeedStops is returned when a match is requested before any feed stops were imported.
var ErrNoFeedStops = errors.New("no feed stops imported")

// Report summarizes one matching run. Self-consistency-only runs count
// rated feed stops in SelfRated and leave Matched and Unmatched at zero.
type Report struct {
	RunID               string
	Results             []matching.MatchResult
	Matched             int
	Unmatched           int
	SelfRated           int
	SelfConsistencyOnly bool
	Discrepancies       []validation.Discrepancy
	Duration            time.Duration
}

// Runner executes the reconcile steps against an Application.
type Runner struct {
	app    *app.Application
	logger *slog.Logger
	dumper *spew.ConfigState
}

func NewRunner(application *app.Application) *Runner {
	logger := application.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		app:    application,
		logger: logger.With(slog.String("component", "reconcile")),
		dumper: &spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true},
	}
}

// Import reads a catalog from disk and replaces the stored population with it.
func (r *Runner) Import(ctx context.Context, pop stopdb.Population, path string, format importer.Format, opts importer.Options) (int, error) {
	ctx = logging.WithLogger(ctx, r.logger)
	stops, err := importer.ImportFile(ctx, path, format, opts)
	if err != nil {
		return 0, err
	}
	if err := r.app.Store.ReplaceStops(ctx, pop, stops); err != nil {
		return 0, err
	}
	return len(stops), nil
}

// Run imports the configured catalogs, if any, and then matches.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	cfg := r.app.Config
	if cfg.FeedPath != "" {
		if _, err := r.Import(ctx, stopdb.PopulationFeed, cfg.FeedPath, importer.Format(cfg.FeedFormat), importer.Options{}); err != nil {
			return nil, fmt.Errorf("feed import failed: %w", err)
		}
	}
	if cfg.SourcePath != "" && !r.app.MatchingConfig.SelfConsistencyOnly {
		if _, err := r.Import(ctx, stopdb.PopulationSource, cfg.SourcePath, importer.Format(cfg.SourceFormat), importer.Options{}); err != nil {
			return nil, fmt.Errorf("source import failed: %w", err)
		}
	}
	return r.Match(ctx)
}

// Match runs the engine over the stored populations and persists the results.
func (r *Runner) Match(ctx context.Context) (*Report, error) {
	startedAt := time.Now()
	store := r.app.Store

	feed, err := store.LoadStops(ctx, stopdb.PopulationFeed)
	if err != nil {
		return nil, err
	}
	if len(feed) == 0 {
		return nil, ErrNoFeedStops
	}

	sources := feed
	if !r.app.MatchingConfig.SelfConsistencyOnly {
		if sources, err = store.LoadStops(ctx, stopdb.PopulationSource); err != nil {
			return nil, err
		}
	}

	engine, err := matching.NewEngine(feed, r.app.MatchingConfig, r.logger, r.app.Metrics)
	if err != nil {
		return nil, err
	}

	results, err := engine.Run(ctx, sources)
	if err != nil {
		return nil, err
	}

	runID, err := store.SaveMatchRun(ctx, r.app.MatchingConfig, startedAt, results)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:               runID,
		Results:             results,
		SelfConsistencyOnly: r.app.MatchingConfig.SelfConsistencyOnly,
		Duration:            time.Since(startedAt),
	}
	for _, res := range results {
		switch {
		case report.SelfConsistencyOnly:
			report.SelfRated++
		case res.Matched():
			report.Matched++
		default:
			report.Unmatched++
		}
	}

	if r.logger.Enabled(ctx, slog.LevelDebug) && len(results) > 0 {
		r.logger.Debug("first match result", slog.String("dump", r.dumper.Sdump(results[0])))
	}

	if path := r.app.Config.ExpectationsPath; path != "" {
		expectations, err := validation.LoadExpectations(path)
		if err != nil {
			return nil, err
		}
		report.Discrepancies = validation.NewValidator(expectations, feed, r.logger).Check(results, sources)
	}

	if path := r.app.Config.GeoJSONOutput; path != "" {
		if err := export.WriteFile(path, results, sources, feed); err != nil {
			return nil, fmt.Errorf("geojson export failed: %w", err)
		}
	}

	if err := r.writeMetrics(); err != nil {
		return nil, err
	}

	logging.LogOperation(r.logger, "match_run_finished",
		slog.String("run_id", runID),
		slog.Int("matched", report.Matched),
		slog.Int("unmatched", report.Unmatched),
		slog.Int("self_rated", report.SelfRated),
		slog.Int("discrepancies", len(report.Discrepancies)),
		slog.Duration("duration", report.Duration))
	return report, nil
}

// Explain scores the nearest feed candidates for one stored source stop.
func (r *Runner) Explain(ctx context.Context, sourceID string) ([]matching.CandidateExplanation, error) {
	row, err := r.app.Store.Queries.GetStop(ctx, stopdb.PopulationSource, sourceID)
	if err != nil {
		return nil, fmt.Errorf("source stop %s: %w", sourceID, err)
	}
	feed, err := r.app.Store.LoadStops(ctx, stopdb.PopulationFeed)
	if err != nil {
		return nil, err
	}
	if len(feed) == 0 {
		return nil, ErrNoFeedStops
	}

	engine, err := matching.NewEngine(feed, r.app.MatchingConfig, r.logger, nil)
	if err != nil {
		return nil, err
	}
	return engine.Assigner().Explain(row.ToMatching()), nil
}

// Dump renders a value for debug output.
func (r *Runner) Dump(v any) string {
	return r.dumper.Sdump(v)
}

func (r *Runner) writeMetrics() error {
	path := r.app.Config.MetricsPath
	if path == "" || r.app.Registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.app.Registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
