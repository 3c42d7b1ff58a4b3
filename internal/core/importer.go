package core

import (
	"context"
	"io"
	"time"

	"github.com/JonMunkholm/qbimport/internal/logging"
	"github.com/JonMunkholm/qbimport/internal/tabular"
)

// Importer runs the pipeline for one file: parse, then for every row in
// order resolve the hierarchy and materialize the Question. A failing row
// is recorded and never stops the rows after it.
type Importer struct {
	store   Store
	metrics *Metrics
}

// NewImporter creates an importer. metrics may be nil.
func NewImporter(store Store, metrics *Metrics) *Importer {
	return &Importer{store: store, metrics: metrics}
}

// Run parses input and imports its rows. callback, if set, receives a
// progress snapshot after every change. A parse failure ends the run in
// PhaseFailed before any row is processed.
func (im *Importer) Run(ctx context.Context, runID, fileName string, input io.Reader, callback ProgressCallback) *Result {
	reporter := NewProgressReporter(runID, fileName, callback)
	return im.RunWithReporter(ctx, reporter, fileName, input)
}

// RunWithReporter is Run with a caller-owned reporter.
func (im *Importer) RunWithReporter(ctx context.Context, reporter *ProgressReporter, fileName string, input io.Reader) *Result {
	ctx = logging.WithRunID(ctx, reporter.Snapshot().RunID)
	logger := logging.WithFields(ctx, "file", fileName)
	start := time.Now()

	reporter.Parsing()
	counter := tabular.NewCountingReader(input)
	table, err := tabular.Parse(fileName, counter)
	im.metrics.BytesRead(counter.BytesRead)
	if err != nil {
		logger.Error("import parse failed", "error", err)
		result := reporter.Fail(err)
		im.metrics.RunFinished(result.Phase, time.Since(start))
		return result
	}

	rows := make([]Row, len(table.Records))
	for i, rec := range table.Records {
		rows[i] = NewRow(rec)
	}

	if warnings := InspectHeaders(table.Headers).Warnings(); len(warnings) > 0 {
		logger.Warn("unexpected headers", "warnings", warnings)
		reporter.Warn(warnings...)
	}

	logger.Info("import started", "rows", len(rows), "bytes", counter.BytesRead)
	result := im.Process(ctx, reporter, table.Headers, rows)

	logger.Info("import finished",
		"total", result.Total,
		"success", result.Success,
		"failed", result.Failed,
		"duration", time.Since(start),
	)
	im.metrics.RunFinished(result.Phase, time.Since(start))
	return result
}

// Process imports already parsed rows with a fresh ResolutionCache.
func (im *Importer) Process(ctx context.Context, reporter *ProgressReporter, headers []string, rows []Row) *Result {
	cache := NewResolutionCache(im.metrics)

	resolver := NewResolver(im.store, cache)
	materializer := NewMaterializer(im.store)
	onCreate := func(kind Kind) {
		reporter.RecordCreated(kind)
		im.metrics.EntityCreated(kind)
	}
	resolver.OnCreate = onCreate
	materializer.OnCreate = onCreate

	reporter.Begin(len(rows), headers)

	logger := logging.FromContext(ctx)
	for _, row := range rows {
		if err := im.processRow(ctx, resolver, materializer, row); err != nil {
			msg := MapError(err)
			logger.Debug("row failed", "line", row.Line, "code", msg.Code, "error", err)
			reporter.RecordFailure(FailedRow{
				Line:   row.Line,
				Reason: err.Error(),
				Code:   msg.Code,
				Data:   row.Raw(),
			})
			im.metrics.RowProcessed(false)
			continue
		}
		reporter.RecordSuccess()
		im.metrics.RowProcessed(true)
	}

	stats := cache.Stats()
	logger.Debug("resolution cache", "entries", cache.Len(), "hits", stats.Hits, "misses", stats.Misses)

	return reporter.Finish()
}

// processRow handles one row. Hierarchy entities created before a later
// step fails are kept.
func (im *Importer) processRow(ctx context.Context, resolver *Resolver, materializer *Materializer, row Row) error {
	res, err := resolver.Resolve(ctx, row)
	if err != nil {
		return err
	}
	_, _, err = materializer.Materialize(ctx, res, row)
	return err
}
