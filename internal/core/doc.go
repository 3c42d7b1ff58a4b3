// Package core implements the question bank import pipeline.
//
// An import turns a flat file, one question per row, into a four level
// hierarchy (Program, Course, Subject, Competency) plus a Question and its
// Options. The package has no transport dependencies and is used by the web
// server, the CLI and tests alike.
//
// # Pipeline
//
// For every row, in file order:
//
//  1. [Resolver.Resolve] finds or creates the Program, Course, Subject and
//     optional Competency through a run-scoped [ResolutionCache].
//  2. [Materializer.Materialize] validates the level and creates the
//     Question and its non-empty Options.
//  3. [Importer] records the outcome in a [ProgressReporter].
//
// A failing row never stops the rows after it, and entities created for a
// row that later fails are kept. Re-importing a file reuses the hierarchy
// but creates its questions again.
//
// # Storage
//
// The pipeline only calls Filter and Create on a [Store]. Implementations
// live in internal/store.
//
// # Background runs
//
// [Service] runs imports in goroutines bounded by a [RunLimiter], fans
// progress out to subscribers and saves the final [Result] to a
// [ReportStore].
//
// # Error codes
//
// [MapError] attaches a support code to every failure; see error_messages.go.
package core
