// Package service provides the statement processing orchestration logic.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/import/normalizer"
	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/import/parser"
	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/insights"
	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/statement"
	"github.com/FACorreiaa/mpesa-analyzer/pkg/metrics"
	"github.com/FACorreiaa/mpesa-analyzer/pkg/storage"
)

// LedgerExportName is the stored name of a statement's ledger CSV.
const LedgerExportName = "ledger.csv"

const tracerName = "github.com/FACorreiaa/mpesa-analyzer/internal/domain/import/service"

// Pipeline stage names used for spans and latency metrics.
const (
	StageOpen       = "open"
	StageExtract    = "extract"
	StageMetadata   = "metadata"
	StageNormalize  = "normalize"
	StageCategorize = "categorize"
	StagePartition  = "partition"
	StageInsights   = "insights"
	StageExport     = "export"
)

// ErrExportsDisabled is returned by ExportLedger when no storage is configured.
var ErrExportsDisabled = errors.New("ledger exports are disabled")

// Categorizer assigns a category to every ledger row and reports how many matched no
// rule.
type Categorizer interface {
	CategorizeLedger(ledger *statement.Ledger) int
}

// Indexer makes categorized ledgers searchable.
type Indexer interface {
	IndexLedger(statementID string, ledger *statement.Ledger) error
}

// Options tune one processing run.
type Options struct {
	// Password unlocks protected statements.
	Password string
	Filename string
	Period   insights.Period
}

// Report is everything produced for one statement.
type Report struct {
	ID            uuid.UUID               `json:"id"`
	Filename      string                  `json:"filename,omitempty"`
	ProcessedAt   time.Time               `json:"processed_at"`
	Metadata      statement.Metadata      `json:"metadata"`
	Summary       *statement.SummaryTable `json:"summary,omitempty"`
	Ledger        *statement.Ledger       `json:"ledger"`
	Incoming      statement.SubLedger     `json:"incoming"`
	Outgoing      statement.SubLedger     `json:"outgoing"`
	Excluded      int                     `json:"excluded"`
	Uncategorized int                     `json:"uncategorized"`
	Stats         normalizer.Stats        `json:"stats"`
	Insights      *insights.Report        `json:"insights,omitempty"`
	Export        *storage.FileInfo       `json:"export,omitempty"`
}

// Opener turns raw bytes into a readable document.
type Opener func(data []byte, password string) (statement.Document, error)

func openPDF(data []byte, password string) (statement.Document, error) {
	return parser.OpenBytes(data, parser.WithPassword(password))
}

// StatementService orchestrates statement extraction, normalization, categorization,
// partitioning and reporting.
type StatementService struct {
	categorizer Categorizer
	location    *time.Location
	open        Opener
	store       storage.Storage // Optional: nil disables exports
	index       Indexer         // Optional: nil disables search indexing
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	concurrency int
	now         func() time.Time
	logger      *slog.Logger
}

// NewStatementService creates a new statement service reading times in loc
func NewStatementService(categorizer Categorizer, loc *time.Location, logger *slog.Logger) *StatementService {
	if loc == nil {
		loc = time.UTC
	}
	return &StatementService{
		categorizer: categorizer,
		location:    loc,
		open:        openPDF,
		tracer:      otel.Tracer(tracerName),
		concurrency: 1,
		now:         time.Now,
		logger:      logger,
	}
}

// WithStorage persists a ledger CSV for every processed statement
func (s *StatementService) WithStorage(store storage.Storage) *StatementService {
	s.store = store
	return s
}

// WithSearchIndex indexes every categorized ledger
func (s *StatementService) WithSearchIndex(index Indexer) *StatementService {
	s.index = index
	return s
}

// WithMetrics records pipeline metrics
func (s *StatementService) WithMetrics(m *metrics.Metrics) *StatementService {
	s.metrics = m
	return s
}

// WithConcurrency bounds how many statements ProcessBatch runs at once
func (s *StatementService) WithConcurrency(n int) *StatementService {
	if n < 1 {
		n = 1
	}
	s.concurrency = n
	return s
}

// WithOpener replaces the PDF reader
func (s *StatementService) WithOpener(open Opener) *StatementService {
	s.open = open
	return s
}

// Process runs the full pipeline over one PDF statement.
func (s *StatementService) Process(ctx context.Context, data []byte, opts Options) (*Report, error) {
	ctx, span := s.tracer.Start(ctx, "statement.process",
		trace.WithAttributes(attribute.Int("statement.bytes", len(data))))
	defer span.End()

	start := time.Now()
	doc, err := s.open(data, opts.Password)
	s.metrics.ObserveStage(StageOpen, start)
	if err != nil {
		s.fail(span, err)
		return nil, fmt.Errorf("failed to open statement: %w", err)
	}

	return s.process(ctx, span, doc, opts)
}

// ProcessDocument runs the pipeline over an already opened document.
func (s *StatementService) ProcessDocument(ctx context.Context, doc statement.Document, opts Options) (*Report, error) {
	ctx, span := s.tracer.Start(ctx, "statement.process")
	defer span.End()
	return s.process(ctx, span, doc, opts)
}

func (s *StatementService) process(ctx context.Context, span trace.Span, doc statement.Document, opts Options) (*Report, error) {
	report := &Report{
		ID:          uuid.New(),
		Filename:    opts.Filename,
		ProcessedAt: s.now(),
	}
	span.SetAttributes(attribute.String("statement.id", report.ID.String()))

	var pages []statement.RawPage
	err := s.stage(ctx, StageExtract, func(context.Context) error {
		var err error
		pages, err = statement.ReadPages(doc)
		return err
	})
	if err != nil {
		s.fail(span, err)
		return nil, fmt.Errorf("failed to extract statement: %w", err)
	}

	_ = s.stage(ctx, StageMetadata, func(context.Context) error {
		report.Metadata = statement.ExtractMetadata(pages[0].Text, pages[len(pages)-1].Text, report.ProcessedAt)
		return nil
	})

	_ = s.stage(ctx, StageNormalize, func(context.Context) error {
		res := normalizer.New(s.location).Normalize(pages)
		report.Summary = res.Summary
		report.Ledger = &res.Ledger
		report.Stats = res.Stats
		return nil
	})

	s.analyze(ctx, report, opts)
	s.afterProcess(ctx, report)

	s.metrics.Statement(metrics.OutcomeOK)
	s.metrics.Rows(report.Stats.RowsKept, report.Stats.RowsDropped, report.Stats.RowsMisaligned)
	span.SetAttributes(
		attribute.Int("statement.pages", len(pages)),
		attribute.Int("ledger.rows", report.Ledger.Len()),
	)

	s.logger.Info("statement processed",
		slog.String("statement_id", report.ID.String()),
		slog.String("filename", report.Filename),
		slog.Int("pages", len(pages)),
		slog.Int("tables_seen", report.Stats.TablesSeen),
		slog.Int("rows_seen", report.Stats.RowsSeen),
		slog.Int("rows_kept", report.Stats.RowsKept),
		slog.Int("rows_dropped", report.Stats.RowsDropped),
		slog.Int("rows_misaligned", report.Stats.RowsMisaligned),
		slog.Int("amount_parse_failures", report.Stats.AmountParseFailures),
		slog.Int("time_parse_failures", report.Stats.TimeParseFailures),
		slog.Int("uncategorized", report.Uncategorized),
		slog.Int("excluded", report.Excluded),
	)
	return report, nil
}

// Reprocess recategorizes and reports on a ledger read back from an export. Metadata
// and the summary table are not part of an export and stay empty.
func (s *StatementService) Reprocess(ctx context.Context, ledger *statement.Ledger, opts Options) *Report {
	ctx, span := s.tracer.Start(ctx, "statement.reprocess")
	defer span.End()

	report := &Report{
		ID:          uuid.New(),
		Filename:    opts.Filename,
		ProcessedAt: s.now(),
		Ledger:      ledger,
	}
	report.Stats.RowsSeen = ledger.Len()
	report.Stats.RowsKept = ledger.Len()

	s.analyze(ctx, report, opts)
	s.afterProcess(ctx, report)
	return report
}

// analyze categorizes, partitions and builds insights for report.Ledger.
func (s *StatementService) analyze(ctx context.Context, report *Report, opts Options) {
	_ = s.stage(ctx, StageCategorize, func(context.Context) error {
		report.Uncategorized = s.categorizer.CategorizeLedger(report.Ledger)
		return nil
	})
	s.metrics.Uncategorized(report.Uncategorized)

	_ = s.stage(ctx, StagePartition, func(context.Context) error {
		report.Incoming, report.Outgoing, report.Excluded = statement.Partition(report.Ledger)
		return nil
	})
	s.metrics.Partition(report.Incoming.Len(), report.Outgoing.Len(), report.Excluded)
	if report.Excluded > 0 {
		s.logger.Warn("rows excluded from both sub-ledgers",
			slog.String("statement_id", report.ID.String()),
			slog.Int("excluded", report.Excluded),
		)
	}

	_ = s.stage(ctx, StageInsights, func(context.Context) error {
		gen := insights.NewGenerator(insights.Options{Period: opts.Period})
		report.Insights = gen.Build(report.Ledger, report.Incoming, report.Outgoing, report.Excluded)
		return nil
	})
}

// afterProcess exports and indexes the ledger. Failures are logged and do not fail
// the run.
func (s *StatementService) afterProcess(ctx context.Context, report *Report) {
	if s.store != nil {
		err := s.stage(ctx, StageExport, func(ctx context.Context) error {
			info, err := s.exportLedger(ctx, report.ID, report.Ledger)
			report.Export = info
			return err
		})
		if err != nil {
			s.logger.Error("failed to export ledger",
				slog.String("statement_id", report.ID.String()),
				slog.Any("error", err),
			)
		}
	}

	if s.index != nil {
		if err := s.index.IndexLedger(report.ID.String(), report.Ledger); err != nil {
			s.logger.Error("failed to index ledger",
				slog.String("statement_id", report.ID.String()),
				slog.Any("error", err),
			)
		}
	}
}

func (s *StatementService) exportLedger(ctx context.Context, id uuid.UUID, ledger *statement.Ledger) (*storage.FileInfo, error) {
	var buf bytes.Buffer
	if err := parser.WriteLedgerCSV(&buf, ledger); err != nil {
		return nil, err
	}
	return s.store.Upload(ctx, id, LedgerExportName, "text/csv", &buf)
}

// ExportLedger opens the stored ledger CSV of a processed statement.
func (s *StatementService) ExportLedger(ctx context.Context, id uuid.UUID) (io.ReadCloser, *storage.FileInfo, error) {
	if s.store == nil {
		return nil, nil, ErrExportsDisabled
	}
	info, err := s.store.Find(ctx, id, LedgerExportName)
	if err != nil {
		return nil, nil, err
	}
	return s.store.Download(ctx, id, info.ID)
}

// stage runs fn inside a span and records its latency.
func (s *StatementService) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "statement."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	s.metrics.ObserveStage(name, start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// fail marks span failed and counts the statement as rejected when the input itself
// is at fault.
func (s *StatementService) fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	outcome := metrics.OutcomeFailed
	if IsRejection(err) {
		outcome = metrics.OutcomeRejected
	}
	s.metrics.Statement(outcome)
	s.logger.Warn("statement not processed",
		slog.String("outcome", outcome),
		slog.Any("error", err),
	)
}

// IsRejection reports whether err means the document cannot be processed as given:
// it is protected, not a readable PDF, or has no pages.
func IsRejection(err error) bool {
	return errors.Is(err, parser.ErrProtectedDocument) ||
		errors.Is(err, parser.ErrInvalidDocument) ||
		errors.Is(err, statement.ErrNoPages)
}

// Input is one statement of a batch.
type Input struct {
	Name     string
	Data     []byte
	Password string
}

// BatchResult is the outcome of one batch input. Exactly one of Report and Err is set.
type BatchResult struct {
	Name   string
	Report *Report
	Err    error
}

// ProcessBatch processes independent statements in parallel, bounded by the configured
// concurrency. A failing statement does not stop the others; results keep input
// order. The returned error is only set when ctx ends first.
func (s *StatementService) ProcessBatch(ctx context.Context, inputs []Input, opts Options) ([]BatchResult, error) {
	results := make([]BatchResult, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			o := opts
			o.Filename = in.Name
			if in.Password != "" {
				o.Password = in.Password
			}
			report, err := s.Process(gctx, in.Data, o)
			results[i] = BatchResult{Name: in.Name, Report: report, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
