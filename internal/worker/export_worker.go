package worker

import (
	"context"
	"fmt"
	"time"

	"bukukas/internal/amqp"
	"bukukas/internal/core"
	"bukukas/internal/engine"
	"bukukas/internal/log"
	"bukukas/internal/metrics"
	"bukukas/internal/override"
	"bukukas/internal/report"
	"bukukas/internal/sheets"
	"bukukas/internal/storage"

	"golang.org/x/sync/errgroup"
)

const (
	StatusDone   = "done"
	StatusFailed = "failed"
)

// ExportWorker turns export requests into spreadsheet writes.
type ExportWorker struct {
	repo    storage.Repository
	exports storage.ExportLog
	sink    sheets.TableWriter
	logger  *log.Logger
	metrics *metrics.Metrics
	// parallel bounds concurrent table writes.
	parallel int
}

func NewExportWorker(repo storage.Repository, exports storage.ExportLog, sink sheets.TableWriter, logger *log.Logger, m *metrics.Metrics) *ExportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{
		repo:     repo,
		exports:  exports,
		sink:     sink,
		logger:   logger.WithComponent(log.ComponentWorker),
		metrics:  m,
		parallel: 3,
	}
}

// HandleExportMessage processes one export request from AMQP.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.ReportExportMessage) error {
	w.logger.InfoContext(ctx, "Processing export message",
		log.FieldExportID, msg.ID,
		"kind", msg.Kind,
		"period", msg.Period,
		log.FieldVersion, msg.Version)

	refs, err := w.export(ctx, msg)
	status, detail := StatusDone, fmt.Sprintf("%d tables", len(refs))
	if err != nil {
		status, detail = StatusFailed, err.Error()
	}
	w.metrics.Export(string(msg.Kind), status)

	rec := storage.ExportRecord{
		ID:        msg.ID,
		Kind:      string(msg.Kind),
		Period:    msg.Period,
		Status:    status,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	if w.exports != nil {
		if logErr := w.exports.RecordExport(ctx, rec); logErr != nil {
			w.logger.ErrorContext(ctx, "Failed to record export", log.FieldExportID, msg.ID, log.FieldError, logErr)
		}
	}
	if err != nil {
		return fmt.Errorf("export %s %s: %w", msg.Kind, msg.Period, err)
	}

	w.logger.InfoContext(ctx, "Export completed",
		log.FieldExportID, msg.ID,
		"period", msg.Period,
		log.FieldSheetsRef, refs)
	return nil
}

func (w *ExportWorker) export(ctx context.Context, msg *amqp.ReportExportMessage) ([]string, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	doc, err := w.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if doc.Version < msg.Version {
		return nil, fmt.Errorf("document version %d behind requested %d", doc.Version, msg.Version)
	}
	tables, err := Tables(doc, msg.Kind, msg.Period)
	if err != nil {
		return nil, err
	}
	return w.writeTables(ctx, tables)
}

// Tables lays out the export for a period of the given kind.
func Tables(doc core.Document, kind amqp.ExportKind, period string) ([]report.Table, error) {
	snap := engine.NewSnapshot(doc, override.FromDocument(doc.UrgentOverrides, doc.OverrideSeq))
	switch kind {
	case amqp.ExportMonthly:
		exp, err := report.BuildMonthlyExport(core.Month(period), snap)
		if err != nil {
			return nil, err
		}
		return exp.Tables, nil
	case amqp.ExportDaily:
		recap := engine.AggregateDay(core.Date(period), snap.Entries, snap.Catalog)
		t, err := report.DailyExport(recap)
		if err != nil {
			return nil, err
		}
		return []report.Table{t}, nil
	default:
		return nil, fmt.Errorf("unknown export kind %q", kind)
	}
}

func (w *ExportWorker) writeTables(ctx context.Context, tables []report.Table) ([]string, error) {
	refs := make([]string, len(tables))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.parallel)
	for i, t := range tables {
		g.Go(func() error {
			ref, err := w.sink.WriteTable(ctx, t)
			if err != nil {
				return fmt.Errorf("write %q: %w", t.Name, err)
			}
			refs[i] = ref
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return refs, nil
}
