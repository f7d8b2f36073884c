package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"bukukas/internal/amqp"
	"bukukas/internal/cache"
	"bukukas/internal/catalog"
	"bukukas/internal/core"
	"bukukas/internal/engine"
	"bukukas/internal/log"
	"bukukas/internal/metrics"
	"bukukas/internal/override"
	"bukukas/internal/report"
	"bukukas/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

var (
	ErrExportUnavailable = errors.New("export queue not configured")
	ErrUnknownTable      = errors.New("unknown export table")
)

// ExportPublisher queues report exports for the worker.
type ExportPublisher interface {
	PublishReportExport(ctx context.Context, msg *amqp.ReportExportMessage) error
}

// Deps are the collaborators of a Bookkeeping service. Only Repo is required.
type Deps struct {
	Repo      storage.Repository
	Exports   storage.ExportLog
	Publisher ExportPublisher
	Cache     *cache.LRUCache[engine.MonthlyReport]
	Logger    *log.Logger
	Metrics   *metrics.Metrics
}

// Bookkeeping orchestrates edits to the business document and the reports
// computed from it. Edits are serialised; every edit loads the stored
// document, changes a copy and saves it whole.
type Bookkeeping struct {
	mu        sync.Mutex
	repo      storage.Repository
	exports   storage.ExportLog
	publisher ExportPublisher
	reports   *cache.LRUCache[engine.MonthlyReport]
	group     singleflight.Group
	logger    *log.Logger
	events    *log.StructuredLogger
	metrics   *metrics.Metrics
}

func NewBookkeeping(deps Deps) *Bookkeeping {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentPayroll)
	return &Bookkeeping{
		repo:      deps.Repo,
		exports:   deps.Exports,
		publisher: deps.Publisher,
		reports:   deps.Cache,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
		metrics:   deps.Metrics,
	}
}

// Document returns the stored document.
func (b *Bookkeeping) Document(ctx context.Context) (core.Document, error) {
	doc, err := b.repo.Load(ctx)
	if err != nil {
		return core.Document{}, fmt.Errorf("load document: %w", err)
	}
	return doc, nil
}

// ReplaceDocument imports doc over the stored one. Stored snapshots on the
// imported entries are kept as they are.
func (b *Bookkeeping) ReplaceDocument(ctx context.Context, doc core.Document) (core.Document, error) {
	if err := doc.Validate(); err != nil {
		return core.Document{}, err
	}
	return b.mutate(ctx, func(cur *core.Document) error {
		next := doc.Clone()
		next.Version = cur.Version
		*cur = next
		return nil
	})
}

// mutate applies fn to a copy of the stored document and saves the result.
func (b *Bookkeeping) mutate(ctx context.Context, fn func(doc *core.Document) error) (core.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	stored, err := b.repo.Load(ctx)
	if err != nil {
		return core.Document{}, fmt.Errorf("load document: %w", err)
	}
	doc := stored.Clone()
	if err := fn(&doc); err != nil {
		return core.Document{}, err
	}
	saved, err := b.repo.Save(ctx, doc)
	if err != nil {
		return core.Document{}, fmt.Errorf("save document: %w", err)
	}
	return saved, nil
}

// UpsertService adds s or replaces the service with the same id.
func (b *Bookkeeping) UpsertService(ctx context.Context, s core.Service) (core.Service, error) {
	s.ID = strings.TrimSpace(s.ID)
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if err := s.Validate(); err != nil {
		return core.Service{}, err
	}
	_, err := b.mutate(ctx, func(doc *core.Document) error {
		for i := range doc.Services {
			if doc.Services[i].ID == s.ID {
				doc.Services[i] = s
				return nil
			}
		}
		doc.Services = append(doc.Services, s)
		return nil
	})
	if err != nil {
		return core.Service{}, err
	}
	return s, nil
}

// DeleteService removes a service from the catalog. Entries that used it
// keep their quantities and stored snapshots.
func (b *Bookkeeping) DeleteService(ctx context.Context, id string) error {
	_, err := b.mutate(ctx, func(doc *core.Document) error {
		for i := range doc.Services {
			if doc.Services[i].ID == id {
				doc.Services = append(doc.Services[:i], doc.Services[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("service %q: %w", id, core.ErrNotFound)
	})
	return err
}

// UpsertEmployee adds e or replaces the employee with the same id. A role
// change does not touch entries already saved.
func (b *Bookkeeping) UpsertEmployee(ctx context.Context, e core.Employee) (core.Employee, error) {
	e.ID = strings.TrimSpace(e.ID)
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if err := e.Validate(); err != nil {
		return core.Employee{}, err
	}
	_, err := b.mutate(ctx, func(doc *core.Document) error {
		for i := range doc.Employees {
			if doc.Employees[i].ID == e.ID {
				doc.Employees[i] = e
				return nil
			}
		}
		doc.Employees = append(doc.Employees, e)
		return nil
	})
	if err != nil {
		return core.Employee{}, err
	}
	return e, nil
}

func (b *Bookkeeping) DeleteEmployee(ctx context.Context, id string) error {
	_, err := b.mutate(ctx, func(doc *core.Document) error {
		for i := range doc.Employees {
			if doc.Employees[i].ID == id {
				doc.Employees = append(doc.Employees[:i], doc.Employees[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("employee %q: %w", id, core.ErrNotFound)
	})
	return err
}

// SaveEntry sanitises entry, stamps it with the employee's current role and
// its capture pay, and stores it in place of any entry for the same date
// and employee.
func (b *Bookkeeping) SaveEntry(ctx context.Context, entry core.DailyEntry) (engine.PayLine, error) {
	if err := entry.Validate(); err != nil {
		return engine.PayLine{}, err
	}
	var line engine.PayLine
	var conds engine.Conditions
	saved, err := b.mutate(ctx, func(doc *core.Document) error {
		cat := catalog.FromDocument(*doc)
		emp, ok := cat.Employee(entry.EmployeeID)
		if !ok {
			return fmt.Errorf("employee %q: %w", entry.EmployeeID, core.ErrNotFound)
		}
		clean, fixes := engine.Sanitize(entry)
		clean.Role = emp.Role
		line = engine.ComputeCapturePay(clean, cat)
		snap := line.Snapshot()
		clean.Snapshot = &snap
		doc.PutEntry(clean)
		conds = append(fixes, line.Conditions...)
		return nil
	})
	if err != nil {
		return engine.PayLine{}, err
	}
	line.Conditions = conds
	b.observe(ctx, conds)
	b.metrics.EntrySaved()
	b.events.LogEntrySaved(ctx, string(entry.Date), entry.EmployeeID, line.NetPay.String(), saved.Version)
	return line, nil
}

func (b *Bookkeeping) DeleteEntry(ctx context.Context, date core.Date, employeeID string) error {
	_, err := b.mutate(ctx, func(doc *core.Document) error {
		if !doc.RemoveEntry(date, employeeID) {
			return fmt.Errorf("entry %s/%s: %w", date, employeeID, core.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.logger.InfoContext(ctx, "Daily entry deleted",
		log.FieldDate, date,
		log.FieldEmployeeID, employeeID,
		log.FieldOperation, log.OpDelete)
	return nil
}

// RecomputeSnapshots reprices every entry on date against the current
// catalog with full-day context and stores the new figures.
func (b *Bookkeeping) RecomputeSnapshots(ctx context.Context, date core.Date) (engine.DayPayroll, error) {
	if err := date.Validate(); err != nil {
		return engine.DayPayroll{}, err
	}
	var payroll engine.DayPayroll
	_, err := b.mutate(ctx, func(doc *core.Document) error {
		cat := catalog.FromDocument(*doc)
		var live []core.DailyEntry
		for _, e := range doc.Entries() {
			if e.Date == date {
				e.Snapshot = nil
				live = append(live, e)
			}
		}
		payroll = engine.ComputeDayPayroll(engine.NewDay(date, live), cat)
		for _, l := range payroll.Lines {
			e, ok := doc.FindEntry(date, l.EmployeeID)
			if !ok {
				continue
			}
			snap := l.Snapshot()
			e.Snapshot = &snap
			doc.PutEntry(e)
		}
		return nil
	})
	if err != nil {
		return engine.DayPayroll{}, err
	}
	b.logger.InfoContext(ctx, "Snapshots recomputed",
		log.FieldDate, date,
		log.FieldOperation, log.OpRecompute,
		"entries", len(payroll.Lines))
	b.observe(ctx, payroll.Conditions)
	return payroll, nil
}

// AddTransaction stores tx, assigning an id when it has none.
func (b *Bookkeeping) AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	_, err := b.mutate(ctx, func(doc *core.Document) error {
		doc.Transactions[tx.ID] = tx
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func (b *Bookkeeping) DeleteTransaction(ctx context.Context, id string) error {
	_, err := b.mutate(ctx, func(doc *core.Document) error {
		if _, ok := doc.Transactions[id]; !ok {
			return fmt.Errorf("transaction %q: %w", id, core.ErrNotFound)
		}
		delete(doc.Transactions, id)
		return nil
	})
	return err
}

func (b *Bookkeeping) AddProductSale(ctx context.Context, sale core.ProductSale) (core.ProductSale, error) {
	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}
	if err := sale.Validate(); err != nil {
		return core.ProductSale{}, err
	}
	_, err := b.mutate(ctx, func(doc *core.Document) error {
		doc.ProductSales[sale.ID] = sale
		return nil
	})
	if err != nil {
		return core.ProductSale{}, err
	}
	return sale, nil
}

func (b *Bookkeeping) DeleteProductSale(ctx context.Context, id string) error {
	_, err := b.mutate(ctx, func(doc *core.Document) error {
		if _, ok := doc.ProductSales[id]; !ok {
			return fmt.Errorf("product sale %q: %w", id, core.ErrNotFound)
		}
		delete(doc.ProductSales, id)
		return nil
	})
	return err
}

// SetOverride merges p into the override dated date. An empty patch
// leaves the document untouched.
func (b *Bookkeeping) SetOverride(ctx context.Context, date core.Date, p override.Patch) (core.Override, error) {
	if err := date.Validate(); err != nil {
		return core.Override{}, err
	}
	var out core.Override
	_, err := b.mutate(ctx, func(doc *core.Document) error {
		st := override.FromDocument(doc.UrgentOverrides, doc.OverrideSeq)
		out = st.Set(date, p)
		doc.UrgentOverrides = st.Items()
		doc.OverrideSeq = st.Seq()
		return nil
	})
	if err != nil {
		return core.Override{}, err
	}
	if out.Date == "" {
		out.Date = date
	}
	b.logger.WithComponent(log.ComponentOverride).InfoContext(ctx, "Override saved",
		log.FieldDate, date,
		log.FieldOperation, log.OpUpdate,
		"seq", out.Seq)
	return out, nil
}

func (b *Bookkeeping) ClearOverride(ctx context.Context, date core.Date) error {
	_, err := b.mutate(ctx, func(doc *core.Document) error {
		st := override.FromDocument(doc.UrgentOverrides, doc.OverrideSeq)
		if !st.Clear(date) {
			return fmt.Errorf("override %s: %w", date, core.ErrNotFound)
		}
		doc.UrgentOverrides = st.Items()
		doc.OverrideSeq = st.Seq()
		return nil
	})
	if err != nil {
		return err
	}
	b.logger.WithComponent(log.ComponentOverride).InfoContext(ctx, "Override cleared",
		log.FieldDate, date,
		log.FieldOperation, log.OpDelete)
	return nil
}

// Overrides lists stored overrides, oldest save first.
func (b *Bookkeeping) Overrides(ctx context.Context) ([]core.Override, error) {
	doc, err := b.Document(ctx)
	if err != nil {
		return nil, err
	}
	return override.FromDocument(doc.UrgentOverrides, doc.OverrideSeq).All(), nil
}

// DailyRecap computes the recap of date.
func (b *Bookkeeping) DailyRecap(ctx context.Context, date core.Date) (engine.DailyRecap, error) {
	if err := date.Validate(); err != nil {
		return engine.DailyRecap{}, err
	}
	doc, err := b.Document(ctx)
	if err != nil {
		return engine.DailyRecap{}, err
	}
	recap := engine.AggregateDay(date, doc.Entries(), catalog.FromDocument(doc))
	b.metrics.ReportComputed("daily")
	b.observe(ctx, recap.Conditions)
	return recap, nil
}

// MonthlyReport computes the report of month. Results are memoised per
// document version; concurrent callers for the same key share one
// computation. Every caller gets its own copy.
func (b *Bookkeeping) MonthlyReport(ctx context.Context, month core.Month) (engine.MonthlyReport, error) {
	if err := month.Validate(); err != nil {
		return engine.MonthlyReport{}, err
	}
	doc, err := b.Document(ctx)
	if err != nil {
		return engine.MonthlyReport{}, err
	}
	key := fmt.Sprintf("%s@%d", month, doc.Version)
	if b.reports != nil {
		if rep, ok := b.reports.Get(key); ok {
			b.metrics.CacheLookup(true)
			return rep.Clone(), nil
		}
		b.metrics.CacheLookup(false)
	}

	v, _, _ := b.group.Do(key, func() (any, error) {
		rep := engine.AggregateMonth(month, snapshotOf(doc))
		b.metrics.ReportComputed("monthly")
		b.logger.WithComponent(log.ComponentReport).DebugContext(ctx, "Monthly report computed",
			log.FieldMonth, month,
			log.FieldVersion, doc.Version,
			log.FieldOperation, log.OpAggregate,
			"employees", len(rep.Employees))
		b.observe(ctx, rep.Conditions)
		if b.reports != nil {
			b.reports.Set(key, rep)
		}
		return rep, nil
	})
	return v.(engine.MonthlyReport).Clone(), nil
}

func snapshotOf(doc core.Document) engine.Snapshot {
	return engine.NewSnapshot(doc, override.FromDocument(doc.UrgentOverrides, doc.OverrideSeq))
}

// MonthlyExport lays out the month as export tables.
func (b *Bookkeeping) MonthlyExport(ctx context.Context, month core.Month) (report.MonthlyExport, error) {
	if err := month.Validate(); err != nil {
		return report.MonthlyExport{}, err
	}
	doc, err := b.Document(ctx)
	if err != nil {
		return report.MonthlyExport{}, err
	}
	exp, err := report.BuildMonthlyExport(month, snapshotOf(doc))
	if err != nil {
		return report.MonthlyExport{}, fmt.Errorf("build export: %w", err)
	}
	b.metrics.ReportComputed("export")
	return exp, nil
}

// WriteMonthXLSX renders every table of the month into one workbook.
func (b *Bookkeeping) WriteMonthXLSX(ctx context.Context, month core.Month) ([]byte, error) {
	exp, err := b.MonthlyExport(ctx, month)
	if err != nil {
		return nil, err
	}
	return report.WriteXLSX(exp.Tables...)
}

// WriteMonthCSV writes the month table whose name starts with table
// (case-insensitive), e.g. "gaji" or "rincian".
func (b *Bookkeeping) WriteMonthCSV(ctx context.Context, w io.Writer, month core.Month, table string) error {
	exp, err := b.MonthlyExport(ctx, month)
	if err != nil {
		return err
	}
	for _, t := range exp.Tables {
		if table != "" && strings.HasPrefix(strings.ToLower(t.Name), strings.ToLower(table)) {
			return report.WriteCSV(w, t)
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownTable, table)
}

// WriteDayCSV writes the recap of date as CSV.
func (b *Bookkeeping) WriteDayCSV(ctx context.Context, w io.Writer, date core.Date) error {
	recap, err := b.DailyRecap(ctx, date)
	if err != nil {
		return err
	}
	t, err := report.DailyExport(recap)
	if err != nil {
		return err
	}
	return report.WriteCSV(w, t)
}

// RequestExport queues a spreadsheet export of period.
func (b *Bookkeeping) RequestExport(ctx context.Context, kind amqp.ExportKind, period string) (*amqp.ReportExportMessage, error) {
	if b.publisher == nil {
		b.logger.WarnContext(ctx, "AMQP client not available, skipping export request")
		return nil, ErrExportUnavailable
	}
	doc, err := b.Document(ctx)
	if err != nil {
		return nil, err
	}
	msg := amqp.NewReportExportMessage(kind, period, doc.Version)
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	if err := b.publisher.PublishReportExport(ctx, msg); err != nil {
		fields := log.NewFields()
		fields[log.FieldMonth] = period
		b.events.LogError(ctx, "Failed to publish export request", err, log.ComponentExport, log.OpExport, fields)
		return nil, fmt.Errorf("publish export: %w", err)
	}
	b.logger.WithComponent(log.ComponentExport).InfoContext(ctx, "Export requested",
		log.FieldExportID, msg.ID,
		log.FieldMonth, period,
		log.FieldVersion, msg.Version)
	return msg, nil
}

// ExportHistory lists recorded exports of period, newest first. An empty
// period lists everything.
func (b *Bookkeeping) ExportHistory(ctx context.Context, period string) ([]storage.ExportRecord, error) {
	if b.exports == nil {
		return []storage.ExportRecord{}, nil
	}
	return b.exports.ListExports(ctx, period)
}

func (b *Bookkeeping) observe(ctx context.Context, conds engine.Conditions) {
	if len(conds) == 0 {
		return
	}
	b.metrics.ObserveConditions(conds)
	for _, c := range conds {
		b.events.LogCondition(ctx, string(c.Kind), string(c.Date), c.EmployeeID, c.ServiceID, c.Detail)
	}
}

// Close closes the repository.
func (b *Bookkeeping) Close() error {
	if b.repo == nil {
		return nil
	}
	return b.repo.Close()
}
