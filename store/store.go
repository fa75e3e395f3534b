package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nishantd01/smart-backoffice/metrics"
	"github.com/nishantd01/smart-backoffice/models"
)

const submittedLayout = "2006-01-02 15:04:05"

// Backend is a container of named tables addressed by 1-indexed rows, row 1
// being the header.
type Backend interface {
	// Header returns row 1 of table. ok is false when the table does not exist.
	Header(ctx context.Context, table string) (header []string, ok bool, err error)
	CreateTable(ctx context.Context, table string, header []string) error
	WriteHeader(ctx context.Context, table string, header []string) error
	StyleHeader(ctx context.Context, table string, width int) error
	// LastRow is the index of the last occupied row, 0 for an empty table.
	LastRow(ctx context.Context, table string) (int, error)
	// WriteRow writes values into row starting at the first column.
	WriteRow(ctx context.Context, table string, row int, values []any) error
}

// Options tune a Store. Zero values pick sensible defaults.
type Options struct {
	Locker   Locker
	Location *time.Location
	Now      func() time.Time
	Metrics  *metrics.Metrics
}

// Store appends lead records to tables whose header it creates on first
// write and widens when a package-shaped record arrives.
type Store struct {
	backend Backend
	locker  Locker
	logger  *slog.Logger
	metrics *metrics.Metrics
	loc     *time.Location
	now     func() time.Time
}

// New wraps backend. Appends to the same table are serialised through the
// configured Locker; without one, a process-local lock is used.
func New(backend Backend, logger *slog.Logger, opts Options) *Store {
	s := &Store{
		backend: backend,
		locker:  opts.Locker,
		logger:  logger.With("component", "store"),
		metrics: opts.Metrics,
		loc:     opts.Location,
		now:     opts.Now,
	}
	if s.locker == nil {
		s.locker = NewLocalLocker()
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Append writes rec as the next row of table and returns its 1-indexed row number.
func (s *Store) Append(ctx context.Context, table string, rec models.LeadRecord) (row int, err error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.StoreAppend.WithLabelValues(table, metrics.Outcome(err)).Observe(time.Since(start).Seconds())
		}
	}()

	unlock, err := s.locker.Lock(ctx, table)
	if err != nil {
		return 0, fmt.Errorf("lock table %s: %w", table, err)
	}
	defer unlock()

	shape := SchemaBasic
	if rec.IsPackage() {
		shape = SchemaPackage
	}

	if _, err := s.ensureSchema(ctx, table, shape); err != nil {
		return 0, err
	}

	last, err := s.backend.LastRow(ctx, table)
	if err != nil {
		return 0, fmt.Errorf("read last row of %s: %w", table, err)
	}
	row = last + 1
	if row < 2 {
		row = 2
	}

	submitted := s.now().In(s.loc).Format(submittedLayout)
	if err := s.backend.WriteRow(ctx, table, row, BuildRow(rec, shape, submitted)); err != nil {
		return 0, fmt.Errorf("write row %d of %s: %w", row, table, err)
	}

	s.logger.Info("record appended", "table", table, "row", row, "shape", shape.String())
	return row, nil
}

// ensureSchema creates table with the basic header when missing and widens
// it in place when shape needs more columns than the header has.
func (s *Store) ensureSchema(ctx context.Context, table string, shape TableSchema) (TableSchema, error) {
	header, ok, err := s.backend.Header(ctx, table)
	if err != nil {
		return 0, fmt.Errorf("read header of %s: %w", table, err)
	}

	if !ok {
		if err := s.backend.CreateTable(ctx, table, BasicHeader); err != nil {
			return 0, fmt.Errorf("create table %s: %w", table, err)
		}
		s.styleHeader(ctx, table, len(BasicHeader))
		s.logger.Info("table created", "table", table)
		header = BasicHeader
	} else if len(header) == 0 {
		if err := s.backend.WriteHeader(ctx, table, BasicHeader); err != nil {
			return 0, fmt.Errorf("write header of %s: %w", table, err)
		}
		s.styleHeader(ctx, table, len(BasicHeader))
		header = BasicHeader
	}

	current := SchemaOf(header)
	target := current.Widen(shape)
	if target == current {
		return current, nil
	}

	if err := s.backend.WriteHeader(ctx, table, target.Header()); err != nil {
		return 0, fmt.Errorf("widen header of %s: %w", table, err)
	}
	s.styleHeader(ctx, table, target.Width())
	s.logger.Info("table schema widened", "table", table, "from", current.String(), "to", target.String())
	return target, nil
}

func (s *Store) styleHeader(ctx context.Context, table string, width int) {
	if err := s.backend.StyleHeader(ctx, table, width); err != nil {
		s.logger.Warn("style header failed", "table", table, "error", err)
	}
}

// BuildRow lays rec out positionally against the canonical header of shape.
// The Timestamp column falls back to submitted when rec has none.
func BuildRow(rec models.LeadRecord, shape TableSchema, submitted string) []any {
	ts := rec.Timestamp
	if ts == "" {
		ts = submitted
	}
	row := []any{
		ts,
		rec.BusinessName,
		rec.BusinessType,
		rec.ContactName,
		rec.Email,
		rec.Phone,
		rec.LineID,
		submitted,
	}
	if shape != SchemaPackage {
		return row
	}
	return append(row,
		rec.Package,
		rec.PackageName,
		rec.Price().Cell(),
		rec.VerifiedAmount.Cell(),
		rec.EffectivePaymentStatus(),
		rec.Requirements,
		rec.AdditionalInfo,
	)
}
