package provision

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/nishantd01/smart-backoffice/metrics"
	"github.com/nishantd01/smart-backoffice/models"
)

// Backend creates and lays out template workbooks.
type Backend interface {
	// CreateWorkbook returns the id of a new workbook holding one default table.
	CreateWorkbook(ctx context.Context, title string) (string, error)
	AddTable(ctx context.Context, workbookID string, table models.TableTemplate) error
	// RemoveTablesExcept drops every table whose name is not in keep.
	RemoveTablesExcept(ctx context.Context, workbookID string, keep []string) error
	Activate(ctx context.Context, workbookID, table string) error
	GrantEdit(ctx context.Context, workbookID, email string) error
}

// Binder attaches extra behaviour (an Apps Script project) to a workbook.
type Binder interface {
	Bind(ctx context.Context, workbookID string) error
}

// Options tune a Provisioner.
type Options struct {
	Catalog  []models.TableTemplate
	Binder   Binder
	Location *time.Location
	Now      func() time.Time
	Metrics  *metrics.Metrics
}

// Provisioner builds a per-lead template workbook.
type Provisioner struct {
	backend Backend
	binder  Binder
	catalog []models.TableTemplate
	logger  *slog.Logger
	metrics *metrics.Metrics
	loc     *time.Location
	now     func() time.Time
}

func New(backend Backend, logger *slog.Logger, opts Options) *Provisioner {
	p := &Provisioner{
		backend: backend,
		binder:  opts.Binder,
		catalog: opts.Catalog,
		logger:  logger.With("component", "provisioner"),
		metrics: opts.Metrics,
		loc:     opts.Location,
		now:     opts.Now,
	}
	if len(p.catalog) == 0 {
		p.catalog = DefaultCatalog()
	}
	if p.loc == nil {
		p.loc = time.UTC
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Title names the workbook for a lead: "Template - {business} - {yyyyMMdd}".
func (p *Provisioner) Title(rec models.LeadRecord) string {
	name := rec.BusinessName
	if name == "" {
		name = "Demo"
	}
	return fmt.Sprintf("Template - %s - %s", name, p.now().In(p.loc).Format("20060102"))
}

// Provision creates the workbook for rec. On any creation failure it
// returns a nil workbook and the error; sharing and script binding failures
// are logged only.
func (p *Provisioner) Provision(ctx context.Context, rec models.LeadRecord) (wb *models.Workbook, err error) {
	defer func() {
		if p.metrics != nil {
			p.metrics.Provisioned.WithLabelValues(metrics.Outcome(err)).Inc()
		}
	}()

	title := p.Title(rec)
	id, err := p.backend.CreateWorkbook(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("create workbook: %w", err)
	}

	names := make([]string, 0, len(p.catalog))
	for _, table := range p.catalog {
		if err := p.backend.AddTable(ctx, id, table); err != nil {
			return nil, fmt.Errorf("add table %s: %w", table.Name, err)
		}
		names = append(names, table.Name)
	}

	// Tables are added before the default one goes: a workbook can never be empty.
	if err := p.backend.RemoveTablesExcept(ctx, id, names); err != nil {
		return nil, fmt.Errorf("remove default table: %w", err)
	}
	if err := p.backend.Activate(ctx, id, names[0]); err != nil {
		return nil, fmt.Errorf("activate %s: %w", names[0], err)
	}

	wb = &models.Workbook{
		ID:     id,
		Title:  title,
		URL:    models.SheetURL(id),
		Tables: slices.Clone(names),
	}

	if rec.Email != "" {
		if err := p.backend.GrantEdit(ctx, id, rec.Email); err != nil {
			p.logger.Warn("share workbook failed", "workbook_id", id, "email", rec.Email, "error", err)
		} else {
			wb.Shared = true
		}
	}

	if p.binder != nil {
		if err := p.binder.Bind(ctx, id); err != nil {
			p.logger.Warn("bind script failed", "workbook_id", id, "error", err)
		}
	}

	p.logger.Info("workbook provisioned", "workbook_id", id, "title", title, "shared", wb.Shared)
	return wb, nil
}
