package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nishantd01/smart-backoffice/events"
	"github.com/nishantd01/smart-backoffice/metrics"
	"github.com/nishantd01/smart-backoffice/models"
	"github.com/nishantd01/smart-backoffice/notify"
	"github.com/nishantd01/smart-backoffice/payment"
)

// Appender persists a record and returns its row. *store.Store satisfies it.
type Appender interface {
	Append(ctx context.Context, table string, rec models.LeadRecord) (int, error)
}

// WorkbookProvisioner builds the per-lead template. *provision.Provisioner satisfies it.
type WorkbookProvisioner interface {
	Provision(ctx context.Context, rec models.LeadRecord) (*models.Workbook, error)
}

// Notifier sends one notification. *notify.Dispatcher satisfies it.
type Notifier interface {
	Notify(ctx context.Context, kind notify.Kind, rec models.LeadRecord, extra notify.Extra) error
}

// Payments is the checkout boundary. *payment.Client satisfies it.
type Payments interface {
	CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutResult, error)
	VerifyPayment(ctx context.Context, sessionID string) (*payment.VerifyResult, error)
}

// LeadServiceConfig wires a LeadService.
type LeadServiceConfig struct {
	Table       string
	Store       Appender
	Provisioner WorkbookProvisioner
	Notifier    Notifier
	Payments    Payments
	Events      events.Publisher
	Normalizer  *Normalizer
	Metrics     *metrics.Metrics
}

// LeadService routes inbound submissions: payment actions go to the gateway,
// everything else is stored, provisioned (leads only) and announced.
type LeadService struct {
	table       string
	store       Appender
	provisioner WorkbookProvisioner
	notifier    Notifier
	payments    Payments
	events      events.Publisher
	normalizer  *Normalizer
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func NewLeadService(cfg LeadServiceConfig, logger *slog.Logger) *LeadService {
	s := &LeadService{
		table:       cfg.Table,
		store:       cfg.Store,
		provisioner: cfg.Provisioner,
		notifier:    cfg.Notifier,
		payments:    cfg.Payments,
		events:      cfg.Events,
		normalizer:  cfg.Normalizer,
		metrics:     cfg.Metrics,
		logger:      logger.With("component", "router"),
	}
	if s.table == "" {
		s.table = "Leads"
	}
	if s.normalizer == nil {
		s.normalizer = NewNormalizer()
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	return s
}

// Handle normalises p and answers with a single JSON-able object. origin is
// the caller's site, used for default checkout return URLs.
func (s *LeadService) Handle(ctx context.Context, p Payload, origin string) any {
	rec, err := s.normalizer.Normalize(p)
	if err != nil {
		s.count("invalid", err)
		s.logger.Warn("payload rejected", "encoding", p.Kind.String(), "error", err)
		return models.IngestResponse{Success: false, Error: err.Error()}
	}

	switch rec.Action {
	case models.ActionCreateCheckout:
		return s.checkout(ctx, rec, origin)
	case models.ActionVerifyPayment:
		return s.verify(ctx, rec.SessionID)
	}

	res, err := s.Ingest(ctx, rec)
	if err != nil {
		return models.IngestResponse{Success: false, Error: err.Error()}
	}
	return res
}

// Ingest runs the storage flow for a lead or package order. Only a
// *StoreError is returned; provisioning, notification and event failures
// are logged and the response degrades.
func (s *LeadService) Ingest(ctx context.Context, rec models.LeadRecord) (res models.IngestResponse, err error) {
	kind := rec.Kind()
	defer func() { s.count(kind, err) }()

	row, err := s.store.Append(ctx, s.table, rec)
	if err != nil {
		err = &StoreError{Table: s.table, Err: err}
		s.logger.Error("append failed", "kind", kind, "error", err)
		return models.IngestResponse{}, err
	}

	if rec.IsPackage() {
		s.notify(ctx, notify.PackageAdmin, rec, notify.Extra{})
		s.notify(ctx, notify.PackageUser, rec, notify.Extra{})
		s.publish(ctx, rec, row, nil)
		return models.IngestResponse{
			Success: true,
			Message: "Package order saved successfully",
			Row:     row,
		}, nil
	}

	wb := s.provision(ctx, rec)
	var extra notify.Extra
	if wb != nil {
		extra.WorkbookURL = wb.URL
	}
	s.notify(ctx, notify.LeadAdmin, rec, extra)
	if wb != nil {
		s.notify(ctx, notify.LeadUser, rec, extra)
	}
	s.publish(ctx, rec, row, wb)

	res = models.IngestResponse{
		Success: true,
		Message: "Lead saved successfully",
		Row:     row,
	}
	if wb != nil {
		res.TemplateSpreadsheetID = wb.ID
		res.TemplateURL = wb.URL
	}
	return res, nil
}

func (s *LeadService) provision(ctx context.Context, rec models.LeadRecord) *models.Workbook {
	if s.provisioner == nil {
		return nil
	}
	wb, err := s.provisioner.Provision(ctx, rec)
	if err != nil {
		s.logger.Error("workbook not produced", "error", &ProvisionError{Err: err})
		s.countError("provision")
		return nil
	}
	return wb
}

func (s *LeadService) notify(ctx context.Context, kind notify.Kind, rec models.LeadRecord, extra notify.Extra) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, kind, rec, extra); err != nil {
		s.logger.Error("notification dropped", "error", &NotifyError{Kind: string(kind), Err: err})
		s.countError("notify")
	}
}

func (s *LeadService) publish(ctx context.Context, rec models.LeadRecord, row int, wb *models.Workbook) {
	ev := events.NewEvent(rec, row, wb)
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn("event dropped", "type", ev.Type, "error", err)
		s.countError("events")
	}
}

func (s *LeadService) checkout(ctx context.Context, rec models.LeadRecord, origin string) any {
	res, err := s.CreateCheckout(ctx, payment.CheckoutFromRecord(rec, origin))
	s.count("checkout", err)
	if err != nil {
		return models.PaymentErrorResponse{Error: err.Error()}
	}
	return res
}

func (s *LeadService) verify(ctx context.Context, sessionID string) any {
	res, err := s.VerifyPayment(ctx, sessionID)
	s.count("verify", err)
	if err != nil {
		paid := false
		return models.PaymentErrorResponse{Paid: &paid, Error: err.Error()}
	}
	return res
}

// ErrPaymentsDisabled is returned when no gateway is configured.
var ErrPaymentsDisabled = errors.New("payment gateway is not configured")

// CreateCheckout forwards to the payment gateway.
func (s *LeadService) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutResult, error) {
	if s.payments == nil {
		return nil, ErrPaymentsDisabled
	}
	res, err := s.payments.CreateCheckout(ctx, req)
	if err != nil {
		s.logger.Error("create checkout failed", "package", req.Package, "error", err)
		return nil, err
	}
	return res, nil
}

// VerifyPayment forwards to the payment gateway.
func (s *LeadService) VerifyPayment(ctx context.Context, sessionID string) (*payment.VerifyResult, error) {
	if s.payments == nil {
		return nil, ErrPaymentsDisabled
	}
	res, err := s.payments.VerifyPayment(ctx, sessionID)
	if err != nil {
		s.logger.Error("verify payment failed", "session_id", sessionID, "error", err)
		return nil, err
	}
	return res, nil
}

func (s *LeadService) count(kind string, err error) {
	if s.metrics != nil {
		s.metrics.IngestRequests.WithLabelValues(kind, metrics.Outcome(err)).Inc()
	}
}

func (s *LeadService) countError(component string) {
	if s.metrics != nil {
		s.metrics.Errors.WithLabelValues(component).Inc()
	}
}
