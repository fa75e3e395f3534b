package notify

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"net/mail"
	"strings"
	"text/template"
	"time"

	"github.com/nishantd01/smart-backoffice/metrics"
	"github.com/nishantd01/smart-backoffice/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Kind selects the template and the recipient of a notification.
type Kind string

const (
	LeadAdmin    Kind = "leadAdmin"
	LeadUser     Kind = "leadUser"
	PackageAdmin Kind = "packageAdmin"
	PackageUser  Kind = "packageUser"
)

// ErrNoRecipient is returned for admin kinds when no operator address is configured.
var ErrNoRecipient = errors.New("no notification recipient configured")

// ErrInvalidRecipient is returned when the recipient is not a single RFC 5322 address.
var ErrInvalidRecipient = errors.New("invalid notification recipient")

// IsUser reports whether k goes to the submitter rather than the operator.
func (k Kind) IsUser() bool {
	return k == LeadUser || k == PackageUser
}

func (k Kind) template() string {
	switch k {
	case LeadAdmin:
		return "lead_admin"
	case LeadUser:
		return "lead_user"
	case PackageAdmin:
		return "package_admin"
	case PackageUser:
		return "package_user"
	}
	return ""
}

// Message is one rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Extra carries per-call values that are not part of the record.
type Extra struct {
	WorkbookURL string
}

//go:embed templates/*
var templateFS embed.FS

var funcs = map[string]any{
	"na": func(s string) string {
		if s == "" {
			return "N/A"
		}
		return s
	},
}

var (
	textTemplates = template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.txt"))
	htmlTemplates = htmltemplate.Must(htmltemplate.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
)

var businessTypeNames = map[string]string{
	"pet":     "Pet Shop",
	"food":    "ร้านอาหาร",
	"salon":   "ร้านเสริมสวย",
	"retail":  "ร้านค้าปลีก",
	"service": "บริการ",
	"other":   "อื่นๆ",
}

// BusinessTypeName is the display name used in customer-facing mail.
func BusinessTypeName(businessType string) string {
	if name, ok := businessTypeNames[businessType]; ok {
		return name
	}
	if businessType != "" {
		return businessType
	}
	return "ธุรกิจของคุณ"
}

type view struct {
	Rec              models.LeadRecord
	BusinessTypeName string
	Submitted        string
	Price            string
	PaymentStatus    string
	LeadsURL         string
	WorkbookURL      string
	AdminEmail       string
}

// Config holds the fixed addresses used by a Dispatcher.
type Config struct {
	AdminEmail    string
	SpreadsheetID string
	Location      *time.Location
}

// Dispatcher renders and sends notifications.
type Dispatcher struct {
	sender  Sender
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	printer *message.Printer
}

func NewDispatcher(sender Sender, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Dispatcher{
		sender:  sender,
		cfg:     cfg,
		logger:  logger.With("component", "notify"),
		metrics: m,
		printer: message.NewPrinter(language.Thai),
	}
}

// Notify renders kind for rec and sends it. User kinds are skipped without
// error when rec has no email. The caller decides what to do with the error.
func (d *Dispatcher) Notify(ctx context.Context, kind Kind, rec models.LeadRecord, extra Extra) (err error) {
	if kind.IsUser() && rec.Email == "" {
		d.logger.Debug("user notification skipped, no email", "kind", kind)
		return nil
	}
	defer func() {
		if d.metrics != nil {
			d.metrics.Notifications.WithLabelValues(string(kind), metrics.Outcome(err)).Inc()
		}
	}()

	msg, err := d.Render(kind, rec, extra)
	if err != nil {
		return err
	}
	if msg.To == "" {
		return ErrNoRecipient
	}
	if msg.To, err = recipient(msg.To); err != nil {
		d.logger.Warn("notification refused", "kind", kind, "error", err)
		return err
	}
	if err := d.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s: %w", kind, err)
	}
	d.logger.Info("notification sent", "kind", kind, "to", msg.To)
	return nil
}

// Render builds the message for kind without sending it.
func (d *Dispatcher) Render(kind Kind, rec models.LeadRecord, extra Extra) (Message, error) {
	name := kind.template()
	if name == "" {
		return Message{}, fmt.Errorf("unknown notification kind %q", kind)
	}

	v := view{
		Rec:              rec,
		BusinessTypeName: BusinessTypeName(rec.BusinessType),
		Submitted:        d.thaiDate(rec.Timestamp),
		Price:            d.price(rec.Price()),
		PaymentStatus:    rec.EffectivePaymentStatus(),
		WorkbookURL:      extra.WorkbookURL,
		AdminEmail:       d.cfg.AdminEmail,
	}
	if d.cfg.SpreadsheetID != "" {
		v.LeadsURL = models.SheetURL(d.cfg.SpreadsheetID)
	}

	var text, html bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&text, name+".txt", v); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", kind, err)
	}
	if err := htmlTemplates.ExecuteTemplate(&html, name+".html", v); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", kind, err)
	}

	msg := Message{
		Subject: subject(kind, rec),
		Text:    text.String(),
		HTML:    html.String(),
	}
	if kind.IsUser() {
		msg.To = rec.Email
	} else {
		msg.To = d.cfg.AdminEmail
	}
	return msg, nil
}

// recipient reduces addr to its bare address. Address lists, display-name
// garbage and anything carrying a line break are refused.
func recipient(addr string) (string, error) {
	if strings.ContainsAny(addr, "\r\n") {
		return "", fmt.Errorf("%w: line break in address", ErrInvalidRecipient)
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}
	return parsed.Address, nil
}

func subject(kind Kind, rec models.LeadRecord) string {
	switch kind {
	case LeadAdmin:
		return "🎉 New Lead Submitted - " + orDefault(rec.BusinessName, "Unknown Business")
	case LeadUser:
		return "📊 Template Google Sheets ของคุณพร้อมใช้งานแล้ว!"
	case PackageAdmin:
		return "🛒 New Package Order - " + orDefault(rec.PackageName, orDefault(rec.Package, "Unknown Package"))
	default:
		return "✅ ยืนยันคำสั่งซื้อแพ็กเกจ " + orDefault(rec.PackageName, rec.Package)
	}
}

// thaiDate renders an ISO-8601 instant the way a th-TH locale does:
// day/month/Buddhist-year time. Unparseable input is returned unchanged.
func (d *Dispatcher) thaiDate(ts string) string {
	if ts == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	t = t.In(d.cfg.Location)
	return fmt.Sprintf("%d/%d/%d %s", t.Day(), int(t.Month()), t.Year()+543, t.Format("15:04:05"))
}

func (d *Dispatcher) price(a models.Amount) string {
	if !a.Valid {
		return ""
	}
	return d.printer.Sprintf("฿%.2f", a.Value)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
