package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nishantd01/smart-backoffice/metrics"
	"github.com/nishantd01/smart-backoffice/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Routing keys for ingestion events.
const (
	LeadCreated    = "lead.created"
	PackageCreated = "package.created"
)

// Event is the JSON body published after a record is appended.
type Event struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	OccurredAt  time.Time         `json:"occurredAt"`
	Row         int               `json:"row"`
	Record      models.LeadRecord `json:"record"`
	WorkbookID  string            `json:"workbookId,omitempty"`
	WorkbookURL string            `json:"workbookUrl,omitempty"`
}

// NewEvent builds the event for rec. The routing key follows the record kind.
func NewEvent(rec models.LeadRecord, row int, wb *models.Workbook) Event {
	ev := Event{
		ID:         uuid.NewString(),
		Type:       RoutingKey(rec),
		OccurredAt: time.Now().UTC(),
		Row:        row,
		Record:     rec,
	}
	if wb != nil {
		ev.WorkbookID = wb.ID
		ev.WorkbookURL = wb.URL
	}
	return ev
}

// RoutingKey is PackageCreated for package orders and LeadCreated otherwise.
func RoutingKey(rec models.LeadRecord) string {
	if rec.IsPackage() {
		return PackageCreated
	}
	return LeadCreated
}

// Publisher emits ingestion events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQ publishes events to a durable topic exchange.
type RabbitMQ struct {
	logger   *slog.Logger
	metrics  *metrics.Metrics
	exchange string

	mu      sync.Mutex
	conn    *amqp.Connection
	channel channel
}

// Dial connects to url and declares exchange.
func Dial(url, exchange string, logger *slog.Logger, m *metrics.Metrics) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	p, err := newRabbitMQ(ch, exchange, logger, m)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	p.logger.Info("connection established", "exchange", exchange)
	return p, nil
}

func newRabbitMQ(ch channel, exchange string, logger *slog.Logger, m *metrics.Metrics) (*RabbitMQ, error) {
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &RabbitMQ{
		logger:   logger.With("component", "events"),
		metrics:  m,
		exchange: exchange,
		channel:  ch,
	}, nil
}

// Publish sends ev as a persistent JSON message keyed by ev.Type.
func (p *RabbitMQ) Publish(ctx context.Context, ev Event) (err error) {
	defer func() {
		if p.metrics != nil {
			p.metrics.EventsPublished.WithLabelValues(ev.Type, metrics.Outcome(err)).Inc()
		}
	}()

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel == nil {
		return fmt.Errorf("publish %s: channel closed", ev.Type)
	}
	err = p.channel.PublishWithContext(ctx, p.exchange, ev.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    ev.OccurredAt,
		Type:         ev.Type,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

func (p *RabbitMQ) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			return fmt.Errorf("failed to close channel: %w", err)
		}
		p.channel = nil
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("failed to close connection: %w", err)
		}
		p.conn = nil
	}
	return nil
}
