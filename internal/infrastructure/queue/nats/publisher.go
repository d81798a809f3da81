package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/kirillkom/agentic-rag/internal/core/domain"
	"github.com/kirillkom/agentic-rag/internal/infrastructure/resilience"
)

const DefaultSubject = "rag.ingest.completed"

type conn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// Publisher announces finished ingestion runs on a NATS subject.
type Publisher struct {
	conn     conn
	subject  string
	executor *resilience.Executor
}

type Options struct {
	ConnectTimeout     time.Duration
	ReconnectWait      time.Duration
	MaxReconnects      int
	ResilienceExecutor *resilience.Executor
	Logger             *zap.Logger
}

// IngestCompletedEvent is the JSON body of an ingest.completed message.
type IngestCompletedEvent struct {
	Event      string    `json:"event"`
	Collection string    `json:"collection"`
	Documents  int       `json:"documents"`
	Skipped    int       `json:"skipped"`
	Chunks     int       `json:"chunks"`
	Upserted   int       `json:"upserted"`
	PointCount int       `json:"point_count"`
	DurationMS int64     `json:"duration_ms"`
	At         time.Time `json:"at"`
}

func New(url, subject string, options Options) (*Publisher, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 5
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("nats")

	nc, err := nats.Connect(
		url,
		nats.Name("agentic-rag"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return newPublisher(nc, subject, options.ResilienceExecutor), nil
}

func newPublisher(c conn, subject string, executor *resilience.Executor) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{conn: c, subject: subject, executor: executor}
}

// Close flushes pending messages before closing the connection.
func (p *Publisher) Close() {
	if p.conn == nil {
		return
	}
	_ = p.conn.FlushTimeout(2 * time.Second)
	p.conn.Close()
}

func (p *Publisher) PublishIngestCompleted(ctx context.Context, report domain.IngestReport) error {
	body, err := json.Marshal(IngestCompletedEvent{
		Event:      "ingest.completed",
		Collection: report.Collection,
		Documents:  report.Documents,
		Skipped:    report.Skipped,
		Chunks:     report.Chunks,
		Upserted:   report.Upserted,
		PointCount: report.PointCount,
		DurationMS: report.Duration.Milliseconds(),
		At:         time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal ingest event: %w", err)
	}

	return resilience.Run(ctx, p.executor, "nats.publish", func(_ context.Context) error {
		if err := p.conn.Publish(p.subject, body); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}, classifyNATSError)
}
