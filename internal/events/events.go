package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS subjects for dashboard mutation events.
const (
	SubjectTurnResolved   = "melville.chat.turn"
	SubjectFindingIgnored = "melville.finding.ignored"
	SubjectTaskCompleted  = "melville.maintenance.completed"
	SubjectFindingCreated = "melville.finding.created"
	SubjectTaskCreated    = "melville.maintenance.created"
)

// TurnResolved is emitted after each accepted chat submission resolves,
// whether the reasoning call succeeded or degraded to the fallback reply.
type TurnResolved struct {
	TurnID       string    `json:"turn_id"`
	Query        string    `json:"query"`
	Fallback     bool      `json:"fallback"`
	AnalysisMode bool      `json:"analysis_mode"`
	Timestamp    time.Time `json:"timestamp"`
}

type FindingIgnored struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

type TaskCompleted struct {
	ID        int64     `json:"id"`
	Notes     string    `json:"notes"`
	Timestamp time.Time `json:"timestamp"`
}

type RecordCreated struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher emits dashboard events onto NATS. A nil Publisher is valid and
// drops everything, so callers never need to gate on configuration.
type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewPublisher(url, token string, logger *slog.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Publisher{conn: nc, logger: logger}, nil
}

// Publish marshals data and emits it on subject. Errors are logged, not
// returned: events are best-effort and must never fail a user action.
func (p *Publisher) Publish(subject string, data any) {
	if p == nil {
		return
	}
	payload, err := json.Marshal(data)
	if err != nil {
		p.logger.Error("marshal event", "subject", subject, "error", err)
		return
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		p.logger.Warn("publish event", "subject", subject, "error", err)
	}
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.conn.Close()
}
