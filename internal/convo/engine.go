package convo

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/melville-ops/melville/internal/events"
	"github.com/melville-ops/melville/internal/reasoning"
)

const (
	greeting = "Hello, I'm Melville, your industrial engineering assistant. How can I help you today?"

	// fallbackReply replaces the assistant message when the reasoning call
	// fails. The failure itself never reaches the transcript.
	fallbackReply = "I apologize, but I'm having trouble connecting to my analysis system right now. Could you please try again in a moment?"

	// emptyReply covers the odd case of a successful call with blank text.
	emptyReply = "I'm not sure how to respond to that."
)

// analysisTriggers flips the session into analysis mode. Matched against the
// operator's input, not the assistant's reply.
var analysisTriggers = regexp.MustCompile(`(?i)analysis|report|data|dashboard|metrics|performance`)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry. Immutable once appended.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Reasoner is the outbound seam to the external reasoning service.
type Reasoner interface {
	Ask(ctx context.Context, system, user string) (string, error)
}

var (
	ErrEmptyInput   = errors.New("empty input")
	ErrTurnInFlight = errors.New("a turn is already in flight")
)

type turnState int

const (
	stateIdle turnState = iota
	statePending
)

// Turn is the resolved unit of one submission: the user message plus the
// assistant message that answered it. Err carries the underlying reasoning
// failure when the assistant message is the fallback; the transcript itself
// never sees the error.
type Turn struct {
	User      Message
	Assistant Message
	Fallback  bool
	Err       error
}

// Engine owns the session transcript and turn lifecycle. One turn may be in
// flight at a time; a second submission is rejected, not queued.
type Engine struct {
	reasoner Reasoner
	bus      *events.Publisher
	logger   *slog.Logger

	// ContextProvider supplies the serialized factory snapshot embedded in
	// every reasoning call. Defaults to the illustrative dataset.
	ContextProvider func() string

	mu           sync.Mutex
	state        turnState
	transcript   []Message
	analysisMode bool
}

func NewEngine(reasoner Reasoner, bus *events.Publisher, logger *slog.Logger) *Engine {
	e := &Engine{
		reasoner:        reasoner,
		bus:             bus,
		logger:          logger,
		ContextProvider: DefaultContext,
	}
	e.transcript = []Message{newMessage(RoleAssistant, greeting)}
	return e
}

func newMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// Submit runs one conversation turn. The user message is appended before the
// reasoning call starts; the assistant message (reply or fallback) is appended
// once it resolves. Returns ErrEmptyInput or ErrTurnInFlight on rejection, in
// which case the transcript is untouched.
func (e *Engine) Submit(ctx context.Context, text string) (Turn, error) {
	query := strings.TrimSpace(text)
	if query == "" {
		return Turn{}, ErrEmptyInput
	}

	e.mu.Lock()
	if e.state == statePending {
		e.mu.Unlock()
		return Turn{}, ErrTurnInFlight
	}
	e.state = statePending
	userMsg := newMessage(RoleUser, query)
	e.transcript = append(e.transcript, userMsg)
	e.mu.Unlock()

	reply, askErr := e.reasoner.Ask(ctx, personaPrompt, buildUserPrompt(e.ContextProvider(), query))

	content := reply
	switch {
	case askErr != nil:
		e.logAskFailure(query, askErr)
		content = fallbackReply
	case strings.TrimSpace(reply) == "":
		content = emptyReply
	}

	assistantMsg := newMessage(RoleAssistant, content)

	e.mu.Lock()
	e.transcript = append(e.transcript, assistantMsg)
	if analysisTriggers.MatchString(query) {
		e.analysisMode = true
	}
	analysisMode := e.analysisMode
	e.state = stateIdle
	e.mu.Unlock()

	e.bus.Publish(events.SubjectTurnResolved, events.TurnResolved{
		TurnID:       userMsg.ID,
		Query:        query,
		Fallback:     askErr != nil,
		AnalysisMode: analysisMode,
		Timestamp:    time.Now().UTC(),
	})

	return Turn{
		User:      userMsg,
		Assistant: assistantMsg,
		Fallback:  askErr != nil,
		Err:       askErr,
	}, nil
}

// logAskFailure keeps the three failure classes distinguishable in logs even
// though the transcript treats them identically.
func (e *Engine) logAskFailure(query string, err error) {
	var (
		transport *reasoning.TransportError
		upstream  *reasoning.UpstreamError
		parse     *reasoning.ParseError
	)
	switch {
	case errors.As(err, &transport):
		e.logger.Error("reasoning transport failure", "query_len", len(query), "error", err)
	case errors.As(err, &upstream):
		e.logger.Error("reasoning upstream failure", "status", upstream.Status, "body", upstream.Body)
	case errors.As(err, &parse):
		e.logger.Error("reasoning parse failure", "raw", parse.Raw, "error", err)
	default:
		e.logger.Error("reasoning failure", "error", err)
	}
}

// Messages returns a snapshot copy of the transcript in insertion order.
func (e *Engine) Messages() []Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Message, len(e.transcript))
	copy(out, e.transcript)
	return out
}

func (e *Engine) InFlight() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == statePending
}

// AnalysisMode reports whether any prior input touched data/metrics topics.
// One-way for the session lifetime.
func (e *Engine) AnalysisMode() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.analysisMode
}
