package convo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/melville-ops/melville/internal/reasoning"
)

type fakeReasoner struct {
	reply   string
	err     error
	asked   []string
	release chan struct{} // when non-nil, Ask blocks until closed
}

func (f *fakeReasoner) Ask(ctx context.Context, system, user string) (string, error) {
	f.asked = append(f.asked, user)
	if f.release != nil {
		<-f.release
	}
	return f.reply, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewEngine_SeedsGreeting(t *testing.T) {
	e := NewEngine(&fakeReasoner{}, nil, testLogger())

	msgs := e.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 seeded message, got %d", len(msgs))
	}
	if msgs[0].Role != RoleAssistant {
		t.Errorf("expected assistant greeting, got role %q", msgs[0].Role)
	}
	if !strings.Contains(msgs[0].Content, "Melville") {
		t.Errorf("unexpected greeting %q", msgs[0].Content)
	}
}

func TestSubmit_AppendsUserThenAssistant(t *testing.T) {
	r := &fakeReasoner{reply: "line 2 is the bottleneck"}
	e := NewEngine(r, nil, testLogger())

	turn, err := e.Submit(context.Background(), "which line is slowest?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs := e.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[1].Role != RoleUser || msgs[1].Content != "which line is slowest?" {
		t.Errorf("unexpected user message: %+v", msgs[1])
	}
	if msgs[2].Role != RoleAssistant || msgs[2].Content != "line 2 is the bottleneck" {
		t.Errorf("unexpected assistant message: %+v", msgs[2])
	}
	if turn.Fallback {
		t.Error("expected no fallback on success")
	}
	if turn.Err != nil {
		t.Errorf("expected nil turn error, got %v", turn.Err)
	}
	if msgs[1].ID == msgs[2].ID {
		t.Error("expected distinct message ids")
	}
	if len(r.asked) != 1 {
		t.Errorf("expected exactly one outbound call, got %d", len(r.asked))
	}
	if !strings.Contains(r.asked[0], "which line is slowest?") {
		t.Errorf("query missing from prompt: %q", r.asked[0])
	}
	if !strings.Contains(r.asked[0], "overallEfficiency") {
		t.Errorf("factory context missing from prompt")
	}
}

func TestSubmit_RejectsEmptyAndWhitespace(t *testing.T) {
	e := NewEngine(&fakeReasoner{reply: "hi"}, nil, testLogger())

	for _, input := range []string{"", "   ", "\n\t"} {
		if _, err := e.Submit(context.Background(), input); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Submit(%q): expected ErrEmptyInput, got %v", input, err)
		}
	}
	if got := len(e.Messages()); got != 1 {
		t.Errorf("transcript changed on rejected input: %d messages", got)
	}
}

func TestSubmit_RejectsWhileInFlight(t *testing.T) {
	r := &fakeReasoner{reply: "done", release: make(chan struct{})}
	e := NewEngine(r, nil, testLogger())

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		if _, err := e.Submit(context.Background(), "first"); err != nil {
			t.Errorf("first submit failed: %v", err)
		}
	}()

	// Wait until the first turn is pending.
	deadline := time.After(2 * time.Second)
	for !e.InFlight() {
		select {
		case <-deadline:
			t.Fatal("first turn never went in flight")
		case <-time.After(time.Millisecond):
		}
	}

	if _, err := e.Submit(context.Background(), "second"); !errors.Is(err, ErrTurnInFlight) {
		t.Errorf("expected ErrTurnInFlight, got %v", err)
	}

	close(r.release)
	<-firstDone

	if e.InFlight() {
		t.Error("in-flight flag stuck after resolution")
	}
	msgs := e.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages (greeting + one turn), got %d", len(msgs))
	}
	if msgs[1].Content != "first" {
		t.Errorf("rejected submission leaked into transcript: %+v", msgs[1])
	}
}

func TestSubmit_FallbackOnFailure(t *testing.T) {
	cases := map[string]error{
		"transport": &reasoning.TransportError{Err: errors.New("dial tcp: timeout")},
		"upstream":  &reasoning.UpstreamError{Status: 500, Body: "boom"},
		"parse":     &reasoning.ParseError{Err: errors.New("no choices"), Raw: "{}"},
	}
	for name, askErr := range cases {
		t.Run(name, func(t *testing.T) {
			e := NewEngine(&fakeReasoner{err: askErr}, nil, testLogger())

			turn, err := e.Submit(context.Background(), "status please")
			if err != nil {
				t.Fatalf("failure must not propagate from Submit: %v", err)
			}
			if !turn.Fallback {
				t.Error("expected fallback turn")
			}
			if turn.Assistant.Content != fallbackReply {
				t.Errorf("expected fixed fallback text, got %q", turn.Assistant.Content)
			}
			if !errors.Is(turn.Err, askErr) {
				t.Errorf("expected underlying failure on turn, got %v", turn.Err)
			}
			if e.InFlight() {
				t.Error("in-flight flag stuck after failure")
			}

			// The next turn must not be blocked.
			if _, err := e.Submit(context.Background(), "again"); err != nil {
				t.Errorf("engine blocked after failure: %v", err)
			}
		})
	}
}

func TestSubmit_EmptyReplyGetsPlaceholder(t *testing.T) {
	e := NewEngine(&fakeReasoner{reply: "  "}, nil, testLogger())

	turn, err := e.Submit(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if turn.Assistant.Content != emptyReply {
		t.Errorf("expected placeholder reply, got %q", turn.Assistant.Content)
	}
	if turn.Fallback {
		t.Error("empty reply is not a fallback")
	}
}

func TestAnalysisMode_OneWay(t *testing.T) {
	e := NewEngine(&fakeReasoner{reply: "ok"}, nil, testLogger())

	if e.AnalysisMode() {
		t.Fatal("analysis mode must start false")
	}

	if _, err := e.Submit(context.Background(), "hello there"); err != nil {
		t.Fatal(err)
	}
	if e.AnalysisMode() {
		t.Error("non-matching input must not set analysis mode")
	}

	if _, err := e.Submit(context.Background(), "show me today's dashboard"); err != nil {
		t.Fatal(err)
	}
	if !e.AnalysisMode() {
		t.Error("matching input must set analysis mode")
	}

	// Stays true even when later inputs do not match.
	if _, err := e.Submit(context.Background(), "thanks, that's all"); err != nil {
		t.Fatal(err)
	}
	if !e.AnalysisMode() {
		t.Error("analysis mode must be one-way")
	}
}

func TestAnalysisMode_MatchesAssistantsOwnTriggersOnly(t *testing.T) {
	// The assistant reply containing a trigger word must not flip the flag;
	// only the operator's input counts.
	e := NewEngine(&fakeReasoner{reply: "here is a performance report"}, nil, testLogger())

	if _, err := e.Submit(context.Background(), "hi"); err != nil {
		t.Fatal(err)
	}
	if e.AnalysisMode() {
		t.Error("assistant reply must not trigger analysis mode")
	}
}

func TestSubmit_OrderingStableAcrossTurns(t *testing.T) {
	e := NewEngine(&fakeReasoner{reply: "ack"}, nil, testLogger())

	inputs := []string{"one", "two", "three"}
	for _, in := range inputs {
		if _, err := e.Submit(context.Background(), in); err != nil {
			t.Fatal(err)
		}
	}

	msgs := e.Messages()
	if len(msgs) != 1+2*len(inputs) {
		t.Fatalf("expected %d messages, got %d", 1+2*len(inputs), len(msgs))
	}
	for i, in := range inputs {
		user := msgs[1+2*i]
		assistant := msgs[2+2*i]
		if user.Role != RoleUser || user.Content != in {
			t.Errorf("turn %d: unexpected user message %+v", i, user)
		}
		if assistant.Role != RoleAssistant {
			t.Errorf("turn %d: expected assistant after user, got %+v", i, assistant)
		}
	}
}

func TestMessages_ReturnsSnapshotCopy(t *testing.T) {
	e := NewEngine(&fakeReasoner{reply: "ok"}, nil, testLogger())

	snapshot := e.Messages()
	snapshot[0].Content = "mutated"

	if e.Messages()[0].Content == "mutated" {
		t.Error("Messages must return a copy, not the backing slice")
	}
}
