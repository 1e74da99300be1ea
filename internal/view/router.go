package view

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/melville-ops/melville/internal/convo"
)

// View is the active top-level screen. Exactly one at a time.
type View string

const (
	Chat        View = "chat"
	Findings    View = "findings"
	Maintenance View = "maintenance"
)

var ErrUnknownView = errors.New("unknown view")

// navigationActions are quick-action labels that switch views instead of
// synthesizing a chat submission.
var navigationActions = map[string]View{
	"Scheduled Maintenance": Maintenance,
	"Incident Log":          Findings,
}

// QuickActionResult reports what a quick action did: either a view switch
// (Turn is zero) or a synthesized submission (Turn carries the exchange).
type QuickActionResult struct {
	View      View
	Submitted bool
	Turn      convo.Turn
}

// Router owns which view is displayed and dispatches quick actions.
type Router struct {
	engine *convo.Engine

	mu      sync.Mutex
	current View
}

func NewRouter(engine *convo.Engine) *Router {
	return &Router{engine: engine, current: Chat}
}

func (r *Router) Current() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Router) Set(v View) error {
	switch v {
	case Chat, Findings, Maintenance:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownView, v)
	}
	r.mu.Lock()
	r.current = v
	r.mu.Unlock()
	return nil
}

// Close returns to the chat view from a record view. No transcript side
// effects.
func (r *Router) Close() {
	r.mu.Lock()
	r.current = Chat
	r.mu.Unlock()
}

// RunQuickAction dispatches a shortcut. Navigation labels switch the view;
// everything else forces the view to chat and then forwards the label to the
// conversation engine as if the operator had typed it. The view switch is
// committed before the submission starts.
func (r *Router) RunQuickAction(ctx context.Context, label string) (QuickActionResult, error) {
	if target, ok := navigationActions[label]; ok {
		r.mu.Lock()
		r.current = target
		r.mu.Unlock()
		return QuickActionResult{View: target}, nil
	}

	r.mu.Lock()
	r.current = Chat
	r.mu.Unlock()

	turn, err := r.engine.Submit(ctx, label)
	if err != nil {
		return QuickActionResult{View: Chat}, err
	}
	return QuickActionResult{View: Chat, Submitted: true, Turn: turn}, nil
}
