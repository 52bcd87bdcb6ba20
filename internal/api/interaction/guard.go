package interaction

import (
	"context"
	"errors"
	"sync"

	"github.com/spec-kit/ticket-bot/internal/platform"
)

var errAlreadyResponded = errors.New("interaction already answered")

// onceResponder lets exactly one Respond through to the platform.
type onceResponder struct {
	inner platform.Responder

	mu       sync.Mutex
	deferred bool
	answered bool
}

func (o *onceResponder) Defer(ctx context.Context, ephemeral bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.answered || o.deferred {
		return nil
	}
	if err := o.inner.Defer(ctx, ephemeral); err != nil {
		return err
	}
	o.deferred = true
	return nil
}

func (o *onceResponder) Respond(ctx context.Context, resp platform.Response) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.answered {
		return errAlreadyResponded
	}
	// A failed delivery still uses up the interaction.
	o.answered = true
	return o.inner.Respond(ctx, resp)
}

func (o *onceResponder) done() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.answered
}
