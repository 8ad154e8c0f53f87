package ai

import (
	"context"
	"log/slog"
)

// FallbackReply is returned whenever the model call fails. The chat
// endpoint never surfaces a provider error to the end user.
const FallbackReply = "I'm sorry, I'm having trouble generating a response right now. Please try again later."

// Completer generates a reply from an assembled context prompt.
type Completer interface {
	Model() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Responder wraps a Completer and degrades to a fixed apology on
// failure.
type Responder struct {
	provider Completer
}

// NewResponder creates a new responder over the given provider.
func NewResponder(provider Completer) *Responder {
	return &Responder{provider: provider}
}

// Model returns the model name of the underlying provider.
func (r *Responder) Model() string {
	return r.provider.Model()
}

// Respond generates a reply for the prompt. The boolean result is true
// when the reply came from the model and false when it is the fallback.
func (r *Responder) Respond(ctx context.Context, prompt string) (string, bool) {
	reply, err := r.provider.Complete(ctx, prompt)
	if err != nil {
		slog.Error("LLM completion failed, using fallback reply", slog.Any("err", err))
		return FallbackReply, false
	}
	return reply, true
}
