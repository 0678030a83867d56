// Package confirm gates destructive operator actions behind an explicit
// confirmation.
package confirm

import "context"

// Confirmer answers whether a destructive action may proceed. The prompt
// names what is about to happen, including the affected object.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// Func adapts a function to the Confirmer interface
type Func func(ctx context.Context, prompt string) bool

// Confirm calls the wrapped function
func (f Func) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

type approvalKey struct{}

// WithApproval records the caller's confirmation decision on the context.
// Request-scoped surfaces carry the decision of the remote operator here.
func WithApproval(ctx context.Context, approved bool) context.Context {
	return context.WithValue(ctx, approvalKey{}, approved)
}

// FromContext is a Confirmer that approves only when the context carries an
// explicit approval. Absence means declined.
var FromContext Confirmer = Func(func(ctx context.Context, prompt string) bool {
	approved, ok := ctx.Value(approvalKey{}).(bool)
	return ok && approved
})

// Always approves every prompt. For surfaces that have already asked.
var Always Confirmer = Func(func(context.Context, string) bool { return true })
