package llm

import (
	"context"
	"errors"
)

// Completer is the completion gateway the extractors depend on. Implementations
// return the model's raw text; interpreting it is the caller's job.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, system, user string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

// StatusError carries the HTTP status of a failed gateway call so the retry
// layer can tell transient failures from permanent ones.
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string { return e.Err.Error() }
func (e *StatusError) Unwrap() error { return e.Err }

// ErrEmptyCompletion is returned when the provider answers with no content.
var ErrEmptyCompletion = errors.New("llm: empty completion")
