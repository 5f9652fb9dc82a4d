// Package env provides access to the environmental dependencies of a
// request: the logger and the egg fetcher.
package env

import (
	"context"
	"log/slog"

	"github.com/NickMagic25/kubeegg/internal/fetch"
	"github.com/NickMagic25/kubeegg/internal/logging"
)

// Fetcher retrieves and decodes an egg document from a source reference.
type Fetcher func(ctx context.Context, source string) (any, error)

// Env holds the dependencies handlers pull from the request context.
type Env struct {
	Logger *slog.Logger
	Fetch  Fetcher
}

// NewEnvironment constructs an Env with the provided dependencies. Nil
// arguments are replaced with working defaults.
func NewEnvironment(logger *slog.Logger, fetcher Fetcher) *Env {
	if logger == nil {
		logger = slog.New(logging.NullLogger())
	}
	if fetcher == nil {
		fetcher = fetch.Fetch
	}

	return &Env{
		Logger: logger,
		Fetch:  fetcher,
	}
}

// Null constructs an instance that logs nowhere and fetches nothing.
func Null() *Env {
	return &Env{
		Logger: slog.New(logging.NullLogger()),
		Fetch: func(ctx context.Context, source string) (any, error) {
			return nil, &fetch.Error{Source: source, Err: context.Canceled}
		},
	}
}

type envKeyType struct{}

var envKey envKeyType

// WithContext injects an Env into a context.
func WithContext(ctx context.Context, e *Env) context.Context {
	return context.WithValue(ctx, envKey, e)
}

// FromContext extracts the Env from a context, falling back to Null when
// none was injected.
func FromContext(ctx context.Context) *Env {
	if e, ok := ctx.Value(envKey).(*Env); ok && e != nil {
		return e
	}
	return Null()
}
