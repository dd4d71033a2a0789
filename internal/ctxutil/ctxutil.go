// Package ctxutil reports why a context ended.
package ctxutil

import (
	"context"
	"errors"
	"fmt"
)

// Cause returns nil while ctx is live. Once it is done it returns ctx.Err(),
// wrapped together with the cancellation cause when one was given, so both
// match with errors.Is.
func Cause(ctx context.Context) error {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	cause := context.Cause(ctx)
	if cause == err {
		return err
	}
	return fmt.Errorf("%w, cause: %w", err, cause)
}

// ErrorWithCause adds ctx's cancellation cause to err when err is the bare
// ctx.Err() a blocking call returned.
func ErrorWithCause(err error, ctx context.Context) error {
	cause := context.Cause(ctx)
	if cause != nil && errors.Is(err, ctx.Err()) && !errors.Is(err, cause) {
		return fmt.Errorf("%w, cause: %w", err, cause)
	}
	return err
}
