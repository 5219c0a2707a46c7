// Package errors provides the classified error primitives used across linkkeeper.
//
// Every error that crosses a component boundary (supervisor, blob store,
// lifecycle manager, HTTP layers, CLI) is a ClassifiedError carrying a
// category, a severity and a retry strategy. Adapters translate the
// classification into HTTP status codes and CLI exit codes.
//
// Example usage:
//
//	err := errors.NewError(errors.CategoryStorage, "save credentials failed").
//		WithRetry(errors.RetryBackoff).
//		WithContext("key", "credentials").
//		WithCause(ioErr).
//		Build()
package errors
