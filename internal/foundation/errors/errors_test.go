package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	t.Run("basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "linkkeeper.yaml").
			Build()

		assert.Equal(t, CategoryConfig, err.Category())
		assert.Equal(t, SeverityFatal, err.Severity())
		assert.Equal(t, "invalid configuration", err.Message())

		file, ok := err.Context().GetString("file")
		require.True(t, ok)
		assert.Equal(t, "linkkeeper.yaml", file)
	})

	t.Run("convenience constructors", func(t *testing.T) {
		assert.False(t, ValidationError("bad ssid").Build().CanRetry())
		assert.False(t, CredentialsError("no credentials").Build().CanRetry())
		assert.True(t, StorageError("disk full").Build().CanRetry())
		assert.True(t, ConflictError("attach in flight").Build().CanRetry())
		assert.True(t, ConfigError("broken").Build().IsFatal())
	})
}

func TestErrorChain(t *testing.T) {
	cause := stdErrors.New("write failed")
	err := WrapError(cause, CategoryStorage, "save credentials").
		Retryable().
		WithContext("key", "credentials").
		Build()

	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("set credentials: %w", err)
	classified, ok := AsClassified(wrapped)
	require.True(t, ok)
	assert.Equal(t, CategoryStorage, classified.Category())
	assert.True(t, HasCategory(wrapped, CategoryStorage))
	assert.Equal(t, CategoryStorage, GetCategory(wrapped))
	assert.Equal(t, CategoryInternal, GetCategory(cause))
}

func TestSentinelMatching(t *testing.T) {
	sentinel := CredentialsError("no credentials stored").Build()
	other := CredentialsError("no credentials stored").WithContext("op", "attach").Build()

	assert.ErrorIs(t, other, sentinel)
	assert.NotErrorIs(t, ValidationError("no credentials stored").Build(), sentinel)
}

func TestErrorContextMerge(t *testing.T) {
	a := ErrorContext{"a": 1, "b": 2}
	b := ErrorContext{"b": 3}
	merged := a.Merge(b)
	assert.Equal(t, 1, merged["a"])
	assert.Equal(t, 3, merged["b"])

	var empty ErrorContext
	assert.Equal(t, b, empty.Merge(b))
}
