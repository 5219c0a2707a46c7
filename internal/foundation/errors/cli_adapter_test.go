package errors

import (
	"bytes"
	stdErrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, nil)

	assert.Equal(t, 0, adapter.ExitCodeFor(nil))
	assert.Equal(t, 1, adapter.ExitCodeFor(stdErrors.New("plain")))
	assert.Equal(t, 2, adapter.ExitCodeFor(ValidationError("bad").Build()))
	assert.Equal(t, 3, adapter.ExitCodeFor(CredentialsError("none").Build()))
	assert.Equal(t, 7, adapter.ExitCodeFor(ConfigError("broken").Build()))
	assert.Equal(t, 9, adapter.ExitCodeFor(StorageError("io").Build()))
	assert.Equal(t, 10, adapter.ExitCodeFor(InternalError("bug").Build()))
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, nil)
	verbose := NewCLIErrorAdapter(true, nil)
	err := ConfigError("supervisor.attach_timeout must be positive").Build()

	assert.Equal(t, "Error: supervisor.attach_timeout must be positive", quiet.FormatError(err))
	assert.Contains(t, verbose.FormatError(err), "[config:fatal]")
	assert.Equal(t, "Internal error occurred (use -v for details)", quiet.FormatError(InternalError("x").Build()))
}

func TestCLIErrorAdapter_Report(t *testing.T) {
	var out bytes.Buffer
	code := NewCLIErrorAdapter(false, nil).Report(&out, ValidationError("ssid required").Build())
	assert.Equal(t, 2, code)
	assert.Equal(t, "Error: ssid required\n", out.String())
}
