package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerboseToggle(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetVerbose(false)
	})

	SetVerbose(false)
	Info("hidden %d", 1)
	Section("Hidden")
	assert.Empty(t, buf.String())

	SetVerbose(true)
	assert.True(t, IsVerbose())

	Debug("chunked %d file(s)", 2)
	Info("embedded %d chunk(s)", 3)
	Warn("provider slow")
	Section("Persisting")

	out := buf.String()
	assert.Contains(t, out, "[DEBUG] chunked 2 file(s)")
	assert.Contains(t, out, "[INFO] embedded 3 chunk(s)")
	assert.Contains(t, out, "[WARN] provider slow")
	assert.Contains(t, out, "=== Persisting ===")
}
