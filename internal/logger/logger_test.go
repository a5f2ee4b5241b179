package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Str("account", "test").Msg("sync complete")

	out := buf.String()
	assert.Contains(t, out, "sync complete")
	assert.Contains(t, out, "account")
}
