package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_ProductionIsJSON(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&buf, "prod")
	log.Info("hello", "k", "v")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "v", rec["k"])
}

func TestNewWithWriter_ErrorsHighlightedLocally(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&buf, "dev")
	log.Error("boom", "k", "v")
	log.Info("calm")

	out := buf.String()
	assert.Contains(t, out, "[31mboom")
	assert.Contains(t, out, "k=v")
	assert.Contains(t, out, "msg=calm")
}
