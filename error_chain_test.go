package logboot

import (
	"bytes"
	"encoding/json"
	stderrs "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logEntry map[string]any

func TestBuildErrorChain(t *testing.T) {
	inner := stderrs.New("dial tcp 127.0.0.1:5432: connect: connection refused")
	middle := fmt.Errorf("failed to connect to database: %w", inner)
	outer := fmt.Errorf("startup failed: %w", middle)

	chain, root := buildErrorChain(outer)
	require.Len(t, chain, 3)
	assert.True(t, strings.HasPrefix(chain[0], "startup failed:"))
	assert.True(t, strings.HasPrefix(chain[1], "failed to connect to database:"))
	assert.Equal(t, inner.Error(), chain[2])
	assert.Equal(t, inner.Error(), root)
}

func TestBuildErrorChain_CollapsesStackWrappers(t *testing.T) {
	inner := errors.New("disk full")
	outer := errors.WithStack(errors.WithStack(inner))

	chain, root := buildErrorChain(outer)
	assert.Equal(t, []string{"disk full"}, chain)
	assert.Equal(t, "disk full", root)
}

func TestBuildErrorChain_JoinedErrors(t *testing.T) {
	first := stderrs.New("first failure")
	cause := stderrs.New("socket closed")
	second := fmt.Errorf("second failure: %w", cause)

	chain, root := buildErrorChain(stderrs.Join(first, second))
	assert.Equal(t, []string{
		"first failure\nsecond failure: socket closed",
		"first failure",
		"second failure: socket closed",
		"socket closed",
	}, chain)
	assert.Equal(t, "socket closed", root)
}

func TestBuildErrorChain_MultipleWrapVerbs(t *testing.T) {
	a := stderrs.New("quota exceeded")
	b := stderrs.New("retry budget spent")

	chain, root := buildErrorChain(fmt.Errorf("upload: %w; %w", a, b))
	assert.Equal(t, []string{"upload: quota exceeded; retry budget spent", "quota exceeded", "retry budget spent"}, chain)
	assert.Equal(t, "retry budget spent", root)
}

func TestBuildErrorChain_Nil(t *testing.T) {
	chain, root := buildErrorChain(nil)
	assert.Empty(t, chain)
	assert.Empty(t, root)
	assert.Nil(t, marshalError(nil))
}

// loopErr unwraps to itself with a fresh message each time.
type loopErr struct{ n int }

func (e loopErr) Error() string { return fmt.Sprintf("loop %d", e.n) }
func (e loopErr) Unwrap() error { return loopErr{n: e.n + 1} }

func TestBuildErrorChain_DepthIsBounded(t *testing.T) {
	chain, root := buildErrorChain(loopErr{})
	assert.Len(t, chain, 50)
	assert.Equal(t, "loop 49", root)
}

func TestJoinChain(t *testing.T) {
	assert.Equal(t, "", joinChain(nil))
	assert.Equal(t, "a", joinChain([]string{"a"}))
	assert.Equal(t, "a -> b -> c", joinChain([]string{"a", "b", "c"}))
}

func TestMarshalError(t *testing.T) {
	plain := stderrs.New("plain")
	assert.Equal(t, "plain", marshalError(plain))

	wrapped := fmt.Errorf("outer: %w", plain)
	got, ok := marshalError(wrapped).(errorChain)
	require.True(t, ok)
	assert.Equal(t, "outer: plain", got.msg)
	assert.Equal(t, []string{"outer: plain", "plain"}, got.chain)
	assert.Equal(t, "plain", got.root)
}

func TestErrorContextLayer_EmitsChainAndStack(t *testing.T) {
	t.Cleanup(resetForTest)

	var buf bytes.Buffer
	l := errorContextLayer()
	l.install()
	logger := l.decorate(zerolog.New(&buf).With()).Logger()

	root := errors.New("connection refused")
	err := errors.Wrap(root, "open database")
	logger.Error().Err(err).Msg("boom")

	var entry logEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	field, ok := entry[zerolog.ErrorFieldName].(map[string]any)
	require.True(t, ok, "wrapped errors render as an object: %s", buf.String())
	assert.Equal(t, "open database: connection refused", field["message"])
	assert.Equal(t, "connection refused", field["root"])
	assert.Equal(t, []any{"open database: connection refused", "connection refused"}, field["chain"])

	frames, ok := entry[zerolog.ErrorStackFieldName].([]any)
	require.True(t, ok, "stack is attached for pkg/errors values")
	assert.NotEmpty(t, frames)
}

func TestErrorContextLayer_PlainErrorStaysString(t *testing.T) {
	t.Cleanup(resetForTest)

	var buf bytes.Buffer
	l := errorContextLayer()
	l.install()
	logger := l.decorate(zerolog.New(&buf).With()).Logger()

	logger.Error().Err(stderrs.New("flat")).Msg("boom")

	var entry logEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "flat", entry[zerolog.ErrorFieldName])
	assert.NotContains(t, entry, zerolog.ErrorStackFieldName)
}
