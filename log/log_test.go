package log

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })
	return &buf
}

func TestKeyValuePairs(t *testing.T) {
	buf := captureOutput(t)
	ctx := context.Background()

	Info(ctx, "Searching collection", "collection", "general", "topK", 45)

	out := buf.String()
	assert.Contains(t, out, "Searching collection")
	assert.Contains(t, out, "collection=general")
	assert.Contains(t, out, "topK=45")
}

func TestBareErrorArgument(t *testing.T) {
	buf := captureOutput(t)
	ctx := context.Background()

	Error(ctx, "Could not rebuild", errors.New("boom"), "collection", "mood")

	out := buf.String()
	assert.Contains(t, out, "error=boom")
	assert.Contains(t, out, "collection=mood")
}

func TestTrailingOddArguments(t *testing.T) {
	buf := captureOutput(t)
	ctx := context.Background()

	Warn(ctx, "Odd args", "dangling")

	// A dangling non-error argument lands under "args" instead of being
	// dropped.
	assert.Contains(t, buf.String(), "args=")
}

func TestSetLevelFiltersDebug(t *testing.T) {
	buf := captureOutput(t)
	ctx := context.Background()

	SetLevel("info")
	Debug(ctx, "hidden")
	require.NotContains(t, buf.String(), "hidden")

	SetLevel("debug")
	Debug(ctx, "visible")
	assert.Contains(t, buf.String(), "visible")

	SetLevel("info")
}

func TestSetLevelUnknownKeepsInfo(t *testing.T) {
	buf := captureOutput(t)
	ctx := context.Background()

	SetLevel("verbose")
	Info(ctx, "still here")
	assert.Contains(t, buf.String(), "still here")

	SetLevel("info")
}
