package remover

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRembg copies its input to its output and records the arguments it was called with.
const fakeRembg = `#!/bin/sh
if [ "$1" = "--help" ]; then
  exit 0
fi
echo "$@" > "$(dirname "$0")/args"
eval "in=\${$(($# - 1))}"
eval "out=\${$#}"
cp "$in" "$out"
`

const failingRembg = `#!/bin/sh
if [ "$1" = "--help" ]; then
  exit 0
fi
echo "model not found" >&2
exit 3
`

const emptyRembg = `#!/bin/sh
exit 0
`

func writeScript(t *testing.T, content string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}

	path := filepath.Join(t.TempDir(), "rembg")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	return path
}

func TestNewRembgMissingBinary(t *testing.T) {
	_, err := NewRembg(testContext(t), filepath.Join(t.TempDir(), "does-not-exist"), "", false)
	assert.Error(t, err)
}

func TestNewRembgCancelled(t *testing.T) {
	script := writeScript(t, fakeRembg)

	ctx, cancel := context.WithCancel(testContext(t))
	cancel()

	_, err := NewRembg(ctx, script, "", false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRembgRemove(t *testing.T) {
	tests := []struct {
		name         string
		model        string
		alphaMatting bool
		wantArgs     string
	}{
		{name: "defaults", wantArgs: "i"},
		{name: "model", model: "u2netp", wantArgs: "i -m u2netp"},
		{name: "alpha matting", model: "isnet-general-use", alphaMatting: true, wantArgs: "i -m isnet-general-use -a"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			script := writeScript(t, fakeRembg)

			r, err := NewRembg(testContext(t), script, tc.model, tc.alphaMatting)
			require.NoError(t, err)

			img := image.NewNRGBA(image.Rect(0, 0, 6, 5))
			got, err := r.Remove(testContext(t), img)
			require.NoError(t, err)
			assert.Equal(t, img.Bounds(), got.Bounds())

			recorded, err := os.ReadFile(filepath.Join(filepath.Dir(script), "args"))
			require.NoError(t, err)

			fields := strings.Fields(string(recorded))
			require.Len(t, fields, len(strings.Fields(tc.wantArgs))+2)
			assert.Equal(t, tc.wantArgs, strings.Join(fields[:len(fields)-2], " "))

			in, out := fields[len(fields)-2], fields[len(fields)-1]
			assert.Equal(t, ".png", filepath.Ext(in))
			assert.Equal(t, ".png", filepath.Ext(out))

			_, err = os.Stat(in)
			assert.True(t, os.IsNotExist(err), "input temp file should be removed")
			_, err = os.Stat(out)
			assert.True(t, os.IsNotExist(err), "output temp file should be removed")
		})
	}
}

func TestRembgRemoveCommandFails(t *testing.T) {
	r, err := NewRembg(testContext(t), writeScript(t, failingRembg), "", false)
	require.NoError(t, err)

	_, err = r.Remove(testContext(t), image.NewNRGBA(image.Rect(0, 0, 2, 2)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rembg failed")
}

func TestRembgRemoveNoOutput(t *testing.T) {
	r, err := NewRembg(testContext(t), writeScript(t, emptyRembg), "", false)
	require.NoError(t, err)

	_, err = r.Remove(testContext(t), image.NewNRGBA(image.Rect(0, 0, 2, 2)))
	assert.Error(t, err)
}

func TestRembgRemoveCancelled(t *testing.T) {
	r, err := NewRembg(testContext(t), writeScript(t, fakeRembg), "", false)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(testContext(t))
	cancel()

	_, err = r.Remove(ctx, image.NewNRGBA(image.Rect(0, 0, 2, 2)))
	assert.ErrorIs(t, err, context.Canceled)
}
