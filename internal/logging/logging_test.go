package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelRouting(t *testing.T) {
	var out, errOut bytes.Buffer
	file := filepath.Join(t.TempDir(), "inventar.log")

	log, cleanup, err := New(Options{Level: "debug", File: file, Stdout: &out, Stderr: &errOut})
	require.NoError(t, err)

	log.Debug().Msg("debug line")
	log.Info().Str("item", "drill").Msg("info line")
	log.Warn().Msg("warn line")
	log.Error().Msg("error line")
	cleanup()

	assert.Contains(t, out.String(), "info line")
	assert.Contains(t, out.String(), "warn line")
	assert.Contains(t, out.String(), `"item":"drill"`)
	assert.NotContains(t, out.String(), "error line")
	assert.Contains(t, errOut.String(), "error line")
	assert.NotContains(t, errOut.String(), "info line")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(data), "\n"))
}

func TestDefaultLevelIsInfo(t *testing.T) {
	var out bytes.Buffer
	log, cleanup, err := New(Options{Stdout: &out, Stderr: &out})
	require.NoError(t, err)
	defer cleanup()

	log.Debug().Msg("hidden")
	log.Info().Msg("shown")
	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "shown")
}

func TestBadLevel(t *testing.T) {
	_, _, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}
