package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesConsoleAndFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	logger, err := New(Options{Name: "sf-to-es", Dir: dir, Console: &console})
	require.NoError(t, err)

	logger.Info("processed opportunity")
	logger.Debug("hidden at info level")
	require.NoError(t, logger.Sync())

	assert.Contains(t, console.String(), "processed opportunity")
	assert.NotContains(t, console.String(), "hidden at info level")

	data, err := os.ReadFile(filepath.Join(dir, "sf-to-es.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"processed opportunity"`)
}

func TestNew_VerboseEnablesDebug(t *testing.T) {
	var console bytes.Buffer

	logger, err := New(Options{Verbose: true, Console: &console, DisableFile: true})
	require.NoError(t, err)

	logger.Debug("raw record")
	assert.Contains(t, console.String(), "raw record")
}

func TestNew_RequiresNameForFile(t *testing.T) {
	_, err := New(Options{Dir: t.TempDir()})
	assert.Error(t, err)
}
