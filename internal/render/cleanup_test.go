package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleaner_RemoveIsIdempotent(t *testing.T) {
	root := t.TempDir()
	ws, err := NewWorkspace(root, "job1")
	require.NoError(t, err)
	require.NoError(t, ws.prepare("code"))
	require.NoError(t, os.WriteFile(filepath.Join(ws.MediaDir, "job1.mp4"), []byte("x"), 0o644))

	c := NewCleaner(nil)
	first := c.Remove(ws.Paths()...)
	assert.True(t, first.OK())
	assert.ElementsMatch(t, ws.Paths(), first.Removed)
	assert.NoFileExists(t, ws.ScriptPath)
	assert.NoDirExists(t, ws.MediaDir)

	second := c.Remove(ws.Paths()...)
	assert.True(t, second.OK())
	assert.Empty(t, second.Removed)
	assert.ElementsMatch(t, ws.Paths(), second.Missing)
}

func TestCleaner_SkipsEmptyPaths(t *testing.T) {
	report := NewCleaner(nil).Remove("", "")
	assert.True(t, report.OK())
	assert.Empty(t, report.Removed)
	assert.Empty(t, report.Missing)
}
