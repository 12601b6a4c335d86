package render

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mp4Header = []byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom")

func writeVideo(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, mp4Header, 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestFindArtifact_PicksMostRecent(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeVideo(t, filepath.Join(dir, "a", "job9.mp4"), now.Add(-time.Hour))
	writeVideo(t, filepath.Join(dir, "b", "job9_final.mp4"), now)
	writeVideo(t, filepath.Join(dir, "c", "other.mp4"), now.Add(time.Hour))

	art, err := FindArtifact(dir, "job9")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "b", "job9_final.mp4"), art.Path)
}

func TestFindArtifact_IgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "job9.png"), mp4Header, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "job9.MP4.txt"), mp4Header, 0o644))

	_, err := FindArtifact(dir, "job9")
	var nf *ArtifactNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Empty(t, nf.Rejected)
}

func TestFindArtifact_FallsBackWhenNewestIsNotVideo(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeVideo(t, filepath.Join(dir, "job9.mp4"), now.Add(-time.Minute))
	bogus := filepath.Join(dir, "job9_partial.mov")
	require.NoError(t, os.WriteFile(bogus, []byte("partial"), 0o644))
	require.NoError(t, os.Chtimes(bogus, now, now))

	art, err := FindArtifact(dir, "job9")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "job9.mp4"), art.Path)
}

func TestFindArtifact_MissingDir(t *testing.T) {
	_, err := FindArtifact(filepath.Join(t.TempDir(), "nope"), "job9")
	var nf *ArtifactNotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestValidateJobID(t *testing.T) {
	assert.NoError(t, ValidateJobID("3f0e2c1a-aaaa-bbbb-cccc-000000000000"))
	assert.NoError(t, ValidateJobID("job_1"))
	assert.Error(t, ValidateJobID(""))
	assert.Error(t, ValidateJobID("a/b"))
	assert.Error(t, ValidateJobID("a.b"))
}
