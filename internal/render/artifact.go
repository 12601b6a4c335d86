package render

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

// VideoExtensions are the file extensions accepted as render output.
var VideoExtensions = []string{".mp4", ".mov", ".avi", ".mkv"}

// sniffLen covers the longest header filetype inspects.
const sniffLen = 261

// FindArtifact returns the most recently modified video under dir whose name contains jobID.
// Candidates whose content is not a recognizable video are skipped.
func FindArtifact(dir, jobID string) (*Artifact, error) {
	var candidates []candidate
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if d.IsDir() || !isVideoName(d.Name(), jobID) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		candidates = append(candidates, candidate{path: path, info: info})
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	notFound := &ArtifactNotFoundError{JobID: jobID, Dir: dir}
	for len(candidates) > 0 {
		best := newest(candidates)
		c := candidates[best]
		candidates = append(candidates[:best], candidates[best+1:]...)

		mime, ext, ok := sniffVideo(c.path)
		if !ok {
			notFound.Rejected = append(notFound.Rejected, c.path)
			continue
		}
		return &Artifact{
			JobID:       jobID,
			Path:        c.path,
			Size:        c.info.Size(),
			ContentType: mime,
			Extension:   ext,
			ModTime:     c.info.ModTime(),
		}, nil
	}
	return nil, notFound
}

type candidate struct {
	path string
	info fs.FileInfo
}

// newest returns the index of the latest candidate; ties go to the lexically greater path.
func newest(cs []candidate) int {
	best := 0
	for i := 1; i < len(cs); i++ {
		bi, ci := cs[best].info.ModTime(), cs[i].info.ModTime()
		if ci.After(bi) || (ci.Equal(bi) && cs[i].path > cs[best].path) {
			best = i
		}
	}
	return best
}

func isVideoName(name, jobID string) bool {
	if !strings.Contains(name, jobID) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range VideoExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func sniffVideo(path string) (mime, ext string, ok bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", false
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", "", false
	}
	head = head[:n]

	if !filetype.IsVideo(head) {
		return "", "", false
	}
	kind, err := filetype.Match(head)
	if err != nil {
		return "", "", false
	}
	return kind.MIME.Value, kind.Extension, true
}
