// Package publish uploads rendered videos to a media host and returns their public URLs.
package publish

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/jonathan/mathmotion/internal/render"
)

// Hosts supported by New.
const (
	HostCloudinary = "cloudinary"
	HostGCS        = "gcs"
)

// DefaultFolder prefixes every object key.
const DefaultFolder = "mathmotion/videos"

// DefaultTimeout bounds one upload when Config.Timeout is unset.
const DefaultTimeout = 2 * time.Minute

// Result describes a published video.
type Result struct {
	Key          string
	URL          string
	ThumbnailURL string
	// Duration is the length measured locally after rendering, in seconds. Nil when it could not be measured.
	Duration *float64
}

// Publisher uploads one artifact. Implementations must not retry on their own.
type Publisher interface {
	Publish(ctx context.Context, jobID string, artifact *render.Artifact) (*Result, error)
	Name() string
}

// Config selects and configures the media host.
type Config struct {
	Host    string
	Folder  string
	Timeout time.Duration

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	GCSBucket string
}

// New builds the publisher named by cfg.Host.
func New(ctx context.Context, cfg Config) (Publisher, error) {
	if cfg.Folder == "" {
		cfg.Folder = DefaultFolder
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	switch strings.ToLower(cfg.Host) {
	case "", HostCloudinary:
		return NewCloudinaryPublisher(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.Folder, cfg.Timeout)
	case HostGCS:
		return NewGCSPublisher(ctx, cfg.GCSBucket, cfg.Folder, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown media host %q", cfg.Host)
	}
}

// ObjectKey is the deterministic storage key for a job. Re-publishing a job overwrites the same key.
func ObjectKey(folder, jobID string) string {
	return path.Join(strings.Trim(folder, "/"), jobID)
}

var trailingExt = regexp.MustCompile(`\.[^/.]+$`)

// ThumbnailURL replaces the video URL's extension with .jpg.
// Hosts that derive a frame thumbnail from the same path serve it there.
func ThumbnailURL(videoURL string) string {
	if videoURL == "" {
		return ""
	}
	if trailingExt.MatchString(videoURL) {
		return trailingExt.ReplaceAllString(videoURL, ".jpg")
	}
	return videoURL + ".jpg"
}

func withLocalDuration(res *Result, artifact *render.Artifact) *Result {
	if artifact.Duration != nil {
		d := *artifact.Duration
		res.Duration = &d
	}
	return res
}
