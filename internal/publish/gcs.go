package publish

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"cloud.google.com/go/storage"

	"github.com/jonathan/mathmotion/internal/render"
)

type objectWriterFunc func(ctx context.Context, object, contentType string) io.WriteCloser

// GCSPublisher uploads videos to a Cloud Storage bucket.
type GCSPublisher struct {
	bucket    string
	folder    string
	timeout   time.Duration
	newWriter objectWriterFunc
	client    *storage.Client
}

// NewGCSPublisher creates a publisher using application default credentials.
// Each upload is cancelled after timeout.
func NewGCSPublisher(ctx context.Context, bucket, folder string, timeout time.Duration) (*GCSPublisher, error) {
	if bucket == "" {
		return nil, fmt.Errorf("GCS bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	handle := client.Bucket(bucket)
	return &GCSPublisher{
		bucket:  bucket,
		folder:  folder,
		timeout: timeout,
		client:  client,
		newWriter: func(ctx context.Context, object, contentType string) io.WriteCloser {
			w := handle.Object(object).NewWriter(ctx)
			w.ContentType = contentType
			return w
		},
	}, nil
}

// Name identifies the host in logs and errors.
func (p *GCSPublisher) Name() string {
	return HostGCS
}

// Close releases the storage client.
func (p *GCSPublisher) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// Publish copies the artifact to <folder>/<jobID>.<ext>.
func (p *GCSPublisher) Publish(ctx context.Context, jobID string, artifact *render.Artifact) (*Result, error) {
	ext := artifact.Extension
	if ext == "" {
		ext = "mp4"
	}
	key := ObjectKey(p.folder, jobID)
	object := key + "." + ext

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	f, err := os.Open(artifact.Path)
	if err != nil {
		return nil, &Error{Host: p.Name(), Key: key, Message: "failed to open artifact", Cause: err}
	}
	defer func() { _ = f.Close() }()

	contentType := artifact.ContentType
	if contentType == "" {
		contentType = "video/mp4"
	}
	w := p.newWriter(ctx, object, contentType)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return nil, &Error{Host: p.Name(), Key: key, Message: "failed to write object", Cause: err}
	}
	if err := w.Close(); err != nil {
		return nil, &Error{Host: p.Name(), Key: key, Message: "failed to finalize object", Cause: err}
	}

	publicURL := (&url.URL{Scheme: "https", Host: "storage.googleapis.com", Path: "/" + p.bucket + "/" + object}).String()
	return withLocalDuration(&Result{
		Key: key,
		URL: publicURL,
		// Follows the video naming; nothing uploads a frame to it yet.
		ThumbnailURL: ThumbnailURL(publicURL),
	}, artifact), nil
}
