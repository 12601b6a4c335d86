package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"

	"github.com/jonathan/mathmotion/internal/render"
)

type videoUploader interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

// CloudinaryPublisher uploads videos to Cloudinary.
type CloudinaryPublisher struct {
	uploader videoUploader
	folder   string
}

// NewCloudinaryPublisher creates a publisher for the given Cloudinary account.
// Each upload is cut off after timeout, rounded up to whole seconds.
func NewCloudinaryPublisher(cloudName, apiKey, apiSecret, folder string, timeout time.Duration) (*CloudinaryPublisher, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("cloudinary cloud name, API key and API secret are required")
	}
	conf, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	conf.API.UploadTimeout = uploadTimeoutSeconds(timeout)
	cld, err := cloudinary.NewFromConfiguration(*conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	return &CloudinaryPublisher{uploader: &cld.Upload, folder: folder}, nil
}

// Name identifies the host in logs and errors.
func (p *CloudinaryPublisher) Name() string {
	return HostCloudinary
}

// Publish uploads the artifact as a video resource under the job's key.
func (p *CloudinaryPublisher) Publish(ctx context.Context, jobID string, artifact *render.Artifact) (*Result, error) {
	key := ObjectKey(p.folder, jobID)
	resp, err := p.uploader.Upload(ctx, artifact.Path, uploader.UploadParams{
		PublicID:     key,
		ResourceType: "video",
		Overwrite:    api.Bool(true),
	})
	if err != nil {
		return nil, &Error{Host: p.Name(), Key: key, Message: "upload request failed", Cause: err}
	}
	if resp == nil {
		return nil, &Error{Host: p.Name(), Key: key, Message: "empty upload response"}
	}
	if resp.Error.Message != "" {
		return nil, &Error{Host: p.Name(), Key: key, Message: resp.Error.Message}
	}
	if resp.SecureURL == "" {
		return nil, &Error{Host: p.Name(), Key: key, Message: "upload response has no URL"}
	}

	return withLocalDuration(&Result{
		Key:          key,
		URL:          resp.SecureURL,
		ThumbnailURL: ThumbnailURL(resp.SecureURL),
	}, artifact), nil
}

func uploadTimeoutSeconds(d time.Duration) int64 {
	if d <= 0 {
		d = DefaultTimeout
	}
	return int64((d + time.Second - 1) / time.Second)
}
