// Package media talks to the hosted image service
package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/Aidin1998/visitante_sonoro/internal/config"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// ResourceImage is the resource type used for musician pictures
const ResourceImage = "image"

// Options controls where an upload lands on the media host
type Options struct {
	Folder       string
	ResourceType string
}

// Result describes a stored asset
type Result struct {
	PublicID  string
	SecureURL string
}

// Uploader sends a local file to the media host
type Uploader interface {
	Upload(ctx context.Context, path string, opts Options) (*Result, error)
}

type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

// CloudinaryUploader uploads through the Cloudinary upload API
type CloudinaryUploader struct {
	api uploadAPI
}

// NewCloudinaryUploader builds an uploader from either the URL or the
// separate credentials in cfg
func NewCloudinaryUploader(cfg config.CloudinaryConfig) (*CloudinaryUploader, error) {
	var (
		cld *cloudinary.Cloudinary
		err error
	)
	if cfg.URL != "" {
		cld, err = cloudinary.NewFromURL(cfg.URL)
	} else {
		cld, err = cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to configure cloudinary: %w", err)
	}

	return &CloudinaryUploader{api: &cld.Upload}, nil
}

func (u *CloudinaryUploader) Upload(ctx context.Context, path string, opts Options) (*Result, error) {
	resp, err := u.api.Upload(ctx, path, uploader.UploadParams{
		Folder:       opts.Folder,
		ResourceType: opts.ResourceType,
	})
	if err != nil {
		return nil, err
	}
	// API failures come back in the body with a nil error
	if resp.Error.Message != "" {
		return nil, errors.New(resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return nil, errors.New("media host returned no secure url")
	}

	return &Result{PublicID: resp.PublicID, SecureURL: resp.SecureURL}, nil
}
