package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"

	"github.com/barter-hub/barter-hub/internal/domain/image"
)

// CloudinaryConfig holds account credentials and the root folder for uploads.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// CloudinaryStore uploads images to Cloudinary and returns their secure URL.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

func NewCloudinaryStore(cfg CloudinaryConfig, logger zerolog.Logger) (*CloudinaryStore, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("cloudinary: cloud name, api key and secret are required")
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	return &CloudinaryStore{
		cld:    cld,
		folder: strings.Trim(cfg.Folder, "/"),
		logger: logger.With().Str("service", "cloudinary").Logger(),
	}, nil
}

func (s *CloudinaryStore) Upload(ctx context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	folder, publicID := splitKey(path.Join(s.folder, key))
	res, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID: publicID,
		Folder:   folder,
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary: upload: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary: upload: %s", res.Error.Message)
	}
	s.logger.Info().Str("publicId", res.PublicID).Msg("image uploaded")
	return res.SecureURL, nil
}

// splitKey turns "items/<id>/<file>.jpg" into folder "items/<id>" and public
// id "<file>"; Cloudinary adds the extension itself.
func splitKey(key string) (string, string) {
	dir, file := path.Split(strings.Trim(key, "/"))
	return strings.Trim(dir, "/"), strings.TrimSuffix(file, path.Ext(file))
}

var _ image.Store = (*CloudinaryStore)(nil)
