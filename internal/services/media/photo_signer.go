package media

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

const defaultPhotoURLTTL = 15 * time.Minute

var ErrValidation = errors.New("validation error")

// PhotoSigner turns stored photo keys into URLs clients can fetch. It
// presigns against the bucket when a client is configured and falls back to
// PublicBaseURL otherwise.
type PhotoSigner struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
	ttl           time.Duration
}

type Config struct {
	Bucket        string
	PublicBaseURL string
	URLTTL        time.Duration
}

func NewPhotoSigner(client *minio.Client, cfg Config) *PhotoSigner {
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = defaultPhotoURLTTL
	}

	return &PhotoSigner{
		client:        client,
		bucket:        strings.TrimSpace(cfg.Bucket),
		publicBaseURL: strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
		ttl:           cfg.URLTTL,
	}
}

func (s *PhotoSigner) PhotoURL(ctx context.Context, key string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", ErrValidation
	}

	if s.client == nil || s.bucket == "" {
		if s.publicBaseURL == "" {
			return "", fmt.Errorf("photo storage is not configured")
		}
		return s.publicBaseURL + "/" + key, nil
	}

	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign get object: %w", err)
	}

	return presigned.String(), nil
}
