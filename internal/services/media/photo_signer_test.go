package media

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	s3infra "github.com/ivankudzin/datingapp/internal/infra/s3"
)

func TestPhotoURLPresignsWithoutNetwork(t *testing.T) {
	client, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  "localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio-secret",
		Region:    "us-east-1",
	})
	if err != nil {
		t.Fatalf("create s3 client: %v", err)
	}

	signer := NewPhotoSigner(client, Config{Bucket: "photos", URLTTL: 5 * time.Minute})
	got, err := signer.PhotoURL(context.Background(), "users/7/main.jpg")
	if err != nil {
		t.Fatalf("photo url: %v", err)
	}
	if !strings.Contains(got, "/photos/users/7/main.jpg") || !strings.Contains(got, "X-Amz-Signature=") {
		t.Fatalf("unexpected presigned url: %s", got)
	}
	if !strings.Contains(got, "X-Amz-Expires=300") {
		t.Fatalf("expected ttl in presigned url: %s", got)
	}
}

func TestPhotoURLFallsBackToPublicBase(t *testing.T) {
	signer := NewPhotoSigner(nil, Config{PublicBaseURL: "https://cdn.example.com/"})

	got, err := signer.PhotoURL(context.Background(), "/users/7/main.jpg")
	if err != nil {
		t.Fatalf("photo url: %v", err)
	}
	if got != "https://cdn.example.com/users/7/main.jpg" {
		t.Fatalf("unexpected url: %s", got)
	}

	if _, err := signer.PhotoURL(context.Background(), " "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty key, got %v", err)
	}
}
