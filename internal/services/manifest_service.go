package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lotwise/internal/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ManifestArchive stores the raw payload of every bulk intake as a JSON
// object, keyed by group ID, so a disputed delivery can be traced back to
// exactly what the supplier submitted.
type ManifestArchive interface {
	ArchiveBulkReceipt(ctx context.Context, groupID string, receipt *models.BulkReceipt) error
	PresignedManifestURL(groupID string, expiry time.Duration) (string, error)
	EnsureBucketExists(ctx context.Context) error
}

type minioManifestArchive struct {
	client *minio.Client
	bucket string
}

func NewManifestArchive(endpoint, accessKey, secretKey, bucket string, useSSL bool) (ManifestArchive, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &minioManifestArchive{client: client, bucket: bucket}, nil
}

func manifestObjectName(groupID string) string {
	return fmt.Sprintf("manifests/%s.json", groupID)
}

func (m *minioManifestArchive) ArchiveBulkReceipt(ctx context.Context, groupID string, receipt *models.BulkReceipt) error {
	payload, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest %s: %w", groupID, err)
	}
	_, err = m.client.PutObject(ctx, m.bucket, manifestObjectName(groupID),
		bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
			ContentType: "application/json",
		})
	return err
}

func (m *minioManifestArchive) PresignedManifestURL(groupID string, expiry time.Duration) (string, error) {
	url, err := m.client.PresignedGetObject(context.Background(), m.bucket, manifestObjectName(groupID), expiry, nil)
	if err != nil {
		return "", err
	}
	return url.String(), nil
}

func (m *minioManifestArchive) EnsureBucketExists(ctx context.Context) error {
	found, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !found {
		return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
	}
	return nil
}
