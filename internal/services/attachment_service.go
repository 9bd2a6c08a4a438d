package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"rideshare-service/internal/models"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

const MaxAttachmentSize = 10 << 20

// ObjectStore is the subset of *minio.Client used for attachments.
type ObjectStore interface {
	PutObject(ctx context.Context, bucket, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	EndpointURL() *url.URL
}

type AttachmentService struct {
	store  ObjectStore
	bucket string
}

// NewAttachmentService accepts a nil store, in which case uploads report ErrAttachmentsDisabled.
func NewAttachmentService(store ObjectStore, bucket string) *AttachmentService {
	return &AttachmentService{store: store, bucket: bucket}
}

// Upload stores a message attachment under a fresh object name and returns its URL.
func (s *AttachmentService) Upload(ctx context.Context, userID uint, fileName, contentType string, size int64, r io.Reader) (*models.AttachmentResponse, error) {
	if s.store == nil {
		return nil, ErrAttachmentsDisabled
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidRequest)
	}
	if size > MaxAttachmentSize {
		return nil, ErrAttachmentTooLarge
	}

	base := filepath.Base(fileName)
	objectName := path.Join("attachments", fmt.Sprint(userID), uuid.NewString()+strings.ToLower(filepath.Ext(base)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.store.PutObject(ctx, s.bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"original-name": base,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	endpoint := s.store.EndpointURL()
	u := url.URL{Scheme: endpoint.Scheme, Host: endpoint.Host, Path: path.Join("/", s.bucket, objectName)}
	slog.Info("Attachment uploaded", "userID", userID, "object", objectName, "size", size)

	return &models.AttachmentResponse{URL: u.String(), FileName: base, Size: size}, nil
}
