// Package storage keeps uploaded CV files in S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	MaxUploadBytes = 10 << 20
	presignTTL     = 15 * time.Minute
)

var (
	ErrEmptyUpload      = errors.New("upload is empty")
	ErrUploadTooLarge   = errors.New("upload exceeds size limit")
	ErrUnsupportedMedia = errors.New("unsupported content type")
)

// allowedTypes are the CV formats we accept.
var allowedTypes = map[string]string{
	"application/pdf": ".pdf",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"application/msword": ".doc",
	"text/plain":         ".txt",
	"text/markdown":      ".md",
}

// objectClient is the subset of *minio.Client used here.
type objectClient interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucket, object string, expires time.Duration, params url.Values) (*url.URL, error)
	RemoveObject(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error
}

// Storage writes CV uploads to a single bucket.
type Storage struct {
	client objectClient
	bucket string
	now    func() time.Time
}

// Object describes a stored upload.
type Object struct {
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// NewMinio connects to a MinIO or S3 endpoint.
func NewMinio(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Storage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return newWithClient(client, bucket), nil
}

func newWithClient(client objectClient, bucket string) *Storage {
	return &Storage{client: client, bucket: bucket, now: time.Now}
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// PutCV stores a CV file for the owner and returns its object key.
func (s *Storage) PutCV(ctx context.Context, ownerID, filename string, body io.Reader, size int64, contentType string) (Object, error) {
	if size <= 0 {
		return Object{}, ErrEmptyUpload
	}
	if size > MaxUploadBytes {
		return Object{}, ErrUploadTooLarge
	}
	contentType = normalizeContentType(contentType)
	if _, ok := allowedTypes[contentType]; !ok {
		return Object{}, ErrUnsupportedMedia
	}

	key := CVKey(ownerID, filename, contentType, s.now())
	info, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return Object{}, fmt.Errorf("put object %s: %w", key, err)
	}
	return Object{Key: key, Size: info.Size, ContentType: contentType}, nil
}

// DownloadURL returns a short-lived presigned GET url.
func (s *Storage) DownloadURL(ctx context.Context, key string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, presignTTL, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

// CVKey builds cvs/<owner>/<yyyymmddThhmmss>-<slug><ext>.
func CVKey(ownerID, filename, contentType string, at time.Time) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	ext := strings.ToLower(path.Ext(base))
	stem := slug(strings.TrimSuffix(base, path.Ext(base)))
	if stem == "" {
		stem = "cv"
	}
	if want, ok := allowedTypes[normalizeContentType(contentType)]; ok && ext != want {
		ext = want
	}
	return fmt.Sprintf("cvs/%s/%s-%s%s", slug(ownerID), at.UTC().Format("20060102T150405"), stem, ext)
}

func normalizeContentType(contentType string) string {
	contentType, _, _ = strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(contentType))
}

func slug(value string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(value) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
