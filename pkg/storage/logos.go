package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

const (
	// LogoPrefix is the key prefix for service logo objects
	LogoPrefix = "service-logos"
	// logoCacheControl is the cache lifetime hint sent with every logo.
	logoCacheControl = "max-age=3600"
)

// ErrEmptyServiceID is returned when a logo is uploaded without an owner.
var ErrEmptyServiceID = errors.New("service id is required")

// objectPutter is the part of *minio.Client the logo store uses
type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Config holds the object storage connection settings
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// LogoStore uploads service logos and hands out their public URLs
type LogoStore struct {
	client    objectPutter
	bucket    string
	publicURL string
	logger    *zap.Logger
	now       func() time.Time
}

// NewLogoStore connects to the object store and makes sure the bucket exists.
func NewLogoStore(ctx context.Context, cfg Config, logger *zap.Logger) (*LogoStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	if err := ensureBucket(ctx, client, cfg.Bucket); err != nil {
		return nil, err
	}

	return newLogoStore(client, cfg.Bucket, cfg.PublicURL, logger), nil
}

func newLogoStore(client objectPutter, bucket, publicURL string, logger *zap.Logger) *LogoStore {
	return &LogoStore{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger.Named("logos"),
		now:       time.Now,
	}
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// LogoKey returns the object key for a logo uploaded at t.
func LogoKey(serviceID, fileName string, t time.Time) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(fileName)), ".")
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%s/%s-%d.%s", LogoPrefix, serviceID, t.UnixMilli(), ext)
}

// PublicURL returns the public link for an object key
func (s *LogoStore) PublicURL(key string) string {
	return s.publicURL + "/" + s.bucket + "/" + key
}

// UploadServiceLogo stores the file under a key derived from the service
// id and the upload time and returns its public URL. Uploading to an
// existing key replaces the object.
func (s *LogoStore) UploadServiceLogo(ctx context.Context, serviceID, fileName string, r io.Reader, size int64, contentType string) (string, error) {
	if serviceID == "" {
		return "", ErrEmptyServiceID
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := LogoKey(serviceID, fileName, s.now())

	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: logoCacheControl,
	})
	if err != nil {
		s.logger.Error("logo upload failed",
			zap.String("service_id", serviceID),
			zap.String("key", key),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to upload logo: %w", err)
	}

	s.logger.Debug("logo uploaded", zap.String("service_id", serviceID), zap.String("key", key))
	return s.PublicURL(key), nil
}
