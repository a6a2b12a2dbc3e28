package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	chatapp "recyclemart/internal/app/chat"
	domainauth "recyclemart/internal/domain/auth"
)

const keyPrefix = "chat"

// objectAPI is the part of the MinIO client the store uses.
type objectAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	SetBucketPolicy(ctx context.Context, bucket, policy string) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type Config struct {
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
}

// ImageStore uploads chat images straight to an S3-compatible bucket and
// returns their public URL. It stands in for the API upload endpoint in
// self-hosted setups.
type ImageStore struct {
	bucket         string
	publicBaseURL  string
	client         objectAPI
	logger         *slog.Logger
	bucketInitOnce sync.Once
	bucketInitErr  error
}

func NewImageStore(cfg Config, logger *slog.Logger) (*ImageStore, error) {
	cleanEndpoint := strings.TrimSpace(cfg.Endpoint)
	if cleanEndpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	minioClient, err := minio.New(parseEndpoint(cleanEndpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(cfg.AccessKey), strings.TrimSpace(cfg.SecretKey), ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	base := strings.TrimSpace(cfg.PublicEndpoint)
	if base == "" {
		base = cleanEndpoint
	}
	return newImageStore(minioClient, bucket, base, logger), nil
}

func newImageStore(client objectAPI, bucket, publicBaseURL string, logger *slog.Logger) *ImageStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageStore{
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		client:        client,
		logger:        logger,
	}
}

// UploadImage stores the file under chat/<user id>/<random><ext>.
func (s *ImageStore) UploadImage(ctx context.Context, token string, file chatapp.LocalFile) (string, error) {
	hint, err := domainauth.DecodeIdentityHint(token)
	if err != nil {
		return "", fmt.Errorf("s3: %w", err)
	}
	f, err := os.Open(file.Path)
	if err != nil {
		return "", fmt.Errorf("s3: open %s: %w", file.Name, err)
	}
	defer f.Close()

	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}
	contentType := file.MIME
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	size := file.Size
	if size <= 0 {
		size = -1
	}
	key := objectKey(hint.UserID, file.Name)
	if _, err := s.client.PutObject(ctx, s.bucket, key, f, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("s3: put object: %w", err)
	}
	publicURL := s.objectURL(key)
	s.logger.Info("chat image uploaded", "bucket", s.bucket, "key", key, "url", publicURL)
	return publicURL, nil
}

func (s *ImageStore) ensureBucket(ctx context.Context) error {
	s.bucketInitOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.bucketInitErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			s.bucketInitErr = fmt.Errorf("s3: create bucket: %w", err)
			return
		}
		if err := s.allowPublicRead(ctx); err != nil {
			s.bucketInitErr = err
		}
	})
	return s.bucketInitErr
}

func (s *ImageStore) allowPublicRead(ctx context.Context) error {
	policy := fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/%s/*"]}]}`, s.bucket, keyPrefix)
	if err := s.client.SetBucketPolicy(ctx, s.bucket, policy); err != nil {
		return fmt.Errorf("s3: set bucket policy: %w", err)
	}
	return nil
}

func (s *ImageStore) objectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, key)
}

func objectKey(userID, name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	return path.Join(keyPrefix, url.PathEscape(userID), uuid.NewString()+ext)
}

func parseEndpoint(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

var _ chatapp.ImageStore = (*ImageStore)(nil)
