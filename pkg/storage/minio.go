package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"card-template-pipeline/pkg/config"
)

// ErrObjectNotFound is returned when a requested key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// MinIOClient wraps the MinIO client with the bucket holding raw uploads
// and rendered templates.
type MinIOClient struct {
	Client     *minio.Client
	BucketName string
	Endpoint   string
	log        zerolog.Logger
}

// NewMinIOClient creates a new MinIO client and makes sure the bucket exists.
func NewMinIOClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*MinIOClient, error) {
	minioClient, err := minio.New(cfg.MinIOEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
		Secure: cfg.MinIOUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	client := &MinIOClient{
		Client:     minioClient,
		BucketName: cfg.MinIOBucket,
		Endpoint:   cfg.MinIOEndpoint,
		log:        log,
	}

	if err := client.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket: %w", err)
	}

	return client, nil
}

// ensureBucket creates the bucket if it doesn't exist
func (c *MinIOClient) ensureBucket(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	exists, err := c.Client.BucketExists(ctx, c.BucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if exists {
		c.log.Debug().Str("bucket", c.BucketName).Msg("bucket already exists")
		return nil
	}

	if err := c.Client.MakeBucket(ctx, c.BucketName, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	c.log.Info().Str("bucket", c.BucketName).Msg("bucket created")
	return nil
}

// PutObject uploads size bytes from r under key.
func (c *MinIOClient) PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := c.Client.PutObject(ctx, c.BucketName, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// GetObject opens the object stored under key. The caller closes it.
// It returns ErrObjectNotFound when the key does not exist.
func (c *MinIOClient) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := c.Client.GetObject(ctx, c.BucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	// GetObject is lazy; Stat surfaces a missing key before decoding starts.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, classifyError(key, err)
	}
	return obj, nil
}

func classifyError(key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return fmt.Errorf("failed to get object %s: %w", key, err)
}

// RemoveObject deletes the object stored under key.
func (c *MinIOClient) RemoveObject(ctx context.Context, key string) error {
	if err := c.Client.RemoveObject(ctx, c.BucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s: %w", key, err)
	}
	return nil
}

// WaitForMinIO waits for MinIO to be ready with retries and returns the client.
func WaitForMinIO(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*MinIOClient, error) {
	maxRetries := 30
	retryDelay := time.Second

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		client, err := NewMinIOClient(ctx, cfg, log)
		if err == nil {
			return client, nil
		}
		lastErr = err
		log.Warn().Err(err).Msgf("waiting for MinIO... (attempt %d/%d)", i+1, maxRetries)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return nil, fmt.Errorf("MinIO not ready after %d attempts: %w", maxRetries, lastErr)
}

// RawKey is the object key a raw upload is stored under.
func RawKey(jobID, filename string) string {
	return fmt.Sprintf("raw/%s/%s", jobID, filename)
}

// TemplateKey is the object key a rendered template is stored under.
func TemplateKey(templateType, jobID, format string) string {
	ext := format
	if ext == "jpeg" {
		ext = "jpg"
	}
	return fmt.Sprintf("templates/%s/%s.%s", templateType, jobID, ext)
}
