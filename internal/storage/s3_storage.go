// Package storage holds product images in S3. Clients upload directly with a
// presigned PUT; the image worker reads, normalizes and rewrites the object.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/DFBlok/market-link-app/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

var (
	// ErrObjectNotFound is returned when the key does not exist in the bucket.
	ErrObjectNotFound = errors.New("object not found")
	// ErrObjectTooLarge is returned by GetObject when the object exceeds the read limit.
	ErrObjectTooLarge = errors.New("object too large")
)

// AllowedImageTypes are the content types accepted for product image uploads.
var AllowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// IS3Storage defines the interface for S3 operations.
type IS3Storage interface {
	// GeneratePresignedPutURL returns the upload URL and the object key it writes.
	GeneratePresignedPutURL(ctx context.Context, supplierID, productID, filename, contentType string) (string, string, error)
	GetObject(ctx context.Context, key string, maxBytes int64) ([]byte, string, error)
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
}

// s3Storage implements IS3Storage.
type s3Storage struct {
	bucket        string
	urlTTL        time.Duration
	s3Client      *s3.Client
	presignClient *s3.PresignClient
}

// NewS3Storage creates a new S3 storage service.
func NewS3Storage(ctx context.Context, cfg *config.Config) (IS3Storage, error) {
	if cfg.AwsS3Bucket == "" {
		return nil, errors.New("AWS_S3_BUCKET is not configured")
	}
	opts := []func(*aws_config.LoadOptions) error{aws_config.WithRegion(cfg.AwsRegion)}
	if cfg.AwsAccessKeyID != "" {
		// Static keys when given, the default chain (IAM role, profile) otherwise.
		opts = append(opts, aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"",
		)))
	}
	awsCfg, err := aws_config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg)
	ttl := cfg.ImageUploadURLTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &s3Storage{
		bucket:        cfg.AwsS3Bucket,
		urlTTL:        ttl,
		s3Client:      s3Client,
		presignClient: s3.NewPresignClient(s3Client),
	}, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename keeps the base name and replaces anything outside [A-Za-z0-9._-].
func SanitizeFilename(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = unsafeFilenameChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		return "image"
	}
	if len(base) > 100 {
		base = base[len(base)-100:]
	}
	return base
}

// ProductImagePrefix is the key prefix under which a product's uploads live.
func ProductImagePrefix(supplierID, productID string) string {
	return fmt.Sprintf("products/%s/%s/", supplierID, productID)
}

// GeneratePresignedPutURL creates a pre-signed URL for uploading an object.
func (s *s3Storage) GeneratePresignedPutURL(ctx context.Context, supplierID, productID, filename, contentType string) (string, string, error) {
	objectKey := ProductImagePrefix(supplierID, productID) + uuid.NewString() + "_" + SanitizeFilename(filename)

	presignedReq, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.urlTTL))
	if err != nil {
		return "", "", fmt.Errorf("failed to generate presigned PUT URL for key %s: %w", objectKey, err)
	}
	return presignedReq.URL, objectKey, nil
}

// GetObject downloads an object. Objects larger than maxBytes fail without being fully read.
func (s *s3Storage) GetObject(ctx context.Context, key string, maxBytes int64) ([]byte, string, error) {
	out, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, "", fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, "", fmt.Errorf("failed to download %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, "", fmt.Errorf("%w: %s exceeds %d bytes", ErrObjectTooLarge, key, maxBytes)
	}
	return data, aws.ToString(out.ContentType), nil
}

// PutObject uploads data, replacing any existing object.
func (s *s3Storage) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}
