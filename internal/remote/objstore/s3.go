package objstore

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/modicscan/syncengine/internal/common"
)

// Seams for testing the client without a live endpoint.
var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in)
	}
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error) {
		return c.DeleteObject(ctx, in)
	}
)

// S3Config carries the connection settings for an S3-compatible endpoint
// (AWS or MinIO).
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// S3Storage implements Storage over an S3-compatible object store.
type S3Storage struct {
	cfg    S3Config
	client *s3.Client
}

func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{cfg: cfg, client: client}, nil
}

// storageKey builds a date-partitioned key unique per asset.
func storageKey(ownerID, name string) string {
	d := time.Now()
	return fmt.Sprintf("owners/%s/%d/%d/%d/%s-%s", ownerID, d.Year(), d.Month(), d.Day(), uuid.NewString(), path.Base(name))
}

func (s *S3Storage) Upload(ctx context.Context, ownerID, name string, body []byte) (string, error) {
	key := storageKey(ownerID, name)

	_, err := putObject(s.client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return "", fmt.Errorf("%w: upload failed: %v", common.ErrNetwork, err)
	}

	return s.urlFor(key), nil
}

func (s *S3Storage) Delete(ctx context.Context, url string) error {
	key, err := s.keyFor(url)
	if err != nil {
		return err
	}

	_, err = deleteObject(s.client, ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("%w: delete failed: %v", common.ErrNetwork, err)
	}
	return nil
}

func (s *S3Storage) urlFor(key string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(s.cfg.Endpoint, "/"), s.cfg.Bucket, key)
}

func (s *S3Storage) keyFor(url string) (string, error) {
	prefix := fmt.Sprintf("%s/%s/", strings.TrimSuffix(s.cfg.Endpoint, "/"), s.cfg.Bucket)
	if !strings.HasPrefix(url, prefix) {
		return "", fmt.Errorf("url %q does not belong to bucket %q", url, s.cfg.Bucket)
	}
	return strings.TrimPrefix(url, prefix), nil
}
