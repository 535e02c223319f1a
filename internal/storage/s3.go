// Package storage holds image blobs in an S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"beam/internal/config"
)

const uploadTimeout = 30 * time.Second

type S3Store struct {
	client   *s3.Client
	endpoint string
	bucket   string
}

func NewS3Store(cfg *config.Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKey,
			cfg.S3SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("loading s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		o.UsePathStyle = true // MinIO and friends
	})

	return &S3Store{
		client:   client,
		endpoint: strings.TrimRight(cfg.S3Endpoint, "/"),
		bucket:   cfg.S3Bucket,
	}, nil
}

// Upload writes the blob under a date-partitioned random key and returns
// its public URL.
func (s *S3Store) Upload(ctx context.Context, data []byte, contentType, folder string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	key := randomKey(folder)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("putting object %s: %w", key, err)
	}

	return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key), nil
}

func randomKey(folder string) string {
	d := time.Now()
	return fmt.Sprintf("%s/%d/%02d/%02d/%v", folder, d.Year(), d.Month(), d.Day(), uuid.New())
}
