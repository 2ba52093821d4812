package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Store keeps objects in a private bucket and hands out presigned URLs.
type S3Store struct {
	client *s3.S3
	bucket string
	expiry time.Duration
}

func NewS3Store(bucket, region string, expiry time.Duration) (*S3Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &S3Store{client: s3.New(sess), bucket: bucket, expiry: expiry}, nil
}

func (s *S3Store) Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectPath),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return s.DownloadURL(ctx, objectPath)
}

func (s *S3Store) DownloadURL(ctx context.Context, objectPath string) (string, error) {
	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectPath),
	})
	req.SetContext(ctx)
	url, err := req.Presign(s.expiry)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", objectPath, err)
	}
	return url, nil
}
