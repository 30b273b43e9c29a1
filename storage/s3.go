package storage

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3 publishes artifacts to an S3 bucket through the upload manager
// and mints presigned GET URLs.
type S3 struct {
	uploader *manager.Uploader
	presign  *s3.PresignClient
	bucket   string
}

// NewS3 builds an S3 backend. accessInfo keys: bucket and region
// (required), accessKey/secretKey (static credentials; falls back to
// the default credential chain when absent).
func NewS3(accessInfo map[string]string) (*S3, error) {
	bucket := accessInfo["bucket"]
	region := accessInfo["region"]
	if bucket == "" || region == "" {
		return nil, fmt.Errorf("missing required accessInfo keys: bucket, region")
	}

	opts := s3.Options{Region: region}
	if accessInfo["accessKey"] != "" {
		opts.Credentials = credentials.NewStaticCredentialsProvider(
			accessInfo["accessKey"], accessInfo["secretKey"], "")
	}
	client := s3.New(opts)

	return &S3{
		uploader: manager.NewUploader(client),
		presign:  s3.NewPresignClient(client),
		bucket:   bucket,
	}, nil
}

// Put uploads the local file under key via the upload manager, which
// handles multipart for large artifacts.
func (s *S3) Put(ctx context.Context, localPath, key string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer src.Close()

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        src,
		ContentType: aws.String(contentTypeForFormat(formatFromKey(key))),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s to bucket %s: %w", key, s.bucket, err)
	}
	return nil
}

// SignedURL mints a presigned GET URL valid for ttl.
func (s *S3) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, time.Time, error) {
	expiresAt := time.Now().Add(ttl)
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, expiresAt, nil
}
