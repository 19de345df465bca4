package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/diegohenriquecode/employees-service-sub002/internal/apperrors"
	"github.com/diegohenriquecode/employees-service-sub002/internal/config"
)

// S3Store implements ObjectStore on top of S3.
type S3Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
}

// NewS3Store creates an S3-backed object store.
func NewS3Store(ctx context.Context, cfg *config.AWSConfig) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO/LocalStack
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	return &S3Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
	}, nil
}

// Put uploads a binary object under the given key.
func (s *S3Store) Put(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// Get downloads an object's bytes. A missing key maps to NotFound so the
// replicator can skip absent table exports.
func (s *S3Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	res, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, apperrors.NewNotFound(fmt.Sprintf("object %s not found", key))
		}
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return body, nil
}

// PresignGet returns a short-lived signed download URL. Keys are stored raw
// and only ever signed lazily at read time.
func (s *S3Store) PresignGet(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) {
		o.Expires = expires
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, nil
}

// SyncPrefix mirrors every object under srcPrefix to dstPrefix and deletes
// stale destination objects.
func (s *S3Store) SyncPrefix(ctx context.Context, srcBucket, srcPrefix, dstBucket, dstPrefix string) error {
	srcKeys, err := s.listKeys(ctx, srcBucket, srcPrefix)
	if err != nil {
		return err
	}
	dstKeys, err := s.listKeys(ctx, dstBucket, dstPrefix)
	if err != nil {
		return err
	}

	copied := make(map[string]bool, len(srcKeys))
	for _, key := range srcKeys {
		rel := strings.TrimPrefix(key, srcPrefix)
		dstKey := dstPrefix + rel
		copied[dstKey] = true
		_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(dstBucket),
			Key:        aws.String(dstKey),
			CopySource: aws.String(url.PathEscape(srcBucket + "/" + key)),
		})
		if err != nil {
			return fmt.Errorf("failed to copy %s to %s: %w", key, dstKey, err)
		}
	}

	for _, key := range dstKeys {
		if copied[key] {
			continue
		}
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(dstBucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("failed to delete stale object %s: %w", key, err)
		}
	}
	return nil
}

func (s *S3Store) listKeys(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}
