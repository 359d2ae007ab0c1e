package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/authvault/authvault/internal/logging"
	sc "github.com/authvault/authvault/internal/server/config"
	"github.com/authvault/authvault/internal/server/models"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	headBucket = func(c *s3.Client, ctx context.Context, in *s3.HeadBucketInput) (*s3.HeadBucketOutput, error) {
		return c.HeadBucket(ctx, in)
	}

	createBucket = func(c *s3.Client, ctx context.Context, in *s3.CreateBucketInput) (*s3.CreateBucketOutput, error) {
		return c.CreateBucket(ctx, in)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// StorageService stores uploaded blobs in an S3-compatible bucket (MinIO in
// the compose setup) and hands out presigned download URLs.
type StorageService struct {
	config *sc.Config
	logger logging.Logger
}

// NewStorageService constructs a StorageService from server config.
func NewStorageService(config *sc.Config, logger logging.Logger) *StorageService {
	return &StorageService{config: config, logger: logger}
}

func (s *StorageService) getClient() (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3AccessKey,
			s.config.S3SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

// storageKey builds the object key for an upload. The unix timestamp prefix
// keeps repeated uploads of the same filename from overwriting each other.
func storageKey(userID, filename string) string {
	return fmt.Sprintf("%d-%s-%s", time.Now().Unix(), userID, filename)
}

// EnsureBucket checks that the configured bucket exists and creates it when
// it does not. Racing creators are tolerated.
func (s *StorageService) EnsureBucket(ctx context.Context) error {
	client, err := s.getClient()
	if err != nil {
		return err
	}

	bucket := s.config.S3Bucket
	if _, err := headBucket(client, ctx, &s3.HeadBucketInput{Bucket: &bucket}); err == nil {
		return nil
	}

	if _, err := createBucket(client, ctx, &s3.CreateBucketInput{Bucket: &bucket}); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		var exists *types.BucketAlreadyExists
		if errors.As(err, &owned) || errors.As(err, &exists) {
			return nil
		}
		return fmt.Errorf("error creating bucket %s: %v", bucket, err)
	}
	return nil
}

// Upload stores the blob under a timestamped key and returns the key together
// with a presigned GET URL. A presign failure is logged and degrades to an
// empty URL; the upload itself still counts as successful.
func (s *StorageService) Upload(ctx context.Context, userID, filename, contentType string, body io.Reader) (*models.UploadResult, error) {
	client, err := s.getClient()
	if err != nil {
		return nil, err
	}

	bucket := s.config.S3Bucket
	key := storageKey(userID, filename)

	in := &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   body,
	}
	if contentType != "" {
		in.ContentType = &contentType
	}
	if _, err := putObject(client, ctx, in); err != nil {
		return nil, fmt.Errorf("error uploading object: %v", err)
	}

	url := ""
	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.config.PresignValidityDuration))
	if err != nil {
		s.logger.Warn(ctx, "presign failed after upload", "key", key, "error", err)
	} else {
		url = req.URL
	}

	return &models.UploadResult{
		Filename: filename,
		Key:      key,
		URL:      url,
		Status:   "uploaded",
	}, nil
}
