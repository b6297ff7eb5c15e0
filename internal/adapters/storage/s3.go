package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"food-diary/internal/domain"
	"food-diary/internal/infra/metrics"
)

const s3Prefix = "food/"

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config параметры подключения к бакету.
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicURL       string
	Endpoint        string
}

// S3 хранит изображения в бакете S3 или совместимом хранилище.
type S3 struct {
	client    s3API
	bucket    string
	publicURL string
}

var _ domain.StorageGateway = (*S3)(nil)

// NewS3 создаёт клиента S3 со статическими ключами.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, domain.Configuration("s3: bucket and region are required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3(client, cfg), nil
}

func newS3(client s3API, cfg S3Config) *S3 {
	public := strings.TrimRight(cfg.PublicURL, "/")
	if public == "" {
		public = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return &S3{client: client, bucket: cfg.Bucket, publicURL: public}
}

// Upload кладёт объект в бакет и возвращает публичную ссылку.
func (s *S3) Upload(ctx context.Context, img domain.Image, key string) (string, error) {
	key = cleanKey(key)
	if key == "" {
		key = s3Prefix + generateKey(img.Filename)
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	start := time.Now()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(img.Data),
		ContentLength: aws.Int64(int64(len(img.Data))),
		ContentType:   aws.String(contentType),
	})
	metrics.ObserveNetworkRequest("s3", "put_object", s.bucket, start, err)
	if err != nil {
		return "", domain.StorageFailed("upload", err)
	}
	metrics.ObserveImageBytes("stored", int64(len(img.Data)))
	return s.publicURL + "/" + key, nil
}

// Delete удаляет объект по ссылке или ключу.
func (s *S3) Delete(ctx context.Context, locator string) error {
	key := s.keyFromLocator(locator)
	if key == "" {
		return domain.ClientInput(domain.CodeValidationFailed, "empty storage locator")
	}
	start := time.Now()
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
		err = nil
	}
	metrics.ObserveNetworkRequest("s3", "delete_object", s.bucket, start, err)
	if err != nil {
		return domain.StorageFailed("delete", err)
	}
	return nil
}

func (s *S3) keyFromLocator(locator string) string {
	locator = strings.TrimSpace(locator)
	if rest, ok := strings.CutPrefix(locator, s.publicURL+"/"); ok {
		return cleanKey(rest)
	}
	if u, err := url.Parse(locator); err == nil && u.Scheme != "" && u.Host != "" {
		return cleanKey(u.Path)
	}
	return cleanKey(locator)
}
