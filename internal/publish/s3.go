package publish

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Publisher writes bundles to S3 or MinIO.
type S3Publisher struct {
	client        *s3.Client
	presigner     *s3.PresignClient
	bucket        string
	pathPrefix    string
	presignExpiry time.Duration
}

// S3Config holds S3/MinIO connection configuration.
type S3Config struct {
	// Endpoint for MinIO (e.g., "minio.scrapeflow.svc:9000")
	// Leave empty for AWS S3
	Endpoint string

	// Bucket name
	Bucket string

	// Region (required for AWS S3, optional for MinIO)
	Region string

	// Credentials
	AccessKeyID     string
	SecretAccessKey string

	// UseSSL enables HTTPS (default: false for internal MinIO)
	UseSSL bool

	// PathPrefix is prepended to all object keys
	PathPrefix string

	// PresignExpiry enables presigned download URLs on refs when positive
	PresignExpiry time.Duration
}

// NewS3Publisher creates a new S3/MinIO publisher.
func NewS3Publisher(ctx context.Context, cfg *S3Config) (*S3Publisher, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1" // Default region for MinIO
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		endpoint := fmt.Sprintf("%s://%s", scheme, cfg.Endpoint)

		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true // Required for MinIO
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	return &S3Publisher{
		client:        client,
		presigner:     s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		pathPrefix:    cfg.PathPrefix,
		presignExpiry: cfg.PresignExpiry,
	}, nil
}

func (p *S3Publisher) fullKey(key string) string {
	if p.pathPrefix == "" {
		return key
	}
	return p.pathPrefix + "/" + key
}

// Publish uploads the encoded bundle.
func (p *S3Publisher) Publish(ctx context.Context, b *Bundle) (*Ref, error) {
	data, checksum, err := encode(b)
	if err != nil {
		return nil, err
	}
	key := p.fullKey(ObjectKey(b))

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata: map[string]string{
			"sha256":      checksum,
			"fingerprint": b.Fingerprint,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	ref := &Ref{
		URI:         fmt.Sprintf("s3://%s/%s", p.bucket, key),
		Key:         key,
		Size:        int64(len(data)),
		Checksum:    checksum,
		PublishedAt: b.PublishedAt,
	}

	if p.presignExpiry > 0 {
		presigned, err := p.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(key),
		}, s3.WithPresignExpires(p.presignExpiry))
		if err != nil {
			return nil, fmt.Errorf("presign get: %w", err)
		}
		ref.URL = presigned.URL
	}

	return ref, nil
}
