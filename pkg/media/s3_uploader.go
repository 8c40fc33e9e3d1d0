package media

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// cacheControl pins stored objects for a year;
// re-processing always mints a new key, so there is never a stale-cache
// problem to invalidate around.
const cacheControl = "max-age=31536000"

// S3Uploader is the concrete Uploader backed by aws-sdk-go-v2.
type S3Uploader struct {
	client *s3.Client
	bucket string
	region string
}

// S3Config names the credentials and bucket location for an S3Uploader.
type S3Config struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Uploader builds an S3Uploader from static credentials, matching
// the AWS_ACCESS_KEY_ID/SECRET_ACCESS_KEY environment variables.
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("media: loading AWS config: %w", err)
	}

	return &S3Uploader{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		region: cfg.Region,
	}, nil
}

// Upload implements Uploader. The returned URL is the bucket's
// virtual-hosted-style public address for the key.
func (u *S3Uploader) Upload(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) (string, error) {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(u.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(cacheControl),
		Metadata:     metadata,
	})
	if err != nil {
		return "", fmt.Errorf("media: putting object %q: %w", key, err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key), nil
}
