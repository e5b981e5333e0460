package export

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

	"github.com/sartorproj/skuforecast/logger"
)

// S3Options locates the bucket forecasts are uploaded to.
type S3Options struct {
	Bucket          string
	Region          string
	Prefix          string
	Endpoint        string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
}

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader uploads exported forecasts to S3.
type S3Uploader struct {
	client putObjectAPI
	opts   S3Options
	log    *logger.Entry
}

// NewS3Uploader builds an uploader from the default AWS configuration chain.
// Static credentials are used when both keys are set.
func NewS3Uploader(ctx context.Context, opts S3Options) (*S3Uploader, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	})
	return newS3Uploader(client, opts), nil
}

func newS3Uploader(client putObjectAPI, opts S3Options) *S3Uploader {
	return &S3Uploader{
		client: client,
		opts:   opts,
		log:    logger.GetLogger().WithComponent("export"),
	}
}

// Key returns a unique object key for a run, partitioned by run date:
// <prefix>/date=YYYY-MM-DD/forecast_<timestamp><uuid>.<ext>.
func (u *S3Uploader) Key(runAt time.Time, ext string) string {
	runAt = runAt.UTC()
	filename := fmt.Sprintf("forecast_%s%s.%s",
		runAt.Format("20060102150405"),
		uuid.NewString(),
		strings.TrimPrefix(ext, "."),
	)
	return path.Join(
		strings.Trim(u.opts.Prefix, "/"),
		fmt.Sprintf("date=%s", runAt.Format("2006-01-02")),
		filename,
	)
}

// Upload puts data at key.
func (u *S3Uploader) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(u.opts.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"producer": "skuforecast",
		},
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	if _, err := u.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}

	u.log.WithFields(logger.Fields{
		"bucket": u.opts.Bucket,
		"key":    key,
		"bytes":  len(data),
	}).Info("forecast uploaded")
	return nil
}
