package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/icodeforyou/spotprice-go/types"
)

type S3Options struct {
	Bucket          string
	Key             string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher uploads the feed JSON for the static frontend.
type S3Publisher struct {
	client objectPutter
	bucket string
	key    string
}

func NewS3Publisher(ctx context.Context, o S3Options) (*S3Publisher, error) {
	if o.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required when enabled")
	}

	loadOpts := []func(*config.LoadOptions) error{}
	if o.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(o.Region))
	}
	if o.AccessKeyID != "" && o.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKeyID, o.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(opts *s3.Options) {
		if o.Endpoint != "" {
			opts.BaseEndpoint = aws.String(o.Endpoint)
			opts.UsePathStyle = true
		}
	})
	return newS3Publisher(client, o.Bucket, o.Key), nil
}

func newS3Publisher(client objectPutter, bucket, key string) *S3Publisher {
	if key == "" {
		key = "spotdata.json"
	}
	return &S3Publisher{client: client, bucket: bucket, key: key}
}

func (p *S3Publisher) Name() string {
	return "s3"
}

func (p *S3Publisher) Publish(ctx context.Context, entries []types.FeedEntry, now time.Time) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encoding feed: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(p.bucket),
		Key:          aws.String(p.key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String("application/json"),
		CacheControl: aws.String("max-age=300"),
		Metadata: map[string]string{
			"generated-at": now.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("upload feed to s3://%s/%s: %w", p.bucket, p.key, err)
	}
	return nil
}
