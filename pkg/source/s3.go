package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3SourceConfig configures the S3 source.
type S3SourceConfig struct {
	Bucket      string // S3 bucket name
	Region      string // AWS region
	EndpointURL string // Optional custom endpoint (for MinIO testing)
}

// S3Source implements Source over an S3 bucket of order workbooks. Objects
// carry timestamp-prefixed keys, so the latest batch is the alphabetically
// last .xlsx key.
type S3Source struct {
	client *s3.Client
	bucket string
}

func NewS3Source(ctx context.Context, cfg S3SourceConfig) (*S3Source, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	clientOpts := []func(*s3.Options){}
	if cfg.EndpointURL != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true // Required for MinIO compatibility
		})
	}

	return &S3Source{
		client: s3.NewFromConfig(awsCfg, clientOpts...),
		bucket: cfg.Bucket,
	}, nil
}

func (s *S3Source) FetchLatest(ctx context.Context) (*Batch, error) {
	listOutput, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	keys := make([]string, 0, len(listOutput.Contents))
	for _, obj := range listOutput.Contents {
		if obj.Key != nil && strings.HasSuffix(*obj.Key, ".xlsx") {
			keys = append(keys, *obj.Key)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no workbook objects found in bucket %s", s.bucket)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	key := keys[0]

	obj, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer obj.Body.Close()

	body, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}

	rows, err := parseWorkbook(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return &Batch{
		Rows:      rows,
		FetchedAt: time.Now().UTC(),
		Name:      key,
	}, nil
}

func (s *S3Source) Close() error { return nil }
