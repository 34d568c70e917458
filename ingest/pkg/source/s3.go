package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/malbeclabs/salesdash/utils/pkg/retry"
)

// S3Config configures an S3 source.
type S3Config struct {
	Logger    *slog.Logger
	URL       S3URL
	Region    string
	Endpoint  string // optional, for S3-compatible stores such as MinIO
	PathStyle bool
	Retry     retry.Config
	// HTTPClient overrides the SDK transport; used by tests.
	HTTPClient *http.Client
	// Options are extra aws config load options, e.g. static credentials.
	Options []func(*config.LoadOptions) error
}

func (cfg *S3Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.URL.Bucket == "" {
		return errors.New("s3 bucket is required")
	}
	return nil
}

// S3 reads objects from a bucket prefix. Each object is read fully into
// memory since the workbook decoder needs random access.
type S3 struct {
	log    *slog.Logger
	cfg    S3Config
	client *s3.Client
}

func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := append([]func(*config.LoadOptions) error{config.WithRegion(region)}, cfg.Options...)
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		// Retries are handled by Open so they can be logged and bounded.
		o.RetryMaxAttempts = 1
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.HTTPClient != nil {
			o.HTTPClient = cfg.HTTPClient
		}
	})
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	return &S3{log: cfg.Logger, cfg: cfg, client: client}, nil
}

func (s *S3) Location() string { return s.cfg.URL.String() }

func (s *S3) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := s.cfg.URL.Key(name)
	rcfg := s.cfg.Retry
	rcfg.Retryable = func(err error) bool {
		return !isNotFound(err) && retry.IsRetryable(err)
	}
	rcfg.OnRetry = func(attempt int, backoff time.Duration, err error) {
		s.log.Warn("source/s3: retrying get object", "key", key, "attempt", attempt, "backoff", backoff, "error", err)
	}

	var body []byte
	start := time.Now()
	err := retry.Do(ctx, rcfg, func() error {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.cfg.URL.Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return err
		}
		defer out.Body.Close()
		body, err = io.ReadAll(out.Body)
		return err
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrNotFound, s.cfg.URL.Bucket, key)
		}
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", s.cfg.URL.Bucket, key, err)
	}
	s.log.Debug("source/s3: fetched object", "key", key, "bytes", len(body), "duration", time.Since(start))
	return io.NopCloser(bytes.NewReader(body)), nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	if errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound {
		return true
	}
	return false
}
