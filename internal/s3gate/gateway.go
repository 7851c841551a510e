// Package s3gate is a thin gateway over the S3 control and data plane used
// by the reference bucket manager: existence probes (with bucket region
// redirect resolution), bucket creation, object put/get and bounded prefix
// listings.
package s3gate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/Daylily-Informatics/daylily-omics-references/internal/logging"
	"github.com/Daylily-Informatics/daylily-omics-references/internal/metrics"
	"github.com/Daylily-Informatics/daylily-omics-references/internal/run"
)

// DefaultRegion is the region that takes no location constraint on bucket
// creation.
const DefaultRegion = "us-east-1"

// bucketRegionHeader is set by S3 on redirected responses and names the
// bucket's true region.
const bucketRegionHeader = "x-amz-bucket-region"

// API is the subset of the S3 client the gateway calls. *s3.Client
// satisfies it; tests substitute a mock.
type API interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, opts ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutBucketAccelerateConfiguration(ctx context.Context, in *s3.PutBucketAccelerateConfigurationInput, opts ...func(*s3.Options)) (*s3.PutBucketAccelerateConfigurationOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// ClientFactory builds an S3 client scoped to a profile and region. The
// gateway calls it once at construction and again whenever a bucket
// redirect reveals a different region.
type ClientFactory func(ctx context.Context, profile, region string) (API, error)

// NewClient is the default ClientFactory, backed by the SDK's shared
// configuration chain.
func NewClient(ctx context.Context, profile, region string) (API, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// Gateway wraps an S3 client with the region-redirect protocol. A redirect
// observed during an existence probe re-scopes the active client, so every
// later call in the same instance targets the bucket's true region. The
// mutation is mutex-guarded; a Gateway may be shared across goroutines.
type Gateway struct {
	mu         sync.Mutex
	client     API
	region     string
	profile    string
	newClient  ClientFactory
	log        *slog.Logger
	metricsRef *metrics.Metrics
}

// New builds a gateway for the given profile and region using the default
// client factory.
func New(ctx context.Context, profile, region string) (*Gateway, error) {
	return NewWithFactory(ctx, profile, region, NewClient)
}

// NewWithFactory builds a gateway with a caller-supplied client factory.
func NewWithFactory(ctx context.Context, profile, region string, factory ClientFactory) (*Gateway, error) {
	client, err := factory(ctx, profile, region)
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &Gateway{
		client:     client,
		region:     region,
		profile:    profile,
		newClient:  factory,
		log:        logging.Component("s3gate"),
		metricsRef: metrics.Get(),
	}, nil
}

// Region returns the region the active client is scoped to. It reflects
// the last redirect resolution, not necessarily the construction-time
// region.
func (g *Gateway) Region() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.region
}

// BucketExists probes the bucket. A redirect response re-scopes the
// gateway to the bucket's region and retries once against the new client.
// Every other probe failure maps to false: callers only need an existence
// signal, and create-if-absent / verify-if-present must not die on a
// transient probe error.
func (g *Gateway) BucketExists(ctx context.Context, bucket string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, err := g.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return true
	}

	if region := redirectRegion(err); region != "" && region != g.region {
		if rerr := g.rescopeLocked(ctx, region); rerr != nil {
			g.log.Warn("failed to re-scope client after redirect",
				"bucket", bucket, "region", region, "error", rerr)
			return false
		}
		_, err = g.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
		return err == nil
	}

	g.log.Debug("bucket probe failed", "bucket", bucket, "error", err)
	return false
}

// rescopeLocked swaps the active client for one scoped to region. Caller
// holds g.mu.
func (g *Gateway) rescopeLocked(ctx context.Context, region string) error {
	client, err := g.newClient(ctx, g.profile, region)
	if err != nil {
		return err
	}
	g.log.Info("bucket lives in another region, re-scoping client",
		"from", g.region, "to", region)
	g.client = client
	g.region = region
	g.metricsRef.IncRegionRescope()
	return nil
}

// redirectRegion extracts the bucket's true region from a redirected S3
// response, or returns "" when the error is not a redirect.
func redirectRegion(err error) string {
	var respErr *awshttp.ResponseError
	if !errors.As(err, &respErr) || respErr.Response == nil {
		return ""
	}
	return respErr.Response.Header.Get(bucketRegionHeader)
}

// CreateBucket creates the bucket in region and enables transfer
// acceleration on it. Acceleration is always turned on for managed
// buckets, matching the shell script this tool supersedes. In Plan mode
// nothing is sent.
func (g *Gateway) CreateBucket(ctx context.Context, bucket, region string, mode run.Mode) error {
	if mode.Dry() {
		g.log.Info("[plan] would create bucket", "bucket", bucket, "region", region)
		return nil
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	if region != DefaultRegion {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(region),
		}
	}

	g.log.Info("creating bucket", "bucket", bucket, "region", region)
	if _, err := g.active().CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}

	g.log.Debug("enabling transfer acceleration", "bucket", bucket)
	_, err := g.active().PutBucketAccelerateConfiguration(ctx, &s3.PutBucketAccelerateConfigurationInput{
		Bucket: aws.String(bucket),
		AccelerateConfiguration: &s3types.AccelerateConfiguration{
			Status: s3types.BucketAccelerateStatusEnabled,
		},
	})
	if err != nil {
		return fmt.Errorf("enable acceleration on %s: %w", bucket, err)
	}
	return nil
}

// PutObject uploads body under key.
func (g *Gateway) PutObject(ctx context.Context, bucket, key string, body []byte) error {
	_, err := g.active().PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("put object s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// GetObject reads the full body of key.
func (g *Gateway) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := g.active().GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object s3://%s/%s: %w", bucket, key, err)
	}
	return data, nil
}

// HasPrefix reports whether any object exists under prefix. The listing is
// capped at one key: callers need an existence signal, not an enumeration.
func (g *Gateway) HasPrefix(ctx context.Context, bucket, prefix string) (bool, error) {
	out, err := g.active().ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("list s3://%s/%s: %w", bucket, prefix, err)
	}
	return len(out.Contents) > 0, nil
}

// active returns the current client under the lock, so a concurrent
// redirect re-scope never races a data-plane call.
func (g *Gateway) active() API {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client
}
