// Package manager orchestrates the lifecycle of reference buckets: cloning
// the canonical source bucket into a new destination, verifying an
// existing bucket's version and structure, and idempotently ensuring a
// bucket is present and correct.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Daylily-Informatics/daylily-omics-references/internal/logging"
	"github.com/Daylily-Informatics/daylily-omics-references/internal/metrics"
	"github.com/Daylily-Informatics/daylily-omics-references/internal/refdata"
	"github.com/Daylily-Informatics/daylily-omics-references/internal/run"
	"github.com/Daylily-Informatics/daylily-omics-references/internal/transfer"
)

// StorageGateway is the storage capability the manager consumes. Satisfied
// by *s3gate.Gateway.
type StorageGateway interface {
	BucketExists(ctx context.Context, bucket string) bool
	CreateBucket(ctx context.Context, bucket, region string, mode run.Mode) error
	PutObject(ctx context.Context, bucket, key string, body []byte) error
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	HasPrefix(ctx context.Context, bucket, prefix string) (bool, error)
}

// CopyRunner is the bulk-copy capability. Satisfied by *transfer.Executor.
type CopyRunner interface {
	Copy(ctx context.Context, req transfer.Request) error
}

// Manager owns the copy-plan construction, the version-marker protocol and
// the verify/ensure state logic. It holds no durable state; everything
// durable lives in the managed buckets.
type Manager struct {
	gateway StorageGateway
	runner  CopyRunner
	workers int
	log     *slog.Logger
	metric  *metrics.Metrics
}

// New creates a manager. workers bounds concurrent prefix copies during
// clone; 1 preserves strictly sequential plan-order execution.
func New(gateway StorageGateway, runner CopyRunner, workers int) *Manager {
	if workers < 1 {
		workers = 1
	}
	return &Manager{
		gateway: gateway,
		runner:  runner,
		workers: workers,
		log:     logging.Component("manager"),
		metric:  metrics.Get(),
	}
}

// CloneParams describes a clone invocation.
type CloneParams struct {
	BucketPrefix string
	Region       string
	Version      string
	Mode         run.Mode
	Include      refdata.Selection
	Accelerate   bool
}

// Clone copies the reference data for a version into a freshly created
// destination bucket and returns the bucket name. The version marker is
// written before any prefix copy starts, so an interrupted clone is
// identifiable; the marker means "clone has started", not "finished".
func (m *Manager) Clone(ctx context.Context, p CloneParams) (string, error) {
	bucket, err := m.clone(ctx, p)
	m.metric.IncOperation("clone", result(err))
	return bucket, err
}

func (m *Manager) clone(ctx context.Context, p CloneParams) (string, error) {
	sourceBucket, ok := refdata.SourceBucket(p.Version)
	if !ok {
		return "", &UnsupportedVersionError{Version: p.Version}
	}

	bucket := refdata.BucketName(p.BucketPrefix, p.Region)
	log := logging.BucketLogger(m.log, bucket, p.Region).With("version", p.Version, "mode", p.Mode.String())

	if m.gateway.BucketExists(ctx, bucket) {
		return "", &AlreadyExistsError{Bucket: bucket}
	}

	if err := m.gateway.CreateBucket(ctx, bucket, p.Region, p.Mode); err != nil {
		return "", err
	}

	plan := buildCopyPlan(p.Include)

	if p.Mode.Dry() {
		log.Info("[plan] would upload version marker", "key", refdata.VersionInfoKey)
	} else {
		log.Debug("uploading version marker", "key", refdata.VersionInfoKey)
		if err := m.gateway.PutObject(ctx, bucket, refdata.VersionInfoKey, []byte(p.Version)); err != nil {
			return "", err
		}
	}

	if err := m.runPlan(ctx, log, sourceBucket, bucket, plan, p); err != nil {
		return "", err
	}

	log.Info("bucket is ready")
	return bucket, nil
}

// runPlan executes the copy plan. With workers > 1 copies run concurrently
// under a bounded errgroup: the first failure cancels the group context,
// already-queued slots check it and bail before dispatching, so no copy
// starts after a failure. Each progress report carries the prefix, its
// ordinal and the plan size, so interleaved reports stay unambiguous.
func (m *Manager) runPlan(ctx context.Context, log *slog.Logger, sourceBucket, bucket string, plan []CopyOperation, p CloneParams) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)

	total := len(plan)
	for i, op := range plan {
		i, op := i, op
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			log.Info("copying prefix", "prefix", op.Description, "index", i+1, "total", total)

			start := time.Now()
			err := m.runner.Copy(gctx, transfer.Request{
				SourceBucket:      sourceBucket,
				DestinationBucket: bucket,
				Prefix:            op.SourcePrefix,
				Accelerate:        p.Accelerate,
				Mode:              p.Mode,
			})
			m.metric.IncCopy(refdata.Group(op.SourcePrefix), result(err), time.Since(start).Seconds())
			if err != nil {
				return fmt.Errorf("copy prefix %s: %w", op.SourcePrefix, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// VerifyParams describes a verify invocation.
type VerifyParams struct {
	Bucket          string
	ExpectedVersion string
	Include         refdata.Selection
}

// Verify checks that the bucket carries the expected version marker and
// that every selected prefix holds at least one object. All issues found
// are accumulated into a single VerificationError; a missing bucket is the
// one short-circuit, since nothing else can be checked without it.
func (m *Manager) Verify(ctx context.Context, p VerifyParams) error {
	err := m.verify(ctx, p)
	m.metric.IncOperation("verify", result(err))
	return err
}

func (m *Manager) verify(ctx context.Context, p VerifyParams) error {
	if !refdata.Supported(p.ExpectedVersion) {
		return &UnsupportedVersionError{Version: p.ExpectedVersion}
	}

	if !m.gateway.BucketExists(ctx, p.Bucket) {
		return &VerificationError{
			Bucket: p.Bucket,
			Issues: []string{fmt.Sprintf("bucket (%s) does not exist", p.Bucket)},
		}
	}

	var issues []string

	version, found := m.readVersionMarker(ctx, p.Bucket)
	switch {
	case !found:
		issues = append(issues, "missing version marker")
	case version != p.ExpectedVersion:
		issues = append(issues, fmt.Sprintf("version mismatch (expected %s, found %s)", p.ExpectedVersion, version))
	}

	for _, prefix := range refdata.Prefixes(p.Include) {
		populated, err := m.gateway.HasPrefix(ctx, p.Bucket, prefix)
		if err != nil {
			return fmt.Errorf("check prefix %s: %w", prefix, err)
		}
		if !populated {
			issues = append(issues, fmt.Sprintf("missing objects under %s", prefix))
		}
	}

	if len(issues) > 0 {
		m.metric.AddVerificationIssues(len(issues))
		return &VerificationError{Bucket: p.Bucket, Issues: issues}
	}

	m.log.Info("bucket passed verification", "bucket", p.Bucket, "version", p.ExpectedVersion)
	return nil
}

// readVersionMarker returns the version recorded in the bucket. Any read
// failure maps to "absent": verification turns it into an issue rather
// than aborting the pass.
func (m *Manager) readVersionMarker(ctx context.Context, bucket string) (string, bool) {
	data, err := m.gateway.GetObject(ctx, bucket, refdata.VersionInfoKey)
	if err != nil {
		m.log.Debug("version marker read failed", "bucket", bucket, "error", err)
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

// EnsureParams describes an ensure invocation.
type EnsureParams struct {
	BucketPrefix  string
	Region        string
	Version       string
	Include       refdata.Selection
	Accelerate    bool
	Mode          run.Mode
	CreateMissing bool
}

// Ensure derives the bucket name and converges on the expected state:
// verify when the bucket exists, clone when it is missing and creation is
// allowed. An existing-but-wrong bucket is never repaired; verify's
// failure propagates unchanged.
func (m *Manager) Ensure(ctx context.Context, p EnsureParams) (string, error) {
	bucket, err := m.ensure(ctx, p)
	m.metric.IncOperation("ensure", result(err))
	return bucket, err
}

func (m *Manager) ensure(ctx context.Context, p EnsureParams) (string, error) {
	if !refdata.Supported(p.Version) {
		return "", &UnsupportedVersionError{Version: p.Version}
	}

	bucket := refdata.BucketName(p.BucketPrefix, p.Region)

	if m.gateway.BucketExists(ctx, bucket) {
		m.log.Debug("bucket already exists, verifying", "bucket", bucket)
		if err := m.verify(ctx, VerifyParams{
			Bucket:          bucket,
			ExpectedVersion: p.Version,
			Include:         p.Include,
		}); err != nil {
			return "", err
		}
		return bucket, nil
	}

	if !p.CreateMissing {
		return "", &VerificationError{Bucket: bucket, Issues: []string{"bucket is missing"}}
	}

	m.log.Info("bucket is missing, cloning reference data", "bucket", bucket, "mode", p.Mode.String())
	return m.clone(ctx, CloneParams{
		BucketPrefix: p.BucketPrefix,
		Region:       p.Region,
		Version:      p.Version,
		Mode:         p.Mode,
		Include:      p.Include,
		Accelerate:   p.Accelerate,
	})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
