package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/Daylily-Informatics/daylily-omics-references/internal/refdata"
	"github.com/Daylily-Informatics/daylily-omics-references/internal/run"
	"github.com/Daylily-Informatics/daylily-omics-references/internal/transfer"
)

// mockGateway implements StorageGateway with an in-memory bucket model and
// an event trace shared with mockRunner for ordering assertions.
type mockGateway struct {
	mu       sync.Mutex
	buckets  map[string]bool
	version  string // "" means marker absent
	missing  map[string]bool
	listErr  error
	events   *[]string
	existsN  int
	createN  int
	putN     int
	hasN     int
}

func newMockGateway(events *[]string) *mockGateway {
	return &mockGateway{
		buckets: make(map[string]bool),
		missing: make(map[string]bool),
		events:  events,
	}
}

func (g *mockGateway) record(ev string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.events != nil {
		*g.events = append(*g.events, ev)
	}
}

func (g *mockGateway) BucketExists(ctx context.Context, bucket string) bool {
	g.existsN++
	return g.buckets[bucket]
}

func (g *mockGateway) CreateBucket(ctx context.Context, bucket, region string, mode run.Mode) error {
	g.createN++
	g.record("create " + bucket)
	if !mode.Dry() {
		g.buckets[bucket] = true
	}
	return nil
}

func (g *mockGateway) PutObject(ctx context.Context, bucket, key string, body []byte) error {
	g.putN++
	g.record("put " + key)
	if key == refdata.VersionInfoKey {
		g.version = string(body)
	}
	return nil
}

func (g *mockGateway) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	if key == refdata.VersionInfoKey && g.version != "" {
		return []byte(g.version), nil
	}
	return nil, errors.New("NoSuchKey")
}

func (g *mockGateway) HasPrefix(ctx context.Context, bucket, prefix string) (bool, error) {
	g.hasN++
	if g.listErr != nil {
		return false, g.listErr
	}
	return !g.missing[prefix], nil
}

// mockRunner implements CopyRunner and records the requests it receives.
type mockRunner struct {
	mu       sync.Mutex
	requests []transfer.Request
	failOn   string // prefix that fails
	events   *[]string
}

func (r *mockRunner) Copy(ctx context.Context, req transfer.Request) error {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	if r.events != nil {
		*r.events = append(*r.events, "copy "+req.Prefix)
	}
	r.mu.Unlock()

	if r.failOn != "" && req.Prefix == r.failOn {
		return &transfer.Error{Prefix: req.Prefix, ExitCode: 1, Stderr: "boom"}
	}
	return nil
}

func newFixture(t *testing.T) (*mockGateway, *mockRunner, *Manager, *[]string) {
	t.Helper()
	events := &[]string{}
	gw := newMockGateway(events)
	runner := &mockRunner{events: events}
	return gw, runner, New(gw, runner, 1), events
}

func TestCloneUnsupportedVersion(t *testing.T) {
	gw, runner, m, _ := newFixture(t)

	_, err := m.Clone(context.Background(), CloneParams{
		BucketPrefix: "acme", Region: "us-west-2", Version: "9.9.9",
	})

	var verr *UnsupportedVersionError
	if !errors.As(err, &verr) {
		t.Fatalf("expected UnsupportedVersionError, got %v", err)
	}
	if verr.Version != "9.9.9" {
		t.Errorf("Version = %q", verr.Version)
	}
	if gw.existsN != 0 || gw.createN != 0 || len(runner.requests) != 0 {
		t.Error("unsupported version must fail before any storage or copy call")
	}
}

func TestCloneAlreadyExists(t *testing.T) {
	gw, runner, m, _ := newFixture(t)
	gw.buckets["acme-omics-analysis-us-west-2"] = true

	_, err := m.Clone(context.Background(), CloneParams{
		BucketPrefix: "acme", Region: "us-west-2", Version: refdata.DefaultVersion,
	})

	var aerr *AlreadyExistsError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected AlreadyExistsError, got %v", err)
	}
	if gw.createN != 0 || len(runner.requests) != 0 {
		t.Error("existing bucket must abort before creation or copies")
	}
}

func TestClonePlanMode(t *testing.T) {
	gw, runner, m, _ := newFixture(t)

	bucket, err := m.Clone(context.Background(), CloneParams{
		BucketPrefix: "test", Region: "us-west-2",
		Version: refdata.DefaultVersion,
		Mode:    run.Plan,
		Include: refdata.AllGroups(),
	})
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if bucket != "test-omics-analysis-us-west-2" {
		t.Errorf("bucket = %q", bucket)
	}

	if gw.putN != 0 {
		t.Error("plan mode must not write the version marker")
	}
	wantCopies := len(refdata.CorePrefixes) + len(refdata.HG38Prefixes) + len(refdata.B37Prefixes) + len(refdata.GIABPrefixes)
	if len(runner.requests) != wantCopies {
		t.Errorf("copy count = %d, want %d", len(runner.requests), wantCopies)
	}
	for _, req := range runner.requests {
		if !req.Mode.Dry() {
			t.Errorf("copy for %s not in plan mode", req.Prefix)
		}
	}
}

func TestClonePlanSizeBySelection(t *testing.T) {
	cases := []struct {
		sel  refdata.Selection
		want int
	}{
		{refdata.AllGroups(), len(refdata.CorePrefixes) + len(refdata.HG38Prefixes) + len(refdata.B37Prefixes) + len(refdata.GIABPrefixes)},
		{refdata.Selection{}, len(refdata.CorePrefixes)},
		{refdata.Selection{B37: true}, len(refdata.CorePrefixes) + len(refdata.B37Prefixes)},
	}

	for i, tc := range cases {
		plan := buildCopyPlan(tc.sel)
		if len(plan) != tc.want {
			t.Errorf("case %d: plan size = %d, want %d", i, len(plan), tc.want)
		}
	}
}

func TestCloneWritesMarkerBeforeCopies(t *testing.T) {
	_, runner, m, events := newFixture(t)

	_, err := m.Clone(context.Background(), CloneParams{
		BucketPrefix: "acme", Region: "us-west-2",
		Version: refdata.DefaultVersion,
		Mode:    run.Execute,
		Include: refdata.Selection{},
	})
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}

	putIdx, firstCopyIdx := -1, -1
	for i, ev := range *events {
		if strings.HasPrefix(ev, "put ") && putIdx == -1 {
			putIdx = i
		}
		if strings.HasPrefix(ev, "copy ") && firstCopyIdx == -1 {
			firstCopyIdx = i
		}
	}
	if putIdx == -1 {
		t.Fatal("version marker never written")
	}
	if firstCopyIdx != -1 && putIdx > firstCopyIdx {
		t.Errorf("marker written after first copy: events %v", *events)
	}
	if len(runner.requests) != len(refdata.CorePrefixes) {
		t.Errorf("copy count = %d", len(runner.requests))
	}
}

func TestCloneCopyFailureAborts(t *testing.T) {
	_, runner, m, _ := newFixture(t)
	runner.failOn = refdata.CorePrefixes[1]

	_, err := m.Clone(context.Background(), CloneParams{
		BucketPrefix: "acme", Region: "us-west-2",
		Version: refdata.DefaultVersion,
		Mode:    run.Execute,
		Include: refdata.Selection{},
	})

	var terr *transfer.Error
	if !errors.As(err, &terr) {
		t.Fatalf("expected transfer.Error, got %v", err)
	}
	if terr.Prefix != refdata.CorePrefixes[1] {
		t.Errorf("failed prefix = %q", terr.Prefix)
	}
	// Sequential execution: the failing operation is the last one started.
	if len(runner.requests) != 2 {
		t.Errorf("copies attempted = %d, want 2", len(runner.requests))
	}
}

func TestCloneCancelledContextStartsNoCopies(t *testing.T) {
	_, runner, m, _ := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Clone(ctx, CloneParams{
		BucketPrefix: "acme", Region: "us-west-2",
		Version: refdata.DefaultVersion,
		Mode:    run.Execute,
		Include: refdata.Selection{},
	})
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if len(runner.requests) != 0 {
		t.Errorf("copies attempted = %d, want 0", len(runner.requests))
	}
}

func TestCloneParallelFirstFailureWins(t *testing.T) {
	events := &[]string{}
	gw := newMockGateway(events)
	runner := &mockRunner{failOn: refdata.CorePrefixes[0]}
	m := New(gw, runner, 4)

	_, err := m.Clone(context.Background(), CloneParams{
		BucketPrefix: "acme", Region: "us-west-2",
		Version: refdata.DefaultVersion,
		Mode:    run.Execute,
		Include: refdata.AllGroups(),
	})

	var terr *transfer.Error
	if !errors.As(err, &terr) {
		t.Fatalf("expected transfer.Error, got %v", err)
	}
}

func TestVerifySuccess(t *testing.T) {
	gw, _, m, _ := newFixture(t)
	gw.buckets["target"] = true
	gw.version = refdata.DefaultVersion

	err := m.Verify(context.Background(), VerifyParams{
		Bucket:          "target",
		ExpectedVersion: refdata.DefaultVersion,
		Include:         refdata.AllGroups(),
	})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	wantProbes := len(refdata.Prefixes(refdata.AllGroups()))
	if gw.hasN != wantProbes {
		t.Errorf("prefix probes = %d, want %d", gw.hasN, wantProbes)
	}
}

func TestVerifyUnsupportedVersion(t *testing.T) {
	gw, _, m, _ := newFixture(t)

	err := m.Verify(context.Background(), VerifyParams{Bucket: "target", ExpectedVersion: "0.0.0"})
	var verr *UnsupportedVersionError
	if !errors.As(err, &verr) {
		t.Fatalf("expected UnsupportedVersionError, got %v", err)
	}
	if gw.existsN != 0 {
		t.Error("unsupported version must fail before the existence probe")
	}
}

func TestVerifyMissingBucket(t *testing.T) {
	gw, _, m, _ := newFixture(t)

	err := m.Verify(context.Background(), VerifyParams{
		Bucket:          "ghost",
		ExpectedVersion: refdata.DefaultVersion,
	})

	var verr *VerificationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected VerificationError, got %v", err)
	}
	if len(verr.Issues) != 1 || !strings.Contains(verr.Issues[0], "ghost") {
		t.Errorf("Issues = %v", verr.Issues)
	}
	if gw.hasN != 0 {
		t.Error("missing bucket must short-circuit prefix checks")
	}
}

func TestVerifyAccumulatesIssues(t *testing.T) {
	gw, _, m, _ := newFixture(t)
	gw.buckets["target"] = true
	gw.version = "0.6.0" // wrong version
	gw.missing[refdata.HG38Prefixes[0]] = true
	gw.missing[refdata.GIABPrefixes[0]] = true

	err := m.Verify(context.Background(), VerifyParams{
		Bucket:          "target",
		ExpectedVersion: refdata.DefaultVersion,
		Include:         refdata.AllGroups(),
	})

	var verr *VerificationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected VerificationError, got %v", err)
	}
	if len(verr.Issues) != 3 {
		t.Fatalf("Issues = %v, want 3 entries", verr.Issues)
	}

	mismatch := verr.Issues[0]
	if !strings.Contains(mismatch, refdata.DefaultVersion) || !strings.Contains(mismatch, "0.6.0") {
		t.Errorf("mismatch issue must name expected and found: %q", mismatch)
	}
	if !strings.Contains(verr.Issues[1], refdata.HG38Prefixes[0]) {
		t.Errorf("issue = %q", verr.Issues[1])
	}
	if !strings.Contains(verr.Issues[2], refdata.GIABPrefixes[0]) {
		t.Errorf("issue = %q", verr.Issues[2])
	}

	// All prefixes were still probed despite earlier findings.
	wantProbes := len(refdata.Prefixes(refdata.AllGroups()))
	if gw.hasN != wantProbes {
		t.Errorf("prefix probes = %d, want %d", gw.hasN, wantProbes)
	}
}

func TestVerifyMissingMarker(t *testing.T) {
	gw, _, m, _ := newFixture(t)
	gw.buckets["target"] = true // no marker

	err := m.Verify(context.Background(), VerifyParams{
		Bucket:          "target",
		ExpectedVersion: refdata.DefaultVersion,
	})

	var verr *VerificationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected VerificationError, got %v", err)
	}
	if len(verr.Issues) != 1 || verr.Issues[0] != "missing version marker" {
		t.Errorf("Issues = %v", verr.Issues)
	}
}

func TestVerifyPropagatesListErrors(t *testing.T) {
	gw, _, m, _ := newFixture(t)
	gw.buckets["target"] = true
	gw.version = refdata.DefaultVersion
	gw.listErr = fmt.Errorf("throttled")

	err := m.Verify(context.Background(), VerifyParams{
		Bucket:          "target",
		ExpectedVersion: refdata.DefaultVersion,
	})
	var verr *VerificationError
	if errors.As(err, &verr) {
		t.Fatalf("list errors must not be folded into issues, got %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), "throttled") {
		t.Errorf("err = %v", err)
	}
}

func TestEnsureMissingNoCreate(t *testing.T) {
	gw, runner, m, _ := newFixture(t)

	_, err := m.Ensure(context.Background(), EnsureParams{
		BucketPrefix: "acme", Region: "us-west-2",
		Version:       refdata.DefaultVersion,
		CreateMissing: false,
	})

	var verr *VerificationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected VerificationError, got %v", err)
	}
	if len(verr.Issues) != 1 || verr.Issues[0] != "bucket is missing" {
		t.Errorf("Issues = %v", verr.Issues)
	}
	if gw.createN != 0 || len(runner.requests) != 0 {
		t.Error("no-create ensure must not create or copy")
	}
}

func TestEnsureExistingDelegatesToVerify(t *testing.T) {
	gw, runner, m, _ := newFixture(t)
	gw.buckets["acme-omics-analysis-us-west-2"] = true
	gw.version = refdata.DefaultVersion

	bucket, err := m.Ensure(context.Background(), EnsureParams{
		BucketPrefix: "acme", Region: "us-west-2",
		Version:       refdata.DefaultVersion,
		Include:       refdata.AllGroups(),
		CreateMissing: true,
	})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if bucket != "acme-omics-analysis-us-west-2" {
		t.Errorf("bucket = %q", bucket)
	}
	if gw.createN != 0 || len(runner.requests) != 0 {
		t.Error("ensure on an existing bucket must not create or copy")
	}
}

func TestEnsureExistingVerifyFailurePropagates(t *testing.T) {
	gw, _, m, _ := newFixture(t)
	gw.buckets["acme-omics-analysis-us-west-2"] = true
	gw.version = "0.6.0"

	_, err := m.Ensure(context.Background(), EnsureParams{
		BucketPrefix: "acme", Region: "us-west-2",
		Version:       refdata.DefaultVersion,
		CreateMissing: true,
	})

	var verr *VerificationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected VerificationError, got %v", err)
	}
	if verr.Bucket != "acme-omics-analysis-us-west-2" {
		t.Errorf("Bucket = %q", verr.Bucket)
	}
}

func TestEnsureMissingClones(t *testing.T) {
	gw, runner, m, _ := newFixture(t)

	bucket, err := m.Ensure(context.Background(), EnsureParams{
		BucketPrefix: "acme", Region: "us-west-2",
		Version:       refdata.DefaultVersion,
		Mode:          run.Execute,
		Include:       refdata.Selection{},
		CreateMissing: true,
	})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if bucket != "acme-omics-analysis-us-west-2" {
		t.Errorf("bucket = %q", bucket)
	}
	if gw.createN != 1 {
		t.Errorf("create calls = %d", gw.createN)
	}
	if len(runner.requests) != len(refdata.CorePrefixes) {
		t.Errorf("copy count = %d", len(runner.requests))
	}
}

func TestEnsureUnsupportedVersion(t *testing.T) {
	gw, runner, m, _ := newFixture(t)

	_, err := m.Ensure(context.Background(), EnsureParams{
		BucketPrefix: "acme", Region: "us-west-2",
		Version:       "bogus",
		CreateMissing: true,
	})

	var verr *UnsupportedVersionError
	if !errors.As(err, &verr) {
		t.Fatalf("expected UnsupportedVersionError, got %v", err)
	}
	if gw.existsN != 0 || gw.createN != 0 || len(runner.requests) != 0 {
		t.Error("unsupported version must fail before any storage or copy call")
	}
}

func TestVerificationErrorMessage(t *testing.T) {
	err := &VerificationError{Bucket: "b", Issues: []string{"a", "b"}}
	want := `bucket "b" failed verification: a, b`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
