// Package transfer invokes the external AWS CLI to recursively copy one
// key prefix between buckets. The transfer itself is fully delegated; this
// package owns command construction, environment, output capture and the
// typed failure.
package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/Daylily-Informatics/daylily-omics-references/internal/copylog"
	"github.com/Daylily-Informatics/daylily-omics-references/internal/logging"
	"github.com/Daylily-Informatics/daylily-omics-references/internal/run"
)

// AccelerateEndpoint is the S3 transfer-acceleration endpoint used when a
// copy requests acceleration.
const AccelerateEndpoint = "https://s3-accelerate.amazonaws.com"

// Error reports a copy invocation that exited non-zero.
type Error struct {
	Prefix   string
	ExitCode int
	Stderr   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("copy of prefix %q failed with code %d: %s", e.Prefix, e.ExitCode, e.Stderr)
}

// Request describes one recursive prefix copy.
type Request struct {
	SourceBucket      string
	DestinationBucket string
	Prefix            string
	Accelerate        bool
	Mode              run.Mode
}

// Executor runs copy requests through the AWS CLI.
type Executor struct {
	profile string
	log     *slog.Logger
	logFile *copylog.Writer
	runCmd  func(cmd *exec.Cmd) error
}

// NewExecutor creates an executor. profile, when non-empty, is injected as
// AWS_PROFILE into the invocation environment. logFile may be a disabled
// writer.
func NewExecutor(profile string, logFile *copylog.Writer) *Executor {
	return &Executor{
		profile: profile,
		log:     logging.Component("transfer"),
		logFile: logFile,
		runCmd:  func(cmd *exec.Cmd) error { return cmd.Run() },
	}
}

// Copy runs one recursive prefix copy. In Plan mode it logs the command
// that would run and returns. A non-zero exit returns *Error carrying the
// exit code and captured stderr.
func (e *Executor) Copy(ctx context.Context, req Request) error {
	args := command(req)
	line := strings.Join(args, " ")

	if req.Mode.Dry() {
		e.log.Info("[plan] " + line)
		return nil
	}

	if err := e.logFile.Command(line); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Env = e.environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.log.Debug("running command", "command", line)
	runErr := e.runCmd(cmd)

	if err := e.logFile.Output(stdout.String()); err != nil {
		return err
	}
	if err := e.logFile.Output(stderr.String()); err != nil {
		return err
	}

	if runErr != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			code = exitErr.ExitCode()
		}
		return &Error{
			Prefix:   req.Prefix,
			ExitCode: code,
			Stderr:   strings.TrimSpace(stderr.String()),
		}
	}
	return nil
}

// command builds the AWS CLI invocation for a request. Requester-pays
// billing and metadata replacement are always requested; the source
// buckets are public requester-pays buckets and destination metadata must
// be owned by the destination account.
func command(req Request) []string {
	args := []string{
		"aws", "s3", "cp",
		fmt.Sprintf("s3://%s/%s", req.SourceBucket, req.Prefix),
		fmt.Sprintf("s3://%s/%s", req.DestinationBucket, req.Prefix),
		"--recursive",
		"--request-payer", "requester",
		"--metadata-directive", "REPLACE",
	}
	if req.Accelerate {
		args = append(args, "--endpoint-url", AccelerateEndpoint)
	}
	return args
}

// environ returns the process environment with AWS_PROFILE replaced by the
// configured profile when one is set.
func (e *Executor) environ() []string {
	env := os.Environ()
	if e.profile == "" {
		return env
	}

	out := env[:0]
	for _, kv := range env {
		if !strings.HasPrefix(kv, "AWS_PROFILE=") {
			out = append(out, kv)
		}
	}
	return append(out, "AWS_PROFILE="+e.profile)
}
