package manager

import (
	"fmt"
	"strings"
)

// UnsupportedVersionError reports a version absent from the registry. It is
// returned before any storage or copy capability is touched.
type UnsupportedVersionError struct {
	Version string
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported reference version: %s", e.Version)
}

// AlreadyExistsError reports a clone whose derived destination bucket is
// already present. Clone never overwrites.
type AlreadyExistsError struct {
	Bucket string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("bucket %q already exists", e.Bucket)
}

// VerificationError carries every issue found in one verification pass, so
// callers get a complete remediation checklist instead of one problem per
// run. A missing bucket on ensure with creation disabled is reported in
// the same shape, as a single-issue failure.
type VerificationError struct {
	Bucket string
	Issues []string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("bucket %q failed verification: %s", e.Bucket, strings.Join(e.Issues, ", "))
}
