// Package refdata holds the static catalog of reference-data versions and
// the object-key prefixes that make up a reference bucket.
package refdata

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultVersion is the reference-data version used when the caller does
// not request one explicitly.
const DefaultVersion = "0.7.131c"

// VersionInfoKey is the well-known key of the version marker object inside
// a managed bucket. Its body is the bare UTF-8 version string. The key and
// encoding are load-bearing: existing buckets in the field carry exactly
// this object.
const VersionInfoKey = "s3_reference_data_version.info"

// sourceBucketByVersion maps each supported version to the canonical public
// bucket holding that snapshot of the reference data.
var sourceBucketByVersion = map[string]string{
	DefaultVersion: "daylily-omics-analysis-references-public",
}

// SourceBucket returns the canonical source bucket for a version.
func SourceBucket(version string) (string, bool) {
	bucket, ok := sourceBucketByVersion[version]
	return bucket, ok
}

// Supported returns true if the version is known to the registry.
func Supported(version string) bool {
	_, ok := sourceBucketByVersion[version]
	return ok
}

// SupportedVersions returns the sorted list of supported versions.
func SupportedVersions() []string {
	versions := make([]string, 0, len(sourceBucketByVersion))
	for v := range sourceBucketByVersion {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions
}

// CorePrefixes are always present in a reference bucket.
var CorePrefixes = []string{
	"cluster_boot_config/",
	"data/cached_envs/",
	"data/libs/",
	"data/tool_specific_resources/",
	"data/budget_tags/",
}

// HG38Prefixes hold the hg38 human reference genome and its annotations.
var HG38Prefixes = []string{
	"data/genomic_data/organism_references/H_sapiens/hg38/",
	"data/genomic_data/organism_annotations/H_sapiens/hg38/",
}

// B37Prefixes hold the b37 human reference genome and its annotations.
var B37Prefixes = []string{
	"data/genomic_data/organism_references/H_sapiens/b37/",
	"data/genomic_data/organism_annotations/H_sapiens/b37/",
}

// GIABPrefixes hold the GIAB concordance reads.
var GIABPrefixes = []string{
	"data/genomic_data/organism_reads/",
}

// Selection toggles the optional prefix groups for a clone or verify pass.
// Core prefixes are always included.
type Selection struct {
	HG38 bool
	B37  bool
	GIAB bool
}

// AllGroups selects every optional group.
func AllGroups() Selection {
	return Selection{HG38: true, B37: true, GIAB: true}
}

// Prefixes returns the ordered prefix list for the selection: core first,
// then hg38, b37 and giab for each enabled group. Order only matters for
// deterministic progress reporting.
func Prefixes(sel Selection) []string {
	prefixes := make([]string, 0, len(CorePrefixes)+len(HG38Prefixes)+len(B37Prefixes)+len(GIABPrefixes))
	prefixes = append(prefixes, CorePrefixes...)
	if sel.HG38 {
		prefixes = append(prefixes, HG38Prefixes...)
	}
	if sel.B37 {
		prefixes = append(prefixes, B37Prefixes...)
	}
	if sel.GIAB {
		prefixes = append(prefixes, GIABPrefixes...)
	}
	return prefixes
}

// Group names a prefix's group for progress reporting and metric labels.
func Group(prefix string) string {
	switch {
	case contains(HG38Prefixes, prefix):
		return "hg38"
	case contains(B37Prefixes, prefix):
		return "b37"
	case contains(GIABPrefixes, prefix):
		return "giab"
	default:
		return "core"
	}
}

func contains(prefixes []string, prefix string) bool {
	for _, p := range prefixes {
		if p == prefix {
			return true
		}
	}
	return false
}

// BucketName derives the managed bucket name for a logical prefix and
// region. The convention is the only discoverability mechanism linking a
// prefix/region pair to a physical bucket, so it must never change shape.
func BucketName(bucketPrefix, region string) string {
	return fmt.Sprintf("%s-omics-analysis-%s", bucketPrefix, region)
}

// Describe returns the progress label for a prefix: the prefix without its
// trailing slash.
func Describe(prefix string) string {
	return strings.TrimSuffix(prefix, "/")
}
