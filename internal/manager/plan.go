package manager

import (
	"github.com/Daylily-Informatics/daylily-omics-references/internal/refdata"
)

// CopyOperation is one planned recursive prefix copy. Source and
// destination prefixes are identical today; they are kept separate so a
// future re-layout stays a plan-construction change.
type CopyOperation struct {
	Description       string
	SourcePrefix      string
	DestinationPrefix string
}

// buildCopyPlan expands the prefix catalog into an ordered plan: core
// prefixes first, then each enabled optional group.
func buildCopyPlan(sel refdata.Selection) []CopyOperation {
	prefixes := refdata.Prefixes(sel)
	plan := make([]CopyOperation, 0, len(prefixes))
	for _, prefix := range prefixes {
		plan = append(plan, CopyOperation{
			Description:       refdata.Describe(prefix),
			SourcePrefix:      prefix,
			DestinationPrefix: prefix,
		})
	}
	return plan
}
