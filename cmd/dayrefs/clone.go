package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Daylily-Informatics/daylily-omics-references/internal/manager"
	"github.com/Daylily-Informatics/daylily-omics-references/internal/refdata"
	"github.com/Daylily-Informatics/daylily-omics-references/internal/run"
)

var (
	cloneBucketPrefix string
	cloneVersion      string
	cloneExecute      bool
	cloneExcludeHG38  bool
	cloneExcludeB37   bool
	cloneExcludeGIAB  bool
	cloneAccelerate   bool
	cloneLogFile      string
)

var cloneCmd = &cobra.Command{
	Use:   "clone",
	Short: "Clone the reference bucket into a new bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRegion(); err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		m, err := newManager(ctx, cloneLogFile)
		if err != nil {
			return err
		}

		bucket, err := m.Clone(ctx, manager.CloneParams{
			BucketPrefix: cloneBucketPrefix,
			Region:       cfg.AWS.Region,
			Version:      cloneVersion,
			Mode:         run.FromExecute(cloneExecute),
			Include:      selection(cloneExcludeHG38, cloneExcludeB37, cloneExcludeGIAB),
			Accelerate:   cloneAccelerate,
		})
		if err != nil {
			return err
		}

		fmt.Println(bucket)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cloneCmd)

	f := cloneCmd.Flags()
	f.StringVar(&cloneBucketPrefix, "bucket-prefix", "", "Prefix for the new bucket")
	f.StringVar(&cloneVersion, "version", refdata.DefaultVersion, "Reference data version to clone")
	f.BoolVar(&cloneExecute, "execute", false, "Execute the copy instead of performing a dry-run")
	f.BoolVar(&cloneExcludeHG38, "exclude-hg38", false, "Exclude hg38 references and annotations")
	f.BoolVar(&cloneExcludeB37, "exclude-b37", false, "Exclude b37 references and annotations")
	f.BoolVar(&cloneExcludeGIAB, "exclude-giab", false, "Exclude GIAB concordance reads")
	f.BoolVar(&cloneAccelerate, "use-acceleration", false, "Use the S3 accelerate endpoint during copy operations")
	f.StringVar(&cloneLogFile, "log-file", "", "Optional path to capture AWS CLI output")
	cloneCmd.MarkFlagRequired("bucket-prefix")
}
