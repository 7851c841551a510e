package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Daylily-Informatics/daylily-omics-references/internal/manager"
	"github.com/Daylily-Informatics/daylily-omics-references/internal/refdata"
	"github.com/Daylily-Informatics/daylily-omics-references/internal/run"
)

var (
	ensureBucketPrefix string
	ensureVersion      string
	ensureExecute      bool
	ensureNoCreate     bool
	ensureExcludeHG38  bool
	ensureExcludeB37   bool
	ensureExcludeGIAB  bool
	ensureAccelerate   bool
	ensureLogFile      string
)

var ensureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Verify a bucket exists and matches expectations, cloning it if missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRegion(); err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		m, err := newManager(ctx, ensureLogFile)
		if err != nil {
			return err
		}

		bucket, err := m.Ensure(ctx, manager.EnsureParams{
			BucketPrefix:  ensureBucketPrefix,
			Region:        cfg.AWS.Region,
			Version:       ensureVersion,
			Include:       selection(ensureExcludeHG38, ensureExcludeB37, ensureExcludeGIAB),
			Accelerate:    ensureAccelerate,
			Mode:          run.FromExecute(ensureExecute),
			CreateMissing: !ensureNoCreate,
		})
		if err != nil {
			return err
		}

		fmt.Println(bucket)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ensureCmd)

	f := ensureCmd.Flags()
	f.StringVar(&ensureBucketPrefix, "bucket-prefix", "", "Prefix for the target bucket")
	f.StringVar(&ensureVersion, "version", refdata.DefaultVersion, "Expected reference data version")
	f.BoolVar(&ensureExecute, "execute", false, "Create the bucket if missing (otherwise a dry-run is performed)")
	f.BoolVar(&ensureNoCreate, "no-create", false, "Fail if the bucket is missing instead of creating it")
	f.BoolVar(&ensureExcludeHG38, "exclude-hg38", false, "Skip cloning and verification of hg38 references")
	f.BoolVar(&ensureExcludeB37, "exclude-b37", false, "Skip cloning and verification of b37 references")
	f.BoolVar(&ensureExcludeGIAB, "exclude-giab", false, "Skip cloning and verification of GIAB reads")
	f.BoolVar(&ensureAccelerate, "use-acceleration", false, "Use the S3 accelerate endpoint during clone operations")
	f.StringVar(&ensureLogFile, "log-file", "", "Optional path to capture AWS CLI output when cloning")
	ensureCmd.MarkFlagRequired("bucket-prefix")
}
