package main

import (
	"github.com/spf13/cobra"

	"github.com/Daylily-Informatics/daylily-omics-references/internal/manager"
	"github.com/Daylily-Informatics/daylily-omics-references/internal/refdata"
)

var (
	verifyBucket      string
	verifyVersion     string
	verifyExcludeHG38 bool
	verifyExcludeB37  bool
	verifyExcludeGIAB bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify that a reference bucket matches expectations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		m, err := newManager(ctx, "")
		if err != nil {
			return err
		}

		return m.Verify(ctx, manager.VerifyParams{
			Bucket:          verifyBucket,
			ExpectedVersion: verifyVersion,
			Include:         selection(verifyExcludeHG38, verifyExcludeB37, verifyExcludeGIAB),
		})
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	f := verifyCmd.Flags()
	f.StringVar(&verifyBucket, "bucket", "", "Name of the bucket to verify")
	f.StringVar(&verifyVersion, "version", refdata.DefaultVersion, "Expected reference data version")
	f.BoolVar(&verifyExcludeHG38, "exclude-hg38", false, "Skip checking hg38 references")
	f.BoolVar(&verifyExcludeB37, "exclude-b37", false, "Skip checking b37 references")
	f.BoolVar(&verifyExcludeGIAB, "exclude-giab", false, "Skip checking GIAB reads")
	verifyCmd.MarkFlagRequired("bucket")
}
