package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Daylily-Informatics/daylily-omics-references/internal/manager"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)

		var verr *manager.VerificationError
		if errors.As(err, &verr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
