package cli

import (
	"fmt"
	"io"

	"github.com/dmitrijs2005/tokenmigrate/internal/migrator"
	"github.com/dmitrijs2005/tokenmigrate/internal/models"
)

func printReport(w io.Writer, verb string, rep *migrator.Report) {
	if rep.DryRun {
		fmt.Fprintf(w, "dry run: %d users would be migrated (%d scanned, %d skipped)\n", rep.Mutated, rep.Scanned, rep.Skipped)
	} else {
		fmt.Fprintf(w, "%s %d users (%d scanned, %d skipped, %d failed)\n", verb, rep.Mutated, rep.Scanned, rep.Skipped, rep.Failed)
	}
	for _, f := range models.TokenFields {
		if n := rep.Fields[f]; n > 0 {
			fmt.Fprintf(w, "  %s: %d\n", f, n)
		}
	}
	for _, err := range rep.RecordErrors() {
		fmt.Fprintf(w, "  error: %v\n", err)
	}
}
