package migrator

import (
	"github.com/dmitrijs2005/tokenmigrate/internal/models"
	"go.uber.org/multierr"
)

// Report summarises one run.
type Report struct {
	// Scanned counts records read from the cursor.
	Scanned int
	// Mutated counts users migrated, or backups applied by Revert. For Plan
	// it counts users that would be migrated.
	Mutated int
	// Skipped counts records that needed no write.
	Skipped int
	// Failed counts records left untouched because of a per-record error.
	Failed int
	// Fields counts migrated (or planned) tokens per field.
	Fields map[models.TokenField]int
	// Errors combines the per-record errors; see multierr.Errors.
	Errors error
	DryRun bool
}

func newReport() *Report {
	return &Report{Fields: map[models.TokenField]int{}}
}

func (r *Report) fail(err error) {
	r.Failed++
	r.Errors = multierr.Append(r.Errors, err)
}

// RecordErrors returns the per-record errors one by one.
func (r *Report) RecordErrors() []error {
	return multierr.Errors(r.Errors)
}
