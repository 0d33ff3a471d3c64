package migrator

import (
	"context"

	"github.com/dmitrijs2005/tokenmigrate/internal/metrics"
	"github.com/dmitrijs2005/tokenmigrate/internal/models"
)

// Plan walks the same selection as Migrate and reports what it would do.
// Nothing is hashed and nothing is written.
func (e *Engine) Plan(ctx context.Context) (*Report, error) {
	start := e.now()
	defer e.observe(metrics.OpPlan, start)

	cur, err := e.users.Find(ctx, plaintextFilter)
	if err != nil {
		return nil, unavailable(err)
	}
	defer cur.Close(ctx)

	rep := newReport()
	rep.DryRun = true

	for cur.Next(ctx) {
		rep.Scanned++
		u, err := cur.Value()
		if err != nil {
			e.skipUndecodable(ctx, metrics.OpPlan, err, rep)
			continue
		}

		n := 0
		for _, f := range models.TokenFields {
			if tok := u.Token(f); tok != nil && *tok != "" {
				rep.Fields[f]++
				n++
			}
		}
		if n == 0 {
			rep.Skipped++
			e.metrics.Record(metrics.OpPlan, metrics.OutcomeSkipped)
			continue
		}
		rep.Mutated++
		e.metrics.Record(metrics.OpPlan, metrics.OutcomePlanned)
	}

	if err := ctx.Err(); err != nil {
		return rep, err
	}
	if err := cur.Err(); err != nil {
		return rep, unavailable(err)
	}

	e.logger.Info(ctx, "dry run finished", "op", metrics.OpPlan,
		"scanned", rep.Scanned, "would_migrate", rep.Mutated, "skipped", rep.Skipped, "failed", rep.Failed)
	return rep, nil
}
