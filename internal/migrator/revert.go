package migrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tokenmigrate/internal/metrics"
	"github.com/dmitrijs2005/tokenmigrate/internal/models"
	"github.com/dmitrijs2005/tokenmigrate/internal/store"
)

// Revert restores plaintext tokens from every backup and removes the hash
// and prefix fields. Report.Mutated is the number of backups applied.
// Backups are kept.
func (e *Engine) Revert(ctx context.Context) (*Report, error) {
	start := e.now()
	defer e.observe(metrics.OpRevert, start)

	log := e.logger.With("op", metrics.OpRevert)
	log.Info(ctx, "token revert started")

	cur, err := e.backups.Find(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	defer cur.Close(ctx)

	rep := newReport()
	for cur.Next(ctx) {
		rep.Scanned++
		b, err := cur.Value()
		if err != nil {
			e.skipUndecodable(ctx, metrics.OpRevert, err, rep)
			continue
		}
		e.revertBackup(ctx, &b, rep)
	}

	if err := ctx.Err(); err != nil {
		return rep, err
	}
	if err := cur.Err(); err != nil {
		log.Error(ctx, "backup cursor failed", "error", err, "reverted", rep.Mutated)
		return rep, unavailable(err)
	}

	log.Info(ctx, "token revert finished",
		"scanned", rep.Scanned, "reverted", rep.Mutated, "skipped", rep.Skipped, "failed", rep.Failed)
	return rep, nil
}

// restoreUpdate sets every captured value and clears all derived fields.
func restoreUpdate(s models.Snapshot) (models.Update, []models.TokenField) {
	upd := models.Update{Set: map[string]string{}}
	var fields []models.TokenField

	for _, f := range models.TokenFields {
		if v := s.Token(f); v != nil {
			upd.Set[f.String()] = *v
			fields = append(fields, f)
		}
		upd.Unset = append(upd.Unset, f.HashField(), f.PrefixField())
	}
	return upd, fields
}

func (e *Engine) revertBackup(ctx context.Context, b *models.Backup, rep *Report) {
	log := e.logger.With("op", metrics.OpRevert, "backup_id", b.ID, "user_id", b.OriginalUserID)

	if b.OriginalUserID == "" {
		rep.Skipped++
		e.metrics.Record(metrics.OpRevert, metrics.OutcomeSkipped)
		log.Warn(ctx, "backup has no user reference, skipped")
		return
	}
	if b.Original.Empty() {
		rep.Skipped++
		e.metrics.Record(metrics.OpRevert, metrics.OutcomeSkipped)
		log.Debug(ctx, "backup holds no token, skipped")
		return
	}

	upd, fields := restoreUpdate(b.Original)
	if err := e.users.Update(ctx, b.OriginalUserID, upd); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rep.Skipped++
			e.metrics.Record(metrics.OpRevert, metrics.OutcomeSkipped)
			log.Warn(ctx, "user no longer exists, backup skipped")
			return
		}
		rep.fail(fmt.Errorf("revert user %s from backup %s: %w", b.OriginalUserID, b.ID, err))
		e.metrics.Record(metrics.OpRevert, metrics.OutcomeFailed)
		log.Error(ctx, "user restore failed", "error", err)
		return
	}

	rep.Mutated++
	for _, f := range fields {
		rep.Fields[f]++
	}
	e.metrics.Record(metrics.OpRevert, metrics.OutcomeReverted)
	log.Debug(ctx, "user restored", "fields", len(fields))
}
