package migrator

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/tokenmigrate/internal/metrics"
	"github.com/dmitrijs2005/tokenmigrate/internal/models"
	"github.com/dmitrijs2005/tokenmigrate/internal/store"
	"github.com/dmitrijs2005/tokenmigrate/internal/tokenhash"
)

// plaintextFilter selects every user still carrying a legacy token field.
var plaintextFilter = store.Filter{AnyPlaintext: models.TokenFields}

// Migrate hashes the plaintext tokens of every selected user. Report.Mutated
// is the number of users changed, not the number of fields.
//
// Per user the order is: hash all present fields, insert one backup of both
// legacy values, then apply one combined update that sets hash and prefix
// and removes the plaintext. A user is never updated without a backup.
func (e *Engine) Migrate(ctx context.Context, secret []byte) (*Report, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	start := e.now()
	defer e.observe(metrics.OpMigrate, start)

	log := e.logger.With("op", metrics.OpMigrate)
	log.Info(ctx, "token migration started")

	cur, err := e.users.Find(ctx, plaintextFilter)
	if err != nil {
		return nil, unavailable(err)
	}
	defer cur.Close(ctx)

	rep := newReport()
	for cur.Next(ctx) {
		rep.Scanned++
		u, err := cur.Value()
		if err != nil {
			e.skipUndecodable(ctx, metrics.OpMigrate, err, rep)
			continue
		}
		e.migrateUser(ctx, &u, secret, rep)
	}

	if err := ctx.Err(); err != nil {
		return rep, err
	}
	if err := cur.Err(); err != nil {
		log.Error(ctx, "user cursor failed", "error", err, "migrated", rep.Mutated)
		return rep, unavailable(err)
	}

	log.Info(ctx, "token migration finished",
		"scanned", rep.Scanned, "migrated", rep.Mutated, "skipped", rep.Skipped, "failed", rep.Failed)
	return rep, nil
}

// skipUndecodable records a record the cursor could not decode.
func (e *Engine) skipUndecodable(ctx context.Context, op string, err error, rep *Report) {
	rep.fail(fmt.Errorf("%w: %w", ErrDecode, err))
	e.metrics.Record(op, metrics.OutcomeFailed)
	e.logger.Error(ctx, "record could not be decoded, skipped", "op", op, "error", err)
}

func (e *Engine) migrateUser(ctx context.Context, u *models.User, secret []byte, rep *Report) {
	log := e.logger.With("op", metrics.OpMigrate, "user_id", u.ID)

	upd, fields, err := e.stage(u, secret)
	if err != nil {
		rep.fail(fmt.Errorf("user %s: %w", u.ID, err))
		e.metrics.Record(metrics.OpMigrate, metrics.OutcomeFailed)
		log.Error(ctx, "token hashing failed, user left unmigrated", "error", err)
		return
	}

	if upd.IsEmpty() {
		rep.Skipped++
		e.metrics.Record(metrics.OpMigrate, metrics.OutcomeSkipped)
		log.Debug(ctx, "no token to migrate")
		return
	}

	backupID, err := e.backups.Insert(ctx, &models.Backup{
		OriginalUserID: u.ID,
		Original:       models.SnapshotOf(u),
		MigratedAt:     e.now().UTC(),
	})
	if err != nil {
		rep.fail(fmt.Errorf("%w: user %s: %w", ErrBackupWrite, u.ID, err))
		e.metrics.Record(metrics.OpMigrate, metrics.OutcomeFailed)
		log.Error(ctx, "backup insert failed, user left unmigrated", "error", err)
		return
	}

	if err := e.users.Update(ctx, u.ID, upd); err != nil {
		rep.fail(fmt.Errorf("%w: user %s, backup %s: %w", ErrPartialWrite, u.ID, backupID, err))
		e.metrics.Record(metrics.OpMigrate, metrics.OutcomePartial)
		log.Error(ctx, "user update failed after backup", "backup_id", backupID, "error", err)
		return
	}

	rep.Mutated++
	for _, f := range fields {
		rep.Fields[f]++
	}
	e.metrics.Record(metrics.OpMigrate, metrics.OutcomeMigrated)
	log.Debug(ctx, "user migrated", "backup_id", backupID, "fields", len(fields))
}

// stage computes the update for u without touching the store. Empty token
// values are treated as absent.
func (e *Engine) stage(u *models.User, secret []byte) (models.Update, []models.TokenField, error) {
	upd := models.Update{Set: map[string]string{}}
	var fields []models.TokenField

	for _, f := range models.TokenFields {
		tok := u.Token(f)
		if tok == nil || *tok == "" {
			continue
		}

		hash, err := e.hasher.Hash(*tok)
		if err != nil {
			return models.Update{}, nil, fmt.Errorf("%w: %s: %w", ErrHashing, f, err)
		}

		upd.Set[f.HashField()] = hash
		upd.Set[f.PrefixField()] = tokenhash.LookupPrefix(*tok, secret)
		upd.Unset = append(upd.Unset, f.String())
		fields = append(fields, f)
	}

	return upd, fields, nil
}
