package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tokenmigrate/internal/app"
	"github.com/dmitrijs2005/tokenmigrate/internal/config"
	"github.com/dmitrijs2005/tokenmigrate/internal/models"
	"github.com/dmitrijs2005/tokenmigrate/internal/store"
)

// ErrRecordsFailed is returned when a run finished but some records failed.
var ErrRecordsFailed = errors.New("some records failed")

func (r *runner) secret(cfg *config.Config) ([]byte, error) {
	if cfg.HMACSecret != "" {
		return []byte(cfg.HMACSecret), nil
	}
	return r.prompt("HMAC secret")
}

func (r *runner) migrate(ctx context.Context, a *app.App, cfg *config.Config, _ []string) error {
	var secret []byte
	if !cfg.DryRun {
		s, err := r.secret(cfg)
		if err != nil {
			return fmt.Errorf("read secret: %w", err)
		}
		secret = s
	}

	rep, err := a.Migrate(ctx, secret)
	if rep != nil {
		printReport(r.out, "migrated", rep)
	}
	if err != nil {
		return err
	}
	if rep.Failed > 0 {
		return fmt.Errorf("%w: %d", ErrRecordsFailed, rep.Failed)
	}
	return nil
}

func (r *runner) revert(ctx context.Context, a *app.App, _ *config.Config, _ []string) error {
	rep, err := a.Revert(ctx)
	if rep != nil {
		printReport(r.out, "reverted", rep)
	}
	if err != nil {
		return err
	}
	if rep.Failed > 0 {
		return fmt.Errorf("%w: %d", ErrRecordsFailed, rep.Failed)
	}
	return nil
}

func (r *runner) lookup(ctx context.Context, a *app.App, cfg *config.Config, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: lookup <field> [token]")
	}
	field, err := models.ParseTokenField(args[0])
	if err != nil {
		return err
	}

	var token string
	if len(args) == 2 {
		token = args[1]
	} else {
		t, err := r.prompt("Token")
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		token = string(t)
	}

	secret, err := r.secret(cfg)
	if err != nil {
		return fmt.Errorf("read secret: %w", err)
	}

	u, err := a.Lookup(ctx, field, token, secret)
	if errors.Is(err, store.ErrNotFound) {
		return errors.New("no user holds this token")
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, u.ID)
	return nil
}

func (r *runner) archive(ctx context.Context, a *app.App, _ *config.Config, _ []string) error {
	res, err := a.Archive(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "archived %d backups to s3://%s/%s\n", res.Count, res.Bucket, res.Key)
	if res.Skipped > 0 {
		fmt.Fprintf(r.out, "skipped %d unreadable backups\n", res.Skipped)
	}
	return nil
}
