package migrator

import (
	"context"

	"github.com/dmitrijs2005/tokenmigrate/internal/models"
	"github.com/dmitrijs2005/tokenmigrate/internal/store"
	"github.com/dmitrijs2005/tokenmigrate/internal/tokenhash"
)

// Lookup finds the user whose stored hash for field matches token. The HMAC
// prefix narrows the candidates; each candidate hash is then verified.
// It returns store.ErrNotFound when no user matches.
func (e *Engine) Lookup(ctx context.Context, field models.TokenField, token string, secret []byte) (*models.User, error) {
	if token == "" {
		return nil, tokenhash.ErrEmptyToken
	}
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	cur, err := e.users.Find(ctx, store.Filter{
		PrefixField: field,
		Prefix:      tokenhash.LookupPrefix(token, secret),
	})
	if err != nil {
		return nil, unavailable(err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		u, err := cur.Value()
		if err != nil {
			e.logger.Warn(ctx, "candidate could not be decoded", "field", field.String(), "error", err)
			continue
		}
		h := u.Hash(field)
		if h == nil {
			continue
		}
		ok, err := e.hasher.Verify(*h, token)
		if err != nil {
			e.logger.Warn(ctx, "stored hash rejected", "user_id", u.ID, "field", field.String(), "error", err)
			continue
		}
		if ok {
			return &u, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := cur.Err(); err != nil {
		return nil, unavailable(err)
	}
	return nil, store.ErrNotFound
}
