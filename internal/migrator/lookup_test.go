package migrator

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/tokenmigrate/internal/models"
	"github.com/dmitrijs2005/tokenmigrate/internal/store"
	"github.com/dmitrijs2005/tokenmigrate/internal/tokenhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.seed(t,
		models.User{ID: "u1", EmailVerificationToken: p("abc123")},
		models.User{ID: "u2", PasswordResetToken: p("abc123")},
		models.User{ID: "u3", EmailVerificationToken: p("zzz999")},
	)
	_, err := f.engine.Migrate(ctx, testSecret)
	require.NoError(t, err)

	tests := []struct {
		name    string
		field   models.TokenField
		token   string
		secret  []byte
		wantID  string
		wantErr error
	}{
		{"email token", models.EmailVerificationToken, "abc123", testSecret, "u1", nil},
		{"reset token", models.PasswordResetToken, "abc123", testSecret, "u2", nil},
		{"wrong token", models.EmailVerificationToken, "abc124", testSecret, "", store.ErrNotFound},
		{"wrong secret", models.EmailVerificationToken, "abc123", []byte("other"), "", store.ErrNotFound},
		{"empty token", models.EmailVerificationToken, "", testSecret, "", tokenhash.ErrEmptyToken},
		{"empty secret", models.EmailVerificationToken, "abc123", nil, "", ErrEmptySecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := f.engine.Lookup(ctx, tt.field, tt.token, tt.secret)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, u)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, u.ID)
		})
	}
}

func TestLookup_SkipsCorruptHash(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	prefix := tokenhash.LookupPrefix("abc123", testSecret)
	f.seed(t,
		models.User{ID: "bad", EmailVerificationTokenHash: p("not-a-phc-string"), EmailVerificationTokenHmacPrefix: p(prefix)},
		models.User{ID: "good", EmailVerificationToken: p("abc123")},
	)
	_, err := f.engine.Migrate(ctx, testSecret)
	require.NoError(t, err)

	u, err := f.engine.Lookup(ctx, models.EmailVerificationToken, "abc123", testSecret)
	require.NoError(t, err)
	assert.Equal(t, "good", u.ID)
	assert.Contains(t, f.logs.String(), "stored hash rejected")
}
