package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/dmitrijs2005/tokenmigrate/internal/app"
	"github.com/dmitrijs2005/tokenmigrate/internal/config"
	"github.com/dmitrijs2005/tokenmigrate/internal/models"
	"github.com/dmitrijs2005/tokenmigrate/internal/store/memory"
	"github.com/dmitrijs2005/tokenmigrate/internal/tokenhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	cfg   *config.Config
	store *memory.Store
}

func newHarness(t *testing.T, users ...models.User) *harness {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.StoreDriver = config.DriverMemory
	cfg.LogFormat = "text"
	cfg.LogLevel = "error"
	cfg.Argon2MemoryKiB = tokenhash.MinMemoryKiB
	cfg.Argon2Iterations = 1
	cfg.Argon2Parallelism = 1

	s := memory.New()
	for i := range users {
		_, err := s.Users().Insert(context.Background(), &users[i])
		require.NoError(t, err)
	}

	origLoad, origNew := loadConfig, newApp
	t.Cleanup(func() { loadConfig, newApp = origLoad, origNew })
	loadConfig = func() *config.Config { return cfg }
	newApp = func(_ context.Context, c *config.Config, w io.Writer) (*app.App, error) {
		return app.NewWithStore(c, s, w)
	}

	return &harness{cfg: cfg, store: s}
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand(strings.NewReader(stdin), &out, &errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) user(t *testing.T, id string) *models.User {
	t.Helper()
	u, err := h.store.Users().Get(context.Background(), id)
	require.NoError(t, err)
	return u
}

func TestMigrateCommand(t *testing.T) {
	h := newHarness(t,
		models.User{ID: "u1", EmailVerificationToken: models.StringPtr("abc123")},
		models.User{ID: "u2", PasswordResetToken: models.StringPtr("r2")},
	)
	h.cfg.HMACSecret = "secret"

	out, err := h.run(t, "", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrated 2 users")
	assert.Contains(t, out, "emailVerificationToken: 1")
	assert.Contains(t, out, "passwordResetToken: 1")
	assert.Nil(t, h.user(t, "u1").EmailVerificationToken)
}

func TestMigrateCommand_PromptsForSecret(t *testing.T) {
	h := newHarness(t, models.User{ID: "u1", EmailVerificationToken: models.StringPtr("abc123")})

	_, err := h.run(t, "piped-secret\n", "migrate")
	require.NoError(t, err)

	want := tokenhash.LookupPrefix("abc123", []byte("piped-secret"))
	assert.Equal(t, want, *h.user(t, "u1").EmailVerificationTokenHmacPrefix)
}

func TestMigrateCommand_NoSecret(t *testing.T) {
	h := newHarness(t, models.User{ID: "u1", EmailVerificationToken: models.StringPtr("abc123")})

	_, err := h.run(t, "", "migrate")
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Equal(t, "abc123", *h.user(t, "u1").EmailVerificationToken)
}

func TestMigrateCommand_DryRun(t *testing.T) {
	h := newHarness(t, models.User{ID: "u1", EmailVerificationToken: models.StringPtr("abc123")})
	h.cfg.DryRun = true

	out, err := h.run(t, "", "migrate", "-n")
	require.NoError(t, err)
	assert.Contains(t, out, "dry run: 1 users would be migrated")
	assert.Equal(t, "abc123", *h.user(t, "u1").EmailVerificationToken)
}

func TestRevertCommand(t *testing.T) {
	h := newHarness(t, models.User{ID: "u1", PasswordResetToken: models.StringPtr("r1")})
	h.cfg.HMACSecret = "secret"

	_, err := h.run(t, "", "migrate")
	require.NoError(t, err)

	out, err := h.run(t, "", "revert")
	require.NoError(t, err)
	assert.Contains(t, out, "reverted 1 users")
	assert.Equal(t, "r1", *h.user(t, "u1").PasswordResetToken)
}

func TestLookupCommand(t *testing.T) {
	h := newHarness(t, models.User{ID: "u1", EmailVerificationToken: models.StringPtr("abc123")})
	h.cfg.HMACSecret = "secret"
	_, err := h.run(t, "", "migrate")
	require.NoError(t, err)

	out, err := h.run(t, "", "lookup", "emailVerificationToken", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "u1\n", out)

	_, err = h.run(t, "", "lookup", "emailVerificationToken", "nope")
	assert.ErrorContains(t, err, "no user holds this token")

	_, err = h.run(t, "", "lookup", "password", "abc123")
	assert.Error(t, err)

	_, err = h.run(t, "", "lookup")
	assert.ErrorContains(t, err, "usage")
}

func TestLookupCommand_PromptsForTokenAndSecret(t *testing.T) {
	h := newHarness(t, models.User{ID: "u1", PasswordResetToken: models.StringPtr("abc123")})
	h.cfg.HMACSecret = "secret"
	_, err := h.run(t, "", "migrate")
	require.NoError(t, err)

	h.cfg.HMACSecret = ""
	out, err := h.run(t, "abc123\nsecret\n", "lookup", "-l", "debug", "passwordResetToken")
	require.NoError(t, err)
	assert.Equal(t, "u1\n", out)
}

func TestCommandHelp(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "", "migrate", "-h")
	require.NoError(t, err)
	assert.Contains(t, out, "argon2id hash")
	assert.Contains(t, out, "TOKENMIGRATE_")
}
