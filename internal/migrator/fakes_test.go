package migrator

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/tokenmigrate/internal/logging"
	"github.com/dmitrijs2005/tokenmigrate/internal/models"
	"github.com/dmitrijs2005/tokenmigrate/internal/store"
	"github.com/dmitrijs2005/tokenmigrate/internal/store/memory"
	"github.com/dmitrijs2005/tokenmigrate/internal/tokenhash"
	"github.com/stretchr/testify/require"
)

var (
	testSecret = []byte("s3cr3t")
	testNow    = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
)

func testHasher(t *testing.T) *tokenhash.Hasher {
	t.Helper()
	h, err := tokenhash.New(tokenhash.Params{
		MemoryKiB: tokenhash.MinMemoryKiB, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	})
	require.NoError(t, err)
	return h
}

func testLogger() (logging.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return logging.NewSlogLogger(slog.New(h)), &buf
}

// journal records store writes in call order.
type journal struct {
	mu  sync.Mutex
	ops []string
}

func (j *journal) add(op string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ops = append(j.ops, op)
}

// faultyUsers wraps store.Users with injectable failures.
type faultyUsers struct {
	store.Users
	j         *journal
	findErr   error
	cursorErr error
	failAfter int
	updateErr map[string]error
	// undecodable makes the cursor report these users as unreadable.
	undecodable map[string]error
}

func (f *faultyUsers) Find(ctx context.Context, flt store.Filter) (store.Cursor[models.User], error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	cur, err := f.Users.Find(ctx, flt)
	if err != nil {
		return nil, err
	}
	if len(f.undecodable) > 0 {
		cur = &corruptCursor[models.User]{Cursor: cur, bad: func(u models.User) error { return f.undecodable[u.ID] }}
	}
	if f.cursorErr != nil {
		cur = &failingCursor[models.User]{Cursor: cur, after: f.failAfter, err: f.cursorErr}
	}
	return cur, nil
}

func (f *faultyUsers) Update(ctx context.Context, id string, upd models.Update) error {
	if f.j != nil {
		f.j.add("update:" + id)
	}
	if err, ok := f.updateErr[id]; ok {
		return err
	}
	return f.Users.Update(ctx, id, upd)
}

type faultyBackups struct {
	store.Backups
	j         *journal
	insertErr map[string]error
	findErr   error
}

func (f *faultyBackups) Insert(ctx context.Context, b *models.Backup) (string, error) {
	if f.j != nil {
		f.j.add("backup:" + b.OriginalUserID)
	}
	if err, ok := f.insertErr[b.OriginalUserID]; ok {
		return "", err
	}
	return f.Backups.Insert(ctx, b)
}

func (f *faultyBackups) Find(ctx context.Context) (store.Cursor[models.Backup], error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.Backups.Find(ctx)
}

// failingCursor yields `after` values and then fails.
type failingCursor[T any] struct {
	store.Cursor[T]
	after int
	seen  int
	err   error
	done  bool
}

func (c *failingCursor[T]) Next(ctx context.Context) bool {
	if c.seen >= c.after {
		c.done = true
		return false
	}
	if !c.Cursor.Next(ctx) {
		return false
	}
	c.seen++
	return true
}

func (c *failingCursor[T]) Err() error {
	if c.done {
		return c.err
	}
	return c.Cursor.Err()
}

// corruptCursor reports a decode error for every value bad rejects.
type corruptCursor[T any] struct {
	store.Cursor[T]
	bad func(T) error
}

func (c *corruptCursor[T]) Value() (T, error) {
	v, err := c.Cursor.Value()
	if err != nil {
		return v, err
	}
	if err := c.bad(v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

type failingHasher struct {
	*tokenhash.Hasher
	failOn string
}

func (h failingHasher) Hash(token string) (string, error) {
	if token == h.failOn {
		return "", errors.New("out of memory")
	}
	return h.Hasher.Hash(token)
}

type fixture struct {
	store   *memory.Store
	users   *faultyUsers
	backups *faultyBackups
	journal *journal
	logs    *bytes.Buffer
	engine  *Engine
}

func newFixture(t *testing.T, hasher Hasher, opts ...Option) *fixture {
	t.Helper()
	if hasher == nil {
		hasher = testHasher(t)
	}

	s := memory.New()
	j := &journal{}
	users := &faultyUsers{Users: s.Users(), j: j, updateErr: map[string]error{}, undecodable: map[string]error{}}
	backups := &faultyBackups{Backups: s.Backups(), j: j, insertErr: map[string]error{}}
	logger, buf := testLogger()

	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return &fixture{
		store:   s,
		users:   users,
		backups: backups,
		journal: j,
		logs:    buf,
		engine:  New(users, backups, hasher, logger, opts...),
	}
}

func (f *fixture) seed(t *testing.T, users ...models.User) {
	t.Helper()
	for i := range users {
		_, err := f.store.Users().Insert(context.Background(), &users[i])
		require.NoError(t, err)
	}
}

func (f *fixture) user(t *testing.T, id string) *models.User {
	t.Helper()
	u, err := f.store.Users().Get(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (f *fixture) allBackups(t *testing.T) []models.Backup {
	t.Helper()
	ctx := context.Background()
	cur, err := f.store.Backups().Find(ctx)
	require.NoError(t, err)
	defer cur.Close(ctx)

	var out []models.Backup
	for cur.Next(ctx) {
		b, err := cur.Value()
		require.NoError(t, err)
		out = append(out, b)
	}
	require.NoError(t, cur.Err())
	return out
}
