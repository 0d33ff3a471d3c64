// Package memory provides an in-process store implementation. It keeps
// insertion order so cursors are deterministic, and hands out copies so
// callers can never alias stored records.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/tokenmigrate/internal/models"
	"github.com/dmitrijs2005/tokenmigrate/internal/store"
	"github.com/google/uuid"
)

type Store struct {
	users   *Users
	backups *Backups
}

func New() *Store {
	return &Store{users: &Users{byID: map[string]*models.User{}}, backups: &Backups{}}
}

func (s *Store) Users() store.Users     { return s.users }
func (s *Store) Backups() store.Backups { return s.backups }

func (s *Store) Ping(context.Context) error  { return nil }
func (s *Store) Close(context.Context) error { return nil }

// Users is a concurrency-safe user collection.
type Users struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]*models.User
}

// Find snapshots the matching users at call time.
func (r *Users) Find(ctx context.Context, f store.Filter) (store.Cursor[models.User], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.User, 0, len(r.order))
	for _, id := range r.order {
		u := r.byID[id]
		if f.Match(u) {
			out = append(out, cloneUser(u))
		}
	}
	return store.NewSliceCursor(out), nil
}

func (r *Users) Get(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := cloneUser(u)
	return &c, nil
}

func (r *Users) Insert(_ context.Context, u *models.User) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := cloneUser(u)
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, ok := r.byID[c.ID]; ok {
		return "", fmt.Errorf("user %s already exists", c.ID)
	}
	r.byID[c.ID] = &c
	r.order = append(r.order, c.ID)
	return c.ID, nil
}

func (r *Users) Update(_ context.Context, id string, upd models.Update) error {
	if err := upd.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	return u.Apply(upd)
}

// Backups is an append-only backup collection.
type Backups struct {
	mu    sync.RWMutex
	items []models.Backup
}

func (r *Backups) Insert(_ context.Context, b *models.Backup) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *b
	c.ID = uuid.NewString()
	c.Original = cloneSnapshot(b.Original)
	r.items = append(r.items, c)
	return c.ID, nil
}

func (r *Backups) Find(context.Context) (store.Cursor[models.Backup], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Backup, len(r.items))
	for i, b := range r.items {
		out[i] = b
		out[i].Original = cloneSnapshot(b.Original)
	}
	return store.NewSliceCursor(out), nil
}

// Len returns the number of stored backups.
func (r *Backups) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func cloneUser(u *models.User) models.User {
	return models.User{
		ID:                               u.ID,
		EmailVerificationToken:           clonePtr(u.EmailVerificationToken),
		PasswordResetToken:               clonePtr(u.PasswordResetToken),
		EmailVerificationTokenHash:       clonePtr(u.EmailVerificationTokenHash),
		EmailVerificationTokenHmacPrefix: clonePtr(u.EmailVerificationTokenHmacPrefix),
		PasswordResetTokenHash:           clonePtr(u.PasswordResetTokenHash),
		PasswordResetTokenHmacPrefix:     clonePtr(u.PasswordResetTokenHmacPrefix),
	}
}

func cloneSnapshot(s models.Snapshot) models.Snapshot {
	return models.Snapshot{
		PasswordResetToken:     clonePtr(s.PasswordResetToken),
		EmailVerificationToken: clonePtr(s.EmailVerificationToken),
	}
}

func clonePtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
