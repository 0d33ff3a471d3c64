// Package store declares the persistence contract used by the token
// migration. Any backend that can stream records, insert one document and
// apply a set/unset update by identifier can satisfy it.
package store

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/tokenmigrate/internal/models"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable is returned when the backend cannot be reached.
	ErrUnavailable = errors.New("store unavailable")
)

// Cursor is a lazy, forward-only sequence of records.
//
//	for cur.Next(ctx) {
//	    v, err := cur.Value()
//	    if err != nil { ... } // this record only
//	}
//	if err := cur.Err(); err != nil { ... }
//
// Value reports a record that could not be decoded. Iteration continues
// past it. Err reports failures of the iteration itself, after which Next
// keeps returning false.
type Cursor[T any] interface {
	Next(ctx context.Context) bool
	Value() (T, error)
	Err() error
	Close(ctx context.Context) error
}

// Filter selects users. A zero Filter matches every user.
type Filter struct {
	// AnyPlaintext matches users carrying at least one of these legacy fields.
	AnyPlaintext []models.TokenField

	// PrefixField and Prefix restrict the result to users whose lookup
	// prefix for PrefixField equals Prefix.
	PrefixField models.TokenField
	Prefix      string
}

// Match evaluates the filter against u in memory.
func (f Filter) Match(u *models.User) bool {
	if len(f.AnyPlaintext) > 0 {
		found := false
		for _, field := range f.AnyPlaintext {
			if u.Token(field) != nil {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.PrefixField != "" {
		p := u.Prefix(f.PrefixField)
		if p == nil || *p != f.Prefix {
			return false
		}
	}
	return true
}

// Users is the user collection.
type Users interface {
	Find(ctx context.Context, f Filter) (Cursor[models.User], error)
	Get(ctx context.Context, id string) (*models.User, error)
	// Insert stores u and returns its identifier, generating one if u.ID is empty.
	Insert(ctx context.Context, u *models.User) (string, error)
	// Update applies upd to the user with the given id, or returns ErrNotFound.
	Update(ctx context.Context, id string, upd models.Update) error
}

// Backups is the migration backup collection.
type Backups interface {
	// Insert durably stores b and returns its generated identifier.
	Insert(ctx context.Context, b *models.Backup) (string, error)
	Find(ctx context.Context) (Cursor[models.Backup], error)
}

// Store bundles both collections of one backend.
type Store interface {
	Users() Users
	Backups() Backups
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
