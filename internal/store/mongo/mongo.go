// Package mongo implements the store contract on MongoDB. Users live in the
// "users" collection with camelCase field names and backups in
// "migrationbackups". User identifiers may be ObjectIDs or plain strings.
package mongo

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/tokenmigrate/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersCollection   = "users"
	BackupsCollection = "migrationbackups"
)

type Store struct {
	client  *mongo.Client
	users   *Users
	backups *Backups
}

// Open connects to uri and binds both collections of database db.
func Open(ctx context.Context, uri, db string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	s := New(client, client.Database(db))
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// New binds the collections of db. The client is only used for Ping and Close.
func New(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		client:  client,
		users:   &Users{coll: db.Collection(UsersCollection)},
		backups: &Backups{coll: db.Collection(BackupsCollection)},
	}
}

func (s *Store) Users() store.Users     { return s.users }
func (s *Store) Backups() store.Backups { return s.backups }

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// idString renders a stored identifier the way it is handed to callers.
func idString(raw bson.RawValue) string {
	if raw.Type == 0 || raw.Type == bsontype.Null {
		return ""
	}
	if oid, ok := raw.ObjectIDOK(); ok {
		return oid.Hex()
	}
	if s, ok := raw.StringValueOK(); ok {
		return s
	}
	return raw.String()
}

func idFromInserted(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	}
	return fmt.Sprint(v)
}

// idValue is the inverse of idString for values we write.
func idValue(id string) any {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

// idFilter matches id whether it was stored as an ObjectID or as a string.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{oid, id}}}
	}
	return bson.M{"_id": id}
}

// cursor adapts *mongo.Cursor to store.Cursor. A document that fails to
// decode is reported by Value and does not end iteration.
type cursor[T any] struct {
	c      *mongo.Cursor
	decode func(*mongo.Cursor) (T, error)
	cur    T
	docErr error
	err    error
}

func (c *cursor[T]) Next(ctx context.Context) bool {
	var zero T
	c.cur, c.docErr = zero, nil

	if c.err != nil {
		return false
	}
	if !c.c.Next(ctx) {
		c.err = c.c.Err()
		return false
	}
	c.cur, c.docErr = c.decode(c.c)
	return true
}

func (c *cursor[T]) Value() (T, error) { return c.cur, c.docErr }

func (c *cursor[T]) Err() error { return c.err }

func (c *cursor[T]) Close(ctx context.Context) error { return c.c.Close(ctx) }

// currentID names the current document in decode errors.
func currentID(c *mongo.Cursor) string {
	if s := idString(c.Current.Lookup("_id")); s != "" {
		return s
	}
	return "?"
}
