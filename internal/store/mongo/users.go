package mongo

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/tokenmigrate/internal/models"
	"github.com/dmitrijs2005/tokenmigrate/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type userDoc struct {
	ID bson.RawValue `bson:"_id"`

	EmailVerificationToken *string `bson:"emailVerificationToken,omitempty"`
	PasswordResetToken     *string `bson:"passwordResetToken,omitempty"`

	EmailVerificationTokenHash       *string `bson:"emailVerificationTokenHash,omitempty"`
	EmailVerificationTokenHmacPrefix *string `bson:"emailVerificationTokenHmacPrefix,omitempty"`
	PasswordResetTokenHash           *string `bson:"passwordResetTokenHash,omitempty"`
	PasswordResetTokenHmacPrefix     *string `bson:"passwordResetTokenHmacPrefix,omitempty"`
}

func (d userDoc) model() models.User {
	return models.User{
		ID:                               idString(d.ID),
		EmailVerificationToken:           d.EmailVerificationToken,
		PasswordResetToken:               d.PasswordResetToken,
		EmailVerificationTokenHash:       d.EmailVerificationTokenHash,
		EmailVerificationTokenHmacPrefix: d.EmailVerificationTokenHmacPrefix,
		PasswordResetTokenHash:           d.PasswordResetTokenHash,
		PasswordResetTokenHmacPrefix:     d.PasswordResetTokenHmacPrefix,
	}
}

// Users implements store.Users over one collection.
type Users struct {
	coll *mongo.Collection
}

func (r *Users) Find(ctx context.Context, f store.Filter) (store.Cursor[models.User], error) {
	c, err := r.coll.Find(ctx, buildFilter(f))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &cursor[models.User]{c: c, decode: decodeUser}, nil
}

func decodeUser(c *mongo.Cursor) (models.User, error) {
	var d userDoc
	if err := c.Decode(&d); err != nil {
		return models.User{}, fmt.Errorf("decode user %s: %w", currentID(c), err)
	}
	return d.model(), nil
}

// buildFilter translates f into a query document. Absent and null fields
// are both treated as missing.
func buildFilter(f store.Filter) bson.M {
	q := bson.M{}
	if len(f.AnyPlaintext) > 0 {
		or := make(bson.A, 0, len(f.AnyPlaintext))
		for _, field := range f.AnyPlaintext {
			or = append(or, bson.M{string(field): bson.M{"$ne": nil}})
		}
		q["$or"] = or
	}
	if f.PrefixField != "" {
		q[f.PrefixField.PrefixField()] = f.Prefix
	}
	return q
}

func (r *Users) Get(ctx context.Context, id string) (*models.User, error) {
	var d userDoc
	err := r.coll.FindOne(ctx, idFilter(id)).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	u := d.model()
	return &u, nil
}

func (r *Users) Insert(ctx context.Context, u *models.User) (string, error) {
	doc := bson.D{}
	if u.ID != "" {
		doc = append(doc, bson.E{Key: "_id", Value: idValue(u.ID)})
	}
	for _, name := range models.UserFields {
		if v := u.Value(name); v != nil {
			doc = append(doc, bson.E{Key: name, Value: *v})
		}
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}
	return idFromInserted(res.InsertedID), nil
}

func (r *Users) Update(ctx context.Context, id string, upd models.Update) error {
	if err := upd.Validate(); err != nil {
		return err
	}
	if upd.IsEmpty() {
		return nil
	}

	res, err := r.coll.UpdateOne(ctx, idFilter(id), buildUpdate(upd))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// buildUpdate renders upd as one $set/$unset document.
func buildUpdate(upd models.Update) bson.D {
	var out bson.D

	if len(upd.Set) > 0 {
		names := make([]string, 0, len(upd.Set))
		for name := range upd.Set {
			names = append(names, name)
		}
		sort.Strings(names)

		set := bson.D{}
		for _, name := range names {
			set = append(set, bson.E{Key: name, Value: upd.Set[name]})
		}
		out = append(out, bson.E{Key: "$set", Value: set})
	}

	if len(upd.Unset) > 0 {
		unset := bson.D{}
		for _, name := range upd.Unset {
			unset = append(unset, bson.E{Key: name, Value: ""})
		}
		out = append(out, bson.E{Key: "$unset", Value: unset})
	}

	return out
}
