package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tokenmigrate/internal/models"
	"github.com/dmitrijs2005/tokenmigrate/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type snapshotDoc struct {
	PasswordResetToken     *string `bson:"passwordResetToken,omitempty"`
	EmailVerificationToken *string `bson:"emailVerificationToken,omitempty"`
}

type backupDoc struct {
	ID             bson.RawValue `bson:"_id,omitempty"`
	OriginalUserID bson.RawValue `bson:"originalUserId,omitempty"`
	Original       snapshotDoc   `bson:"original"`
	MigratedAt     time.Time     `bson:"migratedAt"`
}

// Backups implements store.Backups over one collection.
type Backups struct {
	coll *mongo.Collection
}

func (r *Backups) Insert(ctx context.Context, b *models.Backup) (string, error) {
	doc := bson.D{
		{Key: "originalUserId", Value: idValue(b.OriginalUserID)},
		{Key: "original", Value: snapshotDoc{
			PasswordResetToken:     b.Original.PasswordResetToken,
			EmailVerificationToken: b.Original.EmailVerificationToken,
		}},
		{Key: "migratedAt", Value: b.MigratedAt.UTC()},
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}
	return idFromInserted(res.InsertedID), nil
}

func (r *Backups) Find(ctx context.Context) (store.Cursor[models.Backup], error) {
	opts := options.Find().SetSort(bson.D{{Key: "migratedAt", Value: 1}, {Key: "_id", Value: 1}})

	c, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &cursor[models.Backup]{c: c, decode: decodeBackup}, nil
}

func decodeBackup(c *mongo.Cursor) (models.Backup, error) {
	var d backupDoc
	if err := c.Decode(&d); err != nil {
		return models.Backup{}, fmt.Errorf("decode backup %s: %w", currentID(c), err)
	}
	return models.Backup{
		ID:             idString(d.ID),
		OriginalUserID: idString(d.OriginalUserID),
		Original: models.Snapshot{
			PasswordResetToken:     d.Original.PasswordResetToken,
			EmailVerificationToken: d.Original.EmailVerificationToken,
		},
		MigratedAt: d.MigratedAt,
	}, nil
}
