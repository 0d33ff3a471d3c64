// Package archive exports the migration backups as one encrypted object to
// S3-compatible storage. The backups hold plaintext tokens, so the archive
// is sealed with a key derived from an operator passphrase.
package archive

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/tokenmigrate/internal/cryptox"
	"github.com/dmitrijs2005/tokenmigrate/internal/logging"
	"github.com/dmitrijs2005/tokenmigrate/internal/models"
	"github.com/dmitrijs2005/tokenmigrate/internal/store"
	"github.com/oklog/ulid/v2"
)

// KeyPrefix is the object key prefix of every archive.
const KeyPrefix = "token-backups"

var (
	ErrNoPassphrase = errors.New("archive passphrase is not set")
	ErrNoBucket     = errors.New("archive bucket is not set")
)

// Envelope is the stored object. Ciphertext is the AES-GCM sealed JSON array
// of backups.
type Envelope struct {
	Salt       []byte    `json:"salt"`
	Nonce      []byte    `json:"nonce"`
	Ciphertext []byte    `json:"ciphertext"`
	Count      int       `json:"count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Uploader is the subset of *s3.Client used by Exporter.
type Uploader interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Exporter struct {
	backups    store.Backups
	uploader   Uploader
	bucket     string
	passphrase []byte
	logger     logging.Logger
	now        func() time.Time
}

func NewExporter(backups store.Backups, uploader Uploader, bucket string, passphrase []byte, logger logging.Logger) *Exporter {
	return &Exporter{
		backups:    backups,
		uploader:   uploader,
		bucket:     bucket,
		passphrase: passphrase,
		logger:     logger,
		now:        time.Now,
	}
}

// Result describes an uploaded archive.
type Result struct {
	Bucket string
	Key    string
	Count  int
	// Skipped counts backups that could not be decoded and are not in the archive.
	Skipped int
}

// Export reads every backup, seals them and uploads one object.
func (e *Exporter) Export(ctx context.Context) (*Result, error) {
	if len(e.passphrase) == 0 {
		return nil, ErrNoPassphrase
	}
	if e.bucket == "" {
		return nil, ErrNoBucket
	}

	backups, skipped, err := e.collect(ctx)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	env, err := Seal(backups, e.passphrase, now)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}

	key, err := ObjectKey(now)
	if err != nil {
		return nil, err
	}

	_, err = e.uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}

	e.logger.Info(ctx, "backup archive uploaded", "bucket", e.bucket, "key", key, "count", env.Count, "skipped", skipped)
	return &Result{Bucket: e.bucket, Key: key, Count: env.Count, Skipped: skipped}, nil
}

func (e *Exporter) collect(ctx context.Context) ([]models.Backup, int, error) {
	cur, err := e.backups.Find(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	defer cur.Close(ctx)

	out := []models.Backup{}
	skipped := 0
	for cur.Next(ctx) {
		b, err := cur.Value()
		if err != nil {
			skipped++
			e.logger.Warn(ctx, "backup could not be decoded, left out of archive", "error", err)
			continue
		}
		out = append(out, b)
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if err := cur.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return out, skipped, nil
}

// Seal encrypts backups under a key derived from passphrase and a fresh salt.
func Seal(backups []models.Backup, passphrase []byte, now time.Time) (*Envelope, error) {
	salt, err := cryptox.NewSalt()
	if err != nil {
		return nil, err
	}
	key, err := cryptox.DeriveMasterKey(passphrase, salt)
	if err != nil {
		return nil, err
	}

	ciphertext, nonce, err := cryptox.EncryptEntry(backups, key)
	if err != nil {
		return nil, fmt.Errorf("encrypt archive: %w", err)
	}

	return &Envelope{
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ciphertext,
		Count:      len(backups),
		CreatedAt:  now,
	}, nil
}

// Decode parses a stored archive and decrypts its backups.
func Decode(data, passphrase []byte) ([]models.Backup, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	key, err := cryptox.DeriveMasterKey(passphrase, env.Salt)
	if err != nil {
		return nil, err
	}

	var backups []models.Backup
	if err := cryptox.DecryptEntry(env.Ciphertext, env.Nonce, key, &backups); err != nil {
		return nil, fmt.Errorf("decrypt archive: %w", err)
	}
	if len(backups) != env.Count {
		return nil, fmt.Errorf("archive holds %d backups, envelope says %d", len(backups), env.Count)
	}
	return backups, nil
}

// ObjectKey returns token-backups/YYYY/MM/DD/<ulid>.json.enc for now.
func ObjectKey(now time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%04d/%02d/%02d/%s.json.enc", KeyPrefix, now.Year(), now.Month(), now.Day(), id), nil
}
