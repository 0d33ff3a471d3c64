package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/tokenmigrate/internal/dbx"
	"github.com/dmitrijs2005/tokenmigrate/internal/models"
	"github.com/dmitrijs2005/tokenmigrate/internal/store"
	"github.com/google/uuid"
)

// BackupsRepository implements store.Backups over migration_backups.
// The snapshot is kept as a jsonb document.
type BackupsRepository struct {
	db dbx.DBTX
}

func NewBackupsRepository(db dbx.DBTX) *BackupsRepository {
	return &BackupsRepository{db: db}
}

func (r *BackupsRepository) Insert(ctx context.Context, b *models.Backup) (string, error) {
	query :=
		`INSERT INTO migration_backups (id, original_user_id, original, migrated_at)
		 VALUES ($1, $2, $3, $4)`

	original, err := json.Marshal(b.Original)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	id := uuid.NewString()
	if _, err := r.db.ExecContext(ctx, query, id, b.OriginalUserID, original, b.MigratedAt.UTC()); err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *BackupsRepository) Find(ctx context.Context) (store.Cursor[models.Backup], error) {
	query :=
		`SELECT id, original_user_id, original, migrated_at
		 FROM migration_backups
		 ORDER BY migrated_at, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return dbx.NewRowsCursor(rows, scanBackup), nil
}

func scanBackup(rows *sql.Rows) (models.Backup, error) {
	var (
		b        models.Backup
		userID   sql.NullString
		original []byte
	)
	if err := rows.Scan(&b.ID, &userID, &original, &b.MigratedAt); err != nil {
		return models.Backup{}, fmt.Errorf("db error: %w", err)
	}
	b.OriginalUserID = userID.String
	if len(original) > 0 {
		if err := json.Unmarshal(original, &b.Original); err != nil {
			return models.Backup{}, fmt.Errorf("decode snapshot %s: %w", b.ID, err)
		}
	}
	return b, nil
}
