package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/tokenmigrate/internal/dbx"
	"github.com/dmitrijs2005/tokenmigrate/internal/models"
	"github.com/dmitrijs2005/tokenmigrate/internal/store"
	"github.com/google/uuid"
)

// columns maps logical field names to users table columns. It doubles as the
// whitelist for identifiers interpolated into SQL.
var columns = map[string]string{
	"emailVerificationToken":           "email_verification_token",
	"passwordResetToken":               "password_reset_token",
	"emailVerificationTokenHash":       "email_verification_token_hash",
	"emailVerificationTokenHmacPrefix": "email_verification_token_hmac_prefix",
	"passwordResetTokenHash":           "password_reset_token_hash",
	"passwordResetTokenHmacPrefix":     "password_reset_token_hmac_prefix",
}

const userColumns = `id, email_verification_token, password_reset_token,
		email_verification_token_hash, email_verification_token_hmac_prefix,
		password_reset_token_hash, password_reset_token_hmac_prefix`

// UsersRepository implements store.Users over the users table.
type UsersRepository struct {
	db dbx.DBTX
}

func NewUsersRepository(db dbx.DBTX) *UsersRepository {
	return &UsersRepository{db: db}
}

func (r *UsersRepository) Find(ctx context.Context, f store.Filter) (store.Cursor[models.User], error) {
	query, args, err := buildFindQuery(f)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return dbx.NewRowsCursor(rows, func(rows *sql.Rows) (models.User, error) { return scanUser(rows) }), nil
}

func buildFindQuery(f store.Filter) (string, []any, error) {
	var (
		where []string
		args  []any
	)

	if len(f.AnyPlaintext) > 0 {
		var or []string
		for _, field := range f.AnyPlaintext {
			col, ok := columns[string(field)]
			if !ok {
				return "", nil, fmt.Errorf("unknown field %q", field)
			}
			or = append(or, col+" IS NOT NULL")
		}
		where = append(where, "("+strings.Join(or, " OR ")+")")
	}

	if f.PrefixField != "" {
		col, ok := columns[f.PrefixField.PrefixField()]
		if !ok {
			return "", nil, fmt.Errorf("unknown field %q", f.PrefixField)
		}
		args = append(args, f.Prefix)
		where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	query := "SELECT " + userColumns + " FROM users"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"
	return query, args, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (models.User, error) {
	var (
		u                                    models.User
		ev, pr, evHash, evPrefix, prHash, pp sql.NullString
	)
	if err := row.Scan(&u.ID, &ev, &pr, &evHash, &evPrefix, &prHash, &pp); err != nil {
		return models.User{}, err
	}
	u.EmailVerificationToken = fromNull(ev)
	u.PasswordResetToken = fromNull(pr)
	u.EmailVerificationTokenHash = fromNull(evHash)
	u.EmailVerificationTokenHmacPrefix = fromNull(evPrefix)
	u.PasswordResetTokenHash = fromNull(prHash)
	u.PasswordResetTokenHmacPrefix = fromNull(pp)
	return u, nil
}

func (r *UsersRepository) Get(ctx context.Context, id string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = $1"

	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &u, nil
}

func (r *UsersRepository) Insert(ctx context.Context, u *models.User) (string, error) {
	query :=
		`INSERT INTO users (` + userColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`

	id := u.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx, query, id,
		toNull(u.EmailVerificationToken), toNull(u.PasswordResetToken),
		toNull(u.EmailVerificationTokenHash), toNull(u.EmailVerificationTokenHmacPrefix),
		toNull(u.PasswordResetTokenHash), toNull(u.PasswordResetTokenHmacPrefix))
	if err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

// Update writes all set and unset fields in one statement. Set columns come
// first in name order, then unset columns in the order given.
func (r *UsersRepository) Update(ctx context.Context, id string, upd models.Update) error {
	if err := upd.Validate(); err != nil {
		return err
	}
	if upd.IsEmpty() {
		return nil
	}

	names := make([]string, 0, len(upd.Set))
	for name := range upd.Set {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		assignments []string
		args        []any
	)
	for _, name := range names {
		args = append(args, upd.Set[name])
		assignments = append(assignments, fmt.Sprintf("%s = $%d", columns[name], len(args)))
	}
	for _, name := range upd.Unset {
		assignments = append(assignments, columns[name]+" = NULL")
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", strings.Join(assignments, ", "), len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func fromNull(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func toNull(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}
