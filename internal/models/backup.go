package models

import "time"

// Snapshot holds the plaintext token values a user carried before migration.
type Snapshot struct {
	PasswordResetToken     *string `json:"passwordResetToken,omitempty"`
	EmailVerificationToken *string `json:"emailVerificationToken,omitempty"`
}

// SnapshotOf captures both legacy token fields of u, whichever are present.
func SnapshotOf(u *User) Snapshot {
	var s Snapshot
	if t := u.PasswordResetToken; t != nil {
		s.PasswordResetToken = StringPtr(*t)
	}
	if t := u.EmailVerificationToken; t != nil {
		s.EmailVerificationToken = StringPtr(*t)
	}
	return s
}

// Token returns the captured value of f. Empty values count as absent.
func (s Snapshot) Token(f TokenField) *string {
	var v *string
	switch f {
	case PasswordResetToken:
		v = s.PasswordResetToken
	case EmailVerificationToken:
		v = s.EmailVerificationToken
	}
	if v == nil || *v == "" {
		return nil
	}
	return v
}

// Empty reports whether the snapshot carries no restorable value.
func (s Snapshot) Empty() bool {
	for _, f := range TokenFields {
		if s.Token(f) != nil {
			return false
		}
	}
	return true
}

// Backup is the reversible record written before a user's tokens are hashed.
// OriginalUserID is a lookup reference only; the backup does not own the user.
type Backup struct {
	ID             string    `json:"id"`
	OriginalUserID string    `json:"originalUserId"`
	Original       Snapshot  `json:"original"`
	MigratedAt     time.Time `json:"migratedAt"`
}
