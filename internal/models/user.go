// Package models defines the records touched by the token migration:
// users carrying legacy credential tokens and the backups written before
// any of those tokens is replaced.
package models

import "fmt"

// TokenField names one legacy credential token stored on a user.
type TokenField string

const (
	EmailVerificationToken TokenField = "emailVerificationToken"
	PasswordResetToken     TokenField = "passwordResetToken"
)

// TokenFields lists every migrated field in a stable order.
var TokenFields = []TokenField{EmailVerificationToken, PasswordResetToken}

// ParseTokenField accepts the logical field name, e.g. "passwordResetToken".
func ParseTokenField(s string) (TokenField, error) {
	for _, f := range TokenFields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown token field %q", s)
}

func (f TokenField) String() string { return string(f) }

// HashField is the name of the field holding the salted hash of f.
func (f TokenField) HashField() string { return string(f) + "Hash" }

// PrefixField is the name of the field holding the HMAC lookup prefix of f.
func (f TokenField) PrefixField() string { return string(f) + "HmacPrefix" }

// User is the subset of a user record the migration reads and writes.
// A nil pointer means the field is absent from the record.
type User struct {
	ID string

	EmailVerificationToken *string
	PasswordResetToken     *string

	EmailVerificationTokenHash       *string
	EmailVerificationTokenHmacPrefix *string
	PasswordResetTokenHash           *string
	PasswordResetTokenHmacPrefix     *string
}

// UserFields lists every field name accepted by Update.
var UserFields = []string{
	EmailVerificationToken.String(),
	PasswordResetToken.String(),
	EmailVerificationToken.HashField(),
	EmailVerificationToken.PrefixField(),
	PasswordResetToken.HashField(),
	PasswordResetToken.PrefixField(),
}

// IsUserField reports whether name is one of UserFields.
func IsUserField(name string) bool {
	return u0.field(name) != nil
}

var u0 = &User{}

func (u *User) field(name string) **string {
	switch name {
	case "emailVerificationToken":
		return &u.EmailVerificationToken
	case "passwordResetToken":
		return &u.PasswordResetToken
	case "emailVerificationTokenHash":
		return &u.EmailVerificationTokenHash
	case "emailVerificationTokenHmacPrefix":
		return &u.EmailVerificationTokenHmacPrefix
	case "passwordResetTokenHash":
		return &u.PasswordResetTokenHash
	case "passwordResetTokenHmacPrefix":
		return &u.PasswordResetTokenHmacPrefix
	}
	return nil
}

// Value returns the named field from UserFields, or nil when absent.
func (u *User) Value(name string) *string {
	if p := u.field(name); p != nil {
		return *p
	}
	return nil
}

// Token returns the plaintext value of f, or nil when absent.
func (u *User) Token(f TokenField) *string {
	if p := u.field(string(f)); p != nil {
		return *p
	}
	return nil
}

// Hash returns the stored hash of f, or nil when absent.
func (u *User) Hash(f TokenField) *string {
	if p := u.field(f.HashField()); p != nil {
		return *p
	}
	return nil
}

// Prefix returns the stored lookup prefix of f, or nil when absent.
func (u *User) Prefix(f TokenField) *string {
	if p := u.field(f.PrefixField()); p != nil {
		return *p
	}
	return nil
}

// HasPlaintext reports whether any legacy token field is present.
func (u *User) HasPlaintext() bool {
	for _, f := range TokenFields {
		if u.Token(f) != nil {
			return true
		}
	}
	return false
}

// Apply mutates u in place the way a store applies upd to the record.
func (u *User) Apply(upd Update) error {
	if err := upd.Validate(); err != nil {
		return err
	}
	for name, v := range upd.Set {
		v := v
		*u.field(name) = &v
	}
	for _, name := range upd.Unset {
		*u.field(name) = nil
	}
	return nil
}

// Update is a single combined write against one user: fields to set and
// fields to remove. Field names are the logical names from UserFields.
type Update struct {
	Set   map[string]string
	Unset []string
}

// IsEmpty reports whether the update would not change anything.
func (u Update) IsEmpty() bool {
	return len(u.Set) == 0 && len(u.Unset) == 0
}

// Validate rejects unknown field names and fields that are both set and unset.
func (u Update) Validate() error {
	for name := range u.Set {
		if !IsUserField(name) {
			return fmt.Errorf("update: unknown field %q", name)
		}
	}
	for _, name := range u.Unset {
		if !IsUserField(name) {
			return fmt.Errorf("update: unknown field %q", name)
		}
		if _, ok := u.Set[name]; ok {
			return fmt.Errorf("update: field %q both set and unset", name)
		}
	}
	return nil
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }
