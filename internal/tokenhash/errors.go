package tokenhash

import "errors"

var (
	ErrEmptyToken    = errors.New("empty token")
	ErrInvalidHash   = errors.New("invalid token hash")
	ErrInvalidParams = errors.New("invalid argon2id params")
)
