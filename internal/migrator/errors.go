package migrator

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tokenmigrate/internal/store"
)

var (
	// ErrStoreUnavailable aborts a run: the cursor could not be opened or
	// failed mid-iteration.
	ErrStoreUnavailable = store.ErrUnavailable

	// ErrPartialWrite marks a user whose backup was written but whose
	// update failed. The user keeps its plaintext tokens.
	ErrPartialWrite = errors.New("backup written but user update failed")

	// ErrHashing marks a user left unmigrated because a token could not be hashed.
	ErrHashing = errors.New("token hashing failed")

	ErrBackupWrite = errors.New("backup write failed")

	// ErrDecode marks a stored record that could not be read. The run
	// counts it as failed and moves on.
	ErrDecode = errors.New("record could not be decoded")

	ErrEmptySecret = errors.New("empty HMAC secret")
)

func unavailable(err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
