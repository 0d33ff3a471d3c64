package tokenhash

import (
	"fmt"
	"runtime"
)

// Params controls Argon2id hashing cost. MemoryKiB is in KiB as required
// by argon2.IDKey.
type Params struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

const (
	MinMemoryKiB = 8 * 1024
	MaxMemoryKiB = 1024 * 1024
)

// DefaultParams returns 64 MiB, 3 passes and one lane per CPU clamped to [1..4].
func DefaultParams() Params {
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Params{
		MemoryKiB:   64 * 1024,
		Iterations:  3,
		Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above.
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (p Params) Validate() error {
	switch {
	case p.MemoryKiB < MinMemoryKiB || p.MemoryKiB > MaxMemoryKiB:
		return fmt.Errorf("%w: memory %d KiB out of range [%d..%d]", ErrInvalidParams, p.MemoryKiB, MinMemoryKiB, MaxMemoryKiB)
	case p.Iterations < 1 || p.Iterations > 20:
		return fmt.Errorf("%w: iterations %d out of range [1..20]", ErrInvalidParams, p.Iterations)
	case p.Parallelism < 1:
		return fmt.Errorf("%w: parallelism must be positive", ErrInvalidParams)
	case p.SaltLength < 8 || p.SaltLength > 64:
		return fmt.Errorf("%w: salt length %d out of range [8..64]", ErrInvalidParams, p.SaltLength)
	case p.KeyLength < 16 || p.KeyLength > 64:
		return fmt.Errorf("%w: key length %d out of range [16..64]", ErrInvalidParams, p.KeyLength)
	}
	return nil
}
