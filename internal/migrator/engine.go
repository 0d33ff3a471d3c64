package migrator

import (
	"time"

	"github.com/dmitrijs2005/tokenmigrate/internal/logging"
	"github.com/dmitrijs2005/tokenmigrate/internal/metrics"
	"github.com/dmitrijs2005/tokenmigrate/internal/store"
)

// Hasher is the slow, salted hash used for stored tokens.
type Hasher interface {
	Hash(token string) (string, error)
	Verify(encoded, token string) (bool, error)
}

type Engine struct {
	users   store.Users
	backups store.Backups
	hasher  Hasher
	logger  logging.Logger
	metrics *metrics.Recorder
	now     func() time.Time
}

type Option func(*Engine)

// WithMetrics counts per-record outcomes in m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides the time source used for backup timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(users store.Users, backups store.Backups, hasher Hasher, logger logging.Logger, opts ...Option) *Engine {
	e := &Engine{
		users:   users,
		backups: backups,
		hasher:  hasher,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) observe(op string, start time.Time) {
	e.metrics.ObserveRun(op, e.now().Sub(start).Seconds())
}
