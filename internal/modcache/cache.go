// Package modcache caches the decoder's output across the genuinely
// expensive boundary: parsing a module's bytecode into its section payload
// stream (internal/decoder.ParseModule) is pure CPU work, but modules are
// frequently re-loaded by digest (the same firmware image flashed to many
// ECUs, the same component re-instantiated across test runs), so a
// content-addressed cache in front of it pays for itself.
//
// The cache itself sits behind Postgres, which is the one place in this
// module that talks to a database over a network — and the one place, per
// internal/infra/resilience's package doc, where circuit breaking and retry
// are appropriate. The interpreter, executor, and capability context never
// retry; this package always does.
package modcache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/wrt-go/wrt/internal/decoder"
	"github.com/wrt-go/wrt/internal/infra/logging"
	"github.com/wrt-go/wrt/internal/infra/resilience"
)

//go:embed *.sql
var migrationFiles embed.FS

// Migrate applies the embedded schema migrations (0001_init.up.sql, and
// any later-numbered ones added alongside it) through golang-migrate's
// Postgres driver. It is safe to call on every process start: golang-migrate
// tracks the applied version in its own schema_migrations table and Up()
// is a no-op once nothing new has been added.
func Migrate(ctx context.Context, db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("modcache: postgres driver: %w", err)
	}
	src, err := iofs.New(migrationFiles, ".")
	if err != nil {
		return fmt.Errorf("modcache: migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("modcache: build migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("modcache: apply migrations: %w", err)
	}
	return nil
}

// Digest is the content address of a module's raw bytecode: the hex-encoded
// SHA-256 of the bytes handed to the decoder.
type Digest string

// Hash computes the Digest for a module's raw bytecode.
func Hash(bytecode []byte) Digest {
	sum := sha256.Sum256(bytecode)
	return Digest(hex.EncodeToString(sum[:]))
}

// Cache is a Postgres-backed, content-addressed store of decoded payload
// streams, guarded by a circuit breaker and retried with backoff.
type Cache struct {
	db      *sqlx.DB
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
	logger  *logging.Logger
}

// New wraps an existing *sqlx.DB connection pool. logger may be nil.
func New(db *sqlx.DB, logger *logging.Logger) *Cache {
	return &Cache{
		db:      db,
		breaker: resilience.New(resilience.DefaultConfig()),
		retry:   resilience.DefaultRetryConfig(),
		logger:  logger,
	}
}

type row struct {
	Digest   string `db:"digest"`
	Payloads []byte `db:"payloads"`
}

// Get returns the cached payload stream for digest. ok is false on a clean
// cache miss (no row); err is non-nil only for an actual I/O or decode
// failure after retries and the circuit breaker have given up.
func (c *Cache) Get(ctx context.Context, digest Digest) (payloads []decoder.Payload, ok bool, err error) {
	var r row
	missed := false
	runErr := c.call(ctx, func() error {
		queryErr := c.db.GetContext(ctx, &r, `
			SELECT digest, payloads FROM decoded_module_cache WHERE digest = $1
		`, string(digest))
		if errors.Is(queryErr, sql.ErrNoRows) {
			// A miss is an expected outcome, not a fault: swallow it here so
			// it never counts against the circuit breaker or gets retried.
			missed = true
			return nil
		}
		return queryErr
	})
	if missed {
		c.debugf(digest, "miss")
		return nil, false, nil
	}
	if runErr != nil {
		return nil, false, runErr
	}
	c.debugf(digest, "hit")

	if err := json.Unmarshal(r.Payloads, &payloads); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached payloads for %s: %w", digest, err)
	}

	// Best-effort hit counter; a failure here never fails the Get.
	_ = c.call(ctx, func() error {
		_, execErr := c.db.ExecContext(ctx,
			`UPDATE decoded_module_cache SET hits = hits + 1 WHERE digest = $1`, string(digest))
		return execErr
	})

	return payloads, true, nil
}

// Put stores a decoded payload stream under digest, replacing any existing
// entry (a digest collision between two distinct modules is a SHA-256 break,
// not a case this cache needs to reconcile).
func (c *Cache) Put(ctx context.Context, digest Digest, byteSize int, payloads []decoder.Payload) error {
	blob, err := json.Marshal(payloads)
	if err != nil {
		return fmt.Errorf("marshal payloads for %s: %w", digest, err)
	}

	return c.call(ctx, func() error {
		_, execErr := c.db.ExecContext(ctx, `
			INSERT INTO decoded_module_cache (digest, payloads, byte_size)
			VALUES ($1, $2, $3)
			ON CONFLICT (digest) DO UPDATE SET payloads = EXCLUDED.payloads, byte_size = EXCLUDED.byte_size
		`, string(digest), blob, byteSize)
		return execErr
	})
}

// Load decodes bytecode via internal/decoder.ParseModule, going through the
// cache first and populating it on a miss. This is the one call site that
// actually exercises the cache/decode boundary this package exists for —
// callers that already have a Cache should use this instead of calling
// ParseModule directly.
func (c *Cache) Load(ctx context.Context, bytecode []byte, cfg decoder.Config) ([]decoder.Payload, error) {
	digest := Hash(bytecode)
	if cached, ok, err := c.Get(ctx, digest); err != nil {
		return nil, err
	} else if ok {
		return cached, nil
	}

	payloads, err := decoder.ParseModule(bytecode, cfg)
	if err != nil {
		return nil, err
	}

	// Populating the cache is best-effort: a decode that succeeded must
	// still be returned to the caller even if the store-back fails.
	_ = c.Put(ctx, digest, len(bytecode), payloads)
	return payloads, nil
}

// Evict removes a single cached entry, if present.
func (c *Cache) Evict(ctx context.Context, digest Digest) error {
	return c.call(ctx, func() error {
		_, execErr := c.db.ExecContext(ctx, `DELETE FROM decoded_module_cache WHERE digest = $1`, string(digest))
		return execErr
	})
}

// debugf logs a cache outcome. logger may be nil (e.g. in tests), in which
// case this is a no-op.
func (c *Cache) debugf(digest Digest, outcome string) {
	if c.logger == nil {
		return
	}
	c.logger.WithFields(logrus.Fields{
		"digest":  string(digest),
		"outcome": outcome,
	}).Debug("module cache lookup")
}

// call runs fn through the circuit breaker, retrying with backoff while the
// breaker stays closed. Callers are responsible for keeping expected,
// non-faulty outcomes (like a cache miss) out of fn's error return, since
// any error here both retries and counts against the breaker.
func (c *Cache) call(ctx context.Context, fn func() error) error {
	return c.breaker.Execute(ctx, func() error {
		return resilience.Retry(ctx, c.retry, fn)
	})
}
