// Package capability implements the runtime's memory capability context: the
// single gate every byte of dynamic storage passes through. A caller
// identifies itself by CrateId and requests a provider.Provider of size N;
// the context either grants one against that crate's budget or rejects with
// ResourceLimitExceeded.
package capability

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/wrt-go/wrt/internal/infra/config"
	"github.com/wrt-go/wrt/internal/infra/errors"
	"github.com/wrt-go/wrt/internal/infra/logging"
	"github.com/wrt-go/wrt/internal/infra/metrics"
	"github.com/wrt-go/wrt/internal/provider"
)

// CrateId names the logical subsystem a capability is budgeted against.
// This is a closed, compile-time enumeration (spec.md §4.1 rationale:
// "binding budgets to a compile-time enumeration ... gives deterministic,
// bounded ledger size").
type CrateId int

const (
	CrateFoundation CrateId = iota
	CrateDecoder
	CrateRuntime
	CrateComponent
	CrateHost
	CratePlatform
	crateCount
)

func (c CrateId) String() string {
	switch c {
	case CrateFoundation:
		return "foundation"
	case CrateDecoder:
		return "decoder"
	case CrateRuntime:
		return "runtime"
	case CrateComponent:
		return "component"
	case CrateHost:
		return "host"
	case CratePlatform:
		return "platform"
	default:
		return "unknown"
	}
}

// ParseCrateId maps a crate name (as found in budgets.yaml) to its CrateId.
func ParseCrateId(name string) (CrateId, bool) {
	for c := CrateId(0); c < crateCount; c++ {
		if c.String() == name {
			return c, true
		}
	}
	return 0, false
}

// VerificationLevel re-exports provider.VerificationLevel so callers of this
// package never need to import internal/provider just to name a level.
type VerificationLevel = provider.VerificationLevel

const (
	VerificationNone      = provider.VerificationNone
	VerificationSampling  = provider.VerificationSampling
	VerificationStandard  = provider.VerificationStandard
	VerificationFull      = provider.VerificationFull
)

// ParseVerificationLevel maps a budgets.yaml verification_level string to a
// VerificationLevel, defaulting to Standard for unrecognized input.
func ParseVerificationLevel(name string) VerificationLevel {
	return provider.ParseVerificationLevel(name)
}

// tokenClaims is the JWT payload bound to a single grant. The signature
// makes the grant an unforgeable token: any code holding a *provider.Provider
// also implicitly holds proof it was issued by this process's Context,
// which matters once providers start crossing component/host boundaries via
// the observability API.
type tokenClaims struct {
	Crate  string `json:"crate"`
	Bytes  int64  `json:"bytes"`
	Nonce  string `json:"nonce"`
	Serial uint64 `json:"serial"`
	jwt.RegisteredClaims
}

// ---------------------------------------------------------------------------
// Context: the budget ledger
// ---------------------------------------------------------------------------

type crateLedger struct {
	mu     sync.Mutex
	budget int64
	used   int64
}

// Context is the process-wide capability context: the single source of
// mutable allocation state. Providers never share arenas; the Context is
// the only thing that mutates crate budgets.
//
// Per spec.md's "no lazy init" design rationale, a Context is created once
// via Init and its handle passed down explicitly — never reached through a
// package-level implicit singleton except via the Default()/InitDefault()
// pair below, mirroring internal/infra/logging's global-logger pattern.
type Context struct {
	ledgers map[CrateId]*crateLedger
	signKey []byte

	serial  atomic.Uint64
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// Init creates a Context from a RuntimeConfig, carving one ledger per crate
// named in cfg.Crates. Unknown crate names in cfg are ignored; crates absent
// from cfg get a zero budget (every grant against them fails).
func Init(cfg *config.RuntimeConfig, logger *logging.Logger, m *metrics.Metrics) (*Context, error) {
	ctx := &Context{
		ledgers: make(map[CrateId]*crateLedger, crateCount),
		signKey: newSignKey(),
		logger:  logger,
		metrics: m,
	}

	for c := CrateId(0); c < crateCount; c++ {
		ctx.ledgers[c] = &crateLedger{}
	}

	if cfg == nil {
		return ctx, nil
	}
	for name, budget := range cfg.Crates {
		crate, ok := ParseCrateId(name)
		if !ok {
			continue
		}
		bytes, err := config.ParseByteSize(budget.Bytes)
		if err != nil {
			return nil, errors.ValidationError(fmt.Sprintf("crate %s: invalid budget %q", name, budget.Bytes))
		}
		ctx.ledgers[crate].budget = bytes
	}
	return ctx, nil
}

// newSignKey produces an ephemeral process-local HMAC key. Capability
// tokens never leave the process boundary they were signed in — this is not
// a network credential, it exists so a Provider cannot be fabricated by
// anything other than this Context.
func newSignKey() []byte {
	id := uuid.New()
	return id[:]
}

// Grant deducts bytes from crate's budget and returns a provider.Provider,
// or ResourceLimitExceeded if the crate would exceed its quota.
func (ctx *Context) Grant(crate CrateId, bytes int64) (*provider.Provider, error) {
	if bytes < 0 {
		return nil, errors.ValidationError("negative grant size")
	}
	ledger, ok := ctx.ledgers[crate]
	if !ok {
		return nil, errors.ValidationError(fmt.Sprintf("unknown crate %v", crate))
	}

	ledger.mu.Lock()
	if ledger.used+bytes > ledger.budget {
		remaining := ledger.used
		budget := ledger.budget
		ledger.mu.Unlock()
		rejectErr := errors.ResourceLimitExceeded(crate.String(), remaining+bytes, budget)
		if ctx.logger != nil {
			ctx.logger.LogCapabilityGrant(context.Background(), crate.String(), bytes, false, rejectErr)
		}
		if ctx.metrics != nil {
			ctx.metrics.RecordCapabilityGrant(crate.String(), remaining, false)
		}
		return nil, rejectErr
	}
	ledger.used += bytes
	inUse := ledger.used
	ledger.mu.Unlock()

	serial := ctx.serial.Add(1)
	nonce := uuid.NewString()
	token, err := ctx.signToken(crate, bytes, nonce, serial)
	if err != nil {
		ledger.mu.Lock()
		ledger.used -= bytes
		ledger.mu.Unlock()
		return nil, errors.Wrap(errors.CodeValidationError, "failed to sign capability token", err)
	}

	p := provider.New(serial, crate.String(), bytes, token)

	if ctx.logger != nil {
		ctx.logger.LogCapabilityGrant(context.Background(), crate.String(), bytes, true, nil)
	}
	if ctx.metrics != nil {
		ctx.metrics.RecordCapabilityGrant(crate.String(), inUse, true)
	}
	return p, nil
}

// Release returns p's bytes to its crate's budget. Idempotent: releasing an
// already-released provider is a no-op. Called automatically by higher
// layers when a provider's scope ends (component teardown, task
// completion).
func (ctx *Context) Release(p *provider.Provider) {
	if p == nil || !p.Release() {
		return
	}
	crate, ok := ParseCrateId(p.Crate())
	if !ok {
		return
	}
	ledger, ok := ctx.ledgers[crate]
	if !ok {
		return
	}
	ledger.mu.Lock()
	ledger.used -= p.Capacity()
	if ledger.used < 0 {
		ledger.used = 0
	}
	ledger.mu.Unlock()
}

// SetVerificationLevel adjusts how often collections built on p recompute
// checksums.
func (ctx *Context) SetVerificationLevel(p *provider.Provider, level VerificationLevel) {
	p.SetVerificationLevel(level)
}

// ProviderStats returns an observational snapshot of p's usage.
func (ctx *Context) ProviderStats(p *provider.Provider) provider.Stats {
	return p.Stats()
}

// CrateBudget returns the configured budget and in-use bytes for crate.
func (ctx *Context) CrateBudget(crate CrateId) (budget, used int64) {
	ledger, ok := ctx.ledgers[crate]
	if !ok {
		return 0, 0
	}
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	return ledger.budget, ledger.used
}

// signToken signs a tokenClaims payload with HS256 using the Context's
// process-local key.
func (ctx *Context) signToken(crate CrateId, bytes int64, nonce string, serial uint64) (string, error) {
	claims := tokenClaims{
		Crate:  crate.String(),
		Bytes:  bytes,
		Nonce:  nonce,
		Serial: serial,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
			Issuer:   "wrt-capability-context",
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(ctx.signKey)
}

// VerifyToken parses and validates a capability token previously returned by
// Provider.Token, confirming it was issued by this Context.
func (ctx *Context) VerifyToken(token string) (crate CrateId, bytes int64, nonce string, err error) {
	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ctx.signKey, nil
	})
	if err != nil || !parsed.Valid {
		return 0, 0, "", errors.ValidationError("invalid capability token")
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok {
		return 0, 0, "", errors.ValidationError("invalid capability token claims")
	}
	crate, ok = ParseCrateId(claims.Crate)
	if !ok {
		return 0, 0, "", errors.ValidationError("invalid capability token crate")
	}
	return crate, claims.Bytes, claims.Nonce, nil
}

// ---------------------------------------------------------------------------
// Default global context
// ---------------------------------------------------------------------------

var (
	defaultOnce sync.Once
	defaultCtx  *Context
)

// InitDefault initializes the process-wide default Context exactly once.
// Subsequent calls are no-ops. Forbidding re-init keeps startup order
// deterministic, per spec.md §6's "forbid lazy-init" design rationale.
func InitDefault(cfg *config.RuntimeConfig, logger *logging.Logger, m *metrics.Metrics) (*Context, error) {
	var err error
	defaultOnce.Do(func() {
		defaultCtx, err = Init(cfg, logger, m)
	})
	if err != nil {
		return nil, err
	}
	return defaultCtx, nil
}

// Default returns the process-wide default Context, initializing it with
// DefaultRuntimeConfig if InitDefault was never called.
func Default() *Context {
	if defaultCtx == nil {
		_, _ = InitDefault(config.DefaultRuntimeConfig(), logging.Default(), metrics.Global())
	}
	return defaultCtx
}
