// Package provider implements bounded memory providers: the fixed-size
// arenas a capability grant hands out. A Provider never grows past the
// capacity it was created with; every bounded collection built on top of
// one draws its backing storage from Allocate, never from the Go heap
// directly.
package provider

import (
	"sync/atomic"

	"github.com/wrt-go/wrt/internal/infra/errors"
)

// VerificationLevel controls how often collections built on a Provider
// recompute their rolling checksum. Higher levels trade CPU cycles for a
// higher probability of catching byte-level corruption.
type VerificationLevel int

const (
	VerificationNone VerificationLevel = iota
	VerificationSampling
	VerificationStandard
	VerificationFull
)

func (v VerificationLevel) String() string {
	switch v {
	case VerificationNone:
		return "None"
	case VerificationSampling:
		return "Sampling"
	case VerificationStandard:
		return "Standard"
	case VerificationFull:
		return "Full"
	default:
		return "Unknown"
	}
}

// ParseVerificationLevel maps a budgets.yaml verification_level string to a
// VerificationLevel, defaulting to Standard for unrecognized input.
func ParseVerificationLevel(name string) VerificationLevel {
	switch name {
	case "None":
		return VerificationNone
	case "Sampling":
		return VerificationSampling
	case "Full":
		return VerificationFull
	default:
		return VerificationStandard
	}
}

// Stats is the observational-only snapshot returned by Provider.Stats.
type Stats struct {
	BytesUsed     int64
	AccessCount   int64
	MaxAccessSize int64
}

// Provider is a fixed-size arena allocated against a capability grant. It
// hands out byte storage via Allocate up to Capacity and never partially
// grows.
type Provider struct {
	id       uint64
	crate    string
	capacity int64
	token    string
	arena    []byte

	bump         atomic.Int64
	verification atomic.Int32

	accessCount   atomic.Int64
	maxAccessSize atomic.Int64

	released atomic.Bool
}

// New creates a Provider backed by a capacity-byte arena. id is the
// process-unique serial assigned by the issuing capability context; token
// is the signed capability token proving this provider's grant.
func New(id uint64, crate string, capacity int64, token string) *Provider {
	p := &Provider{
		id:       id,
		crate:    crate,
		capacity: capacity,
		token:    token,
		arena:    make([]byte, capacity),
	}
	p.verification.Store(int32(VerificationStandard))
	return p
}

func (p *Provider) ID() uint64    { return p.id }
func (p *Provider) Crate() string { return p.crate }
func (p *Provider) Capacity() int64 { return p.capacity }
func (p *Provider) Token() string { return p.token }

// VerificationLevel returns the provider's current verification level.
func (p *Provider) VerificationLevel() VerificationLevel {
	return VerificationLevel(p.verification.Load())
}

// SetVerificationLevel adjusts how often collections built on p recompute
// checksums.
func (p *Provider) SetVerificationLevel(level VerificationLevel) {
	p.verification.Store(int32(level))
}

// Released reports whether Release has already been called for this
// provider.
func (p *Provider) Released() bool { return p.released.Load() }

// Release marks the provider's scope as ended. Idempotent. It does not
// itself credit a budget ledger — that is the capability Context's job,
// which calls Release exactly once per provider.
func (p *Provider) Release() bool {
	return p.released.CompareAndSwap(false, true)
}

// Allocate hands out a fresh n-byte slice of the provider's arena, bumping
// the high-water mark. It never grows the arena and never reuses bytes
// already handed out — bounded collections call this exactly once at
// construction for their backing storage. Returns a ResourceLimitExceeded
// error (CodeResourceLimit) if fewer than n bytes remain.
func (p *Provider) Allocate(n int64) ([]byte, error) {
	if p.released.Load() {
		return nil, errors.New(errors.CodeResourceNotFound, "provider already released")
	}
	if n < 0 {
		return nil, errors.ValidationError("negative allocation size")
	}
	for {
		cur := p.bump.Load()
		next := cur + n
		if next > p.capacity {
			return nil, errors.ResourceLimitExceeded(p.crate, next, p.capacity)
		}
		if p.bump.CompareAndSwap(cur, next) {
			p.recordAccess(n)
			return p.arena[cur:next:next], nil
		}
	}
}

// Reserve accounts for n additional bytes of use against the provider's
// capacity without handing back a slice — used by collections that
// allocated their arena slice once at construction but want provider_stats
// to reflect incremental fill (e.g. a Vec growing element-by-element within
// pre-allocated capacity). Like Allocate, it fails once the cumulative
// reservation would exceed Capacity.
func (p *Provider) Reserve(n int64) error {
	if p.released.Load() {
		return errors.New(errors.CodeResourceNotFound, "provider already released")
	}
	for {
		cur := p.bump.Load()
		next := cur + n
		if next > p.capacity {
			return errors.ResourceLimitExceeded(p.crate, next, p.capacity)
		}
		if p.bump.CompareAndSwap(cur, next) {
			break
		}
	}
	p.recordAccess(n)
	return nil
}

func (p *Provider) recordAccess(n int64) {
	p.accessCount.Add(1)
	for {
		cur := p.maxAccessSize.Load()
		if n <= cur || p.maxAccessSize.CompareAndSwap(cur, n) {
			return
		}
	}
}

// Stats returns an observational snapshot of this provider's usage.
func (p *Provider) Stats() Stats {
	return Stats{
		BytesUsed:     p.bump.Load(),
		AccessCount:   p.accessCount.Load(),
		MaxAccessSize: p.maxAccessSize.Load(),
	}
}
