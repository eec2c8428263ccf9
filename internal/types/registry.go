package types

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"sync"

	"github.com/wrt-go/wrt/internal/bounded"
	"github.com/wrt-go/wrt/internal/infra/logging"
	"github.com/wrt-go/wrt/internal/infra/metrics"
	"github.com/wrt-go/wrt/internal/provider"
)

// TypeRef is a stable, dense, monotonically allocated reference into a
// Registry — the index space both register() and get() address.
type TypeRef uint32

// DefaultDemotionWindow is how many registrations a hot/warm entry may go
// without being accessed before the next registration demotes it back to
// cold — resolves spec.md §9's tier-hysteresis open question.
const DefaultDemotionWindow = 4096

const (
	estimatedTypeSize = 80
	dedupSlotSize      = 48
)

type location struct {
	tier  Tier
	index int
}

// Registry is the three-tier Component Model type registry: hot and warm
// types stored by value in direct arrays, cold types serialized into a
// byte arena, all addressed through a dense TypeRef → (tier, index) map.
type Registry struct {
	mu sync.Mutex

	hot  *bounded.Vec[ComponentType]
	warm *bounded.Vec[ComponentType]
	cold *bounded.Vec[[]byte]
	dedup *bounded.Map[string, TypeRef]

	locations []location
	lastTouch []uint64
	counter   uint64

	demotionWindow uint64
	logger         *logging.Logger
	metrics        *metrics.Metrics
}

// Config controls a Registry's fixed capacities and demotion policy.
type Config struct {
	HotCapacity    int
	WarmCapacity   int
	ColdCapacity   int
	DemotionWindow uint64
}

// DefaultConfig returns reasonable capacities for a single component
// instance's type universe.
func DefaultConfig() Config {
	return Config{HotCapacity: 512, WarmCapacity: 512, ColdCapacity: 1024, DemotionWindow: DefaultDemotionWindow}
}

func fnvHash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// New creates an empty Registry, reserving capacity from p for each tier
// plus the dedup index.
func New(p *provider.Provider, cfg Config, logger *logging.Logger, m *metrics.Metrics) (*Registry, error) {
	if cfg.DemotionWindow == 0 {
		cfg.DemotionWindow = DefaultDemotionWindow
	}
	componentTypeCodec := bounded.Codec[ComponentType]{Encode: encodeComponentType, Decode: decodeComponentType}
	bytesCodec := bounded.Codec[[]byte]{
		Encode: func(b []byte) []byte { return b },
		Decode: func(b []byte) ([]byte, error) { return b, nil },
	}
	dedupCodec := bounded.MapCodec[string, TypeRef]{
		Hash:      fnvHash,
		EncodeKey: func(s string) []byte { return []byte(s) },
		EncodeVal: func(r TypeRef) []byte {
			buf := make([]byte, 4)
			binary.LittleEndian.PutUint32(buf, uint32(r))
			return buf
		},
	}

	hot, err := bounded.NewVec(p, cfg.HotCapacity, estimatedTypeSize, componentTypeCodec)
	if err != nil {
		return nil, err
	}
	warm, err := bounded.NewVec(p, cfg.WarmCapacity, estimatedTypeSize, componentTypeCodec)
	if err != nil {
		return nil, err
	}
	cold, err := bounded.NewVec(p, cfg.ColdCapacity, estimatedTypeSize, bytesCodec)
	if err != nil {
		return nil, err
	}
	totalCapacity := cfg.HotCapacity + cfg.WarmCapacity + cfg.ColdCapacity
	dedup, err := bounded.NewMap(p, totalCapacity, dedupSlotSize, dedupCodec)
	if err != nil {
		return nil, err
	}

	return &Registry{
		hot:            hot,
		warm:           warm,
		cold:           cold,
		dedup:          dedup,
		demotionWindow: cfg.DemotionWindow,
		logger:         logger,
		metrics:        m,
	}, nil
}

// Register interns t, returning its existing TypeRef if a structurally
// equal type was already registered (idempotent on structural equality,
// per spec.md §4.5), or a fresh dense TypeRef otherwise. Every successful
// Register sweeps hot/warm entries for demotion eligibility.
func (r *Registry) Register(t ComponentType) (TypeRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := string(encodeComponentType(t))
	if ref, had := r.dedup.Get(key); had {
		return ref, nil
	}

	tier := classify(t)
	var index int
	var err error
	switch tier {
	case TierHot:
		index = r.hot.Len()
		err = r.hot.Push(t)
	case TierWarm:
		index = r.warm.Len()
		err = r.warm.Push(t)
	default:
		index = r.cold.Len()
		err = r.cold.Push(encodeComponentType(t))
	}
	if err != nil {
		return 0, err
	}

	ref := TypeRef(len(r.locations))
	r.locations = append(r.locations, location{tier: tier, index: index})
	r.lastTouch = append(r.lastTouch, r.counter)
	if _, _, err := r.dedup.Insert(key, ref); err != nil {
		return 0, err
	}
	r.counter++
	r.sweepDemotions()
	r.reportSizes()
	return ref, nil
}

// Get resolves ref to its ComponentType, promoting a cold hit to the hot
// tier (spec.md §4.5: "promotion from cold to hot occurs on
// lookup"). ok is false for an out-of-range ref.
func (r *Registry) Get(ref TypeRef) (ComponentType, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(ref)
}

func (r *Registry) get(ref TypeRef) (ComponentType, bool) {
	if int(ref) < 0 || int(ref) >= len(r.locations) {
		return ComponentType{}, false
	}
	loc := r.locations[ref]
	r.lastTouch[ref] = r.counter

	switch loc.tier {
	case TierHot:
		return r.hot.Get(loc.index)
	case TierWarm:
		return r.warm.Get(loc.index)
	default:
		encoded, ok := r.cold.Get(loc.index)
		if !ok {
			return ComponentType{}, false
		}
		t, err := decodeComponentType(encoded)
		if err != nil {
			return ComponentType{}, false
		}
		r.promote(ref, t)
		return t, true
	}
}

// promote moves a cold entry that was just hit into hot storage, per
// spec.md §4.5's "promotion from cold to hot occurs on lookup" — this is
// unconditional on the original type Kind, not a re-run of classify: a
// Component or Module is classified cold at Register time because it is
// rarely referenced, but once referenced it is hot by definition. The
// backing cold bounded.Vec slot is never reclaimed; cold storage only
// grows, matching the original's append-only serialized arena.
func (r *Registry) promote(ref TypeRef, t ComponentType) {
	index := r.hot.Len()
	if err := r.hot.Push(t); err != nil {
		// No room in hot: stay cold rather than fail the lookup.
		return
	}
	from := r.locations[ref].tier
	r.locations[ref] = location{tier: TierHot, index: index}
	r.reportSizes()
	if r.logger != nil {
		r.logger.LogTypeTierMove(context.Background(), uint32(ref), from.String(), TierHot.String())
	}
}

// sweepDemotions moves any hot/warm entry untouched for demotionWindow
// registrations back to cold. Called after every successful Register.
func (r *Registry) sweepDemotions() {
	for ref, loc := range r.locations {
		if loc.tier == TierCold {
			continue
		}
		if r.counter-r.lastTouch[ref] < r.demotionWindow {
			continue
		}
		t, ok := r.get(TypeRef(ref))
		if !ok {
			continue
		}
		if err := r.cold.Push(encodeComponentType(t)); err != nil {
			continue
		}
		from := loc.tier
		r.locations[ref] = location{tier: TierCold, index: r.cold.Len() - 1}
		if r.logger != nil {
			r.logger.LogTypeTierMove(context.Background(), uint32(ref), from.String(), TierCold.String())
		}
	}
}

func (r *Registry) reportSizes() {
	if r.metrics == nil {
		return
	}
	r.metrics.SetTypeRegistrySize(TierHot.String(), r.hot.Len())
	r.metrics.SetTypeRegistrySize(TierWarm.String(), r.warm.Len())
	r.metrics.SetTypeRegistrySize(TierCold.String(), r.cold.Len())
}

// MemoryUsage reports (used, budget) element counts across all three
// tiers combined, for §4.5's memory_usage() budget-enforcement contract.
func (r *Registry) MemoryUsage() (used, budget int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	used = r.hot.Len() + r.warm.Len() + r.cold.Len()
	budget = r.hot.Capacity() + r.warm.Capacity() + r.cold.Capacity()
	return used, budget
}

// Len returns the total number of distinct registered types.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locations)
}
