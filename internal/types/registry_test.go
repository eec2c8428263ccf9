package types

import (
	"testing"

	"github.com/wrt-go/wrt/internal/infra/logging"
	"github.com/wrt-go/wrt/internal/infra/metrics"
	"github.com/wrt-go/wrt/internal/provider"
	"github.com/wrt-go/wrt/internal/valuestore"
)

func testRegistry(t *testing.T, cfg Config) *Registry {
	t.Helper()
	budget := int64((cfg.HotCapacity+cfg.WarmCapacity+cfg.ColdCapacity)*estimatedTypeSize + 4096)
	p := provider.New(1, "types", budget, "tok")
	log := logging.New("types-test", "error", "text")
	r, err := New(p, cfg, log, metrics.NewWithRegistry("types-test", nil))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func smallConfig() Config {
	return Config{HotCapacity: 4, WarmCapacity: 4, ColdCapacity: 4, DemotionWindow: 3}
}

func funcType(paramCount int) ComponentType {
	params := make([]TypeRef, paramCount)
	for i := range params {
		params[i] = TypeRef(i)
	}
	return ComponentType{Kind: KindFunction, Function: FunctionType{Params: params}}
}

func TestRegisterDedupsByStructuralEquality(t *testing.T) {
	r := testRegistry(t, smallConfig())
	ref1, err := r.Register(funcType(2))
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	ref2, err := r.Register(funcType(2))
	if err != nil {
		t.Fatalf("Register() second call error = %v", err)
	}
	if ref1 != ref2 {
		t.Errorf("Register() returned different refs for equal types: %d != %d", ref1, ref2)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (deduped)", r.Len())
	}
}

func TestRegisterDistinguishesDifferentTypes(t *testing.T) {
	r := testRegistry(t, smallConfig())
	refA, _ := r.Register(funcType(1))
	refB, _ := r.Register(funcType(2))
	if refA == refB {
		t.Error("Register() collapsed structurally distinct types")
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}

func TestClassifyTiersByKind(t *testing.T) {
	cases := []struct {
		name string
		t    ComponentType
		want Tier
	}{
		{"function", ComponentType{Kind: KindFunction}, TierHot},
		{"record", ComponentType{Kind: KindValue, Value: valuestore.ValType{Kind: valuestore.KindRecord}}, TierHot},
		{"scalar", ComponentType{Kind: KindValue, Value: valuestore.ValType{Kind: valuestore.KindS32}}, TierHot},
		{"variant", ComponentType{Kind: KindValue, Value: valuestore.ValType{Kind: valuestore.KindVariant}}, TierWarm},
		{"list", ComponentType{Kind: KindValue, Value: valuestore.ValType{Kind: valuestore.KindList}}, TierWarm},
		{"component", ComponentType{Kind: KindComponent}, TierCold},
		{"instance", ComponentType{Kind: KindInstance}, TierCold},
		{"module", ComponentType{Kind: KindModule}, TierCold},
		{"resource", ComponentType{Kind: KindResource}, TierCold},
	}
	for _, c := range cases {
		if got := classify(c.t); got != c.want {
			t.Errorf("classify(%s) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestRegisterPlacesIntoClassifiedTier(t *testing.T) {
	r := testRegistry(t, smallConfig())

	hotRef, err := r.Register(funcType(0))
	if err != nil {
		t.Fatalf("Register(hot) error = %v", err)
	}
	if got := r.locations[hotRef].tier; got != TierHot {
		t.Errorf("hot type landed in tier %v, want %v", got, TierHot)
	}

	warmType := ComponentType{Kind: KindValue, Value: valuestore.ValType{Kind: valuestore.KindVariant}}
	warmRef, err := r.Register(warmType)
	if err != nil {
		t.Fatalf("Register(warm) error = %v", err)
	}
	if got := r.locations[warmRef].tier; got != TierWarm {
		t.Errorf("warm type landed in tier %v, want %v", got, TierWarm)
	}

	coldRef, err := r.Register(ComponentType{Kind: KindComponent})
	if err != nil {
		t.Fatalf("Register(cold) error = %v", err)
	}
	if got := r.locations[coldRef].tier; got != TierCold {
		t.Errorf("cold type landed in tier %v, want %v", got, TierCold)
	}
}

func TestGetPromotesColdHitToHot(t *testing.T) {
	r := testRegistry(t, smallConfig())
	ref, err := r.Register(ComponentType{Kind: KindComponent})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if r.locations[ref].tier != TierCold {
		t.Fatalf("precondition failed: type not registered cold")
	}

	got, ok := r.Get(ref)
	if !ok {
		t.Fatal("Get() ok = false")
	}
	if got.Kind != KindComponent {
		t.Errorf("Get() Kind = %v, want %v", got.Kind, KindComponent)
	}
	if r.locations[ref].tier != TierHot {
		t.Errorf("Get() did not promote cold hit to hot, tier = %v", r.locations[ref].tier)
	}

	// A second Get should serve directly from hot storage without error.
	got2, ok := r.Get(ref)
	if !ok || got2.Kind != KindComponent {
		t.Errorf("second Get() = %+v, ok=%v", got2, ok)
	}
}

func TestGetOutOfRangeFails(t *testing.T) {
	r := testRegistry(t, smallConfig())
	if _, ok := r.Get(TypeRef(999)); ok {
		t.Error("Get() on unregistered ref should fail")
	}
}

func TestSweepDemotesStaleHotEntry(t *testing.T) {
	cfg := smallConfig()
	cfg.DemotionWindow = 2
	r := testRegistry(t, cfg)

	staleRef, err := r.Register(funcType(0))
	if err != nil {
		t.Fatalf("Register(stale) error = %v", err)
	}
	if r.locations[staleRef].tier != TierHot {
		t.Fatalf("precondition failed: type not registered hot")
	}

	// Register enough distinct types to advance the counter past the
	// demotion window without ever touching staleRef again.
	for i := 1; i <= 3; i++ {
		if _, err := r.Register(funcType(i)); err != nil {
			t.Fatalf("Register(%d) error = %v", i, err)
		}
	}

	if got := r.locations[staleRef].tier; got != TierCold {
		t.Errorf("stale hot entry tier = %v, want %v (demoted)", got, TierCold)
	}

	// The value must still resolve correctly after demotion.
	got, ok := r.Get(staleRef)
	if !ok || got.Kind != KindFunction {
		t.Errorf("Get() after demotion = %+v, ok=%v", got, ok)
	}
}

func TestMemoryUsageAndLen(t *testing.T) {
	r := testRegistry(t, smallConfig())
	if used, budget := r.MemoryUsage(); used != 0 || budget != 12 {
		t.Errorf("MemoryUsage() = (%d, %d), want (0, 12)", used, budget)
	}
	if _, err := r.Register(funcType(0)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if used, _ := r.MemoryUsage(); used != 1 {
		t.Errorf("MemoryUsage() used = %d, want 1", used)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegisterFailsWhenTierFull(t *testing.T) {
	cfg := Config{HotCapacity: 1, WarmCapacity: 1, ColdCapacity: 1, DemotionWindow: DefaultDemotionWindow}
	r := testRegistry(t, cfg)

	if _, err := r.Register(funcType(0)); err != nil {
		t.Fatalf("Register() 1 error = %v", err)
	}
	if _, err := r.Register(funcType(1)); err == nil {
		t.Fatal("Register() past hot capacity should fail with CapacityExceeded")
	}
}
