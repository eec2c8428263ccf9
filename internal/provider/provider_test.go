package provider

import (
	"testing"

	"github.com/wrt-go/wrt/internal/infra/errors"
)

func TestAllocateWithinCapacity(t *testing.T) {
	p := New(1, "decoder", 100, "tok")

	buf, err := p.Allocate(40)
	if err != nil {
		t.Fatalf("Allocate(40) error = %v", err)
	}
	if len(buf) != 40 {
		t.Errorf("len(buf) = %d, want 40", len(buf))
	}

	buf2, err := p.Allocate(60)
	if err != nil {
		t.Fatalf("Allocate(60) error = %v", err)
	}
	if len(buf2) != 60 {
		t.Errorf("len(buf2) = %d, want 60", len(buf2))
	}

	if _, err := p.Allocate(1); !errors.Is(err, errors.CodeResourceLimit) {
		t.Fatalf("Allocate(1) over capacity error = %v, want CodeResourceLimit", err)
	}
}

func TestAllocateSlicesDoNotOverlap(t *testing.T) {
	p := New(1, "decoder", 16, "tok")
	a, err := p.Allocate(8)
	if err != nil {
		t.Fatalf("Allocate error = %v", err)
	}
	b, err := p.Allocate(8)
	if err != nil {
		t.Fatalf("Allocate error = %v", err)
	}
	a[0] = 0xAA
	b[0] = 0xBB
	if a[0] == b[0] {
		t.Fatal("allocations should not alias")
	}
}

func TestAllocateCappedNoOverwrite(t *testing.T) {
	p := New(1, "decoder", 8, "tok")
	a, _ := p.Allocate(4)
	// a has cap 4 (three-index slice); appending beyond must not corrupt
	// the next allocation's bytes.
	a = append(a, 1, 2, 3, 4, 5)
	b, err := p.Allocate(4)
	if err != nil {
		t.Fatalf("Allocate error = %v", err)
	}
	for i, v := range b {
		if v != 0 {
			t.Fatalf("b[%d] = %d, want 0 (append into a leaked into b)", i, v)
		}
	}
	_ = a
}

func TestReserveEnforcesCapacity(t *testing.T) {
	p := New(1, "foundation", 100, "tok")

	if err := p.Reserve(60); err != nil {
		t.Fatalf("Reserve(60) error = %v", err)
	}
	if err := p.Reserve(60); !errors.Is(err, errors.CodeResourceLimit) {
		t.Fatalf("Reserve(60) second call error = %v, want CodeResourceLimit", err)
	}

	stats := p.Stats()
	if stats.BytesUsed != 60 || stats.AccessCount != 1 || stats.MaxAccessSize != 60 {
		t.Errorf("Stats() = %+v, unexpected", stats)
	}
}

func TestReleaseIsIdempotentAndBlocksFurtherUse(t *testing.T) {
	p := New(1, "foundation", 100, "tok")
	if !p.Release() {
		t.Fatal("first Release() should report true")
	}
	if p.Release() {
		t.Fatal("second Release() should report false")
	}
	if !p.Released() {
		t.Fatal("Released() should be true")
	}
	if _, err := p.Allocate(1); err == nil {
		t.Fatal("Allocate() after Release() should fail")
	}
	if err := p.Reserve(1); err == nil {
		t.Fatal("Reserve() after Release() should fail")
	}
}

func TestVerificationLevelDefaultsToStandard(t *testing.T) {
	p := New(1, "foundation", 10, "tok")
	if p.VerificationLevel() != VerificationStandard {
		t.Errorf("VerificationLevel() = %v, want Standard", p.VerificationLevel())
	}
	p.SetVerificationLevel(VerificationFull)
	if p.VerificationLevel() != VerificationFull {
		t.Errorf("VerificationLevel() = %v, want Full", p.VerificationLevel())
	}
}

func TestParseVerificationLevel(t *testing.T) {
	cases := map[string]VerificationLevel{
		"None":     VerificationNone,
		"Sampling": VerificationSampling,
		"Standard": VerificationStandard,
		"Full":     VerificationFull,
		"":         VerificationStandard,
		"bogus":    VerificationStandard,
	}
	for raw, want := range cases {
		if got := ParseVerificationLevel(raw); got != want {
			t.Errorf("ParseVerificationLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}
