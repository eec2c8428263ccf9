package decoder

import (
	"testing"

	"github.com/wrt-go/wrt/internal/infra/logging"
	"github.com/wrt-go/wrt/internal/infra/metrics"
	"github.com/wrt-go/wrt/internal/provider"
	"github.com/wrt-go/wrt/internal/types"
)

func uleb32(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}

func section(id SectionID, body []byte) []byte {
	out := []byte{byte(id)}
	out = append(out, uleb32(uint32(len(body)))...)
	return append(out, body...)
}

func coreHeader() []byte {
	return []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
}

func componentHeader() []byte {
	return []byte{0x00, 0x63, 0x6D, 0x70, 0x01, 0x00, 0x00, 0x00}
}

func TestDetectBinaryKind(t *testing.T) {
	if k, err := DetectBinaryKind(coreHeader()); err != nil || k != BinaryCoreModule {
		t.Fatalf("DetectBinaryKind(core) = (%v, %v)", k, err)
	}
	if k, err := DetectBinaryKind(componentHeader()); err != nil || k != BinaryComponent {
		t.Fatalf("DetectBinaryKind(component) = (%v, %v)", k, err)
	}
	if _, err := DetectBinaryKind([]byte{0, 1, 2}); err == nil {
		t.Fatal("DetectBinaryKind(short) should fail")
	}
	if _, err := DetectBinaryKind([]byte{0xDE, 0xAD, 0xBE, 0xEF, 0, 0, 0, 0}); err == nil {
		t.Fatal("DetectBinaryKind(bad magic) should fail")
	}
}

func TestReadEmptyCoreModuleEmitsVersionThenEnd(t *testing.T) {
	p := New(coreHeader(), Config{})
	payload, ok, err := p.Read()
	if err != nil || !ok || payload.Kind != PayloadVersion {
		t.Fatalf("Read() 1 = (%+v, %v, %v)", payload, ok, err)
	}
	payload, ok, err = p.Read()
	if err != nil || !ok || payload.Kind != PayloadEnd {
		t.Fatalf("Read() 2 = (%+v, %v, %v)", payload, ok, err)
	}
	_, ok, err = p.Read()
	if err != nil || ok {
		t.Fatalf("Read() after End should report exhausted, got ok=%v err=%v", ok, err)
	}
}

func TestStartSectionParsesIndex(t *testing.T) {
	binary := append(coreHeader(), section(SectionStart, uleb32(7))...)
	p := New(binary, Config{})
	p.Read() // version
	payload, ok, err := p.Read()
	if err != nil || !ok || payload.Kind != PayloadStartSection || payload.StartFuncIndex != 7 {
		t.Fatalf("Read() start section = (%+v, %v, %v)", payload, ok, err)
	}
}

func TestEmptyStartSectionFails(t *testing.T) {
	binary := append(coreHeader(), section(SectionStart, nil)...)
	p := New(binary, Config{})
	p.Read()
	if _, _, err := p.Read(); err == nil {
		t.Fatal("empty start section should fail")
	}
}

func TestCustomSectionName(t *testing.T) {
	body := append(uleb32(4), []byte("name")...)
	body = append(body, []byte{1, 2, 3}...)
	binary := append(coreHeader(), section(SectionCustom, body)...)
	p := New(binary, Config{})
	p.Read()
	payload, ok, err := p.Read()
	if err != nil || !ok || payload.Kind != PayloadCustomSection || payload.Name != "name" {
		t.Fatalf("Read() custom section = (%+v, %v, %v)", payload, ok, err)
	}
	if len(payload.Bytes) != 3 {
		t.Errorf("custom section body length = %d, want 3", len(payload.Bytes))
	}
}

func TestUnknownSectionSkippedWhenConfigured(t *testing.T) {
	binary := append(coreHeader(), section(SectionID(200), []byte{1, 2, 3})...)
	binary = append(binary, section(SectionStart, uleb32(0))...)
	p := New(binary, Config{SkipUnknownCustom: true})
	p.Read() // version
	payload, ok, err := p.Read()
	if err != nil || !ok || payload.Kind != PayloadStartSection {
		t.Fatalf("Read() should skip unknown section straight to start, got (%+v, %v, %v)", payload, ok, err)
	}
}

func TestUnknownSectionSurfacedByDefault(t *testing.T) {
	binary := append(coreHeader(), section(SectionID(200), []byte{1, 2, 3})...)
	p := New(binary, Config{})
	p.Read()
	payload, ok, err := p.Read()
	if err != nil || !ok || payload.Kind != PayloadCustomSection {
		t.Fatalf("Read() unknown section = (%+v, %v, %v)", payload, ok, err)
	}
}

func TestSectionTooLargeFails(t *testing.T) {
	binary := append(coreHeader(), []byte{byte(SectionType)}...)
	binary = append(binary, uleb32(100)...) // claims 100 bytes but none follow
	p := New(binary, Config{})
	p.Read()
	if _, _, err := p.Read(); err == nil {
		t.Fatal("oversized section size should fail")
	}
}

func TestComponentCustomAndOpaqueSections(t *testing.T) {
	body := append(uleb32(2), []byte("hi")...)
	binary := append(componentHeader(), section(SectionCustom, body)...)
	binary = append(binary, section(SectionID(3), []byte{9, 9})...)
	p := New(binary, Config{})
	p.Read() // version
	payload, ok, err := p.Read()
	if err != nil || !ok || payload.Kind != PayloadCustomSection || payload.Name != "hi" {
		t.Fatalf("Read() component custom section = (%+v, %v, %v)", payload, ok, err)
	}
	payload, ok, err = p.Read()
	if err != nil || !ok || payload.Kind != PayloadComponentSection || len(payload.Bytes) != 2 {
		t.Fatalf("Read() opaque component section = (%+v, %v, %v)", payload, ok, err)
	}
}

func TestParseModuleDetectsOutOfOrderSections(t *testing.T) {
	binary := append(coreHeader(), section(SectionExport, nil)...)
	binary = append(binary, section(SectionType, []byte{0})...)
	if _, err := ParseModule(binary, Config{}); err == nil {
		t.Fatal("out-of-order sections should fail ParseModule")
	}
}

func TestParseModuleRejectsDataSectionWithoutDataCount(t *testing.T) {
	binary := append(coreHeader(), section(SectionData, []byte{0})...)
	if _, err := ParseModule(binary, Config{}); err == nil {
		t.Fatal("data section without a preceding data count section should fail")
	}
}

func TestParseModuleAcceptsDataCountBeforeData(t *testing.T) {
	binary := append(coreHeader(), section(SectionDataCount, uleb32(1))...)
	binary = append(binary, section(SectionData, []byte{0})...)
	payloads, err := ParseModule(binary, Config{})
	if err != nil {
		t.Fatalf("ParseModule() error = %v", err)
	}
	if len(payloads) != 4 { // version, data count, data, end
		t.Errorf("ParseModule() payload count = %d, want 4", len(payloads))
	}
}

func testRegistryForDecoder(t *testing.T) *types.Registry {
	t.Helper()
	cfg := types.Config{HotCapacity: 32, WarmCapacity: 32, ColdCapacity: 32, DemotionWindow: types.DefaultDemotionWindow}
	p := provider.New(1, "decoder", 1<<20, "tok")
	reg, err := types.New(p, cfg, logging.New("decoder-test", "error", "text"), metrics.NewWithRegistry("decoder-test", nil))
	if err != nil {
		t.Fatalf("types.New() error = %v", err)
	}
	return reg
}

func TestRegisterTypeSectionInternsFunctionTypes(t *testing.T) {
	// One function type: (i32, i32) -> i32
	ft := []byte{funcTypeForm}
	ft = append(ft, uleb32(2)...)
	ft = append(ft, coreValI32, coreValI32)
	ft = append(ft, uleb32(1)...)
	ft = append(ft, coreValI32)

	body := append(uleb32(1), ft...)
	payload := Payload{Kind: PayloadSection, Section: SectionType, Bytes: body}

	reg := testRegistryForDecoder(t)
	refs, err := RegisterTypeSection(payload, reg)
	if err != nil {
		t.Fatalf("RegisterTypeSection() error = %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("RegisterTypeSection() returned %d refs, want 1", len(refs))
	}
	got, ok := reg.Get(refs[0])
	if !ok {
		t.Fatal("registered function type not found")
	}
	if got.Kind != types.KindFunction || len(got.Function.Params) != 2 || len(got.Function.Results) != 1 {
		t.Errorf("registered type = %+v", got)
	}
}
