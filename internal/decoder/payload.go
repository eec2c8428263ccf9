package decoder

// SectionID is a core-module section tag (spec.md §6 "Module format": ids
// 0..12, LEB128-encoded sizes/indices, little-endian floats).
type SectionID uint8

const (
	SectionCustom    SectionID = 0
	SectionType      SectionID = 1
	SectionImport    SectionID = 2
	SectionFunction  SectionID = 3
	SectionTable     SectionID = 4
	SectionMemory    SectionID = 5
	SectionGlobal    SectionID = 6
	SectionExport    SectionID = 7
	SectionStart     SectionID = 8
	SectionElement   SectionID = 9
	SectionCode      SectionID = 10
	SectionData      SectionID = 11
	SectionDataCount SectionID = 12
)

// PayloadKind tags which fields of a Payload are meaningful. A single
// struct rather than a Rust-style enum, matching the canonical-bits-over-
// tagged-union idiom already used by internal/valuestore.ComponentValue.
type PayloadKind uint8

const (
	PayloadVersion PayloadKind = iota
	PayloadSection
	PayloadStartSection
	PayloadDataCountSection
	PayloadCustomSection
	PayloadComponentSection
	PayloadEnd
)

// Payload is one item of the decoder's streaming output. Section payloads
// (PayloadSection) carry a bounded slice over the input plus the section
// size rather than a parsed representation, letting the caller defer
// parsing (spec.md §4.4 "Protocol").
type Payload struct {
	Kind PayloadKind

	// PayloadVersion
	Version uint32

	// PayloadSection
	Section SectionID
	Bytes   []byte
	Size    int

	// PayloadStartSection
	StartFuncIndex uint32

	// PayloadDataCountSection
	DataCount uint32

	// PayloadCustomSection / PayloadComponentSection
	Name string
}
