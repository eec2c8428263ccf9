// Package decoder implements the streaming WebAssembly core-module and
// Component Model binary parser: a state machine keyed on the detected
// binary magic that emits a Payload stream without eagerly parsing
// section bodies (spec.md §4.4).
package decoder

import (
	"github.com/wrt-go/wrt/internal/infra/errors"
)

// Config controls parser behavior that is not implied by the binary
// itself.
type Config struct {
	// SkipUnknownCustom, when true, silently skips section IDs the
	// parser does not recognize instead of surfacing them as a
	// synthetic custom-section payload (spec.md §4.4 "Section
	// policies").
	SkipUnknownCustom bool
}

// Parser is a single-pass streaming iterator over a WebAssembly binary.
// Not safe for concurrent use.
type Parser struct {
	binary []byte
	offset int
	cfg    Config

	versionRead  bool
	finished     bool
	kind         BinaryKind
	sawDataAfter bool // a DataSection payload has already been emitted
}

// New creates a Parser over binary. The binary type is detected lazily,
// on the first Read() call, matching the original streaming
// parser's "detect on first read" behavior.
func New(binary []byte, cfg Config) *Parser {
	return &Parser{binary: binary, cfg: cfg}
}

// Offset returns the parser's current byte offset into the binary.
func (p *Parser) Offset() int { return p.offset }

// Kind returns the detected binary kind, or BinaryUnknown before the
// first Read().
func (p *Parser) Kind() BinaryKind { return p.kind }

// Read returns the next Payload, or (Payload{}, false, nil) once the
// stream is exhausted. The decoder never advances past an error
// (spec.md §4.4 "Failure semantics"): after Read returns a non-nil
// error, every subsequent call returns (Payload{}, false, nil) without
// reading further.
func (p *Parser) Read() (Payload, bool, error) {
	if p.finished {
		return Payload{}, false, nil
	}

	if !p.versionRead {
		payload, err := p.processHeader()
		if err != nil {
			p.finished = true
			return Payload{}, false, err
		}
		return payload, true, nil
	}

	if p.offset >= len(p.binary) {
		p.finished = true
		return Payload{Kind: PayloadEnd}, true, nil
	}

	if p.offset+1 > len(p.binary) {
		p.finished = true
		return Payload{}, false, errors.ParseError(int64(p.offset), "truncated section header")
	}
	sectionID := SectionID(p.binary[p.offset])
	p.offset++

	size, n, err := readULEB32(p.binary, p.offset)
	if err != nil {
		p.finished = true
		return Payload{}, false, err
	}
	p.offset += n

	if p.offset+int(size) > len(p.binary) {
		p.finished = true
		return Payload{}, false, errors.ParseError(int64(p.offset), "section extends past end of binary")
	}

	data := p.binary[p.offset : p.offset+int(size)]
	p.offset += int(size)

	payload, skip, err := p.processSection(sectionID, data, int(size))
	if err != nil {
		p.finished = true
		return Payload{}, false, err
	}
	if skip {
		return p.Read()
	}
	return payload, true, nil
}

func (p *Parser) processHeader() (Payload, error) {
	if len(p.binary) < 8 {
		return Payload{}, errors.ParseError(0, "binary shorter than 8-byte header")
	}
	kind, err := DetectBinaryKind(p.binary)
	if err != nil {
		return Payload{}, err
	}
	p.kind = kind
	p.offset = 8
	p.versionRead = true
	return Payload{Kind: PayloadVersion, Version: 1}, nil
}

// processSection dispatches a section body by binary kind. skip is true
// when the section should be silently dropped and the next one read
// instead (SkipUnknownCustom on an unrecognized core section ID).
func (p *Parser) processSection(id SectionID, data []byte, size int) (payload Payload, skip bool, err error) {
	switch p.kind {
	case BinaryCoreModule:
		return p.processCoreSection(id, data, size)
	case BinaryComponent:
		payload, err = p.processComponentSection(id, data, size)
		return payload, false, err
	default:
		return Payload{}, false, errors.ParseError(int64(p.offset), "binary type not detected")
	}
}

func (p *Parser) processCoreSection(id SectionID, data []byte, size int) (Payload, bool, error) {
	switch id {
	case SectionCustom:
		name, n, err := readName(data, 0)
		if err != nil {
			return Payload{}, false, err
		}
		return Payload{Kind: PayloadCustomSection, Name: name, Bytes: data[n:], Size: size - n}, false, nil

	case SectionStart:
		if size == 0 {
			return Payload{}, false, errors.ParseError(int64(p.offset), "start section cannot be empty")
		}
		index, _, err := readULEB32(data, 0)
		if err != nil {
			return Payload{}, false, err
		}
		return Payload{Kind: PayloadStartSection, StartFuncIndex: index}, false, nil

	case SectionDataCount:
		if size == 0 {
			return Payload{}, false, errors.ParseError(int64(p.offset), "data count section cannot be empty")
		}
		count, _, err := readULEB32(data, 0)
		if err != nil {
			return Payload{}, false, err
		}
		return Payload{Kind: PayloadDataCountSection, DataCount: count}, false, nil

	case SectionData:
		p.sawDataAfter = true
		return Payload{Kind: PayloadSection, Section: id, Bytes: data, Size: size}, false, nil

	case SectionType, SectionImport, SectionFunction, SectionTable,
		SectionMemory, SectionGlobal, SectionExport, SectionElement, SectionCode:
		return Payload{Kind: PayloadSection, Section: id, Bytes: data, Size: size}, false, nil

	default:
		if p.cfg.SkipUnknownCustom {
			return Payload{}, true, nil
		}
		return Payload{Kind: PayloadCustomSection, Name: unknownSectionName(id), Bytes: data, Size: size}, false, nil
	}
}

func (p *Parser) processComponentSection(id SectionID, data []byte, size int) (Payload, error) {
	if id == SectionCustom {
		name, n, err := readName(data, 0)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Kind: PayloadCustomSection, Name: name, Bytes: data[n:], Size: size - n}, nil
	}
	// All other component sections are left as an opaque bounded slice
	// for a higher-level component decoder to interpret, matching the
	// original parser's deferred-parsing design (spec.md §4.4
	// "carries either a parsed representation or a bounded slice").
	return Payload{Kind: PayloadComponentSection, Bytes: data, Size: size}, nil
}

func unknownSectionName(id SectionID) string {
	const hex = "0123456789abcdef"
	return "unknown_0x" + string([]byte{hex[id>>4], hex[id&0xF]})
}

// ParseModule drains binary's full payload stream, enforcing the two
// module-level ordering invariants a single-payload-at-a-time Read()
// cannot (spec.md §4.4 "Section policies"): the IDs of plain sections
// (PayloadSection, type through data) must appear in non-decreasing order
// — start and data count payloads are not part of that check — and a data
// section must be preceded by a data count section; a data count that
// comes after the data section, or is missing, is rejected. It returns
// every payload in order.
func ParseModule(binary []byte, cfg Config) ([]Payload, error) {
	p := New(binary, cfg)
	var payloads []Payload
	var highestSeen SectionID
	sawDataCount := false

	for {
		payload, ok, err := p.Read()
		if err != nil {
			return nil, err
		}
		if !ok {
			return payloads, nil
		}
		payloads = append(payloads, payload)

		switch payload.Kind {
		case PayloadDataCountSection:
			if p.sawDataAfter {
				return nil, errors.ParseError(int64(p.offset), "data count section must precede the data section")
			}
			sawDataCount = true
		case PayloadSection:
			if payload.Section < highestSeen {
				return nil, errors.ParseError(int64(p.offset), "sections out of order")
			}
			highestSeen = payload.Section
		case PayloadEnd:
			if p.sawDataAfter && !sawDataCount {
				return nil, errors.ParseError(int64(p.offset), "data count section must precede the data section")
			}
		}
	}
}
