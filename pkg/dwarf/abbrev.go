package dwarf

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/singleflight"
)

// AttrSpec is one (attribute, form) pair of an abbreviation declaration.
type AttrSpec struct {
	Attr Attr
	Form Form
	// ImplicitConst holds the value declared for DW_FORM_implicit_const.
	ImplicitConst int64
}

// Abbrev describes the layout shared by every entry using its code.
type Abbrev struct {
	Code     uint64
	Tag      Tag
	Children bool
	Specs    []AttrSpec
}

// AbbrevTable maps abbreviation codes to declarations. Tables are immutable
// once parsed and may be shared by several units.
type AbbrevTable struct {
	// Offset is the table's offset in .debug_abbrev.
	Offset uint64
	// Size is the number of bytes the table occupies, terminator included.
	Size uint64
	// Fingerprint is the xxh3 hash of the table's raw bytes, used to spot
	// identical tables emitted at different offsets.
	Fingerprint uint64

	entries map[uint64]*Abbrev
	codes   []uint64
}

// Lookup returns the declaration for code.
func (t *AbbrevTable) Lookup(code uint64) (*Abbrev, bool) {
	a, ok := t.entries[code]
	return a, ok
}

// Codes returns the codes in declaration order.
func (t *AbbrevTable) Codes() []uint64 {
	out := make([]uint64, len(t.codes))
	copy(out, t.codes)
	return out
}

// Len is the number of declarations.
func (t *AbbrevTable) Len() int {
	return len(t.codes)
}

type abbrevCache struct {
	s      *Session
	logger zerolog.Logger

	mu     sync.RWMutex
	tables map[uint64]*AbbrevTable
	sf     singleflight.Group
	parses atomic.Int64
}

func (c *abbrevCache) init(s *Session) {
	c.s = s
	c.logger = s.logger.With().Str("component", "abbrev").Logger()
	c.tables = make(map[uint64]*AbbrevTable)
}

func (c *abbrevCache) reset() {
	c.mu.Lock()
	c.tables = make(map[uint64]*AbbrevTable)
	c.mu.Unlock()
}

func (c *abbrevCache) get(off uint64) (*AbbrevTable, error) {
	c.mu.RLock()
	if t, ok := c.tables[off]; ok {
		c.mu.RUnlock()
		return t, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.sf.Do(strconv.FormatUint(off, 10), func() (any, error) {
		// a caller that lost the race to the map may arrive after the
		// winning flight already finished
		c.mu.RLock()
		t, ok := c.tables[off]
		c.mu.RUnlock()
		if ok {
			return t, nil
		}

		c.parses.Add(1)
		t, err := parseAbbrevTable(c.s.sec.Abbrev, off)
		if err != nil {
			c.logger.Debug().Err(err).Uint64("offset", off).Msg("Abbreviation table parse failed")
			return nil, err
		}

		c.mu.Lock()
		c.tables[off] = t
		c.mu.Unlock()

		c.logger.Trace().
			Uint64("offset", off).
			Int("codes", t.Len()).
			Uint64("size", t.Size).
			Msg("Parsed abbreviation table")
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*AbbrevTable), nil
}

// AbbrevTable returns the abbreviation table at off in .debug_abbrev. Each
// offset is parsed at most once per Session, also under concurrent callers.
func (s *Session) AbbrevTable(off uint64) (*AbbrevTable, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.abbrevs.get(off)
}

// AbbrevParses reports how many abbreviation tables the session has parsed.
func (s *Session) AbbrevParses() int64 {
	return s.abbrevs.parses.Load()
}

func parseAbbrevTable(data []byte, off uint64) (*AbbrevTable, error) {
	if off >= uint64(len(data)) {
		return nil, corruptf(SectionAbbrev, off, "table offset outside section (size 0x%x)", len(data))
	}

	// abbreviations hold no fixed-width multi-byte fields, so no byte order
	c := newCursor(SectionAbbrev, data, nil, off, uint64(len(data)))
	t := &AbbrevTable{
		Offset:  off,
		entries: make(map[uint64]*Abbrev),
	}

	for {
		// the last table in a section is sometimes left unterminated
		if c.atEnd() {
			break
		}
		entryOff := c.off
		code, err := c.uleb("abbreviation code")
		if err != nil {
			return nil, err
		}
		if code == 0 {
			break
		}
		if _, dup := t.entries[code]; dup {
			return nil, corruptf(SectionAbbrev, entryOff, "duplicate abbreviation code %d", code)
		}

		tag, err := c.uleb("abbreviation tag")
		if err != nil {
			return nil, err
		}
		children, err := c.u8("has-children flag")
		if err != nil {
			return nil, err
		}

		a := &Abbrev{Code: code, Tag: Tag(tag), Children: children != 0}
		for {
			attr, err := c.uleb("attribute")
			if err != nil {
				return nil, err
			}
			form, err := c.uleb("form")
			if err != nil {
				return nil, err
			}
			if attr == 0 && form == 0 {
				break
			}

			spec := AttrSpec{Attr: Attr(attr), Form: Form(form)}
			if spec.Form == FormImplicitConst {
				if spec.ImplicitConst, err = c.sleb("implicit constant"); err != nil {
					return nil, err
				}
			}
			a.Specs = append(a.Specs, spec)
		}

		t.entries[code] = a
		t.codes = append(t.codes, code)
	}

	t.Size = c.off - off
	t.Fingerprint = xxh3.Hash(data[off:c.off])
	return t, nil
}
