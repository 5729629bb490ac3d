package dwarf

import (
	"iter"
	"sync"
)

// Unit is one unit header in .debug_info or .debug_types together with the
// extent of its entries.
type Unit struct {
	s *Session

	Section string
	// Offset is the offset of the unit header in Section.
	Offset uint64
	// Length is the declared unit_length, excluding the length field itself.
	Length     uint64
	Version    uint16
	Type       UnitType
	AddrSize   uint8
	OffsetSize uint8
	// AbbrevOffset locates the unit's table in .debug_abbrev.
	AbbrevOffset uint64
	// Signature is the type signature of type units, or the DWO id of
	// skeleton and split compile units.
	Signature uint64
	// TypeOffset is the unit-relative offset of the type entry of a type unit.
	TypeOffset uint64
	// DataOffset is the section offset of the root entry.
	DataOffset uint64
	// End is the section offset one past the unit.
	End uint64

	basesOnce sync.Once
	bases     unitBases
	basesErr  error
}

// unitBases are the DWARF 5 table bases declared on the root entry.
type unitBases struct {
	strOffsets    uint64
	hasStrOffsets bool
	addr          uint64
	hasAddr       bool
	rngLists      uint64
	hasRngLists   bool
	locLists      uint64
	hasLocLists   bool
	// GNU split DWARF on version 4
	gnuRanges uint64
	lowPC     Value
}

// Session returns the session the unit belongs to.
func (u *Unit) Session() *Session {
	return u.s
}

// Is64 reports whether the unit uses the 64-bit DWARF format.
func (u *Unit) Is64() bool {
	return u.OffsetSize == 8
}

// Contains reports whether off is a section offset inside the unit's entries.
func (u *Unit) Contains(off uint64) bool {
	return off >= u.DataOffset && off < u.End
}

func (u *Unit) data() []byte {
	return u.s.sec.Data(u.Section)
}

func (u *Unit) cursorAt(off uint64) *cursor {
	return newCursor(u.Section, u.data(), u.s.order, off, u.End)
}

// UnitReader enumerates unit headers in section order. It is restartable
// with Reset; after an error it yields nothing further.
type UnitReader struct {
	s       *Session
	section string
	off     uint64
	done    bool
}

// Units enumerates the units of .debug_info.
func (s *Session) Units() *UnitReader {
	return &UnitReader{s: s, section: SectionInfo}
}

// TypeUnits enumerates the DWARF 4 type units of .debug_types.
func (s *Session) TypeUnits() *UnitReader {
	return &UnitReader{s: s, section: SectionTypes}
}

// Reset restarts enumeration from the first unit.
func (r *UnitReader) Reset() {
	r.off = 0
	r.done = false
}

// Next returns the next unit, or nil at the end of the section.
func (r *UnitReader) Next() (*Unit, error) {
	if err := r.s.check(); err != nil {
		return nil, err
	}
	data := r.s.sec.Data(r.section)
	if r.done || r.off >= uint64(len(data)) {
		r.done = true
		return nil, nil
	}

	u, err := r.s.parseUnitHeader(r.section, r.off)
	if err != nil {
		r.done = true
		return nil, err
	}
	r.off = u.End
	return u, nil
}

// All iterates the remaining units. Iteration ends after the first error.
func (r *UnitReader) All() iter.Seq2[*Unit, error] {
	return func(yield func(*Unit, error) bool) {
		for {
			u, err := r.Next()
			if err != nil {
				yield(nil, err)
				return
			}
			if u == nil {
				return
			}
			if !yield(u, nil) {
				return
			}
		}
	}
}

// UnitAt parses the .debug_info unit header at off.
func (s *Session) UnitAt(off uint64) (*Unit, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if off >= uint64(len(s.sec.Info)) {
		return nil, corruptf(SectionInfo, off, "unit offset outside section")
	}
	return s.parseUnitHeader(SectionInfo, off)
}

func (s *Session) parseUnitHeader(section string, off uint64) (*Unit, error) {
	data := s.sec.Data(section)
	c := newCursor(section, data, s.order, off, uint64(len(data)))

	length, offSize, err := c.initialLength()
	if err != nil {
		return nil, err
	}
	if length > c.remaining() {
		return nil, corruptf(section, off, "unit length 0x%x exceeds remaining 0x%x bytes", length, c.remaining())
	}

	u := &Unit{
		s:          s,
		Section:    section,
		Offset:     off,
		Length:     length,
		OffsetSize: offSize,
		End:        c.off + length,
		Type:       UnitCompile,
	}
	c.end = u.End

	if u.Version, err = c.u16("unit version"); err != nil {
		return nil, err
	}
	if u.Version < 2 || u.Version > 5 {
		return nil, unsupportedf(section, off, "unit version %d", u.Version)
	}

	if u.Version >= 5 {
		t, err := c.u8("unit type")
		if err != nil {
			return nil, err
		}
		u.Type = UnitType(t)
		if u.AddrSize, err = c.u8("address size"); err != nil {
			return nil, err
		}
		if u.AbbrevOffset, err = c.offset(offSize, "abbrev offset"); err != nil {
			return nil, err
		}
		switch u.Type {
		case UnitCompile, UnitPartial:
		case UnitSkeleton, UnitSplitCompile:
			if u.Signature, err = c.u64("dwo id"); err != nil {
				return nil, err
			}
		case UnitTypeUnit, UnitSplitType:
			if u.Signature, err = c.u64("type signature"); err != nil {
				return nil, err
			}
			if u.TypeOffset, err = c.offset(offSize, "type offset"); err != nil {
				return nil, err
			}
		default:
			return nil, unsupportedf(section, off, "unit type %s", u.Type)
		}
	} else {
		if u.AbbrevOffset, err = c.offset(offSize, "abbrev offset"); err != nil {
			return nil, err
		}
		if u.AddrSize, err = c.u8("address size"); err != nil {
			return nil, err
		}
		if section == SectionTypes {
			u.Type = UnitTypeUnit
			if u.Signature, err = c.u64("type signature"); err != nil {
				return nil, err
			}
			if u.TypeOffset, err = c.offset(offSize, "type offset"); err != nil {
				return nil, err
			}
		}
	}

	switch u.AddrSize {
	case 1, 2, 4, 8:
	default:
		return nil, unsupportedf(section, off, "address size %d", u.AddrSize)
	}

	u.DataOffset = c.off
	return u, nil
}

// Root returns the unit's root entry.
func (u *Unit) Root() (*Entry, error) {
	e, err := u.readEntry(u.DataOffset, 0)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, notFoundf(u.Section, u.DataOffset, "unit has no root entry")
	}
	return e, nil
}

// Abbrevs returns the unit's abbreviation table.
func (u *Unit) Abbrevs() (*AbbrevTable, error) {
	return u.s.AbbrevTable(u.AbbrevOffset)
}

// TypeEntry returns the entry describing the type of a type unit.
func (u *Unit) TypeEntry() (*Entry, error) {
	if u.Type != UnitTypeUnit && u.Type != UnitSplitType {
		return nil, notFoundf(u.Section, u.Offset, "not a type unit")
	}
	return u.EntryAt(u.Offset + u.TypeOffset)
}

// Name returns DW_AT_name of the root entry, or "" when it has none.
func (u *Unit) Name() (string, error) {
	root, err := u.Root()
	if err != nil {
		return "", err
	}
	return root.Name()
}

// loadBases reads the table bases from the root entry once. Values are left
// at zero when the attribute is absent.
func (u *Unit) loadBases() (unitBases, error) {
	u.basesOnce.Do(func() {
		root, err := u.Root()
		if err != nil {
			u.basesErr = err
			return
		}
		for _, a := range root.Attrs {
			switch a.Attr {
			case AttrStrOffsetsBase:
				u.bases.strOffsets = a.Val.U
				u.bases.hasStrOffsets = true
			case AttrAddrBase, AttrGNUAddrBase:
				u.bases.addr = a.Val.U
				u.bases.hasAddr = true
			case AttrRnglistsBase:
				u.bases.rngLists = a.Val.U
				u.bases.hasRngLists = true
			case AttrLoclistsBase:
				u.bases.locLists = a.Val.U
				u.bases.hasLocLists = true
			case AttrGNURangesBase:
				u.bases.gnuRanges = a.Val.U
			case AttrLowPC:
				u.bases.lowPC = a.Val
			}
		}
	})
	return u.bases, u.basesErr
}
