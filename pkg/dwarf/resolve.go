package dwarf

// ResolveString returns the text of a string-class value decoded in this
// unit, following .debug_str, .debug_line_str and .debug_str_offsets.
func (u *Unit) ResolveString(v Value) (string, error) {
	if err := u.s.check(); err != nil {
		return "", err
	}
	switch v.Class {
	case ClassString:
		return v.Str, nil
	case ClassStrOffset:
		return stringAt(SectionStr, u.s.sec.Str, v.U)
	case ClassLineStrOffset:
		return stringAt(SectionLineStr, u.s.sec.LineStr, v.U)
	case ClassStrIndex:
		off, err := u.strOffset(v.U)
		if err != nil {
			return "", err
		}
		return stringAt(SectionStr, u.s.sec.Str, off)
	case ClassStrAlt:
		return "", unsupportedf(u.Section, u.Offset, "strings in supplementary object files")
	}
	return "", unsupportedf(u.Section, u.Offset, "value of class %s is not a string", v.Class)
}

// strOffset reads entry idx of the unit's .debug_str_offsets contribution.
func (u *Unit) strOffset(idx uint64) (uint64, error) {
	b, err := u.loadBases()
	if err != nil {
		return 0, err
	}
	base := b.strOffsets
	if !b.hasStrOffsets {
		base = u.defaultTableBase()
	}
	return u.tableEntry(SectionStrOffsets, base, idx, u.OffsetSize)
}

// defaultTableBase is used when a unit declares no base for an indexed
// table: DWARF 5 units (split units in particular) then use the first
// contribution, right after its header.
func (u *Unit) defaultTableBase() uint64 {
	if u.Version < 5 {
		return 0
	}
	if u.OffsetSize == 8 {
		return 16
	}
	return 8
}

// defaultListBase is defaultTableBase for .debug_rnglists and
// .debug_loclists, whose headers also carry an offset entry count.
func (u *Unit) defaultListBase() uint64 {
	if u.OffsetSize == 8 {
		return 20
	}
	return 12
}

// tableEntry reads the idx'th slot of size bytes from a table starting at
// base in section.
func (u *Unit) tableEntry(section string, base, idx uint64, size uint8) (uint64, error) {
	data := u.s.sec.Data(section)
	if data == nil {
		return 0, notFoundf(section, base, "section not present for unit at 0x%x", u.Offset)
	}
	off := base + idx*uint64(size)
	if idx > uint64(len(data))/uint64(size) || off < base || off >= uint64(len(data)) {
		return 0, corruptf(section, base, "index %d outside section (size 0x%x)", idx, len(data))
	}
	c := newCursor(section, data, u.s.order, off, uint64(len(data)))
	return c.uint(int(size), "table entry")
}

// ResolveAddress returns the target address of an address-class value,
// reading .debug_addr for indexed forms.
func (u *Unit) ResolveAddress(v Value) (uint64, error) {
	if err := u.s.check(); err != nil {
		return 0, err
	}
	switch v.Class {
	case ClassAddress:
		return v.U, nil
	case ClassAddrIndex:
		return u.addrIndex(v.U)
	}
	return 0, unsupportedf(u.Section, u.Offset, "value of class %s is not an address", v.Class)
}

func (u *Unit) addrIndex(idx uint64) (uint64, error) {
	b, err := u.loadBases()
	if err != nil {
		return 0, err
	}
	base := b.addr
	if !b.hasAddr {
		base = u.defaultTableBase()
	}
	return u.tableEntry(SectionAddr, base, idx, u.AddrSize)
}

// RangeListOffset turns a DW_AT_ranges value into a section and offset. DWARF
// 5 units use .debug_rnglists; earlier units use .debug_ranges.
func (u *Unit) RangeListOffset(v Value) (string, uint64, error) {
	if err := u.s.check(); err != nil {
		return "", 0, err
	}
	b, err := u.loadBases()
	if err != nil {
		return "", 0, err
	}
	switch v.Class {
	case ClassSecOffset, ClassConstant:
		if u.Version >= 5 {
			return SectionRngLists, v.U, nil
		}
		return SectionRanges, b.gnuRanges + v.U, nil
	case ClassRngListIndex:
		base := b.rngLists
		if !b.hasRngLists {
			base = u.defaultListBase()
		}
		rel, err := u.tableEntry(SectionRngLists, base, v.U, u.OffsetSize)
		if err != nil {
			return "", 0, err
		}
		return SectionRngLists, base + rel, nil
	}
	return "", 0, unsupportedf(u.Section, u.Offset, "value of class %s is not a range list", v.Class)
}

// LocListOffset turns a location list value into a section and offset.
func (u *Unit) LocListOffset(v Value) (string, uint64, error) {
	if err := u.s.check(); err != nil {
		return "", 0, err
	}
	switch v.Class {
	case ClassSecOffset, ClassConstant:
		if u.Version >= 5 {
			return SectionLocLists, v.U, nil
		}
		return SectionLoc, v.U, nil
	case ClassLocListIndex:
		b, err := u.loadBases()
		if err != nil {
			return "", 0, err
		}
		base := b.locLists
		if !b.hasLocLists {
			base = u.defaultListBase()
		}
		rel, err := u.tableEntry(SectionLocLists, base, v.U, u.OffsetSize)
		if err != nil {
			return "", 0, err
		}
		return SectionLocLists, base + rel, nil
	}
	return "", 0, unsupportedf(u.Section, u.Offset, "value of class %s is not a location list", v.Class)
}
