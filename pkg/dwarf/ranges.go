package dwarf

// Range is a half-open address interval [Low, High).
type Range struct {
	Low  uint64
	High uint64
}

// LocEntry is one entry of a location list. Default entries from DWARF 5
// apply where no other entry does and are flagged with Default.
type LocEntry struct {
	Range
	Default bool
	// Expr holds the location expression, unevaluated.
	Expr []byte
}

// BaseAddress is the unit's DW_AT_low_pc, or zero when the root has none.
func (u *Unit) BaseAddress() (uint64, error) {
	b, err := u.loadBases()
	if err != nil {
		return 0, err
	}
	if b.lowPC.Class == ClassUnknown {
		return 0, nil
	}
	return u.ResolveAddress(b.lowPC)
}

// Ranges returns the address ranges covered by the entry, from its
// low_pc/high_pc pair or its DW_AT_ranges list. Entries with neither yield
// nil.
func (e *Entry) Ranges() ([]Range, error) {
	if err := e.unit.s.check(); err != nil {
		return nil, err
	}
	if e.Has(AttrLowPC) {
		hi, ok := e.Attr(AttrHighPC)
		if !ok {
			return nil, nil
		}
		low, err := e.Address(AttrLowPC)
		if err != nil {
			return nil, err
		}
		var high uint64
		switch hi.Val.Class {
		case ClassAddress, ClassAddrIndex:
			if high, err = e.unit.ResolveAddress(hi.Val); err != nil {
				return nil, err
			}
		case ClassConstant:
			high = low + hi.Val.U
		default:
			return nil, e.mismatch(hi, "address or offset")
		}
		return []Range{{Low: low, High: high}}, nil
	}

	at, ok := e.Attr(AttrRanges)
	if !ok {
		return nil, nil
	}
	section, off, err := e.unit.RangeListOffset(at.Val)
	if err != nil {
		return nil, err
	}
	base, err := e.unit.BaseAddress()
	if err != nil {
		return nil, err
	}
	if section == SectionRanges {
		return e.unit.readRanges(off, base)
	}
	return e.unit.readRngLists(off, base)
}

func (u *Unit) maxAddress() uint64 {
	if u.AddrSize == 8 {
		return ^uint64(0)
	}
	return 1<<(8*uint64(u.AddrSize)) - 1
}

func (u *Unit) listCursor(section string, off uint64) (*cursor, error) {
	data := u.s.sec.Data(section)
	if data == nil {
		return nil, notFoundf(section, off, "section not present for unit at 0x%x", u.Offset)
	}
	if off >= uint64(len(data)) {
		return nil, corruptf(section, off, "list offset outside section (size 0x%x)", len(data))
	}
	return newCursor(section, data, u.s.order, off, uint64(len(data))), nil
}

// readRanges decodes a pre-DWARF 5 .debug_ranges list.
func (u *Unit) readRanges(off, base uint64) ([]Range, error) {
	c, err := u.listCursor(SectionRanges, off)
	if err != nil {
		return nil, err
	}
	size := int(u.AddrSize)
	var out []Range
	for {
		lo, err := c.uint(size, "range start")
		if err != nil {
			return nil, err
		}
		hi, err := c.uint(size, "range end")
		if err != nil {
			return nil, err
		}
		switch {
		case lo == 0 && hi == 0:
			return out, nil
		case lo == u.maxAddress():
			base = hi
		default:
			out = append(out, Range{Low: base + lo, High: base + hi})
		}
	}
}

// readRngLists decodes a DWARF 5 .debug_rnglists list.
func (u *Unit) readRngLists(off, base uint64) ([]Range, error) {
	c, err := u.listCursor(SectionRngLists, off)
	if err != nil {
		return nil, err
	}
	size := int(u.AddrSize)
	var out []Range
	for {
		at := c.off
		kind, err := c.u8("range list entry kind")
		if err != nil {
			return nil, err
		}
		var r Range
		switch kind {
		case rleEndOfList:
			return out, nil
		case rleBaseAddressx:
			idx, err := c.uleb("base address index")
			if err != nil {
				return nil, err
			}
			if base, err = u.addrIndex(idx); err != nil {
				return nil, err
			}
			continue
		case rleBaseAddress:
			if base, err = c.uint(size, "base address"); err != nil {
				return nil, err
			}
			continue
		case rleStartxEndx:
			if r, err = u.indexPair(c, false); err != nil {
				return nil, err
			}
		case rleStartxLength:
			if r, err = u.indexPair(c, true); err != nil {
				return nil, err
			}
		case rleOffsetPair:
			lo, err := c.uleb("range start offset")
			if err != nil {
				return nil, err
			}
			hi, err := c.uleb("range end offset")
			if err != nil {
				return nil, err
			}
			r = Range{Low: base + lo, High: base + hi}
		case rleStartEnd:
			if r.Low, err = c.uint(size, "range start"); err != nil {
				return nil, err
			}
			if r.High, err = c.uint(size, "range end"); err != nil {
				return nil, err
			}
		case rleStartLength:
			if r.Low, err = c.uint(size, "range start"); err != nil {
				return nil, err
			}
			n, err := c.uleb("range length")
			if err != nil {
				return nil, err
			}
			r.High = r.Low + n
		default:
			return nil, unsupportedf(SectionRngLists, at, "range list entry kind 0x%x", kind)
		}
		out = append(out, r)
	}
}

// indexPair reads a (startx, endx) or (startx, length) pair.
func (u *Unit) indexPair(c *cursor, length bool) (Range, error) {
	var r Range
	idx, err := c.uleb("start index")
	if err != nil {
		return r, err
	}
	if r.Low, err = u.addrIndex(idx); err != nil {
		return r, err
	}
	n, err := c.uleb("end index or length")
	if err != nil {
		return r, err
	}
	if length {
		r.High = r.Low + n
		return r, nil
	}
	r.High, err = u.addrIndex(n)
	return r, err
}

// LocationList decodes the location list a DW_AT_location (or similar)
// value points at. Expressions are returned as raw bytes.
func (u *Unit) LocationList(v Value) ([]LocEntry, error) {
	section, off, err := u.LocListOffset(v)
	if err != nil {
		return nil, err
	}
	base, err := u.BaseAddress()
	if err != nil {
		return nil, err
	}
	if section == SectionLoc {
		return u.readLoc(off, base)
	}
	return u.readLocLists(off, base)
}

// readLoc decodes a pre-DWARF 5 .debug_loc list.
func (u *Unit) readLoc(off, base uint64) ([]LocEntry, error) {
	c, err := u.listCursor(SectionLoc, off)
	if err != nil {
		return nil, err
	}
	size := int(u.AddrSize)
	var out []LocEntry
	for {
		lo, err := c.uint(size, "location start")
		if err != nil {
			return nil, err
		}
		hi, err := c.uint(size, "location end")
		if err != nil {
			return nil, err
		}
		if lo == 0 && hi == 0 {
			return out, nil
		}
		if lo == u.maxAddress() {
			base = hi
			continue
		}
		n, err := c.u16("expression length")
		if err != nil {
			return nil, err
		}
		expr, err := c.bytes(uint64(n), "location expression")
		if err != nil {
			return nil, err
		}
		out = append(out, LocEntry{Range: Range{Low: base + lo, High: base + hi}, Expr: expr})
	}
}

// readLocLists decodes a DWARF 5 .debug_loclists list.
func (u *Unit) readLocLists(off, base uint64) ([]LocEntry, error) {
	c, err := u.listCursor(SectionLocLists, off)
	if err != nil {
		return nil, err
	}
	size := int(u.AddrSize)
	var out []LocEntry
	for {
		at := c.off
		kind, err := c.u8("location list entry kind")
		if err != nil {
			return nil, err
		}
		var le LocEntry
		switch kind {
		case lleEndOfList:
			return out, nil
		case lleBaseAddressx:
			idx, err := c.uleb("base address index")
			if err != nil {
				return nil, err
			}
			if base, err = u.addrIndex(idx); err != nil {
				return nil, err
			}
			continue
		case lleBaseAddress:
			if base, err = c.uint(size, "base address"); err != nil {
				return nil, err
			}
			continue
		case lleStartxEndx:
			le.Range, err = u.indexPair(c, false)
		case lleStartxLength:
			le.Range, err = u.indexPair(c, true)
		case lleOffsetPair:
			var lo, hi uint64
			if lo, err = c.uleb("location start offset"); err == nil {
				hi, err = c.uleb("location end offset")
			}
			le.Range = Range{Low: base + lo, High: base + hi}
		case lleDefaultLocation:
			le.Default = true
		case lleStartEnd:
			if le.Low, err = c.uint(size, "location start"); err == nil {
				le.High, err = c.uint(size, "location end")
			}
		case lleStartLength:
			var n uint64
			if le.Low, err = c.uint(size, "location start"); err == nil {
				n, err = c.uleb("location length")
				le.High = le.Low + n
			}
		default:
			return nil, unsupportedf(SectionLocLists, at, "location list entry kind 0x%x", kind)
		}
		if err != nil {
			return nil, err
		}

		n, err := c.uleb("expression length")
		if err != nil {
			return nil, err
		}
		if le.Expr, err = c.bytes(n, "location expression"); err != nil {
			return nil, err
		}
		out = append(out, le)
	}
}
