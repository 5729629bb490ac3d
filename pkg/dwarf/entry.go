package dwarf

import (
	"fmt"
)

// Entry is a debugging information entry, a view computed from its unit and
// offset. Navigation re-reads the unit's bytes; no parent or child links are
// kept, so any entry can be revisited from its offset.
type Entry struct {
	unit *Unit
	// depth is 0 for the root, -1 when unknown (random access).
	depth  int
	abbrev *Abbrev
	end    uint64

	Offset   uint64
	Tag      Tag
	Children bool
	Attrs    []Attribute
}

// Unit returns the unit containing the entry.
func (e *Entry) Unit() *Unit {
	return e.unit
}

// Code is the abbreviation code the entry was encoded with.
func (e *Entry) Code() uint64 {
	return e.abbrev.Code
}

// End is the section offset one past the entry's own attribute bytes.
func (e *Entry) End() uint64 {
	return e.end
}

// readEntryOrNull decodes the entry at off. A null entry yields a nil entry
// and the offset following it.
func (u *Unit) readEntryOrNull(off uint64, depth int) (*Entry, uint64, error) {
	if err := u.s.check(); err != nil {
		return nil, 0, err
	}
	if off >= u.End {
		if depth > 0 {
			return nil, 0, corruptf(u.Section, off, "entry list not terminated before unit end 0x%x", u.End)
		}
		return nil, u.End, nil
	}
	if off < u.DataOffset {
		return nil, 0, corruptf(u.Section, off, "entry offset inside unit header")
	}

	c := u.cursorAt(off)
	code, err := c.uleb("abbreviation code")
	if err != nil {
		return nil, 0, err
	}
	if code == 0 {
		return nil, c.off, nil
	}

	tab, err := u.Abbrevs()
	if err != nil {
		return nil, 0, err
	}
	ab, ok := tab.Lookup(code)
	if !ok {
		return nil, 0, corruptf(u.Section, off, "abbreviation code %d not in table at 0x%x", code, u.AbbrevOffset)
	}

	e := &Entry{
		unit:     u,
		depth:    depth,
		abbrev:   ab,
		Offset:   off,
		Tag:      ab.Tag,
		Children: ab.Children,
		Attrs:    make([]Attribute, 0, len(ab.Specs)),
	}
	for _, spec := range ab.Specs {
		a, err := u.decodeAttr(c, spec)
		if err != nil {
			return nil, 0, err
		}
		e.Attrs = append(e.Attrs, a)
	}
	e.end = c.off
	return e, e.end, nil
}

func (u *Unit) readEntry(off uint64, depth int) (*Entry, error) {
	e, _, err := u.readEntryOrNull(off, depth)
	return e, err
}

// EntryAt decodes the entry at section offset off, which must lie within
// the unit. A null entry at off yields nil.
func (u *Unit) EntryAt(off uint64) (*Entry, error) {
	if err := u.s.check(); err != nil {
		return nil, err
	}
	if !u.Contains(off) {
		return nil, corruptf(u.Section, off, "offset outside unit [0x%x, 0x%x)", u.DataOffset, u.End)
	}
	depth := -1
	if off == u.DataOffset {
		depth = 0
	}
	return u.readEntry(off, depth)
}

// FirstChild returns the entry's first child, or nil when it has none.
// Entries declared without children return nil without reading further.
func (e *Entry) FirstChild() (*Entry, error) {
	if err := e.unit.s.check(); err != nil {
		return nil, err
	}
	if !e.Children {
		return nil, nil
	}
	return e.unit.readEntry(e.end, e.childDepth())
}

func (e *Entry) childDepth() int {
	if e.depth < 0 {
		return 1
	}
	return e.depth + 1
}

// NextSibling returns the entry following e at the same level, or nil at
// the end of the sibling chain.
func (e *Entry) NextSibling() (*Entry, error) {
	if err := e.unit.s.check(); err != nil {
		return nil, err
	}
	if e.depth == 0 {
		return nil, nil
	}
	next, err := e.subtreeEnd()
	if err != nil {
		return nil, err
	}
	return e.unit.readEntry(next, e.depth)
}

// subtreeEnd is the offset following the entry and all its descendants.
// A forward DW_AT_sibling inside the unit is trusted; otherwise the child
// list is skipped entry by entry.
func (e *Entry) subtreeEnd() (uint64, error) {
	if !e.Children {
		return e.end, nil
	}
	if a, ok := e.Attr(AttrSibling); ok && a.Val.Class == ClassReference {
		target := e.unit.Offset + a.Val.U
		if target <= e.Offset || target > e.unit.End || target < e.unit.Offset {
			return 0, corruptf(e.unit.Section, a.Offset, "sibling reference 0x%x outside unit", target)
		}
		return target, nil
	}
	return e.unit.skipChildren(e.end)
}

// skipChildren walks a child list starting at off and returns the offset
// after its terminating null entry.
func (u *Unit) skipChildren(off uint64) (uint64, error) {
	depth := 1
	pos := off
	for depth > 0 {
		e, next, err := u.readEntryOrNull(pos, depth)
		if err != nil {
			return 0, err
		}
		if next <= pos {
			return 0, corruptf(u.Section, pos, "entry decoding made no progress")
		}
		switch {
		case e == nil:
			depth--
		case e.Children:
			depth++
		}
		pos = next
	}
	return pos, nil
}

// Attr returns the first attribute of kind a.
func (e *Entry) Attr(a Attr) (Attribute, bool) {
	for _, at := range e.Attrs {
		if at.Attr == a {
			return at, true
		}
	}
	return Attribute{}, false
}

// Has reports whether the entry carries attribute a.
func (e *Entry) Has(a Attr) bool {
	_, ok := e.Attr(a)
	return ok
}

// Attributes returns the entry's attributes in declaration order. Like Attr
// and Has it only reads the decoded entry, so it keeps working after Close.
func (e *Entry) Attributes() []Attribute {
	return e.Attrs
}

func (e *Entry) mustAttr(a Attr) (Attribute, error) {
	if err := e.unit.s.check(); err != nil {
		return Attribute{}, err
	}
	at, ok := e.Attr(a)
	if !ok {
		return at, notFoundf(e.unit.Section, e.Offset, "%s has no %s", e.Tag, a)
	}
	return at, nil
}

func (e *Entry) mismatch(at Attribute, want string) error {
	return &Error{
		Kind:    ErrUnsupported,
		Section: e.unit.Section,
		Offset:  at.Offset,
		Form:    at.Form,
		Msg:     fmt.Sprintf("%s of class %s cannot be read as %s", at.Attr, at.Val.Class, want),
	}
}

// Name returns DW_AT_name, or "" when the entry has none.
func (e *Entry) Name() (string, error) {
	at, ok := e.Attr(AttrName)
	if !ok {
		return "", nil
	}
	return e.unit.ResolveString(at.Val)
}

// String resolves a string-valued attribute.
func (e *Entry) String(a Attr) (string, error) {
	at, err := e.mustAttr(a)
	if err != nil {
		return "", err
	}
	if !at.Val.Class.IsString() {
		return "", e.mismatch(at, "string")
	}
	return e.unit.ResolveString(at.Val)
}

// Uint returns an unsigned constant or section offset attribute.
func (e *Entry) Uint(a Attr) (uint64, error) {
	at, err := e.mustAttr(a)
	if err != nil {
		return 0, err
	}
	switch at.Val.Class {
	case ClassConstant, ClassSecOffset, ClassAddress:
		return at.Val.U, nil
	case ClassSigned:
		if at.Val.I < 0 {
			return 0, e.mismatch(at, "unsigned")
		}
		return uint64(at.Val.I), nil
	}
	return 0, e.mismatch(at, "unsigned")
}

// Int returns a constant attribute as a signed value.
func (e *Entry) Int(a Attr) (int64, error) {
	at, err := e.mustAttr(a)
	if err != nil {
		return 0, err
	}
	switch at.Val.Class {
	case ClassSigned:
		return at.Val.I, nil
	case ClassConstant:
		return int64(at.Val.U), nil
	}
	return 0, e.mismatch(at, "signed")
}

// Flag returns a flag attribute; an absent flag reads as false.
func (e *Entry) Flag(a Attr) (bool, error) {
	if err := e.unit.s.check(); err != nil {
		return false, err
	}
	at, ok := e.Attr(a)
	if !ok {
		return false, nil
	}
	if at.Val.Class != ClassFlag {
		return false, e.mismatch(at, "flag")
	}
	return at.Val.Flag, nil
}

// Address returns an address attribute, resolving .debug_addr indices.
func (e *Entry) Address(a Attr) (uint64, error) {
	at, err := e.mustAttr(a)
	if err != nil {
		return 0, err
	}
	if at.Val.Class != ClassAddress && at.Val.Class != ClassAddrIndex {
		return 0, e.mismatch(at, "address")
	}
	return e.unit.ResolveAddress(at.Val)
}

// Expr returns the raw bytes of an expression or block attribute. The
// expression is not evaluated.
func (e *Entry) Expr(a Attr) ([]byte, error) {
	at, err := e.mustAttr(a)
	if err != nil {
		return nil, err
	}
	if at.Val.Class != ClassExprLoc && at.Val.Class != ClassBlock {
		return nil, e.mismatch(at, "expression")
	}
	return at.Val.Bytes, nil
}

// Deref follows a reference attribute to the entry it names.
func (e *Entry) Deref(a Attr) (*Entry, error) {
	at, err := e.mustAttr(a)
	if err != nil {
		return nil, err
	}
	return e.unit.Deref(at.Val)
}

// Deref resolves a reference value decoded in this unit. Bounds are checked
// here rather than when the value was decoded.
func (u *Unit) Deref(v Value) (*Entry, error) {
	if err := u.s.check(); err != nil {
		return nil, err
	}

	var target *Entry
	var err error
	switch v.Class {
	case ClassReference:
		off := u.Offset + v.U
		if off < u.Offset || !u.Contains(off) {
			return nil, corruptf(u.Section, u.Offset, "unit reference +0x%x outside unit", v.U)
		}
		target, err = u.EntryAt(off)
	case ClassReferenceAddr:
		if v.U >= uint64(len(u.s.sec.Info)) {
			return nil, corruptf(SectionInfo, v.U, "section reference outside %s", SectionInfo)
		}
		target, err = u.s.EntryAt(v.U)
	case ClassReferenceSig:
		tu, terr := u.s.TypeUnitBySignature(v.U)
		if terr != nil {
			return nil, terr
		}
		target, err = tu.TypeEntry()
	case ClassReferenceAlt:
		return nil, unsupportedf(u.Section, u.Offset, "references into supplementary object files")
	default:
		return nil, unsupportedf(u.Section, u.Offset, "value of class %s is not a reference", v.Class)
	}
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, corruptf(u.Section, v.U, "reference names a null entry")
	}
	return target, nil
}
