package testutil

import (
	"encoding/binary"
	"sort"

	"github.com/coral-mesh/dwarfkit/internal/leb128"
)

// Buf assembles section bytes for hand-built DWARF fixtures. The zero value
// writes little endian.
type Buf struct {
	b     []byte
	Order binary.AppendByteOrder
}

// NewBuf returns an empty little-endian Buf.
func NewBuf() *Buf {
	return &Buf{Order: binary.LittleEndian}
}

func (b *Buf) order() binary.AppendByteOrder {
	if b.Order == nil {
		return binary.LittleEndian
	}
	return b.Order
}

func (b *Buf) U8(v uint8) *Buf {
	b.b = append(b.b, v)
	return b
}

func (b *Buf) U16(v uint16) *Buf {
	b.b = b.order().AppendUint16(b.b, v)
	return b
}

func (b *Buf) U32(v uint32) *Buf {
	b.b = b.order().AppendUint32(b.b, v)
	return b
}

func (b *Buf) U64(v uint64) *Buf {
	b.b = b.order().AppendUint64(b.b, v)
	return b
}

// Uint writes v in size bytes (1, 2, 4 or 8).
func (b *Buf) Uint(size int, v uint64) *Buf {
	switch size {
	case 1:
		return b.U8(uint8(v))
	case 2:
		return b.U16(uint16(v))
	case 4:
		return b.U32(uint32(v))
	}
	return b.U64(v)
}

func (b *Buf) ULEB(v uint64) *Buf {
	b.b = leb128.AppendULEB128(b.b, v)
	return b
}

func (b *Buf) SLEB(v int64) *Buf {
	b.b = leb128.AppendSLEB128(b.b, v)
	return b
}

// CString writes s followed by a NUL byte.
func (b *Buf) CString(s string) *Buf {
	b.b = append(b.b, s...)
	b.b = append(b.b, 0)
	return b
}

func (b *Buf) Raw(p ...byte) *Buf {
	b.b = append(b.b, p...)
	return b
}

func (b *Buf) Len() int {
	return len(b.b)
}

func (b *Buf) Bytes() []byte {
	return b.b
}

// Spec is one attribute/form pair of an abbreviation declaration. Const is
// written only for DW_FORM_implicit_const.
type Spec struct {
	Attr  uint64
	Form  uint64
	Const int64
}

// Decl is one abbreviation declaration.
type Decl struct {
	Code     uint64
	Tag      uint64
	Children bool
	Specs    []Spec
}

const formImplicitConst = 0x21

// AbbrevTable encodes decls followed by the terminating zero code.
func AbbrevTable(decls ...Decl) []byte {
	b := NewBuf()
	for _, d := range decls {
		b.ULEB(d.Code).ULEB(d.Tag)
		if d.Children {
			b.U8(1)
		} else {
			b.U8(0)
		}
		for _, s := range d.Specs {
			b.ULEB(s.Attr).ULEB(s.Form)
			if s.Form == formImplicitConst {
				b.SLEB(s.Const)
			}
		}
		b.ULEB(0).ULEB(0)
	}
	b.ULEB(0)
	return b.Bytes()
}

// UnitHeader describes a unit header. Version 5 headers carry UnitType;
// Types selects the .debug_types layout for earlier versions.
type UnitHeader struct {
	Version      uint16
	UnitType     uint8
	AddrSize     uint8
	Format64     bool
	AbbrevOffset uint64
	Signature    uint64
	TypeOffset   uint64
	Types        bool
}

func (h UnitHeader) offsetSize() int {
	if h.Format64 {
		return 8
	}
	return 4
}

func (h UnitHeader) fields() *Buf {
	b := NewBuf()
	b.U16(h.Version)
	if h.Version >= 5 {
		b.U8(h.UnitType).U8(h.AddrSize).Uint(h.offsetSize(), h.AbbrevOffset)
		switch h.UnitType {
		case 0x04, 0x05: // skeleton, split_compile
			b.U64(h.Signature)
		case 0x02, 0x06: // type, split_type
			b.U64(h.Signature).Uint(h.offsetSize(), h.TypeOffset)
		}
		return b
	}
	b.Uint(h.offsetSize(), h.AbbrevOffset).U8(h.AddrSize)
	if h.Types {
		b.U64(h.Signature).Uint(h.offsetSize(), h.TypeOffset)
	}
	return b
}

// Size is the encoded header size, length field included. The root entry
// of a unit starts Size bytes after the unit's offset.
func (h UnitHeader) Size() int {
	n := h.fields().Len() + 4
	if h.Format64 {
		n += 8
	}
	return n
}

// Encode prefixes body with the header and its unit length.
func (h UnitHeader) Encode(body []byte) []byte {
	f := h.fields()
	b := NewBuf()
	length := uint64(f.Len() + len(body))
	if h.Format64 {
		b.U32(0xffffffff).U64(length)
	} else {
		b.U32(uint32(length))
	}
	return b.Raw(f.Bytes()...).Raw(body...).Bytes()
}

// StrTab builds a string section. Offset 0 holds the empty string.
type StrTab struct {
	b    []byte
	offs map[string]uint64
}

func NewStrTab() *StrTab {
	return &StrTab{b: []byte{0}, offs: map[string]uint64{"": 0}}
}

// Add interns s and returns its offset.
func (t *StrTab) Add(s string) uint64 {
	if off, ok := t.offs[s]; ok {
		return off
	}
	off := uint64(len(t.b))
	t.b = append(t.b, s...)
	t.b = append(t.b, 0)
	t.offs[s] = off
	return off
}

func (t *StrTab) Bytes() []byte {
	return t.b
}

// StrOffsetsTable encodes a 32-bit DWARF 5 .debug_str_offsets contribution.
// Its entries start 8 bytes into the table.
func StrOffsetsTable(offs ...uint64) []byte {
	b := NewBuf()
	b.U32(uint32(4 + 4*len(offs))).U16(5).U16(0)
	for _, o := range offs {
		b.U32(uint32(o))
	}
	return b.Bytes()
}

// AddrTable encodes a 32-bit DWARF 5 .debug_addr contribution. Its entries
// start 8 bytes into the table.
func AddrTable(addrSize uint8, addrs ...uint64) []byte {
	b := NewBuf()
	b.U32(uint32(4 + int(addrSize)*len(addrs))).U16(5).U8(addrSize).U8(0)
	for _, a := range addrs {
		b.Uint(int(addrSize), a)
	}
	return b.Bytes()
}

// LineFile is a file table entry; Dir indexes the directory table.
type LineFile struct {
	Name string
	Dir  uint64
}

// LineProgram describes a .debug_line contribution. Version 5 headers
// describe paths as inline strings and directory indices as udata.
type LineProgram struct {
	Version       uint16
	AddrSize      uint8
	MinInstLength uint8
	MaxOps        uint8
	DefaultIsStmt bool
	LineBase      int8
	LineRange     uint8
	OpcodeBase    uint8
	Dirs          []string
	Files         []LineFile
	Ops           []byte
}

// Encode writes the header and opcodes. Zero OpcodeBase, LineRange and
// MinInstLength take the usual values 13, 14 and 1.
func (p LineProgram) Encode() []byte {
	if p.OpcodeBase == 0 {
		p.OpcodeBase = 13
	}
	if p.LineRange == 0 {
		p.LineRange = 14
	}
	if p.MinInstLength == 0 {
		p.MinInstLength = 1
	}
	if p.MaxOps == 0 {
		p.MaxOps = 1
	}

	hdr := NewBuf()
	hdr.U8(p.MinInstLength)
	if p.Version >= 4 {
		hdr.U8(p.MaxOps)
	}
	if p.DefaultIsStmt {
		hdr.U8(1)
	} else {
		hdr.U8(0)
	}
	hdr.U8(uint8(p.LineBase)).U8(p.LineRange).U8(p.OpcodeBase)
	std := []uint8{0, 1, 1, 1, 1, 0, 0, 0, 1, 0, 0, 1}
	for i := 0; i < int(p.OpcodeBase)-1; i++ {
		if i < len(std) {
			hdr.U8(std[i])
		} else {
			hdr.U8(1)
		}
	}

	if p.Version >= 5 {
		// DW_LNCT_path as DW_FORM_string
		hdr.U8(1).ULEB(0x1).ULEB(0x08)
		hdr.ULEB(uint64(len(p.Dirs)))
		for _, d := range p.Dirs {
			hdr.CString(d)
		}
		// DW_LNCT_path string, DW_LNCT_directory_index udata
		hdr.U8(2).ULEB(0x1).ULEB(0x08).ULEB(0x2).ULEB(0x0f)
		hdr.ULEB(uint64(len(p.Files)))
		for _, f := range p.Files {
			hdr.CString(f.Name).ULEB(f.Dir)
		}
	} else {
		for _, d := range p.Dirs {
			hdr.CString(d)
		}
		hdr.U8(0)
		for _, f := range p.Files {
			hdr.CString(f.Name).ULEB(f.Dir).ULEB(0).ULEB(0)
		}
		hdr.U8(0)
	}

	body := NewBuf()
	body.U16(p.Version)
	if p.Version >= 5 {
		body.U8(p.AddrSize).U8(0)
	}
	body.U32(uint32(hdr.Len())).Raw(hdr.Bytes()...).Raw(p.Ops...)

	out := NewBuf()
	out.U32(uint32(body.Len()))
	return out.Raw(body.Bytes()...).Bytes()
}

// LineOps assembles line-number opcodes.
type LineOps struct {
	Buf
}

func (o *LineOps) SetAddress(addr uint64, size int) *LineOps {
	o.U8(0).ULEB(uint64(size + 1)).U8(0x02).Uint(size, addr)
	return o
}

func (o *LineOps) EndSequence() *LineOps {
	o.U8(0).ULEB(1).U8(0x01)
	return o
}

func (o *LineOps) DefineFile(name string, dir uint64) *LineOps {
	payload := NewBuf().U8(0x03).CString(name).ULEB(dir).ULEB(0).ULEB(0)
	o.U8(0).ULEB(uint64(payload.Len())).Raw(payload.Bytes()...)
	return o
}

func (o *LineOps) Copy() *LineOps {
	o.U8(0x01)
	return o
}

func (o *LineOps) AdvancePC(n uint64) *LineOps {
	o.U8(0x02).ULEB(n)
	return o
}

func (o *LineOps) AdvanceLine(n int64) *LineOps {
	o.U8(0x03).SLEB(n)
	return o
}

func (o *LineOps) SetFile(n uint64) *LineOps {
	o.U8(0x04).ULEB(n)
	return o
}

func (o *LineOps) SetColumn(n uint64) *LineOps {
	o.U8(0x05).ULEB(n)
	return o
}

func (o *LineOps) NegateStmt() *LineOps {
	o.U8(0x06)
	return o
}

// Special writes a special opcode byte as-is.
func (o *LineOps) Special(op uint8) *LineOps {
	o.U8(op)
	return o
}

// ELF wraps sections in a minimal little-endian ELF64 relocatable object.
// Sections are laid out in name order.
func ELF(sections map[string][]byte) []byte {
	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)

	const ehsize, shentsize = 64, 64
	shstr := NewBuf().U8(0)
	nameOff := make([]uint32, len(names))
	for i, n := range names {
		nameOff[i] = uint32(shstr.Len())
		shstr.CString(n)
	}
	shstrName := uint32(shstr.Len())
	shstr.CString(".shstrtab")

	data := NewBuf()
	dataOff := make([]uint64, len(names))
	for i, n := range names {
		dataOff[i] = uint64(ehsize + data.Len())
		data.Raw(sections[n]...)
	}
	shstrOff := uint64(ehsize + data.Len())
	data.Raw(shstr.Bytes()...)
	for data.Len()%8 != 0 {
		data.U8(0)
	}
	shoff := uint64(ehsize + data.Len())
	shnum := uint16(len(names) + 2)

	b := NewBuf()
	b.Raw(0x7f, 'E', 'L', 'F', 2, 1, 1, 0)
	b.Raw(make([]byte, 8)...)
	b.U16(1)  // ET_REL
	b.U16(62) // EM_X86_64
	b.U32(1)
	b.U64(0) // entry
	b.U64(0) // phoff
	b.U64(shoff)
	b.U32(0) // flags
	b.U16(ehsize)
	b.U16(0) // phentsize
	b.U16(0) // phnum
	b.U16(shentsize)
	b.U16(shnum)
	b.U16(shnum - 1)
	b.Raw(data.Bytes()...)

	section := func(name, typ uint32, off, size uint64) {
		b.U32(name).U32(typ).U64(0).U64(0).U64(off).U64(size).U32(0).U32(0).U64(1).U64(0)
	}
	section(0, 0, 0, 0)
	for i, n := range names {
		section(nameOff[i], 1, dataOff[i], uint64(len(sections[n]))) // SHT_PROGBITS
	}
	section(shstrName, 3, shstrOff, uint64(shstr.Len())) // SHT_STRTAB
	return b.Bytes()
}
