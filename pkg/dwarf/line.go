package dwarf

import (
	"io"
)

// LineRow is one row of the line-number matrix.
type LineRow struct {
	Address       uint64
	OpIndex       uint64
	File          uint64
	Line          uint64
	Column        uint64
	IsStmt        bool
	BasicBlock    bool
	EndSequence   bool
	PrologueEnd   bool
	EpilogueBegin bool
	ISA           uint64
	Discriminator uint64
}

// LineProgram is a decoded header together with a reader over its opcodes.
type LineProgram struct {
	*LineHeader
	s       *Session
	u       *Unit
	compDir string

	c     *cursor
	state LineRow
}

// LineProgram returns the line program named by the unit's DW_AT_stmt_list.
func (u *Unit) LineProgram() (*LineProgram, error) {
	root, err := u.Root()
	if err != nil {
		return nil, err
	}
	at, ok := root.Attr(AttrStmtList)
	if !ok {
		return nil, notFoundf(u.Section, u.DataOffset, "unit has no DW_AT_stmt_list")
	}
	switch at.Val.Class {
	case ClassSecOffset, ClassConstant:
	default:
		return nil, root.mismatch(at, "line program offset")
	}

	var compDir string
	if root.Has(AttrCompDir) {
		if compDir, err = root.String(AttrCompDir); err != nil {
			return nil, err
		}
	}
	return u.s.lineProgram(at.Val.U, u.AddrSize, u, compDir)
}

// LineProgramAt decodes the line program at off in .debug_line. addrSize is
// used for DW_LNE_set_address in headers older than version 5.
func (s *Session) LineProgramAt(off uint64, addrSize uint8) (*LineProgram, error) {
	return s.lineProgram(off, addrSize, nil, "")
}

func (s *Session) lineProgram(off uint64, addrSize uint8, u *Unit, compDir string) (*LineProgram, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	h, err := s.parseLineHeader(off, addrSize, u, compDir)
	if err != nil {
		return nil, err
	}
	p := &LineProgram{LineHeader: h, s: s, u: u, compDir: compDir}
	p.Reset()
	return p, nil
}

// Reset rewinds the program to its first opcode and drops files added by
// DW_LNE_define_file.
func (p *LineProgram) Reset() {
	p.Files = p.Files[:p.headerFileSize]
	p.c = newCursor(SectionLine, p.s.sec.Line, p.s.order, p.ProgramOffset, p.End)
	p.resetState()
}

func (p *LineProgram) resetState() {
	p.state = LineRow{File: 1, Line: 1, IsStmt: p.DefaultIsStmt}
}

// Next executes opcodes until the next row is produced. It returns io.EOF
// after the last opcode.
func (p *LineProgram) Next() (LineRow, error) {
	if err := p.s.check(); err != nil {
		return LineRow{}, err
	}
	for !p.c.atEnd() {
		start := p.c.off
		row, emitted, err := p.step()
		if err != nil {
			// stay failed; a retry would decode the same bytes
			p.c.off = p.c.end
			return LineRow{}, err
		}
		if p.c.off <= start {
			p.c.off = p.c.end
			return LineRow{}, corruptf(SectionLine, start, "line opcode consumed no bytes")
		}
		if emitted {
			return row, nil
		}
	}
	return LineRow{}, io.EOF
}

// Rows runs the program to completion from its current position.
func (p *LineProgram) Rows() ([]LineRow, error) {
	var rows []LineRow
	for {
		row, err := p.Next()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
}

// emit snapshots the registers as a row and clears the per-row flags.
func (p *LineProgram) emit() LineRow {
	row := p.state
	p.state.BasicBlock = false
	p.state.PrologueEnd = false
	p.state.EpilogueBegin = false
	p.state.Discriminator = 0
	return row
}

// advance applies an operation advance, honouring op_index for VLIW
// targets.
func (p *LineProgram) advance(n uint64) {
	if p.MaxOpsPerInst == 1 {
		p.state.Address += uint64(p.MinInstLength) * n
		return
	}
	ops := p.state.OpIndex + n
	maxOps := uint64(p.MaxOpsPerInst)
	p.state.Address += uint64(p.MinInstLength) * (ops / maxOps)
	p.state.OpIndex = ops % maxOps
}

func (p *LineProgram) step() (LineRow, bool, error) {
	c := p.c
	at := c.off
	op, err := c.u8("line opcode")
	if err != nil {
		return LineRow{}, false, err
	}

	if op >= p.OpcodeBase {
		if p.LineRange == 0 {
			return LineRow{}, false, corruptf(SectionLine, at, "special opcode with line range zero")
		}
		adj := uint64(op - p.OpcodeBase)
		p.advance(adj / uint64(p.LineRange))
		p.state.Line += uint64(int64(p.LineBase) + int64(adj%uint64(p.LineRange)))
		return p.emit(), true, nil
	}

	switch op {
	case 0:
		return p.extended(at)
	case lnsCopy:
		return p.emit(), true, nil
	case lnsAdvancePC:
		n, err := c.uleb("advance_pc operand")
		if err != nil {
			return LineRow{}, false, err
		}
		p.advance(n)
	case lnsAdvanceLine:
		n, err := c.sleb("advance_line operand")
		if err != nil {
			return LineRow{}, false, err
		}
		p.state.Line += uint64(n)
	case lnsSetFile:
		if p.state.File, err = c.uleb("set_file operand"); err != nil {
			return LineRow{}, false, err
		}
	case lnsSetColumn:
		if p.state.Column, err = c.uleb("set_column operand"); err != nil {
			return LineRow{}, false, err
		}
	case lnsNegateStmt:
		p.state.IsStmt = !p.state.IsStmt
	case lnsSetBasicBlock:
		p.state.BasicBlock = true
	case lnsConstAddPC:
		if p.LineRange == 0 {
			return LineRow{}, false, corruptf(SectionLine, at, "const_add_pc with line range zero")
		}
		p.advance(uint64(255-p.OpcodeBase) / uint64(p.LineRange))
	case lnsFixedAdvancePC:
		n, err := c.u16("fixed_advance_pc operand")
		if err != nil {
			return LineRow{}, false, err
		}
		p.state.Address += uint64(n)
		p.state.OpIndex = 0
	case lnsSetPrologueEnd:
		p.state.PrologueEnd = true
	case lnsSetEpilogueBegin:
		p.state.EpilogueBegin = true
	case lnsSetISA:
		if p.state.ISA, err = c.uleb("set_isa operand"); err != nil {
			return LineRow{}, false, err
		}
	default:
		// opcodes this decoder does not know declare their operand count
		for i := uint8(0); i < p.OpcodeLengths[op-1]; i++ {
			if _, err := c.uleb("standard opcode operand"); err != nil {
				return LineRow{}, false, err
			}
		}
	}
	return LineRow{}, false, nil
}

func (p *LineProgram) extended(at uint64) (LineRow, bool, error) {
	c := p.c
	n, err := c.uleb("extended opcode length")
	if err != nil {
		return LineRow{}, false, err
	}
	if n == 0 {
		return LineRow{}, false, corruptf(SectionLine, at, "zero-length extended opcode")
	}
	if n > c.remaining() {
		return LineRow{}, false, corruptf(SectionLine, at, "extended opcode length 0x%x past program end", n)
	}
	end := c.off + n
	sub, _ := c.u8("extended opcode")

	var row LineRow
	emitted := false
	switch sub {
	case lneEndSequence:
		p.state.EndSequence = true
		row, emitted = p.emit(), true
		p.resetState()
	case lneSetAddress:
		size := n - 1
		if p.AddrSize != 0 && size != uint64(p.AddrSize) {
			return LineRow{}, false, corruptf(SectionLine, at, "set_address operand of %d bytes, address size %d", size, p.AddrSize)
		}
		if p.state.Address, err = c.uint(int(size), "set_address operand"); err != nil {
			return LineRow{}, false, err
		}
		p.state.OpIndex = 0
	case lneDefineFile:
		name, err := c.cstring("define_file name")
		if err != nil {
			return LineRow{}, false, err
		}
		r := &lineHeaderReader{s: p.s, u: p.u, c: c, h: p.LineHeader, compDir: p.compDir}
		f, err := r.readFileV2(name)
		if err != nil {
			return LineRow{}, false, err
		}
		p.Files = append(p.Files, f)
	case lneSetDiscriminator:
		if p.state.Discriminator, err = c.uleb("set_discriminator operand"); err != nil {
			return LineRow{}, false, err
		}
	}
	if c.off > end {
		return LineRow{}, false, corruptf(SectionLine, at, "extended opcode 0x%x overran its length", sub)
	}
	c.off = end
	return row, emitted, nil
}

// File returns the file table entry a row's file register names. Version 5
// indexes from zero; earlier versions from one.
func (p *LineProgram) File(idx uint64) (LineFile, error) {
	if err := p.s.check(); err != nil {
		return LineFile{}, err
	}
	i := idx
	if p.Version < 5 {
		if idx == 0 {
			return LineFile{}, notFoundf(SectionLine, p.Offset, "file index 0 in version %d program", p.Version)
		}
		i = idx - 1
	}
	if i >= uint64(len(p.Files)) {
		return LineFile{}, notFoundf(SectionLine, p.Offset, "file index %d outside table of %d", idx, len(p.Files))
	}
	return p.Files[i], nil
}

// FileName returns the directory-joined path of file idx.
func (p *LineProgram) FileName(idx uint64) (string, error) {
	f, err := p.File(idx)
	if err != nil {
		return "", err
	}
	return f.Path(), nil
}

// SourceFiles lists the directory-joined paths of the unit's line table in
// table order.
func (u *Unit) SourceFiles() ([]string, error) {
	p, err := u.LineProgram()
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(p.Files))
	for _, f := range p.Files {
		files = append(files, f.Path())
	}
	return files, nil
}
