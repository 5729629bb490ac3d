package dwarf

import (
	"path"
)

// LineFile is one entry of a line program's file table.
type LineFile struct {
	Name     string
	DirIndex uint64
	// Dir is the resolved directory, empty when the index names none.
	Dir    string
	Mtime  uint64
	Length uint64
	MD5    []byte
}

// Path joins the file name with its directory unless the name is absolute.
func (f LineFile) Path() string {
	if f.Dir == "" || path.IsAbs(f.Name) {
		return f.Name
	}
	return path.Join(f.Dir, f.Name)
}

// LineHeader is a decoded line-number program header.
type LineHeader struct {
	// Offset is the program's offset in .debug_line.
	Offset     uint64
	Length     uint64
	Version    uint16
	OffsetSize uint8
	AddrSize   uint8

	MinInstLength  uint8
	MaxOpsPerInst  uint8
	DefaultIsStmt  bool
	LineBase       int8
	LineRange      uint8
	OpcodeBase     uint8
	OpcodeLengths  []uint8
	IncludeDirs    []string
	Files          []LineFile
	ProgramOffset  uint64
	End            uint64
	SegSelSize     uint8
	headerFileSize int
}

type lineEntryFormat struct {
	content uint64
	form    Form
}

// lineHeaderReader decodes a header. The unit, when known, resolves strx
// forms and supplies the compilation directory.
type lineHeaderReader struct {
	s       *Session
	u       *Unit
	c       *cursor
	h       *LineHeader
	compDir string
}

func (s *Session) parseLineHeader(off uint64, addrSize uint8, u *Unit, compDir string) (*LineHeader, error) {
	data := s.sec.Line
	if data == nil {
		return nil, notFoundf(SectionLine, off, "section not present")
	}
	if off >= uint64(len(data)) {
		return nil, corruptf(SectionLine, off, "program offset outside section (size 0x%x)", len(data))
	}

	c := newCursor(SectionLine, data, s.order, off, uint64(len(data)))
	h := &LineHeader{Offset: off, AddrSize: addrSize}
	length, offSize, err := c.initialLength()
	if err != nil {
		return nil, err
	}
	if length > c.remaining() {
		return nil, corruptf(SectionLine, off, "program length 0x%x exceeds remaining 0x%x bytes", length, c.remaining())
	}
	h.Length = length
	h.OffsetSize = offSize
	h.End = c.off + length
	c.end = h.End

	if h.Version, err = c.u16("line version"); err != nil {
		return nil, err
	}
	if h.Version < 2 || h.Version > 5 {
		return nil, unsupportedf(SectionLine, off, "line program version %d", h.Version)
	}
	if h.Version >= 5 {
		if h.AddrSize, err = c.u8("address size"); err != nil {
			return nil, err
		}
		if h.SegSelSize, err = c.u8("segment selector size"); err != nil {
			return nil, err
		}
	}

	hdrLen, err := c.offset(offSize, "header length")
	if err != nil {
		return nil, err
	}
	if hdrLen > c.remaining() {
		return nil, corruptf(SectionLine, c.off, "header length 0x%x exceeds program", hdrLen)
	}
	h.ProgramOffset = c.off + hdrLen

	if h.MinInstLength, err = c.u8("minimum instruction length"); err != nil {
		return nil, err
	}
	h.MaxOpsPerInst = 1
	if h.Version >= 4 {
		if h.MaxOpsPerInst, err = c.u8("maximum operations per instruction"); err != nil {
			return nil, err
		}
		if h.MaxOpsPerInst == 0 {
			return nil, corruptf(SectionLine, c.off-1, "maximum operations per instruction is zero")
		}
	}
	isStmt, err := c.u8("default_is_stmt")
	if err != nil {
		return nil, err
	}
	h.DefaultIsStmt = isStmt != 0
	lb, err := c.u8("line base")
	if err != nil {
		return nil, err
	}
	h.LineBase = int8(lb)
	if h.LineRange, err = c.u8("line range"); err != nil {
		return nil, err
	}
	if h.OpcodeBase, err = c.u8("opcode base"); err != nil {
		return nil, err
	}
	if h.OpcodeBase == 0 {
		return nil, corruptf(SectionLine, c.off-1, "opcode base is zero")
	}
	h.OpcodeLengths = make([]uint8, h.OpcodeBase-1)
	for i := range h.OpcodeLengths {
		if h.OpcodeLengths[i], err = c.u8("standard opcode length"); err != nil {
			return nil, err
		}
	}

	r := &lineHeaderReader{s: s, u: u, c: c, h: h, compDir: compDir}
	if h.Version >= 5 {
		err = r.readTablesV5()
	} else {
		err = r.readTablesV2()
	}
	if err != nil {
		return nil, err
	}
	if c.off > h.ProgramOffset {
		return nil, corruptf(SectionLine, h.ProgramOffset, "file tables overrun header length")
	}
	h.headerFileSize = len(h.Files)
	return h, nil
}

func (r *lineHeaderReader) readTablesV2() error {
	c, h := r.c, r.h
	for {
		dir, err := c.cstring("include directory")
		if err != nil {
			return err
		}
		if dir == "" {
			break
		}
		h.IncludeDirs = append(h.IncludeDirs, dir)
	}
	for {
		name, err := c.cstring("file name")
		if err != nil {
			return err
		}
		if name == "" {
			return nil
		}
		f, err := r.readFileV2(name)
		if err != nil {
			return err
		}
		h.Files = append(h.Files, f)
	}
}

// readFileV2 reads the fields following a file name in a v2-4 file entry,
// also used by DW_LNE_define_file.
func (r *lineHeaderReader) readFileV2(name string) (LineFile, error) {
	f := LineFile{Name: name}
	var err error
	if f.DirIndex, err = r.c.uleb("directory index"); err != nil {
		return f, err
	}
	if f.Mtime, err = r.c.uleb("modification time"); err != nil {
		return f, err
	}
	if f.Length, err = r.c.uleb("file length"); err != nil {
		return f, err
	}
	f.Dir = r.h.dirV2(f.DirIndex, r.compDir)
	return f, nil
}

// dirV2 resolves a v2-4 directory index; index 0 is the compilation
// directory.
func (h *LineHeader) dirV2(idx uint64, compDir string) string {
	if idx == 0 {
		return compDir
	}
	if idx-1 < uint64(len(h.IncludeDirs)) {
		dir := h.IncludeDirs[idx-1]
		if compDir != "" && !path.IsAbs(dir) {
			return path.Join(compDir, dir)
		}
		return dir
	}
	return ""
}

func (r *lineHeaderReader) readFormats() ([]lineEntryFormat, error) {
	n, err := r.c.u8("entry format count")
	if err != nil {
		return nil, err
	}
	formats := make([]lineEntryFormat, n)
	for i := range formats {
		ct, err := r.c.uleb("content type")
		if err != nil {
			return nil, err
		}
		form, err := r.c.uleb("content form")
		if err != nil {
			return nil, err
		}
		formats[i] = lineEntryFormat{content: ct, form: Form(form)}
	}
	return formats, nil
}

func (r *lineHeaderReader) readTablesV5() error {
	c, h := r.c, r.h

	dirFormats, err := r.readFormats()
	if err != nil {
		return err
	}
	ndirs, err := c.uleb("directory count")
	if err != nil {
		return err
	}
	for i := uint64(0); i < ndirs; i++ {
		f, err := r.readEntryV5(dirFormats)
		if err != nil {
			return err
		}
		h.IncludeDirs = append(h.IncludeDirs, f.Name)
	}

	fileFormats, err := r.readFormats()
	if err != nil {
		return err
	}
	nfiles, err := c.uleb("file count")
	if err != nil {
		return err
	}
	for i := uint64(0); i < nfiles; i++ {
		f, err := r.readEntryV5(fileFormats)
		if err != nil {
			return err
		}
		if f.DirIndex < uint64(len(h.IncludeDirs)) {
			f.Dir = h.IncludeDirs[f.DirIndex]
			if f.DirIndex != 0 && len(h.IncludeDirs) > 0 && !path.IsAbs(f.Dir) {
				f.Dir = path.Join(h.IncludeDirs[0], f.Dir)
			}
		}
		h.Files = append(h.Files, f)
	}
	return nil
}

func (r *lineHeaderReader) readEntryV5(formats []lineEntryFormat) (LineFile, error) {
	var f LineFile
	for _, ef := range formats {
		v, err := r.readFormValue(ef.form)
		if err != nil {
			return f, err
		}
		switch ef.content {
		case lnctPath:
			if f.Name, err = r.resolveString(v); err != nil {
				return f, err
			}
		case lnctDirectoryIndex:
			f.DirIndex = v.U
		case lnctTimestamp:
			f.Mtime = v.U
		case lnctSize:
			f.Length = v.U
		case lnctMD5:
			f.MD5 = v.Bytes
		}
	}
	return f, nil
}

// readFormValue decodes the subset of forms line headers may use.
func (r *lineHeaderReader) readFormValue(form Form) (Value, error) {
	c := r.c
	at := c.off
	var v Value
	var err error
	switch form {
	case FormString:
		v.Class = ClassString
		v.Str, err = c.cstring("path")
	case FormLineStrp:
		v.Class = ClassLineStrOffset
		v.U, err = c.offset(r.h.OffsetSize, "line_strp")
	case FormStrp:
		v.Class = ClassStrOffset
		v.U, err = c.offset(r.h.OffsetSize, "strp")
	case FormStrx, FormGNUStrIndex:
		v.Class = ClassStrIndex
		v.U, err = c.uleb("strx")
	case FormStrx1, FormStrx2, FormStrx3, FormStrx4:
		v.Class = ClassStrIndex
		v.U, err = c.uint(fixedSize(form), "strx")
	case FormUdata:
		v.Class = ClassConstant
		v.U, err = c.uleb("udata")
	case FormData1, FormData2, FormData4, FormData8:
		v.Class = ClassConstant
		v.U, err = c.uint(fixedSize(form), "constant")
	case FormData16:
		v.Class = ClassConstant16
		v.Bytes, err = c.bytes(16, "data16")
	case FormBlock:
		var n uint64
		if n, err = c.uleb("block length"); err == nil {
			v.Class = ClassBlock
			v.Bytes, err = c.bytes(n, "block")
		}
	default:
		return v, unsupportedForm(SectionLine, at, form, "form not allowed in line header")
	}
	return v, err
}

func (r *lineHeaderReader) resolveString(v Value) (string, error) {
	switch v.Class {
	case ClassString:
		return v.Str, nil
	case ClassLineStrOffset:
		return stringAt(SectionLineStr, r.s.sec.LineStr, v.U)
	case ClassStrOffset:
		return stringAt(SectionStr, r.s.sec.Str, v.U)
	}
	if r.u == nil {
		return "", notFoundf(SectionLine, r.h.Offset, "string index needs an owning unit")
	}
	return r.u.ResolveString(v)
}
