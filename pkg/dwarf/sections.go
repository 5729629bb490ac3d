package dwarf

import (
	"bytes"
	"compress/zlib"
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"encoding/binary"
	"io"
	"math"
	"strings"
)

// Sections holds the raw bytes of every debug section a Session can use.
// Info and Abbrev are required; a nil slice marks an absent optional section.
type Sections struct {
	Info       []byte
	Abbrev     []byte
	Str        []byte
	StrOffsets []byte
	LineStr    []byte
	Line       []byte
	Addr       []byte
	Ranges     []byte
	RngLists   []byte
	Loc        []byte
	LocLists   []byte
	Types      []byte

	// ByteOrder defaults to little endian.
	ByteOrder binary.ByteOrder
}

// Container names the object file format a Session was loaded from.
type Container string

const (
	ContainerELF   Container = "elf"
	ContainerMachO Container = "macho"
	ContainerPE    Container = "pe"
	ContainerRaw   Container = "raw"
)

var knownSections = []string{
	SectionInfo, SectionAbbrev, SectionStr, SectionStrOffsets, SectionLineStr, SectionLine,
	SectionAddr, SectionRanges, SectionRngLists, SectionLoc, SectionLocLists, SectionTypes,
}

func (s *Sections) slot(name string) *[]byte {
	switch name {
	case SectionInfo:
		return &s.Info
	case SectionAbbrev:
		return &s.Abbrev
	case SectionStr:
		return &s.Str
	case SectionStrOffsets:
		return &s.StrOffsets
	case SectionLineStr:
		return &s.LineStr
	case SectionLine:
		return &s.Line
	case SectionAddr:
		return &s.Addr
	case SectionRanges:
		return &s.Ranges
	case SectionRngLists:
		return &s.RngLists
	case SectionLoc:
		return &s.Loc
	case SectionLocLists:
		return &s.LocLists
	case SectionTypes:
		return &s.Types
	}
	return nil
}

// Data returns the bytes of a named section, or nil when it is absent.
func (s *Sections) Data(name string) []byte {
	if p := s.slot(name); p != nil {
		return *p
	}
	return nil
}

// normalizeSectionName maps container spellings onto the ELF names. Mach-O
// uses a "__" prefix and truncates names to 16 bytes; legacy GNU tools write
// zlib-compressed ".zdebug_" sections.
func normalizeSectionName(name string) (string, bool) {
	compressed := false
	switch {
	case strings.HasPrefix(name, ".zdebug_"):
		name = ".debug_" + strings.TrimPrefix(name, ".zdebug_")
		compressed = true
	case strings.HasPrefix(name, "__debug_"):
		name = "." + strings.TrimPrefix(name, "__")
	}
	for _, known := range knownSections {
		if name == known {
			return known, compressed
		}
	}
	// truncated Mach-O names, e.g. __debug_str_offs
	if len(name) == 15 {
		for _, known := range knownSections {
			if strings.HasPrefix(known, name) {
				return known, compressed
			}
		}
	}
	return "", false
}

// inflateZdebug decodes the legacy "ZLIB" + 8-byte big-endian size framing.
// The inflated length must match the declared size.
func inflateZdebug(name string, data []byte) ([]byte, error) {
	if len(data) < 12 || string(data[:4]) != "ZLIB" {
		return data, nil
	}
	size := binary.BigEndian.Uint64(data[4:12])
	zr, err := zlib.NewReader(bytes.NewReader(data[12:]))
	if err != nil {
		return nil, &Error{Kind: ErrCorrupt, Op: "inflate", Section: name, Msg: "bad zlib header", Err: err}
	}
	defer zr.Close()

	// size comes from the file; cap the preallocation
	buf := bytes.NewBuffer(make([]byte, 0, min(size, 16*uint64(len(data)))))
	n, err := io.Copy(buf, io.LimitReader(zr, int64(min(size, math.MaxInt64-1))+1))
	if err != nil {
		return nil, &Error{Kind: ErrCorrupt, Op: "inflate", Section: name, Msg: "bad zlib stream", Err: err}
	}
	if uint64(n) != size {
		return nil, corruptf(name, 4, "inflated %d bytes, header declares %d", n, size)
	}
	return buf.Bytes(), nil
}

func (s *Sections) put(name string, data []byte) error {
	known, compressed := normalizeSectionName(name)
	if known == "" {
		return nil
	}
	if compressed {
		var err error
		if data, err = inflateZdebug(name, data); err != nil {
			return err
		}
	}
	if data == nil {
		data = []byte{}
	}
	*s.slot(known) = data
	return nil
}

func detectContainer(r io.ReaderAt) (Container, error) {
	var magic [4]byte
	if _, err := r.ReadAt(magic[:], 0); err != nil {
		return "", ioError("read magic", err)
	}
	switch {
	case string(magic[:]) == elf.ELFMAG:
		return ContainerELF, nil
	case magic[0] == 'M' && magic[1] == 'Z':
		return ContainerPE, nil
	}
	be := binary.BigEndian.Uint32(magic[:])
	le := binary.LittleEndian.Uint32(magic[:])
	switch {
	case be == macho.Magic32 || be == macho.Magic64 || le == macho.Magic32 || le == macho.Magic64:
		return ContainerMachO, nil
	case be == macho.MagicFat:
		return ContainerMachO, nil
	}
	return "", formatError("open", "unrecognized object file container")
}

func loadSections(r io.ReaderAt) (Sections, Container, error) {
	kind, err := detectContainer(r)
	if err != nil {
		return Sections{}, "", err
	}

	var sec Sections
	switch kind {
	case ContainerELF:
		err = loadELF(r, &sec)
	case ContainerMachO:
		err = loadMachO(r, &sec)
	case ContainerPE:
		err = loadPE(r, &sec)
	}
	if err != nil {
		return Sections{}, "", err
	}
	return sec, kind, nil
}

func loadELF(r io.ReaderAt, sec *Sections) error {
	f, err := elf.NewFile(r)
	if err != nil {
		return formatError("open elf", err.Error())
	}
	sec.ByteOrder = f.ByteOrder
	for _, s := range f.Sections {
		if s.Type == elf.SHT_NOBITS {
			continue
		}
		if known, _ := normalizeSectionName(s.Name); known == "" {
			continue
		}
		// Data decompresses SHF_COMPRESSED sections.
		data, err := s.Data()
		if err != nil {
			return ioError("read "+s.Name, err)
		}
		if err := sec.put(s.Name, data); err != nil {
			return err
		}
	}
	return nil
}

func loadMachO(r io.ReaderAt, sec *Sections) error {
	f, err := macho.NewFile(r)
	if err != nil {
		fat, ferr := macho.NewFatFile(r)
		if ferr != nil || len(fat.Arches) == 0 {
			return formatError("open macho", err.Error())
		}
		f = fat.Arches[0].File
	}
	sec.ByteOrder = f.ByteOrder
	for _, s := range f.Sections {
		if known, _ := normalizeSectionName(s.Name); known == "" {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return ioError("read "+s.Name, err)
		}
		if err := sec.put(s.Name, data); err != nil {
			return err
		}
	}
	return nil
}

func loadPE(r io.ReaderAt, sec *Sections) error {
	f, err := pe.NewFile(r)
	if err != nil {
		return formatError("open pe", err.Error())
	}
	sec.ByteOrder = binary.LittleEndian
	for _, s := range f.Sections {
		if known, _ := normalizeSectionName(s.Name); known == "" {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return ioError("read "+s.Name, err)
		}
		// raw data is padded to the file alignment
		if 0 < s.VirtualSize && s.VirtualSize < s.Size {
			data = data[:s.VirtualSize]
		}
		if err := sec.put(s.Name, data); err != nil {
			return err
		}
	}
	return nil
}
