package dwarf

import "fmt"

// Section names, normalised to their ELF spelling.
const (
	SectionInfo       = ".debug_info"
	SectionAbbrev     = ".debug_abbrev"
	SectionStr        = ".debug_str"
	SectionStrOffsets = ".debug_str_offsets"
	SectionLineStr    = ".debug_line_str"
	SectionLine       = ".debug_line"
	SectionAddr       = ".debug_addr"
	SectionRanges     = ".debug_ranges"
	SectionRngLists   = ".debug_rnglists"
	SectionLoc        = ".debug_loc"
	SectionLocLists   = ".debug_loclists"
	SectionTypes      = ".debug_types"
)

// UnitType is the DWARF 5 unit header type. Units from earlier versions are
// reported as UnitCompile, or UnitTypeUnit for entries of .debug_types.
type UnitType uint8

const (
	UnitCompile      UnitType = 0x01
	UnitTypeUnit     UnitType = 0x02
	UnitPartial      UnitType = 0x03
	UnitSkeleton     UnitType = 0x04
	UnitSplitCompile UnitType = 0x05
	UnitSplitType    UnitType = 0x06
)

func (t UnitType) String() string {
	switch t {
	case UnitCompile:
		return "compile"
	case UnitTypeUnit:
		return "type"
	case UnitPartial:
		return "partial"
	case UnitSkeleton:
		return "skeleton"
	case UnitSplitCompile:
		return "split_compile"
	case UnitSplitType:
		return "split_type"
	}
	return fmt.Sprintf("unit_type(0x%x)", uint8(t))
}

// Standard line-number opcodes.
const (
	lnsCopy             = 0x01
	lnsAdvancePC        = 0x02
	lnsAdvanceLine      = 0x03
	lnsSetFile          = 0x04
	lnsSetColumn        = 0x05
	lnsNegateStmt       = 0x06
	lnsSetBasicBlock    = 0x07
	lnsConstAddPC       = 0x08
	lnsFixedAdvancePC   = 0x09
	lnsSetPrologueEnd   = 0x0a
	lnsSetEpilogueBegin = 0x0b
	lnsSetISA           = 0x0c
)

// Extended line-number opcodes.
const (
	lneEndSequence      = 0x01
	lneSetAddress       = 0x02
	lneDefineFile       = 0x03
	lneSetDiscriminator = 0x04
)

// Line header entry content types (DWARF 5).
const (
	lnctPath           = 0x1
	lnctDirectoryIndex = 0x2
	lnctTimestamp      = 0x3
	lnctSize           = 0x4
	lnctMD5            = 0x5
)

// Range list entry kinds (DWARF 5).
const (
	rleEndOfList    = 0x00
	rleBaseAddressx = 0x01
	rleStartxEndx   = 0x02
	rleStartxLength = 0x03
	rleOffsetPair   = 0x04
	rleBaseAddress  = 0x05
	rleStartEnd     = 0x06
	rleStartLength  = 0x07
)

// Location list entry kinds (DWARF 5).
const (
	lleEndOfList       = 0x00
	lleBaseAddressx    = 0x01
	lleStartxEndx      = 0x02
	lleStartxLength    = 0x03
	lleOffsetPair      = 0x04
	lleDefaultLocation = 0x05
	lleBaseAddress     = 0x06
	lleStartEnd        = 0x07
	lleStartLength     = 0x08
)
