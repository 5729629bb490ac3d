package dwarf

import (
	"encoding/hex"
	"fmt"
	"strconv"
)

// Class is the kind of a decoded attribute value. Each form decodes to
// exactly one class; forms outside the known set fail with ErrUnsupported.
type Class uint8

const (
	ClassUnknown Class = iota
	// ClassAddress holds a target address in U.
	ClassAddress
	// ClassAddrIndex holds an index into .debug_addr in U.
	ClassAddrIndex
	// ClassBlock holds uninterpreted bytes.
	ClassBlock
	// ClassConstant holds an unsigned constant in U.
	ClassConstant
	// ClassSigned holds a signed constant in I.
	ClassSigned
	// ClassConstant16 holds a 16-byte constant in Bytes.
	ClassConstant16
	// ClassExprLoc holds the raw bytes of a DWARF expression.
	ClassExprLoc
	// ClassFlag holds a boolean in Flag.
	ClassFlag
	// ClassString holds an inline string in Str.
	ClassString
	// ClassStrOffset holds an offset into .debug_str in U.
	ClassStrOffset
	// ClassLineStrOffset holds an offset into .debug_line_str in U.
	ClassLineStrOffset
	// ClassStrIndex holds an index into .debug_str_offsets in U.
	ClassStrIndex
	// ClassStrAlt holds an offset into a supplementary object's strings.
	ClassStrAlt
	// ClassReference holds a unit-relative entry offset in U.
	ClassReference
	// ClassReferenceAddr holds a .debug_info section offset in U.
	ClassReferenceAddr
	// ClassReferenceSig holds an 8-byte type signature in U.
	ClassReferenceSig
	// ClassReferenceAlt holds an offset into a supplementary object.
	ClassReferenceAlt
	// ClassSecOffset holds an offset into another debug section in U.
	ClassSecOffset
	// ClassLocListIndex holds an index into the unit's location list table.
	ClassLocListIndex
	// ClassRngListIndex holds an index into the unit's range list table.
	ClassRngListIndex
)

var classNames = [...]string{
	ClassUnknown:       "unknown",
	ClassAddress:       "address",
	ClassAddrIndex:     "addrx",
	ClassBlock:         "block",
	ClassConstant:      "constant",
	ClassSigned:        "sconstant",
	ClassConstant16:    "constant16",
	ClassExprLoc:       "exprloc",
	ClassFlag:          "flag",
	ClassString:        "string",
	ClassStrOffset:     "strp",
	ClassLineStrOffset: "line_strp",
	ClassStrIndex:      "strx",
	ClassStrAlt:        "strp_alt",
	ClassReference:     "reference",
	ClassReferenceAddr: "ref_addr",
	ClassReferenceSig:  "ref_sig8",
	ClassReferenceAlt:  "ref_alt",
	ClassSecOffset:     "sec_offset",
	ClassLocListIndex:  "loclistx",
	ClassRngListIndex:  "rnglistx",
}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return "class(" + strconv.Itoa(int(c)) + ")"
}

// IsReference reports whether values of the class name another entry.
func (c Class) IsReference() bool {
	switch c {
	case ClassReference, ClassReferenceAddr, ClassReferenceSig, ClassReferenceAlt:
		return true
	}
	return false
}

// IsString reports whether values of the class resolve to a string.
func (c Class) IsString() bool {
	switch c {
	case ClassString, ClassStrOffset, ClassLineStrOffset, ClassStrIndex, ClassStrAlt:
		return true
	}
	return false
}

// Value is a decoded attribute value. Which field is meaningful depends on
// Class. Indexed and offset values stay unresolved until asked for through
// the owning Unit.
type Value struct {
	Class Class
	U     uint64
	I     int64
	Bytes []byte
	Str   string
	Flag  bool
}

func (v Value) String() string {
	switch v.Class {
	case ClassAddress:
		return fmt.Sprintf("0x%x", v.U)
	case ClassSigned:
		return strconv.FormatInt(v.I, 10)
	case ClassConstant:
		return strconv.FormatUint(v.U, 10)
	case ClassBlock, ClassExprLoc, ClassConstant16:
		return "[" + hex.EncodeToString(v.Bytes) + "]"
	case ClassFlag:
		return strconv.FormatBool(v.Flag)
	case ClassString:
		return strconv.Quote(v.Str)
	case ClassReference:
		return fmt.Sprintf("<+0x%x>", v.U)
	case ClassReferenceAddr:
		return fmt.Sprintf("<0x%x>", v.U)
	case ClassReferenceSig:
		return fmt.Sprintf("sig 0x%016x", v.U)
	}
	return fmt.Sprintf("%s 0x%x", v.Class, v.U)
}

// Attribute is one decoded attribute of an entry.
type Attribute struct {
	Attr Attr
	// Form is the effective form, after DW_FORM_indirect was followed.
	Form Form
	// Offset is the section offset of the value bytes.
	Offset uint64
	Val    Value
}
