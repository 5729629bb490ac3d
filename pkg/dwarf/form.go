package dwarf

import "strconv"

// formVersion is the first DWARF version defining each standard form. GNU
// extensions are accepted in any unit.
var formVersion = map[Form]uint16{
	FormAddr: 2, FormBlock2: 2, FormBlock4: 2, FormData2: 2, FormData4: 2, FormData8: 2,
	FormString: 2, FormBlock: 2, FormBlock1: 2, FormData1: 2, FormFlag: 2, FormSdata: 2,
	FormStrp: 2, FormUdata: 2, FormRefAddr: 2, FormRef1: 2, FormRef2: 2, FormRef4: 2,
	FormRef8: 2, FormRefUdata: 2, FormIndirect: 2,

	FormSecOffset: 4, FormExprloc: 4, FormFlagPresent: 4, FormRefSig8: 4,

	FormStrx: 5, FormAddrx: 5, FormRefSup4: 5, FormStrpSup: 5, FormData16: 5,
	FormLineStrp: 5, FormImplicitConst: 5, FormLoclistx: 5, FormRnglistx: 5,
	FormRefSup8: 5, FormStrx1: 5, FormStrx2: 5, FormStrx3: 5, FormStrx4: 5,
	FormAddrx1: 5, FormAddrx2: 5, FormAddrx3: 5, FormAddrx4: 5,

	FormGNUAddrIndex: 0, FormGNUStrIndex: 0, FormGNURefAlt: 0, FormGNUStrpAlt: 0,
}

// decodeAttr reads one attribute value at the cursor. The form fixes how
// many bytes are consumed, so attributes must be decoded in declaration
// order.
func (u *Unit) decodeAttr(c *cursor, spec AttrSpec) (Attribute, error) {
	a := Attribute{Attr: spec.Attr, Form: spec.Form, Offset: c.off}

	form := spec.Form
	if form == FormIndirect {
		f, err := c.uleb("indirect form")
		if err != nil {
			return a, err
		}
		form = Form(f)
		a.Form = form
		a.Offset = c.off
		if form == FormIndirect || form == FormImplicitConst {
			return a, corruptf(c.section, a.Offset, "%s cannot be named by DW_FORM_indirect", form)
		}
	}

	minVersion, known := formVersion[form]
	if !known {
		return a, unsupportedForm(c.section, a.Offset, form, "unknown form for "+spec.Attr.String())
	}
	if u.Version < minVersion {
		return a, unsupportedForm(c.section, a.Offset, form, "form not defined in DWARF version "+strconv.Itoa(int(u.Version)))
	}

	var err error
	v := &a.Val
	switch form {
	case FormAddr:
		v.Class = ClassAddress
		v.U, err = c.uint(int(u.AddrSize), "address")

	case FormData1, FormData2, FormData4, FormData8:
		v.Class = ClassConstant
		v.U, err = c.uint(fixedSize(form), "constant")
	case FormData16:
		v.Class = ClassConstant16
		v.Bytes, err = c.bytes(16, "data16")
	case FormUdata:
		v.Class = ClassConstant
		v.U, err = c.uleb("udata")
	case FormSdata:
		v.Class = ClassSigned
		v.I, err = c.sleb("sdata")
		v.U = uint64(v.I)
	case FormImplicitConst:
		v.Class = ClassSigned
		v.I = spec.ImplicitConst
		v.U = uint64(v.I)

	case FormBlock1, FormBlock2, FormBlock4, FormBlock:
		var n uint64
		if form == FormBlock {
			n, err = c.uleb("block length")
		} else {
			n, err = c.uint(fixedSize(form), "block length")
		}
		if err == nil {
			v.Class = ClassBlock
			v.Bytes, err = c.bytes(n, "block")
		}
	case FormExprloc:
		var n uint64
		if n, err = c.uleb("exprloc length"); err == nil {
			v.Class = ClassExprLoc
			v.Bytes, err = c.bytes(n, "exprloc")
		}

	case FormFlag:
		var b uint8
		b, err = c.u8("flag")
		v.Class = ClassFlag
		v.Flag = b != 0
	case FormFlagPresent:
		v.Class = ClassFlag
		v.Flag = true

	case FormString:
		v.Class = ClassString
		v.Str, err = c.cstring("inline string")
	case FormStrp:
		v.Class = ClassStrOffset
		v.U, err = c.offset(u.OffsetSize, "strp")
	case FormLineStrp:
		v.Class = ClassLineStrOffset
		v.U, err = c.offset(u.OffsetSize, "line_strp")
	case FormStrpSup, FormGNUStrpAlt:
		v.Class = ClassStrAlt
		v.U, err = c.offset(u.OffsetSize, "strp_sup")
	case FormStrx, FormGNUStrIndex:
		v.Class = ClassStrIndex
		v.U, err = c.uleb("strx")
	case FormStrx1, FormStrx2, FormStrx3, FormStrx4:
		v.Class = ClassStrIndex
		v.U, err = c.uint(fixedSize(form), "strx")

	case FormAddrx, FormGNUAddrIndex:
		v.Class = ClassAddrIndex
		v.U, err = c.uleb("addrx")
	case FormAddrx1, FormAddrx2, FormAddrx3, FormAddrx4:
		v.Class = ClassAddrIndex
		v.U, err = c.uint(fixedSize(form), "addrx")

	case FormRef1, FormRef2, FormRef4, FormRef8:
		v.Class = ClassReference
		v.U, err = c.uint(fixedSize(form), "reference")
	case FormRefUdata:
		v.Class = ClassReference
		v.U, err = c.uleb("reference")
	case FormRefAddr:
		v.Class = ClassReferenceAddr
		// DWARF 2 sized ref_addr like an address
		if u.Version == 2 {
			v.U, err = c.uint(int(u.AddrSize), "ref_addr")
		} else {
			v.U, err = c.offset(u.OffsetSize, "ref_addr")
		}
	case FormRefSig8:
		v.Class = ClassReferenceSig
		v.U, err = c.u64("ref_sig8")
	case FormRefSup4:
		v.Class = ClassReferenceAlt
		v.U, err = c.uint(4, "ref_sup4")
	case FormRefSup8:
		v.Class = ClassReferenceAlt
		v.U, err = c.u64("ref_sup8")
	case FormGNURefAlt:
		v.Class = ClassReferenceAlt
		v.U, err = c.offset(u.OffsetSize, "ref_alt")

	case FormSecOffset:
		v.Class = ClassSecOffset
		v.U, err = c.offset(u.OffsetSize, "sec_offset")
	case FormLoclistx:
		v.Class = ClassLocListIndex
		v.U, err = c.uleb("loclistx")
	case FormRnglistx:
		v.Class = ClassRngListIndex
		v.U, err = c.uleb("rnglistx")

	default:
		return a, unsupportedForm(c.section, a.Offset, form, "no decoder")
	}
	if err != nil {
		return a, err
	}
	return a, nil
}

// fixedSize is the byte width of fixed-size forms, zero for the rest.
func fixedSize(f Form) int {
	switch f {
	case FormData1, FormRef1, FormFlag, FormStrx1, FormAddrx1, FormBlock1:
		return 1
	case FormData2, FormRef2, FormStrx2, FormAddrx2, FormBlock2:
		return 2
	case FormStrx3, FormAddrx3:
		return 3
	case FormData4, FormRef4, FormStrx4, FormAddrx4, FormRefSup4, FormBlock4:
		return 4
	case FormData8, FormRef8, FormRefSig8, FormRefSup8:
		return 8
	case FormData16:
		return 16
	}
	return 0
}
