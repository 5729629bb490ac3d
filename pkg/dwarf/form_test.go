package dwarf

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/dwarfkit/internal/testutil"
)

// decodeOne builds a unit whose root carries a single attribute of form f
// encoded by enc, and returns the decoded root.
func decodeOne(t *testing.T, h testutil.UnitHeader, s testutil.Spec, enc func(b *testutil.Buf)) (*Unit, *Entry, error) {
	t.Helper()
	abbrev := testutil.AbbrevTable(testutil.Decl{Code: 1, Tag: uint64(TagVariable), Specs: []testutil.Spec{s}})
	b := testutil.NewBuf().ULEB(1)
	enc(b)
	sess := openSections(t, Sections{Info: h.Encode(b.Bytes()), Abbrev: abbrev})
	u := firstUnit(t, sess)
	root, err := u.Root()
	return u, root, err
}

func TestDecodeAttr_Forms(t *testing.T) {
	tests := []struct {
		name string
		form Form
		enc  func(b *testutil.Buf)
		want Value
	}{
		{"data1", FormData1, func(b *testutil.Buf) { b.U8(0xfe) }, Value{Class: ClassConstant, U: 0xfe}},
		{"data2", FormData2, func(b *testutil.Buf) { b.U16(0xbeef) }, Value{Class: ClassConstant, U: 0xbeef}},
		{"data4", FormData4, func(b *testutil.Buf) { b.U32(0xdeadbeef) }, Value{Class: ClassConstant, U: 0xdeadbeef}},
		{"data8", FormData8, func(b *testutil.Buf) { b.U64(1 << 40) }, Value{Class: ClassConstant, U: 1 << 40}},
		{"udata", FormUdata, func(b *testutil.Buf) { b.ULEB(624485) }, Value{Class: ClassConstant, U: 624485}},
		{"sdata", FormSdata, func(b *testutil.Buf) { b.SLEB(-123456) }, Value{Class: ClassSigned, I: -123456, U: uint64(0xfffffffffffe1dc0)}},
		{"data16", FormData16, func(b *testutil.Buf) { b.Raw(make([]byte, 15)...).U8(7) }, Value{Class: ClassConstant16, Bytes: append(make([]byte, 15), 7)}},
		{"block1", FormBlock1, func(b *testutil.Buf) { b.U8(3).Raw(1, 2, 3) }, Value{Class: ClassBlock, Bytes: []byte{1, 2, 3}}},
		{"block2", FormBlock2, func(b *testutil.Buf) { b.U16(2).Raw(9, 8) }, Value{Class: ClassBlock, Bytes: []byte{9, 8}}},
		{"block", FormBlock, func(b *testutil.Buf) { b.ULEB(1).Raw(5) }, Value{Class: ClassBlock, Bytes: []byte{5}}},
		{"exprloc", FormExprloc, func(b *testutil.Buf) { b.ULEB(2).Raw(0x91, 0x10) }, Value{Class: ClassExprLoc, Bytes: []byte{0x91, 0x10}}},
		{"flag", FormFlag, func(b *testutil.Buf) { b.U8(1) }, Value{Class: ClassFlag, Flag: true}},
		{"flag_present", FormFlagPresent, func(*testutil.Buf) {}, Value{Class: ClassFlag, Flag: true}},
		{"string", FormString, func(b *testutil.Buf) { b.CString("hi") }, Value{Class: ClassString, Str: "hi"}},
		{"strp", FormStrp, func(b *testutil.Buf) { b.U32(0x10) }, Value{Class: ClassStrOffset, U: 0x10}},
		{"line_strp", FormLineStrp, func(b *testutil.Buf) { b.U32(0x20) }, Value{Class: ClassLineStrOffset, U: 0x20}},
		{"strx", FormStrx, func(b *testutil.Buf) { b.ULEB(300) }, Value{Class: ClassStrIndex, U: 300}},
		{"strx3", FormStrx3, func(b *testutil.Buf) { b.Raw(0x01, 0x02, 0x03) }, Value{Class: ClassStrIndex, U: 0x030201}},
		{"addr", FormAddr, func(b *testutil.Buf) { b.U64(0x401000) }, Value{Class: ClassAddress, U: 0x401000}},
		{"addrx1", FormAddrx1, func(b *testutil.Buf) { b.U8(2) }, Value{Class: ClassAddrIndex, U: 2}},
		{"ref1", FormRef1, func(b *testutil.Buf) { b.U8(0x0c) }, Value{Class: ClassReference, U: 0x0c}},
		{"ref_udata", FormRefUdata, func(b *testutil.Buf) { b.ULEB(0x80) }, Value{Class: ClassReference, U: 0x80}},
		{"ref_addr", FormRefAddr, func(b *testutil.Buf) { b.U32(0x1234) }, Value{Class: ClassReferenceAddr, U: 0x1234}},
		{"ref_sig8", FormRefSig8, func(b *testutil.Buf) { b.U64(0x0102030405060708) }, Value{Class: ClassReferenceSig, U: 0x0102030405060708}},
		{"ref_sup4", FormRefSup4, func(b *testutil.Buf) { b.U32(9) }, Value{Class: ClassReferenceAlt, U: 9}},
		{"sec_offset", FormSecOffset, func(b *testutil.Buf) { b.U32(0x40) }, Value{Class: ClassSecOffset, U: 0x40}},
		{"loclistx", FormLoclistx, func(b *testutil.Buf) { b.ULEB(4) }, Value{Class: ClassLocListIndex, U: 4}},
		{"rnglistx", FormRnglistx, func(b *testutil.Buf) { b.ULEB(5) }, Value{Class: ClassRngListIndex, U: 5}},
		{"gnu_addr_index", FormGNUAddrIndex, func(b *testutil.Buf) { b.ULEB(6) }, Value{Class: ClassAddrIndex, U: 6}},
		{"gnu_strp_alt", FormGNUStrpAlt, func(b *testutil.Buf) { b.U32(7) }, Value{Class: ClassStrAlt, U: 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, root, err := decodeOne(t, v5Header(), spec(AttrConstValue, tt.form), tt.enc)
			require.NoError(t, err)
			require.Len(t, root.Attrs, 1)
			assert.Equal(t, tt.form, root.Attrs[0].Form)
			assert.Equal(t, tt.want, root.Attrs[0].Val)
			// exactly the encoded bytes were consumed
			assert.Equal(t, u.End, root.End())
		})
	}
}

func TestDecodeAttr_ImplicitConst(t *testing.T) {
	s := testutil.Spec{Attr: uint64(AttrDeclLine), Form: uint64(FormImplicitConst), Const: -42}
	u, root, err := decodeOne(t, v5Header(), s, func(*testutil.Buf) {})
	require.NoError(t, err)
	assert.Equal(t, Value{Class: ClassSigned, I: -42, U: uint64(1<<64 - 42)}, root.Attrs[0].Val)
	assert.Equal(t, u.End, root.End())

	line, err := root.Int(AttrDeclLine)
	require.NoError(t, err)
	assert.Equal(t, int64(-42), line)
}

func TestDecodeAttr_Indirect(t *testing.T) {
	u, root, err := decodeOne(t, v4Header(), spec(AttrByteSize, FormIndirect), func(b *testutil.Buf) {
		b.ULEB(uint64(FormData2)).U16(512)
	})
	require.NoError(t, err)
	assert.Equal(t, FormData2, root.Attrs[0].Form)
	assert.Equal(t, u.End, root.End())

	size, err := root.Uint(AttrByteSize)
	require.NoError(t, err)
	assert.Equal(t, uint64(512), size)
}

func TestDecodeAttr_RefAddrSizeByVersion(t *testing.T) {
	v2 := testutil.UnitHeader{Version: 2, AddrSize: 8}
	_, root, err := decodeOne(t, v2, spec(AttrType, FormRefAddr), func(b *testutil.Buf) { b.U64(0x99) })
	require.NoError(t, err)
	assert.Equal(t, uint64(0x99), root.Attrs[0].Val.U)

	wide := testutil.UnitHeader{Version: 4, AddrSize: 4, Format64: true}
	_, root, err = decodeOne(t, wide, spec(AttrType, FormRefAddr), func(b *testutil.Buf) { b.U64(0x77) })
	require.NoError(t, err)
	assert.Equal(t, uint64(0x77), root.Attrs[0].Val.U)
}

func TestDecodeAttr_Unsupported(t *testing.T) {
	tests := []struct {
		name   string
		header testutil.UnitHeader
		form   Form
		enc    func(b *testutil.Buf)
	}{
		{"strx1 in dwarf 4", v4Header(), FormStrx1, func(b *testutil.Buf) { b.U8(0) }},
		{"data16 in dwarf 4", v4Header(), FormData16, func(b *testutil.Buf) { b.Raw(make([]byte, 16)...) }},
		{"exprloc in dwarf 3", testutil.UnitHeader{Version: 3, AddrSize: 8}, FormExprloc, func(b *testutil.Buf) { b.ULEB(0) }},
		{"unknown form", v5Header(), Form(0x7f), func(b *testutil.Buf) { b.U8(0) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, _, err := decodeOne(t, tt.header, spec(AttrName, tt.form), tt.enc)
			require.ErrorIs(t, err, ErrUnsupported)

			var de *Error
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.form, de.Form)
			// the value starts right after the one-byte abbreviation code
			assert.Equal(t, u.DataOffset+1, de.Offset)
			assert.Contains(t, err.Error(), tt.form.String())
		})
	}
}

func TestDecodeAttr_Truncated(t *testing.T) {
	tests := []struct {
		name string
		form Form
		enc  func(b *testutil.Buf)
	}{
		{"data4", FormData4, func(b *testutil.Buf) { b.U16(1) }},
		{"unterminated string", FormString, func(b *testutil.Buf) { b.Raw('a', 'b') }},
		{"block past unit end", FormBlock1, func(b *testutil.Buf) { b.U8(10).Raw(1) }},
		{"truncated udata", FormUdata, func(b *testutil.Buf) { b.Raw(0x80) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := decodeOne(t, v5Header(), spec(AttrConstValue, tt.form), tt.enc)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}
