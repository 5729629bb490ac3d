package dwarf

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/dwarfkit/internal/testutil"
)

func namedUnits(h testutil.UnitHeader, names ...string) []byte {
	var out []byte
	for _, n := range names {
		out = append(out, h.Encode(testutil.NewBuf().ULEB(1).CString(n).Bytes())...)
	}
	return out
}

var namedUnitAbbrev = testutil.AbbrevTable(decl(1, TagCompileUnit, false, spec(AttrName, FormString)))

func TestUnitReader_EnumeratesInOffsetOrder(t *testing.T) {
	h := v4Header()
	info := namedUnits(h, "a.c", "bb.c", "ccc.c")
	s := openSections(t, Sections{Info: info, Abbrev: namedUnitAbbrev})

	r := s.Units()
	var names []string
	var prevEnd uint64
	for u, err := range r.All() {
		require.NoError(t, err)
		assert.Equal(t, prevEnd, u.Offset)
		assert.Equal(t, uint16(4), u.Version)
		assert.Equal(t, uint8(8), u.AddrSize)
		assert.Equal(t, uint8(4), u.OffsetSize)
		assert.Equal(t, UnitCompile, u.Type)
		assert.Equal(t, u.Offset+uint64(h.Size()), u.DataOffset)
		name, err := u.Name()
		require.NoError(t, err)
		names = append(names, name)
		prevEnd = u.End
	}
	assert.Equal(t, []string{"a.c", "bb.c", "ccc.c"}, names)
	assert.Equal(t, uint64(len(info)), prevEnd)

	u, err := r.Next()
	require.NoError(t, err)
	assert.Nil(t, u)

	r.Reset()
	u, err = r.Next()
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, uint64(0), u.Offset)
}

func TestUnitReader_LengthPastSectionEnd(t *testing.T) {
	h := v4Header()
	info := namedUnits(h, "a.c", "b.c")
	good := len(info)
	// a header claiming 0x100 bytes followed by far fewer
	info = append(info, testutil.NewBuf().U32(0x100).U16(4).U32(0).U8(8).Bytes()...)
	s := openSections(t, Sections{Info: info, Abbrev: namedUnitAbbrev})

	r := s.Units()
	var yielded []*Unit
	var failure error
	for u, err := range r.All() {
		if err != nil {
			failure = err
			break
		}
		yielded = append(yielded, u)
	}
	require.Len(t, yielded, 2)
	require.ErrorIs(t, failure, ErrCorrupt)

	var de *Error
	require.True(t, errors.As(failure, &de))
	assert.Equal(t, SectionInfo, de.Section)
	assert.Equal(t, uint64(good), de.Offset)

	// units already yielded stay usable
	name, err := yielded[1].Name()
	require.NoError(t, err)
	assert.Equal(t, "b.c", name)

	// enumeration stays stopped
	u, err := r.Next()
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestUnitReader_HeaderVariants(t *testing.T) {
	tests := []struct {
		name    string
		header  testutil.UnitHeader
		wantErr error
		check   func(t *testing.T, u *Unit)
	}{
		{
			name:   "dwarf 2 with 4-byte addresses",
			header: testutil.UnitHeader{Version: 2, AddrSize: 4},
			check: func(t *testing.T, u *Unit) {
				assert.Equal(t, uint16(2), u.Version)
				assert.Equal(t, uint8(4), u.AddrSize)
			},
		},
		{
			name:   "dwarf 5 compile unit",
			header: v5Header(),
			check: func(t *testing.T, u *Unit) {
				assert.Equal(t, UnitCompile, u.Type)
				assert.Equal(t, uint64(12), u.DataOffset)
			},
		},
		{
			name:   "64-bit dwarf 4",
			header: testutil.UnitHeader{Version: 4, AddrSize: 8, Format64: true},
			check: func(t *testing.T, u *Unit) {
				assert.True(t, u.Is64())
				assert.Equal(t, uint64(4+8+2+8+1), u.DataOffset)
			},
		},
		{
			name:   "dwarf 5 skeleton unit",
			header: testutil.UnitHeader{Version: 5, UnitType: uint8(UnitSkeleton), AddrSize: 8, Signature: 0xabc},
			check: func(t *testing.T, u *Unit) {
				assert.Equal(t, UnitSkeleton, u.Type)
				assert.Equal(t, uint64(0xabc), u.Signature)
			},
		},
		{
			name:    "version 6",
			header:  testutil.UnitHeader{Version: 6, AddrSize: 8},
			wantErr: ErrUnsupported,
		},
		{
			name:    "version 1",
			header:  testutil.UnitHeader{Version: 1, AddrSize: 8},
			wantErr: ErrUnsupported,
		},
		{
			name:    "address size 3",
			header:  testutil.UnitHeader{Version: 4, AddrSize: 3},
			wantErr: ErrUnsupported,
		},
		{
			name:    "unknown dwarf 5 unit type",
			header:  testutil.UnitHeader{Version: 5, UnitType: 0x7f, AddrSize: 8},
			wantErr: ErrUnsupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openSections(t, Sections{Info: namedUnits(tt.header, "x.c"), Abbrev: namedUnitAbbrev})
			u, err := s.Units().Next()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, u)
			name, err := u.Name()
			require.NoError(t, err)
			assert.Equal(t, "x.c", name)
		})
	}
}

func TestUnitReader_ReservedLength(t *testing.T) {
	info := testutil.NewBuf().U32(0xfffffff5).U16(4).Bytes()
	s := openSections(t, Sections{Info: info, Abbrev: namedUnitAbbrev})

	_, err := s.Units().Next()
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestSession_UnitContaining(t *testing.T) {
	info := namedUnits(v4Header(), "a.c", "b.c")
	s := openSections(t, Sections{Info: info, Abbrev: namedUnitAbbrev})

	second, err := s.UnitAt(uint64(len(info) / 2))
	require.NoError(t, err)

	u, err := s.UnitContaining(second.DataOffset)
	require.NoError(t, err)
	assert.Equal(t, second.Offset, u.Offset)

	e, err := s.EntryAt(second.DataOffset)
	require.NoError(t, err)
	name, err := e.Name()
	require.NoError(t, err)
	assert.Equal(t, "b.c", name)

	_, err = s.UnitContaining(uint64(len(info)))
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = s.UnitAt(uint64(len(info)) + 10)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestSession_TypeUnits(t *testing.T) {
	abbrev := testutil.AbbrevTable(
		decl(1, TagTypeUnit, true),
		decl(2, TagStructureType, false, spec(AttrName, FormString)),
	)
	body := testutil.NewBuf().ULEB(1).ULEB(2).CString("pair").ULEB(0).Bytes()

	v5 := testutil.UnitHeader{Version: 5, UnitType: uint8(UnitTypeUnit), AddrSize: 8, Signature: 0x55}
	v5.TypeOffset = uint64(v5.Size() + 1)
	v4 := testutil.UnitHeader{Version: 4, AddrSize: 8, Types: true, Signature: 0x44}
	v4.TypeOffset = uint64(v4.Size() + 1)

	s := openSections(t, Sections{Info: v5.Encode(body), Types: v4.Encode(body), Abbrev: abbrev})

	tu, err := s.TypeUnits().Next()
	require.NoError(t, err)
	assert.Equal(t, UnitTypeUnit, tu.Type)
	assert.Equal(t, uint64(0x44), tu.Signature)

	for _, sig := range []uint64{0x44, 0x55} {
		u, err := s.TypeUnitBySignature(sig)
		require.NoError(t, err)
		typ, err := u.TypeEntry()
		require.NoError(t, err)
		assert.Equal(t, TagStructureType, typ.Tag)
	}

	_, err = s.TypeUnitBySignature(0x66)
	assert.ErrorIs(t, err, ErrNotFound)

	cu, err := s.Units().Next()
	require.NoError(t, err)
	root, err := cu.Root()
	require.NoError(t, err)
	assert.Equal(t, TagTypeUnit, root.Tag)
}
