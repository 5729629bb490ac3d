package inspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/dwarfkit/internal/testutil"
	"github.com/coral-mesh/dwarfkit/pkg/dwarf"
)

func TestFormatValue(t *testing.T) {
	str := testutil.NewStrTab()
	nameOff := str.Add("x.c")

	spec := func(a dwarf.Attr, f dwarf.Form) testutil.Spec {
		return testutil.Spec{Attr: uint64(a), Form: uint64(f)}
	}
	abbrev := testutil.AbbrevTable(testutil.Decl{Code: 1, Tag: uint64(dwarf.TagCompileUnit), Specs: []testutil.Spec{
		spec(dwarf.AttrName, dwarf.FormStrp),
		spec(dwarf.AttrProducer, dwarf.FormStrp),
		spec(dwarf.AttrType, dwarf.FormRef4),
		spec(dwarf.AttrLowPC, dwarf.FormAddr),
		spec(dwarf.AttrLanguage, dwarf.FormData1),
		spec(dwarf.AttrExternal, dwarf.FormFlagPresent),
	}})
	body := testutil.NewBuf().ULEB(1).
		U32(uint32(nameOff)).
		U32(0x100).
		U32(0x2a).
		U64(0x401000).
		U8(0x0c)
	info := testutil.UnitHeader{Version: 4, AddrSize: 8}.Encode(body.Bytes())

	s, err := dwarf.FromSections(dwarf.Sections{Info: info, Abbrev: abbrev, Str: str.Bytes()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	u, err := s.Units().Next()
	require.NoError(t, err)
	root, err := u.Root()
	require.NoError(t, err)

	tests := []struct {
		attr dwarf.Attr
		want string
	}{
		{dwarf.AttrName, `"x.c"`},
		{dwarf.AttrType, "<0x2a>"},
		{dwarf.AttrLowPC, "0x401000"},
		{dwarf.AttrLanguage, "12"},
		{dwarf.AttrExternal, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.attr.String(), func(t *testing.T) {
			at, ok := root.Attr(tt.attr)
			require.True(t, ok)
			assert.Equal(t, tt.want, FormatValue(u, at))
		})
	}

	// an out-of-range string offset renders raw with the decode error
	at, ok := root.Attr(dwarf.AttrProducer)
	require.True(t, ok)
	got := FormatValue(u, at)
	assert.Contains(t, got, "strp 0x100")
	assert.Contains(t, got, "corrupt")
}

func TestLineFlags(t *testing.T) {
	assert.Equal(t, "-", lineFlags(dwarf.LineRow{}))
	assert.Equal(t, "stmt,prologue_end", lineFlags(dwarf.LineRow{IsStmt: true, PrologueEnd: true}))
	assert.Equal(t, "bb,epilogue_begin,end_sequence",
		lineFlags(dwarf.LineRow{BasicBlock: true, EpilogueBegin: true, EndSequence: true}))
}
