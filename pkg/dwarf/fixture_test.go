package dwarf

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/dwarfkit/internal/testutil"
)

func spec(a Attr, f Form) testutil.Spec {
	return testutil.Spec{Attr: uint64(a), Form: uint64(f)}
}

func decl(code uint64, tag Tag, children bool, specs ...testutil.Spec) testutil.Decl {
	return testutil.Decl{Code: code, Tag: uint64(tag), Children: children, Specs: specs}
}

func v4Header() testutil.UnitHeader {
	return testutil.UnitHeader{Version: 4, AddrSize: 8}
}

func v5Header() testutil.UnitHeader {
	return testutil.UnitHeader{Version: 5, UnitType: uint8(UnitCompile), AddrSize: 8}
}

func openSections(t *testing.T, sec Sections) *Session {
	t.Helper()
	s, err := FromSections(sec, WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func firstUnit(t *testing.T, s *Session) *Unit {
	t.Helper()
	u, err := s.Units().Next()
	require.NoError(t, err)
	require.NotNil(t, u)
	return u
}

// mainSubprogram is a single unit whose root is DW_TAG_subprogram "main" at
// low_pc 0x1000.
func mainSubprogram() Sections {
	abbrev := testutil.AbbrevTable(
		decl(1, TagSubprogram, false, spec(AttrName, FormString), spec(AttrLowPC, FormAddr)),
	)
	body := testutil.NewBuf().ULEB(1).CString("main").U64(0x1000)
	return Sections{
		Info:   v4Header().Encode(body.Bytes()),
		Abbrev: abbrev,
	}
}

// Entry offsets of treeSections, relative to the start of .debug_info.
type treeLayout struct {
	root, fn, local, param, base uint64
}

// treeSections builds a v4 unit shaped like
//
//	compile_unit "t.c"
//	  subprogram "f"
//	    variable "x"
//	    formal_parameter "p"
//	  base_type "int"
func treeSections(withSibling bool) (Sections, treeLayout) {
	h := v4Header()
	fnSpecs := []testutil.Spec{spec(AttrName, FormString)}
	if withSibling {
		fnSpecs = append(fnSpecs, spec(AttrSibling, FormRef4))
	}
	abbrev := testutil.AbbrevTable(
		decl(1, TagCompileUnit, true, spec(AttrName, FormString)),
		decl(2, TagSubprogram, true, fnSpecs...),
		decl(3, TagVariable, false, spec(AttrName, FormString)),
		decl(4, TagFormalParameter, false, spec(AttrName, FormString)),
		decl(5, TagBaseType, false, spec(AttrName, FormString), spec(AttrByteSize, FormData1)),
	)

	var l treeLayout
	b := testutil.NewBuf()
	hs := uint64(h.Size())
	at := func() uint64 { return hs + uint64(b.Len()) }

	l.root = at()
	b.ULEB(1).CString("t.c")
	l.fn = at()
	b.ULEB(2).CString("f")
	siblingAt := b.Len()
	if withSibling {
		b.U32(0)
	}
	l.local = at()
	b.ULEB(3).CString("x")
	l.param = at()
	b.ULEB(4).CString("p")
	b.ULEB(0)
	l.base = at()
	b.ULEB(5).CString("int").U8(4)
	b.ULEB(0)

	body := b.Bytes()
	if withSibling {
		// unit-relative offset of base_type
		ref := testutil.NewBuf().U32(uint32(l.base)).Bytes()
		copy(body[siblingAt:], ref)
	}
	return Sections{Info: h.Encode(body), Abbrev: abbrev}, l
}
