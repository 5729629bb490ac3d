package dwarf

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/dwarfkit/internal/testutil"
)

func TestEntry_MainSubprogram(t *testing.T) {
	s := openSections(t, mainSubprogram())
	u := firstUnit(t, s)

	root, err := u.Root()
	require.NoError(t, err)
	assert.Equal(t, TagSubprogram, root.Tag)
	assert.False(t, root.Children)
	assert.Equal(t, uint64(1), root.Code())

	name, err := root.Name()
	require.NoError(t, err)
	assert.Equal(t, "main", name)

	low, err := root.Address(AttrLowPC)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1000), low)

	attrs := root.Attributes()
	require.Len(t, attrs, 2)
	assert.Equal(t, AttrName, attrs[0].Attr)
	assert.Equal(t, FormString, attrs[0].Form)
	assert.Equal(t, AttrLowPC, attrs[1].Attr)
	assert.Equal(t, Value{Class: ClassAddress, U: 0x1000}, attrs[1].Val)

	// code, "main\0", 8-byte address
	assert.Equal(t, uint64(1+5+8), root.End()-root.Offset)
	assert.Equal(t, u.End, root.End())
}

func TestEntry_DecodeIsIdempotent(t *testing.T) {
	s := openSections(t, mainSubprogram())
	u := firstUnit(t, s)

	a, err := u.EntryAt(u.DataOffset)
	require.NoError(t, err)
	b, err := u.EntryAt(u.DataOffset)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotSame(t, a, b)
}

func TestEntry_FirstChildWithoutChildren(t *testing.T) {
	s := openSections(t, mainSubprogram())
	root, err := firstUnit(t, s).Root()
	require.NoError(t, err)

	end := root.End()
	child, err := root.FirstChild()
	require.NoError(t, err)
	assert.Nil(t, child)
	assert.Equal(t, end, root.End())
}

func TestEntry_Navigation(t *testing.T) {
	for _, withSibling := range []bool{false, true} {
		name := "skip subtree"
		if withSibling {
			name = "sibling attribute"
		}
		t.Run(name, func(t *testing.T) {
			sec, l := treeSections(withSibling)
			s := openSections(t, sec)
			u := firstUnit(t, s)

			root, err := u.Root()
			require.NoError(t, err)
			assert.Equal(t, l.root, root.Offset)

			fn, err := root.FirstChild()
			require.NoError(t, err)
			require.NotNil(t, fn)
			assert.Equal(t, TagSubprogram, fn.Tag)
			assert.Equal(t, l.fn, fn.Offset)

			local, err := fn.FirstChild()
			require.NoError(t, err)
			assert.Equal(t, l.local, local.Offset)

			param, err := local.NextSibling()
			require.NoError(t, err)
			assert.Equal(t, l.param, param.Offset)

			none, err := param.NextSibling()
			require.NoError(t, err)
			assert.Nil(t, none)

			base, err := fn.NextSibling()
			require.NoError(t, err)
			require.NotNil(t, base)
			assert.Equal(t, l.base, base.Offset)
			assert.Equal(t, TagBaseType, base.Tag)

			size, err := base.Uint(AttrByteSize)
			require.NoError(t, err)
			assert.Equal(t, uint64(4), size)

			none, err = base.NextSibling()
			require.NoError(t, err)
			assert.Nil(t, none)

			// the root has no siblings
			none, err = root.NextSibling()
			require.NoError(t, err)
			assert.Nil(t, none)
		})
	}
}

func TestEntry_ChildEntries(t *testing.T) {
	sec, l := treeSections(false)
	s := openSections(t, sec)
	root, err := firstUnit(t, s).Root()
	require.NoError(t, err)

	var offsets []uint64
	for e, err := range root.ChildEntries() {
		require.NoError(t, err)
		offsets = append(offsets, e.Offset)
	}
	assert.Equal(t, []uint64{l.fn, l.base}, offsets)
}

func TestEntry_RestartFromObservedOffset(t *testing.T) {
	sec, l := treeSections(false)
	s := openSections(t, sec)
	u := firstUnit(t, s)

	param, err := u.EntryAt(l.param)
	require.NoError(t, err)
	name, err := param.Name()
	require.NoError(t, err)
	assert.Equal(t, "p", name)

	// depth is unknown after random access; the terminator still ends the chain
	next, err := param.NextSibling()
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestEntry_TruncatedSiblingChain(t *testing.T) {
	abbrev := testutil.AbbrevTable(
		decl(1, TagCompileUnit, true, spec(AttrName, FormString)),
		decl(2, TagVariable, false, spec(AttrName, FormString)),
	)
	// the child list has no terminating zero code
	body := testutil.NewBuf().ULEB(1).CString("cu").ULEB(2).CString("a").ULEB(2).CString("b")
	s := openSections(t, Sections{Info: v4Header().Encode(body.Bytes()), Abbrev: abbrev})

	root, err := firstUnit(t, s).Root()
	require.NoError(t, err)

	a, err := root.FirstChild()
	require.NoError(t, err)
	b, err := a.NextSibling()
	require.NoError(t, err)
	require.NotNil(t, b)

	_, err = b.NextSibling()
	assert.ErrorIs(t, err, ErrCorrupt)

	err = Walk(root, func(*Entry, int) error { return nil })
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestEntry_UnknownAbbrevCode(t *testing.T) {
	abbrev := testutil.AbbrevTable(decl(1, TagCompileUnit, false))
	body := testutil.NewBuf().ULEB(7)
	s := openSections(t, Sections{Info: v4Header().Encode(body.Bytes()), Abbrev: abbrev})

	_, err := firstUnit(t, s).Root()
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestEntry_EmptyUnitHasNoRoot(t *testing.T) {
	abbrev := testutil.AbbrevTable(decl(1, TagCompileUnit, false))
	body := testutil.NewBuf().ULEB(0)
	s := openSections(t, Sections{Info: v4Header().Encode(body.Bytes()), Abbrev: abbrev})

	_, err := firstUnit(t, s).Root()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntry_BadSiblingAttribute(t *testing.T) {
	abbrev := testutil.AbbrevTable(
		decl(1, TagCompileUnit, true),
		decl(2, TagSubprogram, true, spec(AttrSibling, FormRef4)),
	)
	h := v4Header()
	// the sibling points backwards at the root
	body := testutil.NewBuf().ULEB(1).ULEB(2).U32(uint32(h.Size())).ULEB(0).ULEB(0)
	s := openSections(t, Sections{Info: h.Encode(body.Bytes()), Abbrev: abbrev})

	root, err := firstUnit(t, s).Root()
	require.NoError(t, err)
	fn, err := root.FirstChild()
	require.NoError(t, err)

	_, err = fn.NextSibling()
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestEntry_AccessorErrors(t *testing.T) {
	s := openSections(t, mainSubprogram())
	root, err := firstUnit(t, s).Root()
	require.NoError(t, err)

	_, err = root.Uint(AttrByteSize)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = root.Uint(AttrName)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = root.String(AttrLowPC)
	assert.ErrorIs(t, err, ErrUnsupported)

	flag, err := root.Flag(AttrExternal)
	require.NoError(t, err)
	assert.False(t, flag)

	assert.True(t, root.Has(AttrName))
	assert.False(t, root.Has(AttrType))
}

func TestEntry_Deref(t *testing.T) {
	abbrev := testutil.AbbrevTable(
		decl(1, TagCompileUnit, true),
		decl(2, TagVariable, false, spec(AttrName, FormString), spec(AttrType, FormRef4)),
		decl(3, TagBaseType, false, spec(AttrName, FormString)),
		decl(4, TagVariable, false, spec(AttrType, FormRefAddr)),
	)
	h := v4Header()
	hs := uint32(h.Size())
	b := testutil.NewBuf().ULEB(1)
	// variable "v" -> base_type, placed after it
	varAt := hs + uint32(b.Len())
	b.ULEB(2).CString("v").U32(varAt + 1 + 2 + 4)
	baseAt := hs + uint32(b.Len())
	b.ULEB(3).CString("int")
	// out-of-unit references
	badRef := hs + uint32(b.Len())
	b.ULEB(2).CString("w").U32(0x4000)
	badAddr := hs + uint32(b.Len())
	b.ULEB(4).U32(0x4000)
	goodAddr := hs + uint32(b.Len())
	b.ULEB(4).U32(baseAt)
	b.ULEB(0)

	s := openSections(t, Sections{Info: h.Encode(b.Bytes()), Abbrev: abbrev})
	u := firstUnit(t, s)

	v, err := u.EntryAt(uint64(varAt))
	require.NoError(t, err)
	typ, err := v.Deref(AttrType)
	require.NoError(t, err)
	assert.Equal(t, uint64(baseAt), typ.Offset)
	assert.Equal(t, TagBaseType, typ.Tag)

	// reading the bad reference is fine; following it is not
	w, err := u.EntryAt(uint64(badRef))
	require.NoError(t, err)
	at, ok := w.Attr(AttrType)
	require.True(t, ok)
	assert.Equal(t, uint64(0x4000), at.Val.U)
	_, err = w.Deref(AttrType)
	assert.ErrorIs(t, err, ErrCorrupt)

	e, err := u.EntryAt(uint64(badAddr))
	require.NoError(t, err)
	_, err = e.Deref(AttrType)
	assert.ErrorIs(t, err, ErrCorrupt)

	e, err = u.EntryAt(uint64(goodAddr))
	require.NoError(t, err)
	typ, err = e.Deref(AttrType)
	require.NoError(t, err)
	assert.Equal(t, uint64(baseAt), typ.Offset)

	_, err = v.Deref(AttrSibling)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntry_DerefSignature(t *testing.T) {
	const sig = 0x1122334455667788
	abbrev := testutil.AbbrevTable(
		decl(1, TagCompileUnit, true),
		decl(2, TagVariable, false, spec(AttrType, FormRefSig8)),
		decl(3, TagTypeUnit, true),
		decl(4, TagStructureType, false, spec(AttrName, FormString)),
	)

	cu := v4Header().Encode(testutil.NewBuf().ULEB(1).ULEB(2).U64(sig).ULEB(2).U64(0xdead).ULEB(0).Bytes())

	th := testutil.UnitHeader{Version: 4, AddrSize: 8, Types: true, Signature: sig}
	th.TypeOffset = uint64(th.Size() + 1)
	tu := th.Encode(testutil.NewBuf().ULEB(3).ULEB(4).CString("point").ULEB(0).Bytes())

	s := openSections(t, Sections{Info: cu, Abbrev: abbrev, Types: tu})
	root, err := firstUnit(t, s).Root()
	require.NoError(t, err)

	v, err := root.FirstChild()
	require.NoError(t, err)
	typ, err := v.Deref(AttrType)
	require.NoError(t, err)
	assert.Equal(t, TagStructureType, typ.Tag)
	assert.Equal(t, SectionTypes, typ.Unit().Section)
	name, err := typ.Name()
	require.NoError(t, err)
	assert.Equal(t, "point", name)

	missing, err := v.NextSibling()
	require.NoError(t, err)
	_, err = missing.Deref(AttrType)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWalk(t *testing.T) {
	sec, _ := treeSections(true)
	s := openSections(t, sec)
	root, err := firstUnit(t, s).Root()
	require.NoError(t, err)

	type visit struct {
		tag   Tag
		depth int
	}
	collect := func(skip Tag) []visit {
		var got []visit
		err := Walk(root, func(e *Entry, depth int) error {
			got = append(got, visit{e.Tag, depth})
			if e.Tag == skip {
				return SkipChildren
			}
			return nil
		})
		require.NoError(t, err)
		return got
	}

	assert.Equal(t, []visit{
		{TagCompileUnit, 0},
		{TagSubprogram, 1},
		{TagVariable, 2},
		{TagFormalParameter, 2},
		{TagBaseType, 1},
	}, collect(0))

	assert.Equal(t, []visit{
		{TagCompileUnit, 0},
		{TagSubprogram, 1},
		{TagBaseType, 1},
	}, collect(TagSubprogram))

	var n int
	err = Walk(root, func(*Entry, int) error {
		n++
		if n == 2 {
			return SkipAll
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stop := errors.New("stop")
	err = Walk(root, func(*Entry, int) error { return stop })
	assert.ErrorIs(t, err, stop)
}
