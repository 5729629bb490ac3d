// Package inspect implements the dwarfkit subcommands that read an object
// file and print its debug information.
package inspect

import (
	"fmt"
	"strconv"

	"github.com/coral-mesh/dwarfkit/pkg/dwarf"
)

// FormatValue renders an attribute value for display, resolving indirect
// strings and addresses through u. A value that fails to resolve is shown
// raw with the error appended.
func FormatValue(u *dwarf.Unit, at dwarf.Attribute) string {
	v := at.Val
	switch {
	case v.Class.IsString():
		s, err := u.ResolveString(v)
		if err != nil {
			return fmt.Sprintf("%s <%v>", v, err)
		}
		return strconv.Quote(s)

	case v.Class == dwarf.ClassAddrIndex:
		addr, err := u.ResolveAddress(v)
		if err != nil {
			return fmt.Sprintf("%s <%v>", v, err)
		}
		return fmt.Sprintf("0x%x", addr)

	case v.Class == dwarf.ClassReference:
		return fmt.Sprintf("<0x%x>", u.Offset+v.U)

	case v.Class == dwarf.ClassRngListIndex:
		sec, off, err := u.RangeListOffset(v)
		if err != nil {
			return fmt.Sprintf("%s <%v>", v, err)
		}
		return fmt.Sprintf("%s+0x%x", sec, off)

	case v.Class == dwarf.ClassLocListIndex:
		sec, off, err := u.LocListOffset(v)
		if err != nil {
			return fmt.Sprintf("%s <%v>", v, err)
		}
		return fmt.Sprintf("%s+0x%x", sec, off)
	}
	return v.String()
}

func hexOffset(off uint64) string {
	return fmt.Sprintf("0x%x", off)
}

func unitFormat(u *dwarf.Unit) string {
	if u.Is64() {
		return "dwarf64"
	}
	return "dwarf32"
}
