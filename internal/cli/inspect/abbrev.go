package inspect

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/dwarfkit/internal/cli/helpers"
	"github.com/coral-mesh/dwarfkit/internal/errors"
	"github.com/coral-mesh/dwarfkit/pkg/dwarf"
)

type abbrevSpecOut struct {
	Attr          string `json:"attr"`
	Form          string `json:"form"`
	ImplicitConst *int64 `json:"implicit_const,omitempty"`
}

type abbrevOut struct {
	Code     uint64          `json:"code"`
	Tag      string          `json:"tag"`
	Children bool            `json:"children"`
	Specs    []abbrevSpecOut `json:"specs"`
}

type abbrevTableOut struct {
	Offset      string      `json:"offset"`
	Size        uint64      `json:"size"`
	Fingerprint string      `json:"fingerprint"`
	Units       []string    `json:"units"`
	SameAs      string      `json:"same_as,omitempty"`
	Entries     []abbrevOut `json:"entries"`
}

// abbrevRow is the flat csv shape, one row per declaration.
type abbrevRow struct {
	Table    string `header:"TABLE"`
	Code     uint64 `header:"CODE"`
	Tag      string `header:"TAG"`
	Children bool   `header:"CHILDREN"`
	Attrs    int    `header:"ATTRS"`
}

// NewAbbrevCmd creates the abbrev command.
func NewAbbrevCmd(env *helpers.Env) *cobra.Command {
	var unit string

	cmd := &cobra.Command{
		Use:   "abbrev <object-file>",
		Short: "Print the abbreviation tables used by the units",
		Long: `Print each abbreviation table referenced by a unit, once, together with
the units sharing it. Tables with identical bytes at different offsets are
marked as duplicates.

Examples:
  dwarfkit abbrev ./app
  dwarfkit abbrev ./app --unit 0x0 -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAbbrev(env, args[0], unit)
		},
	}

	helpers.AddUnitFlag(cmd, &unit)
	return cmd
}

func runAbbrev(env *helpers.Env, path, unit string) error {
	s, err := env.Open(path)
	if err != nil {
		return err
	}
	defer errors.DeferClose(env.Logger, s, "Failed to close object file")

	tables := []*abbrevTableOut{}
	byOffset := map[uint64]*abbrevTableOut{}
	byFingerprint := map[uint64]string{}

	var scanErr error
	for u, err := range helpers.SelectUnits(s, unit) {
		if err != nil {
			scanErr = err
			break
		}
		if out, ok := byOffset[u.AbbrevOffset]; ok {
			out.Units = append(out.Units, hexOffset(u.Offset))
			continue
		}
		t, err := u.Abbrevs()
		if err != nil {
			scanErr = err
			break
		}

		out := newAbbrevTableOut(t)
		out.Units = []string{hexOffset(u.Offset)}
		if first, ok := byFingerprint[t.Fingerprint]; ok {
			out.SameAs = first
		} else {
			byFingerprint[t.Fingerprint] = out.Offset
		}
		byOffset[u.AbbrevOffset] = out
		tables = append(tables, out)
	}
	env.Logger.Debug().
		Int("tables", len(tables)).
		Int64("parses", s.AbbrevParses()).
		Msg("Read abbreviation tables")

	switch env.OutputFormat() {
	case helpers.FormatText:
		if err := writeAbbrevText(env, tables); err != nil {
			return err
		}
	case helpers.FormatCSV:
		rows := []abbrevRow{}
		for _, t := range tables {
			for _, a := range t.Entries {
				rows = append(rows, abbrevRow{Table: t.Offset, Code: a.Code, Tag: a.Tag, Children: a.Children, Attrs: len(a.Specs)})
			}
		}
		if err := env.Render(rows); err != nil {
			return err
		}
	default:
		if err := env.Render(tables); err != nil {
			return err
		}
	}
	return scanErr
}

func newAbbrevTableOut(t *dwarf.AbbrevTable) *abbrevTableOut {
	out := &abbrevTableOut{
		Offset:      hexOffset(t.Offset),
		Size:        t.Size,
		Fingerprint: fmt.Sprintf("%016x", t.Fingerprint),
		Entries:     make([]abbrevOut, 0, t.Len()),
	}
	for _, code := range t.Codes() {
		a, _ := t.Lookup(code)
		e := abbrevOut{Code: a.Code, Tag: a.Tag.String(), Children: a.Children, Specs: []abbrevSpecOut{}}
		for _, sp := range a.Specs {
			spec := abbrevSpecOut{Attr: sp.Attr.String(), Form: sp.Form.String()}
			if sp.Form == dwarf.FormImplicitConst {
				c := sp.ImplicitConst
				spec.ImplicitConst = &c
			}
			e.Specs = append(e.Specs, spec)
		}
		out.Entries = append(out.Entries, e)
	}
	return out
}

func writeAbbrevText(env *helpers.Env, tables []*abbrevTableOut) error {
	st := env.Styles
	var buf strings.Builder
	for _, t := range tables {
		head := fmt.Sprintf("table at %s: %d entries, %d bytes, fingerprint %s, units %s",
			t.Offset, len(t.Entries), t.Size, t.Fingerprint, strings.Join(t.Units, " "))
		buf.WriteString(st.Header(head) + "\n")
		if t.SameAs != "" {
			buf.WriteString(st.Warn("  same bytes as table at "+t.SameAs) + "\n")
		}
		for _, a := range t.Entries {
			children := "no children"
			if a.Children {
				children = "children"
			}
			fmt.Fprintf(&buf, "  [%d] %s %s\n", a.Code, st.Tag(a.Tag), children)
			for _, sp := range a.Specs {
				fmt.Fprintf(&buf, "      %s %s", st.Attr(fmt.Sprintf("%-24s", sp.Attr)), sp.Form)
				if sp.ImplicitConst != nil {
					fmt.Fprintf(&buf, " (%d)", *sp.ImplicitConst)
				}
				buf.WriteString("\n")
			}
		}
		buf.WriteString("\n")
	}
	_, err := fmt.Fprint(env.Out, buf.String())
	return err
}
