package inspect

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/dwarfkit/internal/cli/helpers"
	"github.com/coral-mesh/dwarfkit/internal/errors"
	"github.com/coral-mesh/dwarfkit/pkg/dwarf"
)

type unitRow struct {
	Offset    string `header:"OFFSET" json:"offset"`
	Section   string `header:"SECTION" json:"section"`
	Version   uint16 `header:"VERSION" json:"version"`
	Type      string `header:"TYPE" json:"type"`
	Format    string `header:"FORMAT" json:"format"`
	AddrSize  uint8  `header:"ADDR" json:"addr_size"`
	Length    uint64 `header:"LENGTH" json:"length"`
	Abbrev    string `header:"ABBREV" json:"abbrev_offset"`
	Name      string `header:"NAME" json:"name"`
	Signature string `json:"signature,omitempty"`
}

// NewUnitsCmd creates the units command.
func NewUnitsCmd(env *helpers.Env) *cobra.Command {
	var withTypes bool

	cmd := &cobra.Command{
		Use:   "units <object-file>",
		Short: "List the units of an object file",
		Long: `List every unit header in .debug_info, in section order.

Examples:
  dwarfkit units ./app
  dwarfkit units ./app --types -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnits(env, args[0], withTypes)
		},
	}

	cmd.Flags().BoolVar(&withTypes, "types", false, "Also list DWARF 4 type units from .debug_types")
	return cmd
}

func runUnits(env *helpers.Env, path string, withTypes bool) error {
	s, err := env.Open(path)
	if err != nil {
		return err
	}
	defer errors.DeferClose(env.Logger, s, "Failed to close object file")

	readers := []*dwarf.UnitReader{s.Units()}
	if withTypes && s.HasSection(dwarf.SectionTypes) {
		readers = append(readers, s.TypeUnits())
	}

	rows := []unitRow{}
	var scanErr error
scan:
	for _, r := range readers {
		for u, err := range r.All() {
			if err != nil {
				scanErr = err
				break scan
			}
			rows = append(rows, newUnitRow(env, u))
		}
	}

	if err := env.Render(rows); err != nil {
		return err
	}
	return scanErr
}

func newUnitRow(env *helpers.Env, u *dwarf.Unit) unitRow {
	row := unitRow{
		Offset:   hexOffset(u.Offset),
		Section:  u.Section,
		Version:  u.Version,
		Type:     u.Type.String(),
		Format:   unitFormat(u),
		AddrSize: u.AddrSize,
		Length:   u.Length,
		Abbrev:   hexOffset(u.AbbrevOffset),
	}
	if u.Signature != 0 {
		row.Signature = fmt.Sprintf("0x%016x", u.Signature)
	}

	name, err := u.Name()
	if err != nil {
		env.Logger.Warn().Err(err).Uint64("offset", u.Offset).Msg("Failed to read unit name")
		name = "?"
	}
	row.Name = name
	return row
}
