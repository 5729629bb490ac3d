package inspect

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/dwarfkit/internal/cli/helpers"
	"github.com/coral-mesh/dwarfkit/internal/errors"
	"github.com/coral-mesh/dwarfkit/pkg/dwarf"
)

type lineRow struct {
	Unit          string `header:"UNIT" json:"unit"`
	Address       string `header:"ADDRESS" json:"address"`
	File          string `header:"FILE" json:"file"`
	Line          uint64 `header:"LINE" json:"line"`
	Column        uint64 `header:"COL" json:"column"`
	Flags         string `header:"FLAGS" json:"flags"`
	OpIndex       uint64 `json:"op_index,omitempty"`
	Discriminator uint64 `json:"discriminator,omitempty"`
}

// NewLinesCmd creates the lines command.
func NewLinesCmd(env *helpers.Env) *cobra.Command {
	var (
		unit  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "lines <object-file>",
		Short: "Print the line-number table of each unit",
		Long: `Run the line-number program named by each unit's DW_AT_stmt_list and
print the resulting rows. Units without a line program are skipped.

Examples:
  dwarfkit lines ./app --limit 20
  dwarfkit lines ./app --unit 0x0 -o csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("limit") {
				limit = env.Config.Lines.Limit
			}
			if limit < 0 {
				return fmt.Errorf("--limit must be >= 0")
			}
			return runLines(env, args[0], unit, limit)
		},
	}

	helpers.AddUnitFlag(cmd, &unit)
	cmd.Flags().IntVar(&limit, "limit", 0, "Stop after this many rows (0 = unlimited)")
	return cmd
}

func runLines(env *helpers.Env, path, unit string, limit int) error {
	s, err := env.Open(path)
	if err != nil {
		return err
	}
	defer errors.DeferClose(env.Logger, s, "Failed to close object file")

	rows := []lineRow{}
	var scanErr error
units:
	for u, err := range helpers.SelectUnits(s, unit) {
		if err != nil {
			scanErr = err
			break
		}
		p, err := u.LineProgram()
		if stderrors.Is(err, dwarf.ErrNotFound) {
			env.Logger.Debug().Uint64("unit", u.Offset).Msg("Unit has no line program")
			continue
		}
		if err != nil {
			scanErr = err
			break
		}

		names := map[uint64]string{}
		for {
			if limit > 0 && len(rows) >= limit {
				break units
			}
			r, err := p.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				scanErr = err
				break units
			}
			rows = append(rows, newLineRow(u, p, r, names))
		}
	}

	if err := env.Render(rows); err != nil {
		return err
	}
	return scanErr
}

func newLineRow(u *dwarf.Unit, p *dwarf.LineProgram, r dwarf.LineRow, names map[uint64]string) lineRow {
	name, ok := names[r.File]
	if !ok {
		var err error
		if name, err = p.FileName(r.File); err != nil {
			name = fmt.Sprintf("#%d", r.File)
		} else {
			names[r.File] = name
		}
	}

	return lineRow{
		Unit:          hexOffset(u.Offset),
		Address:       fmt.Sprintf("0x%x", r.Address),
		File:          name,
		Line:          r.Line,
		Column:        r.Column,
		Flags:         lineFlags(r),
		OpIndex:       r.OpIndex,
		Discriminator: r.Discriminator,
	}
}

func lineFlags(r dwarf.LineRow) string {
	var flags []string
	if r.IsStmt {
		flags = append(flags, "stmt")
	}
	if r.BasicBlock {
		flags = append(flags, "bb")
	}
	if r.PrologueEnd {
		flags = append(flags, "prologue_end")
	}
	if r.EpilogueBegin {
		flags = append(flags, "epilogue_begin")
	}
	if r.EndSequence {
		flags = append(flags, "end_sequence")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}
