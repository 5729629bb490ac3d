package inspect

import (
	stderrors "errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/dwarfkit/internal/cli/helpers"
	"github.com/coral-mesh/dwarfkit/internal/errors"
	"github.com/coral-mesh/dwarfkit/internal/symbolize"
	"github.com/coral-mesh/dwarfkit/pkg/dwarf"
)

type addrRow struct {
	Address  string `header:"ADDRESS" json:"address"`
	Function string `header:"FUNCTION" json:"function"`
	Inlined  bool   `json:"inlined,omitempty"`
	Location string `header:"LOCATION" json:"location"`
	File     string `json:"file,omitempty"`
	Line     uint64 `json:"line,omitempty"`
	Column   uint64 `json:"column,omitempty"`
}

// NewAddrCmd creates the addr command.
func NewAddrCmd(env *helpers.Env) *cobra.Command {
	var bias string

	cmd := &cobra.Command{
		Use:   "addr <object-file> <address>...",
		Short: "Resolve code addresses to functions and source lines",
		Long: `Resolve each address to the innermost function covering it (inlined
calls included) and the line-table row in effect there.

Examples:
  dwarfkit addr ./app 0x401136
  dwarfkit addr ./app 0x55555555a136 --bias 0x555555554000`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := helpers.ParseOffset(bias)
			if err != nil {
				return fmt.Errorf("--bias: %w", err)
			}
			return runAddr(env, args[0], args[1:], b)
		},
	}

	cmd.Flags().StringVar(&bias, "bias", "0", "Load bias subtracted from each address")
	return cmd
}

func runAddr(env *helpers.Env, path string, addrs []string, bias uint64) error {
	pcs := make([]uint64, len(addrs))
	for i, a := range addrs {
		pc, err := helpers.ParseOffset(a)
		if err != nil {
			return err
		}
		pcs[i] = pc
	}

	s, err := env.Open(path)
	if err != nil {
		return err
	}
	defer errors.DeferClose(env.Logger, s, "Failed to close object file")

	z := symbolize.New(s, symbolize.Options{Logger: env.Logger, Bias: bias})
	rows := make([]addrRow, 0, len(pcs))
	for _, pc := range pcs {
		row := addrRow{Address: fmt.Sprintf("0x%x", pc), Function: "??", Location: "??"}
		sym, err := z.Resolve(pc)
		switch {
		case stderrors.Is(err, dwarf.ErrNotFound):
			env.Logger.Debug().Uint64("address", pc).Msg("Address not covered by debug info")
		case err != nil:
			return err
		default:
			if sym.Function != "" {
				row.Function = sym.Function
			}
			row.Inlined = sym.Inlined
			row.File, row.Line, row.Column = sym.File, sym.Line, sym.Column
			if sym.File != "" {
				row.Location = fmt.Sprintf("%s:%d", sym.File, sym.Line)
			}
		}
		rows = append(rows, row)
	}
	return env.Render(rows)
}
