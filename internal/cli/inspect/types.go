package inspect

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/dwarfkit/internal/cli/helpers"
	"github.com/coral-mesh/dwarfkit/internal/errors"
	"github.com/coral-mesh/dwarfkit/internal/typeindex"
)

type typesOptions struct {
	output   string
	maxDepth int
	timeout  time.Duration
}

// NewTypesCmd creates the types command.
func NewTypesCmd(env *helpers.Env) *cobra.Command {
	var opts typesOptions

	cmd := &cobra.Command{
		Use:   "types <object-file>",
		Short: "Index the types declared in each source file",
		Long: `Build a JSON object mapping each source file to the classes, structs,
unions, enums and namespaces declared in it, with their declaration lines.
Nested declarations are qualified with "::".

Units that fail to decode are reported and skipped.

Examples:
  dwarfkit types ./app
  dwarfkit types ./app --output types.json --timeout 30s`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("max-depth") {
				opts.maxDepth = env.Config.Index.MaxDepth
			}
			if !cmd.Flags().Changed("timeout") {
				opts.timeout = env.Config.Index.Timeout
			}
			return runTypes(cmd.Context(), env, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.output, "output", "-", "Write the index to this file (- for stdout)")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", 0, "Deepest namespace or type nesting indexed (0 = unlimited)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Give up after this long (0 = no limit)")
	return cmd
}

func runTypes(ctx context.Context, env *helpers.Env, path string, opts typesOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	s, err := env.Open(path)
	if err != nil {
		return err
	}
	defer errors.DeferClose(env.Logger, s, "Failed to close object file")

	start := time.Now()
	idx, err := typeindex.Build(ctx, s, typeindex.Options{Logger: env.Logger, MaxDepth: opts.maxDepth})
	if err != nil {
		return fmt.Errorf("failed to index types: %w", err)
	}
	if idx.Skipped > 0 {
		env.Logger.Warn().Int("skipped", idx.Skipped).Msg("Some units could not be indexed")
	}
	env.Logger.Info().
		Int("units", idx.Units).
		Int("files", len(idx.Files())).
		Dur("elapsed", time.Since(start)).
		Msg("Indexed types")

	var w io.Writer = env.Out
	if opts.output != "-" && opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", opts.output, err)
		}
		defer errors.DeferClose(env.Logger, f, "Failed to close index file")
		w = f
	}
	return idx.WriteJSON(w)
}
