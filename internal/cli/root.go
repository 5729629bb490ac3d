package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/dwarfkit/internal/cli/helpers"
	"github.com/coral-mesh/dwarfkit/internal/cli/inspect"
	"github.com/coral-mesh/dwarfkit/pkg/version"
)

// NewRootCmd builds the dwarfkit command tree.
func NewRootCmd() *cobra.Command {
	env := &helpers.Env{}

	rootCmd := &cobra.Command{
		Use:   "dwarfkit",
		Short: "dwarfkit - read DWARF debug information from object files",
		Long: `Decode the DWARF debugging information (versions 2 to 5) carried by ELF,
Mach-O and PE object files.

Defaults are read from ~/.dwarfkit/config.yaml, where $DWARFKIT_CONFIG
replaces the home directory when set. DWARFKIT_* environment variables
override the file and flags override both.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return env.Init(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&env.ConfigPath, "config", "", "Config file (default ~/.dwarfkit/config.yaml)")
	pf.StringVar(&env.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	pf.BoolVar(&env.Pretty, "pretty", false, "Human-readable log output")
	pf.StringVar(&env.Color, "color", "", "Colorize output (auto, always, never)")
	helpers.AddFormatFlag(rootCmd, &env.Format)

	rootCmd.AddCommand(inspect.NewUnitsCmd(env))
	rootCmd.AddCommand(inspect.NewTreeCmd(env))
	rootCmd.AddCommand(inspect.NewLinesCmd(env))
	rootCmd.AddCommand(inspect.NewAbbrevCmd(env))
	rootCmd.AddCommand(inspect.NewTypesCmd(env))
	rootCmd.AddCommand(inspect.NewAddrCmd(env))
	rootCmd.AddCommand(newVersionCmd(env))

	return rootCmd
}

func newVersionCmd(env *helpers.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if env.OutputFormat() != helpers.FormatText {
				return env.Render([]version.Info{info})
			}
			_, err := fmt.Fprintf(env.Out, "dwarfkit version %s\nGit commit: %s\nBuild date: %s\nGo version: %s\n",
				info.Version, info.GitCommit, info.BuildDate, info.GoVersion)
			return err
		},
	}
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
