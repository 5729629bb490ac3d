package helpers

import (
	"fmt"
	"io"
	"iter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/coral-mesh/dwarfkit/internal/config"
	"github.com/coral-mesh/dwarfkit/internal/logging"
	"github.com/coral-mesh/dwarfkit/pkg/dwarf"
)

// Env is the state shared by every subcommand. The root command binds the
// global flags to it and calls Init before any subcommand runs.
type Env struct {
	ConfigPath string
	LogLevel   string
	Pretty     bool
	Format     string
	Color      string

	Config *config.Config
	Logger zerolog.Logger
	Styles Styles
	Out    io.Writer
}

// Init loads the config file, applies flag overrides and builds the logger.
func (e *Env) Init(cmd *cobra.Command) error {
	loader := config.NewLoader()
	var (
		cfg *config.Config
		err error
	)
	if e.ConfigPath != "" {
		cfg, err = loader.LoadFile(e.ConfigPath)
	} else {
		cfg, err = loader.Load()
	}
	if err != nil {
		return err
	}

	e.applyFlags(cmd.Flags(), cfg)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	e.Config = cfg

	e.Out = cmd.OutOrStdout()
	e.Styles = NewStyles(e.Out, ColorEnabled(cfg.Output.Color, e.Out))

	errOut := cmd.ErrOrStderr()
	e.Logger = logging.NewWithComponent(logging.Config{
		Level:   cfg.Log.Level,
		Pretty:  cfg.Log.Pretty,
		NoColor: !ColorEnabled(cfg.Output.Color, errOut),
		Output:  errOut,
	}, "cli")
	e.Logger.Debug().Str("config", loader.ConfigPath()).Msg("Loaded configuration")
	return nil
}

// applyFlags overrides config values with the flags set on the command line.
func (e *Env) applyFlags(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("log-level") {
		cfg.Log.Level = e.LogLevel
	}
	if fs.Changed("pretty") {
		cfg.Log.Pretty = e.Pretty
	}
	if fs.Changed("format") {
		cfg.Output.Format = e.Format
	}
	if fs.Changed("color") {
		cfg.Output.Color = e.Color
	}
}

// OutputFormat returns the effective output format.
func (e *Env) OutputFormat() OutputFormat {
	return OutputFormat(e.Config.Output.Format)
}

// Render writes rows in the effective output format.
func (e *Env) Render(rows interface{}) error {
	f, err := NewFormatter(e.OutputFormat())
	if err != nil {
		return err
	}
	return f.Format(rows, e.Out)
}

// Open opens an object file with the command logger attached.
func (e *Env) Open(path string) (*dwarf.Session, error) {
	s, err := dwarf.Open(path, dwarf.WithLogger(e.Logger))
	if err != nil {
		return nil, err
	}
	e.Logger.Debug().
		Str("path", path).
		Str("session", s.ID()).
		Str("container", string(s.Container())).
		Msg("Opened object file")
	return s, nil
}

// SelectUnits yields the .debug_info unit covering unitFlag, or every unit
// when unitFlag is empty.
func SelectUnits(s *dwarf.Session, unitFlag string) iter.Seq2[*dwarf.Unit, error] {
	if unitFlag == "" {
		return s.Units().All()
	}
	return func(yield func(*dwarf.Unit, error) bool) {
		off, err := ParseOffset(unitFlag)
		if err != nil {
			yield(nil, err)
			return
		}
		u, err := s.UnitContaining(off)
		yield(u, err)
	}
}
