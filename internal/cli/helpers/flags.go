package helpers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// AddFormatFlag adds the persistent --format/-o flag to a command.
func AddFormatFlag(cmd *cobra.Command, formatVar *string) {
	formatNames := make([]string, len(SupportedFormats))
	for i, f := range SupportedFormats {
		formatNames[i] = string(f)
	}

	description := fmt.Sprintf("Output format (%s)", strings.Join(formatNames, ", "))
	cmd.PersistentFlags().StringVarP(formatVar, "format", "o", "", description)

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return formatNames, cobra.ShellCompDirectiveNoFileComp
	})
}

// AddUnitFlag adds a --unit/-u flag selecting one unit by header offset.
func AddUnitFlag(cmd *cobra.Command, unitVar *string) {
	cmd.Flags().StringVarP(unitVar, "unit", "u", "", "Only the unit whose header is at this .debug_info offset (decimal or 0x hex)")
}

// ValidateFormat checks if the format is in the supported list.
func ValidateFormat(format string, supported []OutputFormat) error {
	for _, s := range supported {
		if format == string(s) {
			return nil
		}
	}

	supportedNames := make([]string, len(supported))
	for i, s := range supported {
		supportedNames[i] = string(s)
	}

	return fmt.Errorf("unsupported format %q, must be one of: %s",
		format, strings.Join(supportedNames, ", "))
}

// ParseOffset parses a section offset written in decimal, 0x hex or 0o
// octal.
func ParseOffset(s string) (uint64, error) {
	off, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid offset %q", s)
	}
	return off, nil
}
