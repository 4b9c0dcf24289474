package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Backend    string // overrides the configured backend when set
	Database   string // overrides the configured path when set
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the hashview CLI.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

func newRootCommand() (*cobra.Command, *RootOptions) {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "hashview",
		Short: "hashview - selective reads over a hash store",
		Long: `Inspect and modify hash records through a whitelist-restricted view.

Bulk reads (hgetall, session show) only return whitelisted fields. Every
other operation reaches the store unchanged.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "store backend (sqlite|bolt)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the store file")

	// Add subcommands
	cmd.AddCommand(NewHSetCommand(opts))
	cmd.AddCommand(NewHGetCommand(opts))
	cmd.AddCommand(NewHGetAllCommand(opts))
	cmd.AddCommand(NewHDelCommand(opts))
	cmd.AddCommand(NewKeysCommand(opts))
	cmd.AddCommand(NewExpireCommand(opts))
	cmd.AddCommand(NewTTLCommand(opts))
	cmd.AddCommand(NewWhitelistCommand(opts))
	cmd.AddCommand(NewSessionCommand(opts))

	return cmd, opts
}

// Execute runs the CLI with args and returns the process exit code. Errors
// are reported on stderr, or as a JSON envelope on stdout in json format.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd, opts := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	formatter := &OutputFormatter{Format: "text", Writer: stderr, Verbose: opts.Verbose}
	if opts.Format == "json" {
		formatter.Format = "json"
		formatter.Writer = stdout
	}
	_ = formatter.Error(ErrorCode(err), err.Error(), nil)
	return GetExitCode(err)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// usageArgs marks positional argument errors as command errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return WrapExitError(ExitCommandError, "invalid arguments", err)
		}
		return nil
	}
}
