package cli

import (
	"errors"
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowc/pkg/config"
)

// analyzerBinary is the external type checker run by "flowc analyze".
const analyzerBinary = "luau-lsp"

// analyzeArgs builds the luau-lsp command line: every definition file
// followed by every flow entry path, relative to the project directory.
func analyzeArgs(cfg *config.Config) []string {
	args := []string{"analyze"}
	for _, def := range cfg.DefinitionFiles() {
		args = append(args, "--definitions", def)
	}
	return append(args, cfg.FlowPaths()...)
}

// analyzeCommand type-checks every flow with luau-lsp.
func (c *CLI) analyzeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Type-check every flow with luau-lsp",
		Long: `Run "luau-lsp analyze" over every flow entry point, passing the
definition files listed in [settings].definition_files.

luau-lsp must be on PATH: https://github.com/JohnnyMorganz/luau-lsp/releases`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bin, err := exec.LookPath(analyzerBinary)
			if err != nil {
				return fmt.Errorf("%s is not installed; get it from https://github.com/JohnnyMorganz/luau-lsp/releases", analyzerBinary)
			}
			cfg, err := c.loadProject()
			if err != nil {
				return err
			}

			argv := analyzeArgs(cfg)
			c.Logger.Debug("running analyzer", "bin", bin, "args", argv)
			run := exec.CommandContext(cmd.Context(), bin, argv...)
			run.Dir = cfg.Dir()
			run.Stdout = cmd.OutOrStdout()
			run.Stderr = cmd.ErrOrStderr()

			if err := run.Run(); err != nil {
				var exitErr *exec.ExitError
				if errors.As(err, &exitErr) {
					return fmt.Errorf("%s analysis failed (exit status %d)", analyzerBinary, exitErr.ExitCode())
				}
				return err
			}
			printSuccess("Analyzed %d flows", len(cfg.FlowPaths()))
			return nil
		},
	}
}
