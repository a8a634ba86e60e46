// Package cmd implements the snappurge command line
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"snappurge/config"
)

// Exit codes
const (
	exitOK        = 0
	exitError     = 1
	exitCancelled = 130
)

// exitCodeError carries a specific process exit code out of a command
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitCodeError) Unwrap() error {
	return e.err
}

// commandContext carries flags and lazily loaded state shared by subcommands
type commandContext struct {
	configFlag string
	verbose    bool

	cfg        *config.Config
	configPath string
	configSeen bool
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, resolved, exists, err := config.Load(c.configFlag)
	if err != nil {
		return nil, err
	}
	if c.verbose {
		cfg.Logging.Level = "debug"
	}
	c.cfg, c.configPath, c.configSeen = cfg, resolved, exists
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "snappurge",
		Short:         "Find duplicate and near-duplicate images",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["skipConfigLoad"] == "true" {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&ctx.verbose, "verbose", "v", false, "Log every processed file")

	rootCmd.AddCommand(newScanCommand(ctx))
	rootCmd.AddCommand(newLevelsCommand())
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}

// Execute runs the command line and returns the process exit code
func Execute() int {
	return run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	var exitErr *exitCodeError
	if errors.As(err, &exitErr) {
		if exitErr.err != nil {
			fmt.Fprintln(stderr, "Error:", exitErr.err)
		}
		return exitErr.code
	}
	fmt.Fprintln(stderr, "Error:", err)
	return exitError
}
