package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"snappurge/engine"
)

func newLevelsCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:         "levels",
		Short:       "Show how strictness maps to the matching distance",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			levels := engine.Levels()
			if jsonOutput {
				return writeJSON(cmd, levels)
			}

			fmt.Fprintln(cmd.OutOrStdout(), levelsTable(levels))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
