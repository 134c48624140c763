package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/pam/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show pam version information",
		Long:  `Display version, build time, commit hash, and platform information for the pam binary.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOutput, _ := cmd.Flags().GetBool("json")
			info := version.Get()
			out := cmd.OutOrStdout()

			if jsonOutput {
				data, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			fmt.Fprintln(out, info.String())
			fmt.Fprintf(out, "Platform: %s\n", info.Platform)
			fmt.Fprintf(out, "Go: %s\n", info.GoVersion)
			return nil
		},
	}
}
