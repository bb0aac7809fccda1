package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newQueryCmd())
}

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <name>[@<spec>] | <owner>/<repo>[#ref]",
		Short: "Resolve a package against its source without installing it",
		Example: `  mortise query fetch
  mortise query fetch@^2.0.0
  mortise query acme/fetch#v1.2.0`,
		Args: cobra.ExactArgs(1),
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
			name, spec := args[0], ""
			if isRepoRefArg(args[0]) {
				// The manager routes repo refs through the versionSpec slot.
				name, spec = "", args[0]
			} else {
				name, spec = splitSpec(args[0])
			}

			info, err := ctx.Container.Manager().QueryPackage(ctx.Context, name, spec)
			if err != nil {
				return err
			}

			fmt.Printf("%s@%s (%s)\n", info.Name, info.VersionString(), info.Origin)
			if info.ArchiveURL != "" {
				fmt.Printf("archive: %s\n", info.ArchiveURL)
			}
			return nil
		}),
	}
}
