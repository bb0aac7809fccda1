package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "info <name>",
		Short:   "Show details of an installed plugin",
		Example: `  mortise info fetch`,
		Args:    cobra.ExactArgs(1),
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
			d, err := ctx.Container.Manager().Info(args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Name:\t%s\n", d.Name)
			fmt.Fprintf(w, "Version:\t%s\n", d.VersionString())
			fmt.Fprintf(w, "Location:\t%s\n", d.Location)
			fmt.Fprintf(w, "Entry:\t%s\n", d.EntryPath)
			if len(d.Dependencies) > 0 {
				names := make([]string, 0, len(d.Dependencies))
				for name := range d.Dependencies {
					names = append(names, name)
				}
				sort.Strings(names)
				fmt.Fprintln(w, "Dependencies:")
				for _, name := range names {
					fmt.Fprintf(w, "  %s:\t%s\n", name, d.Dependencies[name])
				}
			}
			return w.Flush()
		}),
	}
}
