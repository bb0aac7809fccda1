package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/expr-lang/expr"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/mortise-dev/mortise/internal/application/dto"
)

func init() {
	rootCmd.AddCommand(newListCmd())
}

func newListCmd() *cobra.Command {
	var (
		output string
		filter string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed plugins",
		Long:  `List the installed plugins in install order.`,
		Example: `  mortise list
  mortise list --output json
  mortise list --filter 'Version startsWith "2."'
  mortise list --filter 'len(Dependencies) > 0'`,
		Args: cobra.NoArgs,
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
			summaries := make([]dto.PluginSummary, 0)
			for _, d := range ctx.Container.Manager().List() {
				summaries = append(summaries, dto.NewPluginSummary(d))
			}

			if filter != "" {
				filtered, err := filterSummaries(summaries, filter)
				if err != nil {
					return err
				}
				summaries = filtered
			}

			return renderSummaries(summaries, output)
		}),
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, json, yaml")
	cmd.Flags().StringVar(&filter, "filter", "", "Expression filter over Name, Version, Dependencies")

	return cmd
}

// filterSummaries keeps the summaries for which the compiled expression is
// true. The expression sees one summary's fields as its environment.
func filterSummaries(summaries []dto.PluginSummary, filter string) ([]dto.PluginSummary, error) {
	program, err := expr.Compile(filter, expr.Env(dto.PluginSummary{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}

	var out []dto.PluginSummary
	for _, s := range summaries {
		keep, err := expr.Run(program, s)
		if err != nil {
			return nil, fmt.Errorf("filter failed on %s: %w", s.Name, err)
		}
		if keep.(bool) {
			out = append(out, s)
		}
	}
	return out, nil
}

func renderSummaries(summaries []dto.PluginSummary, output string) error {
	switch output {
	case "table":
		if len(summaries) == 0 {
			fmt.Println("No plugins installed.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "NAME\tVERSION\tDEPENDENCIES\tLOCATION")
		for _, s := range summaries {
			deps := make([]string, 0, len(s.Dependencies))
			for name, spec := range s.Dependencies {
				deps = append(deps, name+"@"+spec)
			}
			sort.Strings(deps)
			depCol := strings.Join(deps, ", ")
			if depCol == "" {
				depCol = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Name, s.Version, depCol, s.Location)
		}
		return w.Flush()

	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(summaries)

	case "yaml":
		data, err := yaml.Marshal(summaries)
		if err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		_, err = os.Stdout.Write(data)
		return err

	default:
		return fmt.Errorf("invalid output format %q (valid: table, json, yaml)", output)
	}
}
