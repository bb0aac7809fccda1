package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tetratelabs/wazero/api"
)

func init() {
	rootCmd.AddCommand(newRunCmd())
}

func newRunCmd() *cobra.Command {
	var call string

	cmd := &cobra.Command{
		Use:   "run <specifier> [args...]",
		Short: "Load an installed plugin, optionally calling an exported function",
		Long: `Load an installed plugin through the WASM runtime. The specifier is a
plugin name, optionally followed by a path inside the plugin
("@team/fetch/lib/util"). With --call, the named exported function is
invoked with the given integer arguments and its results printed.`,
		Example: `  mortise run greeter
  mortise run calc --call add 2 40`,
		Args: cobra.MinimumNArgs(1),
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
			value, err := ctx.Container.Manager().Require(ctx.Context, args[0])
			if err != nil {
				return err
			}

			if call == "" {
				fmt.Printf("loaded %s\n", args[0])
				return nil
			}

			mod, ok := value.(api.Module)
			if !ok {
				return fmt.Errorf("plugin %s did not load as a callable module", args[0])
			}
			fn := mod.ExportedFunction(call)
			if fn == nil {
				return fmt.Errorf("plugin %s exports no function %q", args[0], call)
			}

			params := make([]uint64, 0, len(args)-1)
			for _, raw := range args[1:] {
				n, err := strconv.ParseUint(raw, 10, 64)
				if err != nil {
					return fmt.Errorf("argument %q is not an integer: %w", raw, err)
				}
				params = append(params, n)
			}

			results, err := fn.Call(ctx.Context, params...)
			if err != nil {
				return fmt.Errorf("call to %s failed: %w", call, err)
			}

			out := make([]string, len(results))
			for i, r := range results {
				out[i] = strconv.FormatUint(r, 10)
			}
			fmt.Println(strings.Join(out, " "))
			return nil
		}),
	}

	cmd.Flags().StringVar(&call, "call", "", "Exported function to invoke after loading")

	return cmd
}
