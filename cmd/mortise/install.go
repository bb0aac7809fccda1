package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mortise-dev/mortise/internal/application/dto"
	"github.com/mortise-dev/mortise/internal/domain/values"
)

// InstallOptions holds the install command's flags.
type InstallOptions struct {
	path        string
	codeFile    string
	codeVersion string
	force       bool
}

func init() {
	rootCmd.AddCommand(newInstallCmd())
}

func newInstallCmd() *cobra.Command {
	opts := &InstallOptions{}

	cmd := &cobra.Command{
		Use:   "install [<name>[@<spec>] | <owner>/<repo>[#ref]]",
		Short: "Install a plugin package into the store",
		Long: `Install a plugin package and its declared dependencies.

The argument is a registry package name with an optional version, tag or
range after @, or an owner/repo[#ref] repository reference. With --path the
package is installed from a local directory instead; with --code the given
file's contents are installed verbatim under the argument name.`,
		Example: `  mortise install fetch
  mortise install fetch@^2.0.0
  mortise install @team/fetch@beta
  mortise install acme/fetch#v1.2.0
  mortise install --path ./my-plugin --force
  mortise install greeter --code ./greeter.wasm --version 1.0.0`,
		Args: cobra.MaximumNArgs(1),
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
			report, err := runInstall(ctx, opts, args)
			if err != nil {
				return err
			}

			d := report.Descriptor
			fmt.Printf("%s %s@%s\n", report.Outcome, d.Name, d.VersionString())
			return nil
		}),
	}

	cmd.Flags().StringVar(&opts.path, "path", "", "Install from a local directory")
	cmd.Flags().StringVar(&opts.codeFile, "code", "", "Install the given file's contents as the plugin code")
	cmd.Flags().StringVar(&opts.codeVersion, "version", "", "Version for --code installs (empty means unpinned)")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "Re-materialize even when already downloaded")

	return cmd
}

func runInstall(ctx *CommandContext, opts *InstallOptions, args []string) (dto.InstallReport, error) {
	manager := ctx.Container.Manager()

	switch {
	case opts.path != "":
		return manager.InstallFromPath(ctx.Context, opts.path, dto.InstallOptions{Force: opts.force})

	case opts.codeFile != "":
		if len(args) == 0 {
			return dto.InstallReport{}, fmt.Errorf("--code requires a plugin name argument")
		}
		code, err := os.ReadFile(opts.codeFile) //nolint:gosec // user-supplied install input
		if err != nil {
			return dto.InstallReport{}, fmt.Errorf("failed to read %s: %w", opts.codeFile, err)
		}
		return manager.InstallFromCode(ctx.Context, args[0], code, opts.codeVersion)

	default:
		if len(args) == 0 {
			return dto.InstallReport{}, fmt.Errorf("a package name or repository reference is required")
		}
		if isRepoRefArg(args[0]) {
			return manager.InstallFromGithub(ctx.Context, args[0])
		}
		name, spec := splitSpec(args[0])
		return manager.Install(ctx.Context, name, spec)
	}
}

// isRepoRefArg reports whether the install argument is a repository
// reference rather than a registry name. Scoped registry names also
// contain a slash, so the leading @ disambiguates.
func isRepoRefArg(arg string) bool {
	if strings.HasPrefix(arg, "@") {
		return false
	}
	return strings.Contains(arg, "#") ||
		(strings.Contains(arg, "/") && values.IsRepoRef(arg))
}

// splitSpec splits "name@spec" at the last @, keeping a scoped name's
// leading @ intact.
func splitSpec(arg string) (string, string) {
	if i := strings.LastIndex(arg, "@"); i > 0 {
		return arg[:i], arg[i+1:]
	}
	return arg, ""
}
