package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// Build metadata, set with -ldflags "-X pdmtracker/internal/cli.Version=...".
var (
	Version    = "dev"
	CommitHash string
	BuildDate  string
)

// BuildVersionString describes the binary.
func BuildVersionString() string {
	return fmt.Sprintf("pdmtracker %s %s/%s\n\nBuild Date: %s\nCommit: %s\nBuilt with: %s",
		Version, runtime.GOOS, runtime.GOARCH, BuildDate, CommitHash, runtime.Version())
}

func dependencyList() []string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	deps := make([]string, 0, len(info.Deps))
	for _, dep := range info.Deps {
		deps = append(deps, fmt.Sprintf("%s=%q", dep.Path, dep.Version))
	}
	sort.Strings(deps)
	return deps
}

func versionCommand() *cobra.Command {
	var deps, short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(out, Version)
			} else {
				fmt.Fprintln(out, BuildVersionString())
			}
			if deps {
				fmt.Fprintf(out, "\n%s\n", strings.Join(dependencyList(), "\n"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&deps, "deps", "d", false, "print dependencies")
	cmd.Flags().BoolVarP(&short, "short", "s", false, "only print version number")
	return cmd
}
