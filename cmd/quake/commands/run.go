package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.trai.ch/quake/internal/app"
	"go.trai.ch/quake/internal/core/domain"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <target> [args...]",
		Short: "Build a target and its dependencies",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Help()
				return nil
			}

			script, _ := cmd.Flags().GetString("script")
			jobs, _ := cmd.Flags().GetInt("jobs")
			failFast, _ := cmd.Flags().GetBool("fail-fast")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			target, targetArgs := args[0], args[1:]

			if dryRun {
				tree, err := c.app.Plan(cmd.Context(), script, target, targetArgs)
				if err != nil {
					return err
				}
				renderTree(cmd.OutOrStdout(), tree, 0)
				return nil
			}

			report, err := c.app.Invoke(cmd.Context(), script, target, targetArgs, app.Options{
				Parallelism: jobs,
				FailFast:    failFast,
			})
			if report != nil {
				fmt.Fprintln(cmd.OutOrStdout(), report.Summary())
			}
			return err
		},
	}
	cmd.Flags().IntP("jobs", "j", 0, "Maximum concurrent tasks (0 = number of CPUs)")
	cmd.Flags().Bool("fail-fast", false, "Stop dispatching new tasks after the first failure")
	cmd.Flags().Bool("dry-run", false, "Show what would run without executing anything")
	return cmd
}

// renderTree prints the annotated run tree, one instance per line.
// Deduplicated dependencies appear once, at their first reference.
func renderTree(w io.Writer, node *domain.RunNode, depth int) {
	fmt.Fprintf(w, "%s%s [%s]\n", strings.Repeat("  ", depth), node.Instance.ID(), node.Instance.State())
	for _, child := range node.Children {
		renderTree(w, child, depth+1)
	}
}
