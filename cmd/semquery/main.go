// Command semquery is the thin CLI surface spec.md §6 calls for: a command
// to run a reconciliation task, a command to replay an execution id, and a
// command to verify an evidence record. Exit code 0 on success, non-zero on
// any error; errors are printed as one-line messages tagged with the
// taxonomy class (spec.md §6, §7), following the teacher's cmd/<name>/main.go
// convention of a single flat entrypoint per binary (relay/cmd/explore).
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/veridata-labs/semquery/core/config"
	"github.com/veridata-labs/semquery/internal/errtax"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:           "semquery",
	Short:         "semantic analytics and reconciliation engine",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		cfg = config.Load()
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "run, replay, and verify RcaCursor reconciliations",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		class := errtax.ClassOf(err)
		if class == "" {
			class = errtax.ExecutionError
		}
		fmt.Fprintf(os.Stderr, "%s: %v\n", class, err)
		os.Exit(1)
	}
}
