package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veridata-labs/semquery/internal/errtax"
	"github.com/veridata-labs/semquery/internal/observability"
	"github.com/veridata-labs/semquery/internal/rcacursor"
	"github.com/veridata-labs/semquery/internal/storage"
	"github.com/veridata-labs/semquery/internal/trust"
)

var replayFlags struct {
	executionID string
	verify      bool
	tolerance   float64
}

var reconcileReplayCmd = &cobra.Command{
	Use:   "replay",
	Short: "replay an execution id",
	RunE:  runReplay,
}

func init() {
	f := reconcileReplayCmd.Flags()
	f.StringVar(&replayFlags.executionID, "execution-id", "", "execution id to replay (required)")
	f.BoolVar(&replayFlags.verify, "verify", true, "verify the replay's outputs against the original evidence record")
	f.Float64Var(&replayFlags.tolerance, "tolerance", 1e-6, "aggregate-difference tolerance for replay verification")

	reconcileCmd.AddCommand(reconcileReplayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	if replayFlags.executionID == "" {
		return errtax.New(errtax.CompilerError, "execution-id is required")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	reg, err := loadRegistry()
	if err != nil {
		return err
	}

	store, err := trust.NewEvidenceStore(cfg.Evidence.Root)
	if err != nil {
		return errtax.Wrap(errtax.ExecutionError, err)
	}

	readers := func(_ context.Context, sys rcacursor.SystemDescriptor) (storage.Reader, error) {
		return csvReaderFor(sys.Table)
	}

	traceStore := observability.NewStore()
	replay, err := trust.Replay(ctx, store, reg, traceStore, readers, replayFlags.executionID, replayFlags.verify, replayFlags.tolerance)
	if err != nil {
		return err
	}

	fmt.Println(rcacursor.Narrative(replay.Result))
	if replay.Verification != nil {
		if replay.Verification.Matches {
			fmt.Println("replay matches original evidence record")
		} else {
			fmt.Println("replay differs from original evidence record:")
			for _, d := range replay.Verification.Differences {
				fmt.Printf("  - %s\n", d)
			}
			return errtax.New(errtax.ExecutionError, "replay of %s does not match original evidence", replayFlags.executionID)
		}
	}
	return nil
}
