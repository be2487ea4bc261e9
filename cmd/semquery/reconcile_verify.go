package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veridata-labs/semquery/internal/errtax"
	"github.com/veridata-labs/semquery/internal/trust"
)

var verifyFlags struct {
	executionID string
}

var reconcileVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "verify an evidence record",
	RunE:  runVerify,
}

func init() {
	f := reconcileVerifyCmd.Flags()
	f.StringVar(&verifyFlags.executionID, "execution-id", "", "execution id to verify (required)")

	reconcileCmd.AddCommand(reconcileVerifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	if verifyFlags.executionID == "" {
		return errtax.New(errtax.CompilerError, "execution-id is required")
	}

	store, err := trust.NewEvidenceStore(cfg.Evidence.Root)
	if err != nil {
		return errtax.Wrap(errtax.ExecutionError, err)
	}

	record, err := store.Load(verifyFlags.executionID)
	if err != nil {
		return errtax.Wrap(errtax.ExecutionError, err)
	}

	result := trust.Verify(record.Result)
	for _, c := range result.Checks {
		status := "PASS"
		if !c.Passes {
			status = "FAIL"
		}
		fmt.Printf("[%s] %s: %s\n", status, c.Name, c.Message)
	}
	fmt.Println(result.Message)

	if !result.Passes {
		return errtax.New(errtax.ExecutionError, "evidence record %s failed verification", verifyFlags.executionID)
	}
	return nil
}
