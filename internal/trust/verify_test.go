package trust

import (
	"testing"

	"github.com/veridata-labs/semquery/internal/rcacursor"
)

func TestVerifyPassesOnConsistentResult(t *testing.T) {
	result := rcacursor.RCAResult{
		Summary: rcacursor.Summary{
			TotalGrainUnits: 3, MissingLeft: 1, MissingRight: 1, Mismatch: 1, Match: 0, TopK: 100,
		},
		TopDifferences: []rcacursor.GrainDifference{
			{Class: rcacursor.ClassMissingLeft},
			{Class: rcacursor.ClassMissingRight},
			{Class: rcacursor.ClassMismatch},
		},
		ReconciliationOK: true,
	}

	v := Verify(result)
	if !v.Passes {
		t.Fatalf("expected all checks to pass, got %+v", v)
	}
	if len(v.Checks) != 3 {
		t.Fatalf("expected 3 checks, got %d", len(v.Checks))
	}
}

func TestVerifyFailsWhenComponentCountsDontSum(t *testing.T) {
	result := rcacursor.RCAResult{
		Summary:          rcacursor.Summary{TotalGrainUnits: 5, MissingLeft: 1, MissingRight: 1, Mismatch: 1, Match: 0, TopK: 100},
		ReconciliationOK: true,
	}
	v := Verify(result)
	if v.Passes {
		t.Fatal("expected component-count check to fail")
	}
}

func TestVerifyFailsWhenReconciliationDoesNotPass(t *testing.T) {
	result := rcacursor.RCAResult{
		Summary:          rcacursor.Summary{TotalGrainUnits: 0, TopK: 100},
		ReconciliationOK: false,
	}
	v := Verify(result)
	if v.Passes {
		t.Fatal("expected reconciliation check to fail")
	}
}
