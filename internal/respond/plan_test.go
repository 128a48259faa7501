package respond

import "testing"

func TestExtractProposedPlan_NoBlock(t *testing.T) {
	extraction := extractProposedPlan("just a normal response")
	if extraction.PlanText != "" {
		t.Fatalf("expected no plan text, got %q", extraction.PlanText)
	}
	if extraction.StrippedText != "just a normal response" {
		t.Fatalf("unexpected stripped text: %q", extraction.StrippedText)
	}
}

func TestExtractProposedPlan_ExtractsAndStrips(t *testing.T) {
	text := "Before:\n<proposed_plan>\nstep one\nstep two\n</proposed_plan>\nAfter."
	extraction := extractProposedPlan(text)
	if extraction.PlanText != "step one\nstep two" {
		t.Fatalf("unexpected plan text: %q", extraction.PlanText)
	}
	if extraction.StrippedText != "Before:\n\nAfter." {
		t.Fatalf("unexpected stripped text: %q", extraction.StrippedText)
	}
}
