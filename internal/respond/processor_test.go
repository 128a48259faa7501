package respond

import (
	"strings"
	"testing"

	"github.com/vtcode-go/vtcode/internal/provider"
)

func TestProcess_PlainTextResponse(t *testing.T) {
	resp := provider.Response{Content: "All done, nothing else to do."}
	result := Process(resp, Options{})
	if result.Kind != KindText {
		t.Fatalf("expected KindText, got %v", result.Kind)
	}
	if result.Text != resp.Content {
		t.Fatalf("text mismatch: %q", result.Text)
	}
}

func TestProcess_EmptyResponse(t *testing.T) {
	result := Process(provider.Response{}, Options{})
	if result.Kind != KindEmpty {
		t.Fatalf("expected KindEmpty, got %v", result.Kind)
	}
}

func TestProcess_HarmonyWrapperStrippedButStillText(t *testing.T) {
	resp := provider.Response{Content: "<|start|><|channel|>final<|call|>   "}
	result := Process(resp, Options{})
	if result.Kind != KindText {
		t.Fatalf("expected KindText for harmony-wrapped content, got %v", result.Kind)
	}
}

func TestProcess_ProposedPlanExtracted(t *testing.T) {
	resp := provider.Response{Content: "Here is the plan.\n<proposed_plan>\n1. Do X\n2. Do Y\n</proposed_plan>\nLet me know."}
	result := Process(resp, Options{PlanModeActive: true})
	if result.Kind != KindText {
		t.Fatalf("expected KindText, got %v", result.Kind)
	}
	if !strings.Contains(result.ProposedPlan, "Do X") {
		t.Fatalf("expected plan body captured, got %q", result.ProposedPlan)
	}
	if strings.Contains(result.Text, "<proposed_plan>") {
		t.Fatalf("expected tag stripped from visible text, got %q", result.Text)
	}
}

func TestProcess_TextualToolCallDetected(t *testing.T) {
	resp := provider.Response{Content: "bash(command=\"echo hi\")"}
	result := Process(resp, Options{ConversationLen: 4})
	if result.Kind != KindToolCalls {
		t.Fatalf("expected KindToolCalls, got %v", result.Kind)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("expected one synthesized tool call, got %d", len(result.ToolCalls))
	}
	if result.ToolCalls[0].ID != "call_textual_4" {
		t.Fatalf("unexpected id: %s", result.ToolCalls[0].ID)
	}
}

func TestProcess_TextualToolCallValidationFailureKeepsText(t *testing.T) {
	resp := provider.Response{Content: "bash(command=\"rm -rf /\")"}
	result := Process(resp, Options{
		Validate: func(name string, args map[string]any) []string {
			return []string{"command denied"}
		},
	})
	if result.Kind != KindText {
		t.Fatalf("expected KindText after validation failure, got %v", result.Kind)
	}
	if len(result.Diagnostics) != 1 {
		t.Fatalf("expected one diagnostic, got %v", result.Diagnostics)
	}
}

func TestProcess_InterviewQuestionSynthesized(t *testing.T) {
	resp := provider.Response{Content: "1. Should we cache the response?\n2. What timeout is acceptable?"}
	result := Process(resp, Options{AllowPlanInterview: true, RequestUserInputEnabled: true, ConversationLen: 2})
	if result.Kind != KindToolCalls {
		t.Fatalf("expected KindToolCalls, got %v", result.Kind)
	}
	if result.ToolCalls[0].Name != RequestUserInputTool {
		t.Fatalf("expected request_user_input tool, got %s", result.ToolCalls[0].Name)
	}
	questions, ok := result.ToolCalls[0].Arguments["questions"].([]any)
	if !ok || len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %v", result.ToolCalls[0].Arguments["questions"])
	}
}

func TestProcess_ReasoningPassedThroughBoth(t *testing.T) {
	resp := provider.Response{Content: "ok", Reasoning: "because x", ReasoningDetails: []byte(`{"k":"v"}`)}
	result := Process(resp, Options{})
	if result.ReasoningToShow != "because x" {
		t.Fatalf("expected reasoning shown, got %q", result.ReasoningToShow)
	}
	if string(result.ReasoningToRetain) != `{"k":"v"}` {
		t.Fatalf("expected reasoning details retained, got %q", result.ReasoningToRetain)
	}
}
