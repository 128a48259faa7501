package respond

import "testing"

func TestNormalizeQuestionLine_StripsWrapping(t *testing.T) {
	got := normalizeQuestionLine("> **Should we proceed?**")
	if got != "Should we proceed?" {
		t.Fatalf("unexpected normalization: %q", got)
	}
}

func TestParseNumberedQuestion(t *testing.T) {
	q, ok := parseNumberedQuestion("1. Should we cache results?")
	if !ok || q != "Should we cache results?" {
		t.Fatalf("unexpected result: %q ok=%v", q, ok)
	}
	if _, ok := parseNumberedQuestion("1. Not a question."); ok {
		t.Fatalf("expected no match without a question mark")
	}
}

func TestParseBulletQuestion(t *testing.T) {
	q, ok := parseBulletQuestion("- Should we cache results?")
	if !ok || q != "Should we cache results?" {
		t.Fatalf("unexpected result: %q ok=%v", q, ok)
	}
}

func TestSynthesizeAlignmentQuestion(t *testing.T) {
	q, ok := synthesizeAlignmentQuestion("Before finalizing the plan mode rollout, we need clarification.")
	if !ok || q != "Which plan mode improvement area should we prioritize first?" {
		t.Fatalf("unexpected: %q ok=%v", q, ok)
	}
	if _, ok := synthesizeAlignmentQuestion("Everything looks fine."); ok {
		t.Fatalf("expected no synthesis without a trigger phrase")
	}
}

func TestExtractAnalysisHints_DedupsAndCaps(t *testing.T) {
	text := "There is redundant logic in the prompt pipeline.\nThere is redundant logic in the prompt pipeline.\nShort.\nIs this a question?"
	hints := extractAnalysisHints(text)
	if len(hints) != 1 {
		t.Fatalf("expected dedup to 1 hint, got %v", hints)
	}
}

func TestBuildInterviewArgs_NoQuestionsReturnsFalse(t *testing.T) {
	if _, ok := buildInterviewArgs("Nothing to ask here."); ok {
		t.Fatalf("expected false when no questions found")
	}
}
