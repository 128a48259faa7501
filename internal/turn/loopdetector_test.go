package turn

import "testing"

func TestLoopDetector_FlagsRepeatedResponse(t *testing.T) {
	d := NewLoopDetector(2)
	if d.Observe("Working on it.") {
		t.Fatalf("first observation should never be a loop")
	}
	if !d.Observe("Working on it.") {
		t.Fatalf("expected loop on exact repeat")
	}
}

func TestLoopDetector_NormalizesWhitespaceCaseAndBullets(t *testing.T) {
	d := NewLoopDetector(2)
	d.Observe("- Done\n- All good")
	if !d.Observe("  DONE   \n  ALL GOOD  ") {
		t.Fatalf("expected normalized texts to match")
	}
}

func TestLoopDetector_DifferentTextIsNotALoop(t *testing.T) {
	d := NewLoopDetector(2)
	d.Observe("first response")
	if d.Observe("second response") {
		t.Fatalf("distinct responses must not be flagged as a loop")
	}
}

func TestLoopDetector_ResetClearsHistory(t *testing.T) {
	d := NewLoopDetector(2)
	d.Observe("same")
	d.Reset()
	if d.Observe("same") {
		t.Fatalf("expected no loop immediately after reset")
	}
}
