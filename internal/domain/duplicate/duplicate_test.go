package duplicate

import "testing"

func TestAnyBlocking(t *testing.T) {
	if AnyBlocking(nil) {
		t.Error("nil should not block")
	}
	low := []Match{{Confidence: 62}, {Confidence: 77}}
	if AnyBlocking(low) {
		t.Error("confidences below 80 should not block")
	}
	high := append(low, Match{Confidence: 80})
	if !AnyBlocking(high) {
		t.Error("confidence 80 should block")
	}
}
