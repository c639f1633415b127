package settlement

import "testing"

func TestParseStatus(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"pending", "completed", "cancelled", "failed"} {
		status, err := ParseStatus(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if string(status) != raw {
			t.Fatalf("unexpected status %q", status)
		}
	}

	if _, err := ParseStatus("shipped"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestTerminal(t *testing.T) {
	t.Parallel()

	if StatusPending.Terminal() {
		t.Fatalf("pending must not be terminal")
	}
	for _, status := range []OrderStatus{StatusCompleted, StatusCancelled, StatusFailed} {
		if !status.Terminal() {
			t.Fatalf("expected %s to be terminal", status)
		}
	}
}
