package notifications

import "testing"

func TestRender(t *testing.T) {
	out, err := render("t", "Hello {{.name}}, {{.days}} days{{.missing}}", map[string]any{"name": "Ana", "days": 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Hello Ana, 2 days" {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := render("t", "{{.broken", nil); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFallbacks(t *testing.T) {
	if got := fallbackTitle("LEAVE_APPROVED"); got != "Leave request approved" {
		t.Fatalf("unexpected title %q", got)
	}
	if got := fallbackTitle("PAYSLIP_READY"); got != "Payslip ready" {
		t.Fatalf("unexpected title %q", got)
	}
	if got := fallbackMessage(map[string]any{"b": 2, "a": "x", "link": "/y"}); got != "a: x\nb: 2" {
		t.Fatalf("unexpected message %q", got)
	}
}
