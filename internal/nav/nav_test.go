package nav

import (
	"context"
	"testing"
)

func TestNavigatorKeepsFirstRedirect(t *testing.T) {
	n := New("/feed")
	if !n.Redirect("/login") {
		t.Fatalf("expected first redirect to be accepted")
	}
	if n.Redirect("/elsewhere") {
		t.Fatalf("expected second redirect to be ignored")
	}
	target, ok := n.Target()
	if !ok || target != "/login" {
		t.Fatalf("expected target /login, got %q (ok=%v)", target, ok)
	}
	if n.Requests() != 2 {
		t.Fatalf("expected 2 redirect requests, got %d", n.Requests())
	}
}

func TestNilNavigatorIsInert(t *testing.T) {
	var n *Navigator
	if n.Redirect("/login") {
		t.Fatalf("expected nil navigator to ignore redirects")
	}
	if _, ok := n.Target(); ok {
		t.Fatalf("expected nil navigator to have no target")
	}
	if n.Location() != "" {
		t.Fatalf("expected empty location for nil navigator")
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	if FromContext(ctx) != nil {
		t.Fatalf("expected no navigator in empty context")
	}
	if IsIdentityProbe(ctx) {
		t.Fatalf("expected empty context not to be a probe")
	}

	n := New("/profile")
	ctx = WithIdentityProbe(WithNavigator(ctx, n))
	if FromContext(ctx) != n {
		t.Fatalf("expected navigator round trip through context")
	}
	if !IsIdentityProbe(ctx) {
		t.Fatalf("expected probe marker")
	}
}
