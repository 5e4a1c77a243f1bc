package auth

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url %q: %v", raw, err)
	}
	return u
}

func TestJarPersistsBackendCookies(t *testing.T) {
	store := NewInMemoryCredentialStore()
	ctx := context.Background()
	jar, err := NewJar(ctx, "http://backend.local/api", store, nil)
	if err != nil {
		t.Fatalf("NewJar() error: %v", err)
	}

	login := mustURL(t, "http://backend.local/api/auth/login")
	jar.SetCookies(login, []*http.Cookie{{Name: "JSESSIONID", Value: "abc", Path: "/"}})

	saved, _ := store.Load(ctx)
	if len(saved) != 1 || saved[0].Value != "abc" {
		t.Fatalf("expected cookie to be persisted, got %+v", saved)
	}
	if !jar.HasCredentials() {
		t.Fatalf("expected jar to report credentials")
	}

	restored, err := NewJar(ctx, "http://backend.local/api", store, nil)
	if err != nil {
		t.Fatalf("NewJar() restore error: %v", err)
	}
	cookies := restored.Cookies(mustURL(t, "http://backend.local/api/users/profile"))
	if len(cookies) != 1 || cookies[0].Value != "abc" {
		t.Fatalf("expected restored cookie to be sent, got %+v", cookies)
	}
}

func TestJarIgnoresForeignHostsForPersistence(t *testing.T) {
	store := NewInMemoryCredentialStore()
	ctx := context.Background()
	jar, err := NewJar(ctx, "http://backend.local/api", store, nil)
	if err != nil {
		t.Fatalf("NewJar() error: %v", err)
	}

	jar.SetCookies(mustURL(t, "http://tracker.example/"), []*http.Cookie{{Name: "t", Value: "1"}})

	saved, _ := store.Load(ctx)
	if len(saved) != 0 {
		t.Fatalf("expected foreign cookie not to be persisted, got %+v", saved)
	}
}

func TestJarDropsDeletedAndExpiredCookies(t *testing.T) {
	store := NewInMemoryCredentialStore()
	ctx := context.Background()
	_ = store.Save(ctx, []Cookie{
		{Name: "stale", Value: "x", Expires: time.Now().Add(-time.Hour)},
		{Name: "JSESSIONID", Value: "abc"},
	})
	jar, err := NewJar(ctx, "http://backend.local/api", store, nil)
	if err != nil {
		t.Fatalf("NewJar() error: %v", err)
	}
	u := mustURL(t, "http://backend.local/api/auth/logout")
	if got := jar.Cookies(u); len(got) != 1 || got[0].Name != "JSESSIONID" {
		t.Fatalf("expected only the live cookie to be restored, got %+v", got)
	}

	jar.SetCookies(u, []*http.Cookie{{Name: "JSESSIONID", Value: "", MaxAge: -1}})

	saved, _ := store.Load(ctx)
	if len(saved) != 0 {
		t.Fatalf("expected deleted cookie to be removed from store, got %+v", saved)
	}
	if jar.HasCredentials() {
		t.Fatalf("expected no credentials after deletion")
	}
}

func TestJarReset(t *testing.T) {
	store := NewInMemoryCredentialStore()
	ctx := context.Background()
	jar, err := NewJar(ctx, "http://backend.local/api", store, nil)
	if err != nil {
		t.Fatalf("NewJar() error: %v", err)
	}
	u := mustURL(t, "http://backend.local/api/auth/login")
	jar.SetCookies(u, []*http.Cookie{{Name: "JSESSIONID", Value: "abc"}})

	if err := jar.Reset(ctx); err != nil {
		t.Fatalf("Reset() error: %v", err)
	}
	if got := jar.Cookies(u); len(got) != 0 {
		t.Fatalf("expected no cookies after reset, got %+v", got)
	}
	saved, _ := store.Load(ctx)
	if len(saved) != 0 {
		t.Fatalf("expected store to be cleared, got %+v", saved)
	}
}

func TestNewJarRejectsBadOrigin(t *testing.T) {
	if _, err := NewJar(context.Background(), "not a url", nil, nil); err == nil {
		t.Fatalf("expected error for origin without host")
	}
}
