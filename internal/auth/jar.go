package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

const persistTimeout = 5 * time.Second

// Jar is an http.CookieJar that mirrors the backend's cookies into a
// CredentialStore, so a restarted process can resume the backend session.
type Jar struct {
	origin *url.URL
	store  CredentialStore
	log    *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	inner   *cookiejar.Jar
	cookies map[string]Cookie
}

// NewJar restores previously persisted cookies for origin from store.
func NewJar(ctx context.Context, origin string, store CredentialStore, log *zap.Logger) (*Jar, error) {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid backend origin %q", origin)
	}
	if store == nil {
		store = NewInMemoryCredentialStore()
	}
	if log == nil {
		log = zap.NewNop()
	}
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	j := &Jar{
		origin:  u,
		store:   store,
		log:     log,
		now:     time.Now,
		inner:   inner,
		cookies: make(map[string]Cookie),
	}

	saved, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	restore := make([]*http.Cookie, 0, len(saved))
	for _, c := range saved {
		if !c.Expires.IsZero() && j.now().After(c.Expires) {
			continue
		}
		j.cookies[c.Name] = c
		restore = append(restore, toHTTPCookie(c))
	}
	if len(restore) > 0 {
		inner.SetCookies(u, restore)
		log.Debug("restored backend credentials", zap.Int("cookies", len(restore)))
	}
	return j, nil
}

func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	j.inner.SetCookies(u, cookies)
	if u.Host != j.origin.Host {
		j.mu.Unlock()
		return
	}
	changed := false
	for _, hc := range cookies {
		if hc.MaxAge < 0 || (!hc.Expires.IsZero() && j.now().After(hc.Expires)) {
			if _, ok := j.cookies[hc.Name]; ok {
				delete(j.cookies, hc.Name)
				changed = true
			}
			continue
		}
		c := fromHTTPCookie(hc, j.now())
		if prev, ok := j.cookies[c.Name]; ok && prev == c {
			continue
		}
		j.cookies[c.Name] = c
		changed = true
	}
	snapshot := j.snapshotLocked()
	j.mu.Unlock()

	if !changed {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := j.store.Save(ctx, snapshot); err != nil {
		j.log.Warn("persist backend credentials failed", zap.Error(err))
	}
}

func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inner.Cookies(u)
}

// HasCredentials reports whether any backend cookie is held.
func (j *Jar) HasCredentials() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.cookies) > 0
}

// Reset forgets every cookie, in memory and in the store.
func (j *Jar) Reset(ctx context.Context) error {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("create cookie jar: %w", err)
	}
	j.mu.Lock()
	j.inner = inner
	j.cookies = make(map[string]Cookie)
	j.mu.Unlock()

	if err := j.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

func (j *Jar) snapshotLocked() []Cookie {
	out := make([]Cookie, 0, len(j.cookies))
	for _, c := range j.cookies {
		out = append(out, c)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

func fromHTTPCookie(hc *http.Cookie, now time.Time) Cookie {
	c := Cookie{
		Name:     hc.Name,
		Value:    hc.Value,
		Path:     hc.Path,
		Domain:   hc.Domain,
		Expires:  hc.Expires,
		Secure:   hc.Secure,
		HTTPOnly: hc.HttpOnly,
	}
	if hc.MaxAge > 0 {
		c.Expires = now.Add(time.Duration(hc.MaxAge) * time.Second).UTC()
	}
	return c
}

func toHTTPCookie(c Cookie) *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  c.Expires,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
	}
}
