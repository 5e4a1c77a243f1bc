// Package guard decides whether a screen may be shown for the current
// session state.
package guard

import (
	"errors"
	"fmt"
	"strings"

	"linkup/linkup-shell/internal/auth"
)

type Decision int

const (
	// Wait means the startup identity check has not finished. Nothing
	// protected may be shown and no redirect may happen yet.
	Wait Decision = iota
	Allow
	RedirectLogin
	RedirectLanding
)

func (d Decision) String() string {
	switch d {
	case Wait:
		return "wait"
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case RedirectLanding:
		return "redirect_landing"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// ErrRedirectLoop reports routes on which the guards would bounce a user
// between two screens forever.
var ErrRedirectLoop = errors.New("routes would redirect in a loop")

// Routes names the screens guards redirect to.
type Routes struct {
	Login   string
	Landing string
	// Public lists the screens only anonymous users see.
	Public []string
}

func (r Routes) Validate() error {
	if r.Login == "" || r.Landing == "" {
		return fmt.Errorf("login and landing routes are required")
	}
	for _, p := range append([]string{r.Login, r.Landing}, r.Public...) {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("route %q must be an absolute path", p)
		}
	}
	if r.Login == r.Landing {
		return fmt.Errorf("%w: login and landing are both %q", ErrRedirectLoop, r.Login)
	}
	// Anonymous users are sent to Login, so it must be a screen they may see.
	if !r.IsPublic(r.Login) {
		return fmt.Errorf("%w: login route %q is not a public screen", ErrRedirectLoop, r.Login)
	}
	// Logged-in users are sent to Landing, so it must not be anonymous-only.
	if r.IsPublic(r.Landing) {
		return fmt.Errorf("%w: landing route %q is a public screen", ErrRedirectLoop, r.Landing)
	}
	return nil
}

// IsPublic reports whether path is one of the anonymous-only screens.
func (r Routes) IsPublic(path string) bool {
	for _, p := range r.Public {
		if p == path {
			return true
		}
	}
	return false
}

// Protected guards screens that need a logged-in user.
func Protected(st auth.State) Decision {
	switch {
	case st.Resolution == auth.Pending:
		return Wait
	case !st.Authenticated():
		return RedirectLogin
	default:
		return Allow
	}
}

// PublicOnly guards the login and registration screens.
func PublicOnly(st auth.State) Decision {
	switch {
	case st.Resolution == auth.Pending:
		return Wait
	case st.Authenticated():
		return RedirectLanding
	default:
		return Allow
	}
}

// Target returns the screen a redirect decision points at.
func (r Routes) Target(d Decision) (string, bool) {
	switch d {
	case RedirectLogin:
		return r.Login, true
	case RedirectLanding:
		return r.Landing, true
	default:
		return "", false
	}
}
