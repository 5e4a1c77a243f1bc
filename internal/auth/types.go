package auth

import "time"

// Identity is the authenticated user as the backend reports it.
type Identity struct {
	ID             int    `json:"id"`
	Username       string `json:"username"`
	Firstname      string `json:"firstname,omitempty"`
	Lastname       string `json:"lastname,omitempty"`
	Email          string `json:"email,omitempty"`
	Bio            string `json:"bio,omitempty"`
	AvatarURL      string `json:"imageUrl,omitempty"`
	IsPrimeMember  bool   `json:"prime"`
	Verified       bool   `json:"verified,omitempty"`
	FollowersCount int    `json:"followersCount,omitempty"`
	FollowingCount int    `json:"followingCount,omitempty"`
}

func (i Identity) DisplayName() string {
	switch {
	case i.Firstname != "" && i.Lastname != "":
		return i.Firstname + " " + i.Lastname
	case i.Firstname != "":
		return i.Firstname
	default:
		return i.Username
	}
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Resolution tracks whether the startup identity check has finished.
type Resolution int

const (
	Pending Resolution = iota
	Resolved
)

func (r Resolution) String() string {
	if r == Resolved {
		return "resolved"
	}
	return "pending"
}

// State is a point-in-time copy of the session.
type State struct {
	Identity   *Identity
	Resolution Resolution
}

func (s State) Authenticated() bool {
	return s.Identity != nil
}

// Cookie is the persisted form of a backend session cookie.
type Cookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HTTPOnly bool      `json:"http_only,omitempty"`
}
