package api

import (
	"encoding/json"
	"strings"
	"time"

	"linkup/linkup-shell/internal/auth"
)

// User is a user record as listed by the backend, with the follow relation
// to the current user.
type User struct {
	auth.Identity
	IsFollowing bool `json:"isFollowing"`
	IsFollower  bool `json:"isFollower"`
}

type Post struct {
	ID            int       `json:"id"`
	ImageURL      string    `json:"imageUrl"`
	Caption       string    `json:"caption"`
	User          User      `json:"user"`
	LikesCount    int       `json:"likesCount"`
	CommentsCount int       `json:"commentsCount"`
	IsLiked       bool      `json:"isLiked"`
	CreatedAt     Timestamp `json:"createdAt"`
	UpdatedAt     Timestamp `json:"updatedAt"`
}

type Comment struct {
	ID        int       `json:"id"`
	Content   string    `json:"content"`
	User      User      `json:"user"`
	CreatedAt Timestamp `json:"createdAt"`
}

// Registration is the sign-up form.
type Registration struct {
	Firstname       string `json:"firstname"`
	Lastname        string `json:"lastname"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Mobile          int64  `json:"mobile,omitempty"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Gender          string `json:"gender,omitempty"`
}

// AuthResult is what register, verify-otp and login return. Token is issued
// by the backend but sessions are carried by cookie.
type AuthResult struct {
	Token string        `json:"token"`
	Type  string        `json:"type"`
	User  auth.Identity `json:"user"`
}

type PrimeOrder struct {
	OrderID    string `json:"orderId"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	Key        string `json:"key"`
	UserName   string `json:"userName"`
	UserEmail  string `json:"userEmail"`
	UserMobile string `json:"userMobile"`
}

// Image is an upload attached to a multipart request.
type Image struct {
	Filename string
	Data     []byte
}

func (i *Image) empty() bool {
	return i == nil || len(i.Data) == 0
}

// Timestamp decodes the backend's zone-less ISO date-times.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '[' {
		return t.unmarshalParts(b)
	}
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
		lastErr = err
	}
	return lastErr
}

// unmarshalParts handles the [year, month, day, hour, min, sec, nanos] form.
func (t *Timestamp) unmarshalParts(b []byte) error {
	var parts []int
	if err := json.Unmarshal(b, &parts); err != nil {
		return err
	}
	for len(parts) < 7 {
		parts = append(parts, 0)
	}
	if parts[1] == 0 {
		parts[1] = 1
	}
	if parts[2] == 0 {
		parts[2] = 1
	}
	t.Time = time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], parts[6], time.UTC)
	return nil
}
