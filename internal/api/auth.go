package api

import (
	"context"
	"fmt"
	"net/http"

	"linkup/linkup-shell/internal/auth"
)

var _ auth.Backend = (*Client)(nil)

// Register creates an unverified account. The backend mails an OTP to the
// address given.
func (c *Client) Register(ctx context.Context, r Registration) (AuthResult, error) {
	var out AuthResult
	if _, err := c.sendJSON(ctx, http.MethodPost, "/auth/register", r, &out); err != nil {
		return AuthResult{}, err
	}
	return out, nil
}

func (c *Client) VerifyOTP(ctx context.Context, userID, otp int) (AuthResult, error) {
	in := struct {
		UserID int `json:"userId"`
		OTP    int `json:"otp"`
	}{userID, otp}
	var out AuthResult
	if _, err := c.sendJSON(ctx, http.MethodPost, "/auth/verify-otp", in, &out); err != nil {
		return AuthResult{}, err
	}
	return out, nil
}

func (c *Client) ResendOTP(ctx context.Context, userID int) error {
	_, err := c.sendJSON(ctx, http.MethodPost, fmt.Sprintf("/auth/resend-otp/%d", userID), nil, nil)
	return err
}

// Login opens a backend session; the session cookie lands in the jar.
func (c *Client) Login(ctx context.Context, creds auth.Credentials) (auth.Identity, error) {
	var out AuthResult
	if _, err := c.sendJSON(ctx, http.MethodPost, "/auth/login", creds, &out); err != nil {
		return auth.Identity{}, err
	}
	if out.User.Username == "" {
		return auth.Identity{}, fmt.Errorf("login response carried no user")
	}
	return out.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	_, err := c.sendJSON(ctx, http.MethodPost, "/auth/logout", nil, nil)
	return err
}
