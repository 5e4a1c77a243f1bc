package api

import (
	"context"
	"fmt"
	"net/http"

	"linkup/linkup-shell/internal/auth"
)

// Profile returns the user the current backend session belongs to.
func (c *Client) Profile(ctx context.Context) (auth.Identity, error) {
	var out auth.Identity
	if err := c.getJSON(ctx, "/users/profile", &out); err != nil {
		return auth.Identity{}, err
	}
	return out, nil
}

func (c *Client) User(ctx context.Context, userID int) (User, error) {
	var out User
	if err := c.getJSON(ctx, fmt.Sprintf("/users/%d", userID), &out); err != nil {
		return User{}, err
	}
	return out, nil
}

// UpdateProfile replaces the bio and, when image is non-empty, the avatar.
func (c *Client) UpdateProfile(ctx context.Context, bio string, image *Image) (auth.Identity, error) {
	body, contentType, err := multipartBody(map[string]string{"bio": bio}, image)
	if err != nil {
		return auth.Identity{}, err
	}
	var out auth.Identity
	if _, err := c.do(ctx, http.MethodPut, "/users/profile", body, contentType, &out); err != nil {
		return auth.Identity{}, err
	}
	return out, nil
}

func (c *Client) Suggestions(ctx context.Context) ([]User, error) {
	return c.userList(ctx, "/users/suggestions")
}

func (c *Client) Follow(ctx context.Context, userID int) error {
	_, err := c.sendJSON(ctx, http.MethodPost, fmt.Sprintf("/users/%d/follow", userID), nil, nil)
	return err
}

func (c *Client) Unfollow(ctx context.Context, userID int) error {
	_, err := c.sendJSON(ctx, http.MethodDelete, fmt.Sprintf("/users/%d/follow", userID), nil, nil)
	return err
}

func (c *Client) Followers(ctx context.Context) ([]User, error) {
	return c.userList(ctx, "/users/followers")
}

func (c *Client) Following(ctx context.Context) ([]User, error) {
	return c.userList(ctx, "/users/following")
}

func (c *Client) UserFollowers(ctx context.Context, userID int) ([]User, error) {
	return c.userList(ctx, fmt.Sprintf("/users/%d/followers", userID))
}

func (c *Client) UserFollowing(ctx context.Context, userID int) ([]User, error) {
	return c.userList(ctx, fmt.Sprintf("/users/%d/following", userID))
}

func (c *Client) userList(ctx context.Context, path string) ([]User, error) {
	var out []User
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}
