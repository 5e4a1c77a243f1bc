package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

func (c *Client) Feed(ctx context.Context) ([]Post, error) {
	return c.postList(ctx, "/posts/feed")
}

func (c *Client) Post(ctx context.Context, postID int) (Post, error) {
	var out Post
	if err := c.getJSON(ctx, fmt.Sprintf("/posts/%d", postID), &out); err != nil {
		return Post{}, err
	}
	return out, nil
}

func (c *Client) UserPosts(ctx context.Context, userID int) ([]Post, error) {
	return c.postList(ctx, fmt.Sprintf("/posts/user/%d", userID))
}

// CreatePost publishes an image with a caption. The backend requires the image.
func (c *Client) CreatePost(ctx context.Context, caption string, image *Image) (Post, error) {
	if image.empty() {
		return Post{}, &Error{Status: http.StatusBadRequest, Message: "Please select an image"}
	}
	body, contentType, err := multipartBody(map[string]string{"caption": caption}, image)
	if err != nil {
		return Post{}, err
	}
	var out Post
	if _, err := c.do(ctx, http.MethodPost, "/posts", body, contentType, &out); err != nil {
		return Post{}, err
	}
	return out, nil
}

func (c *Client) UpdatePost(ctx context.Context, postID int, caption string) (Post, error) {
	in := struct {
		Caption string `json:"caption"`
	}{caption}
	var out Post
	if _, err := c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/posts/%d", postID), in, &out); err != nil {
		return Post{}, err
	}
	return out, nil
}

func (c *Client) DeletePost(ctx context.Context, postID int) error {
	_, err := c.sendJSON(ctx, http.MethodDelete, fmt.Sprintf("/posts/%d", postID), nil, nil)
	return err
}

func (c *Client) Like(ctx context.Context, postID int) (Post, error) {
	return c.likeRequest(ctx, http.MethodPost, postID)
}

func (c *Client) Unlike(ctx context.Context, postID int) (Post, error) {
	return c.likeRequest(ctx, http.MethodDelete, postID)
}

func (c *Client) likeRequest(ctx context.Context, method string, postID int) (Post, error) {
	var out Post
	if _, err := c.sendJSON(ctx, method, fmt.Sprintf("/posts/%d/like", postID), nil, &out); err != nil {
		return Post{}, err
	}
	return out, nil
}

func (c *Client) Comments(ctx context.Context, postID int) ([]Comment, error) {
	var out []Comment
	if err := c.getJSON(ctx, fmt.Sprintf("/posts/%d/comments", postID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddComment(ctx context.Context, postID int, content string) (Comment, error) {
	in := struct {
		Content string `json:"content"`
	}{content}
	var out Comment
	if _, err := c.sendJSON(ctx, http.MethodPost, fmt.Sprintf("/posts/%d/comments", postID), in, &out); err != nil {
		return Comment{}, err
	}
	return out, nil
}

func (c *Client) postList(ctx context.Context, path string) ([]Post, error) {
	var out []Post
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func multipartBody(fields map[string]string, image *Image) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write %s field: %w", k, err)
		}
	}
	if !image.empty() {
		name := image.Filename
		if name == "" {
			name = "image"
		}
		part, err := w.CreateFormFile("image", name)
		if err != nil {
			return nil, "", fmt.Errorf("create image part: %w", err)
		}
		if _, err := part.Write(image.Data); err != nil {
			return nil, "", fmt.Errorf("write image part: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
