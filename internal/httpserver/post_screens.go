package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"linkup/linkup-shell/internal/api"
)

func (h *handler) registerFeedScreens(r chi.Router) {
	r.Get("/", h.feed)
	r.Get("/feed", h.feed)
}

func (h *handler) registerPostScreens(r chi.Router) {
	r.Get("/post/create", h.createPostForm)
	r.Post("/post/create", h.createPost)
	r.Get("/post/edit/{postId}", h.editPostForm)
	r.Post("/post/edit/{postId}", h.editPost)
	r.Get("/post/{postId}", h.postDetail)
	r.Post("/post/{postId}/like", h.like)
	r.Post("/post/{postId}/unlike", h.unlike)
	r.Post("/post/{postId}/comments", h.addComment)
	r.Post("/post/{postId}/delete", h.deletePost)
}

func (h *handler) feed(w http.ResponseWriter, r *http.Request) {
	p := h.base(r, "Feed")
	posts, err := h.backend.Feed(r.Context())
	if err != nil {
		h.fail(w, r, "feed", p, err, "Failed to load feed")
		return
	}
	if h.redirected(w, r) {
		return
	}
	p.Posts = posts
	h.render(w, r, http.StatusOK, "feed", p)
}

func (h *handler) postDetail(w http.ResponseWriter, r *http.Request) {
	p := h.base(r, "Post")
	postID, err := idParam(r, "postId")
	if err != nil {
		h.fail(w, r, "post_detail", p, err, "Post not found")
		return
	}
	post, err := h.backend.Post(r.Context(), postID)
	if err != nil {
		h.fail(w, r, "post_detail", p, err, "Failed to load post")
		return
	}
	comments, err := h.backend.Comments(r.Context(), postID)
	if err != nil {
		h.fail(w, r, "post_detail", p, err, "Failed to load comments")
		return
	}
	if h.redirected(w, r) {
		return
	}
	p.Post = &post
	p.Comments = comments
	h.render(w, r, http.StatusOK, "post_detail", p)
}

func (h *handler) createPostForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "post_create", h.base(r, "New post"))
}

func (h *handler) createPost(w http.ResponseWriter, r *http.Request) {
	p := h.base(r, "New post")
	if err := parseUpload(w, r); err != nil {
		h.fail(w, r, "post_create", p, err, "Failed to create post")
		return
	}
	caption := strings.TrimSpace(r.FormValue("caption"))
	p.Form = map[string]string{"caption": caption}
	image, err := readImage(r)
	if err != nil {
		h.fail(w, r, "post_create", p, err, "Failed to read image")
		return
	}
	if caption == "" && image == nil {
		p.Error = "Please add a caption or image"
		h.render(w, r, http.StatusBadRequest, "post_create", p)
		return
	}

	post, err := h.backend.CreatePost(r.Context(), caption, image)
	if err != nil {
		h.fail(w, r, "post_create", p, err, "Failed to create post")
		return
	}
	h.auditReq(r, actor(r), "post.create", strconv.Itoa(post.ID), "success", "")
	h.seeOther(w, r, "/profile")
}

func (h *handler) editPostForm(w http.ResponseWriter, r *http.Request) {
	p := h.base(r, "Edit post")
	postID, err := idParam(r, "postId")
	if err != nil {
		h.fail(w, r, "post_edit", p, err, "Post not found")
		return
	}
	post, err := h.backend.Post(r.Context(), postID)
	if err != nil {
		h.fail(w, r, "post_edit", p, err, "Failed to load post")
		return
	}
	if h.redirected(w, r) {
		return
	}
	p.Post = &post
	p.Form = map[string]string{"caption": post.Caption}
	h.render(w, r, http.StatusOK, "post_edit", p)
}

func (h *handler) editPost(w http.ResponseWriter, r *http.Request) {
	p := h.base(r, "Edit post")
	postID, err := idParam(r, "postId")
	if err != nil {
		h.fail(w, r, "post_edit", p, err, "Post not found")
		return
	}
	caption := strings.TrimSpace(r.FormValue("caption"))
	p.Post = &api.Post{ID: postID, Caption: caption}
	p.Form = map[string]string{"caption": caption}
	if caption == "" {
		p.Error = "Caption cannot be empty"
		h.render(w, r, http.StatusBadRequest, "post_edit", p)
		return
	}
	if _, err := h.backend.UpdatePost(r.Context(), postID, caption); err != nil {
		h.fail(w, r, "post_edit", p, err, "Failed to update post")
		return
	}
	h.auditReq(r, actor(r), "post.update", strconv.Itoa(postID), "success", "")
	h.seeOther(w, r, "/profile")
}

func (h *handler) deletePost(w http.ResponseWriter, r *http.Request) {
	h.postAction(w, r, "/profile", func(postID int) error {
		if err := h.backend.DeletePost(r.Context(), postID); err != nil {
			return err
		}
		h.auditReq(r, actor(r), "post.delete", strconv.Itoa(postID), "success", "")
		return nil
	})
}

func (h *handler) like(w http.ResponseWriter, r *http.Request) {
	h.postAction(w, r, "/feed", func(postID int) error {
		_, err := h.backend.Like(r.Context(), postID)
		return err
	})
}

func (h *handler) unlike(w http.ResponseWriter, r *http.Request) {
	h.postAction(w, r, "/feed", func(postID int) error {
		_, err := h.backend.Unlike(r.Context(), postID)
		return err
	})
}

func (h *handler) addComment(w http.ResponseWriter, r *http.Request) {
	h.postAction(w, r, "", func(postID int) error {
		content := strings.TrimSpace(r.FormValue("content"))
		if content == "" {
			return nil
		}
		_, err := h.backend.AddComment(r.Context(), postID, content)
		return err
	})
}

// postAction runs a mutation on the post named in the path and sends the
// browser back to the screen it came from, which re-fetches.
func (h *handler) postAction(w http.ResponseWriter, r *http.Request, fallback string, fn func(postID int) error) {
	postID, err := idParam(r, "postId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if fallback == "" {
		fallback = "/post/" + strconv.Itoa(postID)
	}
	target := back(r, fallback)
	if err := fn(postID); err != nil {
		if h.redirected(w, r) {
			return
		}
		h.actionFailed(w, r, target, err)
		return
	}
	h.seeOther(w, r, target)
}

// actionFailed shows a failed form action on a small error page that links
// back to where the user was.
func (h *handler) actionFailed(w http.ResponseWriter, r *http.Request, target string, err error) {
	p := h.base(r, "Something went wrong")
	p.Form = map[string]string{"back": target}
	h.fail(w, r, "action_error", p, err, "The action could not be completed. Please try again.")
}
