package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"linkup/linkup-shell/internal/api"
	"linkup/linkup-shell/internal/guard"
)

func (h *handler) registerProfileScreens(r chi.Router) {
	r.Get("/profile", h.profile)
	r.Get("/profile/edit", h.editProfileForm)
	r.Post("/profile/edit", h.editProfile)
}

func (h *handler) registerSocialScreens(r chi.Router) {
	r.Get("/user/{userId}", h.userProfile)
	r.Post("/user/{userId}/follow", h.follow)
	r.Post("/user/{userId}/unfollow", h.unfollow)
	r.Get("/followers", h.userList("Followers", "followers"))
	r.Get("/following", h.userList("Following", "following"))
	r.Get("/suggestions", h.userList("Suggestions", "suggestions"))
}

// profile shows the current user from a fresh backend read and refreshes the
// session identity with it.
func (h *handler) profile(w http.ResponseWriter, r *http.Request) {
	p := h.base(r, "Profile")
	me, err := h.backend.Profile(r.Context())
	if err != nil {
		h.fail(w, r, "profile", p, err, "Failed to load profile")
		return
	}
	posts, err := h.backend.UserPosts(r.Context(), me.ID)
	if err != nil {
		h.fail(w, r, "profile", p, err, "Failed to load posts")
		return
	}
	if h.redirected(w, r) {
		return
	}
	h.session.UpdateIdentity(me)
	p.User = &me
	p.Profile = &api.User{Identity: me}
	p.Posts = posts
	h.render(w, r, http.StatusOK, "profile", p)
}

func (h *handler) editProfileForm(w http.ResponseWriter, r *http.Request) {
	p := h.base(r, "Edit profile")
	if p.User != nil {
		p.Form = map[string]string{"bio": p.User.Bio}
	}
	h.render(w, r, http.StatusOK, "profile_edit", p)
}

func (h *handler) editProfile(w http.ResponseWriter, r *http.Request) {
	p := h.base(r, "Edit profile")
	if err := parseUpload(w, r); err != nil {
		h.fail(w, r, "profile_edit", p, err, "Failed to update profile")
		return
	}
	bio := strings.TrimSpace(r.FormValue("bio"))
	p.Form = map[string]string{"bio": bio}
	image, err := readImage(r)
	if err != nil {
		h.fail(w, r, "profile_edit", p, err, "Failed to read image")
		return
	}

	updated, err := h.backend.UpdateProfile(r.Context(), bio, image)
	if err != nil {
		h.fail(w, r, "profile_edit", p, err, "Failed to update profile")
		return
	}
	if h.redirected(w, r) {
		return
	}
	h.session.UpdateIdentity(updated)
	h.auditReq(r, updated.Username, "profile.update", strconv.Itoa(updated.ID), "success", "")
	http.Redirect(w, r, "/profile", http.StatusFound)
}

func (h *handler) userProfile(w http.ResponseWriter, r *http.Request) {
	p := h.base(r, "Profile")
	userID, err := idParam(r, "userId")
	if err != nil {
		h.fail(w, r, "user", p, err, "User not found")
		return
	}
	if me, ok := guard.IdentityFromContext(r.Context()); ok && me.ID == userID {
		http.Redirect(w, r, "/profile", http.StatusFound)
		return
	}

	ctx := r.Context()
	user, err := h.backend.User(ctx, userID)
	if err != nil {
		h.fail(w, r, "user", p, err, "Failed to load user")
		return
	}
	p.Profile = &user
	p.Title = user.DisplayName()
	p.Tab = r.URL.Query().Get("tab")

	switch p.Tab {
	case "followers":
		p.Users, err = h.backend.UserFollowers(ctx, userID)
	case "following":
		p.Users, err = h.backend.UserFollowing(ctx, userID)
	default:
		p.Tab = "posts"
		p.Posts, err = h.backend.UserPosts(ctx, userID)
	}
	if err != nil {
		h.fail(w, r, "user", p, err, "Failed to load "+p.Tab)
		return
	}
	if h.redirected(w, r) {
		return
	}
	h.render(w, r, http.StatusOK, "user", p)
}

func (h *handler) follow(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, "user.follow", h.backend.Follow)
}

func (h *handler) unfollow(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, "user.unfollow", h.backend.Unfollow)
}

func (h *handler) userAction(w http.ResponseWriter, r *http.Request, action string, fn func(context.Context, int) error) {
	userID, err := idParam(r, "userId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	target := back(r, "/user/"+strconv.Itoa(userID))
	if err := fn(r.Context(), userID); err != nil {
		if h.redirected(w, r) {
			return
		}
		h.auditReq(r, actor(r), action, strconv.Itoa(userID), "failed", err.Error())
		h.actionFailed(w, r, target, err)
		return
	}
	h.auditReq(r, actor(r), action, strconv.Itoa(userID), "success", "")
	h.seeOther(w, r, target)
}

// userList serves the current user's followers, following and suggestion
// screens.
func (h *handler) userList(title, kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := h.base(r, title)
		p.Tab = kind
		var (
			users []api.User
			err   error
		)
		switch kind {
		case "followers":
			users, err = h.backend.Followers(r.Context())
		case "following":
			users, err = h.backend.Following(r.Context())
		default:
			users, err = h.backend.Suggestions(r.Context())
		}
		if err != nil {
			h.fail(w, r, "users", p, err, "Failed to load "+kind)
			return
		}
		if h.redirected(w, r) {
			return
		}
		p.Users = users
		h.render(w, r, http.StatusOK, "users", p)
	}
}
