package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"linkup/linkup-shell/internal/api"
	"linkup/linkup-shell/internal/guard"
	"linkup/linkup-shell/internal/nav"
)

const maxUploadBytes = 10 << 20

var errBadID = errors.New("invalid id")

// redirected issues the redirect a backend call requested for this page, if
// any. Screens call it after their backend work and before rendering.
func (h *handler) redirected(w http.ResponseWriter, r *http.Request) bool {
	target, ok := nav.FromContext(r.Context()).Target()
	if !ok {
		return false
	}
	http.Redirect(w, r, target, http.StatusFound)
	return true
}

// base is the page skeleton for a guarded or public screen.
func (h *handler) base(r *http.Request, title string) page {
	p := page{Title: title, Path: r.URL.Path, LoginPath: h.routes.Login}
	if id, ok := guard.IdentityFromContext(r.Context()); ok {
		p.User = &id
	}
	return p
}

// actor is the username a guarded request runs as.
func actor(r *http.Request) string {
	if id, ok := guard.IdentityFromContext(r.Context()); ok {
		return id.Username
	}
	return ""
}

func (h *handler) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	if err := h.views.render(w, status, name, p); err != nil {
		h.log.Error("render failed", zap.String("view", name), zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// fail renders name with the backend error shown, unless the error already
// turned into a redirect.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, name string, p page, err error, fallback string) {
	if h.redirected(w, r) {
		return
	}
	p.Error = api.Message(err, fallback)
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		p.Fields = apiErr.Fields
	}
	h.log.Info("screen backend error", zap.String("path", r.URL.Path), zap.Error(err))
	h.render(w, r, statusFor(err), name, p)
}

// statusFor maps a backend failure onto the status of the page showing it.
func statusFor(err error) int {
	switch s := api.StatusOf(err); {
	case errors.Is(err, errBadID):
		return http.StatusBadRequest
	case s >= 400 && s < 500:
		return s
	default:
		return http.StatusBadGateway
	}
}

// back picks where a form action returns to: the form's back field when it
// is a local path, else fallback.
func back(r *http.Request, fallback string) string {
	b := strings.TrimSpace(r.FormValue("back"))
	if strings.HasPrefix(b, "/") && !strings.HasPrefix(b, "//") && !strings.Contains(b, "\\") {
		return b
	}
	return fallback
}

func (h *handler) seeOther(w http.ResponseWriter, r *http.Request, target string) {
	if h.redirected(w, r) {
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func idParam(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s %q: %w", name, chi.URLParam(r, name), errBadID)
	}
	return id, nil
}

// readImage returns the uploaded image of a multipart form, or nil when the
// form carried none.
func readImage(r *http.Request) (*api.Image, error) {
	f, hdr, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if hdr.Size > maxUploadBytes {
		return nil, &api.Error{Status: http.StatusBadRequest, Message: "Image size must be less than 10MB"}
	}
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &api.Image{Filename: hdr.Filename, Data: data}, nil
}

func parseUpload(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return &api.Error{Status: http.StatusBadRequest, Message: "Image size must be less than 10MB"}
	}
	return nil
}
