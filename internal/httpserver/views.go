package httpserver

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"linkup/linkup-shell/internal/api"
	"linkup/linkup-shell/internal/auth"
)

//go:embed templates/*.html
var templateFS embed.FS

// page is the data every template receives. Screens fill in the fields they
// need.
type page struct {
	Title     string
	Path      string
	LoginPath string
	User      *auth.Identity
	Error     string
	Fields    map[string]string
	Notice    string
	Form      map[string]string

	Posts    []api.Post
	Post     *api.Post
	Comments []api.Comment
	Profile  *api.User
	Users    []api.User
	Tab      string
	Order    *api.PrimeOrder
	Prime    bool
}

type views struct {
	pages map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	"initial": func(s string) string {
		for _, r := range s {
			return strings.ToUpper(string(r))
		}
		return "?"
	},
	"date": func(t api.Timestamp) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006 15:04")
	},
	"ago": func(t api.Timestamp) string {
		return since(t.Time, time.Now())
	},
	"card": func(p page, post api.Post, back string) postCard {
		return postCard{Post: post, Back: back, Owned: p.User != nil && p.User.ID == post.User.ID}
	},
}

// postCard is what the shared post partial renders.
type postCard struct {
	Post  api.Post
	Back  string
	Owned bool
}

func newViews() (*views, error) {
	layout, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	v := &views{pages: make(map[string]*template.Template, len(files))}
	for _, f := range files {
		name := strings.TrimSuffix(path.Base(f), ".html")
		if name == "layout" {
			continue
		}
		t, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
		v.pages[name] = t
	}
	return v, nil
}

func (v *views) render(w http.ResponseWriter, status int, name string, data page) error {
	t, ok := v.pages[name]
	if !ok {
		return fmt.Errorf("unknown view %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func since(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
