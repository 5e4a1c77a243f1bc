package httpserver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"linkup/linkup-shell/internal/api"
	"linkup/linkup-shell/internal/auth"
)

func (h *handler) registerAuthScreens(r chi.Router) {
	r.Get(h.routes.Login, h.loginForm)
	r.Post(h.routes.Login, h.login)
	r.Get("/register", h.registerForm)
	r.Post("/register", h.register)
	r.Get("/verify-otp", h.verifyForm)
	r.Post("/verify-otp", h.verify)
	r.Post("/verify-otp/resend", h.resendOTP)
}

func (h *handler) loginForm(w http.ResponseWriter, r *http.Request) {
	p := h.base(r, "Log in")
	if r.URL.Query().Get("verified") != "" {
		p.Notice = "Email verified. You can log in now."
	}
	h.render(w, r, http.StatusOK, "login", p)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	p := h.base(r, "Log in")
	creds := auth.Credentials{
		Username: strings.TrimSpace(r.FormValue("username")),
		Password: r.FormValue("password"),
	}
	p.Form = map[string]string{"username": creds.Username}
	if creds.Username == "" || creds.Password == "" {
		p.Error = "Username and password are required"
		h.render(w, r, http.StatusBadRequest, "login", p)
		return
	}

	// A double submit of the same form shares the first attempt instead of
	// racing it. Different passwords never share a result.
	v, err, shared := h.logins.Do(loginKey(creds), func() (any, error) {
		return h.session.Login(r.Context(), creds)
	})
	if err != nil {
		h.auditReq(r, creds.Username, "screen.login", "", "failed", err.Error())
		h.fail(w, r, "login", p, err, "Invalid username or password")
		return
	}
	id := v.(auth.Identity)
	h.log.Info("login via web shell", zap.String("username", id.Username), zap.Bool("shared", shared))
	http.Redirect(w, r, h.routes.Landing, http.StatusFound)
}

// loginKey identifies one submitted username and password pair without
// keeping the password itself.
func loginKey(creds auth.Credentials) string {
	sum := sha256.Sum256([]byte(creds.Password))
	return creds.Username + "\x00" + hex.EncodeToString(sum[:])
}

func (h *handler) registerForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "register", h.base(r, "Create account"))
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	p := h.base(r, "Create account")
	reg := api.Registration{
		Firstname:       strings.TrimSpace(r.FormValue("firstname")),
		Lastname:        strings.TrimSpace(r.FormValue("lastname")),
		Username:        strings.TrimSpace(r.FormValue("username")),
		Email:           strings.TrimSpace(r.FormValue("email")),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirmPassword"),
		Gender:          r.FormValue("gender"),
	}
	p.Form = map[string]string{
		"firstname": reg.Firstname,
		"lastname":  reg.Lastname,
		"username":  reg.Username,
		"email":     reg.Email,
		"mobile":    r.FormValue("mobile"),
		"gender":    reg.Gender,
	}
	if m := strings.TrimSpace(r.FormValue("mobile")); m != "" {
		mobile, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			p.Error = "Mobile number must contain digits only"
			h.render(w, r, http.StatusBadRequest, "register", p)
			return
		}
		reg.Mobile = mobile
	}

	res, err := h.backend.Register(r.Context(), reg)
	if err != nil {
		h.fail(w, r, "register", p, err, "Registration failed")
		return
	}
	h.auditReq(r, reg.Username, "screen.register", strconv.Itoa(res.User.ID), "success", "")
	http.Redirect(w, r, fmt.Sprintf("/verify-otp?userId=%d", res.User.ID), http.StatusFound)
}

func (h *handler) verifyForm(w http.ResponseWriter, r *http.Request) {
	p := h.base(r, "Verify email")
	p.Form = map[string]string{"userId": r.URL.Query().Get("userId")}
	if p.Form["userId"] == "" {
		http.Redirect(w, r, "/register", http.StatusFound)
		return
	}
	h.render(w, r, http.StatusOK, "verify_otp", p)
}

func (h *handler) verify(w http.ResponseWriter, r *http.Request) {
	p := h.base(r, "Verify email")
	p.Form = map[string]string{"userId": r.FormValue("userId")}
	userID, err := strconv.Atoi(r.FormValue("userId"))
	if err != nil || userID <= 0 {
		http.Redirect(w, r, "/register", http.StatusFound)
		return
	}
	otp, err := strconv.Atoi(strings.TrimSpace(r.FormValue("otp")))
	if err != nil {
		p.Error = "Enter the 6-digit code from your email"
		h.render(w, r, http.StatusBadRequest, "verify_otp", p)
		return
	}
	if _, err := h.backend.VerifyOTP(r.Context(), userID, otp); err != nil {
		h.fail(w, r, "verify_otp", p, err, "Invalid OTP")
		return
	}
	http.Redirect(w, r, h.routes.Login+"?verified=1", http.StatusFound)
}

func (h *handler) resendOTP(w http.ResponseWriter, r *http.Request) {
	p := h.base(r, "Verify email")
	p.Form = map[string]string{"userId": r.FormValue("userId")}
	userID, err := strconv.Atoi(r.FormValue("userId"))
	if err != nil || userID <= 0 {
		http.Redirect(w, r, "/register", http.StatusFound)
		return
	}
	if err := h.backend.ResendOTP(r.Context(), userID); err != nil {
		h.fail(w, r, "verify_otp", p, err, "Failed to resend OTP")
		return
	}
	p.Notice = "OTP resent successfully"
	h.render(w, r, http.StatusOK, "verify_otp", p)
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	username := ""
	if st := h.session.Snapshot(); st.Identity != nil {
		username = st.Identity.Username
	}
	// Logout always leaves the session anonymous; errors are only reported.
	if err := h.session.Logout(r.Context()); err != nil {
		h.log.Warn("logout finished with errors", zap.String("username", username), zap.Error(err))
	}
	h.auditReq(r, username, "screen.logout", "", "success", "")
	http.Redirect(w, r, h.routes.Login, http.StatusFound)
}
