package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *handler) registerPrimeScreens(r chi.Router) {
	r.Get("/prime", h.prime)
	r.Post("/prime/order", h.primeOrder)
	r.Post("/prime/activate", h.activatePrime)
}

func (h *handler) prime(w http.ResponseWriter, r *http.Request) {
	p := h.base(r, "LinkUp Prime")
	isPrime, err := h.backend.PrimeStatus(r.Context())
	if err != nil {
		h.fail(w, r, "prime", p, err, "Failed to load Prime status")
		return
	}
	if h.redirected(w, r) {
		return
	}
	p.Prime = isPrime
	h.render(w, r, http.StatusOK, "prime", p)
}

// primeOrder creates the backend order and shows its details for the user to
// confirm. Payment settlement happens outside the shell.
func (h *handler) primeOrder(w http.ResponseWriter, r *http.Request) {
	p := h.base(r, "LinkUp Prime")
	order, err := h.backend.CreatePrimeOrder(r.Context())
	if err != nil {
		h.fail(w, r, "prime", p, err, "Failed to create order. Please try again.")
		return
	}
	if h.redirected(w, r) {
		return
	}
	h.auditReq(r, actor(r), "prime.order", order.OrderID, "success", "")
	p.Order = &order
	h.render(w, r, http.StatusOK, "prime", p)
}

func (h *handler) activatePrime(w http.ResponseWriter, r *http.Request) {
	p := h.base(r, "LinkUp Prime")
	ctx := r.Context()
	if err := h.backend.ActivatePrime(ctx); err != nil {
		h.auditReq(r, actor(r), "prime.activate", "", "failed", err.Error())
		h.fail(w, r, "prime", p, err, "Failed to activate prime. Please contact support.")
		return
	}
	h.auditReq(r, actor(r), "prime.activate", "", "success", "")
	// The Prime badge lives on the identity, so re-read it.
	if me, err := h.backend.Profile(ctx); err == nil {
		h.session.UpdateIdentity(me)
	}
	h.seeOther(w, r, "/profile")
}
