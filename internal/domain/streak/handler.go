package streak

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pointhub/pointhub-api/internal/middleware"
	"github.com/pointhub/pointhub-api/internal/pkg/errorhandler"
	"github.com/pointhub/pointhub-api/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Claim handles POST /streaks/claim. A second claim on the same day answers 200
// with already_claimed_today set.
func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ClaimDaily(r.Context(), middleware.GetAccountID(r.Context()))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			response.NotFound(w, "Account not found")
			return
		}
		errorhandler.Internal(r.Context(), w, "streak.claim", err)
		return
	}
	response.OK(w, result)
}

// Status handles GET /streaks
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.GetStatus(r.Context(), middleware.GetAccountID(r.Context()))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			response.NotFound(w, "Account not found")
			return
		}
		errorhandler.Internal(r.Context(), w, "streak.status", err)
		return
	}
	response.OK(w, status)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.Status)
	r.Post("/claim", h.Claim)
	return r
}
