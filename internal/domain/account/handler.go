package account

import (
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/pointhub/pointhub-api/internal/middleware"
	"github.com/pointhub/pointhub-api/internal/pkg/errorhandler"
	"github.com/pointhub/pointhub-api/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Me handles GET /accounts/me. The first call provisions the account.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	acct, err := h.svc.Ensure(ctx, middleware.GetAccountID(ctx), Role(middleware.GetRole(ctx)))
	if err != nil {
		if errors.Is(err, ErrInvalidRole) {
			response.Forbidden(w, "token does not carry a ledger role")
			return
		}
		errorhandler.Internal(ctx, w, "account.me", err)
		return
	}

	response.OK(w, map[string]interface{}{
		"account": acct,
		"level":   acct.Level(),
	})
}

// Provision makes sure the caller's ledger row exists and carries the token's role
// before the wrapped handler runs. An id already provisioned with the same role skips the write.
func Provision(svc *Service) func(http.Handler) http.Handler {
	var known sync.Map

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id := middleware.GetAccountID(ctx)
			role := Role(middleware.GetRole(ctx))

			if seen, ok := known.Load(id); !ok || seen.(Role) != role {
				if _, err := svc.Ensure(ctx, id, role); err != nil {
					if errors.Is(err, ErrInvalidRole) {
						response.Forbidden(w, "token does not carry a ledger role")
						return
					}
					errorhandler.Internal(ctx, w, "account.provision", err)
					return
				}
				known.Store(id, role)
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/me", h.Me)
	return r
}
