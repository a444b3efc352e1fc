package audit

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

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

// List handles GET /admin/audit-logs
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := Filter{Limit: 50}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 && v <= 100 {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v >= 0 {
		filter.Offset = v
	}
	if action := q.Get("action"); action != "" {
		filter.Action = &action
	}
	if targetType := q.Get("target_type"); targetType != "" {
		filter.TargetType = &targetType
	}
	for param, dst := range map[string]**uuid.UUID{"actor_id": &filter.ActorID, "target_id": &filter.TargetID} {
		raw := q.Get(param)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(w, "Invalid "+param)
			return
		}
		*dst = &id
	}

	entries, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		errorhandler.Internal(r.Context(), w, "audit.list", err)
		return
	}

	items := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		items[i] = EntryResponseFromEntity(e)
	}
	response.WithMeta(w, items, total, filter.Limit, filter.Offset)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(middleware.RequireAdmin())
	r.Get("/", h.List)
	return r
}
