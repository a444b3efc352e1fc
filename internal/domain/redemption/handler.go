package redemption

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pointhub/pointhub-api/internal/domain/account"
	"github.com/pointhub/pointhub-api/internal/domain/ledger"
	"github.com/pointhub/pointhub-api/internal/domain/reward"
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

// Redeem handles POST /rewards/{id}/redeem
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	rewardID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid reward ID")
		return
	}

	rd, err := h.service.Redeem(r.Context(), middleware.GetAccountID(r.Context()), rewardID)
	if err != nil {
		h.writeError(w, r, "redemption.redeem", err)
		return
	}
	response.Created(w, RedemptionResponseFromEntity(rd, h.service.Now()))
}

// List handles GET /redemptions. Businesses see redemptions of their rewards,
// everybody else sees their own.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := middleware.GetAccountID(ctx)
	limit, offset := pagination(r)

	var (
		items []*Redemption
		err   error
	)
	if middleware.GetRole(ctx) == middleware.RoleBusiness {
		status := Status(strings.ToUpper(r.URL.Query().Get("status")))
		if status != "" && !status.Valid() {
			response.BadRequest(w, "Invalid status filter")
			return
		}
		items, err = h.service.ListByBusiness(ctx, accountID, status, limit, offset)
	} else {
		items, err = h.service.ListByUser(ctx, accountID, limit, offset)
	}
	if err != nil {
		errorhandler.Internal(ctx, w, "redemption.list", err)
		return
	}

	now := h.service.Now()
	resp := make([]*RedemptionResponse, len(items))
	for i, rd := range items {
		resp[i] = RedemptionResponseFromEntity(rd, now)
	}
	response.WithMeta(w, resp, len(resp), limit, offset)
}

// GetByID handles GET /redemptions/{id}
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	rd, legs, err := h.service.GetDetail(ctx, id, middleware.GetAccountID(ctx), middleware.GetRole(ctx))
	if err != nil {
		h.writeError(w, r, "redemption.get", err)
		return
	}
	response.OK(w, &RedemptionDetailResponse{
		RedemptionResponse: RedemptionResponseFromEntity(rd, h.service.Now()),
		Legs:               legs,
	})
}

// GetByCoupon handles GET /redemptions/coupon/{code}
func (h *Handler) GetByCoupon(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code")))
	if code == "" {
		response.BadRequest(w, "Invalid coupon code")
		return
	}

	rd, err := h.service.FindByCoupon(r.Context(), middleware.GetAccountID(r.Context()), code)
	if err != nil {
		h.writeError(w, r, "redemption.coupon", err)
		return
	}
	response.OK(w, RedemptionResponseFromEntity(rd, h.service.Now()))
}

// Approve handles POST /redemptions/{id}/approve
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	rd, err := h.service.Approve(r.Context(), id, middleware.GetAccountID(r.Context()))
	if err != nil {
		h.writeError(w, r, "redemption.approve", err)
		return
	}
	response.OK(w, RedemptionResponseFromEntity(rd, h.service.Now()))
}

// MarkUsed handles POST /redemptions/{id}/use
func (h *Handler) MarkUsed(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	rd, err := h.service.MarkUsed(r.Context(), id, middleware.GetAccountID(r.Context()))
	if err != nil {
		h.writeError(w, r, "redemption.use", err)
		return
	}
	response.OK(w, RedemptionResponseFromEntity(rd, h.service.Now()))
}

// Cancel handles POST /redemptions/{id}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	rd, err := h.service.Cancel(ctx, id, middleware.GetAccountID(ctx), middleware.GetRole(ctx))
	if err != nil {
		h.writeError(w, r, "redemption.cancel", err)
		return
	}
	response.OK(w, RedemptionResponseFromEntity(rd, h.service.Now()))
}

// Expire handles POST /admin/redemptions/expire
func (h *Handler) Expire(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.ExpireStale(r.Context())
	if err != nil && count == 0 {
		errorhandler.Internal(r.Context(), w, "redemption.expire", err)
		return
	}
	response.OK(w, SweepResponse{Expired: count})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, ErrRedemptionNotFound):
		response.NotFound(w, "Redemption not found")
	case errors.Is(err, reward.ErrRewardNotFound):
		response.NotFound(w, "Reward not found")
	case errors.Is(err, account.ErrAccountNotFound):
		response.NotFound(w, "Account not found")
	case errors.Is(err, ErrUnauthorized):
		response.Forbidden(w, "Not allowed to act on this redemption")
	case errors.Is(err, ErrOwnReward):
		response.Forbidden(w, "A business cannot redeem its own reward")
	case errors.Is(err, ErrInvalidTransition):
		errorhandler.Precondition(ctx, w, "INVALID_TRANSITION", "Redemption cannot move to that status", err)
	case errors.Is(err, ErrRedemptionExpired):
		errorhandler.Precondition(ctx, w, "REDEMPTION_EXPIRED", "Redemption has expired", err)
	case errors.Is(err, ErrDuplicateRedemption):
		errorhandler.Precondition(ctx, w, "DUPLICATE_REQUEST", "Redemption already in progress", err)
	case errors.Is(err, reward.ErrRewardInactive):
		errorhandler.Precondition(ctx, w, "REWARD_INACTIVE", "Reward is not active", err)
	case errors.Is(err, reward.ErrRewardNotStarted):
		errorhandler.Precondition(ctx, w, "REWARD_NOT_STARTED", "Reward is not yet available", err)
	case errors.Is(err, reward.ErrRewardExpired):
		errorhandler.Precondition(ctx, w, "REWARD_EXPIRED", "Reward has expired", err)
	case errors.Is(err, reward.ErrRewardSoldOut):
		errorhandler.Precondition(ctx, w, "REWARD_SOLD_OUT", "Reward is sold out", err)
	case errors.Is(err, reward.ErrEligibilityNotMet):
		errorhandler.Precondition(ctx, w, "ELIGIBILITY_NOT_MET", "Reward eligibility requirements not met", err)
	case errors.Is(err, ledger.ErrInsufficientBalance):
		errorhandler.Precondition(ctx, w, "INSUFFICIENT_BALANCE", "Not enough points", err)
	default:
		errorhandler.Internal(ctx, w, op, err)
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid redemption ID")
		return uuid.Nil, false
	}
	return id, true
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 20
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o >= 0 {
		offset = o
	}
	return limit, offset
}

// Routes mounts under /redemptions
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)
	r.Post("/{id}/cancel", h.Cancel)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireBusiness())
		r.Get("/coupon/{code}", h.GetByCoupon)
		r.Post("/{id}/approve", h.Approve)
		r.Post("/{id}/use", h.MarkUsed)
	})

	return r
}
