package ledger

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pointhub/pointhub-api/internal/middleware"
	"github.com/pointhub/pointhub-api/internal/pkg/errorhandler"
	"github.com/pointhub/pointhub-api/internal/pkg/response"
	"github.com/pointhub/pointhub-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Transactions handles GET /points/transactions
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	txns, err := h.svc.ListTransactions(r.Context(), middleware.GetAccountID(r.Context()), limit, offset)
	if err != nil {
		errorhandler.Internal(r.Context(), w, "ledger.transactions", err)
		return
	}
	response.WithMeta(w, txns, len(txns), limit, offset)
}

// Verify handles GET /points/verify
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	h.verify(w, r, middleware.GetAccountID(r.Context()))
}

// VerifyAccount handles GET /admin/points/accounts/{id}/verify
func (h *Handler) VerifyAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid account ID")
		return
	}
	h.verify(w, r, accountID)
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request, accountID uuid.UUID) {
	check, err := h.svc.Verify(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			response.NotFound(w, "Account not found")
			return
		}
		errorhandler.Internal(r.Context(), w, "ledger.verify", err)
		return
	}
	response.OK(w, check)
}

// Convert handles POST /points/convert
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.Validation(r.Context(), w, errs)
		return
	}

	conversion, err := h.svc.ConvertPoints(r.Context(), middleware.GetAccountID(r.Context()), req.Points)
	if err != nil {
		h.writeError(w, r, "ledger.convert", err)
		return
	}
	response.OK(w, conversion)
}

// Award handles POST /admin/points/award
func (h *Handler) Award(w http.ResponseWriter, r *http.Request) {
	req, accountID, ok := decodePointsRequest(w, r)
	if !ok {
		return
	}

	txn, err := h.svc.AwardPoints(r.Context(), accountID, req.Amount, req.Reason, req.RelatedEntityID)
	if err != nil {
		h.writeError(w, r, "ledger.award", err)
		return
	}
	response.Created(w, txn)
}

// Spend handles POST /admin/points/spend
func (h *Handler) Spend(w http.ResponseWriter, r *http.Request) {
	req, accountID, ok := decodePointsRequest(w, r)
	if !ok {
		return
	}

	txn, err := h.svc.SpendPoints(r.Context(), accountID, req.Amount, req.Reason, req.RelatedEntityID)
	if err != nil {
		h.writeError(w, r, "ledger.spend", err)
		return
	}
	response.Created(w, txn)
}

// CompleteMission handles POST /admin/points/missions/{id}/complete
func (h *Handler) CompleteMission(w http.ResponseWriter, r *http.Request) {
	missionID := chi.URLParam(r, "id")
	if missionID == "" {
		response.BadRequest(w, "Invalid mission ID")
		return
	}

	var req MissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.Validation(r.Context(), w, errs)
		return
	}

	txn, err := h.svc.CompleteMission(r.Context(), uuid.MustParse(req.AccountID), missionID, req.Points)
	if err != nil {
		h.writeError(w, r, "ledger.mission", err)
		return
	}
	response.Created(w, txn)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidKind):
		response.BadRequest(w, "amount must be a positive number of points")
	case errors.Is(err, ErrConversionTooSmall):
		response.BadRequest(w, "points are worth less than the smallest credit unit")
	case errors.Is(err, ErrAccountNotFound):
		response.NotFound(w, "Account not found")
	case errors.Is(err, ErrInsufficientBalance):
		errorhandler.Precondition(r.Context(), w, "INSUFFICIENT_BALANCE", "Not enough points", err)
	case errors.Is(err, ErrMissionClaimed):
		errorhandler.Precondition(r.Context(), w, "ALREADY_CLAIMED", "Mission reward already claimed", err)
	default:
		errorhandler.Internal(r.Context(), w, op, err)
	}
}

func decodePointsRequest(w http.ResponseWriter, r *http.Request) (*PointsRequest, uuid.UUID, bool) {
	var req PointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return nil, uuid.Nil, false
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.Validation(r.Context(), w, errs)
		return nil, uuid.Nil, false
	}
	return &req, uuid.MustParse(req.AccountID), true
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

// Routes serves the caller's own ledger
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/transactions", h.Transactions)
	r.Get("/verify", h.Verify)
	r.With(middleware.RequireBusiness()).Post("/convert", h.Convert)
	return r
}

// AdminRoutes serves back-office point adjustments and mission awards
func (h *Handler) AdminRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(middleware.RequireAdmin())
	r.Post("/award", h.Award)
	r.Post("/spend", h.Spend)
	r.Post("/missions/{id}/complete", h.CompleteMission)
	r.Get("/accounts/{id}/verify", h.VerifyAccount)
	return r
}
