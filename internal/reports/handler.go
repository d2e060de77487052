package reports

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian/internal/platform/httpx"
)

type Handler struct {
	service   *Service
	logger    *slog.Logger
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/balance-sheet", h.BalanceSheet)
	r.Get("/income-statement", h.IncomeStatement)
	r.Get("/trial-balance", h.TrialBalance)
}

type asOfParams struct {
	CompanyID int64  `validate:"required,gt=0"`
	AsOf      string `validate:"required,datetime=2006-01-02"`
}

type rangeParams struct {
	CompanyID int64  `validate:"required,gt=0"`
	StartDate string `validate:"required,datetime=2006-01-02"`
	EndDate   string `validate:"required,datetime=2006-01-02"`
}

func (h *Handler) BalanceSheet(w http.ResponseWriter, r *http.Request) {
	params := asOfParams{
		CompanyID: queryInt64(r, "company_id"),
		AsOf:      r.URL.Query().Get("as_of_date"),
	}
	if err := h.validator.Struct(params); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "company_id and as_of_date (YYYY-MM-DD) are required")
		return
	}
	asOf, _ := time.Parse(dateFormat, params.AsOf)
	report, err := h.service.BalanceSheet(r.Context(), params.CompanyID, asOf)
	if err != nil {
		h.logger.Error("balance sheet", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) IncomeStatement(w http.ResponseWriter, r *http.Request) {
	params := rangeParams{
		CompanyID: queryInt64(r, "company_id"),
		StartDate: r.URL.Query().Get("start_date"),
		EndDate:   r.URL.Query().Get("end_date"),
	}
	if err := h.validator.Struct(params); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "company_id, start_date and end_date (YYYY-MM-DD) are required")
		return
	}
	start, _ := time.Parse(dateFormat, params.StartDate)
	end, _ := time.Parse(dateFormat, params.EndDate)
	if end.Before(start) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "end_date must not precede start_date")
		return
	}
	report, err := h.service.IncomeStatement(r.Context(), params.CompanyID, start, end)
	if err != nil {
		h.logger.Error("income statement", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	params := asOfParams{
		CompanyID: queryInt64(r, "company_id"),
		AsOf:      r.URL.Query().Get("as_of_date"),
	}
	if err := h.validator.Struct(params); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "company_id and as_of_date (YYYY-MM-DD) are required")
		return
	}
	asOf, _ := time.Parse(dateFormat, params.AsOf)
	report, err := h.service.TrialBalance(r.Context(), params.CompanyID, asOf)
	if err != nil {
		h.logger.Error("trial balance", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func queryInt64(r *http.Request, name string) int64 {
	v, _ := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	return v
}
