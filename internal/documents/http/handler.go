// Package http exposes the document CRUD and post/void endpoints.
package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/coa"
	"github.com/meridian-erp/meridian/internal/documents"
	"github.com/meridian-erp/meridian/internal/ledger"
	"github.com/meridian-erp/meridian/internal/platform/httpx"
	"github.com/meridian-erp/meridian/internal/rules"
	"github.com/meridian-erp/meridian/internal/shared"
)

// Handler serves one document type (invoices or journals) so that routes
// can be mounted per resource the way the API is shaped.
type Handler struct {
	docType   documents.DocumentType
	docs      *documents.Service
	ledger    *ledger.Service
	logger    *slog.Logger
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, docType documents.DocumentType, docs *documents.Service, ledgerSvc *ledger.Service) *Handler {
	return &Handler{
		docType:   docType,
		docs:      docs,
		ledger:    ledgerSvc,
		logger:    logger,
		validator: validator.New(),
	}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/post", h.Post)
	r.Post("/{id}/void", h.Void)
	r.Get("/{id}/entries", h.Entries)
}

type lineRequest struct {
	AccountCode string `json:"account_code" validate:"required"`
	Side        string `json:"side" validate:"required,oneof=DEBIT CREDIT"`
	Amount      string `json:"amount" validate:"required"`
	Description string `json:"description"`
}

type draftRequest struct {
	CompanyID      int64         `json:"company_id" validate:"required,gt=0"`
	Number         string        `json:"number"`
	Date           string        `json:"date" validate:"required,datetime=2006-01-02"`
	CounterpartyID *int64        `json:"counterparty_id"`
	Memo           string        `json:"memo"`
	Total          string        `json:"total"`
	Lines          []lineRequest `json:"lines" validate:"dive"`
}

type voidRequest struct {
	CompanyID int64  `json:"company_id" validate:"required,gt=0"`
	Reason    string `json:"reason" validate:"required"`
}

func (h *Handler) draftInput(r *http.Request, req draftRequest) (documents.DraftInput, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return documents.DraftInput{}, err
	}
	total := decimal.Zero
	if req.Total != "" {
		if total, err = decimal.NewFromString(req.Total); err != nil {
			return documents.DraftInput{}, err
		}
	}
	lines := make([]documents.LineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		amount, err := decimal.NewFromString(l.Amount)
		if err != nil {
			return documents.DraftInput{}, err
		}
		lines = append(lines, documents.LineInput{
			AccountCode: l.AccountCode,
			Side:        coa.Side(l.Side),
			Amount:      amount,
			Description: l.Description,
		})
	}
	return documents.DraftInput{
		CompanyID:      req.CompanyID,
		Type:           h.docType,
		Number:         req.Number,
		Date:           date,
		CounterpartyID: req.CounterpartyID,
		Memo:           req.Memo,
		Total:          total,
		CreatedBy:      shared.ActorFromContext(r.Context()),
		Lines:          lines,
	}, nil
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input, err := h.draftInput(r, req)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	doc, err := h.docs.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toDocumentResponse(doc))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, companyID, ok := h.pathParams(w, r)
	if !ok {
		return
	}
	if _, ok := h.loadTyped(w, r, companyID, id); !ok {
		return
	}
	var req draftRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	req.CompanyID = companyID
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input, err := h.draftInput(r, req)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	doc, err := h.docs.Replace(r.Context(), companyID, id, input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, companyID, ok := h.pathParams(w, r)
	if !ok {
		return
	}
	doc, ok := h.loadTyped(w, r, companyID, id)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	companyID, err := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	if err != nil || companyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "company_id is required")
		return
	}
	docs, err := h.docs.List(r.Context(), companyID, h.docType)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"documents": out})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, companyID, ok := h.pathParams(w, r)
	if !ok {
		return
	}
	if _, ok := h.loadTyped(w, r, companyID, id); !ok {
		return
	}
	if err := h.docs.DeleteDraft(r.Context(), companyID, id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	id, companyID, ok := h.pathParams(w, r)
	if !ok {
		return
	}
	if _, ok := h.loadTyped(w, r, companyID, id); !ok {
		return
	}
	actorID := shared.ActorFromContext(r.Context())
	doc, err := h.ledger.Post(r.Context(), companyID, id, actorID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) Void(w http.ResponseWriter, r *http.Request) {
	// company_id travels in the body here, not the query
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req voidRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "company_id and reason are required")
		return
	}
	if _, ok := h.loadTyped(w, r, req.CompanyID, id); !ok {
		return
	}
	actorID := shared.ActorFromContext(r.Context())
	doc, err := h.ledger.Void(r.Context(), req.CompanyID, id, actorID, req.Reason)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) Entries(w http.ResponseWriter, r *http.Request) {
	id, companyID, ok := h.pathParams(w, r)
	if !ok {
		return
	}
	if _, ok := h.loadTyped(w, r, companyID, id); !ok {
		return
	}
	entries, err := h.ledger.Entries(r.Context(), companyID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": out})
}

// pathID reads the document id from the path, rejecting malformed values.
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid document id")
		return 0, false
	}
	return id, true
}

// pathParams reads the document id from the path and the mandatory
// company_id query parameter.
func (h *Handler) pathParams(w http.ResponseWriter, r *http.Request) (id, companyID int64, ok bool) {
	id, ok = h.pathID(w, r)
	if !ok {
		return 0, 0, false
	}
	companyID, err := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	if err != nil || companyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "company_id is required")
		return 0, 0, false
	}
	return id, companyID, true
}

// loadTyped fetches the document and hides it when it belongs to the
// other resource, so a journal is never reachable through /invoices.
func (h *Handler) loadTyped(w http.ResponseWriter, r *http.Request, companyID, id int64) (documents.Document, bool) {
	doc, err := h.docs.Get(r.Context(), companyID, id)
	if err != nil {
		h.respondError(w, err)
		return documents.Document{}, false
	}
	if doc.Type != h.docType {
		h.respondError(w, documents.ErrNotFound)
		return documents.Document{}, false
	}
	return doc, true
}

// respondError translates the domain error taxonomy into HTTP statuses:
// missing resources 404, lost concurrent races 409, illegal transitions
// and semantic posting failures 400, permission denials 403.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var transition *documents.InvalidTransitionError
	var imbalance *ledger.ImbalancedError
	switch {
	case errors.Is(err, documents.ErrNotFound), errors.Is(err, coa.ErrAccountNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &transition):
		httpx.Problem(w, http.StatusBadRequest, "Invalid State Transition", transition.Error())
	case errors.Is(err, ledger.ErrConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.As(err, &imbalance):
		httpx.Problem(w, http.StatusBadRequest, "Imbalanced Entry", imbalance.Error())
	case errors.Is(err, ledger.ErrEmptyDocument), errors.Is(err, rules.ErrRuleNotFound):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ledger.ErrForbidden):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ledger.ErrVoidReasonRequired), errors.Is(err, documents.ErrNotDraft):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("document handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
