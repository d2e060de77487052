package http

import (
	"time"

	"github.com/meridian-erp/meridian/internal/documents"
	"github.com/meridian-erp/meridian/internal/ledger"
)

type lineResponse struct {
	ID          int64  `json:"id"`
	AccountCode string `json:"account_code"`
	Side        string `json:"side"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}

type documentResponse struct {
	ID             int64          `json:"id"`
	CompanyID      int64          `json:"company_id"`
	Type           string         `json:"type"`
	Number         string         `json:"number"`
	Status         string         `json:"status"`
	Date           string         `json:"date"`
	CounterpartyID *int64         `json:"counterparty_id,omitempty"`
	Memo           string         `json:"memo,omitempty"`
	Total          string         `json:"total"`
	CreatedBy      int64          `json:"created_by"`
	PostedBy       *int64         `json:"posted_by,omitempty"`
	PostedAt       *time.Time     `json:"posted_at,omitempty"`
	VoidedBy       *int64         `json:"voided_by,omitempty"`
	VoidedAt       *time.Time     `json:"voided_at,omitempty"`
	VoidReason     string         `json:"void_reason,omitempty"`
	Lines          []lineResponse `json:"lines"`
}

func toDocumentResponse(d documents.Document) documentResponse {
	lines := make([]lineResponse, 0, len(d.Lines))
	for _, l := range d.Lines {
		lines = append(lines, lineResponse{
			ID:          l.ID,
			AccountCode: l.AccountCode,
			Side:        string(l.Side),
			Amount:      l.Amount.String(),
			Description: l.Description,
		})
	}
	return documentResponse{
		ID:             d.ID,
		CompanyID:      d.CompanyID,
		Type:           string(d.Type),
		Number:         d.Number,
		Status:         string(d.Status),
		Date:           d.Date.Format("2006-01-02"),
		CounterpartyID: d.CounterpartyID,
		Memo:           d.Memo,
		Total:          d.Total.String(),
		CreatedBy:      d.CreatedBy,
		PostedBy:       d.PostedBy,
		PostedAt:       d.PostedAt,
		VoidedBy:       d.VoidedBy,
		VoidedAt:       d.VoidedAt,
		VoidReason:     d.VoidReason,
		Lines:          lines,
	}
}

type entryResponse struct {
	ID              int64  `json:"id"`
	AccountCode     string `json:"account_code"`
	Side            string `json:"side"`
	Amount          string `json:"amount"`
	EntryDate       string `json:"entry_date"`
	IsReversal      bool   `json:"is_reversal"`
	ReversesEntryID *int64 `json:"reverses_entry_id,omitempty"`
}

func toEntryResponse(e ledger.Entry) entryResponse {
	return entryResponse{
		ID:              e.ID,
		AccountCode:     e.AccountCode,
		Side:            string(e.Side),
		Amount:          e.Amount.String(),
		EntryDate:       e.EntryDate.Format("2006-01-02"),
		IsReversal:      e.IsReversal,
		ReversesEntryID: e.ReversesEntryID,
	}
}
