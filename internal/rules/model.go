package rules

import "time"

// PostingRule maps a document type and role key to a ledger account for a
// company, e.g. (INVOICE, RECEIVABLE) -> "1200". Rules are configuration:
// maintained by setup, read by the posting engine.
type PostingRule struct {
	CompanyID    int64
	DocumentType string
	Key          string
	AccountCode  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Well-known rule keys consumed by the posting engine.
const (
	KeyReceivable = "RECEIVABLE"
	KeyRevenue    = "REVENUE"
)
