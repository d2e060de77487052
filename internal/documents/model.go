package documents

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/coa"
)

// DocumentType enumerates postable document kinds.
type DocumentType string

const (
	TypeInvoice DocumentType = "INVOICE"
	TypeJournal DocumentType = "JOURNAL"
)

// Status enumerates document lifecycle values.
type Status string

const (
	StatusDraft  Status = "DRAFT"
	StatusPosted Status = "POSTED"
	StatusVoided Status = "VOIDED"
)

// ErrNotFound indicates a missing document.
var ErrNotFound = errors.New("documents: not found")

// ErrNotDraft indicates a mutation attempt on a non-draft document.
var ErrNotDraft = errors.New("documents: only draft documents may be modified")

// InvalidTransitionError reports an illegal lifecycle transition.
type InvalidTransitionError struct {
	Current   Status
	Requested Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("documents: cannot transition from %s to %s", e.Current, e.Requested)
}

// Line is a debit or credit posting line owned by a document.
type Line struct {
	ID          int64
	DocumentID  int64
	AccountCode string
	Side        coa.Side
	Amount      decimal.Decimal
	Description string
}

// Document is an invoice or manual journal. Lines are composed: they are
// created and deleted together with the document while it is a draft.
type Document struct {
	ID             int64
	CompanyID      int64
	Type           DocumentType
	Number         string
	ExternalRef    uuid.UUID
	Status         Status
	Date           time.Time
	CounterpartyID *int64
	Memo           string
	Total          decimal.Decimal
	CreatedBy      int64
	PostedBy       *int64
	PostedAt       *time.Time
	VoidedBy       *int64
	VoidedAt       *time.Time
	VoidReason     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Lines          []Line
}
