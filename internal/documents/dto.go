package documents

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/coa"
)

// LineInput describes a posting line for a draft document.
type LineInput struct {
	AccountCode string
	Side        coa.Side
	Amount      decimal.Decimal
	Description string
}

// DraftInput groups fields required to create or replace a draft document.
type DraftInput struct {
	CompanyID      int64
	Type           DocumentType
	Number         string
	Date           time.Time
	CounterpartyID *int64
	Memo           string
	Total          decimal.Decimal
	CreatedBy      int64
	Lines          []LineInput
}

// Validate ensures draft input meets minimum criteria. Balance is not
// enforced here: drafts may be saved unbalanced and are checked at posting.
func (in DraftInput) Validate() error {
	if in.CompanyID == 0 {
		return errors.New("documents: company required")
	}
	if in.Type != TypeInvoice && in.Type != TypeJournal {
		return fmt.Errorf("documents: unknown type %q", in.Type)
	}
	if in.Date.IsZero() {
		return errors.New("documents: date required")
	}
	if in.Total.IsNegative() {
		return errors.New("documents: total cannot be negative")
	}
	for idx, line := range in.Lines {
		if line.AccountCode == "" {
			return fmt.Errorf("documents: line %d missing account code", idx)
		}
		if line.Side != coa.SideDebit && line.Side != coa.SideCredit {
			return fmt.Errorf("documents: line %d invalid side %q", idx, line.Side)
		}
		if !line.Amount.IsPositive() {
			return fmt.Errorf("documents: line %d amount must be positive", idx)
		}
	}
	return nil
}
