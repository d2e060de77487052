package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/coa"
	"github.com/meridian-erp/meridian/internal/documents"
)

// Entry is an immutable ledger record. Entries are only ever inserted;
// corrections happen through compensating reversal entries.
type Entry struct {
	ID              int64
	CompanyID       int64
	DocumentID      int64
	DocumentType    documents.DocumentType
	AccountCode     string
	Side            coa.Side
	Amount          decimal.Decimal
	EntryDate       time.Time
	IsReversal      bool
	ReversesEntryID *int64
	CreatedAt       time.Time
}

// EntryInput describes a ledger row to insert.
type EntryInput struct {
	CompanyID       int64
	DocumentID      int64
	DocumentType    documents.DocumentType
	AccountCode     string
	Side            coa.Side
	Amount          decimal.Decimal
	EntryDate       time.Time
	IsReversal      bool
	ReversesEntryID *int64
}

// AccountSum carries raw debit/credit totals for one account over a window.
type AccountSum struct {
	AccountCode string
	AccountName string
	AccountType coa.AccountType
	NormalSide  coa.Side
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// AccountBalance is an account's signed net balance over a window. The net
// is positive when the account carries a balance on its normal side.
type AccountBalance struct {
	AccountCode string
	AccountName string
	AccountType coa.AccountType
	NormalSide  coa.Side
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Net         decimal.Decimal
}

var (
	// ErrEmptyDocument indicates a posting attempt with no lines.
	ErrEmptyDocument = errors.New("ledger: document has no lines to post")
	// ErrForbidden indicates the actor lacks the required permission.
	ErrForbidden = errors.New("ledger: forbidden")
	// ErrConflict indicates a lost race against a concurrent writer. The
	// caller should re-fetch current state before deciding to retry.
	ErrConflict = errors.New("ledger: concurrent update conflict")
	// ErrVoidReasonRequired indicates a void attempt without a reason.
	ErrVoidReasonRequired = errors.New("ledger: void reason required")
)

// ImbalancedError reports a debit/credit mismatch at posting time.
type ImbalancedError struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Discrepancy returns the absolute difference between the two sides.
func (e *ImbalancedError) Discrepancy() decimal.Decimal {
	return e.Debit.Sub(e.Credit).Abs()
}

func (e *ImbalancedError) Error() string {
	return fmt.Sprintf("ledger: entries do not balance: debit %s, credit %s, discrepancy %s",
		e.Debit.String(), e.Credit.String(), e.Discrepancy().String())
}
