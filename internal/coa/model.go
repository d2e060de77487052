package coa

import "time"

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Side denotes the debit or credit column of an entry.
type Side string

const (
	SideDebit  Side = "DEBIT"
	SideCredit Side = "CREDIT"
)

// Flip returns the opposite side.
func (s Side) Flip() Side {
	if s == SideDebit {
		return SideCredit
	}
	return SideDebit
}

// NormalSideFor returns the balance side on which accounts of the given
// type naturally accumulate.
func NormalSideFor(t AccountType) Side {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return SideDebit
	default:
		return SideCredit
	}
}

// Account models a chart of accounts node. Codes are unique per company
// and accounts are never deleted once referenced by ledger history.
type Account struct {
	ID         int64
	CompanyID  int64
	Code       string
	Name       string
	Type       AccountType
	NormalSide Side
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
