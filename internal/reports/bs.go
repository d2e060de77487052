package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/coa"
	"github.com/meridian-erp/meridian/internal/ledger"
)

// BalanceSheetAccount summarises an account for assets, liabilities, or equity.
type BalanceSheetAccount struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// BalanceSheetSection contains the accounts and totals for a classification.
type BalanceSheetSection struct {
	Label    string                `json:"label"`
	Accounts []BalanceSheetAccount `json:"accounts"`
	Total    decimal.Decimal       `json:"total"`
}

// BalanceSheet is the structured response for the balance sheet report.
// OutOfBalance is assets minus liabilities and equity; anything other than
// zero means a posting bug upstream and is surfaced, never corrected.
type BalanceSheet struct {
	Assets                    BalanceSheetSection `json:"assets"`
	Liabilities               BalanceSheetSection `json:"liabilities"`
	Equity                    BalanceSheetSection `json:"equity"`
	TotalLiabilitiesAndEquity decimal.Decimal     `json:"total_liabilities_and_equity"`
	OutOfBalance              decimal.Decimal     `json:"out_of_balance"`
}

// BuildBalanceSheet aggregates balances into assets, liabilities, and
// equity sections. Revenue and expense balances roll into equity as the
// period's net income line.
func BuildBalanceSheet(balances []ledger.AccountBalance) BalanceSheet {
	assets := BalanceSheetSection{Label: "Assets", Total: decimal.Zero}
	liabilities := BalanceSheetSection{Label: "Liabilities", Total: decimal.Zero}
	equity := BalanceSheetSection{Label: "Equity", Total: decimal.Zero}
	netIncome := decimal.Zero

	for _, b := range balances {
		row := BalanceSheetAccount{Code: b.AccountCode, Name: b.AccountName, Balance: b.Net}
		switch b.AccountType {
		case coa.AccountTypeAsset:
			assets.Accounts = append(assets.Accounts, row)
			assets.Total = assets.Total.Add(row.Balance)
		case coa.AccountTypeLiability:
			liabilities.Accounts = append(liabilities.Accounts, row)
			liabilities.Total = liabilities.Total.Add(row.Balance)
		case coa.AccountTypeEquity:
			equity.Accounts = append(equity.Accounts, row)
			equity.Total = equity.Total.Add(row.Balance)
		case coa.AccountTypeRevenue:
			netIncome = netIncome.Add(b.Net)
		case coa.AccountTypeExpense:
			netIncome = netIncome.Sub(b.Net)
		}
	}

	if !netIncome.IsZero() {
		equity.Accounts = append(equity.Accounts, BalanceSheetAccount{Code: "", Name: "Net Income", Balance: netIncome})
		equity.Total = equity.Total.Add(netIncome)
	}

	sortSection(&assets)
	sortSection(&liabilities)
	sortSection(&equity)

	totalLE := liabilities.Total.Add(equity.Total)
	return BalanceSheet{
		Assets:                    assets,
		Liabilities:               liabilities,
		Equity:                    equity,
		TotalLiabilitiesAndEquity: totalLE,
		OutOfBalance:              assets.Total.Sub(totalLE),
	}
}

func sortSection(s *BalanceSheetSection) {
	sort.Slice(s.Accounts, func(i, j int) bool { return s.Accounts[i].Code < s.Accounts[j].Code })
}
