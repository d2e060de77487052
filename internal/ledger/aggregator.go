package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/coa"
)

// AccountBalances computes per-account signed balances for the company
// over the window. A nil from means "from the beginning"; to is inclusive.
// The result is a pure function of the append-only ledger and the window,
// so repeated calls with identical inputs return identical output.
func (s *Service) AccountBalances(ctx context.Context, companyID int64, from, to *time.Time) ([]AccountBalance, error) {
	sums, err := s.repo.SumByAccount(ctx, companyID, from, to)
	if err != nil {
		return nil, err
	}
	balances := make([]AccountBalance, 0, len(sums))
	for _, sum := range sums {
		net := sum.Debit.Sub(sum.Credit)
		if sum.NormalSide == coa.SideCredit {
			net = sum.Credit.Sub(sum.Debit)
		}
		balances = append(balances, AccountBalance{
			AccountCode: sum.AccountCode,
			AccountName: sum.AccountName,
			AccountType: sum.AccountType,
			NormalSide:  sum.NormalSide,
			Debit:       sum.Debit,
			Credit:      sum.Credit,
			Net:         net,
		})
	}
	return balances, nil
}

// Balances returns account code -> signed net balance as of the given date.
func (s *Service) Balances(ctx context.Context, companyID int64, asOf time.Time) (map[string]decimal.Decimal, error) {
	balances, err := s.AccountBalances(ctx, companyID, nil, &asOf)
	if err != nil {
		return nil, err
	}
	out := make(map[string]decimal.Decimal, len(balances))
	for _, b := range balances {
		out[b.AccountCode] = b.Net
	}
	return out, nil
}

// BalancesRange returns signed balances for entries dated within [from, to].
func (s *Service) BalancesRange(ctx context.Context, companyID int64, from, to time.Time) ([]AccountBalance, error) {
	return s.AccountBalances(ctx, companyID, &from, &to)
}
