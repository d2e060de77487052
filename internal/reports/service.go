package reports

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/meridian-erp/meridian/internal/ledger"
)

// BalancePort is the slice of the ledger service the reports need.
type BalancePort interface {
	AccountBalances(ctx context.Context, companyID int64, from, to *time.Time) ([]ledger.AccountBalance, error)
}

// Service assembles financial statements from aggregated balances.
type Service struct {
	balances BalancePort
	cache    *Cache
	group    singleflight.Group
}

// NewService constructs the report service. cache may be nil.
func NewService(balances BalancePort, cache *Cache) *Service {
	return &Service{balances: balances, cache: cache}
}

const dateFormat = "2006-01-02"

// BalanceSheet builds the balance sheet as of the given date.
func (s *Service) BalanceSheet(ctx context.Context, companyID int64, asOf time.Time) (BalanceSheet, error) {
	key := fmt.Sprintf("reports:bs:%d:%s", companyID, asOf.Format(dateFormat))
	var report BalanceSheet
	err := s.fetch(ctx, key, &report, func(ctx context.Context) (interface{}, error) {
		balances, err := s.balances.AccountBalances(ctx, companyID, nil, &asOf)
		if err != nil {
			return nil, err
		}
		return BuildBalanceSheet(balances), nil
	})
	return report, err
}

// IncomeStatement builds the income statement over [start, end].
func (s *Service) IncomeStatement(ctx context.Context, companyID int64, start, end time.Time) (IncomeStatement, error) {
	key := fmt.Sprintf("reports:pl:%d:%s:%s", companyID, start.Format(dateFormat), end.Format(dateFormat))
	var report IncomeStatement
	err := s.fetch(ctx, key, &report, func(ctx context.Context) (interface{}, error) {
		balances, err := s.balances.AccountBalances(ctx, companyID, &start, &end)
		if err != nil {
			return nil, err
		}
		return BuildIncomeStatement(balances), nil
	})
	return report, err
}

// TrialBalance builds the grouped trial balance as of the given date.
func (s *Service) TrialBalance(ctx context.Context, companyID int64, asOf time.Time) (TrialBalance, error) {
	key := fmt.Sprintf("reports:tb:%d:%s", companyID, asOf.Format(dateFormat))
	var report TrialBalance
	err := s.fetch(ctx, key, &report, func(ctx context.Context) (interface{}, error) {
		balances, err := s.balances.AccountBalances(ctx, companyID, nil, &asOf)
		if err != nil {
			return nil, err
		}
		return BuildTrialBalance(balances), nil
	})
	return report, err
}

// fetch deduplicates concurrent builds of the same report and consults the
// cache around the build.
func (s *Service) fetch(ctx context.Context, key string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	resultChan := s.group.DoChan(key, func() (interface{}, error) {
		var out interface{}
		err := s.cache.FetchJSON(ctx, key, &out, loader)
		return out, err
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return res.Err
		}
		return reencode(res.Val, dest)
	}
}
