package reports

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/coa"
	"github.com/meridian-erp/meridian/internal/ledger"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func balance(code, name string, accType coa.AccountType, debit, credit string) ledger.AccountBalance {
	d, c := dec(debit), dec(credit)
	net := d.Sub(c)
	side := coa.NormalSideFor(accType)
	if side == coa.SideCredit {
		net = c.Sub(d)
	}
	return ledger.AccountBalance{
		AccountCode: code,
		AccountName: name,
		AccountType: accType,
		NormalSide:  side,
		Debit:       d,
		Credit:      c,
		Net:         net,
	}
}

func TestBuildBalanceSheetSectionsAndNetIncome(t *testing.T) {
	balances := []ledger.AccountBalance{
		balance("1000", "Cash", coa.AccountTypeAsset, "5000", "0"),
		balance("1200", "Accounts Receivable", coa.AccountTypeAsset, "1000", "0"),
		balance("2000", "Accounts Payable", coa.AccountTypeLiability, "0", "2500"),
		balance("3000", "Share Capital", coa.AccountTypeEquity, "0", "2500"),
		balance("4000", "Service Revenue", coa.AccountTypeRevenue, "0", "1500"),
		balance("5000", "Office Expense", coa.AccountTypeExpense, "500", "0"),
	}

	bs := BuildBalanceSheet(balances)

	require.True(t, bs.Assets.Total.Equal(dec("6000")))
	require.True(t, bs.Liabilities.Total.Equal(dec("2500")))
	// equity = capital 2500 + net income (1500 - 500)
	require.True(t, bs.Equity.Total.Equal(dec("3500")))

	last := bs.Equity.Accounts[len(bs.Equity.Accounts)-1]
	require.Equal(t, "Net Income", last.Name)
	require.True(t, last.Balance.Equal(dec("1000")))

	require.True(t, bs.TotalLiabilitiesAndEquity.Equal(dec("6000")))
	require.True(t, bs.OutOfBalance.IsZero(), "out of balance was %s", bs.OutOfBalance)
}

func TestBuildBalanceSheetSurfacesImbalance(t *testing.T) {
	balances := []ledger.AccountBalance{
		balance("1000", "Cash", coa.AccountTypeAsset, "100", "0"),
	}
	bs := BuildBalanceSheet(balances)
	require.True(t, bs.OutOfBalance.Equal(dec("100")))
}

func TestBuildBalanceSheetEmptyLedger(t *testing.T) {
	bs := BuildBalanceSheet(nil)
	require.True(t, bs.Assets.Total.IsZero())
	require.True(t, bs.OutOfBalance.IsZero())
	require.Empty(t, bs.Equity.Accounts, "no net income line on an empty ledger")
}

// Any set of balanced postings must yield a balance sheet where assets
// equal liabilities plus equity, because the period's net income rolls
// into equity.
func TestBalanceSheetIdentityHoldsForRandomBalancedLedgers(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	types := []coa.AccountType{
		coa.AccountTypeAsset,
		coa.AccountTypeLiability,
		coa.AccountTypeEquity,
		coa.AccountTypeRevenue,
		coa.AccountTypeExpense,
	}

	for round := 0; round < 50; round++ {
		sums := make(map[string]*ledger.AccountBalance)
		addEntry := func(code string, accType coa.AccountType, side coa.Side, amount decimal.Decimal) {
			b, ok := sums[code]
			if !ok {
				b = &ledger.AccountBalance{
					AccountCode: code,
					AccountName: "Account " + code,
					AccountType: accType,
					NormalSide:  coa.NormalSideFor(accType),
					Debit:       decimal.Zero,
					Credit:      decimal.Zero,
				}
				sums[code] = b
			}
			if side == coa.SideDebit {
				b.Debit = b.Debit.Add(amount)
			} else {
				b.Credit = b.Credit.Add(amount)
			}
		}

		postings := 1 + rng.Intn(20)
		for p := 0; p < postings; p++ {
			debitType := types[rng.Intn(len(types))]
			creditType := types[rng.Intn(len(types))]
			amount := decimal.NewFromInt(int64(1 + rng.Intn(100000))).Div(decimal.NewFromInt(100))
			debitCode := strconv.Itoa(int(10 + rng.Intn(5)))
			creditCode := strconv.Itoa(int(20 + rng.Intn(5)))
			addEntry(debitCode+string(debitType[0]), debitType, coa.SideDebit, amount)
			addEntry(creditCode+string(creditType[0]), creditType, coa.SideCredit, amount)
		}

		balances := make([]ledger.AccountBalance, 0, len(sums))
		for _, b := range sums {
			net := b.Debit.Sub(b.Credit)
			if b.NormalSide == coa.SideCredit {
				net = b.Credit.Sub(b.Debit)
			}
			b.Net = net
			balances = append(balances, *b)
		}

		bs := BuildBalanceSheet(balances)
		require.True(t, bs.OutOfBalance.IsZero(),
			"round %d: assets %s vs liabilities+equity %s", round, bs.Assets.Total, bs.TotalLiabilitiesAndEquity)
	}
}

func TestBuildIncomeStatement(t *testing.T) {
	balances := []ledger.AccountBalance{
		balance("4000", "Service Revenue", coa.AccountTypeRevenue, "0", "1500"),
		balance("4100", "Interest Income", coa.AccountTypeRevenue, "0", "100"),
		balance("5000", "Office Expense", coa.AccountTypeExpense, "400", "0"),
		balance("1000", "Cash", coa.AccountTypeAsset, "1200", "0"),
	}

	is := BuildIncomeStatement(balances)

	require.Len(t, is.Revenue.Accounts, 2)
	require.Len(t, is.Expense.Accounts, 1)
	require.True(t, is.Revenue.Total.Equal(dec("1600")))
	require.True(t, is.Expense.Total.Equal(dec("400")))
	require.True(t, is.NetIncome.Equal(dec("1200")))
}

func TestBuildIncomeStatementLossIsNegative(t *testing.T) {
	balances := []ledger.AccountBalance{
		balance("4000", "Service Revenue", coa.AccountTypeRevenue, "0", "100"),
		balance("5000", "Office Expense", coa.AccountTypeExpense, "300", "0"),
	}
	is := BuildIncomeStatement(balances)
	require.True(t, is.NetIncome.Equal(dec("-200")))
}

func TestBuildTrialBalanceGroupsByPrefix(t *testing.T) {
	balances := []ledger.AccountBalance{
		balance("1000", "Cash", coa.AccountTypeAsset, "900", "0"),
		balance("1200", "Accounts Receivable", coa.AccountTypeAsset, "100", "0"),
		balance("40.10", "Domestic Revenue", coa.AccountTypeRevenue, "0", "700"),
		balance("40.20", "Export Revenue", coa.AccountTypeRevenue, "0", "300"),
	}

	tb := BuildTrialBalance(balances)

	require.Len(t, tb.Groups, 2)
	require.Equal(t, "10", tb.Groups[0].Key)
	require.Equal(t, "40", tb.Groups[1].Key)
	require.Len(t, tb.Groups[0].Accounts, 2)
	require.True(t, tb.Groups[0].Debit.Equal(dec("1000")))
	require.True(t, tb.Groups[1].Credit.Equal(dec("1000")))
	require.True(t, tb.TotalDebit.Equal(tb.TotalCredit))
}

func TestGroupKey(t *testing.T) {
	require.Equal(t, "40", groupKey("40.10"))
	require.Equal(t, "12", groupKey("1200"))
	require.Equal(t, "9", groupKey("9"))
}
