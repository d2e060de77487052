package documents

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/coa"
)

func validDraft() DraftInput {
	return DraftInput{
		CompanyID: 1,
		Type:      TypeInvoice,
		Number:    "INV-007",
		Date:      time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Total:     decimal.NewFromInt(100),
		CreatedBy: 7,
		Lines: []LineInput{
			{AccountCode: "4000", Side: coa.SideCredit, Amount: decimal.NewFromInt(100)},
		},
	}
}

func TestDraftInputValidate(t *testing.T) {
	require.NoError(t, validDraft().Validate())

	t.Run("missing company", func(t *testing.T) {
		in := validDraft()
		in.CompanyID = 0
		require.Error(t, in.Validate())
	})

	t.Run("unknown type", func(t *testing.T) {
		in := validDraft()
		in.Type = "RECEIPT"
		require.Error(t, in.Validate())
	})

	t.Run("missing date", func(t *testing.T) {
		in := validDraft()
		in.Date = time.Time{}
		require.Error(t, in.Validate())
	})

	t.Run("negative total", func(t *testing.T) {
		in := validDraft()
		in.Total = decimal.NewFromInt(-1)
		require.Error(t, in.Validate())
	})

	t.Run("line without account", func(t *testing.T) {
		in := validDraft()
		in.Lines[0].AccountCode = ""
		require.Error(t, in.Validate())
	})

	t.Run("line with bad side", func(t *testing.T) {
		in := validDraft()
		in.Lines[0].Side = "BOTH"
		require.Error(t, in.Validate())
	})

	t.Run("line with zero amount", func(t *testing.T) {
		in := validDraft()
		in.Lines[0].Amount = decimal.Zero
		require.Error(t, in.Validate())
	})

	t.Run("unbalanced draft is fine", func(t *testing.T) {
		in := validDraft()
		in.Lines = append(in.Lines, LineInput{AccountCode: "1200", Side: coa.SideDebit, Amount: decimal.NewFromInt(40)})
		require.NoError(t, in.Validate(), "balance is enforced at posting, not draft time")
	})

	t.Run("no lines is fine", func(t *testing.T) {
		in := validDraft()
		in.Lines = nil
		require.NoError(t, in.Validate())
	})
}
