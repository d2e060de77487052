package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/coa"
	"github.com/meridian-erp/meridian/internal/documents"
	"github.com/meridian-erp/meridian/internal/platform/db"
)

// Repository encapsulates ledger persistence. The write path runs inside
// WithTx; reads against the append-only entry table go straight to the pool.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListEntriesByDocument(ctx context.Context, companyID, documentID int64) ([]Entry, error)
	SumByAccount(ctx context.Context, companyID int64, from, to *time.Time) ([]AccountSum, error)
}

// TxRepository exposes operations available within a posting transaction.
type TxRepository interface {
	// GetDocumentForUpdate loads the document plus lines under a row lock,
	// serializing concurrent post/void attempts on the same document.
	GetDocumentForUpdate(ctx context.Context, companyID, documentID int64) (documents.Document, error)
	// VerifyAccounts fails with coa.ErrAccountNotFound unless every code
	// exists in the company's chart of accounts.
	VerifyAccounts(ctx context.Context, companyID int64, codes []string) error
	InsertEntries(ctx context.Context, inputs []EntryInput) ([]Entry, error)
	ListEntriesForDocument(ctx context.Context, companyID, documentID int64) ([]Entry, error)
	// MarkPosted flips DRAFT to POSTED only if the row is still a draft.
	MarkPosted(ctx context.Context, companyID, documentID, actorID int64, at time.Time) (bool, error)
	// MarkVoided flips POSTED to VOIDED only if the row is still posted.
	MarkVoided(ctx context.Context, companyID, documentID, actorID int64, at time.Time, reason string) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// WithTx executes fn within a repeatable-read transaction. Serialization
// failures surface as ErrConflict so callers can re-fetch and decide.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
	if err != nil && db.IsSerializationFailure(err) {
		return ErrConflict
	}
	return err
}

const entryColumns = `id, company_id, document_id, document_type, account_code, side, amount::text, entry_date, is_reversal, reverses_entry_id, created_at`

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		var amount string
		err := rows.Scan(&e.ID, &e.CompanyID, &e.DocumentID, &e.DocumentType, &e.AccountCode, &e.Side, &amount,
			&e.EntryDate, &e.IsReversal, &e.ReversesEntryID, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		e.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repository) ListEntriesByDocument(ctx context.Context, companyID, documentID int64) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE company_id=$1 AND document_id=$2 ORDER BY id ASC`,
		companyID, documentID)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// SumByAccount aggregates debit and credit totals per account over the
// window. Reversal entries participate like any other row.
func (r *repository) SumByAccount(ctx context.Context, companyID int64, from, to *time.Time) ([]AccountSum, error) {
	rows, err := r.pool.Query(ctx, `SELECT e.account_code, a.name, a.type, a.normal_side,
COALESCE(SUM(CASE WHEN e.side='DEBIT' THEN e.amount ELSE 0 END), 0)::text,
COALESCE(SUM(CASE WHEN e.side='CREDIT' THEN e.amount ELSE 0 END), 0)::text
FROM ledger_entries e
JOIN accounts a ON a.company_id = e.company_id AND a.code = e.account_code
WHERE e.company_id = $1
  AND ($2::date IS NULL OR e.entry_date >= $2)
  AND ($3::date IS NULL OR e.entry_date <= $3)
GROUP BY e.account_code, a.name, a.type, a.normal_side
ORDER BY e.account_code`, companyID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sums []AccountSum
	for rows.Next() {
		var s AccountSum
		var debit, credit string
		if err := rows.Scan(&s.AccountCode, &s.AccountName, &s.AccountType, &s.NormalSide, &debit, &credit); err != nil {
			return nil, err
		}
		if s.Debit, err = decimal.NewFromString(debit); err != nil {
			return nil, err
		}
		if s.Credit, err = decimal.NewFromString(credit); err != nil {
			return nil, err
		}
		sums = append(sums, s)
	}
	return sums, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetDocumentForUpdate(ctx context.Context, companyID, documentID int64) (documents.Document, error) {
	var d documents.Document
	var total string
	err := r.tx.QueryRow(ctx, `SELECT id, company_id, type, number, external_ref, status, date, counterparty_id, memo, total::text, created_by, posted_by, posted_at, voided_by, voided_at, void_reason, created_at, updated_at
FROM documents WHERE company_id=$1 AND id=$2 FOR UPDATE`, companyID, documentID).
		Scan(&d.ID, &d.CompanyID, &d.Type, &d.Number, &d.ExternalRef, &d.Status, &d.Date, &d.CounterpartyID, &d.Memo, &total,
			&d.CreatedBy, &d.PostedBy, &d.PostedAt, &d.VoidedBy, &d.VoidedAt, &d.VoidReason, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return documents.Document{}, documents.ErrNotFound
		}
		return documents.Document{}, err
	}
	if d.Total, err = decimal.NewFromString(total); err != nil {
		return documents.Document{}, err
	}
	rows, err := r.tx.Query(ctx, `SELECT id, document_id, account_code, side, amount::text, description
FROM document_lines WHERE document_id=$1 ORDER BY id ASC`, documentID)
	if err != nil {
		return documents.Document{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line documents.Line
		var amount string
		if err := rows.Scan(&line.ID, &line.DocumentID, &line.AccountCode, &line.Side, &amount, &line.Description); err != nil {
			return documents.Document{}, err
		}
		if line.Amount, err = decimal.NewFromString(amount); err != nil {
			return documents.Document{}, err
		}
		d.Lines = append(d.Lines, line)
	}
	return d, rows.Err()
}

func (r *txRepository) VerifyAccounts(ctx context.Context, companyID int64, codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	rows, err := r.tx.Query(ctx, `SELECT code FROM accounts WHERE company_id=$1 AND code = ANY($2)`, companyID, codes)
	if err != nil {
		return err
	}
	defer rows.Close()
	found := make(map[string]bool, len(codes))
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return err
		}
		found[code] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}
	var missing []string
	for _, code := range codes {
		if !found[code] {
			missing = append(missing, code)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", coa.ErrAccountNotFound, strings.Join(missing, ", "))
	}
	return nil
}

func (r *txRepository) InsertEntries(ctx context.Context, inputs []EntryInput) ([]Entry, error) {
	entries := make([]Entry, 0, len(inputs))
	for _, in := range inputs {
		row := r.tx.QueryRow(ctx, `INSERT INTO ledger_entries (company_id, document_id, document_type, account_code, side, amount, entry_date, is_reversal, reverses_entry_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id, created_at`,
			in.CompanyID, in.DocumentID, in.DocumentType, in.AccountCode, in.Side, in.Amount.String(), in.EntryDate, in.IsReversal, in.ReversesEntryID)
		entry := Entry{
			CompanyID:       in.CompanyID,
			DocumentID:      in.DocumentID,
			DocumentType:    in.DocumentType,
			AccountCode:     in.AccountCode,
			Side:            in.Side,
			Amount:          in.Amount,
			EntryDate:       in.EntryDate,
			IsReversal:      in.IsReversal,
			ReversesEntryID: in.ReversesEntryID,
		}
		if err := row.Scan(&entry.ID, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *txRepository) ListEntriesForDocument(ctx context.Context, companyID, documentID int64) ([]Entry, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE company_id=$1 AND document_id=$2 ORDER BY id ASC`,
		companyID, documentID)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func (r *txRepository) MarkPosted(ctx context.Context, companyID, documentID, actorID int64, at time.Time) (bool, error) {
	cmd, err := r.tx.Exec(ctx, `UPDATE documents SET status='POSTED', posted_by=$3, posted_at=$4, updated_at=NOW()
WHERE company_id=$1 AND id=$2 AND status='DRAFT'`, companyID, documentID, actorID, at)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *txRepository) MarkVoided(ctx context.Context, companyID, documentID, actorID int64, at time.Time, reason string) (bool, error) {
	cmd, err := r.tx.Exec(ctx, `UPDATE documents SET status='VOIDED', voided_by=$3, voided_at=$4, void_reason=$5, updated_at=NOW()
WHERE company_id=$1 AND id=$2 AND status='POSTED'`, companyID, documentID, actorID, at, reason)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}
