package documents

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository encapsulates DB operations for draft document CRUD.
// Posting and voiding go through the ledger transaction repository, which
// owns the status update.
type Repository interface {
	Create(ctx context.Context, in DraftInput) (Document, error)
	Replace(ctx context.Context, companyID, id int64, in DraftInput) (Document, error)
	Get(ctx context.Context, companyID, id int64) (Document, error)
	List(ctx context.Context, companyID int64, docType DocumentType) ([]Document, error)
	DeleteDraft(ctx context.Context, companyID, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const documentColumns = `id, company_id, type, number, external_ref, status, date, counterparty_id, memo, total::text, created_by, posted_by, posted_at, voided_by, voided_at, void_reason, created_at, updated_at`

func scanDocument(row pgx.Row) (Document, error) {
	var d Document
	var total string
	err := row.Scan(&d.ID, &d.CompanyID, &d.Type, &d.Number, &d.ExternalRef, &d.Status, &d.Date, &d.CounterpartyID, &d.Memo, &total,
		&d.CreatedBy, &d.PostedBy, &d.PostedAt, &d.VoidedBy, &d.VoidedAt, &d.VoidReason, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return Document{}, err
	}
	d.Total, err = decimal.NewFromString(total)
	if err != nil {
		return Document{}, err
	}
	return d, nil
}

func (r *repository) Create(ctx context.Context, in DraftInput) (Document, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return Document{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `INSERT INTO documents (company_id, type, number, external_ref, status, date, counterparty_id, memo, total, created_by)
VALUES ($1,$2,$3,$4,'DRAFT',$5,$6,$7,$8,$9) RETURNING `+documentColumns,
		in.CompanyID, in.Type, in.Number, uuid.New(), in.Date, in.CounterpartyID, in.Memo, in.Total.String(), in.CreatedBy)
	doc, err := scanDocument(row)
	if err != nil {
		return Document{}, err
	}
	doc.Lines, err = insertLines(ctx, tx, doc.ID, in.Lines)
	if err != nil {
		return Document{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Replace swaps the mutable fields and line set of a draft in one
// transaction. Non-draft documents are rejected by the WHERE clause.
func (r *repository) Replace(ctx context.Context, companyID, id int64, in DraftInput) (Document, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return Document{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `UPDATE documents SET number=$3, date=$4, counterparty_id=$5, memo=$6, total=$7, updated_at=NOW()
WHERE company_id=$1 AND id=$2 AND status='DRAFT' RETURNING `+documentColumns,
		companyID, id, in.Number, in.Date, in.CounterpartyID, in.Memo, in.Total.String())
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, draftMissingReason(ctx, r.db, companyID, id)
		}
		return Document{}, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM document_lines WHERE document_id=$1`, id); err != nil {
		return Document{}, err
	}
	doc.Lines, err = insertLines(ctx, tx, id, in.Lines)
	if err != nil {
		return Document{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (r *repository) Get(ctx context.Context, companyID, id int64) (Document, error) {
	row := r.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE company_id=$1 AND id=$2`, companyID, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	doc.Lines, err = loadLines(ctx, r.db, id)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (r *repository) List(ctx context.Context, companyID int64, docType DocumentType) ([]Document, error) {
	rows, err := r.db.Query(ctx, `SELECT `+documentColumns+` FROM documents WHERE company_id=$1 AND type=$2 ORDER BY id DESC`, companyID, docType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *repository) DeleteDraft(ctx context.Context, companyID, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM documents WHERE company_id=$1 AND id=$2 AND status='DRAFT'`, companyID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return draftMissingReason(ctx, r.db, companyID, id)
	}
	return nil
}

// draftMissingReason distinguishes "no such document" from "not a draft".
func draftMissingReason(ctx context.Context, db *pgxpool.Pool, companyID, id int64) error {
	var status Status
	err := db.QueryRow(ctx, `SELECT status FROM documents WHERE company_id=$1 AND id=$2`, companyID, id).Scan(&status)
	if err != nil {
		return ErrNotFound
	}
	return ErrNotDraft
}

func insertLines(ctx context.Context, tx pgx.Tx, documentID int64, lines []LineInput) ([]Line, error) {
	out := make([]Line, 0, len(lines))
	for _, line := range lines {
		var id int64
		err := tx.QueryRow(ctx, `INSERT INTO document_lines (document_id, account_code, side, amount, description)
VALUES ($1,$2,$3,$4,$5) RETURNING id`, documentID, line.AccountCode, line.Side, line.Amount.String(), line.Description).Scan(&id)
		if err != nil {
			return nil, err
		}
		out = append(out, Line{
			ID:          id,
			DocumentID:  documentID,
			AccountCode: line.AccountCode,
			Side:        line.Side,
			Amount:      line.Amount,
			Description: line.Description,
		})
	}
	return out, nil
}

func loadLines(ctx context.Context, db *pgxpool.Pool, documentID int64) ([]Line, error) {
	rows, err := db.Query(ctx, `SELECT id, document_id, account_code, side, amount::text, description
FROM document_lines WHERE document_id=$1 ORDER BY id ASC`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var line Line
		var amount string
		if err := rows.Scan(&line.ID, &line.DocumentID, &line.AccountCode, &line.Side, &amount, &line.Description); err != nil {
			return nil, err
		}
		line.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
