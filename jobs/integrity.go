package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IntegrityScanner verifies the core ledger invariant out of band: for
// every posted document the debit and credit entry totals must be equal.
// A violation means a posting-engine bug and is logged loudly; it is never
// auto-corrected.
type IntegrityScanner struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewIntegrityScanner constructs the scanner.
func NewIntegrityScanner(pool *pgxpool.Pool, logger *slog.Logger) *IntegrityScanner {
	return &IntegrityScanner{pool: pool, logger: logger}
}

// Violation describes a document whose entries do not balance.
type Violation struct {
	CompanyID  int64
	DocumentID int64
	Debit      string
	Credit     string
}

// Scan returns all documents whose ledger entries do not balance.
func (s *IntegrityScanner) Scan(ctx context.Context, companyID int64) ([]Violation, error) {
	rows, err := s.pool.Query(ctx, `SELECT company_id, document_id,
SUM(CASE WHEN side='DEBIT' THEN amount ELSE 0 END)::text,
SUM(CASE WHEN side='CREDIT' THEN amount ELSE 0 END)::text
FROM ledger_entries
WHERE ($1 = 0 OR company_id = $1)
GROUP BY company_id, document_id
HAVING SUM(CASE WHEN side='DEBIT' THEN amount ELSE 0 END) <> SUM(CASE WHEN side='CREDIT' THEN amount ELSE 0 END)
ORDER BY company_id, document_id`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var violations []Violation
	for rows.Next() {
		var v Violation
		if err := rows.Scan(&v.CompanyID, &v.DocumentID, &v.Debit, &v.Credit); err != nil {
			return nil, err
		}
		violations = append(violations, v)
	}
	return violations, rows.Err()
}

// HandleTask processes TaskLedgerIntegrity tasks.
func (s *IntegrityScanner) HandleTask(ctx context.Context, t *asynq.Task) error {
	var payload LedgerIntegrityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	violations, err := s.Scan(ctx, payload.CompanyID)
	if err != nil {
		return err
	}
	if len(violations) == 0 {
		s.logger.Info("ledger integrity scan clean", slog.Int64("company_id", payload.CompanyID))
		return nil
	}
	for _, v := range violations {
		s.logger.Error("ledger integrity violation",
			slog.Int64("company_id", v.CompanyID),
			slog.Int64("document_id", v.DocumentID),
			slog.String("debit", v.Debit),
			slog.String("credit", v.Credit))
	}
	return nil
}
