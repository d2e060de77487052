package rules

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrRuleNotFound indicates a missing posting rule.
var ErrRuleNotFound = errors.New("rules: posting rule not found")

// Resolver looks up the account a document role posts to.
type Resolver interface {
	Resolve(ctx context.Context, companyID int64, docType, key string) (string, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Resolver {
	return &repository{db: db}
}

// Resolve returns the account code configured for the rule key.
func (r *repository) Resolve(ctx context.Context, companyID int64, docType, key string) (string, error) {
	if docType == "" || key == "" {
		return "", errors.New("rules: document type and key required")
	}
	var code string
	err := r.db.QueryRow(ctx, `SELECT account_code FROM posting_rules WHERE company_id=$1 AND document_type=$2 AND key=$3`,
		companyID, strings.ToUpper(docType), strings.ToUpper(key)).Scan(&code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrRuleNotFound
		}
		return "", err
	}
	return code, nil
}
