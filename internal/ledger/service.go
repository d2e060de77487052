package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/coa"
	"github.com/meridian-erp/meridian/internal/documents"
	"github.com/meridian-erp/meridian/internal/rules"
	"github.com/meridian-erp/meridian/internal/shared"
)

// Authorizer answers permission checks for acting users.
type Authorizer interface {
	Allows(ctx context.Context, userID int64, permission string) (bool, error)
}

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates posting and voiding documents into the ledger.
type Service struct {
	repo  Repository
	rules rules.Resolver
	authz Authorizer
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the ledger service.
func NewService(repo Repository, resolver rules.Resolver, authz Authorizer, audit AuditPort) *Service {
	return &Service{repo: repo, rules: resolver, authz: authz, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// PermissionFor returns the permission name guarding an action on a
// document type, e.g. "invoice.post".
func PermissionFor(docType documents.DocumentType, action string) string {
	return strings.ToLower(string(docType)) + "." + action
}

func (s *Service) authorize(ctx context.Context, actorID int64, permission string) error {
	if s.authz == nil {
		return nil
	}
	allowed, err := s.authz.Allows(ctx, actorID, permission)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrForbidden
	}
	return nil
}

// Post validates a draft document and commits it into the permanent
// ledger. The balance check, entry inserts, and status flip happen inside
// one transaction: either all of it lands or none of it does.
func (s *Service) Post(ctx context.Context, companyID, documentID, actorID int64) (documents.Document, error) {
	var posted documents.Document
	var doc documents.Document
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		doc, err = tx.GetDocumentForUpdate(ctx, companyID, documentID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, actorID, PermissionFor(doc.Type, "post")); err != nil {
			return err
		}
		lifecycle := documents.NewLifecycle(&doc)
		if !lifecycle.CanPost() {
			return &documents.InvalidTransitionError{Current: doc.Status, Requested: documents.StatusPosted}
		}
		if len(doc.Lines) == 0 {
			return ErrEmptyDocument
		}
		lines, err := s.postingLines(ctx, doc)
		if err != nil {
			return err
		}
		if err := tx.VerifyAccounts(ctx, companyID, distinctCodes(lines)); err != nil {
			return err
		}
		debit, credit := sumSides(lines)
		if !debit.Equal(credit) {
			return &ImbalancedError{Debit: debit, Credit: credit}
		}
		inputs := make([]EntryInput, 0, len(lines))
		for _, line := range lines {
			inputs = append(inputs, EntryInput{
				CompanyID:    companyID,
				DocumentID:   doc.ID,
				DocumentType: doc.Type,
				AccountCode:  line.AccountCode,
				Side:         line.Side,
				Amount:       line.Amount,
				EntryDate:    doc.Date,
			})
		}
		if _, err := tx.InsertEntries(ctx, inputs); err != nil {
			return err
		}
		now := s.now()
		ok, err := tx.MarkPosted(ctx, companyID, doc.ID, actorID, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrConflict
		}
		if err := lifecycle.Post(ctx); err != nil {
			return err
		}
		doc.PostedBy = &actorID
		doc.PostedAt = &now
		posted = doc
		return nil
	})
	if err != nil {
		return documents.Document{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			CompanyID: companyID,
			ActorID:   actorID,
			Action:    "document.post",
			Entity:    "document",
			EntityID:  fmt.Sprintf("%d", posted.ID),
			Meta: map[string]any{
				"type":   string(posted.Type),
				"number": posted.Number,
				"total":  posted.Total.String(),
			},
			At: s.now(),
		})
	}
	return posted, nil
}

// Void writes compensating entries for a posted document and marks it
// VOIDED. The original entries are never touched: reversal rows flipped
// side for side, dated at void time, are the only mechanism.
func (s *Service) Void(ctx context.Context, companyID, documentID, actorID int64, reason string) (documents.Document, error) {
	if strings.TrimSpace(reason) == "" {
		return documents.Document{}, ErrVoidReasonRequired
	}
	var voided documents.Document
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		doc, err := tx.GetDocumentForUpdate(ctx, companyID, documentID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, actorID, PermissionFor(doc.Type, "void")); err != nil {
			return err
		}
		lifecycle := documents.NewLifecycle(&doc)
		if !lifecycle.CanVoid() {
			return &documents.InvalidTransitionError{Current: doc.Status, Requested: documents.StatusVoided}
		}
		originals, err := tx.ListEntriesForDocument(ctx, companyID, doc.ID)
		if err != nil {
			return err
		}
		now := s.now()
		reversals := make([]EntryInput, 0, len(originals))
		for _, orig := range originals {
			id := orig.ID
			reversals = append(reversals, EntryInput{
				CompanyID:       companyID,
				DocumentID:      doc.ID,
				DocumentType:    doc.Type,
				AccountCode:     orig.AccountCode,
				Side:            orig.Side.Flip(),
				Amount:          orig.Amount,
				EntryDate:       now,
				IsReversal:      true,
				ReversesEntryID: &id,
			})
		}
		if _, err := tx.InsertEntries(ctx, reversals); err != nil {
			return err
		}
		ok, err := tx.MarkVoided(ctx, companyID, doc.ID, actorID, now, reason)
		if err != nil {
			return err
		}
		if !ok {
			return ErrConflict
		}
		if err := lifecycle.Void(ctx); err != nil {
			return err
		}
		doc.VoidedBy = &actorID
		doc.VoidedAt = &now
		doc.VoidReason = reason
		voided = doc
		return nil
	})
	if err != nil {
		return documents.Document{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			CompanyID: companyID,
			ActorID:   actorID,
			Action:    "document.void",
			Entity:    "document",
			EntityID:  fmt.Sprintf("%d", voided.ID),
			Meta: map[string]any{
				"type":   string(voided.Type),
				"reason": reason,
			},
			At: s.now(),
		})
	}
	return voided, nil
}

// Entries returns the ledger rows written for a document, reversals included.
func (s *Service) Entries(ctx context.Context, companyID, documentID int64) ([]Entry, error) {
	return s.repo.ListEntriesByDocument(ctx, companyID, documentID)
}

// postingLines resolves the full line set a document posts. Journals post
// their explicit lines untouched. Invoices carrying only credit lines get
// a receivable debit for the document total, resolved through the posting
// rule configuration.
func (s *Service) postingLines(ctx context.Context, doc documents.Document) ([]documents.Line, error) {
	lines := doc.Lines
	if doc.Type != documents.TypeInvoice {
		return lines, nil
	}
	for _, line := range lines {
		if line.Side == coa.SideDebit {
			return lines, nil
		}
	}
	if s.rules == nil {
		return lines, nil
	}
	code, err := s.rules.Resolve(ctx, doc.CompanyID, string(doc.Type), rules.KeyReceivable)
	if err != nil {
		return nil, err
	}
	derived := documents.Line{
		DocumentID:  doc.ID,
		AccountCode: code,
		Side:        coa.SideDebit,
		Amount:      doc.Total,
		Description: "Receivable for " + doc.Number,
	}
	return append([]documents.Line{derived}, lines...), nil
}

func distinctCodes(lines []documents.Line) []string {
	seen := make(map[string]bool, len(lines))
	var codes []string
	for _, line := range lines {
		if !seen[line.AccountCode] {
			seen[line.AccountCode] = true
			codes = append(codes, line.AccountCode)
		}
	}
	return codes
}

func sumSides(lines []documents.Line) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, line := range lines {
		if line.Side == coa.SideDebit {
			debit = debit.Add(line.Amount)
		} else {
			credit = credit.Add(line.Amount)
		}
	}
	return debit, credit
}
