package documents

import "context"

// Service handles draft document CRUD. Posting and voiding live in the
// ledger service.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, in DraftInput) (Document, error) {
	if err := in.Validate(); err != nil {
		return Document{}, err
	}
	return s.repo.Create(ctx, in)
}

func (s *Service) Replace(ctx context.Context, companyID, id int64, in DraftInput) (Document, error) {
	if err := in.Validate(); err != nil {
		return Document{}, err
	}
	return s.repo.Replace(ctx, companyID, id, in)
}

func (s *Service) Get(ctx context.Context, companyID, id int64) (Document, error) {
	return s.repo.Get(ctx, companyID, id)
}

func (s *Service) List(ctx context.Context, companyID int64, docType DocumentType) ([]Document, error) {
	return s.repo.List(ctx, companyID, docType)
}

func (s *Service) DeleteDraft(ctx context.Context, companyID, id int64) error {
	return s.repo.DeleteDraft(ctx, companyID, id)
}
