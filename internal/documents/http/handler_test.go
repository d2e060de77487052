package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/coa"
	"github.com/meridian-erp/meridian/internal/documents"
	"github.com/meridian-erp/meridian/internal/ledger"
	"github.com/meridian-erp/meridian/internal/shared"
)

type fakeStore struct {
	docs     map[int64]documents.Document
	entries  []ledger.Entry
	accounts map[string]bool
	nextID   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:     make(map[int64]documents.Document),
		accounts: map[string]bool{"1000": true, "1200": true, "4000": true, "5000": true},
	}
}

// documents.Repository

func (s *fakeStore) Create(ctx context.Context, in documents.DraftInput) (documents.Document, error) {
	s.nextID++
	doc := documents.Document{
		ID:        s.nextID,
		CompanyID: in.CompanyID,
		Type:      in.Type,
		Number:    in.Number,
		Status:    documents.StatusDraft,
		Date:      in.Date,
		Memo:      in.Memo,
		Total:     in.Total,
		CreatedBy: in.CreatedBy,
	}
	for i, l := range in.Lines {
		doc.Lines = append(doc.Lines, documents.Line{
			ID:          int64(i + 1),
			DocumentID:  doc.ID,
			AccountCode: l.AccountCode,
			Side:        l.Side,
			Amount:      l.Amount,
			Description: l.Description,
		})
	}
	s.docs[doc.ID] = doc
	return doc, nil
}

func (s *fakeStore) Replace(ctx context.Context, companyID, id int64, in documents.DraftInput) (documents.Document, error) {
	doc, ok := s.docs[id]
	if !ok || doc.CompanyID != companyID {
		return documents.Document{}, documents.ErrNotFound
	}
	if doc.Status != documents.StatusDraft {
		return documents.Document{}, documents.ErrNotDraft
	}
	doc.Number = in.Number
	doc.Date = in.Date
	doc.Memo = in.Memo
	doc.Total = in.Total
	doc.Lines = nil
	for i, l := range in.Lines {
		doc.Lines = append(doc.Lines, documents.Line{
			ID: int64(i + 1), DocumentID: id, AccountCode: l.AccountCode, Side: l.Side, Amount: l.Amount,
		})
	}
	s.docs[id] = doc
	return doc, nil
}

func (s *fakeStore) Get(ctx context.Context, companyID, id int64) (documents.Document, error) {
	doc, ok := s.docs[id]
	if !ok || doc.CompanyID != companyID {
		return documents.Document{}, documents.ErrNotFound
	}
	return doc, nil
}

func (s *fakeStore) List(ctx context.Context, companyID int64, docType documents.DocumentType) ([]documents.Document, error) {
	var out []documents.Document
	for _, d := range s.docs {
		if d.CompanyID == companyID && d.Type == docType {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *fakeStore) DeleteDraft(ctx context.Context, companyID, id int64) error {
	doc, ok := s.docs[id]
	if !ok || doc.CompanyID != companyID {
		return documents.ErrNotFound
	}
	if doc.Status != documents.StatusDraft {
		return documents.ErrNotDraft
	}
	delete(s.docs, id)
	return nil
}

// ledger.Repository

func (s *fakeStore) WithTx(ctx context.Context, fn func(context.Context, ledger.TxRepository) error) error {
	tx := &fakeTx{store: s, stagedDocs: make(map[int64]documents.Document)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.entries = append(s.entries, tx.stagedEntries...)
	for id, doc := range tx.stagedDocs {
		s.docs[id] = doc
	}
	return nil
}

func (s *fakeStore) ListEntriesByDocument(ctx context.Context, companyID, documentID int64) ([]ledger.Entry, error) {
	var out []ledger.Entry
	for _, e := range s.entries {
		if e.CompanyID == companyID && e.DocumentID == documentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) SumByAccount(ctx context.Context, companyID int64, from, to *time.Time) ([]ledger.AccountSum, error) {
	return nil, nil
}

type fakeTx struct {
	store         *fakeStore
	stagedEntries []ledger.Entry
	stagedDocs    map[int64]documents.Document
	nextEntryID   int64
}

func (tx *fakeTx) GetDocumentForUpdate(ctx context.Context, companyID, documentID int64) (documents.Document, error) {
	return tx.store.Get(ctx, companyID, documentID)
}

func (tx *fakeTx) VerifyAccounts(ctx context.Context, companyID int64, codes []string) error {
	for _, code := range codes {
		if !tx.store.accounts[code] {
			return fmt.Errorf("%w: %s", coa.ErrAccountNotFound, code)
		}
	}
	return nil
}

func (tx *fakeTx) InsertEntries(ctx context.Context, inputs []ledger.EntryInput) ([]ledger.Entry, error) {
	var out []ledger.Entry
	for _, in := range inputs {
		tx.nextEntryID++
		e := ledger.Entry{
			ID:              int64(len(tx.store.entries)) + tx.nextEntryID,
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
		tx.stagedEntries = append(tx.stagedEntries, e)
		out = append(out, e)
	}
	return out, nil
}

func (tx *fakeTx) ListEntriesForDocument(ctx context.Context, companyID, documentID int64) ([]ledger.Entry, error) {
	return tx.store.ListEntriesByDocument(ctx, companyID, documentID)
}

func (tx *fakeTx) MarkPosted(ctx context.Context, companyID, documentID, actorID int64, at time.Time) (bool, error) {
	doc, err := tx.store.Get(ctx, companyID, documentID)
	if err != nil {
		return false, err
	}
	if doc.Status != documents.StatusDraft {
		return false, nil
	}
	doc.Status = documents.StatusPosted
	doc.PostedBy = &actorID
	doc.PostedAt = &at
	tx.stagedDocs[documentID] = doc
	return true, nil
}

func (tx *fakeTx) MarkVoided(ctx context.Context, companyID, documentID, actorID int64, at time.Time, reason string) (bool, error) {
	doc, err := tx.store.Get(ctx, companyID, documentID)
	if err != nil {
		return false, err
	}
	if doc.Status != documents.StatusPosted {
		return false, nil
	}
	doc.Status = documents.StatusVoided
	doc.VoidedBy = &actorID
	doc.VoidedAt = &at
	doc.VoidReason = reason
	tx.stagedDocs[documentID] = doc
	return true, nil
}

type allowAll struct{}

func (allowAll) Allows(ctx context.Context, userID int64, permission string) (bool, error) {
	return true, nil
}

type denyAll struct{}

func (denyAll) Allows(ctx context.Context, userID int64, permission string) (bool, error) {
	return false, nil
}

func newTypedRouter(t *testing.T, store *fakeStore, authz ledger.Authorizer, docType documents.DocumentType, mount string) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	docs := documents.NewService(store)
	ledgerSvc := ledger.NewService(store, nil, authz, nil)
	handler := NewHandler(logger, docType, docs, ledgerSvc)

	r := chi.NewRouter()
	r.Use(shared.ActorMiddleware)
	r.Route(mount, handler.MountRoutes)
	return r
}

func newTestRouter(t *testing.T, store *fakeStore, authz ledger.Authorizer) http.Handler {
	t.Helper()
	return newTypedRouter(t, store, authz, documents.TypeJournal, "/journals")
}

func doJSON(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(shared.ActorHeader, "42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func seedJournal(store *fakeStore, lines []documents.Line) int64 {
	store.nextID++
	id := store.nextID
	for i := range lines {
		lines[i].DocumentID = id
		lines[i].ID = int64(i + 1)
	}
	store.docs[id] = documents.Document{
		ID:        id,
		CompanyID: 1,
		Type:      documents.TypeJournal,
		Number:    "JRN-001",
		Status:    documents.StatusDraft,
		Date:      time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC),
		Total:     decimal.NewFromInt(500),
		CreatedBy: 42,
		Lines:     lines,
	}
	return id
}

func journalLines() []documents.Line {
	return []documents.Line{
		{AccountCode: "5000", Side: coa.SideDebit, Amount: decimal.NewFromInt(500)},
		{AccountCode: "1000", Side: coa.SideCredit, Amount: decimal.NewFromInt(500)},
	}
}

func TestCreateDraft(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(t, store, allowAll{})

	rec := doJSON(t, router, http.MethodPost, "/journals/", map[string]any{
		"company_id": 1,
		"number":     "JRN-100",
		"date":       "2026-04-10",
		"total":      "500",
		"lines": []map[string]any{
			{"account_code": "5000", "side": "DEBIT", "amount": "500"},
			{"account_code": "1000", "side": "CREDIT", "amount": "500"},
		},
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	var body documentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "DRAFT", body.Status)
	require.Equal(t, "500", body.Total)
	require.Equal(t, int64(42), body.CreatedBy, "actor comes from the gateway header")
	require.Len(t, body.Lines, 2)
}

func TestCreateDraftRejectsBadPayload(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(t, store, allowAll{})

	for name, payload := range map[string]map[string]any{
		"missing company": {"date": "2026-04-10"},
		"bad date":        {"company_id": 1, "date": "10/04/2026"},
		"bad amount": {"company_id": 1, "date": "2026-04-10", "lines": []map[string]any{
			{"account_code": "5000", "side": "DEBIT", "amount": "abc"},
		}},
		"bad side": {"company_id": 1, "date": "2026-04-10", "lines": []map[string]any{
			{"account_code": "5000", "side": "BOTH", "amount": "10"},
		}},
	} {
		rec := doJSON(t, router, http.MethodPost, "/journals/", payload)
		require.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestPostEndpoint(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(t, store, allowAll{})
	id := seedJournal(store, journalLines())

	rec := doJSON(t, router, http.MethodPost, "/journals/1/post?company_id=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body documentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "POSTED", body.Status)
	require.Len(t, store.entries, 2)
	require.Equal(t, documents.StatusPosted, store.docs[id].Status)
}

func TestPostEndpointErrorTaxonomy(t *testing.T) {
	t.Run("missing document is 404", func(t *testing.T) {
		router := newTestRouter(t, newFakeStore(), allowAll{})
		rec := doJSON(t, router, http.MethodPost, "/journals/99/post?company_id=1", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("double post is 400", func(t *testing.T) {
		store := newFakeStore()
		router := newTestRouter(t, store, allowAll{})
		seedJournal(store, journalLines())

		rec := doJSON(t, router, http.MethodPost, "/journals/1/post?company_id=1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		rec = doJSON(t, router, http.MethodPost, "/journals/1/post?company_id=1", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Len(t, store.entries, 2, "failed post must not add entries")
	})

	t.Run("imbalanced document is 400", func(t *testing.T) {
		store := newFakeStore()
		router := newTestRouter(t, store, allowAll{})
		seedJournal(store, []documents.Line{
			{AccountCode: "5000", Side: coa.SideDebit, Amount: decimal.NewFromInt(500)},
			{AccountCode: "1000", Side: coa.SideCredit, Amount: decimal.NewFromInt(400)},
		})

		rec := doJSON(t, router, http.MethodPost, "/journals/1/post?company_id=1", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Empty(t, store.entries)
	})

	t.Run("empty document is 400", func(t *testing.T) {
		store := newFakeStore()
		router := newTestRouter(t, store, allowAll{})
		seedJournal(store, nil)

		rec := doJSON(t, router, http.MethodPost, "/journals/1/post?company_id=1", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown account code is 404", func(t *testing.T) {
		store := newFakeStore()
		router := newTestRouter(t, store, allowAll{})
		seedJournal(store, []documents.Line{
			{AccountCode: "5000", Side: coa.SideDebit, Amount: decimal.NewFromInt(500)},
			{AccountCode: "9999", Side: coa.SideCredit, Amount: decimal.NewFromInt(500)},
		})

		rec := doJSON(t, router, http.MethodPost, "/journals/1/post?company_id=1", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Empty(t, store.entries)
	})

	t.Run("missing company_id is 400", func(t *testing.T) {
		store := newFakeStore()
		router := newTestRouter(t, store, allowAll{})
		seedJournal(store, journalLines())

		rec := doJSON(t, router, http.MethodPost, "/journals/1/post", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Empty(t, store.entries)
	})

	t.Run("wrong resource type is 404", func(t *testing.T) {
		store := newFakeStore()
		invoices := newTypedRouter(t, store, allowAll{}, documents.TypeInvoice, "/invoices")
		seedJournal(store, journalLines())

		rec := doJSON(t, invoices, http.MethodPost, "/invoices/1/post?company_id=1", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Empty(t, store.entries, "a journal must not post through the invoice resource")
	})

	t.Run("denied actor is 403", func(t *testing.T) {
		store := newFakeStore()
		router := newTestRouter(t, store, denyAll{})
		seedJournal(store, journalLines())

		rec := doJSON(t, router, http.MethodPost, "/journals/1/post?company_id=1", nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Empty(t, store.entries)
	})
}

func TestVoidEndpoint(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(t, store, allowAll{})
	id := seedJournal(store, journalLines())

	rec := doJSON(t, router, http.MethodPost, "/journals/1/post?company_id=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/journals/1/void", map[string]any{
		"company_id": 1,
		"reason":     "entered against the wrong period",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body documentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "VOIDED", body.Status)
	require.Equal(t, "entered against the wrong period", body.VoidReason)
	require.Len(t, store.entries, 4)
	require.Equal(t, documents.StatusVoided, store.docs[id].Status)

	rec = doJSON(t, router, http.MethodGet, "/journals/1/entries?company_id=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries struct {
		Entries []entryResponse `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries.Entries, 4)
	require.True(t, entries.Entries[2].IsReversal)
	require.NotNil(t, entries.Entries[2].ReversesEntryID)
}

func TestVoidEndpointRequiresReason(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(t, store, allowAll{})
	seedJournal(store, journalLines())

	rec := doJSON(t, router, http.MethodPost, "/journals/1/void", map[string]any{"company_id": 1})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVoidDraftIs400(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(t, store, allowAll{})
	seedJournal(store, journalLines())

	rec := doJSON(t, router, http.MethodPost, "/journals/1/void", map[string]any{
		"company_id": 1,
		"reason":     "never posted",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteDraftLifecycleGuard(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(t, store, allowAll{})
	seedJournal(store, journalLines())

	rec := doJSON(t, router, http.MethodPost, "/journals/1/post?company_id=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/journals/1?company_id=1", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code, "posted documents cannot be deleted")

	id := seedJournal(store, journalLines())
	rec = doJSON(t, router, http.MethodDelete, "/journals/2?company_id=1", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	_, ok := store.docs[id]
	require.False(t, ok)
}

func TestGetHidesOtherDocumentTypes(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(t, store, allowAll{})
	id := seedJournal(store, journalLines())
	doc := store.docs[id]
	doc.Type = documents.TypeInvoice
	store.docs[id] = doc

	rec := doJSON(t, router, http.MethodGet, "/journals/1?company_id=1", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRequiresCompany(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(t, store, allowAll{})

	rec := doJSON(t, router, http.MethodGet, "/journals/", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	seedJournal(store, journalLines())
	rec = doJSON(t, router, http.MethodGet, "/journals/?company_id=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
