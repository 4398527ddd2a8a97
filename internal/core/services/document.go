package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

var validate = validator.New(validator.WithRequiredStructEnabled())

// DocumentRemover deletes a document together with its indexed state.
// IndexManager implements it.
type DocumentRemover interface {
	Delete(ctx context.Context, ownerID, documentID string) error
}

// DocumentService creates documents from text, files and web pages.
type DocumentService struct {
	docStore   driven.DocumentStore
	indexStore driven.IndexStore
	extractor  driven.ContentExtractor
	files      driven.FileStore
	remover    DocumentRemover

	now    func() time.Time
	opener func(target string) error
}

// NewDocumentService creates a new document service.
// files may be nil, in which case uploaded files are referenced in place.
func NewDocumentService(
	docStore driven.DocumentStore,
	indexStore driven.IndexStore,
	extractor driven.ContentExtractor,
	files driven.FileStore,
	remover DocumentRemover,
) *DocumentService {
	return &DocumentService{
		docStore:   docStore,
		indexStore: indexStore,
		extractor:  extractor,
		files:      files,
		remover:    remover,
		now:        time.Now,
		opener:     openURL,
	}
}

// Create ingests content as a new document with a pending index status.
func (s *DocumentService) Create(ctx context.Context, req driving.CreateDocumentRequest) (*domain.IndexedDocument, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	now := s.now()
	doc := &domain.Document{
		ID:        uuid.New().String(),
		OwnerID:   req.OwnerID,
		Origin:    req.Origin,
		Metadata:  make(map[string]any),
		CreatedAt: now,
	}

	var err error
	switch req.Origin {
	case domain.OriginText:
		s.fromText(doc, req, now)
	case domain.OriginFile:
		err = s.fromFile(ctx, doc, req)
	case domain.OriginURL:
		err = s.fromURL(ctx, doc, req, now)
	default:
		err = fmt.Errorf("%w: unknown origin %q", domain.ErrInvalidInput, req.Origin)
	}
	if err != nil {
		return nil, err
	}

	maps.Copy(doc.Metadata, req.Metadata)
	if req.Title != "" {
		doc.Title = req.Title
	}

	status := domain.NewPendingStatus(doc.ID, now)
	if err := s.docStore.CreateDocument(ctx, doc, status); err != nil {
		s.discardFile(ctx, doc)
		return nil, fmt.Errorf("create document: %w", err)
	}

	logger.Info("Created %s document %s (%q)", doc.Origin, doc.ID, doc.Title)
	return &domain.IndexedDocument{Document: *doc, Status: status}, nil
}

// Get retrieves a document with its status.
func (s *DocumentService) Get(ctx context.Context, ownerID, documentID string) (*domain.IndexedDocument, error) {
	doc, err := s.owned(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}

	status, err := s.indexStore.GetStatus(ctx, documentID)
	if errors.Is(err, domain.ErrNotFound) {
		pending := domain.NewPendingStatus(documentID, doc.CreatedAt)
		status = &pending
	} else if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	return &domain.IndexedDocument{Document: *doc, Status: *status}, nil
}

// List returns all of an owner's documents with their statuses.
func (s *DocumentService) List(ctx context.Context, ownerID string) ([]domain.IndexedDocument, error) {
	docs, err := s.indexStore.ListIndexed(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// GetDetails returns display metadata for a document.
func (s *DocumentService) GetDetails(ctx context.Context, ownerID, documentID string) (*driving.DocumentDetails, error) {
	indexed, err := s.Get(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}
	doc := &indexed.Document

	chunkCount := 0
	if chunks, err := s.indexStore.GetChunks(ctx, documentID); err == nil {
		chunkCount = len(chunks)
	}

	// Flatten metadata to string map
	metadata := make(map[string]string, len(doc.Metadata))
	for key, value := range doc.Metadata {
		metadata[key] = fmt.Sprintf("%v", value)
	}

	return &driving.DocumentDetails{
		ID:         doc.ID,
		Title:      doc.Title,
		Origin:     doc.Origin,
		FileType:   doc.FileType,
		Location:   location(doc),
		Size:       doc.Size,
		Status:     indexed.Status.State,
		Error:      indexed.Status.Error,
		ChunkCount: chunkCount,
		CreatedAt:  doc.CreatedAt,
		IndexedAt:  indexed.Status.IndexedAt,
		Metadata:   metadata,
	}, nil
}

// Delete removes a document with its chunks, vectors and backing file.
func (s *DocumentService) Delete(ctx context.Context, ownerID, documentID string) error {
	return s.remover.Delete(ctx, ownerID, documentID)
}

// Open opens the document's stored file or URL in the default application.
func (s *DocumentService) Open(ctx context.Context, ownerID, documentID string) error {
	doc, err := s.owned(ctx, ownerID, documentID)
	if err != nil {
		return err
	}

	target := doc.URL
	if target == "" {
		target = doc.FilePath
	}
	if target == "" {
		return fmt.Errorf("open %s: %w: text documents have no file or URL", documentID, domain.ErrInvalidInput)
	}
	return s.opener(target)
}

func (s *DocumentService) owned(ctx context.Context, ownerID, documentID string) (*domain.Document, error) {
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", documentID, err)
	}
	if !doc.OwnedBy(ownerID) {
		return nil, fmt.Errorf("get document %s: %w", documentID, domain.ErrNotFound)
	}
	return doc, nil
}

func (s *DocumentService) fromText(doc *domain.Document, req driving.CreateDocumentRequest, now time.Time) {
	doc.Title = "Text Document - " + now.Format(time.RFC3339)
	doc.Content = req.Text
	doc.FileType = "txt"
	doc.Size = int64(len(req.Text))
	doc.Metadata[domain.MetaManual] = true
}

func (s *DocumentService) fromFile(ctx context.Context, doc *domain.Document, req driving.CreateDocumentRequest) error {
	name := req.FileName
	if name == "" {
		name = filepath.Base(req.FilePath)
	}

	extracted, err := s.extractor.ExtractFile(ctx, req.FilePath, name)
	if err != nil {
		return fmt.Errorf("extract %s: %w", name, err)
	}

	doc.Title = name
	doc.Content = extracted.Text
	doc.FileType = extracted.FileType
	doc.Size = extracted.Size
	doc.FilePath = req.FilePath
	maps.Copy(doc.Metadata, extracted.Metadata)
	doc.Metadata[domain.MetaOriginalName] = name

	if s.files == nil {
		return nil
	}

	f, err := os.Open(req.FilePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", req.FilePath, err)
	}
	defer f.Close()

	stored, size, err := s.files.Put(ctx, name, f)
	if err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}
	doc.FilePath = stored
	if doc.Size == 0 {
		doc.Size = size
	}
	return nil
}

func (s *DocumentService) fromURL(
	ctx context.Context,
	doc *domain.Document,
	req driving.CreateDocumentRequest,
	now time.Time,
) error {
	extracted, err := s.extractor.ExtractURL(ctx, req.URL)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", req.URL, err)
	}

	doc.Title = extracted.Title
	if doc.Title == "" {
		doc.Title = req.URL
	}
	doc.Content = extracted.Text
	doc.FileType = "html"
	doc.Size = extracted.Size
	doc.URL = req.URL
	maps.Copy(doc.Metadata, extracted.Metadata)
	doc.Metadata[domain.MetaURL] = req.URL
	doc.Metadata[domain.MetaFetchedAt] = now.Format(time.RFC3339)
	return nil
}

// discardFile removes a stored copy whose document row was never written.
func (s *DocumentService) discardFile(ctx context.Context, doc *domain.Document) {
	if s.files == nil || doc.Origin != domain.OriginFile {
		return
	}
	if err := s.files.Remove(ctx, doc.FilePath); err != nil {
		logger.Warn("Could not remove stored file %s: %v", doc.FilePath, err)
	}
}

// location returns the URL or original filename of a document.
func location(doc *domain.Document) string {
	if doc.URL != "" {
		return doc.URL
	}
	if name, ok := doc.Metadata[domain.MetaOriginalName].(string); ok {
		return name
	}
	return doc.FilePath
}

// openURL opens a URL/path using the system default handler.
func openURL(target string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "linux":
		cmd = exec.Command("xdg-open", target)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
