package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// Ensure FolderSync implements the interface.
var _ driving.FolderSyncService = (*FolderSync)(nil)

// FolderOpener creates a FolderSource for a root path.
type FolderOpener func(root string) (driven.FolderSource, error)

// FolderSync mirrors the files of a folder into documents and indexes them.
// Documents are immutable, so a changed file is imported as a new document
// after the old one is deleted.
type FolderSync struct {
	documents driving.DocumentService
	index     driving.IndexService
	open      FolderOpener
	stat      func(string) (os.FileInfo, error)
}

// NewFolderSync creates a folder sync service.
func NewFolderSync(documents driving.DocumentService, index driving.IndexService, open FolderOpener) *FolderSync {
	return &FolderSync{
		documents: documents,
		index:     index,
		open:      open,
		stat:      os.Stat,
	}
}

type syncOutcome int

const (
	outcomeUnchanged syncOutcome = iota
	outcomeAdded
	outcomeUpdated
)

// Sync performs one full pass over root.
func (s *FolderSync) Sync(ctx context.Context, ownerID, root string) (*driving.FolderSyncReport, error) {
	src, err := s.open(root)
	if err != nil {
		return nil, fmt.Errorf("open folder %s: %w", root, err)
	}
	defer src.Close()

	paths, err := src.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", src.Root(), err)
	}
	tracked, err := s.tracked(ctx, ownerID, src.Root())
	if err != nil {
		return nil, err
	}

	logger.Info("Syncing %d files from %s", len(paths), src.Root())

	report := &driving.FolderSyncReport{Root: src.Root()}
	seen := make(map[string]bool, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		seen[path] = true

		var existing *domain.IndexedDocument
		if doc, ok := tracked[path]; ok {
			existing = &doc
		}
		outcome, _, err := s.apply(ctx, ownerID, path, existing)
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", path, err))
			logger.Warn("Failed to import %s: %v", path, err)
			continue
		}
		switch outcome {
		case outcomeAdded:
			report.Added++
		case outcomeUpdated:
			report.Updated++
		default:
			report.Unchanged++
		}
	}

	for path, doc := range tracked {
		if seen[path] {
			continue
		}
		if err := s.documents.Delete(ctx, ownerID, doc.Document.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		report.Removed++
	}

	logger.Info("Folder sync complete: %d added, %d updated, %d removed, %d failed",
		report.Added, report.Updated, report.Removed, report.Failed)
	return report, nil
}

// Watch applies file changes under root until ctx is cancelled.
func (s *FolderSync) Watch(ctx context.Context, ownerID, root string, onEvent func(driving.FolderEvent)) error {
	src, err := s.open(root)
	if err != nil {
		return fmt.Errorf("open folder %s: %w", root, err)
	}
	defer src.Close()

	changes, err := src.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch %s: %w", src.Root(), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			event := s.handle(ctx, ownerID, src.Root(), change)
			if event.Err != nil {
				logger.Warn("Failed to apply %s %s: %v", change.Type, change.Path, event.Err)
			}
			if onEvent != nil {
				onEvent(event)
			}
		}
	}
}

func (s *FolderSync) handle(ctx context.Context, ownerID, root string, change domain.FileChange) driving.FolderEvent {
	event := driving.FolderEvent{Change: change}

	tracked, err := s.tracked(ctx, ownerID, root)
	if err != nil {
		event.Err = err
		return event
	}
	var existing *domain.IndexedDocument
	if doc, ok := tracked[change.Path]; ok {
		existing = &doc
		event.DocumentID = doc.Document.ID
	}

	switch change.Type {
	case domain.ChangeDeleted:
		if existing == nil {
			return event
		}
		if err := s.documents.Delete(ctx, ownerID, existing.Document.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			event.Err = err
		}
	default:
		_, id, err := s.apply(ctx, ownerID, change.Path, existing)
		event.Err = err
		if id != "" {
			event.DocumentID = id
		}
	}
	return event
}

// apply imports path unless existing already reflects the same file version.
func (s *FolderSync) apply(
	ctx context.Context,
	ownerID, path string,
	existing *domain.IndexedDocument,
) (syncOutcome, string, error) {
	info, err := s.stat(path)
	if err != nil {
		return outcomeUnchanged, "", fmt.Errorf("stat: %w", err)
	}
	version := info.ModTime().UTC().Format(time.RFC3339Nano)

	if existing != nil {
		if existing.Document.Metadata[domain.MetaSourceModTime] == version &&
			existing.Status.State == domain.IndexCompleted {
			return outcomeUnchanged, existing.Document.ID, nil
		}
		if err := s.documents.Delete(ctx, ownerID, existing.Document.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return outcomeUnchanged, "", fmt.Errorf("replace %s: %w", existing.Document.ID, err)
		}
	}

	created, err := s.documents.Create(ctx, driving.CreateDocumentRequest{
		OwnerID:  ownerID,
		Origin:   domain.OriginFile,
		FilePath: path,
		FileName: filepath.Base(path),
		Metadata: map[string]any{
			domain.MetaSourcePath:    path,
			domain.MetaSourceModTime: version,
		},
	})
	if err != nil {
		return outcomeUnchanged, "", err
	}

	id := created.Document.ID
	if _, err := s.index.Index(ctx, ownerID, id); err != nil {
		return outcomeUnchanged, id, fmt.Errorf("index: %w", err)
	}

	if existing != nil {
		return outcomeUpdated, id, nil
	}
	return outcomeAdded, id, nil
}

// tracked returns the owner's documents imported from below root, by path.
func (s *FolderSync) tracked(ctx context.Context, ownerID, root string) (map[string]domain.IndexedDocument, error) {
	docs, err := s.documents.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	prefix := strings.TrimSuffix(root, string(filepath.Separator)) + string(filepath.Separator)
	out := make(map[string]domain.IndexedDocument)
	for _, doc := range docs {
		path, ok := doc.Document.Metadata[domain.MetaSourcePath].(string)
		if ok && strings.HasPrefix(path, prefix) {
			out[path] = doc
		}
	}
	return out, nil
}
