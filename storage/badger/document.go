package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/cruisekb/core"
	"github.com/poiesic/cruisekb/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
	posSeq  *badger.Sequence
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	posSeq, err := backend.GetSequence(docSeq)
	if err != nil {
		return nil, err
	}
	return &DocumentRepository{backend: backend, posSeq: posSeq}, nil
}

// Close releases the position sequence.
func (r *DocumentRepository) Close() error {
	return r.posSeq.Release()
}

// SaveTransformed upserts a document by id.
func (r *DocumentRepository) SaveTransformed(ctx context.Context, doc *core.Document) error {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocKey(doc.ID)
		rec := &storage.StoredDocument{Document: doc, CreatedAt: time.Now().UTC()}

		existing, err := getValue(tx, key)
		switch {
		case err == nil:
			prev, err := storage.UnmarshalDocument(existing)
			if err != nil {
				return err
			}
			rec.Position = prev.Position
		case errors.Is(err, storage.ErrNotFound):
			pos, err := nextID(r.posSeq)
			if err != nil {
				return err
			}
			rec.Position = pos
			if err := tx.Set(makePositionKey(docPositionPrefix, pos), []byte(doc.ID)); err != nil {
				return err
			}
		default:
			return err
		}

		value, err := storage.MarshalDocument(rec)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// TransformedCount returns the number of stored documents.
func (r *DocumentRepository) TransformedCount(ctx context.Context) (int, error) {
	return r.backend.countPrefix([]byte(docPositionPrefix))
}

// TransformedBatch returns up to size documents starting at offset.
func (r *DocumentRepository) TransformedBatch(ctx context.Context, size, offset int) ([]*core.Document, error) {
	if size <= 0 || offset < 0 {
		return nil, storage.ErrInvalidQuery
	}
	var docs []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := pageIDs(tx, docPositionPrefix, size, offset)
		if err != nil {
			return err
		}
		docs = make([]*core.Document, 0, len(ids))
		for _, id := range ids {
			doc, err := loadDocument(tx, id)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// GetTransformed returns a single document.
func (r *DocumentRepository) GetTransformed(ctx context.Context, id string) (*core.Document, error) {
	var doc *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		doc, err = loadDocument(tx, id)
		return err
	}, false)
	return doc, err
}

func loadDocument(tx *badger.Txn, id string) (*core.Document, error) {
	value, err := getValue(tx, makeDocKey(id))
	if err != nil {
		return nil, err
	}
	rec, err := storage.UnmarshalDocument(value)
	if err != nil {
		return nil, err
	}
	return rec.Document, nil
}
