package inventory

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"path"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/erazemk/inventar/internal/blob"
	"github.com/erazemk/inventar/internal/imaging"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

var errNoBlobs = fmt.Errorf("%w: no file storage configured", ErrStoreIO)

// Upload is a file attached to an item.
type Upload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

func (s *Service) existingItem(ctx context.Context, id string) (*model.Item, error) {
	item, err := store.GetItem(ctx, s.db, id)
	if err != nil {
		return nil, storeErr(err)
	}
	if item == nil {
		return nil, fmt.Errorf("%w: item %s", ErrNotFound, id)
	}
	return item, nil
}

// AttachDocument uploads a file and appends its metadata to the item's
// documents. The upload is removed again if the item cannot be updated.
func (s *Service) AttachDocument(ctx context.Context, sess model.Session, itemID string, up Upload) (_ *model.Document, err error) {
	ctx, span := s.startSpan(ctx, "AttachDocument", attribute.String("item.id", itemID))
	defer func() { endSpan(span, err) }()

	if s.blobs == nil {
		return nil, errNoBlobs
	}
	name := path.Base(strings.ReplaceAll(up.Name, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		err := fmt.Errorf("%w: file name is required", ErrInvalidInput)
		s.reject("attach_document", err)
		return nil, err
	}
	if _, err := s.existingItem(ctx, itemID); err != nil {
		s.reject("attach_document", err)
		return nil, err
	}

	key := blob.DocumentKey(itemID, name)
	info, err := s.blobs.Put(ctx, key, up.Body, blob.PutOptions{ContentType: up.ContentType})
	if err != nil {
		err = &StepError{Op: "attach document", Failed: "upload file", Err: err}
		s.reject("attach_document", err)
		return nil, err
	}

	now := s.clock()
	doc := model.Document{
		ID:         store.NewID(),
		Name:       name,
		URL:        s.blobs.URL(key),
		Path:       key,
		Type:       blob.DocumentType(up.ContentType),
		Size:       info.Size,
		UploadDate: now,
	}

	st := &steps{op: "attach document", done: []string{"upload file"}}
	err = s.inTx(ctx, st, func(tx *sql.Tx) error {
		item, err := store.GetItem(ctx, tx, itemID)
		if err != nil {
			return st.fail("load item", err)
		}
		if item == nil {
			return st.fail("load item", fmt.Errorf("%w: item %s", ErrNotFound, itemID))
		}
		if err := store.SetItemDocuments(ctx, tx, itemID, append(item.Documents, doc), now); err != nil {
			return st.fail("update documents", err)
		}
		st.ok("update documents")
		return nil
	})
	if err != nil {
		if derr := s.blobs.Delete(context.WithoutCancel(ctx), key); derr != nil {
			s.log.Error().Err(derr).Str("key", key).Msg("removing orphaned upload")
		}
		s.reject("attach_document", err)
		return nil, err
	}

	s.log.Info().Str("user", sess.User.Name).Str("item", itemID).Str("document", doc.Name).Msg("document attached")
	return &doc, nil
}

// RemoveDocument drops a document from the item and deletes its file.
func (s *Service) RemoveDocument(ctx context.Context, sess model.Session, itemID, docID string) (err error) {
	ctx, span := s.startSpan(ctx, "RemoveDocument", attribute.String("item.id", itemID))
	defer func() { endSpan(span, err) }()

	var removed model.Document
	st := &steps{op: "remove document"}
	err = s.inTx(ctx, st, func(tx *sql.Tx) error {
		item, err := store.GetItem(ctx, tx, itemID)
		if err != nil {
			return storeErr(err)
		}
		if item == nil {
			return fmt.Errorf("%w: item %s", ErrNotFound, itemID)
		}
		kept := make([]model.Document, 0, len(item.Documents))
		found := false
		for _, d := range item.Documents {
			if d.ID == docID {
				removed = d
				found = true
				continue
			}
			kept = append(kept, d)
		}
		if !found {
			return fmt.Errorf("%w: document %s on item %s", ErrNotFound, docID, itemID)
		}
		if err := store.SetItemDocuments(ctx, tx, itemID, kept, s.clock()); err != nil {
			return st.fail("update documents", err)
		}
		st.ok("update documents")
		return nil
	})
	if err != nil {
		s.reject("remove_document", err)
		return err
	}

	if s.blobs != nil && removed.Path != "" {
		if err := s.blobs.Delete(ctx, removed.Path); err != nil {
			s.log.Warn().Err(err).Str("key", removed.Path).Msg("deleting document file")
		}
	}
	s.log.Info().Str("user", sess.User.Name).Str("item", itemID).Str("document", removed.Name).Msg("document removed")
	return nil
}

// SetItemImage stores a processed photo for the item and points its image
// URL at it.
func (s *Service) SetItemImage(ctx context.Context, sess model.Session, itemID string, r io.Reader) (_ *model.Item, err error) {
	ctx, span := s.startSpan(ctx, "SetItemImage", attribute.String("item.id", itemID))
	defer func() { endSpan(span, err) }()

	if s.blobs == nil {
		return nil, errNoBlobs
	}
	if _, err := s.existingItem(ctx, itemID); err != nil {
		s.reject("set_item_image", err)
		return nil, err
	}

	photo, err := imaging.Process(r, imaging.Options{})
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidInput, err)
		s.reject("set_item_image", err)
		return nil, err
	}

	key := blob.ImageKey(itemID)
	if _, err := s.blobs.Put(ctx, key, bytes.NewReader(photo.Data), blob.PutOptions{ContentType: photo.MIME}); err != nil {
		err = &StepError{Op: "set item image", Failed: "upload file", Err: err}
		s.reject("set_item_image", err)
		return nil, err
	}

	now := s.clock()
	url := fmt.Sprintf("%s?v=%d", s.blobs.URL(key), now.Unix())
	ok, err := store.UpdateItem(ctx, s.db, itemID, store.ItemPatch{ImageURL: &url}, now)
	if err == nil && !ok {
		err = fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}
	if err != nil {
		err = &StepError{Op: "set item image", Completed: []string{"upload file"}, Failed: "update item", Err: err}
		s.reject("set_item_image", err)
		return nil, err
	}

	item, err := store.GetItem(ctx, s.db, itemID)
	if err != nil {
		return nil, storeErr(err)
	}
	s.log.Info().Str("user", sess.User.Name).Str("item", itemID).Int("width", photo.Width).Int("height", photo.Height).Msg("item image set")
	return item, nil
}
