package repository

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"gocloud.dev/docstore"
	"gocloud.dev/gcerrors"

	"github.com/brightchat/fieldvault/internal/store"

	// Register document store drivers
	_ "gocloud.dev/docstore/memdocstore"
	_ "gocloud.dev/docstore/mongodocstore"
)

// CollectionPlaceholder is the token in a DOCSTORE_URL template that is
// replaced with the collection name.
const CollectionPlaceholder = "{collection}"

// DocstoreRepository implements store.DocumentStore on top of gocloud.dev
// docstore collections. The URL template selects the provider:
//
//	mem://{collection}/_id
//	mongo://brightchat/{collection}
//
// Collections are opened lazily and cached for the lifetime of the
// repository; the mem provider keeps its data only while the collection
// stays open, so a single repository instance must be shared per process.
type DocstoreRepository struct {
	urlTemplate string
	idField     string

	mu          sync.Mutex
	collections map[string]*docstore.Collection
}

func (d *DocstoreRepository) collection(ctx context.Context, name string) (*docstore.Collection, error) {
	if err := validateCollection(name); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if coll, ok := d.collections[name]; ok {
		return coll, nil
	}

	url := strings.ReplaceAll(d.urlTemplate, CollectionPlaceholder, name)
	coll, err := docstore.OpenCollection(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}
	d.collections[name] = coll

	return coll, nil
}

// List returns one page of documents in id order. Docstore providers do not
// guarantee a stable iteration order and expose no offset, so the matching
// documents are collected and ordered client side before slicing the page.
func (d *DocstoreRepository) List(
	ctx context.Context,
	collection string,
	filter map[string]any,
	limit, offset int,
) ([]*store.Document, error) {
	coll, err := d.collection(ctx, collection)
	if err != nil {
		return nil, err
	}

	query := coll.Query()
	for field, value := range filter {
		query = query.Where(docstore.FieldPath(field), "=", value)
	}

	iter := query.Get(ctx)
	defer iter.Stop()

	var docs []*store.Document
	for {
		raw := map[string]any{}
		err := iter.Next(ctx, raw)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
		}

		id, ok := raw[d.idField].(string)
		if !ok {
			return nil, fmt.Errorf(
				"%w: document id field %q is missing or not a string",
				store.ErrInvalidCollection, d.idField,
			)
		}

		fields := make(map[string]any, len(raw))
		for k, v := range raw {
			if k == d.idField || k == docstore.DefaultRevisionField {
				continue
			}
			fields[k] = v
		}

		docs = append(docs, &store.Document{ID: id, Fields: fields})
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	if offset < 0 {
		offset = 0
	}
	if offset >= len(docs) {
		return nil, nil
	}
	end := len(docs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return docs[offset:end], nil
}

// Update applies a shallow field patch to one document. A nil field value
// deletes the field from the document.
func (d *DocstoreRepository) Update(
	ctx context.Context,
	collection, id string,
	fields map[string]any,
) error {
	if len(fields) == 0 {
		return nil
	}

	coll, err := d.collection(ctx, collection)
	if err != nil {
		return err
	}

	mods := docstore.Mods{}
	for field, value := range fields {
		mods[docstore.FieldPath(field)] = value
	}

	if err := coll.Update(ctx, map[string]any{d.idField: id}, mods); err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return store.ErrDocumentNotFound
		}
		return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}

	return nil
}

// Put stores a full document, replacing any existing one with the same id.
// Seeding and tests use it; the engines never create documents.
func (d *DocstoreRepository) Put(
	ctx context.Context,
	collection, id string,
	fields map[string]any,
) error {
	coll, err := d.collection(ctx, collection)
	if err != nil {
		return err
	}

	doc := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		doc[k] = v
	}
	doc[d.idField] = id

	if err := coll.Put(ctx, doc); err != nil {
		return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}

	return nil
}

// Close closes every opened collection.
func (d *DocstoreRepository) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var firstErr error
	for name, coll := range d.collections {
		if err := coll.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(d.collections, name)
	}

	return firstErr
}

// NewDocstoreRepository creates a repository that opens collections from the
// given URL template. idField names the document key field ("_id" for the
// default templates).
func NewDocstoreRepository(urlTemplate, idField string) *DocstoreRepository {
	return &DocstoreRepository{
		urlTemplate: urlTemplate,
		idField:     idField,
		collections: make(map[string]*docstore.Collection),
	}
}
