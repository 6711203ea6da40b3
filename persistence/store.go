// Package persistence implements the content library store: an ordered,
// persistent key-value layer over Badger holding typed keys (objects and
// resources) and tagged binary object records.
package persistence

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/eems/eems/log"
	"github.com/eems/eems/model"
)

// Store is the content library store. It is safe for concurrent readers; the
// engine serializes writes internally, and all writes happen during the
// pre-serving scan phase.
type Store struct {
	db *badger.DB
}

// OpenOrCreate opens the library database at path, creating it when absent.
// The returned bool is true iff the database did not previously exist; in
// that case the root container is committed and synced before returning.
func OpenOrCreate(path string) (*Store, bool, error) {
	fresh, err := isFreshDir(path)
	if err != nil {
		return nil, false, err
	}

	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, false, fmt.Errorf("opening library database %q: %w", path, err)
	}
	s := &Store{db: db}

	if fresh {
		root := model.NewContainer(model.RootObjectID, model.NoParentID, "Root")
		if err := s.putObject(root); err != nil {
			_ = db.Close()
			return nil, false, fmt.Errorf("initializing root container: %w", err)
		}
		if err := db.Sync(); err != nil {
			_ = db.Close()
			return nil, false, fmt.Errorf("syncing fresh database: %w", err)
		}
		log.Info("Created fresh library database", "path", path)
	}

	return s, fresh, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func isFreshDir(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("inspecting database directory %q: %w", path, err)
	}
	return len(entries) == 0, nil
}

// NextID returns one past the largest id persisted for the tag, or 0 when no
// key of that tag exists. It reverse-seeks to the highest possible key of the
// tag and confirms the tag before trusting the hit.
func (s *Store) NextID(tag model.KeyTag) (int64, error) {
	var next int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek(maxKeyForTag(tag))
		if !it.ValidForPrefix(tagPrefix(tag)) {
			next = 0
			return nil
		}
		key, err := DecodeKey(it.Item().Key())
		if err != nil {
			return err
		}
		next = key.ID + 1
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("finding next %s id: %w", tag, err)
	}
	return next, nil
}

// PutBatch atomically inserts resources and items under an existing parent
// container: resources are written first, the parent is rewritten with its
// children list extended by each item's key in the given order, and the items
// are written last. A failed commit leaves the store unchanged.
func (s *Store) PutBatch(parentID int64, items []*model.MediaObject, resources []*model.Resource) error {
	for _, item := range items {
		if item.ParentID != parentID {
			return fmt.Errorf("object %d names parent %d, batch targets %d: %w",
				item.ID, item.ParentID, parentID, model.ErrParentMismatch)
		}
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		parent, err := getObjectTxn(txn, parentID)
		if err != nil {
			return fmt.Errorf("loading parent %d: %w", parentID, err)
		}
		if !parent.IsContainer() {
			return fmt.Errorf("parent %d: %w", parentID, model.ErrNotAContainer)
		}

		for _, res := range resources {
			data, err := EncodeResource(res)
			if err != nil {
				return err
			}
			if err := txn.Set(EncodeKey(model.ResourceKey(res.ID)), data); err != nil {
				return err
			}
		}

		for _, item := range items {
			parent.Container.Children = append(parent.Container.Children, item.Key())
		}
		parentData, err := EncodeObject(parent)
		if err != nil {
			return err
		}
		if err := txn.Set(EncodeKey(parent.Key()), parentData); err != nil {
			return err
		}

		for _, item := range items {
			data, err := EncodeObject(item)
			if err != nil {
				return err
			}
			if err := txn.Set(EncodeKey(item.Key()), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("batch insert under %d: %w", parentID, err)
	}
	return nil
}

// Get returns the media object with the given id.
func (s *Store) Get(id int64) (*model.MediaObject, error) {
	var obj *model.MediaObject
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		obj, err = getObjectTxn(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// ListChildren returns the container's children in its authoritative order.
// A child key that does not resolve is reported as corruption, never skipped.
func (s *Store) ListChildren(containerID int64) ([]*model.MediaObject, error) {
	var children []*model.MediaObject
	err := s.db.View(func(txn *badger.Txn) error {
		parent, err := getObjectTxn(txn, containerID)
		if err != nil {
			return err
		}
		if !parent.IsContainer() {
			return fmt.Errorf("object %d: %w", containerID, model.ErrNotAContainer)
		}
		children = make([]*model.MediaObject, 0, len(parent.Container.Children))
		for _, key := range parent.Container.Children {
			child, err := getObjectTxn(txn, key.ID)
			if errors.Is(err, model.ErrNotFound) {
				return fmt.Errorf("%w: child %d of container %d does not resolve",
					model.ErrCorrupt, key.ID, containerID)
			}
			if err != nil {
				return err
			}
			children = append(children, child)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return children, nil
}

// GetResource returns the resource record with the given id.
func (s *Store) GetResource(resourceID int64) (*model.Resource, error) {
	var res *model.Resource
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(EncodeKey(model.ResourceKey(resourceID)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("resource %d: %w", resourceID, model.ErrNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			res, err = DecodeResource(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) putObject(obj *model.MediaObject) error {
	data, err := EncodeObject(obj)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(EncodeKey(obj.Key()), data)
	})
}

func getObjectTxn(txn *badger.Txn, id int64) (*model.MediaObject, error) {
	item, err := txn.Get(EncodeKey(model.ObjectKey(id)))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("object %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var obj *model.MediaObject
	err = item.Value(func(val []byte) error {
		obj, err = DecodeObject(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return obj, nil
}
