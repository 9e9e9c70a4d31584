package schema

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Cache persists resolved schemas across process restarts, keyed by index
// oid, so a parallel worker reopening the same index (MvccPolicy.
// ParallelWorker) doesn't have to re-derive field metadata from scratch.
// Tuning mirrors storage.NewBadgerStore in the teacher repo.
type Cache struct {
	db *badger.DB
}

// OpenCache opens (or creates) a schema cache at path.
func OpenCache(path string) (*Cache, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.MemTableSize = 32 << 20
	opts.ValueThreshold = 1 << 10

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("schema: open cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying Badger database.
func (c *Cache) Close() error {
	return c.db.Close()
}

type cachedField struct {
	Name            string `json:"name"`
	Type            Type   `json:"type"`
	IsFast          bool   `json:"is_fast"`
	IsSortableRaw   bool   `json:"is_sortable_raw"`
	IsSortableLower bool   `json:"is_sortable_lower"`
	TokenizerName   string `json:"tokenizer"`
	Stored          bool   `json:"stored"`
	Precision       int    `json:"precision,omitempty"`
	Scale           int    `json:"scale,omitempty"`
}

func cacheKey(oid IndexOID) []byte {
	return []byte(fmt.Sprintf("schema/%d", oid))
}

// Put stores the resolved field set for oid.
func (c *Cache) Put(oid IndexOID, fields []SearchField) error {
	rows := make([]cachedField, len(fields))
	for i, f := range fields {
		rows[i] = cachedField{
			Name:            string(f.Name),
			Type:            f.Type,
			IsFast:          f.IsFast,
			IsSortableRaw:   f.IsSortableRaw,
			IsSortableLower: f.IsSortableLower,
			TokenizerName:   f.Tokenizer.Name,
			Stored:          f.Stored,
			Precision:       f.NumericScale.Precision,
			Scale:           f.NumericScale.Scale,
		}
	}
	buf, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("schema: encode cache entry: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cacheKey(oid), buf)
	})
}

// Get returns a Handle built from the cached field set for oid, or
// ErrSchemaUnavailable if nothing has been cached yet (the cache is the
// only backing store in this core; a real extension would fall back to the
// host's catalog here).
func (c *Cache) Get(oid IndexOID) (*Handle, error) {
	var buf []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(oid))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return ErrSchemaUnavailable
			}
			return err
		}
		return item.Value(func(v []byte) error {
			buf = append([]byte(nil), v...)
			return nil
		})
	})
	if err != nil {
		if err == ErrSchemaUnavailable {
			return nil, err
		}
		return nil, fmt.Errorf("schema: read cache entry: %w", err)
	}

	var rows []cachedField
	if err := json.Unmarshal(buf, &rows); err != nil {
		return nil, fmt.Errorf("schema: decode cache entry: %w", err)
	}
	fields := make([]SearchField, len(rows))
	for i, r := range rows {
		fields[i] = SearchField{
			Name:            FieldName(r.Name),
			Type:            r.Type,
			IsFast:          r.IsFast,
			IsSortableRaw:   r.IsSortableRaw,
			IsSortableLower: r.IsSortableLower,
			Tokenizer:       TokenizerConfig{Name: r.TokenizerName},
			Stored:          r.Stored,
			NumericScale:    NumericScale{Precision: r.Precision, Scale: r.Scale},
		}
	}
	return Open(oid, fields)
}

// Invalidate drops the cached schema for oid, forcing the next Get to
// return ErrSchemaUnavailable until Put is called again (used when the
// host signals the index is being rebuilt).
func (c *Cache) Invalidate(oid IndexOID) error {
	return c.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(cacheKey(oid))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}
