package leveldb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"casesearch/internal/domain/models"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var ErrCaseNotFound = errors.New("case not found")

const casePrefix = "case:"

// Storage is an in-memory case cache. It never touches the disk.
type Storage struct {
	db  *leveldb.DB
	ttl time.Duration
	now func() time.Time
}

type entry struct {
	StoredAt time.Time          `json:"stored_at"`
	Case     models.CaseSummary `json:"case"`
}

func New(ttl time.Duration) (*Storage, error) {
	const op = "storage.leveldb.New"

	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) SaveCase(ctx context.Context, c *models.CaseSummary) error {
	const op = "storage.leveldb.SaveCase"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if c == nil || c.ID == "" {
		return fmt.Errorf("%s: case without id", op)
	}

	data, err := json.Marshal(entry{StoredAt: s.now(), Case: *c})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.db.Put([]byte(casePrefix+c.ID), data, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// GetCase returns ErrCaseNotFound for missing and expired entries.
// Expired entries are deleted on the way out.
func (s *Storage) GetCase(ctx context.Context, id string) (*models.CaseSummary, error) {
	const op = "storage.leveldb.GetCase"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	key := []byte(casePrefix + id)
	data, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrCaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.expired(e) {
		if err := s.db.Delete(key, nil); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return nil, ErrCaseNotFound
	}

	return &e.Case, nil
}

// Purge drops every expired entry and reports how many were removed.
func (s *Storage) Purge(ctx context.Context) (int, error) {
	const op = "storage.leveldb.Purge"

	batch := new(leveldb.Batch)

	iter := s.db.NewIterator(util.BytesPrefix([]byte(casePrefix)), nil)
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			iter.Release()
			return 0, fmt.Errorf("%s: %w", op, err)
		}

		var e entry
		if err := json.Unmarshal(iter.Value(), &e); err != nil || s.expired(e) {
			batch.Delete(append([]byte(nil), iter.Key()...))
		}
	}
	iter.Release()

	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.db.Write(batch, nil); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return batch.Len(), nil
}

func (s *Storage) Len() int {
	n := 0
	iter := s.db.NewIterator(util.BytesPrefix([]byte(casePrefix)), nil)
	for iter.Next() {
		n++
	}
	iter.Release()
	return n
}

func (s *Storage) expired(e entry) bool {
	return s.ttl > 0 && s.now().Sub(e.StoredAt) > s.ttl
}
