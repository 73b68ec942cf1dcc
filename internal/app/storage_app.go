package app

import (
	"context"
	"log/slog"
	"time"

	"casesearch/internal/lib/logger/sl"
	"casesearch/internal/storage/leveldb"
)

type StorageApp struct {
	log     *slog.Logger
	storage *leveldb.Storage
}

func NewStorageApp(log *slog.Logger, ttl time.Duration) (*StorageApp, error) {
	storage, err := leveldb.New(ttl)
	if err != nil {
		return nil, err
	}
	return &StorageApp{log: log, storage: storage}, nil
}

func (s *StorageApp) Stop() error {
	return s.storage.Close()
}

func (s *StorageApp) Storage() *leveldb.Storage {
	return s.storage
}

// RunPurge drops expired cases every interval until ctx is done. It always
// returns nil so it can sit in an errgroup next to the server.
func (s *StorageApp) RunPurge(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			removed, err := s.storage.Purge(ctx)
			if err != nil {
				s.log.Warn("Failed to purge case cache", sl.Err(err))
				continue
			}
			s.log.Debug("Case cache purged", slog.Int("removed", removed), slog.Int("left", s.storage.Len()))
		}
	}
}
