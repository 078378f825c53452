package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tjfontaine/fullstack-app-server/internal/storage"
)

// Store is an in-memory implementation of storage.ItemStore
type Store struct {
	mu     sync.RWMutex
	items  map[int64]*storage.Item
	nextID int64
}

var _ storage.ItemStore = (*Store)(nil)

// New creates a new in-memory store
func New() *Store {
	return &Store{
		items:  make(map[int64]*storage.Item),
		nextID: 1,
	}
}

func (s *Store) ListItems(ctx context.Context, opts storage.ListOptions) ([]*storage.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := []*storage.Item{}
	for id := int64(1); id < s.nextID; id++ {
		if item, ok := s.items[id]; ok {
			cp := *item
			items = append(items, &cp)
		}
	}

	if opts.Offset >= len(items) {
		return []*storage.Item{}, nil
	}
	items = items[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}

	return items, nil
}

func (s *Store) GetItem(ctx context.Context, id int64) (*storage.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[id]
	if !exists {
		return nil, fmt.Errorf("item %d: %w", id, storage.ErrNotFound)
	}

	cp := *item
	return &cp, nil
}

func (s *Store) CreateItem(ctx context.Context, item *storage.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item.ID = s.nextID
	item.CreatedAt = time.Now().UTC()
	s.nextID++

	cp := *item
	s.items[item.ID] = &cp
	return nil
}

func (s *Store) Close() error {
	return nil
}
