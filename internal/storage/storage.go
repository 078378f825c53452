// Package storage defines the item store behind the demo API router.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when an item does not exist.
var ErrNotFound = errors.New("item not found")

// Item is a single stored item.
type Item struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// ListOptions controls item listing.
type ListOptions struct {
	Limit  int
	Offset int
}

// ItemStore persists items.
type ItemStore interface {
	ListItems(ctx context.Context, opts ListOptions) ([]*Item, error)
	GetItem(ctx context.Context, id int64) (*Item, error)
	// CreateItem assigns ID and CreatedAt on item.
	CreateItem(ctx context.Context, item *Item) error
	Close() error
}
