package schema

import (
	"context"
	"database/sql"
	"sync"
)

// Cache holds a session-lifetime Descriptor snapshot. Reads are safe
// for concurrent sessions; Refresh rebuilds the snapshot and swaps it
// in atomically rather than mutating the one readers may hold.
type Cache struct {
	db   *sql.DB
	mu   sync.RWMutex
	desc *Descriptor
}

// NewCache creates a cache backed by the given database connection.
func NewCache(db *sql.DB) *Cache {
	return &Cache{db: db}
}

// Get returns the cached Descriptor, loading it on first use.
func (c *Cache) Get(ctx context.Context) (*Descriptor, error) {
	c.mu.RLock()
	desc := c.desc
	c.mu.RUnlock()
	if desc != nil {
		return desc, nil
	}
	return c.Refresh(ctx)
}

// Refresh rebuilds the Descriptor from the database and replaces the
// cached snapshot.
func (c *Cache) Refresh(ctx context.Context) (*Descriptor, error) {
	desc, err := Load(ctx, c.db)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.desc = desc
	c.mu.Unlock()

	return desc, nil
}
