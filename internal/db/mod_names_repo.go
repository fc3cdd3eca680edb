package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ModName is a cached workshop mod name
type ModName struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	FetchedAt time.Time `db:"fetched_at"`
}

// Resolver fetches a mod's display name from an external source, typically
// the Steam workshop. It is only consulted on a cache miss.
type Resolver func(ctx context.Context, modID string) (string, error)

// modNameTTL bounds how long a cached name is trusted before the resolver
// is consulted again. Workshop names change rarely.
const modNameTTL = 7 * 24 * time.Hour

// ModNameRepository is a read-through cache of workshop mod names
type ModNameRepository struct {
	db      *DB
	resolve Resolver
}

// NewModNameRepository creates a mod name repository. resolve may be nil,
// in which case only previously stored names are returned.
func NewModNameRepository(db *DB, resolve Resolver) *ModNameRepository {
	return &ModNameRepository{db: db, resolve: resolve}
}

// Name returns the display name of a mod, consulting the resolver on a
// miss or a stale entry. An unknown mod yields an empty name, not an error.
func (r *ModNameRepository) Name(ctx context.Context, modID string) (string, error) {
	var cached ModName
	err := r.db.GetContext(ctx, &cached,
		`SELECT id, name, fetched_at FROM mod_names WHERE id = ?`, modID)
	if err != nil && err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to query mod name: %w", err)
	}

	if err == nil && time.Since(cached.FetchedAt) < modNameTTL {
		return cached.Name, nil
	}

	if r.resolve == nil {
		return cached.Name, nil
	}

	name, resolveErr := r.resolve(ctx, modID)
	if resolveErr != nil {
		// A stale name beats no name; surface the resolver failure only
		// when there is nothing cached to fall back on.
		if err == nil {
			return cached.Name, nil
		}
		return "", nil
	}

	if err := r.Put(ctx, modID, name); err != nil {
		return name, err
	}
	return name, nil
}

// Put stores or refreshes a mod name
func (r *ModNameRepository) Put(ctx context.Context, modID, name string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO mod_names (id, name, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, fetched_at = excluded.fetched_at`,
		modID, name, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store mod name: %w", err)
	}
	return nil
}

// Forget drops a cached name
func (r *ModNameRepository) Forget(ctx context.Context, modID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM mod_names WHERE id = ?`, modID)
	if err != nil {
		return fmt.Errorf("failed to delete mod name: %w", err)
	}
	return nil
}
