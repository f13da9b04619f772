package store

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/metadeploy/internal/ir"
)

type objectKey struct {
	t  ir.Type
	id string
}

func compareKeys(a, b objectKey) int {
	if c := cmp.Compare(a.t, b.t); c != 0 {
		return c
	}
	return cmp.Compare(a.id, b.id)
}

type entry struct {
	obj ir.Object
	// fingerprint of the row as last read or written; "" when not stored
	fingerprint string
	touched     bool
	deleted     bool
}

// Stats counts what flushes have done since the session was created.
type Stats struct {
	Written   int `json:"written"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`
}

// Session is a unit of work over the objects table.
//
// Thread-safety: Session methods are safe for concurrent use, but the objects
// they return are shared instances and are not synchronised.
type Session struct {
	store *Store

	mu       sync.Mutex
	entries  map[objectKey]*entry
	packages map[string]ir.ImportedPackage // queued import records
	stats    Stats
}

// NewSession starts a unit of work with an empty identity map.
func (s *Store) NewSession() *Session {
	return &Session{
		store:    s,
		entries:  make(map[objectKey]*entry),
		packages: make(map[string]ir.ImportedPackage),
	}
}

// Get returns the object of type t with identifier id, or nil if there is
// none. Repeated calls return the same instance until Clear.
func (ss *Session) Get(ctx context.Context, t ir.Type, id string) (ir.Object, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.getLocked(ctx, t, id)
}

func (ss *Session) getLocked(ctx context.Context, t ir.Type, id string) (ir.Object, error) {
	key := objectKey{t: t, id: id}
	if e, ok := ss.entries[key]; ok {
		if e.deleted {
			return nil, nil
		}
		return e.obj, nil
	}

	var body, fp string
	err := ss.store.db.QueryRowContext(ctx, `
		SELECT body, fingerprint FROM objects WHERE type = ? AND identifier = ?
	`, string(t), id).Scan(&body, &fp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %q: %w", t, id, err)
	}

	obj, err := ss.store.decodeObject(t, body)
	if err != nil {
		return nil, err
	}
	ss.entries[key] = &entry{obj: obj, fingerprint: fp}
	return obj, nil
}

// FindByName returns an object of type t whose display name is name, or nil.
// When several match, the one with the lowest identifier wins. Pending
// changes in the session are taken into account.
func (ss *Session) FindByName(ctx context.Context, t ir.Type, name string) (ir.Object, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	ids, err := ss.storedIDs(ctx, `
		SELECT identifier FROM objects WHERE type = ? AND name = ?
	`, string(t), name)
	if err != nil {
		return nil, fmt.Errorf("find %s by name %q: %w", t, name, err)
	}
	for key, e := range ss.entries {
		if key.t == t && !e.deleted && displayName(e.obj) == name {
			ids = append(ids, key.id)
		}
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	for _, id := range ids {
		obj, err := ss.getLocked(ctx, t, id)
		if err != nil {
			return nil, err
		}
		// the stored name may be stale if the instance was renamed in this session
		if obj != nil && displayName(obj) == name {
			return obj, nil
		}
	}
	return nil, nil
}

// List returns every object of type t ordered by identifier.
func (ss *Session) List(ctx context.Context, t ir.Type) ([]ir.Object, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	ids, err := ss.storedIDs(ctx, `SELECT identifier FROM objects WHERE type = ?`, string(t))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t, err)
	}
	for key := range ss.entries {
		if key.t == t {
			ids = append(ids, key.id)
		}
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	out := make([]ir.Object, 0, len(ids))
	for _, id := range ids {
		obj, err := ss.getLocked(ctx, t, id)
		if err != nil {
			return nil, err
		}
		if obj != nil {
			out = append(out, obj)
		}
	}
	return out, nil
}

// Put registers obj under id so the next Flush persists it. Putting a
// different instance under an existing key replaces the tracked instance.
func (ss *Session) Put(id string, obj ir.Object) error {
	if id == "" {
		return fmt.Errorf("put %s: empty identifier", obj.ObjectType())
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()

	key := objectKey{t: obj.ObjectType(), id: id}
	if e, ok := ss.entries[key]; ok {
		e.obj = obj
		e.touched = true
		e.deleted = false
		return nil
	}
	ss.entries[key] = &entry{obj: obj, touched: true}
	return nil
}

// Delete schedules the object of type t with identifier id for removal.
func (ss *Session) Delete(t ir.Type, id string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	key := objectKey{t: t, id: id}
	if e, ok := ss.entries[key]; ok {
		e.obj = nil
		e.deleted = true
		return
	}
	ss.entries[key] = &entry{deleted: true}
}

// Flush writes pending changes and queued package records in one transaction. Every tracked object is
// re-fingerprinted, so in-place edits to fetched instances are persisted too.
// Rows whose content did not change are left alone.
func (ss *Session) Flush(ctx context.Context) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	keys := make([]objectKey, 0, len(ss.entries))
	for k := range ss.entries {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)

	tx, err := ss.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("flush: begin: %w", err)
	}
	defer tx.Rollback()

	var (
		stats   Stats
		written = make(map[objectKey]string)
		removed []objectKey
	)
	now := formatTime(ss.store.now())

	for _, key := range keys {
		e := ss.entries[key]
		if e.deleted {
			if _, err := tx.ExecContext(ctx, `
				DELETE FROM objects WHERE type = ? AND identifier = ?
			`, string(key.t), key.id); err != nil {
				return fmt.Errorf("flush: delete %s %q: %w", key.t, key.id, err)
			}
			stats.Deleted++
			removed = append(removed, key)
			continue
		}

		enc, err := encodeObject(e.obj)
		if err != nil {
			return fmt.Errorf("flush: %w", err)
		}
		if enc.fingerprint == e.fingerprint {
			if e.touched {
				stats.Unchanged++
			}
			continue
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO objects (type, identifier, name, retired, body, fingerprint, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(type, identifier) DO UPDATE SET
				name = excluded.name,
				retired = excluded.retired,
				body = excluded.body,
				fingerprint = excluded.fingerprint,
				updated_at = excluded.updated_at
			WHERE objects.fingerprint <> excluded.fingerprint
		`, string(key.t), key.id, enc.name, enc.retired, enc.body, enc.fingerprint, now)
		if err != nil {
			return fmt.Errorf("flush: write %s %q: %w", key.t, key.id, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			stats.Written++
		} else {
			stats.Unchanged++
		}
		written[key] = enc.fingerprint
	}

	groups := make([]string, 0, len(ss.packages))
	for g := range ss.packages {
		groups = append(groups, g)
	}
	slices.Sort(groups)
	for _, g := range groups {
		if err := ss.store.upsertImportedPackage(ctx, tx, ss.packages[g]); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("flush: commit: %w", err)
	}

	for key, fp := range written {
		ss.entries[key].fingerprint = fp
	}
	for _, e := range ss.entries {
		e.touched = false
	}
	for _, key := range removed {
		delete(ss.entries, key)
	}
	clear(ss.packages)
	ss.stats.Written += stats.Written
	ss.stats.Deleted += stats.Deleted
	ss.stats.Unchanged += stats.Unchanged
	return nil
}

// Clear drops the identity map. Unflushed changes are discarded.
func (ss *Session) Clear() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.entries = make(map[objectKey]*entry)
	clear(ss.packages)
}

// Tracked returns the number of objects in the identity map.
func (ss *Session) Tracked() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.entries)
}

// Stats returns cumulative flush counts.
func (ss *Session) Stats() Stats {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.stats
}

func (ss *Session) storedIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := ss.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func displayName(obj ir.Object) string {
	if named, ok := obj.(ir.Named); ok {
		return named.DisplayName()
	}
	return ""
}
