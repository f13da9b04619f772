package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/metadeploy/internal/ir"
)

// ImportedPackage returns the import record for groupID, if any.
func (s *Store) ImportedPackage(ctx context.Context, groupID string) (ir.ImportedPackage, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT group_id, name, version, imported_at FROM imported_packages WHERE group_id = ?
	`, groupID)
	pkg, err := scanImportedPackage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.ImportedPackage{}, false, nil
	}
	if err != nil {
		return ir.ImportedPackage{}, false, fmt.Errorf("get imported package %q: %w", groupID, err)
	}
	return pkg, true, nil
}

// RecordImportedPackage stores pkg as the group's imported version. A record
// never moves backwards: an older version than the stored one is ignored.
// A zero ImportedAt is filled from the store clock.
func (s *Store) RecordImportedPackage(ctx context.Context, pkg ir.ImportedPackage) error {
	return s.upsertImportedPackage(ctx, s.db, pkg)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) upsertImportedPackage(ctx context.Context, db execer, pkg ir.ImportedPackage) error {
	if pkg.GroupID == "" {
		return errors.New("record imported package: empty group id")
	}
	at := pkg.ImportedAt
	if at.IsZero() {
		at = s.now()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO imported_packages (group_id, name, version, imported_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(group_id) DO UPDATE SET
			name = excluded.name,
			version = excluded.version,
			imported_at = excluded.imported_at
		WHERE excluded.version >= imported_packages.version
	`, pkg.GroupID, pkg.Name, pkg.Version, formatTime(at))
	if err != nil {
		return fmt.Errorf("record imported package %q: %w", pkg.GroupID, err)
	}
	return nil
}

// RecordImportedPackage queues pkg to be recorded by the next Flush, in the
// same transaction as the objects the package installed. Clear discards it.
func (ss *Session) RecordImportedPackage(_ context.Context, pkg ir.ImportedPackage) error {
	if pkg.GroupID == "" {
		return errors.New("record imported package: empty group id")
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if prior, ok := ss.packages[pkg.GroupID]; ok && prior.Version > pkg.Version {
		return nil
	}
	ss.packages[pkg.GroupID] = pkg
	return nil
}

// ImportedPackage is like Store.ImportedPackage but sees records queued in
// the session.
func (ss *Session) ImportedPackage(ctx context.Context, groupID string) (ir.ImportedPackage, bool, error) {
	ss.mu.Lock()
	pending, queued := ss.packages[groupID]
	ss.mu.Unlock()

	stored, found, err := ss.store.ImportedPackage(ctx, groupID)
	if err != nil {
		return ir.ImportedPackage{}, false, err
	}
	if queued && (!found || pending.Version > stored.Version) {
		return pending, true, nil
	}
	return stored, found, nil
}

// ImportedPackages returns every import record ordered by group.
func (s *Store) ImportedPackages(ctx context.Context) ([]ir.ImportedPackage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT group_id, name, version, imported_at FROM imported_packages
		ORDER BY group_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list imported packages: %w", err)
	}
	defer rows.Close()

	out := []ir.ImportedPackage{}
	for rows.Next() {
		pkg, err := scanImportedPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("list imported packages: %w", err)
		}
		out = append(out, pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list imported packages: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImportedPackage(row rowScanner) (ir.ImportedPackage, error) {
	var pkg ir.ImportedPackage
	var at string
	if err := row.Scan(&pkg.GroupID, &pkg.Name, &pkg.Version, &at); err != nil {
		return ir.ImportedPackage{}, err
	}
	t, err := parseTime(at)
	if err != nil {
		return ir.ImportedPackage{}, err
	}
	pkg.ImportedAt = t
	return pkg, nil
}
