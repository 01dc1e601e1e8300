package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Members returns the stored contents of one collection in position order.
// Returns an empty slice (not nil) when nothing is stored.
func (s *Store) Members(ctx context.Context, relation, owner string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT member FROM memberships
		WHERE relation = ? AND owner = ?
		ORDER BY position ASC
	`, relation, owner)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	members := []string{}
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// Owners lists every owner key with stored membership under relation,
// sorted bytewise.
func (s *Store) Owners(ctx context.Context, relation string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT owner FROM memberships
		WHERE relation = ?
		ORDER BY owner COLLATE BINARY ASC
	`, relation)
	if err != nil {
		return nil, fmt.Errorf("query owners: %w", err)
	}
	defer rows.Close()

	owners := []string{}
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		owners = append(owners, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate owners: %w", err)
	}
	return owners, nil
}

// Journal returns journaled changes matching f, ordered by seq.
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) Journal(ctx context.Context, f Filter) ([]Entry, error) {
	query := `
		SELECT seq, relation, owner, action, new_items, old_items, new_index, old_index, propagation
		FROM changes`
	var (
		where []string
		args  []any
	)
	if f.Relation != "" {
		where = append(where, "relation = ?")
		args = append(args, f.Relation)
	}
	if f.Owner != "" {
		where = append(where, "owner = ?")
		args = append(args, f.Owner)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}

// LastSeq returns the highest journal seq, or 0 for an empty journal.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM changes`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq.Int64, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e                Entry
		newJSON, oldJSON string
	)
	if err := rows.Scan(
		&e.Seq, &e.Relation, &e.Owner, &e.Action,
		&newJSON, &oldJSON, &e.NewIndex, &e.OldIndex, &e.Propagation,
	); err != nil {
		return Entry{}, fmt.Errorf("scan change: %w", err)
	}

	var err error
	if e.NewItems, err = unmarshalItems(newJSON); err != nil {
		return Entry{}, fmt.Errorf("change %d: %w", e.Seq, err)
	}
	if e.OldItems, err = unmarshalItems(oldJSON); err != nil {
		return Entry{}, fmt.Errorf("change %d: %w", e.Seq, err)
	}
	return e, nil
}
