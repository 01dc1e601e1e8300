package store

import (
	"context"
	"fmt"
)

// AppendChange journals a change descriptor and returns its assigned seq.
// Entry.Seq is ignored.
func (s *Store) AppendChange(ctx context.Context, e Entry) (int64, error) {
	newJSON, err := marshalItems(e.NewItems)
	if err != nil {
		return 0, fmt.Errorf("append change: %w", err)
	}
	oldJSON, err := marshalItems(e.OldItems)
	if err != nil {
		return 0, fmt.Errorf("append change: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO changes
		(relation, owner, action, new_items, old_items, new_index, old_index, propagation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.Relation,
		e.Owner,
		e.Action,
		newJSON,
		oldJSON,
		e.NewIndex,
		e.OldIndex,
		e.Propagation,
	)
	if err != nil {
		return 0, fmt.Errorf("append change: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append change: %w", err)
	}
	return seq, nil
}

// ReplaceMembers overwrites the stored membership of one collection.
// The delete and inserts run in a single transaction.
func (s *Store) ReplaceMembers(ctx context.Context, relation, owner string, members []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace members: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM memberships WHERE relation = ? AND owner = ?`,
		relation, owner,
	); err != nil {
		return fmt.Errorf("replace members: delete: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO memberships (relation, owner, position, member) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("replace members: prepare: %w", err)
	}
	defer stmt.Close()

	for i, m := range members {
		if _, err := stmt.ExecContext(ctx, relation, owner, i, m); err != nil {
			return fmt.Errorf("replace members: insert %q: %w", m, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace members: commit: %w", err)
	}
	return nil
}
