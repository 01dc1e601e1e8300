package store

import (
	"context"
	"fmt"
	"slices"
)

// Replay rebuilds the contents of one collection from its journal alone.
// Entries are applied in seq order to an empty list; a reset entry carries
// the full contents that followed it.
//
// Changes flushed from a Sequence batch are journaled after all of the
// batch's mutations ran, so their reset entries may already include later
// additions; Verify reports such journals as divergent.
func (s *Store) Replay(ctx context.Context, relation, owner string) ([]string, error) {
	entries, err := s.Journal(ctx, Filter{Relation: relation, Owner: owner})
	if err != nil {
		return nil, fmt.Errorf("replay %s/%s: %w", relation, owner, err)
	}

	members := []string{}
	for _, e := range entries {
		members, err = applyEntry(members, e)
		if err != nil {
			return nil, fmt.Errorf("replay %s/%s: %w", relation, owner, err)
		}
	}
	return members, nil
}

// Verify replays the journal of one collection and compares the result with
// its stored membership.
func (s *Store) Verify(ctx context.Context, relation, owner string) error {
	replayed, err := s.Replay(ctx, relation, owner)
	if err != nil {
		return err
	}
	stored, err := s.Members(ctx, relation, owner)
	if err != nil {
		return fmt.Errorf("verify %s/%s: %w", relation, owner, err)
	}
	if !slices.Equal(replayed, stored) {
		return fmt.Errorf("verify %s/%s: journal replays to %v, stored membership is %v",
			relation, owner, replayed, stored)
	}
	return nil
}

// Propagations lists the distinct non-empty propagation tokens in journal
// order of first appearance.
func (s *Store) Propagations(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT propagation FROM changes
		WHERE propagation != ''
		GROUP BY propagation
		ORDER BY MIN(seq) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query propagations: %w", err)
	}
	defer rows.Close()

	tokens := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan propagation: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate propagations: %w", err)
	}
	return tokens, nil
}

// applyEntry applies one change descriptor. A negative index means the
// container is unordered: additions append and removals go by value.
func applyEntry(members []string, e Entry) ([]string, error) {
	switch e.Action {
	case "add":
		if e.NewIndex < 0 {
			return append(members, e.NewItems...), nil
		}
		if e.NewIndex > len(members) {
			return nil, fmt.Errorf("change %d: add at %d past end %d", e.Seq, e.NewIndex, len(members))
		}
		return slices.Insert(members, e.NewIndex, e.NewItems...), nil

	case "remove":
		if e.OldIndex < 0 {
			for _, item := range e.OldItems {
				i := slices.Index(members, item)
				if i < 0 {
					return nil, fmt.Errorf("change %d: remove of absent %q", e.Seq, item)
				}
				members = slices.Delete(members, i, i+1)
			}
			return members, nil
		}
		end := e.OldIndex + len(e.OldItems)
		if end > len(members) {
			return nil, fmt.Errorf("change %d: remove [%d,%d) past end %d", e.Seq, e.OldIndex, end, len(members))
		}
		return slices.Delete(members, e.OldIndex, end), nil

	case "replace":
		end := e.NewIndex + len(e.OldItems)
		if e.NewIndex < 0 || end > len(members) {
			return nil, fmt.Errorf("change %d: replace at %d out of range", e.Seq, e.NewIndex)
		}
		return slices.Replace(members, e.NewIndex, end, e.NewItems...), nil

	case "move":
		if e.OldIndex < 0 || e.OldIndex >= len(members) || e.NewIndex < 0 || e.NewIndex >= len(members) {
			return nil, fmt.Errorf("change %d: move %d->%d out of range", e.Seq, e.OldIndex, e.NewIndex)
		}
		item := members[e.OldIndex]
		members = slices.Delete(members, e.OldIndex, e.OldIndex+1)
		return slices.Insert(members, e.NewIndex, item), nil

	case "reset":
		return slices.Clone(e.NewItems), nil
	}
	return nil, fmt.Errorf("change %d: unknown action %q", e.Seq, e.Action)
}
