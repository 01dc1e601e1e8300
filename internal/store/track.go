package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/tether/internal/observable"
)

// Loader returns an observable.Loader that materializes a container from the
// stored membership of relation/owner. lookup maps a member key back to an
// item; an unknown key fails the load.
func Loader[T any](ctx context.Context, s *Store, relation, owner string, lookup func(string) (T, bool)) observable.Loader[T] {
	return func() ([]T, error) {
		keys, err := s.Members(ctx, relation, owner)
		if err != nil {
			return nil, fmt.Errorf("load %s/%s: %w", relation, owner, err)
		}
		items := make([]T, 0, len(keys))
		for _, k := range keys {
			item, ok := lookup(k)
			if !ok {
				return nil, fmt.Errorf("load %s/%s: unknown member %q", relation, owner, k)
			}
			items = append(items, item)
		}
		return items, nil
	}
}

// TrackOption configures Track.
type TrackOption func(*trackConfig)

type trackConfig struct {
	token  func() string
	logger *slog.Logger
}

// WithPropagation stamps each journal entry with the token returned by fn,
// typically relation.Engine.Token.
func WithPropagation(fn func() string) TrackOption {
	return func(c *trackConfig) {
		c.token = fn
	}
}

// WithLogger sets the logger for journal writes.
func WithLogger(logger *slog.Logger) TrackOption {
	return func(c *trackConfig) {
		c.logger = logger
	}
}

// Track subscribes to coll so that every change it raises is appended to the
// journal and the stored membership is rewritten. A store failure is returned
// from the mutating call. Unsubscribe the returned id to stop tracking.
//
// Track subscribes before any relation is attached to see a change before
// the sync engine reacts to it; entries raised during propagation then carry
// the propagation token.
func Track[T comparable](ctx context.Context, s *Store, relation, owner string, coll observable.Collection[T], key func(T) string, opts ...TrackOption) observable.SubscriptionID {
	cfg := trackConfig{
		token:  func() string { return "" },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	keys := func(items []T) []string {
		out := make([]string, len(items))
		for i, item := range items {
			out[i] = key(item)
		}
		return out
	}

	return coll.Subscribe(func(change observable.Change[T]) error {
		entry := Entry{
			Relation:    relation,
			Owner:       owner,
			Action:      change.Action.String(),
			NewItems:    keys(change.NewItems),
			OldItems:    keys(change.OldItems),
			NewIndex:    change.NewIndex,
			OldIndex:    change.OldIndex,
			Propagation: cfg.token(),
		}
		current := keys(coll.Items())
		if change.Action == observable.ActionReset {
			entry.NewItems = current
		}

		seq, err := s.AppendChange(ctx, entry)
		if err != nil {
			return fmt.Errorf("track %s/%s: %w", relation, owner, err)
		}
		if err := s.ReplaceMembers(ctx, relation, owner, current); err != nil {
			return fmt.Errorf("track %s/%s: %w", relation, owner, err)
		}

		cfg.logger.Debug("journaled change",
			"relation", relation,
			"owner", owner,
			"action", entry.Action,
			"seq", seq,
			"propagation", entry.Propagation,
		)
		return nil
	})
}
