package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tether/internal/store"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database string
	Relation string
	Owner    string
	Verify   bool
}

// JournalEntry is the JSON form of one journaled change.
type JournalEntry struct {
	Seq         int64    `json:"seq"`
	Relation    string   `json:"relation"`
	Owner       string   `json:"owner"`
	Action      string   `json:"action"`
	NewItems    []string `json:"new_items"`
	OldItems    []string `json:"old_items"`
	NewIndex    int      `json:"new_index"`
	OldIndex    int      `json:"old_index"`
	Propagation string   `json:"propagation,omitempty"`
}

// JournalResult holds the output of the journal command.
type JournalResult struct {
	Entries      []JournalEntry `json:"entries"`
	Propagations int            `json:"propagations"`
	Verified     []string       `json:"verified,omitempty"`
	Divergent    []string       `json:"divergent,omitempty"`
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the change journal of a database",
		Long: `List the change descriptors journaled by "tether run --db".

With --verify the database settings and schema version are checked first,
then every listed collection is rebuilt from its journal alone
and compared with its stored membership.

Examples:
  tether journal --db ./tether.db
  tether journal --db ./tether.db --relation children --owner root
  tether journal --db ./tether.db --verify`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Relation, "relation", "", "only show this relation")
	cmd.Flags().StringVar(&opts.Owner, "owner", "", "only show this owner")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "replay each collection and compare with its membership")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}

	st, err := store.Open(opts.Database, store.WithStoreLogger(newLogger(opts.RootOptions, cmd.ErrOrStderr())))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if opts.Verify {
		if err := st.Check(ctx); err != nil {
			return WrapExitError(ExitCommandError, "database check failed", err)
		}
	}
	entries, err := st.Journal(ctx, store.Filter{Relation: opts.Relation, Owner: opts.Owner})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	tokens, err := st.Propagations(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read propagations", err)
	}

	result := JournalResult{
		Entries:      make([]JournalEntry, 0, len(entries)),
		Propagations: len(tokens),
	}
	for _, e := range entries {
		result.Entries = append(result.Entries, JournalEntry(e))
	}

	if opts.Verify {
		for _, c := range journaledCollections(entries) {
			label := c.relation + "/" + c.owner
			if err := st.Verify(ctx, c.relation, c.owner); err != nil {
				result.Divergent = append(result.Divergent, fmt.Sprintf("%s: %v", label, err))
				continue
			}
			result.Verified = append(result.Verified, label)
		}
	}

	if opts.Format == "json" {
		status := "ok"
		if len(result.Divergent) > 0 {
			status = "error"
		}
		if err := writeJSON(cmd.OutOrStdout(), CLIResponse{Status: status, Data: result}); err != nil {
			return err
		}
	} else {
		printJournal(cmd, result)
	}

	if len(result.Divergent) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d collections diverge from their journal", len(result.Divergent)))
	}
	return nil
}

type collectionKey struct {
	relation string
	owner    string
}

// journaledCollections returns the distinct collections in entries, in
// order of first appearance.
func journaledCollections(entries []store.Entry) []collectionKey {
	seen := make(map[collectionKey]bool)
	var keys []collectionKey
	for _, e := range entries {
		k := collectionKey{e.Relation, e.Owner}
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

func printJournal(cmd *cobra.Command, result JournalResult) {
	w := cmd.OutOrStdout()
	if len(result.Entries) == 0 {
		fmt.Fprintln(w, "Journal is empty.")
	}
	for _, e := range result.Entries {
		fmt.Fprintf(w, "%4d %s/%s %s new=[%s]@%d old=[%s]@%d",
			e.Seq, e.Relation, e.Owner, e.Action,
			strings.Join(e.NewItems, " "), e.NewIndex,
			strings.Join(e.OldItems, " "), e.OldIndex)
		if e.Propagation != "" {
			fmt.Fprintf(w, " propagation=%s", e.Propagation)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "\n%d entries, %d propagations\n", len(result.Entries), result.Propagations)

	for _, label := range result.Verified {
		fmt.Fprintf(w, "✓ %s\n", label)
	}
	for _, msg := range result.Divergent {
		fmt.Fprintf(w, "✗ %s\n", msg)
	}
}
