package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mj1618/a11y-chain/internal/model"
	"github.com/mj1618/a11y-chain/internal/output"
	"github.com/mj1618/a11y-chain/internal/store"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Read accessibility events from the journal",
	Long: `Read accessibility events recorded by serve, watch or replay --journal,
newest first.

Examples:
  a11y-chain events --type gesture --since 10m
  a11y-chain events --counts
  a11y-chain events --prune 168h`,
	RunE: runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().String("journal", "", "Journal file (default: observer.journal_path from the config)")
	eventsCmd.Flags().String("type", "", "Only events of this type (e.g. gesture, magnification_changed)")
	eventsCmd.Flags().Int("limit", 50, "Max events (0 = unlimited)")
	eventsCmd.Flags().Duration("since", 0, "Only events newer than this long ago")
	eventsCmd.Flags().Bool("counts", false, "Print the number of events per type instead")
	eventsCmd.Flags().Duration("prune", 0, "Delete events older than this long ago and report how many")
}

// PruneResult is the output of events --prune.
type PruneResult struct {
	Before  time.Time `yaml:"before"  json:"before"`
	Deleted int64     `yaml:"deleted" json:"deleted"`
}

func runEvents(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("journal")
	eventType, _ := cmd.Flags().GetString("type")
	limit, _ := cmd.Flags().GetInt("limit")
	since, _ := cmd.Flags().GetDuration("since")
	counts, _ := cmd.Flags().GetBool("counts")
	prune, _ := cmd.Flags().GetDuration("prune")

	if path == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		path = cfg.Observer.JournalPath
	}
	if path == "" {
		return fmt.Errorf("no journal: pass --journal or set observer.journal_path")
	}

	j, err := store.Open(path, nil)
	if err != nil {
		return err
	}
	defer j.Close()

	w := cmd.OutOrStdout()
	switch {
	case prune > 0:
		before := time.Now().Add(-prune)
		n, err := j.Prune(before)
		if err != nil {
			return err
		}
		return output.Fprint(w, PruneResult{Before: before, Deleted: n})
	case counts:
		byType, err := j.CountByType()
		if err != nil {
			return err
		}
		return output.Fprint(w, byType)
	}

	q := store.Query{Type: model.EventType(eventType), Limit: limit}
	if since > 0 {
		q.Since = time.Now().Add(-since)
	}
	entries, err := j.Recent(q)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	return output.Fprint(w, entries)
}
