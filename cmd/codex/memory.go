package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"codexcore/internal/memstore"
)

func buildMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Manage the long-term memory store",
	}
	cmd.AddCommand(
		buildMemoryInitCmd(),
		buildMemoryStatsCmd(),
		buildMemoryListCmd(),
		buildMemoryCreateCmd(),
		buildMemoryEditCmd(),
		buildMemoryDeleteCmd(),
		buildMemorySearchCmd(),
		buildMemoryRebuildCmd(),
		buildMemoryResetCmd(),
	)
	return cmd
}

func buildMemoryInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the memory root layout if it doesn't exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := memstore.Open(memoryRoot()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "memory root ready: %s\n", memoryRoot())
			return nil
		},
	}
}

func buildMemoryStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show memory store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := memstore.Open(memoryRoot())
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(store.Stats(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
}

func buildMemoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every memory record",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := memstore.Open(memoryRoot())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range store.LoadAll() {
				fmt.Fprintf(out, "%s\t%.2f\t%s\n", r.ID, r.Confidence, r.Summary)
			}
			return nil
		},
	}
}

func buildMemoryCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <text>",
		Short: "Create a memory record directly (bypasses the distiller)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := memstore.Open(memoryRoot())
			if err != nil {
				return err
			}
			rec, err := store.Append(cmd.Context(), memstore.MemoryRecord{
				Summary: strings.Join(args, " "), Source: "manual",
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rec.ID)
			return nil
		},
	}
	return cmd
}

func buildMemoryEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id> <text>",
		Short: "Edit a memory record's summary",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := memstore.Open(memoryRoot())
			if err != nil {
				return err
			}
			text := strings.Join(args[1:], " ")
			rec, err := store.Update(cmd.Context(), args[0], memstore.RecordUpdate{Summary: &text})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rec.ID)
			return nil
		},
	}
}

func buildMemoryDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a memory record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("codex: delete requires --yes")
			}
			store, err := memstore.Open(memoryRoot())
			if err != nil {
				return err
			}
			if _, err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the destructive delete")
	return cmd
}

func buildMemorySearchCmd() *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search memory by semantic similarity",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := memstore.Open(memoryRoot())
			if err != nil {
				return err
			}
			cfg, err := loadSettings()
			if err != nil {
				return fmt.Errorf("codex: load settings: %w", err)
			}
			retriever := &memstore.Retriever{Store: store, Embedder: buildEmbedder(cfg)}
			matches, err := retriever.Retrieve(cmd.Context(), memstore.RetrieverSettings{Enabled: true}, strings.Join(args, " "), k)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range matches {
				fmt.Fprintf(out, "%s\t%.3f\t%s\n", m.Record.ID, m.Score, m.Record.Summary)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&k, "top", 5, "number of results")
	return cmd
}

func buildMemoryRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the memory store's HNSW index from the manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := memstore.Open(memoryRoot())
			if err != nil {
				return err
			}
			store.Rebuild()
			fmt.Fprintln(cmd.OutOrStdout(), "memory index rebuilt")
			return nil
		},
	}
}

func buildMemoryResetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every memory record and metric",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("codex: reset requires --yes")
			}
			store, err := memstore.Open(memoryRoot())
			if err != nil {
				return err
			}
			if err := store.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "memory store reset")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the destructive reset")
	return cmd
}
