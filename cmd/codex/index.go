package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"codexcore/internal/codeindex"
)

func buildIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Semantic code index operations",
	}
	cmd.AddCommand(
		buildIndexBuildCmd(),
		buildIndexQueryCmd(),
		buildIndexStatusCmd(),
		buildIndexVerifyCmd(),
		buildIndexCleanCmd(),
		buildIndexIgnoreCmd(),
	)
	return cmd
}

func buildIndexBuildCmd() *cobra.Command {
	var (
		lines, overlap, batch int
		model                 string
		jsonOutput            bool
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the semantic code index for the current project",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot()
			if err != nil {
				return err
			}
			cfg, err := loadSettings()
			if err != nil {
				return fmt.Errorf("codex: load settings: %w", err)
			}
			builder := &codeindex.Builder{Embedder: buildEmbedder(cfg)}
			if lines == 0 {
				lines = cfg.Index.ContextTokens
			}
			opts := codeindex.BuildOptions{
				ProjectRoot: root, LinesPerChunk: lines, Overlap: overlap,
				BatchSize: batch, RequestedModel: model,
			}.Normalize()

			m, err := builder.Build(cmd.Context(), opts, nil)
			if err != nil {
				return fmt.Errorf("codex: index build failed: %w", err)
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				fmt.Fprintf(out, `{"total_files":%d,"total_chunks":%d}`+"\n", m.TotalFiles, m.TotalChunks)
				return nil
			}
			fmt.Fprintf(out, "indexed %d files, %d chunks\n", m.TotalFiles, m.TotalChunks)
			return nil
		},
	}
	cmd.Flags().IntVar(&lines, "lines", 0, "lines per chunk (default from settings)")
	cmd.Flags().IntVar(&overlap, "overlap", 0, "overlap lines between chunks")
	cmd.Flags().IntVar(&batch, "batch", 0, "embedding batch size")
	cmd.Flags().StringVar(&model, "model", "", "embedding model name")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON")
	return cmd
}

func buildIndexQueryCmd() *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Query the semantic code index directly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot()
			if err != nil {
				return err
			}
			cfg, err := loadSettings()
			if err != nil {
				return fmt.Errorf("codex: load settings: %w", err)
			}
			q := &codeindex.Querier{Embedder: buildEmbedder(cfg), HybridLexicalBoost: cfg.Index.HybridLexicalBoost}
			hits, err := q.Query(cmd.Context(), root, args[0], topK, "")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, h := range hits {
				fmt.Fprintf(out, "%d. %s:%d-%d (%.3f)\n", h.Rank, h.FilePath, h.StartLine, h.EndLine, h.Score)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&topK, "top", 10, "number of results")
	return cmd
}

func buildIndexStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current index's consistency summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot()
			if err != nil {
				return err
			}
			res, err := codeindex.Verify(root)
			if err != nil {
				return fmt.Errorf("codex: Index has not been built yet: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok=%v manifest_chunks=%d meta_chunks=%d graph=%v data=%v\n",
				res.OK, res.ManifestChunks, res.MetaChunks, res.GraphPresent, res.DataPresent)
			return nil
		},
	}
}

func buildIndexVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify the index's on-disk consistency, failing nonzero if inconsistent",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot()
			if err != nil {
				return err
			}
			res, err := codeindex.Verify(root)
			if err != nil {
				return err
			}
			if !res.OK {
				return fmt.Errorf("codex: index verify failed: manifest_chunks=%d meta_chunks=%d graph=%v data=%v",
					res.ManifestChunks, res.MetaChunks, res.GraphPresent, res.DataPresent)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "index verify: ok")
			return nil
		},
	}
}

func buildIndexCleanCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the on-disk index directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot()
			if err != nil {
				return err
			}
			if err := codeindex.Clean(root, yes); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "index cleaned")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the destructive clean")
	return cmd
}

func buildIndexIgnoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ignore",
		Short: "Print the .index-ignore file the project walker honors",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(root + "/.index-ignore")
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Fprintln(cmd.OutOrStdout(), "(no .index-ignore file)")
					return nil
				}
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
