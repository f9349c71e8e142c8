package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"codexcore/internal/codeindex"
	"codexcore/internal/settings"
)

func buildSearchCodeCmd() *cobra.Command {
	var (
		top           int
		minConfidence string
	)
	cmd := &cobra.Command{
		Use:   "search-code <query>",
		Short: "Search the semantic code index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot()
			if err != nil {
				return err
			}
			cfg, err := loadSettings()
			if err != nil {
				return fmt.Errorf("codex: load settings: %w", err)
			}
			threshold := cfg.Index.SearchConfidenceMin
			if minConfidence != "" {
				threshold, err = parseConfidence(minConfidence)
				if err != nil {
					return err
				}
			}

			q := &codeindex.Querier{Embedder: buildEmbedder(cfg), HybridLexicalBoost: cfg.Index.HybridLexicalBoost}
			hits, err := q.Query(cmd.Context(), root, strings.Join(args, " "), top, "")
			if err != nil {
				return err
			}
			hits = codeindex.WithConfidenceMin(hits, threshold)

			out := cmd.OutOrStdout()
			for _, h := range hits {
				fmt.Fprintf(out, "%d. %s:%d-%d (%.3f)\n", h.Rank, h.FilePath, h.StartLine, h.EndLine, h.Score)
				if h.Snippet != "" {
					fmt.Fprintln(out, indent(h.Snippet))
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "number of results")
	cmd.Flags().StringVar(&minConfidence, "min-confidence", "", "minimum score, as a ratio (0.6) or percent (60%)")
	return cmd
}

func buildSearchConfidenceCmd() *cobra.Command {
	var (
		set   string
		reset bool
	)
	cmd := &cobra.Command{
		Use:   "search-confidence",
		Short: "Inspect or update the stored search-code confidence threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, ok := settings.ResolvePath()
			if !ok {
				return fmt.Errorf("codex: no settings file found")
			}
			cfg, err := settings.Load(path)
			if err != nil {
				return err
			}
			switch {
			case reset:
				cfg.Index.SearchConfidenceMin = settings.Defaults().Index.SearchConfidenceMin
				if err := settings.Persist(path, cfg); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reset to %.2f\n", cfg.Index.SearchConfidenceMin)
			case set != "":
				v, err := parseConfidence(set)
				if err != nil {
					return err
				}
				cfg.Index.SearchConfidenceMin = v
				if err := settings.Persist(path, cfg); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "set to %.2f\n", v)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "%.2f\n", cfg.Index.SearchConfidenceMin)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&set, "set", "", "set the threshold, as a ratio (0.6) or percent (60%)")
	cmd.Flags().BoolVar(&reset, "reset", false, "reset the threshold to its default")
	return cmd
}

// parseConfidence accepts either a ratio ("0.6") or a percentage ("60%").
func parseConfidence(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasSuffix(raw, "%") {
		v, err := strconv.ParseFloat(strings.TrimSuffix(raw, "%"), 64)
		if err != nil {
			return 0, fmt.Errorf("codex: invalid confidence %q: %w", raw, err)
		}
		return v / 100, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("codex: invalid confidence %q: %w", raw, err)
	}
	return v, nil
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "    " + l
	}
	return strings.Join(lines, "\n")
}
