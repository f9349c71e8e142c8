package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"codexcore/internal/acp"
	"codexcore/internal/command"
	"codexcore/internal/llmclient"
	"codexcore/internal/memstore"
)

func buildACPCmd() *cobra.Command {
	var contextWindowTokens int
	cmd := &cobra.Command{
		Use:   "acp",
		Short: "Run the Agent Client Protocol server over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return fmt.Errorf("codex: load settings: %w", err)
			}
			root, err := projectRoot()
			if err != nil {
				return err
			}

			registry := command.NewRegistry()
			deps := command.Deps{ProjectRoot: root, Embedder: buildEmbedder(cfg)}
			if store, err := memstore.Open(memoryRoot()); err == nil {
				deps.Memory = store
				deps.Retriever = &memstore.Retriever{Store: store, Embedder: deps.Embedder}
			}
			command.RegisterBuiltins(registry, deps)

			client := llmclient.New(nil)
			endpoint := buildEndpoint(cfg, "")
			srv := acp.NewServer(client, endpoint, registry, contextWindowTokens, cmd.OutOrStdout())
			return srv.Serve(cmd.Context(), os.Stdin)
		},
	}
	cmd.Flags().IntVar(&contextWindowTokens, "context-window-tokens", 0, "override the model's context window size")
	return cmd
}
