package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"codexcore/internal/convsession"
	"codexcore/internal/llmclient"
)

func buildExecCmd() *cobra.Command {
	var (
		jsonOutput     bool
		modelOverride  string
		lastMessageOut string
		forceOSS       bool
		outputSchema   string
	)
	cmd := &cobra.Command{
		Use:   "exec <prompt>",
		Short: "Run a single non-interactive turn",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return fmt.Errorf("codex: load settings: %w", err)
			}
			ep := resolveEndpoint(cfg, modelOverride, forceOSS)
			client := llmclient.New(nil)
			sess := convsession.NewSession(client, ep, "be a helpful coding agent", "", 128000, nil)

			var schema []byte
			if outputSchema != "" {
				if schema, err = os.ReadFile(outputSchema); err != nil {
					return fmt.Errorf("codex: read output schema: %w", err)
				}
			}

			turnID := sess.Submit(convsession.Op{
				Kind:                  convsession.OpUserTurn,
				Items:                 []llmclient.ResponseItem{llmclient.TextOnlyMessage("user", "input_text", args[0])},
				FinalOutputJSONSchema: schema,
			})

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			out := cmd.OutOrStdout()
			var lastMessage string
			for {
				ev, ok := sess.NextEvent(ctx)
				if !ok {
					return fmt.Errorf("codex: session closed before the turn completed")
				}
				if ev.ID != turnID {
					continue
				}
				switch ev.Msg.Kind {
				case convsession.MsgAgentMessageDelta:
					if !jsonOutput {
						fmt.Fprint(out, ev.Msg.Text)
					}
				case convsession.MsgTaskComplete:
					if ev.Msg.LastAgentMessage != nil {
						lastMessage = *ev.Msg.LastAgentMessage
					}
					if jsonOutput {
						fmt.Fprintln(out, lastMessage)
					} else {
						fmt.Fprintln(out)
					}
					if lastMessageOut != "" {
						return writeLastMessageFile(lastMessageOut, lastMessage)
					}
					return nil
				case convsession.MsgTurnAborted:
					return fmt.Errorf("codex: turn aborted: %s", ev.Msg.AbortReason)
				case convsession.MsgError:
					return fmt.Errorf("codex: %s", ev.Msg.Text)
				}
			}
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit the final message only, no streaming deltas")
	cmd.Flags().StringVar(&modelOverride, "agent", "", "override the configured model")
	cmd.Flags().BoolVar(&forceOSS, "oss", false, "force the locally hosted OSS/Ollama provider")
	cmd.Flags().StringVar(&lastMessageOut, "last-message-file", "", "write the final agent message to this file")
	cmd.Flags().String("color", "auto", "accepted (auto|always|never); output is never colorized")
	cmd.Flags().StringVar(&outputSchema, "output-schema", "", "path to a JSON schema the final message must satisfy")
	cmd.Flags().StringArray("enable-tool", nil, "accepted; no optional tools are enabled by this command")
	return cmd
}

func buildResumeCmd() *cobra.Command {
	var last bool
	cmd := &cobra.Command{
		Use:   "resume [SESSION_ID]",
		Short: "Resume a prior session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Session persistence/rollout replay lives in the TUI/session
			// store the spec treats as an external collaborator; this
			// module's own convsession.Session has no on-disk rollout log
			// to resume from.
			return fmt.Errorf("codex: resume is not implemented by this module (no rollout store is wired)")
		},
	}
	cmd.Flags().BoolVar(&last, "last", false, "resume the most recently active session")
	return cmd
}

func writeLastMessageFile(path, text string) error {
	return writeFile(path, []byte(text))
}
