package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Credential management, the sandbox executors, and the MCP stdio server
// are external collaborators per Non-goals: this module wires
// their command-surface shape into the cobra tree without implementing
// the OAuth flow, seatbelt/landlock executors, or MCP tool runtime itself.

func buildLoginCmd() *cobra.Command {
	var (
		withAPIKey bool
		deviceAuth bool
		issuerURL  string
		clientID   string
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Credential management (external collaborator; not implemented here)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("codex: login is handled by the external auth-credential store, not this module")
		},
	}
	cmd.Flags().BoolVar(&withAPIKey, "with-api-key", false, "authenticate using OPENAI_API_KEY")
	cmd.Flags().BoolVar(&deviceAuth, "device-auth", false, "authenticate using the device code flow")
	cmd.Flags().StringVar(&issuerURL, "experimental_issuer", "", "override the OAuth issuer URL")
	cmd.Flags().StringVar(&clientID, "experimental_client-id", "", "override the OAuth client id")
	return cmd
}

func buildLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear stored credentials (external collaborator; not implemented here)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("codex: logout is handled by the external auth-credential store, not this module")
		},
	}
}

func buildSandboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sandbox {macos|linux} -- <cmd>",
		Short: "Run a command under the platform sandbox",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("codex: the seatbelt/landlock sandbox executors are an external collaborator, not implemented by this module")
		},
	}
	return cmd
}

func buildMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Run the MCP stdio server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("codex: the MCP stdio server is an external collaborator, not implemented by this module")
		},
	}
}
