package main

import "testing"

func TestBuildRootCmdIncludesSubcommands(t *testing.T) {
	cmd := buildRootCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	required := []string{"exec", "resume", "index", "search-code", "search-confidence", "memory", "models", "login", "logout", "sandbox", "acp", "mcp-server"}
	for _, name := range required {
		if !names[name] {
			t.Fatalf("expected subcommand %q to be registered", name)
		}
	}
}

func TestBuildRootCmdRunEWithoutSubcommandErrors(t *testing.T) {
	cmd := buildRootCmd()
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error explaining the TUI is not built by this module")
	}
}

func TestParseConfidenceAcceptsRatioAndPercent(t *testing.T) {
	cases := map[string]float64{"0.6": 0.6, "60%": 0.6, "100%": 1.0}
	for raw, want := range cases {
		got, err := parseConfidence(raw)
		if err != nil {
			t.Fatalf("parseConfidence(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("parseConfidence(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestParseConfidenceRejectsGarbage(t *testing.T) {
	if _, err := parseConfidence("not-a-number"); err == nil {
		t.Fatal("expected an error for a non-numeric confidence")
	}
}
