package command

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"codexcore/internal/codeindex"
	"codexcore/internal/embedclient"
	"codexcore/internal/memstore"
	"codexcore/internal/validation"
)

// Deps bundles the engines the built-in commands dispatch into. Any field
// left nil disables the commands that need it; Dispatch then reports the
// underlying nil-engine error rather than panicking, so a CLI invocation
// missing e.g. a memory root still prints a diagnostic instead of crashing.
type Deps struct {
	ProjectRoot string
	Embedder    embedclient.Embedder
	Memory      *memstore.Store
	Retriever   *memstore.Retriever
}

// RegisterBuiltins adds the slash-command table: index
// build/status/verify/clean, search-code, and the memory CRUD verbs.
// ACP's own builtin verbs (status, compact, diff, model, ...) are handled
// one layer up since they address the session, not these engines; unknown
// ACP verbs fall through to this same registry.
func RegisterBuiltins(r *Registry, deps Deps) {
	r.Register(Command{
		Name: "index", Usage: "/index build|status|verify|clean",
		Description: "manage the on-disk semantic code index",
		Handler:     deps.handleIndex,
	})
	r.Register(Command{
		Name: "search-code", Usage: "/search-code <query>",
		Description: "search the semantic code index",
		Handler:     deps.handleSearchCode,
	})
	r.Register(Command{
		Name: "memory", Usage: "/memory stats|list|create|edit|delete|search|rebuild|reset",
		Description: "manage the long-term memory store",
		Handler:     deps.handleMemory,
	})
}

func (d Deps) handleIndex(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("command: /index requires a subcommand (build|status|verify|clean)")
	}
	switch args[0] {
	case "build":
		if d.Embedder == nil {
			return "", fmt.Errorf("command: /index build requires an embedder")
		}
		builder := &codeindex.Builder{Embedder: d.Embedder}
		opts := codeindex.BuildOptions{ProjectRoot: d.ProjectRoot}.Normalize()
		m, err := builder.Build(ctx, opts, nil)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("indexed %d files, %d chunks", m.TotalFiles, m.TotalChunks), nil
	case "status":
		res, err := codeindex.Verify(d.ProjectRoot)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("ok=%v manifest_chunks=%d meta_chunks=%d", res.OK, res.ManifestChunks, res.MetaChunks), nil
	case "verify":
		res, err := codeindex.Verify(d.ProjectRoot)
		if err != nil {
			return "", err
		}
		if !res.OK {
			return "", fmt.Errorf("command: index verify failed: manifest_chunks=%d meta_chunks=%d graph=%v data=%v",
				res.ManifestChunks, res.MetaChunks, res.GraphPresent, res.DataPresent)
		}
		return "index verify: ok", nil
	case "clean":
		if err := codeindex.Clean(d.ProjectRoot, true); err != nil {
			return "", err
		}
		return "index cleaned", nil
	default:
		return "", fmt.Errorf("command: unknown /index subcommand %q", args[0])
	}
}

func (d Deps) handleSearchCode(ctx context.Context, args []string) (string, error) {
	if d.Embedder == nil {
		return "", fmt.Errorf("command: /search-code requires an embedder")
	}
	if len(args) == 0 {
		return "", fmt.Errorf("command: /search-code requires a query")
	}
	q := &codeindex.Querier{Embedder: d.Embedder}
	hits, err := q.Query(ctx, d.ProjectRoot, strings.Join(args, " "), 10, "")
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, h := range hits {
		fmt.Fprintf(&b, "%s:%d-%d (%.3f)\n", h.FilePath, h.StartLine, h.EndLine, h.Score)
	}
	return b.String(), nil
}

func (d Deps) handleMemory(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("command: /memory requires a subcommand")
	}
	if d.Memory == nil {
		return "", fmt.Errorf("command: /memory requires an open memory store")
	}
	verb, rest := args[0], args[1:]
	switch verb {
	case "stats":
		stats := d.Memory.Stats()
		b, _ := json.Marshal(stats)
		return string(b), nil
	case "list":
		records := d.Memory.LoadAll()
		var b strings.Builder
		for _, r := range records {
			fmt.Fprintf(&b, "%s\t%s\n", r.ID, r.Summary)
		}
		return b.String(), nil
	case "create":
		if len(rest) == 0 {
			return "", fmt.Errorf("command: /memory create requires text")
		}
		text := strings.Join(rest, " ")
		rec, err := d.Memory.Append(ctx, memstore.MemoryRecord{Summary: text, Source: "manual"})
		if err != nil {
			return "", err
		}
		return rec.ID, nil
	case "edit":
		if len(rest) < 2 {
			return "", fmt.Errorf("command: /memory edit <id> <text>")
		}
		id, err := validation.MemoryRecordID(rest[0])
		if err != nil {
			return "", fmt.Errorf("command: %w", err)
		}
		text := strings.Join(rest[1:], " ")
		rec, err := d.Memory.Update(ctx, id, memstore.RecordUpdate{Summary: &text})
		if err != nil {
			return "", err
		}
		return rec.ID, nil
	case "delete":
		if len(rest) != 1 {
			return "", fmt.Errorf("command: /memory delete <id>")
		}
		id, err := validation.MemoryRecordID(rest[0])
		if err != nil {
			return "", fmt.Errorf("command: %w", err)
		}
		rec, err := d.Memory.Delete(ctx, id)
		if err != nil {
			return "", err
		}
		return rec.ID, nil
	case "search":
		if d.Retriever == nil {
			return "", fmt.Errorf("command: /memory search requires a retriever")
		}
		if len(rest) == 0 {
			return "", fmt.Errorf("command: /memory search requires a query")
		}
		k := 5
		matches, err := d.Retriever.Retrieve(ctx, memstore.RetrieverSettings{Enabled: true}, strings.Join(rest, " "), k)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		for _, m := range matches {
			fmt.Fprintf(&b, "%s\t%.3f\t%s\n", m.Record.ID, m.Score, m.Record.Summary)
		}
		return b.String(), nil
	case "rebuild":
		d.Memory.Rebuild()
		return "memory index rebuilt", nil
	case "reset":
		if err := d.Memory.Reset(ctx); err != nil {
			return "", err
		}
		return "memory store reset", nil
	default:
		return "", fmt.Errorf("command: unknown /memory subcommand %q", verb)
	}
}
