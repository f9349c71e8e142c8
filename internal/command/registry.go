// Package command implements the slash-command table shared by the TUI,
// CLI, and ACP surfaces.
package command

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Handler executes one slash command invocation.
type Handler func(ctx context.Context, args []string) (string, error)

// Command is one registered slash command.
type Command struct {
	Name        string
	Usage       string
	Description string
	Handler     Handler
}

// Registry is a name-keyed table of slash commands, shared verbatim by
// every frontend (TUI, CLI, ACP) so the three surfaces never drift.
type Registry struct {
	commands map[string]Command
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: map[string]Command{}}
}

// Register adds a command, panicking on a duplicate name — a programmer
// error caught at startup, not a runtime condition.
func (r *Registry) Register(c Command) {
	if _, exists := r.commands[c.Name]; exists {
		panic(fmt.Sprintf("command: duplicate registration for %q", c.Name))
	}
	r.commands[c.Name] = c
}

// Lookup finds a command by its exact name (without the leading slash).
func (r *Registry) Lookup(name string) (Command, bool) {
	c, ok := r.commands[name]
	return c, ok
}

// List returns every registered command, sorted by name.
func (r *Registry) List() []Command {
	out := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Dispatch parses a raw "/name arg1 arg2" line and invokes the matching
// command. Input not starting with "/" is rejected by the caller before
// reaching here.
func (r *Registry) Dispatch(ctx context.Context, line string) (string, error) {
	line = strings.TrimPrefix(strings.TrimSpace(line), "/")
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", &UnknownCommandError{Name: ""}
	}
	name, args := fields[0], fields[1:]
	c, ok := r.Lookup(name)
	if !ok {
		return "", &UnknownCommandError{Name: name}
	}
	return c.Handler(ctx, args)
}

// UnknownCommandError is returned for a slash command with no matching
// registration.
type UnknownCommandError struct{ Name string }

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("command: unknown command %q", e.Name)
}
