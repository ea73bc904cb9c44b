// Package command parses slash-command input and loads user-defined
// commands from markdown files.
package command

import (
	"strings"
)

// Kind identifies a built-in command.
type Kind int

const (
	// KindNone means the input is not a slash command.
	KindNone Kind = iota
	// KindClear starts a fresh conversation on the active agent.
	KindClear
	// KindResume resumes a stored session (with ID) or opens the picker.
	KindResume
	// KindAgent lists, creates, or closes agents.
	KindAgent
	// KindCompact compacts the active agent's stored session.
	KindCompact
	// KindExit quits the program.
	KindExit
	// KindShell runs a shell command inline.
	KindShell
	// KindCustom is a user-defined command loaded from a markdown file.
	KindCustom
)

// Invocation is one parsed command line.
type Invocation struct {
	Kind Kind
	// Name is the command word without the leading slash.
	Name string
	// Args is everything after the command word, trimmed.
	Args string
	// Def is set for KindCustom.
	Def *Definition
}

// Registry resolves slash input against built-ins and loaded user commands.
// Built-ins always win name collisions.
type Registry struct {
	custom map[string]*Definition
}

// NewRegistry builds a registry over the given user command definitions.
func NewRegistry(defs []*Definition) *Registry {
	custom := make(map[string]*Definition, len(defs))
	for _, d := range defs {
		custom[d.Name] = d
	}
	return &Registry{custom: custom}
}

var builtins = map[string]Kind{
	"clear":   KindClear,
	"resume":  KindResume,
	"agent":   KindAgent,
	"compact": KindCompact,
	"exit":    KindExit,
	"quit":    KindExit,
	"shell":   KindShell,
}

// Parse resolves one input line. Lines starting with "!" are shorthand for
// /shell; anything not starting with "/" is a plain prompt (KindNone).
func (r *Registry) Parse(input string) Invocation {
	line := strings.TrimSpace(input)

	if rest, ok := strings.CutPrefix(line, "!"); ok {
		return Invocation{Kind: KindShell, Name: "shell", Args: strings.TrimSpace(rest)}
	}
	if !strings.HasPrefix(line, "/") {
		return Invocation{Kind: KindNone}
	}

	name, args, _ := strings.Cut(line[1:], " ")
	args = strings.TrimSpace(args)

	if kind, ok := builtins[name]; ok {
		return Invocation{Kind: kind, Name: name, Args: args}
	}
	if def, ok := r.custom[name]; ok {
		return Invocation{Kind: KindCustom, Name: name, Args: args, Def: def}
	}
	// Unknown slash commands fall through to the model as plain text.
	return Invocation{Kind: KindNone}
}

// Names returns every resolvable command name, built-ins first, for
// completion menus.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(builtins)+len(r.custom))
	for name := range builtins {
		names = append(names, name)
	}
	for name := range r.custom {
		if _, shadowed := builtins[name]; !shadowed {
			names = append(names, name)
		}
	}
	return names
}
