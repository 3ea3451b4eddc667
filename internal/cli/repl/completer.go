package repl

import (
	"sort"
	"strings"
)

var builtins = []string{"exit", "help", "history", "quit"}

// Completer suggests command paths such as "orders pay".
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer over commands plus the shell built-ins.
func NewCompleter(commands []string) *Completer {
	seen := make(map[string]bool)
	var all []string
	for _, c := range append(append([]string{}, commands...), builtins...) {
		c = strings.Join(strings.Fields(c), " ")
		if c != "" && !seen[c] {
			seen[c] = true
			all = append(all, c)
		}
	}
	sort.Strings(all)
	return &Completer{commands: all}
}

// Complete returns the commands starting with prefix. Runs of whitespace in
// prefix count as one space.
func (c *Completer) Complete(prefix string) []string {
	trailing := strings.HasSuffix(prefix, " ")
	prefix = strings.Join(strings.Fields(prefix), " ")
	if trailing && prefix != "" {
		prefix += " "
	}

	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}
