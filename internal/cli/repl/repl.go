package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ExecFunc runs one parsed command line.
type ExecFunc func(ctx context.Context, args []string) error

// Config configures a REPL.
type Config struct {
	Input  io.Reader
	Output io.Writer
	// Prompt is called before every line so it can reflect session state.
	Prompt func() string
	Exec   ExecFunc
	// Commands feeds completion and help.
	Commands    []string
	HistoryFile string
	MaxHistory  int
	Logger      *slog.Logger
}

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	prompt    func() string
	exec      ExecFunc
	completer *Completer
	history   *History
	logger    *slog.Logger
}

// New creates a REPL. Input and Output default to stdin and stdout.
func New(cfg Config) *REPL {
	r := &REPL{
		input:     cfg.Input,
		output:    cfg.Output,
		prompt:    cfg.Prompt,
		exec:      cfg.Exec,
		completer: NewCompleter(cfg.Commands),
		history:   NewHistory(cfg.HistoryFile, cfg.MaxHistory),
		logger:    cfg.Logger,
	}
	if r.input == nil {
		r.input = os.Stdin
	}
	if r.output == nil {
		r.output = os.Stdout
	}
	if r.prompt == nil {
		r.prompt = func() string { return "> " }
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Run reads and executes lines until exit, EOF or ctx is cancelled. Command
// errors are printed and do not end the loop.
func (r *REPL) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := r.history.Load(); err != nil {
		r.logger.Warn("load shell history", "file", r.history.File(), "error", err)
	}
	defer func() {
		if err := r.history.Save(); err != nil {
			r.logger.Warn("save shell history", "file", r.history.File(), "error", err)
		}
	}()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r.input)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(r.output, r.prompt())

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.output)
			return nil
		case err := <-readErr:
			fmt.Fprintln(r.output)
			return err
		case line = <-lines:
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r.history.Add(line)

		args, err := Split(line)
		if err != nil {
			fmt.Fprintf(r.output, "error: %v\n", err)
			continue
		}
		if done := r.dispatch(ctx, args); done {
			return nil
		}
	}
}

// dispatch handles built-ins and forwards everything else. It reports
// whether the loop should end.
func (r *REPL) dispatch(ctx context.Context, args []string) bool {
	switch args[0] {
	case "exit", "quit":
		return true
	case "help", "?":
		prefix := strings.Join(args[1:], " ")
		for _, c := range r.completer.Complete(prefix) {
			fmt.Fprintln(r.output, "  "+c)
		}
		return false
	case "history":
		for i, e := range r.history.Entries() {
			fmt.Fprintf(r.output, "%4d  %s\n", i+1, e)
		}
		return false
	}

	if r.exec == nil {
		fmt.Fprintln(r.output, "error: no command handler")
		return false
	}
	if err := r.exec(ctx, args); err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return true
		}
		fmt.Fprintf(r.output, "error: %v\n", err)
	}
	return false
}

// Split breaks a line into words. Single and double quotes group words and
// a backslash escapes the next character outside single quotes.
func Split(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)
	for _, c := range line {
		switch {
		case escaped:
			cur.WriteRune(c)
			escaped = false
		case c == '\\' && quote != '\'':
			escaped, inWord = true, true
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				cur.WriteRune(c)
			}
		case c == '\'' || c == '"':
			quote, inWord = c, true
		case c == ' ' || c == '\t':
			if inWord {
				args = append(args, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(c)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if escaped {
		return nil, errors.New("trailing backslash")
	}
	if inWord {
		args = append(args, cur.String())
	}
	return args, nil
}
