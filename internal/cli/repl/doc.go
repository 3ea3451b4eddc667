// Package repl is the interactive shell of the storefront CLI.
//
// The shell reads one command per line, splits it with shell-style quoting
// and hands the words to an executor, normally the same command tree the
// one-shot CLI uses. All lines share one application, so a login in the
// shell stays in effect for the next command. Built-ins: help [prefix],
// history, exit and quit.
package repl
