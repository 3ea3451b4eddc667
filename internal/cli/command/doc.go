// Package command defines the storefront-cli command tree.
//
// Commands are built on urfave/cli/v2 and share a Runtime, which loads the
// configuration and wires the application once per process. The interactive
// shell runs every line through the same tree and the same Runtime, so the
// cache and the session carry over between commands.
package command
