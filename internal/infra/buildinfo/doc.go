// Package buildinfo exposes build-time version information.
//
// Version, Commit and BuildTime are injected via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/storefront-go/internal/infra/buildinfo.Version=v1.0.0"
//
// They are printed by `storefront-cli --version` and sent to backends in the
// User-Agent header.
package buildinfo
