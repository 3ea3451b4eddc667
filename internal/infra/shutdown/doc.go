// Package shutdown runs cleanup hooks when the process is interrupted.
//
// The CLI registers the hooks that release the token store's database.
// Listen ties them to SIGINT/SIGTERM; a normal exit calls Shutdown directly,
// and the hooks run at most once either way:
//
//	h := shutdown.NewHandler(5 * time.Second)
//	h.OnShutdown(func(ctx context.Context) error { return app.Close() })
//	ctx, stop := h.Listen(context.Background())
//	defer stop()
package shutdown
