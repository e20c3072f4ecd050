package main

import (
	"log/slog"

	"github.com/felixgeelhaar/palabras/internal/content"
	mcpserver "github.com/felixgeelhaar/palabras/internal/mcp"
)

// cmdMCP serves the progress tools on stdio. Stdout belongs to the
// protocol, so nothing else may print once it starts. Unit files are
// watched so edits show up without restarting the server.
func cmdMCP(a *app) error {
	watcher, err := content.NewWatcher(a.registry, content.DefaultDebounce)
	if err != nil {
		slog.Warn("content watch disabled", "error", err)
	} else if err := watcher.Start(a.ctx); err != nil {
		slog.Warn("content watch disabled", "error", err)
		watcher.Stop()
	} else {
		defer watcher.Stop()
	}

	srv := mcpserver.NewServer(mcpserver.Config{
		Tracker:  a.tracker,
		Catalog:  a.registry,
		Profiles: a.profiles,
	})
	return srv.ServeStdio(a.ctx)
}
