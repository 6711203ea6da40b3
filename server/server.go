// Package server assembles the HTTP front door: the index page, the UPnP
// control subtree, and the content streamer.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/eems/eems/consts"
	"github.com/eems/eems/log"
	"github.com/eems/eems/persistence"
	"github.com/eems/eems/server/content"
	"github.com/eems/eems/server/upnp"
)

// Server is the HTTP front door.
type Server struct {
	router chi.Router
}

// New wires the routers. baseURL is the externally visible origin, already
// resolved against the bound listener.
func New(ds *persistence.Store, serverName, uuid, baseURL string) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<html><head><title>%s</title></head><body><h1>%s</h1><p>%s %s is running.</p></body></html>",
			serverName, serverName, consts.AppName, consts.Version)
	})
	r.Mount("/upnp", upnp.New(ds, serverName, uuid, baseURL).Routes())
	r.Mount("/content", content.New(ds).Routes())

	return &Server{router: r}
}

// Serve runs the HTTP server on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:     s.router,
		IdleTimeout: 30 * time.Second,
	}

	errC := make(chan error, 1)
	go func() {
		errC <- srv.Serve(ln)
	}()
	log.Info("HTTP server listening", "addr", ln.Addr().String())

	select {
	case err := <-errC:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}
	return nil
}
