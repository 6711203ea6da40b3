// Command eems runs the media server: it opens the library database, scans
// the configured content roots on first start, and serves HTTP and SSDP until
// interrupted.
package main

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/eems/eems/conf"
	"github.com/eems/eems/consts"
	"github.com/eems/eems/log"
	"github.com/eems/eems/persistence"
	"github.com/eems/eems/scanner"
	"github.com/eems/eems/server"
	"github.com/eems/eems/server/upnp"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:     consts.AppName,
	Short:   "Embedded extensible media server",
	Version: consts.Version,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the configuration file")
	_ = rootCmd.MarkFlagRequired("config")
}

func run(ctx context.Context) error {
	cfg, err := conf.Load(configPath)
	if err != nil {
		return err
	}

	log.SetLevel(cfg.Logging.Level)
	if cfg.Logging.Path != "" {
		if err := log.SetLogFile(cfg.Logging.Path, cfg.Logging.Truncate); err != nil {
			return err
		}
	}
	log.Info("Starting", "app", consts.AppName, "version", consts.Version, "name", cfg.Server.Name)

	store, fresh, err := persistence.OpenOrCreate(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("opening library database: %w", err)
	}
	defer store.Close()

	if fresh {
		sc, err := scanner.New(store)
		if err != nil {
			return fmt.Errorf("priming scanner: %w", err)
		}
		for _, dir := range cfg.Content {
			if err := sc.ScanAll(dir.Path, dir); err != nil {
				return fmt.Errorf("scanning %q: %w", dir.Path, err)
			}
		}
	} else {
		log.Info("Using existing library database", "path", cfg.DB.Path)
	}

	// Bind before building the services so a configured port of 0 resolves to
	// a concrete one for the advertised URLs.
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("binding HTTP listener: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	baseURL := fmt.Sprintf("http://%s:%d", cfg.Server.Hostname, port)

	srv := server.New(store, cfg.Server.Name, cfg.Server.UUID, baseURL)
	ssdp := upnp.NewSSDPResponder(cfg.Server.UUID, baseURL)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(ctx, ln) })
	g.Go(func() error { return ssdp.Serve(ctx) })

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Shut down cleanly")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal("Startup failed", err)
	}
}
