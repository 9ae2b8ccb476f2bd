package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pwakit/pwakit/internal/events"
	"github.com/pwakit/pwakit/internal/install"
	"github.com/pwakit/pwakit/internal/manifest"
	"github.com/pwakit/pwakit/internal/offline"
	"github.com/pwakit/pwakit/internal/server"
	"github.com/pwakit/pwakit/internal/storage"
	"github.com/pwakit/pwakit/internal/update"
)

func newServeCmd() *cobra.Command {
	var listen, dir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the PWA dev server",
		Long: `Serve hosts a built site with PWA-correct headers (manifest media type,
Service-Worker-Allowed), watches the service worker script for changes, and
pushes update notifications to connected clients over a websocket.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(listen, dir)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address (overrides config)")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Site directory (overrides config)")
	return cmd
}

func runServe(listen, dir string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Serve.Listen = listen
	}
	if dir != "" {
		cfg.Serve.SiteDir = dir
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	hub := events.NewHub()
	source := update.NewFileWorkerSource(filepath.Join(cfg.Serve.SiteDir, "sw.js"))
	manager := update.NewManager(hub, source, update.Options{
		Title:          cfg.Update.Title,
		BannerMessage:  cfg.Update.BannerMessage,
		UseBanner:      cfg.Update.Banner,
		CheckFrequency: cfg.Update.CheckFrequency.Std(),
		UserAgent:      "pwakit/" + buildVersion,
		Versions:       manifest.DocumentVersion{Path: filepath.Join(cfg.Serve.SiteDir, "index.html")},
		Store:          store,
	})
	defer manager.Close()

	tracker := install.NewTracker(hub, store)
	offlineMgr := offline.New(store, storage.NewMemoryStore())

	// Prime the worker-script hash so the first periodic check only fires on
	// a real change.
	manager.CheckForUpdates()
	manager.StartPeriodicChecks()

	srv := server.New(server.Config{
		Addr:    cfg.Serve.Listen,
		SiteDir: cfg.Serve.SiteDir,
	}, hub, manager, tracker, offlineMgr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		return srv.Shutdown(context.Background())
	}
}
