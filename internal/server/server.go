// Package server implements the pwakit dev server: it serves a built site
// with PWA-correct headers and exposes the update manager, install tracker,
// and offline store over a small JSON API.
package server

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/pwakit/pwakit/internal/events"
	"github.com/pwakit/pwakit/internal/install"
	"github.com/pwakit/pwakit/internal/offline"
	"github.com/pwakit/pwakit/internal/storage"
	"github.com/pwakit/pwakit/internal/update"
)

// Config holds the dev server settings.
type Config struct {
	Addr    string
	SiteDir string
}

// Server wires the toolkit components behind an HTTP surface.
type Server struct {
	echo    *echo.Echo
	cfg     Config
	hub     *events.Hub
	manager *update.Manager
	tracker *install.Tracker
	offline *offline.Manager
}

// New creates a dev server. hub must be the hub the manager and tracker emit
// on; its events are forwarded to websocket clients.
func New(cfg Config, hub *events.Hub, manager *update.Manager, tracker *install.Tracker, offlineMgr *offline.Manager) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:    e,
		cfg:     cfg,
		hub:     hub,
		manager: manager,
		tracker: tracker,
		offline: offlineMgr,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	// The manifest and service worker must be served from root paths so the
	// worker scope covers the entire application.
	s.echo.GET("/manifest.webmanifest", s.handleManifest)
	s.echo.GET("/manifest.json", s.handleManifest)
	s.echo.GET("/sw.js", s.handleServiceWorker)

	api := s.echo.Group("/api/v1")
	api.GET("/update/status", s.handleUpdateStatus)
	api.POST("/update/check", s.handleUpdateCheck)
	api.POST("/update/apply", s.handleUpdateApply)
	api.POST("/update/rollback", s.handleUpdateRollback)
	api.GET("/install/stats", s.handleInstallStats)
	api.POST("/install/event", s.handleInstallEvent)
	api.GET("/offline/:key", s.handleOfflineGet)
	api.PUT("/offline/:key", s.handleOfflinePut)
	api.DELETE("/offline/:key", s.handleOfflineDelete)
	api.GET("/events", s.handleEvents)

	s.echo.Static("/", s.cfg.SiteDir)
}

// handleManifest serves the web-app manifest with the manifest media type
// and no-cache headers so clients pick up edits immediately.
func (s *Server) handleManifest(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentType, "application/manifest+json")
	c.Response().Header().Set("Cache-Control", "no-cache")

	path := filepath.Join(s.cfg.SiteDir, "manifest.webmanifest")
	if err := c.File(path); err != nil {
		return c.File(filepath.Join(s.cfg.SiteDir, "manifest.json"))
	}
	return nil
}

// handleServiceWorker serves the worker script from the root path with the
// Service-Worker-Allowed header so its scope covers the whole origin.
func (s *Server) handleServiceWorker(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentType, "application/javascript")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Service-Worker-Allowed", "/")
	return c.File(filepath.Join(s.cfg.SiteDir, "sw.js"))
}

func (s *Server) handleUpdateStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.manager.Status())
}

func (s *Server) handleUpdateCheck(c echo.Context) error {
	s.manager.CheckForUpdates()
	return c.JSON(http.StatusOK, s.manager.Status())
}

func (s *Server) handleUpdateApply(c echo.Context) error {
	if err := s.manager.ApplyUpdate(); err != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, s.manager.Status())
}

func (s *Server) handleUpdateRollback(c echo.Context) error {
	err := s.manager.Rollback()
	if errors.Is(err, update.ErrNoRollbackData) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, s.manager.Status())
}

func (s *Server) handleInstallStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.tracker.Stats())
}

// installEventRequest is what dev clients report about the browser-side
// install prompt.
type installEventRequest struct {
	Type string `json:"type"`
}

func (s *Server) handleInstallEvent(c echo.Context) error {
	var req installEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	switch req.Type {
	case "available":
		s.tracker.PromptAvailable()
	case "shown":
		if !s.tracker.RecordPromptShown() {
			return c.JSON(http.StatusConflict, map[string]string{"error": "no deferred prompt available"})
		}
	case "accepted":
		s.tracker.RecordOutcome(true)
	case "dismissed":
		s.tracker.RecordOutcome(false)
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown event type " + req.Type})
	}
	return c.JSON(http.StatusOK, s.tracker.Stats())
}

func (s *Server) handleOfflineGet(c echo.Context) error {
	value, err := s.offline.Load(offlineKey(c.Param("key")))
	if errors.Is(err, storage.ErrNotFound) {
		return c.NoContent(http.StatusNotFound)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, []byte(value))
}

func (s *Server) handleOfflinePut(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read body"})
	}
	if err := s.offline.Save(offlineKey(c.Param("key")), string(body)); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleOfflineDelete(c echo.Context) error {
	if err := s.offline.Remove(offlineKey(c.Param("key"))); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

// offlineKey namespaces client-supplied keys so they cannot collide with the
// toolkit's own records.
func offlineKey(key string) string {
	return "pwakit.offline." + key
}

// Start runs the server until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	log.WithFields(log.Fields{"addr": s.cfg.Addr, "dir": s.cfg.SiteDir}).
		Info("dev server listening")
	err := s.echo.Start(s.cfg.Addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}

// ServeHTTP dispatches directly into the router. Used by tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
