// Package server exposes the HTTP API the frontend collaborator talks
// to. It is a thin layer: validate, dispatch to a component, map the
// error to a status code.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tubearchivist/internal/app"
	"tubearchivist/internal/utils/logging"
)

// Server holds the wired application and the listener config.
type Server struct {
	app  *app.App
	http *http.Server
}

// New builds the server for the app's configured backend port.
func New(a *app.App) *Server {
	s := &Server{app: a}
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", a.Env.BackendPort),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router assembles all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", s.handlePing)
		r.Get("/version", s.handleVersion)

		r.Route("/download", func(r chi.Router) {
			r.Get("/", s.handleListDownloads)
			r.Post("/", s.handleAddDownloads)
			r.Delete("/", s.handleDeleteDownloadsByFilter)
			r.Get("/{id}", s.handleGetDownload)
			r.Post("/{id}", s.handleSetDownloadStatus)
			r.Delete("/{id}", s.handleDeleteDownload)
		})

		r.Route("/config", func(r chi.Router) {
			r.Get("/", s.handleGetConfig)
			r.Post("/", s.handleUpdateConfig)
		})

		r.Route("/task-name", func(r chi.Router) {
			r.Get("/", s.handleListTasks)
			r.Get("/{name}", s.handleTasksByName)
			r.Post("/{name}", s.handleStartTask)
		})
		r.Route("/task-id/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetTask)
			r.Post("/", s.handleTaskCommand)
		})

		r.Route("/schedule", func(r chi.Router) {
			r.Get("/", s.handleListSchedules)
			r.Post("/", s.handleSetSchedule)
			r.Delete("/{name}", s.handleDeleteSchedule)
		})

		r.Route("/channel/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetChannel)
			r.Post("/", s.handleSetChannelOverwrites)
		})

		r.Route("/subscription", func(r chi.Router) {
			r.Post("/", s.handleSubscribe)
			r.Delete("/", s.handleUnsubscribe)
		})

		r.Route("/playlist", func(r chi.Router) {
			r.Post("/", s.handleCreatePlaylist)
			r.Post("/{id}/video", s.handlePlaylistVideo)
			r.Delete("/{id}", s.handleDeletePlaylist)
		})

		r.Route("/watched", func(r chi.Router) {
			r.Post("/", s.handleSetWatched)
		})
		r.Route("/video/{id}/progress", func(r chi.Router) {
			r.Get("/", s.handleGetProgress)
			r.Post("/", s.handleSetProgress)
			r.Delete("/", s.handleClearProgress)
		})

		r.Route("/notification", func(r chi.Router) {
			r.Get("/{task}", s.handleListNotifications)
			r.Post("/", s.handleAddNotification)
			r.Delete("/", s.handleRemoveNotification)
		})

		r.Route("/backup", func(r chi.Router) {
			r.Get("/", s.handleListBackups)
			r.Post("/", s.handleRunBackup)
			r.Post("/{filename}/restore", s.handleRestoreBackup)
		})
		r.Route("/snapshot", func(r chi.Router) {
			r.Get("/", s.handleListSnapshots)
			r.Post("/", s.handleTakeSnapshot)
			r.Post("/{name}/restore", s.handleRestoreSnapshot)
		})

		r.Route("/cookie", func(r chi.Router) {
			r.Get("/", s.handleCookieState)
			r.Post("/", s.handleCookieImport)
			r.Delete("/", s.handleCookieRevoke)
		})
		r.Route("/potoken", func(r chi.Router) {
			r.Post("/", s.handleSetPOToken)
			r.Delete("/", s.handleClearPOToken)
		})
	})

	return r
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	logging.S("api listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
