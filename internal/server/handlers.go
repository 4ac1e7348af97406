package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tubearchivist/internal/domain/consts"
	"tubearchivist/internal/models"
	"tubearchivist/internal/pipeline"
	"tubearchivist/internal/release"
	"tubearchivist/internal/tasks"
)

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"response": "pong"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{"version": release.Version}
	if remote, err := s.app.Release.Pending(r.Context()); err == nil && remote != nil {
		out["remote_version"] = remote.ReleaseVersion
		out["update_available"] = true
	}
	respondJSON(w, http.StatusOK, out)
}

// ----------------- download queue -----------------

func (s *Server) handleListDownloads(w http.ResponseWriter, r *http.Request) {
	rows, err := s.app.Queue.List(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (s *Server) handleAddDownloads(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Data      []string `json:"data"`
		AutoStart bool     `json:"autostart"`
		Force     bool     `json:"force"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if len(body.Data) == 0 {
		http.Error(w, "no urls given", http.StatusBadRequest)
		return
	}

	var ids []string
	for _, raw := range body.Data {
		added, err := s.app.EnqueueRefs(r.Context(), raw, pipeline.ParseOpts{
			AutoStart: body.AutoStart,
			Force:     body.Force,
		})
		if err != nil {
			respondErr(w, err)
			return
		}
		ids = append(ids, added...)
	}
	respondJSON(w, http.StatusCreated, map[string]any{"queued": ids})
}

func (s *Server) handleDeleteDownloadsByFilter(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("filter")
	if status != models.StatusPending && status != models.StatusIgnore {
		http.Error(w, "filter must be pending or ignore", http.StatusBadRequest)
		return
	}
	if err := s.app.Queue.RemoveByStatus(r.Context(), status); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

func (s *Server) handleGetDownload(w http.ResponseWriter, r *http.Request) {
	row, err := s.app.Queue.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, row)
}

func (s *Server) handleSetDownloadStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	switch body.Status {
	case models.StatusPending, models.StatusIgnore, models.StatusPriority:
	default:
		http.Error(w, fmt.Sprintf("invalid status %q", body.Status), http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.app.Queue.SetStatus(r.Context(), id, body.Status); err != nil {
		respondErr(w, err)
		return
	}
	if body.Status == models.StatusPriority {
		if _, err := s.app.Runner.Start(r.Context(), tasks.TaskDownloadPending); err != nil {
			respondErr(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, nil)
}

func (s *Server) handleDeleteDownload(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Queue.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ----------------- config -----------------

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.app.ConfigMgr.Load(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var updates map[string]any
	if !decodeBody(w, r, &updates) {
		return
	}

	updated, err := s.app.ConfigMgr.Update(r.Context(), updates)
	if err != nil {
		respondErr(w, err)
		return
	}
	// Refresh the snapshot every component shares.
	*s.app.AppConfig = *updated
	respondJSON(w, http.StatusOK, updated)
}

// ----------------- tasks -----------------

func (s *Server) handleListTasks(w http.ResponseWriter, _ *http.Request) {
	type taskInfo struct {
		Name        string `json:"name"`
		Title       string `json:"title"`
		APIStart    bool   `json:"api_start"`
		APIStop     bool   `json:"api_stop"`
		Schedulable bool   `json:"schedulable"`
	}
	defs := s.app.Registry.All()
	out := make([]taskInfo, 0, len(defs))
	for _, def := range defs {
		out = append(out, taskInfo{def.Name, def.Title, def.APIStart, def.APIStop, def.Schedulable})
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleTasksByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if s.app.Registry.Get(name) == nil {
		http.Error(w, "unknown task", http.StatusNotFound)
		return
	}
	records, err := s.app.Runner.Records(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	out := []*models.TaskRecord{}
	for _, rec := range records {
		if rec.Name == name {
			out = append(out, rec)
		}
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleStartTask(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	def := s.app.Registry.Get(name)
	if def == nil {
		http.Error(w, "unknown task", http.StatusNotFound)
		return
	}
	if !def.APIStart {
		http.Error(w, "task cannot be started through the api", http.StatusBadRequest)
		return
	}

	id, err := s.app.Runner.Start(r.Context(), name)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"task_id": id})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	rec, err := s.app.Runner.Record(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleTaskCommand(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Command string `json:"command"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.app.Runner.SendCommand(r.Context(), chi.URLParam(r, "id"), body.Command); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

// ----------------- schedules -----------------

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.app.Scheduler.All(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, schedules)
}

func (s *Server) handleSetSchedule(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Task     string         `json:"task"`
		Schedule string         `json:"schedule"`
		Config   map[string]any `json:"config,omitempty"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.app.Scheduler.Set(r.Context(), body.Task, body.Schedule, body.Config); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, nil)
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Scheduler.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ----------------- subscriptions -----------------

func (s *Server) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var ch models.Channel
	if err := s.app.Conn.GetDoc(r.Context(), consts.IndexChannel, id, &ch); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ch)
}

func (s *Server) handleSetChannelOverwrites(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ChannelOverwrites map[string]any `json:"channel_overwrites"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if len(body.ChannelOverwrites) == 0 {
		http.Error(w, "no overwrites given", http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.app.SubMgr.SetOverwrites(r.Context(), id, body.ChannelOverwrites); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	s.enqueueSubscribe(w, r, true)
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	s.enqueueSubscribe(w, r, false)
}

func (s *Server) enqueueSubscribe(w http.ResponseWriter, r *http.Request, subscribe bool) {
	var body struct {
		Data []string `json:"data"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if len(body.Data) == 0 {
		http.Error(w, "no urls given", http.StatusBadRequest)
		return
	}

	for _, raw := range body.Data {
		if err := s.app.EnqueueSubscribe(r.Context(), raw, subscribe); err != nil {
			respondErr(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, nil)
}
